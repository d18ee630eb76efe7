//go:build integration

package integration

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"testing"
)

func rawRequest(t *testing.T, method, path string, headers map[string]string) *http.Response {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), method, baseURL+path, nil)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func TestRequestID(t *testing.T) {
	t.Run("Generated", func(t *testing.T) {
		resp := rawRequest(t, http.MethodGet, "/livez", nil)
		defer resp.Body.Close()

		if id := resp.Header.Get("X-Request-ID"); len(id) != 36 {
			t.Fatalf("X-Request-ID: got %q, want a uuid", id)
		}
	})

	t.Run("Echoed", func(t *testing.T) {
		resp := rawRequest(t, http.MethodGet, "/livez", map[string]string{"X-Request-ID": "till-7-scan-0042"})
		defer resp.Body.Close()

		if got := resp.Header.Get("X-Request-ID"); got != "till-7-scan-0042" {
			t.Errorf("X-Request-ID: got %q", got)
		}
	})

	t.Run("OversizedReplaced", func(t *testing.T) {
		long := strings.Repeat("x", 200)
		resp := rawRequest(t, http.MethodGet, "/livez", map[string]string{"X-Request-ID": long})
		defer resp.Body.Close()

		if got := resp.Header.Get("X-Request-ID"); got == long || got == "" {
			t.Errorf("X-Request-ID: got %q, want a fresh id", got)
		}
	})
}

func TestCORS_PreflightAllowsAPIKeyHeader(t *testing.T) {
	resp := rawRequest(t, http.MethodOptions, "/api/cart/items", map[string]string{
		"Origin":                         "http://trolley.example",
		"Access-Control-Request-Method":  "PATCH",
		"Access-Control-Request-Headers": "api_key, content-type",
	})
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusNoContent)

	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin: got %q", got)
	}
	if got := resp.Header.Get("Access-Control-Allow-Methods"); !strings.Contains(got, "PATCH") {
		t.Errorf("Access-Control-Allow-Methods: got %q", got)
	}
	if got := resp.Header.Get("Access-Control-Allow-Headers"); !strings.Contains(strings.ToLower(got), "api_key") {
		t.Errorf("Access-Control-Allow-Headers: got %q", got)
	}
}

func TestCORS_ExposesRequestID(t *testing.T) {
	resp := rawRequest(t, http.MethodGet, "/api/products", map[string]string{
		"Origin":        "http://trolley.example",
		"Authorization": "Bearer " + shopperKey,
	})
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)

	if got := resp.Header.Get("Access-Control-Allow-Origin"); got == "" {
		t.Error("Access-Control-Allow-Origin header not present")
	}
	if got := resp.Header.Get("Access-Control-Expose-Headers"); !strings.Contains(got, "X-Request-ID") {
		t.Errorf("Access-Control-Expose-Headers: got %q", got)
	}
}

func TestRateLimit_PerAPIKey(t *testing.T) {
	remaining := func(key string) int {
		t.Helper()

		resp := do(t, http.MethodGet, "/api/cart", key, nil)
		defer resp.Body.Close()
		expectStatus(t, resp, http.StatusOK)

		if resp.Header.Get("X-RateLimit-Limit") == "" {
			t.Fatal("X-RateLimit-Limit header not present")
		}
		n, err := strconv.Atoi(resp.Header.Get("X-RateLimit-Remaining"))
		if err != nil {
			t.Fatalf("X-RateLimit-Remaining: %v", err)
		}
		return n
	}

	first := remaining(shopperKey)
	if second := remaining(shopperKey); second >= first {
		t.Errorf("shopper budget did not shrink: %d then %d", first, second)
	}
	// The admin key has its own bucket.
	if admin := remaining(adminKey); admin < first {
		t.Errorf("admin budget %d drawn from shopper bucket (%d)", admin, first)
	}
}

func TestErrors_JSONBody(t *testing.T) {
	resp := rawRequest(t, http.MethodGet, "/api/products", nil)
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusUnauthorized)

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type: got %q", ct)
	}
	if body := decodeJSON[errorResponse](t, resp); body.Code != http.StatusUnauthorized {
		t.Errorf("code: got %d", body.Code)
	}
}
