package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func corsRequest(h http.Handler, method, origin string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/cart", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestCORS_Wildcard(t *testing.T) {
	h := CORS(CORSConfig{AllowOrigins: []string{"*"}, MaxAge: 600})(okHandler())

	w := corsRequest(h, http.MethodGet, "https://shop.example")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Values("Vary"))

	w = corsRequest(h, http.MethodOptions, "https://shop.example",
		"Access-Control-Request-Method", "PATCH",
		"Access-Control-Request-Headers", "Authorization, Content-Type",
	)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
	assert.Equal(t, "Authorization, Content-Type", w.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))
}

func TestCORS_AllowList(t *testing.T) {
	h := CORS(CORSConfig{
		AllowOrigins:     []string{"https://Kiosk.example"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "api_key"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           -1,
	})(okHandler())

	t.Run("allowed origin echoes configured spelling", func(t *testing.T) {
		w := corsRequest(h, http.MethodGet, "https://kiosk.example")
		assert.Equal(t, "https://Kiosk.example", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
		assert.Equal(t, "X-Request-ID", w.Header().Get("Access-Control-Expose-Headers"))
		assert.Equal(t, []string{"Origin"}, w.Header().Values("Vary"))
	})

	t.Run("foreign origin gets no headers", func(t *testing.T) {
		w := corsRequest(h, http.MethodGet, "https://evil.example")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		w := corsRequest(h, http.MethodOptions, "https://kiosk.example", "Access-Control-Request-Method", "POST")
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "Content-Type, Authorization, api_key", w.Header().Get("Access-Control-Allow-Headers"))
		assert.Equal(t, "0", w.Header().Get("Access-Control-Max-Age"))
		assert.ElementsMatch(t,
			[]string{"Origin", "Access-Control-Request-Method", "Access-Control-Request-Headers"},
			w.Header().Values("Vary"),
		)
	})

	t.Run("foreign preflight", func(t *testing.T) {
		w := corsRequest(h, http.MethodOptions, "https://evil.example", "Access-Control-Request-Method", "POST")
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("same origin request", func(t *testing.T) {
		w := corsRequest(h, http.MethodGet, "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []string{"Origin"}, w.Header().Values("Vary"))
	})
}

func TestCORS_CredentialsWithWildcard(t *testing.T) {
	h := CORS(CORSConfig{AllowCredentials: true})(okHandler())

	w := corsRequest(h, http.MethodGet, "https://shop.example")
	assert.Equal(t, "https://shop.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}
