//go:build integration

package integration

import (
	"net/http"
	"testing"
)

const (
	riceID         = "9f3c1a52-6a7e-4c1e-9a51-2b1f0c8d0001"
	riceBarcode    = "8901063010260"
	milkBarcode    = "8901262150026"
	noodlesBarcode = "8901058851298"
)

func TestListProducts(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)

	products := decodeJSON[[]productResponse](t, resp)
	if len(products) != seedCount {
		t.Fatalf("expected %d products, got %d", seedCount, len(products))
	}
	for i := 1; i < len(products); i++ {
		if products[i-1].Name > products[i].Name {
			t.Errorf("products not sorted by name: %q before %q", products[i-1].Name, products[i].Name)
		}
	}
}

func TestListProducts_Search(t *testing.T) {
	resp := doGet(t, "/api/products?q=rice")
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)

	products := decodeJSON[[]productResponse](t, resp)
	if len(products) != 1 {
		t.Fatalf("expected 1 product, got %d", len(products))
	}
	if products[0].Barcode != riceBarcode {
		t.Errorf("barcode: got %q, want %q", products[0].Barcode, riceBarcode)
	}
}

func TestGetProductByBarcode(t *testing.T) {
	resp := doGet(t, "/api/products/barcode/"+riceBarcode)
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)

	p := decodeJSON[productResponse](t, resp)
	if p.ID != riceID {
		t.Errorf("id: got %q, want %q", p.ID, riceID)
	}
	if p.Price != "450.00" {
		t.Errorf("price: got %q, want 450.00", p.Price)
	}
	if p.TaxPercent != "5.00" {
		t.Errorf("taxPercent: got %q, want 5.00", p.TaxPercent)
	}
	if !p.InStock {
		t.Error("expected product in stock")
	}
}

func TestGetProductByBarcode_NotFound(t *testing.T) {
	resp := doGet(t, "/api/products/barcode/0000000000000")
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusNotFound)

	errResp := decodeJSON[errorResponse](t, resp)
	if errResp.Code != http.StatusNotFound {
		t.Errorf("error code: got %d, want 404", errResp.Code)
	}
}

func TestProducts_Unauthorized(t *testing.T) {
	resp := do(t, http.MethodGet, "/api/products", "not-a-real-key", nil)
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusUnauthorized)
}
