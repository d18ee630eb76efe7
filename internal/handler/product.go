package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/smart-trolley/internal/domain/identity"
	"github.com/xenking/smart-trolley/internal/domain/product"
)

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request, _ identity.User) {
	products, err := h.products.ListActive(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ArrStart()
	for i := range products {
		h.encodeProduct(&e, &products[i])
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, e.Bytes())
}

func (h *Handler) productByBarcode(w http.ResponseWriter, r *http.Request, _ identity.User) {
	barcode := r.PathValue("barcode")
	if barcode == "" {
		writeError(w, r, product.ErrNotFound)
		return
	}
	p, err := h.products.GetByBarcode(r.Context(), barcode)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var e jx.Encoder
	h.encodeProduct(&e, p)
	writeJSON(w, http.StatusOK, e.Bytes())
}
