package handler

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/go-faster/jx"

	"github.com/xenking/smart-trolley/internal/domain/identity"
	"github.com/xenking/smart-trolley/internal/domain/order"
)

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request, u identity.User) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, r, badRequest("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	orders, err := h.receipts.History(r.Context(), u.ID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ArrStart()
	for i := range orders {
		encodeOrder(&e, &orders[i], false)
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, e.Bytes())
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request, u identity.User) {
	o, err := h.receipts.Get(r.Context(), u.ID, r.PathValue("orderID"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var e jx.Encoder
	encodeOrder(&e, o, true)
	writeJSON(w, http.StatusOK, e.Bytes())
}

// getReceipt renders the order as a plain-text receipt.
func (h *Handler) getReceipt(w http.ResponseWriter, r *http.Request, u identity.User) {
	o, err := h.receipts.Get(r.Context(), u.ID, r.PathValue("orderID"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := order.WriteText(&buf, h.storeName, o); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="receipt-`+o.ID+`.txt"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
