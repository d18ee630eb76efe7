package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/smart-trolley/internal/domain/identity"
)

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request, u identity.User) {
	h.writeCart(w, r, u.ID, http.StatusOK)
}

// writeCart responds with the user's current cart.
func (h *Handler) writeCart(w http.ResponseWriter, r *http.Request, userID string, status int) {
	snap, err := h.ledger.Snapshot(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var e jx.Encoder
	h.encodeCart(&e, snap)
	writeJSON(w, status, e.Bytes())
}

// addCartItem adds one unit by product id or by scanned barcode.
func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request, u identity.User) {
	var productID, barcode string
	if err := decodeBody(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productId":
			productID, err = optString(d)
		case "barcode":
			barcode, err = optString(d)
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		writeError(w, r, err)
		return
	}

	productID = strings.TrimSpace(productID)
	barcode = strings.TrimSpace(barcode)

	var err error
	switch {
	case productID != "":
		_, err = h.ledger.AddOrIncrement(r.Context(), u.ID, productID)
	case barcode != "":
		_, err = h.ledger.AddByBarcode(r.Context(), u.ID, barcode)
	default:
		err = badRequest("productId or barcode is required")
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeCart(w, r, u.ID, http.StatusOK)
}

func (h *Handler) setCartItem(w http.ResponseWriter, r *http.Request, u identity.User) {
	var (
		quantity int
		seen     bool
	)
	if err := decodeBody(r, func(d *jx.Decoder, key string) error {
		if key != "quantity" {
			return d.Skip()
		}
		n, err := d.Int()
		if err != nil {
			return errors.Wrap(err, "quantity")
		}
		quantity, seen = n, true
		return nil
	}); err != nil {
		writeError(w, r, err)
		return
	}
	if !seen {
		writeError(w, r, badRequest("quantity is required"))
		return
	}

	if err := h.ledger.SetQuantity(r.Context(), u.ID, r.PathValue("lineID"), quantity); err != nil {
		writeError(w, r, err)
		return
	}
	h.writeCart(w, r, u.ID, http.StatusOK)
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request, u identity.User) {
	if err := h.ledger.Remove(r.Context(), u.ID, r.PathValue("lineID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
