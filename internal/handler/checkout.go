package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/smart-trolley/internal/domain/identity"
	"github.com/xenking/smart-trolley/internal/domain/order"
)

func (h *Handler) beginCheckout(w http.ResponseWriter, r *http.Request, u identity.User) {
	sess, snap, err := h.checkout.Begin(r.Context(), u.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("session")
	encodeSession(&e, sess)
	e.FieldStart("cart")
	h.encodeCart(&e, snap)
	e.ObjEnd()
	writeJSON(w, http.StatusCreated, e.Bytes())
}

func (h *Handler) getCheckout(w http.ResponseWriter, r *http.Request, u identity.User) {
	sess, err := h.checkout.Get(r.Context(), u.ID, r.PathValue("sessionID"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var e jx.Encoder
	encodeSession(&e, sess)
	writeJSON(w, http.StatusOK, e.Bytes())
}

func (h *Handler) submitDetails(w http.ResponseWriter, r *http.Request, u identity.User) {
	var c order.Customer
	if err := decodeBody(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			c.Name, err = optString(d)
		case "phone":
			c.Phone, err = optString(d)
		case "email":
			c.Email, err = optString(d)
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		writeError(w, r, err)
		return
	}

	sess, err := h.checkout.SubmitDetails(r.Context(), u.ID, r.PathValue("sessionID"), c)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var e jx.Encoder
	encodeSession(&e, sess)
	writeJSON(w, http.StatusOK, e.Bytes())
}

func (h *Handler) confirmCheckout(w http.ResponseWriter, r *http.Request, u identity.User) {
	var ref string
	if err := decodeBody(r, func(d *jx.Decoder, key string) error {
		if key != "paymentReference" {
			return d.Skip()
		}
		var err error
		ref, err = optString(d)
		return err
	}); err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.checkout.Confirm(r.Context(), u.ID, r.PathValue("sessionID"), ref)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var e jx.Encoder
	encodeOrder(&e, o, true)
	writeJSON(w, http.StatusCreated, e.Bytes())
}

func (h *Handler) abandonCheckout(w http.ResponseWriter, r *http.Request, u identity.User) {
	if err := h.checkout.Abandon(r.Context(), u.ID, r.PathValue("sessionID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
