package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/smart-trolley/internal/domain/cart"
	"github.com/xenking/smart-trolley/internal/domain/checkout"
	"github.com/xenking/smart-trolley/internal/domain/identity"
	"github.com/xenking/smart-trolley/internal/domain/order"
	"github.com/xenking/smart-trolley/internal/domain/product"
)

var errForbidden = errors.New("admin scope required")

// badRequestError reports a malformed request body or parameter.
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

func badRequest(msg string) error {
	return &badRequestError{msg: msg}
}

// apiError is the JSON error body.
type apiError struct {
	Code    int
	Message string
	Field   string
}

func (e apiError) encode(enc *jx.Encoder) {
	enc.ObjStart()
	enc.FieldStart("code")
	enc.Int(e.Code)
	enc.FieldStart("message")
	enc.Str(e.Message)
	if e.Field != "" {
		enc.FieldStart("field")
		enc.Str(e.Field)
	}
	enc.ObjEnd()
}

// toAPIError maps domain errors to HTTP statuses. Unknown errors become 500.
func toAPIError(err error) apiError {
	var (
		badReq      *badRequestError
		validation  *checkout.ValidationError
		quantity    *cart.InvalidQuantityError
		unavailable *order.ProductUnavailableError
		stock       *order.InsufficientStockError
		commit      *order.CommitError
	)
	switch {
	case errors.Is(err, identity.ErrAnonymous):
		return apiError{Code: http.StatusUnauthorized, Message: "unauthorized"}
	case errors.Is(err, errForbidden):
		return apiError{Code: http.StatusForbidden, Message: err.Error()}
	case errors.As(err, &badReq):
		return apiError{Code: http.StatusBadRequest, Message: badReq.msg}

	case errors.Is(err, product.ErrNotFound),
		errors.Is(err, cart.ErrLineNotFound),
		errors.Is(err, checkout.ErrSessionNotFound),
		errors.Is(err, order.ErrNotFound):
		return apiError{Code: http.StatusNotFound, Message: rootMessage(err)}

	case errors.As(err, &validation):
		return apiError{Code: http.StatusUnprocessableEntity, Message: validation.Error(), Field: validation.Field}
	case errors.As(err, &quantity):
		return apiError{Code: http.StatusUnprocessableEntity, Message: quantity.Error(), Field: "quantity"}
	case errors.Is(err, cart.ErrInvalidQuantity):
		return apiError{Code: http.StatusUnprocessableEntity, Message: cart.ErrInvalidQuantity.Error(), Field: "quantity"}

	case errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, cart.ErrOutOfStock),
		errors.Is(err, checkout.ErrInvalidTransition):
		return apiError{Code: http.StatusConflict, Message: rootMessage(err)}
	case errors.As(err, &unavailable):
		return apiError{Code: http.StatusConflict, Message: unavailable.Error()}
	case errors.As(err, &stock):
		return apiError{Code: http.StatusConflict, Message: stock.Error()}

	case errors.As(err, &commit):
		return apiError{Code: http.StatusServiceUnavailable, Message: "order could not be saved, please retry"}
	}
	return apiError{Code: http.StatusInternalServerError, Message: "internal server error"}
}

// rootMessage returns the message of the sentinel at the bottom of the
// chain so storage context never leaks to clients.
func rootMessage(err error) string {
	for _, sentinel := range []error{
		product.ErrNotFound,
		cart.ErrLineNotFound,
		checkout.ErrSessionNotFound,
		order.ErrNotFound,
		order.ErrEmptyCart,
		cart.ErrOutOfStock,
		checkout.ErrInvalidTransition,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	e := toAPIError(err)

	lg := zctx.From(r.Context())
	switch {
	case e.Code >= http.StatusInternalServerError && e.Code != http.StatusServiceUnavailable:
		lg.Error("Request failed", zap.Error(err))
	case e.Code == http.StatusServiceUnavailable:
		lg.Warn("Request failed", zap.Error(err))
		w.Header().Set("Retry-After", "1")
	default:
		lg.Debug("Request rejected", zap.Int("status", e.Code), zap.Error(err))
	}

	var enc jx.Encoder
	e.encode(&enc)
	writeJSON(w, e.Code, enc.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
