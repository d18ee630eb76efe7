// Package checkout drives a purchase from customer details through payment
// confirmation to a committed order.
//
// A Session moves strictly forward:
//
//	collecting-details → awaiting-payment-confirmation → settled
//
// Failed transitions leave the session unchanged.
package checkout

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/smart-trolley/internal/domain/order"
)

// State is a checkout step.
type State string

// Checkout states.
const (
	StateCollectingDetails State = "collecting-details"
	StateAwaitingPayment   State = "awaiting-payment-confirmation"
	StateSettled           State = "settled"
)

// Sentinel errors.
var (
	ErrSessionNotFound   = errors.New("checkout session not found")
	ErrInvalidTransition = errors.New("invalid checkout transition")
)

// Validated fields.
const (
	FieldPhone            = "phone"
	FieldPaymentReference = "payment_reference"
)

// ValidationError reports a missing or malformed checkout field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Session is one in-progress checkout. It is never persisted as an order;
// abandoning it leaves no trace.
type Session struct {
	ID               string
	UserID           string
	State            State
	Customer         order.Customer
	PaymentReference string
	QuotedTotal      decimal.Decimal
	PayRequest       *PayRequest
	OrderID          string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewSession starts a session in collecting-details.
func NewSession(id, userID string, now time.Time) *Session {
	return &Session{
		ID:        id,
		UserID:    userID,
		State:     StateCollectingDetails,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SubmitDetails records the customer's contact details and moves to
// awaiting-payment-confirmation. The phone number is required.
func (s *Session) SubmitDetails(c order.Customer, now time.Time) error {
	if s.State != StateCollectingDetails {
		return errors.Wrapf(ErrInvalidTransition, "submit details in %s", s.State)
	}

	c = order.Customer{
		Name:  strings.TrimSpace(c.Name),
		Phone: strings.TrimSpace(c.Phone),
		Email: strings.TrimSpace(c.Email),
	}
	if c.Phone == "" {
		return &ValidationError{Field: FieldPhone, Message: "phone number is required"}
	}

	s.Customer = c
	s.State = StateAwaitingPayment
	s.UpdatedAt = now
	return nil
}

// Quote attaches the payment target computed for the current cart.
func (s *Session) Quote(pr PayRequest, now time.Time) {
	s.QuotedTotal = pr.Amount
	s.PayRequest = &pr
	s.UpdatedAt = now
}

// ConfirmPayment records the payment reference typed by the shopper. The
// session stays in awaiting-payment-confirmation until Settle.
func (s *Session) ConfirmPayment(ref string) error {
	if s.State != StateAwaitingPayment {
		return errors.Wrapf(ErrInvalidTransition, "confirm payment in %s", s.State)
	}
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return &ValidationError{Field: FieldPaymentReference, Message: "payment reference is required"}
	}
	s.PaymentReference = ref
	return nil
}

// Settle marks the session as settled by the given order.
func (s *Session) Settle(orderID string, now time.Time) error {
	if s.State != StateAwaitingPayment || s.PaymentReference == "" {
		return errors.Wrapf(ErrInvalidTransition, "settle in %s", s.State)
	}
	s.OrderID = orderID
	s.State = StateSettled
	s.UpdatedAt = now
	return nil
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	c := *s
	if s.PayRequest != nil {
		pr := *s.PayRequest
		c.PayRequest = &pr
	}
	return &c
}
