package checkout

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/smart-trolley/internal/domain/cart"
	"github.com/xenking/smart-trolley/internal/domain/order"
)

// Carts provides live cart snapshots.
type Carts interface {
	Snapshot(ctx context.Context, userID string) (*cart.Snapshot, error)
}

// Committer persists the user's cart as an order.
type Committer interface {
	Commit(ctx context.Context, userID string, customer order.Customer, paymentRef string) (*order.Order, error)
}

// Service runs checkout sessions.
type Service struct {
	carts     Carts
	committer Committer
	sessions  SessionStore
	target    PaymentTarget
	now       func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(s *Service)

// WithServiceClock overrides time.Now.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a Service.
func NewService(carts Carts, committer Committer, sessions SessionStore, target PaymentTarget, opts ...ServiceOption) *Service {
	s := &Service{
		carts:     carts,
		committer: committer,
		sessions:  sessions,
		target:    target,
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Begin starts a session for a non-empty cart.
func (s *Service) Begin(ctx context.Context, userID string) (*Session, *cart.Snapshot, error) {
	snap, err := s.carts.Snapshot(ctx, userID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "cart snapshot")
	}
	if snap.Empty() {
		return nil, nil, order.ErrEmptyCart
	}

	sess := NewSession(uuid.NewString(), userID, s.now().UTC())
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, nil, errors.Wrap(err, "save session")
	}
	return sess, snap, nil
}

// Get returns the user's session.
func (s *Service) Get(ctx context.Context, userID, id string) (*Session, error) {
	if id == "" {
		return nil, ErrSessionNotFound
	}
	return s.sessions.Get(ctx, userID, id)
}

// SubmitDetails records the customer's details and quotes the current cart
// total as a pay request.
func (s *Service) SubmitDetails(ctx context.Context, userID, id string, c order.Customer) (*Session, error) {
	sess, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := sess.SubmitDetails(c, now); err != nil {
		return nil, err
	}

	snap, err := s.carts.Snapshot(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "cart snapshot")
	}
	if snap.Empty() {
		return nil, order.ErrEmptyCart
	}
	sess.Quote(s.target.Request(snap.Totals.Rounded().Total), now)

	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, errors.Wrap(err, "save session")
	}
	return sess, nil
}

// Confirm records the payment reference and commits the order. On failure
// the stored session is left as it was and the caller may retry.
func (s *Service) Confirm(ctx context.Context, userID, id, ref string) (*order.Order, error) {
	sess, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := sess.ConfirmPayment(ref); err != nil {
		return nil, err
	}

	lg := zctx.From(ctx).With(zap.String("session_id", sess.ID))

	placed, err := s.committer.Commit(ctx, userID, sess.Customer, sess.PaymentReference)
	if err != nil {
		lg.Info("Commit rejected", zap.Error(err))
		return nil, err
	}
	if !placed.Total.Equal(sess.QuotedTotal) {
		lg.Warn("Order total differs from quote",
			zap.String("order_id", placed.ID),
			zap.String("quoted", sess.QuotedTotal.StringFixed(2)),
			zap.String("total", placed.Total.StringFixed(2)),
		)
	}

	if err := sess.Settle(placed.ID, s.now().UTC()); err != nil {
		return nil, err
	}
	if err := s.sessions.Delete(ctx, userID, sess.ID); err != nil {
		lg.Warn("Delete settled session", zap.Error(err))
	}
	lg.Info("Checkout settled", zap.String("order_id", placed.ID))

	return placed, nil
}

// Abandon discards the session. Unknown sessions are ignored.
func (s *Service) Abandon(ctx context.Context, userID, id string) error {
	if id == "" {
		return nil
	}
	return s.sessions.Delete(ctx, userID, id)
}
