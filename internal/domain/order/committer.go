package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/smart-trolley/internal/domain/cart"
	"github.com/xenking/smart-trolley/internal/domain/pricing"
)

const instrumentationName = "github.com/xenking/smart-trolley/internal/domain/order"

// Committer turns a user's cart into an order in a single transaction.
type Committer struct {
	store     Store
	publisher Publisher
	policy    cart.StockPolicy
	now       func() time.Time

	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider

	tracer    trace.Tracer
	committed metric.Int64Counter
	failures  metric.Int64Counter
	totals    metric.Float64Histogram
}

// Option configures a Committer.
type Option func(c *Committer)

// WithPublisher sets the committed-order publisher.
func WithPublisher(p Publisher) Option {
	return func(c *Committer) {
		c.publisher = p
	}
}

// WithStockPolicy sets the stock policy checked at commit time.
func WithStockPolicy(p cart.StockPolicy) Option {
	return func(c *Committer) {
		c.policy = p
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Committer) {
		c.now = now
	}
}

// WithTelemetry sets the tracer and meter providers. The global providers
// are used by default.
func WithTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) Option {
	return func(c *Committer) {
		c.tracerProvider = tp
		c.meterProvider = mp
	}
}

// NewCommitter creates a Committer.
func NewCommitter(store Store, opts ...Option) (*Committer, error) {
	c := &Committer{
		store:          store,
		publisher:      nopPublisher{},
		policy:         cart.StockAdvisory,
		now:            time.Now,
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
	}
	for _, o := range opts {
		o(c)
	}

	c.tracer = c.tracerProvider.Tracer(instrumentationName)
	meter := c.meterProvider.Meter(instrumentationName)

	var err error
	if c.committed, err = meter.Int64Counter("trolley.orders.committed",
		metric.WithDescription("Orders committed"),
	); err != nil {
		return nil, errors.Wrap(err, "committed counter")
	}
	if c.failures, err = meter.Int64Counter("trolley.orders.commit_failures",
		metric.WithDescription("Order commits that were rejected or rolled back"),
	); err != nil {
		return nil, errors.Wrap(err, "failures counter")
	}
	if c.totals, err = meter.Float64Histogram("trolley.orders.total",
		metric.WithDescription("Committed order totals"),
		metric.WithUnit("{INR}"),
	); err != nil {
		return nil, errors.Wrap(err, "totals histogram")
	}

	return c, nil
}

// Commit locks the user's cart, recomputes totals from it, writes the order
// header and lines, and clears the cart. Either all of it is persisted or
// none of it is.
//
// It fails with ErrEmptyCart before any write when the cart is empty,
// *ProductUnavailableError or *InsufficientStockError when a line can no
// longer be bought, and *CommitError for any storage failure.
func (c *Committer) Commit(ctx context.Context, userID string, customer Customer, paymentRef string) (_ *Order, rerr error) {
	ctx, span := c.tracer.Start(ctx, "order.Commit",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
			c.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", failureReason(rerr))))
		}
		span.End()
	}()

	var placed *Order
	err := c.store.InTx(ctx, func(tx Tx) error {
		items, err := tx.LockCart(ctx, userID)
		if err != nil {
			return &CommitError{Err: errors.Wrap(err, "lock cart")}
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}
		if err := c.checkItems(items); err != nil {
			return err
		}

		o := c.build(userID, customer, paymentRef, items)
		if err := tx.InsertOrder(ctx, o); err != nil {
			return &CommitError{Err: errors.Wrap(err, "insert order")}
		}
		if err := tx.InsertLines(ctx, o.Lines); err != nil {
			return &CommitError{Err: errors.Wrap(err, "insert order lines")}
		}
		if err := tx.ClearCart(ctx, userID); err != nil {
			return &CommitError{Err: errors.Wrap(err, "clear cart")}
		}

		placed = o
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}

	span.SetAttributes(attribute.String("order.id", placed.ID))
	c.committed.Add(ctx, 1)
	c.totals.Record(ctx, placed.Total.InexactFloat64())

	if err := c.publisher.PublishCommitted(ctx, placed); err != nil {
		zctx.From(ctx).Warn("Publish committed order",
			zap.String("order_id", placed.ID),
			zap.Error(err),
		)
	}

	return placed, nil
}

func (c *Committer) checkItems(items []cart.Item) error {
	for _, it := range items {
		if !it.Product.Active {
			return &ProductUnavailableError{ProductID: it.ProductID, Name: it.Product.Name}
		}
		if c.policy == cart.StockStrict && it.Quantity > it.Product.StockCount {
			return &InsufficientStockError{
				ProductID: it.ProductID,
				Requested: it.Quantity,
				Available: it.Product.StockCount,
			}
		}
	}
	return nil
}

func (c *Committer) build(userID string, customer Customer, paymentRef string, items []cart.Item) *Order {
	o := &Order{
		ID:               uuid.New().String(),
		UserID:           userID,
		Customer:         customer,
		PaymentReference: paymentRef,
		PaymentStatus:    StatusCompleted,
		CreatedAt:        c.now().UTC(),
		Lines:            make([]Line, len(items)),
	}
	for i, it := range items {
		o.Lines[i] = Line{
			ID:         uuid.New().String(),
			OrderID:    o.ID,
			ProductID:  it.ProductID,
			Barcode:    it.Product.Barcode,
			Name:       it.Product.Name,
			Quantity:   it.Quantity,
			UnitPrice:  it.Product.Price,
			TaxPercent: it.Product.TaxPercent,
			LineTotal:  it.LineTotal(),
		}
	}

	totals := pricing.Compute(cart.PricingLines(items)).Rounded()
	o.Subtotal = totals.Subtotal
	o.Tax = totals.Tax
	o.Total = totals.Total
	return o
}

// classify keeps domain rejections as they are and turns everything else,
// including begin and commit failures of the transaction, into a CommitError.
func classify(err error) error {
	var (
		commitErr      *CommitError
		unavailableErr *ProductUnavailableError
		stockErr       *InsufficientStockError
	)
	switch {
	case errors.Is(err, ErrEmptyCart),
		errors.As(err, &commitErr),
		errors.As(err, &unavailableErr),
		errors.As(err, &stockErr):
		return err
	default:
		return &CommitError{Err: err}
	}
}

func failureReason(err error) string {
	var (
		unavailableErr *ProductUnavailableError
		stockErr       *InsufficientStockError
	)
	switch {
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.As(err, &unavailableErr):
		return "product_unavailable"
	case errors.As(err, &stockErr):
		return "insufficient_stock"
	default:
		return "storage"
	}
}

type nopPublisher struct{}

func (nopPublisher) PublishCommitted(context.Context, *Order) error { return nil }
