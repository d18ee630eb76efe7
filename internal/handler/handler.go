// Package handler serves the shopper and admin HTTP API.
package handler

import (
	"context"
	"net/http"

	"github.com/xenking/smart-trolley/internal/domain/analytics"
	"github.com/xenking/smart-trolley/internal/domain/cart"
	"github.com/xenking/smart-trolley/internal/domain/checkout"
	"github.com/xenking/smart-trolley/internal/domain/identity"
	"github.com/xenking/smart-trolley/internal/domain/order"
	"github.com/xenking/smart-trolley/internal/domain/product"
)

// Ledger mutates and reads carts.
type Ledger interface {
	AddOrIncrement(ctx context.Context, userID, productID string) (*cart.Line, error)
	AddByBarcode(ctx context.Context, userID, barcode string) (*cart.Line, error)
	SetQuantity(ctx context.Context, userID, lineID string, n int) error
	Remove(ctx context.Context, userID, lineID string) error
	Snapshot(ctx context.Context, userID string) (*cart.Snapshot, error)
}

// Checkout runs checkout sessions.
type Checkout interface {
	Begin(ctx context.Context, userID string) (*checkout.Session, *cart.Snapshot, error)
	Get(ctx context.Context, userID, id string) (*checkout.Session, error)
	SubmitDetails(ctx context.Context, userID, id string, c order.Customer) (*checkout.Session, error)
	Confirm(ctx context.Context, userID, id, ref string) (*order.Order, error)
	Abandon(ctx context.Context, userID, id string) error
}

// Receipts reads committed orders.
type Receipts interface {
	Get(ctx context.Context, userID, orderID string) (*order.Order, error)
	History(ctx context.Context, userID string, limit int) ([]order.Order, error)
}

// Reports builds the admin summary.
type Reports interface {
	Summary(ctx context.Context) (*analytics.Summary, error)
}

// Authenticator resolves raw API keys to users.
type Authenticator interface {
	Authenticate(ctx context.Context, rawKey string) (identity.User, error)
}

// Config holds non-dependency handler settings.
type Config struct {
	// StoreName heads text receipts.
	StoreName string
	// ImageBaseURL is prepended to relative product image paths.
	ImageBaseURL string
}

// Deps are the services behind the API.
type Deps struct {
	Products product.Repository
	Ledger   Ledger
	Checkout Checkout
	Receipts Receipts
	Reports  Reports
	Auth     Authenticator
}

// Handler serves the API.
type Handler struct {
	products     product.Repository
	ledger       Ledger
	checkout     Checkout
	receipts     Receipts
	reports      Reports
	auth         Authenticator
	storeName    string
	imageBaseURL string
}

// NewHandler creates a Handler.
func NewHandler(cfg Config, deps Deps) *Handler {
	if cfg.StoreName == "" {
		cfg.StoreName = "Smart Trolley"
	}
	return &Handler{
		products:     deps.Products,
		ledger:       deps.Ledger,
		checkout:     deps.Checkout,
		receipts:     deps.Receipts,
		reports:      deps.Reports,
		auth:         deps.Auth,
		storeName:    cfg.StoreName,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// Register mounts every API route on mux. All routes require an API key.
func (h *Handler) Register(mux *http.ServeMux) {
	routes := []struct {
		pattern string
		fn      userHandlerFunc
	}{
		{"GET /api/products", h.listProducts},
		{"GET /api/products/barcode/{barcode}", h.productByBarcode},

		{"GET /api/cart", h.getCart},
		{"POST /api/cart/items", h.addCartItem},
		{"PATCH /api/cart/items/{lineID}", h.setCartItem},
		{"DELETE /api/cart/items/{lineID}", h.removeCartItem},

		{"POST /api/checkout", h.beginCheckout},
		{"GET /api/checkout/{sessionID}", h.getCheckout},
		{"PUT /api/checkout/{sessionID}/details", h.submitDetails},
		{"POST /api/checkout/{sessionID}/confirm", h.confirmCheckout},
		{"DELETE /api/checkout/{sessionID}", h.abandonCheckout},

		{"GET /api/orders", h.listOrders},
		{"GET /api/orders/{orderID}", h.getOrder},
		{"GET /api/orders/{orderID}/receipt", h.getReceipt},

		{"GET /api/admin/analytics", h.requireAdmin(h.analyticsSummary)},
	}
	for _, r := range routes {
		mux.Handle(r.pattern, h.authenticated(r.fn))
	}
}
