package handler

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/smart-trolley/internal/domain/analytics"
	"github.com/xenking/smart-trolley/internal/domain/cart"
	"github.com/xenking/smart-trolley/internal/domain/checkout"
	"github.com/xenking/smart-trolley/internal/domain/order"
	"github.com/xenking/smart-trolley/internal/domain/product"
)

const maxBodySize = 64 << 10

// decodeBody reads a JSON object from the request body and hands every
// field to fn. Unknown fields are skipped.
func decodeBody(r *http.Request, fn func(d *jx.Decoder, key string) error) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		return badRequest("read body")
	}
	if len(body) > maxBodySize {
		return badRequest("body too large")
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return badRequest("body is required")
	}

	d := jx.DecodeBytes(body)
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		return fn(d, string(key))
	}); err != nil {
		return badRequest("malformed JSON body: " + err.Error())
	}
	return nil
}

// optString decodes a string field that may be null.
func optString(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	s, err := d.Str()
	if err != nil {
		return "", errors.Wrap(err, "string")
	}
	return s, nil
}

func money(e *jx.Encoder, name string, v decimal.Decimal) {
	e.FieldStart(name)
	e.Str(v.StringFixed(2))
}

func timestamp(e *jx.Encoder, name string, t time.Time) {
	e.FieldStart(name)
	e.Str(t.UTC().Format(time.RFC3339))
}

func str(e *jx.Encoder, name, v string) {
	e.FieldStart(name)
	e.Str(v)
}

func integer(e *jx.Encoder, name string, v int) {
	e.FieldStart(name)
	e.Int(v)
}

func (h *Handler) imageURL(path string) string {
	if path == "" || h.imageBaseURL == "" ||
		strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimSuffix(h.imageBaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
}

func (h *Handler) encodeProduct(e *jx.Encoder, p *product.Product) {
	e.ObjStart()
	str(e, "id", p.ID)
	str(e, "barcode", p.Barcode)
	str(e, "name", p.Name)
	str(e, "brand", p.Brand)
	str(e, "category", p.Category)
	money(e, "price", p.Price)
	money(e, "taxPercent", p.TaxPercent)
	integer(e, "stockCount", p.StockCount)
	e.FieldStart("inStock")
	e.Bool(p.InStock())
	str(e, "imageUrl", h.imageURL(p.ImageURL))
	e.ObjEnd()
}

// encodeCart writes the snapshot with rounded totals.
func (h *Handler) encodeCart(e *jx.Encoder, snap *cart.Snapshot) {
	totals := snap.Totals.Rounded()

	e.ObjStart()
	e.FieldStart("items")
	e.ArrStart()
	for i := range snap.Items {
		it := &snap.Items[i]
		e.ObjStart()
		str(e, "id", it.ID)
		str(e, "productId", it.ProductID)
		integer(e, "quantity", it.Quantity)
		money(e, "lineTotal", it.LineTotal())
		e.FieldStart("product")
		h.encodeProduct(e, &it.Product)
		e.ObjEnd()
	}
	e.ArrEnd()
	money(e, "subtotal", totals.Subtotal)
	money(e, "tax", totals.Tax)
	money(e, "total", totals.Total)
	integer(e, "count", snap.Count())
	e.ObjEnd()
}

func encodeCustomer(e *jx.Encoder, c order.Customer) {
	e.ObjStart()
	str(e, "name", c.Name)
	str(e, "phone", c.Phone)
	str(e, "email", c.Email)
	e.ObjEnd()
}

func encodeSession(e *jx.Encoder, s *checkout.Session) {
	e.ObjStart()
	str(e, "id", s.ID)
	str(e, "state", string(s.State))
	if s.State != checkout.StateCollectingDetails {
		e.FieldStart("customer")
		encodeCustomer(e, s.Customer)
	}
	if pr := s.PayRequest; pr != nil {
		money(e, "quotedTotal", s.QuotedTotal)
		e.FieldStart("payRequest")
		e.ObjStart()
		str(e, "payeeId", pr.PayeeID)
		str(e, "payeeName", pr.PayeeName)
		money(e, "amount", pr.Amount)
		str(e, "currency", pr.Currency)
		str(e, "note", pr.Note)
		str(e, "uri", pr.URI)
		e.ObjEnd()
	}
	timestamp(e, "createdAt", s.CreatedAt)
	timestamp(e, "updatedAt", s.UpdatedAt)
	e.ObjEnd()
}

// encodeOrder writes an order. Lines are included when withLines is set.
func encodeOrder(e *jx.Encoder, o *order.Order, withLines bool) {
	e.ObjStart()
	str(e, "id", o.ID)
	e.FieldStart("customer")
	encodeCustomer(e, o.Customer)
	money(e, "subtotal", o.Subtotal)
	money(e, "tax", o.Tax)
	money(e, "total", o.Total)
	str(e, "paymentReference", o.PaymentReference)
	str(e, "paymentStatus", o.PaymentStatus)
	timestamp(e, "createdAt", o.CreatedAt)
	if withLines {
		integer(e, "itemCount", o.Count())
		e.FieldStart("items")
		e.ArrStart()
		for _, l := range o.Lines {
			e.ObjStart()
			str(e, "id", l.ID)
			str(e, "productId", l.ProductID)
			str(e, "barcode", l.Barcode)
			str(e, "name", l.Name)
			integer(e, "quantity", l.Quantity)
			money(e, "unitPrice", l.UnitPrice)
			money(e, "taxPercent", l.TaxPercent)
			money(e, "lineTotal", l.LineTotal)
			e.ObjEnd()
		}
		e.ArrEnd()
	}
	e.ObjEnd()
}

func encodeSummary(e *jx.Encoder, s *analytics.Summary) {
	e.ObjStart()
	money(e, "revenue", s.Revenue)
	money(e, "tax", s.Tax)
	integer(e, "orders", s.Orders)
	money(e, "averageOrderValue", s.AverageOrderValue)
	integer(e, "products", s.Products)
	integer(e, "customers", s.Customers)

	e.FieldStart("topProducts")
	e.ArrStart()
	for _, p := range s.TopProducts {
		e.ObjStart()
		str(e, "productId", p.ProductID)
		str(e, "name", p.Name)
		str(e, "barcode", p.Barcode)
		integer(e, "quantity", p.Quantity)
		money(e, "revenue", p.Revenue)
		e.ObjEnd()
	}
	e.ArrEnd()

	e.FieldStart("recentOrders")
	e.ArrStart()
	for _, o := range s.RecentOrders {
		e.ObjStart()
		str(e, "id", o.ID)
		str(e, "userId", o.UserID)
		str(e, "customerName", o.CustomerName)
		money(e, "total", o.Total)
		integer(e, "items", o.Items)
		timestamp(e, "createdAt", o.CreatedAt)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}
