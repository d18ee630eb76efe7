// Package memory implements the catalog, cart and order storage interfaces
// in process memory. It backs unit tests and local experiments; production
// uses the postgres package.
//
// Transactions hold the store lock for their whole duration and stage their
// writes, so a failing transaction leaves nothing behind.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/smart-trolley/internal/domain/cart"
	"github.com/xenking/smart-trolley/internal/domain/order"
	"github.com/xenking/smart-trolley/internal/domain/product"
)

// Fault names accepted by Store.FailOn.
const (
	FaultLockCart    = "lock_cart"
	FaultInsertOrder = "insert_order"
	FaultInsertLines = "insert_lines"
	FaultClearCart   = "clear_cart"
)

var (
	_ product.Repository = (*Store)(nil)
	_ product.Writer     = (*Store)(nil)
	_ cart.Repository    = (*Store)(nil)
	_ order.Store        = (*Store)(nil)
)

type storedLine struct {
	cart.Line
	seq uint64
}

// Store is a goroutine-safe in-memory store.
type Store struct {
	mu       sync.Mutex
	now      func() time.Time
	seq      uint64
	products map[string]product.Product
	lines    map[string]storedLine
	orders   map[string]order.Order
	faults   map[string]error
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		now:      time.Now,
		products: make(map[string]product.Product),
		lines:    make(map[string]storedLine),
		orders:   make(map[string]order.Order),
		faults:   make(map[string]error),
	}
}

// FailOn makes the named transaction step return err. A nil err clears the
// fault.
func (s *Store) FailOn(step string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err == nil {
		delete(s.faults, step)
		return
	}
	s.faults[step] = err
}

// Upsert implements product.Writer.
func (s *Store) Upsert(_ context.Context, products ...product.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range products {
		if err := p.Validate(); err != nil {
			return errors.Wrapf(err, "product %q", p.ID)
		}
		for id, other := range s.products {
			if id != p.ID && other.Barcode == p.Barcode {
				return errors.Errorf("barcode %q already used by %q", p.Barcode, id)
			}
		}
		now := s.now()
		if old, ok := s.products[p.ID]; ok {
			p.CreatedAt = old.CreatedAt
		} else {
			p.CreatedAt = now
		}
		p.UpdatedAt = now
		s.products[p.ID] = p
	}
	return nil
}

// GetByID implements product.Repository.
func (s *Store) GetByID(_ context.Context, id string) (*product.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

// GetByBarcode implements product.Repository.
func (s *Store) GetByBarcode(_ context.Context, barcode string) (*product.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.products {
		if p.Barcode == barcode && p.Active {
			return &p, nil
		}
	}
	return nil, product.ErrNotFound
}

// ListActive implements product.Repository.
func (s *Store) ListActive(_ context.Context, query string) ([]product.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := strings.ToLower(strings.TrimSpace(query))
	var out []product.Product
	for _, p := range s.products {
		if !p.Active || !matches(p, q) {
			continue
		}
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b product.Product) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func matches(p product.Product, q string) bool {
	if q == "" {
		return true
	}
	for _, field := range []string{p.Name, p.Brand, p.Category, p.Barcode} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// Increment implements cart.Repository.
func (s *Store) Increment(_ context.Context, userID, productID string) (*cart.Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[productID]; !ok {
		return nil, errors.Errorf("product %q violates cart_lines foreign key", productID)
	}

	now := s.now()
	for id, l := range s.lines {
		if l.UserID == userID && l.ProductID == productID {
			l.Quantity++
			l.UpdatedAt = now
			s.lines[id] = l
			line := l.Line
			return &line, nil
		}
	}

	s.seq++
	l := storedLine{
		Line: cart.Line{
			ID:        uuid.New().String(),
			UserID:    userID,
			ProductID: productID,
			Quantity:  1,
			CreatedAt: now,
			UpdatedAt: now,
		},
		seq: s.seq,
	}
	s.lines[l.ID] = l
	line := l.Line
	return &line, nil
}

// SetQuantity implements cart.Repository.
func (s *Store) SetQuantity(_ context.Context, userID, lineID string, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n <= 0 {
		return errors.Errorf("quantity %d violates cart_lines check", n)
	}
	l, ok := s.lines[lineID]
	if !ok || l.UserID != userID {
		return cart.ErrLineNotFound
	}
	l.Quantity = n
	l.UpdatedAt = s.now()
	s.lines[lineID] = l
	return nil
}

// Delete implements cart.Repository.
func (s *Store) Delete(_ context.Context, userID, lineID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l, ok := s.lines[lineID]; ok && l.UserID == userID {
		delete(s.lines, lineID)
	}
	return nil
}

// Items implements cart.Repository.
func (s *Store) Items(_ context.Context, userID string) ([]cart.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.itemsLocked(userID), nil
}

func (s *Store) itemsLocked(userID string) []cart.Item {
	var lines []storedLine
	for _, l := range s.lines {
		if l.UserID == userID {
			lines = append(lines, l)
		}
	}
	slices.SortFunc(lines, func(a, b storedLine) int {
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		}
		return 0
	})

	items := make([]cart.Item, 0, len(lines))
	for _, l := range lines {
		items = append(items, cart.Item{Line: l.Line, Product: s.products[l.ProductID]})
	}
	return items
}

// Clear implements cart.Repository.
func (s *Store) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearLocked(userID)
	return nil
}

func (s *Store) clearLocked(userID string) {
	for id, l := range s.lines {
		if l.UserID == userID {
			delete(s.lines, id)
		}
	}
}

// InTx implements order.Store.
func (s *Store) InTx(ctx context.Context, fn func(tx order.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{store: s}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "commit")
	}

	for _, o := range tx.orders {
		s.orders[o.ID] = o
	}
	for _, userID := range tx.cleared {
		s.clearLocked(userID)
	}
	return nil
}

// Get implements order.Store.
func (s *Store) Get(_ context.Context, userID, orderID string) (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok || o.UserID != userID {
		return nil, order.ErrNotFound
	}
	o.Lines = slices.Clone(o.Lines)
	return &o, nil
}

// ListByUser implements order.Store.
func (s *Store) ListByUser(_ context.Context, userID string, limit int) ([]order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []order.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			o.Lines = nil
			out = append(out, o)
		}
	}
	slices.SortFunc(out, func(a, b order.Order) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// OrderCount returns the number of committed orders.
func (s *Store) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.orders)
}

// memTx runs with the store lock held.
type memTx struct {
	store   *Store
	orders  []order.Order
	cleared []string
}

func (t *memTx) fault(step string) error {
	return t.store.faults[step]
}

func (t *memTx) LockCart(_ context.Context, userID string) ([]cart.Item, error) {
	if err := t.fault(FaultLockCart); err != nil {
		return nil, err
	}
	return t.store.itemsLocked(userID), nil
}

func (t *memTx) InsertOrder(_ context.Context, o *order.Order) error {
	if err := t.fault(FaultInsertOrder); err != nil {
		return err
	}
	if _, ok := t.store.orders[o.ID]; ok {
		return errors.Errorf("order %q already exists", o.ID)
	}
	stored := *o
	stored.Lines = nil
	t.orders = append(t.orders, stored)
	return nil
}

func (t *memTx) InsertLines(_ context.Context, lines []order.Line) error {
	if err := t.fault(FaultInsertLines); err != nil {
		return err
	}
	for _, l := range lines {
		idx := slices.IndexFunc(t.orders, func(o order.Order) bool { return o.ID == l.OrderID })
		if idx < 0 {
			return errors.Errorf("order line %q references unknown order %q", l.ID, l.OrderID)
		}
		t.orders[idx].Lines = append(t.orders[idx].Lines, l)
	}
	return nil
}

func (t *memTx) ClearCart(_ context.Context, userID string) error {
	if err := t.fault(FaultClearCart); err != nil {
		return err
	}
	t.cleared = append(t.cleared, userID)
	return nil
}
