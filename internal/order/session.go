package order

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-pedidos/internal/catalog"
	"github.com/noah-isme/backend-pedidos/internal/obs"
	"github.com/noah-isme/backend-pedidos/internal/pricing"
)

// ErrNoClient is returned when a line operation runs before a client is selected.
var ErrNoClient = errors.New("no client selected")

// ErrUnknownClient is returned when the client key matches no catalog entry.
var ErrUnknownClient = errors.New("unknown client")

// ErrUnknownProduct is returned when the ref is not in the selected client's catalog.
var ErrUnknownProduct = errors.New("product not in client catalog")

// ErrNoPrice is returned when no price can be resolved for the requested quantity.
var ErrNoPrice = errors.New("no price for this quantity")

// ErrInvalidQuantity is returned for non-positive quantities.
var ErrInvalidQuantity = errors.New("quantity must be positive")

// ErrLineNotFound is returned when a line index is out of range.
var ErrLineNotFound = errors.New("line item not found")

// ErrEmptyOrder is returned when submitting a session without line items.
var ErrEmptyOrder = errors.New("order has no line items")

// State identifies where an order-entry session is in its lifecycle.
type State string

// Session lifecycle states. Selecting a client always clears existing lines
// so line items belong to exactly one client context.
const (
	StateNoClient       State = "no_client_selected"
	StateClientSelected State = "client_selected"
	StateLinesPresent   State = "line_items_present"
)

// LineItem is one row of an in-progress order.
type LineItem struct {
	Ref       string        `json:"ref"`
	Name      string        `json:"name"`
	Quantity  int           `json:"quantity"`
	UnitPrice pricing.Money `json:"unitPrice"`
	LineTotal pricing.Money `json:"lineTotal"`
}

// Catalog is the read surface the order session depends on.
type Catalog interface {
	Product(ref string) (catalog.Product, bool)
	TiersFor(ref string) []pricing.Tier
	Client(key string) (catalog.Client, bool)
}

// Session holds one in-progress order. All mutation goes through Service.
type Session struct {
	ID uuid.UUID

	mu     sync.Mutex
	state  State
	client catalog.Client
	lines  []LineItem
	total  pricing.Money
}

// Snapshot is a read-only view of a session.
type Snapshot struct {
	ID     uuid.UUID      `json:"id"`
	State  State          `json:"state"`
	Client catalog.Client `json:"client"`
	Lines  []LineItem     `json:"lines"`
	Total  pricing.Money  `json:"total"`
}

// Snapshot returns a copy of the session's current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := make([]LineItem, len(s.lines))
	copy(lines, s.lines)
	return Snapshot{ID: s.ID, State: s.state, Client: s.client, Lines: lines, Total: s.total}
}

// Service encapsulates order-entry domain operations.
type Service struct {
	Catalog Catalog
	Now     func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// SelectClient moves the session into the client's context. Any existing
// lines are cleared; changing the client never carries items across.
func (s *Service) SelectClient(sess *Session, key string) error {
	if s == nil || s.Catalog == nil {
		return errors.New("order service not configured")
	}
	client, ok := s.Catalog.Client(key)
	if !ok {
		return ErrUnknownClient
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.client = client
	sess.lines = nil
	sess.total = 0
	sess.state = StateClientSelected
	return nil
}

// AddLine adds qty units of ref to the order. When a line for the same ref
// already exists the quantities merge and the unit price is re-resolved
// against the merged quantity, so crossing a tier threshold reprices the
// whole accumulated quantity.
func (s *Service) AddLine(sess *Session, ref string, qty int) (LineItem, error) {
	if qty < 1 {
		obs.ObserveLineOp("add", "invalid_quantity")
		return LineItem{}, ErrInvalidQuantity
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.state == StateNoClient {
		obs.ObserveLineOp("add", "no_client")
		return LineItem{}, ErrNoClient
	}
	product, ok := s.Catalog.Product(ref)
	if !ok || (product.ClientKey != "" && product.ClientKey != sess.client.Key) {
		obs.ObserveLineOp("add", "unknown_product")
		return LineItem{}, ErrUnknownProduct
	}
	tiers := s.Catalog.TiersFor(ref)

	for i := range sess.lines {
		if sess.lines[i].Ref != ref {
			continue
		}
		merged := sess.lines[i].Quantity + qty
		price := pricing.Resolve(tiers, merged)
		if price == 0 {
			obs.ObserveLineOp("add", "no_price")
			return LineItem{}, ErrNoPrice
		}
		sess.lines[i].Quantity = merged
		sess.lines[i].UnitPrice = price
		sess.lines[i].LineTotal = price * pricing.Money(merged)
		s.recompute(sess)
		obs.ObserveLineOp("add", "merged")
		return sess.lines[i], nil
	}

	price := pricing.Resolve(tiers, qty)
	if price == 0 {
		obs.ObserveLineOp("add", "no_price")
		return LineItem{}, ErrNoPrice
	}
	line := LineItem{
		Ref:       ref,
		Name:      product.Name,
		Quantity:  qty,
		UnitPrice: price,
		LineTotal: price * pricing.Money(qty),
	}
	sess.lines = append(sess.lines, line)
	s.recompute(sess)
	obs.ObserveLineOp("add", "ok")
	return line, nil
}

// UpdateQuantity changes the quantity of the line at index, re-resolving the
// unit price. The line is left unmodified when the quantity is invalid or no
// price resolves.
func (s *Service) UpdateQuantity(sess *Session, index, qty int) (LineItem, error) {
	if qty < 1 {
		obs.ObserveLineOp("update", "invalid_quantity")
		return LineItem{}, ErrInvalidQuantity
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if index < 0 || index >= len(sess.lines) {
		obs.ObserveLineOp("update", "not_found")
		return LineItem{}, ErrLineNotFound
	}
	price := pricing.Resolve(s.Catalog.TiersFor(sess.lines[index].Ref), qty)
	if price == 0 {
		obs.ObserveLineOp("update", "no_price")
		return LineItem{}, ErrNoPrice
	}
	sess.lines[index].Quantity = qty
	sess.lines[index].UnitPrice = price
	sess.lines[index].LineTotal = price * pricing.Money(qty)
	s.recompute(sess)
	obs.ObserveLineOp("update", "ok")
	return sess.lines[index], nil
}

// RemoveLine deletes the line at index.
func (s *Service) RemoveLine(sess *Session, index int) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if index < 0 || index >= len(sess.lines) {
		obs.ObserveLineOp("remove", "not_found")
		return ErrLineNotFound
	}
	sess.lines = append(sess.lines[:index], sess.lines[index+1:]...)
	s.recompute(sess)
	obs.ObserveLineOp("remove", "ok")
	return nil
}

// Reset returns the session to its initial state.
func (s *Service) Reset(sess *Session) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.client = catalog.Client{}
	sess.lines = nil
	sess.total = 0
	sess.state = StateNoClient
}

// Submit builds the order document from the current lines and resets the
// session. Every line's price already reflects its quantity under the tier
// table, so the document needs no re-derivation.
func (s *Service) Submit(sess *Session, deliveryDate time.Time, notes string) (Document, string, error) {
	sess.mu.Lock()
	if sess.state != StateLinesPresent {
		sess.mu.Unlock()
		return Document{}, "", ErrEmptyOrder
	}
	client := sess.client
	lines := make([]LineItem, len(sess.lines))
	copy(lines, sess.lines)
	sess.mu.Unlock()

	now := s.now()
	if deliveryDate.IsZero() {
		deliveryDate = now
	}
	doc, fileName, err := BuildDocument(client, lines, deliveryDate, notes, now)
	if err != nil {
		return Document{}, "", err
	}
	obs.ObserveDocumentEmitted()
	s.Reset(sess)
	return doc, fileName, nil
}

// recompute refreshes the cached total and the lifecycle state. Callers hold
// the session lock.
func (s *Service) recompute(sess *Session) {
	items := make([]pricing.Item, 0, len(sess.lines))
	for _, line := range sess.lines {
		items = append(items, pricing.Item{Qty: line.Quantity, UnitPrice: line.UnitPrice})
	}
	sess.total = pricing.Compute(items).TotalValue
	if len(sess.lines) > 0 {
		sess.state = StateLinesPresent
	} else if sess.client.Key != "" {
		sess.state = StateClientSelected
	} else {
		sess.state = StateNoClient
	}
}
