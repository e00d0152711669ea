package catalog

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/noah-isme/backend-pedidos/internal/pricing"
)

// ErrNotFound indicates the requested product could not be located.
var ErrNotFound = errors.New("product not found")

// ErrDuplicateRef is returned when creating a product whose ref already exists.
var ErrDuplicateRef = errors.New("duplicate product reference")

// ErrInvalidTier is returned when a tier fails validation.
var ErrInvalidTier = errors.New("invalid price tier")

// ErrInvalidProduct is returned when a product payload fails validation.
var ErrInvalidProduct = errors.New("invalid product")

// Product is a catalog entry keyed by its unique reference code.
type Product struct {
	Ref        string `json:"ref"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	ClientKey  string `json:"clientKey"`
	ClientName string `json:"clientName"`
}

// Client identifies a buyer whose catalog subset can be ordered from.
type Client struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Store owns the in-memory catalog: deduplicated products in first-seen order
// and a per-ref tier table kept sorted by minimum quantity. The whole table is
// swapped wholesale on re-ingest; readers never observe a partial update for
// any ref.
type Store struct {
	mu       sync.RWMutex
	products []Product
	index    map[string]int
	tiers    map[string][]pricing.Tier
	loaded   bool
}

// NewStore constructs an empty catalog store.
func NewStore() *Store {
	return &Store{
		index: map[string]int{},
		tiers: map[string][]pricing.Tier{},
	}
}

// Replace swaps the catalog contents atomically and marks the store loaded.
// Tier lists are normalised on the way in so lookups read pre-sorted data.
func (s *Store) Replace(products []Product, tiers map[string][]pricing.Tier) {
	index := make(map[string]int, len(products))
	kept := make([]Product, 0, len(products))
	for _, p := range products {
		if _, ok := index[p.Ref]; ok {
			continue
		}
		index[p.Ref] = len(kept)
		kept = append(kept, p)
	}
	sorted := make(map[string][]pricing.Tier, len(tiers))
	for ref, list := range tiers {
		if _, ok := index[ref]; !ok {
			continue
		}
		sorted[ref] = pricing.Normalize(list)
	}

	s.mu.Lock()
	s.products = kept
	s.index = index
	s.tiers = sorted
	s.loaded = true
	s.mu.Unlock()
}

// Loaded reports whether an ingestion run has completed.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Products returns a copy of all products in first-seen order.
func (s *Store) Products() []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Product, len(s.products))
	copy(out, s.products)
	return out
}

// Product looks up a single product by ref.
func (s *Store) Product(ref string) (Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[ref]
	if !ok {
		return Product{}, false
	}
	return s.products[i], true
}

// TiersFor returns a copy of the sorted tier list for ref, or nil when the
// product has no tiers.
func (s *Store) TiersFor(ref string) []pricing.Tier {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list, ok := s.tiers[ref]
	if !ok {
		return nil
	}
	out := make([]pricing.Tier, len(list))
	copy(out, list)
	return out
}

// Clients returns the distinct, non-empty client keys across all products
// paired with the display name of the first product carrying the key.
func (s *Store) Clients() []Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[string]struct{}{}
	out := make([]Client, 0)
	for _, p := range s.products {
		key := strings.TrimSpace(p.ClientKey)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, Client{Key: key, Name: p.ClientName})
	}
	return out
}

// Client resolves a client key to its display record.
func (s *Store) Client(key string) (Client, bool) {
	for _, c := range s.Clients() {
		if c.Key == key {
			return c, true
		}
	}
	return Client{}, false
}

// Add creates a new product with its tier list. The ref must be unused and
// every tier must carry a positive price.
func (s *Store) Add(p Product, tiers []pricing.Tier) error {
	if err := validateProduct(p); err != nil {
		return err
	}
	cleaned, err := validateTiers(tiers)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[p.Ref]; ok {
		return fmt.Errorf("%s: %w", p.Ref, ErrDuplicateRef)
	}
	if p.Category == "" {
		p.Category = defaultCategory
	}
	s.index[p.Ref] = len(s.products)
	s.products = append(s.products, p)
	s.tiers[p.Ref] = pricing.Normalize(cleaned)
	return nil
}

// Update replaces the stored fields and the whole tier list for ref. The tier
// swap is atomic from a reader's point of view.
func (s *Store) Update(ref string, p Product, tiers []pricing.Tier) error {
	p.Ref = ref
	if err := validateProduct(p); err != nil {
		return err
	}
	cleaned, err := validateTiers(tiers)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[ref]
	if !ok {
		return fmt.Errorf("%s: %w", ref, ErrNotFound)
	}
	if p.Category == "" {
		p.Category = defaultCategory
	}
	s.products[i] = p
	s.tiers[ref] = pricing.Normalize(cleaned)
	return nil
}

// Remove deletes a product and its tiers.
func (s *Store) Remove(ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[ref]
	if !ok {
		return fmt.Errorf("%s: %w", ref, ErrNotFound)
	}
	s.products = append(s.products[:i], s.products[i+1:]...)
	delete(s.tiers, ref)
	delete(s.index, ref)
	for j := i; j < len(s.products); j++ {
		s.index[s.products[j].Ref] = j
	}
	return nil
}

func validateProduct(p Product) error {
	if strings.TrimSpace(p.Ref) == "" {
		return fmt.Errorf("ref is required: %w", ErrInvalidProduct)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("name is required: %w", ErrInvalidProduct)
	}
	return nil
}

// validateTiers enforces the same invariants manual edits share with
// ingestion: at least one tier, positive prices, non-negative thresholds.
// Exact duplicates collapse to a single tier.
func validateTiers(tiers []pricing.Tier) ([]pricing.Tier, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("at least one tier is required: %w", ErrInvalidTier)
	}
	seen := map[pricing.Tier]struct{}{}
	out := make([]pricing.Tier, 0, len(tiers))
	for _, tier := range tiers {
		if tier.UnitPrice <= 0 {
			return nil, fmt.Errorf("unit price must be positive: %w", ErrInvalidTier)
		}
		if tier.MinQuantity < 0 {
			return nil, fmt.Errorf("minimum quantity cannot be negative: %w", ErrInvalidTier)
		}
		if _, ok := seen[tier]; ok {
			continue
		}
		seen[tier] = struct{}{}
		out = append(out, tier)
	}
	return out, nil
}
