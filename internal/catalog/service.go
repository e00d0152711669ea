package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pedidos/internal/obs"
	"github.com/noah-isme/backend-pedidos/internal/pricing"
)

// Service orchestrates catalog queries, search, and caching on top of the store.
type Service struct {
	store  *Store
	cache  *Cache
	logger zerolog.Logger
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store  *Store
	Cache  *Cache
	Logger zerolog.Logger
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("catalog: store is required")
	}
	return &Service{store: cfg.Store, cache: cfg.Cache, logger: cfg.Logger}, nil
}

// Store exposes the underlying catalog store for collaborators that need
// direct tier access.
func (s *Service) Store() *Store {
	return s.store
}

// Clients returns the selectable clients, serving from cache when possible.
func (s *Service) Clients(ctx context.Context) ([]Client, error) {
	var cached []Client
	if hit, err := s.cache.GetJSON(ctx, "clients", &cached); err != nil {
		s.logger.Warn().Err(err).Msg("catalog cache read failed")
	} else if hit {
		return cached, nil
	}
	clients := s.store.Clients()
	if err := s.cache.SetJSON(ctx, "clients", clients); err != nil {
		s.logger.Warn().Err(err).Msg("catalog cache write failed")
	}
	return clients, nil
}

// Search returns the products of a client's catalog matching the code and
// name queries, serving from cache when possible.
func (s *Service) Search(ctx context.Context, clientKey, codeQuery, nameQuery string) ([]Product, error) {
	key := fmt.Sprintf("products:%s:%s:%s", clientKey, strings.ToLower(codeQuery), strings.ToLower(nameQuery))
	var cached []Product
	if hit, err := s.cache.GetJSON(ctx, key, &cached); err != nil {
		s.logger.Warn().Err(err).Msg("catalog cache read failed")
	} else if hit {
		return cached, nil
	}
	matches := Filter(s.forClient(clientKey), codeQuery, nameQuery)
	if err := s.cache.SetJSON(ctx, key, matches); err != nil {
		s.logger.Warn().Err(err).Msg("catalog cache write failed")
	}
	return matches, nil
}

// ResolvePrice resolves the unit price for a (ref, quantity) pair against the
// current tier table. A result of 0 means no price is available.
func (s *Service) ResolvePrice(ref string, quantity int) pricing.Money {
	price := pricing.Resolve(s.store.TiersFor(ref), quantity)
	if price == 0 {
		obs.ObservePriceLookup("no_price")
	} else {
		obs.ObservePriceLookup("ok")
	}
	return price
}

// Invalidate drops cached listings after the catalog contents changed.
func (s *Service) Invalidate(ctx context.Context) {
	if err := s.cache.Flush(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("catalog cache flush failed")
	}
}

func (s *Service) forClient(clientKey string) []Product {
	products := s.store.Products()
	if strings.TrimSpace(clientKey) == "" {
		return products
	}
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if p.ClientKey == clientKey {
			out = append(out, p)
		}
	}
	return out
}

// Filter narrows products to those matching the code and name queries. The
// code query matches the ref; the name query matches name or category. Both
// are case-insensitive substring matches and an empty query matches
// everything. Pure function, free of any UI state.
func Filter(products []Product, codeQuery, nameQuery string) []Product {
	code := strings.ToLower(strings.TrimSpace(codeQuery))
	name := strings.ToLower(strings.TrimSpace(nameQuery))
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if code != "" && !strings.Contains(strings.ToLower(p.Ref), code) {
			continue
		}
		if name != "" {
			matchesName := strings.Contains(strings.ToLower(p.Name), name)
			matchesCategory := strings.Contains(strings.ToLower(p.Category), name)
			if !matchesName && !matchesCategory {
				continue
			}
		}
		out = append(out, p)
	}
	return out
}
