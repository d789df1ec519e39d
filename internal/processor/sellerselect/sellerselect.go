// Package sellerselect implements C5: resolve an order's industry and
// requestor location, enumerate candidate sellers, rank them by
// distance, and write the result into OrderState.sellers exactly once.
// Grounded on original_source's seller_service.py.
package sellerselect

import (
	"context"
	"sort"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sony/gobreaker"

	"github.com/orderflow/coordinator/internal/domain/model"
)

// FallbackDistanceKM is substituted when the distance oracle fails;
// selection continues, never fatal, per spec.
const FallbackDistanceKM = 5.0

// OrderLocation is the order's resolved industry/location, looked up
// from the persistence facade.
type OrderLocation struct {
	Industry string
	Lat, Lon float64
}

// PersistenceResolver resolves the order's industry/location and the
// candidate sellers in that industry. A thin interface over the
// external persistence facade, substituted by a fake in tests.
type PersistenceResolver interface {
	ResolveOrderLocation(ctx context.Context, orderID string) (OrderLocation, error)
	CandidateSellers(ctx context.Context, industry string) ([]string, error)
}

// DistanceOracle resolves a seller's distance from an order location.
type DistanceOracle interface {
	Distance(ctx context.Context, sellerID string, loc OrderLocation) (float64, error)
}

// Selector is the C5 contract.
type Selector interface {
	Select(ctx context.Context, state *model.OrderState, maxSellers int) error
}

type selector struct {
	resolver PersistenceResolver
	oracle   DistanceOracle
	breaker  *gobreaker.CircuitBreaker
	cache    *lru.Cache[string, OrderLocation]
}

// New wires C5. locationCacheSize bounds the industry/location lookup
// cache (avoids re-resolving the same order's industry on retries).
func New(resolver PersistenceResolver, oracle DistanceOracle, locationCacheSize int) Selector {
	if locationCacheSize <= 0 {
		locationCacheSize = 256
	}
	cache, _ := lru.New[string, OrderLocation](locationCacheSize)

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "distance-oracle",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &selector{resolver: resolver, oracle: oracle, breaker: cb, cache: cache}
}

// Select implements steps 1-5 of spec 4.5. Resolution and candidate
// enumeration failures are fatal (propagated) since the caller, C7,
// aborts the stream on seller-selection failure; per-candidate distance
// failures are not (5km fallback).
func (s *selector) Select(ctx context.Context, state *model.OrderState, maxSellers int) error {
	if maxSellers <= 0 {
		maxSellers = 3
	}

	loc, ok := s.cache.Get(state.OrderID)
	if !ok {
		resolved, err := s.resolver.ResolveOrderLocation(ctx, state.OrderID)
		if err != nil {
			return model.ErrExternalUnavailable("resolve order location", err)
		}
		loc = resolved
		s.cache.Add(state.OrderID, loc)
	}

	candidates, err := s.resolver.CandidateSellers(ctx, loc.Industry)
	if err != nil {
		return model.ErrExternalUnavailable("enumerate candidate sellers", err)
	}

	entries := make([]model.SellerEntry, 0, len(candidates))
	for _, sellerID := range candidates {
		dist, err := s.distanceOf(ctx, sellerID, loc)
		if err != nil {
			dist = FallbackDistanceKM
		}
		entries = append(entries, model.SellerEntry{SellerID: sellerID, DistanceKM: dist})
	}

	// Stable sort: equal distances preserve enumeration order.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].DistanceKM < entries[j].DistanceKM
	})

	if len(entries) > maxSellers {
		entries = entries[:maxSellers]
	}

	state.SetSellers(entries)
	return nil
}

func (s *selector) distanceOf(ctx context.Context, sellerID string, loc OrderLocation) (float64, error) {
	result, err := s.breaker.Execute(func() (any, error) {
		return s.oracle.Distance(ctx, sellerID, loc)
	})
	if err != nil {
		return 0, err
	}
	return result.(float64), nil
}
