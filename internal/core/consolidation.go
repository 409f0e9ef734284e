package core

import (
	"context"
	"sync/atomic"
	"time"
)

// GroupCache caches derived group summaries. Implementations are best-effort:
// the grouper treats every cache failure as a miss. Cached data is never
// authoritative; groups are recomputed from the order store on every miss.
type GroupCache interface {
	GetGroups(ctx context.Context, key string) ([]GroupSummary, bool, error)
	SetGroups(ctx context.Context, key string, groups []GroupSummary, ttl time.Duration) error
}

const groupCacheKey = "consolidation:groups"
const groupCacheTTL = 2 * time.Minute

// ConsolidationService combines unshipped orders destined for the same
// fulfillment center and delivery window into shippable units.
type ConsolidationService interface {
	// Groups returns the current consolidation groups, cheapest-read first
	// from cache, recomputed from the store on miss.
	Groups(ctx context.Context, marketplace string) ([]GroupSummary, error)
	// GroupDetail re-derives one group and consolidates its items per
	// product. Returns a NotFoundError when no shippable order matches.
	GroupDetail(ctx context.Context, marketplace string, key GroupKey) (*GroupDetail, error)
	// CacheErrors reports how many best-effort cache calls have failed.
	CacheErrors() uint64
}

type consolidationService struct {
	store       OrderStore
	cache       GroupCache
	cacheErrors atomic.Uint64
}

// NewConsolidationService constructs the grouper. cache may be a noop.
func NewConsolidationService(store OrderStore, cache GroupCache) ConsolidationService {
	return &consolidationService{store: store, cache: cache}
}

// eligibleOrders loads every order that can still join a shipment.
func (s *consolidationService) eligibleOrders(ctx context.Context, marketplace string) ([]PurchaseOrder, error) {
	filter := OrderFilter{Marketplace: marketplace, Stat: StatActionRequired}
	orders, err := s.store.List(ctx, filter, Page{Limit: 1000})
	if err != nil {
		return nil, err
	}
	// Grouping consolidates line quantities, so each order needs its lines.
	full := make([]PurchaseOrder, 0, len(orders))
	for _, o := range orders {
		loaded, err := s.store.Get(ctx, o.OrderNumber)
		if err != nil {
			return nil, err
		}
		full = append(full, *loaded)
	}
	return full, nil
}

func (s *consolidationService) Groups(ctx context.Context, marketplace string) ([]GroupSummary, error) {
	cacheKey := groupCacheKey
	if marketplace != "" {
		cacheKey += ":" + marketplace
	}

	if s.cache != nil {
		if groups, ok, err := s.cache.GetGroups(ctx, cacheKey); err != nil {
			s.cacheErrors.Add(1)
		} else if ok {
			return groups, nil
		}
	}

	orders, err := s.eligibleOrders(ctx, marketplace)
	if err != nil {
		return nil, err
	}
	groups := BuildGroups(orders)

	if s.cache != nil {
		if err := s.cache.SetGroups(ctx, cacheKey, groups, groupCacheTTL); err != nil {
			s.cacheErrors.Add(1)
		}
	}
	return groups, nil
}

func (s *consolidationService) GroupDetail(ctx context.Context, marketplace string, key GroupKey) (*GroupDetail, error) {
	orders, err := s.eligibleOrders(ctx, marketplace)
	if err != nil {
		return nil, err
	}
	detail := BuildGroupDetail(orders, key)
	if detail == nil {
		return nil, &NotFoundError{Kind: "consolidation group", ID: key.String()}
	}
	return detail, nil
}

func (s *consolidationService) CacheErrors() uint64 {
	return s.cacheErrors.Load()
}
