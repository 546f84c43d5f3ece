package store

import (
	"context"
	"slices"
	"time"

	"github.com/patrickmn/go-cache"

	"appliance-billing-backend/internal/model"
)

const priceListKey = "appliances"

// priceCachedStore keeps the appliance price list in memory. Every other
// call goes straight to the wrapped store.
type priceCachedStore struct {
	Store
	prices *cache.Cache
}

// WithPriceCache serves ListAppliances from memory for up to ttl. A price
// change made through the returned store drops the cached list at once.
func WithPriceCache(s Store, ttl time.Duration) Store {
	return &priceCachedStore{Store: s, prices: cache.New(ttl, 2*ttl)}
}

func (s *priceCachedStore) ListAppliances(ctx context.Context) ([]model.Appliance, error) {
	if cached, found := s.prices.Get(priceListKey); found {
		return slices.Clone(cached.([]model.Appliance)), nil
	}

	list, err := s.Store.ListAppliances(ctx)
	if err != nil {
		return nil, err
	}
	s.prices.Set(priceListKey, slices.Clone(list), cache.DefaultExpiration)
	return list, nil
}

func (s *priceCachedStore) SetAppliancePrice(ctx context.Context, name string, price int64) error {
	if err := s.Store.SetAppliancePrice(ctx, name, price); err != nil {
		return err
	}
	s.prices.Delete(priceListKey)
	return nil
}
