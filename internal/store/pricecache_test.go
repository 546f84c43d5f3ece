package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appliance-billing-backend/internal/apperr"
	"appliance-billing-backend/internal/model"
)

func names(list []model.Appliance) []string {
	out := make([]string, len(list))
	for i, a := range list {
		out[i] = a.Name
	}
	return out
}

func TestPriceCache(t *testing.T) {
	testDB, base := newSQLiteStore(t)
	s := WithPriceCache(base, time.Minute)
	ctx := context.Background()

	require.NoError(t, testDB.Create(&model.Appliance{Name: "washer", PricePerUnit: 50}).Error)

	list, err := s.ListAppliances(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"washer"}, names(list))

	t.Run("Direct database writes are not seen until invalidation", func(t *testing.T) {
		require.NoError(t, testDB.Create(&model.Appliance{Name: "dryer", PricePerUnit: 30}).Error)
		list, err := s.ListAppliances(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"washer"}, names(list))
	})

	t.Run("Callers cannot modify the cached list", func(t *testing.T) {
		list, err := s.ListAppliances(ctx)
		require.NoError(t, err)
		list[0].PricePerUnit = 1

		again, err := s.ListAppliances(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(50), again[0].PricePerUnit)
	})

	t.Run("A price change drops the cached list", func(t *testing.T) {
		require.NoError(t, s.SetAppliancePrice(ctx, "washer", 65))

		list, err := s.ListAppliances(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, int64(65), list[0].PricePerUnit)
		assert.Equal(t, "dryer", list[1].Name)
	})

	t.Run("Unknown appliance is not found", func(t *testing.T) {
		err := s.SetAppliancePrice(ctx, "oven", 10)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}
