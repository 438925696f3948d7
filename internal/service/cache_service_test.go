package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-billing/internal/models"
)

type failingCacheRepo struct{}

func (failingCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	return errors.New("connection refused")
}

func (failingCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return errors.New("connection refused")
}

func (failingCacheRepo) Delete(ctx context.Context, keys ...string) error {
	return errors.New("connection refused")
}

func TestCacheServiceDisabled(t *testing.T) {
	svc := NewCacheService(&memoryCacheRepo{values: map[string]interface{}{}}, nil, 0, zap.NewNop(), false)
	assert.False(t, svc.Enabled())

	hit, err := svc.Get(context.Background(), "k", &models.GlobalDiscountSettings{})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, svc.Set(context.Background(), "k", &models.GlobalDiscountSettings{}, 0))
	assert.NoError(t, svc.Invalidate(context.Background(), "k"))

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
}

func TestCacheServiceHitAndMiss(t *testing.T) {
	repo := &memoryCacheRepo{values: map[string]interface{}{}}
	svc := NewCacheService(repo, NewMetricsService(), time.Minute, zap.NewNop(), true)

	var dest models.GlobalDiscountSettings
	hit, err := svc.Get(context.Background(), "k", &dest)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(context.Background(), "k", &models.GlobalDiscountSettings{ReductionPercentage: dec("5")}, 0))
	hit, err = svc.Get(context.Background(), "k", &dest)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.True(t, dest.ReductionPercentage.Equal(dec("5")))
}

func TestCacheServiceSurfacesBackendErrors(t *testing.T) {
	svc := NewCacheService(failingCacheRepo{}, nil, time.Minute, zap.NewNop(), true)

	hit, err := svc.Get(context.Background(), "k", &models.GlobalDiscountSettings{})
	assert.Error(t, err)
	assert.False(t, hit)
	assert.Error(t, svc.Set(context.Background(), "k", 1, 0))
	assert.Error(t, svc.Invalidate(context.Background(), "k"))
}
