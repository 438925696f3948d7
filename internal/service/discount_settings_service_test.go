package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/sma-adp-billing/internal/dto"
	"github.com/noah-isme/sma-adp-billing/internal/models"
	appErrors "github.com/noah-isme/sma-adp-billing/pkg/errors"
)

type configurationRepoStub struct {
	items    map[string]models.Configuration
	err      error
	listHits int
}

func (s *configurationRepoStub) ListByKeys(ctx context.Context, keys []string) ([]models.Configuration, error) {
	s.listHits++
	if s.err != nil {
		return nil, s.err
	}
	result := []models.Configuration{}
	for _, key := range keys {
		if cfg, ok := s.items[key]; ok {
			result = append(result, cfg)
		}
	}
	return result, nil
}

func (s *configurationRepoStub) BulkUpsert(ctx context.Context, cfgs []models.Configuration) error {
	if s.err != nil {
		return s.err
	}
	if s.items == nil {
		s.items = make(map[string]models.Configuration)
	}
	for _, cfg := range cfgs {
		s.items[cfg.Key] = cfg
	}
	return nil
}

type memoryCacheRepo struct {
	values map[string]interface{}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	value, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	settings, ok := value.(*models.GlobalDiscountSettings)
	if !ok {
		return errors.New("unexpected cached type")
	}
	*dest.(*models.GlobalDiscountSettings) = *settings
	return nil
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.values[key] = value
	return nil
}

func (m *memoryCacheRepo) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

type brokenSettingsCache struct {
	err error
}

func (c brokenSettingsCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	return false, nil
}

func (c brokenSettingsCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.err
}

func (c brokenSettingsCache) Invalidate(ctx context.Context, keys ...string) error {
	return c.err
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
}

func TestDiscountSettingsServiceGet(t *testing.T) {
	updated := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
	repo := &configurationRepoStub{items: map[string]models.Configuration{
		models.ConfigKeyScholarshipDeadline: {Key: models.ConfigKeyScholarshipDeadline, Value: "2025-10-31", Type: models.ConfigurationTypeDate, UpdatedAt: updated},
		models.ConfigKeyReductionPercentage: {Key: models.ConfigKeyReductionPercentage, Value: "10", Type: models.ConfigurationTypeDecimal, UpdatedAt: updated.Add(time.Hour)},
	}}
	svc := NewDiscountSettingsService(repo, nil, nil, nil, DiscountSettingsServiceConfig{})

	settings, err := svc.Get(context.Background())
	require.NoError(t, err)
	require.True(t, settings.Configured())
	assert.Equal(t, "2025-10-31", settings.ScholarshipDeadline.Format(models.DateLayout))
	assert.True(t, settings.ReductionPercentage.Equal(dec("10")))
	assert.Equal(t, updated.Add(time.Hour), *settings.UpdatedAt)
}

func TestDiscountSettingsServiceGetIgnoresMalformedValues(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	repo := &configurationRepoStub{items: map[string]models.Configuration{
		models.ConfigKeyScholarshipDeadline: {Key: models.ConfigKeyScholarshipDeadline, Value: "31/10/2025"},
		models.ConfigKeyReductionPercentage: {Key: models.ConfigKeyReductionPercentage, Value: "140"},
	}}
	svc := NewDiscountSettingsService(repo, nil, nil, zap.New(core), DiscountSettingsServiceConfig{})

	settings, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, settings.Configured())
	assert.Nil(t, settings.ScholarshipDeadline)
	assert.True(t, settings.ReductionPercentage.IsZero())
	assert.Equal(t, 2, logs.Len())
}

func TestDiscountSettingsServiceGetEmpty(t *testing.T) {
	svc := NewDiscountSettingsService(&configurationRepoStub{}, nil, nil, nil, DiscountSettingsServiceConfig{})
	settings, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, settings.Configured())
}

func TestDiscountSettingsServiceGetError(t *testing.T) {
	svc := NewDiscountSettingsService(&configurationRepoStub{err: errors.New("db down")}, nil, nil, nil, DiscountSettingsServiceConfig{})
	_, err := svc.Get(context.Background())
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}

func TestDiscountSettingsServiceCachesAndInvalidates(t *testing.T) {
	repo := &configurationRepoStub{items: map[string]models.Configuration{
		models.ConfigKeyReductionPercentage: {Key: models.ConfigKeyReductionPercentage, Value: "10"},
	}}
	cacheRepo := &memoryCacheRepo{values: map[string]interface{}{}}
	cache := NewCacheService(cacheRepo, NewMetricsService(), time.Minute, zap.NewNop(), true)
	svc := NewDiscountSettingsService(repo, cache, nil, nil, DiscountSettingsServiceConfig{CacheTTL: time.Minute})

	_, err := svc.Get(context.Background())
	require.NoError(t, err)
	_, err = svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listHits)
	assert.Contains(t, cacheRepo.values, discountSettingsCacheKey)

	_, err = svc.Update(context.Background(), dto.UpdateDiscountSettingsRequest{ScholarshipDeadline: "2025-10-31", ReductionPercentage: "15"}, adminClaims())
	require.NoError(t, err)
	assert.NotContains(t, cacheRepo.values, discountSettingsCacheKey)

	settings, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, repo.listHits)
	assert.True(t, settings.ReductionPercentage.Equal(dec("15")))
}

func TestDiscountSettingsServiceUpdate(t *testing.T) {
	repo := &configurationRepoStub{}
	svc := NewDiscountSettingsService(repo, nil, nil, nil, DiscountSettingsServiceConfig{})

	settings, err := svc.Update(context.Background(), dto.UpdateDiscountSettingsRequest{ScholarshipDeadline: "2025-10-31", ReductionPercentage: "12.50"}, adminClaims())
	require.NoError(t, err)
	assert.True(t, settings.Configured())
	require.NotNil(t, settings.UpdatedAt)

	stored := repo.items[models.ConfigKeyReductionPercentage]
	assert.Equal(t, "12.5", stored.Value)
	assert.Equal(t, models.ConfigurationTypeDecimal, stored.Type)
	require.NotNil(t, stored.UpdatedBy)
	assert.Equal(t, "admin-1", *stored.UpdatedBy)
	assert.Equal(t, "2025-10-31", repo.items[models.ConfigKeyScholarshipDeadline].Value)
}

func TestDiscountSettingsServiceUpdateClears(t *testing.T) {
	repo := &configurationRepoStub{}
	svc := NewDiscountSettingsService(repo, nil, nil, nil, DiscountSettingsServiceConfig{})

	settings, err := svc.Update(context.Background(), dto.UpdateDiscountSettingsRequest{}, adminClaims())
	require.NoError(t, err)
	assert.False(t, settings.Configured())
	assert.Equal(t, "", repo.items[models.ConfigKeyScholarshipDeadline].Value)
}

func TestDiscountSettingsServiceUpdateValidation(t *testing.T) {
	svc := NewDiscountSettingsService(&configurationRepoStub{}, nil, nil, nil, DiscountSettingsServiceConfig{})

	cases := []dto.UpdateDiscountSettingsRequest{
		{ScholarshipDeadline: "31-10-2025"},
		{ReductionPercentage: "abc"},
		{ReductionPercentage: "101"},
		{ReductionPercentage: "-1"},
	}
	for _, req := range cases {
		_, err := svc.Update(context.Background(), req, adminClaims())
		assert.ErrorIs(t, err, appErrors.ErrValidation, "%+v", req)
	}

	_, err := svc.Update(context.Background(), dto.UpdateDiscountSettingsRequest{ReductionPercentage: "10"}, nil)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestDiscountSettingsServiceLogsCacheFailures(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	repo := &configurationRepoStub{}
	cache := brokenSettingsCache{err: errors.New("redis: connection refused")}
	svc := NewDiscountSettingsService(repo, cache, nil, zap.New(core), DiscountSettingsServiceConfig{CacheTTL: time.Minute})

	settings, err := svc.Update(context.Background(), dto.UpdateDiscountSettingsRequest{ScholarshipDeadline: "2025-10-31", ReductionPercentage: "10"}, adminClaims())
	require.NoError(t, err)
	assert.True(t, settings.Configured())
	assert.Equal(t, "10", repo.items[models.ConfigKeyReductionPercentage].Value)

	invalidations := logs.FilterMessage("failed to invalidate cached discount settings")
	require.Equal(t, 1, invalidations.Len())
	assert.Equal(t, discountSettingsCacheKey, invalidations.All()[0].ContextMap()["key"])

	_, err = svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("failed to cache discount settings").Len())
}
