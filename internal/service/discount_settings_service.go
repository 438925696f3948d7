package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-billing/internal/dto"
	"github.com/noah-isme/sma-adp-billing/internal/models"
	appErrors "github.com/noah-isme/sma-adp-billing/pkg/errors"
	"github.com/noah-isme/sma-adp-billing/pkg/money"
)

const discountSettingsCacheKey = "billing:discount_settings"

var discountSettingKeys = []string{models.ConfigKeyScholarshipDeadline, models.ConfigKeyReductionPercentage}

type discountSettingsRepository interface {
	ListByKeys(ctx context.Context, keys []string) ([]models.Configuration, error)
	BulkUpsert(ctx context.Context, cfgs []models.Configuration) error
}

type settingsCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

// DiscountSettingsServiceConfig tunes runtime behaviour.
type DiscountSettingsServiceConfig struct {
	CacheTTL time.Duration
}

// DiscountSettingsService reads and updates the school-wide global discount settings.
type DiscountSettingsService struct {
	repo      discountSettingsRepository
	cache     settingsCache
	validator *validator.Validate
	logger    *zap.Logger
	ttl       time.Duration
}

// NewDiscountSettingsService constructs a DiscountSettingsService.
func NewDiscountSettingsService(repo discountSettingsRepository, cache settingsCache, validate *validator.Validate, logger *zap.Logger, cfg DiscountSettingsServiceConfig) *DiscountSettingsService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiscountSettingsService{repo: repo, cache: cache, validator: validate, logger: logger, ttl: cfg.CacheTTL}
}

// Get returns the current settings. Unset or unreadable values leave the discount disabled.
func (s *DiscountSettingsService) Get(ctx context.Context) (*models.GlobalDiscountSettings, error) {
	if s.cache != nil {
		var cached models.GlobalDiscountSettings
		if hit, err := s.cache.Get(ctx, discountSettingsCacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	rows, err := s.repo.ListByKeys(ctx, discountSettingKeys)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load discount settings")
	}
	settings := s.fromRows(rows)

	if s.cache != nil {
		if err := s.cache.Set(ctx, discountSettingsCacheKey, settings, s.ttl); err != nil {
			s.logger.Warn("failed to cache discount settings", zap.Error(err))
		}
	}
	return settings, nil
}

// Update replaces both settings. Clearing either one disables the global discount.
func (s *DiscountSettingsService) Update(ctx context.Context, req dto.UpdateDiscountSettingsRequest, actor *models.JWTClaims) (*models.GlobalDiscountSettings, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid discount settings payload")
	}
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	settings := &models.GlobalDiscountSettings{ReductionPercentage: decimal.Zero}
	deadlineValue := strings.TrimSpace(req.ScholarshipDeadline)
	if deadlineValue != "" {
		deadline, err := time.Parse(models.DateLayout, deadlineValue)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "scholarship_deadline must be a YYYY-MM-DD date")
		}
		settings.ScholarshipDeadline = &deadline
		deadlineValue = deadline.Format(models.DateLayout)
	}

	pctValue := strings.TrimSpace(req.ReductionPercentage)
	if pctValue != "" {
		pct, err := decimal.NewFromString(pctValue)
		if err != nil || !money.ValidPercentage(pct) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "reduction_percentage must be between 0 and 100")
		}
		settings.ReductionPercentage = pct
		pctValue = pct.String()
	}

	updatedBy := userIDPtr(actor)
	err := s.repo.BulkUpsert(ctx, []models.Configuration{
		{
			Key:         models.ConfigKeyScholarshipDeadline,
			Value:       deadlineValue,
			Type:        models.ConfigurationTypeDate,
			Description: strPtr("Last day a full early payment earns the global discount"),
			UpdatedBy:   updatedBy,
		},
		{
			Key:         models.ConfigKeyReductionPercentage,
			Value:       pctValue,
			Type:        models.ConfigurationTypeDecimal,
			Description: strPtr("Global discount percentage (0-100)"),
			UpdatedBy:   updatedBy,
		},
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update discount settings")
	}
	now := time.Now().UTC()
	settings.UpdatedAt = &now

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, discountSettingsCacheKey); err != nil {
			// Stale settings may be served until the cache TTL expires.
			s.logger.Warn("failed to invalidate cached discount settings",
				zap.String("key", discountSettingsCacheKey),
				zap.Duration("ttl", s.ttl),
				zap.Error(err),
			)
		}
	}
	s.logger.Info("discount settings updated",
		zap.String("actor_id", actor.UserID),
		zap.String("deadline", deadlineValue),
		zap.String("reduction_percentage", pctValue),
	)
	return settings, nil
}

func (s *DiscountSettingsService) fromRows(rows []models.Configuration) *models.GlobalDiscountSettings {
	settings := &models.GlobalDiscountSettings{ReductionPercentage: decimal.Zero}
	for _, row := range rows {
		if settings.UpdatedAt == nil || row.UpdatedAt.After(*settings.UpdatedAt) {
			updatedAt := row.UpdatedAt
			settings.UpdatedAt = &updatedAt
		}
		value := strings.TrimSpace(row.Value)
		if value == "" {
			continue
		}
		switch row.Key {
		case models.ConfigKeyScholarshipDeadline:
			deadline, err := time.Parse(models.DateLayout, value)
			if err != nil {
				s.logger.Warn("ignoring malformed scholarship deadline", zap.String("value", value), zap.Error(err))
				continue
			}
			settings.ScholarshipDeadline = &deadline
		case models.ConfigKeyReductionPercentage:
			pct, err := decimal.NewFromString(value)
			if err != nil || !money.ValidPercentage(pct) {
				s.logger.Warn("ignoring invalid reduction percentage", zap.String("value", value))
				continue
			}
			settings.ReductionPercentage = pct
		}
	}
	return settings
}

func userIDPtr(actor *models.JWTClaims) *string {
	if actor == nil || actor.UserID == "" {
		return nil
	}
	return &actor.UserID
}

func strPtr(value string) *string {
	if value == "" {
		return nil
	}
	result := value
	return &result
}
