package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/remitbd/remit-core/internal/models"
	"github.com/remitbd/remit-core/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrNoActiveRate = errors.New("no active exchange rate for currency pair")

const defaultRateCacheTTL = 30 * time.Second

// RateService resolves effective-dated exchange rates. The rate in effect at
// submission time is captured on the request; approval never re-reads rates.
type RateService struct {
	store     QueryStore
	redis     redis.Cmdable
	cacheTTL  time.Duration
	validator *Validator
}

func NewRateService(store QueryStore, redisClient redis.Cmdable) *RateService {
	return &RateService{
		store:     store,
		redis:     redisClient,
		cacheTTL:  defaultRateCacheTTL,
		validator: NewValidator(),
	}
}

// WithCacheTTL overrides how long resolved rates stay in Redis.
func (s *RateService) WithCacheTTL(ttl time.Duration) *RateService {
	if ttl > 0 {
		s.cacheTTL = ttl
	}
	return s
}

// GetActiveRate returns the rate currently in effect for the pair,
// consulting the redis cache first.
func (s *RateService) GetActiveRate(ctx context.Context, fromCurrency, toCurrency string) (*models.ExchangeRate, error) {
	if err := s.validator.CurrencyPair(fromCurrency, toCurrency); err != nil {
		return nil, err
	}

	if s.redis != nil {
		val, err := s.redis.Get(ctx, rateCacheKey(fromCurrency, toCurrency)).Result()
		if err == nil {
			var rate models.ExchangeRate
			if json.Unmarshal([]byte(val), &rate) == nil {
				return &rate, nil
			}
		} else if err != redis.Nil {
			zap.L().Warn("redis rate lookup failed", zap.Error(err))
		}
	}

	rate, err := s.store.Queries().GetActiveRate(ctx, fromCurrency, toCurrency)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoActiveRate
		}
		return nil, fmt.Errorf("get active rate: %w", err)
	}

	s.cacheRate(ctx, rate)
	return rate, nil
}

type SetRateCmd struct {
	FromCurrency string          `validate:"required"`
	ToCurrency   string          `validate:"required"`
	Rate         decimal.Decimal `validate:"required"`
	EffectiveAt  *time.Time
}

// SetRate publishes a new effective-dated rate and invalidates the cache.
func (s *RateService) SetRate(ctx context.Context, cmd SetRateCmd) (*models.ExchangeRate, error) {
	if err := s.validator.CurrencyPair(cmd.FromCurrency, cmd.ToCurrency); err != nil {
		return nil, err
	}
	if !cmd.Rate.IsPositive() {
		return nil, newValidationError(CodeAmountNotNumeric, "rate", "rate must be positive")
	}

	var effectiveAt *string
	if cmd.EffectiveAt != nil {
		v := cmd.EffectiveAt.Format(time.RFC3339Nano)
		effectiveAt = &v
	}

	id := uuid.New()
	if err := s.store.Queries().InsertExchangeRate(ctx, repository.InsertExchangeRateParams{
		ID:           id,
		FromCurrency: cmd.FromCurrency,
		ToCurrency:   cmd.ToCurrency,
		Rate:         cmd.Rate,
		EffectiveAt:  effectiveAt,
	}); err != nil {
		return nil, err
	}

	s.invalidateRate(ctx, cmd.FromCurrency, cmd.ToCurrency)
	return s.store.Queries().GetExchangeRateByID(ctx, id)
}

func (s *RateService) ListRates(ctx context.Context, activeOnly bool) ([]models.ExchangeRate, error) {
	return s.store.Queries().ListExchangeRates(ctx, activeOnly)
}

// DeactivateRate soft-deletes a rate row.
func (s *RateService) DeactivateRate(ctx context.Context, id uuid.UUID) error {
	rate, err := s.store.Queries().GetExchangeRateByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ErrNotFound
		}
		return fmt.Errorf("load exchange rate: %w", err)
	}

	rows, err := s.store.Queries().DeactivateExchangeRate(ctx, id)
	if err != nil {
		return fmt.Errorf("deactivate exchange rate: %w", err)
	}
	if err := requireExactlyOne(rows, "deactivate exchange rate"); err != nil {
		return err
	}

	s.invalidateRate(ctx, rate.FromCurrency, rate.ToCurrency)
	return nil
}

func (s *RateService) cacheRate(ctx context.Context, rate *models.ExchangeRate) {
	if s.redis == nil {
		return
	}
	payload, err := json.Marshal(rate)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, rateCacheKey(rate.FromCurrency, rate.ToCurrency), payload, s.cacheTTL).Err(); err != nil {
		zap.L().Warn("redis rate cache set failed", zap.Error(err))
	}
}

func (s *RateService) invalidateRate(ctx context.Context, fromCurrency, toCurrency string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, rateCacheKey(fromCurrency, toCurrency)).Err(); err != nil {
		zap.L().Warn("redis rate cache invalidation failed", zap.Error(err))
	}
}

func rateCacheKey(fromCurrency, toCurrency string) string {
	return fmt.Sprintf("fxrate:%s:%s", fromCurrency, toCurrency)
}
