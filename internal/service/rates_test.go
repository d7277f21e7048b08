package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remitbd/remit-core/internal/domain"
	"github.com/remitbd/remit-core/internal/models"
	"github.com/remitbd/remit-core/internal/repository"
)

func newRateService(db *pgxpool.Pool) *RateService {
	return NewRateService(repository.NewStore(db), nil)
}

func TestSetRateAndGetActiveRate(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	svc := newRateService(db)
	ctx := context.Background()

	created, err := svc.SetRate(ctx, SetRateCmd{
		FromCurrency: domain.CurrencyBDT,
		ToCurrency:   domain.CurrencyINR,
		Rate:         decimal.RequireFromString("0.89"),
	})
	require.NoError(t, err)
	assert.True(t, created.IsActive)

	active, err := svc.GetActiveRate(ctx, domain.CurrencyBDT, domain.CurrencyINR)
	require.NoError(t, err)
	assert.Equal(t, created.ID, active.ID)
	assert.True(t, active.Rate.Equal(decimal.RequireFromString("0.89")))
}

func TestGetActiveRatePicksLatestEffective(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	svc := newRateService(db)
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	_, err := svc.SetRate(ctx, SetRateCmd{
		FromCurrency: domain.CurrencyBDT,
		ToCurrency:   domain.CurrencyINR,
		Rate:         decimal.RequireFromString("0.85"),
		EffectiveAt:  &old,
	})
	require.NoError(t, err)

	recent := time.Now().Add(-time.Hour)
	newer, err := svc.SetRate(ctx, SetRateCmd{
		FromCurrency: domain.CurrencyBDT,
		ToCurrency:   domain.CurrencyINR,
		Rate:         decimal.RequireFromString("0.90"),
		EffectiveAt:  &recent,
	})
	require.NoError(t, err)

	// A future-dated rate must not be picked up yet.
	future := time.Now().Add(24 * time.Hour)
	_, err = svc.SetRate(ctx, SetRateCmd{
		FromCurrency: domain.CurrencyBDT,
		ToCurrency:   domain.CurrencyINR,
		Rate:         decimal.RequireFromString("0.95"),
		EffectiveAt:  &future,
	})
	require.NoError(t, err)

	active, err := svc.GetActiveRate(ctx, domain.CurrencyBDT, domain.CurrencyINR)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, active.ID)
	assert.True(t, active.Rate.Equal(decimal.RequireFromString("0.90")))
}

func TestGetActiveRateNoneConfigured(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	svc := newRateService(db)

	_, err := svc.GetActiveRate(context.Background(), domain.CurrencyINR, domain.CurrencyBDT)
	require.ErrorIs(t, err, ErrNoActiveRate)
}

func TestSetRateRejectsInvalidInput(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	svc := newRateService(db)
	ctx := context.Background()

	_, err := svc.SetRate(ctx, SetRateCmd{
		FromCurrency: domain.CurrencyBDT,
		ToCurrency:   domain.CurrencyBDT,
		Rate:         decimal.RequireFromString("1"),
	})
	verr, ok := AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, CodeSameCurrencyPair, verr.Code)

	_, err = svc.SetRate(ctx, SetRateCmd{
		FromCurrency: domain.CurrencyBDT,
		ToCurrency:   domain.CurrencyINR,
		Rate:         decimal.Zero,
	})
	_, ok = AsValidation(err)
	require.True(t, ok)
}

func TestDeactivateRate(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	svc := newRateService(db)
	ctx := context.Background()

	created, err := svc.SetRate(ctx, SetRateCmd{
		FromCurrency: domain.CurrencyBDT,
		ToCurrency:   domain.CurrencyINR,
		Rate:         decimal.RequireFromString("0.89"),
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeactivateRate(ctx, created.ID))

	_, err = svc.GetActiveRate(ctx, domain.CurrencyBDT, domain.CurrencyINR)
	require.ErrorIs(t, err, ErrNoActiveRate)

	all, err := svc.ListRates(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.False(t, all[0].IsActive)

	activeOnly, err := svc.ListRates(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, activeOnly)
}

func TestDeactivateRateNotFound(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	svc := newRateService(db)
	err := svc.DeactivateRate(context.Background(), uuid.New())
	require.ErrorIs(t, err, models.ErrNotFound)
}
