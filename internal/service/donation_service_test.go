package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"givehub/api/internal/apperr"
	"givehub/api/internal/config"
	"givehub/api/internal/models"
	"givehub/api/internal/repository"
)

// mockDonationStore is a function-field mock; unset fields return zero
// values.
type mockDonationStore struct {
	CreateFunc              func(ctx context.Context, donation models.Donation) error
	GetByIDFunc             func(ctx context.Context, id string) (models.Donation, error)
	UpdateStatusFunc        func(ctx context.Context, id string, status models.DonationStatus) error
	ListFunc                func(ctx context.Context, filter repository.DonationFilter) ([]models.Donation, int, error)
	LeaderboardFunc         func(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
	StatsFunc               func(ctx context.Context, start, end *time.Time) (models.DonationStats, error)
	MonthlyTrendsFunc       func(ctx context.Context, months int) ([]models.MonthlyTrend, error)
	PaymentMethodTotalsFunc func(ctx context.Context) ([]models.PaymentMethodStat, error)
}

func (m *mockDonationStore) Create(ctx context.Context, donation models.Donation) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, donation)
	}
	return nil
}

func (m *mockDonationStore) GetByID(ctx context.Context, id string) (models.Donation, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return models.Donation{ID: id}, nil
}

func (m *mockDonationStore) UpdateStatus(ctx context.Context, id string, status models.DonationStatus) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status)
	}
	return nil
}

func (m *mockDonationStore) List(ctx context.Context, filter repository.DonationFilter) ([]models.Donation, int, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return nil, 0, nil
}

func (m *mockDonationStore) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if m.LeaderboardFunc != nil {
		return m.LeaderboardFunc(ctx, limit)
	}
	return nil, nil
}

func (m *mockDonationStore) Stats(ctx context.Context, start, end *time.Time) (models.DonationStats, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx, start, end)
	}
	return models.DonationStats{}, nil
}

func (m *mockDonationStore) MonthlyTrends(ctx context.Context, months int) ([]models.MonthlyTrend, error) {
	if m.MonthlyTrendsFunc != nil {
		return m.MonthlyTrendsFunc(ctx, months)
	}
	return nil, nil
}

func (m *mockDonationStore) PaymentMethodTotals(ctx context.Context) ([]models.PaymentMethodStat, error) {
	if m.PaymentMethodTotalsFunc != nil {
		return m.PaymentMethodTotalsFunc(ctx)
	}
	return nil, nil
}

func newTestDonationService(store *mockDonationStore) *DonationService {
	return NewDonationService(store, config.DonationConfig{MinAmount: 1, MaxAmount: 10000}, zerolog.Nop())
}

func validDonationInput() CreateDonationInput {
	return CreateDonationInput{
		DonorName:     "Alice",
		DonorEmail:    "alice@example.com",
		Amount:        50,
		Currency:      models.CurrencyUSD,
		PaymentMethod: models.PaymentMethodCard,
	}
}

func TestDonationService_Create(t *testing.T) {
	t.Run("new donations start pending", func(t *testing.T) {
		var created models.Donation
		store := &mockDonationStore{
			CreateFunc: func(_ context.Context, donation models.Donation) error {
				created = donation
				return nil
			},
		}
		svc := newTestDonationService(store)

		donation, err := svc.Create(context.Background(), validDonationInput())
		require.NoError(t, err)

		assert.Equal(t, models.DonationStatusPending, donation.Status)
		assert.Equal(t, created.ID, donation.ID)
		assert.NotEmpty(t, donation.ID)
	})

	t.Run("amount must stay inside the configured bounds", func(t *testing.T) {
		svc := newTestDonationService(&mockDonationStore{})

		for _, amount := range []float64{0, 0.5, -3, 10001} {
			input := validDonationInput()
			input.Amount = amount
			_, err := svc.Create(context.Background(), input)
			assert.True(t, apperr.IsCode(err, apperr.CodeValidationFailed), "amount %v", amount)
		}
	})

	t.Run("unknown currency or method rejected", func(t *testing.T) {
		svc := newTestDonationService(&mockDonationStore{})

		input := validDonationInput()
		input.Currency = "DOGE"
		_, err := svc.Create(context.Background(), input)
		assert.True(t, apperr.IsCode(err, apperr.CodeValidationFailed))

		input = validDonationInput()
		input.PaymentMethod = "barter"
		_, err = svc.Create(context.Background(), input)
		assert.True(t, apperr.IsCode(err, apperr.CodeValidationFailed))
	})

	t.Run("duplicate transaction id conflicts", func(t *testing.T) {
		store := &mockDonationStore{
			CreateFunc: func(context.Context, models.Donation) error {
				return repository.ErrDuplicateTransaction
			},
		}
		svc := newTestDonationService(store)

		_, err := svc.Create(context.Background(), validDonationInput())
		assert.True(t, apperr.IsCode(err, apperr.CodeConflict))
	})
}

func TestDonationService_UpdateStatus(t *testing.T) {
	t.Run("rejects unknown status", func(t *testing.T) {
		svc := newTestDonationService(&mockDonationStore{})

		_, err := svc.UpdateStatus(context.Background(), "d-1", "archived")
		assert.True(t, apperr.IsCode(err, apperr.CodeValidationFailed))
	})

	t.Run("missing donation", func(t *testing.T) {
		store := &mockDonationStore{
			UpdateStatusFunc: func(context.Context, string, models.DonationStatus) error {
				return repository.ErrDonationNotFound
			},
		}
		svc := newTestDonationService(store)

		_, err := svc.UpdateStatus(context.Background(), "d-1", models.DonationStatusCompleted)
		assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))
	})
}

func TestDonationService_Leaderboard(t *testing.T) {
	t.Run("limit defaults and caps", func(t *testing.T) {
		var gotLimit int
		store := &mockDonationStore{
			LeaderboardFunc: func(_ context.Context, limit int) ([]models.LeaderboardEntry, error) {
				gotLimit = limit
				return nil, nil
			},
		}
		svc := newTestDonationService(store)

		_, err := svc.Leaderboard(context.Background(), 0)
		require.NoError(t, err)
		assert.Equal(t, 10, gotLimit)

		_, err = svc.Leaderboard(context.Background(), 500)
		require.NoError(t, err)
		assert.Equal(t, 100, gotLimit)

		_, err = svc.Leaderboard(context.Background(), 25)
		require.NoError(t, err)
		assert.Equal(t, 25, gotLimit)
	})
}

func TestDonationService_Stats(t *testing.T) {
	t.Run("empty store yields a zero-filled report", func(t *testing.T) {
		svc := newTestDonationService(&mockDonationStore{})

		report, err := svc.Stats(context.Background(), nil, nil)
		require.NoError(t, err)

		assert.Equal(t, models.DonationStats{}, report.Overall)
		assert.Empty(t, report.Trends)
		assert.Empty(t, report.PaymentMethods)
	})

	t.Run("payment method percentages sum from the grand total", func(t *testing.T) {
		store := &mockDonationStore{
			PaymentMethodTotalsFunc: func(context.Context) ([]models.PaymentMethodStat, error) {
				return []models.PaymentMethodStat{
					{Method: models.PaymentMethodCard, TotalAmount: 75, DonationCount: 3},
					{Method: models.PaymentMethodPaypal, TotalAmount: 25, DonationCount: 1},
				}, nil
			},
		}
		svc := newTestDonationService(store)

		report, err := svc.Stats(context.Background(), nil, nil)
		require.NoError(t, err)
		require.Len(t, report.PaymentMethods, 2)
		assert.Equal(t, 75.0, report.PaymentMethods[0].Percentage)
		assert.Equal(t, 25.0, report.PaymentMethods[1].Percentage)
	})

	t.Run("uneven split rounds to two decimals", func(t *testing.T) {
		stats := withPercentages([]models.PaymentMethodStat{
			{Method: models.PaymentMethodCard, TotalAmount: 1},
			{Method: models.PaymentMethodPaypal, TotalAmount: 1},
			{Method: models.PaymentMethodBank, TotalAmount: 1},
		})
		assert.Equal(t, 33.33, stats[0].Percentage)
	})
}
