package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"givehub/api/internal/apperr"
	"givehub/api/internal/config"
	"givehub/api/internal/ids"
	"givehub/api/internal/models"
	"givehub/api/internal/repository"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
	trendMonths             = 12
)

type donationStore interface {
	Create(ctx context.Context, donation models.Donation) error
	GetByID(ctx context.Context, id string) (models.Donation, error)
	UpdateStatus(ctx context.Context, id string, status models.DonationStatus) error
	List(ctx context.Context, filter repository.DonationFilter) ([]models.Donation, int, error)
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
	Stats(ctx context.Context, start, end *time.Time) (models.DonationStats, error)
	MonthlyTrends(ctx context.Context, months int) ([]models.MonthlyTrend, error)
	PaymentMethodTotals(ctx context.Context) ([]models.PaymentMethodStat, error)
}

type DonationService struct {
	donations donationStore
	cfg       config.DonationConfig
	log       zerolog.Logger
}

func NewDonationService(donations donationStore, cfg config.DonationConfig, log zerolog.Logger) *DonationService {
	return &DonationService{donations: donations, cfg: cfg, log: log}
}

type CreateDonationInput struct {
	DonorName     string
	DonorEmail    string
	Amount        float64
	Currency      models.Currency
	Message       *string
	IsAnonymous   bool
	TransactionID *string
	PaymentMethod models.PaymentMethod
	IPAddress     string
	UserAgent     string
}

func (s *DonationService) Create(ctx context.Context, input CreateDonationInput) (models.Donation, error) {
	if input.Amount < s.cfg.MinAmount || input.Amount > s.cfg.MaxAmount {
		return models.Donation{}, apperr.ValidationFailed(
			fmt.Sprintf("amount must be between %.2f and %.2f", s.cfg.MinAmount, s.cfg.MaxAmount))
	}
	if !input.Currency.Valid() {
		return models.Donation{}, apperr.ValidationFailed("unsupported currency")
	}
	if !input.PaymentMethod.Valid() {
		return models.Donation{}, apperr.ValidationFailed("unsupported payment method")
	}

	donation := models.Donation{
		ID:            ids.New(),
		DonorName:     input.DonorName,
		DonorEmail:    input.DonorEmail,
		Amount:        input.Amount,
		Currency:      input.Currency,
		Message:       input.Message,
		IsAnonymous:   input.IsAnonymous,
		TransactionID: input.TransactionID,
		Status:        models.DonationStatusPending,
		PaymentMethod: input.PaymentMethod,
		IPAddress:     input.IPAddress,
		UserAgent:     input.UserAgent,
	}

	if err := s.donations.Create(ctx, donation); err != nil {
		if errors.Is(err, repository.ErrDuplicateTransaction) {
			return models.Donation{}, apperr.Conflict("transaction already recorded")
		}
		return models.Donation{}, err
	}

	s.log.Info().
		Str("donation_id", donation.ID).
		Float64("amount", donation.Amount).
		Str("currency", string(donation.Currency)).
		Msg("donation created")

	return donation, nil
}

func (s *DonationService) Get(ctx context.Context, id string) (models.Donation, error) {
	donation, err := s.donations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrDonationNotFound) {
			return models.Donation{}, apperr.NotFound("donation not found")
		}
		return models.Donation{}, err
	}
	return donation, nil
}

func (s *DonationService) List(ctx context.Context, filter repository.DonationFilter) ([]models.Donation, int, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, apperr.ValidationFailed("unknown donation status")
	}
	return s.donations.List(ctx, filter)
}

func (s *DonationService) UpdateStatus(ctx context.Context, id string, status models.DonationStatus) (models.Donation, error) {
	if !status.Valid() {
		return models.Donation{}, apperr.ValidationFailed("unknown donation status")
	}

	if err := s.donations.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, repository.ErrDonationNotFound) {
			return models.Donation{}, apperr.NotFound("donation not found")
		}
		return models.Donation{}, err
	}

	s.log.Info().Str("donation_id", id).Str("status", string(status)).Msg("donation status updated")
	return s.donations.GetByID(ctx, id)
}

func (s *DonationService) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}
	return s.donations.Leaderboard(ctx, limit)
}

// StatsReport is the full reporting payload: overall numbers, monthly
// trends and the per-payment-method breakdown.
type StatsReport struct {
	Overall        models.DonationStats
	Trends         []models.MonthlyTrend
	PaymentMethods []models.PaymentMethodStat
}

func (s *DonationService) Stats(ctx context.Context, start, end *time.Time) (StatsReport, error) {
	overall, err := s.donations.Stats(ctx, start, end)
	if err != nil {
		return StatsReport{}, err
	}

	trends, err := s.donations.MonthlyTrends(ctx, trendMonths)
	if err != nil {
		return StatsReport{}, err
	}

	methods, err := s.donations.PaymentMethodTotals(ctx)
	if err != nil {
		return StatsReport{}, err
	}

	return StatsReport{
		Overall:        overall,
		Trends:         trends,
		PaymentMethods: withPercentages(methods),
	}, nil
}

// withPercentages fills each method's share of the grand total, rounded to
// two decimals. An empty or zero total leaves every share at zero.
func withPercentages(stats []models.PaymentMethodStat) []models.PaymentMethodStat {
	var grandTotal float64
	for _, stat := range stats {
		grandTotal += stat.TotalAmount
	}
	if grandTotal <= 0 {
		return stats
	}
	for i := range stats {
		stats[i].Percentage = round2(stats[i].TotalAmount / grandTotal * 100)
	}
	return stats
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
