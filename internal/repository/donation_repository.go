package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"givehub/api/internal/models"
)

var (
	ErrDonationNotFound     = errors.New("donation not found")
	ErrDuplicateTransaction = errors.New("transaction id already recorded")
)

type DonationRepository struct {
	pool *pgxpool.Pool
}

func NewDonationRepository(pool *pgxpool.Pool) *DonationRepository {
	return &DonationRepository{pool: pool}
}

const donationColumns = `
	id, donor_name, donor_email, amount, currency, message, is_anonymous,
	transaction_id, status, payment_method, ip_address, user_agent,
	processed_at, refunded_at, created_at, updated_at
`

func (r *DonationRepository) Create(ctx context.Context, donation models.Donation) error {
	const query = `
		INSERT INTO donations (
			id, donor_name, donor_email, amount, currency, message, is_anonymous,
			transaction_id, status, payment_method, ip_address, user_agent,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		donation.ID,
		donation.DonorName,
		donation.DonorEmail,
		donation.Amount,
		donation.Currency,
		donation.Message,
		donation.IsAnonymous,
		donation.TransactionID,
		donation.Status,
		donation.PaymentMethod,
		donation.IPAddress,
		donation.UserAgent,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicateTransaction
		}
		return err
	}
	return nil
}

func (r *DonationRepository) GetByID(ctx context.Context, id string) (models.Donation, error) {
	const query = `SELECT ` + donationColumns + ` FROM donations WHERE id = $1`
	return r.scanDonation(r.pool.QueryRow(ctx, query, id))
}

// UpdateStatus moves a donation to any status and stamps the transition
// time where one applies. No transition table is enforced.
func (r *DonationRepository) UpdateStatus(ctx context.Context, id string, status models.DonationStatus) error {
	const query = `
		UPDATE donations
		SET status = $2,
		    processed_at = CASE WHEN $2 = 'completed' THEN NOW() ELSE processed_at END,
		    refunded_at = CASE WHEN $2 = 'refunded' THEN NOW() ELSE refunded_at END,
		    updated_at = NOW()
		WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrDonationNotFound
	}
	return nil
}

type DonationFilter struct {
	Status    models.DonationStatus
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
	SortBy    string
	SortDesc  bool
}

var donationSortColumns = map[string]string{
	"createdAt": "created_at",
	"amount":    "amount",
	"status":    "status",
	"donorName": "donor_name",
}

func (r *DonationRepository) List(ctx context.Context, filter DonationFilter) ([]models.Donation, int, error) {
	where, args := donationWhere(filter)

	countQuery := `SELECT COUNT(*) FROM donations` + where
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sortColumn, ok := donationSortColumns[filter.SortBy]
	if !ok {
		sortColumn = "created_at"
		filter.SortDesc = true
	}
	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}

	query := fmt.Sprintf(`SELECT %s FROM donations%s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		donationColumns, where, sortColumn, direction, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var donations []models.Donation
	for rows.Next() {
		donation, err := r.scanDonation(rows)
		if err != nil {
			return nil, 0, err
		}
		donations = append(donations, donation)
	}
	return donations, total, rows.Err()
}

func donationWhere(filter DonationFilter) (string, []any) {
	clauses := []string{}
	args := []any{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	if len(clauses) == 0 {
		return "", args
	}
	where := " WHERE " + clauses[0]
	for _, clause := range clauses[1:] {
		where += " AND " + clause
	}
	return where, args
}

// Leaderboard ranks donors by completed, non-anonymous donation total.
// Pending, failed, refunded and anonymous donations never appear.
func (r *DonationRepository) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	const query = `
		SELECT
			(ARRAY_AGG(donor_name ORDER BY created_at DESC))[1] AS donor_name,
			donor_email,
			SUM(amount) AS total_amount,
			COUNT(*) AS donation_count,
			MAX(created_at) AS last_donation
		FROM donations
		WHERE status = 'completed' AND is_anonymous = FALSE
		GROUP BY donor_email
		ORDER BY total_amount DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.LeaderboardEntry
	for rows.Next() {
		var entry models.LeaderboardEntry
		if err := rows.Scan(
			&entry.DonorName,
			&entry.DonorEmail,
			&entry.TotalAmount,
			&entry.DonationCount,
			&entry.LastDonation,
		); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Stats aggregates completed donations in the optional date range.
// COALESCE keeps the row zero-filled when nothing matches.
func (r *DonationRepository) Stats(ctx context.Context, start, end *time.Time) (models.DonationStats, error) {
	const query = `
		SELECT
			COALESCE(SUM(amount), 0),
			COUNT(*),
			COALESCE(AVG(amount), 0),
			COALESCE(MAX(amount), 0),
			COALESCE(MIN(amount), 0)
		FROM donations
		WHERE status = 'completed'
		  AND ($1::timestamptz IS NULL OR created_at >= $1)
		  AND ($2::timestamptz IS NULL OR created_at <= $2)
	`

	var stats models.DonationStats
	if err := r.pool.QueryRow(ctx, query, start, end).Scan(
		&stats.TotalAmount,
		&stats.TotalDonations,
		&stats.AverageAmount,
		&stats.MaxAmount,
		&stats.MinAmount,
	); err != nil {
		return models.DonationStats{}, err
	}
	return stats, nil
}

// MonthlyTrends buckets completed donations by calendar month over the most
// recent `months` periods, oldest first.
func (r *DonationRepository) MonthlyTrends(ctx context.Context, months int) ([]models.MonthlyTrend, error) {
	const query = `
		SELECT
			EXTRACT(YEAR FROM created_at)::int AS year,
			EXTRACT(MONTH FROM created_at)::int AS month,
			SUM(amount),
			COUNT(*),
			AVG(amount)
		FROM donations
		WHERE status = 'completed'
		  AND created_at >= DATE_TRUNC('month', NOW()) - ($1 - 1) * INTERVAL '1 month'
		GROUP BY year, month
		ORDER BY year, month
	`

	rows, err := r.pool.Query(ctx, query, months)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trends []models.MonthlyTrend
	for rows.Next() {
		var trend models.MonthlyTrend
		if err := rows.Scan(
			&trend.Year,
			&trend.Month,
			&trend.TotalAmount,
			&trend.DonationCount,
			&trend.AverageAmount,
		); err != nil {
			return nil, err
		}
		trends = append(trends, trend)
	}
	return trends, rows.Err()
}

// PaymentMethodTotals groups completed donations by payment method, largest
// total first. Percentages are filled in by the caller.
func (r *DonationRepository) PaymentMethodTotals(ctx context.Context) ([]models.PaymentMethodStat, error) {
	const query = `
		SELECT payment_method, SUM(amount), COUNT(*)
		FROM donations
		WHERE status = 'completed'
		GROUP BY payment_method
		ORDER BY SUM(amount) DESC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []models.PaymentMethodStat
	for rows.Next() {
		var stat models.PaymentMethodStat
		if err := rows.Scan(&stat.Method, &stat.TotalAmount, &stat.DonationCount); err != nil {
			return nil, err
		}
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}

// ListForExport streams every donation in the range ordered by creation
// time, without pagination.
func (r *DonationRepository) ListForExport(ctx context.Context, start, end *time.Time) ([]models.Donation, error) {
	const query = `
		SELECT ` + donationColumns + `
		FROM donations
		WHERE ($1::timestamptz IS NULL OR created_at >= $1)
		  AND ($2::timestamptz IS NULL OR created_at <= $2)
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var donations []models.Donation
	for rows.Next() {
		donation, err := r.scanDonation(rows)
		if err != nil {
			return nil, err
		}
		donations = append(donations, donation)
	}
	return donations, rows.Err()
}

func (r *DonationRepository) scanDonation(row pgx.Row) (models.Donation, error) {
	var donation models.Donation
	if err := row.Scan(
		&donation.ID,
		&donation.DonorName,
		&donation.DonorEmail,
		&donation.Amount,
		&donation.Currency,
		&donation.Message,
		&donation.IsAnonymous,
		&donation.TransactionID,
		&donation.Status,
		&donation.PaymentMethod,
		&donation.IPAddress,
		&donation.UserAgent,
		&donation.ProcessedAt,
		&donation.RefundedAt,
		&donation.CreatedAt,
		&donation.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Donation{}, ErrDonationNotFound
		}
		return models.Donation{}, err
	}
	return donation, nil
}
