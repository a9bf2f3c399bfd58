package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"givehub/api/internal/models"
)

var ErrTestimonialNotFound = errors.New("testimonial not found")

type TestimonialRepository struct {
	pool *pgxpool.Pool
}

func NewTestimonialRepository(pool *pgxpool.Pool) *TestimonialRepository {
	return &TestimonialRepository{pool: pool}
}

const testimonialColumns = `
	id, author_name, author_email, rating, review, is_approved, is_featured,
	is_visible, moderation_notes, approved_by, approved_at, rejected_at,
	created_at, updated_at
`

func (r *TestimonialRepository) Create(ctx context.Context, testimonial models.Testimonial) error {
	const query = `
		INSERT INTO testimonials (
			id, author_name, author_email, rating, review, is_approved,
			is_featured, is_visible, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, FALSE, FALSE, $6, NOW(), NOW()
		)
	`
	_, err := r.pool.Exec(ctx, query,
		testimonial.ID,
		testimonial.AuthorName,
		testimonial.AuthorEmail,
		testimonial.Rating,
		testimonial.Review,
		testimonial.IsVisible,
	)
	return err
}

func (r *TestimonialRepository) GetByID(ctx context.Context, id string) (models.Testimonial, error) {
	const query = `SELECT ` + testimonialColumns + ` FROM testimonials WHERE id = $1`
	return r.scanTestimonial(r.pool.QueryRow(ctx, query, id))
}

type TestimonialFilter struct {
	PublicOnly   bool
	FeaturedOnly bool
	Limit        int
	Offset       int
	SortBy       string
	SortDesc     bool
}

var testimonialSortColumns = map[string]string{
	"createdAt": "created_at",
	"rating":    "rating",
}

func (r *TestimonialRepository) List(ctx context.Context, filter TestimonialFilter) ([]models.Testimonial, int, error) {
	where := ""
	if filter.PublicOnly {
		where = " WHERE is_approved = TRUE AND is_visible = TRUE"
		if filter.FeaturedOnly {
			where += " AND is_featured = TRUE"
		}
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM testimonials`+where).Scan(&total); err != nil {
		return nil, 0, err
	}

	sortColumn, ok := testimonialSortColumns[filter.SortBy]
	if !ok {
		sortColumn = "created_at"
		filter.SortDesc = true
	}
	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}

	query := fmt.Sprintf(`SELECT %s FROM testimonials%s ORDER BY %s %s LIMIT $1 OFFSET $2`,
		testimonialColumns, where, sortColumn, direction)

	rows, err := r.pool.Query(ctx, query, filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var testimonials []models.Testimonial
	for rows.Next() {
		testimonial, err := r.scanTestimonial(rows)
		if err != nil {
			return nil, 0, err
		}
		testimonials = append(testimonials, testimonial)
	}
	return testimonials, total, rows.Err()
}

// Approve marks the testimonial approved and records the moderator.
// A previously rejected entry can be approved again.
func (r *TestimonialRepository) Approve(ctx context.Context, id string, approverID string, notes *string) error {
	const query = `
		UPDATE testimonials
		SET is_approved = TRUE,
		    approved_by = $2,
		    approved_at = NOW(),
		    rejected_at = NULL,
		    moderation_notes = COALESCE($3, moderation_notes),
		    updated_at = NOW()
		WHERE id = $1
	`
	return r.execOnRow(ctx, query, id, approverID, notes)
}

// Reject clears approval and forces the entry invisible and unfeatured.
func (r *TestimonialRepository) Reject(ctx context.Context, id string, notes *string) error {
	const query = `
		UPDATE testimonials
		SET is_approved = FALSE,
		    is_visible = FALSE,
		    is_featured = FALSE,
		    rejected_at = NOW(),
		    moderation_notes = COALESCE($2, moderation_notes),
		    updated_at = NOW()
		WHERE id = $1
	`
	return r.execOnRow(ctx, query, id, notes)
}

func (r *TestimonialRepository) SetFeatured(ctx context.Context, id string, featured bool) error {
	const query = `UPDATE testimonials SET is_featured = $2, updated_at = NOW() WHERE id = $1`
	return r.execOnRow(ctx, query, id, featured)
}

func (r *TestimonialRepository) SetVisibility(ctx context.Context, id string, visible bool) error {
	const query = `UPDATE testimonials SET is_visible = $2, updated_at = NOW() WHERE id = $1`
	return r.execOnRow(ctx, query, id, visible)
}

func (r *TestimonialRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM testimonials WHERE id = $1`
	return r.execOnRow(ctx, query, id)
}

// RatingCounts returns the number of approved, visible testimonials per
// star 1..5. Missing stars come back as zero.
func (r *TestimonialRepository) RatingCounts(ctx context.Context) (map[int]int, error) {
	const query = `
		SELECT rating, COUNT(*)
		FROM testimonials
		WHERE is_approved = TRUE AND is_visible = TRUE
		GROUP BY rating
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}
	for rows.Next() {
		var rating, count int
		if err := rows.Scan(&rating, &count); err != nil {
			return nil, err
		}
		counts[rating] = count
	}
	return counts, rows.Err()
}

func (r *TestimonialRepository) execOnRow(ctx context.Context, query string, args ...any) error {
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrTestimonialNotFound
	}
	return nil
}

func (r *TestimonialRepository) scanTestimonial(row pgx.Row) (models.Testimonial, error) {
	var testimonial models.Testimonial
	if err := row.Scan(
		&testimonial.ID,
		&testimonial.AuthorName,
		&testimonial.AuthorEmail,
		&testimonial.Rating,
		&testimonial.Review,
		&testimonial.IsApproved,
		&testimonial.IsFeatured,
		&testimonial.IsVisible,
		&testimonial.ModerationNotes,
		&testimonial.ApprovedBy,
		&testimonial.ApprovedAt,
		&testimonial.RejectedAt,
		&testimonial.CreatedAt,
		&testimonial.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Testimonial{}, ErrTestimonialNotFound
		}
		return models.Testimonial{}, err
	}
	return testimonial, nil
}
