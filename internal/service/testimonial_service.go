package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"givehub/api/internal/apperr"
	"givehub/api/internal/ids"
	"givehub/api/internal/models"
	"givehub/api/internal/repository"
)

const (
	minReviewLength = 10
	maxReviewLength = 1000
)

type testimonialStore interface {
	Create(ctx context.Context, testimonial models.Testimonial) error
	GetByID(ctx context.Context, id string) (models.Testimonial, error)
	List(ctx context.Context, filter repository.TestimonialFilter) ([]models.Testimonial, int, error)
	Approve(ctx context.Context, id string, approverID string, notes *string) error
	Reject(ctx context.Context, id string, notes *string) error
	SetFeatured(ctx context.Context, id string, featured bool) error
	SetVisibility(ctx context.Context, id string, visible bool) error
	Delete(ctx context.Context, id string) error
	RatingCounts(ctx context.Context) (map[int]int, error)
}

type TestimonialService struct {
	testimonials testimonialStore
	log          zerolog.Logger
}

func NewTestimonialService(testimonials testimonialStore, log zerolog.Logger) *TestimonialService {
	return &TestimonialService{testimonials: testimonials, log: log}
}

type CreateTestimonialInput struct {
	AuthorName  string
	AuthorEmail *string
	Rating      int
	Review      string
}

// Create stores a new testimonial awaiting moderation. It stays out of the
// public feed until a moderator approves it.
func (s *TestimonialService) Create(ctx context.Context, input CreateTestimonialInput) (models.Testimonial, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return models.Testimonial{}, apperr.ValidationFailed("rating must be between 1 and 5")
	}
	review := strings.TrimSpace(input.Review)
	if len(review) < minReviewLength || len(review) > maxReviewLength {
		return models.Testimonial{}, apperr.ValidationFailed("review must be between 10 and 1000 characters")
	}

	testimonial := models.Testimonial{
		ID:          ids.New(),
		AuthorName:  strings.TrimSpace(input.AuthorName),
		AuthorEmail: input.AuthorEmail,
		Rating:      input.Rating,
		Review:      review,
		IsVisible:   true,
	}

	if err := s.testimonials.Create(ctx, testimonial); err != nil {
		return models.Testimonial{}, err
	}

	s.log.Info().Str("testimonial_id", testimonial.ID).Int("rating", testimonial.Rating).Msg("testimonial submitted")
	return testimonial, nil
}

func (s *TestimonialService) Get(ctx context.Context, id string) (models.Testimonial, error) {
	testimonial, err := s.testimonials.GetByID(ctx, id)
	if err != nil {
		return models.Testimonial{}, notFoundOr(err)
	}
	return testimonial, nil
}

func (s *TestimonialService) List(ctx context.Context, filter repository.TestimonialFilter) ([]models.Testimonial, int, error) {
	return s.testimonials.List(ctx, filter)
}

func (s *TestimonialService) Approve(ctx context.Context, id string, approverID string, notes *string) (models.Testimonial, error) {
	if err := s.testimonials.Approve(ctx, id, approverID, notes); err != nil {
		return models.Testimonial{}, notFoundOr(err)
	}
	s.log.Info().Str("testimonial_id", id).Str("approved_by", approverID).Msg("testimonial approved")
	return s.testimonials.GetByID(ctx, id)
}

func (s *TestimonialService) Reject(ctx context.Context, id string, notes *string) (models.Testimonial, error) {
	if err := s.testimonials.Reject(ctx, id, notes); err != nil {
		return models.Testimonial{}, notFoundOr(err)
	}
	s.log.Info().Str("testimonial_id", id).Msg("testimonial rejected")
	return s.testimonials.GetByID(ctx, id)
}

// Feature toggles the featured flag. Only approved testimonials may be
// featured; unfeaturing is always allowed.
func (s *TestimonialService) Feature(ctx context.Context, id string, featured bool) (models.Testimonial, error) {
	testimonial, err := s.testimonials.GetByID(ctx, id)
	if err != nil {
		return models.Testimonial{}, notFoundOr(err)
	}

	if featured && !testimonial.IsApproved {
		return models.Testimonial{}, apperr.ValidationFailed("only approved testimonials can be featured")
	}

	if err := s.testimonials.SetFeatured(ctx, id, featured); err != nil {
		return models.Testimonial{}, notFoundOr(err)
	}
	testimonial.IsFeatured = featured
	return testimonial, nil
}

func (s *TestimonialService) SetVisibility(ctx context.Context, id string, visible bool) (models.Testimonial, error) {
	if err := s.testimonials.SetVisibility(ctx, id, visible); err != nil {
		return models.Testimonial{}, notFoundOr(err)
	}
	return s.testimonials.GetByID(ctx, id)
}

func (s *TestimonialService) Delete(ctx context.Context, id string) error {
	if err := s.testimonials.Delete(ctx, id); err != nil {
		return notFoundOr(err)
	}
	s.log.Info().Str("testimonial_id", id).Msg("testimonial deleted")
	return nil
}

// RatingStats aggregates approved, visible testimonials. The average is
// derived from the per-star counts and rounded to two decimals.
func (s *TestimonialService) RatingStats(ctx context.Context) (models.RatingStats, error) {
	counts, err := s.testimonials.RatingCounts(ctx)
	if err != nil {
		return models.RatingStats{}, err
	}
	return buildRatingStats(counts), nil
}

func buildRatingStats(counts map[int]int) models.RatingStats {
	stats := models.RatingStats{RatingCounts: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}}

	var sum int
	for star := 1; star <= 5; star++ {
		count := counts[star]
		stats.RatingCounts[star] = count
		stats.TotalReviews += count
		sum += star * count
	}
	if stats.TotalReviews > 0 {
		stats.AverageRating = round2(float64(sum) / float64(stats.TotalReviews))
	}
	return stats
}

func notFoundOr(err error) error {
	if errors.Is(err, repository.ErrTestimonialNotFound) {
		return apperr.NotFound("testimonial not found")
	}
	return err
}
