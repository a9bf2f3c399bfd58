package models

import "time"

type Testimonial struct {
	ID              string
	AuthorName      string
	AuthorEmail     *string
	Rating          int
	Review          string
	IsApproved      bool
	IsFeatured      bool
	IsVisible       bool
	ModerationNotes *string
	ApprovedBy      *string
	ApprovedAt      *time.Time
	RejectedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
