package models

import "time"

// LeaderboardEntry is one ranked donor: completed, non-anonymous donations
// grouped by donor email.
type LeaderboardEntry struct {
	DonorName     string
	DonorEmail    string
	TotalAmount   float64
	DonationCount int
	LastDonation  time.Time
}

// DonationStats summarizes completed donations. Zero-filled when no
// completed donations exist.
type DonationStats struct {
	TotalAmount    float64
	TotalDonations int
	AverageAmount  float64
	MaxAmount      float64
	MinAmount      float64
}

// MonthlyTrend is one month's bucket of completed donations.
type MonthlyTrend struct {
	Year          int
	Month         int
	TotalAmount   float64
	DonationCount int
	AverageAmount float64
}

// PaymentMethodStat is one payment method's share of the completed total.
type PaymentMethodStat struct {
	Method        PaymentMethod
	TotalAmount   float64
	DonationCount int
	Percentage    float64
}

// RatingStats summarizes approved, visible testimonials.
type RatingStats struct {
	TotalReviews  int
	AverageRating float64
	RatingCounts  map[int]int
}
