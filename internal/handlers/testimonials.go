package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"givehub/api/internal/apperr"
	"givehub/api/internal/middleware"
	"givehub/api/internal/models"
	"givehub/api/internal/repository"
	"givehub/api/internal/service"
)

type createTestimonialRequest struct {
	Name   string  `json:"name" binding:"required,min=2,max=100"`
	Email  *string `json:"email" binding:"omitempty,email"`
	Rating int     `json:"rating" binding:"required,min=1,max=5"`
	Review string  `json:"review" binding:"required"`
}

type testimonialResponse struct {
	ID         string     `json:"id"`
	AuthorName string     `json:"authorName"`
	Rating     int        `json:"rating"`
	Review     string     `json:"review"`
	IsApproved bool       `json:"isApproved"`
	IsFeatured bool       `json:"isFeatured"`
	IsVisible  bool       `json:"isVisible"`
	ApprovedAt *time.Time `json:"approvedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func (h HandlerSet) CreateTestimonial(c *gin.Context) {
	var req createTestimonialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err.Error())
		return
	}

	testimonial, err := h.testimonials.Create(c.Request.Context(), service.CreateTestimonialInput{
		AuthorName:  req.Name,
		AuthorEmail: req.Email,
		Rating:      req.Rating,
		Review:      req.Review,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"testimonial": toTestimonialResponse(testimonial)})
}

// ListTestimonials is the public feed: approved and visible entries only.
func (h HandlerSet) ListTestimonials(c *gin.Context) {
	params := parsePageParams(c)

	filter := repository.TestimonialFilter{
		PublicOnly:   true,
		FeaturedOnly: c.Query("featured") == "true",
		Limit:        params.Limit,
		Offset:       params.Offset(),
		SortBy:       params.SortBy,
		SortDesc:     params.SortDesc,
	}

	testimonials, total, err := h.testimonials.List(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"testimonials": toTestimonialResponses(testimonials),
		"pagination":   buildPagination(params, total),
	})
}

func (h HandlerSet) AdminListTestimonials(c *gin.Context) {
	params := parsePageParams(c)

	testimonials, total, err := h.testimonials.List(c.Request.Context(), repository.TestimonialFilter{
		Limit:    params.Limit,
		Offset:   params.Offset(),
		SortBy:   params.SortBy,
		SortDesc: params.SortDesc,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"testimonials": toTestimonialResponses(testimonials),
		"pagination":   buildPagination(params, total),
	})
}

// GetTestimonial hides unapproved or hidden entries from the public; they
// read as absent.
func (h HandlerSet) GetTestimonial(c *gin.Context) {
	testimonial, err := h.testimonials.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	if !testimonial.IsApproved || !testimonial.IsVisible {
		h.respondError(c, apperr.NotFound("testimonial not found"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"testimonial": toTestimonialResponse(testimonial)})
}

type moderationRequest struct {
	Notes *string `json:"notes" binding:"omitempty,max=500"`
}

func (h HandlerSet) ApproveTestimonial(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		h.respondError(c, errUnauthenticated())
		return
	}

	var req moderationRequest
	_ = c.ShouldBindJSON(&req)

	testimonial, err := h.testimonials.Approve(c.Request.Context(), c.Param("id"), user.ID, req.Notes)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"testimonial": toTestimonialResponse(testimonial)})
}

func (h HandlerSet) RejectTestimonial(c *gin.Context) {
	var req moderationRequest
	_ = c.ShouldBindJSON(&req)

	testimonial, err := h.testimonials.Reject(c.Request.Context(), c.Param("id"), req.Notes)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"testimonial": toTestimonialResponse(testimonial)})
}

type featureRequest struct {
	Featured *bool `json:"featured" binding:"required"`
}

func (h HandlerSet) FeatureTestimonial(c *gin.Context) {
	var req featureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err.Error())
		return
	}

	testimonial, err := h.testimonials.Feature(c.Request.Context(), c.Param("id"), *req.Featured)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"testimonial": toTestimonialResponse(testimonial)})
}

type visibilityRequest struct {
	Visible *bool `json:"visible" binding:"required"`
}

func (h HandlerSet) TestimonialVisibility(c *gin.Context) {
	var req visibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err.Error())
		return
	}

	testimonial, err := h.testimonials.SetVisibility(c.Request.Context(), c.Param("id"), *req.Visible)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"testimonial": toTestimonialResponse(testimonial)})
}

func (h HandlerSet) DeleteTestimonial(c *gin.Context) {
	if err := h.testimonials.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "testimonial deleted"})
}

func (h HandlerSet) RatingStats(c *gin.Context) {
	stats, err := h.testimonials.RatingStats(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"totalReviews":  stats.TotalReviews,
		"averageRating": stats.AverageRating,
		"ratingCounts":  stats.RatingCounts,
	})
}

func toTestimonialResponse(testimonial models.Testimonial) testimonialResponse {
	return testimonialResponse{
		ID:         testimonial.ID,
		AuthorName: testimonial.AuthorName,
		Rating:     testimonial.Rating,
		Review:     testimonial.Review,
		IsApproved: testimonial.IsApproved,
		IsFeatured: testimonial.IsFeatured,
		IsVisible:  testimonial.IsVisible,
		ApprovedAt: testimonial.ApprovedAt,
		CreatedAt:  testimonial.CreatedAt,
	}
}

func toTestimonialResponses(testimonials []models.Testimonial) []testimonialResponse {
	items := make([]testimonialResponse, 0, len(testimonials))
	for _, testimonial := range testimonials {
		items = append(items, toTestimonialResponse(testimonial))
	}
	return items
}
