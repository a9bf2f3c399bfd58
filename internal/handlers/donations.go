package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"givehub/api/internal/models"
	"givehub/api/internal/repository"
	"givehub/api/internal/service"
)

type createDonationRequest struct {
	Name          string  `json:"name" binding:"required,min=2,max=100"`
	Email         string  `json:"email" binding:"required,email"`
	Amount        float64 `json:"amount" binding:"required,gt=0"`
	Currency      string  `json:"currency" binding:"required"`
	PaymentMethod string  `json:"paymentMethod" binding:"required"`
	Message       *string `json:"message" binding:"omitempty,max=500"`
	IsAnonymous   bool    `json:"isAnonymous"`
	TransactionID *string `json:"transactionId"`
}

type donationResponse struct {
	ID            string     `json:"id"`
	DonorName     string     `json:"donorName"`
	DonorEmail    string     `json:"donorEmail,omitempty"`
	Amount        float64    `json:"amount"`
	Currency      string     `json:"currency"`
	Message       *string    `json:"message,omitempty"`
	IsAnonymous   bool       `json:"isAnonymous"`
	TransactionID *string    `json:"transactionId,omitempty"`
	Status        string     `json:"status"`
	PaymentMethod string     `json:"paymentMethod"`
	ProcessedAt   *time.Time `json:"processedAt,omitempty"`
	RefundedAt    *time.Time `json:"refundedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func (h HandlerSet) CreateDonation(c *gin.Context) {
	var req createDonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err.Error())
		return
	}

	donation, err := h.donations.Create(c.Request.Context(), service.CreateDonationInput{
		DonorName:     req.Name,
		DonorEmail:    req.Email,
		Amount:        req.Amount,
		Currency:      models.Currency(req.Currency),
		Message:       req.Message,
		IsAnonymous:   req.IsAnonymous,
		TransactionID: req.TransactionID,
		PaymentMethod: models.PaymentMethod(req.PaymentMethod),
		IPAddress:     c.ClientIP(),
		UserAgent:     c.GetHeader("User-Agent"),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"donation": toDonationResponse(donation)})
}

func (h HandlerSet) ListDonations(c *gin.Context) {
	params := parsePageParams(c)

	filter := repository.DonationFilter{
		Status:   models.DonationStatus(c.Query("status")),
		Limit:    params.Limit,
		Offset:   params.Offset(),
		SortBy:   params.SortBy,
		SortDesc: params.SortDesc,
	}

	var err error
	if filter.StartDate, err = parseDateQuery(c, "startDate"); err != nil {
		validationError(c, "invalid startDate")
		return
	}
	if filter.EndDate, err = parseDateQuery(c, "endDate"); err != nil {
		validationError(c, "invalid endDate")
		return
	}

	donations, total, err := h.donations.List(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}

	items := make([]donationResponse, 0, len(donations))
	for _, donation := range donations {
		items = append(items, toDonationResponse(donation))
	}

	c.JSON(http.StatusOK, gin.H{
		"donations":  items,
		"pagination": buildPagination(params, total),
	})
}

func (h HandlerSet) GetDonation(c *gin.Context) {
	donation, err := h.donations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"donation": toDonationResponse(donation)})
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h HandlerSet) UpdateDonationStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err.Error())
		return
	}

	donation, err := h.donations.UpdateStatus(c.Request.Context(), c.Param("id"), models.DonationStatus(req.Status))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"donation": toDonationResponse(donation)})
}

type leaderboardEntryResponse struct {
	Rank          int       `json:"rank"`
	DonorName     string    `json:"donorName"`
	TotalAmount   float64   `json:"totalAmount"`
	DonationCount int       `json:"donationCount"`
	LastDonation  time.Time `json:"lastDonation"`
}

func (h HandlerSet) Leaderboard(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		parsed, err := parsePositiveInt(v)
		if err != nil {
			validationError(c, "invalid limit")
			return
		}
		limit = parsed
	}

	entries, err := h.donations.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	items := make([]leaderboardEntryResponse, 0, len(entries))
	for i, entry := range entries {
		items = append(items, leaderboardEntryResponse{
			Rank:          i + 1,
			DonorName:     entry.DonorName,
			TotalAmount:   entry.TotalAmount,
			DonationCount: entry.DonationCount,
			LastDonation:  entry.LastDonation,
		})
	}

	c.JSON(http.StatusOK, gin.H{"leaderboard": items})
}

func (h HandlerSet) DonationStats(c *gin.Context) {
	start, err := parseDateQuery(c, "startDate")
	if err != nil {
		validationError(c, "invalid startDate")
		return
	}
	end, err := parseDateQuery(c, "endDate")
	if err != nil {
		validationError(c, "invalid endDate")
		return
	}

	report, err := h.donations.Stats(c.Request.Context(), start, end)
	if err != nil {
		h.respondError(c, err)
		return
	}

	trends := make([]gin.H, 0, len(report.Trends))
	for _, trend := range report.Trends {
		trends = append(trends, gin.H{
			"year":          trend.Year,
			"month":         trend.Month,
			"totalAmount":   trend.TotalAmount,
			"donationCount": trend.DonationCount,
			"averageAmount": trend.AverageAmount,
		})
	}

	methods := make([]gin.H, 0, len(report.PaymentMethods))
	for _, method := range report.PaymentMethods {
		methods = append(methods, gin.H{
			"method":        method.Method,
			"totalAmount":   method.TotalAmount,
			"donationCount": method.DonationCount,
			"percentage":    method.Percentage,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"overall": gin.H{
			"totalAmount":    report.Overall.TotalAmount,
			"totalDonations": report.Overall.TotalDonations,
			"averageAmount":  report.Overall.AverageAmount,
			"maxAmount":      report.Overall.MaxAmount,
			"minAmount":      report.Overall.MinAmount,
		},
		"trends":         trends,
		"paymentMethods": methods,
	})
}

func (h HandlerSet) ExportDonations(c *gin.Context) {
	start, err := parseDateQuery(c, "startDate")
	if err != nil {
		validationError(c, "invalid startDate")
		return
	}
	end, err := parseDateQuery(c, "endDate")
	if err != nil {
		validationError(c, "invalid endDate")
		return
	}

	result, err := h.exports.ExportDonations(c.Request.Context(), start, end)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"objectKey":   result.ObjectKey,
		"downloadUrl": result.DownloadURL,
		"recordCount": result.RecordCount,
	})
}

// DonationWebhook acknowledges payment-processor callbacks. Processor
// integration is out of scope; the payload is logged and dropped.
func (h HandlerSet) DonationWebhook(c *gin.Context) {
	var payload map[string]any
	_ = c.ShouldBindJSON(&payload)

	h.log.Info().Interface("payload", payload).Str("ip", c.ClientIP()).Msg("payment webhook received")

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func toDonationResponse(donation models.Donation) donationResponse {
	resp := donationResponse{
		ID:            donation.ID,
		DonorName:     donation.DonorName,
		DonorEmail:    donation.DonorEmail,
		Amount:        donation.Amount,
		Currency:      string(donation.Currency),
		Message:       donation.Message,
		IsAnonymous:   donation.IsAnonymous,
		TransactionID: donation.TransactionID,
		Status:        string(donation.Status),
		PaymentMethod: string(donation.PaymentMethod),
		ProcessedAt:   donation.ProcessedAt,
		RefundedAt:    donation.RefundedAt,
		CreatedAt:     donation.CreatedAt,
	}
	if donation.IsAnonymous {
		resp.DonorName = "Anonymous"
		resp.DonorEmail = ""
	}
	return resp
}
