package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"givehub/api/internal/apperr"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// respondError writes exactly one error body. Operational errors keep their
// message and status; anything else is logged and replaced with a generic
// 500 so internals never leak.
func (h HandlerSet) respondError(c *gin.Context, err error) {
	if appErr := apperr.From(err); appErr != nil {
		body := gin.H{"code": appErr.Code, "message": appErr.Message}
		if len(appErr.Fields) > 0 {
			body["fields"] = appErr.Fields
		}
		c.JSON(appErr.Status(), gin.H{"error": body})
		return
	}

	h.log.Error().
		Err(err).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Str("client_ip", c.ClientIP()).
		Msg("unexpected error")

	c.JSON(http.StatusInternalServerError, gin.H{
		"error": gin.H{"code": apperr.CodeInternal, "message": "something went wrong"},
	})
}

func errUnauthenticated() error {
	return apperr.AuthFailed("authentication required")
}

func validationError(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error": gin.H{"code": apperr.CodeValidationFailed, "message": message},
	})
}

// parseDateQuery accepts RFC 3339 or plain YYYY-MM-DD values.
func parseDateQuery(c *gin.Context, name string) (*time.Time, error) {
	value := c.Query(name)
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parsePositiveInt(value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("not a positive integer: %q", value)
	}
	return v, nil
}

type pageParams struct {
	Page     int
	Limit    int
	SortBy   string
	SortDesc bool
}

func (p pageParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// parsePageParams reads page/limit/sort. Sort takes "field" or "-field"
// for descending; unknown fields fall back to the repository default.
func parsePageParams(c *gin.Context) pageParams {
	params := pageParams{Page: 1, Limit: defaultPageSize}

	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 0 {
		params.Page = v
	}
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		params.Limit = v
		if params.Limit > maxPageSize {
			params.Limit = maxPageSize
		}
	}

	if sort := c.Query("sort"); sort != "" {
		if strings.HasPrefix(sort, "-") {
			params.SortDesc = true
			sort = strings.TrimPrefix(sort, "-")
		}
		params.SortBy = sort
	}

	return params
}

type paginationMeta struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

func buildPagination(params pageParams, total int) paginationMeta {
	totalPages := 0
	if total > 0 {
		totalPages = (total + params.Limit - 1) / params.Limit
	}
	return paginationMeta{
		Page:       params.Page,
		Limit:      params.Limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    params.Page < totalPages,
		HasPrev:    params.Page > 1 && total > 0,
	}
}
