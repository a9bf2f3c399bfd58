package handlers

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queryContext(t *testing.T, rawQuery string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?"+rawQuery, nil)
	return c
}

func TestParsePageParams(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		params := parsePageParams(queryContext(t, ""))
		assert.Equal(t, pageParams{Page: 1, Limit: 20}, params)
		assert.Equal(t, 0, params.Offset())
	})

	t.Run("explicit page and limit", func(t *testing.T) {
		params := parsePageParams(queryContext(t, "page=3&limit=10"))
		assert.Equal(t, 3, params.Page)
		assert.Equal(t, 10, params.Limit)
		assert.Equal(t, 20, params.Offset())
	})

	t.Run("limit capped at maximum", func(t *testing.T) {
		params := parsePageParams(queryContext(t, "limit=500"))
		assert.Equal(t, 100, params.Limit)
	})

	t.Run("bogus values fall back to defaults", func(t *testing.T) {
		params := parsePageParams(queryContext(t, "page=abc&limit=-4"))
		assert.Equal(t, 1, params.Page)
		assert.Equal(t, 20, params.Limit)
	})

	t.Run("ascending sort", func(t *testing.T) {
		params := parsePageParams(queryContext(t, "sort=amount"))
		assert.Equal(t, "amount", params.SortBy)
		assert.False(t, params.SortDesc)
	})

	t.Run("descending sort", func(t *testing.T) {
		params := parsePageParams(queryContext(t, "sort=-created_at"))
		assert.Equal(t, "created_at", params.SortBy)
		assert.True(t, params.SortDesc)
	})
}

func TestParseDateQuery(t *testing.T) {
	t.Run("absent", func(t *testing.T) {
		got, err := parseDateQuery(queryContext(t, ""), "start")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("plain date", func(t *testing.T) {
		got, err := parseDateQuery(queryContext(t, "start=2026-08-01"), "start")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), *got)
	})

	t.Run("rfc3339", func(t *testing.T) {
		got, err := parseDateQuery(queryContext(t, "start=2026-08-01T10%3A30%3A00Z"), "start")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 10, got.Hour())
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := parseDateQuery(queryContext(t, "start=yesterday"), "start")
		assert.Error(t, err)
	})
}

func TestBuildPagination(t *testing.T) {
	t.Run("middle page", func(t *testing.T) {
		meta := buildPagination(pageParams{Page: 2, Limit: 10}, 45)
		assert.Equal(t, 5, meta.TotalPages)
		assert.True(t, meta.HasNext)
		assert.True(t, meta.HasPrev)
	})

	t.Run("last page", func(t *testing.T) {
		meta := buildPagination(pageParams{Page: 5, Limit: 10}, 45)
		assert.False(t, meta.HasNext)
		assert.True(t, meta.HasPrev)
	})

	t.Run("exact multiple", func(t *testing.T) {
		meta := buildPagination(pageParams{Page: 1, Limit: 10}, 40)
		assert.Equal(t, 4, meta.TotalPages)
	})

	t.Run("empty result set", func(t *testing.T) {
		meta := buildPagination(pageParams{Page: 1, Limit: 20}, 0)
		assert.Equal(t, 0, meta.TotalPages)
		assert.False(t, meta.HasNext)
		assert.False(t, meta.HasPrev)
	})
}
