package shared

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatorCollectsSortedIssues(t *testing.T) {
	v := NewValidator()
	v.ID("employeeId", "not-a-uuid")
	v.Year("year", 1800, 1900, 2200)
	v.Enum("type", "yearly", []string{"WEEKLY", "BIWEEKLY", "MONTHLY"}, "unsupported period type")
	v.Enum("status", "processed", []string{"PROCESSED"}, "unsupported status")

	require.True(t, v.HasIssues())
	issues := v.Issues()
	require.Len(t, issues, 3)
	assert.Equal(t, "employeeId", issues[0].Field)
	assert.Equal(t, "type", issues[1].Field)
	assert.Equal(t, "year", issues[2].Field)
}

func TestValidatorHoursAndTime(t *testing.T) {
	v := NewValidator()
	good, bad, empty := "7.5", "-1", ""
	assert.Equal(t, "7.5", v.Hours("regularHours", &good).Decimal.String())
	assert.False(t, v.Hours("overtimeHours", &bad).Valid)
	assert.False(t, v.Hours("x", &empty).Valid)
	assert.False(t, v.Hours("y", nil).Valid)
	assert.Nil(t, v.Time("clockIn", ""))
	assert.NotNil(t, v.Time("clockOut", "2024-01-05T17:00:00Z"))
	assert.Nil(t, v.Time("breakStart", "noon"))

	issues := v.Issues()
	require.Len(t, issues, 2)
	assert.Equal(t, "breakStart", issues[0].Field)
	assert.Equal(t, "overtimeHours", issues[1].Field)
}

func TestValidatorDateOrder(t *testing.T) {
	v := NewValidator()
	start, ok := v.Date("startDate", "2024-01-15")
	require.True(t, ok)
	end, ok := v.Date("endDate", "2024-01-01")
	require.True(t, ok)
	v.DateOrder("startDate", start, "endDate", end)
	assert.Len(t, v.Issues(), 2)
}

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	assert.Equal(t, []int{3, 4}, Page(items, Pagination{Limit: 2, Offset: 2}))
	assert.Equal(t, []int{5}, Page(items, Pagination{Limit: 10, Offset: 4}))
	assert.Empty(t, Page(items, Pagination{Limit: 10, Offset: 9}))
}

func TestParsePaginationClamps(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=1000&offset=-3", nil)
	p := ParsePagination(req, 50, 200)
	assert.Equal(t, 200, p.Limit)
	assert.Equal(t, 0, p.Offset)
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Year int `json:"year"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"year":2024}`))
	assert.True(t, DecodeJSON(httptest.NewRecorder(), req, &dst, "r"))
	assert.Equal(t, 2024, dst.Year)

	req = httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"year":`))
	rec := httptest.NewRecorder()
	assert.False(t, DecodeJSON(rec, req, &dst, "r"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"year":2024,"extra":true}`))
	rec = httptest.NewRecorder()
	assert.False(t, DecodeJSON(rec, req, &dst, "r"))

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"year":2024}`))
	req.Body = http.MaxBytesReader(rec, req.Body, 4)
	assert.False(t, DecodeJSON(rec, req, &dst, "r"))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2024-03-04")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-04T00:00:00Z", got.Format("2006-01-02T15:04:05Z07:00"))

	got, err = ParseDate("2024-03-04T23:30:00-06:00")
	require.NoError(t, err)
	assert.Equal(t, 4, got.Day())
	assert.Equal(t, 0, got.Hour())

	got, err = ParseDate("")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = ParseDate("04/03/2024")
	assert.Error(t, err)
}
