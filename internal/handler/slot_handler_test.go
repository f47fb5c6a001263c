package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ustozhub/ustozhub-api/internal/dto"
	"github.com/ustozhub/ustozhub-api/pkg/config"
	appErrors "github.com/ustozhub/ustozhub-api/pkg/errors"
)

type slotGeneratorMock struct {
	response *dto.SlotsResponse
	err      error
	query    dto.SlotQuery
}

func (m *slotGeneratorMock) Generate(ctx context.Context, query dto.SlotQuery) (*dto.SlotsResponse, error) {
	m.query = query
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func slotTestConfig() config.BookingConfig {
	return config.BookingConfig{
		AllowedDurations: []int{30, 60, 90, 120},
		DefaultDuration:  60,
		SlotStepMinutes:  30,
		DefaultTimezone:  "Asia/Tashkent",
	}
}

func newSlotContext(t *testing.T, target string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodGet, target, nil)
	require.NoError(t, err)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "t1"}}
	return c, w
}

func TestSlotHandlerList(t *testing.T) {
	startAt := time.Date(2025, 6, 2, 4, 0, 0, 0, time.UTC)
	mock := &slotGeneratorMock{response: &dto.SlotsResponse{
		Slots: []dto.Slot{{
			StartAt:   startAt,
			EndAt:     startAt.Add(time.Hour),
			Duration:  60,
			Available: true,
		}},
		Timezone: "Asia/Tashkent",
		Duration: 60,
		Teacher:  dto.SlotTeacherInfo{ID: "t1", MinNoticeHours: 12, MaxAdvanceDays: 30, Timezone: "Asia/Tashkent"},
	}}
	handler := NewSlotHandler(mock, nil, slotTestConfig())

	c, w := newSlotContext(t, "/teachers/t1/slots?startDate=2025-06-02&endDate=2025-06-02")
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "t1", mock.query.TeacherID)
	assert.Equal(t, 60, mock.query.Duration)

	var envelope struct {
		Data dto.SlotsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data.Slots, 1)
	assert.Equal(t, "Asia/Tashkent", envelope.Data.Timezone)
	assert.Equal(t, "t1", envelope.Data.Teacher.ID)
	// 04:00 UTC renders as 09:00 in the default display zone (UTC+5).
	assert.Equal(t, "09:00", envelope.Data.Slots[0].StartAt.Format("15:04"))
}

func TestSlotHandlerListDisplayTimezone(t *testing.T) {
	startAt := time.Date(2025, 6, 2, 4, 0, 0, 0, time.UTC)
	mock := &slotGeneratorMock{response: &dto.SlotsResponse{
		Slots:    []dto.Slot{{StartAt: startAt, EndAt: startAt.Add(time.Hour), Duration: 60, Available: true}},
		Timezone: "Asia/Tashkent",
		Duration: 60,
	}}
	handler := NewSlotHandler(mock, nil, slotTestConfig())

	c, w := newSlotContext(t, "/teachers/t1/slots?startDate=2025-06-02&endDate=2025-06-02&timezone=UTC")
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data dto.SlotsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "UTC", envelope.Data.Timezone)
	assert.Equal(t, "04:00", envelope.Data.Slots[0].StartAt.Format("15:04"))
}

func TestSlotHandlerListBadDates(t *testing.T) {
	handler := NewSlotHandler(&slotGeneratorMock{}, nil, slotTestConfig())

	cases := []struct {
		name   string
		target string
	}{
		{"missing dates", "/teachers/t1/slots"},
		{"malformed start", "/teachers/t1/slots?startDate=02-06-2025&endDate=2025-06-02"},
		{"malformed duration", "/teachers/t1/slots?startDate=2025-06-02&endDate=2025-06-02&duration=sixty"},
		{"unknown timezone", "/teachers/t1/slots?startDate=2025-06-02&endDate=2025-06-02&timezone=Mars/Olympus"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, w := newSlotContext(t, tc.target)
			handler.List(c)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestSlotHandlerListServiceError(t *testing.T) {
	mock := &slotGeneratorMock{err: appErrors.Clone(appErrors.ErrNotFound, "teacher not found")}
	handler := NewSlotHandler(mock, nil, slotTestConfig())

	c, w := newSlotContext(t, "/teachers/t1/slots?startDate=2025-06-02&endDate=2025-06-02")
	handler.List(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
