package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grayson-dev/gcis-api/internal/middleware"
	"github.com/grayson-dev/gcis-api/internal/models"
	appErrors "github.com/grayson-dev/gcis-api/pkg/errors"
)

type scheduleServiceMock struct {
	listResp   []models.Schedule
	listErr    error
	getResp    *models.Schedule
	getErr     error
	createResp *models.Schedule
	createErr  error
	lastFilter models.ScheduleFilter
	lastInput  models.ScheduleInput
	lastActor  int64
}

func (m *scheduleServiceMock) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, *models.Pagination, error) {
	m.lastFilter = filter
	return m.listResp, &models.Pagination{Page: 1, PageSize: 50, TotalCount: len(m.listResp)}, m.listErr
}

func (m *scheduleServiceMock) Get(ctx context.Context, id int64) (*models.Schedule, error) {
	return m.getResp, m.getErr
}

func (m *scheduleServiceMock) Create(ctx context.Context, input models.ScheduleInput, actorID int64) (*models.Schedule, error) {
	m.lastInput = input
	m.lastActor = actorID
	return m.createResp, m.createErr
}

func (m *scheduleServiceMock) Update(ctx context.Context, id int64, input models.ScheduleInput, actorID int64) (*models.Schedule, error) {
	return nil, appErrors.ErrNotFound
}

func (m *scheduleServiceMock) Delete(ctx context.Context, id int64, actorID int64) error {
	return nil
}

func TestScheduleHandlerListParsesFilters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &scheduleServiceMock{listResp: []models.Schedule{{ID: 1, Section: "A01"}}}
	handler := NewScheduleHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/schedules?term_id=1&subject=CS&section=A&page=2&limit=10", nil)
	c.Request = req

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), mockSvc.lastFilter.TermID)
	assert.Equal(t, "CS", mockSvc.lastFilter.Subject)
	assert.Equal(t, "A", mockSvc.lastFilter.SectionPrefix)
	assert.Equal(t, 2, mockSvc.lastFilter.Page)
	assert.Equal(t, 10, mockSvc.lastFilter.PageSize)
}

func TestScheduleHandlerCreateStampsActor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &scheduleServiceMock{createResp: &models.Schedule{ID: 42, Section: "A01"}}
	handler := NewScheduleHandler(mockSvc)

	payload, _ := json.Marshal(models.ScheduleInput{TermID: 1, CourseID: 10, Section: "A01", Status: "OPEN"})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/schedules", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: 7, Username: "grayson"})

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, int64(7), mockSvc.lastActor)
	assert.Equal(t, "A01", mockSvc.lastInput.Section)
}

func TestScheduleHandlerCreateWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewScheduleHandler(&scheduleServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/schedules", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Create(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestScheduleHandlerGetInvalidID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewScheduleHandler(&scheduleServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/schedules/abc", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "abc"}}

	handler.Get(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScheduleHandlerCreateConflictPassesThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &scheduleServiceMock{createErr: appErrors.ErrConflict}
	handler := NewScheduleHandler(mockSvc)

	payload, _ := json.Marshal(models.ScheduleInput{TermID: 1, CourseID: 10, Section: "A01", Status: "OPEN"})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/schedules", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: 7})

	handler.Create(c)
	require.Equal(t, http.StatusConflict, w.Code)
}
