package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grayson-dev/gcis-api/internal/middleware"
	"github.com/grayson-dev/gcis-api/internal/models"
	"github.com/grayson-dev/gcis-api/internal/service"
)

type loadRunnerMock struct {
	report   *service.LoadReport
	err      error
	lastOpts service.LoadOptions
	calls    int
}

func (m *loadRunnerMock) Run(ctx context.Context, opts service.LoadOptions) (*service.LoadReport, error) {
	m.calls++
	m.lastOpts = opts
	return m.report, m.err
}

type invalidatorMock struct {
	calls int
}

func (m *invalidatorMock) Invalidate(ctx context.Context) { m.calls++ }

func TestLoadHandlerDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	runner := &loadRunnerMock{}
	handler := NewLoadHandler(runner, &invalidatorMock{}, false)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/load", nil)
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: 7})

	handler.Run(c)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Zero(t, runner.calls)
}

func TestLoadHandlerRunInvalidatesCache(t *testing.T) {
	gin.SetMode(gin.TestMode)
	runner := &loadRunnerMock{report: &service.LoadReport{RunID: "run-1", Tables: map[string]int{"cams_schedules": 12}}}
	inv := &invalidatorMock{}
	handler := NewLoadHandler(runner, inv, true)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body := bytes.NewBufferString(`{"reset":true,"seed_local":true}`)
	req, _ := http.NewRequest(http.MethodPost, "/load", body)
	req.Header.Set("Content-Type", "application/json")
	req.ContentLength = int64(body.Len())
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: 7})

	handler.Run(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, runner.lastOpts.Reset)
	assert.True(t, runner.lastOpts.SeedLocal)
	assert.Equal(t, 1, inv.calls)
	assert.Contains(t, w.Body.String(), "run-1")
}

func TestLoadHandlerEmptyBodyUsesDefaults(t *testing.T) {
	gin.SetMode(gin.TestMode)
	runner := &loadRunnerMock{report: &service.LoadReport{RunID: "run-2", Tables: map[string]int{}}}
	handler := NewLoadHandler(runner, &invalidatorMock{}, true)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/load", nil)
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: 7})

	handler.Run(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, runner.lastOpts.Reset)
	assert.False(t, runner.lastOpts.SeedLocal)
}

func TestLoadHandlerWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	runner := &loadRunnerMock{}
	handler := NewLoadHandler(runner, &invalidatorMock{}, true)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/load", nil)
	c.Request = req

	handler.Run(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, runner.calls)
}
