package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-broadcast-relay/internal/application/facade"
	"go-broadcast-relay/internal/infrastructure/hub"
	"go-broadcast-relay/internal/infrastructure/logger"
)

type stubConnection struct {
	id  string
	err error
}

func (c *stubConnection) ID() string   { return c.id }
func (c *stubConnection) Type() string { return "stub" }
func (c *stubConnection) Send(context.Context, *hub.Message) error {
	return c.err
}

func setupRouter(t *testing.T, maxTextSize int) (*gin.Engine, *hub.Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.NewNop()
	h := hub.New(log, nil, nil)
	handler := NewBroadcastHandler(facade.NewRelayApplicationService(h, maxTextSize, log), log)

	router := gin.New()
	router.GET("/hub/status", handler.Status)
	router.POST("/api/v1/broadcast", handler.Broadcast)
	router.GET("/api/v1/connections", handler.GetConnections)
	return router, h
}

func TestBroadcast_ReportsPartialFailure(t *testing.T) {
	router, h := setupRouter(t, 0)
	h.OnConnect(&stubConnection{id: "good"})
	h.OnConnect(&stubConnection{id: "bad", err: errors.New("connection reset")})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/broadcast", strings.NewReader(`{"text":"hi all"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp BroadcastResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "broadcasted", resp.Status)
	assert.NotEmpty(t, resp.MessageID)
	assert.Equal(t, 2, resp.Attempted)
	assert.Equal(t, 1, resp.Delivered)
	require.Len(t, resp.Failures, 1)
	assert.Equal(t, "bad", resp.Failures[0].ConnectionID)
	assert.Equal(t, "connection reset", resp.Failures[0].Error)

	assert.Equal(t, 2, h.ConnectionCount())
}

func TestBroadcast_NoConnections(t *testing.T) {
	router, _ := setupRouter(t, 0)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/broadcast", strings.NewReader(`{"text":"anyone?"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp BroadcastResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Attempted)
	assert.Empty(t, resp.Failures)
}

func TestBroadcast_BadRequests(t *testing.T) {
	router, _ := setupRouter(t, 4)

	for name, body := range map[string]string{
		"malformed": `{"text":`,
		"missing":   `{}`,
		"too long":  `{"text":"hello"}`,
	} {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/broadcast", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestStatusAndConnections(t *testing.T) {
	router, h := setupRouter(t, 0)
	h.OnConnect(&stubConnection{id: "one"})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/hub/status", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","hub_running":true,"connections":1}`, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/connections", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"total_connections":1,"connections":[{"id":"one","type":"stub"}]}`, w.Body.String())

	require.NoError(t, h.Shutdown(context.Background()))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/hub/status", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
