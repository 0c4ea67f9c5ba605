package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping() error { return p.err }

func TestSystemHandler_GetSystemInfo(t *testing.T) {
	h := NewSystemHandler("CRM API", "1.2.3", nil)
	w := performRequest(t, http.MethodGet, "/system/info", nil, h.GetSystemInfo)

	assert.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Success bool               `json:"success"`
		Data    SystemInfoResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "CRM API", body.Data.Name)
	assert.Equal(t, "1.2.3", body.Data.Version)
	assert.NotEmpty(t, body.Data.GoVersion)
}

func TestSystemHandler_Ping(t *testing.T) {
	h := NewSystemHandler("CRM API", "dev", nil)
	w := performRequest(t, http.MethodGet, "/system/ping", nil, h.Ping)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pong")
}

func TestSystemHandler_Health(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		h := NewSystemHandler("CRM API", "dev", stubPinger{})
		w := performRequest(t, http.MethodGet, "/health", nil, h.Health)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"healthy"`)
	})

	t.Run("database down", func(t *testing.T) {
		h := NewSystemHandler("CRM API", "dev", stubPinger{err: errors.New("connection refused")})
		w := performRequest(t, http.MethodGet, "/health", nil, h.Health)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), `"database":"error"`)
	})
}

// performRequest runs a single handler on a fresh engine
func performRequest(t *testing.T, method, path string, body []byte, handler gin.HandlerFunc, mw ...gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	engine := gin.New()
	engine.Handle(method, path, append(mw, handler)...)
	req := httptest.NewRequest(method, path, bytesReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}
