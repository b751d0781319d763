package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	httperr "github.com/aevon-lab/knocklog/internal/core/errors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func serve(s *Server, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[http.CanonicalHeaderKey(k)] = v
	}
	resp := httptest.NewRecorder()
	s.Engine.ServeHTTP(resp, req)
	return resp
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name           string
		health         HealthChecker
		expectedStatus int
		expectedState  string
	}{
		{name: "no backend", health: nil, expectedStatus: http.StatusOK, expectedState: "healthy"},
		{name: "backend up", health: pingFunc(func(context.Context) error { return nil }), expectedStatus: http.StatusOK, expectedState: "healthy"},
		{
			name:           "backend down",
			health:         pingFunc(func(context.Context) error { return errors.New("no such file") }),
			expectedStatus: http.StatusServiceUnavailable,
			expectedState:  "unhealthy",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := New(Options{Mode: "test", Health: tc.health})

			resp := serve(s, http.MethodGet, "/health", nil)
			require.Equal(t, tc.expectedStatus, resp.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
			require.Equal(t, tc.expectedState, body["status"])
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := New(Options{Mode: "test", MetricsPath: "/metrics"})
	serve(s, http.MethodGet, "/health", nil)

	resp := serve(s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.True(t, strings.Contains(resp.Body.String(), "knocklog_http_requests_total"))

	disabled := New(Options{Mode: "test"})
	require.Equal(t, http.StatusNotFound, serve(disabled, http.MethodGet, "/metrics", nil).Code)
}

func TestRequestID(t *testing.T) {
	s := New(Options{Mode: "test"})

	generated := serve(s, http.MethodGet, "/health", nil).Header().Get(RequestIDHeader)
	_, err := uuid.Parse(generated)
	require.NoError(t, err)

	supplied := uuid.NewString()
	echoed := serve(s, http.MethodGet, "/health", http.Header{RequestIDHeader: {supplied}}).Header().Get(RequestIDHeader)
	require.Equal(t, supplied, echoed)

	replaced := serve(s, http.MethodGet, "/health", http.Header{RequestIDHeader: {"not-a-uuid"}}).Header().Get(RequestIDHeader)
	require.NotEqual(t, "not-a-uuid", replaced)
}

func TestRateLimit(t *testing.T) {
	s := New(Options{Mode: "test", RateLimitRPS: 0.001, RateLimitBurst: 2})

	require.Equal(t, http.StatusOK, serve(s, http.MethodGet, "/health", nil).Code)
	require.Equal(t, http.StatusOK, serve(s, http.MethodGet, "/health", nil).Code)

	resp := serve(s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusTooManyRequests, resp.Code)

	var errResp httperr.ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &errResp))
	require.Equal(t, httperr.HttpRateLimitedError, errResp.ErrorType)
}

func TestRateLimit_EvictsIdleClients(t *testing.T) {
	now := time.Date(2026, 2, 11, 9, 0, 0, 0, time.UTC)
	limiters := newClientLimiters(1, 1, time.Minute, func() time.Time { return now })

	first := limiters.get("10.0.0.1")
	limiters.get("10.0.0.2")
	require.Equal(t, 2, limiters.size())
	require.Same(t, first, limiters.get("10.0.0.1"))

	now = now.Add(30 * time.Second)
	limiters.get("10.0.0.1")

	// 10.0.0.2 has been idle a full minute; 10.0.0.1 only thirty seconds.
	now = now.Add(30 * time.Second)
	limiters.get("10.0.0.3")
	require.Equal(t, 2, limiters.size())

	now = now.Add(2 * time.Minute)
	limiters.get("10.0.0.4")
	require.Equal(t, 1, limiters.size())
	require.NotSame(t, first, limiters.get("10.0.0.1"))
}

func TestServe_ShutdownCancelsInFlightRequests(t *testing.T) {
	s := New(Options{Mode: "test"})
	started := make(chan struct{})
	s.Engine.GET("/hold", func(c *gin.Context) {
		close(started)
		<-c.Request.Context().Done()
		c.Status(http.StatusNoContent)
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	served := make(chan error, 1)
	go func() { served <- s.Serve(ctx, ln) }()

	go func() {
		resp, err := http.Get("http://" + ln.Addr().String() + "/hold")
		if err == nil {
			resp.Body.Close()
		}
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("request never reached the handler")
	}

	begun := time.Now()
	cancel()
	select {
	case err := <-served:
		require.NoError(t, err)
		require.Less(t, time.Since(begun), 3*time.Second)
	case <-time.After(4 * time.Second):
		t.Fatal("shutdown waited on the open request")
	}
}
