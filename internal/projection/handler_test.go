package projection

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	v1 "github.com/aevon-lab/knocklog/internal/api/v1"
	"github.com/aevon-lab/knocklog/internal/core/clock"
	httperr "github.com/aevon-lab/knocklog/internal/core/errors"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newTestRouter(events staticReader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := NewService(events, clock.NewFixed(at(11, 12, 0), tokyo))
	r := gin.New()
	svc.RegisterRoutes(r)
	return r
}

func TestService_HandleGraph_StatusMapping(t *testing.T) {
	r := newTestRouter(staticReader{event(v1.CategoryPing, at(11, 9, 0))})

	tests := []struct {
		name           string
		query          string
		expectedStatus int
		expectedError  string
	}{
		{name: "default scope", query: "", expectedStatus: http.StatusOK},
		{name: "week scope", query: "?scope=week", expectedStatus: http.StatusOK},
		{name: "unknown scope returns 400", query: "?scope=year", expectedStatus: http.StatusBadRequest, expectedError: httperr.HttpInvalidScopeError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/graph"+tc.query, nil)
			resp := httptest.NewRecorder()
			r.ServeHTTP(resp, req)

			require.Equal(t, tc.expectedStatus, resp.Code)
			if tc.expectedError != "" {
				var errResp httperr.ErrorResponse
				require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &errResp))
				require.Equal(t, tc.expectedError, errResp.ErrorType)
			}
		})
	}
}

func TestService_HandleGraph_Body(t *testing.T) {
	r := newTestRouter(staticReader{
		event(v1.CategoryPing, at(11, 9, 0)),
		event(v1.CategoryAnswered, at(11, 9, 30)),
		event(v1.CategoryEntrance, at(11, 10, 15)),
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/graph?scope=day", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Scope  string                       `json:"scope"`
		Rows   []map[string]json.RawMessage `json:"rows"`
		Series map[string][]struct {
			X int `json:"x"`
			Y int `json:"y"`
		} `json:"series"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Equal(t, "day", body.Scope)
	require.Len(t, body.Rows, 2)
	require.JSONEq(t, "9", string(body.Rows[0]["hour"]))
	require.JSONEq(t, "1", string(body.Rows[0]["ping"]))
	require.JSONEq(t, "1", string(body.Rows[0]["answered"]))
	require.JSONEq(t, "0", string(body.Rows[0]["entrance"]))
	require.JSONEq(t, "10", string(body.Rows[1]["hour"]))
	require.Len(t, body.Series["entrance"], 2)
	require.Equal(t, 1, body.Series["entrance"][1].Y)
}

func TestService_HandleToday(t *testing.T) {
	r := newTestRouter(staticReader{
		event(v1.CategoryPing, at(10, 23, 0)),
		event(v1.CategoryPing, at(11, 9, 0)),
		event(v1.CategoryPing, at(11, 9, 5)),
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/counts/today", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Total  int               `json:"total"`
		Counts map[string]int    `json:"counts"`
		Shares map[string]string `json:"shares"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Equal(t, 2, body.Total)
	require.Equal(t, map[string]int{"ping": 2, "answered": 0, "entrance": 0}, body.Counts)
	require.Equal(t, "1", body.Shares["ping"])
	require.Equal(t, "0", body.Shares["answered"])
}
