package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	applogger "ArbBoard/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingRequest struct {
	Name  string `query:"name" validate:"required"`
	Count int    `query:"count" default:"3" validate:"gte=1,lte=10"`
}

type pingHandler struct{}

func (pingHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ping", func(c echo.Context) error {
		var req pingRequest
		if errs := ReadAndValidateRequest(c, &req); errs != nil {
			return BadRequestResponse(c, errs)
		}
		return SuccessResponse(c, req)
	})
	e.GET("/fail", func(c echo.Context) error {
		return AppErrorResponse(c, fmt.Errorf("wrapped: %w", UnprocessableError("ERR_NO_DATA", "nothing to show").WithParam("rows", 0)))
	})
	e.GET("/boom", func(c echo.Context) error {
		panic("kaboom")
	})
	e.GET("/opaque", func(c echo.Context) error {
		return AppErrorResponse(c, errors.New("db exploded"))
	})
}

func newTestServer(t *testing.T, opts ...ServerOption) (*Server, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	opts = append([]ServerOption{WithRegistry(reg)}, opts...)
	return NewServer(applogger.Nop(), []Handler{pingHandler{}}, opts...), reg
}

func do(t *testing.T, s *Server, method, target string, hdr map[string]string) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	var body APIResponse
	if rec.Body.Len() > 0 && rec.Header().Get(echo.HeaderContentType) != "" {
		_ = json.Unmarshal(rec.Body.Bytes(), &body)
	}
	return rec, body
}

func TestReadAndValidateRequestAppliesDefaults(t *testing.T) {
	s, _ := newTestServer(t)
	rec, body := do(t, s, http.MethodGet, "/ping?name=x", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusOK, body.Status)
	data := body.Data.(map[string]interface{})
	assert.Equal(t, float64(3), data["Count"])
}

func TestReadAndValidateRequestReportsQueryNames(t *testing.T) {
	s, _ := newTestServer(t)
	rec, _ := do(t, s, http.MethodGet, "/ping?count=50", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Status int               `json:"status"`
		Data   []ValidationError `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusBadRequest, body.Status)
	require.Len(t, body.Data, 2)
	assert.Equal(t, "ERR_REQUIRED", body.Data[0].Code)
	assert.Equal(t, "name", body.Data[0].Field)
	assert.Equal(t, "ERR_LTE", body.Data[1].Code)
	assert.Equal(t, "count", body.Data[1].Field)
	assert.Equal(t, "10", body.Data[1].Params["max"])
}

func TestReadAndValidateRequestBindError(t *testing.T) {
	s, _ := newTestServer(t)
	rec, _ := do(t, s, http.MethodGet, "/ping?name=x&count=many", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_BIND")
}

func TestAppErrorResponseUsesStatus(t *testing.T) {
	s, _ := newTestServer(t)
	rec, _ := do(t, s, http.MethodGet, "/fail", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body struct {
		Data []AppError `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "ERR_NO_DATA", body.Data[0].Code)
	assert.Equal(t, float64(0), body.Data[0].Params["rows"])

	rec, body2 := do(t, s, http.MethodGet, "/opaque", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Something went wrong", body2.Data)
	assert.NotContains(t, rec.Body.String(), "db exploded")
}

func TestRecoverTurnsPanicInto500(t *testing.T) {
	s, _ := newTestServer(t)
	rec, body := do(t, s, http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, http.StatusInternalServerError, body.Status)
}

func TestCORS(t *testing.T) {
	s, _ := newTestServer(t, WithAllowOrigins([]string{"https://board.example"}))

	rec, _ := do(t, s, http.MethodOptions, "/ping", map[string]string{echo.HeaderOrigin: "https://board.example"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://board.example", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))

	rec, _ = do(t, s, http.MethodGet, "/ping?name=x", map[string]string{echo.HeaderOrigin: "https://evil.example"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestMetricsMiddlewareAndEndpoint(t *testing.T) {
	s, reg := newTestServer(t)
	do(t, s, http.MethodGet, "/ping?name=x", nil)
	do(t, s, http.MethodGet, "/ping", nil)

	n, err := testutil.GatherAndCount(reg, "arbboard_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n) // one series per status

	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `arbboard_http_requests_total{method="GET",route="/ping",status="200"} 1`)
}

func TestMetricsPathDisabled(t *testing.T) {
	s, _ := newTestServer(t, WithMetricsPath(""))
	rec, _ := do(t, s, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServerStartStop(t *testing.T) {
	s, _ := newTestServer(t, WithHost("127.0.0.1"), WithPort(0))
	require.NoError(t, s.Start())
	require.NoError(t, s.Stop(context.Background()))
}

func TestClientFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/json":
			assert.Equal(t, "arbboard", r.Header.Get("User-Agent"))
			assert.Equal(t, "RB0", r.URL.Query().Get("symbol"))
			_, _ = w.Write([]byte(`{"ok":true}`))
		case "/raw":
			_, _ = w.Write([]byte(`var x=([]);`))
		default:
			http.Error(w, "nope", http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	c := NewClient(WithHeader("User-Agent", "arbboard"))
	ctx := context.Background()

	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, c.FetchJSON(ctx, &RequestOptions{
		URL:   srv.URL + "/json",
		Query: url.Values{"symbol": {"RB0"}},
	}, &out))
	assert.True(t, out.OK)

	raw, err := c.Fetch(ctx, &RequestOptions{Method: MethodGet, URL: srv.URL + "/raw"})
	require.NoError(t, err)
	assert.Equal(t, "var x=([]);", string(raw))

	_, err = c.Fetch(ctx, &RequestOptions{URL: srv.URL + "/other"})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.Code)

	small := NewClient(WithMaxBody(4))
	_, err = small.Fetch(ctx, &RequestOptions{URL: srv.URL + "/raw"})
	assert.ErrorContains(t, err, "exceeds 4 bytes")
}
