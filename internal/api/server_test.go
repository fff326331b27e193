package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"report-service-go/internal/api/handlers"
	"report-service-go/internal/domain/adapter"
	"report-service-go/internal/domain/document"
	"report-service-go/internal/domain/pdf"
	"report-service-go/internal/pkg/circuitbreaker"
	"report-service-go/internal/pkg/drawing"
	"report-service-go/internal/pkg/enginepool"
	"report-service-go/internal/pkg/statistics"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const documentBody = `{
  "config": {"title": "Lab Inspection Report", "company": "EHI", "reportNumber": "EHI-LAB-1", "type": "lab-inspection"},
  "content": {
    "header": {"title": "Lab Inspection Report", "date": "2024-03-05"},
    "sections": [
      {"type": "form", "title": "Material Details", "content": {"supplierName": "Punjab Cotton Mills", "quantity": 120}},
      {"type": "parameters", "title": "Testing Parameters", "content": {"parameters": [
        {"testName": "Strength", "standard": "OK", "tolerance": "OK", "result": "OK"}
      ], "remarks": "All clear"}}
    ],
    "footer": {"inspector": {"name": "Rahim"}, "reportNumber": "EHI-LAB-1"}
  }
}`

// stubService returns canned results and remembers what it was asked.
type stubService struct {
	mu      sync.Mutex
	res     *pdf.Result
	err     error
	batch   []pdf.BatchResult
	lastCfg document.Config
	limit   int
}

func (s *stubService) Generate(ctx context.Context, cfg document.Config, content document.Content) (*pdf.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastCfg = cfg
	return s.res, s.err
}

func (s *stubService) GenerateBatch(ctx context.Context, reqs []pdf.Request, limit int) []pdf.BatchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limit = limit
	return s.batch
}

type stubPool struct{}

func (stubPool) Stats() enginepool.Stats {
	return enginepool.Stats{MaxSessions: 4, ActiveSessions: 1, IdleSessions: 2}
}

type stubBreaker struct{ state circuitbreaker.State }

func (b stubBreaker) State() circuitbreaker.State { return b.state }
func (b stubBreaker) IsHealthy() bool             { return b.state == circuitbreaker.StateClosed }

type stubCounter struct{ since time.Time }

func (c *stubCounter) BackendCounts(ctx context.Context, since time.Time) (map[string]uint64, error) {
	c.since = since
	return map[string]uint64{"primary": 7, "fallback": 2}, nil
}

func newTestServer(t *testing.T, svc pdf.Service, deps Deps) (*Server, *statistics.Statistics) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	stats := statistics.New()
	deps.Service = svc
	deps.Stats = stats
	if deps.BatchLimit == 0 {
		deps.BatchLimit = 3
	}
	srv := NewServer(NewHandlers(deps), Options{RequestTimeout: 5 * time.Second, Tracker: stats})
	srv.SetupRoutes()
	return srv, stats
}

func do(srv *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestGenerateDocument_FallbackOnlyEndToEnd(t *testing.T) {
	gen := pdf.NewGenerator(nil, pdf.NewFallbackRenderer(drawing.New()))
	srv, stats := newTestServer(t, gen, Deps{})

	w := do(srv, http.MethodPost, "/api/v1/documents", documentBody)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, "fallback", w.Header().Get("X-Render-Backend"))
	assert.Equal(t, "1", w.Header().Get("X-Page-Count"))
	assert.NotEmpty(t, w.Header().Get("X-Generation-ID"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="EHI-LAB-1.pdf"`)
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

	assert.Equal(t, uint64(1), stats.Summary().Requests.Total)
}

func TestGenerateDocument_MalformedContent(t *testing.T) {
	gen := pdf.NewGenerator(nil, pdf.NewFallbackRenderer(drawing.New()))
	srv, _ := newTestServer(t, gen, Deps{})

	body := `{"config": {"reportNumber": "R-1"}, "content": {"sections": [
		{"type": "parameters", "title": "Testing", "content": {"parameters": "not a list"}}
	]}}`
	w := do(srv, http.MethodPost, "/api/v1/documents", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], document.ErrMalformedContent.Error())
}

func TestGenerateDocument_InvalidJSON(t *testing.T) {
	srv, stats := newTestServer(t, &stubService{}, Deps{})

	w := do(srv, http.MethodPost, "/api/v1/documents", `{"config":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], handlers.ErrInvalidRequest.Error())
	assert.Equal(t, uint64(1), stats.Summary().Requests.Failed)
}

func TestGenerateDocument_BothRenderersFailed(t *testing.T) {
	svc := &stubService{err: &pdf.GenerationError{
		Primary:  errors.New("engine unavailable"),
		Fallback: errors.New("out of memory"),
	}}
	srv, _ := newTestServer(t, svc, Deps{})

	w := do(srv, http.MethodPost, "/api/v1/documents", documentBody)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, "engine unavailable", body["primary_error"])
	assert.Equal(t, "out of memory", body["fallback_error"])
}

func TestGenerateDocument_Deadline(t *testing.T) {
	svc := &stubService{err: &pdf.GenerationError{
		Primary:  context.DeadlineExceeded,
		Fallback: context.DeadlineExceeded,
	}}
	srv, _ := newTestServer(t, svc, Deps{})

	w := do(srv, http.MethodPost, "/api/v1/documents", documentBody)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestGenerateBatch(t *testing.T) {
	svc := &stubService{batch: []pdf.BatchResult{
		{Result: &pdf.Result{PDF: []byte("%PDF-1"), Backend: pdf.BackendPrimary, Pages: 1, GenerationID: "g-1"}},
		{Err: &document.ValidationError{Problems: []string{"section 1: section is nil"}}},
	}}
	srv, _ := newTestServer(t, svc, Deps{BatchLimit: 2})

	w := do(srv, http.MethodPost, "/api/v1/documents/batch", `{"documents": [`+documentBody+`,`+documentBody+`]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Succeeded int `json:"succeeded"`
		Failed    int `json:"failed"`
		Documents []struct {
			GenerationID string `json:"generation_id"`
			Backend      string `json:"backend"`
			PDF          []byte `json:"pdf"`
			Error        *struct {
				Problems []string `json:"problems"`
			} `json:"error"`
		} `json:"documents"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, 1, resp.Succeeded)
	assert.Equal(t, 1, resp.Failed)
	require.Len(t, resp.Documents, 2)
	assert.Equal(t, "g-1", resp.Documents[0].GenerationID)
	assert.Equal(t, []byte("%PDF-1"), resp.Documents[0].PDF)
	require.NotNil(t, resp.Documents[1].Error)
	assert.Equal(t, []string{"section 1: section is nil"}, resp.Documents[1].Error.Problems)
	assert.Equal(t, 2, svc.limit)
}

func TestGenerateBatch_Empty(t *testing.T) {
	srv, _ := newTestServer(t, &stubService{}, Deps{})

	w := do(srv, http.MethodPost, "/api/v1/documents/batch", `{"documents": []}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportRoutes(t *testing.T) {
	svc := &stubService{res: &pdf.Result{PDF: []byte("%PDF"), Backend: pdf.BackendFallback, GenerationID: "g"}}
	srv, _ := newTestServer(t, svc, Deps{})

	w := do(srv, http.MethodPost, "/api/v1/reports/lab-inspection",
		`{"company": "EHI", "reportNumber": "EHI-LAB-9", "moisturePercent": 7, "moistureTolerance": 8, "checkedBy": {"name": "Rahim"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "fallback", w.Header().Get("X-Render-Backend"))
	assert.Equal(t, adapter.LabInspectionType, svc.lastCfg.Type)
	assert.Equal(t, "EHI-LAB-9", svc.lastCfg.ReportNumber)

	w = do(srv, http.MethodPost, "/api/v1/reports/compliance-audit",
		`{"company": "EHI", "reportNumber": "EHI-AUD-1", "auditorName": "Sana", "checks": [{"requirement": "Labels", "compliant": true}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, adapter.ComplianceAuditType, svc.lastCfg.Type)
}

func TestStatistics(t *testing.T) {
	counter := &stubCounter{}
	srv, _ := newTestServer(t, &stubService{}, Deps{
		Engine: handlers.Engine{Pool: stubPool{}, Breaker: stubBreaker{state: circuitbreaker.StateClosed}},
		Log:    counter,
	})

	w := do(srv, http.MethodGet, "/api/v1/statistics?period=1h", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	engine := body["engine"].(map[string]any)
	assert.Equal(t, true, engine["enabled"])
	assert.Equal(t, "Closed", engine["circuit_breaker"])
	assert.Equal(t, float64(2), engine["sessions"].(map[string]any)["idle_sessions"])

	log := body["generation_log"].(map[string]any)
	assert.Equal(t, "1h0m0s", log["period"])
	assert.Equal(t, float64(7), log["by_backend"].(map[string]any)["primary"])
	assert.WithinDuration(t, time.Now().Add(-time.Hour), counter.since, 5*time.Second)
	assert.Contains(t, body, "statistics")
}

func TestHealth(t *testing.T) {
	srv, stats := newTestServer(t, &stubService{}, Deps{
		Engine: handlers.Engine{Pool: stubPool{}, Breaker: stubBreaker{state: circuitbreaker.StateOpen}},
	})

	w := do(srv, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "degraded", decode(t, w)["status"])
	assert.Equal(t, uint64(0), stats.Summary().Requests.Total, "probes are not tracked")

	disabled, _ := newTestServer(t, &stubService{}, Deps{})
	w = do(disabled, http.MethodGet, "/health", "")
	assert.Equal(t, "healthy", decode(t, w)["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, &stubService{}, Deps{})
	do(srv, http.MethodGet, "/health", "")

	w := do(srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `http_requests_total{method="GET",path="/health",status="200"}`)
}
