package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"NavGuard/internal/domain/models"
	"NavGuard/internal/orchestrator"
	"NavGuard/internal/usecase"
	xhttp "NavGuard/pkg/http"
	xlogger "NavGuard/pkg/logger"
	"NavGuard/pkg/metrics"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPredictor struct {
	calls atomic.Int32
	fn    func(ctx context.Context) (models.AnalysisResult, error)
}

func (s *stubPredictor) Predict(ctx context.Context, _ models.TelemetryPayload) (models.AnalysisResult, error) {
	s.calls.Add(1)
	return s.fn(ctx)
}

type stubHealth struct{ err error }

func (s stubHealth) Health(context.Context) (models.ServiceHealth, error) {
	if s.err != nil {
		return models.ServiceHealth{}, s.err
	}
	return models.ServiceHealth{Status: "active", System: "NavAI-Guard"}, nil
}

func blocking(ctx context.Context) (models.AnalysisResult, error) {
	<-ctx.Done()
	return models.AnalysisResult{}, ctx.Err()
}

type testEnv struct {
	e     *echo.Echo
	orch  *orchestrator.Orchestrator
	clock *clockwork.FakeClock
	pred  *stubPredictor
}

func newEnv(t *testing.T, fn func(ctx context.Context) (models.AnalysisResult, error), health stubHealth) *testEnv {
	t.Helper()
	env := &testEnv{clock: clockwork.NewFakeClock(), pred: &stubPredictor{fn: fn}}
	env.orch = orchestrator.New(env.pred, orchestrator.WithClock(env.clock))
	t.Cleanup(env.orch.Close)

	uc := usecase.NewAnalysis(env.orch, health, metrics.Nop{}, xlogger.Nop())
	env.e = echo.New()
	NewAnalysisEchoHandler(xlogger.Nop(), uc, nil).RegisterRoutes(env.e)
	return env
}

const validBody = `{"timestamp_str":"27/02/2024 03:42:19","mmsi":"24700","latitude":"37.802","longitude":"-122.405","sog":"12.5","cog":"245.0","heading":"242.0"}`

func (env *testEnv) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

type snapshotResponse struct {
	Status int              `json:"status"`
	Data   usecase.Snapshot `json:"data"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestFormDefaults(t *testing.T) {
	env := newEnv(t, blocking, stubHealth{})
	rec := env.do(http.MethodGet, "/api/form/defaults", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data models.FormDefaults `json:"data"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, "27/02/2024 03:42:19", resp.Data.Timestamp)
	assert.Equal(t, "24700", resp.Data.MMSI)
	assert.Equal(t, "242.0", resp.Data.Heading)
}

func TestSubmitRejectsInvalidFields(t *testing.T) {
	env := newEnv(t, blocking, stubHealth{})
	body := strings.Replace(validBody, `"latitude":"37.802"`, `"latitude":"abc"`, 1)
	body = strings.Replace(body, `"sog":"12.5"`, `"sog":"  "`, 1)

	rec := env.do(http.MethodPost, "/api/analysis", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp xhttp.APIResponse400Err
	decode(t, rec, &resp)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "latitude", resp.Data[0].Field)
	assert.Equal(t, "ERR_INVALID_NUMBER", resp.Data[0].Code)
	assert.Equal(t, "sog", resp.Data[1].Field)
	assert.Equal(t, "ERR_REQUIRED", resp.Data[1].Code)
	assert.EqualValues(t, 0, env.pred.calls.Load())
	assert.Equal(t, models.PhaseIdle, env.orch.State().Phase)
}

func TestSubmitRejectsUnknownMode(t *testing.T) {
	env := newEnv(t, blocking, stubHealth{})
	rec := env.do(http.MethodPost, "/api/analysis?mode=later", validBody)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_ONEOF")
	assert.EqualValues(t, 0, env.pred.calls.Load())
}

func TestSubmitWaitSucceeds(t *testing.T) {
	env := newEnv(t, func(context.Context) (models.AnalysisResult, error) {
		return models.AnalysisResult{Anomaly: true, Score: 0.08, Threshold: 0.05, Status: "success"}, nil
	}, stubHealth{})

	rec := env.do(http.MethodPost, "/api/analysis", validBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp snapshotResponse
	decode(t, rec, &resp)
	assert.Equal(t, models.LifecycleSettled, resp.Data.Lifecycle)
	require.NotNil(t, resp.Data.Verdict)
	assert.Equal(t, models.SeverityHigh, resp.Data.Verdict.SeverityTier)
	assert.InDelta(t, 80.0, resp.Data.Verdict.GaugePercent, 1e-9)
	assert.Equal(t, models.LabelAnomaly, resp.Data.Verdict.Label)
}

func TestSubmitWaitMapsFailures(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"service", &models.ServiceError{StatusCode: 503, Detail: "Model not loaded"}, http.StatusUnprocessableEntity, "ERR_SERVICE", "Model not loaded"},
		{"transport", errors.New("connection refused"), http.StatusBadGateway, "ERR_UPSTREAM", models.MessageTransport},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newEnv(t, func(context.Context) (models.AnalysisResult, error) {
				return models.AnalysisResult{}, tc.err
			}, stubHealth{})

			rec := env.do(http.MethodPost, "/api/analysis?mode=wait", validBody)
			require.Equal(t, tc.status, rec.Code)

			var resp xhttp.APIResponse502Err
			decode(t, rec, &resp)
			require.Len(t, resp.Data, 1)
			assert.Equal(t, tc.code, resp.Data[0].Code)
			assert.Equal(t, tc.message, resp.Data[0].Message)
		})
	}
}

func TestSubmitWaitTimesOut(t *testing.T) {
	env := newEnv(t, blocking, stubHealth{})

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() { done <- env.do(http.MethodPost, "/api/analysis", validBody) }()

	require.Eventually(t, func() bool { return env.orch.State().Phase == models.PhasePending }, time.Second, 5*time.Millisecond)
	env.clock.Advance(orchestrator.RequestTimeout)

	select {
	case rec := <-done:
		assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
		assert.Contains(t, rec.Body.String(), "ERR_TIMEOUT")
		assert.Contains(t, rec.Body.String(), "Request timed out (15s)")
	case <-time.After(2 * time.Second):
		t.Fatal("no response")
	}

	var resp snapshotResponse
	decode(t, env.do(http.MethodGet, "/api/analysis", ""), &resp)
	assert.Equal(t, models.MessageTimeout, resp.Data.Message)
}

func TestSupersededWaiterGetsConflict(t *testing.T) {
	env := newEnv(t, blocking, stubHealth{})

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() { done <- env.do(http.MethodPost, "/api/analysis", validBody) }()
	require.Eventually(t, func() bool { return env.orch.State().Phase == models.PhasePending }, time.Second, 5*time.Millisecond)

	rec := env.do(http.MethodPost, "/api/analysis?mode=async", validBody)
	require.Equal(t, http.StatusAccepted, rec.Code)

	select {
	case first := <-done:
		assert.Equal(t, http.StatusConflict, first.Code)
		assert.Contains(t, first.Body.String(), "ERR_SUPERSEDED")
	case <-time.After(2 * time.Second):
		t.Fatal("no response")
	}
	assert.Equal(t, uint64(2), env.orch.State().Generation)
}

func TestAsyncSubmitThenCancel(t *testing.T) {
	env := newEnv(t, blocking, stubHealth{})

	rec := env.do(http.MethodPost, "/api/analysis?mode=async", validBody)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp snapshotResponse
	decode(t, rec, &resp)
	assert.Equal(t, models.LifecycleLoading, resp.Data.Lifecycle)

	assert.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, "/api/analysis", "").Code)
	assert.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, "/api/analysis", "").Code)

	decode(t, env.do(http.MethodGet, "/api/analysis", ""), &resp)
	assert.Equal(t, models.LifecycleIdle, resp.Data.Lifecycle)
	assert.Empty(t, resp.Data.Message)
}

func TestServiceHealth(t *testing.T) {
	env := newEnv(t, blocking, stubHealth{})
	rec := env.do(http.MethodGet, "/api/service/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "NavAI-Guard")

	down := newEnv(t, blocking, stubHealth{err: errors.New("dial tcp: refused")})
	rec = down.do(http.MethodGet, "/api/service/health", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestLiveness(t *testing.T) {
	env := newEnv(t, blocking, stubHealth{})
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/healthz", "").Code)
}
