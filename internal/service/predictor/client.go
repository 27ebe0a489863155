package predictor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"NavGuard/internal/domain/models"
	drepo "NavGuard/internal/domain/repository"
	svcmetrics "NavGuard/internal/service/metrics"
	xhttp "NavGuard/pkg/http"
)

const (
	predictPath = "/predict"
	healthPath  = "/"
)

// ErrMalformedResponse marks a 2xx body that is not an analysis result.
var ErrMalformedResponse = errors.New("malformed prediction response")

// Client calls the remote anomaly-detection service.
type Client struct {
	baseURL       string
	http          *xhttp.Client
	healthTimeout time.Duration
	metrics       *svcmetrics.Upstream
}

type Option func(*Client)

// WithHTTPOptions configures the underlying HTTP client.
func WithHTTPOptions(opts ...xhttp.ClientOption) Option {
	return func(c *Client) {
		c.http = xhttp.NewClient(append([]xhttp.ClientOption{xhttp.WithTimeout(0)}, opts...)...)
	}
}

// WithUpstreamMetrics records per-endpoint latency and errors.
func WithUpstreamMetrics(m *svcmetrics.Upstream) Option {
	return func(c *Client) { c.metrics = m }
}

var (
	_ drepo.Predictor     = (*Client)(nil)
	_ drepo.HealthChecker = (*Client)(nil)
)

// New creates a prediction service client. Predict has no client-side
// timeout of its own; callers bound it with their context.
func New(baseURL string, healthTimeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		http:          xhttp.NewClient(xhttp.WithTimeout(0)),
		healthTimeout: healthTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// wire shape of the prediction response; pointers detect missing keys.
type predictResponse struct {
	Anomaly   *bool    `json:"anomaly"`
	Score     *float64 `json:"score"`
	Threshold *float64 `json:"threshold"`
	Status    string   `json:"status"`
}

// Predict posts one payload to /predict.
func (c *Client) Predict(ctx context.Context, payload models.TelemetryPayload) (models.AnalysisResult, error) {
	start := time.Now()
	var resp predictResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.baseURL + predictPath,
		Body:   payload,
	}, &resp)
	c.metrics.Observe("predict", time.Since(start), err)
	if err != nil {
		return models.AnalysisResult{}, classify(err)
	}

	if resp.Anomaly == nil || resp.Score == nil || resp.Threshold == nil {
		return models.AnalysisResult{}, ErrMalformedResponse
	}
	return models.AnalysisResult{
		Anomaly:   *resp.Anomaly,
		Score:     *resp.Score,
		Threshold: *resp.Threshold,
		Status:    resp.Status,
	}, nil
}

// Health probes the service root.
func (c *Client) Health(ctx context.Context) (models.ServiceHealth, error) {
	if c.healthTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.healthTimeout)
		defer cancel()
	}

	start := time.Now()
	var h models.ServiceHealth
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + healthPath,
	}, &h)
	c.metrics.Observe("health", time.Since(start), err)
	if err != nil {
		return models.ServiceHealth{}, classify(err)
	}
	return h, nil
}

// classify turns a structured error body into *models.ServiceError. Anything
// else is returned as is and treated as a transport failure upstream.
func classify(err error) error {
	var se *xhttp.StatusError
	if !errors.As(err, &se) {
		if errors.Is(err, xhttp.ErrDecode) {
			return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		return err
	}
	if detail, ok := parseDetail(se.Body); ok {
		return &models.ServiceError{StatusCode: se.StatusCode, Detail: detail}
	}
	return err
}

// parseDetail reads a FastAPI error body: {"detail": "text"} or
// {"detail": [{"loc": [...], "msg": "text"}, ...]}.
func parseDetail(body []byte) (string, bool) {
	var env struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &env); err != nil || len(env.Detail) == 0 {
		return "", false
	}

	var text string
	if err := json.Unmarshal(env.Detail, &text); err == nil {
		return text, strings.TrimSpace(text) != ""
	}

	var items []struct {
		Loc []interface{} `json:"loc"`
		Msg string        `json:"msg"`
	}
	if err := json.Unmarshal(env.Detail, &items); err != nil {
		return "", false
	}
	msgs := make([]string, 0, len(items))
	for _, it := range items {
		if strings.TrimSpace(it.Msg) != "" {
			msgs = append(msgs, it.Msg)
		}
	}
	if len(msgs) == 0 {
		return "", false
	}
	return strings.Join(msgs, "; "), true
}
