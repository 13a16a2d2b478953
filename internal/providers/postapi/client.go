package postapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"postcreator/internal/domain"
	"postcreator/internal/infra"
)

const (
	defaultBaseURL = "http://localhost:8080"
	defaultTimeout = 30 * time.Second

	pathGenerate     = "/api/generate-post"
	pathGenerateSync = "/api/generate-post-sync"
	pathStatus       = "/api/status/"
	pathHealth       = "/api/health"
)

type ctxKey struct{}

// WithRequestID makes every call issued with ctx carry id as its
// X-Request-ID, so a job's submit and status polls can be correlated.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, id)
}

// RequestIDFrom returns the id stored by WithRequestID.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Options configures the post generation API client.
type Options struct {
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls against the job-based post generation API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

// APIError is returned for non-2xx replies. Message holds the server's
// "error" field and is empty when the body carried none.
type APIError struct {
	StatusCode int
	Message    string
	Details    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("postapi: status %d", e.StatusCode)
	}
	if e.Details != "" {
		return fmt.Sprintf("postapi: status %d: %s (%s)", e.StatusCode, e.Message, e.Details)
	}
	return fmt.Sprintf("postapi: status %d: %s", e.StatusCode, e.Message)
}

// ServerMessage extracts the server-provided error text from err, if any.
func ServerMessage(err error) (string, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
		return apiErr.Message, true
	}
	return "", false
}

// Health is the payload of GET /api/health.
type Health struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Service   string `json:"service"`
}

type createResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type syncResponse struct {
	Status string                   `json:"status"`
	Result *domain.GenerationResult `json:"result"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("postapi: invalid base url: %q", opts.BaseURL)
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CreateJob starts an asynchronous generation and returns the job identifier.
func (c *Client) CreateJob(ctx context.Context, req domain.GenerationRequest) (string, error) {
	var decoded createResponse
	if err := c.do(ctx, http.MethodPost, pathGenerate, req, &decoded); err != nil {
		return "", err
	}
	jobID := strings.TrimSpace(decoded.JobID)
	if jobID == "" {
		return "", fmt.Errorf("postapi: %w", domain.ErrMissingJobID)
	}
	c.logger.Debug().
		Str("job_id", jobID).
		Str("status", decoded.Status).
		Msg("postapi: generation job created")
	return jobID, nil
}

// JobStatus fetches the current state of a job.
func (c *Client) JobStatus(ctx context.Context, jobID string) (*domain.Job, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, fmt.Errorf("postapi: %w", domain.ErrMissingJobID)
	}
	var job domain.Job
	if err := c.do(ctx, http.MethodGet, pathStatus+url.PathEscape(jobID), nil, &job); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %w", domain.ErrJobNotFound, err)
		}
		return nil, err
	}
	job.ID = jobID
	return &job, nil
}

// GenerateSync runs a generation in the request itself. The server keeps the
// connection open for the whole run, so callers should use a generous timeout.
func (c *Client) GenerateSync(ctx context.Context, req domain.GenerationRequest) (*domain.GenerationResult, error) {
	var decoded syncResponse
	if err := c.do(ctx, http.MethodPost, pathGenerateSync, req, &decoded); err != nil {
		return nil, err
	}
	if decoded.Result == nil {
		return nil, fmt.Errorf("postapi: %w", domain.ErrMissingResult)
	}
	return decoded.Result, nil
}

// Health probes the backend health endpoint.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.do(ctx, http.MethodGet, pathHealth, nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("postapi: encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("postapi: build request: %w", err)
	}
	requestID := RequestIDFrom(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if in != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("postapi: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("postapi: read response: %w", err)
	}
	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Str("request_id", requestID).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("postapi: call finished")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var detail errorResponse
		if err := json.Unmarshal(raw, &detail); err == nil {
			apiErr.Message = strings.TrimSpace(detail.Error)
			apiErr.Details = strings.TrimSpace(detail.Details)
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("postapi: decode response: %w", err)
	}
	return nil
}
