// Package client talks to the exam results API.
package client

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
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-quiz/internal/model"
)

const (
	idempotencyHeader = "Idempotency-Key"
	maxResponseBytes  = 16 << 20
)

var ErrMalformedResponse = errors.New("malformed response from results server")

// APIError is a non-2xx answer from the results server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("results server returned %d", e.Status)
	}
	return fmt.Sprintf("results server returned %d %s: %s", e.Status, e.Code, e.Message)
}

// Temporary reports whether retrying the same request may succeed.
func (e *APIError) Temporary() bool {
	return e.Status >= 500 || e.Status == http.StatusTooManyRequests || e.Status == http.StatusConflict
}

// Client is an HTTP client for the results API.
type Client struct {
	baseURL  string
	http     *http.Client
	attempts int
	backoff  time.Duration
	newKey   func() string
	sleep    func(ctx context.Context, d time.Duration) error
	log      zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRetry sets the total number of attempts and the first backoff delay.
// Each further delay doubles.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.attempts = attempts
		}
		if backoff > 0 {
			c.backoff = backoff
		}
	}
}

// New creates a Client for the server at baseURL (e.g. http://localhost:3000).
func New(baseURL string, log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: 10 * time.Second},
		attempts: 3,
		backoff:  500 * time.Millisecond,
		newKey:   uuid.NewString,
		sleep:    sleepCtx,
		log:      log.With().Str("component", "results_client").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit posts a finished exam and returns the stored exam session ID. All
// attempts share one idempotency key, so a retry after a lost response does
// not store the session twice.
func (c *Client) Submit(ctx context.Context, req *model.SubmitExamRequest) (int64, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return 0, fmt.Errorf("encode submission: %w", err)
	}
	key := c.newKey()

	var lastErr error
	delay := c.backoff
	for attempt := 1; attempt <= c.attempts; attempt++ {
		var res model.SubmitExamResponse
		err := c.do(ctx, http.MethodPost, "/api/submit-exam", body, key, &res)
		if err == nil {
			if !res.Success || res.ExamSessionID <= 0 {
				return 0, ErrMalformedResponse
			}
			return res.ExamSessionID, nil
		}
		lastErr = err
		if ctx.Err() != nil || !retryable(err) || attempt == c.attempts {
			break
		}

		c.log.Warn().Err(err).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Str("idempotency_key", key).
			Msg("Submission failed, retrying")
		if err := c.sleep(ctx, delay); err != nil {
			return 0, err
		}
		delay *= 2
	}
	return 0, lastErr
}

// StudentResults lists the stored sessions of one student, newest first.
func (c *Client) StudentResults(ctx context.Context, schoolID string) ([]model.SessionSummary, error) {
	var sessions []model.SessionSummary
	err := c.do(ctx, http.MethodGet, "/api/student-results/"+url.PathEscape(schoolID), nil, "", &sessions)
	return sessions, err
}

// ExamDetails returns the per-question answers of one stored session.
func (c *Client) ExamDetails(ctx context.Context, examSessionID int64) ([]model.QuestionAnswer, error) {
	var answers []model.QuestionAnswer
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/exam-details/%d", examSessionID), nil, "", &answers)
	return answers, err
}

// ExportResults downloads every stored session as an XLSX workbook.
func (c *Client) ExportResults(ctx context.Context) ([]byte, error) {
	var data []byte
	err := c.do(ctx, http.MethodGet, "/api/all-results/export", nil, "", &data)
	return data, err
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, key string, out any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key != "" {
		req.Header.Set(idempotencyHeader, key)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var eb struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if json.Unmarshal(data, &eb) == nil {
			apiErr.Code = eb.Code
			apiErr.Message = eb.Error
		}
		return apiErr
	}

	if raw, ok := out.(*[]byte); ok {
		*raw = data
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// retryable is true for transport failures and temporary server answers.
func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return !errors.Is(err, ErrMalformedResponse)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
