package repositories

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"jira2yatracker/internal/config"
	"jira2yatracker/internal/helpers"
	"jira2yatracker/internal/models"
)

// maxErrorBody bounds how much of an error response is kept
const maxErrorBody = 2048

// restClient is the HTTP plumbing shared by both service repositories
type restClient struct {
	service   string
	baseURL   string
	client    *http.Client
	authorize func(*http.Request)
	retry     config.RetryConfig
}

type request struct {
	method      string
	url         string
	body        []byte
	contentType string
	op          string
	// idempotent marks a POST that is safe to repeat
	idempotent bool
}

func (r request) retryable() bool {
	return r.method == http.MethodGet || r.method == http.MethodPatch || r.idempotent
}

func newRestClient(service, baseURL string, timeoutSeconds int, retry config.RetryConfig, authorize func(*http.Request)) *restClient {
	return &restClient{
		service:   service,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second},
		authorize: authorize,
		retry:     retry,
	}
}

// do sends the request, retrying transient failures of retryable requests when
// more than one attempt is configured
func (c *restClient) do(ctx context.Context, req request) ([]byte, error) {
	if req.op == "" {
		req.op = req.method + " " + req.url
	}
	if c.retry.Attempts <= 1 || !req.retryable() {
		return c.once(ctx, req)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retry.RetryDelay()
	bo.MaxElapsedTime = 0

	var body []byte
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		var err error
		body, err = c.once(ctx, req)
		if err == nil {
			return nil
		}
		if !models.IsTransient(err) {
			return backoff.Permanent(err)
		}
		helpers.PrintWarning("%s %s attempt %d/%d failed: %v", c.service, req.op, attempt, c.retry.Attempts, err)
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.retry.Attempts-1)), ctx))
	return body, err
}

func (c *restClient) once(ctx context.Context, req request) ([]byte, error) {
	var reader io.Reader
	if req.body != nil {
		reader = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, req.url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	c.authorize(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &models.TransientAPIError{Service: c.service, Op: req.op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &models.TransientAPIError{Service: c.service, Op: req.op, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return data, nil
	}

	if len(data) > maxErrorBody {
		data = data[:maxErrorBody]
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &models.TransientAPIError{
			Service:    c.service,
			Op:         req.op,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", string(data)),
		}
	}
	return nil, &models.APIError{Service: c.service, Op: req.op, StatusCode: resp.StatusCode, Body: string(data)}
}

// doJSON sends in as a JSON body (if non-nil) and decodes the response into out (if non-nil)
func (c *restClient) doJSON(ctx context.Context, method, url string, in, out interface{}) error {
	req := request{method: method, url: url}
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		req.body = data
		req.contentType = "application/json"
	}

	data, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", c.service, err)
	}
	return nil
}
