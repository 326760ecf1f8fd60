package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/taskfan/taskfan/internal/scheduler"
)

// ActionTypeHTTP performs an HTTP request.
//
// Params:
//
//	{
//	    "method": "POST",                          // default GET
//	    "url": "https://api.example.com/data",     // required
//	    "headers": {"Authorization": "Bearer x"},  // optional
//	    "body": {"data": 1},                       // optional, JSON-encoded unless string
//	    "timeout_sec": 30                          // optional
//	}
//
// The result is a map with "status_code", "headers", and "body" keys. JSON
// response bodies are decoded; other content types come back as strings.
const ActionTypeHTTP = "http"

const maxResponseBody = 10 * 1024 * 1024 // 10 MB

// HTTPExecutor performs HTTP requests against external services.
type HTTPExecutor struct {
	client  *http.Client
	timeout time.Duration
}

// NewHTTPExecutor creates an HTTPExecutor with the given default timeout.
func NewHTTPExecutor(timeout time.Duration) *HTTPExecutor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPExecutor{
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

// Execute performs the request.
func (e *HTTPExecutor) Execute(ctx context.Context, action scheduler.Action) (any, error) {
	url, err := stringParam(action, "url")
	if err != nil {
		return nil, err
	}
	method := strings.ToUpper(optionalString(action, "method", http.MethodGet))

	client := e.client
	if sec, ok := intParam(action, "timeout_sec"); ok && sec > 0 {
		client = &http.Client{Timeout: time.Duration(sec) * time.Second}
	}

	req, err := e.buildRequest(ctx, method, url, action)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	result, err := parseHTTPResponse(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return result, fmt.Errorf("http request returned %s", resp.Status)
	}
	return result, nil
}

func (e *HTTPExecutor) buildRequest(ctx context.Context, method, url string, action scheduler.Action) (*http.Request, error) {
	var bodyReader io.Reader
	hasBody := false

	if body, ok := action.Params["body"]; ok && body != nil {
		var raw []byte
		switch v := body.(type) {
		case string:
			raw = []byte(v)
		case []byte:
			raw = v
		default:
			encoded, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: body: %v", ErrBadParams, ActionTypeHTTP, err)
			}
			raw = encoded
		}
		bodyReader = bytes.NewReader(raw)
		hasBody = true
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBadParams, ActionTypeHTTP, err)
	}

	if headers, ok := action.Params["headers"].(map[string]any); ok {
		for key, value := range headers {
			if s, ok := value.(string); ok {
				req.Header.Set(key, s)
			}
		}
	}
	if hasBody && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func parseHTTPResponse(resp *http.Response) (map[string]any, error) {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	var body any
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(raw, &body); err != nil {
			body = string(raw)
		}
	} else {
		body = string(raw)
	}

	headers := make(map[string]string)
	for key := range resp.Header {
		headers[key] = resp.Header.Get(key)
	}

	return map[string]any{
		"status_code": resp.StatusCode,
		"headers":     headers,
		"body":        body,
	}, nil
}
