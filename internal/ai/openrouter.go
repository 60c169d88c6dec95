package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const openRouterURL = "https://openrouter.ai/api/v1"

// OpenRouterClient calls the OpenRouter chat-completions API.
type OpenRouterClient struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	timeout    time.Duration
	retry      retryPolicy
}

// NewOpenRouterClient builds a client. Zero values fall back to a 60s timeout
// and three attempts with 500ms..4s backoff.
func NewOpenRouterClient(apiKey string, httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration) *OpenRouterClient {
	if httpTimeout <= 0 {
		httpTimeout = 60 * time.Second
	}
	if retryMax <= 0 {
		retryMax = 3
	}
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	if maxDelay <= 0 {
		maxDelay = 4 * time.Second
	}
	return &OpenRouterClient{
		httpClient: &http.Client{Timeout: httpTimeout},
		apiKey:     apiKey,
		baseURL:    openRouterURL,
		timeout:    httpTimeout,
		retry:      retryPolicy{attempts: retryMax, baseDelay: baseDelay, maxDelay: maxDelay},
	}
}

// WithBaseURL points the client at another endpoint, such as a test server.
func (c *OpenRouterClient) WithBaseURL(u string) *OpenRouterClient {
	if u != "" {
		c.baseURL = u
	}
	return c
}

func (c *OpenRouterClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if c.apiKey == "" {
		return nil, errors.New("OPENROUTER_API_KEY is missing")
	}
	if req.Model == "" {
		return nil, errors.New("model cannot be empty")
	}
	if len(req.Messages) == 0 {
		return nil, errors.New("messages cannot be empty")
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	endpoint := c.baseURL + "/chat/completions"

	var out GenerateResponse
	err = c.retry.run(ctx, func() outcome {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return outcome{err: fmt.Errorf("build request: %w", err)}
		}
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("HTTP-Referer", "https://github.com/KaramelBytes/gradeloom-cli")
		httpReq.Header.Set("X-Title", "GradeLoom CLI")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return outcome{err: transportError(c.baseURL, c.timeout, err), retry: isRetryableNetErr(err, true)}
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			apiErr := readAPIError(resp)
			return outcome{
				err:   classifyAPIError(apiErr, resp),
				retry: retryableStatus(resp.StatusCode),
				wait:  retryAfter(resp),
			}
		}
		out = GenerateResponse{}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return outcome{err: fmt.Errorf("decode response: %w", err)}
		}
		out.RequestID = extractRequestID(resp)
		return outcome{}
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
