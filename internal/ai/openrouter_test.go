package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func sequenceServer(t *testing.T, statuses []int, headers []http.Header, okBody any) (*ipv4Server, *int32) {
	t.Helper()
	var calls int32
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		i := int(atomic.AddInt32(&calls, 1)) - 1
		if i >= len(statuses) {
			i = len(statuses) - 1
		}
		if i < len(headers) {
			for k, vals := range headers[i] {
				for _, v := range vals {
					w.Header().Add(k, v)
				}
			}
		}
		w.WriteHeader(statuses[i])
		if statuses[i] >= 200 && statuses[i] < 300 {
			_ = json.NewEncoder(w).Encode(okBody)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "slow down"}})
	}))
	return srv, &calls
}

func okResponse(text string) GenerateResponse {
	return GenerateResponse{Choices: []Choice{{Message: Message{Role: "assistant", Content: text}}}}
}

func TestOpenRouterRetriesOn429(t *testing.T) {
	srv, calls := sequenceServer(t, []int{429, 200}, []http.Header{{"Retry-After": {"0"}}}, okResponse("ok"))
	defer srv.Close()

	c := NewOpenRouterClient("test", 2*time.Second, 3, 10*time.Millisecond, 100*time.Millisecond).WithBaseURL(srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := c.Generate(ctx, Prompt("test-model", "hola", 0.7, 1))
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if resp.Text() != "ok" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if n := atomic.LoadInt32(calls); n != 2 {
		t.Fatalf("expected 2 calls, got %d", n)
	}
}

func TestOpenRouterHonoursRetryAfter(t *testing.T) {
	srv, _ := sequenceServer(t, []int{429, 200}, []http.Header{{"Retry-After": {"1"}}}, okResponse("ok"))
	defer srv.Close()

	c := NewOpenRouterClient("test", 5*time.Second, 3, 0, 0).WithBaseURL(srv.URL)
	start := time.Now()
	if _, err := c.Generate(context.Background(), Prompt("test-model", "hola", 0, 0)); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 900*time.Millisecond {
		t.Fatalf("expected about 1s delay due to Retry-After, got %v", elapsed)
	}
}

func TestOpenRouterGivesUpAfterMaxAttempts(t *testing.T) {
	srv, calls := sequenceServer(t, []int{503}, nil, nil)
	defer srv.Close()

	c := NewOpenRouterClient("test", 2*time.Second, 2, time.Millisecond, 5*time.Millisecond).WithBaseURL(srv.URL)
	_, err := c.Generate(context.Background(), Prompt("test-model", "hola", 0, 0))
	var se *ServerError
	if !errors.As(err, &se) {
		t.Fatalf("expected ServerError, got %v", err)
	}
	if n := atomic.LoadInt32(calls); n != 2 {
		t.Fatalf("expected 2 calls, got %d", n)
	}
}

func TestOpenRouterErrorIncludesRequestID(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-Id", "req_test_123")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "bad req", "code": "bad_request"}})
	}))
	defer srv.Close()

	c := NewOpenRouterClient("test", 2*time.Second, 1, 0, 0).WithBaseURL(srv.URL)
	_, err := c.Generate(context.Background(), Prompt("test-model", "hola", 0, 0))
	var br *BadRequestError
	if !errors.As(err, &br) {
		t.Fatalf("expected BadRequestError, got %v", err)
	}
	if !strings.Contains(err.Error(), "req_test_123") {
		t.Fatalf("expected request id in error, got: %v", err)
	}
}

func TestOpenRouterAuthError(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid key"}}`))
	}))
	defer srv.Close()

	c := NewOpenRouterClient("bad", 2*time.Second, 3, 0, 0).WithBaseURL(srv.URL)
	_, err := c.Generate(context.Background(), Prompt("m", "hola", 0, 0))
	var ae *AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AuthError, got %v", err)
	}
}

func TestOpenRouterRequiresKey(t *testing.T) {
	c := NewOpenRouterClient("", time.Second, 1, 0, 0)
	if _, err := c.Generate(context.Background(), Prompt("m", "hola", 0, 0)); err == nil {
		t.Fatalf("expected missing key error")
	}
}
