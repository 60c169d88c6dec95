package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestOllamaGenerateSuccess(t *testing.T) {
	var got ollamaChatRequest
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message":           map[string]any{"role": "assistant", "content": "## Resumen\n- todo bien"},
			"done":              true,
			"prompt_eval_count": 120,
			"eval_count":        30,
		})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, 2*time.Second, 1, 0, 0)
	resp, err := c.Generate(context.Background(), Prompt("gemma3:12b", "hola", 0.7, 0))
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if resp.Text() != "## Resumen\n- todo bien" {
		t.Fatalf("unexpected text: %q", resp.Text())
	}
	if resp.Usage.TotalTokens != 150 || resp.RequestID == "" {
		t.Fatalf("unexpected usage/request id: %+v", resp)
	}
	if got.Stream || got.Model != "gemma3:12b" || got.Options["temperature"] != 0.7 {
		t.Fatalf("unexpected request: %+v", got)
	}
	if _, ok := got.Options["num_predict"]; ok {
		t.Fatalf("num_predict should be omitted when MaxTokens is zero")
	}
}

func TestOllamaPreservesMessages(t *testing.T) {
	var got ollamaChatRequest
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(map[string]any{"message": map[string]any{"role": "assistant", "content": "ok"}})
	}))
	defer srv.Close()

	msgs := []Message{
		{Role: "system", Content: "Eres un analista educativo"},
		{Role: "user", Content: "Hola"},
	}
	c := NewOllamaClient(srv.URL, 2*time.Second, 1, 0, 0)
	if _, err := c.Generate(context.Background(), GenerateRequest{Model: "gemma3:12b", Messages: msgs}); err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if len(got.Messages) != len(msgs) {
		t.Fatalf("expected %d messages, got %d", len(msgs), len(got.Messages))
	}
	for i := range msgs {
		if got.Messages[i] != msgs[i] {
			t.Fatalf("message %d: expected %+v, got %+v", i, msgs[i], got.Messages[i])
		}
	}
}

func TestOllamaMissingModel(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "model \"gemma3:12b\" not found, try pulling it first"})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, 2*time.Second, 2, 0, 0)
	_, err := c.Generate(context.Background(), Prompt("gemma3:12b", "hola", 0, 0))
	var mnf *ModelNotFoundError
	if !errors.As(err, &mnf) {
		t.Fatalf("expected ModelNotFoundError, got %v", err)
	}
}

func TestOllamaUnreachable(t *testing.T) {
	c := NewOllamaClient(closedPort(t), time.Second, 1, 0, 0)
	_, err := c.Generate(context.Background(), Prompt("gemma3:12b", "hola", 0, 0))
	if !IsUnreachable(err) {
		t.Fatalf("expected unreachable error, got %v", err)
	}
	if IsTimeout(err) {
		t.Fatalf("connection refused should not be a timeout: %v", err)
	}
}

func TestOllamaTimeout(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, 100*time.Millisecond, 1, 0, 0)
	_, err := c.Generate(context.Background(), Prompt("gemma3:12b", "hola", 0, 0))
	if !IsTimeout(err) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if IsUnreachable(err) {
		t.Fatalf("timeout should not be reported as unreachable: %v", err)
	}
}

func TestOllamaEmptyMessages(t *testing.T) {
	c := NewOllamaClient("", time.Second, 1, 0, 0)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "gemma3:12b"})
	if err == nil || err.Error() != "messages cannot be empty" {
		t.Fatalf("expected 'messages cannot be empty' error, got: %v", err)
	}
	if c.Host() != DefaultOllamaHost {
		t.Fatalf("default host = %q", c.Host())
	}
}

func TestOllamaModels(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"models":[{"name":"gemma3:12b"},{"name":"llama3.1:8b"}]}`))
	}))
	defer srv.Close()

	names, err := NewOllamaClient(srv.URL+"/", time.Second, 1, 0, 0).Models(context.Background())
	if err != nil {
		t.Fatalf("Models error: %v", err)
	}
	if len(names) != 2 || names[0] != "gemma3:12b" {
		t.Fatalf("unexpected models: %v", names)
	}
}

func TestRegistry(t *testing.T) {
	rt, err := NewRuntime(ProviderOllama, RuntimeConfig{Host: "http://example.invalid"})
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	if oc, ok := rt.(*OllamaClient); !ok || oc.Host() != "http://example.invalid" {
		t.Fatalf("unexpected runtime %T", rt)
	}
	if _, err := NewRuntime("nope", RuntimeConfig{}); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestFitsContext(t *testing.T) {
	if !FitsContext("unknown-model", 1<<30, 0) {
		t.Fatalf("unknown models should always fit")
	}
	if FitsContext("llama3:latest", 8000, 500) {
		t.Fatalf("8000+500 should overflow an 8192 window")
	}
	if mi, ok := LookupModel("gemma3:1b"); !ok || mi.ContextTokens != 128000 {
		t.Fatalf("tag fallback lookup failed: %+v %v", mi, ok)
	}
}
