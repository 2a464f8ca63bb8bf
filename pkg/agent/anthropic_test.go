package agent

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"clanker/pkg/config"
)

func anthropicTestServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") == "" {
			t.Error("missing x-api-key header")
		}
		if r.Header.Get("anthropic-version") != "2023-06-01" {
			t.Errorf("anthropic-version = %q", r.Header.Get("anthropic-version"))
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func TestAnthropicChat(t *testing.T) {
	srv := anthropicTestServer(t, http.StatusOK, `{
		"content":[{"text":"Hi there!"}],
		"stop_reason":"end_turn",
		"usage":{"input_tokens":12,"output_tokens":7}
	}`)
	defer srv.Close()

	a := NewAnthropicAgent(config.AgentConfig{
		Provider:   "anthropic",
		Model:      "claude-sonnet-4",
		APIKey:     "test-key",
		MaxTokens:  256,
		APIBaseURL: srv.URL,
	})

	resp, err := a.Chat(context.Background(), []Message{{Role: RoleUser, Content: "Hello"}})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}

	if resp.Content != "Hi there!" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.FinishReason != "end_turn" {
		t.Errorf("finish reason = %q", resp.FinishReason)
	}
	if resp.Usage.PromptTokens != 12 || resp.Usage.CompletionTokens != 7 || resp.Usage.TotalTokens != 19 {
		t.Errorf("usage = %+v", resp.Usage)
	}
	if resp.Provider != "anthropic" {
		t.Errorf("provider = %q", resp.Provider)
	}
}

func TestAnthropicChatMissingStopReason(t *testing.T) {
	srv := anthropicTestServer(t, http.StatusOK, `{
		"content":[{"text":"ok"}],
		"usage":{"input_tokens":1,"output_tokens":1}
	}`)
	defer srv.Close()

	a := NewAnthropicAgent(config.AgentConfig{Model: "m", APIKey: "k", MaxTokens: 10, APIBaseURL: srv.URL})
	resp, err := a.Chat(context.Background(), []Message{{Role: RoleUser, Content: "x"}})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if resp.FinishReason != "stop" {
		t.Errorf("finish reason = %q, want stop default", resp.FinishReason)
	}
}

func TestAnthropicChatProviderError(t *testing.T) {
	srv := anthropicTestServer(t, http.StatusInternalServerError, `{"error":"overloaded"}`)
	defer srv.Close()

	a := NewAnthropicAgent(config.AgentConfig{Model: "m", APIKey: "k", MaxTokens: 10, APIBaseURL: srv.URL})
	_, err := a.Chat(context.Background(), []Message{{Role: RoleUser, Content: "x"}})
	if err == nil {
		t.Fatal("expected error")
	}
	if KindOf(err) != ErrProvider {
		t.Errorf("kind = %q, want provider_error", KindOf(err))
	}
}

func TestAnthropicChatAuthFailure(t *testing.T) {
	srv := anthropicTestServer(t, http.StatusUnauthorized, `{"error":"bad key"}`)
	defer srv.Close()

	a := NewAnthropicAgent(config.AgentConfig{Model: "m", APIKey: "k", MaxTokens: 10, APIBaseURL: srv.URL})
	_, err := a.Chat(context.Background(), []Message{{Role: RoleUser, Content: "x"}})
	if KindOf(err) != ErrAuthenticationFailed {
		t.Errorf("kind = %q, want authentication_failed", KindOf(err))
	}
}

func TestAnthropicChatRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	a := NewAnthropicAgent(config.AgentConfig{Model: "m", APIKey: "k", MaxTokens: 10, APIBaseURL: srv.URL})
	_, err := a.Chat(context.Background(), []Message{{Role: RoleUser, Content: "x"}})
	if KindOf(err) != ErrRateLimited {
		t.Fatalf("kind = %q, want rate_limited", KindOf(err))
	}

	var ae *Error
	if !errors.As(err, &ae) || ae.RetryAfter == nil || ae.RetryAfter.Seconds() != 30 {
		t.Errorf("retry-after not carried: %+v", ae)
	}
}

func TestAnthropicChatInvalidJSON(t *testing.T) {
	srv := anthropicTestServer(t, http.StatusOK, `not json`)
	defer srv.Close()

	a := NewAnthropicAgent(config.AgentConfig{Model: "m", APIKey: "k", MaxTokens: 10, APIBaseURL: srv.URL})
	_, err := a.Chat(context.Background(), []Message{{Role: RoleUser, Content: "x"}})
	if KindOf(err) != ErrInvalidResponse {
		t.Errorf("kind = %q, want invalid_response", KindOf(err))
	}
}

func TestAnthropicChatTransportError(t *testing.T) {
	a := NewAnthropicAgent(config.AgentConfig{Model: "m", APIKey: "k", MaxTokens: 10, APIBaseURL: "http://127.0.0.1:1"})
	_, err := a.Chat(context.Background(), []Message{{Role: RoleUser, Content: "x"}})
	if KindOf(err) != ErrRequestFailed {
		t.Errorf("kind = %q, want request_failed", KindOf(err))
	}
}

func TestToAnthropicMessages(t *testing.T) {
	msgs := toAnthropicMessages([]Message{
		{Role: RoleUser, Content: "Hello"},
		{Role: RoleAssistant, Content: "Hi there!"},
	})

	if len(msgs) != 2 {
		t.Fatalf("len = %d", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[0].Content != "Hello" {
		t.Errorf("msgs[0] = %+v", msgs[0])
	}
	if msgs[1].Role != "assistant" || msgs[1].Content != "Hi there!" {
		t.Errorf("msgs[1] = %+v", msgs[1])
	}
}
