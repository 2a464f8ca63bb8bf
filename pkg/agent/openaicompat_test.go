package agent

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"clanker/pkg/config"
)

func compatTestServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			t.Errorf("Authorization = %q, want Bearer token", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func TestCompatChat(t *testing.T) {
	srv := compatTestServer(t, http.StatusOK, `{
		"id":"chatcmpl-1",
		"object":"chat.completion",
		"choices":[{"index":0,"message":{"role":"assistant","content":"Hello back"},"finish_reason":"stop"}],
		"usage":{"prompt_tokens":10,"completion_tokens":8,"total_tokens":18}
	}`)
	defer srv.Close()

	a := NewGroqAgent(config.AgentConfig{
		Provider:   "groq",
		Model:      "llama-3.3-70b-versatile",
		APIKey:     "test-key",
		MaxTokens:  128,
		APIBaseURL: srv.URL + "/",
	})

	resp, err := a.Chat(context.Background(), []Message{{Role: RoleUser, Content: "Hello"}})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}

	if resp.Content != "Hello back" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.FinishReason != "stop" {
		t.Errorf("finish reason = %q", resp.FinishReason)
	}
	if resp.Usage.TotalTokens != 18 {
		t.Errorf("usage = %+v", resp.Usage)
	}
	if resp.Provider != "groq" {
		t.Errorf("provider = %q", resp.Provider)
	}
}

func TestCompatChatEmptyChoices(t *testing.T) {
	srv := compatTestServer(t, http.StatusOK, `{
		"id":"chatcmpl-2",
		"object":"chat.completion",
		"choices":[]
	}`)
	defer srv.Close()

	a := NewOpenAIAgent(config.AgentConfig{
		Provider:   "openai",
		Model:      "gpt-4o",
		APIKey:     "k",
		MaxTokens:  16,
		APIBaseURL: srv.URL + "/",
	})

	resp, err := a.Chat(context.Background(), []Message{{Role: RoleUser, Content: "x"}})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if resp.Content != "" {
		t.Errorf("content = %q, want empty", resp.Content)
	}
	if resp.FinishReason != "stop" {
		t.Errorf("finish reason = %q, want stop default", resp.FinishReason)
	}
	if resp.Usage.TotalTokens != 0 {
		t.Errorf("usage = %+v, want zeros", resp.Usage)
	}
}

func TestCompatChatProviderError(t *testing.T) {
	srv := compatTestServer(t, http.StatusInternalServerError, `{"error":{"message":"boom","type":"server_error"}}`)
	defer srv.Close()

	a := NewZaiAgent(config.AgentConfig{Provider: "zai", Model: "m", APIKey: "k", MaxTokens: 16, APIBaseURL: srv.URL + "/"})
	_, err := a.Chat(context.Background(), []Message{{Role: RoleUser, Content: "x"}})
	if err == nil {
		t.Fatal("expected error")
	}
	if KindOf(err) != ErrProvider {
		t.Errorf("kind = %q, want provider_error", KindOf(err))
	}
}

func TestCompatChatAuthFailure(t *testing.T) {
	srv := compatTestServer(t, http.StatusUnauthorized, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	defer srv.Close()

	a := NewGrokAgent(config.AgentConfig{Provider: "grok", Model: "m", APIKey: "k", MaxTokens: 16, APIBaseURL: srv.URL + "/"})
	_, err := a.Chat(context.Background(), []Message{{Role: RoleUser, Content: "x"}})
	if KindOf(err) != ErrAuthenticationFailed {
		t.Errorf("kind = %q, want authentication_failed", KindOf(err))
	}
}

func TestCompatProviderTags(t *testing.T) {
	cfg := config.AgentConfig{Model: "m", APIKey: "k", MaxTokens: 16}

	if p := NewOpenAIAgent(cfg).Provider(); p != "openai" {
		t.Errorf("openai tag = %q", p)
	}
	if p := NewGrokAgent(cfg).Provider(); p != "grok" {
		t.Errorf("grok tag = %q", p)
	}
	if p := NewGroqAgent(cfg).Provider(); p != "groq" {
		t.Errorf("groq tag = %q", p)
	}
	if p := NewZaiAgent(cfg).Provider(); p != "zai" {
		t.Errorf("zai tag = %q", p)
	}
}
