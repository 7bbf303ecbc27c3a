package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type stubProvider struct {
	reply string
	err   error
	delay time.Duration
	got   []Message
}

func (p *stubProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	p.got = append([]Message(nil), messages...)
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return p.reply, p.err
}

func TestRespond_PrefixesAndTrims(t *testing.T) {
	p := &stubProvider{reply: "  a joke \n"}
	r := NewResponder(p, "gemini-1.5-flash", time.Second, "🤖 ")

	got, err := r.Respond(context.Background(), []Message{{Role: RoleUser, Content: "@ai joke"}})
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if got != "🤖 a joke" {
		t.Fatalf("unexpected reply %q", got)
	}
	if r.Model() != "gemini-1.5-flash" {
		t.Fatalf("unexpected model %q", r.Model())
	}
	if len(p.got) != 1 || p.got[0].Content != "@ai joke" {
		t.Fatalf("provider got %+v", p.got)
	}
}

func TestRespond_Timeout(t *testing.T) {
	p := &stubProvider{reply: "late", delay: time.Second}
	r := NewResponder(p, "m", 20*time.Millisecond, "")

	start := time.Now()
	_, err := r.Respond(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if !errors.Is(err, ErrUpstreamFailure) {
		t.Fatalf("timeout must be an upstream failure: %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatalf("respond did not honour its timeout")
	}
}

func TestRespond_EmptyReply(t *testing.T) {
	r := NewResponder(&stubProvider{reply: "   "}, "m", time.Second, "")
	if _, err := r.Respond(context.Background(), nil); !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream for empty reply, got %v", err)
	}
}

func TestRespond_NoProvider(t *testing.T) {
	r := NewResponder(nil, "m", time.Second, "")
	if _, err := r.Respond(context.Background(), nil); !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestRespond_OllamaServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	r := NewResponder(NewOllamaProvider(srv.URL, "llama3"), "llama3", time.Second, "")
	if _, err := r.Respond(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}); !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestRespond_OllamaUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	r := NewResponder(NewOllamaProvider(url, "llama3"), "llama3", time.Second, "")
	if _, err := r.Respond(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}); !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestOllamaProvider_Chat(t *testing.T) {
	var got ollamaChatReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(ollamaChatResp{Message: ollamaMsg{Role: "assistant", Content: "pong"}})
	}))
	defer srv.Close()

	reply, err := NewOllamaProvider(srv.URL, "llama3").Chat(context.Background(), []Message{
		{Role: RoleUser, Content: "alice: ping"},
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if reply != "pong" {
		t.Fatalf("unexpected reply %q", reply)
	}
	if got.Model != "llama3" || got.Stream || len(got.Messages) != 1 {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestOpenRouterProvider_Chat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello"}}]}`))
	}))
	defer srv.Close()

	p := NewOpenRouterProvider(srv.URL, "key", "openrouter/auto", "", "")
	reply, err := p.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if reply != "hello" {
		t.Fatalf("unexpected reply %q", reply)
	}

	p.APIKey = "wrong"
	if _, err := p.Chat(context.Background(), nil); !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream on 401, got %v", err)
	}
}

func TestRegistry(t *testing.T) {
	reg := NewBuiltinRegistry(Options{OllamaBaseURL: "http://127.0.0.1:1"})
	if names := reg.Names(); len(names) != 3 || names[0] != "gemini" || names[1] != "ollama" || names[2] != "openrouter" {
		t.Fatalf("unexpected providers %v", names)
	}

	p, err := reg.Get(context.Background(), " OLLAMA ", "qwen2")
	if err != nil {
		t.Fatalf("get ollama: %v", err)
	}
	if op, ok := p.(*OllamaProvider); !ok || op.Model != "qwen2" {
		t.Fatalf("unexpected provider %#v", p)
	}

	if _, err := reg.Get(context.Background(), "gemini", ""); err == nil {
		t.Fatalf("gemini without api key should fail")
	}
	if _, err := reg.Get(context.Background(), "nope", ""); err == nil {
		t.Fatalf("unknown provider should fail")
	}
}
