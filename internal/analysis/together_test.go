package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mentalyze/server/internal/domain"
)

const testKey = "0123456789abcdef0123456789abcdef"

func newTestClient(url string) *TogetherClient {
	return NewTogetherClient(TogetherOptions{
		APIKey:    testKey,
		URL:       url,
		Model:     "test-model",
		MaxTokens: 256,
		Timeout:   5 * time.Second,
	})
}

func completionBody(content string) string {
	return `{"choices":[{"message":{"role":"assistant","content":` + mustQuote(content) + `}}]}`
}

func mustQuote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestChatSendsFullHistory(t *testing.T) {
	t.Parallel()

	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer "+testKey {
			t.Errorf("unexpected Authorization header: %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		_, _ = w.Write([]byte(completionBody("hello there")))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	history := []domain.Turn{
		domain.SystemTurn("be kind"),
		domain.UserTurn("hi"),
		domain.AssistantTurn("hello"),
		domain.UserTurn("how are you"),
	}

	reply, err := client.Chat(context.Background(), history)
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if reply != "hello there" {
		t.Errorf("expected reply %q, got %q", "hello there", reply)
	}

	if got.Model != "test-model" {
		t.Errorf("expected model test-model, got %q", got.Model)
	}
	if got.Temperature != 0.7 {
		t.Errorf("expected temperature 0.7, got %v", got.Temperature)
	}
	if got.MaxTokens != 256 {
		t.Errorf("expected max_tokens 256, got %d", got.MaxTokens)
	}
	if len(got.Messages) != len(history) {
		t.Fatalf("expected %d messages, got %d", len(history), len(got.Messages))
	}
	for i, turn := range history {
		if got.Messages[i].Role != string(turn.Role) || got.Messages[i].Content != turn.Content {
			t.Errorf("message %d: expected %+v, got %+v", i, turn, got.Messages[i])
		}
	}
}

func TestAssessBuildsQuestionAnswerTurns(t *testing.T) {
	t.Parallel()

	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		_, _ = w.Write([]byte(completionBody("summary")))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	questions := []string{"Q1", "Q2"}
	answers := []string{"fine", "ok"}

	reply, err := client.Assess(context.Background(), questions, answers)
	if err != nil {
		t.Fatalf("Assess failed: %v", err)
	}
	if reply != "summary" {
		t.Errorf("expected summary, got %q", reply)
	}

	if len(got.Messages) != 3 {
		t.Fatalf("expected 3 messages (system + 2 answers), got %d", len(got.Messages))
	}
	if got.Messages[0].Role != "system" {
		t.Errorf("expected system preamble first, got role %q", got.Messages[0].Role)
	}
	want := "Question 1: Q1\nAnswer: fine"
	if got.Messages[1].Content != want {
		t.Errorf("expected %q, got %q", want, got.Messages[1].Content)
	}
	want = "Question 2: Q2\nAnswer: ok"
	if got.Messages[2].Content != want {
		t.Errorf("expected %q, got %q", want, got.Messages[2].Content)
	}
}

func TestPreconditionsShortCircuit(t *testing.T) {
	t.Parallel()

	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		_, _ = w.Write([]byte(completionBody("nope")))
	}))
	defer srv.Close()

	tests := []struct {
		name string
		call func(c *TogetherClient) error
		want error
	}{
		{
			name: "empty history",
			call: func(c *TogetherClient) error {
				_, err := c.Chat(context.Background(), nil)
				return err
			},
			want: ErrEmptyInput,
		},
		{
			name: "empty answers",
			call: func(c *TogetherClient) error {
				_, err := c.Assess(context.Background(), []string{"Q1"}, nil)
				return err
			},
			want: ErrEmptyInput,
		},
		{
			name: "wrong answer count",
			call: func(c *TogetherClient) error {
				_, err := c.Assess(context.Background(), []string{"Q1", "Q2"}, []string{"a"})
				return err
			},
			want: ErrEmptyInput,
		},
	}

	client := newTestClient(srv.URL)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(client); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
	if called {
		t.Error("precondition failures must not reach the network")
	}
}

func TestMissingOrMalformedKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		key  string
	}{
		{"missing", ""},
		{"too short", "abc"},
		{"whitespace", "key with spaces in it that is long enough"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))
			defer srv.Close()

			client := NewTogetherClient(TogetherOptions{
				APIKey: tt.key, URL: srv.URL, Model: "m", MaxTokens: 10,
			})
			_, err := client.Chat(context.Background(), []domain.Turn{domain.UserTurn("hi")})
			if !errors.Is(err, ErrNotConfigured) {
				t.Errorf("expected ErrNotConfigured, got %v", err)
			}
			if called {
				t.Error("configuration failures must not reach the network")
			}
		})
	}
}

func TestNonSuccessStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.Chat(context.Background(), []domain.Turn{domain.UserTurn("hi")})

	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if pe.Status != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", pe.Status)
	}
	if !strings.Contains(pe.Body, "rate limited") {
		t.Errorf("expected body in error, got %q", pe.Body)
	}
}

func TestMalformedResponseBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"not json", "<html>oops</html>"},
		{"no choices", `{"choices":[]}`},
		{"empty content", `{"choices":[{"message":{"content":""}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := newTestClient(srv.URL)
			_, err := client.Chat(context.Background(), []domain.Turn{domain.UserTurn("hi")})
			if !errors.Is(err, ErrBadResponse) {
				t.Errorf("expected ErrBadResponse, got %v", err)
			}
		})
	}
}

func TestContextCancellation(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server's background read can observe the
		// client disconnect and cancel the request context.
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Chat(ctx, []domain.Turn{domain.UserTurn("hi")})
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestRenderFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not configured", ErrNotConfigured, "not configured"},
		{"empty input", ErrEmptyInput, "nothing to analyze"},
		{"bad response", ErrBadResponse, "unexpected response"},
		{"provider", &ProviderError{Status: 503, Body: "down"}, "503"},
		{"transport", errors.New("dial tcp: connection refused"), "connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RenderFailure(tt.err)
			if !strings.HasPrefix(got, FailureMarker) {
				t.Errorf("expected failure marker prefix, got %q", got)
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("expected %q in %q", tt.want, got)
			}
		})
	}
}
