package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/mentalyze/server/internal/domain"
)

// temperature is the fixed sampling temperature for every provider call.
const temperature = 0.7

// maxErrorBodyLen caps how much of an error body ends up in diagnostics.
const maxErrorBodyLen = 512

// assessPreamble instructs the model when summarizing a completed assessment.
const assessPreamble = "You are a mental health assistant. Analyze the user's answers to the assessment questions and provide a summary or analysis. " +
	"Focus on identifying patterns, potential issues, and actionable advice. Keep the response structured and empathetic."

// apiKeyPattern is the expected shape of a Together API key.
var apiKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{32,}$`)

// TogetherClient calls the Together chat-completions API.
type TogetherClient struct {
	apiKey    string
	url       string
	model     string
	maxTokens int
	http      *http.Client
}

// TogetherOptions configures a TogetherClient.
type TogetherOptions struct {
	APIKey    string
	URL       string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// NewTogetherClient creates a client for the Together chat-completions API.
// A missing or malformed key is not an error here; every call re-checks the
// credential and degrades instead.
func NewTogetherClient(opts TogetherOptions) *TogetherClient {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &TogetherClient{
		apiKey:    opts.APIKey,
		url:       opts.URL,
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
		http:      &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Chat sends the full turn sequence and returns the first completion's content.
func (c *TogetherClient) Chat(ctx context.Context, history []domain.Turn) (string, error) {
	if err := c.checkConfig(); err != nil {
		return "", err
	}
	if len(history) == 0 {
		return "", fmt.Errorf("chat history: %w", ErrEmptyInput)
	}

	messages := make([]chatMessage, 0, len(history))
	for _, t := range history {
		messages = append(messages, chatMessage{Role: string(t.Role), Content: t.Content})
	}
	return c.complete(ctx, messages)
}

// Assess builds one synthetic instruction turn plus one user turn per question
// and sends them through the same transport as Chat.
func (c *TogetherClient) Assess(ctx context.Context, questions, answers []string) (string, error) {
	if err := c.checkConfig(); err != nil {
		return "", err
	}
	if len(answers) == 0 || len(answers) != len(questions) {
		return "", fmt.Errorf("assessment answers: want %d, got %d: %w", len(questions), len(answers), ErrEmptyInput)
	}

	messages := make([]chatMessage, 0, len(answers)+1)
	messages = append(messages, chatMessage{Role: string(domain.RoleSystem), Content: assessPreamble})
	for i, answer := range answers {
		messages = append(messages, chatMessage{
			Role:    string(domain.RoleUser),
			Content: fmt.Sprintf("Question %d: %s\nAnswer: %s", i+1, questions[i], answer),
		})
	}
	return c.complete(ctx, messages)
}

// checkConfig validates the credential before any network call.
func (c *TogetherClient) checkConfig() error {
	if c.apiKey == "" {
		return fmt.Errorf("missing API key: %w", ErrNotConfigured)
	}
	if !apiKeyPattern.MatchString(c.apiKey) {
		return fmt.Errorf("malformed API key: %w", ErrNotConfigured)
	}
	return nil
}

// complete performs one bounded-time chat-completions round trip.
func (c *TogetherClient) complete(ctx context.Context, messages []chatMessage) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("call provider: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read provider response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &ProviderError{Status: resp.StatusCode, Body: truncate(string(body), maxErrorBodyLen)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode provider response: %w", ErrBadResponse)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("no choices in provider response: %w", ErrBadResponse)
	}
	return parsed.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
