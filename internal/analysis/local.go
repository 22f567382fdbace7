package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/mentalyze/server/internal/domain"
)

// LocalClient is the in-process sentiment backend used in deployments that
// cannot reach the remote provider. It applies a small valence lexicon to the
// latest user input and composes templated supportive replies. Interchangeable
// with the remote client; it never needs a credential.
type LocalClient struct{}

// NewLocalClient creates the in-process sentiment backend.
func NewLocalClient() *LocalClient {
	return &LocalClient{}
}

var negativeTerms = []string{
	"sad", "anxious", "anxiety", "stress", "stressed", "depressed", "depression",
	"lonely", "isolated", "tired", "exhausted", "hopeless", "overwhelmed",
	"worried", "afraid", "angry", "cry", "crying", "panic", "insomnia",
	"worthless", "self-harm", "hurt",
}

var positiveTerms = []string{
	"good", "great", "happy", "better", "calm", "relaxed", "hopeful", "fine",
	"okay", "improving", "grateful", "rested", "motivated", "connected",
}

// Chat classifies the most recent user turn and returns a supportive reply.
func (c *LocalClient) Chat(_ context.Context, history []domain.Turn) (string, error) {
	if len(history) == 0 {
		return "", fmt.Errorf("chat history: %w", ErrEmptyInput)
	}

	last := ""
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == domain.RoleUser {
			last = history[i].Content
			break
		}
	}

	switch classify(last) {
	case sentimentNegative:
		return "I'm sorry you're going through this — it sounds heavy. " +
			"Would you like to tell me a bit more about what has been weighing on you? " +
			"Sometimes naming the feeling is a helpful first step.", nil
	case sentimentPositive:
		return "I'm glad to hear there are some positives. " +
			"What do you think has been helping? Noticing what works can make it easier to repeat.", nil
	default:
		return "Thank you for sharing that. How have you been feeling overall lately — " +
			"in your mood, sleep, or energy?", nil
	}
}

// Assess scores each answer and composes a structured summary.
func (c *LocalClient) Assess(_ context.Context, questions, answers []string) (string, error) {
	if len(answers) == 0 || len(answers) != len(questions) {
		return "", fmt.Errorf("assessment answers: want %d, got %d: %w", len(questions), len(answers), ErrEmptyInput)
	}

	var flagged []string
	for i, answer := range answers {
		if classify(answer) == sentimentNegative {
			flagged = append(flagged, fmt.Sprintf("%d. %s", i+1, questions[i]))
		}
	}

	var b strings.Builder
	b.WriteString("**Assessment summary**\n\n")
	fmt.Fprintf(&b, "You answered %d questions. ", len(answers))
	if len(flagged) == 0 {
		b.WriteString("Your answers did not show strong signs of distress. " +
			"Keep up the habits that support your well-being, and check in again whenever you like.")
		return b.String(), nil
	}

	fmt.Fprintf(&b, "%d of your answers suggest areas worth attention:\n\n", len(flagged))
	for _, q := range flagged {
		b.WriteString("• " + q + "\n")
	}
	b.WriteString("\nConsider small, concrete steps: a regular sleep routine, brief daily walks, " +
		"and reaching out to someone you trust. If these feelings persist or intensify, " +
		"please consider speaking with a licensed mental health professional.")
	return b.String(), nil
}

type sentiment int

const (
	sentimentNeutral sentiment = iota
	sentimentNegative
	sentimentPositive
)

func classify(text string) sentiment {
	lower := strings.ToLower(text)
	score := 0
	for _, term := range negativeTerms {
		if strings.Contains(lower, term) {
			score--
		}
	}
	for _, term := range positiveTerms {
		if strings.Contains(lower, term) {
			score++
		}
	}
	switch {
	case score < 0:
		return sentimentNegative
	case score > 0:
		return sentimentPositive
	default:
		return sentimentNeutral
	}
}
