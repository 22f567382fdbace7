// Package assessment implements the structured-questionnaire state machine:
// the fixed question bank and the per-user engine that advances through it.
package assessment

import (
	"errors"
	"fmt"
)

// QuestionBank is the immutable, process-wide ordered sequence of assessment
// questions. It is fixed at startup and shared by all sessions.
type QuestionBank struct {
	questions []string
}

// NewQuestionBank creates a bank from the configured questions. An empty bank
// is rejected at startup so the engine can never be entered with no questions.
func NewQuestionBank(questions []string) (*QuestionBank, error) {
	if len(questions) == 0 {
		return nil, errors.New("question bank must contain at least one question")
	}
	for i, q := range questions {
		if q == "" {
			return nil, fmt.Errorf("question %d is empty", i)
		}
	}
	qs := make([]string, len(questions))
	copy(qs, questions)
	return &QuestionBank{questions: qs}, nil
}

// Len returns the number of questions.
func (b *QuestionBank) Len() int {
	return len(b.questions)
}

// Question returns the question at index i, which must be in [0, Len).
func (b *QuestionBank) Question(i int) string {
	return b.questions[i]
}

// All returns a copy of the questions in order.
func (b *QuestionBank) All() []string {
	out := make([]string, len(b.questions))
	copy(out, b.questions)
	return out
}
