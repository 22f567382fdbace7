package assessment

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mentalyze/server/internal/analysis"
	"github.com/mentalyze/server/internal/domain"
	"github.com/mentalyze/server/internal/session"
)

// ErrNotInProgress is returned when an answer arrives for a username with no
// assessment in the store. Routing normally prevents this.
var ErrNotInProgress = errors.New("no assessment in progress")

// Engine advances one assessment per username: answer collection, index
// advancement, and completion detection. All state transitions run under the
// session store's per-user lock; the analysis call at completion does not.
type Engine struct {
	bank   *QuestionBank
	store  *session.Store
	client analysis.Client
}

// NewEngine creates an assessment engine over the given bank and store.
func NewEngine(bank *QuestionBank, store *session.Store, client analysis.Client) *Engine {
	return &Engine{bank: bank, store: store, client: client}
}

// SubmitResult is the outcome of one submitted answer.
type SubmitResult struct {
	// Done is true on the final answer, when Analysis carries the summary.
	Done bool
	// NextQuestion is the question to ask next when Done is false.
	NextQuestion string
	// Analysis is the backend's summary text when Done is true. Empty when
	// the accompanying error reports an analysis failure.
	Analysis string
}

// Start begins a fresh assessment for user and returns the first question.
// Any assessment already in progress is discarded: restarting is a hard reset.
func (e *Engine) Start(user string) string {
	e.store.Update(user, func(sess *session.Session) {
		sess.SetAssessment(domain.AssessmentState{QuestionIndex: 0})
	})
	slog.Info("assessment started", "user", user, "questions", e.bank.Len())
	return e.bank.Question(0)
}

// InProgress reports whether user has an assessment in the store.
func (e *Engine) InProgress(user string) bool {
	_, ok := e.store.Assessment(user)
	return ok
}

// Submit records one answer. When questions remain it advances the index and
// returns the next question; on the final answer it removes the assessment
// state in the same critical section, then invokes the analysis backend with
// the full answer set. An analysis failure is returned alongside Done=true —
// the assessment is over either way.
func (e *Engine) Submit(ctx context.Context, user, answer string) (SubmitResult, error) {
	var (
		res        SubmitResult
		inProgress bool
		completed  []string
	)

	e.store.Update(user, func(sess *session.Session) {
		st, ok := sess.Assessment()
		if !ok {
			return
		}
		inProgress = true

		st.Answers = append(st.Answers, answer)
		if len(st.Answers) < e.bank.Len() {
			st.QuestionIndex = len(st.Answers)
			sess.SetAssessment(st)
			res.NextQuestion = e.bank.Question(st.QuestionIndex)
			return
		}

		// Final answer: drop the state before anything can observe it as
		// "completed", then summarize outside the lock.
		sess.ClearAssessment()
		completed = st.Answers
	})

	if !inProgress {
		return SubmitResult{}, ErrNotInProgress
	}
	if completed == nil {
		return res, nil
	}

	text, err := e.client.Assess(ctx, e.bank.All(), completed)
	res.Done = true
	res.Analysis = text
	if err != nil {
		slog.Warn("assessment analysis failed", "user", user, "error", err)
	}
	return res, err
}
