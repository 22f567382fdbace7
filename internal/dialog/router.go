// Package dialog decides, for each incoming message, whether it is a free-chat
// turn or the next assessment answer, and composes the response.
package dialog

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/mentalyze/server/internal/analysis"
	"github.com/mentalyze/server/internal/assessment"
	"github.com/mentalyze/server/internal/domain"
	"github.com/mentalyze/server/internal/identity"
	"github.com/mentalyze/server/internal/session"
	"github.com/mentalyze/server/internal/transcript"
)

// Status labels the kind of reply in a dialog response.
type Status string

const (
	// StatusError marks a rejected request (empty message).
	StatusError Status = "error"
	// StatusAssessment marks a reply carrying the next assessment question.
	StatusAssessment Status = "assessment"
	// StatusAnalysis marks the final assessment summary.
	StatusAnalysis Status = "analysis"
	// StatusSuccess marks an ordinary chat reply.
	StatusSuccess Status = "success"
)

// ErrEmptyMessage rejects empty or whitespace-only messages before any state
// is touched. It never reaches the analysis backend.
var ErrEmptyMessage = errors.New("message is empty")

// StartReply is the fixed banner sent when an assessment begins.
const StartReply = "Starting your mental health assessment. First question:"

// Response is the composed outcome of one dialog operation.
type Response struct {
	Reply   string
	Status  Status
	History []domain.Turn // populated for chat-mode replies only
}

// Router is the top-level per-request dispatcher: assessment answer or free
// chat, then response composition.
type Router struct {
	store   *session.Store
	engine  *assessment.Engine
	client  analysis.Client
	persona string
	policy  identity.Policy
	log     transcript.Logger
}

// NewRouter wires the dialog router. persona is the static system preamble
// prepended to every chat-mode prompt.
func NewRouter(store *session.Store, engine *assessment.Engine, client analysis.Client, persona string, policy identity.Policy, log transcript.Logger) *Router {
	if log == nil {
		log = transcript.Noop{}
	}
	return &Router{
		store:   store,
		engine:  engine,
		client:  client,
		persona: persona,
		policy:  policy,
		log:     log,
	}
}

// HandleMessage processes one incoming (username, message) pair.
//
// The user turn is appended to chat history in both modes; the assessment
// question/summary replies are not, so chat and assessment stay disjoint
// streams. Analysis failures degrade to a marker-prefixed reply string rather
// than an error — callers must not assume Reply contains model output.
func (r *Router) HandleMessage(ctx context.Context, username, message string) (Response, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Response{Reply: "Please enter a valid message.", Status: StatusError}, ErrEmptyMessage
	}

	user := r.policy.Resolve(username)
	r.store.AppendTurn(user, domain.UserTurn(message))
	r.logEvent(user, string(domain.RoleUser), transcript.EventChatUserMessage, message)

	if r.engine.InProgress(user) {
		return r.handleAnswer(ctx, user, message)
	}
	return r.handleChat(ctx, user)
}

// handleAnswer delegates to the assessment engine and translates its result.
func (r *Router) handleAnswer(ctx context.Context, user, message string) (Response, error) {
	res, err := r.engine.Submit(ctx, user, message)
	if errors.Is(err, assessment.ErrNotInProgress) {
		// The assessment finished between the mode check and the submit;
		// treat the message as ordinary chat.
		return r.handleChat(ctx, user)
	}

	if !res.Done {
		r.logEvent(user, "", transcript.EventAssessmentAnswer, message)
		return Response{Reply: res.NextQuestion, Status: StatusAssessment}, nil
	}

	reply := res.Analysis
	if err != nil {
		reply = analysis.RenderFailure(err)
	}
	// The summary is returned but never enters chat history.
	r.logEvent(user, string(domain.RoleAssistant), transcript.EventAssessmentAnalysis, reply)
	return Response{Reply: reply, Status: StatusAnalysis}, nil
}

// handleChat builds the outbound prompt from the persona preamble plus the
// stored history and appends the reply as an assistant turn. The analysis call
// runs outside any session lock.
func (r *Router) handleChat(ctx context.Context, user string) (Response, error) {
	history := r.store.History(user)
	prompt := make([]domain.Turn, 0, len(history)+1)
	prompt = append(prompt, domain.SystemTurn(r.persona))
	prompt = append(prompt, history...)

	reply, err := r.client.Chat(ctx, prompt)
	if err != nil {
		slog.Warn("chat analysis failed", "user", user, "error", err)
		reply = analysis.RenderFailure(err)
	}

	// Soft-fail contract: degraded replies still become assistant turns.
	r.store.AppendTurn(user, domain.AssistantTurn(reply))
	r.logEvent(user, string(domain.RoleAssistant), transcript.EventChatAssistantMessage, reply)

	return Response{Reply: reply, Status: StatusSuccess, History: r.store.History(user)}, nil
}

// StartAssessment resets any assessment in progress and returns the first
// question. Chat history is untouched; the two stores are separate state.
func (r *Router) StartAssessment(username string) (reply, question string) {
	user := r.policy.Resolve(username)
	question = r.engine.Start(user)
	r.logEvent(user, "", transcript.EventAssessmentStarted, question)
	return StartReply, question
}

// History returns the user's stored chat history, oldest first.
func (r *Router) History(username string) []domain.Turn {
	return r.store.History(r.policy.Resolve(username))
}

// ClearHistory removes the user's chat history. Idempotent.
func (r *Router) ClearHistory(username string) {
	r.store.ClearHistory(r.policy.Resolve(username))
}

// ClearAssessment removes the user's assessment state. Idempotent.
func (r *Router) ClearAssessment(username string) {
	r.store.ClearAssessment(r.policy.Resolve(username))
}

// Resolve exposes the session-key policy for collaborators that log or store
// by username outside the dialog path.
func (r *Router) Resolve(username string) string {
	return r.policy.Resolve(username)
}

// LogEvent records a conversation event for surfaces outside the dialog path.
func (r *Router) LogEvent(username, eventType, content string) {
	r.logEvent(r.policy.Resolve(username), "", eventType, content)
}

func (r *Router) logEvent(user, role, eventType, content string) {
	r.log.Log(transcript.Event{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Username:  user,
		Channel:   "chat",
		Role:      role,
		EventType: eventType,
		Content:   content,
	})
}
