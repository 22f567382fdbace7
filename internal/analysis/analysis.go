// Package analysis abstracts the content-analysis backend that turns a
// conversation or a completed answer set into text output.
//
// Implementations return typed errors so internal logic and tests can tell
// failure kinds apart; RenderFailure flattens them into the human-readable
// diagnostic string that goes out through the normal reply channel. Callers of
// the HTTP API cannot distinguish "the model answered" from "the call failed"
// except by the failure marker in the reply text — that conflation is a
// documented compatibility contract, so replies must never be assumed to
// contain substantive model output.
package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/mentalyze/server/internal/domain"
)

// Client is implemented by each analysis backend.
type Client interface {
	// Chat sends a full conversation, oldest turn first, and returns the
	// model's reply. The caller supplies any system preamble as part of
	// history; Chat prepends nothing. history must be non-empty.
	Chat(ctx context.Context, history []domain.Turn) (string, error)

	// Assess summarizes a completed assessment. answers must contain exactly
	// one entry per question, in bank order.
	Assess(ctx context.Context, questions, answers []string) (string, error)
}

// Precondition and response-shape failures. Transport failures surface as a
// *ProviderError (non-success status) or a wrapped network error.
var (
	// ErrNotConfigured means the backend credential is missing or malformed.
	// Checked before any network call.
	ErrNotConfigured = errors.New("analysis backend not configured")

	// ErrEmptyInput means the conversation or answer set failed validation.
	// No call is attempted.
	ErrEmptyInput = errors.New("analysis input empty or wrongly sized")

	// ErrBadResponse means the provider replied without the expected
	// completion field.
	ErrBadResponse = errors.New("analysis response missing completion")
)

// ProviderError is a non-success status from the provider.
type ProviderError struct {
	Status int
	Body   string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.Status, e.Body)
}

// FailureMarker prefixes every degraded reply produced by RenderFailure.
// The frontend keys off this marker, so it must stay recognizable.
const FailureMarker = "❌"

// RenderFailure converts an analysis error into the diagnostic string returned
// through the normal reply channel. This is the only place failures are
// flattened to text.
func RenderFailure(err error) string {
	var pe *ProviderError
	switch {
	case errors.Is(err, ErrNotConfigured):
		return FailureMarker + " The analysis service is not configured. Please contact the administrator."
	case errors.Is(err, ErrEmptyInput):
		return FailureMarker + " There was nothing to analyze. Please try again."
	case errors.Is(err, ErrBadResponse):
		return FailureMarker + " The analysis service returned an unexpected response. Please try again."
	case errors.As(err, &pe):
		return fmt.Sprintf("%s Error with the analysis service: %d - %s", FailureMarker, pe.Status, pe.Body)
	default:
		return fmt.Sprintf("%s Error with the analysis service: %v", FailureMarker, err)
	}
}
