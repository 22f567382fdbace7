// Package api provides HTTP handlers for the Mentalyze API.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mentalyze/server/internal/dialog"
	"github.com/mentalyze/server/internal/domain"
	"github.com/mentalyze/server/internal/mood"
	"github.com/mentalyze/server/internal/transcript"
)

// maxRequestBodySize caps request bodies (1MB).
const maxRequestBodySize = 1 << 20

// Handler provides the REST surface over the dialog router and mood store.
type Handler struct {
	dialog *dialog.Router
	moods  mood.Repository
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(router *dialog.Router, moods mood.Repository) *Handler {
	return &Handler{dialog: router, moods: moods}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// decode parses a JSON request body into v, enforcing the size cap and
// rejecting unknown shapes once at the boundary.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return err
		}
		Error(w, http.StatusBadRequest, "invalid request body")
		return err
	}
	return nil
}

type chatRequest struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

type chatResponse struct {
	Reply   string        `json:"reply"`
	Status  dialog.Status `json:"status"`
	History []domain.Turn `json:"history,omitempty"`
}

type userRequest struct {
	Username string `json:"username"`
}

type startAssessmentResponse struct {
	Reply    string        `json:"reply"`
	Question string        `json:"question"`
	Status   dialog.Status `json:"status"`
}

type historyResponse struct {
	History []domain.Turn `json:"history"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type moodRequest struct {
	Username string `json:"username"`
	Mood     string `json:"mood"`
}

// HandleChat processes one chat message: either the next assessment answer or
// a free-chat turn.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decode(w, r, &req); err != nil {
		return
	}

	resp, err := h.dialog.HandleMessage(r.Context(), req.Username, req.Message)
	if errors.Is(err, dialog.ErrEmptyMessage) {
		JSON(w, http.StatusBadRequest, chatResponse{Reply: resp.Reply, Status: resp.Status})
		return
	}
	JSON(w, http.StatusOK, chatResponse{Reply: resp.Reply, Status: resp.Status, History: resp.History})
}

// HandleStartAssessment begins a fresh assessment, discarding any in progress.
func (h *Handler) HandleStartAssessment(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decode(w, r, &req); err != nil {
		return
	}

	reply, question := h.dialog.StartAssessment(req.Username)
	JSON(w, http.StatusOK, startAssessmentResponse{
		Reply:    reply,
		Question: question,
		Status:   dialog.StatusAssessment,
	})
}

// HandleGetHistory returns the stored chat history for a username.
func (h *Handler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decode(w, r, &req); err != nil {
		return
	}

	history := h.dialog.History(req.Username)
	if history == nil {
		history = []domain.Turn{}
	}
	JSON(w, http.StatusOK, historyResponse{History: history})
}

// HandleClearHistory removes the chat history for a username. Idempotent.
func (h *Handler) HandleClearHistory(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decode(w, r, &req); err != nil {
		return
	}

	h.dialog.ClearHistory(req.Username)
	JSON(w, http.StatusOK, statusResponse{Status: "success", Message: "Chat history cleared."})
}

// HandleClearAssessment removes the assessment state for a username. Idempotent.
func (h *Handler) HandleClearAssessment(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decode(w, r, &req); err != nil {
		return
	}

	h.dialog.ClearAssessment(req.Username)
	JSON(w, http.StatusOK, statusResponse{Status: "success", Message: "Assessment cleared."})
}

// HandleTrackMood records a mood check-in from the tracker widget.
func (h *Handler) HandleTrackMood(w http.ResponseWriter, r *http.Request) {
	var req moodRequest
	if err := decode(w, r, &req); err != nil {
		return
	}

	moodLabel := strings.TrimSpace(req.Mood)
	if moodLabel == "" {
		Error(w, http.StatusBadRequest, "mood is required")
		return
	}

	entry := domain.MoodEntry{
		Username:   h.dialog.Resolve(req.Username),
		Mood:       moodLabel,
		RecordedAt: time.Now().UTC(),
	}
	if err := h.moods.Record(r.Context(), entry); err != nil {
		slog.Error("failed to record mood", "user", entry.Username, "error", err)
		Error(w, http.StatusInternalServerError, "failed to record mood")
		return
	}

	h.dialog.LogEvent(req.Username, transcript.EventMoodRecorded, moodLabel)
	JSON(w, http.StatusOK, statusResponse{Status: "success", Message: "Mood recorded."})
}

// HandleEmergency returns static crisis resources. No model call is involved.
func (h *Handler) HandleEmergency(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decode(w, r, &req); err != nil {
		return
	}

	h.dialog.LogEvent(req.Username, transcript.EventEmergency, "")
	JSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "If you are in immediate danger, please contact local emergency services now.",
		"resources": []map[string]string{
			{"name": "988 Suicide & Crisis Lifeline (US)", "contact": "Call or text 988"},
			{"name": "Crisis Text Line", "contact": "Text HOME to 741741"},
			{"name": "International Association for Suicide Prevention", "contact": "https://www.iasp.info/resources/Crisis_Centres/"},
		},
	})
}

// HandlePing answers the frontend's availability probe.
func (h *Handler) HandlePing(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// RegisterRoutes registers the API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/", h.HandlePing)
		r.Post("/chat", h.HandleChat)
		r.Post("/start_assessment", h.HandleStartAssessment)
		r.Post("/get_history", h.HandleGetHistory)
		r.Post("/clear_history", h.HandleClearHistory)
		r.Post("/clear_assessment", h.HandleClearAssessment)
		r.Post("/track_mood", h.HandleTrackMood)
		r.Post("/emergency", h.HandleEmergency)
	})
}
