// Package transcript records conversation events as NDJSON, one file per
// username plus an optional combined stream. Writing happens on a background
// worker so the dialog path never blocks on disk; when the queue is full the
// event is dropped and counted.
package transcript

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"sync/atomic"
	"time"
)

// Event types recorded by the dialog router.
const (
	EventChatUserMessage      = "chat_user_message"
	EventChatAssistantMessage = "chat_assistant_message"
	EventAssessmentStarted    = "assessment_started"
	EventAssessmentAnswer     = "assessment_answer"
	EventAssessmentAnalysis   = "assessment_analysis"
	EventMoodRecorded         = "mood_recorded"
	EventEmergency            = "emergency"
)

// Event is one recorded conversation event.
type Event struct {
	Timestamp string         `json:"ts"`
	Username  string         `json:"username"`
	Channel   string         `json:"channel,omitempty"`
	Role      string         `json:"role,omitempty"`
	EventType string         `json:"event_type"`
	Content   string         `json:"content,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// Logger receives conversation events. Implementations must be safe for
// concurrent use and must never block the caller.
type Logger interface {
	Log(Event)
	Close() error
}

// Noop discards all events.
type Noop struct{}

// Log implements Logger.
func (Noop) Log(Event) {}

// Close implements Logger.
func (Noop) Close() error { return nil }

// Config controls the file-backed logger.
type Config struct {
	Dir           string
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int
}

// FileLogger appends events to per-user NDJSON files under Dir.
type FileLogger struct {
	cfg     Config
	queue   chan Event
	done    chan struct{}
	wg      sync.WaitGroup
	dropped atomic.Int64
}

// NewFileLogger creates the logger and starts its writer goroutine.
func NewFileLogger(cfg Config) (*FileLogger, error) {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create transcript dir: %w", err)
	}
	if cfg.GlobalEnabled {
		if err := os.MkdirAll(filepath.Dir(cfg.GlobalPath), 0o755); err != nil {
			return nil, fmt.Errorf("create global transcript dir: %w", err)
		}
	}
	l := &FileLogger{
		cfg:   cfg,
		queue: make(chan Event, cfg.QueueSize),
		done:  make(chan struct{}),
	}
	l.wg.Add(1)
	go l.run()
	return l, nil
}

// Log enqueues an event, stamping the timestamp if unset. Drops when full.
func (l *FileLogger) Log(ev Event) {
	if ev.Timestamp == "" {
		ev.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	select {
	case l.queue <- ev:
	default:
		if n := l.dropped.Add(1); n%100 == 1 {
			slog.Warn("transcript queue full, dropping events", "dropped_total", n)
		}
	}
}

// Close drains the queue and stops the writer.
func (l *FileLogger) Close() error {
	close(l.done)
	l.wg.Wait()
	return nil
}

func (l *FileLogger) run() {
	defer l.wg.Done()
	for {
		select {
		case ev := <-l.queue:
			l.write(ev)
		case <-l.done:
			for {
				select {
				case ev := <-l.queue:
					l.write(ev)
				default:
					return
				}
			}
		}
	}
}

func (l *FileLogger) write(ev Event) {
	line, err := json.Marshal(ev)
	if err != nil {
		slog.Warn("failed to marshal transcript event", "error", err)
		return
	}
	line = append(line, '\n')

	path := filepath.Join(l.cfg.Dir, sanitizeFilename(ev.Username)+".ndjson")
	if err := appendFile(path, line); err != nil {
		slog.Warn("failed to write transcript", "path", path, "error", err)
	}
	if l.cfg.GlobalEnabled {
		if err := appendFile(l.cfg.GlobalPath, line); err != nil {
			slog.Warn("failed to write global transcript", "path", l.cfg.GlobalPath, "error", err)
		}
	}
}

func appendFile(path string, line []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// sanitizeFilename maps a free-text username onto a safe file name.
func sanitizeFilename(name string) string {
	clean := unsafeFilenameChars.ReplaceAllString(name, "_")
	if clean == "" || clean == "." || clean == ".." {
		return "_anonymous"
	}
	return clean
}
