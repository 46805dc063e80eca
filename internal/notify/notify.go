// Package notify delivers user-facing notices (toasts) raised by a
// comparison run.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Severity of a notice
type Severity string

const (
	SeverityDefault     Severity = "default"
	SeverityDestructive Severity = "destructive"
)

// Notification is one user-facing notice
type Notification struct {
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	CreatedAt time.Time `json:"created_at"`
}

// Notifier receives notices
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(ctx context.Context, n Notification)

// Notify calls f
func (f NotifierFunc) Notify(ctx context.Context, n Notification) {
	f(ctx, n)
}

// Discard drops every notice
var Discard Notifier = NotifierFunc(func(context.Context, Notification) {})

// Inbox keeps the most recent notices until they are drained by a page render
type Inbox struct {
	mu    sync.Mutex
	items []Notification
	limit int
}

// NewInbox creates an inbox holding at most limit pending notices
func NewInbox(limit int) *Inbox {
	if limit <= 0 {
		limit = 10
	}
	return &Inbox{limit: limit}
}

// Notify queues n, dropping the oldest notice when full
func (i *Inbox) Notify(_ context.Context, n Notification) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	i.items = append(i.items, n)
	if len(i.items) > i.limit {
		i.items = i.items[len(i.items)-i.limit:]
	}
}

// Drain returns and clears the pending notices, oldest first
func (i *Inbox) Drain() []Notification {
	i.mu.Lock()
	defer i.mu.Unlock()

	items := i.items
	i.items = nil
	return items
}

// Logger writes every notice to a structured logger
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates a logging notifier
func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger}
}

// Notify logs n, at warn level for destructive notices
func (l *Logger) Notify(ctx context.Context, n Notification) {
	level := slog.LevelInfo
	if n.Severity == SeverityDestructive {
		level = slog.LevelWarn
	}
	l.logger.Log(ctx, level, "notification",
		"title", n.Title,
		"message", n.Message,
		"severity", string(n.Severity),
	)
}

// Multi fans each notice out to all notifiers
func Multi(notifiers ...Notifier) Notifier {
	return NotifierFunc(func(ctx context.Context, n Notification) {
		for _, nt := range notifiers {
			nt.Notify(ctx, n)
		}
	})
}
