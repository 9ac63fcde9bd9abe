package items

import (
	"context"
	"log/slog"
)

// NoopNotifier is a no-operation implementation of Notifier
// Useful when nothing subscribes to item events, and in tests
type NoopNotifier struct{}

// NewNoopNotifier creates a new no-operation notifier
func NewNoopNotifier() Notifier {
	return &NoopNotifier{}
}

// Notify does nothing and returns nil
func (n *NoopNotifier) Notify(ctx context.Context, event Event) error {
	return nil
}

// NoopAuditLogger discards audit entries
type NoopAuditLogger struct{}

// NewNoopAuditLogger creates a new no-operation audit logger
func NewNoopAuditLogger() AuditLogger {
	return &NoopAuditLogger{}
}

// Log does nothing and returns nil
func (n *NoopAuditLogger) Log(ctx context.Context, event string, payload map[string]any, subjectID int64) error {
	return nil
}

// SlogAuditLogger writes audit entries to a structured logger
// Useful for development and debugging
type SlogAuditLogger struct {
	logger *slog.Logger
}

// NewSlogAuditLogger creates an audit logger backed by logger
func NewSlogAuditLogger(logger *slog.Logger) AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAuditLogger{logger: logger}
}

// Log writes the entry at info level
func (l *SlogAuditLogger) Log(ctx context.Context, event string, payload map[string]any, subjectID int64) error {
	l.logger.InfoContext(ctx, "audit", "event", event, "subject_id", subjectID, "payload", payload)
	return nil
}

// StaticLocalizer serves a fixed, ordered language list
type StaticLocalizer struct {
	languages []Language
}

// NewStaticLocalizer creates a localizer over languages in the given order
func NewStaticLocalizer(languages ...Language) *StaticLocalizer {
	return &StaticLocalizer{languages: append([]Language(nil), languages...)}
}

func (l *StaticLocalizer) Languages() []Language {
	return append([]Language(nil), l.languages...)
}
