// Package ui defines the surfaces the command layer talks to the
// operator through. Implementations render toasts, dialogs, or plain
// terminal output; the command layer only sees these interfaces.
package ui

import (
	"context"
	"log/slog"
)

// Severity of a notification.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notification is one operator-facing message.
type Notification struct {
	Severity Severity
	Message  string
}

// Notifier delivers notifications to the operator. Implementations must
// not block: a slow surface must not stall command dispatch.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Confirmer asks the operator a yes/no question before a destructive
// action proceeds. Returning false aborts the action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, n Notification)

func (f NotifierFunc) Notify(ctx context.Context, n Notification) { f(ctx, n) }

// ConfirmerFunc adapts a function to the Confirmer interface.
type ConfirmerFunc func(ctx context.Context, prompt string) bool

func (f ConfirmerFunc) Confirm(ctx context.Context, prompt string) bool { return f(ctx, prompt) }

// LogNotifier writes notifications to a slog.Logger. It is the default
// surface when no UI is wired up.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier backed by logger. A nil logger uses
// slog.Default().
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, notification Notification) {
	switch notification.Severity {
	case SeverityWarning:
		n.logger.WarnContext(ctx, notification.Message)
	case SeverityError:
		n.logger.ErrorContext(ctx, notification.Message)
	default:
		n.logger.InfoContext(ctx, notification.Message)
	}
}

// AutoConfirm approves every prompt. Useful in tests and scripted runs.
type AutoConfirm struct{}

func (AutoConfirm) Confirm(context.Context, string) bool { return true }

// AutoDecline refuses every prompt.
type AutoDecline struct{}

func (AutoDecline) Confirm(context.Context, string) bool { return false }
