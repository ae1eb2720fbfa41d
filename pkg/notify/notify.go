// Package notify is the modal surface validation failures are reported on.
package notify

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is one modal message. When Items is non-empty it replaces
// Message in the rendered text.
type Notification struct {
	Title   string
	Message string
	Items   []string
	Level   Level
}

// Text renders the body the way the modal shows it.
func (n Notification) Text() string {
	return FormatItems(n.Message, n.Items)
}

// FormatItems renders items as a bulleted list, one per line. With no items
// it returns message.
func FormatItems(message string, items []string) string {
	if len(items) == 0 {
		return message
	}
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "• " + item
	}
	return strings.Join(lines, "\n")
}

type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, n Notification)

func (f Func) Notify(ctx context.Context, n Notification) {
	f(ctx, n)
}

// LogNotifier writes notifications to a zerolog logger.
type LogNotifier struct {
	Logger zerolog.Logger
}

func (l LogNotifier) Notify(_ context.Context, n Notification) {
	var ev *zerolog.Event
	switch n.Level {
	case LevelError:
		ev = l.Logger.Error()
	case LevelWarning:
		ev = l.Logger.Warn()
	default:
		ev = l.Logger.Info()
	}
	ev.Str("title", n.Title).Strs("items", n.Items).Msg(n.Text())
}

// Discard drops every notification.
var Discard Notifier = Func(func(context.Context, Notification) {})
