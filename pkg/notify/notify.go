package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/NexTeck/ExceptionHandler/pkg/logger"
	"github.com/NexTeck/ExceptionHandler/pkg/reporting"
)

// Log writes notifications to a structured logger
type Log struct {
	log *logger.Logger
}

// NewLog creates a log notifier; a nil logger uses the global one
func NewLog(l *logger.Logger) *Log {
	if l == nil {
		l = logger.Global().WithComponent("notify")
	}
	return &Log{log: l}
}

func (n *Log) Notify(ctx context.Context, message string, kind reporting.Kind) (reporting.Response, error) {
	level := slog.LevelInfo
	switch kind {
	case reporting.KindWarning:
		level = slog.LevelWarn
	case reporting.KindError:
		level = slog.LevelError
	}

	attrs := []slog.Attr{slog.String("kind", kind.String())}
	if title := reporting.TitleFromContext(ctx); title != "" {
		attrs = append(attrs, slog.String("title", title))
	}
	n.log.LogAttrs(ctx, level, message, attrs...)
	return reporting.ResponseNone, nil
}

// Multi fans a notification out to several notifiers. The first response
// other than ResponseNone wins; errors are joined.
type Multi []reporting.Notifier

func (m Multi) Notify(ctx context.Context, message string, kind reporting.Kind) (reporting.Response, error) {
	resp := reporting.ResponseNone
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		r, err := n.Notify(ctx, message, kind)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if resp == reporting.ResponseNone {
			resp = r
		}
	}
	return resp, errors.Join(errs...)
}

// Discard drops every notification
type Discard struct{}

func (Discard) Notify(context.Context, string, reporting.Kind) (reporting.Response, error) {
	return reporting.ResponseNone, nil
}
