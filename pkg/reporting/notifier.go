package reporting

import "context"

// Kind selects how a notification is presented
type Kind int

const (
	KindInfo Kind = iota
	KindWarning
	KindError
	KindQuestion
)

func (k Kind) String() string {
	switch k {
	case KindInfo:
		return "info"
	case KindWarning:
		return "warning"
	case KindError:
		return "error"
	case KindQuestion:
		return "question"
	default:
		return "unknown"
	}
}

// Response is the operator's answer to a notification, if any
type Response int

const (
	ResponseNone Response = iota
	ResponseOK
	ResponseYes
	ResponseNo
)

func (r Response) String() string {
	switch r {
	case ResponseOK:
		return "ok"
	case ResponseYes:
		return "yes"
	case ResponseNo:
		return "no"
	default:
		return "none"
	}
}

// Notifier surfaces messages to an operator. Implementations decide how
// (console, dialog, log sink); they may block until the operator answers.
type Notifier interface {
	Notify(ctx context.Context, message string, kind Kind) (Response, error)
}

// NotifierFunc adapts a function to the Notifier interface
type NotifierFunc func(ctx context.Context, message string, kind Kind) (Response, error)

func (f NotifierFunc) Notify(ctx context.Context, message string, kind Kind) (Response, error) {
	return f(ctx, message, kind)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string, Kind) (Response, error) {
	return ResponseNone, nil
}

type titleKey struct{}

// ContextWithTitle attaches a notification title to ctx
func ContextWithTitle(ctx context.Context, title string) context.Context {
	return context.WithValue(ctx, titleKey{}, title)
}

// TitleFromContext returns the notification title carried by ctx
func TitleFromContext(ctx context.Context) string {
	title, _ := ctx.Value(titleKey{}).(string)
	return title
}
