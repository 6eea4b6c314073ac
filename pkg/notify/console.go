// Package notify implements reporting.Notifier for terminals and logs.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/NexTeck/ExceptionHandler/pkg/reporting"
)

// Console draws each notification as a bordered box. Questions are asked
// with a confirm prompt when attached to a terminal.
type Console struct {
	mu          sync.Mutex
	out         io.Writer
	in          io.Reader
	title       string
	interactive bool
	renderer    *lipgloss.Renderer
}

// ConsoleOption configures a Console
type ConsoleOption func(*Console)

// WithOutput sets where notifications are drawn, stderr by default
func WithOutput(w io.Writer) ConsoleOption {
	return func(c *Console) {
		c.out = w
	}
}

// WithInput sets where answers are read from, stdin by default
func WithInput(r io.Reader) ConsoleOption {
	return func(c *Console) {
		c.in = r
	}
}

// WithTitle sets the title used when the context carries none
func WithTitle(title string) ConsoleOption {
	return func(c *Console) {
		c.title = title
	}
}

// WithInteractive overrides terminal detection
func WithInteractive(interactive bool) ConsoleOption {
	return func(c *Console) {
		c.interactive = interactive
	}
}

// NewConsole creates a console notifier
func NewConsole(opts ...ConsoleOption) *Console {
	c := &Console{
		out: os.Stderr,
		in:  os.Stdin,
	}
	c.interactive = isTerminal(c.in) && isTerminal(c.out)
	for _, opt := range opts {
		opt(c)
	}
	c.renderer = lipgloss.NewRenderer(c.out)
	return c
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

var kindColors = map[reporting.Kind]lipgloss.Color{
	reporting.KindInfo:     lipgloss.Color("12"),
	reporting.KindWarning:  lipgloss.Color("11"),
	reporting.KindError:    lipgloss.Color("9"),
	reporting.KindQuestion: lipgloss.Color("13"),
}

// Render returns the box drawn for a notification
func (c *Console) Render(title, message string, kind reporting.Kind) string {
	color := kindColors[kind]

	header := c.renderer.NewStyle().
		Bold(true).
		Foreground(color).
		Render(fmt.Sprintf("%s: %s", strings.ToUpper(kind.String()), title))

	box := c.renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(0, 1)

	return box.Render(lipgloss.JoinVertical(lipgloss.Left, header, "", message))
}

func (c *Console) Notify(ctx context.Context, message string, kind reporting.Kind) (reporting.Response, error) {
	title := reporting.TitleFromContext(ctx)
	if title == "" {
		title = c.title
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if kind == reporting.KindQuestion && c.interactive {
		return c.ask(ctx, title, message)
	}

	if _, err := fmt.Fprintln(c.out, c.Render(title, message, kind)); err != nil {
		return reporting.ResponseNone, fmt.Errorf("write notification: %w", err)
	}
	if kind == reporting.KindQuestion {
		return reporting.ResponseNone, nil
	}
	return reporting.ResponseOK, nil
}

func (c *Console) ask(ctx context.Context, title, message string) (reporting.Response, error) {
	var yes bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(message).
				Affirmative("Yes").
				Negative("No").
				Value(&yes),
		),
	).WithInput(c.in).WithOutput(c.out)

	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return reporting.ResponseNone, nil
		}
		return reporting.ResponseNone, fmt.Errorf("prompt: %w", err)
	}
	if yes {
		return reporting.ResponseYes, nil
	}
	return reporting.ResponseNo, nil
}
