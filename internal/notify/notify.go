package notify

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/charmbracelet/lipgloss"
	"github.com/gen2brain/beeep"
)

type Level int

const (
	Info Level = iota
	Success
	Warning
	Error
)

func (l Level) String() string {
	switch l {
	case Success:
		return "success"
	case Warning:
		return "warning"
	case Error:
		return "error"
	}
	return "info"
}

// Notifier shows a user-facing message.
type Notifier interface {
	Notify(level Level, title, message string)
}

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
)

var markers = map[Level]string{
	Info:    "i",
	Success: "✓",
	Warning: "!",
	Error:   "✗",
}

// Console prints styled lines to a terminal.
type Console struct {
	w io.Writer
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Notify(level Level, title, message string) {
	style := infoStyle
	switch level {
	case Success:
		style = successStyle
	case Warning:
		style = warningStyle
	case Error:
		style = errorStyle
	}

	head := style.Render(markers[level] + " " + title)
	if message == "" {
		fmt.Fprintln(c.w, head)
		return
	}
	fmt.Fprintf(c.w, "%s %s\n", head, message)
}

// Desktop sends notifications through the OS notification center.
type Desktop struct {
	appName string
	logger  *slog.Logger
	send    func(title, message string) error
}

func NewDesktop(appName string, logger *slog.Logger) *Desktop {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	beeep.AppName = appName
	return &Desktop{appName: appName, logger: logger, send: desktopSend}
}

func (d *Desktop) Notify(level Level, title, message string) {
	if err := d.send(title, message); err != nil {
		d.logger.Warn("desktop notification failed", "level", level.String(), "error", err)
	}
}

func desktopSend(title, message string) error {
	return beeep.Notify(title, message, "")
}

// Multi fans a message out to every notifier.
type Multi []Notifier

func (m Multi) Notify(level Level, title, message string) {
	for _, n := range m {
		n.Notify(level, title, message)
	}
}

// Discard drops everything.
type Discard struct{}

func (Discard) Notify(Level, string, string) {}
