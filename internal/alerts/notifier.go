package alerts

import (
	"context"
	"os/exec"

	"github.com/rs/zerolog"

	"github.com/orwatch/orwatch/internal/logging"
)

// Notifier delivers one alert to whatever the platform does with it. ID is
// stable per alert occurrence (it embeds the day key, and the key id for
// spikes) so platform layers can dedupe on their own.
type Notifier interface {
	Notify(ctx context.Context, title, body, id string) error
}

// LogNotifier writes alerts to the structured log. It is the default sink.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{log: logging.Component("notify")}
}

func (n *LogNotifier) Notify(_ context.Context, title, body, id string) error {
	n.log.Warn().Str("id", id).Str("title", title).Str("body", body).Msg("alert")
	return nil
}

// ExecNotifier invokes an external command with (title, body, id) as
// arguments, e.g. notify-send or a user script.
type ExecNotifier struct {
	command string
}

func NewExecNotifier(command string) *ExecNotifier {
	return &ExecNotifier{command: command}
}

func (n *ExecNotifier) Notify(ctx context.Context, title, body, id string) error {
	return exec.CommandContext(ctx, n.command, title, body, id).Run()
}

// NewNotifier returns an ExecNotifier when command is non-empty, else the
// log-backed default.
func NewNotifier(command string) Notifier {
	if command != "" {
		return NewExecNotifier(command)
	}
	return NewLogNotifier()
}
