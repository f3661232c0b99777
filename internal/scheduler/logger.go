package scheduler

import (
	"log/slog"

	"hotfolder/internal/logging"
)

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	args := append([]any{logging.Error(err), logging.Alert("scheduler_error")}, keysAndValues...)
	l.logger.Error(msg, args...)
}
