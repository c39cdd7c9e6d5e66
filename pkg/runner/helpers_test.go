package runner_test

import (
	"log/slog"

	"github.com/springjools/ombibot/internal/logging"
)

func discardLogger() *slog.Logger {
	return logging.NewNop()
}
