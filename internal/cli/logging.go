package cli

import (
	"flag"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogLevelEnv selects the log level when no --log-level flag is given.
const LogLevelEnv = "COVERGATE_LOG_LEVEL"

var logLevel = new(slog.LevelVar)

// NewLogger returns a text logger on w. Its level comes from LogLevelEnv
// and can be raised or lowered later with --log-level.
func NewLogger(w io.Writer) *slog.Logger {
	logLevel.Set(slog.LevelWarn)
	if value := os.Getenv(LogLevelEnv); value != "" {
		_ = (*levelValue)(logLevel).Set(value)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
}

func logLevelFlag(fs *flag.FlagSet) {
	fs.Var((*levelValue)(logLevel), "log-level", "Log level: debug|info|warn|error")
}

type levelValue slog.LevelVar

func (l *levelValue) String() string {
	return strings.ToLower((*slog.LevelVar)(l).Level().String())
}

func (l *levelValue) Set(value string) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return err
	}
	(*slog.LevelVar)(l).Set(level)
	return nil
}
