// Package logging establishes the process-wide zerolog baseline used by
// every component of the service core. Hosts call Init once at startup;
// error-reporting sinks (Sentry and friends) stay with the embedding host.
package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

// Config controls logger initialization.
type Config struct {
	Debug     bool   // debug level instead of info
	Format    string // "json", "console", or "auto"
	Component string // optional component name stamped on every record
}

var isTerminalFn = term.IsTerminal

// Init configures zerolog globals and installs the package-level logger.
func Init(cfg Config) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	contextBuilder := zerolog.New(selectWriter(cfg.Format)).With().Timestamp()
	if component := strings.TrimSpace(cfg.Component); component != "" {
		contextBuilder = contextBuilder.Str("component", component)
	}

	logger := contextBuilder.Logger()
	log.Logger = logger
	return logger
}

func selectWriter(format string) zerolog.LevelWriter {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "console":
		return zerolog.MultiLevelWriter(consoleWriter())
	case "json":
		return zerolog.MultiLevelWriter(os.Stderr)
	default: // auto
		if isTerminalFn(int(os.Stderr.Fd())) {
			return zerolog.MultiLevelWriter(consoleWriter())
		}
		return zerolog.MultiLevelWriter(os.Stderr)
	}
}

func consoleWriter() zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
}
