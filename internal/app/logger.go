package app

import (
	"io"
	"log/slog"
)

// levelNames maps the log-level flag to slog levels. Unknown names fall
// back to info so a misconfigured level never silences resolution errors.
var levelNames = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// newLogger builds the app's isolated logger from the validated config.
// The process-wide slog default is left untouched so resolution can run as
// a library without hijacking the host's logging.
func newLogger(appConfig *Config, outW io.Writer) *slog.Logger {
	level, ok := levelNames[appConfig.LogLevel]
	if !ok {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if appConfig.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(outW, opts))
	}
	return slog.New(slog.NewTextHandler(outW, opts))
}
