package app

import (
	"io"
	"log/slog"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
}

// NewApp is the constructor for the main application. Resolved tables are
// written to outW; logs go to logW so machine-readable output stays clean.
func NewApp(outW, logW io.Writer, appConfig *Config) *App {
	logger := newLogger(appConfig, logW)
	logger.Debug("logger configured", "level", appConfig.LogLevel, "format", appConfig.LogFormat)

	return &App{
		outW:   outW,
		logger: logger,
		config: appConfig,
	}
}
