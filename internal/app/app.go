// Package app wires settings, data loaders and the workflow driver into a
// runnable application.
package app

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/emigrid/internal/config"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	settings *config.Settings
}

// New is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and loaded
// settings.
func New(outW io.Writer, appConfig *Config) (*App, error) {
	logger := newLogger(appConfig, outW)

	settings, err := config.Load(appConfig.ConfigPath, appConfig.BasePath)
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	logger.Debug("Settings loaded.", "version", settings.Version, "baseYear", settings.BaseYear)

	return &App{
		outW:     outW,
		logger:   logger,
		config:   appConfig,
		settings: settings,
	}, nil
}

// Settings returns the loaded pipeline settings. This is primarily for testing.
func (a *App) Settings() *config.Settings {
	return a.settings
}
