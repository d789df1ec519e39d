package main

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/orderflow/coordinator/internal/platform/config"
	"github.com/orderflow/coordinator/internal/platform/logging"
	"github.com/orderflow/coordinator/internal/processor/service"
)

const ServiceName = "orderflow-processor"

// NewApp wires the fx.App plus a config.Reloader watching configFile
// for log-level changes; the caller owns the reloader only to keep it
// alive, there is nothing to stop explicitly.
func NewApp(cfg *config.Config, configFile string) (*fx.App, *config.Reloader, error) {
	levelVar := logging.NewLevelVar(cfg.LogLevel)
	reloader, err := config.Watch(configFile, func(updated *config.Config) {
		levelVar.Set(logging.ParseLevel(updated.LogLevel))
	})
	if err != nil {
		return nil, nil, err
	}

	app := fx.New(
		fx.Provide(
			func() *config.Config { return cfg },
			func() *slog.Logger { return logging.New(ServiceName, levelVar) },
		),
		service.Module,
	)
	return app, reloader, nil
}
