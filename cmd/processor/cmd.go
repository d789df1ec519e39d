package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/orderflow/coordinator/internal/platform/config"
)

func run() error {
	app := &cli.App{
		Name:  ServiceName,
		Usage: "Order-coordination processor service",
		Commands: []*cli.Command{
			serverCmd(),
		},
	}
	return app.Run(os.Args)
}

func serverCmd() *cli.Command {
	return &cli.Command{
		Name:    "server",
		Aliases: []string{"s"},
		Usage:   "Run the gRPC/HTTP processor server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config_file",
				Usage: "Path to the configuration file",
			},
		},
		Action: func(c *cli.Context) error {
			configFile := c.String("config_file")
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			fxApp, _, err := NewApp(cfg, configFile)
			if err != nil {
				return err
			}

			if err := fxApp.Start(c.Context); err != nil {
				return err
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop

			slog.Info("processor: shutting down")
			return fxApp.Stop(context.Background())
		},
	}
}
