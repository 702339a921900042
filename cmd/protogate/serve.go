package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	runtimepkg "github.com/drblury/protogate/internal/runtime"
	configpkg "github.com/drblury/protogate/internal/runtime/config"
	loggingpkg "github.com/drblury/protogate/internal/runtime/logging"
	"github.com/drblury/protogate/modules"
)

func newServeCmd() *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway",
		Long:  "Connects every backend over its configured transport and serves the gateway routes until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := loadConfig(envFile)
			if err != nil {
				return err
			}

			slogger, err := loggingpkg.NewSlog(conf.LogFormat, conf.LogLevel, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			log := loggingpkg.NewSlogServiceLogger(slogger)

			svc, err := runtimepkg.NewService(conf, log, catalog(), runtimepkg.ServiceDependencies{})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := svc.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("Gateway stopped with error", err, nil)
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment; a missing file is ignored")
	return cmd
}

// loadConfig reads envFile into the environment and loads the settings of
// every backend the catalog depends on.
func loadConfig(envFile string) (*configpkg.Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	conf, err := configpkg.Load(modules.Backends(catalog())...)
	if err != nil {
		return nil, err
	}
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	return conf, nil
}
