package main

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/fitfuel/identity-service/internal/infrastructure/config"
	"github.com/fitfuel/identity-service/pkg/logger"
)

const serviceName = "identity-service"

// NewRootCmd creates the root command of the identity service CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   serviceName,
		Short: "FitFuel identity service",
		Long: `Authenticates FitFuel users, issues signed bearer tokens and manages
passwords, including the administrator forced-change workflow.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewHashPasswordCmd())

	return cmd
}

// loadRuntime reads the environment configuration and initialises the logger.
func loadRuntime(ctx context.Context) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, zerolog.Nop(), err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty || cfg.IsDevelopment(),
		Service: serviceName,
		Version: version,
	})
	return cfg, log, nil
}
