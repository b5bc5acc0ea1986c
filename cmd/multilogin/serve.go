package main

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/omarluq/multilogin/internal/di"
	"github.com/omarluq/multilogin/internal/ro"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the login server",
	Long: `Start the HTTP server with one endpoint per configured login method.
The config file is watched; valid changes to the login section are applied
without a restart.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	reg, err := newRegistry()
	if err != nil {
		return err
	}

	container, err := di.NewContainer(configPath(), reg)
	if err != nil {
		return err
	}

	if err := container.HealthCheck(); err != nil {
		log.Error().Err(err).Msg("startup failed")
		return err
	}

	logger := di.MustInvoke[*di.LoggerService](container).Logger
	log.Logger = *logger
	zerolog.DefaultContextLogger = logger

	srv, err := di.Invoke[*di.ServerService](container)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cfgSvc := di.MustInvoke[*di.ConfigService](container)
	cfgSvc.StartWatching(ctx)

	serveErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("listen", srv.Server.Addr()).
			Int("methods", di.MustInvoke[*di.MethodService](container).Get().Len()).
			Msg("starting multilogin")
		serveErr <- srv.Server.ListenAndServe()
	}()

	shutdown := make(chan error, 1)
	go func() {
		sig, waitErr := ro.WaitForShutdown(ctx)
		if waitErr == nil {
			log.Info().Str("signal", sig.String()).Msg("shutting down...")
		}
		shutdown <- waitErr
	}()

	select {
	case err = <-serveErr:
		if err != nil {
			log.Error().Err(err).Msg("server error")
		}
	case waitErr := <-shutdown:
		if waitErr != nil && !errors.Is(waitErr, context.Canceled) {
			err = waitErr
		}
	}

	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), di.ShutdownTimeout)
	defer stop()
	if shutdownErr := container.ShutdownWithContext(shutdownCtx); shutdownErr != nil {
		log.Error().Err(shutdownErr).Msg("shutdown error")
	}

	log.Info().Msg("server stopped")
	return err
}
