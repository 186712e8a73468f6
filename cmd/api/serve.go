package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"crypto-checkout-gateway/internal/adapter/http/handler"
	"crypto-checkout-gateway/internal/app"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var specPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the background workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration:\n%w", err)
			}
			if cfg.Server.Mode != "" {
				gin.SetMode(cfg.Server.Mode)
			}

			log.Info().
				Str("mode", cfg.Server.Mode).
				Int("port", cfg.Server.Port).
				Str("version", Version).
				Msg("Starting Crypto Checkout Gateway")

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := app.Build(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			// OpenAPI document for Swagger UI
			if specBytes, err := os.ReadFile(specPath); err == nil {
				handler.SetSwaggerSpec(specBytes)
				log.Info().Msg("OpenAPI document loaded for Swagger UI at /swagger")
			} else {
				log.Warn().Err(err).Msg("OpenAPI document not found, Swagger UI will be unavailable")
			}

			return a.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&specPath, "openapi", "docs/api/openapi.yaml", "OpenAPI document served at /swagger/spec")
	return cmd
}
