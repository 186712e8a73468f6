package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	pgStorage "crypto-checkout-gateway/internal/adapter/storage/postgres"
	"crypto-checkout-gateway/internal/core/domain"
	"crypto-checkout-gateway/internal/core/ports"
	"crypto-checkout-gateway/internal/service"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage project API tokens",
	}
	cmd.AddCommand(tokenIssueCmd())
	return cmd
}

func tokenIssueCmd() *cobra.Command {
	var (
		projectID string
		name      string
		env       string
	)

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue an API token and print the key once",
		Example: `  api token issue --project 5f0c... --name storefront --env test
  api token issue --project 5f0c... --name storefront --env live`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := uuid.Parse(projectID)
			if err != nil {
				return fmt.Errorf("invalid --project: %w", err)
			}

			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
			if err != nil {
				return fmt.Errorf("connecting to postgres: %w", err)
			}
			defer pool.Close()

			audit := service.NewAuditService(pgStorage.NewAuditRepo(pool), log)
			defer audit.Close()

			svc := service.NewAPITokenService(
				pgStorage.NewProjectRepo(pool),
				pgStorage.NewAPITokenRepo(pool),
				service.NewArgon2HashService(),
			)
			issued, err := svc.Issue(ctx, ports.IssueTokenRequest{
				ProjectID:   pid,
				Name:        name,
				Environment: domain.Environment(strings.ToUpper(env)),
			})
			if err != nil {
				return err
			}
			entry := domain.NewAuditLog(domain.AuditActionIssueAPIToken, "api_token", issued.Token.ID.String()).ForProject(pid)
			details, _ := json.Marshal(map[string]string{"name": issued.Token.Name, "environment": string(issued.Token.Environment)})
			entry.Details = string(details)
			audit.Log(ctx, entry)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "token id:    %s\n", issued.Token.ID)
			fmt.Fprintf(out, "environment: %s\n", issued.Token.Environment)
			fmt.Fprintf(out, "api key:     %s\n", issued.APIKey)
			fmt.Fprintln(out, "Store the key now. It cannot be shown again.")
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "project id")
	cmd.Flags().StringVar(&name, "name", "", "token name")
	cmd.Flags().StringVar(&env, "env", "test", "environment: test or live")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
