package main

import (
	"fmt"

	"crypto-checkout-gateway/migrations"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the database schema",
	}
	cmd.AddCommand(migrateUpCmd(), migrateDownCmd(), migrateVersionCmd())
	return cmd
}

func openRunner() (*migrations.Runner, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return migrations.NewRunner(cfg.Database.MigrateURL())
}

func migrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRunner()
			if err != nil {
				return err
			}
			defer r.Close()

			changed, err := r.Up()
			if err != nil {
				return err
			}
			if !changed {
				fmt.Fprintln(cmd.OutOrStdout(), "schema already up to date")
				return nil
			}
			return printVersion(cmd, r)
		},
	}
}

func migrateDownCmd() *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRunner()
			if err != nil {
				return err
			}
			defer r.Close()

			if err := r.Down(steps); err != nil {
				return err
			}
			return printVersion(cmd, r)
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	return cmd
}

func migrateVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRunner()
			if err != nil {
				return err
			}
			defer r.Close()
			return printVersion(cmd, r)
		},
	}
}

func printVersion(cmd *cobra.Command, r *migrations.Runner) error {
	v, dirty, err := r.Version()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty=%t)\n", v, dirty)
	return nil
}
