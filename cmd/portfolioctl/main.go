// Command portfolioctl runs maintenance tasks against the portfolio database.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"portfolio/api/internal/authpw"
	"portfolio/api/internal/bootstrap"
	"portfolio/api/internal/config"
	"portfolio/api/internal/logging"
	"portfolio/api/internal/seed"
	"portfolio/api/internal/store"
)

var (
	cfg     config.Config
	log     *zap.Logger
	timeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "portfolioctl",
	Short:         "Administer the portfolio API database",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cfg = config.Load()
		logger, err := logging.New(cfg.LogLevel, "console")
		if err != nil {
			return err
		}
		log = logger
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		defer db.Close()

		applied, err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir)
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "database is up to date")
			return nil
		}
		for _, version := range applied {
			fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", version)
		}
		return nil
	},
}

var adminEmail, adminPassword, adminName string

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an admin account",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		defer db.Close()

		passwords := authpw.NewService(store.NewPostgresStore(db))
		user, err := passwords.CreateUser(ctx, authpw.CreateUserRequest{
			Email:    adminEmail,
			Password: adminPassword,
			Name:     adminName,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", user.Email, user.ID)
		return nil
	},
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the search index from the database",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		rt, err := bootstrap.Open(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer rt.Close()

		result := rt.Service.Reindex(ctx)
		if !result.Success {
			return fmt.Errorf("reindex: %s", result.Error)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "indexed %d records\n", result.Data.Indexed)
		return nil
	},
}

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load starter content from a YAML file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := strings.TrimSpace(seedFile)
		if path == "" {
			path = cfg.SeedFile
		}
		if path == "" {
			return fmt.Errorf("--file or SEED_FILE is required")
		}
		doc, err := seed.Load(path)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		rt, err := bootstrap.Open(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer rt.Close()

		summary, err := rt.Service.ApplySeed(ctx, doc)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %d rows\n", summary.Total())
		for section, n := range summary.Skipped {
			fmt.Fprintf(cmd.OutOrStdout(), "skipped %d %s\n", n, section)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Operation timeout")

	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "Admin email address")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "Admin password (at least 8 characters)")
	createAdminCmd.Flags().StringVar(&adminName, "name", "Admin", "Display name")
	_ = createAdminCmd.MarkFlagRequired("email")
	_ = createAdminCmd.MarkFlagRequired("password")

	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "Seed YAML file (default: SEED_FILE)")

	rootCmd.AddCommand(migrateCmd, createAdminCmd, reindexCmd, seedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
