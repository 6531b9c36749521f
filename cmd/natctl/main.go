package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/redmonkez12/natours-api/cmd/natctl/ui"
	"github.com/redmonkez12/natours-api/internal/app"
	"github.com/redmonkez12/natours-api/internal/config"
	"github.com/redmonkez12/natours-api/internal/database"
	"github.com/redmonkez12/natours-api/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		ui.PrintError(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "natctl",
		Short:         "Administer Natours accounts",
		Long:          "Operator tool for the Natours API: seed and bootstrap accounts, run migrations and generate token keys.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log application output to stderr")

	importCmd := &cobra.Command{
		Use:   "import-users",
		Short: "Create accounts from a JSON file",
		Long:  `Create accounts from a JSON array of {"email","password","role"} objects. Existing emails are skipped.`,
		RunE:  runImportUsers,
	}
	importCmd.Flags().StringP("file", "f", "", "Path to the accounts JSON file")
	_ = importCmd.MarkFlagRequired("file")

	adminCmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account",
		RunE:  runCreateAdmin,
	}
	adminCmd.Flags().String("email", "", "Admin email address")
	adminCmd.Flags().String("password", "", "Admin password (prompted when omitted)")
	_ = adminCmd.MarkFlagRequired("email")

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}
	migrateUpCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE:  runMigrateUp,
	}
	migrateDownCmd := &cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back migrations (default 1 step)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runMigrateDown,
	}
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)

	genKeyCmd := &cobra.Command{
		Use:   "gen-key",
		Short: "Print a random AUTH_TOKEN_KEY",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := generateKey(randomSource)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}

	rootCmd.AddCommand(importCmd, adminCmd, migrateCmd, genKeyCmd)
	return rootCmd
}

func runImportUsers(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("file")

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open accounts file: %w", err)
	}
	defer f.Close()

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	ui.PrintTitle(out, "Importing accounts from "+path)

	report, err := importAccounts(cmd.Context(), a.Service, f, out)
	if err != nil {
		return err
	}

	ui.PrintSuccess(out, fmt.Sprintf("%d created, %d skipped", report.Created, report.Skipped))
	return nil
}

func runCreateAdmin(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")

	if password == "" {
		var err error
		if password, err = ui.PromptPassword(email); err != nil {
			return fmt.Errorf("prompt cancelled: %w", err)
		}
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	account, err := createAdmin(cmd.Context(), a.Service, email, password)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	ui.PrintSuccess(out, "Admin account created")
	ui.PrintDetail(out, "id:    "+account.ID.String())
	ui.PrintDetail(out, "email: "+account.Email)
	return nil
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := database.RunMigrations(cfg.Database.MigrationURL()); err != nil {
		return err
	}
	ui.PrintSuccess(cmd.OutOrStdout(), "Migrations applied")
	return nil
}

func runMigrateDown(cmd *cobra.Command, args []string) error {
	steps := 1
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return fmt.Errorf("steps must be a positive integer, got %q", args[0])
		}
		steps = n
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := database.RollbackMigrations(cfg.Database.MigrationURL(), steps); err != nil {
		return err
	}
	ui.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Rolled back %d migration(s)", steps))
	return nil
}

// openApp builds the account stack from the environment. natctl never needs
// the shared rate limiter, so Redis is left alone.
func openApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	var logOut io.Writer = io.Discard
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		logOut = cmd.ErrOrStderr()
	}
	logger := logging.NewLoggerWithWriter(logOut, cfg.Server.IsDevelopment())

	return app.New(cmd.Context(), cfg, logger, app.Options{SkipRedis: true})
}
