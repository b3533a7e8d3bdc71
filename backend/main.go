package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"simulador/backend/config"
	"simulador/backend/routes"
	"simulador/backend/services"
	"simulador/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "simulador",
		Short:         "Saber 11 practice simulator backend",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	serve := serveCmd()
	root.AddCommand(serve, cleanupCmd())

	// Bare `simulador` starts the server.
	root.RunE = serve.RunE

	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := utils.InitDB(cfg)
	if err != nil {
		return err
	}
	if err := utils.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	logger := utils.InitLogger()

	app := fiber.New()
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(utils.LoggingMiddleware(logger))

	routes.SetupRoutes(app, db, cfg, logger)

	logger.Printf("listening on :%s", cfg.ServerPort)
	return app.Listen(":" + cfg.ServerPort)
}

func cleanupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup-sessions",
		Short: "Delete abandoned practice sessions",
		Long: `Deletes incomplete sessions older than the given age, cascading
their question links. Safe to re-run; use --dry-run to preview.`,
		RunE: runCleanup,
	}
	f := cmd.Flags()
	f.Int("hours", 24, "Age in hours after which an unfinished session counts as abandoned")
	f.Bool("dry-run", false, "Report what would be deleted without deleting")
	f.Bool("force", false, "Skip the confirmation prompt")
	return cmd
}

func runCleanup(cmd *cobra.Command, args []string) error {
	hours, _ := cmd.Flags().GetInt("hours")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	force, _ := cmd.Flags().GetBool("force")

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := utils.InitDB(cfg)
	if err != nil {
		return err
	}

	logger := utils.InitLogger()
	cleanup := services.NewCleanupService(db, logger)

	// Preview first so the confirmation prompt can show real numbers.
	preview, err := cleanup.Reclaim(time.Duration(hours)*time.Hour, true)
	if err != nil {
		return fmt.Errorf("scan stale sessions: %w", err)
	}

	out := cmd.OutOrStdout()
	if preview.Sessions == 0 {
		fmt.Fprintf(out, "No stale sessions found (older than %d hours)\n", hours)
		return nil
	}

	fmt.Fprintf(out, "Stale sessions found: %d (started before %s)\n",
		preview.Sessions, preview.Cutoff.Format("2006-01-02 15:04:05"))
	for subject, stats := range preview.BySubject {
		avg := 0.0
		if stats.Total > 0 {
			avg = float64(stats.Answered) / float64(stats.Total) * 100
		}
		fmt.Fprintf(out, "  - %s: %d sessions (avg progress %.1f%%)\n", subject, stats.Sessions, avg)
	}

	if dryRun {
		fmt.Fprintf(out, "DRY RUN: would delete %d sessions and %d answers\n",
			preview.Sessions, preview.Links)
		return nil
	}

	if !force {
		fmt.Fprintf(out, "Delete %d stale sessions? (y/N): ", preview.Sessions)
		reader := bufio.NewReader(cmd.InOrStdin())
		answer, _ := reader.ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			fmt.Fprintln(out, "Cancelled")
			return nil
		}
	}

	report, err := cleanup.Reclaim(time.Duration(hours)*time.Hour, false)
	if err != nil {
		return fmt.Errorf("cleanup: %w", err)
	}

	fmt.Fprintf(out, "Deleted %d sessions and %d answers\n", report.Sessions, report.Links)
	fmt.Fprintf(out, "Active sessions remaining: %d\n", report.RemainingActive)
	return nil
}
