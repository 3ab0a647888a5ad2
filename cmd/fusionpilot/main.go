// Package main provides the fusionpilot binary entry point.
// Fusionpilot turns free-text creative requests into ordered, approvable
// plans and executes them step by step against compositor, image
// generation, and source-control backends over NATS.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/framelight/fusionpilot/config"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "fusionpilot"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "fusionpilot",
		Short: "Plan-execution assistant for compositing pipelines",
		Long: `Fusionpilot is an interactive assistant that turns free-text creative
requests into ordered, approvable plans.

It provides:
- Intent classification and step-by-step plan execution
- Compositor, image-generation, and source-control backends over NATS
- A render ceiling that bounds every preview playback

Run "fusionpilot serve" for the NATS service or "fusionpilot chat" for an
interactive session.`,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the NATS command service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, logLevel)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "chat",
		Short: "Run an interactive session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(configPath, logLevel)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

func setup(configPath, logLevel string) (*config.Config, *slog.Logger, error) {
	// Configure logging
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Load configuration
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
		if err != nil {
			return nil, nil, fmt.Errorf("load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return nil, nil, fmt.Errorf("invalid configuration: %w", err)
		}
	} else {
		cfg, err = config.NewLoader(logger).Load()
		if err != nil {
			return nil, nil, fmt.Errorf("load config: %w", err)
		}
	}

	return cfg, logger, nil
}

func runServe(configPath, logLevel string) error {
	printBanner()

	cfg, logger, err := setup(configPath, logLevel)
	if err != nil {
		return err
	}

	ctx := context.Background()
	app := NewApp(cfg, logger)
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer app.Shutdown(10 * time.Second)

	// Setup signal handling
	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	if err := app.StartService(signalCtx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	logger.Info("fusionpilot ready", "version", Version)

	// Block until shutdown signal
	<-signalCtx.Done()
	logger.Info("received shutdown signal")
	return nil
}

func runChat(configPath, logLevel string) error {
	printBanner()

	cfg, logger, err := setup(configPath, logLevel)
	if err != nil {
		return err
	}

	ctx := context.Background()
	app := NewApp(cfg, logger)
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer app.Shutdown(5 * time.Second)

	fmt.Println("Describe what to create, or type /help.")
	fmt.Println()
	return app.RunREPL(ctx)
}

func printBanner() {
	fmt.Println("╔═══════════════════════════════════════════════╗")
	fmt.Println("║           Fusionpilot v" + Version + "                  ║")
	fmt.Println("║      Plan-Execution Assistant                 ║")
	fmt.Println("╚═══════════════════════════════════════════════╝")
}
