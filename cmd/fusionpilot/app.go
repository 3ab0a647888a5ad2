package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/framelight/fusionpilot/backend"
	"github.com/framelight/fusionpilot/config"
	"github.com/framelight/fusionpilot/orchestrator"
	"github.com/framelight/fusionpilot/render"
	"github.com/framelight/fusionpilot/service"
	"github.com/framelight/fusionpilot/storage"
)

// App wires together the NATS transport, session storage, backends, and
// the orchestrator.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	// NATS
	embeddedServer *server.Server
	natsConn       *nats.Conn
	js             jetstream.JetStream

	// Storage
	store *storage.SessionStore

	// Core
	orch *orchestrator.Orchestrator
	svc  *service.Service

	// Optional
	metricsServer *http.Server
	watcher       *config.Watcher
}

// NewApp creates a new application instance.
func NewApp(cfg *config.Config, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{cfg: cfg, logger: logger}
}

// Start initializes and starts all components.
func (a *App) Start(ctx context.Context) error {
	// Start NATS (embedded or connect to external)
	if err := a.startNATS(ctx); err != nil {
		return fmt.Errorf("start NATS: %w", err)
	}

	// Initialize session storage
	store, err := storage.NewSessionStore(ctx, a.js)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	a.store = store

	// Wire backends and the orchestrator
	vfx := backend.NewNATSVisualEffects(a.natsConn)
	vfx.Timeout = a.cfg.Backends.RequestTimeout
	scm := backend.NewNATSSourceControl(a.natsConn)
	scm.Timeout = a.cfg.Backends.RequestTimeout

	enforcer := render.NewEnforcer()
	if err := enforcer.SetCeiling(a.cfg.Render.CeilingSeconds); err != nil {
		return fmt.Errorf("apply render ceiling: %w", err)
	}

	a.orch = orchestrator.New(orchestrator.Options{
		VisualEffects: vfx,
		Generative:    backend.NewNATSGenerative(a.natsConn),
		SourceControl: backend.NewGate(scm),
		Enforcer:      enforcer,
		Logger:        a.logger,
		Constraints: backend.Constraints{
			MaxSteps: a.cfg.Generation.MaxSteps,
			Width:    a.cfg.Generation.Width,
			Height:   a.cfg.Generation.Height,
		},
		FrameRate: a.cfg.Render.FrameRate,
	})

	fmt.Println("✓ Components initialized")
	return nil
}

// StartService starts the NATS command dispatch, the metrics endpoint, and
// the config watcher. Used by serve; chat runs the orchestrator in-process.
func (a *App) StartService(ctx context.Context) error {
	a.svc = service.New(a.natsConn, a.store, a.orch, nil, a.logger)
	if err := a.svc.Start(ctx); err != nil {
		return err
	}

	if a.cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		a.metricsServer = &http.Server{Addr: a.cfg.Metrics.Addr, Handler: mux}
		go func() {
			if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				a.logger.Error("metrics server failed", "addr", a.cfg.Metrics.Addr, "error", err)
			}
		}()
		a.logger.Info("metrics endpoint started", "addr", a.cfg.Metrics.Addr)
	}

	// Follow the project config so ceiling changes apply without a restart.
	if path := config.NewLoader(a.logger).FindProjectConfig(); path != "" {
		watcher, err := config.NewWatcher(path, a.applyConfig, a.logger)
		if err != nil {
			a.logger.Warn("config watcher unavailable", "error", err)
		} else if err := watcher.Start(ctx); err != nil {
			a.logger.Warn("config watcher failed to start", "error", err)
		} else {
			a.watcher = watcher
		}
	}

	return nil
}

// applyConfig folds a live config update into the running app. Only the
// render ceiling is safe to change at runtime; everything else needs a
// restart.
func (a *App) applyConfig(cfg *config.Config) {
	if cfg.Render.CeilingSeconds != a.cfg.Render.CeilingSeconds {
		if _, err := a.orch.SetRenderCeiling(cfg.Render.CeilingSeconds); err != nil {
			a.logger.Warn("rejected live ceiling update", "seconds", cfg.Render.CeilingSeconds, "error", err)
			return
		}
		a.cfg.Render.CeilingSeconds = cfg.Render.CeilingSeconds
	}
}

func (a *App) startNATS(ctx context.Context) error {
	if a.cfg.NATS.URL != "" && !a.cfg.NATS.Embedded {
		// Connect to external NATS
		a.logger.Info("connecting to NATS", "url", a.cfg.NATS.URL)
		conn, err := nats.Connect(a.cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("connect to NATS: %w", err)
		}
		a.natsConn = conn
	} else {
		// Start embedded NATS server
		a.logger.Info("starting embedded NATS server")
		opts := &server.Options{
			Port:      -1, // Random available port
			JetStream: true,
			NoLog:     true,
			NoSigs:    true,
		}

		ns, err := server.NewServer(opts)
		if err != nil {
			return fmt.Errorf("create embedded NATS server: %w", err)
		}

		go ns.Start()

		// Wait for server to be ready
		if !ns.ReadyForConnections(5 * time.Second) {
			ns.Shutdown()
			return fmt.Errorf("embedded NATS server failed to start")
		}

		a.embeddedServer = ns

		// Connect to embedded server
		conn, err := nats.Connect(ns.ClientURL())
		if err != nil {
			ns.Shutdown()
			return fmt.Errorf("connect to embedded NATS: %w", err)
		}
		a.natsConn = conn
	}

	// Get JetStream context
	js, err := jetstream.New(a.natsConn)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}
	a.js = js

	return nil
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown(timeout time.Duration) {
	fmt.Println("\nShutting down...")

	if a.watcher != nil {
		_ = a.watcher.Stop()
	}

	if a.svc != nil {
		if err := a.svc.Stop(); err != nil {
			a.logger.Warn("service drain failed", "error", err)
		}
	}

	if a.metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		_ = a.metricsServer.Shutdown(shutdownCtx)
		cancel()
	}

	// Close NATS connection
	if a.natsConn != nil {
		a.natsConn.Drain()
		a.natsConn.Close()
	}

	// Shutdown embedded server
	if a.embeddedServer != nil {
		a.embeddedServer.Shutdown()
		a.embeddedServer.WaitForShutdown()
	}

	fmt.Println("Goodbye!")
}

// RunREPL runs the interactive chat loop against the in-process
// orchestrator.
func (a *App) RunREPL(ctx context.Context) error {
	sess, err := a.store.GetOrCreate(ctx, "local")
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("fusionpilot> ")

		if !scanner.Scan() {
			// EOF (Ctrl+D)
			return nil
		}

		input := strings.TrimSpace(scanner.Text())

		// Check for exit commands
		if input == "quit" || input == "exit" {
			return nil
		}

		// Check for built-in commands
		if strings.HasPrefix(input, "/") {
			a.handleCommand(ctx, sess, input)
			continue
		}

		reply, err := a.orch.HandleMessage(ctx, sess, input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error [%s]: %v\n", orchestrator.CodeFor(err), err)
			continue
		}
		if err := a.store.Put(ctx, sess); err != nil {
			a.logger.Warn("persist session failed", "error", err)
		}

		fmt.Println(reply.Text)
		fmt.Println()
	}
}

func (a *App) handleCommand(ctx context.Context, sess *orchestrator.Session, input string) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return
	}

	cmd := parts[0]
	switch cmd {
	case "/help":
		fmt.Println("Available commands:")
		fmt.Println("  /help            - Show this help")
		fmt.Println("  /status          - Show session state and render ceiling")
		fmt.Println("  /context         - Summarize the current composition")
		fmt.Println("  /ceiling <secs>  - Set the preview ceiling (1-120)")
		fmt.Println("  /reset           - Drop the active plan")
		fmt.Println("  quit/exit        - Exit")
		fmt.Println()
		fmt.Println("Or describe what to create; approve proposed steps with \"yes\".")

	case "/status":
		fmt.Printf("Session: %s\n", sess.ID)
		fmt.Printf("State: %s\n", sess.State)
		if sess.Plan != nil {
			fmt.Printf("Plan: %q (%d steps, next %d)\n", sess.Plan.RawText, len(sess.Plan.Steps), sess.CurrentStep+1)
		}
		fmt.Printf("Render ceiling: %.1fs\n", a.orch.Enforcer().Ceiling())
		if a.embeddedServer != nil {
			fmt.Println("NATS: embedded")
		} else {
			fmt.Printf("NATS: %s\n", a.cfg.NATS.URL)
		}

	case "/context":
		summary, err := a.orch.ContextSummary(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return
		}
		fmt.Println(summary)

	case "/ceiling":
		if len(parts) < 2 {
			fmt.Println("Usage: /ceiling <seconds>")
			return
		}
		var seconds float64
		if _, err := fmt.Sscanf(parts[1], "%f", &seconds); err != nil {
			fmt.Printf("Not a number: %s\n", parts[1])
			return
		}
		effective, err := a.orch.SetRenderCeiling(seconds)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return
		}
		fmt.Printf("Render ceiling set to %.1fs\n", effective)

	case "/reset":
		reply := a.orch.ResetSession(sess)
		if err := a.store.Put(ctx, sess); err != nil {
			a.logger.Warn("persist session failed", "error", err)
		}
		fmt.Println(reply.Text)

	default:
		fmt.Printf("Unknown command: %s\n", cmd)
		fmt.Println("Type /help for available commands.")
	}
}
