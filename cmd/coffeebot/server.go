package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/thedevi-l/eng-coffee-bot/internal/api"
	"github.com/thedevi-l/eng-coffee-bot/internal/bot"
	"github.com/thedevi-l/eng-coffee-bot/internal/config"
	"github.com/thedevi-l/eng-coffee-bot/internal/dispatch"
	"github.com/thedevi-l/eng-coffee-bot/internal/onboarding"
	"github.com/thedevi-l/eng-coffee-bot/internal/storage"
	"github.com/thedevi-l/eng-coffee-bot/internal/telegram"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the coffeebot server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running coffeebot server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show coffeebot system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "coffeebot.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "coffeebot version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Ensure the admin API token exists.
	adminToken, err := config.GetAdminToken()
	if err != nil {
		return fmt.Errorf("initializing admin token: %w", err)
	}

	// Write PID file. Check if server is already running via health endpoint.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.AdminPort)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("coffeebot is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("coffeebot is already running on port %d", cfg.Server.AdminPort)
		return fmt.Errorf("server already running on port %d", cfg.Server.AdminPort)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Check Bot API readiness before anything else starts.
	tg := telegram.NewWithBaseURL(cfg.Telegram.BotToken, cfg.Telegram.BaseURL)
	me, err := tg.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("checking bot token: %w", err)
	}
	slog.Info("connected to Telegram", "bot", me.Username, "id", me.ID)

	// Open storage.
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	// Wire the bot and the dispatcher. The dispatcher delivers broadcast
	// outcomes through the bot, and the bot resolves /match through the
	// dispatcher, so the delivery side is bound late.
	flow := onboarding.NewFlow(store)
	var b *bot.Bot
	disp := dispatch.NewDispatcher(store,
		dispatch.DeliveryFunc(func(dctx context.Context, userID int64, o dispatch.Outcome) error {
			return b.Deliver(dctx, userID, o)
		}),
		cfg.Match.BroadcastConcurrency)
	b = bot.New(tg, flow, disp, time.Duration(cfg.Telegram.PollTimeout)*time.Second)

	// Weekly broadcast scheduler.
	interval, err := time.ParseDuration(cfg.Match.BroadcastInterval)
	if err != nil {
		slog.Warn("invalid broadcast interval, using weekly default",
			"value", cfg.Match.BroadcastInterval, "error", err)
		interval = 0 // NewScheduler applies the default
	}
	sched := dispatch.NewScheduler(interval, func(jctx context.Context) {
		if _, err := disp.BroadcastAll(jctx); err != nil {
			slog.Error("scheduled broadcast failed", "error", err)
		}
	})
	go sched.Run(ctx)

	// Admin API on loopback.
	adminHandler := api.NewAdminHandler(api.AdminDeps{
		Store:       store,
		Matcher:     disp,
		Broadcaster: disp,
		Token:       adminToken,
	})
	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.AdminPort)
	srv := &http.Server{
		Addr:    addr,
		Handler: adminHandler,
	}

	// MCP server over stdio.
	mcpSrv := api.NewMCPServer(api.AdminDeps{Store: store, Matcher: disp, Broadcaster: disp}, version)
	stdioSrv := server.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	// Start the admin server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		slog.Info("admin API listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// The bot long-poll loop runs until the signal context is cancelled.
	go b.Run(ctx)
	slog.Info("bot polling for updates")

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("admin server error: %w", err)
		}
	}

	// Graceful shutdown with timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("coffeebot is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop coffeebot (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to coffeebot (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.AdminPort)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	switch {
	case err != nil:
		printStatus("Server", "stopped")
	case resp.StatusCode != 200:
		resp.Body.Close()
		printStatus("Server", "error (HTTP %d)", resp.StatusCode)
	default:
		printStatus("Server", "running on port %d", cfg.Server.AdminPort)
		var health struct {
			Status   string `json:"status"`
			Profiles int    `json:"profiles"`
		}
		if decodeErr := decodeJSON(resp, &health); decodeErr == nil {
			printStatus("Profiles", "%d", health.Profiles)
		}
	}

	printStatus("Telegram API", "%s", cfg.Telegram.BaseURL)
	printStatus("Broadcast interval", "%s", cfg.Match.BroadcastInterval)
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
