package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"

	"videofetch/internal/api"
	"videofetch/internal/cli"
	"videofetch/internal/config"
	"videofetch/internal/extractor"
	"videofetch/internal/fetcher"
	"videofetch/internal/storage"
	"videofetch/internal/ytdl"
	"videofetch/pkg/models"
)

var Version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	cliApp := cli.NewCLI(Version)

	cmd, err := cliApp.ParseCommand(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		cliApp.PrintHelp(os.Stderr)
		os.Exit(1)
	}

	switch cmd.Type {
	case cli.CommandHelp:
		cliApp.PrintHelp(os.Stdout)
		os.Exit(0)
	case cli.CommandVersion:
		cliApp.PrintVersion(os.Stdout)
		os.Exit(0)
	}

	os.Exit(executeCommand(cmd))
}

func executeCommand(cmd *cli.Command) int {
	cfg, err := config.Load(cmd.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return 1
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	switch cmd.Type {
	case cli.CommandServe:
		if cmd.Port != 0 {
			cfg.Server.Port = cmd.Port
		}
		return runServe(cfg, logger)
	case cli.CommandUpdateYtdlp:
		return runUpdateYtdlp(cfg, cmd.CheckOnly, logger)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd.String())
		return 1
	}
}

func runServe(cfg *models.Config, logger *slog.Logger) int {
	logger.Info("starting videofetch", "version", Version)

	mgr := ytdl.NewManager(cfg.Ytdlp.ToolsDir, logger)
	if cfg.Ytdlp.Path == "" && cfg.Ytdlp.AutoInstall {
		if err := mgr.EnsureInstalled(); err != nil {
			logger.Warn("failed to install yt-dlp, falling back to PATH", "error", err)
		}
	}
	executable := mgr.ResolvePath(cfg.Ytdlp.Path)
	logger.Info("using yt-dlp", "executable", executable)

	library, err := storage.NewLibrary(cfg.Storage.OutputDir, cfg.Library.MaxSizeGB)
	if err != nil {
		logger.Error("failed to open output directory", "dir", cfg.Storage.OutputDir, "error", err)
		return 1
	}

	ex := extractor.NewYtDlp(extractor.OptionsFromConfig(cfg.Ytdlp, executable), logger)
	svc := fetcher.NewService(ex, library, logger)
	server := api.NewServer(cfg, svc, library, logger, Version)

	if err := server.Start(); err != nil {
		logger.Error("failed to start server", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		return 1
	}

	logger.Info("server stopped")
	return 0
}

func runUpdateYtdlp(cfg *models.Config, checkOnly bool, logger *slog.Logger) int {
	mgr := ytdl.NewManager(cfg.Ytdlp.ToolsDir, logger)

	if checkOnly {
		return checkYtdlp(mgr)
	}

	previous := mgr.GetCurrentVersion()
	if err := mgr.AutoUpdate(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error updating yt-dlp: %v", err))
		return 1
	}

	current := mgr.GetCurrentVersion()
	if current == previous {
		color.Green("yt-dlp is up to date (version %s)", current)
		return 0
	}

	color.Green("Installed yt-dlp %s to %s", current, mgr.GetYtdlpPath())
	return 0
}

func checkYtdlp(mgr *ytdl.Manager) int {
	latest, hasUpdate, err := mgr.CheckForUpdate()
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error checking for yt-dlp updates: %v", err))
		return 1
	}

	current := mgr.GetCurrentVersion()
	if !hasUpdate {
		color.Green("yt-dlp is up to date (version %s)", current)
		return 0
	}

	yellow := color.New(color.FgYellow)
	if current == "" {
		yellow.Printf("yt-dlp is not installed, latest is %s\n", latest)
	} else {
		yellow.Printf("Update available: %s -> %s\n", current, latest)
	}
	fmt.Println("Run 'videofetch update-ytdlp' to install it")
	return 0
}

// newLogger builds the process logger from the log settings
func newLogger(cfg models.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
