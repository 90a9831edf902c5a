package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"

	"git.home.luguber.info/inful/relix/internal/build"
	"git.home.luguber.info/inful/relix/internal/config"
	"git.home.luguber.info/inful/relix/internal/daemon"
	"git.home.luguber.info/inful/relix/internal/history"
	"git.home.luguber.info/inful/relix/internal/verify"
	"git.home.luguber.info/inful/relix/internal/version"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"relix.yaml" env:"RELIX_CONFIG"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	GenerateIndex struct {
		OutputDir string `arg:"" help:"Directory to publish the index into"`
	} `cmd:"" name:"generate-index" help:"Generate the release index into the given directory"`

	Validate struct{} `cmd:"" help:"Collect and render without writing, checking internal links"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file and starter manifest"`

	Preview struct {
		Dir    string `arg:"" help:"Generated site directory to serve"`
		Listen string `help:"Listen address" default:":8080"`
	} `cmd:"" help:"Serve a generated index locally"`

	Daemon struct{} `cmd:"" help:"Run continuously: regenerate on schedule and source changes"`

	History struct {
		Limit int `help:"Maximum number of runs to show" default:"20"`
	} `cmd:"" help:"Show recent generation runs recorded by the daemon"`

	Version struct{} `cmd:"" help:"Show version information"`
}

func main() {
	// Env files load first so RELIX_CONFIG can influence flag defaults.
	config.LoadEnvFiles()

	ctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	var err error
	switch ctx.Command() {
	case "generate-index <output-dir>":
		err = runGenerate(CLI.GenerateIndex.OutputDir)
	case "validate":
		err = runValidate()
	case "init":
		err = runInit(CLI.Config, CLI.Init.Force)
	case "preview <dir>":
		err = runPreview(CLI.Preview.Dir, CLI.Preview.Listen)
	case "daemon":
		err = runDaemon()
	case "history":
		err = runHistory(CLI.History.Limit)
	case "version":
		fmt.Printf("relix %s (commit %s, built %s)\n", version.Version, version.GitCommit, version.BuildTime)
	}
	if err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}

func runGenerate(outputDir string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	report, err := build.NewRunner(cfg, nil).Generate(context.Background(), outputDir)
	if err != nil {
		return err
	}
	for _, warning := range report.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", warning)
	}
	return nil
}

func runValidate() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	report, pages, err := build.NewRunner(cfg, nil).Validate(context.Background())
	if err != nil {
		return err
	}
	for _, warning := range report.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", warning)
	}

	problems, err := verify.Links(pages)
	if err != nil {
		return err
	}
	for _, p := range problems {
		fmt.Fprintf(os.Stderr, "broken link: %s -> %s\n", p.Page, p.Href)
	}
	if len(problems) > 0 {
		return fmt.Errorf("%d broken internal links", len(problems))
	}

	fmt.Printf("ok: %d releases, %d pages\n", report.Releases, report.Pages)
	return nil
}

func runInit(configPath string, force bool) error {
	slog.Info("Initializing configuration", "path", configPath, "force", force)
	return config.Init(configPath, force)
}

func runPreview(dir, listen string) error {
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("site directory: %w", err)
	}

	server := &http.Server{
		Addr:              listen,
		Handler:           http.FileServer(http.Dir(dir)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	slog.Info("Serving preview", "dir", dir, "listen", listen)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func runDaemon() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	d, err := daemon.New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runErr := d.Start(ctx)

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.Stop(stopCtx); err != nil {
		slog.Warn("Shutdown did not complete cleanly", "error", err)
	}
	return runErr
}

func runHistory(limit int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := history.NewSQLiteStore(cfg.Daemon.HistoryDB)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer store.Close()

	runs, err := store.Recent(context.Background(), limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no recorded runs")
		return nil
	}

	for _, run := range runs {
		line := fmt.Sprintf("%s  %-8s  %s  releases=%d pages=%d warnings=%d",
			run.StartedAt.Format(time.RFC3339),
			run.Outcome,
			humanize.Time(run.StartedAt),
			run.Releases, run.Pages, run.Warnings)
		if run.Error != "" {
			line += "  error=" + run.Error
		}
		fmt.Println(line)
	}
	return nil
}
