package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/freecollateral/config"
	"github.com/alejandrodnm/freecollateral/internal/application/freecollateral"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	dryRun := flag.Bool("dry-run", false, "use the account fixture and a static ETH price instead of the real API and feed")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")

	form := flag.Bool("form", false, "print the subscription form for -address and exit")
	check := flag.Bool("check", false, "evaluate -address once against -threshold and exit")
	subscribe := flag.Bool("subscribe", false, "subscribe -address and exit")
	unsubscribe := flag.String("unsubscribe", "", "delete the subscription with this ID and exit")
	list := flag.Bool("list", false, "list subscriptions and exit")
	history := flag.Bool("history", false, "print the notification log for -address and exit")

	address := flag.String("address", "", "account address")
	threshold := flag.Float64("threshold", freecollateral.DefaultThreshold, "free collateral threshold in USD")
	channel := flag.String("channel", "console", "delivery channel: console|telegram|nats")
	target := flag.String("target", "", "channel target (telegram chat id, nats subject suffix)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := wire(ctx, cfg, *dryRun)
	if err != nil {
		slog.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer app.Close()

	// -threshold solo cuenta si se pasó explícitamente: si no, el default del formulario
	thresholdSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "threshold" {
			thresholdSet = true
		}
	})

	switch {
	case *form:
		err = app.runForm(ctx, *address)
	case *check:
		err = app.runCheck(ctx, *address, *threshold)
	case *subscribe:
		err = app.runSubscribe(ctx, *address, *channel, *target, *threshold, thresholdSet)
	case *unsubscribe != "":
		err = app.runUnsubscribe(ctx, *unsubscribe)
	case *list:
		err = app.runList(ctx)
	case *history:
		err = app.runHistory(ctx, *address)
	default:
		slog.Info("freecollateral starting",
			"config", *configPath,
			"network", cfg.Network.Name,
			"dry_run", *dryRun,
			"poll_interval", cfg.PollInterval(),
			"cooldown_blocks", cfg.Watcher.CooldownBlocks,
		)
		err = app.runWatch(ctx)
	}

	if err != nil {
		slog.Error("command failed", "err", err)
		app.Close()
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
