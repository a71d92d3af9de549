// cctop-collector - real-time file-activity collector daemon
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cctop/cctop/internal/collector"
	"github.com/cctop/cctop/internal/config"
	"github.com/cctop/cctop/internal/logging"
	"github.com/cctop/cctop/internal/pidfile"
	"github.com/cctop/cctop/internal/store"
)

const version = "0.1.0"

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version")
		configPath  = flag.String("config", "", "Path to daemon-config.json (default: built-in defaults)")
		dbPath      = flag.String("db", ".cctop/data/activity.db", "Path to the activity database")
		foreground  = flag.Bool("foreground", false, "Run in the foreground instead of as a daemon")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `cctop-collector v%s - file-activity collector daemon

Usage: cctop-collector [options]

Options:
`, version)
		flag.PrintDefaults()
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("cctop-collector v%s\n", version)
		return
	}

	_ = foreground // foreground/background process management is a CLI-wrapper concern (spec.md §1)

	cfg, cfgErr := config.LoadCollector(*configPath)
	if cfgErr != nil {
		fmt.Fprintf(os.Stderr, "config: %v (using defaults)\n", cfgErr)
	}

	log, err := logging.Open(cfg.Daemon.LogFile, cfg.Daemon.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "log: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()
	if cfgErr != nil {
		log.Warn("config unreadable, using defaults", "err", cfgErr)
	}

	st, err := store.Open(*dbPath, store.Options{
		CacheSize:   cfg.Database.CacheSize,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		log.Error("fatal: store open failed", "err", err)
		os.Exit(1)
	}

	rt, err := collector.New(cfg, st, log, *configPath)
	if err != nil {
		if errors.Is(err, pidfile.ErrLive) {
			log.Error("another collector is already running", "err", err)
			fmt.Fprintf(os.Stderr, "another collector is already running: %v\n", err)
			os.Exit(1)
		}
		log.Error("fatal: collector init failed", "err", err)
		os.Exit(1)
	}

	log.Info("collector starting", "watchPaths", cfg.Monitoring.WatchPaths, "db", *dbPath)

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("received termination signal, shutting down")
		cancel()
	}()

	if err := rt.Start(ctx); err != nil {
		log.Error("fatal: collector runtime failed", "err", err)
		os.Exit(1)
	}

	log.Info("collector exited cleanly")
}
