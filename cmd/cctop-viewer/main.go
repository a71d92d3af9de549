// cctop-viewer - terminal viewer for the file-activity store
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/cctop/cctop/internal/config"
	"github.com/cctop/cctop/internal/store"
	"github.com/cctop/cctop/internal/viewer"
)

const version = "0.1.0"

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version")
		configPath  = flag.String("config", "", "Path to cli-config.json (default: built-in defaults)")
		dbPath      = flag.String("db", ".cctop/data/activity.db", "Path to the activity database")
		pidFile     = flag.String("pidfile", ".cctop/runtime/daemon.pid", "Path to the collector's process marker")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `cctop-viewer v%s - terminal viewer for cctop's activity database

Usage: cctop-viewer [options]

Options:
`, version)
		flag.PrintDefaults()
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("cctop-viewer v%s\n", version)
		return
	}

	cfg, err := config.LoadViewer(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// An unreadable database is a user-error, not a fatal one (spec.md §7):
	// fall back to a degraded viewer that renders an empty table with a
	// clear status instead of exiting.
	st, err := store.Open(*dbPath, store.Options{ReadOnly: true})
	var rt *viewer.Runtime
	if err != nil {
		fmt.Fprintf(os.Stderr, "store: %v (starting in degraded mode)\n", err)
		rt = viewer.NewDegradedRuntime(cfg, *pidFile, err)
	} else {
		defer st.Close()
		rt = viewer.NewRuntime(cfg, st, *pidFile)
	}

	if err := rt.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "viewer: %v\n", err)
		os.Exit(1)
	}
}
