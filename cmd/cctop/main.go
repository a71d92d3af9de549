// cctop - daemon lifecycle wrapper around the file-activity collector
package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/cctop/cctop/internal/config"
	"github.com/cctop/cctop/internal/pidfile"
)

const version = "0.1.0"

// gracefulStopTimeout bounds how long `daemon stop` waits for the
// collector to exit on its own before force-killing it (spec.md §6
// "wait up to a few seconds for graceful exit, then force-kill").
const gracefulStopTimeout = 5 * time.Second

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `cctop v%s - daemon lifecycle wrapper

Usage: cctop daemon <start|stop|status> [options]

Options:
`, version)
		flag.PrintDefaults()
	}

	configPath := flag.String("config", "", "Path to daemon-config.json")
	dbPath := flag.String("db", ".cctop/data/activity.db", "Path to the activity database")

	flag.Parse()

	args := flag.Args()
	if len(args) < 2 || args[0] != "daemon" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadCollector(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v (using defaults)\n", err)
	}

	var exitErr error
	switch args[1] {
	case "start":
		exitErr = daemonStart(cfg, *configPath, *dbPath)
	case "stop":
		exitErr = daemonStop(cfg)
	case "status":
		exitErr = daemonStatus(cfg)
	default:
		flag.Usage()
		os.Exit(2)
	}

	if exitErr != nil {
		fmt.Fprintf(os.Stderr, "cctop: %v\n", exitErr)
		os.Exit(1)
	}
}

// daemonStart starts the collector as a detached background process if no
// live marker exists; otherwise reports the existing pid (spec.md §6).
func daemonStart(cfg config.Collector, configPath, dbPath string) error {
	status, err := pidfile.Status(cfg.Daemon.PIDFile)
	if err != nil {
		return fmt.Errorf("check marker: %w", err)
	}
	if status.Running {
		fmt.Printf("collector already running (pid %d)\n", status.PID)
		return nil
	}

	exePath, err := exec.LookPath("cctop-collector")
	if err != nil {
		return fmt.Errorf("locate cctop-collector: %w", err)
	}

	cmdArgs := []string{"cctop-collector", "--db", dbPath}
	if configPath != "" {
		cmdArgs = append(cmdArgs, "--config", configPath)
	}

	proc, err := os.StartProcess(exePath, cmdArgs, &os.ProcAttr{
		Files: []*os.File{nil, nil, nil},
	})
	if err != nil {
		return fmt.Errorf("start collector: %w", err)
	}

	fmt.Printf("collector started (pid %d)\n", proc.Pid)
	return nil
}

// daemonStop reads the marker, signals the collector, waits for graceful
// exit, then force-kills if it hasn't exited in time (spec.md §6).
func daemonStop(cfg config.Collector) error {
	m, err := pidfile.Read(cfg.Daemon.PIDFile)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("collector is not running")
			return nil
		}
		return fmt.Errorf("read marker: %w", err)
	}

	if !pidfile.IsLive(m.PID) {
		fmt.Println("collector is not running (stale marker)")
		return pidfile.Release(cfg.Daemon.PIDFile)
	}

	proc, err := os.FindProcess(m.PID)
	if err != nil {
		return fmt.Errorf("find process %d: %w", m.PID, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal process %d: %w", m.PID, err)
	}

	deadline := time.Now().Add(gracefulStopTimeout)
	for time.Now().Before(deadline) {
		if !pidfile.IsLive(m.PID) {
			fmt.Println("collector stopped")
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	if err := proc.Kill(); err != nil {
		return fmt.Errorf("force-kill process %d: %w", m.PID, err)
	}
	_ = pidfile.Release(cfg.Daemon.PIDFile)
	fmt.Println("collector force-killed")
	return nil
}

// daemonStatus reports RUNNING with pid or NOT-RUNNING, cleaning a stale
// marker as a side effect of pidfile.Status (spec.md §6).
func daemonStatus(cfg config.Collector) error {
	status, err := pidfile.Status(cfg.Daemon.PIDFile)
	if err != nil {
		return fmt.Errorf("check marker: %w", err)
	}
	if status.Running {
		fmt.Printf("RUNNING (pid %d)\n", status.PID)
		return nil
	}
	fmt.Println("NOT-RUNNING")
	return nil
}
