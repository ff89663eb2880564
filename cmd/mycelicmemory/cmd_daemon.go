package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mycelicmemory/core/internal/daemon"
	"github.com/mycelicmemory/core/pkg/config"
)

// Daemonize forks the current executable with a trailing "--daemon-run"
// argument; main.go intercepts that argument before cobra parses
// anything, so the forked child runs the foreground server loop instead
// of the CLI dispatcher (grounded on teacher's cmd_service.go Daemonize
// pattern, now owned by internal/daemon.Run).

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the optional background HTTP surface (spec §4.7 enrichment)",
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon in the background",
	Run: func(cmd *cobra.Command, args []string) {
		runDaemonStart()
	},
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	Run: func(cmd *cobra.Command, args []string) {
		runDaemonStop()
	},
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether the daemon is running",
	Run: func(cmd *cobra.Command, args []string) {
		runDaemonStatus()
	},
}

func init() {
	rootCmd.AddCommand(daemonCmd)
	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	daemonCmd.AddCommand(daemonStatusCmd)
}

func newDaemon(cfg *config.Config) *daemon.Daemon {
	return daemon.New(config.ConfigPath(), Version)
}

func runDaemonStart() {
	cfg, err := config.Load()
	if err != nil {
		fatalf("Error loading config: %v", err)
	}
	d := newDaemon(cfg)

	if d.IsRunning() {
		fmt.Println("daemon already running")
		return
	}
	if _, err := d.Daemonize(append(os.Args[1:], "--daemon-run")); err != nil {
		fatalf("Error starting daemon: %v", err)
	}
	fmt.Printf("daemon started (rest api on %s:%d)\n", cfg.RestAPI.Host, cfg.RestAPI.Port)
}

func runDaemonStop() {
	cfg, err := config.Load()
	if err != nil {
		fatalf("Error loading config: %v", err)
	}
	d := newDaemon(cfg)
	if err := d.Stop(); err != nil {
		fatalf("Error stopping daemon: %v", err)
	}
	fmt.Println("daemon stopped")
}

func runDaemonStatus() {
	cfg, err := config.Load()
	if err != nil {
		fatalf("Error loading config: %v", err)
	}
	d := newDaemon(cfg)
	status := d.Status()
	if !status.Running {
		fmt.Println("daemon not running")
		return
	}
	fmt.Printf("daemon running (pid=%d, uptime=%s, rest=%s:%d)\n", status.PID, status.Uptime, status.RESTHost, status.RESTPort)
}

// runDaemonForeground is invoked instead of the normal CLI dispatch
// when --daemon-run is set (see main in main.go).
func runDaemonForeground() {
	cfg, err := config.Load()
	if err != nil {
		fatalf("Error loading config: %v", err)
	}
	d := newDaemon(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := d.Run(ctx, cfg); err != nil && err != context.Canceled {
		fatalf("daemon error: %v", err)
	}
}
