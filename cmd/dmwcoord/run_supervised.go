package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/dmwcoord/pkg/log"
)

// runSupervisedCmd is the thin fork-exec supervisor described in the runner
// CLI contract: it restarts "serve" on an unexpected exit, backing off
// between quick failures, and gives up once too many happen in a row.
var runSupervisedCmd = &cobra.Command{
	Use:   "run-supervised",
	Short: "Fork-exec the engine's serve command, restarting it on crash",
	Long: `run-supervised runs "dmwcoord serve" as a child process, restarting it
whenever it exits unexpectedly. A child that keeps exiting quickly trips the
quick-failure threshold and the supervisor gives up, exiting with the
child's last exit code (or 1 if that code was 0).`,
	RunE: runSupervised,
}

func init() {
	flags := runSupervisedCmd.Flags()
	flags.Int("max-runtime-seconds", 0, "restart the child after it has run this long, even if healthy (0 disables)")
	flags.Int("restart-delay-seconds", 2, "base delay before restarting a child that exited")
	flags.Int("max-backoff-seconds", 60, "cap on the restart delay after repeated quick failures")
	flags.Int("min-uptime-seconds", 30, "a child that exits before running this long counts as a quick failure")
	flags.Int("max-quick-failures", 5, "give up after this many consecutive quick failures")
	rootCmd.AddCommand(runSupervisedCmd)
}

func runSupervised(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	maxRuntime, _ := flags.GetInt("max-runtime-seconds")
	restartDelay, _ := flags.GetInt("restart-delay-seconds")
	maxBackoff, _ := flags.GetInt("max-backoff-seconds")
	minUptime, _ := flags.GetInt("min-uptime-seconds")
	maxQuickFailures, _ := flags.GetInt("max-quick-failures")
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("run-supervised: resolve self: %w", err)
	}

	quickFailures := 0
	delay := time.Duration(restartDelay) * time.Second
	backoffCap := time.Duration(maxBackoff) * time.Second

	for {
		childArgs := []string{"serve", "--log-level", logLevel}
		runCtx := ctx
		var cancelRun context.CancelFunc
		if maxRuntime > 0 {
			runCtx, cancelRun = context.WithTimeout(ctx, time.Duration(maxRuntime)*time.Second)
		}

		child := exec.Command(self, childArgs...)
		child.Stdout = os.Stdout
		child.Stderr = os.Stderr
		child.Env = os.Environ()

		log.Logger.Info().Str("binary", self).Msg("starting supervised child")
		start := time.Now()
		if err := child.Start(); err != nil {
			if cancelRun != nil {
				cancelRun()
			}
			return fmt.Errorf("run-supervised: start child: %w", err)
		}

		waitDone := make(chan error, 1)
		go func() { waitDone <- child.Wait() }()

		var runErr error
		runtimeCapHit := false
		select {
		case runErr = <-waitDone:
		case <-runCtx.Done():
			runtimeCapHit = true
			// Give the child a grace period to shut down on its own
			// signal handler before forcing it, mirroring the 25s
			// grace period the external supervisor contract promises.
			_ = child.Process.Signal(syscall.SIGTERM)
			select {
			case runErr = <-waitDone:
			case <-time.After(25 * time.Second):
				_ = child.Process.Kill()
				runErr = <-waitDone
			}
		}
		uptime := time.Since(start)
		if cancelRun != nil {
			cancelRun()
		}

		if ctx.Err() != nil {
			log.Logger.Info().Msg("supervisor received shutdown signal, not restarting")
			return nil
		}

		exitCode := 0
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else if runErr != nil {
			exitCode = 1
		}

		if exitCode == 0 && runErr == nil && !runtimeCapHit {
			log.Logger.Info().Msg("supervised child exited cleanly")
			return nil
		}

		log.Logger.Warn().Err(runErr).Int("exit_code", exitCode).Dur("uptime", uptime).Msg("supervised child exited, considering restart")

		if uptime < time.Duration(minUptime)*time.Second {
			quickFailures++
		} else {
			quickFailures = 0
			delay = time.Duration(restartDelay) * time.Second
		}

		if quickFailures >= maxQuickFailures {
			log.Logger.Error().Int("quick_failures", quickFailures).Msg("too many quick failures, giving up")
			if exitCode == 0 {
				exitCode = 1
			}
			os.Exit(exitCode)
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil
		}

		delay *= 2
		if delay > backoffCap {
			delay = backoffCap
		}
	}
}
