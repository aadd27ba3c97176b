// Package main is the entrypoint of grabarr.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"grabarr/internal/cfg"
	"grabarr/internal/domain/consts"
	"grabarr/internal/domain/logger"
	"grabarr/internal/domain/paths"
	"grabarr/internal/logging"
)

// main is the main entrypoint of the program.
func main() {
	os.Exit(run())
}

func run() int {
	startTime := time.Now()

	if err := paths.InitProgFilesDirs(); err != nil {
		fmt.Fprintf(os.Stderr, "%s exiting with error: %v\n", consts.ProgramName, err)
		return 1
	}

	// Setup logging
	pl, err := logging.SetupLogging(logging.LoggingConfig{
		LogFilePath: paths.LogFilePath,
		MaxSizeMB:   1,
		MaxBackups:  3,
		Console:     os.Stderr,
		Program:     consts.ProgramName,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s exiting with error: %v\n", consts.ProgramName, err)
		return 1
	}
	logger.Pl = pl
	defer func() {
		if err := pl.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
		}
	}()

	// Cancelling kills any running engine process and removes its partial files
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cfg.InitCommands(ctx); err != nil {
		logger.Pl.E("Error: %v", err)
		return 1
	}

	runErr := cfg.Execute()
	logger.Pl.D(1, "%s finished in %.2f seconds", consts.ProgramName, time.Since(startTime).Seconds())
	if runErr != nil {
		logger.Pl.E("Error: %v", runErr)
		return cfg.ExitCode(runErr)
	}
	return 0
}
