package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexanderramin/cadence/internal/app"
	"github.com/alexanderramin/cadence/internal/cli"
	"github.com/alexanderramin/cadence/internal/config"
	"github.com/alexanderramin/cadence/internal/logger"
	"github.com/spf13/cobra"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		rt      *app.Runtime
		logFile io.Closer
	)
	defer func() {
		if rt != nil {
			if err := rt.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: closing: %v\n", err)
			}
		}
		if logFile != nil {
			logFile.Close()
		}
	}()

	a := &cli.App{Credentials: cli.OSKeyring{}}
	a.Boot = func(cmd *cobra.Command) error {
		loader := config.NewLoader(logger.With("config"))
		if err := loader.BindFlags(cmd.Flags()); err != nil {
			return err
		}
		configFile, _ := cmd.Flags().GetString("config")
		cfg, err := loader.Load(configFile)
		if err != nil {
			return err
		}

		logFile, err = logger.Init(logger.Config{Dir: cfg.DataDir, Debug: cfg.Log.Debug, Verbose: cfg.Log.Verbose})
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		logger.Debug("configuration loaded", "file", cfg.File, "db", cfg.DBPath, "remote", cfg.Remote.Backend)

		rt, err = app.Open(cmd.Context(), cfg, app.WithIntervalWatch(loader.WatchInterval))
		if err != nil {
			return fmt.Errorf("opening replica: %w", err)
		}
		a.Bind(rt)
		return nil
	}

	return cli.NewRootCmd(a).ExecuteContext(ctx)
}
