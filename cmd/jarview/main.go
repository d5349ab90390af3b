package main

import (
	"fmt"
	"os"

	"github.com/datallboy/jarview/internal/dispatch"
	"github.com/datallboy/jarview/internal/infra/config"
	"github.com/datallboy/jarview/internal/infra/logger"
	"github.com/datallboy/jarview/internal/lister"
	"github.com/datallboy/jarview/internal/scheme"
	"github.com/datallboy/jarview/internal/store"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "jarview",
		Short:         "Browse and extract jar archives through jar:// URLs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml")

	root.AddCommand(
		newServeCmd(),
		newOpenCmd(),
		newListCmd(),
		newExtractCmd(),
		newHistoryCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// services bundles what every command needs
type services struct {
	cfg     *config.Config
	log     *logger.Logger
	history *store.PersistentStore
	tool    *lister.CLIJar
}

func bootstrap(consoleLogs bool) (*services, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	log, err := logger.New(cfg.Log.Path, logger.ParseLevel(cfg.Log.Level), consoleLogs && cfg.Log.IncludeStdout)
	if err != nil {
		return nil, fmt.Errorf("logger error: %w", err)
	}

	// Fails fast when the jar tool is missing
	tool, err := lister.NewCLIJar(cfg.Jar.Binary)
	if err != nil {
		log.Close()
		return nil, err
	}

	history, err := store.NewPersistentStore(store.Config{
		Driver:     cfg.Store.Driver,
		SQLitePath: cfg.Store.SQLitePath,
		DSN:        cfg.Store.DSN,
	})
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("store error: %w", err)
	}

	return &services{cfg: cfg, log: log, history: history, tool: tool}, nil
}

func (rt *services) dispatcher(linker scheme.Linker) *dispatch.Dispatcher {
	return dispatch.New(rt.tool, dispatch.Options{
		OutputDir:     rt.cfg.Jar.OutputDir,
		StrictExtract: rt.cfg.Jar.StrictExtract,
		QueueSize:     rt.cfg.Jar.QueueSize,
		Linker:        linker,
	}, rt.log, rt.history)
}

func (rt *services) Close() {
	if err := rt.history.Close(); err != nil {
		rt.log.Warn("Failed to close store: %v", err)
	}
	rt.log.Close()
}
