package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/san-kum/leadlag/internal/config"
	"github.com/san-kum/leadlag/internal/server"
	"github.com/san-kum/leadlag/internal/storage"
)

func runServe(cmd *cobra.Command, args []string) error {
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}

	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if err := config.ApplyEnv(cfg, cmd.Flags()); err != nil {
		return err
	}

	log := newLogger(cfg.Log.Level, cfg.Log.Development)

	st := storage.New(cfg.DataDir)
	if err := st.Init(); err != nil {
		return err
	}

	srv := server.New(server.Config{
		Design:         cfg.DesignOptions(log),
		RequestTimeout: cfg.Server.RequestTimeout,
		Store:          st,
		Log:            log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting server",
		"addr", cfg.Server.Addr,
		"strategy", cfg.Optimizer.Strategy,
		"dataDir", cfg.DataDir,
		"requestTimeout", cfg.Server.RequestTimeout)
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}
