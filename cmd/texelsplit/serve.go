// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: cmd/texelsplit/serve.go
// Summary: `texelsplit serve` builds the session and runs the control server.

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"pkt.systems/pslog"

	"github.com/framegrace/texelsplit/config"
	"github.com/framegrace/texelsplit/engine"
	"github.com/framegrace/texelsplit/journal"
	"github.com/framegrace/texelsplit/registry"
	"github.com/framegrace/texelsplit/server"
	"github.com/framegrace/texelsplit/texel"
)

type serveFlags struct {
	configPath  string
	socket      string
	engine      string
	journal     string
	diagnostics bool
}

func newServeCmd() *cobra.Command {
	var flags serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the texelsplit server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return err
			}
			applyServeFlags(cmd, cfg, flags)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "config file (default $XDG_CONFIG_HOME/texelsplit/config.yaml)")
	cmd.Flags().StringVar(&flags.socket, "socket", "", "control socket path")
	cmd.Flags().StringVar(&flags.engine, "engine", "", "terminal engine: none, headless or pty")
	cmd.Flags().StringVar(&flags.journal, "journal", "", "event journal database path (\":memory:\" allowed)")
	cmd.Flags().BoolVar(&flags.diagnostics, "diagnostics", false, "serve diagnostics commands")
	return cmd
}

// applyServeFlags lets explicitly set flags override file and environment.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config, flags serveFlags) {
	fs := cmd.Flags()
	if fs.Changed("socket") {
		cfg.SocketPath = flags.socket
	}
	if fs.Changed("engine") {
		cfg.Engine = flags.engine
	}
	if fs.Changed("journal") {
		cfg.JournalPath = flags.journal
	}
	if fs.Changed("diagnostics") {
		cfg.Diagnostics = flags.diagnostics
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger := pslog.Ctx(ctx)
	if cfg.SocketPath == "" {
		return server.ErrTransportNotConfigured
	}

	reg := registry.NewDefault()
	if err := reg.SetDefault(registry.Kind(cfg.DefaultPanel)); err != nil {
		return fmt.Errorf("default_panel: %w", err)
	}
	session := texel.NewSession(texel.Options{Registry: reg, Logger: logger})

	var jr *journal.Journal
	if cfg.JournalPath != "" {
		var err error
		jr, err = journal.Open(ctx, cfg.JournalPath, logger)
		if err != nil {
			return err
		}
		defer jr.Close()
		session.Subscribe(jr)
	}
	// Runs before the journal closes so teardown events are recorded.
	defer session.Close()
	if _, _, err := session.NewWorkspace(cfg.WorkspaceName); err != nil {
		return err
	}

	metrics, err := server.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	srv, err := server.NewServer(server.Options{
		SocketPath:   cfg.SocketPath,
		Session:      session,
		Engine:       newEngine(cfg, session, logger),
		Journal:      jr,
		Diagnostics:  cfg.Diagnostics,
		MaxLineBytes: cfg.MaxLineBytes,
		Logger:       logger,
		Metrics:      metrics,
	})
	if err != nil {
		return err
	}
	if err := srv.Start(); err != nil {
		return err
	}
	logger.Info("texelsplit serving", "socket", cfg.SocketPath, "engine", cfg.Engine, "diagnostics", cfg.Diagnostics, "config", cfg.ConfigFile)

	<-ctx.Done()
	logger.Info("shutting down")
	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Stop(stopCtx)
}

func newEngine(cfg *config.Config, session *texel.Session, logger pslog.Logger) engine.Engine {
	hooks := server.EngineHooks(session, logger)
	switch cfg.Engine {
	case config.EngineHeadless:
		return engine.NewHeadless(cfg.TerminalCols, cfg.TerminalRows, hooks, logger)
	case config.EnginePTY:
		return engine.NewPTYHost(cfg.Shell, cfg.TerminalCols, cfg.TerminalRows, hooks, logger)
	}
	return nil
}
