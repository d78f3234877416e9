package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/risk-sentinel/internal/ratelimit"
	"github.com/jonathan/risk-sentinel/internal/server"
)

var (
	servePort   int
	serveConfig string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes REST endpoints for launching assessment jobs, streaming their events, and ad-hoc text analysis.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	serveCmd.Flags().StringVar(&serveConfig, "config", "", "Path to config.json file")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(serveConfig)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") || cfg.Port == 0 {
		cfg.Port = servePort
	}

	a, err := buildApp(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	srv, err := server.New(server.Config{
		Port:          cfg.Port,
		Store:         a.store,
		Runner:        a.runner,
		Engine:        a.engine,
		Fusion:        a.fusion,
		Oracles:       a.oracles,
		GateOpts:      a.gateOptions(),
		Metrics:       a.metrics,
		OracleDefault: cfg.OracleEnabled,
		Verbose:       cfg.Verbose,
		APIRate:       &ratelimit.Config{Rate: 10, Burst: 30, PerMinute: 300},
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}
