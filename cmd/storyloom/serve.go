package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/storyloom/storyloom/internal/config"
	"github.com/storyloom/storyloom/internal/home"
	"github.com/storyloom/storyloom/internal/server"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Storyloom server",
	Long: `Start the Storyloom HTTP server.

On first run the SQLite store is created under the home directory and
seeded with the default interview chapters and questions. A default
config file is written if none exists.

The server provides:
  - /health  - Basic server health check
  - /status  - Store, chapter, and provider status
  - /api/... - Interview capture and narrative synthesis endpoints

Examples:
  storyloom serve                  # Start on default port 8399
  storyloom serve --port 3000      # Start on custom port
  storyloom serve --host 0.0.0.0   # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Set up logger
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))

		// Get home directory
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		// Write a default config on first run so provider keys have a home
		if cfgFile == "" && !h.ConfigExists() {
			if err := config.WriteDefault(h.ConfigPath()); err != nil {
				return err
			}
			logger.Info("wrote default config", "path", h.ConfigPath())
		}

		// Load config with hot reload
		cfgPath := cfgFile
		if cfgPath == "" {
			cfgPath = h.ConfigPath()
		}
		cfgMgr, err := config.NewManager(cfgPath)
		if err != nil {
			return err
		}
		cfgMgr.WatchConfig()

		cfg := cfgMgr.Get()
		host := serveHost
		if host == "" {
			host = cfg.Server.Host
		}
		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		// Create server
		srv, err := server.New(server.Config{
			Host:          host,
			Port:          port,
			Home:          h,
			ConfigManager: cfgMgr,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default: config value)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default: config value)")

	rootCmd.AddCommand(serveCmd)
}
