package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/dlcut/internal/config"
	internalhttp "github.com/jmylchreest/dlcut/internal/http"
	"github.com/jmylchreest/dlcut/internal/http/handlers"
	"github.com/jmylchreest/dlcut/internal/startup"
	"github.com/jmylchreest/dlcut/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dlcut control API",
	Long: `Start the dlcut HTTP API on a local port.

The server provides:
- Video metadata, download and cut jobs (one job at a time)
- Live progress as server-sent events at /api/v1/progress/events
- Dependency status and installation
- Local file preview with byte-range support
- Health check endpoint
- OpenAPI documentation at /docs`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "127.0.0.1", "Host to bind to")
	serveCmd.Flags().Int("port", 8765, "Port to listen on")
	serveCmd.Flags().String("output-dir", "", "Download directory for relative output paths")

	mustBindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	mustBindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	mustBindPFlag("downloads.output_dir", serveCmd.Flags().Lookup("output-dir"))
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := cmdLogger()
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if cfg.Cleanup.Enabled {
		cleaner, err := startup.NewCleaner(logger, config.CronParser, cfg.Cleanup.Schedule, a.cleanupDirs(), cfg.Cleanup.MaxAge.Duration())
		if err != nil {
			return fmt.Errorf("starting cleanup: %w", err)
		}
		cleaner.Start()
		defer cleaner.Stop()
	}

	serverConfig := internalhttp.DefaultServerConfig()
	serverConfig.Host = cfg.Server.Host
	serverConfig.Port = cfg.Server.Port
	serverConfig.ReadTimeout = cfg.Server.ReadTimeout
	serverConfig.WriteTimeout = cfg.Server.WriteTimeout
	serverConfig.ShutdownTimeout = cfg.Server.ShutdownTimeout
	server := internalhttp.NewServer(serverConfig, logger, version.Version)

	// Installs outlive the request that started them but stop with the server.
	installCtx, cancelInstalls := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelInstalls()

	handlers.NewHealthHandler(version.Version).WithJobs(a.downloads).Register(server.API())
	handlers.NewDepsHandler(installCtx, a.checker, a.installer, a.hub).Register(server.API())
	handlers.NewMediaHandler(a.downloads).Register(server.API())
	handlers.NewJobHandler(a.downloads).Register(server.API())
	handlers.NewPreviewHandler(a.previews).Register(server.API())

	progressHandler := handlers.NewProgressHandler(a.hub)
	progressHandler.SetHeartbeatInterval(cfg.Server.SSEHeartbeat)
	progressHandler.RegisterSSE(server.Router())

	defer a.previews.Close()
	defer func() {
		if st, ok := a.downloads.Active(); ok {
			logger.Info("cancelling active job on shutdown", slog.String("job_id", st.ID))
			_ = a.downloads.Cancel()
		}
	}()

	logger.Info("starting dlcut server",
		slog.String("address", server.Address()),
		slog.String("version", version.Version),
		slog.String("output_dir", a.downloads.OutputDir()),
		slog.String("bin_dir", a.resolver.BinDir()),
	)

	return server.ListenAndServe(ctx)
}
