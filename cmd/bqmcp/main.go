package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	mcpGoServer "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/i2y/bqmcp/configs"
	"github.com/i2y/bqmcp/internal/adapter/inbound/mcphttp"
	"github.com/i2y/bqmcp/internal/adapter/inbound/mcpserver"
	"github.com/i2y/bqmcp/internal/adapter/outbound/bigquery"
	"github.com/i2y/bqmcp/internal/adapter/outbound/memrepo"
	"github.com/i2y/bqmcp/internal/domain"
	"github.com/i2y/bqmcp/internal/metrics"
	"github.com/i2y/bqmcp/internal/usecase"
)

const (
	serverName    = "bigquery-mcp-server"
	serverVersion = "1.0.0"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bqmcp",
		Short: "Read-only BigQuery MCP server",
		Long: `bqmcp exposes a BigQuery project to MCP clients through a fixed set of
read-only tools: run_query, list_datasets, list_tables_in_dataset,
get_table_info, dry_run_estimate and list_all_tables.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			configFile, _ := cmd.Flags().GetString("config")
			cfg, err := configs.Load(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := applyFlags(cmd.Flags(), cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				if errors.Is(err, configs.ErrProjectIDRequired) {
					_ = cmd.Usage()
				}
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("project-id", "", "Google Cloud project ID (required)")
	flags.String("location", domain.DefaultLocation, "BigQuery location")
	flags.String("key-file", "", "Path to a service account key file; Application Default Credentials when empty")
	flags.Int("max-results", 1000, "Maximum number of rows returned by a query")
	flags.Int64("max-bytes-billed", 500000000000, "Maximum bytes billed per query")
	flags.String("transport", configs.TransportStdio, "Transport mode: stdio or sse")
	flags.String("config", "", "Path to a YAML config file")
	flags.String("log-level", "info", "Log level: debug, info, warn or error")
	return cmd
}

// applyFlags overrides cfg with the flags given explicitly on the command line.
// --config is consumed by configs.Load.
func applyFlags(flags *pflag.FlagSet, cfg *configs.Config) error {
	var err error
	flags.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "project-id":
			cfg.ProjectID, err = flags.GetString(f.Name)
		case "location":
			cfg.Location, err = flags.GetString(f.Name)
		case "key-file":
			cfg.KeyFile, err = flags.GetString(f.Name)
		case "max-results":
			cfg.MaxResults, err = flags.GetInt(f.Name)
		case "max-bytes-billed":
			cfg.MaxBytesBilled, err = flags.GetInt64(f.Name)
		case "transport":
			cfg.Transport, err = flags.GetString(f.Name)
		case "log-level":
			cfg.LogLevel, err = flags.GetString(f.Name)
		}
	})
	return err
}

func run(parent context.Context, cfg *configs.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === Logging ===
	// stdout carries the stdio protocol stream, so logs always go to stderr.
	logLevel := cfg.ParsedLogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	logger.Info("Logger initialized.", slog.String("level", logLevel.String()), slog.String("transport", cfg.Transport))
	metrics.BuildInfo.WithLabelValues(serverVersion).Set(1)

	// === OpenTelemetry Initialization ===
	shutdownOtel, err := initOtelProvider(cfg)
	if err != nil {
		logger.Error("Failed to initialize OpenTelemetry.", slog.Any("error", err))
		return err
	}
	defer func() {
		if err := shutdownOtel(context.Background()); err != nil {
			logger.Error("Failed to shutdown OpenTelemetry TracerProvider.", slog.Any("error", err))
		}
	}()

	// === Dependency Injection ===
	serverCfg := cfg.ServerConfig()
	warehouse, err := bigquery.NewClient(ctx, serverCfg, logger)
	if err != nil {
		logger.Error("Failed to create BigQuery client.", slog.Any("error", err))
		return err
	}
	defer func() {
		if err := warehouse.Close(); err != nil {
			logger.Warn("Failed to close BigQuery client.", slog.Any("error", err))
		}
	}()

	mcpSrv := mcpGoServer.NewMCPServer(serverName, serverVersion)
	repo := memrepo.NewInMemoryToolRepository(logger)
	invokeUC := usecase.NewInvokeToolUseCase(repo, logger)
	registrar := mcpserver.NewRegistrar(mcpSrv, invokeUC, logger)
	serveUC := usecase.NewServeToolsUseCase(repo, registrar, logger)
	authUC := usecase.NewAuthenticateUseCase(warehouse, logger)

	tools, handlers := usecase.NewWarehouseToolsUseCase(warehouse, serverCfg, logger).Definitions()
	if err := serveUC.Register(ctx, tools, handlers); err != nil {
		logger.Error("Failed to register tools.", slog.Any("error", err))
		return err
	}

	// === Authentication Probe ===
	if err := authUC.Execute(ctx); err != nil {
		logger.Error("Failed to authenticate with BigQuery. Please check your credentials and permissions.", slog.Any("error", err))
		return err
	}

	logger.Info("BigQuery MCP Server starting.",
		slog.String("project_id", cfg.ProjectID),
		slog.String("location", cfg.Location),
		slog.Int("max_results", cfg.MaxResults),
		slog.Int64("max_bytes_billed", cfg.MaxBytesBilled),
		slog.String("max_bytes_billed_human", humanize.Bytes(uint64(cfg.MaxBytesBilled))),
	)

	// === Transport Mode Selection ===
	switch cfg.Transport {
	case configs.TransportStdio:
		logger.Info("BigQuery MCP Server running on stdio")
		stdioServer := mcpGoServer.NewStdioServer(mcpSrv)
		if err := stdioServer.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("STDIO server error", slog.Any("error", err))
			return err
		}
		logger.Info("Shutting down BigQuery MCP Server...")
		return nil

	case configs.TransportSSE:
		return serveSSE(ctx, stop, cfg, mcpSrv, serveUC, authUC, logger)

	default:
		return fmt.Errorf("%w: %q", configs.ErrInvalidTransport, cfg.Transport)
	}
}

func serveSSE(
	ctx context.Context,
	stop context.CancelFunc,
	cfg *configs.Config,
	mcpSrv *mcpGoServer.MCPServer,
	serveUC *usecase.ServeToolsUseCase,
	authUC *usecase.AuthenticateUseCase,
	logger *slog.Logger,
) error {
	sseServer := mcpGoServer.NewSSEServer(mcpSrv, mcpGoServer.WithBaseURL("http://"+cfg.ListenAddr))
	logger.Info("MCP SSE server initialized.", slog.String("address", cfg.ListenAddr))

	// === Admin HTTP Server Setup ===
	adminMux := http.NewServeMux()
	mcphttp.NewHandlers(serveUC, authUC, logger).RegisterAdminRoutes(adminMux)
	adminServer := &http.Server{
		Addr:    cfg.AdminAddr,
		Handler: adminMux,
	}
	// A server that fails to start stops the process with a non-zero exit.
	serveErrs := make(chan error, 2)
	go func() {
		logger.Info("Admin HTTP server starting.", slog.String("address", adminServer.Addr))
		if err := adminServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Admin HTTP server failed to start.", slog.Any("error", err))
			serveErrs <- fmt.Errorf("admin HTTP server: %w", err)
			stop()
		}
	}()

	go func() {
		logger.Info("MCP SSE server starting.", slog.String("address", cfg.ListenAddr))
		if err := sseServer.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("MCP SSE server failed to start.", slog.Any("error", err))
			serveErrs <- fmt.Errorf("MCP SSE server: %w", err)
			stop()
		}
	}()

	<-ctx.Done()

	// === Server Shutdown ===
	logger.Info("Shutting down servers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Admin HTTP server graceful shutdown failed.", slog.Any("error", err))
	}
	if err := sseServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("MCP SSE server graceful shutdown failed.", slog.Any("error", err))
	}

	select {
	case err := <-serveErrs:
		return err
	default:
	}
	logger.Info("Servers shut down gracefully.")
	return nil
}
