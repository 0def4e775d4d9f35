package main

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	mcpGoServer "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i2y/bqmcp/configs"
	"github.com/i2y/bqmcp/internal/adapter/inbound/mcpserver"
	"github.com/i2y/bqmcp/internal/adapter/outbound/memrepo"
	"github.com/i2y/bqmcp/internal/usecase"
)

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, cfg *configs.Config)
	}{
		{
			name: "unset flags keep loaded values",
			args: []string{},
			check: func(t *testing.T, cfg *configs.Config) {
				assert.Equal(t, "env-project", cfg.ProjectID)
				assert.Equal(t, "EU", cfg.Location)
				assert.Equal(t, 25, cfg.MaxResults)
			},
		},
		{
			name: "explicit flags override",
			args: []string{
				"--project-id", "flag-project",
				"--location", "US",
				"--key-file", "/tmp/key.json",
				"--max-results", "10",
				"--max-bytes-billed", "2048",
				"--transport", "sse",
				"--log-level", "debug",
			},
			check: func(t *testing.T, cfg *configs.Config) {
				assert.Equal(t, "flag-project", cfg.ProjectID)
				assert.Equal(t, "US", cfg.Location)
				assert.Equal(t, "/tmp/key.json", cfg.KeyFile)
				assert.Equal(t, 10, cfg.MaxResults)
				assert.Equal(t, int64(2048), cfg.MaxBytesBilled)
				assert.Equal(t, configs.TransportSSE, cfg.Transport)
				assert.Equal(t, "debug", cfg.LogLevel)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRootCmd()
			require.NoError(t, cmd.Flags().Parse(tt.args))

			cfg := configs.Default()
			cfg.ProjectID = "env-project"
			cfg.Location = "EU"
			cfg.MaxResults = 25

			require.NoError(t, applyFlags(cmd.Flags(), cfg))
			tt.check(t, cfg)
		})
	}
}

func TestRootCmd_RequiresProjectID(t *testing.T) {
	t.Setenv("BQMCP_CONFIG_FILE", "")
	t.Setenv("BQMCP_PROJECT_ID", "")

	cmd := newRootCmd()
	cmd.SetArgs([]string{})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err := cmd.Execute()
	assert.ErrorIs(t, err, configs.ErrProjectIDRequired)
}

func TestRootCmd_LocationDefault(t *testing.T) {
	flag := newRootCmd().Flags().Lookup("location")
	require.NotNil(t, flag)
	assert.Equal(t, "asia-northeast1", flag.DefValue)
}

func newSSETestDeps() (*mcpGoServer.MCPServer, *usecase.ServeToolsUseCase, *usecase.AuthenticateUseCase, *slog.Logger) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mcpSrv := mcpGoServer.NewMCPServer(serverName, serverVersion)
	repo := memrepo.NewInMemoryToolRepository(logger)
	serveUC := usecase.NewServeToolsUseCase(repo, mcpserver.NewRegistrar(mcpSrv, nil, logger), logger)
	authUC := usecase.NewAuthenticateUseCase(nil, logger)
	return mcpSrv, serveUC, authUC, logger
}

func TestServeSSE_ListenAddrInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := configs.Default()
	cfg.ListenAddr = ln.Addr().String()
	cfg.AdminAddr = "127.0.0.1:0"
	cfg.ShutdownTimeout = time.Second
	mcpSrv, serveUC, authUC, logger := newSSETestDeps()

	ctx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()

	err = serveSSE(ctx, stop, cfg, mcpSrv, serveUC, authUC, logger)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "MCP SSE server")
	assert.ErrorIs(t, ctx.Err(), context.Canceled, "bind failure should stop the server before the deadline")
}

func TestServeSSE_ShutsDownOnCancel(t *testing.T) {
	cfg := configs.Default()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.AdminAddr = "127.0.0.1:0"
	cfg.ShutdownTimeout = time.Second
	mcpSrv, serveUC, authUC, logger := newSSETestDeps()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	time.AfterFunc(200*time.Millisecond, stop)

	assert.NoError(t, serveSSE(ctx, stop, cfg, mcpSrv, serveUC, authUC, logger))
}
