package mcphttp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/i2y/bqmcp/internal/domain"
)

// ToolLister lists the registered tools.
type ToolLister interface {
	Execute(ctx context.Context) ([]domain.Tool, error)
}

// ReadinessChecker reports whether the warehouse is reachable with the
// configured credentials.
type ReadinessChecker interface {
	Execute(ctx context.Context) error
}

// Handlers struct holds dependencies for the HTTP handlers.
type Handlers struct {
	tools     ToolLister
	readiness ReadinessChecker
	logger    *slog.Logger
}

// NewHandlers creates a new Handlers struct.
func NewHandlers(
	tools ToolLister,
	readiness ReadinessChecker,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		tools:     tools,
		readiness: readiness,
		logger:    logger.With("component", "mcphttp_handler"),
	}
}

// RegisterAdminRoutes sets up the HTTP routes for admin endpoints.
func (h *Handlers) RegisterAdminRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /admin/tools", h.handleListTools)
	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.HandleFunc("GET /readyz", h.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())
}

// ToolSummary is one entry of the GET /admin/tools response.
type ToolSummary struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema domain.JSONSchemaProps `json:"inputSchema"`
}

// handleListTools implements GET /admin/tools
func (h *Handlers) handleListTools(w http.ResponseWriter, r *http.Request) {
	tools, err := h.tools.Execute(r.Context())
	if err != nil {
		h.logger.Error("Failed to list tools", slog.Any("error", err))
		http.Error(w, fmt.Sprintf("Failed to list tools: %v", err), http.StatusInternalServerError)
		return
	}

	summaries := make([]ToolSummary, 0, len(tools))
	for _, tool := range tools {
		summaries = append(summaries, ToolSummary{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(summaries); err != nil {
		h.logger.Warn("Failed to write tools response", slog.Any("error", err))
	}
}

func (h *Handlers) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

// handleReady runs the authentication probe on every call.
func (h *Handlers) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := h.readiness.Execute(r.Context()); err != nil {
		h.logger.Warn("Readiness check failed", slog.Any("error", err))
		http.Error(w, fmt.Sprintf("not ready: %v", err), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ready")
}
