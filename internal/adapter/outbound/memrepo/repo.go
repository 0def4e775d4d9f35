package memrepo

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/i2y/bqmcp/internal/domain"
	"github.com/i2y/bqmcp/internal/usecase"
)

// InMemoryToolRepository provides an in-memory implementation of the ToolRepository.
// NOTE: Tools are registered at startup; nothing is persisted.
type InMemoryToolRepository struct {
	mu       sync.RWMutex
	tools    map[string]domain.Tool         // Map tool name to Tool definition
	handlers map[string]usecase.ToolHandler // Map tool name to handler
	logger   *slog.Logger
}

// NewInMemoryToolRepository creates a new in-memory repository.
func NewInMemoryToolRepository(logger *slog.Logger) *InMemoryToolRepository {
	return &InMemoryToolRepository{
		tools:    make(map[string]domain.Tool),
		handlers: make(map[string]usecase.ToolHandler),
		logger:   logger.With("component", "mem_repo"),
	}
}

// Save stores the given tools and their corresponding handlers.
// It assumes tools and handlers slices correspond by index and have the same length.
func (r *InMemoryToolRepository) Save(ctx context.Context, tools []domain.Tool, handlers []usecase.ToolHandler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(tools) != len(handlers) {
		msg := fmt.Sprintf("mismatch between number of tools (%d) and handlers (%d)", len(tools), len(handlers))
		r.logger.Error("Failed to save tools and handlers", slog.String("reason", msg))
		return fmt.Errorf("save failed: %s", msg)
	}

	count := 0
	for i, tool := range tools {
		if tool.Name == "" {
			r.logger.Warn("Skipping tool with empty name during save", slog.Int("index", i))
			continue
		}
		if handlers[i] == nil {
			r.logger.Warn("Skipping tool without handler during save", slog.String("tool_name", tool.Name))
			continue
		}
		r.tools[tool.Name] = tool
		r.handlers[tool.Name] = handlers[i]
		count++
	}
	r.logger.Info("Saved tools and handlers", slog.Int("count", count), slog.Int("total_tools", len(r.tools)))
	return nil
}

// List returns all tools currently stored in memory, ordered by name.
func (r *InMemoryToolRepository) List(ctx context.Context) ([]domain.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]domain.Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		list = append(list, tool)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	r.logger.Debug("Listed tools from repository", slog.Int("count", len(list)))
	return list, nil
}

// FindToolByName retrieves a tool definition by its name.
func (r *InMemoryToolRepository) FindToolByName(ctx context.Context, name string) (*domain.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	if !ok {
		r.logger.Warn("Tool definition not found", slog.String("tool_name", name))
		return nil, usecase.ErrToolNotFound
	}
	r.logger.Debug("Found tool definition", slog.String("tool_name", name))
	return &tool, nil
}

// FindHandlerByName retrieves the handler of a tool by name.
func (r *InMemoryToolRepository) FindHandlerByName(ctx context.Context, name string) (usecase.ToolHandler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handler, ok := r.handlers[name]
	if !ok {
		r.logger.Warn("Tool handler not found", slog.String("tool_name", name))
		return nil, usecase.ErrToolNotFound
	}
	return handler, nil
}
