package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/i2y/bqmcp/internal/domain"
)

// ServeToolsUseCase registers the tool catalog and lists the available tools.
type ServeToolsUseCase struct {
	repository ToolRepository
	registrar  ToolRegistrar
	logger     *slog.Logger
}

// NewServeToolsUseCase creates a new ServeToolsUseCase.
// registrar may be nil when tools are only dispatched in-process.
func NewServeToolsUseCase(repository ToolRepository, registrar ToolRegistrar, logger *slog.Logger) *ServeToolsUseCase {
	return &ServeToolsUseCase{
		repository: repository,
		registrar:  registrar,
		logger:     logger.With("usecase", "ServeTools"),
	}
}

// Register stores the tools with their handlers and exposes them on the
// transport. It performs no network calls against the warehouse.
func (uc *ServeToolsUseCase) Register(ctx context.Context, tools []domain.Tool, handlers []ToolHandler) error {
	if err := uc.repository.Save(ctx, tools, handlers); err != nil {
		uc.logger.Error("Failed to save tools", slog.Any("error", err))
		return fmt.Errorf("failed to save tools to repository: %w", err)
	}
	if uc.registrar == nil {
		return nil
	}
	for _, tool := range tools {
		if err := uc.registrar.Register(tool); err != nil {
			uc.logger.Error("Failed to register tool", slog.String("tool_name", tool.Name), slog.Any("error", err))
			return fmt.Errorf("failed to register tool %s: %w", tool.Name, err)
		}
		uc.logger.Debug("Registered tool", slog.String("tool_name", tool.Name))
	}
	uc.logger.Info("Registered tools", slog.Int("count", len(tools)))
	return nil
}

// Execute retrieves all tools currently stored in the repository.
func (uc *ServeToolsUseCase) Execute(ctx context.Context) ([]domain.Tool, error) {
	uc.logger.Info("Listing tools")
	tools, err := uc.repository.List(ctx)
	if err != nil {
		uc.logger.Error("Failed to list tools from repository", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list tools from repository: %w", err)
	}
	uc.logger.Info("Successfully listed tools", slog.Int("count", len(tools)))
	return tools, nil
}
