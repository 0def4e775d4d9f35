package usecase

import (
	"context"
	"errors"

	"github.com/i2y/bqmcp/internal/domain"
)

// Standard errors returned by use cases and adapters.
var (
	ErrToolNotFound     = errors.New("tool not found")
	ErrInvalidArguments = errors.New("invalid arguments")
)

// --- Warehouse ---

// Warehouse is the capability the tool handlers need from the data warehouse.
// Implementations are expected to be authenticated and safe for concurrent use.
type Warehouse interface {
	// RunQuery submits the query, waits for it and returns up to
	// opts.MaxResults rows (all rows when 0).
	RunQuery(ctx context.Context, opts domain.QueryOptions) ([]map[string]any, error)

	// DryRunQuery submits the query without executing it and returns the
	// job statistics. opts.DryRun is ignored.
	DryRunQuery(ctx context.Context, opts domain.QueryOptions) (*domain.JobStatistics, error)

	// ListDatasets returns dataset ids of the project. max <= 0 lists all.
	ListDatasets(ctx context.Context, max int) ([]string, error)

	// DatasetExists returns nil when the dataset can be read.
	DatasetExists(ctx context.Context, datasetID string) error

	// ListTables returns the table ids of a dataset.
	ListTables(ctx context.Context, datasetID string) ([]string, error)

	// TableMetadata returns schema, partitioning and description of a table.
	TableMetadata(ctx context.Context, datasetID, tableID string) (*domain.TableDescriptor, error)

	Close() error
}

// --- Tool registry ---

// ToolHandler runs a tool with arguments that already passed schema validation.
// It never returns a nil result.
type ToolHandler func(ctx context.Context, args map[string]any) *domain.ToolResult

// ToolRepository defines the contract for storing and retrieving registered
// tools and their handlers.
type ToolRepository interface {
	// Save stores a list of tools and their handlers.
	// tools and handlers correspond by index.
	Save(ctx context.Context, tools []domain.Tool, handlers []ToolHandler) error

	// List retrieves all currently stored tools, ordered by name.
	List(ctx context.Context) ([]domain.Tool, error)

	// FindToolByName retrieves a specific tool definition by its unique name.
	FindToolByName(ctx context.Context, name string) (*domain.Tool, error)

	// FindHandlerByName retrieves the handler for a specific tool by name.
	FindHandlerByName(ctx context.Context, name string) (ToolHandler, error)
}

// --- MCP Server Abstraction ---

// ToolRegistrar registers tools with the MCP transport.
// This avoids direct dependency on a specific server implementation in the use case.
type ToolRegistrar interface {
	Register(tool domain.Tool) error
}
