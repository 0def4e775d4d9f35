package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/i2y/bqmcp/internal/domain"
)

// Tool names registered with the MCP server.
const (
	ToolRunQuery            = "run_query"
	ToolListDatasets        = "list_datasets"
	ToolListTablesInDataset = "list_tables_in_dataset"
	ToolGetTableInfo        = "get_table_info"
	ToolDryRunEstimate      = "dry_run_estimate"
	ToolListAllTables       = "list_all_tables"
)

// WarehouseToolsUseCase implements the read-only warehouse tools.
// Every method returns a result built by domain.Success or domain.Failure.
type WarehouseToolsUseCase struct {
	warehouse Warehouse
	config    domain.ServerConfig
	logger    *slog.Logger
}

// NewWarehouseToolsUseCase creates a new WarehouseToolsUseCase.
func NewWarehouseToolsUseCase(warehouse Warehouse, config domain.ServerConfig, logger *slog.Logger) *WarehouseToolsUseCase {
	return &WarehouseToolsUseCase{
		warehouse: warehouse,
		config:    config,
		logger:    logger.With("usecase", "WarehouseTools"),
	}
}

// Definitions returns the tool catalog and the matching handlers, by index.
func (uc *WarehouseToolsUseCase) Definitions() ([]domain.Tool, []ToolHandler) {
	tools := []domain.Tool{
		{
			Name:        ToolRunQuery,
			Description: "Execute a read-only BigQuery SQL query",
			InputSchema: domain.JSONSchemaProps{
				Type: "object",
				Properties: map[string]domain.JSONSchemaProps{
					"query":   domain.NonEmptyString("SQL query to execute. Write statements are rejected."),
					"maxRows": domain.NonNegativeInteger(fmt.Sprintf("Maximum number of rows to return (default %d)", uc.config.MaxResultRows)),
				},
				Required: []string{"query"},
			},
		},
		{
			Name:        ToolListDatasets,
			Description: "List all datasets in the project",
			InputSchema: domain.JSONSchemaProps{Type: "object"},
		},
		{
			Name:        ToolListTablesInDataset,
			Description: "List all tables in a specific dataset with their schemas",
			InputSchema: domain.JSONSchemaProps{
				Type: "object",
				Properties: map[string]domain.JSONSchemaProps{
					"datasetId": domain.NonEmptyString("Dataset ID"),
				},
				Required: []string{"datasetId"},
			},
		},
		{
			Name:        ToolGetTableInfo,
			Description: fmt.Sprintf("Get table schema and sample data (up to %d rows)", domain.SampleRowLimit),
			InputSchema: domain.JSONSchemaProps{
				Type: "object",
				Properties: map[string]domain.JSONSchemaProps{
					"datasetId": domain.NonEmptyString("Dataset ID"),
					"tableId":   domain.NonEmptyString("Table ID"),
					"partition": {Type: "string", Description: "Partition filter (e.g., '20250101' or '2025-01-01')"},
				},
				Required: []string{"datasetId", "tableId"},
			},
		},
		{
			Name:        ToolDryRunEstimate,
			Description: "Check query for errors and estimate cost without executing it",
			InputSchema: domain.JSONSchemaProps{
				Type: "object",
				Properties: map[string]domain.JSONSchemaProps{
					"query":  domain.NonEmptyString("SQL query to check"),
					"dryRun": {Type: "boolean", Description: "Ignored; the query is never executed", Default: true},
				},
				Required: []string{"query"},
			},
		},
		{
			Name:        ToolListAllTables,
			Description: "List the tables of every dataset in the project",
			InputSchema: domain.JSONSchemaProps{Type: "object"},
		},
	}
	handlers := []ToolHandler{
		uc.RunQuery,
		uc.ListDatasets,
		uc.ListTablesInDataset,
		uc.GetTableInfo,
		uc.DryRunEstimate,
		uc.ListAllTables,
	}
	return tools, handlers
}

// RunQuery executes a read-only query capped by the configured bytes-billed limit.
func (uc *WarehouseToolsUseCase) RunQuery(ctx context.Context, args map[string]any) *domain.ToolResult {
	log := uc.logger.With(slog.String("tool", ToolRunQuery))
	query := stringArg(args, "query")
	maxRows := uc.config.MaxResultRows
	if n, ok := intArg(args, "maxRows"); ok && n > 0 {
		maxRows = n
	}

	if err := domain.ValidateQuery(query); err != nil {
		log.Warn("Rejected query", slog.Any("error", err))
		return domain.Failure(err.Error())
	}

	log.Debug("Running query", slog.String("query", query), slog.Int("max_rows", maxRows))
	rows, err := uc.warehouse.RunQuery(ctx, domain.QueryOptions{
		Query:          query,
		MaxBytesBilled: uc.config.MaxBytesBilled,
		MaxResults:     maxRows,
	})
	if err != nil {
		log.Error("Query failed", slog.Any("error", err))
		return domain.Failure("Error executing query: " + err.Error())
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	log.Info("Query completed", slog.Int("rows", len(rows)))
	return domain.Success(domain.QueryRows(rows))
}

// ListDatasets lists all dataset ids of the project.
func (uc *WarehouseToolsUseCase) ListDatasets(ctx context.Context, _ map[string]any) *domain.ToolResult {
	datasets, err := uc.warehouse.ListDatasets(ctx, 0)
	if err != nil {
		uc.logger.Error("Failed to list datasets", slog.Any("error", err))
		return domain.Failure("Error listing datasets: " + err.Error())
	}

	ids := make(domain.DatasetList, 0, len(datasets))
	for _, id := range datasets {
		if id != "" {
			ids = append(ids, id)
		}
	}
	return domain.Success(ids)
}

// ListTablesInDataset lists the tables of a dataset with their metadata.
// Metadata is fetched concurrently; a table whose metadata cannot be read is
// reported with an error entry instead of failing the whole listing.
func (uc *WarehouseToolsUseCase) ListTablesInDataset(ctx context.Context, args map[string]any) *domain.ToolResult {
	datasetID := stringArg(args, "datasetId")
	log := uc.logger.With(slog.String("tool", ToolListTablesInDataset), slog.String("dataset_id", datasetID))

	if err := uc.warehouse.DatasetExists(ctx, datasetID); err != nil {
		log.Warn("Dataset probe failed", slog.Any("error", err))
		return domain.Failure(fmt.Sprintf("Dataset %s not found or inaccessible: %v", datasetID, err))
	}

	tableIDs, err := uc.warehouse.ListTables(ctx, datasetID)
	if err != nil {
		log.Error("Failed to list tables", slog.Any("error", err))
		return domain.Failure("Error listing tables: " + err.Error())
	}

	entries := make([]domain.TableEntry, len(tableIDs))
	var g errgroup.Group
	g.SetLimit(uc.fetchConcurrency())
	for i, tableID := range tableIDs {
		g.Go(func() error {
			meta, err := uc.warehouse.TableMetadata(ctx, datasetID, tableID)
			if err != nil {
				log.Warn("Failed to fetch table metadata", slog.String("table_id", tableID), slog.Any("error", err))
				entries[i] = domain.TableEntry{TableID: tableID, Error: "Failed to fetch metadata: " + err.Error()}
				return nil
			}
			entries[i] = domain.TableEntry{
				TableID:          tableID,
				Schema:           meta.Schema,
				TimePartitioning: meta.TimePartitioning,
				Description:      meta.Description,
			}
			return nil
		})
	}
	_ = g.Wait()

	log.Info("Listed tables", slog.Int("count", len(entries)))
	return domain.Success(domain.TableListing{DatasetID: datasetID, Tables: entries})
}

// GetTableInfo returns the schema of a table and up to domain.SampleRowLimit
// sample rows. A partitioned table is only sampled when a partition is given.
func (uc *WarehouseToolsUseCase) GetTableInfo(ctx context.Context, args map[string]any) *domain.ToolResult {
	datasetID := stringArg(args, "datasetId")
	tableID := stringArg(args, "tableId")
	partition := stringArg(args, "partition")
	log := uc.logger.With(slog.String("tool", ToolGetTableInfo), slog.String("dataset_id", datasetID), slog.String("table_id", tableID))

	meta, err := uc.warehouse.TableMetadata(ctx, datasetID, tableID)
	if err != nil {
		log.Error("Failed to fetch table metadata", slog.Any("error", err))
		return domain.Failure("Error getting table information: " + err.Error())
	}

	query, err := domain.SampleQuery(uc.config.ProjectID, datasetID, tableID, meta.TimePartitioning, partition)
	if err != nil {
		var missing *domain.MissingPartitionError
		if errors.As(err, &missing) {
			log.Warn("Partition filter required", slog.String("column", missing.Column))
		}
		return domain.Failure(err.Error())
	}

	log.Debug("Sampling table", slog.String("query", query))
	rows, err := uc.warehouse.RunQuery(ctx, domain.QueryOptions{
		Query:          query,
		MaxBytesBilled: uc.config.MaxBytesBilled,
		MaxResults:     domain.SampleRowLimit,
	})
	if err != nil {
		log.Error("Sample query failed", slog.Any("error", err))
		return domain.Failure("Error getting table information: " + err.Error())
	}
	if len(rows) > domain.SampleRowLimit {
		rows = rows[:domain.SampleRowLimit]
	}
	if rows == nil {
		rows = []map[string]any{}
	}

	return domain.Success(domain.TableInfo{
		Schema:           meta.Schema,
		TimePartitioning: meta.TimePartitioning,
		Description:      meta.Description,
		SampleData:       rows,
	})
}

// DryRunEstimate validates a query with a dry run and estimates its cost.
// The query is never executed, whatever dryRun argument the caller sends.
func (uc *WarehouseToolsUseCase) DryRunEstimate(ctx context.Context, args map[string]any) *domain.ToolResult {
	log := uc.logger.With(slog.String("tool", ToolDryRunEstimate))
	query := stringArg(args, "query")

	if err := domain.ValidateQuery(query); err != nil {
		log.Warn("Rejected query", slog.Any("error", err))
		return domain.Failure(err.Error())
	}

	stats, err := uc.warehouse.DryRunQuery(ctx, domain.QueryOptions{
		Query:          query,
		MaxBytesBilled: uc.config.MaxBytesBilled,
		DryRun:         true,
	})
	if err != nil {
		log.Warn("Dry run failed", slog.Any("error", err))
		return domain.Failure("Error in query: " + err.Error())
	}
	if stats == nil || stats.TotalBytesProcessed == nil {
		log.Error("Dry run returned no statistics")
		return domain.Failure("Could not retrieve query statistics.")
	}

	bytes := *stats.TotalBytesProcessed
	cost := domain.EstimateCost(bytes)
	var human string
	if bytes >= 0 {
		human = humanize.IBytes(uint64(bytes))
	}
	log.Info("Dry run completed", slog.Int64("total_bytes_processed", bytes), slog.Float64("estimated_cost_usd", cost))
	return domain.Success(domain.DryRunEstimate{
		Status:                "Query is valid",
		TotalBytesProcessed:   bytes,
		TotalBytesProcessedGB: fmt.Sprintf("%.2f GB", float64(bytes)/1024/1024/1024),
		TotalBytesHuman:       human,
		EstimatedCost:         fmt.Sprintf("$%.2f", cost),
		QueryPlan:             stats.QueryPlan,
	})
}

// ListAllTables lists the table ids of every dataset. Any listing error
// fails the whole call.
func (uc *WarehouseToolsUseCase) ListAllTables(ctx context.Context, _ map[string]any) *domain.ToolResult {
	datasets, err := uc.warehouse.ListDatasets(ctx, 0)
	if err != nil {
		uc.logger.Error("Failed to list datasets", slog.Any("error", err))
		return domain.Failure("Error listing tables: " + err.Error())
	}

	tables := make([][]string, len(datasets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.fetchConcurrency())
	for i, datasetID := range datasets {
		if datasetID == "" {
			continue
		}
		g.Go(func() error {
			ids, err := uc.warehouse.ListTables(gctx, datasetID)
			if err != nil {
				return fmt.Errorf("dataset %s: %w", datasetID, err)
			}
			tables[i] = ids
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		uc.logger.Error("Failed to list tables", slog.Any("error", err))
		return domain.Failure("Error listing tables: " + err.Error())
	}

	result := make(domain.ProjectTables, len(datasets))
	for i, datasetID := range datasets {
		if datasetID == "" {
			continue
		}
		ids := tables[i]
		if ids == nil {
			ids = []string{}
		}
		result[datasetID] = ids
	}
	return domain.Success(result)
}

func (uc *WarehouseToolsUseCase) fetchConcurrency() int {
	if uc.config.TableFetchConcurrency > 0 {
		return uc.config.TableFetchConcurrency
	}
	return domain.DefaultTableFetchWorkers
}

// stringArg returns the string argument key, or "" when absent.
func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// intArg returns the integer argument key. JSON numbers arrive as float64.
func intArg(args map[string]any, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}
