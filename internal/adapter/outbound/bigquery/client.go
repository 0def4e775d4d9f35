package bigquery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/i2y/bqmcp/internal/domain"
	"github.com/i2y/bqmcp/internal/usecase"
)

// Client implements usecase.Warehouse on top of the BigQuery client library.
type Client struct {
	client    *bigquery.Client
	projectID string
	logger    *slog.Logger
}

var _ usecase.Warehouse = (*Client)(nil)

// NewClient creates a BigQuery client for the configured project and
// location. A key file is used when configured; otherwise Application
// Default Credentials apply. No request is sent until the first call.
func NewClient(ctx context.Context, cfg domain.ServerConfig, logger *slog.Logger) (*Client, error) {
	var opts []option.ClientOption
	if cfg.KeyFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.KeyFile)) //nolint:staticcheck // key file path comes from the operator
	}

	client, err := bigquery.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create BigQuery client: %w", err)
	}
	if cfg.Location != "" {
		client.Location = cfg.Location
	}

	return &Client{
		client:    client,
		projectID: cfg.ProjectID,
		logger:    logger.With("component", "bigquery_client"),
	}, nil
}

// RunQuery runs the query and reads up to opts.MaxResults rows.
func (c *Client) RunQuery(ctx context.Context, opts domain.QueryOptions) ([]map[string]any, error) {
	q := c.newQuery(opts)
	q.DryRun = opts.DryRun

	job, err := q.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run query: %w", err)
	}
	c.logger.Debug("Query job submitted", slog.String("job_id", job.ID()), slog.String("location", job.Location()))

	status, err := job.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to wait for job %s: %w", job.ID(), err)
	}
	if err := status.Err(); err != nil {
		return nil, fmt.Errorf("job %s failed: %w", job.ID(), err)
	}

	it, err := job.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read query results: %w", err)
	}
	if opts.MaxResults > 0 {
		it.PageInfo().MaxSize = opts.MaxResults
	}

	return collectRows(it, func() bigquery.Schema { return it.Schema }, opts.MaxResults)
}

// valueIterator is the part of *bigquery.RowIterator read by collectRows.
type valueIterator interface {
	Next(dst interface{}) error
}

// collectRows reads rows until the iterator is done or max rows were read.
// max <= 0 reads every row. The schema is looked up after each row since the
// iterator only knows it once the first page arrived.
func collectRows(it valueIterator, schema func() bigquery.Schema, max int) ([]map[string]any, error) {
	rows := make([]map[string]any, 0)
	for max <= 0 || len(rows) < max {
		var values []bigquery.Value
		err := it.Next(&values)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate results: %w", err)
		}
		rows = append(rows, rowToMap(schema(), values))
	}
	return rows, nil
}

// DryRunQuery submits the query as a dry run and returns its statistics.
func (c *Client) DryRunQuery(ctx context.Context, opts domain.QueryOptions) (*domain.JobStatistics, error) {
	q := c.newQuery(opts)
	q.DryRun = true

	job, err := q.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to dry run query: %w", err)
	}

	// Statistics of a dry run are available directly on the returned job.
	return dryRunStatistics(job.LastStatus())
}

// dryRunStatistics maps the status of a dry run job. A missing status yields
// statistics without a byte count.
func dryRunStatistics(status *bigquery.JobStatus) (*domain.JobStatistics, error) {
	if status == nil {
		return &domain.JobStatistics{}, nil
	}
	if err := status.Err(); err != nil {
		return nil, err
	}
	return toJobStatistics(status.Statistics), nil
}

// ListDatasets lists dataset ids of the project. max <= 0 lists all.
func (c *Client) ListDatasets(ctx context.Context, max int) ([]string, error) {
	it := c.client.Datasets(ctx)
	if max > 0 {
		it.PageInfo().MaxSize = max
	}

	var ids []string
	for max <= 0 || len(ids) < max {
		ds, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list datasets: %w", err)
		}
		ids = append(ids, ds.DatasetID)
	}
	return ids, nil
}

// DatasetExists reads the dataset metadata as an existence check.
func (c *Client) DatasetExists(ctx context.Context, datasetID string) error {
	if _, err := c.client.Dataset(datasetID).Metadata(ctx); err != nil {
		return fmt.Errorf("failed to get dataset %s: %w", datasetID, err)
	}
	return nil
}

// ListTables lists the table ids of a dataset.
func (c *Client) ListTables(ctx context.Context, datasetID string) ([]string, error) {
	it := c.client.Dataset(datasetID).Tables(ctx)

	var ids []string
	for {
		t, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list tables of dataset %s: %w", datasetID, err)
		}
		ids = append(ids, t.TableID)
	}
	return ids, nil
}

// TableMetadata returns schema, partitioning and description of a table.
func (c *Client) TableMetadata(ctx context.Context, datasetID, tableID string) (*domain.TableDescriptor, error) {
	meta, err := c.client.Dataset(datasetID).Table(tableID).Metadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get table metadata of %s.%s: %w", datasetID, tableID, err)
	}
	return toTableDescriptor(datasetID, tableID, meta), nil
}

// Close releases the underlying client.
func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) newQuery(opts domain.QueryOptions) *bigquery.Query {
	q := c.client.Query(opts.Query)
	q.MaxBytesBilled = opts.MaxBytesBilled
	return q
}
