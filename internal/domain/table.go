package domain

import (
	"fmt"
)

// IngestionTimeColumn is the pseudo-column of ingestion-time partitioned tables.
const IngestionTimeColumn = "_PARTITIONTIME"

// SampleRowLimit caps the rows returned by a table sample.
const SampleRowLimit = 20

// Column describes one field of a table schema. RECORD columns carry
// their nested fields in Fields.
type Column struct {
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Mode        string    `json:"mode,omitempty"` // NULLABLE, REQUIRED or REPEATED
	Description string    `json:"description,omitempty"`
	Fields      []*Column `json:"fields,omitempty"`
}

// TimePartitioning describes how a table is partitioned by time.
type TimePartitioning struct {
	Type string `json:"type"` // DAY, HOUR, MONTH or YEAR
	// Field is empty for ingestion-time partitioned tables.
	Field string `json:"field,omitempty"`
}

// Column returns the column that partition filters apply to.
func (p *TimePartitioning) Column() string {
	if p.Field == "" {
		return IngestionTimeColumn
	}
	return p.Field
}

// TableDescriptor is the metadata of a warehouse table.
type TableDescriptor struct {
	DatasetID        string            `json:"datasetId"`
	TableID          string            `json:"tableId"`
	Schema           []*Column         `json:"schema"`
	TimePartitioning *TimePartitioning `json:"timePartitioning,omitempty"`
	Description      string            `json:"description,omitempty"`
}

// MissingPartitionError is returned when a sample of a partitioned table
// is requested without a partition value.
type MissingPartitionError struct {
	TableID string
	Column  string
}

func (e *MissingPartitionError) Error() string {
	return fmt.Sprintf("Table %s is partitioned by %s but no partition filter was provided. "+
		"This may result in a large query. Please provide a partition value.", e.TableID, e.Column)
}

func (e *MissingPartitionError) Unwrap() error { return ErrPartitionFilterRequired }

// PartitionFilter returns the WHERE condition selecting one partition.
// For the ingestion-time column an 8 character YYYYMMDD value is
// rewritten to YYYY-MM-DD; any other value is used as is.
func PartitionFilter(column, partition string) string {
	if column == IngestionTimeColumn {
		date := partition
		if len(partition) == 8 {
			date = partition[0:4] + "-" + partition[4:6] + "-" + partition[6:8]
		}
		return fmt.Sprintf("%s = TIMESTAMP('%s')", IngestionTimeColumn, date)
	}
	return fmt.Sprintf("%s = '%s'", column, partition)
}

// SampleQuery builds the statement used to sample up to SampleRowLimit rows
// of a table. Partitioned tables require a partition value; for tables
// without partitioning the value is ignored.
//
// Identifiers and the partition value are interpolated into the statement
// without escaping or parameters. Callers that accept untrusted input get
// no protection against injection here.
func SampleQuery(projectID, datasetID, tableID string, partitioning *TimePartitioning, partition string) (string, error) {
	query := fmt.Sprintf("SELECT * FROM `%s.%s.%s`", projectID, datasetID, tableID)
	if partitioning != nil {
		column := partitioning.Column()
		if partition == "" {
			return "", &MissingPartitionError{TableID: tableID, Column: column}
		}
		query += " WHERE " + PartitionFilter(column, partition)
	}
	return query + fmt.Sprintf(" LIMIT %d", SampleRowLimit), nil
}
