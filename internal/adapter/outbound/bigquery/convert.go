package bigquery

import (
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/i2y/bqmcp/internal/domain"
)

// rowToMap converts a row read as []bigquery.Value into a map keyed by
// column name.
func rowToMap(schema bigquery.Schema, values []bigquery.Value) map[string]any {
	row := make(map[string]any, len(values))
	for i, v := range values {
		if i >= len(schema) {
			row[fmt.Sprintf("f%d_", i)] = convertBigQueryValue(nil, v)
			continue
		}
		row[schema[i].Name] = convertBigQueryValue(schema[i], v)
	}
	return row
}

// convertBigQueryValue turns a cell into a JSON friendly value. RECORD
// cells arrive as positional slices and are keyed using the field's
// nested schema.
func convertBigQueryValue(field *bigquery.FieldSchema, value bigquery.Value) any {
	if value == nil {
		return nil
	}

	switch v := value.(type) {
	case string, int, int64, float64, bool, []byte:
		return v
	case []bigquery.Value:
		if field != nil && field.Type == bigquery.RecordFieldType {
			if field.Repeated {
				result := make([]any, len(v))
				for i, item := range v {
					record, _ := item.([]bigquery.Value)
					result[i] = rowToMap(field.Schema, record)
				}
				return result
			}
			return rowToMap(field.Schema, v)
		}
		// Repeated scalar column
		result := make([]any, len(v))
		for i, item := range v {
			result[i] = convertBigQueryValue(nil, item)
		}
		return result
	case map[string]bigquery.Value:
		result := make(map[string]any, len(v))
		for key, item := range v {
			result[key] = convertBigQueryValue(nil, item)
		}
		return result
	case *big.Rat:
		if field != nil && field.Type == bigquery.BigNumericFieldType {
			return bigquery.BigNumericString(v)
		}
		return bigquery.NumericString(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	default:
		// DATE, TIME and DATETIME values print in their canonical form
		return fmt.Sprintf("%v", v)
	}
}

func toColumns(schema bigquery.Schema) []*domain.Column {
	columns := make([]*domain.Column, 0, len(schema))
	for _, f := range schema {
		col := &domain.Column{
			Name:        f.Name,
			Type:        string(f.Type),
			Mode:        fieldMode(f),
			Description: f.Description,
		}
		if len(f.Schema) > 0 {
			col.Fields = toColumns(f.Schema)
		}
		columns = append(columns, col)
	}
	return columns
}

func fieldMode(f *bigquery.FieldSchema) string {
	switch {
	case f.Repeated:
		return "REPEATED"
	case f.Required:
		return "REQUIRED"
	default:
		return "NULLABLE"
	}
}

func toTableDescriptor(datasetID, tableID string, meta *bigquery.TableMetadata) *domain.TableDescriptor {
	desc := &domain.TableDescriptor{
		DatasetID:   datasetID,
		TableID:     tableID,
		Schema:      toColumns(meta.Schema),
		Description: meta.Description,
	}
	if tp := meta.TimePartitioning; tp != nil {
		typ := string(tp.Type)
		if typ == "" {
			typ = string(bigquery.DayPartitioningType)
		}
		desc.TimePartitioning = &domain.TimePartitioning{Type: typ, Field: tp.Field}
	}
	return desc
}

func toJobStatistics(stats *bigquery.JobStatistics) *domain.JobStatistics {
	if stats == nil {
		return &domain.JobStatistics{}
	}
	// Dry runs always report the bytes that would be processed, even 0.
	bytes := stats.TotalBytesProcessed
	result := &domain.JobStatistics{TotalBytesProcessed: &bytes}

	if qs, ok := stats.Details.(*bigquery.QueryStatistics); ok && qs != nil {
		for _, stage := range qs.QueryPlan {
			if stage == nil {
				continue
			}
			result.QueryPlan = append(result.QueryPlan, domain.QueryStage{
				Name:            stage.Name,
				ID:              stage.ID,
				Status:          stage.Status,
				RecordsRead:     stage.RecordsRead,
				RecordsWritten:  stage.RecordsWritten,
				ShuffleOutBytes: stage.ShuffleOutputBytes,
				ReadRatioAvg:    stage.ReadRatioAvg,
			})
		}
	}
	return result
}
