package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrEmptyQuery              = errors.New("Empty query is not allowed.")
	ErrWriteOperationRejected  = errors.New("Only read-only queries are allowed.")
	ErrPartitionFilterRequired = errors.New("partition filter required")
)

// forbiddenKeywords lists statements that are rejected by ValidateQuery.
var forbiddenKeywords = []string{"INSERT", "UPDATE", "DELETE", "CREATE", "DROP", "ALTER", "MERGE", "TRUNCATE"}

var writeKeywordPattern = regexp.MustCompile(`(?i)\b(` + strings.Join(forbiddenKeywords, "|") + `)\b`)

// ValidateQuery rejects empty queries and queries containing a write
// keyword as a whole word anywhere in the text.
//
// The keyword check is syntactic. It rejects read queries that mention a
// keyword inside a string literal or identifier (e.g. WHERE op = 'DELETE')
// and lets through writes that are hidden from a plain token scan, such as
// statements assembled with EXECUTE IMMEDIATE.
func ValidateQuery(query string) error {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return ErrEmptyQuery
	}
	if m := writeKeywordPattern.FindString(trimmed); m != "" {
		return fmt.Errorf("%w Found forbidden keyword: %s", ErrWriteOperationRejected, strings.ToUpper(m))
	}
	return nil
}

// BytesPerTebibyte is 2^40.
const BytesPerTebibyte = 1 << 40

// PricePerTebibyte is the on-demand analysis price in USD.
const PricePerTebibyte = 5.0

// EstimateCost returns the on-demand price in USD of scanning bytesProcessed bytes.
func EstimateCost(bytesProcessed int64) float64 {
	return float64(bytesProcessed) / BytesPerTebibyte * PricePerTebibyte
}

// QueryOptions are the per-request settings of a query submission.
type QueryOptions struct {
	Query          string
	MaxBytesBilled int64
	// MaxResults caps the number of rows read back. 0 means no cap.
	MaxResults int
	DryRun     bool
}

// JobStatistics holds the statistics of a dry-run job.
type JobStatistics struct {
	// TotalBytesProcessed is nil when the backend did not report it.
	TotalBytesProcessed *int64
	QueryPlan           []QueryStage
}

// QueryStage is one stage of a query plan as reported by the backend.
type QueryStage struct {
	Name            string  `json:"name"`
	ID              int64   `json:"id"`
	Status          string  `json:"status,omitempty"`
	RecordsRead     int64   `json:"recordsRead"`
	RecordsWritten  int64   `json:"recordsWritten"`
	ShuffleOutBytes int64   `json:"shuffleOutputBytes"`
	ReadRatioAvg    float64 `json:"readRatioAvg"`
}
