package domain

// The types below are the success payloads of the individual tools.
// Each tool produces exactly one of them, wrapped by Success.

// QueryRows is the payload of run_query: the result rows as a bare array.
type QueryRows []map[string]any

// DatasetList is the payload of list_datasets.
type DatasetList []string

// TableEntry is one table of a listing. Either the metadata fields or
// Error is set.
type TableEntry struct {
	TableID          string            `json:"tableId"`
	Schema           []*Column         `json:"schema,omitempty"`
	TimePartitioning *TimePartitioning `json:"timePartitioning,omitempty"`
	Description      string            `json:"description,omitempty"`
	Error            string            `json:"error,omitempty"`
}

// TableListing is the payload of list_tables_in_dataset.
type TableListing struct {
	DatasetID string       `json:"datasetId"`
	Tables    []TableEntry `json:"tables"`
}

// TableInfo is the payload of get_table_info.
type TableInfo struct {
	Schema           []*Column         `json:"schema"`
	TimePartitioning *TimePartitioning `json:"timePartitioning,omitempty"`
	Description      string            `json:"description,omitempty"`
	SampleData       []map[string]any  `json:"sampleData"`
}

// DryRunEstimate is the payload of dry_run_estimate.
type DryRunEstimate struct {
	Status                string       `json:"status"`
	TotalBytesProcessed   int64        `json:"totalBytesProcessed"`
	TotalBytesProcessedGB string       `json:"totalBytesProcessedGb"`
	TotalBytesHuman       string       `json:"totalBytesHuman"`
	EstimatedCost         string       `json:"estimatedCost"`
	QueryPlan             []QueryStage `json:"queryPlan,omitempty"`
}

// ProjectTables is the payload of list_all_tables: table ids keyed by dataset id.
type ProjectTables map[string][]string
