package domain

// ServerConfig holds the settings shared by all tool handlers.
// It is built once at startup and never modified afterwards.
type ServerConfig struct {
	ProjectID string
	Location  string
	// KeyFile is the path of a service account key. Empty means
	// Application Default Credentials.
	KeyFile        string
	MaxResultRows  int
	MaxBytesBilled int64
	// TableFetchConcurrency bounds the per-table metadata fan-out.
	TableFetchConcurrency int
}

const (
	DefaultLocation          = "asia-northeast1"
	DefaultMaxResultRows     = 1000
	DefaultMaxBytesBilled    = int64(500_000_000_000)
	DefaultTableFetchWorkers = 8
)
