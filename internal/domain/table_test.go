package domain_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i2y/bqmcp/internal/domain"
)

func TestPartitionFilter(t *testing.T) {
	tests := []struct {
		column    string
		partition string
		want      string
	}{
		{column: "_PARTITIONTIME", partition: "20250101", want: "_PARTITIONTIME = TIMESTAMP('2025-01-01')"},
		{column: "_PARTITIONTIME", partition: "2025-01-01", want: "_PARTITIONTIME = TIMESTAMP('2025-01-01')"},
		{column: "created", partition: "20250101", want: "created = '20250101'"},
		{column: "created", partition: "2025-01-01", want: "created = '2025-01-01'"},
	}
	for _, tt := range tests {
		t.Run(tt.column+"/"+tt.partition, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.PartitionFilter(tt.column, tt.partition))
		})
	}
}

func TestTimePartitioning_Column(t *testing.T) {
	assert.Equal(t, "_PARTITIONTIME", (&domain.TimePartitioning{Type: "DAY"}).Column())
	assert.Equal(t, "event_date", (&domain.TimePartitioning{Type: "DAY", Field: "event_date"}).Column())
}

func TestSampleQuery(t *testing.T) {
	t.Run("unpartitioned", func(t *testing.T) {
		q, err := domain.SampleQuery("p", "d", "t", nil, "")
		require.NoError(t, err)
		assert.Equal(t, "SELECT * FROM `p.d.t` LIMIT 20", q)
	})

	t.Run("partition value ignored without partitioning", func(t *testing.T) {
		q, err := domain.SampleQuery("p", "d", "t", nil, "20250101")
		require.NoError(t, err)
		assert.Equal(t, "SELECT * FROM `p.d.t` LIMIT 20", q)
	})

	t.Run("ingestion time partitioned", func(t *testing.T) {
		q, err := domain.SampleQuery("p", "d", "t", &domain.TimePartitioning{Type: "DAY"}, "20250101")
		require.NoError(t, err)
		assert.Equal(t, "SELECT * FROM `p.d.t` WHERE _PARTITIONTIME = TIMESTAMP('2025-01-01') LIMIT 20", q)
	})

	t.Run("missing partition", func(t *testing.T) {
		q, err := domain.SampleQuery("p", "d", "events", &domain.TimePartitioning{Type: "DAY"}, "")
		assert.Empty(t, q)
		assert.True(t, errors.Is(err, domain.ErrPartitionFilterRequired))

		var missing *domain.MissingPartitionError
		require.True(t, errors.As(err, &missing))
		assert.Equal(t, "events", missing.TableID)
		assert.Equal(t, "_PARTITIONTIME", missing.Column)
		assert.Equal(t, "Table events is partitioned by _PARTITIONTIME but no partition filter was provided. "+
			"This may result in a large query. Please provide a partition value.", err.Error())
	})
}
