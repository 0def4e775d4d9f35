package bigquery

import (
	"errors"
	"testing"

	"cloud.google.com/go/bigquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/iterator"
)

type fakeRowIterator struct {
	rows  [][]bigquery.Value
	err   error // returned once rows are exhausted instead of iterator.Done
	calls int
}

func (f *fakeRowIterator) Next(dst interface{}) error {
	f.calls++
	if len(f.rows) == 0 {
		if f.err != nil {
			return f.err
		}
		return iterator.Done
	}
	*dst.(*[]bigquery.Value) = f.rows[0]
	f.rows = f.rows[1:]
	return nil
}

func TestCollectRows(t *testing.T) {
	schema := bigquery.Schema{{Name: "n", Type: bigquery.IntegerFieldType}}
	schemaFn := func() bigquery.Schema { return schema }
	threeRows := func() [][]bigquery.Value {
		return [][]bigquery.Value{{int64(1)}, {int64(2)}, {int64(3)}}
	}

	tests := []struct {
		name      string
		rows      [][]bigquery.Value
		max       int
		want      []map[string]any
		wantCalls int
	}{
		{
			name:      "stops at the row cap",
			rows:      threeRows(),
			max:       2,
			want:      []map[string]any{{"n": int64(1)}, {"n": int64(2)}},
			wantCalls: 2,
		},
		{
			name:      "cap above row count reads all",
			rows:      threeRows(),
			max:       10,
			want:      []map[string]any{{"n": int64(1)}, {"n": int64(2)}, {"n": int64(3)}},
			wantCalls: 4,
		},
		{
			name:      "zero cap is unlimited",
			rows:      threeRows(),
			max:       0,
			want:      []map[string]any{{"n": int64(1)}, {"n": int64(2)}, {"n": int64(3)}},
			wantCalls: 4,
		},
		{
			name:      "empty result is an empty slice",
			max:       5,
			want:      []map[string]any{},
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := &fakeRowIterator{rows: tt.rows}

			got, err := collectRows(it, schemaFn, tt.max)

			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantCalls, it.calls)
		})
	}

	t.Run("iteration error is wrapped", func(t *testing.T) {
		backendErr := errors.New("connection reset")
		it := &fakeRowIterator{rows: [][]bigquery.Value{{int64(1)}}, err: backendErr}

		got, err := collectRows(it, schemaFn, 0)

		assert.Nil(t, got)
		assert.ErrorIs(t, err, backendErr)
		assert.EqualError(t, err, "failed to iterate results: connection reset")
	})
}

func TestDryRunStatistics(t *testing.T) {
	t.Run("missing status has no byte count", func(t *testing.T) {
		stats, err := dryRunStatistics(nil)
		require.NoError(t, err)
		require.NotNil(t, stats)
		assert.Nil(t, stats.TotalBytesProcessed)
		assert.Empty(t, stats.QueryPlan)
	})

	t.Run("status statistics are mapped", func(t *testing.T) {
		status := &bigquery.JobStatus{
			State:      bigquery.Done,
			Statistics: &bigquery.JobStatistics{TotalBytesProcessed: 2048},
		}

		stats, err := dryRunStatistics(status)

		require.NoError(t, err)
		require.NotNil(t, stats.TotalBytesProcessed)
		assert.Equal(t, int64(2048), *stats.TotalBytesProcessed)
	})

	t.Run("status without statistics has no byte count", func(t *testing.T) {
		stats, err := dryRunStatistics(&bigquery.JobStatus{State: bigquery.Done})
		require.NoError(t, err)
		assert.Nil(t, stats.TotalBytesProcessed)
	})
}
