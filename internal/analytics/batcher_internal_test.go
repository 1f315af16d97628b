package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinypath/tinypath/internal/docstore"
	"github.com/tinypath/tinypath/internal/metrics"
	"github.com/tinypath/tinypath/internal/shortener"
	"go.uber.org/zap"
)

func TestRecordDropsOnSaturatedQueue(t *testing.T) {
	store := docstore.NewMemoryStore()
	require.NoError(t, store.Create(context.Background(), &shortener.Redirect{Source: "foo"}))

	batcher := NewBatcher(store, time.Hour, 1000, zap.NewNop())
	batcher.SetMetrics(metrics.New())

	// Shrink the queue so saturation is reachable. Record must not block:
	// with the flush loop not yet running, the second event finds the
	// queue full and is counted as a drop.
	batcher.events = make(chan shortener.Source, 1)

	batcher.Record("foo")
	batcher.Record("foo")

	require.NoError(t, batcher.Start(context.Background()))
	require.NoError(t, batcher.Shutdown())

	redirect, ok := store.Get("foo")
	require.True(t, ok)
	assert.Equal(t, int64(1), redirect.Count)
}
