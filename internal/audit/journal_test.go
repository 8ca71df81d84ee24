package audit

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingSink struct {
	mu      sync.Mutex
	batches [][]Event
}

func (c *countingSink) WriteBatch(_ context.Context, events []Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, append([]Event(nil), events...))
	return nil
}

func (c *countingSink) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, b := range c.batches {
		n += len(b)
	}
	return n
}

func TestJournalFlushesOnStop(t *testing.T) {
	sink := &countingSink{}
	j := NewJournal(sink, JournalOptions{BatchSize: 100, FlushInterval: time.Hour}, zap.NewNop())
	j.Start()

	for i := 0; i < 42; i++ {
		j.Log(Event{ID: fmt.Sprint(i), Entity: "bots", Action: ActionCreate})
	}
	j.Stop()

	assert.Equal(t, 42, sink.total())
}

func TestJournalBatchesBySize(t *testing.T) {
	sink := &countingSink{}
	j := NewJournal(sink, JournalOptions{BatchSize: 10, FlushInterval: time.Hour}, zap.NewNop())
	j.Start()

	for i := 0; i < 25; i++ {
		j.Log(Event{ID: fmt.Sprint(i)})
	}
	j.Stop()

	require.Len(t, sink.batches, 3)
	assert.Len(t, sink.batches[0], 10)
	assert.Len(t, sink.batches[1], 10)
	assert.Len(t, sink.batches[2], 5)
}

func TestJournalDropsAfterStop(t *testing.T) {
	sink := &countingSink{}
	j := NewJournal(sink, JournalOptions{}, zap.NewNop())
	j.Start()
	j.Stop()
	j.Stop()

	j.Log(Event{ID: "late"})
	assert.Equal(t, 0, sink.total())
}

func TestJournalStampsTimestamp(t *testing.T) {
	sink := NewMemorySink(10)
	j := NewJournal(sink, JournalOptions{}, zap.NewNop())
	j.Start()
	j.Log(Event{ID: "1"})
	j.Stop()

	logs, err := sink.FetchLogs(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.False(t, logs[0].Timestamp.IsZero())
}

func TestMemorySinkFilters(t *testing.T) {
	ctx := context.Background()
	sink := NewMemorySink(3)
	require.NoError(t, sink.WriteBatch(ctx, []Event{
		{ID: "1", Entity: "bots", Action: ActionCreate},
		{ID: "2", Entity: "agents", Action: ActionCreate},
		{ID: "3", Entity: "bots", Action: ActionDelete},
		{ID: "4", Entity: "bots", Action: ActionCreate},
	}))

	all, err := sink.FetchLogs(ctx, Filter{})
	require.NoError(t, err)
	// Ring на 3 события, порядок от новых к старым
	require.Len(t, all, 3)
	assert.Equal(t, "4", all[0].ID)
	assert.Equal(t, "2", all[2].ID)

	bots, _ := sink.FetchLogs(ctx, Filter{Entity: "bots"})
	assert.Len(t, bots, 2)

	created, _ := sink.FetchLogs(ctx, Filter{Entity: "bots", Action: ActionCreate})
	require.Len(t, created, 1)
	assert.Equal(t, "4", created[0].ID)

	limited, _ := sink.FetchLogs(ctx, Filter{Limit: 1})
	assert.Len(t, limited, 1)
}
