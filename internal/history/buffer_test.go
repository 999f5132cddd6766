package history_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dicklesworthstone/devdiag/internal/history"
	"github.com/Dicklesworthstone/devdiag/internal/model"
)

func entry(i int) model.HistoryEntry {
	return model.NewHistoryEntry(time.Unix(int64(1700000000+i), 0), i, 100-i)
}

func TestBuffer_Empty(t *testing.T) {
	b := history.New(history.DefaultCapacity)
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, 20, b.Cap())
	assert.Empty(t, b.Snapshot())
	assert.NotNil(t, b.Snapshot())
}

func TestBuffer_NonPositiveCapacity(t *testing.T) {
	assert.Equal(t, history.DefaultCapacity, history.New(0).Cap())
	assert.Equal(t, history.DefaultCapacity, history.New(-3).Cap())
}

func TestBuffer_PreservesInsertionOrder(t *testing.T) {
	b := history.New(history.DefaultCapacity)
	for i := 1; i <= 5; i++ {
		b.Append(entry(i))
	}
	got := b.Snapshot()
	require.Len(t, got, 5)
	for i, e := range got {
		assert.Equal(t, i+1, e.CPUPercent)
	}
}

func TestBuffer_EvictsOldestAfterCapacity(t *testing.T) {
	b := history.New(history.DefaultCapacity)
	for i := 1; i <= 21; i++ {
		b.Append(entry(i))
	}

	got := b.Snapshot()
	require.Len(t, got, 20)
	for _, e := range got {
		assert.NotEqual(t, 1, e.CPUPercent, "first entry should have been evicted")
	}
	for i, e := range got {
		assert.Equal(t, i+2, e.CPUPercent)
	}
}

func TestBuffer_NeverExceedsCapacity(t *testing.T) {
	b := history.New(3)
	for i := 1; i <= 100; i++ {
		b.Append(entry(i))
		assert.LessOrEqual(t, b.Len(), 3)
	}
	got := b.Snapshot()
	require.Len(t, got, 3)
	assert.Equal(t, []int{98, 99, 100}, []int{got[0].CPUPercent, got[1].CPUPercent, got[2].CPUPercent})
}

func TestBuffer_SnapshotIsCopy(t *testing.T) {
	b := history.New(4)
	b.Append(entry(1))
	snap := b.Snapshot()
	snap[0].CPUPercent = 999

	assert.Equal(t, 1, b.Snapshot()[0].CPUPercent)
}
