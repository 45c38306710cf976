package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(start time.Time, step time.Duration) func() time.Time {
	t := start
	return func() time.Time {
		out := t
		t = t.Add(step)
		return out
	}
}

func TestMemoryLogAppendAndOrder(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	log := NewMemoryLog().WithClock(fixedClock(start, time.Second))

	first := log.Append("task-1", "execute", "ok", 0.4)
	log.Append("task-1", "execute", "better", 0.7)
	log.Append("task-1", "execute", "failed", 0)

	assert.Equal(t, 3, log.Len())
	assert.Equal(t, start, first.Timestamp)

	entries := log.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "ok", entries[0].Result)
	assert.Equal(t, "failed", entries[2].Result)
	assert.Equal(t, []float64{0.4, 0.7, 0}, log.Scores())

	// Entries returns a copy; mutating it must not touch the log.
	entries[0].Result = "mutated"
	assert.Equal(t, "ok", log.Entries()[0].Result)
}

func TestMemoryLogLast(t *testing.T) {
	log := NewMemoryLog()
	assert.Nil(t, log.Last(3))

	for i := 0; i < 5; i++ {
		log.Append("t", "execute", "r", float64(i)/10)
	}

	last2 := log.Last(2)
	require.Len(t, last2, 2)
	assert.InDelta(t, 0.3, last2[0].Score, 1e-9)
	assert.InDelta(t, 0.4, last2[1].Score, 1e-9)

	assert.Len(t, log.Last(10), 5)
	assert.Nil(t, log.Last(0))
	assert.Nil(t, log.Last(-1))
}

func TestMemoryLogSummary(t *testing.T) {
	log := NewMemoryLog()
	assert.Equal(t, MemorySummary{}, log.Summary())

	log.Append("t", "execute", "r", 0.2)
	log.Append("t", "execute", "r", 0.8)
	log.Append("t", "execute", "r", 0.5)

	s := log.Summary()
	assert.Equal(t, 3, s.Total)
	assert.InDelta(t, 0.5, s.Average, 1e-9)
	assert.InDelta(t, 0.8, s.Best, 1e-9)
	assert.InDelta(t, 0.2, s.Worst, 1e-9)
}
