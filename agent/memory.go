package agent

import (
	"sync"
	"time"
)

// MemoryEntry is an immutable record of one reflexion attempt.
type MemoryEntry struct {
	Task      string    `json:"task"`
	Action    string    `json:"action"`
	Result    string    `json:"result"`
	Score     float64   `json:"score"`
	Timestamp time.Time `json:"timestamp"`
}

// MemorySummary aggregates a memory log.
type MemorySummary struct {
	Total   int     `json:"total"`
	Average float64 `json:"average"`
	Best    float64 `json:"best"`
	Worst   float64 `json:"worst"`
}

// MemoryLog is an append-only, FIFO-ordered record of past attempts.
// Insertion order is the order trend analysis observes.
type MemoryLog struct {
	mu      sync.RWMutex
	entries []MemoryEntry

	// now is the entry timestamp source, injectable for tests.
	now func() time.Time
}

// NewMemoryLog creates an empty memory log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{now: time.Now}
}

// WithClock overrides the timestamp source. Test hook.
func (l *MemoryLog) WithClock(now func() time.Time) *MemoryLog {
	if now != nil {
		l.now = now
	}
	return l
}

// Append records one attempt and returns the stored entry.
func (l *MemoryLog) Append(task, action, result string, score float64) MemoryEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := MemoryEntry{
		Task:      task,
		Action:    action,
		Result:    result,
		Score:     score,
		Timestamp: l.now(),
	}
	l.entries = append(l.entries, e)
	return e
}

// Entries returns a copy of all entries in insertion order.
func (l *MemoryLog) Entries() []MemoryEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]MemoryEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Last returns a copy of the most recent k entries in insertion order.
func (l *MemoryLog) Last(k int) []MemoryEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if k <= 0 || len(l.entries) == 0 {
		return nil
	}
	if k > len(l.entries) {
		k = len(l.entries)
	}
	out := make([]MemoryEntry, k)
	copy(out, l.entries[len(l.entries)-k:])
	return out
}

// Len returns the number of entries.
func (l *MemoryLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Scores returns all scores in insertion order.
func (l *MemoryLog) Scores() []float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]float64, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.Score
	}
	return out
}

// Summary aggregates the log. Empty logs summarize to zeros.
func (l *MemoryLog) Summary() MemorySummary {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s := MemorySummary{Total: len(l.entries)}
	if s.Total == 0 {
		return s
	}
	s.Best = l.entries[0].Score
	s.Worst = l.entries[0].Score
	var sum float64
	for _, e := range l.entries {
		sum += e.Score
		if e.Score > s.Best {
			s.Best = e.Score
		}
		if e.Score < s.Worst {
			s.Worst = e.Score
		}
	}
	s.Average = sum / float64(s.Total)
	return s
}
