package search

import (
	"context"
	"fmt"
)

// Cache memoizes trial records by level for a single search run. It is owned
// by one controller and is not safe for concurrent use.
type Cache struct {
	exec     Executor
	recorder Recorder
	records  map[int]Record
	order    []int
}

func NewCache(exec Executor, recorder Recorder) *Cache {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &Cache{
		exec:     exec,
		recorder: recorder,
		records:  make(map[int]Record),
	}
}

// GetOrMeasure returns the cached record for level, running a trial only on a
// miss. Failed trials are not stored.
func (c *Cache) GetOrMeasure(ctx context.Context, level int) (Record, error) {
	if rec, ok := c.records[level]; ok {
		c.recorder.ObserveCacheHit(level)
		return rec, nil
	}

	rec, err := c.exec.Measure(ctx, level)
	if err != nil {
		return Record{}, fmt.Errorf("trial at level %d: %w", level, err)
	}

	c.records[level] = rec
	c.order = append(c.order, level)
	return rec, nil
}

// Lookup returns a cached record without measuring.
func (c *Cache) Lookup(level int) (Record, bool) {
	rec, ok := c.records[level]
	return rec, ok
}

func (c *Cache) Len() int {
	return len(c.records)
}

// Records returns every cached record in the order it was measured.
func (c *Cache) Records() []Record {
	out := make([]Record, 0, len(c.order))
	for _, level := range c.order {
		out = append(out, c.records[level])
	}
	return out
}
