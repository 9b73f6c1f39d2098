package domain

import (
	"context"
	"io"
	"time"
)

// Snapshot is the derived output of one ingest run.
type Snapshot struct {
	RunID       string
	CreatedAt   time.Time
	Sources     map[string]string // source name -> signature
	Recognition []RecognitionRecord
	Tiles       []DensityTile
	Properties  []PropertyRecord
}

type RunInfo struct {
	RunID     string            `json:"run_id"`
	CreatedAt time.Time         `json:"created_at"`
	Sources   map[string]string `json:"sources"`
}

type SnapshotReader interface {
	Recognition(ctx context.Context) ([]RecognitionRecord, error)
	Tiles(ctx context.Context) ([]DensityTile, error)
	Properties(ctx context.Context) ([]PropertyRecord, error)
}

type SnapshotRepository interface {
	SnapshotReader

	// ReplaceSnapshot swaps every derived table for the snapshot's content.
	ReplaceSnapshot(ctx context.Context, s Snapshot) error
	LatestRun(ctx context.Context) (RunInfo, error)
}

// Source is a readable input dataset. Signature changes whenever the
// underlying content may have changed (path+mtime, URL+ETag, ...).
type Source interface {
	Name() string
	Signature(ctx context.Context) (string, error)
	Open(ctx context.Context) (io.ReadCloser, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// PipelineMetrics receives ingest and memo events.
type PipelineMetrics interface {
	MemoEvent(source, event string) // event: hit|miss
	RowsLoaded(source string, n int)
	Unmapped(kind string, n int) // kind: market|manager
	SkippedCoordinates(n int)
	IngestRun(result string) // result: stored|skipped|failed
}

type NopMetrics struct{}

func (NopMetrics) MemoEvent(string, string) {}
func (NopMetrics) RowsLoaded(string, int)   {}
func (NopMetrics) Unmapped(string, int)     {}
func (NopMetrics) SkippedCoordinates(int)   {}
func (NopMetrics) IngestRun(string)         {}
