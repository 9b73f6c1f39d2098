package app_test

import (
	"context"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"market_intel/internal/domain"
)

// ---- fakes ----

type fakeSource struct {
	name  string
	mu    sync.Mutex
	sig   string
	body  string
	opens int32
	sigs  int32
}

func (s *fakeSource) Name() string { return s.name }
func (s *fakeSource) Signature(ctx context.Context) (string, error) {
	atomic.AddInt32(&s.sigs, 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sig, nil
}
func (s *fakeSource) Open(ctx context.Context) (io.ReadCloser, error) {
	atomic.AddInt32(&s.opens, 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	return io.NopCloser(strings.NewReader(s.body)), nil
}
func (s *fakeSource) set(sig, body string) {
	s.mu.Lock()
	s.sig, s.body = sig, body
	s.mu.Unlock()
}

type fakeRepo struct {
	recs   []domain.RecognitionRecord
	tiles  []domain.DensityTile
	props  []domain.PropertyRecord
	reads  int
	stored []domain.Snapshot
	run    *domain.RunInfo
}

func (f *fakeRepo) Recognition(ctx context.Context) ([]domain.RecognitionRecord, error) {
	f.reads++
	return f.recs, nil
}
func (f *fakeRepo) Tiles(ctx context.Context) ([]domain.DensityTile, error) {
	f.reads++
	return f.tiles, nil
}
func (f *fakeRepo) Properties(ctx context.Context) ([]domain.PropertyRecord, error) {
	f.reads++
	return f.props, nil
}
func (f *fakeRepo) ReplaceSnapshot(ctx context.Context, s domain.Snapshot) error {
	f.stored = append(f.stored, s)
	f.recs, f.tiles, f.props = s.Recognition, s.Tiles, s.Properties
	f.run = &domain.RunInfo{RunID: s.RunID, CreatedAt: s.CreatedAt, Sources: s.Sources}
	return nil
}
func (f *fakeRepo) LatestRun(ctx context.Context) (domain.RunInfo, error) {
	if f.run == nil {
		return domain.RunInfo{}, domain.ErrNotFound
	}
	return *f.run, nil
}

type fakeCache struct {
	store map[string]any
	dels  []string
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	switch d := dst.(type) {
	case *[]domain.RecognitionRecord:
		*d = v.([]domain.RecognitionRecord)
	case *[]domain.DensityTile:
		*d = v.([]domain.DensityTile)
	case *[]domain.PropertyRecord:
		*d = v.([]domain.PropertyRecord)
	}
	return true, nil
}
func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string]any{}
	}
	c.store[key] = v
	return nil
}
func (c *fakeCache) Del(ctx context.Context, key string) error {
	delete(c.store, key)
	c.dels = append(c.dels, key)
	return nil
}
