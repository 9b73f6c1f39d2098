package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"market_intel/internal/domain"
)

type IngestionService struct {
	live  *LiveSnapshot
	repo  domain.SnapshotRepository
	cache domain.Cache

	last *domain.RunInfo
}

func NewIngestionService(live *LiveSnapshot, r domain.SnapshotRepository, cache domain.Cache) *IngestionService {
	return &IngestionService{live: live, repo: r, cache: cache}
}

// Ingest derives a snapshot from the sources and stores it. Unless force is
// set, nothing is written when the stored run was built from sources with the
// same signatures. stored reports whether a new run was written.
func (s *IngestionService) Ingest(ctx context.Context, force bool) (run domain.RunInfo, stored bool, err error) {
	defer func() {
		switch {
		case err != nil:
			s.live.metrics.IngestRun("failed")
		case stored:
			s.live.metrics.IngestRun("stored")
		default:
			s.live.metrics.IngestRun("skipped")
		}
	}()

	snap, changed, err := s.live.Build(ctx)
	if err != nil {
		return domain.RunInfo{}, false, err
	}

	if !force {
		if !changed && s.last != nil && sameSources(s.last.Sources, snap.Sources) {
			return *s.last, false, nil
		}
		prev, err := s.repo.LatestRun(ctx)
		switch {
		case err == nil && sameSources(prev.Sources, snap.Sources):
			s.last = &prev
			log.Info().Str("run_id", prev.RunID).Msg("sources unchanged since last run, skipping")
			return prev, false, nil
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			return domain.RunInfo{}, false, fmt.Errorf("latest run: %w", err)
		}
	}

	if err := s.repo.ReplaceSnapshot(ctx, snap); err != nil {
		return domain.RunInfo{}, false, fmt.Errorf("replace snapshot %s: %w", snap.RunID, err)
	}

	// The read side caches whole tables; drop them so the new run is served.
	if s.cache != nil {
		s.invalidateSnapshot(ctx)
	}

	run = domain.RunInfo{RunID: snap.RunID, CreatedAt: snap.CreatedAt, Sources: snap.Sources}
	s.last = &run
	log.Info().
		Str("run_id", run.RunID).
		Int("recognition", len(snap.Recognition)).
		Int("tiles", len(snap.Tiles)).
		Int("properties", len(snap.Properties)).
		Msg("snapshot stored")
	return run, true, nil
}

// Watch calls Ingest every interval until ctx is done. Failed runs are logged
// and retried on the next tick.
func (s *IngestionService) Watch(ctx context.Context, every time.Duration) error {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		if _, _, err := s.Ingest(ctx, false); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error().Err(err).Msg("ingest failed")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (s *IngestionService) invalidateSnapshot(ctx context.Context) {
	for _, k := range snapshotKeys {
		if err := s.cache.Del(ctx, k); err != nil {
			log.Warn().Err(err).Str("key", k).Msg("cache eviction failed")
		}
	}
}

func sameSources(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
