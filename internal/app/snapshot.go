package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"market_intel/internal/domain"
)

// LiveSnapshot derives the snapshot tables straight from the sources,
// recomputing only when a source signature changes.
type LiveSnapshot struct {
	props    *Memo[PropertyData]
	survey   *Memo[[]domain.RecognitionRecord]
	propsSrc string
	survSrc  string
	metrics  domain.PipelineMetrics
}

func NewLiveSnapshot(p Pipeline, properties, survey domain.Source) *LiveSnapshot {
	return &LiveSnapshot{
		props:    NewMemo(properties, p.LoadProperties, p.Metrics).WithRecheck(p.Recheck),
		survey:   NewMemo(survey, p.LoadRecognition, p.Metrics).WithRecheck(p.Recheck),
		propsSrc: properties.Name(),
		survSrc:  survey.Name(),
		metrics:  p.metrics(),
	}
}

func (s *LiveSnapshot) Recognition(ctx context.Context) ([]domain.RecognitionRecord, error) {
	recs, _, _, err := s.survey.Get(ctx)
	return recs, err
}

func (s *LiveSnapshot) Tiles(ctx context.Context) ([]domain.DensityTile, error) {
	d, _, _, err := s.props.Get(ctx)
	return d.Tiles, err
}

func (s *LiveSnapshot) Properties(ctx context.Context) ([]domain.PropertyRecord, error) {
	d, _, _, err := s.props.Get(ctx)
	return d.Properties, err
}

// Build loads both sources concurrently and assembles a snapshot. changed is
// false when neither source had to be reloaded. Signatures are always checked.
func (s *LiveSnapshot) Build(ctx context.Context) (snap domain.Snapshot, changed bool, err error) {
	var (
		pd             PropertyData
		recs           []domain.RecognitionRecord
		pSig, sSig     string
		pFresh, sFresh bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		pd, pSig, pFresh, err = s.props.Check(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		recs, sSig, sFresh, err = s.survey.Check(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Snapshot{}, false, err
	}

	return domain.Snapshot{
		RunID:       uuid.NewString(),
		CreatedAt:   time.Now().UTC(),
		Sources:     map[string]string{s.propsSrc: pSig, s.survSrc: sSig},
		Recognition: recs,
		Tiles:       pd.Tiles,
		Properties:  pd.Properties,
	}, pFresh || sFresh, nil
}
