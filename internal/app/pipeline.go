package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"market_intel/internal/domain"
)

// PropertyData is the parsed property dataset together with its tiles.
type PropertyData struct {
	Properties []domain.PropertyRecord
	Tiles      []domain.DensityTile
}

// Pipeline binds the parsers and static tables used to turn raw inputs into
// derived tables.
type Pipeline struct {
	Lookups         domain.Lookups
	Unaided         []domain.UnaidedColumn
	ParseProperties func(io.Reader) ([]domain.PropertyRecord, error)
	ParseSurvey     func(io.Reader) (domain.SurveyTable, error)
	Metrics         domain.PipelineMetrics

	// Recheck is how long reads trust a source signature before asking again.
	Recheck time.Duration
}

func (p Pipeline) metrics() domain.PipelineMetrics {
	if p.Metrics == nil {
		return domain.NopMetrics{}
	}
	return p.Metrics
}

func (p Pipeline) LoadProperties(_ context.Context, r io.Reader) (PropertyData, error) {
	props, err := p.ParseProperties(r)
	if err != nil {
		return PropertyData{}, fmt.Errorf("properties: %w", err)
	}
	if len(props) == 0 {
		return PropertyData{}, fmt.Errorf("properties: %w", domain.ErrEmptyDataset)
	}
	tiles, skipped := BucketProperties(props)

	p.metrics().RowsLoaded("properties", len(props))
	p.metrics().SkippedCoordinates(skipped)
	ev := log.Info()
	if skipped > 0 {
		ev = log.Warn()
	}
	ev.Int("properties", len(props)).
		Int("tiles", len(tiles)).
		Int("skipped_coordinates", skipped).
		Msg("properties bucketed")

	return PropertyData{Properties: props, Tiles: tiles}, nil
}

func (p Pipeline) LoadRecognition(_ context.Context, r io.Reader) ([]domain.RecognitionRecord, error) {
	table, err := p.ParseSurvey(r)
	if err != nil {
		return nil, fmt.Errorf("survey: %w", err)
	}
	responses, err := NormalizeSurvey(table, p.Unaided)
	if err != nil {
		return nil, err
	}
	records := AggregateRecognition(responses, p.Lookups)

	markets, brands := UnmappedCodes(records)
	p.metrics().RowsLoaded("survey", len(responses))
	p.metrics().Unmapped("market", len(markets))
	p.metrics().Unmapped("manager", len(brands))
	if len(markets) > 0 || len(brands) > 0 {
		log.Warn().
			Strs("markets", markets).
			Strs("brands", brands).
			Msg("survey codes without display names")
	}
	log.Info().Int("responses", len(responses)).Int("records", len(records)).Msg("recognition aggregated")
	return records, nil
}
