package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"market_intel/internal/domain"
)

const (
	keyRecognition = "snapshot:recognition"
	keyTiles       = "snapshot:tiles"
	keyProperties  = "snapshot:properties"
)

var snapshotKeys = []string{keyRecognition, keyTiles, keyProperties}

type QueryOptions struct {
	Weighting            domain.Weighting
	HotspotCount         int
	MinMarketProperties  int
	MinManagerProperties int
}

type QueryService struct {
	repo     domain.SnapshotReader
	cache    domain.Cache
	cacheTTL time.Duration
	opts     QueryOptions
}

func NewQueryService(r domain.SnapshotReader, c domain.Cache, ttl time.Duration, opts QueryOptions) *QueryService {
	if opts.Weighting == "" {
		opts.Weighting = domain.WeightBySide
	}
	if opts.HotspotCount <= 0 {
		opts.HotspotCount = DefaultHotspots
	}
	if opts.MinMarketProperties <= 0 {
		opts.MinMarketProperties = DefaultMinMarketProperties
	}
	if opts.MinManagerProperties <= 0 {
		opts.MinManagerProperties = DefaultMinManagerProperties
	}
	return &QueryService{repo: r, cache: c, cacheTTL: ttl, opts: opts}
}

// cached reads key from the cache, falling back to load and storing its result.
func cached[T any](ctx context.Context, s *QueryService, key string, load func(context.Context) (T, error)) (T, error) {
	var out T
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &out); ok {
			return out, nil
		}
	}
	v, err := load(ctx)
	if err != nil {
		return out, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, v, int(s.cacheTTL.Seconds())); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("cache set failed")
		}
	}
	return v, nil
}

func (s *QueryService) recognition(ctx context.Context) ([]domain.RecognitionRecord, error) {
	return cached(ctx, s, keyRecognition, s.repo.Recognition)
}

func (s *QueryService) tiles(ctx context.Context) ([]domain.DensityTile, error) {
	return cached(ctx, s, keyTiles, s.repo.Tiles)
}

func (s *QueryService) properties(ctx context.Context) ([]domain.PropertyRecord, error) {
	return cached(ctx, s, keyProperties, s.repo.Properties)
}

func (s *QueryService) Recognition(ctx context.Context, market, manager string) (domain.RecognitionStats, error) {
	recs, err := s.recognition(ctx)
	if err != nil {
		return domain.RecognitionStats{}, err
	}
	return QueryRecognition(recs, market, manager, s.opts.Weighting)
}

func (s *QueryService) MarketRecognition(ctx context.Context, market string) ([]domain.RecognitionRecord, error) {
	recs, err := s.recognition(ctx)
	if err != nil {
		return nil, err
	}
	out := RecognitionForMarket(recs, market)
	if len(out) == 0 {
		return nil, domain.ErrNoData
	}
	return out, nil
}

// Hotspots ranks the stored tiles; n <= 0 uses the configured count.
func (s *QueryService) Hotspots(ctx context.Context, market string, n int) ([]domain.Hotspot, error) {
	tiles, err := s.tiles(ctx)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		n = s.opts.HotspotCount
	}
	return HotspotsFor(TopHotspots(tiles, n), market), nil
}

func (s *QueryService) Markets(ctx context.Context) ([]string, error) {
	props, err := s.properties(ctx)
	if err != nil {
		return nil, err
	}
	return EligibleMarkets(props, s.opts.MinMarketProperties), nil
}

func (s *QueryService) Submarkets(ctx context.Context, market string) ([]string, error) {
	props, err := s.properties(ctx)
	if err != nil {
		return nil, err
	}
	return Submarkets(FilterProperties(props, domain.PropertyFilter{Market: market})), nil
}

// Managers lists the eligible managers after the market and submarket
// selectors are applied; f.Manager is ignored.
func (s *QueryService) Managers(ctx context.Context, f domain.PropertyFilter) ([]string, error) {
	props, err := s.properties(ctx)
	if err != nil {
		return nil, err
	}
	f.Manager = ""
	return EligibleManagers(FilterProperties(props, f), s.opts.MinManagerProperties), nil
}

type PropertyView struct {
	Summary domain.AssetSummary `json:"summary"`
	View    domain.MapView      `json:"view"`
}

func (s *QueryService) PropertySummary(ctx context.Context, f domain.PropertyFilter) (PropertyView, error) {
	props, err := s.properties(ctx)
	if err != nil {
		return PropertyView{}, err
	}
	sel := FilterProperties(props, f)
	return PropertyView{Summary: Summarize(sel), View: MapViewFor(sel, f.Market)}, nil
}

type Heatmap struct {
	Branded   []domain.HeatPoint `json:"branded"`
	Unbranded []domain.HeatPoint `json:"unbranded"`
}

func (s *QueryService) Heatmap(ctx context.Context, f domain.PropertyFilter) (Heatmap, error) {
	props, err := s.properties(ctx)
	if err != nil {
		return Heatmap{}, err
	}
	b, u := HeatPoints(FilterProperties(props, f))
	return Heatmap{Branded: b, Unbranded: u}, nil
}

func (s *QueryService) PropertyMarkers(ctx context.Context, f domain.PropertyFilter) ([]domain.PropertyMarker, error) {
	props, err := s.properties(ctx)
	if err != nil {
		return nil, err
	}
	return Markers(FilterProperties(props, f)), nil
}
