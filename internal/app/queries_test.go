package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"market_intel/internal/app"
	"market_intel/internal/domain"
)

// ---- tests ----

func TestRecognition_CacheMissThenHit(t *testing.T) {
	repo := &fakeRepo{recs: []domain.RecognitionRecord{
		{MarketCode: "Atlanta", BrandKey: "cortland", Market: ptr("Atlanta, GA"), Manager: ptr("Cortland"),
			AidedRecognition: ptr(0.42), SampleCount: ptr(50)},
	}}
	cache := &fakeCache{}
	q := app.NewQueryService(repo, cache, 10*time.Minute, app.QueryOptions{})

	// Miss (first time, populates cache)
	st, err := q.Recognition(context.Background(), "Atlanta, GA", "Cortland")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if st.AidedRecognition == nil || *st.AidedRecognition != 0.42 || st.SampleCount != 50 {
		t.Fatalf("unexpected stats: %+v", st)
	}

	// Replace the repo table to ensure the second read comes from cache
	repo.recs = nil

	st2, err := q.Recognition(context.Background(), "Atlanta, GA", "Cortland")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if *st2.AidedRecognition != 0.42 {
		t.Fatalf("expected cached record, got %+v", st2)
	}
	if repo.reads != 1 {
		t.Fatalf("expected 1 repo read, got %d", repo.reads)
	}
}

func TestRecognition_NoDataIsNotZero(t *testing.T) {
	q := app.NewQueryService(&fakeRepo{}, &fakeCache{}, time.Minute, app.QueryOptions{})
	st, err := q.Recognition(context.Background(), "Austin, TX", "Greystar")
	if !errors.Is(err, domain.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v (%+v)", err, st)
	}
	if _, err := q.MarketRecognition(context.Background(), "Austin, TX"); !errors.Is(err, domain.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestHotspots_UsesConfiguredCount(t *testing.T) {
	var tiles []domain.DensityTile
	for i := 0; i < 6; i++ {
		tiles = append(tiles, domain.DensityTile{Market: "Dallas, TX", Lat: 32.7 + float64(i)/100, Lon: -96.8, TotalUnits: i * 10})
	}
	q := app.NewQueryService(&fakeRepo{tiles: tiles}, nil, time.Minute, app.QueryOptions{HotspotCount: 2})

	hs, err := q.Hotspots(context.Background(), "Dallas, TX", 0)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(hs) != 2 || hs[0].TotalUnits != 50 || hs[1].Rank != 2 {
		t.Fatalf("unexpected hotspots: %+v", hs)
	}

	hs, _ = q.Hotspots(context.Background(), "Dallas, TX", 4)
	if len(hs) != 4 {
		t.Fatalf("explicit n: got %d", len(hs))
	}
}

func TestPropertyQueries(t *testing.T) {
	q := app.NewQueryService(&fakeRepo{props: portfolio()}, &fakeCache{}, time.Minute,
		app.QueryOptions{MinMarketProperties: 50, MinManagerProperties: 5})
	ctx := context.Background()

	markets, err := q.Markets(ctx)
	if err != nil || len(markets) != 2 || markets[1] != "Atlanta, GA" {
		t.Fatalf("markets: %v %v", markets, err)
	}
	subs, _ := q.Submarkets(ctx, "Austin, TX")
	if len(subs) != 2 || subs[1] != "Downtown" {
		t.Fatalf("submarkets: %v", subs)
	}
	mgrs, _ := q.Managers(ctx, domain.PropertyFilter{Market: "Atlanta, GA", Manager: "Bell"})
	if len(mgrs) != 3 {
		t.Fatalf("managers: %v", mgrs)
	}

	pv, _ := q.PropertySummary(ctx, domain.PropertyFilter{Market: "Atlanta, GA", Manager: "Cortland"})
	if pv.Summary.TotalAssets != 30 || pv.Summary.BrandedAssets != 30 || pv.View.Zoom != 11 {
		t.Fatalf("summary: %+v", pv)
	}

	hm, _ := q.Heatmap(ctx, domain.PropertyFilter{Market: "Atlanta, GA"})
	if len(hm.Branded) != 30 || len(hm.Unbranded) != 25 {
		t.Fatalf("heatmap: %d/%d", len(hm.Branded), len(hm.Unbranded))
	}
}
