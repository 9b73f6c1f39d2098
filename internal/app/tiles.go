package app

import (
	"math"
	"sort"

	"market_intel/internal/domain"
)

const (
	// DefaultHotspots is how many tiles per market count as hotspots.
	DefaultHotspots = 3
	// DefaultFootprintHalfSize is half the side of a hotspot square, in degrees.
	DefaultFootprintHalfSize = 0.005
)

// binCoord snaps a coordinate to the 0.01° grid.
func binCoord(v float64) float64 { return math.Round(v*100) / 100 }

func validCoord(lat, lon *float64) bool {
	if lat == nil || lon == nil {
		return false
	}
	for _, v := range []float64{*lat, *lon} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return *lat >= -90 && *lat <= 90 && *lon >= -180 && *lon <= 180
}

type tileKey struct {
	market   string
	lat, lon float64
}

// BucketProperties groups properties into (market, lat_bin, lon_bin) tiles.
// Properties without valid coordinates are skipped and counted in skipped.
// The result is sorted (market asc, lat desc, lon asc) and therefore does
// not depend on input order.
func BucketProperties(props []domain.PropertyRecord) (tiles []domain.DensityTile, skipped int) {
	acc := make(map[tileKey]*domain.DensityTile)
	for _, p := range props {
		if !validCoord(p.Lat, p.Lon) {
			skipped++
			continue
		}
		k := tileKey{market: p.Market, lat: binCoord(*p.Lat), lon: binCoord(*p.Lon)}
		t := acc[k]
		if t == nil {
			t = &domain.DensityTile{Market: k.market, Lat: k.lat, Lon: k.lon}
			acc[k] = t
		}
		t.TotalUnits += p.UnitCount
		t.TotalAssets++
	}

	tiles = make([]domain.DensityTile, 0, len(acc))
	for _, t := range acc {
		tiles = append(tiles, *t)
	}
	sort.Slice(tiles, func(i, j int) bool {
		a, b := tiles[i], tiles[j]
		if a.Market != b.Market {
			return a.Market < b.Market
		}
		if a.Lat != b.Lat {
			return a.Lat > b.Lat
		}
		return a.Lon < b.Lon
	})
	return tiles, skipped
}

// TopHotspots keeps the n tiles with the most units in every market, ranked
// 1..k. Ties keep their input order. n <= 0 means DefaultHotspots.
func TopHotspots(tiles []domain.DensityTile, n int) []domain.Hotspot {
	if n <= 0 {
		n = DefaultHotspots
	}

	byMarket := make(map[string][]domain.DensityTile)
	var markets []string
	for _, t := range tiles {
		if _, ok := byMarket[t.Market]; !ok {
			markets = append(markets, t.Market)
		}
		byMarket[t.Market] = append(byMarket[t.Market], t)
	}
	sort.Strings(markets)

	var out []domain.Hotspot
	for _, m := range markets {
		ts := byMarket[m]
		sort.SliceStable(ts, func(i, j int) bool { return ts[i].TotalUnits > ts[j].TotalUnits })
		if len(ts) > n {
			ts = ts[:n]
		}
		for i, t := range ts {
			out = append(out, domain.Hotspot{DensityTile: t, Rank: i + 1})
		}
	}
	return out
}

// HotspotsFor filters hotspots to one market. "All" or empty keeps everything.
func HotspotsFor(hs []domain.Hotspot, market string) []domain.Hotspot {
	if market == "" || market == domain.AllMarkets {
		return hs
	}
	var out []domain.Hotspot
	for _, h := range hs {
		if h.Market == market {
			out = append(out, h)
		}
	}
	return out
}

// SquareFootprint is the counter-clockwise ring of a square centered on the
// hotspot's bin. halfSize <= 0 means DefaultFootprintHalfSize.
func SquareFootprint(h domain.Hotspot, halfSize float64) domain.Polygon {
	if halfSize <= 0 {
		halfSize = DefaultFootprintHalfSize
	}
	w, e := h.Lon-halfSize, h.Lon+halfSize
	s, n := h.Lat-halfSize, h.Lat+halfSize
	return domain.Polygon{
		{w, s},
		{e, s},
		{e, n},
		{w, n},
		{w, s},
	}
}
