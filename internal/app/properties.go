package app

import "market_intel/internal/domain"

const (
	DefaultMinMarketProperties  = 50
	DefaultMinManagerProperties = 5
)

var nationalView = domain.MapView{CenterLat: 39.8, CenterLon: -98.6, Zoom: 4}

const marketZoom = 11

func isAll(s string) bool { return s == "" || s == domain.AllMarkets }

// FilterProperties applies the market, submarket and manager selectors.
func FilterProperties(props []domain.PropertyRecord, f domain.PropertyFilter) []domain.PropertyRecord {
	subs := make(map[string]struct{}, len(f.Submarkets))
	anySub := len(f.Submarkets) == 0
	for _, s := range f.Submarkets {
		if isAll(s) {
			anySub = true
			break
		}
		subs[s] = struct{}{}
	}

	out := make([]domain.PropertyRecord, 0, len(props))
	for _, p := range props {
		if !isAll(f.Market) && p.Market != f.Market {
			continue
		}
		if !anySub {
			if p.Submarket == nil {
				continue
			}
			if _, ok := subs[*p.Submarket]; !ok {
				continue
			}
		}
		if !isAll(f.Manager) && p.Manager != f.Manager {
			continue
		}
		out = append(out, p)
	}
	return out
}

// EligibleMarkets lists "All" followed by the markets holding at least min
// properties, sorted.
func EligibleMarkets(props []domain.PropertyRecord, min int) []string {
	return eligible(props, min, func(p domain.PropertyRecord) string { return p.Market })
}

// EligibleManagers lists "All" followed by the managers holding at least min
// of the given properties, sorted.
func EligibleManagers(props []domain.PropertyRecord, min int) []string {
	return eligible(props, min, func(p domain.PropertyRecord) string { return p.Manager })
}

func eligible(props []domain.PropertyRecord, min int, key func(domain.PropertyRecord) string) []string {
	counts := make(map[string]int)
	for _, p := range props {
		if k := key(p); k != "" {
			counts[k]++
		}
	}
	keep := make(map[string]struct{})
	for k, n := range counts {
		if n >= min {
			keep[k] = struct{}{}
		}
	}
	return append([]string{domain.AllMarkets}, sortedKeys(keep)...)
}

// Submarkets lists "All" followed by the distinct non-empty submarkets.
func Submarkets(props []domain.PropertyRecord) []string {
	set := make(map[string]struct{})
	for _, p := range props {
		if p.Submarket != nil && *p.Submarket != "" {
			set[*p.Submarket] = struct{}{}
		}
	}
	return append([]string{domain.AllMarkets}, sortedKeys(set)...)
}

func Summarize(props []domain.PropertyRecord) domain.AssetSummary {
	var s domain.AssetSummary
	for _, p := range props {
		s.TotalAssets++
		s.TotalUnits += p.UnitCount
		if p.Branded {
			s.BrandedAssets++
		}
	}
	return s
}

// MapViewFor centers on the mean coordinate of the located properties of a
// market, or returns the national view.
func MapViewFor(props []domain.PropertyRecord, market string) domain.MapView {
	if isAll(market) {
		return nationalView
	}
	var lat, lon float64
	n := 0
	for _, p := range props {
		if !validCoord(p.Lat, p.Lon) {
			continue
		}
		lat += *p.Lat
		lon += *p.Lon
		n++
	}
	if n == 0 {
		return nationalView
	}
	return domain.MapView{CenterLat: lat / float64(n), CenterLon: lon / float64(n), Zoom: marketZoom}
}

// HeatPoints splits located properties into branded and unbranded layers,
// one unit of weight per property.
func HeatPoints(props []domain.PropertyRecord) (branded, unbranded []domain.HeatPoint) {
	branded, unbranded = []domain.HeatPoint{}, []domain.HeatPoint{}
	for _, p := range props {
		if !validCoord(p.Lat, p.Lon) {
			continue
		}
		hp := domain.HeatPoint{Lat: *p.Lat, Lon: *p.Lon, Weight: 1, Branded: p.Branded}
		if p.Branded {
			branded = append(branded, hp)
		} else {
			unbranded = append(unbranded, hp)
		}
	}
	return branded, unbranded
}

// Markers lists the located properties in input order.
func Markers(props []domain.PropertyRecord) []domain.PropertyMarker {
	out := []domain.PropertyMarker{}
	for _, p := range props {
		if !validCoord(p.Lat, p.Lon) {
			continue
		}
		out = append(out, domain.PropertyMarker{
			PropertyID: p.PropertyID,
			Name:       p.Name,
			Manager:    p.Manager,
			Owner:      p.Owner,
			Lat:        *p.Lat,
			Lon:        *p.Lon,
			Branded:    p.Branded,
		})
	}
	return out
}
