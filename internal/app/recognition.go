package app

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"market_intel/internal/domain"
)

var aidedHeaderRe = regexp.MustCompile(`<strong>(.*?)</strong>`)

const aidedHeaderPrefix = "<strong>"

// BrandKey is the internal key of a brand name: trimmed, lowercased, spaces
// replaced with underscores.
func BrandKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

type indicatorColumn struct {
	idx    int
	key    string
	header string
}

// NormalizeSurvey turns the wide survey export into one SurveyResponse per row.
// Aided columns are recognised by the <strong>brand</strong> marker in their
// header; unaided columns are the fixed headers in unaided.
func NormalizeSurvey(t domain.SurveyTable, unaided []domain.UnaidedColumn) ([]domain.SurveyResponse, error) {
	if len(t.Rows) == 0 {
		return nil, domain.ErrEmptyDataset
	}

	marketIdx := -1
	for i, h := range t.Header {
		if strings.EqualFold(strings.TrimSpace(h), "market") {
			marketIdx = i
			break
		}
	}
	if marketIdx < 0 {
		return nil, fmt.Errorf("survey: %w: Market", domain.ErrMissingColumn)
	}

	aided, err := aidedColumns(t.Header)
	if err != nil {
		return nil, err
	}
	unaidedCols, err := unaidedColumns(t.Header, unaided)
	if err != nil {
		return nil, err
	}

	out := make([]domain.SurveyResponse, 0, len(t.Rows))
	for _, row := range t.Rows {
		r := domain.SurveyResponse{
			Aided:   make(map[string]bool, len(aided)),
			Unaided: make(map[string]bool, len(unaidedCols)),
		}
		if m := cell(row, marketIdx); m != "" {
			r.Market = &m
		}
		for _, c := range aided {
			r.Aided[c.key] = cell(row, c.idx) != ""
		}
		for _, c := range unaidedCols {
			r.Unaided[c.key] = cell(row, c.idx) != ""
		}
		out = append(out, r)
	}
	return out, nil
}

func aidedColumns(header []string) ([]indicatorColumn, error) {
	var cols []indicatorColumn
	seen := make(map[string]string)
	for i, h := range header {
		if !strings.HasPrefix(h, aidedHeaderPrefix) {
			continue
		}
		m := aidedHeaderRe.FindStringSubmatch(h)
		if m == nil {
			continue
		}
		key := BrandKey(m[1])
		if key == "" {
			continue
		}
		if prev, dup := seen[key]; dup {
			log.Warn().Str("brand", key).Str("first", prev).Str("second", h).Msg("aided headers collide")
			return nil, fmt.Errorf("survey: %w: %q and %q both map to %q", domain.ErrBrandKeyCollision, prev, h, key)
		}
		seen[key] = h
		cols = append(cols, indicatorColumn{idx: i, key: key, header: h})
	}
	return cols, nil
}

func unaidedColumns(header []string, fixed []domain.UnaidedColumn) ([]indicatorColumn, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		if _, ok := pos[strings.TrimSpace(h)]; !ok {
			pos[strings.TrimSpace(h)] = i
		}
	}
	var cols []indicatorColumn
	seen := make(map[string]string)
	for _, f := range fixed {
		idx, ok := pos[f.Header]
		if !ok {
			log.Warn().Str("column", f.Header).Msg("unaided column not in survey, brand has no unaided data")
			continue
		}
		if prev, dup := seen[f.Key]; dup {
			return nil, fmt.Errorf("survey: %w: %q and %q both map to %q", domain.ErrBrandKeyCollision, prev, f.Header, f.Key)
		}
		seen[f.Key] = f.Header
		cols = append(cols, indicatorColumn{idx: idx, key: f.Key, header: f.Header})
	}
	return cols, nil
}

// cell returns the trimmed value at i; short rows read as empty.
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

type groupKey struct{ market, brand string }

type tally struct{ positive, n int }

func (t tally) rate() *float64 {
	f := float64(t.positive) / float64(t.n)
	return &f
}

// AggregateRecognition folds responses into per-(market, brand) aided and
// unaided rates, outer-merges the two sides and maps codes to display names.
// Responses without a market do not contribute. Unmapped codes are kept with
// nil display names.
func AggregateRecognition(responses []domain.SurveyResponse, lookups domain.Lookups) []domain.RecognitionRecord {
	aided := make(map[groupKey]*tally)
	unaided := make(map[groupKey]*tally)

	fold := func(dst map[groupKey]*tally, market string, ind map[string]bool) {
		for brand, ok := range ind {
			k := groupKey{market: market, brand: brand}
			t := dst[k]
			if t == nil {
				t = &tally{}
				dst[k] = t
			}
			t.n++
			if ok {
				t.positive++
			}
		}
	}
	for _, r := range responses {
		if r.Market == nil {
			continue
		}
		fold(aided, *r.Market, r.Aided)
		fold(unaided, *r.Market, r.Unaided)
	}

	keys := make([]groupKey, 0, len(aided)+len(unaided))
	for k := range aided {
		keys = append(keys, k)
	}
	for k := range unaided {
		if _, ok := aided[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].market != keys[j].market {
			return keys[i].market < keys[j].market
		}
		return keys[i].brand < keys[j].brand
	})

	out := make([]domain.RecognitionRecord, 0, len(keys))
	for _, k := range keys {
		rec := domain.RecognitionRecord{
			MarketCode: k.market,
			BrandKey:   k.brand,
			Market:     lookups.Market(k.market),
			Manager:    lookups.Manager(k.brand),
		}
		if t, ok := aided[k]; ok {
			n := t.n
			rec.AidedRecognition = t.rate()
			rec.SampleCount = &n
		}
		if t, ok := unaided[k]; ok {
			n := t.n
			rec.UnaidedRecognition = t.rate()
			rec.UnaidedSampleCount = &n
		}
		out = append(out, rec)
	}
	return out
}

// UnmappedCodes lists the distinct raw market codes and brand keys that have
// no display name.
func UnmappedCodes(records []domain.RecognitionRecord) (markets, brands []string) {
	ms, bs := map[string]struct{}{}, map[string]struct{}{}
	for _, r := range records {
		if r.Market == nil {
			ms[r.MarketCode] = struct{}{}
		}
		if r.Manager == nil {
			bs[r.BrandKey] = struct{}{}
		}
	}
	return sortedKeys(ms), sortedKeys(bs)
}

// QueryRecognition answers a (market, manager) recognition question.
// A concrete market is an exact lookup; "All" or an empty market yields the
// sample-weighted national figures for the manager. Absence is ErrNoData.
func QueryRecognition(records []domain.RecognitionRecord, market, manager string, w domain.Weighting) (domain.RecognitionStats, error) {
	if manager == "" || manager == domain.AllMarkets {
		return domain.RecognitionStats{}, fmt.Errorf("%w: manager is required", domain.ErrInvalidQuery)
	}
	if market == "" || market == domain.AllMarkets {
		return nationalRecognition(records, manager, w)
	}

	for _, r := range records {
		if !r.Mapped() || *r.Market != market || *r.Manager != manager {
			continue
		}
		st := domain.RecognitionStats{
			Market:             market,
			Manager:            manager,
			AidedRecognition:   finiteOrNil(r.AidedRecognition),
			UnaidedRecognition: finiteOrNil(r.UnaidedRecognition),
		}
		if r.SampleCount != nil {
			st.SampleCount = *r.SampleCount
		}
		if st.AidedRecognition == nil && st.UnaidedRecognition == nil {
			return domain.RecognitionStats{}, domain.ErrNoData
		}
		return st, nil
	}
	return domain.RecognitionStats{}, domain.ErrNoData
}

func nationalRecognition(records []domain.RecognitionRecord, manager string, w domain.Weighting) (domain.RecognitionStats, error) {
	var aNum, aDen, uNum, uDen float64
	total := 0
	for _, r := range records {
		if !r.Mapped() || *r.Manager != manager {
			continue
		}
		if r.AidedRecognition != nil && r.SampleCount != nil {
			n := float64(*r.SampleCount)
			aNum += *r.AidedRecognition * n
			aDen += n
			total += *r.SampleCount
		}
		switch w {
		case domain.WeightByAided:
			// unaided mean weighted by the aided count of the same row
			if r.SampleCount != nil {
				n := float64(*r.SampleCount)
				if r.UnaidedRecognition != nil {
					uNum += *r.UnaidedRecognition * n
				}
				uDen += n
			}
		default:
			if r.UnaidedRecognition != nil && r.UnaidedSampleCount != nil {
				n := float64(*r.UnaidedSampleCount)
				uNum += *r.UnaidedRecognition * n
				uDen += n
			}
		}
	}

	st := domain.RecognitionStats{
		Market:             domain.AllMarkets,
		Manager:            manager,
		National:           true,
		AidedRecognition:   ratio(aNum, aDen),
		UnaidedRecognition: ratio(uNum, uDen),
		SampleCount:        total,
	}
	if st.AidedRecognition == nil && st.UnaidedRecognition == nil {
		return domain.RecognitionStats{}, domain.ErrNoData
	}
	return st, nil
}

// RecognitionForMarket returns the mapped records of one market ordered by
// manager display name.
func RecognitionForMarket(records []domain.RecognitionRecord, market string) []domain.RecognitionRecord {
	var out []domain.RecognitionRecord
	for _, r := range records {
		if r.Mapped() && *r.Market == market {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return *out[i].Manager < *out[j].Manager })
	return out
}

func ratio(num, den float64) *float64 {
	if den == 0 {
		return nil
	}
	q := num / den
	return finiteOrNil(&q)
}

func finiteOrNil(p *float64) *float64 {
	if p == nil || math.IsNaN(*p) || math.IsInf(*p, 0) {
		return nil
	}
	v := *p
	return &v
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
