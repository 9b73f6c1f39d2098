package csvsource

import (
	"crypto/sha1"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"market_intel/internal/domain"
)

// ReadProperties parses a property export. Malformed values never fail the
// load: unparseable, non-finite or out-of-range coordinates become nil, bad or negative unit counts
// become 0 and an unreadable branded flag reads as false.
func ReadProperties(r io.Reader) ([]domain.PropertyRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("properties: %w", domain.ErrEmptyDataset)
	}
	if err != nil {
		return nil, fmt.Errorf("properties: header: %w", err)
	}
	idx := columnIndex(stripBOM(header), propertyAliases)
	for _, f := range requiredProperty {
		if _, ok := idx[f]; !ok {
			return nil, fmt.Errorf("properties: %w: %s", domain.ErrMissingColumn, propertyAliases[f][0])
		}
	}

	var out []domain.PropertyRecord
	var badCoords, badUnits, badFlg int
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("properties: line %d: %w", line, err)
		}

		p := domain.PropertyRecord{
			PropertyID: field(row, idx, "id"),
			Name:       field(row, idx, "name"),
			Manager:    field(row, idx, "manager"),
			Owner:      field(row, idx, "owner"),
			Market:     field(row, idx, "market"),
			Submarket:  ptrStr(field(row, idx, "submarket")),
		}
		if p.Manager == "" {
			p.Manager = managerName(field(row, idx, "export_mgr"))
		}

		p.Lat = parseCoord(field(row, idx, "lat"), 90)
		p.Lon = parseCoord(field(row, idx, "lon"), 180)
		if p.Lat == nil || p.Lon == nil {
			badCoords++
		}

		units, ok := parseUnits(field(row, idx, "units"))
		if !ok {
			badUnits++
			log.Debug().Int("line", line).Str("value", field(row, idx, "units")).Msg("bad unit count, using 0")
		}
		p.UnitCount = units

		branded, ok := parseFlag(field(row, idx, "branded"))
		if !ok {
			badFlg++
		}
		p.Branded = branded

		if p.PropertyID == "" {
			p.PropertyID = syntheticID(p)
		}
		out = append(out, p)
	}

	if badCoords > 0 || badUnits > 0 || badFlg > 0 {
		log.Warn().
			Int("rows", len(out)).
			Int("bad_coordinates", badCoords).
			Int("bad_unit_counts", badUnits).
			Int("bad_branded_flags", badFlg).
			Msg("property export has malformed values")
	}
	return out, nil
}

// parseCoord returns nil unless s is a finite number within ±limit.
func parseCoord(s string, limit float64) *float64 {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > limit {
		return nil
	}
	return &f
}

// parseUnits accepts "240", "1,240" and "240.0". An empty cell is 0 and not
// an error.
func parseUnits(s string) (int, bool) {
	if s == "" {
		return 0, true
	}
	s = strings.ReplaceAll(s, ",", "")
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, false
		}
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}

func parseFlag(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "":
		return false, true
	case "yes", "y":
		return true, true
	case "no", "n":
		return false, true
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, false
	}
	return b, true
}

// syntheticID derives a stable id for rows exported without one.
func syntheticID(p domain.PropertyRecord) string {
	lat, lon := "", ""
	if p.Lat != nil {
		lat = strconv.FormatFloat(*p.Lat, 'f', -1, 64)
	}
	if p.Lon != nil {
		lon = strconv.FormatFloat(*p.Lon, 'f', -1, 64)
	}
	sum := sha1.Sum([]byte(strings.Join([]string{p.Name, p.Market, lat, lon}, "|")))
	return hex.EncodeToString(sum[:8])
}
