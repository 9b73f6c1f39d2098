package csvsource

import (
	"strings"
)

/********** alias registries (single source of truth) **********/

// propertyAliases maps a field to the headers it may appear under. The first
// header present in the file wins. Matching ignores case and surrounding space.
var propertyAliases = map[string][]string{
	"id":         {"PropertyID", "property_id", "id"},
	"name":       {"property", "PropertyName", "name"},
	"manager":    {"manager", "management_company"},
	"export_mgr": {"PropertyManagerName"},
	"owner":      {"owner", "OwnerName", "TrueOwnerName"},
	"market":     {"MarketName", "market"},
	"submarket":  {"SubMarketName", "submarket"},
	"lat":        {"Latitude", "lat"},
	"lon":        {"Longitude", "lon", "lng"},
	"units":      {"UnitCount", "NumberOfUnits", "units"},
	"branded":    {"branded", "is_branded"},
}

// requiredProperty fields must resolve to a column or the file is rejected.
var requiredProperty = []string{"market", "lat", "lon"}

// columnIndex resolves every aliased field against header. Missing fields
// are absent from the result.
func columnIndex(header []string, aliases map[string][]string) map[string]int {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		k := strings.ToLower(strings.TrimSpace(h))
		if _, ok := pos[k]; !ok {
			pos[k] = i
		}
	}
	out := make(map[string]int, len(aliases))
	for field, names := range aliases {
		for _, n := range names {
			if i, ok := pos[strings.ToLower(n)]; ok {
				out[field] = i
				break
			}
		}
	}
	return out
}

/********** tiny helpers **********/

// field returns the trimmed value of a field or "" when the column is
// missing or the row is short.
func field(row []string, idx map[string]int, name string) string {
	i, ok := idx[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func ptrStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// managerName keeps the part of a CoStar manager name before the first '-'
// ("Greystar - Southeast" → "Greystar").
func managerName(s string) string {
	if i := strings.IndexByte(s, '-'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// stripBOM drops a UTF-8 byte order mark from the first header cell.
func stripBOM(header []string) []string {
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	return header
}
