package domain

// PropertyRecord is one managed property. Lat/Lon are nil when the source
// cell could not be coerced to a valid coordinate.
type PropertyRecord struct {
	PropertyID string   `json:"property_id"`
	Name       string   `json:"property"`
	Manager    string   `json:"manager"`
	Owner      string   `json:"owner"`
	Market     string   `json:"market"`
	Submarket  *string  `json:"submarket"`
	Lat        *float64 `json:"lat"`
	Lon        *float64 `json:"lon"`
	UnitCount  int      `json:"unit_count"`
	Branded    bool     `json:"branded"`
}

// Located reports whether the record has usable coordinates.
func (p PropertyRecord) Located() bool { return p.Lat != nil && p.Lon != nil }

type DensityTile struct {
	Market      string  `json:"market"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	TotalUnits  int     `json:"total_units"`
	TotalAssets int     `json:"total_assets"`
}

type Hotspot struct {
	DensityTile
	Rank int `json:"rank"`
}

// Polygon is a closed ring of [lon, lat] pairs.
type Polygon [][2]float64

type HeatPoint struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Weight  float64 `json:"weight"`
	Branded bool    `json:"branded"`
}

// PropertyMarker is one located property on the marker layer.
type PropertyMarker struct {
	PropertyID string  `json:"property_id"`
	Name       string  `json:"property"`
	Manager    string  `json:"manager"`
	Owner      string  `json:"owner"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Branded    bool    `json:"branded"`
}

type AssetSummary struct {
	TotalAssets   int `json:"total_assets"`
	BrandedAssets int `json:"branded_assets"`
	TotalUnits    int `json:"total_units"`
}

type MapView struct {
	CenterLat float64 `json:"center_lat"`
	CenterLon float64 `json:"center_lon"`
	Zoom      int     `json:"zoom"`
}

// PropertyFilter narrows a property slice. Empty values and "All" do not filter.
type PropertyFilter struct {
	Market     string
	Submarkets []string
	Manager    string
}
