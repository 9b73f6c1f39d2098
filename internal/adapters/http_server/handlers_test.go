package httpserver_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpserver "market_intel/internal/adapters/http_server"
	"market_intel/internal/app"
	"market_intel/internal/domain"
)

type stubReader struct {
	recs  []domain.RecognitionRecord
	tiles []domain.DensityTile
	props []domain.PropertyRecord
}

func (s stubReader) Recognition(context.Context) ([]domain.RecognitionRecord, error) {
	return s.recs, nil
}
func (s stubReader) Tiles(context.Context) ([]domain.DensityTile, error) { return s.tiles, nil }
func (s stubReader) Properties(context.Context) ([]domain.PropertyRecord, error) {
	return s.props, nil
}

func sp(s string) *string   { return &s }
func fp(f float64) *float64 { return &f }
func ip(i int) *int         { return &i }

func newServer(opts httpserver.Options) http.Handler {
	r := stubReader{
		recs: []domain.RecognitionRecord{
			{MarketCode: "Atlanta", BrandKey: "cortland", Market: sp("Atlanta, GA"), Manager: sp("Cortland"),
				AidedRecognition: fp(0.4), UnaidedRecognition: fp(0.1), SampleCount: ip(10), UnaidedSampleCount: ip(10)},
		},
		tiles: []domain.DensityTile{
			{Market: "Atlanta, GA", Lat: 33.75, Lon: -84.39, TotalUnits: 8, TotalAssets: 2},
			{Market: "Atlanta, GA", Lat: 33.70, Lon: -84.40, TotalUnits: 3, TotalAssets: 1},
		},
	}
	for i := 0; i < 6; i++ {
		r.props = append(r.props, domain.PropertyRecord{
			PropertyID: string(rune('a' + i)), Manager: "Cortland", Market: "Atlanta, GA",
			Lat: fp(33.7), Lon: fp(-84.4), UnitCount: 10, Branded: i%2 == 0,
		})
	}
	r.props = append(r.props, domain.PropertyRecord{PropertyID: "z", Manager: "Bell", Market: "Atlanta, GA", UnitCount: 4})
	q := app.NewQueryService(r, nil, time.Minute, app.QueryOptions{MinMarketProperties: 5, MinManagerProperties: 5})
	srv := httpserver.New(opts)
	srv.MountHandlers(&httpserver.Handlers{Q: q})
	return srv.Mux()
}

func get(t *testing.T, h http.Handler, target string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRecognition_OKAndETag(t *testing.T) {
	h := newServer(httpserver.Options{})

	rr := get(t, h, "/v1/recognition?market=Atlanta,%20GA&manager=Cortland", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: %d body=%s", rr.Code, rr.Body.String())
	}
	var st domain.RecognitionStats
	if err := json.Unmarshal(rr.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.AidedRecognition == nil || *st.AidedRecognition != 0.4 || st.SampleCount != 10 {
		t.Fatalf("unexpected stats: %+v", st)
	}

	etag := rr.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("missing ETag")
	}
	rr = get(t, h, "/v1/recognition?market=Atlanta,%20GA&manager=Cortland", map[string]string{"If-None-Match": etag})
	if rr.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", rr.Code)
	}
}

func TestRecognition_Errors(t *testing.T) {
	h := newServer(httpserver.Options{})

	rr := get(t, h, "/v1/recognition?market=Austin,%20TX&manager=Greystar", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("content-type: %s", ct)
	}

	rr = get(t, h, "/v1/recognition?market=Atlanta,%20GA", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without manager, got %d", rr.Code)
	}

	rr = get(t, h, "/v1/recognition/markets/Atlanta,%20GA", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("market records: %d", rr.Code)
	}
}

func TestHotspotsGeoJSON(t *testing.T) {
	h := newServer(httpserver.Options{})

	rr := get(t, h, "/v1/hotspots.geojson?market=Atlanta,%20GA&n=1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: %d body=%s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/geo+json" {
		t.Fatalf("content-type: %s", ct)
	}
	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type        string         `json:"type"`
				Coordinates [][][2]float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &fc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if fc.Type != "FeatureCollection" || len(fc.Features) != 1 {
		t.Fatalf("unexpected collection: %+v", fc)
	}
	f := fc.Features[0]
	if f.Geometry.Type != "Polygon" || len(f.Geometry.Coordinates[0]) != 5 {
		t.Fatalf("unexpected geometry: %+v", f.Geometry)
	}
	if f.Properties["total_units"].(float64) != 8 || f.Properties["rank"].(float64) != 1 {
		t.Fatalf("unexpected properties: %+v", f.Properties)
	}

	for _, bad := range []string{"/v1/hotspots?n=0", "/v1/hotspots?n=x", "/v1/hotspots.geojson?half=-1"} {
		if rr := get(t, h, bad, nil); rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", bad, rr.Code)
		}
	}
}

func TestPropertyEndpoints(t *testing.T) {
	h := newServer(httpserver.Options{})

	rr := get(t, h, "/v1/markets", nil)
	var m struct{ Markets []string }
	_ = json.Unmarshal(rr.Body.Bytes(), &m)
	if len(m.Markets) != 2 || m.Markets[1] != "Atlanta, GA" {
		t.Fatalf("markets: %s", rr.Body.String())
	}

	rr = get(t, h, "/v1/properties/summary?market=Atlanta,%20GA&manager=Cortland", nil)
	var pv app.PropertyView
	_ = json.Unmarshal(rr.Body.Bytes(), &pv)
	if pv.Summary.TotalAssets != 6 || pv.Summary.BrandedAssets != 3 || pv.View.Zoom != 11 {
		t.Fatalf("summary: %s", rr.Body.String())
	}

	rr = get(t, h, "/v1/heatmap?market=Atlanta,%20GA", nil)
	var hm app.Heatmap
	_ = json.Unmarshal(rr.Body.Bytes(), &hm)
	if len(hm.Branded) != 3 || len(hm.Unbranded) != 3 {
		t.Fatalf("heatmap: %s", rr.Body.String())
	}
}

func TestPropertyMarkers(t *testing.T) {
	h := newServer(httpserver.Options{})

	rr := get(t, h, "/v1/properties?market=Atlanta,%20GA", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: %d body=%s", rr.Code, rr.Body.String())
	}
	var out struct{ Properties []domain.PropertyMarker }
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// the unlocated Bell property has no marker
	if len(out.Properties) != 6 {
		t.Fatalf("expected 6 markers, got %d: %s", len(out.Properties), rr.Body.String())
	}
	m := out.Properties[0]
	if m.PropertyID != "a" || m.Manager != "Cortland" || m.Lat != 33.7 || m.Lon != -84.4 || !m.Branded {
		t.Fatalf("unexpected marker: %+v", m)
	}

	rr = get(t, h, "/v1/properties?market=Atlanta,%20GA&manager=Bell", nil)
	out.Properties = nil
	_ = json.Unmarshal(rr.Body.Bytes(), &out)
	if rr.Code != http.StatusOK || out.Properties == nil || len(out.Properties) != 0 {
		t.Fatalf("expected an empty list: %d %s", rr.Code, rr.Body.String())
	}
}

func TestRateLimit(t *testing.T) {
	h := newServer(httpserver.Options{RateLimit: 0.001, RateBurst: 1})

	if rr := get(t, h, "/v1/markets", nil); rr.Code != http.StatusOK {
		t.Fatalf("first request: %d", rr.Code)
	}
	rr := get(t, h, "/v1/markets", nil)
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") == "" {
		t.Fatalf("expected 429 with Retry-After, got %d", rr.Code)
	}
	if rr := get(t, h, "/healthz", nil); rr.Code != http.StatusOK {
		t.Fatalf("healthz must bypass the limiter: %d", rr.Code)
	}
}
