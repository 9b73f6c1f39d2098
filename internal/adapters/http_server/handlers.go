package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"market_intel/internal/app"
	"market_intel/internal/domain"
)

type Handlers struct{ Q *app.QueryService }

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

const maxHotspots = 50

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Route("/v1", func(r chi.Router) {
		r.Get("/markets", h.listMarkets)
		r.Get("/submarkets", h.listSubmarkets)
		r.Get("/managers", h.listManagers)
		r.Get("/recognition", h.getRecognition)
		r.Get("/recognition/markets/{market}", h.getMarketRecognition)
		r.Get("/hotspots", h.listHotspots)
		r.Get("/hotspots.geojson", h.hotspotsGeoJSON)
		r.Get("/properties", h.listProperties)
		r.Get("/properties/summary", h.propertySummary)
		r.Get("/heatmap", h.heatmap)
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps domain errors onto problem responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidQuery):
		writeProblem(w, http.StatusBadRequest, "Invalid Query", err.Error())
	case errors.Is(err, domain.ErrNoData):
		writeProblem(w, http.StatusNotFound, "No Data", "no data for the selection")
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "no snapshot loaded")
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("query failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeJSON writes v with a weak ETag, answering 304 when the client already
// holds this version.
func writeJSON(w http.ResponseWriter, r *http.Request, contentType string, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
		return
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag) // include ETag on 304
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write body")
	}
}

// ---- query parsing ----

func market(q url.Values) string {
	if m := q.Get("market"); m != "" {
		return m
	}
	return domain.AllMarkets
}

// filter reads market, submarket (repeatable) and manager.
func filter(q url.Values) domain.PropertyFilter {
	return domain.PropertyFilter{
		Market:     market(q),
		Submarkets: q["submarket"],
		Manager:    q.Get("manager"),
	}
}

// hotspotCount returns 0 (service default) when n is absent.
func hotspotCount(q url.Values) (int, bool) {
	s := q.Get("n")
	if s == "" {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 || n > maxHotspots {
		return 0, false
	}
	return n, true
}

// ---- handlers ----

func (h *Handlers) listMarkets(w http.ResponseWriter, r *http.Request) {
	out, err := h.Q.Markets(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, "application/json", map[string]any{"markets": out})
}

func (h *Handlers) listSubmarkets(w http.ResponseWriter, r *http.Request) {
	m := market(r.URL.Query())
	out, err := h.Q.Submarkets(r.Context(), m)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, "application/json", map[string]any{"market": m, "submarkets": out})
}

func (h *Handlers) listManagers(w http.ResponseWriter, r *http.Request) {
	out, err := h.Q.Managers(r.Context(), filter(r.URL.Query()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, "application/json", map[string]any{"managers": out})
}

func (h *Handlers) getRecognition(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	st, err := h.Q.Recognition(r.Context(), market(q), q.Get("manager"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, "application/json", st)
}

func (h *Handlers) getMarketRecognition(w http.ResponseWriter, r *http.Request) {
	out, err := h.Q.MarketRecognition(r.Context(), chi.URLParam(r, "market"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, "application/json", map[string]any{"records": out})
}

func (h *Handlers) listHotspots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	n, ok := hotspotCount(q)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid n", "n must be an integer between 1 and 50")
		return
	}
	out, err := h.Q.Hotspots(r.Context(), market(q), n)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if out == nil {
		out = []domain.Hotspot{}
	}
	writeJSON(w, r, "application/json", map[string]any{"hotspots": out})
}

// ---- GeoJSON ----

type geometry struct {
	Type        string           `json:"type"`
	Coordinates []domain.Polygon `json:"coordinates"`
}

type feature struct {
	Type       string         `json:"type"`
	Geometry   geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

func (h *Handlers) hotspotsGeoJSON(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	n, ok := hotspotCount(q)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid n", "n must be an integer between 1 and 50")
		return
	}
	half := app.DefaultFootprintHalfSize
	if s := q.Get("half"); s != "" {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || f <= 0 || f > 1 {
			writeProblem(w, http.StatusBadRequest, "Invalid half", "half must be a number in (0, 1]")
			return
		}
		half = f
	}

	hs, err := h.Q.Hotspots(r.Context(), market(q), n)
	if err != nil {
		writeError(w, r, err)
		return
	}
	fc := featureCollection{Type: "FeatureCollection", Features: make([]feature, 0, len(hs))}
	for _, hp := range hs {
		fc.Features = append(fc.Features, feature{
			Type:     "Feature",
			Geometry: geometry{Type: "Polygon", Coordinates: []domain.Polygon{app.SquareFootprint(hp, half)}},
			Properties: map[string]any{
				"market":       hp.Market,
				"rank":         hp.Rank,
				"total_units":  hp.TotalUnits,
				"total_assets": hp.TotalAssets,
			},
		})
	}
	writeJSON(w, r, "application/geo+json", fc)
}

func (h *Handlers) propertySummary(w http.ResponseWriter, r *http.Request) {
	out, err := h.Q.PropertySummary(r.Context(), filter(r.URL.Query()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, "application/json", out)
}

func (h *Handlers) listProperties(w http.ResponseWriter, r *http.Request) {
	out, err := h.Q.PropertyMarkers(r.Context(), filter(r.URL.Query()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, "application/json", map[string]any{"properties": out})
}

func (h *Handlers) heatmap(w http.ResponseWriter, r *http.Request) {
	out, err := h.Q.Heatmap(r.Context(), filter(r.URL.Query()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, "application/json", out)
}
