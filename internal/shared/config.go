package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"market_intel/internal/domain"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	RedisPrefix string
	CacheTTL    time.Duration

	DataBackend      string // mysql|file
	PropertiesSource string // path or http(s) URL
	SurveySource     string
	SurveyEncoding   string // latin1|utf8
	SourceAPIKey     string // bearer token for http(s) sources
	UnaidedColumns   []domain.UnaidedColumn
	Weighting        domain.Weighting

	HotspotCount         int
	MinMarketProperties  int
	MinManagerProperties int

	IngestInterval time.Duration
	SourceRPS      int
	SourceRecheck  time.Duration
	APIRateLimit   float64
	APIRateBurst   int
}

var DefaultUnaidedColumns = []domain.UnaidedColumn{
	{Header: "Cortland Unaided", Key: "cortland"},
	{Header: "Camden Unaided", Key: "camden"},
	{Header: "Greystar Unaided", Key: "greystar"},
	{Header: "MAA Unaided", Key: "maa"},
}

func Load() Config {
	// .env is optional; real env vars win.
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file, using process environment")
	}

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("ignoring non-integer setting")
		}
		return def
	}
	atof := func(k string, def float64) float64 {
		if v := os.Getenv(k); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f
			}
			log.Warn().Str("key", k).Str("value", v).Msg("ignoring non-numeric setting")
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		LogLevel:    env("LOG_LEVEL", "info"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/market_intel?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisPass:   env("REDIS_PASSWORD", ""),
		RedisDB:     atoi("REDIS_DB", 0),
		RedisPrefix: env("REDIS_PREFIX", "mi:"),
		CacheTTL:    time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,

		DataBackend:      strings.ToLower(env("DATA_BACKEND", "mysql")),
		PropertiesSource: env("PROPERTIES_SOURCE", "data/branded_sites.csv"),
		SurveySource:     env("SURVEY_SOURCE", "data/raw_survey_data.csv"),
		SurveyEncoding:   strings.ToLower(env("SURVEY_ENCODING", "latin1")),
		SourceAPIKey:     os.Getenv("SOURCE_API_KEY"),
		UnaidedColumns:   parseUnaided(os.Getenv("UNAIDED_COLUMNS")),
		Weighting:        parseWeighting(env("RECOGNITION_WEIGHTING", string(domain.WeightBySide))),

		HotspotCount:         atoi("HOTSPOT_COUNT", 3),
		MinMarketProperties:  atoi("MIN_MARKET_PROPERTIES", 50),
		MinManagerProperties: atoi("MIN_MANAGER_PROPERTIES", 5),

		IngestInterval: time.Duration(atoi("INGEST_INTERVAL_SECONDS", 0)) * time.Second,
		SourceRPS:      atoi("SOURCE_RPS", 5),
		SourceRecheck:  time.Duration(atoi("SOURCE_RECHECK_SECONDS", 30)) * time.Second,
		APIRateLimit:   atof("API_RATE_LIMIT", 50),
		APIRateBurst:   atoi("API_RATE_BURST", 100),
	}
	if c.DataBackend != "mysql" && c.DataBackend != "file" {
		log.Warn().Str("backend", c.DataBackend).Msg("unknown DATA_BACKEND, using mysql")
		c.DataBackend = "mysql"
	}
	return c
}

// parseUnaided reads "Header=key,Header=key". Empty input yields the defaults.
func parseUnaided(s string) []domain.UnaidedColumn {
	if strings.TrimSpace(s) == "" {
		out := make([]domain.UnaidedColumn, len(DefaultUnaidedColumns))
		copy(out, DefaultUnaidedColumns)
		return out
	}
	var out []domain.UnaidedColumn
	for _, part := range strings.Split(s, ",") {
		h, k, ok := strings.Cut(part, "=")
		h, k = strings.TrimSpace(h), strings.TrimSpace(k)
		if !ok || h == "" || k == "" {
			log.Warn().Str("entry", part).Msg("skipping malformed UNAIDED_COLUMNS entry")
			continue
		}
		out = append(out, domain.UnaidedColumn{Header: h, Key: k})
	}
	return out
}

func parseWeighting(s string) domain.Weighting {
	switch domain.Weighting(strings.ToLower(s)) {
	case domain.WeightByAided:
		return domain.WeightByAided
	case domain.WeightBySide:
		return domain.WeightBySide
	}
	log.Warn().Str("weighting", s).Msg("unknown RECOGNITION_WEIGHTING, using side")
	return domain.WeightBySide
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
