package shared

import (
	"strings"

	"market_intel/internal/adapters/csvsource"
	"market_intel/internal/adapters/httpsource"
	"market_intel/internal/adapters/observability"
	"market_intel/internal/app"
	"market_intel/internal/domain"
)

// NewSource returns an HTTP source for http(s) locations and a file source
// otherwise.
func NewSource(name, location, apiKey string, rps int) (domain.Source, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return httpsource.New(name, location, apiKey, rps)
	}
	return csvsource.NewFileSource(name, location), nil
}

// NewPipeline wires the CSV parsers, lookups and metrics for cfg and opens
// both input sources.
func NewPipeline(cfg Config) (p app.Pipeline, properties, survey domain.Source, err error) {
	readSurvey, err := csvsource.NewSurveyReader(cfg.SurveyEncoding)
	if err != nil {
		return app.Pipeline{}, nil, nil, err
	}
	properties, err = NewSource("properties", cfg.PropertiesSource, cfg.SourceAPIKey, cfg.SourceRPS)
	if err != nil {
		return app.Pipeline{}, nil, nil, err
	}
	survey, err = NewSource("survey", cfg.SurveySource, cfg.SourceAPIKey, cfg.SourceRPS)
	if err != nil {
		return app.Pipeline{}, nil, nil, err
	}
	p = app.Pipeline{
		Lookups:         DefaultLookups(),
		Unaided:         cfg.UnaidedColumns,
		ParseProperties: csvsource.ReadProperties,
		ParseSurvey:     readSurvey,
		Metrics:         observability.Pipeline{},
		Recheck:         cfg.SourceRecheck,
	}
	return p, properties, survey, nil
}
