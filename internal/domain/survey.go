package domain

// SurveyTable is the survey export as read from disk: one header row and the
// raw cells of every respondent row.
type SurveyTable struct {
	Header []string
	Rows   [][]string
}

// UnaidedColumn binds a fixed survey header to its brand key.
type UnaidedColumn struct {
	Header string
	Key    string
}

// SurveyResponse is one respondent after normalization. Market is nil when
// the market cell was empty.
type SurveyResponse struct {
	Market  *string
	Aided   map[string]bool // brand key -> recognized when prompted
	Unaided map[string]bool // brand key -> named spontaneously
}

// RecognitionRecord is one (market, brand) row of the merged aided/unaided
// table. Market and Manager are the display names and stay nil when the raw
// code has no entry in the lookup tables.
type RecognitionRecord struct {
	MarketCode         string   `json:"market_code"`
	BrandKey           string   `json:"brand_key"`
	Market             *string  `json:"market"`
	Manager            *string  `json:"manager"`
	AidedRecognition   *float64 `json:"aided_recognition"`
	UnaidedRecognition *float64 `json:"unaided_recognition"`
	SampleCount        *int     `json:"sample_count"`
	UnaidedSampleCount *int     `json:"unaided_sample_count"`
}

// Mapped reports whether both display names resolved.
func (r RecognitionRecord) Mapped() bool { return r.Market != nil && r.Manager != nil }

// RecognitionStats is the answer to a recognition query.
type RecognitionStats struct {
	Market             string   `json:"market"`
	Manager            string   `json:"manager"`
	National           bool     `json:"national"`
	AidedRecognition   *float64 `json:"aided_recognition"`
	UnaidedRecognition *float64 `json:"unaided_recognition"`
	SampleCount        int      `json:"sample_count"`
}

// Weighting selects the weight used for the unaided national mean.
type Weighting string

const (
	// WeightBySide weights each side by its own sample count.
	WeightBySide Weighting = "side"
	// WeightByAided weights the unaided mean by the aided sample count.
	WeightByAided Weighting = "aided"
)

// AllMarkets is the selector value meaning "no market filter".
const AllMarkets = "All"
