package shared

import "market_intel/internal/domain"

// Survey market codes -> display market names.
var marketNames = map[string]string{
	"Atlanta":       "Atlanta, GA",
	"Austin":        "Austin, TX",
	"Charlotte":     "Charlotte, NC",
	"Columbus":      "Columbus, OH",
	"DC":            "Washington, DC",
	"Dallas":        "Dallas, TX",
	"Denver":        "Denver, CO",
	"Houston":       "Houston, TX",
	"Nashville":     "Nashville, TN",
	"Orlando":       "Orlando, FL",
	"Phoenix":       "Phoenix, AZ",
	"Raleigh":       "Raleigh, NC",
	"South Florida": "Miami, FL",
	"Tampa":         "Tampa, FL",
	"Tucson":        "Tucson, AZ",
}

// Normalized brand keys -> display manager names. Several keys may share one
// display name (bell/pb_bell, hsl/encantada).
var managerNames = map[string]string{
	"amli":                "AMLI",
	"arium":               "ARIUM",
	"avalon":              "AvalonBay",
	"bell":                "Bell",
	"bozzuto":             "Bozzuto",
	"broadstone":          "Broadstone",
	"camden":              "Camden",
	"cortland":            "Cortland",
	"cushman_&_wakefield": "Pinnacle",
	"encantada":           "HSL",
	"gables":              "Gables",
	"greystar":            "Greystar",
	"hsl":                 "HSL",
	"lincoln":             "Willow Bridge",
	"maa":                 "MAA",
	"mark_taylor":         "Mark Taylor",
	"northstar":           "Northstar",
	"northwood":           "Northwood Ravin",
	"pb_bell":             "Bell",
	"pinnacle":            "Pinnacle",
	"post":                "Post Road",
	"rpm_living":          "RPM",
	"walton":              "Walton Communities",
	"weidner":             "Weidner",
	"windsor":             "Windsor",
}

// DefaultLookups returns the compiled-in tables.
func DefaultLookups() domain.Lookups {
	return domain.NewLookups(marketNames, managerNames)
}
