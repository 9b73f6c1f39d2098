package mysql

// -----------------------------------------------------------------------------
// WRITE STATEMENTS
// -----------------------------------------------------------------------------

const insertRunSQL = `
INSERT INTO ingest_runs (run_id, created_at, sources)
VALUES (?, ?, ?)
`

// The data tables hold one snapshot; they are cleared inside the replacing
// transaction.
var clearSnapshotSQL = []string{
	"DELETE FROM recognition",
	"DELETE FROM density_tiles",
	"DELETE FROM properties",
}

// Multi-row inserts: prefix + N placeholder groups.
const insertRecognitionPrefix = "INSERT INTO recognition\n" +
	"  (run_id, market_code, brand_key, market, manager, aided, unaided, sample_count, unaided_sample_count)\nVALUES "
const recognitionRow = "(?,?,?,?,?,?,?,?,?)"

const insertTilesPrefix = "INSERT INTO density_tiles\n" +
	"  (run_id, market, lat, lon, total_units, total_assets)\nVALUES "
const tileRow = "(?,?,?,?,?,?)"

const insertPropertiesPrefix = "INSERT INTO properties\n" +
	"  (run_id, property_id, name, manager, owner, market, submarket, lat, lon, unit_count, branded)\nVALUES "
const propertyRow = "(?,?,?,?,?,?,?,?,?,?,?)"

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const latestRunSQL = `
SELECT run_id, created_at, sources
FROM ingest_runs
ORDER BY created_at DESC, id DESC
LIMIT 1
`

// Same order the aggregator emits: (market code, brand key).
const listRecognitionSQL = `
SELECT market_code, brand_key, market, manager, aided, unaided, sample_count, unaided_sample_count
FROM recognition
ORDER BY market_code, brand_key
`

// Same order the tiler emits: market, then north to south, then west to east.
const listTilesSQL = `
SELECT market, lat, lon, total_units, total_assets
FROM density_tiles
ORDER BY market, lat DESC, lon
`

const listPropertiesSQL = `
SELECT property_id, name, manager, owner, market, submarket, lat, lon, unit_count, branded
FROM properties
ORDER BY id
`
