package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"market_intel/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullStr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
func nullF64(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// batchSize bounds the placeholder count of one multi-row INSERT.
const batchSize = 500

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// ReplaceSnapshot swaps the stored snapshot for s in one transaction and
// records the run. Readers see either the old or the new snapshot.
func (r *Repo) ReplaceSnapshot(ctx context.Context, s domain.Snapshot) (err error) {
	sources, err := json.Marshal(s.Sources)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, q := range clearSnapshotSQL {
		if _, err = tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("clear snapshot: %w", err)
		}
	}

	err = insertBatched(ctx, tx, insertRecognitionPrefix, recognitionRow, len(s.Recognition), func(i int) []any {
		rec := s.Recognition[i]
		return []any{
			s.RunID,
			rec.MarketCode,
			rec.BrandKey,
			valStr(rec.Market),
			valStr(rec.Manager),
			valF64(rec.AidedRecognition),
			valF64(rec.UnaidedRecognition),
			valInt(rec.SampleCount),
			valInt(rec.UnaidedSampleCount),
		}
	})
	if err != nil {
		return fmt.Errorf("insert recognition: %w", err)
	}

	err = insertBatched(ctx, tx, insertTilesPrefix, tileRow, len(s.Tiles), func(i int) []any {
		t := s.Tiles[i]
		return []any{s.RunID, t.Market, t.Lat, t.Lon, t.TotalUnits, t.TotalAssets}
	})
	if err != nil {
		return fmt.Errorf("insert tiles: %w", err)
	}

	err = insertBatched(ctx, tx, insertPropertiesPrefix, propertyRow, len(s.Properties), func(i int) []any {
		p := s.Properties[i]
		return []any{
			s.RunID,
			p.PropertyID,
			p.Name,
			p.Manager,
			p.Owner,
			p.Market,
			valStr(p.Submarket),
			valF64(p.Lat),
			valF64(p.Lon),
			p.UnitCount,
			p.Branded,
		}
	})
	if err != nil {
		return fmt.Errorf("insert properties: %w", err)
	}

	if _, err = tx.ExecContext(ctx, insertRunSQL, s.RunID, s.CreatedAt, string(sources)); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return tx.Commit()
}

// insertBatched writes n rows with prefix + placeholder groups, batchSize rows
// per statement.
func insertBatched(ctx context.Context, tx *sql.Tx, prefix, row string, n int, args func(i int) []any) error {
	for lo := 0; lo < n; lo += batchSize {
		hi := min(lo+batchSize, n)
		values := make([]string, 0, hi-lo)
		var flat []any
		for i := lo; i < hi; i++ {
			values = append(values, row)
			flat = append(flat, args(i)...)
		}
		if _, err := tx.ExecContext(ctx, prefix+strings.Join(values, ","), flat...); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repo) LatestRun(ctx context.Context) (domain.RunInfo, error) {
	var run domain.RunInfo
	var sources []byte
	err := r.db.QueryRowContext(ctx, latestRunSQL).Scan(&run.RunID, &run.CreatedAt, &sources)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.RunInfo{}, domain.ErrNotFound
		}
		return domain.RunInfo{}, err
	}
	if err := json.Unmarshal(sources, &run.Sources); err != nil {
		return domain.RunInfo{}, fmt.Errorf("run %s sources: %w", run.RunID, err)
	}
	return run, nil
}

func (r *Repo) Recognition(ctx context.Context) ([]domain.RecognitionRecord, error) {
	rows, err := r.db.QueryContext(ctx, listRecognitionSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RecognitionRecord
	for rows.Next() {
		var rec domain.RecognitionRecord
		var (
			market, manager      sql.NullString
			aided, unaided       sql.NullFloat64
			samples, unaidedSmpl sql.NullInt64
		)
		if err := rows.Scan(
			&rec.MarketCode,
			&rec.BrandKey,
			&market, &manager,
			&aided, &unaided,
			&samples, &unaidedSmpl,
		); err != nil {
			return nil, err
		}
		rec.Market = nullStr(market)
		rec.Manager = nullStr(manager)
		rec.AidedRecognition = nullF64(aided)
		rec.UnaidedRecognition = nullF64(unaided)
		rec.SampleCount = nullInt(samples)
		rec.UnaidedSampleCount = nullInt(unaidedSmpl)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *Repo) Tiles(ctx context.Context) ([]domain.DensityTile, error) {
	rows, err := r.db.QueryContext(ctx, listTilesSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DensityTile
	for rows.Next() {
		var t domain.DensityTile
		if err := rows.Scan(&t.Market, &t.Lat, &t.Lon, &t.TotalUnits, &t.TotalAssets); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repo) Properties(ctx context.Context) ([]domain.PropertyRecord, error) {
	rows, err := r.db.QueryContext(ctx, listPropertiesSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PropertyRecord
	for rows.Next() {
		var p domain.PropertyRecord
		var submarket sql.NullString
		var lat, lon sql.NullFloat64
		if err := rows.Scan(
			&p.PropertyID,
			&p.Name,
			&p.Manager,
			&p.Owner,
			&p.Market,
			&submarket,
			&lat, &lon,
			&p.UnitCount,
			&p.Branded,
		); err != nil {
			return nil, err
		}
		p.Submarket = nullStr(submarket)
		p.Lat = nullF64(lat)
		p.Lon = nullF64(lon)
		out = append(out, p)
	}
	return out, rows.Err()
}
