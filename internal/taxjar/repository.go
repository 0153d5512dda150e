package taxjar

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/taxjar/internal/platform/db"
)

// Repository persists rate summaries and the category singleton.
type Repository interface {
	GetTax(ctx context.Context, countryCode string, regionCode *string) (TaxRecord, error)
	ListTaxes(ctx context.Context, countryCode string) ([]TaxRecord, error)
	CountTaxes(ctx context.Context) (int, error)
	UpsertTaxes(ctx context.Context, records []TaxRecord) error
	GetCategories(ctx context.Context) (TaxCategorySet, error)
	SaveCategories(ctx context.Context, categories []Category) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a Postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const upsertTaxSQL = `
INSERT INTO taxjar_taxes (country_code, region_code, data)
VALUES ($1, $2, $3)
ON CONFLICT (country_code, (COALESCE(region_code, '')))
DO UPDATE SET region_code = EXCLUDED.region_code, data = EXCLUDED.data, updated_at = now()`

// GetTax returns ErrNotFound when no row matches. A nil region matches only
// rows without a region.
func (r *repository) GetTax(ctx context.Context, countryCode string, regionCode *string) (TaxRecord, error) {
	const query = `SELECT id, country_code, region_code, data, updated_at
		FROM taxjar_taxes
		WHERE country_code = $1 AND region_code IS NOT DISTINCT FROM $2`
	rec, err := scanTax(r.pool.QueryRow(ctx, query, countryCode, regionCode))
	if errors.Is(err, pgx.ErrNoRows) {
		return TaxRecord{}, ErrNotFound
	}
	if err != nil {
		return TaxRecord{}, errors.Wrapf(err, "taxjar: get tax %s", countryCode)
	}
	return rec, nil
}

// ListTaxes returns every record, or those of one country when countryCode is set.
func (r *repository) ListTaxes(ctx context.Context, countryCode string) ([]TaxRecord, error) {
	query := `SELECT id, country_code, region_code, data, updated_at FROM taxjar_taxes`
	args := []any{}
	if countryCode != "" {
		query += ` WHERE country_code = $1`
		args = append(args, countryCode)
	}
	query += ` ORDER BY country_code, region_code NULLS FIRST`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "taxjar: list taxes")
	}
	defer rows.Close()

	var records []TaxRecord
	for rows.Next() {
		rec, err := scanTax(rows)
		if err != nil {
			return nil, errors.Wrap(err, "taxjar: scan tax")
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *repository) CountTaxes(ctx context.Context) (int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM taxjar_taxes`).Scan(&total); err != nil {
		return 0, errors.Wrap(err, "taxjar: count taxes")
	}
	return total, nil
}

// UpsertTaxes writes all records in one transaction keyed by (country, region).
func (r *repository) UpsertTaxes(ctx context.Context, records []TaxRecord) error {
	if len(records) == 0 {
		return nil
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, rec := range records {
			data, err := json.Marshal(rec.Data)
			if err != nil {
				return errors.Wrapf(err, "taxjar: encode rate %s", rec.CountryCode)
			}
			batch.Queue(upsertTaxSQL, rec.CountryCode, rec.RegionCode, data)
		}
		results := tx.SendBatch(ctx, batch)
		for _, rec := range records {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return errors.Wrapf(err, "taxjar: upsert tax %s", rec.CountryCode)
			}
		}
		return results.Close()
	})
}

// GetCategories returns ErrNotFound until the singleton row exists.
func (r *repository) GetCategories(ctx context.Context) (TaxCategorySet, error) {
	const query = `SELECT id, types, updated_at FROM taxjar_tax_categories WHERE id = $1`
	var (
		set TaxCategorySet
		raw []byte
	)
	err := r.pool.QueryRow(ctx, query, CategorySetID).Scan(&set.ID, &raw, &set.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return TaxCategorySet{}, ErrNotFound
	}
	if err != nil {
		return TaxCategorySet{}, errors.Wrap(err, "taxjar: get categories")
	}
	if err := json.Unmarshal(raw, &set.Types); err != nil {
		return TaxCategorySet{}, errors.Wrap(err, "taxjar: decode categories")
	}
	return set, nil
}

// SaveCategories overwrites the singleton row.
func (r *repository) SaveCategories(ctx context.Context, categories []Category) error {
	if categories == nil {
		categories = []Category{}
	}
	raw, err := json.Marshal(categories)
	if err != nil {
		return errors.Wrap(err, "taxjar: encode categories")
	}
	const query = `INSERT INTO taxjar_tax_categories (id, types) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET types = EXCLUDED.types, updated_at = now()`
	if _, err := r.pool.Exec(ctx, query, CategorySetID, raw); err != nil {
		return errors.Wrap(err, "taxjar: save categories")
	}
	return nil
}

func scanTax(row pgx.Row) (TaxRecord, error) {
	var (
		rec TaxRecord
		raw []byte
	)
	if err := row.Scan(&rec.ID, &rec.CountryCode, &rec.RegionCode, &raw, &rec.UpdatedAt); err != nil {
		return TaxRecord{}, err
	}
	if err := json.Unmarshal(raw, &rec.Data); err != nil {
		return TaxRecord{}, errors.Wrap(err, "decode data")
	}
	return rec, nil
}
