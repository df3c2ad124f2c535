package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/target/disclosure-collector/internal/data/pgxutil"
	"github.com/target/disclosure-collector/internal/domain/model"
	apperrors "github.com/target/disclosure-collector/internal/errors"
)

const (
	defaultListLimit = 1000
	// maxListLimit leaves room above the largest export, which asks for one extra row.
	maxListLimit = 100000
)

// DisclosureRepo provides database operations for disclosure metadata.
type DisclosureRepo struct {
	DB *sql.DB
}

// NewDisclosureRepo creates a new DisclosureRepo with the given database connection.
func NewDisclosureRepo(db *sql.DB) *DisclosureRepo {
	return &DisclosureRepo{DB: db}
}

const disclosureColumns = `
  record_id,
  company_code,
  company_name,
  title,
  category,
  disclosed_at,
  to_char(date_key, 'YYYY-MM-DD') AS date_key,
  source_url,
  storage_key,
  job_id,
  created_at
`

// The primary key is the only concurrency control between duplicate producers:
// exactly one INSERT returns a row, every other one hits DO NOTHING.
const insertDisclosureSQL = `
  INSERT INTO disclosures (
    record_id, company_code, company_name, title, category,
    disclosed_at, date_key, source_url, storage_key, job_id, created_at
  ) VALUES ($1, $2, $3, $4, $5, $6, $7::date, $8, $9, $10, $11)
  ON CONFLICT (record_id) DO NOTHING
  RETURNING record_id`

// Insert writes d unless a record with the same id already exists.
func (r *DisclosureRepo) Insert(ctx context.Context, d *model.Disclosure) (model.PutResult, error) {
	if d == nil {
		return 0, apperrors.Validation("disclosure is required")
	}
	if err := d.Validate(); err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrCodeValidation, err.Error())
	}

	var inserted string
	err := r.DB.QueryRowContext(ctx, insertDisclosureSQL,
		d.RecordID, d.CompanyCode, d.CompanyName, d.Title, d.Category,
		d.DisclosedAt, d.DateKey, d.SourceURL, d.StorageKey, d.JobID, d.CreatedAt,
	).Scan(&inserted)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return model.PutAlreadyExists, nil
	case err != nil:
		return 0, fmt.Errorf("insert disclosure %s: %w", d.RecordID, apperrors.MapDBError(err))
	default:
		return model.PutCreated, nil
	}
}

// GetByID loads one disclosure.
func (r *DisclosureRepo) GetByID(ctx context.Context, recordID string) (*model.Disclosure, error) {
	if strings.TrimSpace(recordID) == "" {
		return nil, apperrors.ValidationField("record_id", "record_id is required")
	}

	var out model.Disclosure
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `SELECT `+disclosureColumns+` FROM disclosures WHERE record_id = $1`, recordID)
		if err != nil {
			return err
		}
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Disclosure])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundf("disclosure %s not found", recordID)
		}
		return nil, fmt.Errorf("get disclosure %s: %w", recordID, apperrors.MapDBError(err))
	}
	return &out, nil
}

// AttachStorageKey records where the document was stored. The key is set at most once.
func (r *DisclosureRepo) AttachStorageKey(ctx context.Context, recordID, storageKey string) (bool, error) {
	if strings.TrimSpace(storageKey) == "" {
		return false, apperrors.ValidationField("storage_key", "storage_key is required")
	}

	res, err := r.DB.ExecContext(ctx, `
		UPDATE disclosures
		SET storage_key = $2
		WHERE record_id = $1 AND storage_key IS NULL
	`, recordID, storageKey)
	if err != nil {
		return false, fmt.Errorf("attach storage key %s: %w", recordID, apperrors.MapDBError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("attach storage key %s: %w", recordID, err)
	}
	if n > 0 {
		return true, nil
	}

	// Distinguish "already attached" from "no such record".
	var exists bool
	if err = r.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM disclosures WHERE record_id = $1)`, recordID,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("attach storage key %s: %w", recordID, apperrors.MapDBError(err))
	}
	if !exists {
		return false, apperrors.NotFoundf("disclosure %s not found", recordID)
	}
	return false, nil
}

// ListByDateRange returns disclosures whose date_key falls in the range, oldest first.
func (r *DisclosureRepo) ListByDateRange(ctx context.Context, q model.DisclosureQuery) ([]*model.Disclosure, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	query := `SELECT ` + disclosureColumns + ` FROM disclosures
		WHERE date_key BETWEEN $1::date AND $2::date`
	args := []any{q.Range.StartKey(), q.Range.EndKey()}
	if code := strings.TrimSpace(q.CompanyCode); code != "" {
		query += ` AND company_code = $3`
		args = append(args, code)
	}
	query += fmt.Sprintf(` ORDER BY date_key ASC, record_id ASC LIMIT %d`, limit)

	var out []*model.Disclosure
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		out, err = pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.Disclosure])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list disclosures: %w", apperrors.MapDBError(err))
	}
	return out, nil
}
