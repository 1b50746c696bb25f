package recordings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jagcoaching/speechcoach/internal/common"
	"github.com/jagcoaching/speechcoach/internal/dbx"
	"github.com/jagcoaching/speechcoach/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectColumns = `id, user_id, storage_key, filename, content_type, status, report, error, created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, rec *models.Recording) error {
	report, err := encodeReport(rec.Report)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO recordings (` + selectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	if _, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.UserID, rec.StorageKey, rec.Filename, rec.ContentType,
		rec.Status, report, rec.Error, rec.CreatedAt, rec.UpdatedAt); err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Recording, error) {
	query := `SELECT ` + selectColumns + ` FROM recordings WHERE id = $1`

	rec, err := scanRecording(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, err
	}
	return rec, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Recording, error) {
	query := `SELECT ` + selectColumns + ` FROM recordings WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Recording, 0)
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Update(ctx context.Context, rec *models.Recording) error {
	report, err := encodeReport(rec.Report)
	if err != nil {
		return err
	}

	query := `
		UPDATE recordings
		SET status = $2, report = $3, error = $4, updated_at = $5
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, rec.ID, rec.Status, report, rec.Error, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecording returns sql.ErrNoRows unwrapped so callers can map it.
func scanRecording(row rowScanner) (*models.Recording, error) {
	rec := &models.Recording{}
	var report []byte
	err := row.Scan(&rec.ID, &rec.UserID, &rec.StorageKey, &rec.Filename, &rec.ContentType,
		&rec.Status, &report, &rec.Error, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if len(report) > 0 {
		rec.Report = &models.Report{}
		if err := json.Unmarshal(report, rec.Report); err != nil {
			return nil, fmt.Errorf("error decoding report: %w", err)
		}
	}
	return rec, nil
}

// encodeReport returns an untyped nil for a missing report so it is stored
// as NULL.
func encodeReport(report *models.Report) (any, error) {
	if report == nil {
		return nil, nil
	}
	b, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("error encoding report: %w", err)
	}
	return b, nil
}
