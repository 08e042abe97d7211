// Package repositories holds the PostgreSQL implementations of the
// domain persistence ports.
package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/plasmodock/plasmodock/internal/domain/macromolecule"
	"github.com/plasmodock/plasmodock/internal/infrastructure/monitoring/logging"
	appErrors "github.com/plasmodock/plasmodock/pkg/errors"
)

const macromoleculeColumns = `
	id, name, rec, type, redocking, grid_size, grid_center,
	original_ligand, redocking_rmsd, original_energy,
	field_file_path, created_at, updated_at`

// MacromoleculeRepository is the PostgreSQL implementation of the
// receptor catalog's Repository port.
type MacromoleculeRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

func NewMacromoleculeRepository(pool *pgxpool.Pool, logger logging.Logger) *MacromoleculeRepository {
	return &MacromoleculeRepository{pool: pool, logger: logger.Named("macromolecule_repo")}
}

func (r *MacromoleculeRepository) GetByID(ctx context.Context, id uuid.UUID) (*macromolecule.Macromolecule, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+macromoleculeColumns+`
		FROM macromolecules WHERE id = $1`, id)

	m, err := scanMacromolecule(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, appErrors.Newf(appErrors.ErrCodeNotFound, "macromolecule %s not found", id)
		}
		r.logger.Error("fetching macromolecule", logging.String("id", id.String()), logging.Err(err))
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to fetch macromolecule")
	}
	return m, nil
}

func (r *MacromoleculeRepository) ListByType(ctx context.Context, typ string) ([]*macromolecule.Macromolecule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+macromoleculeColumns+`
		FROM macromolecules WHERE type = $1
		ORDER BY rec`, typ)
	if err != nil {
		r.logger.Error("listing macromolecules", logging.String("type", typ), logging.Err(err))
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to list macromolecules")
	}
	defer rows.Close()

	var out []*macromolecule.Macromolecule
	for rows.Next() {
		m, err := scanMacromolecule(rows)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to scan macromolecule row")
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "row iteration error")
	}
	return out, nil
}

// UpdatePreparationResult writes a preparation run's output under a row
// lock.  Nil pose fields keep the stored values untouched.
func (r *MacromoleculeRepository) UpdatePreparationResult(ctx context.Context, id uuid.UUID, res macromolecule.PreparationResult) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	var locked uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM macromolecules WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		if err == pgx.ErrNoRows {
			return appErrors.Newf(appErrors.ErrCodeNotFound, "macromolecule %s not found", id)
		}
		return appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to lock macromolecule row")
	}

	_, err = tx.Exec(ctx, `
		UPDATE macromolecules SET
			field_file_path = $1,
			redocking_rmsd  = COALESCE($2, redocking_rmsd),
			original_energy = COALESCE($3, original_energy),
			updated_at      = $4
		WHERE id = $5`,
		res.FieldFilePath, res.RedockingRMSD, res.OriginalEnergy, time.Now().UTC(), id,
	)
	if err != nil {
		r.logger.Error("updating preparation result", logging.String("id", id.String()), logging.Err(err))
		return appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to update preparation result")
	}

	if err := tx.Commit(ctx); err != nil {
		return appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to commit preparation result")
	}
	return nil
}

func scanMacromolecule(row pgx.Row) (*macromolecule.Macromolecule, error) {
	var m macromolecule.Macromolecule
	err := row.Scan(
		&m.ID, &m.Name, &m.Rec, &m.Type, &m.Redocking, &m.GridSize, &m.GridCenter,
		&m.OriginalLigand, &m.RedockingRMSD, &m.OriginalEnergy,
		&m.FieldFilePath, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
