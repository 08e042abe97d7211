package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/plasmodock/plasmodock/internal/domain/process"
	"github.com/plasmodock/plasmodock/internal/infrastructure/monitoring/logging"
	appErrors "github.com/plasmodock/plasmodock/pkg/errors"
)

// ProcessRepository is the PostgreSQL implementation of the batch
// process Repository port.
type ProcessRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

func NewProcessRepository(pool *pgxpool.Pool, logger logging.Logger) *ProcessRepository {
	return &ProcessRepository{pool: pool, logger: logger.Named("process_repo")}
}

func (r *ProcessRepository) GetByID(ctx context.Context, id uuid.UUID) (*process.Process, error) {
	var (
		p          process.Process
		elapsedSec float64
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, type, ligand_file, workdir, status, status_message,
		       result_json_path, result_csv_path, archive_path, result_json,
		       elapsed_seconds, created_at, updated_at
		FROM processes WHERE id = $1`, id,
	).Scan(
		&p.ID, &p.Type, &p.LigandFile, &p.Workdir, &p.Status, &p.StatusMessage,
		&p.ResultJSONPath, &p.ResultCSVPath, &p.ArchivePath, &p.ResultJSON,
		&elapsedSec, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, appErrors.Newf(appErrors.ErrCodeProcessNotFound, "process %s not found", id)
		}
		r.logger.Error("fetching process", logging.String("id", id.String()), logging.Err(err))
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to fetch process")
	}
	p.Elapsed = time.Duration(elapsedSec * float64(time.Second))
	return &p, nil
}

func (r *ProcessRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status process.Status, message string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE processes SET status = $1, status_message = $2, updated_at = $3
		WHERE id = $4`,
		status, message, time.Now().UTC(), id,
	)
	if err != nil {
		r.logger.Error("updating process status", logging.String("id", id.String()), logging.Err(err))
		return appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to update process status")
	}
	if tag.RowsAffected() == 0 {
		return appErrors.Newf(appErrors.ErrCodeProcessNotFound, "process %s not found", id)
	}
	return nil
}

// ListByWorkdir returns every process sharing a working directory,
// oldest first.  Cleanup flows use it to decide whether a directory is
// still referenced before removing it.
func (r *ProcessRepository) ListByWorkdir(ctx context.Context, workdir string) ([]*process.Process, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, type, ligand_file, workdir, status, status_message,
		       result_json_path, result_csv_path, archive_path, result_json,
		       elapsed_seconds, created_at, updated_at
		FROM processes WHERE workdir = $1 ORDER BY created_at`, workdir,
	)
	if err != nil {
		r.logger.Error("listing processes by workdir", logging.String("workdir", workdir), logging.Err(err))
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to list processes by workdir")
	}
	defer rows.Close()

	var procs []*process.Process
	for rows.Next() {
		var (
			p          process.Process
			elapsedSec float64
		)
		if err := rows.Scan(
			&p.ID, &p.Type, &p.LigandFile, &p.Workdir, &p.Status, &p.StatusMessage,
			&p.ResultJSONPath, &p.ResultCSVPath, &p.ArchivePath, &p.ResultJSON,
			&elapsedSec, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to scan process row")
		}
		p.Elapsed = time.Duration(elapsedSec * float64(time.Second))
		procs = append(procs, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to iterate process rows")
	}
	return procs, nil
}

// FinishUnderLock writes the terminal state in a single transaction
// with the process row locked, so a redelivered job observing the same
// process cannot interleave its own write-back.
func (r *ProcessRepository) FinishUnderLock(ctx context.Context, id uuid.UUID, upd process.TerminalUpdate) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	var current process.Status
	err = tx.QueryRow(ctx, `SELECT status FROM processes WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if err != nil {
		if err == pgx.ErrNoRows {
			return appErrors.Newf(appErrors.ErrCodeProcessNotFound, "process %s not found", id)
		}
		return appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to lock process row")
	}
	if current.Terminal() {
		// A concurrent attempt already finished this run; keep its verdict.
		r.logger.Warn("process already terminal, skipping write-back",
			logging.String("id", id.String()),
			logging.String("status", string(current)),
		)
		return nil
	}

	_, err = tx.Exec(ctx, `
		UPDATE processes SET
			status           = $1,
			status_message   = $2,
			result_json_path = $3,
			result_csv_path  = $4,
			archive_path     = $5,
			result_json      = $6,
			elapsed_seconds  = $7,
			updated_at       = $8
		WHERE id = $9`,
		upd.Status, upd.StatusMessage,
		upd.ResultJSONPath, upd.ResultCSVPath, upd.ArchivePath,
		upd.ResultPayload,
		upd.Elapsed.Seconds(), time.Now().UTC(), id,
	)
	if err != nil {
		r.logger.Error("finishing process", logging.String("id", id.String()), logging.Err(err))
		return appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to write terminal process state")
	}

	if err := tx.Commit(ctx); err != nil {
		return appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "failed to commit terminal process state")
	}
	return nil
}
