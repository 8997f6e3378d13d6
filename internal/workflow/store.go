// internal/workflow/store.go
package workflow

import (
	"context"
	"database/sql"

	commonerrors "agrisure-workers/internal/common/errors"
	"agrisure-workers/internal/models"

	"github.com/lib/pq"
)

// HistoryStore persists the append-only workflow status history.
type HistoryStore interface {
	// AppendIfAbsent inserts one history row. It returns false without error
	// when a row for the same event id already exists. A concurrent append
	// that took the same (application_id, version) slot surfaces as
	// CONCURRENCY_CONFLICT.
	AppendIfAbsent(ctx context.Context, row *models.StatusHistory) (bool, error)

	// LatestByApplication returns the highest-version row for an application,
	// or nil when the application has no history yet.
	LatestByApplication(ctx context.Context, applicationID string) (*models.StatusHistory, error)

	// EventApplied reports whether a row for the event id already exists at
	// any version. Used to recognize redeliveries of events the state has
	// since advanced past.
	EventApplied(ctx context.Context, eventID string) (bool, error)
}

type PostgresHistoryStore struct {
	db *sql.DB
}

func NewPostgresHistoryStore(db *sql.DB) *PostgresHistoryStore {
	return &PostgresHistoryStore{db: db}
}

const uniqueViolation = "23505"

func (s *PostgresHistoryStore) AppendIfAbsent(ctx context.Context, row *models.StatusHistory) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO workflow_status_history
			(event_id, application_id, status, comments, updated_by, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (event_id) DO NOTHING`,
		row.EventID, row.ApplicationID, row.Status, row.Comments,
		row.UpdatedBy, row.UpdatedAt, row.Version,
	)
	if err != nil {
		// The (application_id, version) constraint is not the conflict
		// target, so a concurrent append at the same version errors here.
		if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == uniqueViolation {
			return false, commonerrors.NewConcurrencyConflictError(row.ApplicationID, row.Version)
		}
		return false, commonerrors.NewQueryExecutionFailedError("append status history", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, commonerrors.NewQueryExecutionFailedError("append status history", err)
	}
	return n == 1, nil
}

func (s *PostgresHistoryStore) LatestByApplication(ctx context.Context, applicationID string) (*models.StatusHistory, error) {
	var row models.StatusHistory
	err := s.db.QueryRowContext(ctx, `
		SELECT id, event_id, application_id, status, comments, updated_by, updated_at, version
		FROM workflow_status_history
		WHERE application_id = $1
		ORDER BY version DESC
		LIMIT 1`,
		applicationID,
	).Scan(&row.ID, &row.EventID, &row.ApplicationID, &row.Status, &row.Comments,
		&row.UpdatedBy, &row.UpdatedAt, &row.Version)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, commonerrors.NewQueryExecutionFailedError("load latest status", err)
	}
	return &row, nil
}

func (s *PostgresHistoryStore) EventApplied(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM workflow_status_history WHERE event_id = $1
		)`,
		eventID,
	).Scan(&exists)
	if err != nil {
		return false, commonerrors.NewQueryExecutionFailedError("check event applied", err)
	}
	return exists, nil
}
