// internal/verification/store.go

// Package verification owns batch capacity and the field-inspection records
// created for each submission.
package verification

import (
	"context"
	"database/sql"
	"time"

	commonerrors "agrisure-workers/internal/common/errors"
	"agrisure-workers/internal/models"
	"agrisure-workers/internal/workflow"
)

// AssignOutcome reports what a combined slot-take and record-create did.
type AssignOutcome int

const (
	// AssignmentApplied: the slot was taken and the record created.
	AssignmentApplied AssignOutcome = iota
	// AssignmentBatchFull: the batch filled between selection and
	// assignment; the caller moves to the next candidate.
	AssignmentBatchFull
	// AssignmentDuplicate: a record for the event already exists. The slot
	// is not consumed.
	AssignmentDuplicate
)

// BatchStore exposes capacity-safe batch assignment. The capacity invariant
// lives in the conditional increment, not in application code.
type BatchStore interface {
	// SelectableBatches lists open batches for the application type in
	// stable order: is_available, now within the window, capacity left.
	SelectableBatches(ctx context.Context, applicationTypeID string, now time.Time) ([]models.Batch, error)

	// AssignAndCreate takes one slot and creates the record in a single
	// transaction, so a crash between the two can never leave a taken slot
	// without a record behind it.
	AssignAndCreate(ctx context.Context, batchID string, rec *models.VerificationRecord) (AssignOutcome, error)
}

// RecordStore persists verification records.
type RecordStore interface {
	ByApplication(ctx context.Context, applicationID string) (*models.VerificationRecord, error)

	// ApplyResult claims the event id and applies the versioned status
	// update in one transaction. A version mismatch surfaces as
	// CONCURRENCY_CONFLICT, an already-claimed event as DUPLICATE_EVENT.
	ApplyResult(ctx context.Context, guard *workflow.IdempotencyGuard, eventID, topic string, rec *models.VerificationRecord, status string) error
}

// PostgresStore implements both stores against the verification schema.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) SelectableBatches(ctx context.Context, applicationTypeID string, now time.Time) ([]models.Batch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, application_type_id, start_date, end_date, max_applications, assigned_count, is_available
		FROM batches
		WHERE application_type_id = $1
		  AND is_available
		  AND start_date <= $2
		  AND end_date > $2
		  AND assigned_count < max_applications
		ORDER BY end_date, id`,
		applicationTypeID, now,
	)
	if err != nil {
		return nil, commonerrors.NewQueryExecutionFailedError("select batches", err)
	}
	defer rows.Close()

	var batches []models.Batch
	for rows.Next() {
		var b models.Batch
		if err := rows.Scan(&b.ID, &b.ApplicationTypeID, &b.StartDate, &b.EndDate,
			&b.MaxApplications, &b.AssignedCount, &b.IsAvailable); err != nil {
			return nil, commonerrors.NewQueryExecutionFailedError("scan batch", err)
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, commonerrors.NewQueryExecutionFailedError("select batches", err)
	}
	return batches, nil
}

func (s *PostgresStore) AssignAndCreate(ctx context.Context, batchID string, rec *models.VerificationRecord) (AssignOutcome, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return AssignmentBatchFull, commonerrors.NewQueryExecutionFailedError("begin assignment", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE batches
		SET assigned_count = assigned_count + 1
		WHERE id = $1
		  AND is_available
		  AND assigned_count < max_applications`,
		batchID,
	)
	if err != nil {
		return AssignmentBatchFull, commonerrors.NewQueryExecutionFailedError("assign batch slot", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return AssignmentBatchFull, commonerrors.NewQueryExecutionFailedError("assign batch slot", err)
	}
	if n == 0 {
		return AssignmentBatchFull, nil
	}

	res, err = tx.ExecContext(ctx, `
		INSERT INTO verification_records
			(id, event_id, application_id, batch_id, status, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (event_id) DO NOTHING`,
		rec.ID, rec.EventID, rec.ApplicationID, batchID, rec.Status, rec.Version, rec.CreatedAt,
	)
	if err != nil {
		return AssignmentBatchFull, commonerrors.NewQueryExecutionFailedError("create verification record", err)
	}
	n, err = res.RowsAffected()
	if err != nil {
		return AssignmentBatchFull, commonerrors.NewQueryExecutionFailedError("create verification record", err)
	}
	if n == 0 {
		// Rolling back gives the slot straight back.
		return AssignmentDuplicate, nil
	}

	if err := tx.Commit(); err != nil {
		return AssignmentBatchFull, commonerrors.NewQueryExecutionFailedError("commit assignment", err)
	}
	return AssignmentApplied, nil
}

func (s *PostgresStore) ByApplication(ctx context.Context, applicationID string) (*models.VerificationRecord, error) {
	var rec models.VerificationRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT id, event_id, application_id, batch_id, status, version, created_at, updated_at
		FROM verification_records
		WHERE application_id = $1`,
		applicationID,
	).Scan(&rec.ID, &rec.EventID, &rec.ApplicationID, &rec.BatchID,
		&rec.Status, &rec.Version, &rec.CreatedAt, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, commonerrors.NewQueryExecutionFailedError("load verification record", err)
	}
	return &rec, nil
}

func (s *PostgresStore) ApplyResult(ctx context.Context, guard *workflow.IdempotencyGuard, eventID, topic string, rec *models.VerificationRecord, status string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return commonerrors.NewQueryExecutionFailedError("begin result update", err)
	}
	defer tx.Rollback()

	claimed, err := guard.TryClaimTx(ctx, tx, eventID, topic)
	if err != nil {
		return err
	}
	if !claimed {
		return commonerrors.NewDuplicateEventError(eventID)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE verification_records
		SET status = $2, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $3`,
		rec.ID, status, rec.Version,
	)
	if err != nil {
		return commonerrors.NewQueryExecutionFailedError("update verification record", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return commonerrors.NewQueryExecutionFailedError("update verification record", err)
	}
	if n == 0 {
		return commonerrors.NewConcurrencyConflictError(rec.ID, rec.Version)
	}

	if err := tx.Commit(); err != nil {
		return commonerrors.NewQueryExecutionFailedError("commit result update", err)
	}
	return nil
}
