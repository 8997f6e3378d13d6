// internal/verification/allocator_test.go
package verification

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	commonerrors "agrisure-workers/internal/common/errors"
	"agrisure-workers/internal/common/logger"
	"agrisure-workers/internal/models"
	"agrisure-workers/internal/workflow"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

// memStore enforces the same rules as the SQL schema, under one lock so the
// slot-take and record-create are atomic the way the transaction makes them.
type memStore struct {
	mu      sync.Mutex
	batches map[string]*models.Batch
	order   []string
	records map[string]*models.VerificationRecord
	claimed map[string]bool
}

func newMemStore(batches ...*models.Batch) *memStore {
	s := &memStore{
		batches: map[string]*models.Batch{},
		records: map[string]*models.VerificationRecord{},
		claimed: map[string]bool{},
	}
	for _, b := range batches {
		s.batches[b.ID] = b
		s.order = append(s.order, b.ID)
	}
	return s
}

func (s *memStore) SelectableBatches(ctx context.Context, applicationTypeID string, now time.Time) ([]models.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Batch
	for _, id := range s.order {
		b := s.batches[id]
		if b.ApplicationTypeID == applicationTypeID && b.Selectable(now) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (s *memStore) AssignAndCreate(ctx context.Context, batchID string, rec *models.VerificationRecord) (AssignOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[batchID]
	if !ok || !b.IsAvailable || b.AssignedCount >= b.MaxApplications {
		return AssignmentBatchFull, nil
	}
	for _, r := range s.records {
		if r.EventID == rec.EventID {
			return AssignmentDuplicate, nil
		}
	}
	b.AssignedCount++
	cp := *rec
	cp.BatchID = batchID
	s.records[rec.ID] = &cp
	return AssignmentApplied, nil
}

func (s *memStore) ByApplication(ctx context.Context, applicationID string) (*models.VerificationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.ApplicationID == applicationID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) ApplyResult(ctx context.Context, guard *workflow.IdempotencyGuard, eventID, topic string, rec *models.VerificationRecord, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.claimed[eventID] {
		return commonerrors.NewDuplicateEventError(eventID)
	}
	stored, ok := s.records[rec.ID]
	if !ok || stored.Version != rec.Version {
		return commonerrors.NewConcurrencyConflictError(rec.ID, rec.Version)
	}
	s.claimed[eventID] = true
	stored.Status = status
	stored.Version++
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func openBatch(id, applicationTypeID string, capacity int) *models.Batch {
	now := time.Now().UTC()
	return &models.Batch{
		ID:                id,
		ApplicationTypeID: applicationTypeID,
		StartDate:         now.Add(-time.Hour),
		EndDate:           now.Add(time.Hour),
		MaxApplications:   capacity,
		IsAvailable:       true,
	}
}

func pendingRecord(applicationID string) *models.VerificationRecord {
	return &models.VerificationRecord{
		ID:            uuid.NewString(),
		EventID:       uuid.NewString(),
		ApplicationID: applicationID,
		Status:        models.VerificationPending,
		Version:       1,
		CreatedAt:     time.Now().UTC(),
	}
}

// ==========================
// Allocation Tests
// ==========================

func TestAllocator_AssignsFirstOpenBatch(t *testing.T) {
	store := newMemStore(openBatch("b1", "type-crop", 2), openBatch("b2", "type-crop", 1))
	alloc := NewAllocator(store, logger.NewTestLogger(t))

	rec := pendingRecord("app-001")
	batchID, err := alloc.Allocate(context.Background(), "type-crop", rec)
	require.NoError(t, err)
	assert.Equal(t, "b1", batchID)
	assert.Equal(t, "b1", rec.BatchID)
	assert.Equal(t, 1, store.batches["b1"].AssignedCount)
}

func TestAllocator_SkipsFullAndUnavailableBatches(t *testing.T) {
	full := openBatch("b1", "type-crop", 1)
	full.AssignedCount = 1
	closed := openBatch("b2", "type-crop", 5)
	closed.IsAvailable = false
	open := openBatch("b3", "type-crop", 5)

	store := newMemStore(full, closed, open)
	alloc := NewAllocator(store, logger.NewTestLogger(t))

	batchID, err := alloc.Allocate(context.Background(), "type-crop", pendingRecord("app-001"))
	require.NoError(t, err)
	assert.Equal(t, "b3", batchID)
}

func TestAllocator_IgnoresOtherApplicationTypes(t *testing.T) {
	store := newMemStore(openBatch("b1", "type-livestock", 5))
	alloc := NewAllocator(store, logger.NewTestLogger(t))

	_, err := alloc.Allocate(context.Background(), "type-crop", pendingRecord("app-001"))
	assert.True(t, commonerrors.IsCode(err, commonerrors.ErrCodeNoCapacity))
}

func TestAllocator_ExpiredWindowHasNoCapacity(t *testing.T) {
	expired := openBatch("b1", "type-crop", 5)
	expired.EndDate = time.Now().UTC().Add(-time.Minute)
	store := newMemStore(expired)
	alloc := NewAllocator(store, logger.NewTestLogger(t))

	_, err := alloc.Allocate(context.Background(), "type-crop", pendingRecord("app-001"))
	assert.True(t, commonerrors.IsCode(err, commonerrors.ErrCodeNoCapacity))
}

func TestAllocator_DuplicateEventConsumesNoSlot(t *testing.T) {
	store := newMemStore(openBatch("b1", "type-crop", 5))
	alloc := NewAllocator(store, logger.NewTestLogger(t))

	rec := pendingRecord("app-001")
	_, err := alloc.Allocate(context.Background(), "type-crop", rec)
	require.NoError(t, err)

	redelivered := pendingRecord("app-001")
	redelivered.EventID = rec.EventID
	_, err = alloc.Allocate(context.Background(), "type-crop", redelivered)
	assert.True(t, commonerrors.IsCode(err, commonerrors.ErrCodeDuplicateEvent))
	assert.Equal(t, 1, store.batches["b1"].AssignedCount)
	assert.Len(t, store.records, 1)
}

// ==========================
// Capacity Invariant Tests
// ==========================

func TestAllocator_ConcurrentAllocatesNeverExceedCapacity(t *testing.T) {
	// Two batches with total capacity 3 and 3 concurrent submissions:
	// all three land, neither batch goes over its limit.
	store := newMemStore(openBatch("b1", "type-crop", 2), openBatch("b2", "type-crop", 1))
	alloc := NewAllocator(store, logger.NewTestLogger(t))

	var wg sync.WaitGroup
	results := make([]string, 3)
	errs := make([]error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = alloc.Allocate(context.Background(), "type-crop", pendingRecord(fmt.Sprintf("app-%03d", i+1)))
		}(i)
	}
	wg.Wait()

	assigned := 0
	for i := 0; i < 3; i++ {
		require.NoError(t, errs[i])
		assert.NotEmpty(t, results[i])
		assigned++
	}
	assert.Equal(t, 3, assigned)
	assert.Equal(t, 2, store.batches["b1"].AssignedCount)
	assert.Equal(t, 1, store.batches["b2"].AssignedCount)
}

func TestAllocator_OversubscribedReportsNoCapacity(t *testing.T) {
	store := newMemStore(openBatch("b1", "type-crop", 2))
	alloc := NewAllocator(store, logger.NewTestLogger(t))

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = alloc.Allocate(context.Background(), "type-crop", pendingRecord(fmt.Sprintf("app-%03d", i+1)))
		}(i)
	}
	wg.Wait()

	noCapacity := 0
	for _, err := range errs {
		if err != nil {
			assert.True(t, commonerrors.IsCode(err, commonerrors.ErrCodeNoCapacity))
			assert.True(t, commonerrors.IsRetryable(err))
			noCapacity++
		}
	}
	assert.Equal(t, 2, noCapacity)
	assert.Equal(t, 2, store.batches["b1"].AssignedCount)
}
