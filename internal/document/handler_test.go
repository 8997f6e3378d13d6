// internal/document/handler_test.go
package document

import (
	"context"
	"sync"
	"testing"
	"time"

	commonerrors "agrisure-workers/internal/common/errors"
	"agrisure-workers/internal/common/logger"
	"agrisure-workers/internal/events"
	"agrisure-workers/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type memHistoryStore struct {
	mu   sync.Mutex
	rows []*models.StatusHistory
}

func (s *memHistoryStore) AppendIfAbsent(ctx context.Context, row *models.StatusHistory) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.EventID == row.EventID {
			return false, nil
		}
		if r.ApplicationID == row.ApplicationID && r.Version == row.Version {
			return false, commonerrors.NewConcurrencyConflictError(row.ApplicationID, row.Version)
		}
	}
	cp := *row
	s.rows = append(s.rows, &cp)
	return true, nil
}

func (s *memHistoryStore) LatestByApplication(ctx context.Context, applicationID string) (*models.StatusHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *models.StatusHistory
	for _, r := range s.rows {
		if r.ApplicationID == applicationID && (latest == nil || r.Version > latest.Version) {
			latest = r
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (s *memHistoryStore) EventApplied(ctx context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.EventID == eventID {
			return true, nil
		}
	}
	return false, nil
}

func seed(store *memHistoryStore, applicationID, status string, version int64) {
	store.rows = append(store.rows, &models.StatusHistory{
		EventID:       uuid.NewString(),
		ApplicationID: applicationID,
		Status:        status,
		UpdatedBy:     "user-001",
		UpdatedAt:     time.Now().UTC(),
		Version:       version,
	})
}

func documentEnvelope(eventType, applicationID, documentID, comments string) *events.Envelope {
	return &events.Envelope{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		OccurredAt: time.Now().UTC(),
		Payload: events.Payload{
			ApplicationID: applicationID,
			UserID:        "user-001",
			DocumentID:    documentID,
			Comments:      comments,
		},
	}
}

// ==========================
// Document Event Tests
// ==========================

func TestHandleDocumentEvent_AppendsCommentAtCurrentStatus(t *testing.T) {
	store := &memHistoryStore{}
	seed(store, "app-001", "UNDER_REVIEW_BY_MA", 3)
	h := NewHandler(store, logger.NewTestLogger(t))

	env := documentEnvelope(events.TypeDocumentAttached, "app-001", "doc-9", "")
	require.NoError(t, h.HandleDocumentEvent(context.Background(), env))

	latest, err := store.LatestByApplication(context.Background(), "app-001")
	require.NoError(t, err)
	assert.Equal(t, "UNDER_REVIEW_BY_MA", latest.Status)
	assert.Equal(t, int64(4), latest.Version)
	assert.Equal(t, "Document doc-9 attached", latest.Comments)
}

func TestHandleDocumentEvent_VerifiedWithComment(t *testing.T) {
	store := &memHistoryStore{}
	seed(store, "app-002", "PENDING_AEW_VERIFICATION", 2)
	h := NewHandler(store, logger.NewTestLogger(t))

	env := documentEnvelope(events.TypeDocumentVerified, "app-002", "doc-4", "land deed checked")
	require.NoError(t, h.HandleDocumentEvent(context.Background(), env))

	latest, _ := store.LatestByApplication(context.Background(), "app-002")
	assert.Equal(t, "Document doc-4 verified: land deed checked", latest.Comments)
}

func TestHandleDocumentEvent_NoHistoryIsRetryable(t *testing.T) {
	store := &memHistoryStore{}
	h := NewHandler(store, logger.NewTestLogger(t))

	env := documentEnvelope(events.TypeDocumentAttached, "app-unknown", "doc-1", "")
	err := h.HandleDocumentEvent(context.Background(), env)
	assert.True(t, commonerrors.IsCode(err, commonerrors.ErrCodeEntityNotFound))
	assert.True(t, commonerrors.IsRetryable(err))
}

func TestHandleDocumentEvent_RedeliveryIsDropped(t *testing.T) {
	store := &memHistoryStore{}
	seed(store, "app-003", "SUBMITTED", 1)
	h := NewHandler(store, logger.NewTestLogger(t))

	env := documentEnvelope(events.TypeDocumentAttached, "app-003", "doc-2", "")
	require.NoError(t, h.HandleDocumentEvent(context.Background(), env))

	err := h.HandleDocumentEvent(context.Background(), env)
	assert.True(t, commonerrors.IsCode(err, commonerrors.ErrCodeDuplicateEvent))

	latest, _ := store.LatestByApplication(context.Background(), "app-003")
	assert.Equal(t, int64(2), latest.Version)
}

func TestHandleDocumentEvent_MissingUserFallsBackToSystem(t *testing.T) {
	store := &memHistoryStore{}
	seed(store, "app-004", "SUBMITTED", 1)
	h := NewHandler(store, logger.NewTestLogger(t))

	env := documentEnvelope(events.TypeDocumentAttached, "app-004", "doc-3", "")
	env.Payload.UserID = ""
	require.NoError(t, h.HandleDocumentEvent(context.Background(), env))

	latest, _ := store.LatestByApplication(context.Background(), "app-004")
	assert.Equal(t, "system", latest.UpdatedBy)
}
