// internal/events/envelope_test.go
package events

import (
	"testing"
	"time"

	commonerrors "agrisure-workers/internal/common/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Decode Tests
// ==========================

func TestDecode_Valid(t *testing.T) {
	eventID := uuid.NewString()
	raw := []byte(`{
		"eventId": "` + eventID + `",
		"eventType": "APPLICATION_SUBMITTED",
		"occurredAt": "2026-03-01T10:00:00Z",
		"payload": {
			"applicationId": "app-001",
			"userId": "user-001",
			"applicationTypeId": "type-crop",
			"version": 1
		}
	}`)

	env, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, eventID, env.EventID)
	assert.Equal(t, TypeApplicationSubmitted, env.EventType)
	assert.Equal(t, "app-001", env.Payload.ApplicationID)
	assert.Equal(t, "user-001", env.Payload.UserID)
	assert.Equal(t, int64(1), env.Payload.Version)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), env.OccurredAt)
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{{{`},
		{"missing eventId", `{"eventType":"X","occurredAt":"2026-03-01T10:00:00Z","payload":{"applicationId":"a"}}`},
		{"short eventId", `{"eventId":"abc","eventType":"X","occurredAt":"2026-03-01T10:00:00Z","payload":{"applicationId":"a"}}`},
		{"missing payload", `{"eventId":"` + uuid.NewString() + `","eventType":"X","occurredAt":"2026-03-01T10:00:00Z"}`},
		{"missing applicationId", `{"eventId":"` + uuid.NewString() + `","eventType":"X","occurredAt":"2026-03-01T10:00:00Z","payload":{}}`},
		{"empty eventType", `{"eventId":"` + uuid.NewString() + `","eventType":"","occurredAt":"2026-03-01T10:00:00Z","payload":{"applicationId":"a"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.raw))
			assert.Error(t, err)
			assert.True(t, commonerrors.IsCode(err, commonerrors.ErrCodePayloadInvalid))
			assert.False(t, commonerrors.IsRetryable(err))
		})
	}
}

func TestDecode_UnknownEventTypePassesSchema(t *testing.T) {
	// Routing policy, not schema, decides what to do with unknown types.
	raw := []byte(`{
		"eventId": "` + uuid.NewString() + `",
		"eventType": "SOMETHING_NEW",
		"occurredAt": "2026-03-01T10:00:00Z",
		"payload": {"applicationId": "app-001"}
	}`)
	env, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "SOMETHING_NEW", env.EventType)
}

// ==========================
// Encode Tests
// ==========================

func TestEncode_AuthTokenNeverSerialized(t *testing.T) {
	env := &Envelope{
		EventID:    uuid.NewString(),
		EventType:  TypeMAApproved,
		OccurredAt: time.Now().UTC(),
		Payload: Payload{
			ApplicationID: "app-001",
			AuthToken:     "secret-bearer",
		},
	}
	b, err := Encode(env)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "secret-bearer")
}

func TestEncode_RoundTripsThroughDecode(t *testing.T) {
	env := &Envelope{
		EventID:    uuid.NewString(),
		EventType:  TypeVerificationCompleted,
		OccurredAt: time.Now().UTC().Truncate(time.Second),
		Payload: Payload{
			ApplicationID: "app-002",
			Status:        "COMPLETED",
			Version:       3,
		},
	}
	b, err := Encode(env)
	require.NoError(t, err)

	got, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, env.EventID, got.EventID)
	assert.Equal(t, env.Payload, got.Payload)
}
