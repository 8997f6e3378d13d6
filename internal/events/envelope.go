// internal/events/envelope.go
package events

import (
	"encoding/json"
	"time"

	commonerrors "agrisure-workers/internal/common/errors"

	"github.com/xeipuuv/gojsonschema"
)

// Envelope is the immutable wire contract shared by every topic. Fields are
// never mutated after decode; handlers read, never write.
type Envelope struct {
	EventID    string    `json:"eventId"`
	EventType  string    `json:"eventType"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    Payload   `json:"payload"`
}

// Payload carries the event body. Only applicationId is required by the
// schema; the remaining fields depend on the event type.
type Payload struct {
	ApplicationID     string `json:"applicationId"`
	UserID            string `json:"userId,omitempty"`
	ApplicationTypeID string `json:"applicationTypeId,omitempty"`
	Status            string `json:"status,omitempty"`
	Version           int64  `json:"version,omitempty"`
	Comments          string `json:"comments,omitempty"`
	BatchID           string `json:"batchId,omitempty"`
	DocumentID        string `json:"documentId,omitempty"`
	AuthToken         string `json:"-"`
}

// envelopeSchema rejects malformed records before they reach a handler.
// Unknown eventType values pass here; the dispatcher drops them by policy.
const envelopeSchema = `{
	"type": "object",
	"required": ["eventId", "eventType", "occurredAt", "payload"],
	"properties": {
		"eventId": {"type": "string", "minLength": 36, "maxLength": 36},
		"eventType": {"type": "string", "minLength": 1},
		"occurredAt": {"type": "string", "format": "date-time"},
		"payload": {
			"type": "object",
			"required": ["applicationId"],
			"properties": {
				"applicationId": {"type": "string", "minLength": 1},
				"userId": {"type": "string"},
				"applicationTypeId": {"type": "string"},
				"status": {"type": "string"},
				"version": {"type": "integer"},
				"comments": {"type": "string"},
				"batchId": {"type": "string"},
				"documentId": {"type": "string"}
			}
		}
	}
}`

var schemaLoader = gojsonschema.NewStringLoader(envelopeSchema)

// Decode validates raw bytes against the envelope schema and unmarshals them.
// Validation failures are PAYLOAD_INVALID: redelivery cannot fix a malformed
// record, so the dispatcher dead-letters it.
func Decode(raw []byte) (*Envelope, error) {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, commonerrors.NewPayloadInvalidError(err.Error())
	}
	if !result.Valid() {
		details := ""
		for _, desc := range result.Errors() {
			if details != "" {
				details += "; "
			}
			details += desc.String()
		}
		return nil, commonerrors.NewPayloadInvalidError(details)
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, commonerrors.NewPayloadInvalidError(err.Error())
	}
	return &env, nil
}

// Encode serializes an envelope for publication.
func Encode(env *Envelope) ([]byte, error) {
	return json.Marshal(env)
}
