package outbox

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	appoutbox "akwa/internal/app/outbox"
)

const (
	specVersion   = "1.0"
	typeSuffix    = ".v1"
	ContentType   = "application/cloudevents+json"
	defaultSource = "app://akwa"
)

var ErrInvalidEnvelope = errors.New("outbox: invalid event envelope")

// Envelope is the CloudEvents structured form published for every record.
type Envelope struct {
	SpecVersion     string          `json:"specversion"`
	ID              string          `json:"id"`
	Type            string          `json:"type"`
	Source          string          `json:"source"`
	Subject         string          `json:"subject,omitempty"`
	Time            time.Time       `json:"time"`
	DataContentType string          `json:"datacontenttype"`
	Data            json.RawMessage `json:"data"`
	TraceParent     string          `json:"traceparent,omitempty"`
}

// EventName strips the version suffix from Type.
func (e Envelope) EventName() string {
	return strings.TrimSuffix(e.Type, typeSuffix)
}

// Wrap builds the envelope for rec. The envelope id is the outbox record id
// so consumers can deduplicate redeliveries.
func Wrap(rec appoutbox.EventRecord, source string) ([]byte, error) {
	if !json.Valid(rec.Payload) {
		return nil, ErrInvalidEnvelope
	}
	if source == "" {
		source = defaultSource
	}
	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}
	return json.Marshal(Envelope{
		SpecVersion:     specVersion,
		ID:              id,
		Type:            rec.Name + typeSuffix,
		Source:          source,
		Subject:         rec.Aggregate,
		Time:            rec.OccurredAt.UTC(),
		DataContentType: "application/json",
		Data:            rec.Payload,
		TraceParent:     rec.Headers["traceparent"],
	})
}

func Unwrap(payload []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Envelope{}, errors.Join(ErrInvalidEnvelope, err)
	}
	if env.ID == "" || env.Type == "" {
		return Envelope{}, ErrInvalidEnvelope
	}
	return env, nil
}
