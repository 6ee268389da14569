package v1

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Event is one analytics track event as delivered by the upstream pipeline.
// Only the attributes the relay reads are typed; the full original document is
// retained so it can be echoed back verbatim in error logs.
type Event struct {
	// MessageID is unique within a batch and is how failures are reported back.
	MessageID string `json:"messageId"`

	// Type is the call type, "track" for everything this relay receives.
	Type string `json:"type,omitempty"`

	// Event is the track event name.
	Event string `json:"event,omitempty"`

	UserID      string `json:"userId,omitempty"`
	AnonymousID string `json:"anonymousId,omitempty"`

	// Timestamp is kept as sent; the relay never reformats it.
	Timestamp string `json:"timestamp,omitempty"`

	// Properties carries the loosely typed source fields. Numbers decode as
	// json.Number so their original text survives.
	Properties map[string]interface{} `json:"properties,omitempty"`

	raw json.RawMessage
}

// eventFields mirrors Event without its methods to avoid recursive decoding.
type eventFields Event

// UnmarshalJSON decodes the typed attributes and keeps a copy of the raw document.
func (e *Event) UnmarshalJSON(data []byte) error {
	var fields eventFields
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return err
	}
	*e = Event(fields)
	e.raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON returns the original document when the event was decoded from
// JSON, otherwise the typed attributes.
func (e Event) MarshalJSON() ([]byte, error) {
	if len(e.raw) > 0 {
		return e.raw, nil
	}
	return json.Marshal(eventFields(e))
}

// Validate ensures the event carries the attributes the relay depends on.
func (e *Event) Validate() error {
	if e.MessageID == "" {
		return fmt.Errorf("messageId is required")
	}
	return nil
}

// Batch is an ordered set of events processed together. Position is the
// correlation key with the partner response and must never be reordered.
type Batch []Event

// Validate checks every event, reporting the first offending position.
func (b Batch) Validate() error {
	if len(b) == 0 {
		return fmt.Errorf("batch is empty")
	}
	for i := range b {
		if err := b[i].Validate(); err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
	}
	return nil
}

// DecodeBatch accepts either a bare JSON array of events or an object with a
// "batch" array.
func DecodeBatch(data []byte) (Batch, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty body")
	}

	if trimmed[0] == '[' {
		var batch Batch
		if err := json.Unmarshal(trimmed, &batch); err != nil {
			return nil, fmt.Errorf("failed to decode batch: %w", err)
		}
		return batch, nil
	}

	var wrapped struct {
		Batch Batch `json:"batch"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to decode batch: %w", err)
	}
	if wrapped.Batch == nil {
		return nil, fmt.Errorf("missing batch array")
	}
	return wrapped.Batch, nil
}
