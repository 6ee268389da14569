// Package reconcile matches a partner partial-status response back to the
// batch that produced it and turns every rejected position into an error log
// record.
package reconcile

import (
	"errors"
	"fmt"

	v1 "github.com/aevon-lab/profile-relay/internal/api/v1"
	"github.com/aevon-lab/profile-relay/internal/core/xdm"
	"github.com/aevon-lab/profile-relay/internal/partner"
	"github.com/google/uuid"
)

// ErrMisaligned means the response, batch and envelope do not have the same
// length, so failures cannot be attributed by position.
var ErrMisaligned = errors.New("partner response is not aligned with the batch")

const (
	DefaultEventName   = "Adobe Error"
	DefaultAnonymousID = "ibm_aep_error_log"
)

// Options controls how error log records are labelled.
type Options struct {
	EventName   string
	AnonymousID string
}

func (o Options) withDefaults() Options {
	if o.EventName == "" {
		o.EventName = DefaultEventName
	}
	if o.AnonymousID == "" {
		o.AnonymousID = DefaultAnonymousID
	}
	return o
}

// ErrorLogRecord is a synthetic track event describing one rejected message.
type ErrorLogRecord struct {
	MessageID   string     `json:"messageId"`
	Event       string     `json:"event"`
	Type        string     `json:"type"`
	AnonymousID string     `json:"anonymousId"`
	Properties  Properties `json:"properties"`
}

// Properties embeds the original event, the message sent for it and the
// partner verdict.
type Properties struct {
	SegmentEvent  v1.Event      `json:"segment_event"`
	AdobePayload  xdm.Message   `json:"adobe_payload"`
	AdobeResponse ResponseTrace `json:"adobe_response"`
}

// ResponseTrace pairs batch-level metadata with the per-message entry.
type ResponseTrace struct {
	AdobeBatch    BatchMeta             `json:"adobe_batch"`
	AdobeResponse partner.ResponseEntry `json:"adobe_response"`
}

type BatchMeta struct {
	InletID        string `json:"inletId,omitempty"`
	BatchID        string `json:"batchId,omitempty"`
	ReceivedTimeMs int64  `json:"receivedTimeMs,omitempty"`
}

// Reconcile emits one record per response entry carrying a status. Position i
// of the response refers to batch[i] and env.Messages[i]; the three must have
// equal length. No failures yields an empty, non-nil slice.
func Reconcile(resp *partner.Response, batch v1.Batch, env partner.Envelope, opts Options) ([]ErrorLogRecord, error) {
	if resp == nil {
		return nil, fmt.Errorf("%w: nil response", ErrMisaligned)
	}
	if len(batch) != len(env.Messages) {
		return nil, fmt.Errorf("%w: %d events, %d messages", ErrMisaligned, len(batch), len(env.Messages))
	}
	if len(resp.Responses) != len(batch) {
		return nil, fmt.Errorf("%w: %d events, %d responses", ErrMisaligned, len(batch), len(resp.Responses))
	}

	opts = opts.withDefaults()
	meta := BatchMeta{
		InletID:        resp.InletID,
		BatchID:        resp.BatchID,
		ReceivedTimeMs: resp.ReceivedTimeMs,
	}

	records := make([]ErrorLogRecord, 0)
	for i, entry := range resp.Responses {
		if !entry.Failed() {
			continue
		}
		records = append(records, ErrorLogRecord{
			MessageID:   uuid.NewString(),
			Event:       opts.EventName,
			Type:        "track",
			AnonymousID: opts.AnonymousID,
			Properties: Properties{
				SegmentEvent: batch[i],
				AdobePayload: env.Messages[i],
				AdobeResponse: ResponseTrace{
					AdobeBatch:    meta,
					AdobeResponse: entry,
				},
			},
		})
	}
	return records, nil
}

// FailedMessageIDs lists the original message ids of the given records.
func FailedMessageIDs(records []ErrorLogRecord) []string {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.Properties.SegmentEvent.MessageID)
	}
	return ids
}

// Surviving returns the events of batch that were not rejected, in order.
func Surviving(batch v1.Batch, records []ErrorLogRecord) v1.Batch {
	failed := make(map[string]struct{}, len(records))
	for _, id := range FailedMessageIDs(records) {
		failed[id] = struct{}{}
	}
	out := make(v1.Batch, 0, len(batch))
	for _, evt := range batch {
		if _, ok := failed[evt.MessageID]; ok {
			continue
		}
		out = append(out, evt)
	}
	return out
}
