package storage

import (
	"context"
	"time"

	"github.com/aevon-lab/profile-relay/internal/reconcile"
)

// FailedRecord is one rejected message together with how its error report went.
type FailedRecord struct {
	// InvocationID groups the records of one batch invocation.
	InvocationID string
	Record       reconcile.ErrorLogRecord
	// Reported is true once the error log was accepted by the tracking API.
	Reported  bool
	ReportErr string
	Attempts  int
	CreatedAt time.Time
}

// FailureStore keeps an audit trail of messages the partner rejected.
type FailureStore interface {
	SaveFailures(ctx context.Context, records []FailedRecord) error

	// ListFailures returns the most recent failures for one original message id.
	ListFailures(ctx context.Context, messageID string, limit int) ([]FailedRecord, error)
}

// NopStore discards everything. It is used when no database is configured.
type NopStore struct{}

func (NopStore) SaveFailures(context.Context, []FailedRecord) error { return nil }

func (NopStore) ListFailures(context.Context, string, int) ([]FailedRecord, error) {
	return nil, nil
}
