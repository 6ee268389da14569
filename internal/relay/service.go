// Package relay runs one batch invocation end to end: build partner messages,
// submit them, reconcile the partial-status response and report the rejected
// records.
package relay

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	v1 "github.com/aevon-lab/profile-relay/internal/api/v1"
	relayerr "github.com/aevon-lab/profile-relay/internal/core/errors"
	"github.com/aevon-lab/profile-relay/internal/core/storage"
	"github.com/aevon-lab/profile-relay/internal/core/xdm"
	"github.com/aevon-lab/profile-relay/internal/errorlog"
	"github.com/aevon-lab/profile-relay/internal/partner"
	"github.com/aevon-lab/profile-relay/internal/reconcile"
	"github.com/google/uuid"
)

// Submitter sends one envelope to the partner batch endpoint.
type Submitter interface {
	Submit(ctx context.Context, env partner.Envelope) (*partner.Response, error)
}

// Reporter delivers error log records and settles every one of them.
type Reporter interface {
	ReportAll(ctx context.Context, records []reconcile.ErrorLogRecord) []errorlog.Outcome
}

type Service struct {
	builder   *xdm.Builder
	submitter Submitter
	reporter  Reporter
	store     storage.FailureStore
	opts      reconcile.Options
	now       func() time.Time
}

func NewService(builder *xdm.Builder, submitter Submitter, reporter Reporter, store storage.FailureStore, opts reconcile.Options) *Service {
	if builder == nil {
		panic("relay: builder must not be nil")
	}
	if submitter == nil {
		panic("relay: submitter must not be nil")
	}
	if reporter == nil {
		panic("relay: reporter must not be nil")
	}
	if store == nil {
		store = storage.NopStore{}
	}
	return &Service{
		builder:   builder,
		submitter: submitter,
		reporter:  reporter,
		store:     store,
		opts:      opts,
		now:       time.Now,
	}
}

// Result summarizes one invocation.
type Result struct {
	InvocationID     string
	Sent             int
	Failed           int
	FailedMessageIDs []string
	Reported         int
	ReportFailures   int

	// Surviving holds the events the partner accepted, in batch order.
	Surviving v1.Batch
}

// OnBatch processes one batch. Partner classification errors are returned
// unchanged so the caller can decide between retrying the whole batch and
// giving up. Error reporting problems never fail the invocation.
func (s *Service) OnBatch(ctx context.Context, batch v1.Batch) (*Result, error) {
	res := &Result{
		InvocationID:     uuid.NewString(),
		FailedMessageIDs: []string{},
	}
	if len(batch) == 0 {
		slog.Info("[Relay] Empty batch, nothing to send", "invocation_id", res.InvocationID)
		return res, nil
	}

	env := partner.Envelope{Messages: s.builder.BuildAll(batch)}
	res.Sent = len(env.Messages)

	slog.Info("[Relay] Submitting batch",
		"invocation_id", res.InvocationID,
		"kind", s.builder.Kind(),
		"messages", res.Sent)

	resp, err := s.submitter.Submit(ctx, env)
	if err != nil {
		slog.Warn("[Relay] Batch submission failed",
			"invocation_id", res.InvocationID,
			"retryable", relayerr.IsRetryable(err),
			"status", relayerr.StatusCode(err),
			"error", err)
		return nil, err
	}

	records, err := reconcile.Reconcile(resp, batch, env, s.opts)
	if err != nil {
		slog.Error("[Relay] Cannot attribute partner response",
			"invocation_id", res.InvocationID,
			"error", err)
		return nil, &relayerr.FatalError{
			Message:    "partner response misaligned",
			StatusCode: http.StatusMultiStatus,
			Err:        err,
		}
	}

	res.Failed = len(records)
	res.FailedMessageIDs = reconcile.FailedMessageIDs(records)
	res.Surviving = reconcile.Surviving(batch, records)

	if len(records) == 0 {
		slog.Info("[Relay] Batch accepted",
			"invocation_id", res.InvocationID,
			"batch_id", resp.BatchID,
			"messages", res.Sent)
		return res, nil
	}

	slog.Warn("[Relay] Partner rejected messages",
		"invocation_id", res.InvocationID,
		"batch_id", resp.BatchID,
		"failed", res.Failed,
		"message_ids", res.FailedMessageIDs)

	outcomes := s.reporter.ReportAll(ctx, records)
	for _, o := range outcomes {
		if o.Err != nil {
			res.ReportFailures++
			slog.Error("[Relay] Error log not delivered",
				"invocation_id", res.InvocationID,
				"message_id", o.MessageID,
				"attempts", o.Attempts,
				"error", o.Err)
			continue
		}
		res.Reported++
	}

	s.persist(ctx, res.InvocationID, records, outcomes)

	slog.Info("[Relay] Error logs settled",
		"invocation_id", res.InvocationID,
		"reported", res.Reported,
		"report_failures", res.ReportFailures)

	return res, nil
}

// persist writes the audit trail. Store failures are logged only.
func (s *Service) persist(ctx context.Context, invocationID string, records []reconcile.ErrorLogRecord, outcomes []errorlog.Outcome) {
	now := s.now().UTC()
	failed := make([]storage.FailedRecord, len(records))
	for i := range records {
		failed[i] = storage.FailedRecord{
			InvocationID: invocationID,
			Record:       records[i],
			CreatedAt:    now,
		}
		if i < len(outcomes) {
			failed[i].Reported = outcomes[i].Err == nil
			failed[i].Attempts = outcomes[i].Attempts
			if outcomes[i].Err != nil {
				failed[i].ReportErr = outcomes[i].Err.Error()
			}
		}
	}

	if err := s.store.SaveFailures(ctx, failed); err != nil {
		slog.Error("[Relay] Failed to persist failed records",
			"invocation_id", invocationID,
			"count", len(failed),
			"error", err)
	}
}
