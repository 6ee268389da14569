// Package errorlog sends reconciled failure records to the analytics tracking
// API so they show up next to the events that caused them.
package errorlog

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	relayerr "github.com/aevon-lab/profile-relay/internal/core/errors"
	"github.com/aevon-lab/profile-relay/internal/reconcile"
	"golang.org/x/sync/errgroup"
)

// DefaultEndpoint is the public tracking API.
const DefaultEndpoint = "https://api.segment.io/v1/track"

// Config holds the reporter settings.
type Config struct {
	Endpoint     string
	WriteKey     string
	Timeout      time.Duration
	MaxRetries   int
	BackoffMs    int
	BackoffMaxMs int
	Concurrency  int
}

// Reporter sends error log records one request per record.
type Reporter struct {
	client       *http.Client
	endpoint     string
	authHeader   string
	maxRetries   int
	backoffMs    int
	backoffMaxMs int
	concurrency  int
}

// Outcome is the settled result of reporting one record.
type Outcome struct {
	MessageID string
	Attempts  int
	Err       error
}

// NewReporter builds a reporter. The write key is sent as the basic-auth user
// with an empty password.
func NewReporter(cfg Config) *Reporter {
	return NewReporterWithHTTP(cfg, &http.Client{Timeout: cfg.Timeout})
}

// NewReporterWithHTTP is NewReporter with a caller supplied HTTP client.
func NewReporterWithHTTP(cfg Config, hc *http.Client) *Reporter {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	return &Reporter{
		client:       hc,
		endpoint:     endpoint,
		authHeader:   "Basic " + base64.StdEncoding.EncodeToString([]byte(cfg.WriteKey+":")),
		maxRetries:   cfg.MaxRetries,
		backoffMs:    cfg.BackoffMs,
		backoffMaxMs: cfg.BackoffMaxMs,
		concurrency:  cfg.Concurrency,
	}
}

// ReportAll sends every record concurrently. Each send settles on its own; a
// failure never cancels the others. outcomes[i] belongs to records[i].
func (r *Reporter) ReportAll(ctx context.Context, records []reconcile.ErrorLogRecord) []Outcome {
	outcomes := make([]Outcome, len(records))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i := range records {
		i := i
		g.Go(func() error {
			attempts, err := r.report(ctx, &records[i])
			outcomes[i] = Outcome{
				MessageID: records[i].Properties.SegmentEvent.MessageID,
				Attempts:  attempts,
				Err:       err,
			}
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// Report sends one record, retrying retryable failures up to the configured
// limit with capped exponential backoff.
func (r *Reporter) Report(ctx context.Context, record *reconcile.ErrorLogRecord) error {
	_, err := r.report(ctx, record)
	return err
}

func (r *Reporter) report(ctx context.Context, record *reconcile.ErrorLogRecord) (int, error) {
	body, err := json.Marshal(record)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal error log: %w", err)
	}

	var lastErr error
	attempt := 0
	for ; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return attempt, ctx.Err()
			case <-time.After(r.backoff(attempt, lastErr)):
			}
		}

		lastErr = r.send(ctx, body)
		if lastErr == nil {
			slog.Info("[ErrorLog] Error log sent",
				"message_id", record.Properties.SegmentEvent.MessageID,
				"attempts", attempt+1)
			return attempt + 1, nil
		}
		if !relayerr.IsRetryable(lastErr) {
			return attempt + 1, lastErr
		}
		slog.Warn("[ErrorLog] Retryable error sending error log",
			"message_id", record.Properties.SegmentEvent.MessageID,
			"attempt", attempt+1,
			"error", lastErr)
	}

	return attempt, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// send performs one POST and classifies the outcome. Every failure is
// retryable, including 4xx responses other than 429.
func (r *Reporter) send(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request error: %w", err)
	}
	req.Header.Set("Authorization", r.authHeader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return &relayerr.RetryableError{Message: "error log request failed", Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return &retryAfterError{
			RetryableError: relayerr.RetryableError{
				Message:    "retryable error sending error log",
				StatusCode: resp.StatusCode,
			},
			after: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	// TODO: confirm with the tracking API owners whether 4xx should be terminal.
	return &relayerr.RetryableError{
		Message:    "non-retryable error sending error log",
		StatusCode: resp.StatusCode,
	}
}

// defaultMaxWait caps retry waits when no backoff maximum is configured.
const defaultMaxWait = 5 * time.Second

// backoff returns the wait before the given retry. Both the exponential delay
// and a server Retry-After hint are capped by maxWait.
func (r *Reporter) backoff(attempt int, lastErr error) time.Duration {
	limit := r.maxWait()
	if ra, ok := lastErr.(*retryAfterError); ok && ra.after > 0 {
		return min(ra.after, limit)
	}

	wait := time.Duration(r.backoffMs) * time.Millisecond
	for i := 1; i < attempt && wait < limit; i++ {
		wait *= 2
	}
	return min(wait, limit)
}

func (r *Reporter) maxWait() time.Duration {
	if r.backoffMaxMs > 0 {
		return time.Duration(r.backoffMaxMs) * time.Millisecond
	}
	return defaultMaxWait
}

// retryAfterError is a RetryableError that carries the server's Retry-After hint.
type retryAfterError struct {
	relayerr.RetryableError
	after time.Duration
}

func (e *retryAfterError) Unwrap() error { return &e.RetryableError }

func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return 0
}
