package errorlog

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	v1 "github.com/aevon-lab/profile-relay/internal/api/v1"
	relayerr "github.com/aevon-lab/profile-relay/internal/core/errors"
	"github.com/aevon-lab/profile-relay/internal/reconcile"
	"github.com/stretchr/testify/require"
)

func record(id string) reconcile.ErrorLogRecord {
	return reconcile.ErrorLogRecord{
		MessageID:   "log-" + id,
		Event:       reconcile.DefaultEventName,
		Type:        "track",
		AnonymousID: reconcile.DefaultAnonymousID,
		Properties: reconcile.Properties{
			SegmentEvent: v1.Event{MessageID: id},
		},
	}
}

func newTestReporter(url string, maxRetries int) *Reporter {
	return NewReporter(Config{
		Endpoint:     url,
		WriteKey:     "wk",
		Timeout:      2 * time.Second,
		MaxRetries:   maxRetries,
		BackoffMs:    1,
		BackoffMaxMs: 5,
		Concurrency:  4,
	})
}

func TestReport_SendsTrackCall(t *testing.T) {
	var gotAuth, gotType string
	var got map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	rep := newTestReporter(srv.URL, 0)
	rec := record("m-1")
	require.NoError(t, rep.Report(context.Background(), &rec))

	require.Equal(t, "Basic "+base64.StdEncoding.EncodeToString([]byte("wk:")), gotAuth)
	require.Equal(t, "application/json", gotType)
	require.Equal(t, "track", got["type"])
	require.Equal(t, "Adobe Error", got["event"])
	props := got["properties"].(map[string]interface{})
	require.Equal(t, "m-1", props["segment_event"].(map[string]interface{})["messageId"])
}

func TestReport_Classification(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"rate limited", http.StatusTooManyRequests},
		{"server error", http.StatusInternalServerError},
		{"bad gateway", http.StatusBadGateway},
		{"bad request is still retryable", http.StatusBadRequest},
		{"unauthorized is still retryable", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			rep := newTestReporter(srv.URL, 2)
			rec := record("m")
			err := rep.Report(context.Background(), &rec)
			require.Error(t, err)
			require.True(t, relayerr.IsRetryable(err))
			require.Equal(t, tt.status, relayerr.StatusCode(err))
			require.Equal(t, int32(3), atomic.LoadInt32(&calls), "initial attempt plus two retries")
		})
	}
}

func TestReport_RecoversAfterTransientFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	rep := newTestReporter(srv.URL, 3)
	rec := record("m")
	require.NoError(t, rep.Report(context.Background(), &rec))
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestReport_TransportFailureIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	rep := newTestReporter(url, 0)
	rec := record("m")
	err := rep.Report(context.Background(), &rec)
	require.True(t, relayerr.IsRetryable(err))
}

func TestReportAll_AllSettled(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]int{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body reconcile.ErrorLogRecord
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &body)
		id := body.Properties.SegmentEvent.MessageID

		mu.Lock()
		seen[id]++
		mu.Unlock()

		if id == "bad" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	rep := newTestReporter(srv.URL, 1)
	records := []reconcile.ErrorLogRecord{record("a"), record("bad"), record("c"), record("d")}

	outcomes := rep.ReportAll(context.Background(), records)
	require.Len(t, outcomes, 4)

	for i, want := range []string{"a", "bad", "c", "d"} {
		require.Equal(t, want, outcomes[i].MessageID)
	}
	require.NoError(t, outcomes[0].Err)
	require.Error(t, outcomes[1].Err)
	require.Equal(t, 2, outcomes[1].Attempts)
	require.NoError(t, outcomes[2].Err)
	require.NoError(t, outcomes[3].Err)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, seen["a"])
	require.Equal(t, 2, seen["bad"])
	require.Equal(t, 1, seen["c"])
	require.Equal(t, 1, seen["d"])
}

func TestReportAll_Empty(t *testing.T) {
	rep := newTestReporter("http://127.0.0.1:0", 0)
	require.Empty(t, rep.ReportAll(context.Background(), nil))
}

func TestReport_HonoursContextBetweenRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	rep := NewReporter(Config{
		Endpoint:     srv.URL,
		WriteKey:     "wk",
		Timeout:      2 * time.Second,
		MaxRetries:   5,
		BackoffMs:    1,
		BackoffMaxMs: 60000,
	})
	rec := record("m")
	start := time.Now()
	err := rep.Report(ctx, &rec)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestReport_RetryAfterIsCappedByBackoffMax(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "3600")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	rep := newTestReporter(srv.URL, 1)
	rec := record("m")
	start := time.Now()
	err := rep.Report(ctx, &rec)

	require.Error(t, err)
	require.NotErrorIs(t, err, context.DeadlineExceeded)
	require.Contains(t, err.Error(), "max retries exceeded")
	require.Equal(t, int32(2), calls.Load())
	require.Less(t, time.Since(start), time.Second)
}

func TestBackoff(t *testing.T) {
	rep := NewReporter(Config{BackoffMs: 100, BackoffMaxMs: 1000})
	throttled := &retryAfterError{after: time.Hour}

	tests := []struct {
		name    string
		rep     *Reporter
		attempt int
		lastErr error
		want    time.Duration
	}{
		{"first retry", rep, 1, nil, 100 * time.Millisecond},
		{"doubles", rep, 3, nil, 400 * time.Millisecond},
		{"capped", rep, 5, nil, time.Second},
		{"many attempts do not overflow", rep, 200, nil, time.Second},
		{"retry after capped", rep, 1, throttled, time.Second},
		{"short retry after honoured", rep, 1, &retryAfterError{after: 300 * time.Millisecond}, 300 * time.Millisecond},
		{"no configured max uses default", NewReporter(Config{BackoffMs: 100}), 100, throttled, defaultMaxWait},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.rep.backoff(tt.attempt, tt.lastErr))
		})
	}
}

func TestParseRetryAfter(t *testing.T) {
	require.Equal(t, time.Duration(0), parseRetryAfter(""))
	require.Equal(t, 3*time.Second, parseRetryAfter("3"))
	require.Equal(t, time.Duration(0), parseRetryAfter("Wed, 21 Oct 2015 07:28:00 GMT"))
}
