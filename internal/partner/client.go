package partner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	relayerr "github.com/aevon-lab/profile-relay/internal/core/errors"
)

const (
	// maxErrorBodyBytes bounds how much of a rejected response is kept for logs.
	maxErrorBodyBytes = 2048

	syncValidationParam = "syncValidation=true"
)

// Config holds what the client needs to reach the streaming endpoint.
type Config struct {
	Endpoint string
	Token    string
	Debug    bool
	Timeout  time.Duration
}

// Client submits message batches to the partner streaming batch endpoint.
// It never retries; classification tells the caller whether to.
type Client struct {
	client     *http.Client
	url        string
	authHeader string
}

// NewClient resolves the endpoint once. A zero timeout disables the
// per-request deadline.
func NewClient(cfg Config) *Client {
	return NewClientWithHTTP(cfg, &http.Client{Timeout: cfg.Timeout})
}

// NewClientWithHTTP is NewClient with a caller supplied HTTP client.
func NewClientWithHTTP(cfg Config, hc *http.Client) *Client {
	return &Client{
		client:     hc,
		url:        ResolveURL(cfg.Endpoint, cfg.Debug),
		authHeader: "Bearer " + cfg.Token,
	}
}

// URL returns the resolved submission URL.
func (c *Client) URL() string { return c.url }

// ResolveURL adds the synchronous validation flag in debug mode and makes sure
// the URL targets the batch collection path. A path whose collection segment
// is already followed by "batch" is left alone. Applying it twice is harmless.
func ResolveURL(endpoint string, debug bool) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}

	if debug && !strings.Contains(u.RawQuery, syncValidationParam) {
		if u.RawQuery == "" {
			u.RawQuery = syncValidationParam
		} else {
			u.RawQuery += "&" + syncValidationParam
		}
	}

	segments := strings.Split(u.Path, "/")
	for i, seg := range segments {
		if seg != "collection" {
			continue
		}
		if i+1 < len(segments) && segments[i+1] == "batch" {
			break
		}
		segments = append(segments[:i+1], append([]string{"batch"}, segments[i+1:]...)...)
		u.Path = strings.Join(segments, "/")
		u.RawPath = ""
		break
	}

	return u.String()
}

// Submit posts the envelope as one request.
//
//   - 207 decodes and returns the per-message response.
//   - 429 and 503 yield a RetryableError carrying the status.
//   - any other status, a transport failure or an undecodable 207 body yields
//     a FatalError.
func (c *Client) Submit(ctx context.Context, env Envelope) (*Response, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return nil, &relayerr.FatalError{Message: "failed to marshal partner envelope", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, &relayerr.FatalError{Message: "failed to create partner request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.authHeader)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		slog.Error("[Partner] Request failed", "error", err, "messages", len(env.Messages))
		return nil, &relayerr.FatalError{Message: "partner request HTTP error", Err: err}
	}
	defer resp.Body.Close()

	slog.Info("[Partner] Response received",
		"status", resp.StatusCode,
		"messages", len(env.Messages),
		"duration", time.Since(start))

	switch resp.StatusCode {
	case http.StatusMultiStatus:
		return decodeResponse(resp.StatusCode, resp.Body)
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return nil, &relayerr.RetryableError{
			Message:    "partner rate limit exceeded, retry the batch",
			StatusCode: resp.StatusCode,
			Err:        bodyError(resp.Body),
		}
	default:
		return nil, &relayerr.FatalError{
			Message:    "partner API error",
			StatusCode: resp.StatusCode,
			Err:        bodyError(resp.Body),
		}
	}
}

func decodeResponse(status int, r io.Reader) (*Response, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var out Response
	if err := dec.Decode(&out); err != nil {
		return nil, &relayerr.FatalError{Message: "failed to decode partner response", StatusCode: status, Err: err}
	}
	return &out, nil
}

// bodyError captures a bounded excerpt of a rejected response body.
func bodyError(r io.Reader) error {
	b, _ := io.ReadAll(io.LimitReader(r, maxErrorBodyBytes))
	if len(b) == 0 {
		return nil
	}
	return fmt.Errorf("response body: %s", strings.TrimSpace(string(b)))
}
