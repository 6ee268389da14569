package partner

import (
	"github.com/aevon-lab/profile-relay/internal/core/normalize"
	"github.com/aevon-lab/profile-relay/internal/core/xdm"
)

// Envelope is the request body of one batch submission. Messages[i] is built
// from the i-th event of the batch.
type Envelope struct {
	Messages []xdm.Message `json:"messages"`
}

// Response is the 207 Multi-Status body of the batch endpoint.
type Response struct {
	Responses      []ResponseEntry `json:"responses"`
	InletID        string          `json:"inletId,omitempty"`
	BatchID        string          `json:"batchId,omitempty"`
	ReceivedTimeMs int64           `json:"receivedTimeMs,omitempty"`
}

// ResponseEntry is the outcome of one message, kept exactly as the partner
// sent it so it can be forwarded in error logs.
type ResponseEntry map[string]interface{}

// Failed reports whether the entry carries a status, which the partner only
// sets for rejected messages.
func (r ResponseEntry) Failed() bool {
	return normalize.Truthy(r["status"])
}

// Status returns the entry status as text, or "" for accepted messages.
func (r ResponseEntry) Status() string {
	return normalize.String(r["status"])
}
