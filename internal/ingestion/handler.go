package ingestion

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	v1 "github.com/aevon-lab/profile-relay/internal/api/v1"
	httperr "github.com/aevon-lab/profile-relay/internal/core/errors"
	"github.com/aevon-lab/profile-relay/internal/reconcile"
	"github.com/gin-gonic/gin"
)

const (
	msgReadBodyFailed   = "Failed to read request body"
	msgInvalidJSON      = "Invalid JSON body"
	msgRetryBatch       = "Partner is throttling, retry the batch"
	msgBatchFailed      = "Partner rejected the batch"
	msgMisaligned       = "Partner response does not match the batch"
	msgProcessingFailed = "Failed to process batch"
	msgListFailed       = "Failed to list failures"

	// retryAfterSeconds is the hint returned with retryable outcomes.
	retryAfterSeconds = "1"

	defaultFailuresLimit = 20
)

// ingestionError carries the structured HTTP error shape from a helper back to the orchestrator.
// Helpers return this instead of writing to gin.Context directly, keeping them decoupled from HTTP.
type ingestionError struct {
	statusCode int
	errorType  string
	message    string
	details    interface{}
	retryAfter string
}

func (e *ingestionError) Error() string {
	return e.message
}

// BatchHandler handles one batch delivery from the upstream pipeline.
func (s *Service) BatchHandler(c *gin.Context) {
	batch, payloadSize, ierr := s.parseBatch(c)
	if ierr != nil {
		writeError(c, ierr)
		return
	}

	slog.Info("[Ingestion] Received batch",
		"events", len(batch),
		"payload_size", payloadSize)

	res, err := s.processor.OnBatch(c.Request.Context(), batch)
	if err != nil {
		writeError(c, classify(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"invocation_id": res.InvocationID,
		"sent":          res.Sent,
		"failed":        res.Failed,
		"reported":      res.Reported,
	})
}

// parseBatch reads the raw request body and decodes it into a validated batch.
// Returns the raw payload size for structured logging upstream.
func (s *Service) parseBatch(c *gin.Context) (v1.Batch, int, *ingestionError) {
	maxBytes := int64(s.maxBodySizeBytes)
	limitedBody := io.LimitReader(c.Request.Body, maxBytes+1) // +1 to detect oversized requests

	bodyBytes, err := io.ReadAll(limitedBody)
	if err != nil {
		slog.Error("[Ingestion] Failed to read request body", "error", err)
		return nil, 0, &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgReadBodyFailed,
		}
	}

	if int64(len(bodyBytes)) > maxBytes {
		slog.Warn("[Ingestion] Request body exceeds maximum size", "size", len(bodyBytes), "max", maxBytes)
		return nil, len(bodyBytes), &ingestionError{
			statusCode: http.StatusRequestEntityTooLarge,
			errorType:  httperr.HttpPayloadTooLarge,
			message:    "Request body exceeds maximum allowed size",
			details: map[string]interface{}{
				"max_size_mb": maxBytes / (1024 * 1024),
			},
		}
	}

	batch, err := v1.DecodeBatch(bodyBytes)
	if err != nil {
		slog.Warn("[Ingestion] Invalid JSON body received", "error", err, "payload_size", len(bodyBytes))
		return nil, len(bodyBytes), &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    msgInvalidJSON,
		}
	}

	if err := batch.Validate(); err != nil {
		slog.Warn("[Ingestion] Batch validation failed", "error", err, "events", len(batch))
		return nil, len(bodyBytes), &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidBatchError,
			message:    err.Error(),
		}
	}

	return batch, len(bodyBytes), nil
}

// classify maps an invocation failure onto the delivery runtime contract:
// 503 asks for the whole batch to be retried, 422 marks it as failed for good.
func classify(err error) *ingestionError {
	switch {
	case httperr.IsRetryable(err):
		return &ingestionError{
			statusCode: http.StatusServiceUnavailable,
			errorType:  httperr.HttpRetryableError,
			message:    msgRetryBatch,
			details:    partnerDetails(err),
			retryAfter: retryAfterSeconds,
		}
	case errors.Is(err, reconcile.ErrMisaligned):
		return &ingestionError{
			statusCode: http.StatusUnprocessableEntity,
			errorType:  httperr.HttpPartnerMisalignment,
			message:    msgMisaligned,
			details:    partnerDetails(err),
		}
	case httperr.IsFatal(err):
		return &ingestionError{
			statusCode: http.StatusUnprocessableEntity,
			errorType:  httperr.HttpFatalError,
			message:    msgBatchFailed,
			details:    partnerDetails(err),
		}
	default:
		slog.Error("[Ingestion] Unclassified batch failure", "error", err)
		return &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgProcessingFailed,
		}
	}
}

func partnerDetails(err error) map[string]interface{} {
	details := map[string]interface{}{"error": err.Error()}
	if status := httperr.StatusCode(err); status != 0 {
		details["partner_status"] = status
	}
	return details
}

// failureView is the JSON shape of one recorded failure.
type failureView struct {
	InvocationID string                   `json:"invocation_id"`
	Reported     bool                     `json:"reported"`
	ReportError  string                   `json:"report_error,omitempty"`
	Attempts     int                      `json:"attempts"`
	CreatedAt    time.Time                `json:"created_at"`
	Record       reconcile.ErrorLogRecord `json:"record"`
}

// listFailuresQuery leaves Limit nil when the parameter is absent so an
// explicit zero is still range checked.
type listFailuresQuery struct {
	Limit *int `form:"limit" binding:"omitempty,min=1,max=500"`
}

// ListFailuresHandler returns the recorded failures of one original message.
func (s *Service) ListFailuresHandler(c *gin.Context) {
	messageID := c.Param("message_id")

	var q listFailuresQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeError(c, &ingestionError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidQueryError,
			message:    err.Error(),
		})
		return
	}
	limit := defaultFailuresLimit
	if q.Limit != nil {
		limit = *q.Limit
	}

	records, err := s.failures.ListFailures(c.Request.Context(), messageID, limit)
	if err != nil {
		slog.Error("[Ingestion] Failed to list failures", "message_id", messageID, "error", err)
		writeError(c, &ingestionError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgListFailed,
		})
		return
	}

	out := make([]failureView, 0, len(records))
	for _, r := range records {
		out = append(out, failureView{
			InvocationID: r.InvocationID,
			Reported:     r.Reported,
			ReportError:  r.ReportErr,
			Attempts:     r.Attempts,
			CreatedAt:    r.CreatedAt,
			Record:       r.Record,
		})
	}
	c.JSON(http.StatusOK, out)
}

// writeError serializes an ingestionError as the JSON HTTP response.
func writeError(c *gin.Context, err *ingestionError) {
	if err.retryAfter != "" {
		c.Header("Retry-After", err.retryAfter)
	}
	c.JSON(err.statusCode, httperr.ErrorResponse{
		ErrorType: err.errorType,
		Message:   err.message,
		Details:   err.details,
	})
}
