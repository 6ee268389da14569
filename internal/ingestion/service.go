package ingestion

import (
	"context"

	v1 "github.com/aevon-lab/profile-relay/internal/api/v1"
	"github.com/aevon-lab/profile-relay/internal/core/storage"
	"github.com/aevon-lab/profile-relay/internal/relay"
	"github.com/gin-gonic/gin"
)

// BatchProcessor runs one batch invocation.
type BatchProcessor interface {
	OnBatch(ctx context.Context, batch v1.Batch) (*relay.Result, error)
}

type Service struct {
	processor        BatchProcessor
	failures         storage.FailureStore
	maxBodySizeBytes int
}

func NewService(processor BatchProcessor, failures storage.FailureStore, maxBodySizeMB int) *Service {
	if processor == nil {
		panic("ingestion: processor must not be nil")
	}
	if failures == nil {
		failures = storage.NopStore{}
	}
	if maxBodySizeMB <= 0 {
		maxBodySizeMB = 1 // default to 1MB
	}
	return &Service{
		processor:        processor,
		failures:         failures,
		maxBodySizeBytes: maxBodySizeMB * 1024 * 1024,
	}
}

// RegisterRoutes registers the batch delivery routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/batch", s.BatchHandler)
	r.GET("/v1/failures/:message_id", s.ListFailuresHandler)
}
