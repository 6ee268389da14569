package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/aevon-lab/profile-relay/internal/core/storage"
)

// marshalRecord serializes the error log record for the JSONB column.
func marshalRecord(rec *storage.FailedRecord) ([]byte, error) {
	b, err := json.Marshal(rec.Record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal error log record: %w", err)
	}
	return b, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanFailureRow scans one failed_records row.
// Compatible with both sql.Row (single) and sql.Rows (multiple).
func scanFailureRow(row scanner) (*storage.FailedRecord, error) {
	var rec storage.FailedRecord
	var recordJSON []byte

	err := row.Scan(
		&rec.InvocationID,
		&recordJSON,
		&rec.Reported,
		&rec.ReportErr,
		&rec.Attempts,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan failure row: %w", err)
	}

	if err := json.Unmarshal(recordJSON, &rec.Record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal error log record: %w", err)
	}

	return &rec, nil
}
