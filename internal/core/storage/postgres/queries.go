package postgres

// SQL queries for the failed record audit trail

const (
	// queryInsertFailure records one rejected message.
	// log_message_id is unique, so replaying the same reconciliation is a no-op.
	queryInsertFailure = `
		INSERT INTO failed_records (
			invocation_id, message_id, log_message_id,
			inlet_id, batch_id, partner_status,
			record, reported, report_error, attempts, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (log_message_id) DO NOTHING
	`

	// queryListFailuresByMessageID returns the newest failures for one
	// original message id.
	queryListFailuresByMessageID = `
		SELECT
			invocation_id, record, reported, report_error, attempts, created_at
		FROM failed_records
		WHERE message_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	queryFailedRecordsTableExists = `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_name = 'failed_records'
		)
	`
)
