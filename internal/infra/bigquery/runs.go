package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/carteira/internal/store"
)

// Run statuses.
const (
	StatusRunning = "RUNNING"
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// maxErrorMessageLen caps error_message, in characters, so a huge model response never bloats the table.
const maxErrorMessageLen = 2000

// RunRow is one row of the runs table.
type RunRow struct {
	RunID   string `bigquery:"run_id"`  // REQUIRED
	Kind    string `bigquery:"kind"`    // REQUIRED
	Subject string `bigquery:"subject"` // NULLABLE
	UserID  int64  `bigquery:"user_id"` // NULLABLE

	StartedTS  time.Time              `bigquery:"started_ts"`  // REQUIRED
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"` // NULLABLE

	Status       string `bigquery:"status"`        // NULLABLE
	ErrorMessage string `bigquery:"error_message"` // NULLABLE

	ItemsTotal   bigquery.NullInt64 `bigquery:"items_total"`   // NULLABLE
	ItemsCreated bigquery.NullInt64 `bigquery:"items_created"` // NULLABLE
}

// toStore converts a scanned row into the backend-neutral form.
func (r *RunRow) toStore() *store.RunRow {
	out := &store.RunRow{
		RunID:        r.RunID,
		Kind:         r.Kind,
		Subject:      r.Subject,
		UserID:       r.UserID,
		StartedAt:    r.StartedTS,
		Status:       r.Status,
		ErrorMessage: r.ErrorMessage,
	}
	if r.FinishedTS.Valid {
		finished := r.FinishedTS.Timestamp
		out.FinishedAt = &finished
	}
	if r.ItemsTotal.Valid {
		out.ItemsTotal = int(r.ItemsTotal.Int64)
	}
	if r.ItemsCreated.Valid {
		out.ItemsCreated = int(r.ItemsCreated.Int64)
	}
	return out
}

func truncateErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	n := 0
	for i := range msg {
		if n == maxErrorMessageLen {
			return msg[:i]
		}
		n++
	}
	return msg
}
