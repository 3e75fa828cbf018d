package bigquery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/carteira/internal/logger"
	"github.com/dvloznov/carteira/internal/store"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
)

const runsTable = "runs"

// RunRecorder writes the run audit log to BigQuery. It holds a shared client
// to avoid creating a new connection for each operation.
type RunRecorder struct {
	client    *bigquery.Client
	projectID string
	datasetID string
	now       func() time.Time
}

// NewRunRecorder creates a recorder for projectID.datasetID.runs.
func NewRunRecorder(ctx context.Context, projectID, datasetID string) (*RunRecorder, error) {
	if projectID == "" || datasetID == "" {
		return nil, errors.New("NewRunRecorder: project and dataset are required")
	}
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewRunRecorder: creating client: %w", err)
	}
	return &RunRecorder{
		client:    client,
		projectID: projectID,
		datasetID: datasetID,
		now:       time.Now,
	}, nil
}

// Close closes the BigQuery client connection.
func (r *RunRecorder) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

func (r *RunRecorder) table() string {
	return tableRef(r.projectID, r.datasetID, runsTable)
}

func tableRef(projectID, datasetID, table string) string {
	return fmt.Sprintf("`%s.%s.%s`", projectID, datasetID, table)
}

// EnsureTable creates the runs table if it doesn't exist.
func (r *RunRecorder) EnsureTable(ctx context.Context) error {
	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			run_id        STRING NOT NULL,
			kind          STRING NOT NULL,
			subject       STRING,
			user_id       INT64,
			started_ts    TIMESTAMP NOT NULL,
			finished_ts   TIMESTAMP,
			status        STRING,
			error_message STRING,
			items_total   INT64,
			items_created INT64
		)
	`, r.table())

	if err := r.exec(ctx, sql, nil); err != nil {
		return fmt.Errorf("EnsureTable: %w", err)
	}
	return nil
}

// StartRun inserts a new row with status=RUNNING and returns the generated run_id.
func (r *RunRecorder) StartRun(ctx context.Context, kind, subject string, userID int64) (string, error) {
	runID := uuid.NewString()

	err := r.exec(ctx, fmt.Sprintf(`
		INSERT %s (run_id, kind, subject, user_id, started_ts, status)
		VALUES (@run_id, @kind, @subject, @user_id, @started_ts, @status)
	`, r.table()), []bigquery.QueryParameter{
		{Name: "run_id", Value: runID},
		{Name: "kind", Value: kind},
		{Name: "subject", Value: subject},
		{Name: "user_id", Value: userID},
		{Name: "started_ts", Value: r.now()},
		{Name: "status", Value: StatusRunning},
	})
	if err != nil {
		return "", fmt.Errorf("StartRun: %w", err)
	}
	return runID, nil
}

// MarkRunFailed sets status=FAILED, finished_ts and error_message. Errors
// are logged because the caller is already handling a failure.
func (r *RunRecorder) MarkRunFailed(ctx context.Context, runID string, runErr error) {
	if runID == "" {
		return
	}
	log := logger.FromContext(ctx)

	err := r.exec(ctx, fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE run_id = @run_id
	`, r.table()), []bigquery.QueryParameter{
		{Name: "status", Value: StatusFailed},
		{Name: "finished_ts", Value: r.now()},
		{Name: "error_message", Value: truncateErrorMessage(runErr)},
		{Name: "run_id", Value: runID},
	})
	if err != nil {
		log.Error().
			Err(err).
			Str("run_id", runID).
			Msg("MarkRunFailed: update failed")
	}
}

// MarkRunSucceeded sets status=SUCCESS, finished_ts and the counters, and clears error_message.
func (r *RunRecorder) MarkRunSucceeded(ctx context.Context, runID string, stats store.RunStats) error {
	if runID == "" {
		return nil
	}
	err := r.exec(ctx, fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = "",
		    items_total = @items_total,
		    items_created = @items_created
		WHERE run_id = @run_id
	`, r.table()), []bigquery.QueryParameter{
		{Name: "status", Value: StatusSuccess},
		{Name: "finished_ts", Value: r.now()},
		{Name: "items_total", Value: stats.ItemsTotal},
		{Name: "items_created", Value: stats.ItemsCreated},
		{Name: "run_id", Value: runID},
	})
	if err != nil {
		return fmt.Errorf("MarkRunSucceeded: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (r *RunRecorder) ListRuns(ctx context.Context, limit int) ([]*store.RunRow, error) {
	if limit <= 0 {
		limit = 20
	}
	q := r.client.Query(fmt.Sprintf(`
		SELECT run_id, kind, subject, user_id, started_ts, finished_ts,
		       status, error_message, items_total, items_created
		FROM %s
		ORDER BY started_ts DESC
		LIMIT @limit
	`, r.table()))
	q.Parameters = []bigquery.QueryParameter{{Name: "limit", Value: limit}}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListRuns: reading query: %w", err)
	}

	var runs []*store.RunRow
	for {
		var row RunRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListRuns: iterating results: %w", err)
		}
		runs = append(runs, row.toStore())
	}
	return runs, nil
}

// exec runs a DML or DDL statement and waits for the job to finish.
func (r *RunRecorder) exec(ctx context.Context, sql string, params []bigquery.QueryParameter) error {
	q := r.client.Query(sql)
	q.Parameters = params

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}

var (
	_ store.RunRecorder = (*RunRecorder)(nil)
	_ store.RunLister   = (*RunRecorder)(nil)
)
