package database

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const printJobColumns = `id, outlet_id, printer_id, order_id, ticket, status, error, created_at, updated_at`

func scanPrintJob(row interface{ Scan(dest ...interface{}) error }) (PrintJob, error) {
	var j PrintJob
	err := row.Scan(&j.ID, &j.OutletID, &j.PrinterID, &j.OrderID, &j.Ticket, &j.Status, &j.Error, &j.CreatedAt, &j.UpdatedAt)
	return j, err
}

const createPrintJob = `
INSERT INTO print_jobs (outlet_id, printer_id, order_id, ticket)
VALUES ($1, $2, $3, $4)
RETURNING ` + printJobColumns + `
`

type CreatePrintJobParams struct {
	OutletID  uuid.UUID
	PrinterID uuid.UUID
	OrderID   uuid.UUID
	Ticket    json.RawMessage
}

func (q *Queries) CreatePrintJob(ctx context.Context, arg CreatePrintJobParams) (PrintJob, error) {
	return scanPrintJob(q.db.QueryRow(ctx, createPrintJob, arg.OutletID, arg.PrinterID, arg.OrderID, arg.Ticket))
}

const getPrintJob = `
SELECT ` + printJobColumns + `
FROM print_jobs
WHERE id = $1 AND outlet_id = $2
`

type GetPrintJobParams struct {
	ID       uuid.UUID
	OutletID uuid.UUID
}

func (q *Queries) GetPrintJob(ctx context.Context, arg GetPrintJobParams) (PrintJob, error) {
	return scanPrintJob(q.db.QueryRow(ctx, getPrintJob, arg.ID, arg.OutletID))
}

const listPrintJobs = `
SELECT ` + printJobColumns + `
FROM print_jobs
WHERE outlet_id = $1
  AND ($2::uuid IS NULL OR printer_id = $2)
  AND ($3::text = '' OR status = $3)
ORDER BY created_at, id
LIMIT $4
`

type ListPrintJobsParams struct {
	OutletID  uuid.UUID
	PrinterID uuid.NullUUID
	Status    string
	Limit     int32
}

// ListPrintJobs returns jobs oldest first so a polling bridge drains its
// queue in submission order.
func (q *Queries) ListPrintJobs(ctx context.Context, arg ListPrintJobsParams) ([]PrintJob, error) {
	rows, err := q.db.Query(ctx, listPrintJobs, arg.OutletID, arg.PrinterID, arg.Status, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PrintJob
	for rows.Next() {
		j, err := scanPrintJob(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, j)
	}
	return items, rows.Err()
}

const updatePrintJobStatus = `
UPDATE print_jobs
SET status = $1, error = $2, updated_at = now()
WHERE id = $3 AND outlet_id = $4 AND status = 'QUEUED'
RETURNING ` + printJobColumns + `
`

type UpdatePrintJobStatusParams struct {
	Status   string
	Error    pgtype.Text
	ID       uuid.UUID
	OutletID uuid.UUID
}

// UpdatePrintJobStatus moves a QUEUED job to PRINTED or FAILED. Terminal
// jobs stay as they are; the bridge acking twice gets no rows back.
func (q *Queries) UpdatePrintJobStatus(ctx context.Context, arg UpdatePrintJobStatusParams) (PrintJob, error) {
	return scanPrintJob(q.db.QueryRow(ctx, updatePrintJobStatus, arg.Status, arg.Error, arg.ID, arg.OutletID))
}
