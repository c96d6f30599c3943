package database

import (
	"context"

	"github.com/google/uuid"
)

const assignmentColumns = `id, outlet_id, printer_id, scope, target_id, target_label, is_active, created_at, updated_at`

func scanAssignment(row interface{ Scan(dest ...interface{}) error }) (PrinterAssignment, error) {
	var a PrinterAssignment
	err := row.Scan(&a.ID, &a.OutletID, &a.PrinterID, &a.Scope, &a.TargetID, &a.TargetLabel, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

const listAssignmentsByOutlet = `
SELECT ` + assignmentColumns + `
FROM printer_assignments
WHERE outlet_id = $1 AND is_active = true
ORDER BY id
`

func (q *Queries) ListAssignmentsByOutlet(ctx context.Context, outletID uuid.UUID) ([]PrinterAssignment, error) {
	rows, err := q.db.Query(ctx, listAssignmentsByOutlet, outletID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PrinterAssignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

const createPrinterAssignment = `
INSERT INTO printer_assignments (outlet_id, printer_id, scope, target_id, target_label)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + assignmentColumns + `
`

type CreatePrinterAssignmentParams struct {
	OutletID    uuid.UUID
	PrinterID   uuid.UUID
	Scope       string
	TargetID    uuid.UUID
	TargetLabel string
}

func (q *Queries) CreatePrinterAssignment(ctx context.Context, arg CreatePrinterAssignmentParams) (PrinterAssignment, error) {
	return scanAssignment(q.db.QueryRow(ctx, createPrinterAssignment,
		arg.OutletID, arg.PrinterID, arg.Scope, arg.TargetID, arg.TargetLabel))
}

const softDeletePrinterAssignment = `
UPDATE printer_assignments
SET is_active = false, updated_at = now()
WHERE id = $1 AND outlet_id = $2 AND is_active = true
RETURNING id
`

type SoftDeletePrinterAssignmentParams struct {
	ID       uuid.UUID
	OutletID uuid.UUID
}

func (q *Queries) SoftDeletePrinterAssignment(ctx context.Context, arg SoftDeletePrinterAssignmentParams) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, softDeletePrinterAssignment, arg.ID, arg.OutletID)
	var id uuid.UUID
	err := row.Scan(&id)
	return id, err
}
