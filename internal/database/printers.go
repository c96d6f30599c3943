package database

import (
	"context"

	"github.com/google/uuid"
)

const printerColumns = `id, outlet_id, name, connection_type, address, paper_width, is_active, created_at, updated_at`

func scanPrinter(row interface{ Scan(dest ...interface{}) error }) (Printer, error) {
	var p Printer
	err := row.Scan(&p.ID, &p.OutletID, &p.Name, &p.ConnectionType, &p.Address, &p.PaperWidth, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

const listPrintersByOutlet = `
SELECT ` + printerColumns + `
FROM printers
WHERE outlet_id = $1 AND is_active = true
ORDER BY name
`

func (q *Queries) ListPrintersByOutlet(ctx context.Context, outletID uuid.UUID) ([]Printer, error) {
	rows, err := q.db.Query(ctx, listPrintersByOutlet, outletID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Printer
	for rows.Next() {
		p, err := scanPrinter(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const getPrinter = `
SELECT ` + printerColumns + `
FROM printers
WHERE id = $1 AND outlet_id = $2 AND is_active = true
`

type GetPrinterParams struct {
	ID       uuid.UUID
	OutletID uuid.UUID
}

func (q *Queries) GetPrinter(ctx context.Context, arg GetPrinterParams) (Printer, error) {
	return scanPrinter(q.db.QueryRow(ctx, getPrinter, arg.ID, arg.OutletID))
}

const createPrinter = `
INSERT INTO printers (outlet_id, name, connection_type, address, paper_width)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + printerColumns + `
`

type CreatePrinterParams struct {
	OutletID       uuid.UUID
	Name           string
	ConnectionType string
	Address        string
	PaperWidth     int32
}

func (q *Queries) CreatePrinter(ctx context.Context, arg CreatePrinterParams) (Printer, error) {
	return scanPrinter(q.db.QueryRow(ctx, createPrinter,
		arg.OutletID, arg.Name, arg.ConnectionType, arg.Address, arg.PaperWidth))
}

const updatePrinter = `
UPDATE printers
SET name = $1, connection_type = $2, address = $3, paper_width = $4, updated_at = now()
WHERE id = $5 AND outlet_id = $6 AND is_active = true
RETURNING ` + printerColumns + `
`

type UpdatePrinterParams struct {
	Name           string
	ConnectionType string
	Address        string
	PaperWidth     int32
	ID             uuid.UUID
	OutletID       uuid.UUID
}

func (q *Queries) UpdatePrinter(ctx context.Context, arg UpdatePrinterParams) (Printer, error) {
	return scanPrinter(q.db.QueryRow(ctx, updatePrinter,
		arg.Name, arg.ConnectionType, arg.Address, arg.PaperWidth, arg.ID, arg.OutletID))
}

const softDeletePrinter = `
UPDATE printers
SET is_active = false, updated_at = now()
WHERE id = $1 AND outlet_id = $2 AND is_active = true
RETURNING id
`

type SoftDeletePrinterParams struct {
	ID       uuid.UUID
	OutletID uuid.UUID
}

func (q *Queries) SoftDeletePrinter(ctx context.Context, arg SoftDeletePrinterParams) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, softDeletePrinter, arg.ID, arg.OutletID)
	var id uuid.UUID
	err := row.Scan(&id)
	return id, err
}
