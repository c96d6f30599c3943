package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const getOutlet = `
SELECT id, name, address, phone, tax_rate, created_at
FROM outlets
WHERE id = $1
`

func (q *Queries) GetOutlet(ctx context.Context, id uuid.UUID) (Outlet, error) {
	row := q.db.QueryRow(ctx, getOutlet, id)
	var o Outlet
	err := row.Scan(&o.ID, &o.Name, &o.Address, &o.Phone, &o.TaxRate, &o.CreatedAt)
	return o, err
}

const createOutlet = `
INSERT INTO outlets (name, address, phone, tax_rate)
VALUES ($1, $2, $3, $4)
RETURNING id, name, address, phone, tax_rate, created_at
`

type CreateOutletParams struct {
	Name    string
	Address pgtype.Text
	Phone   pgtype.Text
	TaxRate pgtype.Numeric
}

func (q *Queries) CreateOutlet(ctx context.Context, arg CreateOutletParams) (Outlet, error) {
	row := q.db.QueryRow(ctx, createOutlet, arg.Name, arg.Address, arg.Phone, arg.TaxRate)
	var o Outlet
	err := row.Scan(&o.ID, &o.Name, &o.Address, &o.Phone, &o.TaxRate, &o.CreatedAt)
	return o, err
}
