package database

import (
	"context"

	"github.com/google/uuid"
)

const tableColumns = `id, outlet_id, table_number, capacity, status, created_at, updated_at`

func scanTable(row interface{ Scan(dest ...interface{}) error }) (DiningTable, error) {
	var t DiningTable
	err := row.Scan(&t.ID, &t.OutletID, &t.TableNumber, &t.Capacity, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

const listTablesByOutlet = `
SELECT ` + tableColumns + `
FROM dining_tables
WHERE outlet_id = $1
ORDER BY table_number
`

func (q *Queries) ListTablesByOutlet(ctx context.Context, outletID uuid.UUID) ([]DiningTable, error) {
	rows, err := q.db.Query(ctx, listTablesByOutlet, outletID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DiningTable
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

const getTable = `
SELECT ` + tableColumns + `
FROM dining_tables
WHERE id = $1 AND outlet_id = $2
`

type GetTableParams struct {
	ID       uuid.UUID
	OutletID uuid.UUID
}

func (q *Queries) GetTable(ctx context.Context, arg GetTableParams) (DiningTable, error) {
	return scanTable(q.db.QueryRow(ctx, getTable, arg.ID, arg.OutletID))
}

const createTable = `
INSERT INTO dining_tables (outlet_id, table_number, capacity)
VALUES ($1, $2, $3)
RETURNING ` + tableColumns + `
`

type CreateTableParams struct {
	OutletID    uuid.UUID
	TableNumber int32
	Capacity    int32
}

func (q *Queries) CreateTable(ctx context.Context, arg CreateTableParams) (DiningTable, error) {
	return scanTable(q.db.QueryRow(ctx, createTable, arg.OutletID, arg.TableNumber, arg.Capacity))
}

const updateTable = `
UPDATE dining_tables
SET table_number = $1, capacity = $2, updated_at = now()
WHERE id = $3 AND outlet_id = $4
RETURNING ` + tableColumns + `
`

type UpdateTableParams struct {
	TableNumber int32
	Capacity    int32
	ID          uuid.UUID
	OutletID    uuid.UUID
}

func (q *Queries) UpdateTable(ctx context.Context, arg UpdateTableParams) (DiningTable, error) {
	return scanTable(q.db.QueryRow(ctx, updateTable, arg.TableNumber, arg.Capacity, arg.ID, arg.OutletID))
}

const setTableStatus = `
UPDATE dining_tables
SET status = $1, updated_at = now()
WHERE id = $2 AND outlet_id = $3
RETURNING ` + tableColumns + `
`

type SetTableStatusParams struct {
	Status   string
	ID       uuid.UUID
	OutletID uuid.UUID
}

func (q *Queries) SetTableStatus(ctx context.Context, arg SetTableStatusParams) (DiningTable, error) {
	return scanTable(q.db.QueryRow(ctx, setTableStatus, arg.Status, arg.ID, arg.OutletID))
}

const deleteTable = `
DELETE FROM dining_tables
WHERE id = $1 AND outlet_id = $2
RETURNING id
`

type DeleteTableParams struct {
	ID       uuid.UUID
	OutletID uuid.UUID
}

func (q *Queries) DeleteTable(ctx context.Context, arg DeleteTableParams) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, deleteTable, arg.ID, arg.OutletID)
	var id uuid.UUID
	err := row.Scan(&id)
	return id, err
}

const countOpenOrdersForTable = `
SELECT COUNT(*)
FROM orders
WHERE table_id = $1 AND status NOT IN ('COMPLETED', 'CANCELLED')
`

func (q *Queries) CountOpenOrdersForTable(ctx context.Context, tableID uuid.UUID) (int64, error) {
	row := q.db.QueryRow(ctx, countOpenOrdersForTable, tableID)
	var n int64
	err := row.Scan(&n)
	return n, err
}
