package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const inventoryColumns = `id, outlet_id, name, unit, current_stock, min_stock, cost_price, is_active, created_at, updated_at`

func scanInventoryItem(row interface{ Scan(dest ...interface{}) error }) (InventoryItem, error) {
	var it InventoryItem
	err := row.Scan(&it.ID, &it.OutletID, &it.Name, &it.Unit, &it.CurrentStock, &it.MinStock, &it.CostPrice, &it.IsActive, &it.CreatedAt, &it.UpdatedAt)
	return it, err
}

const listInventoryByOutlet = `
SELECT ` + inventoryColumns + `
FROM inventory_items
WHERE outlet_id = $1 AND is_active = true
ORDER BY name
`

func (q *Queries) ListInventoryByOutlet(ctx context.Context, outletID uuid.UUID) ([]InventoryItem, error) {
	rows, err := q.db.Query(ctx, listInventoryByOutlet, outletID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []InventoryItem
	for rows.Next() {
		it, err := scanInventoryItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

const listLowStockByOutlet = `
SELECT ` + inventoryColumns + `
FROM inventory_items
WHERE outlet_id = $1 AND is_active = true AND current_stock <= min_stock
ORDER BY name
`

func (q *Queries) ListLowStockByOutlet(ctx context.Context, outletID uuid.UUID) ([]InventoryItem, error) {
	rows, err := q.db.Query(ctx, listLowStockByOutlet, outletID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []InventoryItem
	for rows.Next() {
		it, err := scanInventoryItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

const getInventoryItem = `
SELECT ` + inventoryColumns + `
FROM inventory_items
WHERE id = $1 AND outlet_id = $2 AND is_active = true
`

type GetInventoryItemParams struct {
	ID       uuid.UUID
	OutletID uuid.UUID
}

func (q *Queries) GetInventoryItem(ctx context.Context, arg GetInventoryItemParams) (InventoryItem, error) {
	return scanInventoryItem(q.db.QueryRow(ctx, getInventoryItem, arg.ID, arg.OutletID))
}

const createInventoryItem = `
INSERT INTO inventory_items (outlet_id, name, unit, current_stock, min_stock, cost_price)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + inventoryColumns + `
`

type CreateInventoryItemParams struct {
	OutletID     uuid.UUID
	Name         string
	Unit         string
	CurrentStock pgtype.Numeric
	MinStock     pgtype.Numeric
	CostPrice    pgtype.Numeric
}

func (q *Queries) CreateInventoryItem(ctx context.Context, arg CreateInventoryItemParams) (InventoryItem, error) {
	return scanInventoryItem(q.db.QueryRow(ctx, createInventoryItem,
		arg.OutletID, arg.Name, arg.Unit, arg.CurrentStock, arg.MinStock, arg.CostPrice))
}

const updateInventoryItem = `
UPDATE inventory_items
SET name = $1, unit = $2, min_stock = $3, cost_price = $4, updated_at = now()
WHERE id = $5 AND outlet_id = $6 AND is_active = true
RETURNING ` + inventoryColumns + `
`

type UpdateInventoryItemParams struct {
	Name      string
	Unit      string
	MinStock  pgtype.Numeric
	CostPrice pgtype.Numeric
	ID        uuid.UUID
	OutletID  uuid.UUID
}

func (q *Queries) UpdateInventoryItem(ctx context.Context, arg UpdateInventoryItemParams) (InventoryItem, error) {
	return scanInventoryItem(q.db.QueryRow(ctx, updateInventoryItem,
		arg.Name, arg.Unit, arg.MinStock, arg.CostPrice, arg.ID, arg.OutletID))
}

const adjustInventoryStock = `
UPDATE inventory_items
SET current_stock = current_stock + $1, updated_at = now()
WHERE id = $2 AND outlet_id = $3 AND is_active = true
RETURNING ` + inventoryColumns + `
`

type AdjustInventoryStockParams struct {
	Delta    pgtype.Numeric
	ID       uuid.UUID
	OutletID uuid.UUID
}

func (q *Queries) AdjustInventoryStock(ctx context.Context, arg AdjustInventoryStockParams) (InventoryItem, error) {
	return scanInventoryItem(q.db.QueryRow(ctx, adjustInventoryStock, arg.Delta, arg.ID, arg.OutletID))
}

const softDeleteInventoryItem = `
UPDATE inventory_items
SET is_active = false, updated_at = now()
WHERE id = $1 AND outlet_id = $2 AND is_active = true
RETURNING id
`

type SoftDeleteInventoryItemParams struct {
	ID       uuid.UUID
	OutletID uuid.UUID
}

func (q *Queries) SoftDeleteInventoryItem(ctx context.Context, arg SoftDeleteInventoryItemParams) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, softDeleteInventoryItem, arg.ID, arg.OutletID)
	var id uuid.UUID
	err := row.Scan(&id)
	return id, err
}

const deductInventoryForOrder = `
UPDATE inventory_items inv
SET current_stock = inv.current_stock - agg.used, updated_at = now()
FROM (
    SELECT mii.inventory_item_id, SUM(mii.quantity * oi.quantity) AS used
    FROM order_items oi
    JOIN menu_item_ingredients mii ON mii.menu_item_id = oi.menu_item_id
    WHERE oi.order_id = $1
    GROUP BY mii.inventory_item_id
) agg
WHERE inv.id = agg.inventory_item_id
`

// DeductInventoryForOrder subtracts recipe quantity times ordered quantity
// from stock for every ingredient of every item on the order. Items without
// a recipe deduct nothing. Stock is allowed to go negative; the low-stock
// report surfaces it.
func (q *Queries) DeductInventoryForOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deductInventoryForOrder, orderID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
