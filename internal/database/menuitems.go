package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const menuItemColumns = `id, outlet_id, category_id, name, description, price, station, preparation_time, is_available, is_active, created_at, updated_at`

func scanMenuItem(row interface{ Scan(dest ...interface{}) error }) (MenuItem, error) {
	var m MenuItem
	err := row.Scan(&m.ID, &m.OutletID, &m.CategoryID, &m.Name, &m.Description, &m.Price, &m.Station, &m.PreparationTime, &m.IsAvailable, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

const listMenuItemsByOutlet = `
SELECT ` + menuItemColumns + `
FROM menu_items
WHERE outlet_id = $1 AND is_active = true
ORDER BY name
`

func (q *Queries) ListMenuItemsByOutlet(ctx context.Context, outletID uuid.UUID) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, listMenuItemsByOutlet, outletID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MenuItem
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

const listMenuItemsByCategory = `
SELECT ` + menuItemColumns + `
FROM menu_items
WHERE outlet_id = $1 AND category_id = $2 AND is_active = true
ORDER BY name
`

type ListMenuItemsByCategoryParams struct {
	OutletID   uuid.UUID
	CategoryID uuid.UUID
}

func (q *Queries) ListMenuItemsByCategory(ctx context.Context, arg ListMenuItemsByCategoryParams) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, listMenuItemsByCategory, arg.OutletID, arg.CategoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MenuItem
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

const getMenuItem = `
SELECT ` + menuItemColumns + `
FROM menu_items
WHERE id = $1 AND outlet_id = $2 AND is_active = true
`

type GetMenuItemParams struct {
	ID       uuid.UUID
	OutletID uuid.UUID
}

func (q *Queries) GetMenuItem(ctx context.Context, arg GetMenuItemParams) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, getMenuItem, arg.ID, arg.OutletID))
}

const createMenuItem = `
INSERT INTO menu_items (outlet_id, category_id, name, description, price, station, preparation_time)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + menuItemColumns + `
`

type CreateMenuItemParams struct {
	OutletID        uuid.UUID
	CategoryID      uuid.UUID
	Name            string
	Description     pgtype.Text
	Price           pgtype.Numeric
	Station         string
	PreparationTime int32
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, createMenuItem,
		arg.OutletID, arg.CategoryID, arg.Name, arg.Description, arg.Price, arg.Station, arg.PreparationTime))
}

const updateMenuItem = `
UPDATE menu_items
SET category_id = $1, name = $2, description = $3, price = $4, station = $5, preparation_time = $6, updated_at = now()
WHERE id = $7 AND outlet_id = $8 AND is_active = true
RETURNING ` + menuItemColumns + `
`

type UpdateMenuItemParams struct {
	CategoryID      uuid.UUID
	Name            string
	Description     pgtype.Text
	Price           pgtype.Numeric
	Station         string
	PreparationTime int32
	ID              uuid.UUID
	OutletID        uuid.UUID
}

func (q *Queries) UpdateMenuItem(ctx context.Context, arg UpdateMenuItemParams) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, updateMenuItem,
		arg.CategoryID, arg.Name, arg.Description, arg.Price, arg.Station, arg.PreparationTime, arg.ID, arg.OutletID))
}

const setMenuItemAvailability = `
UPDATE menu_items
SET is_available = $1, updated_at = now()
WHERE id = $2 AND outlet_id = $3 AND is_active = true
RETURNING ` + menuItemColumns + `
`

type SetMenuItemAvailabilityParams struct {
	IsAvailable bool
	ID          uuid.UUID
	OutletID    uuid.UUID
}

func (q *Queries) SetMenuItemAvailability(ctx context.Context, arg SetMenuItemAvailabilityParams) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, setMenuItemAvailability, arg.IsAvailable, arg.ID, arg.OutletID))
}

const softDeleteMenuItem = `
UPDATE menu_items
SET is_active = false, updated_at = now()
WHERE id = $1 AND outlet_id = $2 AND is_active = true
RETURNING id
`

type SoftDeleteMenuItemParams struct {
	ID       uuid.UUID
	OutletID uuid.UUID
}

func (q *Queries) SoftDeleteMenuItem(ctx context.Context, arg SoftDeleteMenuItemParams) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, softDeleteMenuItem, arg.ID, arg.OutletID)
	var id uuid.UUID
	err := row.Scan(&id)
	return id, err
}

const listIngredientsByMenuItem = `
SELECT mii.menu_item_id, mii.inventory_item_id, inv.name, inv.unit, mii.quantity
FROM menu_item_ingredients mii
JOIN inventory_items inv ON inv.id = mii.inventory_item_id
WHERE mii.menu_item_id = $1
ORDER BY inv.name
`

type ListIngredientsByMenuItemRow struct {
	MenuItemID      uuid.UUID
	InventoryItemID uuid.UUID
	Name            string
	Unit            string
	Quantity        pgtype.Numeric
}

func (q *Queries) ListIngredientsByMenuItem(ctx context.Context, menuItemID uuid.UUID) ([]ListIngredientsByMenuItemRow, error) {
	rows, err := q.db.Query(ctx, listIngredientsByMenuItem, menuItemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListIngredientsByMenuItemRow
	for rows.Next() {
		var r ListIngredientsByMenuItemRow
		if err := rows.Scan(&r.MenuItemID, &r.InventoryItemID, &r.Name, &r.Unit, &r.Quantity); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const upsertMenuItemIngredient = `
INSERT INTO menu_item_ingredients (menu_item_id, inventory_item_id, quantity)
VALUES ($1, $2, $3)
ON CONFLICT (menu_item_id, inventory_item_id) DO UPDATE SET quantity = EXCLUDED.quantity
`

type UpsertMenuItemIngredientParams struct {
	MenuItemID      uuid.UUID
	InventoryItemID uuid.UUID
	Quantity        pgtype.Numeric
}

func (q *Queries) UpsertMenuItemIngredient(ctx context.Context, arg UpsertMenuItemIngredientParams) error {
	_, err := q.db.Exec(ctx, upsertMenuItemIngredient, arg.MenuItemID, arg.InventoryItemID, arg.Quantity)
	return err
}

const deleteMenuItemIngredient = `
DELETE FROM menu_item_ingredients
WHERE menu_item_id = $1 AND inventory_item_id = $2
`

type DeleteMenuItemIngredientParams struct {
	MenuItemID      uuid.UUID
	InventoryItemID uuid.UUID
}

func (q *Queries) DeleteMenuItemIngredient(ctx context.Context, arg DeleteMenuItemIngredientParams) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteMenuItemIngredient, arg.MenuItemID, arg.InventoryItemID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
