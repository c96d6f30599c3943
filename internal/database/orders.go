package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, outlet_id, order_number, order_type, status, table_id, customer_name, notes, subtotal, tax_amount, discount_amount, tip_amount, total_amount, created_by, created_at, updated_at`

func scanOrder(row interface{ Scan(dest ...interface{}) error }) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.OutletID, &o.OrderNumber, &o.OrderType, &o.Status, &o.TableID, &o.CustomerName, &o.Notes, &o.Subtotal, &o.TaxAmount, &o.DiscountAmount, &o.TipAmount, &o.TotalAmount, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

const getNextOrderNumber = `
SELECT COALESCE(MAX(CAST(SUBSTRING(order_number FROM 5) AS INT)), 0) + 1
FROM orders
WHERE outlet_id = $1
`

// GetNextOrderNumber returns MAX+1 of the numeric suffix of this outlet's
// order numbers. Racy across concurrent transactions; the unique constraint
// plus the service retry loop resolves the collision.
func (q *Queries) GetNextOrderNumber(ctx context.Context, outletID uuid.UUID) (int32, error) {
	row := q.db.QueryRow(ctx, getNextOrderNumber, outletID)
	var n int32
	err := row.Scan(&n)
	return n, err
}

const getMenuItemForOrder = `
SELECT id, category_id, name, price, station, is_available
FROM menu_items
WHERE id = $1 AND outlet_id = $2 AND is_active = true
`

type GetMenuItemForOrderParams struct {
	ID       uuid.UUID
	OutletID uuid.UUID
}

type GetMenuItemForOrderRow struct {
	ID          uuid.UUID
	CategoryID  uuid.UUID
	Name        string
	Price       pgtype.Numeric
	Station     string
	IsAvailable bool
}

func (q *Queries) GetMenuItemForOrder(ctx context.Context, arg GetMenuItemForOrderParams) (GetMenuItemForOrderRow, error) {
	row := q.db.QueryRow(ctx, getMenuItemForOrder, arg.ID, arg.OutletID)
	var r GetMenuItemForOrderRow
	err := row.Scan(&r.ID, &r.CategoryID, &r.Name, &r.Price, &r.Station, &r.IsAvailable)
	return r, err
}

const createOrder = `
INSERT INTO orders (outlet_id, order_number, order_type, table_id, customer_name, notes, subtotal, tax_amount, discount_amount, tip_amount, total_amount, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING ` + orderColumns + `
`

type CreateOrderParams struct {
	OutletID       uuid.UUID
	OrderNumber    string
	OrderType      string
	TableID        uuid.NullUUID
	CustomerName   pgtype.Text
	Notes          pgtype.Text
	Subtotal       pgtype.Numeric
	TaxAmount      pgtype.Numeric
	DiscountAmount pgtype.Numeric
	TipAmount      pgtype.Numeric
	TotalAmount    pgtype.Numeric
	CreatedBy      uuid.UUID
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, createOrder,
		arg.OutletID, arg.OrderNumber, arg.OrderType, arg.TableID, arg.CustomerName, arg.Notes,
		arg.Subtotal, arg.TaxAmount, arg.DiscountAmount, arg.TipAmount, arg.TotalAmount, arg.CreatedBy))
}

const createOrderItem = `
INSERT INTO order_items (order_id, menu_item_id, category_id, name, quantity, unit_price, total_price, notes, station)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id, order_id, menu_item_id, category_id, name, quantity, unit_price, total_price, notes, station, created_at
`

type CreateOrderItemParams struct {
	OrderID    uuid.UUID
	MenuItemID uuid.UUID
	CategoryID uuid.UUID
	Name       string
	Quantity   int32
	UnitPrice  pgtype.Numeric
	TotalPrice pgtype.Numeric
	Notes      pgtype.Text
	Station    string
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID, arg.MenuItemID, arg.CategoryID, arg.Name, arg.Quantity,
		arg.UnitPrice, arg.TotalPrice, arg.Notes, arg.Station)
	var it OrderItem
	err := row.Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.CategoryID, &it.Name, &it.Quantity, &it.UnitPrice, &it.TotalPrice, &it.Notes, &it.Station, &it.CreatedAt)
	return it, err
}

const getOrder = `
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1 AND outlet_id = $2
`

type GetOrderParams struct {
	ID       uuid.UUID
	OutletID uuid.UUID
}

func (q *Queries) GetOrder(ctx context.Context, arg GetOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, arg.ID, arg.OutletID))
}

const getOrderForUpdate = `
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1 AND outlet_id = $2
FOR UPDATE
`

// GetOrderForUpdate locks the order row for the rest of the transaction.
// Status transitions read-validate-write under this lock.
func (q *Queries) GetOrderForUpdate(ctx context.Context, arg GetOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderForUpdate, arg.ID, arg.OutletID))
}

const listOrderItems = `
SELECT id, order_id, menu_item_id, category_id, name, quantity, unit_price, total_price, notes, station, created_at
FROM order_items
WHERE order_id = $1
ORDER BY created_at, id
`

func (q *Queries) ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItems, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.CategoryID, &it.Name, &it.Quantity, &it.UnitPrice, &it.TotalPrice, &it.Notes, &it.Station, &it.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

const listOrdersByOutlet = `
SELECT ` + orderColumns + `
FROM orders
WHERE outlet_id = $1
  AND ($2::text = '' OR status = $2)
  AND ($3::text = '' OR order_type = $3)
  AND created_at >= $4
  AND created_at < $5
ORDER BY created_at DESC
LIMIT $6 OFFSET $7
`

type ListOrdersByOutletParams struct {
	OutletID  uuid.UUID
	Status    string
	OrderType string
	From      time.Time
	To        time.Time
	Limit     int32
	Offset    int32
}

func (q *Queries) ListOrdersByOutlet(ctx context.Context, arg ListOrdersByOutletParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersByOutlet,
		arg.OutletID, arg.Status, arg.OrderType, arg.From, arg.To, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

const updateOrderStatus = `
UPDATE orders
SET status = $1, updated_at = now()
WHERE id = $2 AND outlet_id = $3
RETURNING ` + orderColumns + `
`

type UpdateOrderStatusParams struct {
	Status   string
	ID       uuid.UUID
	OutletID uuid.UUID
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderStatus, arg.Status, arg.ID, arg.OutletID))
}
