package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const dailySales = `
SELECT DATE_TRUNC('day', created_at) AS day,
       COUNT(*) AS order_count,
       COALESCE(SUM(total_amount), 0) AS total_revenue,
       COALESCE(SUM(tax_amount), 0) AS total_tax,
       COALESCE(SUM(tip_amount), 0) AS total_tips
FROM orders
WHERE outlet_id = $1 AND status = 'COMPLETED' AND created_at >= $2 AND created_at < $3
GROUP BY 1
ORDER BY 1
`

type DailySalesParams struct {
	OutletID uuid.UUID
	From     time.Time
	To       time.Time
}

type DailySalesRow struct {
	Day          time.Time
	OrderCount   int64
	TotalRevenue pgtype.Numeric
	TotalTax     pgtype.Numeric
	TotalTips    pgtype.Numeric
}

func (q *Queries) DailySales(ctx context.Context, arg DailySalesParams) ([]DailySalesRow, error) {
	rows, err := q.db.Query(ctx, dailySales, arg.OutletID, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DailySalesRow
	for rows.Next() {
		var r DailySalesRow
		if err := rows.Scan(&r.Day, &r.OrderCount, &r.TotalRevenue, &r.TotalTax, &r.TotalTips); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const topMenuItems = `
SELECT oi.menu_item_id,
       oi.name,
       SUM(oi.quantity)::bigint AS quantity_sold,
       COALESCE(SUM(oi.total_price), 0) AS total_revenue
FROM order_items oi
JOIN orders o ON o.id = oi.order_id
WHERE o.outlet_id = $1 AND o.status = 'COMPLETED' AND o.created_at >= $2 AND o.created_at < $3
GROUP BY oi.menu_item_id, oi.name
ORDER BY quantity_sold DESC, oi.name
LIMIT $4
`

type TopMenuItemsParams struct {
	OutletID uuid.UUID
	From     time.Time
	To       time.Time
	Limit    int32
}

type TopMenuItemsRow struct {
	MenuItemID   uuid.UUID
	Name         string
	QuantitySold int64
	TotalRevenue pgtype.Numeric
}

func (q *Queries) TopMenuItems(ctx context.Context, arg TopMenuItemsParams) ([]TopMenuItemsRow, error) {
	rows, err := q.db.Query(ctx, topMenuItems, arg.OutletID, arg.From, arg.To, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TopMenuItemsRow
	for rows.Next() {
		var r TopMenuItemsRow
		if err := rows.Scan(&r.MenuItemID, &r.Name, &r.QuantitySold, &r.TotalRevenue); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const stationLoad = `
SELECT oi.station,
       COUNT(*) AS line_count,
       SUM(oi.quantity)::bigint AS quantity_total
FROM order_items oi
JOIN orders o ON o.id = oi.order_id
WHERE o.outlet_id = $1 AND o.status <> 'CANCELLED' AND o.created_at >= $2 AND o.created_at < $3
GROUP BY oi.station
ORDER BY quantity_total DESC
`

type StationLoadParams struct {
	OutletID uuid.UUID
	From     time.Time
	To       time.Time
}

type StationLoadRow struct {
	Station       string
	LineCount     int64
	QuantityTotal int64
}

func (q *Queries) StationLoad(ctx context.Context, arg StationLoadParams) ([]StationLoadRow, error) {
	rows, err := q.db.Query(ctx, stationLoad, arg.OutletID, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []StationLoadRow
	for rows.Next() {
		var r StationLoadRow
		if err := rows.Scan(&r.Station, &r.LineCount, &r.QuantityTotal); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}
