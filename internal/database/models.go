package database

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Row models, one struct per table. Nullable columns use pgtype wrappers,
// money and stock use pgtype.Numeric (converted to decimal.Decimal at the
// service boundary).

type Outlet struct {
	ID        uuid.UUID
	Name      string
	Address   pgtype.Text
	Phone     pgtype.Text
	TaxRate   pgtype.Numeric
	CreatedAt time.Time
}

type User struct {
	ID             uuid.UUID
	OutletID       uuid.UUID
	Email          string
	HashedPassword string
	FullName       string
	Role           string
	Pin            pgtype.Text
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Category struct {
	ID          uuid.UUID
	OutletID    uuid.UUID
	Name        string
	Description pgtype.Text
	SortOrder   int32
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type InventoryItem struct {
	ID           uuid.UUID
	OutletID     uuid.UUID
	Name         string
	Unit         string
	CurrentStock pgtype.Numeric
	MinStock     pgtype.Numeric
	CostPrice    pgtype.Numeric
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type MenuItem struct {
	ID              uuid.UUID
	OutletID        uuid.UUID
	CategoryID      uuid.UUID
	Name            string
	Description     pgtype.Text
	Price           pgtype.Numeric
	Station         string
	PreparationTime int32
	IsAvailable     bool
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type MenuItemIngredient struct {
	MenuItemID      uuid.UUID
	InventoryItemID uuid.UUID
	Quantity        pgtype.Numeric
}

type DiningTable struct {
	ID          uuid.UUID
	OutletID    uuid.UUID
	TableNumber int32
	Capacity    int32
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Printer struct {
	ID             uuid.UUID
	OutletID       uuid.UUID
	Name           string
	ConnectionType string
	Address        string
	PaperWidth     int32
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type PrinterAssignment struct {
	ID          uuid.UUID
	OutletID    uuid.UUID
	PrinterID   uuid.UUID
	Scope       string
	TargetID    uuid.UUID
	TargetLabel string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Order struct {
	ID             uuid.UUID
	OutletID       uuid.UUID
	OrderNumber    string
	OrderType      string
	Status         string
	TableID        uuid.NullUUID
	CustomerName   pgtype.Text
	Notes          pgtype.Text
	Subtotal       pgtype.Numeric
	TaxAmount      pgtype.Numeric
	DiscountAmount pgtype.Numeric
	TipAmount      pgtype.Numeric
	TotalAmount    pgtype.Numeric
	CreatedBy      uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type OrderItem struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	MenuItemID uuid.UUID
	CategoryID uuid.UUID
	Name       string
	Quantity   int32
	UnitPrice  pgtype.Numeric
	TotalPrice pgtype.Numeric
	Notes      pgtype.Text
	Station    string
	CreatedAt  time.Time
}

type PrintJob struct {
	ID        uuid.UUID
	OutletID  uuid.UUID
	PrinterID uuid.UUID
	OrderID   uuid.UUID
	Ticket    json.RawMessage
	Status    string
	Error     pgtype.Text
	CreatedAt time.Time
	UpdatedAt time.Time
}
