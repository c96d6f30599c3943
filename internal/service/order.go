package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/tandoor-pos/api/internal/database"
	"github.com/tandoor-pos/api/internal/enum"
)

const maxOrderNumberRetries = 3

// Errors returned by the order service.
var (
	ErrEmptyItems          = errors.New("items are required")
	ErrInvalidOrderType    = errors.New("invalid order_type")
	ErrInvalidQuantity     = errors.New("quantity must be > 0")
	ErrInvalidMenuItemID   = errors.New("invalid menu_item_id")
	ErrMenuItemNotFound    = errors.New("menu item not found in outlet")
	ErrMenuItemUnavailable = errors.New("menu item is not available")
	ErrTableRequired       = errors.New("table_id is required for DINE_IN orders")
	ErrInvalidTableID      = errors.New("invalid table_id")
	ErrTableNotFound       = errors.New("table not found in outlet")
	ErrInvalidAmount       = errors.New("amount must be a non-negative decimal")
	ErrOrderNotFound       = errors.New("order not found")
	ErrInvalidOrderStatus  = errors.New("invalid order status")
	ErrInvalidTransition   = errors.New("status transition not allowed")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed to create orders and move them
// through their lifecycle. Satisfied by *database.Queries (and its WithTx
// variant).
type OrderStore interface {
	GetOutlet(ctx context.Context, id uuid.UUID) (database.Outlet, error)
	GetNextOrderNumber(ctx context.Context, outletID uuid.UUID) (int32, error)
	GetMenuItemForOrder(ctx context.Context, arg database.GetMenuItemForOrderParams) (database.GetMenuItemForOrderRow, error)
	GetTable(ctx context.Context, arg database.GetTableParams) (database.DiningTable, error)
	SetTableStatus(ctx context.Context, arg database.SetTableStatusParams) (database.DiningTable, error)
	CountOpenOrdersForTable(ctx context.Context, tableID uuid.UUID) (int64, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	GetOrderForUpdate(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	DeductInventoryForOrder(ctx context.Context, orderID uuid.UUID) (int64, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// CreateOrderRequest is the validated input for creating an order.
type CreateOrderRequest struct {
	OutletID       uuid.UUID
	CreatedBy      uuid.UUID
	OrderType      string
	TableID        string
	CustomerName   string
	Notes          string
	DiscountAmount string
	TipAmount      string
	Items          []CreateOrderLineRequest
}

// CreateOrderLineRequest is a single line in the order.
type CreateOrderLineRequest struct {
	MenuItemID string
	Quantity   int32
	Notes      string
}

// CreateOrderResult is the full created order with its items.
type CreateOrderResult struct {
	Order database.Order
	Items []database.OrderItem
}

// allowedTransitions is the order status machine. Terminal states have no
// outgoing edges.
var allowedTransitions = map[string][]string{
	enum.OrderStatusNew:       {enum.OrderStatusPreparing, enum.OrderStatusCancelled},
	enum.OrderStatusPreparing: {enum.OrderStatusReady, enum.OrderStatusCancelled},
	enum.OrderStatusReady:     {enum.OrderStatusCompleted, enum.OrderStatusCancelled},
	enum.OrderStatusCompleted: {},
	enum.OrderStatusCancelled: {},
}

// OrderService handles order business logic.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, newStore: newStore}
}

// processedLine holds a prepared order item before insert.
type processedLine struct {
	params database.CreateOrderItemParams
}

// CreateOrder validates, snapshots menu data, calculates totals, and creates
// an order atomically. Retries up to maxOrderNumberRetries times on
// order_number unique constraint violations (race condition where concurrent
// transactions get the same MAX).
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	if !enum.ValidOrderType(req.OrderType) {
		return nil, ErrInvalidOrderType
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	if req.OrderType == enum.OrderTypeDineIn && req.TableID == "" {
		return nil, ErrTableRequired
	}

	discount, err := parseAmount(req.DiscountAmount)
	if err != nil {
		return nil, err
	}
	tip, err := parseAmount(req.TipAmount)
	if err != nil {
		return nil, err
	}

	// Retry loop: handles order_number unique constraint race condition.
	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		result, err := s.createOrderTx(ctx, req, discount, tip)
		if err == nil {
			return result, nil
		}
		if isOrderNumberConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

// isOrderNumberConflict checks if the error is a unique constraint violation
// on the order number (pgconn error code 23505).
func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "uq_orders_outlet_number"
	}
	return false
}

// createOrderTx executes the full order creation in a single transaction.
func (s *OrderService) createOrderTx(ctx context.Context, req CreateOrderRequest, discount, tip decimal.Decimal) (*CreateOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// --- Validate table for dine-in ---
	tableID := uuid.NullUUID{}
	if req.OrderType == enum.OrderTypeDineIn {
		tid, err := uuid.Parse(req.TableID)
		if err != nil {
			return nil, ErrInvalidTableID
		}
		if _, err := store.GetTable(ctx, database.GetTableParams{ID: tid, OutletID: req.OutletID}); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrTableNotFound
			}
			return nil, fmt.Errorf("get table: %w", err)
		}
		tableID = uuid.NullUUID{UUID: tid, Valid: true}
	}

	// --- Generate order number ---
	nextNum, err := store.GetNextOrderNumber(ctx, req.OutletID)
	if err != nil {
		return nil, fmt.Errorf("get next order number: %w", err)
	}
	orderNumber := fmt.Sprintf("TDR-%03d", nextNum)

	// --- Process lines: validate + snapshot menu data ---
	subtotal := decimal.Zero
	var lines []processedLine

	for i, line := range req.Items {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
		itemID, err := uuid.Parse(line.MenuItemID)
		if err != nil {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidMenuItemID)
		}

		item, err := store.GetMenuItemForOrder(ctx, database.GetMenuItemForOrderParams{
			ID:       itemID,
			OutletID: req.OutletID,
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("item[%d]: %w", i, ErrMenuItemNotFound)
			}
			return nil, fmt.Errorf("item[%d]: get menu item: %w", i, err)
		}
		if !item.IsAvailable {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrMenuItemUnavailable)
		}

		// Snapshot name, price, category and station onto the order item so
		// later menu edits never rewrite past orders.
		unitPrice := numericToDecimal(item.Price)
		lineTotal := unitPrice.Mul(decimal.NewFromInt32(line.Quantity))
		subtotal = subtotal.Add(lineTotal)

		notes := pgtype.Text{}
		if line.Notes != "" {
			notes = pgtype.Text{String: line.Notes, Valid: true}
		}

		lines = append(lines, processedLine{
			params: database.CreateOrderItemParams{
				MenuItemID: item.ID,
				CategoryID: item.CategoryID,
				Name:       item.Name,
				Quantity:   line.Quantity,
				UnitPrice:  decimalToNumeric(unitPrice),
				TotalPrice: decimalToNumeric(lineTotal),
				Notes:      notes,
				Station:    item.Station,
			},
		})
	}

	// --- Calculate totals ---
	outlet, err := store.GetOutlet(ctx, req.OutletID)
	if err != nil {
		return nil, fmt.Errorf("get outlet: %w", err)
	}
	taxRate := numericToDecimal(outlet.TaxRate)

	taxable := subtotal.Sub(discount)
	if taxable.IsNegative() {
		taxable = decimal.Zero
	}
	taxAmount := taxable.Mul(taxRate).Round(2)
	totalAmount := taxable.Add(taxAmount).Add(tip)

	customerName := pgtype.Text{}
	if req.CustomerName != "" {
		customerName = pgtype.Text{String: req.CustomerName, Valid: true}
	}
	notes := pgtype.Text{}
	if req.Notes != "" {
		notes = pgtype.Text{String: req.Notes, Valid: true}
	}

	// --- Insert order ---
	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		OutletID:       req.OutletID,
		OrderNumber:    orderNumber,
		OrderType:      req.OrderType,
		TableID:        tableID,
		CustomerName:   customerName,
		Notes:          notes,
		Subtotal:       decimalToNumeric(subtotal),
		TaxAmount:      decimalToNumeric(taxAmount),
		DiscountAmount: decimalToNumeric(discount),
		TipAmount:      decimalToNumeric(tip),
		TotalAmount:    decimalToNumeric(totalAmount),
		CreatedBy:      req.CreatedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	// --- Insert items ---
	var items []database.OrderItem
	for _, pl := range lines {
		pl.params.OrderID = order.ID
		item, err := store.CreateOrderItem(ctx, pl.params)
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		items = append(items, item)
	}

	// --- Mark the table occupied ---
	if tableID.Valid {
		if _, err := store.SetTableStatus(ctx, database.SetTableStatusParams{
			Status:   enum.TableStatusOccupied,
			ID:       tableID.UUID,
			OutletID: req.OutletID,
		}); err != nil {
			return nil, fmt.Errorf("occupy table: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CreateOrderResult{Order: order, Items: items}, nil
}

// UpdateStatus moves an order through its lifecycle. The order row is locked
// for the transition check, so concurrent updates serialize. Completing an
// order deducts ingredient stock; completing or cancelling a dine-in order
// frees its table once no open order references it.
func (s *OrderService) UpdateStatus(ctx context.Context, outletID, orderID uuid.UUID, newStatus string) (database.Order, error) {
	if _, ok := allowedTransitions[newStatus]; !ok {
		return database.Order{}, ErrInvalidOrderStatus
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, database.GetOrderParams{ID: orderID, OutletID: outletID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}

	if !canTransition(order.Status, newStatus) {
		return database.Order{}, fmt.Errorf("%s -> %s: %w", order.Status, newStatus, ErrInvalidTransition)
	}

	updated, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		Status:   newStatus,
		ID:       orderID,
		OutletID: outletID,
	})
	if err != nil {
		return database.Order{}, fmt.Errorf("update order status: %w", err)
	}

	if newStatus == enum.OrderStatusCompleted {
		if _, err := store.DeductInventoryForOrder(ctx, orderID); err != nil {
			return database.Order{}, fmt.Errorf("deduct inventory: %w", err)
		}
	}

	if (newStatus == enum.OrderStatusCompleted || newStatus == enum.OrderStatusCancelled) && order.TableID.Valid {
		open, err := store.CountOpenOrdersForTable(ctx, order.TableID.UUID)
		if err != nil {
			return database.Order{}, fmt.Errorf("count open orders: %w", err)
		}
		if open == 0 {
			if _, err := store.SetTableStatus(ctx, database.SetTableStatusParams{
				Status:   enum.TableStatusAvailable,
				ID:       order.TableID.UUID,
				OutletID: outletID,
			}); err != nil {
				return database.Order{}, fmt.Errorf("free table: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}
	return updated, nil
}

// --- Helpers ---

func canTransition(from, to string) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// parseAmount parses an optional non-negative decimal string. Empty means
// zero.
func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
