package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tandoor-pos/api/internal/database"
	"github.com/tandoor-pos/api/internal/enum"
	"github.com/tandoor-pos/api/internal/middleware"
	"github.com/tandoor-pos/api/internal/service"
	"github.com/tandoor-pos/api/internal/ws"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
	UpdateStatus(ctx context.Context, outletID, orderID uuid.UUID, newStatus string) (database.Order, error)
}

// TicketServicer routes an order's items to printers and queues print jobs.
// Satisfied by *service.TicketService.
type TicketServicer interface {
	SendToKitchen(ctx context.Context, outletID, orderID uuid.UUID) (*service.SendToKitchenResult, error)
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	ListOrdersByOutlet(ctx context.Context, arg database.ListOrdersByOutletParams) ([]database.Order, error)
	ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc         OrderServicer
	tickets     TicketServicer
	store       OrderStore
	broadcaster service.Broadcaster
}

// NewOrderHandler creates a new OrderHandler. broadcaster may be nil when no
// hub is running.
func NewOrderHandler(svc OrderServicer, tickets TicketServicer, store OrderStore, broadcaster service.Broadcaster) *OrderHandler {
	return &OrderHandler{svc: svc, tickets: tickets, store: store, broadcaster: broadcaster}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted inside an outlet-scoped subrouter: /outlets/{oid}/orders
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Post("/{id}/send", h.SendToKitchen)
	r.Delete("/{id}", h.Cancel)
}

// --- Request / Response types ---

type createOrderRequest struct {
	OrderType      string                   `json:"order_type"`
	TableID        string                   `json:"table_id"`
	CustomerName   string                   `json:"customer_name"`
	Notes          string                   `json:"notes"`
	DiscountAmount string                   `json:"discount_amount"`
	TipAmount      string                   `json:"tip_amount"`
	Items          []createOrderLineRequest `json:"items"`
}

type createOrderLineRequest struct {
	MenuItemID string `json:"menu_item_id"`
	Quantity   int32  `json:"quantity"`
	Notes      string `json:"notes"`
}

type updateOrderStatusRequest struct {
	Status string `json:"status"`
}

type orderResponse struct {
	ID             uuid.UUID           `json:"id"`
	OutletID       uuid.UUID           `json:"outlet_id"`
	OrderNumber    string              `json:"order_number"`
	OrderType      string              `json:"order_type"`
	Status         string              `json:"status"`
	TableID        *uuid.UUID          `json:"table_id"`
	CustomerName   *string             `json:"customer_name"`
	Notes          *string             `json:"notes"`
	Subtotal       string              `json:"subtotal"`
	TaxAmount      string              `json:"tax_amount"`
	DiscountAmount string              `json:"discount_amount"`
	TipAmount      string              `json:"tip_amount"`
	TotalAmount    string              `json:"total_amount"`
	CreatedBy      uuid.UUID           `json:"created_by"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	Items          []orderItemResponse `json:"items,omitempty"`
}

type orderItemResponse struct {
	ID         uuid.UUID `json:"id"`
	MenuItemID uuid.UUID `json:"menu_item_id"`
	CategoryID uuid.UUID `json:"category_id"`
	Name       string    `json:"name"`
	Quantity   int32     `json:"quantity"`
	UnitPrice  string    `json:"unit_price"`
	TotalPrice string    `json:"total_price"`
	Notes      *string   `json:"notes"`
	Station    string    `json:"station"`
}

type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

type sendToKitchenResponse struct {
	Jobs       []printJobResponse   `json:"jobs"`
	Unassigned []unassignedLineInfo `json:"unassigned"`
}

// unassignedLineInfo flags an order line no assignment rule routed anywhere.
// The client decides what to do: pick a printer by hand or fix the rules.
type unassignedLineInfo struct {
	MenuItemID uuid.UUID `json:"menu_item_id"`
	CategoryID uuid.UUID `json:"category_id"`
	Name       string    `json:"name"`
	Quantity   int32     `json:"quantity"`
}

// orderEvent is the ws payload for order.* events.
type orderEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Status      string    `json:"status"`
}

func toOrderResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:             o.ID,
		OutletID:       o.OutletID,
		OrderNumber:    o.OrderNumber,
		OrderType:      o.OrderType,
		Status:         o.Status,
		Subtotal:       numericString(o.Subtotal, 2),
		TaxAmount:      numericString(o.TaxAmount, 2),
		DiscountAmount: numericString(o.DiscountAmount, 2),
		TipAmount:      numericString(o.TipAmount, 2),
		TotalAmount:    numericString(o.TotalAmount, 2),
		CreatedBy:      o.CreatedBy,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
	if o.TableID.Valid {
		tid := o.TableID.UUID
		resp.TableID = &tid
	}
	if o.CustomerName.Valid {
		resp.CustomerName = &o.CustomerName.String
	}
	if o.Notes.Valid {
		resp.Notes = &o.Notes.String
	}
	return resp
}

func toOrderItemResponse(it database.OrderItem) orderItemResponse {
	resp := orderItemResponse{
		ID:         it.ID,
		MenuItemID: it.MenuItemID,
		CategoryID: it.CategoryID,
		Name:       it.Name,
		Quantity:   it.Quantity,
		UnitPrice:  numericString(it.UnitPrice, 2),
		TotalPrice: numericString(it.TotalPrice, 2),
		Station:    it.Station,
	}
	if it.Notes.Valid {
		resp.Notes = &it.Notes.String
	}
	return resp
}

// --- Handlers ---

// Create handles POST /outlets/{oid}/orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid outlet ID"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	svcItems := make([]service.CreateOrderLineRequest, len(req.Items))
	for i, it := range req.Items {
		svcItems[i] = service.CreateOrderLineRequest{
			MenuItemID: it.MenuItemID,
			Quantity:   it.Quantity,
			Notes:      it.Notes,
		}
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		OutletID:       outletID,
		CreatedBy:      claims.UserID,
		OrderType:      req.OrderType,
		TableID:        req.TableID,
		CustomerName:   req.CustomerName,
		Notes:          req.Notes,
		DiscountAmount: req.DiscountAmount,
		TipAmount:      req.TipAmount,
		Items:          svcItems,
	})
	if err != nil {
		if errors.Is(err, service.ErrTableNotFound) || errors.Is(err, service.ErrMenuItemNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		if isOrderValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: create order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.broadcastOrder("order.created", result.Order)

	resp := toOrderResponse(result.Order)
	resp.Items = make([]orderItemResponse, len(result.Items))
	for i, it := range result.Items {
		resp.Items[i] = toOrderItemResponse(it)
	}

	writeJSON(w, http.StatusCreated, resp)
}

// List handles GET /outlets/{oid}/orders with status/type/date filters and
// limit/offset pagination.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid outlet ID"})
		return
	}

	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	params := database.ListOrdersByOutletParams{
		OutletID: outletID,
		Limit:    int32(limit),
		Offset:   int32(offset),
	}

	if s := r.URL.Query().Get("status"); s != "" {
		if _, ok := orderStatusSet[s]; !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
			return
		}
		params.Status = s
	}
	if s := r.URL.Query().Get("type"); s != "" {
		if !enum.ValidOrderType(s) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid type"})
			return
		}
		params.OrderType = s
	}
	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid start_date format, use YYYY-MM-DD"})
			return
		}
		params.From = t
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid end_date format, use YYYY-MM-DD"})
			return
		}
		// Inclusive end date: filter runs to the following midnight.
		params.To = t.AddDate(0, 0, 1)
	}

	orders, err := h.store.ListOrdersByOutlet(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o)
	}

	writeJSON(w, http.StatusOK, orderListResponse{
		Orders: resp,
		Limit:  limit,
		Offset: offset,
	})
}

// Get handles GET /outlets/{oid}/orders/{id}, returning the order with its
// items.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid outlet ID"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), database.GetOrderParams{ID: orderID, OutletID: outletID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListOrderItems(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := toOrderResponse(order)
	resp.Items = make([]orderItemResponse, len(items))
	for i, it := range items {
		resp.Items[i] = toOrderItemResponse(it)
	}

	writeJSON(w, http.StatusOK, resp)
}

// UpdateStatus handles PATCH /outlets/{oid}/orders/{id}/status. Transitions
// run through the order service: completing deducts ingredient stock and
// frees the table, invalid transitions answer 409.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid outlet ID"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	updated, err := h.svc.UpdateStatus(r.Context(), outletID, orderID, req.Status)
	if err != nil {
		h.writeStatusError(w, err)
		return
	}

	h.broadcastOrder("order.status_changed", updated)
	writeJSON(w, http.StatusOK, toOrderResponse(updated))
}

// SendToKitchen handles POST /outlets/{oid}/orders/{id}/send. It splits the
// order across the assigned printers and queues one ticket per printer.
// Lines no rule covers come back in "unassigned" rather than being dropped
// or guessed onto a default printer.
func (h *OrderHandler) SendToKitchen(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid outlet ID"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	result, err := h.tickets.SendToKitchen(r.Context(), outletID, orderID)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: send order to kitchen: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := sendToKitchenResponse{
		Jobs:       make([]printJobResponse, len(result.Jobs)),
		Unassigned: make([]unassignedLineInfo, len(result.Unassigned)),
	}
	for i, j := range result.Jobs {
		resp.Jobs[i] = toPrintJobResponse(j)
	}
	for i, l := range result.Unassigned {
		resp.Unassigned[i] = unassignedLineInfo{
			MenuItemID: l.MenuItemID,
			CategoryID: l.CategoryID,
			Name:       l.Name,
			Quantity:   l.Quantity,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Cancel handles DELETE /outlets/{oid}/orders/{id}: a status transition to
// CANCELLED with the same rules as UpdateStatus.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid outlet ID"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	updated, err := h.svc.UpdateStatus(r.Context(), outletID, orderID, enum.OrderStatusCancelled)
	if err != nil {
		h.writeStatusError(w, err)
		return
	}

	h.broadcastOrder("order.status_changed", updated)
	writeJSON(w, http.StatusOK, toOrderResponse(updated))
}

// --- Helpers ---

var orderStatusSet = map[string]struct{}{
	enum.OrderStatusNew:       {},
	enum.OrderStatusPreparing: {},
	enum.OrderStatusReady:     {},
	enum.OrderStatusCompleted: {},
	enum.OrderStatusCancelled: {},
}

// isOrderValidationError reports whether err is a client-input error from
// the order service.
func isOrderValidationError(err error) bool {
	return errors.Is(err, service.ErrEmptyItems) ||
		errors.Is(err, service.ErrInvalidOrderType) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrInvalidMenuItemID) ||
		errors.Is(err, service.ErrMenuItemUnavailable) ||
		errors.Is(err, service.ErrTableRequired) ||
		errors.Is(err, service.ErrInvalidTableID) ||
		errors.Is(err, service.ErrInvalidAmount)
}

func (h *OrderHandler) writeStatusError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
	case errors.Is(err, service.ErrInvalidOrderStatus):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: update order status: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func (h *OrderHandler) broadcastOrder(eventType string, order database.Order) {
	if h.broadcaster == nil {
		return
	}
	payload, err := json.Marshal(orderEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
	})
	if err != nil {
		return
	}
	h.broadcaster.BroadcastToOutlet(order.OutletID, ws.Event{Type: eventType, Payload: payload})
}
