package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/tandoor-pos/api/internal/database"
)

// InventoryStore defines the database methods needed by inventory handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type InventoryStore interface {
	ListInventoryByOutlet(ctx context.Context, outletID uuid.UUID) ([]database.InventoryItem, error)
	ListLowStockByOutlet(ctx context.Context, outletID uuid.UUID) ([]database.InventoryItem, error)
	GetInventoryItem(ctx context.Context, arg database.GetInventoryItemParams) (database.InventoryItem, error)
	CreateInventoryItem(ctx context.Context, arg database.CreateInventoryItemParams) (database.InventoryItem, error)
	UpdateInventoryItem(ctx context.Context, arg database.UpdateInventoryItemParams) (database.InventoryItem, error)
	AdjustInventoryStock(ctx context.Context, arg database.AdjustInventoryStockParams) (database.InventoryItem, error)
	SoftDeleteInventoryItem(ctx context.Context, arg database.SoftDeleteInventoryItemParams) (uuid.UUID, error)
}

// InventoryHandler handles inventory item endpoints.
type InventoryHandler struct {
	store InventoryStore
}

// NewInventoryHandler creates a new InventoryHandler.
func NewInventoryHandler(store InventoryStore) *InventoryHandler {
	return &InventoryHandler{store: store}
}

// RegisterRoutes registers inventory endpoints on the given Chi router.
// Expected to be mounted inside an outlet-scoped subrouter: /outlets/{oid}/inventory
func (h *InventoryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/low-stock", h.ListLowStock)
	r.Get("/{id}", h.Get)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Post("/{id}/adjust", h.Adjust)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type createInventoryItemRequest struct {
	Name         string `json:"name"`
	Unit         string `json:"unit"`
	CurrentStock string `json:"current_stock"`
	MinStock     string `json:"min_stock"`
	CostPrice    string `json:"cost_price"`
}

type updateInventoryItemRequest struct {
	Name      string `json:"name"`
	Unit      string `json:"unit"`
	MinStock  string `json:"min_stock"`
	CostPrice string `json:"cost_price"`
}

type adjustStockRequest struct {
	Delta  string `json:"delta"`
	Reason string `json:"reason"`
}

type inventoryItemResponse struct {
	ID           uuid.UUID `json:"id"`
	OutletID     uuid.UUID `json:"outlet_id"`
	Name         string    `json:"name"`
	Unit         string    `json:"unit"`
	CurrentStock string    `json:"current_stock"`
	MinStock     string    `json:"min_stock"`
	CostPrice    string    `json:"cost_price"`
	LowStock     bool      `json:"low_stock"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

func toInventoryItemResponse(it database.InventoryItem) inventoryItemResponse {
	current := numericString(it.CurrentStock, 3)
	min := numericString(it.MinStock, 3)
	currentDec, _ := decimal.NewFromString(current)
	minDec, _ := decimal.NewFromString(min)
	return inventoryItemResponse{
		ID:           it.ID,
		OutletID:     it.OutletID,
		Name:         it.Name,
		Unit:         it.Unit,
		CurrentStock: current,
		MinStock:     min,
		CostPrice:    numericString(it.CostPrice, 2),
		LowStock:     currentDec.LessThanOrEqual(minDec),
		IsActive:     it.IsActive,
		CreatedAt:    it.CreatedAt,
	}
}

// --- Handlers ---

// List returns all active inventory items for the given outlet.
func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid outlet ID"})
		return
	}

	items, err := h.store.ListInventoryByOutlet(r.Context(), outletID)
	if err != nil {
		log.Printf("ERROR: list inventory: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]inventoryItemResponse, len(items))
	for i, it := range items {
		resp[i] = toInventoryItemResponse(it)
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListLowStock returns items whose current stock has fallen to or below
// their minimum. Stock can go negative: completed orders always deduct, the
// report flags the shortfall instead of blocking sales.
func (h *InventoryHandler) ListLowStock(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid outlet ID"})
		return
	}

	items, err := h.store.ListLowStockByOutlet(r.Context(), outletID)
	if err != nil {
		log.Printf("ERROR: list low stock: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]inventoryItemResponse, len(items))
	for i, it := range items {
		resp[i] = toInventoryItemResponse(it)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single inventory item.
func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid outlet ID"})
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid inventory item ID"})
		return
	}

	item, err := h.store.GetInventoryItem(r.Context(), database.GetInventoryItemParams{ID: itemID, OutletID: outletID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "inventory item not found"})
			return
		}
		log.Printf("ERROR: get inventory item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toInventoryItemResponse(item))
}

// Create adds a new inventory item.
func (h *InventoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid outlet ID"})
		return
	}

	var req createInventoryItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if req.Unit == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unit is required"})
		return
	}

	currentStock, err := parsePositiveNumeric(orZero(req.CurrentStock))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "current_stock must be a non-negative decimal"})
		return
	}
	minStock, err := parsePositiveNumeric(orZero(req.MinStock))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "min_stock must be a non-negative decimal"})
		return
	}
	costPrice, err := parsePositiveNumeric(orZero(req.CostPrice))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cost_price must be a non-negative decimal"})
		return
	}

	item, err := h.store.CreateInventoryItem(r.Context(), database.CreateInventoryItemParams{
		OutletID:     outletID,
		Name:         req.Name,
		Unit:         req.Unit,
		CurrentStock: currentStock,
		MinStock:     minStock,
		CostPrice:    costPrice,
	})
	if err != nil {
		log.Printf("ERROR: create inventory item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toInventoryItemResponse(item))
}

// Update modifies an inventory item's descriptive fields. Stock levels only
// move through Adjust or order completion.
func (h *InventoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid outlet ID"})
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid inventory item ID"})
		return
	}

	var req updateInventoryItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if req.Unit == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unit is required"})
		return
	}

	minStock, err := parsePositiveNumeric(orZero(req.MinStock))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "min_stock must be a non-negative decimal"})
		return
	}
	costPrice, err := parsePositiveNumeric(orZero(req.CostPrice))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cost_price must be a non-negative decimal"})
		return
	}

	item, err := h.store.UpdateInventoryItem(r.Context(), database.UpdateInventoryItemParams{
		Name:      req.Name,
		Unit:      req.Unit,
		MinStock:  minStock,
		CostPrice: costPrice,
		ID:        itemID,
		OutletID:  outletID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "inventory item not found"})
			return
		}
		log.Printf("ERROR: update inventory item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toInventoryItemResponse(item))
}

// Adjust applies a signed delta to an item's current stock: positive for a
// delivery, negative for waste or a correction.
func (h *InventoryHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid outlet ID"})
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid inventory item ID"})
		return
	}

	var req adjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	delta, err := decimal.NewFromString(req.Delta)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "delta must be a decimal"})
		return
	}
	if delta.IsZero() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "delta must be non-zero"})
		return
	}

	var deltaNum pgtype.Numeric
	if err := deltaNum.Scan(delta.String()); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "delta must be a decimal"})
		return
	}

	item, err := h.store.AdjustInventoryStock(r.Context(), database.AdjustInventoryStockParams{
		Delta:    deltaNum,
		ID:       itemID,
		OutletID: outletID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "inventory item not found"})
			return
		}
		log.Printf("ERROR: adjust inventory stock: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toInventoryItemResponse(item))
}

// Delete soft-deletes an inventory item.
func (h *InventoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid outlet ID"})
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid inventory item ID"})
		return
	}

	_, err = h.store.SoftDeleteInventoryItem(r.Context(), database.SoftDeleteInventoryItemParams{
		ID:       itemID,
		OutletID: outletID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "inventory item not found"})
			return
		}
		log.Printf("ERROR: delete inventory item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

// orZero defaults an omitted decimal field to "0".
func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
