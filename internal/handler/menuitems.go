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
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/tandoor-pos/api/internal/database"
	"github.com/tandoor-pos/api/internal/enum"
)

// MenuItemStore defines the database methods needed by menu item handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type MenuItemStore interface {
	ListMenuItemsByOutlet(ctx context.Context, outletID uuid.UUID) ([]database.MenuItem, error)
	ListMenuItemsByCategory(ctx context.Context, arg database.ListMenuItemsByCategoryParams) ([]database.MenuItem, error)
	GetMenuItem(ctx context.Context, arg database.GetMenuItemParams) (database.MenuItem, error)
	CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error)
	UpdateMenuItem(ctx context.Context, arg database.UpdateMenuItemParams) (database.MenuItem, error)
	SetMenuItemAvailability(ctx context.Context, arg database.SetMenuItemAvailabilityParams) (database.MenuItem, error)
	SoftDeleteMenuItem(ctx context.Context, arg database.SoftDeleteMenuItemParams) (uuid.UUID, error)
	ListIngredientsByMenuItem(ctx context.Context, menuItemID uuid.UUID) ([]database.ListIngredientsByMenuItemRow, error)
	UpsertMenuItemIngredient(ctx context.Context, arg database.UpsertMenuItemIngredientParams) error
	DeleteMenuItemIngredient(ctx context.Context, arg database.DeleteMenuItemIngredientParams) (int64, error)
}

// MenuItemHandler handles menu item CRUD and recipe endpoints.
type MenuItemHandler struct {
	store MenuItemStore
}

// NewMenuItemHandler creates a new MenuItemHandler.
func NewMenuItemHandler(store MenuItemStore) *MenuItemHandler {
	return &MenuItemHandler{store: store}
}

// RegisterRoutes registers menu item endpoints on the given Chi router.
// Expected to be mounted inside an outlet-scoped subrouter: /outlets/{oid}/menu-items
func (h *MenuItemHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Patch("/{id}/availability", h.SetAvailability)
	r.Delete("/{id}", h.Delete)
	r.Get("/{id}/ingredients", h.ListIngredients)
	r.Put("/{id}/ingredients/{iid}", h.UpsertIngredient)
	r.Delete("/{id}/ingredients/{iid}", h.DeleteIngredient)
}

// --- Request / Response types ---

type createMenuItemRequest struct {
	CategoryID      string `json:"category_id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	Price           string `json:"price"`
	Station         string `json:"station"`
	PreparationTime *int32 `json:"preparation_time"`
}

type updateMenuItemRequest struct {
	CategoryID      string `json:"category_id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	Price           string `json:"price"`
	Station         string `json:"station"`
	PreparationTime *int32 `json:"preparation_time"`
}

type setAvailabilityRequest struct {
	IsAvailable *bool `json:"is_available"`
}

type upsertIngredientRequest struct {
	Quantity string `json:"quantity"`
}

type menuItemResponse struct {
	ID              uuid.UUID `json:"id"`
	OutletID        uuid.UUID `json:"outlet_id"`
	CategoryID      uuid.UUID `json:"category_id"`
	Name            string    `json:"name"`
	Description     *string   `json:"description"`
	Price           string    `json:"price"`
	Station         string    `json:"station"`
	PreparationTime int32     `json:"preparation_time"`
	IsAvailable     bool      `json:"is_available"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type ingredientResponse struct {
	InventoryItemID uuid.UUID `json:"inventory_item_id"`
	Name            string    `json:"name"`
	Unit            string    `json:"unit"`
	Quantity        string    `json:"quantity"`
}

func toMenuItemResponse(m database.MenuItem) menuItemResponse {
	resp := menuItemResponse{
		ID:              m.ID,
		OutletID:        m.OutletID,
		CategoryID:      m.CategoryID,
		Name:            m.Name,
		Price:           numericString(m.Price, 2),
		Station:         m.Station,
		PreparationTime: m.PreparationTime,
		IsAvailable:     m.IsAvailable,
		IsActive:        m.IsActive,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
	if m.Description.Valid {
		resp.Description = &m.Description.String
	}
	return resp
}

func toIngredientResponse(row database.ListIngredientsByMenuItemRow) ingredientResponse {
	return ingredientResponse{
		InventoryItemID: row.InventoryItemID,
		Name:            row.Name,
		Unit:            row.Unit,
		Quantity:        numericString(row.Quantity, 3),
	}
}

// --- Helpers ---

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

var errNegativeAmount = errors.New("negative amount")

// parsePositiveNumeric parses a decimal string, rejecting negatives.
func parsePositiveNumeric(s string) (pgtype.Numeric, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return pgtype.Numeric{}, err
	}
	if d.IsNegative() {
		return pgtype.Numeric{}, errNegativeAmount
	}
	var n pgtype.Numeric
	if err := n.Scan(d.String()); err != nil {
		return pgtype.Numeric{}, err
	}
	return n, nil
}

// numericString renders a pgtype.Numeric as a fixed-point decimal string.
// Money uses 2 decimal places; stock quantities use 3.
func numericString(n pgtype.Numeric, places int32) string {
	if !n.Valid {
		return ""
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return ""
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return ""
	}
	return d.StringFixed(places)
}

// parseMenuItemRequest validates the shared create/update fields and builds the
// storage params. Station is a free label (KITCHEN by default) so it is not
// validated against a fixed set.
func parseMenuItemFields(categoryIDStr, name, priceStr, station string, prepTime *int32) (uuid.UUID, pgtype.Numeric, string, int32, string) {
	if name == "" {
		return uuid.Nil, pgtype.Numeric{}, "", 0, "name is required"
	}
	if categoryIDStr == "" {
		return uuid.Nil, pgtype.Numeric{}, "", 0, "category_id is required"
	}
	categoryID, err := uuid.Parse(categoryIDStr)
	if err != nil {
		return uuid.Nil, pgtype.Numeric{}, "", 0, "invalid category_id"
	}
	if priceStr == "" {
		return uuid.Nil, pgtype.Numeric{}, "", 0, "price is required"
	}
	price, err := parsePositiveNumeric(priceStr)
	if err != nil {
		if errors.Is(err, errNegativeAmount) {
			return uuid.Nil, pgtype.Numeric{}, "", 0, "price must be >= 0"
		}
		return uuid.Nil, pgtype.Numeric{}, "", 0, "invalid price"
	}
	if station == "" {
		station = enum.StationKitchen
	}
	pt := int32(15)
	if prepTime != nil {
		if *prepTime < 0 {
			return uuid.Nil, pgtype.Numeric{}, "", 0, "preparation_time must be >= 0"
		}
		pt = *prepTime
	}
	return categoryID, price, station, pt, ""
}

// --- Handlers ---

// List returns all active menu items for the given outlet. An optional
// category_id query parameter narrows the list to one category.
func (h *MenuItemHandler) List(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid outlet ID"})
		return
	}

	var items []database.MenuItem
	if catStr := r.URL.Query().Get("category_id"); catStr != "" {
		categoryID, err := uuid.Parse(catStr)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category_id"})
			return
		}
		items, err = h.store.ListMenuItemsByCategory(r.Context(), database.ListMenuItemsByCategoryParams{
			OutletID:   outletID,
			CategoryID: categoryID,
		})
		if err != nil {
			log.Printf("ERROR: list menu items by category: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
	} else {
		items, err = h.store.ListMenuItemsByOutlet(r.Context(), outletID)
		if err != nil {
			log.Printf("ERROR: list menu items: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
	}

	resp := make([]menuItemResponse, len(items))
	for i, m := range items {
		resp[i] = toMenuItemResponse(m)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single menu item by ID.
func (h *MenuItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid outlet ID"})
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	item, err := h.store.GetMenuItem(r.Context(), database.GetMenuItemParams{
		ID:       itemID,
		OutletID: outletID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		log.Printf("ERROR: get menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toMenuItemResponse(item))
}

// Create adds a new menu item to the given outlet.
func (h *MenuItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid outlet ID"})
		return
	}

	var req createMenuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	categoryID, price, station, prepTime, msg := parseMenuItemFields(req.CategoryID, req.Name, req.Price, req.Station, req.PreparationTime)
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	desc := pgtype.Text{}
	if req.Description != "" {
		desc = pgtype.Text{String: req.Description, Valid: true}
	}

	item, err := h.store.CreateMenuItem(r.Context(), database.CreateMenuItemParams{
		OutletID:        outletID,
		CategoryID:      categoryID,
		Name:            req.Name,
		Description:     desc,
		Price:           price,
		Station:         station,
		PreparationTime: prepTime,
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category_id"})
			return
		}
		log.Printf("ERROR: create menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toMenuItemResponse(item))
}

// Update modifies an existing menu item in the given outlet.
func (h *MenuItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid outlet ID"})
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	var req updateMenuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	categoryID, price, station, prepTime, msg := parseMenuItemFields(req.CategoryID, req.Name, req.Price, req.Station, req.PreparationTime)
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	desc := pgtype.Text{}
	if req.Description != "" {
		desc = pgtype.Text{String: req.Description, Valid: true}
	}

	item, err := h.store.UpdateMenuItem(r.Context(), database.UpdateMenuItemParams{
		CategoryID:      categoryID,
		Name:            req.Name,
		Description:     desc,
		Price:           price,
		Station:         station,
		PreparationTime: prepTime,
		ID:              itemID,
		OutletID:        outletID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		if isForeignKeyViolation(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category_id"})
			return
		}
		log.Printf("ERROR: update menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toMenuItemResponse(item))
}

// SetAvailability toggles the 86'd flag without touching the rest of the item.
func (h *MenuItemHandler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid outlet ID"})
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	var req setAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.IsAvailable == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "is_available is required"})
		return
	}

	item, err := h.store.SetMenuItemAvailability(r.Context(), database.SetMenuItemAvailabilityParams{
		IsAvailable: *req.IsAvailable,
		ID:          itemID,
		OutletID:    outletID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		log.Printf("ERROR: set menu item availability: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toMenuItemResponse(item))
}

// Delete soft-deletes a menu item by setting is_active=false.
func (h *MenuItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid outlet ID"})
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	_, err = h.store.SoftDeleteMenuItem(r.Context(), database.SoftDeleteMenuItemParams{
		ID:       itemID,
		OutletID: outletID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		log.Printf("ERROR: delete menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListIngredients returns the recipe for a menu item.
func (h *MenuItemHandler) ListIngredients(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid outlet ID"})
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	// Verify the item belongs to this outlet before listing its recipe.
	if _, err := h.store.GetMenuItem(r.Context(), database.GetMenuItemParams{ID: itemID, OutletID: outletID}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		log.Printf("ERROR: get menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	rows, err := h.store.ListIngredientsByMenuItem(r.Context(), itemID)
	if err != nil {
		log.Printf("ERROR: list ingredients: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]ingredientResponse, len(rows))
	for i, row := range rows {
		resp[i] = toIngredientResponse(row)
	}

	writeJSON(w, http.StatusOK, resp)
}

// UpsertIngredient sets the quantity of one inventory item in a recipe,
// inserting the link if it does not exist yet.
func (h *MenuItemHandler) UpsertIngredient(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid outlet ID"})
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	invID, err := uuid.Parse(chi.URLParam(r, "iid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid inventory item ID"})
		return
	}

	var req upsertIngredientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Quantity == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity is required"})
		return
	}

	qty, err := parsePositiveNumeric(req.Quantity)
	if err != nil {
		if errors.Is(err, errNegativeAmount) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be >= 0"})
		} else {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid quantity"})
		}
		return
	}

	if _, err := h.store.GetMenuItem(r.Context(), database.GetMenuItemParams{ID: itemID, OutletID: outletID}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		log.Printf("ERROR: get menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	err = h.store.UpsertMenuItemIngredient(r.Context(), database.UpsertMenuItemIngredientParams{
		MenuItemID:      itemID,
		InventoryItemID: invID,
		Quantity:        qty,
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid inventory item ID"})
			return
		}
		log.Printf("ERROR: upsert ingredient: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteIngredient removes one inventory item from a recipe.
func (h *MenuItemHandler) DeleteIngredient(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid outlet ID"})
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	invID, err := uuid.Parse(chi.URLParam(r, "iid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid inventory item ID"})
		return
	}

	if _, err := h.store.GetMenuItem(r.Context(), database.GetMenuItemParams{ID: itemID, OutletID: outletID}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		log.Printf("ERROR: get menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	affected, err := h.store.DeleteMenuItemIngredient(r.Context(), database.DeleteMenuItemIngredientParams{
		MenuItemID:      itemID,
		InventoryItemID: invID,
	})
	if err != nil {
		log.Printf("ERROR: delete ingredient: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if affected == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "ingredient not found"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
