package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/tandoor-pos/api/internal/database"
	"github.com/tandoor-pos/api/internal/enum"
	"github.com/tandoor-pos/api/internal/handler"
)

// --- Mock store ---

type recipeKey struct {
	menuItemID      uuid.UUID
	inventoryItemID uuid.UUID
}

type mockMenuItemStore struct {
	items      map[uuid.UUID]database.MenuItem
	categories map[uuid.UUID]bool
	inventory  map[uuid.UUID]database.InventoryItem
	recipes    map[recipeKey]database.ListIngredientsByMenuItemRow
}

func newMockMenuItemStore() *mockMenuItemStore {
	return &mockMenuItemStore{
		items:      make(map[uuid.UUID]database.MenuItem),
		categories: make(map[uuid.UUID]bool),
		inventory:  make(map[uuid.UUID]database.InventoryItem),
		recipes:    make(map[recipeKey]database.ListIngredientsByMenuItemRow),
	}
}

func (m *mockMenuItemStore) ListMenuItemsByOutlet(_ context.Context, outletID uuid.UUID) ([]database.MenuItem, error) {
	var result []database.MenuItem
	for _, it := range m.items {
		if it.OutletID == outletID && it.IsActive {
			result = append(result, it)
		}
	}
	return result, nil
}

func (m *mockMenuItemStore) ListMenuItemsByCategory(_ context.Context, arg database.ListMenuItemsByCategoryParams) ([]database.MenuItem, error) {
	var result []database.MenuItem
	for _, it := range m.items {
		if it.OutletID == arg.OutletID && it.CategoryID == arg.CategoryID && it.IsActive {
			result = append(result, it)
		}
	}
	return result, nil
}

func (m *mockMenuItemStore) GetMenuItem(_ context.Context, arg database.GetMenuItemParams) (database.MenuItem, error) {
	it, ok := m.items[arg.ID]
	if !ok || it.OutletID != arg.OutletID {
		return database.MenuItem{}, pgx.ErrNoRows
	}
	return it, nil
}

func (m *mockMenuItemStore) CreateMenuItem(_ context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error) {
	if !m.categories[arg.CategoryID] {
		return database.MenuItem{}, &pgconn.PgError{Code: "23503", Message: "violates foreign key constraint"}
	}
	it := database.MenuItem{
		ID:              uuid.New(),
		OutletID:        arg.OutletID,
		CategoryID:      arg.CategoryID,
		Name:            arg.Name,
		Description:     arg.Description,
		Price:           arg.Price,
		Station:         arg.Station,
		PreparationTime: arg.PreparationTime,
		IsAvailable:     true,
		IsActive:        true,
	}
	m.items[it.ID] = it
	return it, nil
}

func (m *mockMenuItemStore) UpdateMenuItem(_ context.Context, arg database.UpdateMenuItemParams) (database.MenuItem, error) {
	it, ok := m.items[arg.ID]
	if !ok || it.OutletID != arg.OutletID {
		return database.MenuItem{}, pgx.ErrNoRows
	}
	if !m.categories[arg.CategoryID] {
		return database.MenuItem{}, &pgconn.PgError{Code: "23503", Message: "violates foreign key constraint"}
	}
	it.CategoryID = arg.CategoryID
	it.Name = arg.Name
	it.Description = arg.Description
	it.Price = arg.Price
	it.Station = arg.Station
	it.PreparationTime = arg.PreparationTime
	m.items[it.ID] = it
	return it, nil
}

func (m *mockMenuItemStore) SetMenuItemAvailability(_ context.Context, arg database.SetMenuItemAvailabilityParams) (database.MenuItem, error) {
	it, ok := m.items[arg.ID]
	if !ok || it.OutletID != arg.OutletID {
		return database.MenuItem{}, pgx.ErrNoRows
	}
	it.IsAvailable = arg.IsAvailable
	m.items[it.ID] = it
	return it, nil
}

func (m *mockMenuItemStore) SoftDeleteMenuItem(_ context.Context, arg database.SoftDeleteMenuItemParams) (uuid.UUID, error) {
	it, ok := m.items[arg.ID]
	if !ok || it.OutletID != arg.OutletID || !it.IsActive {
		return uuid.Nil, pgx.ErrNoRows
	}
	it.IsActive = false
	m.items[it.ID] = it
	return it.ID, nil
}

func (m *mockMenuItemStore) ListIngredientsByMenuItem(_ context.Context, menuItemID uuid.UUID) ([]database.ListIngredientsByMenuItemRow, error) {
	var result []database.ListIngredientsByMenuItemRow
	for key, row := range m.recipes {
		if key.menuItemID == menuItemID {
			result = append(result, row)
		}
	}
	return result, nil
}

func (m *mockMenuItemStore) UpsertMenuItemIngredient(_ context.Context, arg database.UpsertMenuItemIngredientParams) error {
	inv, ok := m.inventory[arg.InventoryItemID]
	if !ok {
		return &pgconn.PgError{Code: "23503", Message: "violates foreign key constraint"}
	}
	m.recipes[recipeKey{arg.MenuItemID, arg.InventoryItemID}] = database.ListIngredientsByMenuItemRow{
		InventoryItemID: arg.InventoryItemID,
		Name:            inv.Name,
		Unit:            inv.Unit,
		Quantity:        arg.Quantity,
	}
	return nil
}

func (m *mockMenuItemStore) DeleteMenuItemIngredient(_ context.Context, arg database.DeleteMenuItemIngredientParams) (int64, error) {
	key := recipeKey{arg.MenuItemID, arg.InventoryItemID}
	if _, ok := m.recipes[key]; !ok {
		return 0, nil
	}
	delete(m.recipes, key)
	return 1, nil
}

// --- Helpers ---

func setupMenuItemRouter(store *mockMenuItemStore) *chi.Mux {
	h := handler.NewMenuItemHandler(store)
	r := chi.NewRouter()
	r.Route("/outlets/{oid}/menu-items", h.RegisterRoutes)
	return r
}

func seedMenuItem(store *mockMenuItemStore, outletID uuid.UUID, name string) database.MenuItem {
	categoryID := uuid.New()
	store.categories[categoryID] = true
	it := database.MenuItem{
		ID:              uuid.New(),
		OutletID:        outletID,
		CategoryID:      categoryID,
		Name:            name,
		Price:           mustNumeric("12.50"),
		Station:         enum.StationKitchen,
		PreparationTime: 15,
		IsAvailable:     true,
		IsActive:        true,
	}
	store.items[it.ID] = it
	return it
}

// --- Tests ---

func TestCreateMenuItem_Valid(t *testing.T) {
	store := newMockMenuItemStore()
	outletID := uuid.New()
	categoryID := uuid.New()
	store.categories[categoryID] = true

	router := setupMenuItemRouter(store)
	rr := doRequest(t, router, "POST", "/outlets/"+outletID.String()+"/menu-items", map[string]interface{}{
		"category_id": categoryID.String(),
		"name":        "Tandoori Chicken",
		"price":       "15.9",
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	resp := decodeUserResponse(t, rr)
	if resp["name"] != "Tandoori Chicken" {
		t.Errorf("name: got %v, want Tandoori Chicken", resp["name"])
	}
	if resp["price"] != "15.90" {
		t.Errorf("price: got %v, want 15.90", resp["price"])
	}
	if resp["station"] != enum.StationKitchen {
		t.Errorf("station: got %v, want default KITCHEN", resp["station"])
	}
	if resp["preparation_time"] != float64(15) {
		t.Errorf("preparation_time: got %v, want default 15", resp["preparation_time"])
	}
	if resp["is_available"] != true {
		t.Errorf("is_available: got %v, want true", resp["is_available"])
	}
}

func TestCreateMenuItem_MissingPrice(t *testing.T) {
	store := newMockMenuItemStore()
	router := setupMenuItemRouter(store)

	rr := doRequest(t, router, "POST", "/outlets/"+uuid.NewString()+"/menu-items", map[string]interface{}{
		"category_id": uuid.NewString(),
		"name":        "Naan",
	})

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestCreateMenuItem_NegativePrice(t *testing.T) {
	store := newMockMenuItemStore()
	router := setupMenuItemRouter(store)

	rr := doRequest(t, router, "POST", "/outlets/"+uuid.NewString()+"/menu-items", map[string]interface{}{
		"category_id": uuid.NewString(),
		"name":        "Naan",
		"price":       "-1.00",
	})

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestCreateMenuItem_UnknownCategory(t *testing.T) {
	store := newMockMenuItemStore()
	router := setupMenuItemRouter(store)

	rr := doRequest(t, router, "POST", "/outlets/"+uuid.NewString()+"/menu-items", map[string]interface{}{
		"category_id": uuid.NewString(),
		"name":        "Naan",
		"price":       "3.50",
	})

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d; body: %s", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
}

func TestListMenuItems_ByCategory(t *testing.T) {
	store := newMockMenuItemStore()
	outletID := uuid.New()
	mains := seedMenuItem(store, outletID, "Lamb Rogan Josh")
	seedMenuItem(store, outletID, "Mango Lassi")

	router := setupMenuItemRouter(store)
	rr := doRequest(t, router, "GET",
		"/outlets/"+outletID.String()+"/menu-items?category_id="+mains.CategoryID.String(), nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeUserListResponse(t, rr)
	if len(resp) != 1 {
		t.Fatalf("expected 1 item, got %d", len(resp))
	}
	if resp[0]["name"] != "Lamb Rogan Josh" {
		t.Errorf("name: got %v, want Lamb Rogan Josh", resp[0]["name"])
	}
}

func TestGetMenuItem_NotFound(t *testing.T) {
	store := newMockMenuItemStore()
	router := setupMenuItemRouter(store)

	rr := doRequest(t, router, "GET", "/outlets/"+uuid.NewString()+"/menu-items/"+uuid.NewString(), nil)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestSetMenuItemAvailability(t *testing.T) {
	store := newMockMenuItemStore()
	outletID := uuid.New()
	item := seedMenuItem(store, outletID, "Palak Paneer")

	router := setupMenuItemRouter(store)
	rr := doRequest(t, router, "PATCH",
		"/outlets/"+outletID.String()+"/menu-items/"+item.ID.String()+"/availability",
		map[string]bool{"is_available": false})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeUserResponse(t, rr)
	if resp["is_available"] != false {
		t.Errorf("is_available: got %v, want false", resp["is_available"])
	}
}

func TestSetMenuItemAvailability_MissingField(t *testing.T) {
	store := newMockMenuItemStore()
	outletID := uuid.New()
	item := seedMenuItem(store, outletID, "Palak Paneer")

	router := setupMenuItemRouter(store)
	rr := doRequest(t, router, "PATCH",
		"/outlets/"+outletID.String()+"/menu-items/"+item.ID.String()+"/availability",
		map[string]string{})

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestDeleteMenuItem_SoftDelete(t *testing.T) {
	store := newMockMenuItemStore()
	outletID := uuid.New()
	item := seedMenuItem(store, outletID, "Garlic Naan")

	router := setupMenuItemRouter(store)
	rr := doRequest(t, router, "DELETE", "/outlets/"+outletID.String()+"/menu-items/"+item.ID.String(), nil)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusNoContent, rr.Body.String())
	}
	if store.items[item.ID].IsActive {
		t.Error("expected item to be deactivated, not removed")
	}

	// Soft-deleted items drop out of listings.
	list := doRequest(t, router, "GET", "/outlets/"+outletID.String()+"/menu-items", nil)
	if got := decodeUserListResponse(t, list); len(got) != 0 {
		t.Errorf("expected empty listing, got %d items", len(got))
	}
}

func TestUpsertIngredient_Valid(t *testing.T) {
	store := newMockMenuItemStore()
	outletID := uuid.New()
	item := seedMenuItem(store, outletID, "Chicken Biryani")
	invID := uuid.New()
	store.inventory[invID] = database.InventoryItem{
		ID: invID, OutletID: outletID, Name: "Basmati Rice", Unit: "kg",
	}

	router := setupMenuItemRouter(store)
	rr := doRequest(t, router, "PUT",
		"/outlets/"+outletID.String()+"/menu-items/"+item.ID.String()+"/ingredients/"+invID.String(),
		map[string]string{"quantity": "0.25"})

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusNoContent, rr.Body.String())
	}

	list := doRequest(t, router, "GET",
		"/outlets/"+outletID.String()+"/menu-items/"+item.ID.String()+"/ingredients", nil)
	resp := decodeUserListResponse(t, list)
	if len(resp) != 1 {
		t.Fatalf("expected 1 ingredient, got %d", len(resp))
	}
	if resp[0]["name"] != "Basmati Rice" {
		t.Errorf("name: got %v, want Basmati Rice", resp[0]["name"])
	}
	if resp[0]["quantity"] != "0.250" {
		t.Errorf("quantity: got %v, want 0.250", resp[0]["quantity"])
	}
}

func TestUpsertIngredient_UnknownInventoryItem(t *testing.T) {
	store := newMockMenuItemStore()
	outletID := uuid.New()
	item := seedMenuItem(store, outletID, "Chicken Biryani")

	router := setupMenuItemRouter(store)
	rr := doRequest(t, router, "PUT",
		"/outlets/"+outletID.String()+"/menu-items/"+item.ID.String()+"/ingredients/"+uuid.NewString(),
		map[string]string{"quantity": "0.25"})

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d; body: %s", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
}

func TestDeleteIngredient_NotFound(t *testing.T) {
	store := newMockMenuItemStore()
	outletID := uuid.New()
	item := seedMenuItem(store, outletID, "Chicken Biryani")

	router := setupMenuItemRouter(store)
	rr := doRequest(t, router, "DELETE",
		"/outlets/"+outletID.String()+"/menu-items/"+item.ID.String()+"/ingredients/"+uuid.NewString(), nil)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}
