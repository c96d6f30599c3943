package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tandoor-pos/api/internal/database"
	"github.com/tandoor-pos/api/internal/enum"
	"github.com/tandoor-pos/api/internal/handler"
)

// --- Mock store ---

type mockPrinterStore struct {
	printers map[uuid.UUID]database.Printer
}

func newMockPrinterStore() *mockPrinterStore {
	return &mockPrinterStore{printers: make(map[uuid.UUID]database.Printer)}
}

func (m *mockPrinterStore) ListPrintersByOutlet(_ context.Context, outletID uuid.UUID) ([]database.Printer, error) {
	var result []database.Printer
	for _, p := range m.printers {
		if p.OutletID == outletID && p.IsActive {
			result = append(result, p)
		}
	}
	return result, nil
}

func (m *mockPrinterStore) GetPrinter(_ context.Context, arg database.GetPrinterParams) (database.Printer, error) {
	p, ok := m.printers[arg.ID]
	if !ok || p.OutletID != arg.OutletID || !p.IsActive {
		return database.Printer{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m *mockPrinterStore) CreatePrinter(_ context.Context, arg database.CreatePrinterParams) (database.Printer, error) {
	p := database.Printer{
		ID:             uuid.New(),
		OutletID:       arg.OutletID,
		Name:           arg.Name,
		ConnectionType: arg.ConnectionType,
		Address:        arg.Address,
		PaperWidth:     arg.PaperWidth,
		IsActive:       true,
	}
	m.printers[p.ID] = p
	return p, nil
}

func (m *mockPrinterStore) UpdatePrinter(_ context.Context, arg database.UpdatePrinterParams) (database.Printer, error) {
	p, ok := m.printers[arg.ID]
	if !ok || p.OutletID != arg.OutletID || !p.IsActive {
		return database.Printer{}, pgx.ErrNoRows
	}
	p.Name = arg.Name
	p.ConnectionType = arg.ConnectionType
	p.Address = arg.Address
	p.PaperWidth = arg.PaperWidth
	m.printers[p.ID] = p
	return p, nil
}

func (m *mockPrinterStore) SoftDeletePrinter(_ context.Context, arg database.SoftDeletePrinterParams) (uuid.UUID, error) {
	p, ok := m.printers[arg.ID]
	if !ok || p.OutletID != arg.OutletID || !p.IsActive {
		return uuid.Nil, pgx.ErrNoRows
	}
	p.IsActive = false
	m.printers[p.ID] = p
	return p.ID, nil
}

// --- Helpers ---

func setupPrinterRouter(store *mockPrinterStore) *chi.Mux {
	h := handler.NewPrinterHandler(store)
	r := chi.NewRouter()
	r.Route("/outlets/{oid}/printers", h.RegisterRoutes)
	return r
}

// --- Tests ---

func TestListPrinters_ScopedToOutlet(t *testing.T) {
	store := newMockPrinterStore()
	outletID := uuid.New()
	otherOutletID := uuid.New()

	kitchen := database.Printer{
		ID: uuid.New(), OutletID: outletID, Name: "Kitchen",
		ConnectionType: enum.PrinterTypeNetwork, Address: "192.168.1.50:9100",
		PaperWidth: 80, IsActive: true,
	}
	store.printers[kitchen.ID] = kitchen
	other := database.Printer{
		ID: uuid.New(), OutletID: otherOutletID, Name: "Elsewhere",
		ConnectionType: enum.PrinterTypeNetwork, Address: "10.0.0.1:9100",
		PaperWidth: 80, IsActive: true,
	}
	store.printers[other.ID] = other

	router := setupPrinterRouter(store)
	rr := doRequest(t, router, "GET", "/outlets/"+outletID.String()+"/printers", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeUserListResponse(t, rr)
	if len(resp) != 1 {
		t.Fatalf("expected 1 printer, got %d", len(resp))
	}
	if resp[0]["name"] != "Kitchen" {
		t.Errorf("name: got %v, want Kitchen", resp[0]["name"])
	}
}

func TestGetPrinter_NotFound(t *testing.T) {
	store := newMockPrinterStore()
	router := setupPrinterRouter(store)

	rr := doRequest(t, router, "GET", "/outlets/"+uuid.NewString()+"/printers/"+uuid.NewString(), nil)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestCreatePrinter_Valid(t *testing.T) {
	store := newMockPrinterStore()
	router := setupPrinterRouter(store)
	outletID := uuid.New()

	rr := doRequest(t, router, "POST", "/outlets/"+outletID.String()+"/printers", map[string]interface{}{
		"name":            "Bar",
		"connection_type": "NETWORK",
		"address":         "192.168.1.51:9100",
		"paper_width":     80,
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	resp := decodeUserResponse(t, rr)
	if resp["name"] != "Bar" {
		t.Errorf("name: got %v, want Bar", resp["name"])
	}
	if resp["paper_width"] != float64(80) {
		t.Errorf("paper_width: got %v, want 80", resp["paper_width"])
	}
}

func TestCreatePrinter_DefaultsPaperWidth(t *testing.T) {
	store := newMockPrinterStore()
	router := setupPrinterRouter(store)
	outletID := uuid.New()

	rr := doRequest(t, router, "POST", "/outlets/"+outletID.String()+"/printers", map[string]interface{}{
		"name":            "Bar",
		"connection_type": "BLUETOOTH",
		"address":         "AA:BB:CC:DD:EE:FF",
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	resp := decodeUserResponse(t, rr)
	if resp["paper_width"] != float64(58) {
		t.Errorf("paper_width: got %v, want 58 (default)", resp["paper_width"])
	}
}

func TestCreatePrinter_InvalidConnectionType(t *testing.T) {
	store := newMockPrinterStore()
	router := setupPrinterRouter(store)
	outletID := uuid.New()

	rr := doRequest(t, router, "POST", "/outlets/"+outletID.String()+"/printers", map[string]interface{}{
		"name":            "Bar",
		"connection_type": "SERIAL",
		"address":         "/dev/ttyS0",
	})

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestCreatePrinter_MissingFields(t *testing.T) {
	store := newMockPrinterStore()
	router := setupPrinterRouter(store)
	outletID := uuid.New()

	rr := doRequest(t, router, "POST", "/outlets/"+outletID.String()+"/printers", map[string]interface{}{
		"connection_type": "NETWORK",
		"address":         "192.168.1.51:9100",
	})

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestUpdatePrinter_Valid(t *testing.T) {
	store := newMockPrinterStore()
	outletID := uuid.New()
	printerID := uuid.New()

	store.printers[printerID] = database.Printer{
		ID: printerID, OutletID: outletID, Name: "Kitchen",
		ConnectionType: enum.PrinterTypeNetwork, Address: "192.168.1.50:9100",
		PaperWidth: 80, IsActive: true,
	}

	router := setupPrinterRouter(store)
	rr := doRequest(t, router, "PUT", "/outlets/"+outletID.String()+"/printers/"+printerID.String(), map[string]interface{}{
		"name":            "Kitchen Main",
		"connection_type": "NETWORK",
		"address":         "192.168.1.60:9100",
		"paper_width":     58,
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeUserResponse(t, rr)
	if resp["name"] != "Kitchen Main" {
		t.Errorf("name: got %v, want Kitchen Main", resp["name"])
	}
	if resp["address"] != "192.168.1.60:9100" {
		t.Errorf("address: got %v, want 192.168.1.60:9100", resp["address"])
	}
}

func TestUpdatePrinter_WrongOutlet(t *testing.T) {
	store := newMockPrinterStore()
	outletID := uuid.New()
	printerID := uuid.New()

	store.printers[printerID] = database.Printer{
		ID: printerID, OutletID: outletID, Name: "Kitchen",
		ConnectionType: enum.PrinterTypeNetwork, Address: "192.168.1.50:9100",
		PaperWidth: 80, IsActive: true,
	}

	router := setupPrinterRouter(store)
	rr := doRequest(t, router, "PUT", "/outlets/"+uuid.NewString()+"/printers/"+printerID.String(), map[string]interface{}{
		"name":            "Hijack",
		"connection_type": "NETWORK",
		"address":         "10.0.0.1:9100",
	})

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestDeletePrinter_SoftDeletes(t *testing.T) {
	store := newMockPrinterStore()
	outletID := uuid.New()
	printerID := uuid.New()

	store.printers[printerID] = database.Printer{
		ID: printerID, OutletID: outletID, Name: "Kitchen",
		ConnectionType: enum.PrinterTypeNetwork, Address: "192.168.1.50:9100",
		PaperWidth: 80, IsActive: true,
	}

	router := setupPrinterRouter(store)
	rr := doRequest(t, router, "DELETE", "/outlets/"+outletID.String()+"/printers/"+printerID.String(), nil)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusNoContent, rr.Body.String())
	}

	p, exists := store.printers[printerID]
	if !exists {
		t.Fatal("expected printer to remain in store after soft delete")
	}
	if p.IsActive {
		t.Error("expected is_active=false after soft delete")
	}
}

func TestDeletePrinter_NotFound(t *testing.T) {
	store := newMockPrinterStore()
	router := setupPrinterRouter(store)

	rr := doRequest(t, router, "DELETE", "/outlets/"+uuid.NewString()+"/printers/"+uuid.NewString(), nil)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}
