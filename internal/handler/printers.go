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
	"github.com/tandoor-pos/api/internal/database"
	"github.com/tandoor-pos/api/internal/enum"
)

// defaultPaperWidth is the thermal paper width in millimeters used when a
// printer is registered without one. 58mm is the common receipt roll.
const defaultPaperWidth = 58

// PrinterStore defines the database methods needed by printer handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type PrinterStore interface {
	ListPrintersByOutlet(ctx context.Context, outletID uuid.UUID) ([]database.Printer, error)
	GetPrinter(ctx context.Context, arg database.GetPrinterParams) (database.Printer, error)
	CreatePrinter(ctx context.Context, arg database.CreatePrinterParams) (database.Printer, error)
	UpdatePrinter(ctx context.Context, arg database.UpdatePrinterParams) (database.Printer, error)
	SoftDeletePrinter(ctx context.Context, arg database.SoftDeletePrinterParams) (uuid.UUID, error)
}

// PrinterHandler handles printer CRUD endpoints.
type PrinterHandler struct {
	store PrinterStore
}

// NewPrinterHandler creates a new PrinterHandler.
func NewPrinterHandler(store PrinterStore) *PrinterHandler {
	return &PrinterHandler{store: store}
}

// RegisterRoutes registers printer endpoints on the given Chi router.
// Expected to be mounted inside an outlet-scoped subrouter: /outlets/{oid}/printers
func (h *PrinterHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type createPrinterRequest struct {
	Name           string `json:"name"`
	ConnectionType string `json:"connection_type"`
	Address        string `json:"address"`
	PaperWidth     int32  `json:"paper_width"`
}

type updatePrinterRequest struct {
	Name           string `json:"name"`
	ConnectionType string `json:"connection_type"`
	Address        string `json:"address"`
	PaperWidth     int32  `json:"paper_width"`
}

type printerResponse struct {
	ID             uuid.UUID `json:"id"`
	OutletID       uuid.UUID `json:"outlet_id"`
	Name           string    `json:"name"`
	ConnectionType string    `json:"connection_type"`
	Address        string    `json:"address"`
	PaperWidth     int32     `json:"paper_width"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

func toPrinterResponse(p database.Printer) printerResponse {
	return printerResponse{
		ID:             p.ID,
		OutletID:       p.OutletID,
		Name:           p.Name,
		ConnectionType: p.ConnectionType,
		Address:        p.Address,
		PaperWidth:     p.PaperWidth,
		IsActive:       p.IsActive,
		CreatedAt:      p.CreatedAt,
	}
}

// validatePrinterFields checks the shared create/update fields. Returns an
// error message suitable for the response, or "" when valid.
func validatePrinterFields(name, connectionType, address string) string {
	if name == "" {
		return "name is required"
	}
	if !enum.ValidPrinterType(connectionType) {
		return "connection_type must be NETWORK or BLUETOOTH"
	}
	if address == "" {
		return "address is required"
	}
	return ""
}

// --- Handlers ---

// List returns all active printers for the given outlet.
func (h *PrinterHandler) List(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid outlet ID"})
		return
	}

	printers, err := h.store.ListPrintersByOutlet(r.Context(), outletID)
	if err != nil {
		log.Printf("ERROR: list printers: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]printerResponse, len(printers))
	for i, p := range printers {
		resp[i] = toPrinterResponse(p)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single printer.
func (h *PrinterHandler) Get(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid outlet ID"})
		return
	}

	printerID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid printer ID"})
		return
	}

	printer, err := h.store.GetPrinter(r.Context(), database.GetPrinterParams{ID: printerID, OutletID: outletID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "printer not found"})
			return
		}
		log.Printf("ERROR: get printer: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toPrinterResponse(printer))
}

// Create registers a new printer for the given outlet.
func (h *PrinterHandler) Create(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid outlet ID"})
		return
	}

	var req createPrinterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if msg := validatePrinterFields(req.Name, req.ConnectionType, req.Address); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	paperWidth := req.PaperWidth
	if paperWidth <= 0 {
		paperWidth = defaultPaperWidth
	}

	printer, err := h.store.CreatePrinter(r.Context(), database.CreatePrinterParams{
		OutletID:       outletID,
		Name:           req.Name,
		ConnectionType: req.ConnectionType,
		Address:        req.Address,
		PaperWidth:     paperWidth,
	})
	if err != nil {
		log.Printf("ERROR: create printer: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toPrinterResponse(printer))
}

// Update modifies an existing printer in the given outlet.
func (h *PrinterHandler) Update(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid outlet ID"})
		return
	}

	printerID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid printer ID"})
		return
	}

	var req updatePrinterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if msg := validatePrinterFields(req.Name, req.ConnectionType, req.Address); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	paperWidth := req.PaperWidth
	if paperWidth <= 0 {
		paperWidth = defaultPaperWidth
	}

	printer, err := h.store.UpdatePrinter(r.Context(), database.UpdatePrinterParams{
		Name:           req.Name,
		ConnectionType: req.ConnectionType,
		Address:        req.Address,
		PaperWidth:     paperWidth,
		ID:             printerID,
		OutletID:       outletID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "printer not found"})
			return
		}
		log.Printf("ERROR: update printer: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toPrinterResponse(printer))
}

// Delete soft-deletes a printer by setting is_active=false. Assignment rules
// pointing at the printer are left in place; they keep routing to its queue
// until cleaned up, which the assignments list and stats make visible.
func (h *PrinterHandler) Delete(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid outlet ID"})
		return
	}

	printerID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid printer ID"})
		return
	}

	_, err = h.store.SoftDeletePrinter(r.Context(), database.SoftDeletePrinterParams{
		ID:       printerID,
		OutletID: outletID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "printer not found"})
			return
		}
		log.Printf("ERROR: delete printer: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
