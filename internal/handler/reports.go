package handler

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/tandoor-pos/api/internal/database"
)

// ReportsStore defines the database methods needed by report handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ReportsStore interface {
	DailySales(ctx context.Context, arg database.DailySalesParams) ([]database.DailySalesRow, error)
	TopMenuItems(ctx context.Context, arg database.TopMenuItemsParams) ([]database.TopMenuItemsRow, error)
	StationLoad(ctx context.Context, arg database.StationLoadParams) ([]database.StationLoadRow, error)
	ListLowStockByOutlet(ctx context.Context, outletID uuid.UUID) ([]database.InventoryItem, error)
}

// ReportsHandler handles report endpoints.
type ReportsHandler struct {
	store ReportsStore
}

// NewReportsHandler creates a new ReportsHandler.
func NewReportsHandler(store ReportsStore) *ReportsHandler {
	return &ReportsHandler{store: store}
}

// RegisterRoutes registers report endpoints on the given Chi router.
// Expected to be mounted inside an outlet-scoped subrouter: /outlets/{oid}/reports
func (h *ReportsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/daily-sales", h.DailySales)
	r.Get("/top-items", h.TopItems)
	r.Get("/station-load", h.StationLoad)
	r.Get("/low-stock", h.LowStock)
}

// --- Response types ---

type dailySalesResponse struct {
	Date         string `json:"date"`
	OrderCount   int64  `json:"order_count"`
	TotalRevenue string `json:"total_revenue"`
	TotalTax     string `json:"total_tax"`
	TotalTips    string `json:"total_tips"`
}

type topItemResponse struct {
	MenuItemID   uuid.UUID `json:"menu_item_id"`
	Name         string    `json:"name"`
	QuantitySold int64     `json:"quantity_sold"`
	TotalRevenue string    `json:"total_revenue"`
}

type stationLoadResponse struct {
	Station       string `json:"station"`
	LineCount     int64  `json:"line_count"`
	QuantityTotal int64  `json:"quantity_total"`
}

// --- Handlers ---

// DailySales returns per-day totals for COMPLETED orders in the given date
// range. With ?format=xlsx the same rows come back as a spreadsheet.
func (h *ReportsHandler) DailySales(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid outlet ID"})
		return
	}

	from, to, err := parseDateRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	rows, err := h.store.DailySales(r.Context(), database.DailySalesParams{
		OutletID: outletID,
		From:     from,
		To:       to,
	})
	if err != nil {
		log.Printf("ERROR: daily sales report: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]dailySalesResponse, len(rows))
	for i, row := range rows {
		resp[i] = dailySalesResponse{
			Date:         row.Day.Format("2006-01-02"),
			OrderCount:   row.OrderCount,
			TotalRevenue: numericString(row.TotalRevenue, 2),
			TotalTax:     numericString(row.TotalTax, 2),
			TotalTips:    numericString(row.TotalTips, 2),
		}
	}

	if r.URL.Query().Get("format") == "xlsx" {
		h.writeDailySalesXLSX(w, resp)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// TopItems returns the best selling menu items by quantity for the range.
func (h *ReportsHandler) TopItems(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid outlet ID"})
		return
	}

	from, to, err := parseDateRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
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

	rows, err := h.store.TopMenuItems(r.Context(), database.TopMenuItemsParams{
		OutletID: outletID,
		From:     from,
		To:       to,
		Limit:    int32(limit),
	})
	if err != nil {
		log.Printf("ERROR: top items report: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]topItemResponse, len(rows))
	for i, row := range rows {
		resp[i] = topItemResponse{
			MenuItemID:   row.MenuItemID,
			Name:         row.Name,
			QuantitySold: row.QuantitySold,
			TotalRevenue: numericString(row.TotalRevenue, 2),
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// StationLoad returns how many ticket lines each printer station handled in
// the range, for balancing kitchen assignment rules.
func (h *ReportsHandler) StationLoad(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid outlet ID"})
		return
	}

	from, to, err := parseDateRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	rows, err := h.store.StationLoad(r.Context(), database.StationLoadParams{
		OutletID: outletID,
		From:     from,
		To:       to,
	})
	if err != nil {
		log.Printf("ERROR: station load report: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]stationLoadResponse, len(rows))
	for i, row := range rows {
		resp[i] = stationLoadResponse{
			Station:       row.Station,
			LineCount:     row.LineCount,
			QuantityTotal: row.QuantityTotal,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// LowStock returns inventory items at or below their minimum stock level.
func (h *ReportsHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid outlet ID"})
		return
	}

	items, err := h.store.ListLowStockByOutlet(r.Context(), outletID)
	if err != nil {
		log.Printf("ERROR: low stock report: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]inventoryItemResponse, len(items))
	for i, it := range items {
		resp[i] = toInventoryItemResponse(it)
	}

	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

// parseDateRange parses start_date and end_date query params (YYYY-MM-DD).
// Defaults to the last 30 days. The returned end is exclusive (next day
// midnight) so an end_date covers its whole day.
func parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	const layout = "2006-01-02"

	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	from := today.AddDate(0, 0, -30)
	to := today.AddDate(0, 0, 1)

	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.Parse(layout, s)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start_date format: %w", err)
		}
		from = t
	}

	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.Parse(layout, s)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end_date format: %w", err)
		}
		to = t.AddDate(0, 0, 1)
	}

	if !from.Before(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("start_date must be before end_date")
	}

	return from, to, nil
}

func (h *ReportsHandler) writeDailySalesXLSX(w http.ResponseWriter, rows []dailySalesResponse) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Daily Sales"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Date", "Orders", "Revenue", "Tax", "Tips"}
	f.SetSheetRow(sheet, "A1", &headers)
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		f.SetCellStyle(sheet, "A1", "E1", style)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			continue
		}
		values := []interface{}{row.Date, row.OrderCount, row.TotalRevenue, row.TotalTax, row.TotalTips}
		f.SetSheetRow(sheet, cell, &values)
	}
	f.SetColWidth(sheet, "A", "A", 14)
	f.SetColWidth(sheet, "B", "E", 12)

	fileName := fmt.Sprintf("daily_sales_%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename="+fileName)
	w.WriteHeader(http.StatusOK)
	if err := f.Write(w); err != nil {
		log.Printf("ERROR: write xlsx report: %v", err)
	}
}
