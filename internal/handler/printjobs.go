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
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tandoor-pos/api/internal/database"
	"github.com/tandoor-pos/api/internal/enum"
)

// PrintJobStore defines the database methods needed by print job handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type PrintJobStore interface {
	ListPrintJobs(ctx context.Context, arg database.ListPrintJobsParams) ([]database.PrintJob, error)
	GetPrintJob(ctx context.Context, arg database.GetPrintJobParams) (database.PrintJob, error)
	UpdatePrintJobStatus(ctx context.Context, arg database.UpdatePrintJobStatusParams) (database.PrintJob, error)
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
}

// JobNotifier pushes print job status changes to websocket clients.
// Satisfied by *service.TicketService.
type JobNotifier interface {
	NotifyJobStatus(outletID uuid.UUID, job database.PrintJob, orderNumber string)
}

// PrintJobHandler serves the print bridge: the small daemon next to the
// physical printers polls the queue, renders tickets, and acks each job as
// PRINTED or FAILED. The server never opens a socket to a printer itself.
type PrintJobHandler struct {
	store    PrintJobStore
	notifier JobNotifier
}

// NewPrintJobHandler creates a new PrintJobHandler. notifier may be nil when
// no hub is running.
func NewPrintJobHandler(store PrintJobStore, notifier JobNotifier) *PrintJobHandler {
	return &PrintJobHandler{store: store, notifier: notifier}
}

// RegisterRoutes registers print job endpoints on the given Chi router.
// Expected to be mounted inside an outlet-scoped subrouter: /outlets/{oid}/print-jobs
func (h *PrintJobHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}/status", h.UpdateStatus)
}

// --- Request / Response types ---

type updatePrintJobStatusRequest struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

type printJobResponse struct {
	ID        uuid.UUID       `json:"id"`
	OutletID  uuid.UUID       `json:"outlet_id"`
	PrinterID uuid.UUID       `json:"printer_id"`
	OrderID   uuid.UUID       `json:"order_id"`
	Ticket    json.RawMessage `json:"ticket"`
	Status    string          `json:"status"`
	Error     *string         `json:"error"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func toPrintJobResponse(j database.PrintJob) printJobResponse {
	resp := printJobResponse{
		ID:        j.ID,
		OutletID:  j.OutletID,
		PrinterID: j.PrinterID,
		OrderID:   j.OrderID,
		Ticket:    j.Ticket,
		Status:    j.Status,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
	if j.Error.Valid {
		resp.Error = &j.Error.String
	}
	return resp
}

// --- Handlers ---

// List returns print jobs oldest first, optionally filtered by printer_id
// and status. The bridge polls GET /print-jobs?printer_id=X&status=QUEUED.
func (h *PrintJobHandler) List(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid outlet ID"})
		return
	}

	params := database.ListPrintJobsParams{
		OutletID: outletID,
		Limit:    50,
	}

	if s := r.URL.Query().Get("printer_id"); s != "" {
		pid, err := uuid.Parse(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid printer_id"})
			return
		}
		params.PrinterID = uuid.NullUUID{UUID: pid, Valid: true}
	}
	if s := r.URL.Query().Get("status"); s != "" {
		if s != enum.PrintJobStatusQueued && s != enum.PrintJobStatusPrinted && s != enum.PrintJobStatusFailed {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
			return
		}
		params.Status = s
	}
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 && v <= 200 {
			params.Limit = int32(v)
		}
	}

	jobs, err := h.store.ListPrintJobs(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list print jobs: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]printJobResponse, len(jobs))
	for i, j := range jobs {
		resp[i] = toPrintJobResponse(j)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single print job with its full ticket payload.
func (h *PrintJobHandler) Get(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid outlet ID"})
		return
	}

	jobID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid print job ID"})
		return
	}

	job, err := h.store.GetPrintJob(r.Context(), database.GetPrintJobParams{ID: jobID, OutletID: outletID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "print job not found"})
			return
		}
		log.Printf("ERROR: get print job: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toPrintJobResponse(job))
}

// UpdateStatus is the bridge's ack: it moves a QUEUED job to PRINTED or
// FAILED (with an error note). Terminal jobs answer 409; a double ack from a
// retrying bridge is harmless.
func (h *PrintJobHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid outlet ID"})
		return
	}

	jobID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid print job ID"})
		return
	}

	var req updatePrintJobStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Status != enum.PrintJobStatusPrinted && req.Status != enum.PrintJobStatusFailed {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status must be PRINTED or FAILED"})
		return
	}

	errNote := pgtype.Text{}
	if req.Status == enum.PrintJobStatusFailed && req.Error != "" {
		errNote = pgtype.Text{String: req.Error, Valid: true}
	}

	job, err := h.store.UpdatePrintJobStatus(r.Context(), database.UpdatePrintJobStatusParams{
		Status:   req.Status,
		Error:    errNote,
		ID:       jobID,
		OutletID: outletID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Either the job does not exist or it already left QUEUED.
			if _, getErr := h.store.GetPrintJob(r.Context(), database.GetPrintJobParams{ID: jobID, OutletID: outletID}); getErr == nil {
				writeJSON(w, http.StatusConflict, map[string]string{"error": "print job already acknowledged"})
				return
			}
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "print job not found"})
			return
		}
		log.Printf("ERROR: update print job status: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if h.notifier != nil {
		orderNumber := ""
		if order, err := h.store.GetOrder(r.Context(), database.GetOrderParams{ID: job.OrderID, OutletID: outletID}); err == nil {
			orderNumber = order.OrderNumber
		}
		h.notifier.NotifyJobStatus(outletID, job, orderNumber)
	}

	writeJSON(w, http.StatusOK, toPrintJobResponse(job))
}
