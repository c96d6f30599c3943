package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tandoor-pos/api/internal/database"
	"github.com/tandoor-pos/api/internal/service"
)

// AssignmentServicer defines the service methods needed by assignment
// handlers. Satisfied by *service.AssignmentService; narrow interface for
// testability.
type AssignmentServicer interface {
	Rules(ctx context.Context, outletID uuid.UUID) ([]database.PrinterAssignment, error)
	AddRule(ctx context.Context, arg service.AddAssignmentParams) (database.PrinterAssignment, error)
	UpdateRule(ctx context.Context, arg service.UpdateAssignmentParams) (database.PrinterAssignment, error)
	DeleteRule(ctx context.Context, outletID, ruleID uuid.UUID) error
	Stats(ctx context.Context, outletID uuid.UUID) (service.AssignmentStats, error)
	Segregate(ctx context.Context, outletID uuid.UUID, lines []service.OrderLine) (map[uuid.UUID][]service.OrderLine, error)
}

// AssignmentHandler handles printer assignment rule endpoints.
type AssignmentHandler struct {
	svc AssignmentServicer
}

// NewAssignmentHandler creates a new AssignmentHandler.
func NewAssignmentHandler(svc AssignmentServicer) *AssignmentHandler {
	return &AssignmentHandler{svc: svc}
}

// RegisterRoutes registers assignment endpoints on the given Chi router.
// Expected to be mounted inside an outlet-scoped subrouter:
// /outlets/{oid}/printer-assignments
func (h *AssignmentHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Get("/stats", h.Stats)
	r.Post("/preview", h.Preview)
}

// --- Request / Response types ---

type assignmentRuleRequest struct {
	PrinterID   string `json:"printer_id"`
	Scope       string `json:"scope"`
	TargetID    string `json:"target_id"`
	TargetLabel string `json:"target_label"`
}

type assignmentResponse struct {
	ID          uuid.UUID `json:"id"`
	OutletID    uuid.UUID `json:"outlet_id"`
	PrinterID   uuid.UUID `json:"printer_id"`
	Scope       string    `json:"scope"`
	TargetID    uuid.UUID `json:"target_id"`
	TargetLabel string    `json:"target_label"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// assignmentGroupResponse is one printer's slice of the rule set, for the
// grouped list view the admin screen renders.
type assignmentGroupResponse struct {
	PrinterID uuid.UUID            `json:"printer_id"`
	Rules     []assignmentResponse `json:"rules"`
}

type previewLineRequest struct {
	MenuItemID string `json:"menu_item_id"`
	CategoryID string `json:"category_id"`
	Name       string `json:"name"`
	Quantity   int32  `json:"quantity"`
}

type previewBucketResponse struct {
	PrinterID uuid.UUID            `json:"printer_id"`
	Lines     []previewLineRequest `json:"lines"`
}

type previewResponse struct {
	Buckets    []previewBucketResponse `json:"buckets"`
	Unassigned []previewLineRequest    `json:"unassigned"`
}

func toAssignmentResponse(a database.PrinterAssignment) assignmentResponse {
	return assignmentResponse{
		ID:          a.ID,
		OutletID:    a.OutletID,
		PrinterID:   a.PrinterID,
		Scope:       a.Scope,
		TargetID:    a.TargetID,
		TargetLabel: a.TargetLabel,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

// --- Handlers ---

// List returns the outlet's active rules grouped per printer, groups ordered
// by printer id and rules by rule id.
func (h *AssignmentHandler) List(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid outlet ID"})
		return
	}

	rules, err := h.svc.Rules(r.Context(), outletID)
	if err != nil {
		log.Printf("ERROR: list assignments: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	grouped := make(map[uuid.UUID][]assignmentResponse)
	for _, rule := range rules {
		grouped[rule.PrinterID] = append(grouped[rule.PrinterID], toAssignmentResponse(rule))
	}

	printerIDs := make([]uuid.UUID, 0, len(grouped))
	for pid := range grouped {
		printerIDs = append(printerIDs, pid)
	}
	sort.Slice(printerIDs, func(i, j int) bool {
		return printerIDs[i].String() < printerIDs[j].String()
	})

	resp := make([]assignmentGroupResponse, len(printerIDs))
	for i, pid := range printerIDs {
		resp[i] = assignmentGroupResponse{PrinterID: pid, Rules: grouped[pid]}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Create adds a new assignment rule. A duplicate (printer, scope, target)
// triple answers 409.
func (h *AssignmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid outlet ID"})
		return
	}

	var req assignmentRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	printerID, targetID, msg := parseAssignmentIDs(req)
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	rule, err := h.svc.AddRule(r.Context(), service.AddAssignmentParams{
		OutletID:    outletID,
		PrinterID:   printerID,
		Scope:       req.Scope,
		TargetID:    targetID,
		TargetLabel: req.TargetLabel,
	})
	if err != nil {
		writeAssignmentError(w, "create assignment", err)
		return
	}

	writeJSON(w, http.StatusCreated, toAssignmentResponse(rule))
}

// Update replaces a rule wholesale. The response carries the replacement's
// fresh rule id.
func (h *AssignmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid outlet ID"})
		return
	}

	ruleID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid assignment ID"})
		return
	}

	var req assignmentRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	printerID, targetID, msg := parseAssignmentIDs(req)
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	rule, err := h.svc.UpdateRule(r.Context(), service.UpdateAssignmentParams{
		OutletID:    outletID,
		RuleID:      ruleID,
		PrinterID:   printerID,
		Scope:       req.Scope,
		TargetID:    targetID,
		TargetLabel: req.TargetLabel,
	})
	if err != nil {
		writeAssignmentError(w, "update assignment", err)
		return
	}

	writeJSON(w, http.StatusOK, toAssignmentResponse(rule))
}

// Delete removes an assignment rule.
func (h *AssignmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid outlet ID"})
		return
	}

	ruleID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid assignment ID"})
		return
	}

	if err := h.svc.DeleteRule(r.Context(), outletID, ruleID); err != nil {
		writeAssignmentError(w, "delete assignment", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Stats returns the aggregate view of the outlet's rule set.
func (h *AssignmentHandler) Stats(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid outlet ID"})
		return
	}

	stats, err := h.svc.Stats(r.Context(), outletID)
	if err != nil {
		log.Printf("ERROR: assignment stats: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// Preview runs a hypothetical set of lines through the current rules without
// touching any order. Kitchen staff use it to check where a dish would print
// before committing a rule change.
func (h *AssignmentHandler) Preview(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid outlet ID"})
		return
	}

	var req struct {
		Lines []previewLineRequest `json:"lines"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.Lines) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "lines are required"})
		return
	}

	lines := make([]service.OrderLine, len(req.Lines))
	for i, l := range req.Lines {
		itemID, err := uuid.Parse(l.MenuItemID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu_item_id"})
			return
		}
		categoryID, err := uuid.Parse(l.CategoryID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category_id"})
			return
		}
		lines[i] = service.OrderLine{
			MenuItemID: itemID,
			CategoryID: categoryID,
			Name:       l.Name,
			Quantity:   l.Quantity,
		}
	}

	buckets, err := h.svc.Segregate(r.Context(), outletID, lines)
	if err != nil {
		log.Printf("ERROR: preview segregation: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	routed := make(map[uuid.UUID]bool)
	printerIDs := make([]uuid.UUID, 0, len(buckets))
	for pid, bucket := range buckets {
		printerIDs = append(printerIDs, pid)
		for _, line := range bucket {
			routed[line.MenuItemID] = true
		}
	}
	sort.Slice(printerIDs, func(i, j int) bool {
		return printerIDs[i].String() < printerIDs[j].String()
	})

	resp := previewResponse{Buckets: []previewBucketResponse{}, Unassigned: []previewLineRequest{}}
	for _, pid := range printerIDs {
		bucket := previewBucketResponse{PrinterID: pid}
		for _, line := range buckets[pid] {
			bucket.Lines = append(bucket.Lines, toPreviewLine(line))
		}
		resp.Buckets = append(resp.Buckets, bucket)
	}
	for _, line := range lines {
		if !routed[line.MenuItemID] {
			resp.Unassigned = append(resp.Unassigned, toPreviewLine(line))
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

func toPreviewLine(line service.OrderLine) previewLineRequest {
	return previewLineRequest{
		MenuItemID: line.MenuItemID.String(),
		CategoryID: line.CategoryID.String(),
		Name:       line.Name,
		Quantity:   line.Quantity,
	}
}

func parseAssignmentIDs(req assignmentRuleRequest) (printerID, targetID uuid.UUID, msg string) {
	printerID, err := uuid.Parse(req.PrinterID)
	if err != nil {
		return uuid.Nil, uuid.Nil, "invalid printer_id"
	}
	targetID, err = uuid.Parse(req.TargetID)
	if err != nil {
		return uuid.Nil, uuid.Nil, "invalid target_id"
	}
	return printerID, targetID, ""
}

// writeAssignmentError maps service errors to HTTP responses.
func writeAssignmentError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidAssignScope):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrDuplicateAssignment):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrAssignmentNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
