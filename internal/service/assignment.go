package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/tandoor-pos/api/internal/database"
	"github.com/tandoor-pos/api/internal/enum"
)

// Errors returned by the assignment service.
var (
	ErrDuplicateAssignment = errors.New("assignment already exists for this printer and target")
	ErrAssignmentNotFound  = errors.New("assignment not found")
	ErrInvalidAssignScope  = errors.New("invalid assignment scope")
)

// AssignmentStore defines the DB methods needed to manage assignment rules.
// Satisfied by *database.Queries (and its WithTx variant).
type AssignmentStore interface {
	ListAssignmentsByOutlet(ctx context.Context, outletID uuid.UUID) ([]database.PrinterAssignment, error)
	CreatePrinterAssignment(ctx context.Context, arg database.CreatePrinterAssignmentParams) (database.PrinterAssignment, error)
	SoftDeletePrinterAssignment(ctx context.Context, arg database.SoftDeletePrinterAssignmentParams) (uuid.UUID, error)
}

// NewAssignmentStore creates an AssignmentStore from a DBTX (pool or tx).
type NewAssignmentStore func(db database.DBTX) AssignmentStore

/// AssignmentPool is the connection surface the service needs: direct queries
// for single-statement work plus transactions for replace.
type AssignmentPool interface {
	TxBeginner
	database.DBTX
}

// OrderLine is the slice of an order item that routing cares about. The
// resolver never reads anything else off the order.
type OrderLine struct {
	MenuItemID uuid.UUID
	CategoryID uuid.UUID
	Name       string
	Quantity   int32
	Notes      string
}

// AssignmentStats is an on-demand aggregation over an outlet's active rules.
type AssignmentStats struct {
	TotalAssignments    int `json:"total_assignments"`
	CategoryAssignments int `json:"category_assignments"`
	MenuItemAssignments int `json:"menu_item_assignments"`
	UniquePrinters      int `json:"unique_printers"`
}

// AddAssignmentParams is the input for AddRule.
type AddAssignmentParams struct {
	OutletID    uuid.UUID
	PrinterID   uuid.UUID
	Scope       string
	TargetID    uuid.UUID
	TargetLabel string
}

// UpdateAssignmentParams is the input for UpdateRule.
type UpdateAssignmentParams struct {
	OutletID    uuid.UUID
	RuleID      uuid.UUID
	PrinterID   uuid.UUID
	Scope       string
	TargetID    uuid.UUID
	TargetLabel string
}

// AssignmentService owns the printer assignment rules of each outlet: which
// category or menu item prints where. It keeps an in-memory index per outlet
// as the authoritative read path, loaded lazily from storage and updated only
// after a storage write is confirmed. A rule binds one target (category or
// menu item) to one printer; the same target may be bound to several printers
// (fan-out), but never twice to the same printer.
//
// Mutations serialize on an internal write lock so the check-then-insert
// uniqueness test holds under concurrent handlers; reads share a read lock.
// The partial unique index on printer_assignments backstops uniqueness
// across processes.
type AssignmentService struct {
	pool     AssignmentPool
	newStore NewAssignmentStore

	mu    sync.RWMutex
	rules map[uuid.UUID]map[uuid.UUID]database.PrinterAssignment // outlet -> rule id -> rule
}

// NewAssignmentService creates a new AssignmentService.
func NewAssignmentService(pool AssignmentPool, newStore NewAssignmentStore) *AssignmentService {
	return &AssignmentService{
		pool:     pool,
		newStore: newStore,
		rules:    make(map[uuid.UUID]map[uuid.UUID]database.PrinterAssignment),
	}
}

// AddRule persists a new assignment rule and indexes it. Fails with
// ErrDuplicateAssignment when the (printer, scope, target) triple is already
// bound by an active rule; the rule set is left untouched on any failure.
func (s *AssignmentService) AddRule(ctx context.Context, arg AddAssignmentParams) (database.PrinterAssignment, error) {
	if !enum.ValidAssignScope(arg.Scope) {
		return database.PrinterAssignment{}, ErrInvalidAssignScope
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.ensureLoadedLocked(ctx, arg.OutletID)
	if err != nil {
		return database.PrinterAssignment{}, err
	}

	for _, r := range idx {
		if r.PrinterID == arg.PrinterID && r.Scope == arg.Scope && r.TargetID == arg.TargetID {
			return database.PrinterAssignment{}, ErrDuplicateAssignment
		}
	}

	store := s.newStore(s.pool)
	rule, err := store.CreatePrinterAssignment(ctx, database.CreatePrinterAssignmentParams{
		OutletID:    arg.OutletID,
		PrinterID:   arg.PrinterID,
		Scope:       arg.Scope,
		TargetID:    arg.TargetID,
		TargetLabel: arg.TargetLabel,
	})
	if err != nil {
		// Another writer (other process) may have inserted the same triple
		// between our check and the insert; the partial unique index reports it.
		if isAssignmentConflict(err) {
			return database.PrinterAssignment{}, ErrDuplicateAssignment
		}
		return database.PrinterAssignment{}, fmt.Errorf("save assignment rule: %w", err)
	}

	idx[rule.ID] = rule
	return rule, nil
}

// UpdateRule replaces an existing rule wholesale: the old rule is deleted and
// a new one inserted in a single transaction, yielding a fresh rule id. Fails
// with ErrAssignmentNotFound for an unknown rule id and with
// ErrDuplicateAssignment when the new triple collides with another active
// rule. The in-memory index changes only after commit.
func (s *AssignmentService) UpdateRule(ctx context.Context, arg UpdateAssignmentParams) (database.PrinterAssignment, error) {
	if !enum.ValidAssignScope(arg.Scope) {
		return database.PrinterAssignment{}, ErrInvalidAssignScope
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.ensureLoadedLocked(ctx, arg.OutletID)
	if err != nil {
		return database.PrinterAssignment{}, err
	}

	old, ok := idx[arg.RuleID]
	if !ok {
		return database.PrinterAssignment{}, ErrAssignmentNotFound
	}

	for id, r := range idx {
		if id == old.ID {
			continue
		}
		if r.PrinterID == arg.PrinterID && r.Scope == arg.Scope && r.TargetID == arg.TargetID {
			return database.PrinterAssignment{}, ErrDuplicateAssignment
		}
	}

	rule, err := s.replaceRuleTx(ctx, old, arg)
	if err != nil {
		if isAssignmentConflict(err) {
			return database.PrinterAssignment{}, ErrDuplicateAssignment
		}
		return database.PrinterAssignment{}, err
	}

	delete(idx, old.ID)
	idx[rule.ID] = rule
	return rule, nil
}

func (s *AssignmentService) replaceRuleTx(ctx context.Context, old database.PrinterAssignment, arg UpdateAssignmentParams) (database.PrinterAssignment, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.PrinterAssignment{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if _, err := store.SoftDeletePrinterAssignment(ctx, database.SoftDeletePrinterAssignmentParams{
		ID:       old.ID,
		OutletID: old.OutletID,
	}); err != nil {
		return database.PrinterAssignment{}, fmt.Errorf("delete assignment rule: %w", err)
	}

	rule, err := store.CreatePrinterAssignment(ctx, database.CreatePrinterAssignmentParams{
		OutletID:    arg.OutletID,
		PrinterID:   arg.PrinterID,
		Scope:       arg.Scope,
		TargetID:    arg.TargetID,
		TargetLabel: arg.TargetLabel,
	})
	if err != nil {
		return database.PrinterAssignment{}, fmt.Errorf("save assignment rule: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.PrinterAssignment{}, fmt.Errorf("commit tx: %w", err)
	}
	return rule, nil
}

// DeleteRule removes a rule from storage and the index. Deleting an unknown
// id fails with ErrAssignmentNotFound; deleting the same id twice fails the
// second time the same way.
func (s *AssignmentService) DeleteRule(ctx context.Context, outletID, ruleID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.ensureLoadedLocked(ctx, outletID)
	if err != nil {
		return err
	}

	if _, ok := idx[ruleID]; !ok {
		return ErrAssignmentNotFound
	}

	store := s.newStore(s.pool)
	if _, err := store.SoftDeletePrinterAssignment(ctx, database.SoftDeletePrinterAssignmentParams{
		ID:       ruleID,
		OutletID: outletID,
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Storage already lost the rule (deleted out-of-band); drop it
			// from the index so both sides agree.
			delete(idx, ruleID)
			return ErrAssignmentNotFound
		}
		return fmt.Errorf("delete assignment rule: %w", err)
	}

	delete(idx, ruleID)
	return nil
}

// Rules returns the outlet's active rules ordered by rule id.
func (s *AssignmentService) Rules(ctx context.Context, outletID uuid.UUID) ([]database.PrinterAssignment, error) {
	return s.snapshot(ctx, outletID)
}

// ResolveForMenuItem returns the single effective rule for a menu item. A
// MENU_ITEM rule for the item beats a CATEGORY rule for its category. When
// several rules compete at the same scope (fan-out), the one with the
// lexicographically smallest rule id wins; callers wanting the full fan-out
// use ResolveAllForMenuItem. ok is false when no rule matches at either
// scope, and the caller owns the fallback policy.
func (s *AssignmentService) ResolveForMenuItem(ctx context.Context, outletID, menuItemID, categoryID uuid.UUID) (database.PrinterAssignment, bool, error) {
	rules, err := s.snapshot(ctx, outletID)
	if err != nil {
		return database.PrinterAssignment{}, false, err
	}
	matches := resolveAll(rules, menuItemID, categoryID)
	if len(matches) == 0 {
		return database.PrinterAssignment{}, false, nil
	}
	return matches[0], true, nil
}

// ResolveAllForMenuItem returns every rule that routes the menu item: all
// MENU_ITEM rules for the item if any exist, otherwise all CATEGORY rules
// for its category, otherwise none. Item rules replace category rules
// entirely, they never merge. The result is ordered by rule id.
func (s *AssignmentService) ResolveAllForMenuItem(ctx context.Context, outletID, menuItemID, categoryID uuid.UUID) ([]database.PrinterAssignment, error) {
	rules, err := s.snapshot(ctx, outletID)
	if err != nil {
		return nil, err
	}
	return resolveAll(rules, menuItemID, categoryID), nil
}

// Segregate partitions order lines into per-printer buckets. Each line lands
// in the bucket of every printer it resolves to; lines resolving to no
// printer are omitted from the map, and the caller must detect and surface
// them. Buckets preserve the input line order, so the result is
// deterministic for a fixed rule set and input.
func (s *AssignmentService) Segregate(ctx context.Context, outletID uuid.UUID, lines []OrderLine) (map[uuid.UUID][]OrderLine, error) {
	rules, err := s.snapshot(ctx, outletID)
	if err != nil {
		return nil, err
	}

	buckets := make(map[uuid.UUID][]OrderLine)
	for _, line := range lines {
		for _, rule := range resolveAll(rules, line.MenuItemID, line.CategoryID) {
			buckets[rule.PrinterID] = append(buckets[rule.PrinterID], line)
		}
	}
	return buckets, nil
}

// Stats aggregates the outlet's rule set. Computed on demand, O(n) over the
// rule count.
func (s *AssignmentService) Stats(ctx context.Context, outletID uuid.UUID) (AssignmentStats, error) {
	rules, err := s.snapshot(ctx, outletID)
	if err != nil {
		return AssignmentStats{}, err
	}

	var stats AssignmentStats
	printers := make(map[uuid.UUID]struct{})
	for _, r := range rules {
		stats.TotalAssignments++
		switch r.Scope {
		case enum.AssignScopeCategory:
			stats.CategoryAssignments++
		case enum.AssignScopeMenuItem:
			stats.MenuItemAssignments++
		}
		printers[r.PrinterID] = struct{}{}
	}
	stats.UniquePrinters = len(printers)
	return stats, nil
}

// --- Helpers ---

// ensureLoadedLocked returns the outlet's rule index, loading it from
// storage on first use. Caller must hold the write lock.
func (s *AssignmentService) ensureLoadedLocked(ctx context.Context, outletID uuid.UUID) (map[uuid.UUID]database.PrinterAssignment, error) {
	if idx, ok := s.rules[outletID]; ok {
		return idx, nil
	}

	store := s.newStore(s.pool)
	loaded, err := store.ListAssignmentsByOutlet(ctx, outletID)
	if err != nil {
		return nil, fmt.Errorf("load assignment rules: %w", err)
	}

	idx := make(map[uuid.UUID]database.PrinterAssignment, len(loaded))
	for _, r := range loaded {
		idx[r.ID] = r
	}
	s.rules[outletID] = idx
	return idx, nil
}

// snapshot returns a copy of the outlet's rules sorted by rule id, loading
// the index on first use. Reads resolve against the copy without holding
// the lock.
func (s *AssignmentService) snapshot(ctx context.Context, outletID uuid.UUID) ([]database.PrinterAssignment, error) {
	s.mu.RLock()
	if idx, ok := s.rules[outletID]; ok {
		out := sortedRules(idx)
		s.mu.RUnlock()
		return out, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	idx, err := s.ensureLoadedLocked(ctx, outletID)
	if err != nil {
		return nil, err
	}
	return sortedRules(idx), nil
}

// sortedRules flattens a rule index ordered by rule id. The id order is the
// documented tie-break wherever rules compete, so every read path sees the
// same sequence.
func sortedRules(idx map[uuid.UUID]database.PrinterAssignment) []database.PrinterAssignment {
	out := make([]database.PrinterAssignment, 0, len(idx))
	for _, r := range idx {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// resolveAll picks the rules routing one menu item from a rule slice already
// sorted by id: item-scoped rules if any exist, else category-scoped rules.
func resolveAll(rules []database.PrinterAssignment, menuItemID, categoryID uuid.UUID) []database.PrinterAssignment {
	var itemRules, categoryRules []database.PrinterAssignment
	for _, r := range rules {
		switch r.Scope {
		case enum.AssignScopeMenuItem:
			if r.TargetID == menuItemID {
				itemRules = append(itemRules, r)
			}
		case enum.AssignScopeCategory:
			if r.TargetID == categoryID {
				categoryRules = append(categoryRules, r)
			}
		}
	}
	if len(itemRules) > 0 {
		return itemRules
	}
	return categoryRules
}

// isAssignmentConflict checks for a unique violation on the active-triple
// partial index (concurrent insert of the same triple from another process).
func isAssignmentConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "uq_assignments_active_triple"
	}
	return false
}
