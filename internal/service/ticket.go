package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tandoor-pos/api/internal/database"
	"github.com/tandoor-pos/api/internal/ws"
)

// TicketStore defines the DB methods needed to turn an order into print
// jobs. Satisfied by *database.Queries (and its WithTx variant).
type TicketStore interface {
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	GetTable(ctx context.Context, arg database.GetTableParams) (database.DiningTable, error)
	ListPrintersByOutlet(ctx context.Context, outletID uuid.UUID) ([]database.Printer, error)
	CreatePrintJob(ctx context.Context, arg database.CreatePrintJobParams) (database.PrintJob, error)
}

// NewTicketStore creates a TicketStore from a DBTX (pool or tx).
type NewTicketStore func(db database.DBTX) TicketStore

// Segregator partitions order lines into per-printer buckets.
// Satisfied by *AssignmentService.
type Segregator interface {
	Segregate(ctx context.Context, outletID uuid.UUID, lines []OrderLine) (map[uuid.UUID][]OrderLine, error)
}

// Broadcaster pushes an event to every websocket client of an outlet.
// Satisfied by *ws.Hub.
type Broadcaster interface {
	BroadcastToOutlet(outletID uuid.UUID, event ws.Event)
}

// Ticket is the JSON document a print job carries. The bridge renders it to
// the physical printer; the server never speaks ESC/POS.
type Ticket struct {
	OrderNumber string       `json:"order_number"`
	OrderType   string       `json:"order_type"`
	TableNumber *int32       `json:"table_number,omitempty"`
	PrinterName string       `json:"printer_name,omitempty"`
	Lines       []TicketLine `json:"lines"`
	Notes       string       `json:"notes,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// TicketLine is one "qty x name" row on a ticket.
type TicketLine struct {
	Quantity int32  `json:"quantity"`
	Name     string `json:"name"`
	Notes    string `json:"notes,omitempty"`
}

// SendToKitchenResult is the outcome of routing one order: the persisted
// jobs plus the lines no rule routed anywhere. Unassigned lines are the
// caller's problem to surface; they are never silently dropped and never
// guessed onto a printer.
type SendToKitchenResult struct {
	Jobs       []database.PrintJob
	Unassigned []OrderLine
}

// printJobEvent is the ws payload for print_job.* events.
type printJobEvent struct {
	JobID       uuid.UUID `json:"job_id"`
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	PrinterID   uuid.UUID `json:"printer_id"`
	Status      string    `json:"status"`
}

// TicketService turns orders into per-printer print jobs: it segregates the
// order's items through the assignment rules, renders one ticket per printer
// and queues it for the polling bridge.
type TicketService struct {
	pool        TxBeginner
	newStore    NewTicketStore
	segregator  Segregator
	broadcaster Broadcaster
}

// NewTicketService creates a new TicketService. broadcaster may be nil when
// no hub is running.
func NewTicketService(pool TxBeginner, newStore NewTicketStore, segregator Segregator, broadcaster Broadcaster) *TicketService {
	return &TicketService{pool: pool, newStore: newStore, segregator: segregator, broadcaster: broadcaster}
}

// SendToKitchen routes an order's items to printers and persists one QUEUED
// print job per printer, all in one transaction. Re-sending the same order
// segregates against the rules as they are now and queues a fresh set of
// jobs. A print_job.created event is broadcast per job after commit.
func (s *TicketService) SendToKitchen(ctx context.Context, outletID, orderID uuid.UUID) (*SendToKitchenResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrder(ctx, database.GetOrderParams{ID: orderID, OutletID: outletID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	items, err := store.ListOrderItems(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}

	lines := make([]OrderLine, 0, len(items))
	for _, it := range items {
		notes := ""
		if it.Notes.Valid {
			notes = it.Notes.String
		}
		lines = append(lines, OrderLine{
			MenuItemID: it.MenuItemID,
			CategoryID: it.CategoryID,
			Name:       it.Name,
			Quantity:   it.Quantity,
			Notes:      notes,
		})
	}

	buckets, err := s.segregator.Segregate(ctx, outletID, lines)
	if err != nil {
		return nil, fmt.Errorf("segregate order: %w", err)
	}

	// Resolution is a function of the line's menu item and category, so a
	// line is unassigned exactly when its item shows up in no bucket.
	routed := make(map[uuid.UUID]bool)
	for _, bucket := range buckets {
		for _, line := range bucket {
			routed[line.MenuItemID] = true
		}
	}
	var unassigned []OrderLine
	for _, line := range lines {
		if !routed[line.MenuItemID] {
			unassigned = append(unassigned, line)
		}
	}

	var tableNumber *int32
	if order.TableID.Valid {
		table, err := store.GetTable(ctx, database.GetTableParams{ID: order.TableID.UUID, OutletID: outletID})
		if err == nil {
			tableNumber = &table.TableNumber
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get table: %w", err)
		}
	}

	printerNames, err := s.printerNames(ctx, store, outletID)
	if err != nil {
		return nil, err
	}

	notes := ""
	if order.Notes.Valid {
		notes = order.Notes.String
	}
	issuedAt := time.Now().UTC()

	// Stable job order: printers sorted by id, lines already in input order.
	printerIDs := make([]uuid.UUID, 0, len(buckets))
	for pid := range buckets {
		printerIDs = append(printerIDs, pid)
	}
	sort.Slice(printerIDs, func(i, j int) bool {
		return printerIDs[i].String() < printerIDs[j].String()
	})

	var jobs []database.PrintJob
	for _, printerID := range printerIDs {
		bucket := buckets[printerID]
		ticketLines := make([]TicketLine, 0, len(bucket))
		for _, line := range bucket {
			ticketLines = append(ticketLines, TicketLine{
				Quantity: line.Quantity,
				Name:     line.Name,
				Notes:    line.Notes,
			})
		}

		payload, err := json.Marshal(Ticket{
			OrderNumber: order.OrderNumber,
			OrderType:   order.OrderType,
			TableNumber: tableNumber,
			PrinterName: printerNames[printerID],
			Lines:       ticketLines,
			Notes:       notes,
			CreatedAt:   issuedAt,
		})
		if err != nil {
			return nil, fmt.Errorf("marshal ticket: %w", err)
		}

		job, err := store.CreatePrintJob(ctx, database.CreatePrintJobParams{
			OutletID:  outletID,
			PrinterID: printerID,
			OrderID:   orderID,
			Ticket:    payload,
		})
		if err != nil {
			return nil, fmt.Errorf("create print job: %w", err)
		}
		jobs = append(jobs, job)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	for _, job := range jobs {
		s.broadcastJob(outletID, "print_job.created", job, order.OrderNumber)
	}

	return &SendToKitchenResult{Jobs: jobs, Unassigned: unassigned}, nil
}

// NotifyJobStatus broadcasts a print_job.status_changed event. Called by the
// handler after the bridge acks a job.
func (s *TicketService) NotifyJobStatus(outletID uuid.UUID, job database.PrintJob, orderNumber string) {
	s.broadcastJob(outletID, "print_job.status_changed", job, orderNumber)
}

// printerNames maps the outlet's active printer ids to display names.
// Rules may still route to a deactivated printer; its jobs then carry an
// empty name and the id alone identifies the queue.
func (s *TicketService) printerNames(ctx context.Context, store TicketStore, outletID uuid.UUID) (map[uuid.UUID]string, error) {
	printers, err := store.ListPrintersByOutlet(ctx, outletID)
	if err != nil {
		return nil, fmt.Errorf("list printers: %w", err)
	}
	names := make(map[uuid.UUID]string, len(printers))
	for _, p := range printers {
		names[p.ID] = p.Name
	}
	return names, nil
}

func (s *TicketService) broadcastJob(outletID uuid.UUID, eventType string, job database.PrintJob, orderNumber string) {
	if s.broadcaster == nil {
		return
	}
	payload, err := json.Marshal(printJobEvent{
		JobID:       job.ID,
		OrderID:     job.OrderID,
		OrderNumber: orderNumber,
		PrinterID:   job.PrinterID,
		Status:      job.Status,
	})
	if err != nil {
		return
	}
	s.broadcaster.BroadcastToOutlet(outletID, ws.Event{Type: eventType, Payload: payload})
}
