package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tandoor-pos/api/internal/config"
	"github.com/tandoor-pos/api/internal/database"
	"github.com/tandoor-pos/api/internal/enum"
	"github.com/tandoor-pos/api/internal/handler"
	mw "github.com/tandoor-pos/api/internal/middleware"
	"github.com/tandoor-pos/api/internal/service"
	"github.com/tandoor-pos/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication, outlet scoping, and role-based middleware as needed.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/outlets/{oid}/events", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Services. The assignment service keeps a per-outlet rule cache, so a
	// single instance is shared between the rule endpoints and ticket routing.
	assignmentService := service.NewAssignmentService(pool, func(db database.DBTX) service.AssignmentStore {
		return database.New(db)
	})
	orderService := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	})
	ticketService := service.NewTicketService(pool, func(db database.DBTX) service.TicketStore {
		return database.New(db)
	}, assignmentService, hub)

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Outlet-scoped routes
		r.Route("/outlets/{oid}", func(r chi.Router) {
			r.Use(mw.RequireOutlet)

			// Users (managers and up)
			userHandler := handler.NewUserHandler(queries)
			r.Route("/users", func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleAdmin, enum.UserRoleManager))
				userHandler.RegisterRoutes(r)
			})

			// Categories
			categoryHandler := handler.NewCategoryHandler(queries)
			r.Route("/categories", categoryHandler.RegisterRoutes)

			// Menu items
			menuItemHandler := handler.NewMenuItemHandler(queries)
			r.Route("/menu-items", menuItemHandler.RegisterRoutes)

			// Inventory
			inventoryHandler := handler.NewInventoryHandler(queries)
			r.Route("/inventory", inventoryHandler.RegisterRoutes)

			// Tables
			tableHandler := handler.NewTableHandler(queries)
			r.Route("/tables", tableHandler.RegisterRoutes)

			// Printers
			printerHandler := handler.NewPrinterHandler(queries)
			r.Route("/printers", printerHandler.RegisterRoutes)

			// Printer assignment rules
			assignmentHandler := handler.NewAssignmentHandler(assignmentService)
			r.Route("/printer-assignments", assignmentHandler.RegisterRoutes)

			// Orders
			orderHandler := handler.NewOrderHandler(orderService, ticketService, queries, hub)
			r.Route("/orders", orderHandler.RegisterRoutes)

			// Print jobs (polled by the print bridge)
			printJobHandler := handler.NewPrintJobHandler(queries, ticketService)
			r.Route("/print-jobs", printJobHandler.RegisterRoutes)

			// Reports (managers and up)
			reportsHandler := handler.NewReportsHandler(queries)
			r.Route("/reports", func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleAdmin, enum.UserRoleManager))
				reportsHandler.RegisterRoutes(r)
			})
		})
	})

	return r
}
