package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/EmanuelRealGamboa/clinica-camsa/internal/apperr"
	"github.com/EmanuelRealGamboa/clinica-camsa/internal/config"
	"github.com/EmanuelRealGamboa/clinica-camsa/internal/database"
	"github.com/EmanuelRealGamboa/clinica-camsa/internal/middleware"
	"github.com/EmanuelRealGamboa/clinica-camsa/internal/services/clinic"
	"github.com/EmanuelRealGamboa/clinica-camsa/internal/services/feedback"
	"github.com/EmanuelRealGamboa/clinica-camsa/internal/services/inventory"
	"github.com/EmanuelRealGamboa/clinica-camsa/internal/services/orders"
	"github.com/EmanuelRealGamboa/clinica-camsa/internal/websocket"
	"github.com/gorilla/mux"
)

// Router wraps the mux router, the database and the domain services
type Router struct {
	*mux.Router
	db       *database.DB
	cfg      *config.Config
	hub      *websocket.Hub
	ledger   *inventory.Ledger
	clinic   *clinic.Service
	orders   *orders.Service
	feedback *feedback.Service
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(db *database.DB, cfg *config.Config, hub *websocket.Hub) *Router {
	ledger := inventory.NewLedger(db.DB)
	clinicSvc := clinic.NewService(db.DB)

	r := &Router{
		Router:   mux.NewRouter(),
		db:       db,
		cfg:      cfg,
		hub:      hub,
		ledger:   ledger,
		clinic:   clinicSvc,
		orders:   orders.NewService(db.DB, ledger, clinicSvc, websocket.NewOrderNotifier(hub)),
		feedback: feedback.NewService(db.DB),
	}

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")

	// Auth routes
	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", r.login).Methods("POST")
	auth.HandleFunc("/register", r.register).Methods("POST")
	auth.HandleFunc("/logout", r.logout).Methods("POST")

	// Public kiosk routes (device UID instead of authentication)
	public := r.PathPrefix("/api/public").Subrouter()
	public.HandleFunc("/orders/create", r.createPublicOrder).Methods("POST")
	public.HandleFunc("/orders/active", r.activeOrders).Methods("GET")
	public.HandleFunc("/orders/{id}/feedback", r.createFeedback).Methods("POST")
	public.HandleFunc("/assignment", r.assignmentInfo).Methods("GET")

	// Staff routes (JWT protected)
	staff := r.PathPrefix("/api").Subrouter()
	staff.Use(middleware.Auth(cfg.JWTSecret))
	staff.HandleFunc("/orders", r.listOrders).Methods("GET")
	staff.HandleFunc("/orders/queue", r.orderQueue).Methods("GET")
	staff.HandleFunc("/orders/{id}", r.getOrder).Methods("GET")
	staff.HandleFunc("/orders/{id}/status", r.changeOrderStatus).Methods("PATCH")
	staff.HandleFunc("/orders/{id}/cancel", r.cancelOrder).Methods("POST")
	staff.HandleFunc("/orders/{id}/ticket", r.orderTicket).Methods("GET")
	staff.HandleFunc("/inventory/balances", r.listBalances).Methods("GET")
	staff.HandleFunc("/inventory/movements", r.listMovements).Methods("GET")
	staff.HandleFunc("/inventory/stock/receipt", r.stockReceipt).Methods("POST")
	staff.HandleFunc("/inventory/stock/adjust", r.stockAdjust).Methods("POST")
	staff.HandleFunc("/inventory/stock/waste", r.stockWaste).Methods("POST")
	staff.HandleFunc("/assignments/{id}/end", r.endAssignment).Methods("POST")
	staff.HandleFunc("/devices/labels", r.deviceLabels).Methods("POST")
	staff.HandleFunc("/feedbacks", r.listFeedbacks).Methods("GET")

	// Realtime channels
	r.HandleFunc("/ws/staff/orders", r.staffWs).Methods("GET")
	r.HandleFunc("/ws/kiosk/orders", r.kioskWs).Methods("GET")

	return r
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondServiceError maps the service error taxonomy to HTTP statuses.
// Unexpected errors are logged and surfaced as an opaque 500.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case apperr.IsNotFound(err):
		respondError(w, http.StatusNotFound, err.Error())
	case apperr.IsValidation(err):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("internal error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
