package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/EmanuelRealGamboa/clinica-camsa/internal/middleware"
	"github.com/EmanuelRealGamboa/clinica-camsa/internal/models"
	"github.com/EmanuelRealGamboa/clinica-camsa/internal/services/orders"
	"github.com/EmanuelRealGamboa/clinica-camsa/internal/services/printer"
	"github.com/gorilla/mux"
)

// createPublicOrder places an order from a kiosk.
// The kiosk identifies itself by device UID, not a JWT.
func (r *Router) createPublicOrder(w http.ResponseWriter, req *http.Request) {
	var body struct {
		DeviceUID string               `json:"device_uid"`
		Items     []orders.LineRequest `json:"items"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	order, err := r.orders.Create(body.DeviceUID, body.Items)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, order)
}

// activeOrders returns a kiosk's undelivered orders so a reconnecting
// kiosk can catch up on anything it missed over the websocket.
func (r *Router) activeOrders(w http.ResponseWriter, req *http.Request) {
	deviceUID := req.URL.Query().Get("device_uid")
	if deviceUID == "" {
		respondError(w, http.StatusBadRequest, "device_uid parameter is required")
		return
	}

	list, err := r.orders.ActiveForDevice(deviceUID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// listOrders returns orders for the staff dashboard. ?my_orders=true
// narrows the listing to the requester's active care assignment.
func (r *Router) listOrders(w http.ResponseWriter, req *http.Request) {
	list, err := r.orders.List(myOrdersScope(req))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// orderQueue returns orders filtered by status for the kitchen queue.
// ?status=PLACED,PREPARING selects statuses; the default shows the
// orders the kitchen still has to act on. ?my_orders=true scopes like
// listOrders.
func (r *Router) orderQueue(w http.ResponseWriter, req *http.Request) {
	var statuses []models.OrderStatus
	if raw := req.URL.Query().Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			statuses = append(statuses, models.OrderStatus(strings.ToUpper(strings.TrimSpace(s))))
		}
	}

	list, err := r.orders.Queue(statuses, myOrdersScope(req))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// myOrdersScope resolves the ?my_orders=true filter to a staff id.
// Admins always see everything.
func myOrdersScope(req *http.Request) *uint {
	if req.URL.Query().Get("my_orders") != "true" {
		return nil
	}
	if middleware.Role(req) == "admin" {
		return nil
	}
	return middleware.ActorID(req)
}

// getOrder returns one order with its items and status history
func (r *Router) getOrder(w http.ResponseWriter, req *http.Request) {
	orderID, ok := pathID(w, req)
	if !ok {
		return
	}

	order, err := r.orders.Get(orderID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// changeOrderStatus moves an order through the lifecycle. Delivering an
// order consumes its reservations.
func (r *Router) changeOrderStatus(w http.ResponseWriter, req *http.Request) {
	orderID, ok := pathID(w, req)
	if !ok {
		return
	}

	var body struct {
		ToStatus string `json:"to_status"`
		// Older dashboard builds sent "status"
		Status string `json:"status"`
		Note   string `json:"note"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	raw := body.ToStatus
	if raw == "" {
		raw = body.Status
	}
	toStatus := models.OrderStatus(strings.ToUpper(strings.TrimSpace(raw)))
	order, err := r.orders.ChangeStatus(orderID, toStatus, middleware.ActorID(req), body.Note)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// cancelOrder cancels an order and releases its reservations
func (r *Router) cancelOrder(w http.ResponseWriter, req *http.Request) {
	orderID, ok := pathID(w, req)
	if !ok {
		return
	}

	var body struct {
		Note string `json:"note"`
	}
	// An empty body is fine, the note is optional
	json.NewDecoder(req.Body).Decode(&body)

	order, err := r.orders.Cancel(orderID, middleware.ActorID(req), body.Note)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// orderTicket streams a printable kitchen ticket PDF
func (r *Router) orderTicket(w http.ResponseWriter, req *http.Request) {
	orderID, ok := pathID(w, req)
	if !ok {
		return
	}

	order, err := r.orders.Get(orderID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	pdfBytes, err := printer.OrderTicketPDF(order)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=order_%d_ticket.pdf", order.ID))
	w.Write(pdfBytes)
}

// pathID parses the {id} route variable, responding 400 on garbage
func pathID(w http.ResponseWriter, req *http.Request) (uint, bool) {
	raw := mux.Vars(req)["id"]
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid id")
		return 0, false
	}
	return uint(id), true
}
