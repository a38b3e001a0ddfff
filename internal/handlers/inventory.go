package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/EmanuelRealGamboa/clinica-camsa/internal/middleware"
)

// listBalances returns every product's stock balance
func (r *Router) listBalances(w http.ResponseWriter, req *http.Request) {
	balances, err := r.ledger.Balances()
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, balances)
}

// listMovements returns the movement log, optionally scoped with ?product_id=
func (r *Router) listMovements(w http.ResponseWriter, req *http.Request) {
	var productID *uint
	if raw := req.URL.Query().Get("product_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid product_id")
			return
		}
		v := uint(id)
		productID = &v
	}

	movements, err := r.ledger.Movements(productID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, movements)
}

type stockRequest struct {
	ProductID uint   `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Delta     int    `json:"delta"`
	Note      string `json:"note"`
}

// stockReceipt registers incoming stock for a product
func (r *Router) stockReceipt(w http.ResponseWriter, req *http.Request) {
	var body stockRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	balance, movement, err := r.ledger.Receive(body.ProductID, body.Quantity, middleware.ActorID(req), body.Note)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"balance":  balance,
		"movement": movement,
	})
}

// stockAdjust applies a signed correction to a product's on-hand stock
func (r *Router) stockAdjust(w http.ResponseWriter, req *http.Request) {
	var body stockRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	balance, movement, err := r.ledger.Adjust(body.ProductID, body.Delta, middleware.ActorID(req), body.Note)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"balance":  balance,
		"movement": movement,
	})
}

// stockWaste writes off spoiled or damaged stock
func (r *Router) stockWaste(w http.ResponseWriter, req *http.Request) {
	var body stockRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	balance, movement, err := r.ledger.Waste(body.ProductID, body.Quantity, middleware.ActorID(req), body.Note)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"balance":  balance,
		"movement": movement,
	})
}
