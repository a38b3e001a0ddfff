package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/EmanuelRealGamboa/clinica-camsa/internal/services/feedback"
)

// createFeedback records a satisfaction rating for a delivered order.
// Submitting feedback also ends the care assignment behind the order.
func (r *Router) createFeedback(w http.ResponseWriter, req *http.Request) {
	orderID, ok := pathID(w, req)
	if !ok {
		return
	}

	var body struct {
		DeviceUID          string `json:"device_uid"`
		SatisfactionRating int    `json:"satisfaction_rating"`
		Comment            string `json:"comment"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.DeviceUID == "" {
		respondError(w, http.StatusBadRequest, "device_uid is required")
		return
	}

	created, err := r.feedback.Submit(orderID, body.DeviceUID, body.SatisfactionRating, body.Comment)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// listFeedbacks returns feedbacks for the staff dashboard, filterable by
// ?rating=, ?staff_id= and ?room_id=
func (r *Router) listFeedbacks(w http.ResponseWriter, req *http.Request) {
	var filter feedback.ListFilter

	if raw := req.URL.Query().Get("rating"); raw != "" {
		rating, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid rating")
			return
		}
		filter.Rating = &rating
	}
	if raw := req.URL.Query().Get("staff_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid staff_id")
			return
		}
		v := uint(id)
		filter.StaffID = &v
	}
	if raw := req.URL.Query().Get("room_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid room_id")
			return
		}
		v := uint(id)
		filter.RoomID = &v
	}

	feedbacks, err := r.feedback.List(filter)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, feedbacks)
}
