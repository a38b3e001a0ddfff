package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/EmanuelRealGamboa/clinica-camsa/internal/models"
	"github.com/EmanuelRealGamboa/clinica-camsa/internal/services/printer"
)

// assignmentInfo tells a kiosk who it is currently serving. The kiosk
// shows the patient's name and the order limits on its home screen;
// assignment == null means the device is idle.
func (r *Router) assignmentInfo(w http.ResponseWriter, req *http.Request) {
	deviceUID := req.URL.Query().Get("device_uid")
	if deviceUID == "" {
		respondError(w, http.StatusBadRequest, "device_uid parameter is required")
		return
	}

	device, assignment, err := r.clinic.ActiveForDeviceUID(deviceUID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"device":     device,
		"assignment": assignment,
	})
}

// endAssignment ends a care assignment manually (discharge without feedback)
func (r *Router) endAssignment(w http.ResponseWriter, req *http.Request) {
	assignmentID, ok := pathID(w, req)
	if !ok {
		return
	}

	assignment, err := r.clinic.EndAssignment(assignmentID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, assignment)
}

// deviceLabels generates a QR pairing sheet for the requested devices,
// or for every active device when no ids are given.
func (r *Router) deviceLabels(w http.ResponseWriter, req *http.Request) {
	var body struct {
		DeviceIDs []uint              `json:"device_ids"`
		Config    printer.LabelConfig `json:"config"`
	}
	// An empty body means all active devices with the default layout
	json.NewDecoder(req.Body).Decode(&body)

	var devices []models.Device
	q := r.db.DB
	if len(body.DeviceIDs) > 0 {
		q = q.Where("id IN ?", body.DeviceIDs)
	} else {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Order("device_uid").Find(&devices).Error; err != nil {
		respondServiceError(w, err)
		return
	}
	if len(devices) == 0 {
		respondError(w, http.StatusNotFound, "No devices to print")
		return
	}

	pdfBytes, err := printer.PairingLabelsPDF(devices, r.cfg.KioskBaseURL, body.Config)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "inline; filename=device_labels.pdf")
	w.Write(pdfBytes)
}
