package handlers

import (
	"net/http"

	"github.com/EmanuelRealGamboa/clinica-camsa/internal/utils"
	"github.com/EmanuelRealGamboa/clinica-camsa/internal/websocket"
)

// staffWs upgrades a staff dashboard connection. Browsers cannot set
// headers on websocket requests, so the JWT arrives as ?token=.
func (r *Router) staffWs(w http.ResponseWriter, req *http.Request) {
	token := req.URL.Query().Get("token")
	if token == "" {
		respondError(w, http.StatusUnauthorized, "token parameter is required")
		return
	}
	if _, err := utils.ValidateToken(token, r.cfg.JWTSecret); err != nil {
		respondError(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	websocket.ServeStaffWs(r.hub, w, req)
}

// kioskWs upgrades a kiosk connection scoped to its device UID
func (r *Router) kioskWs(w http.ResponseWriter, req *http.Request) {
	websocket.ServeKioskWs(r.hub, w, req)
}
