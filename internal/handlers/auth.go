package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/EmanuelRealGamboa/clinica-camsa/internal/models"
	"github.com/EmanuelRealGamboa/clinica-camsa/internal/utils"
	"gorm.io/gorm"
)

// login authenticates a staff member and returns a token pair
func (r *Router) login(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.Email == "" || body.Password == "" {
		respondError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	var user models.StaffUser
	err := r.db.Where("email = ?", body.Email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if !user.IsActive {
		respondError(w, http.StatusUnauthorized, "Account is deactivated")
		return
	}
	if !utils.CheckPasswordHash(body.Password, user.Password) {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	accessToken, refreshToken, err := utils.GenerateTokens(&user, r.cfg.JWTSecret)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	now := time.Now().UTC()
	user.LastLogin = &now
	if err := r.db.Model(&user).Update("last_login", now).Error; err != nil {
		log.Printf("Failed to update last login for %s: %v", user.Email, err)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"user":          user,
	})
}

// register creates a new staff account
func (r *Router) register(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"full_name"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.Email == "" || body.Password == "" {
		respondError(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	if len(body.Password) < 8 {
		respondError(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}

	var count int64
	r.db.Model(&models.StaffUser{}).Where("email = ?", body.Email).Count(&count)
	if count > 0 {
		respondError(w, http.StatusConflict, "Email already registered")
		return
	}

	hashed, err := utils.HashPassword(body.Password)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	role := body.Role
	if role == "" {
		role = "staff"
	}
	user := models.StaffUser{
		Email:    body.Email,
		Password: hashed,
		FullName: body.FullName,
		Role:     role,
		IsActive: true,
	}
	if err := r.db.Create(&user).Error; err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, user)
}

// logout exists so clients have a definite endpoint to call. Tokens are
// stateless, expiry does the actual invalidation.
func (r *Router) logout(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Logged out",
	})
}
