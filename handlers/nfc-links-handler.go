package handlers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"profile-service/config"
	"profile-service/db"
	"profile-service/middleware"
	"profile-service/models"
	"profile-service/utils"
)

// NfcLinkHandler manages admin-issued NFC links. All routes sit behind the
// admin middleware.
type NfcLinkHandler struct {
	cfg config.Config
}

func NewNfcLinkHandler(cfg config.Config) *NfcLinkHandler {
	return &NfcLinkHandler{cfg: cfg}
}

// GenerateHandler issues a fresh NFC link. POST /api/nfc-links
func (h *NfcLinkHandler) GenerateHandler(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json")

	createdBy := ""
	if claims, ok := middleware.AdminClaimsFromContext(r.Context()); ok {
		createdBy = claims.Email
	}

	slug, err := utils.GenerateUniqueSlug(slugTaken, h.cfg.Slugs.MaxAttempts)
	if err != nil {
		log.Printf("slug generation exhausted: %v", err)
		return middleware.NewAppError(http.StatusInternalServerError, "Failed to generate a unique slug. Please try again later.", err)
	}

	link, err := scanNfcLink(db.DB.QueryRow(
		"INSERT INTO nfc_links (id, slug, created_by) VALUES ($1, $2, $3) RETURNING "+nfcLinkColumns,
		newUUID(), slug, createdBy))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return middleware.NewConflictError("Slug collision, please try again", err)
		}
		log.Printf("Error inserting nfc link: %v", err)
		return middleware.NewAppError(http.StatusInternalServerError, "Internal server error", err)
	}
	link.Link = fmt.Sprintf("%s/p/%s", h.cfg.Links.BaseURL, link.Slug)

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(JSONResponse{"success": true, "data": link})
	return nil
}

// ListHandler returns every issued link, newest first. GET /api/nfc-links
func (h *NfcLinkHandler) ListHandler(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json")

	rows, err := db.DB.Query("SELECT " + nfcLinkColumns + " FROM nfc_links ORDER BY created_at DESC")
	if err != nil {
		log.Printf("Database error: %v", err)
		return middleware.NewAppError(http.StatusInternalServerError, "Internal server error", err)
	}
	defer rows.Close()

	links := []*models.NfcLink{}
	for rows.Next() {
		link, err := scanNfcLink(rows)
		if err != nil {
			log.Printf("Database error: %v", err)
			return middleware.NewAppError(http.StatusInternalServerError, "Internal server error", err)
		}
		link.Link = fmt.Sprintf("%s/p/%s", h.cfg.Links.BaseURL, link.Slug)
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		log.Printf("Database error: %v", err)
		return middleware.NewAppError(http.StatusInternalServerError, "Internal server error", err)
	}

	json.NewEncoder(w).Encode(JSONResponse{"success": true, "data": links})
	return nil
}

// AssignHandler binds a link to a profile exactly once.
// PUT /api/nfc-links/{slug}/assign
func (h *NfcLinkHandler) AssignHandler(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json")
	slug := pathVar(r, "slug")

	var req struct {
		ProfileID  string `json:"profileId"`
		AssignedTo string `json:"assignedTo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return middleware.NewValidationError("Invalid request payload", err)
	}
	if req.ProfileID == "" || req.AssignedTo == "" {
		return middleware.NewValidationError("Profile ID and assigned to are required", nil)
	}

	var profileExists bool
	if err := db.DB.QueryRow("SELECT EXISTS (SELECT 1 FROM profiles WHERE id = $1)", req.ProfileID).Scan(&profileExists); err != nil {
		log.Printf("Database error: %v", err)
		return middleware.NewAppError(http.StatusInternalServerError, "Internal server error", err)
	}
	if !profileExists {
		return middleware.NewNotFoundError("Profile not found", nil)
	}

	// Assigned-once is enforced in the WHERE clause, same shape as the
	// profile claim.
	link, err := scanNfcLink(db.DB.QueryRow(`UPDATE nfc_links
		SET profile_id = $1, is_assigned = TRUE, assigned_to = $2, assigned_at = NOW(), updated_at = NOW()
		WHERE slug = $3 AND is_assigned = FALSE
		RETURNING `+nfcLinkColumns, req.ProfileID, req.AssignedTo, slug))
	if err == sql.ErrNoRows {
		var assigned bool
		lookupErr := db.DB.QueryRow("SELECT is_assigned FROM nfc_links WHERE slug = $1", slug).Scan(&assigned)
		if lookupErr == sql.ErrNoRows {
			return middleware.NewNotFoundError("NFC link not found", lookupErr)
		}
		if lookupErr != nil {
			log.Printf("Database error: %v", lookupErr)
			return middleware.NewAppError(http.StatusInternalServerError, "Internal server error", lookupErr)
		}
		return middleware.NewValidationError("This NFC link is already assigned", nil)
	}
	if err != nil {
		log.Printf("Database error: %v", err)
		return middleware.NewAppError(http.StatusInternalServerError, "Internal server error", err)
	}
	link.Link = fmt.Sprintf("%s/p/%s", h.cfg.Links.BaseURL, link.Slug)

	json.NewEncoder(w).Encode(JSONResponse{"success": true, "data": link})
	return nil
}

// DeactivateHandler turns a link off. PUT /api/nfc-links/{slug}/deactivate
func (h *NfcLinkHandler) DeactivateHandler(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json")
	slug := pathVar(r, "slug")

	link, err := scanNfcLink(db.DB.QueryRow(`UPDATE nfc_links
		SET is_active = FALSE, updated_at = NOW()
		WHERE slug = $1
		RETURNING `+nfcLinkColumns, slug))
	if err == sql.ErrNoRows {
		return middleware.NewNotFoundError("NFC link not found", err)
	}
	if err != nil {
		log.Printf("Database error: %v", err)
		return middleware.NewAppError(http.StatusInternalServerError, "Internal server error", err)
	}

	json.NewEncoder(w).Encode(JSONResponse{
		"success": true,
		"message": "NFC link deactivated successfully",
		"data":    link,
	})
	return nil
}
