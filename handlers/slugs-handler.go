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
)

type SlugHandler struct {
	cfg config.Config
}

func NewSlugHandler(cfg config.Config) *SlugHandler {
	return &SlugHandler{cfg: cfg}
}

// CheckSlugHandler reports whether a slug is known and active.
// GET /api/slugs/{slug}
func (h *SlugHandler) CheckSlugHandler(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json")
	slug := pathVar(r, "slug")

	link, err := scanNfcLink(db.DB.QueryRow(
		"SELECT "+nfcLinkColumns+" FROM nfc_links WHERE slug = $1 AND is_active = TRUE", slug))
	if err == sql.ErrNoRows {
		return middleware.NewNotFoundError("Slug not found or inactive", err)
	}
	if err != nil {
		log.Printf("Database error: %v", err)
		return middleware.NewAppError(http.StatusInternalServerError, "Internal server error", err)
	}
	link.Link = fmt.Sprintf("%s/p/%s", h.cfg.Links.BaseURL, link.Slug)

	json.NewEncoder(w).Encode(JSONResponse{"success": true, "data": link})
	return nil
}

// DeactivateSlugHandler soft-deletes a slug; the profile record stays.
// DELETE /api/slugs/{slug} (admin)
func (h *SlugHandler) DeactivateSlugHandler(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json")
	slug := pathVar(r, "slug")

	result, err := db.DB.Exec(
		"UPDATE nfc_links SET is_active = FALSE, updated_at = NOW() WHERE slug = $1", slug)
	if err != nil {
		log.Printf("Database error: %v", err)
		return middleware.NewAppError(http.StatusInternalServerError, "Internal server error", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return middleware.NewNotFoundError("Slug not found", nil)
	}

	json.NewEncoder(w).Encode(JSONResponse{"success": true, "message": "Slug deactivated successfully"})
	return nil
}

const nfcLinkColumns = `id, slug, profile_id, created_by, is_active, is_assigned, assigned_to, assigned_at, created_at, updated_at`

func scanNfcLink(row rowScanner) (*models.NfcLink, error) {
	var link models.NfcLink
	var profileID, assignedTo sql.NullString
	var assignedAt sql.NullTime
	err := row.Scan(&link.ID, &link.Slug, &profileID, &link.CreatedBy, &link.IsActive,
		&link.IsAssigned, &assignedTo, &assignedAt, &link.CreatedAt, &link.UpdatedAt)
	if err != nil {
		return nil, err
	}
	link.ProfileID = profileID.String
	link.AssignedTo = assignedTo.String
	if assignedAt.Valid {
		link.AssignedAt = &assignedAt.Time
	}
	return &link, nil
}
