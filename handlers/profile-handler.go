package handlers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"profile-service/config"
	"profile-service/db"
	"profile-service/middleware"
	"profile-service/models"
	"profile-service/utils"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

func pathVar(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}

var newUUID = uuid.NewString

type JSONResponse map[string]interface{}

// ownerIdentity is the requester's ownership credential: exactly one of the
// two fields is set.
type ownerIdentity struct {
	DeviceID string
	GoogleID string
}

func (id ownerIdentity) empty() bool {
	return id.DeviceID == "" && id.GoogleID == ""
}

func (id ownerIdentity) matches(p *models.Profile) bool {
	if id.DeviceID != "" {
		return p.OwnerDeviceID == id.DeviceID
	}
	if id.GoogleID != "" {
		return p.GoogleID == id.GoogleID
	}
	return false
}

type ProfileHandler struct {
	cfg      config.Config
	verifier middleware.GoogleVerifier
}

func NewProfileHandler(cfg config.Config, verifier middleware.GoogleVerifier) *ProfileHandler {
	return &ProfileHandler{cfg: cfg, verifier: verifier}
}

const profileColumns = `id, slug, username, name, title, subtitle, avatar, email, phone, company,
		website, linkedin, instagram, twitter, location, upi, owner_device_id, google_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProfile(row rowScanner) (*models.Profile, error) {
	var p models.Profile
	var username sql.NullString
	err := row.Scan(&p.ID, &p.Slug, &username, &p.Name, &p.Title, &p.Subtitle, &p.Avatar,
		&p.Email, &p.Phone, &p.Company, &p.Website, &p.Linkedin, &p.Instagram, &p.Twitter,
		&p.Location, &p.UPI, &p.OwnerDeviceID, &p.GoogleID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Username = username.String
	return &p, nil
}

// identityFromRequest resolves the requester's ownership credential: a device
// id from the body or X-Device-ID header, or the subject of a verified Google
// ID token. Token failures count as no identity.
func (h *ProfileHandler) identityFromRequest(r *http.Request, bodyDeviceID string) ownerIdentity {
	if bodyDeviceID != "" {
		return ownerIdentity{DeviceID: bodyDeviceID}
	}
	if deviceID := r.Header.Get(middleware.DeviceIDHeader); deviceID != "" {
		return ownerIdentity{DeviceID: deviceID}
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" || h.verifier == nil {
		return ownerIdentity{}
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	user, err := h.verifier.Verify(r.Context(), token)
	if err != nil {
		return ownerIdentity{}
	}
	return ownerIdentity{GoogleID: user.GoogleID}
}

// GenerateSlugHandler creates a fresh slug together with an unclaimed profile
// behind it. POST /api/slugs
func (h *ProfileHandler) GenerateSlugHandler(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json")

	slug, err := utils.GenerateUniqueSlug(slugTaken, h.cfg.Slugs.MaxAttempts)
	if err != nil {
		log.Printf("slug generation exhausted: %v", err)
		return middleware.NewAppError(http.StatusInternalServerError, "Failed to generate a unique slug. Please try again later.", err)
	}

	tx, err := db.DB.Begin()
	if err != nil {
		log.Printf("Error creating transaction: %v", err)
		return middleware.NewAppError(http.StatusInternalServerError, "Internal server error", err)
	}

	if _, err := tx.Exec("INSERT INTO nfc_links (id, slug, created_by) VALUES ($1, $2, $3)",
		newUUID(), slug, "self-service"); err != nil {
		_ = tx.Rollback()
		if db.IsUniqueViolation(err) {
			return middleware.NewConflictError("Slug collision, please try again", err)
		}
		log.Printf("Error inserting nfc link: %v", err)
		return middleware.NewAppError(http.StatusInternalServerError, "Internal server error", err)
	}

	if _, err := tx.Exec("INSERT INTO profiles (id, slug) VALUES ($1, $2)", newUUID(), slug); err != nil {
		_ = tx.Rollback()
		if db.IsUniqueViolation(err) {
			return middleware.NewConflictError("Slug collision, please try again", err)
		}
		log.Printf("Error inserting profile: %v", err)
		return middleware.NewAppError(http.StatusInternalServerError, "Internal server error", err)
	}

	if err := tx.Commit(); err != nil {
		log.Printf("Error committing transaction: %v", err)
		return middleware.NewAppError(http.StatusInternalServerError, "Internal server error", err)
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(JSONResponse{
		"success": true,
		"slug":    slug,
		"link":    fmt.Sprintf("%s/p/%s", h.cfg.Links.BaseURL, slug),
	})
	return nil
}

// slugTaken spans both tables so a link slug can never shadow a profile slug
// or the other way around.
func slugTaken(slug string) (bool, error) {
	var exists bool
	err := db.DB.QueryRow("SELECT EXISTS (SELECT 1 FROM nfc_links WHERE slug = $1) OR EXISTS (SELECT 1 FROM profiles WHERE slug = $1)", slug).Scan(&exists)
	return exists, err
}

// GetProfileBySlugHandler returns the profile behind a slug, creating an
// unclaimed placeholder on first visit. GET /api/profile/slug/{slug}
func (h *ProfileHandler) GetProfileBySlugHandler(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json")
	slug := pathVar(r, "slug")

	var active bool
	err := db.DB.QueryRow("SELECT is_active FROM nfc_links WHERE slug = $1", slug).Scan(&active)
	if err != nil {
		if err == sql.ErrNoRows {
			return middleware.NewNotFoundError("Slug not found or inactive", err)
		}
		log.Printf("Database error: %v", err)
		return middleware.NewAppError(http.StatusInternalServerError, "Internal server error", err)
	}
	if !active {
		return middleware.NewNotFoundError("Slug not found or inactive", nil)
	}

	profile, err := scanProfile(db.DB.QueryRow(
		"SELECT "+profileColumns+" FROM profiles WHERE slug = $1", slug))
	if err == sql.ErrNoRows {
		profile, err = h.createPlaceholder(slug)
	}
	if err != nil {
		log.Printf("Database error: %v", err)
		return middleware.NewAppError(http.StatusInternalServerError, "Internal server error", err)
	}

	identity := h.identityFromRequest(r, "")
	json.NewEncoder(w).Encode(JSONResponse{
		"success": true,
		"data":    profile,
		"isOwner": !identity.empty() && identity.matches(profile),
		"claimed": profile.Claimed(),
	})
	return nil
}

func (h *ProfileHandler) createPlaceholder(slug string) (*models.Profile, error) {
	row := db.DB.QueryRow(
		"INSERT INTO profiles (id, slug) VALUES ($1, $2) RETURNING "+profileColumns, newUUID(), slug)
	profile, err := scanProfile(row)
	if err != nil && db.IsUniqueViolation(err) {
		// Lost the race to another first visitor; theirs is the record.
		return scanProfile(db.DB.QueryRow(
			"SELECT "+profileColumns+" FROM profiles WHERE slug = $1", slug))
	}
	return profile, err
}

// UpdateProfileBySlugHandler updates display fields, claiming the profile for
// the requester when it is still unclaimed. The claim and the field writes
// happen in one conditional statement, all or nothing.
// POST /api/profile/slug/{slug}
func (h *ProfileHandler) UpdateProfileBySlugHandler(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json")
	slug := pathVar(r, "slug")

	var req struct {
		DeviceID string `json:"deviceId"`
		models.ProfileUpdate
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return middleware.NewValidationError("Invalid request payload", err)
	}

	identity := h.identityFromRequest(r, req.DeviceID)
	if identity.empty() {
		return middleware.NewValidationError("Device ID is required", nil)
	}

	profile, err := h.conditionalUpdate(slug, identity, &req.ProfileUpdate)
	if err != nil {
		return err
	}

	json.NewEncoder(w).Encode(JSONResponse{"success": true, "data": profile})
	return nil
}

// conditionalUpdate performs the claim-if-unclaimed-then-update write. The
// WHERE clause is the entire ownership check; a concurrent first claim simply
// makes this statement match zero rows.
func (h *ProfileHandler) conditionalUpdate(slug string, identity ownerIdentity, update *models.ProfileUpdate) (*models.Profile, error) {
	var owner, ownerColumn, otherColumn string
	if identity.DeviceID != "" {
		owner, ownerColumn, otherColumn = identity.DeviceID, "owner_device_id", "google_id"
	} else {
		owner, ownerColumn, otherColumn = identity.GoogleID, "google_id", "owner_device_id"
	}

	query := fmt.Sprintf(`UPDATE profiles SET
			name = COALESCE($2, name),
			title = COALESCE($3, title),
			subtitle = COALESCE($4, subtitle),
			avatar = COALESCE($5, avatar),
			email = COALESCE($6, email),
			phone = COALESCE($7, phone),
			company = COALESCE($8, company),
			website = COALESCE($9, website),
			linkedin = COALESCE($10, linkedin),
			instagram = COALESCE($11, instagram),
			twitter = COALESCE($12, twitter),
			location = COALESCE($13, location),
			upi = COALESCE($14, upi),
			%s = $1,
			updated_at = NOW()
		WHERE slug = $15 AND %s = '' AND (%s = '' OR %s = $1)
		RETURNING `+profileColumns, ownerColumn, otherColumn, ownerColumn, ownerColumn)

	row := db.DB.QueryRow(query, owner,
		update.Name, update.Title, update.Subtitle, update.Avatar, update.Email,
		update.Phone, update.Company, update.Website, update.Linkedin, update.Instagram,
		update.Twitter, update.Location, update.UPI, slug)

	profile, err := scanProfile(row)
	if err == nil {
		return profile, nil
	}
	if err != sql.ErrNoRows {
		log.Printf("Database error: %v", err)
		return nil, middleware.NewAppError(http.StatusInternalServerError, "Internal server error", err)
	}

	// Zero rows: either the slug is unknown or someone else owns it.
	var ownerDeviceID, googleID string
	lookupErr := db.DB.QueryRow(
		"SELECT owner_device_id, google_id FROM profiles WHERE slug = $1", slug).Scan(&ownerDeviceID, &googleID)
	if lookupErr == sql.ErrNoRows {
		return nil, middleware.NewNotFoundError("Profile not found", lookupErr)
	}
	if lookupErr != nil {
		log.Printf("Database error: %v", lookupErr)
		return nil, middleware.NewAppError(http.StatusInternalServerError, "Internal server error", lookupErr)
	}
	return nil, middleware.NewOwnershipError("Not authorized to update this profile", nil)
}

// ClaimProfileBySlugHandler explicitly binds the requester to an unclaimed
// profile. Idempotent for the current owner. POST /api/profile/slug/{slug}/claim
func (h *ProfileHandler) ClaimProfileBySlugHandler(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json")
	slug := pathVar(r, "slug")

	var req struct {
		DeviceID string `json:"deviceId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return middleware.NewValidationError("Invalid request payload", err)
	}

	identity := h.identityFromRequest(r, req.DeviceID)
	if identity.empty() {
		return middleware.NewValidationError("Device ID is required", nil)
	}

	var owner, ownerColumn string
	if identity.DeviceID != "" {
		owner, ownerColumn = identity.DeviceID, "owner_device_id"
	} else {
		owner, ownerColumn = identity.GoogleID, "google_id"
	}

	query := fmt.Sprintf(`UPDATE profiles SET %s = $1, updated_at = NOW()
		WHERE slug = $2 AND owner_device_id = '' AND google_id = ''
		RETURNING `+profileColumns, ownerColumn)

	profile, err := scanProfile(db.DB.QueryRow(query, owner, slug))
	if err == sql.ErrNoRows {
		// Not claimable: unknown slug, already ours, or someone else's.
		existing, lookupErr := scanProfile(db.DB.QueryRow(
			"SELECT "+profileColumns+" FROM profiles WHERE slug = $1", slug))
		if lookupErr == sql.ErrNoRows {
			return middleware.NewNotFoundError("Profile not found", lookupErr)
		}
		if lookupErr != nil {
			log.Printf("Database error: %v", lookupErr)
			return middleware.NewAppError(http.StatusInternalServerError, "Internal server error", lookupErr)
		}
		if !identity.matches(existing) {
			return middleware.NewOwnershipError("This profile has already been claimed", nil)
		}
		profile, err = existing, nil
	}
	if err != nil {
		log.Printf("Database error: %v", err)
		return middleware.NewAppError(http.StatusInternalServerError, "Internal server error", err)
	}

	json.NewEncoder(w).Encode(JSONResponse{
		"success": true,
		"message": "Profile claimed successfully",
		"data":    profile,
	})
	return nil
}

// GetProfileByUsernameHandler returns a profile by its public alias.
// GET /api/profile/{username}
func (h *ProfileHandler) GetProfileByUsernameHandler(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json")
	username := pathVar(r, "username")

	profile, err := scanProfile(db.DB.QueryRow(
		"SELECT "+profileColumns+" FROM profiles WHERE username = $1", username))
	if err == sql.ErrNoRows {
		return middleware.NewNotFoundError("Profile not found", err)
	}
	if err != nil {
		log.Printf("Database error: %v", err)
		return middleware.NewAppError(http.StatusInternalServerError, "Internal server error", err)
	}

	identity := h.identityFromRequest(r, "")
	json.NewEncoder(w).Encode(JSONResponse{
		"success": true,
		"data":    profile,
		"isOwner": !identity.empty() && identity.matches(profile),
	})
	return nil
}

// CreateProfileHandler creates a profile under a chosen username, or updates
// it when the requester is the owner. POST /api/profile
func (h *ProfileHandler) CreateProfileHandler(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json")

	var req struct {
		Username string `json:"username"`
		DeviceID string `json:"deviceId"`
		models.ProfileUpdate
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return middleware.NewValidationError("Invalid request payload", err)
	}

	if req.Username == "" || req.DeviceID == "" {
		return middleware.NewValidationError("Username and deviceId are required", nil)
	}

	var existingSlug string
	err := db.DB.QueryRow("SELECT slug FROM profiles WHERE username = $1", req.Username).Scan(&existingSlug)
	if err == nil {
		profile, updateErr := h.conditionalUpdate(existingSlug, ownerIdentity{DeviceID: req.DeviceID}, &req.ProfileUpdate)
		if updateErr != nil {
			return updateErr
		}
		json.NewEncoder(w).Encode(JSONResponse{"success": true, "data": profile})
		return nil
	}
	if err != sql.ErrNoRows {
		log.Printf("Database error: %v", err)
		return middleware.NewAppError(http.StatusInternalServerError, "Internal server error", err)
	}

	slug, err := utils.GenerateUniqueSlug(slugTaken, h.cfg.Slugs.MaxAttempts)
	if err != nil {
		log.Printf("slug generation exhausted: %v", err)
		return middleware.NewAppError(http.StatusInternalServerError, "Failed to generate a unique slug. Please try again later.", err)
	}

	name := ""
	if req.Name != nil {
		name = *req.Name
	}
	row := db.DB.QueryRow(`INSERT INTO profiles (id, slug, username, name, owner_device_id)
		VALUES ($1, $2, $3, $4, $5) RETURNING `+profileColumns,
		newUUID(), slug, req.Username, name, req.DeviceID)
	profile, err := scanProfile(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return middleware.NewConflictError("Username is already taken", err)
		}
		log.Printf("Error inserting profile: %v", err)
		return middleware.NewAppError(http.StatusInternalServerError, "Internal server error", err)
	}

	if hasDisplayFields(&req.ProfileUpdate) {
		profile, err = h.conditionalUpdate(slug, ownerIdentity{DeviceID: req.DeviceID}, &req.ProfileUpdate)
		if err != nil {
			return err
		}
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(JSONResponse{"success": true, "data": profile})
	return nil
}

func hasDisplayFields(update *models.ProfileUpdate) bool {
	return update.Title != nil || update.Subtitle != nil || update.Avatar != nil ||
		update.Email != nil || update.Phone != nil || update.Company != nil ||
		update.Website != nil || update.Linkedin != nil || update.Instagram != nil ||
		update.Twitter != nil || update.Location != nil || update.UPI != nil
}
