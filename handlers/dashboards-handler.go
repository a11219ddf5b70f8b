package handlers

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"

	"profile-service/config"
	"profile-service/db"
	"profile-service/middleware"
	"profile-service/models"
)

// DashboardHandler serves per-user dashboards. Every route sits behind the
// Google auth middleware; queries are always scoped to the caller's subject.
type DashboardHandler struct {
	cfg config.Config
}

func NewDashboardHandler(cfg config.Config) *DashboardHandler {
	return &DashboardHandler{cfg: cfg}
}

const dashboardColumns = `id, google_id, name, description, theme, is_public, layout, created_at, updated_at`

func scanDashboard(row rowScanner) (*models.Dashboard, error) {
	var d models.Dashboard
	var layout []byte
	err := row.Scan(&d.ID, &d.GoogleID, &d.Name, &d.Description, &d.Theme,
		&d.IsPublic, &layout, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.Layout = layout
	return &d, nil
}

func googleID(r *http.Request) (string, error) {
	user, ok := middleware.GoogleUserFromContext(r.Context())
	if !ok || user.GoogleID == "" {
		return "", middleware.NewAuthError("Not authorized", nil)
	}
	return user.GoogleID, nil
}

// ListHandler returns the caller's dashboards. GET /api/v1/dashboards
func (h *DashboardHandler) ListHandler(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json")

	subject, err := googleID(r)
	if err != nil {
		return err
	}

	rows, err := db.DB.Query(
		"SELECT "+dashboardColumns+" FROM dashboards WHERE google_id = $1 ORDER BY created_at DESC", subject)
	if err != nil {
		log.Printf("Database error: %v", err)
		return middleware.NewAppError(http.StatusInternalServerError, "Internal server error", err)
	}
	defer rows.Close()

	dashboards := []*models.Dashboard{}
	for rows.Next() {
		dashboard, err := scanDashboard(rows)
		if err != nil {
			log.Printf("Database error: %v", err)
			return middleware.NewAppError(http.StatusInternalServerError, "Internal server error", err)
		}
		dashboards = append(dashboards, dashboard)
	}
	if err := rows.Err(); err != nil {
		log.Printf("Database error: %v", err)
		return middleware.NewAppError(http.StatusInternalServerError, "Internal server error", err)
	}

	json.NewEncoder(w).Encode(JSONResponse{"success": true, "data": dashboards})
	return nil
}

// GetHandler returns one of the caller's dashboards. GET /api/v1/dashboards/{id}
func (h *DashboardHandler) GetHandler(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json")

	subject, err := googleID(r)
	if err != nil {
		return err
	}

	dashboard, err := scanDashboard(db.DB.QueryRow(
		"SELECT "+dashboardColumns+" FROM dashboards WHERE id = $1 AND google_id = $2", pathVar(r, "id"), subject))
	if err == sql.ErrNoRows {
		return middleware.NewNotFoundError("Dashboard not found", err)
	}
	if err != nil {
		log.Printf("Database error: %v", err)
		return middleware.NewAppError(http.StatusInternalServerError, "Internal server error", err)
	}

	json.NewEncoder(w).Encode(JSONResponse{"success": true, "data": dashboard})
	return nil
}

// CreateHandler creates a dashboard for the caller. POST /api/v1/dashboards
func (h *DashboardHandler) CreateHandler(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json")

	subject, err := googleID(r)
	if err != nil {
		return err
	}

	var req struct {
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Theme       string          `json:"theme"`
		IsPublic    *bool           `json:"isPublic"`
		Layout      json.RawMessage `json:"layout"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return middleware.NewValidationError("Invalid request payload", err)
	}
	if req.Name == "" {
		return middleware.NewValidationError("Dashboard name is required", nil)
	}
	if req.Theme == "" {
		req.Theme = "default"
	}
	if !models.ValidDashboardTheme(req.Theme) {
		return middleware.NewValidationError("Theme must be one of: default, dark, light, custom", nil)
	}
	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}
	layout := req.Layout
	if len(layout) == 0 {
		layout = json.RawMessage("{}")
	}

	dashboard, err := scanDashboard(db.DB.QueryRow(`INSERT INTO dashboards
		(id, google_id, name, description, theme, is_public, layout)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+dashboardColumns,
		newUUID(), subject, req.Name, req.Description, req.Theme, isPublic, []byte(layout)))
	if err != nil {
		log.Printf("Error inserting dashboard: %v", err)
		return middleware.NewAppError(http.StatusInternalServerError, "Internal server error", err)
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(JSONResponse{"success": true, "data": dashboard})
	return nil
}

// UpdateHandler updates one of the caller's dashboards. PUT /api/v1/dashboards/{id}
func (h *DashboardHandler) UpdateHandler(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json")

	subject, err := googleID(r)
	if err != nil {
		return err
	}

	var req struct {
		Name        *string         `json:"name"`
		Description *string         `json:"description"`
		Theme       *string         `json:"theme"`
		IsPublic    *bool           `json:"isPublic"`
		Layout      json.RawMessage `json:"layout"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return middleware.NewValidationError("Invalid request payload", err)
	}
	if req.Theme != nil && !models.ValidDashboardTheme(*req.Theme) {
		return middleware.NewValidationError("Theme must be one of: default, dark, light, custom", nil)
	}

	var layout interface{}
	if len(req.Layout) > 0 {
		layout = []byte(req.Layout)
	}

	dashboard, err := scanDashboard(db.DB.QueryRow(`UPDATE dashboards SET
			name = COALESCE($1, name),
			description = COALESCE($2, description),
			theme = COALESCE($3, theme),
			is_public = COALESCE($4, is_public),
			layout = COALESCE($5, layout),
			updated_at = NOW()
		WHERE id = $6 AND google_id = $7
		RETURNING `+dashboardColumns,
		req.Name, req.Description, req.Theme, req.IsPublic, layout, pathVar(r, "id"), subject))
	if err == sql.ErrNoRows {
		return middleware.NewNotFoundError("Dashboard not found", err)
	}
	if err != nil {
		log.Printf("Database error: %v", err)
		return middleware.NewAppError(http.StatusInternalServerError, "Internal server error", err)
	}

	json.NewEncoder(w).Encode(JSONResponse{"success": true, "data": dashboard})
	return nil
}

// DeleteHandler removes one of the caller's dashboards. DELETE /api/v1/dashboards/{id}
func (h *DashboardHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json")

	subject, err := googleID(r)
	if err != nil {
		return err
	}

	result, err := db.DB.Exec("DELETE FROM dashboards WHERE id = $1 AND google_id = $2", pathVar(r, "id"), subject)
	if err != nil {
		log.Printf("Database error: %v", err)
		return middleware.NewAppError(http.StatusInternalServerError, "Internal server error", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return middleware.NewNotFoundError("Dashboard not found", nil)
	}

	json.NewEncoder(w).Encode(JSONResponse{"success": true, "message": "Dashboard deleted successfully"})
	return nil
}
