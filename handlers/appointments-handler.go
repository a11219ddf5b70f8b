package handlers

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"regexp"
	"time"

	"profile-service/config"
	"profile-service/db"
	"profile-service/middleware"
	"profile-service/models"
)

var timeOfDayPattern = regexp.MustCompile(`^\d{2}:\d{2}$`)

type AppointmentHandler struct {
	cfg config.Config
}

func NewAppointmentHandler(cfg config.Config) *AppointmentHandler {
	return &AppointmentHandler{cfg: cfg}
}

const appointmentColumns = `id, username, name, email, date, time, profile_name, status, owner_response, created_at, updated_at`

func scanAppointment(row rowScanner) (*models.Appointment, error) {
	var a models.Appointment
	var date time.Time
	err := row.Scan(&a.ID, &a.Username, &a.Name, &a.Email, &date, &a.Time,
		&a.ProfileName, &a.Status, &a.OwnerResponse, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Date = date.Format("2006-01-02")
	return &a, nil
}

// CreateHandler books an appointment with a profile owner. Public; the owner
// confirms or declines later. POST /api/appointments
func (h *AppointmentHandler) CreateHandler(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json")

	var req struct {
		Username    string `json:"username"`
		Name        string `json:"name"`
		Email       string `json:"email"`
		Date        string `json:"date"`
		Time        string `json:"time"`
		ProfileName string `json:"profileName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return middleware.NewValidationError("Invalid request payload", err)
	}

	if req.Username == "" || req.Name == "" || req.Email == "" || req.Date == "" || req.Time == "" {
		return middleware.NewValidationError("Please provide all required fields", nil)
	}
	if !timeOfDayPattern.MatchString(req.Time) {
		return middleware.NewValidationError("Time must be in HH:MM format", nil)
	}
	when, err := time.ParseInLocation("2006-01-02 15:04", req.Date+" "+req.Time, time.Local)
	if err != nil || !when.After(time.Now()) {
		return middleware.NewValidationError("Please provide a valid future date and time", err)
	}

	var profileName string
	err = db.DB.QueryRow("SELECT name FROM profiles WHERE username = $1", req.Username).Scan(&profileName)
	if err == sql.ErrNoRows {
		return middleware.NewNotFoundError("Profile not found", err)
	}
	if err != nil {
		log.Printf("Database error: %v", err)
		return middleware.NewAppError(http.StatusInternalServerError, "Internal server error", err)
	}
	if req.ProfileName != "" {
		profileName = req.ProfileName
	}

	appointment, err := scanAppointment(db.DB.QueryRow(`INSERT INTO appointments
		(id, username, name, email, date, time, profile_name, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+appointmentColumns,
		newUUID(), req.Username, req.Name, req.Email, req.Date, req.Time, profileName, models.AppointmentPending))
	if err != nil {
		log.Printf("Error inserting appointment: %v", err)
		return middleware.NewAppError(http.StatusInternalServerError, "Internal server error", err)
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(JSONResponse{"success": true, "data": appointment})
	return nil
}

// ListForProfileHandler returns a profile's appointments to its owner, sorted
// by date then time. GET /api/appointments/profile/{username}
func (h *AppointmentHandler) ListForProfileHandler(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json")
	username := pathVar(r, "username")

	deviceID := r.Header.Get(middleware.DeviceIDHeader)
	if deviceID == "" {
		return middleware.NewValidationError("Device ID required", nil)
	}

	if err := h.requireOwner(username, deviceID, "Not authorized to view these appointments"); err != nil {
		return err
	}

	rows, err := db.DB.Query(
		"SELECT "+appointmentColumns+" FROM appointments WHERE username = $1 ORDER BY date, time", username)
	if err != nil {
		log.Printf("Database error: %v", err)
		return middleware.NewAppError(http.StatusInternalServerError, "Internal server error", err)
	}
	defer rows.Close()

	appointments := []*models.Appointment{}
	for rows.Next() {
		appointment, err := scanAppointment(rows)
		if err != nil {
			log.Printf("Database error: %v", err)
			return middleware.NewAppError(http.StatusInternalServerError, "Internal server error", err)
		}
		appointments = append(appointments, appointment)
	}
	if err := rows.Err(); err != nil {
		log.Printf("Database error: %v", err)
		return middleware.NewAppError(http.StatusInternalServerError, "Internal server error", err)
	}

	json.NewEncoder(w).Encode(JSONResponse{
		"success": true,
		"count":   len(appointments),
		"data":    appointments,
	})
	return nil
}

// UpdateHandler lets the profile owner confirm or decline a booking.
// PUT /api/appointments/{id}
func (h *AppointmentHandler) UpdateHandler(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json")
	id := pathVar(r, "id")

	var req struct {
		DeviceID      string `json:"deviceId"`
		Status        string `json:"status"`
		OwnerResponse string `json:"ownerResponse"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return middleware.NewValidationError("Invalid request payload", err)
	}

	if req.DeviceID == "" {
		return middleware.NewValidationError("Device ID required", nil)
	}
	switch req.Status {
	case models.AppointmentPending, models.AppointmentConfirmed, models.AppointmentDeclined:
	default:
		return middleware.NewValidationError("Status must be pending, confirmed or declined", nil)
	}

	var username string
	err := db.DB.QueryRow("SELECT username FROM appointments WHERE id = $1", id).Scan(&username)
	if err == sql.ErrNoRows {
		return middleware.NewNotFoundError("Appointment not found", err)
	}
	if err != nil {
		log.Printf("Database error: %v", err)
		return middleware.NewAppError(http.StatusInternalServerError, "Internal server error", err)
	}

	if err := h.requireOwner(username, req.DeviceID, "Not authorized to update this appointment"); err != nil {
		return err
	}

	appointment, err := scanAppointment(db.DB.QueryRow(`UPDATE appointments
		SET status = $1, owner_response = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING `+appointmentColumns, req.Status, req.OwnerResponse, id))
	if err != nil {
		log.Printf("Database error: %v", err)
		return middleware.NewAppError(http.StatusInternalServerError, "Internal server error", err)
	}

	json.NewEncoder(w).Encode(JSONResponse{"success": true, "data": appointment})
	return nil
}

func (h *AppointmentHandler) requireOwner(username, deviceID, message string) error {
	var ownerDeviceID string
	err := db.DB.QueryRow("SELECT owner_device_id FROM profiles WHERE username = $1", username).Scan(&ownerDeviceID)
	if err == sql.ErrNoRows {
		return middleware.NewNotFoundError("Profile not found", err)
	}
	if err != nil {
		log.Printf("Database error: %v", err)
		return middleware.NewAppError(http.StatusInternalServerError, "Internal server error", err)
	}
	if ownerDeviceID == "" || ownerDeviceID != deviceID {
		return middleware.NewOwnershipError(message, nil)
	}
	return nil
}
