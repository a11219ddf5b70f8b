package handlers_test

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"profile-service/handlers"
	"profile-service/middleware"
	"profile-service/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

var appointmentColumnNames = []string{
	"id", "username", "name", "email", "date", "time", "profile_name", "status",
	"owner_response", "created_at", "updated_at",
}

func appointmentRows(id, username, status string) *sqlmock.Rows {
	now := time.Now()
	date := now.AddDate(0, 0, 7)
	return sqlmock.NewRows(appointmentColumnNames).
		AddRow(id, username, "Visitor", "visitor@example.com", date, "14:30", "Ada Lovelace",
			status, "", now, now)
}

func appointmentBody(t *testing.T, overrides map[string]string) *bytes.Buffer {
	t.Helper()
	fields := map[string]string{
		"username": "ada",
		"name":     "Visitor",
		"email":    "visitor@example.com",
		"date":     time.Now().AddDate(0, 0, 7).Format("2006-01-02"),
		"time":     "14:30",
	}
	for key, value := range overrides {
		fields[key] = value
	}
	body, err := json.Marshal(fields)
	assert.NoError(t, err)
	return bytes.NewBuffer(body)
}

func TestAppointmentCreateHandler(t *testing.T) {
	mock, cleanup := setupMockDB()
	defer cleanup()

	mock.ExpectQuery(`SELECT name FROM profiles WHERE username = \$1`).
		WithArgs("ada").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Ada Lovelace"))
	mock.ExpectQuery("INSERT INTO appointments").
		WillReturnRows(appointmentRows("a1", "ada", models.AppointmentPending))

	handler := handlers.NewAppointmentHandler(testConfig())
	req := httptest.NewRequest("POST", "/api/appointments", appointmentBody(t, nil))
	rec := executeRequest(handler.CreateHandler, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeBody(t, rec)
	data, _ := resp["data"].(map[string]interface{})
	assert.Equal(t, "pending", data["status"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentCreateHandler_HonorsServerTimezone(t *testing.T) {
	mock, cleanup := setupMockDB()
	defer cleanup()

	restore := time.Local
	time.Local = time.FixedZone("UTC-5", -5*60*60)
	defer func() { time.Local = restore }()

	// A booking two hours ahead in local wall-clock time must be accepted
	// even when the zone sits west of UTC.
	soon := time.Now().In(time.Local).Add(2 * time.Hour)

	mock.ExpectQuery(`SELECT name FROM profiles WHERE username = \$1`).
		WithArgs("ada").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Ada Lovelace"))
	mock.ExpectQuery("INSERT INTO appointments").
		WillReturnRows(appointmentRows("a1", "ada", models.AppointmentPending))

	handler := handlers.NewAppointmentHandler(testConfig())
	req := httptest.NewRequest("POST", "/api/appointments", appointmentBody(t, map[string]string{
		"date": soon.Format("2006-01-02"),
		"time": soon.Format("15:04"),
	}))
	rec := executeRequest(handler.CreateHandler, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentCreateHandler_MissingFields(t *testing.T) {
	_, cleanup := setupMockDB()
	defer cleanup()

	handler := handlers.NewAppointmentHandler(testConfig())
	req := httptest.NewRequest("POST", "/api/appointments", appointmentBody(t, map[string]string{"email": ""}))
	rec := executeRequest(handler.CreateHandler, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAppointmentCreateHandler_BadTimeFormat(t *testing.T) {
	_, cleanup := setupMockDB()
	defer cleanup()

	handler := handlers.NewAppointmentHandler(testConfig())
	req := httptest.NewRequest("POST", "/api/appointments", appointmentBody(t, map[string]string{"time": "2pm"}))
	rec := executeRequest(handler.CreateHandler, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAppointmentCreateHandler_PastDate(t *testing.T) {
	_, cleanup := setupMockDB()
	defer cleanup()

	handler := handlers.NewAppointmentHandler(testConfig())
	req := httptest.NewRequest("POST", "/api/appointments", appointmentBody(t, map[string]string{"date": "2020-01-01"}))
	rec := executeRequest(handler.CreateHandler, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAppointmentCreateHandler_ProfileNotFound(t *testing.T) {
	mock, cleanup := setupMockDB()
	defer cleanup()

	mock.ExpectQuery(`SELECT name FROM profiles WHERE username = \$1`).
		WillReturnError(sql.ErrNoRows)

	handler := handlers.NewAppointmentHandler(testConfig())
	req := httptest.NewRequest("POST", "/api/appointments", appointmentBody(t, map[string]string{"username": "nobody"}))
	rec := executeRequest(handler.CreateHandler, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAppointmentListForProfileHandler(t *testing.T) {
	mock, cleanup := setupMockDB()
	defer cleanup()

	mock.ExpectQuery(`SELECT owner_device_id FROM profiles WHERE username = \$1`).
		WithArgs("ada").
		WillReturnRows(sqlmock.NewRows([]string{"owner_device_id"}).AddRow("device-1"))

	now := time.Now()
	date := now.AddDate(0, 0, 7)
	rows := sqlmock.NewRows(appointmentColumnNames).
		AddRow("a1", "ada", "Visitor", "visitor@example.com", date, "09:00", "Ada Lovelace", "pending", "", now, now).
		AddRow("a2", "ada", "Other", "other@example.com", date, "14:30", "Ada Lovelace", "confirmed", "See you then", now, now)
	mock.ExpectQuery(`FROM appointments WHERE username = \$1 ORDER BY date, time`).
		WithArgs("ada").
		WillReturnRows(rows)

	handler := handlers.NewAppointmentHandler(testConfig())
	req := withVars(httptest.NewRequest("GET", "/api/appointments/profile/ada", nil),
		map[string]string{"username": "ada"})
	req.Header.Set(middleware.DeviceIDHeader, "device-1")
	rec := executeRequest(handler.ListForProfileHandler, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody(t, rec)
	assert.Equal(t, float64(2), resp["count"])
	data, _ := resp["data"].([]interface{})
	assert.Len(t, data, 2)
}

func TestAppointmentListForProfileHandler_NoDeviceID(t *testing.T) {
	_, cleanup := setupMockDB()
	defer cleanup()

	handler := handlers.NewAppointmentHandler(testConfig())
	req := withVars(httptest.NewRequest("GET", "/api/appointments/profile/ada", nil),
		map[string]string{"username": "ada"})
	rec := executeRequest(handler.ListForProfileHandler, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAppointmentListForProfileHandler_NotOwner(t *testing.T) {
	mock, cleanup := setupMockDB()
	defer cleanup()

	mock.ExpectQuery(`SELECT owner_device_id FROM profiles WHERE username = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"owner_device_id"}).AddRow("device-1"))

	handler := handlers.NewAppointmentHandler(testConfig())
	req := withVars(httptest.NewRequest("GET", "/api/appointments/profile/ada", nil),
		map[string]string{"username": "ada"})
	req.Header.Set(middleware.DeviceIDHeader, "device-2")
	rec := executeRequest(handler.ListForProfileHandler, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAppointmentListForProfileHandler_UnclaimedProfile(t *testing.T) {
	mock, cleanup := setupMockDB()
	defer cleanup()

	mock.ExpectQuery(`SELECT owner_device_id FROM profiles WHERE username = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"owner_device_id"}).AddRow(""))

	handler := handlers.NewAppointmentHandler(testConfig())
	req := withVars(httptest.NewRequest("GET", "/api/appointments/profile/ada", nil),
		map[string]string{"username": "ada"})
	req.Header.Set(middleware.DeviceIDHeader, "device-1")
	rec := executeRequest(handler.ListForProfileHandler, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAppointmentUpdateHandler(t *testing.T) {
	mock, cleanup := setupMockDB()
	defer cleanup()

	mock.ExpectQuery(`SELECT username FROM appointments WHERE id = \$1`).
		WithArgs("a1").
		WillReturnRows(sqlmock.NewRows([]string{"username"}).AddRow("ada"))
	mock.ExpectQuery(`SELECT owner_device_id FROM profiles WHERE username = \$1`).
		WithArgs("ada").
		WillReturnRows(sqlmock.NewRows([]string{"owner_device_id"}).AddRow("device-1"))
	mock.ExpectQuery("UPDATE appointments").
		WithArgs("confirmed", "See you then", "a1").
		WillReturnRows(appointmentRows("a1", "ada", models.AppointmentConfirmed))

	handler := handlers.NewAppointmentHandler(testConfig())
	body, _ := json.Marshal(map[string]string{
		"deviceId": "device-1", "status": "confirmed", "ownerResponse": "See you then",
	})
	req := withVars(httptest.NewRequest("PUT", "/api/appointments/a1", bytes.NewBuffer(body)),
		map[string]string{"id": "a1"})
	rec := executeRequest(handler.UpdateHandler, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody(t, rec)
	data, _ := resp["data"].(map[string]interface{})
	assert.Equal(t, "confirmed", data["status"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentUpdateHandler_InvalidStatus(t *testing.T) {
	_, cleanup := setupMockDB()
	defer cleanup()

	handler := handlers.NewAppointmentHandler(testConfig())
	body, _ := json.Marshal(map[string]string{"deviceId": "device-1", "status": "maybe"})
	req := withVars(httptest.NewRequest("PUT", "/api/appointments/a1", bytes.NewBuffer(body)),
		map[string]string{"id": "a1"})
	rec := executeRequest(handler.UpdateHandler, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAppointmentUpdateHandler_NotFound(t *testing.T) {
	mock, cleanup := setupMockDB()
	defer cleanup()

	mock.ExpectQuery(`SELECT username FROM appointments WHERE id = \$1`).
		WillReturnError(sql.ErrNoRows)

	handler := handlers.NewAppointmentHandler(testConfig())
	body, _ := json.Marshal(map[string]string{"deviceId": "device-1", "status": "declined"})
	req := withVars(httptest.NewRequest("PUT", "/api/appointments/missing", bytes.NewBuffer(body)),
		map[string]string{"id": "missing"})
	rec := executeRequest(handler.UpdateHandler, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAppointmentUpdateHandler_NotOwner(t *testing.T) {
	mock, cleanup := setupMockDB()
	defer cleanup()

	mock.ExpectQuery(`SELECT username FROM appointments WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"username"}).AddRow("ada"))
	mock.ExpectQuery(`SELECT owner_device_id FROM profiles WHERE username = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"owner_device_id"}).AddRow("device-1"))

	handler := handlers.NewAppointmentHandler(testConfig())
	body, _ := json.Marshal(map[string]string{"deviceId": "device-2", "status": "declined"})
	req := withVars(httptest.NewRequest("PUT", "/api/appointments/a1", bytes.NewBuffer(body)),
		map[string]string{"id": "a1"})
	rec := executeRequest(handler.UpdateHandler, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
