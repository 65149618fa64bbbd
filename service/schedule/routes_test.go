package schedule

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"
	"github.com/hainguyenvie/aitheduconnect-sub001/cmd/models"
	"github.com/hainguyenvie/aitheduconnect-sub001/cmd/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	return gormDB, mock
}

func authedRequest(method, target string, body []byte, userID uint) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	ctx := context.WithValue(req.Context(), utils.UserIDKey, userID)
	return req.WithContext(ctx)
}

func TestCreateScheduleRejectsMissingLabels(t *testing.T) {
	h := NewScheduleHandler(nil)

	body := []byte(`{"date":"2026-03-14","start_time":"","end_time":"10:00"}`)
	rec := httptest.NewRecorder()
	h.CreateSchedule(rec, authedRequest(http.MethodPost, "/schedules", body, 7))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "start and end time are required")
}

func TestCreateScheduleRejectsStartNotBeforeEnd(t *testing.T) {
	h := NewScheduleHandler(nil)

	body := []byte(`{"date":"2026-03-14","start_time":"10:00","end_time":"09:00"}`)
	rec := httptest.NewRecorder()
	h.CreateSchedule(rec, authedRequest(http.MethodPost, "/schedules", body, 7))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "end time must be after start time")
}

func TestCreateScheduleRejectsEqualLabels(t *testing.T) {
	h := NewScheduleHandler(nil)

	body := []byte(`{"date":"2026-03-14","start_time":"10:00","end_time":"10:00"}`)
	rec := httptest.NewRecorder()
	h.CreateSchedule(rec, authedRequest(http.MethodPost, "/schedules", body, 7))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "end time must be after start time")
}

func TestCreateScheduleRejectsBadDate(t *testing.T) {
	h := NewScheduleHandler(nil)

	body := []byte(`{"date":"14/03/2026","start_time":"09:00","end_time":"10:00"}`)
	rec := httptest.NewRecorder()
	h.CreateSchedule(rec, authedRequest(http.MethodPost, "/schedules", body, 7))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid date")
}

func TestCreateScheduleRequiresAuth(t *testing.T) {
	h := NewScheduleHandler(nil)

	body := []byte(`{"date":"2026-03-14","start_time":"09:00","end_time":"10:00"}`)
	rec := httptest.NewRecorder()
	h.CreateSchedule(rec, httptest.NewRequest(http.MethodPost, "/schedules", bytes.NewReader(body)))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateScheduleRejectsOverlap(t *testing.T) {
	db, mock := newTestDB(t)
	h := NewScheduleHandler(db)

	mock.ExpectQuery(`SELECT (.+) FROM "teacher_profiles"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "hourly_rate"}).
			AddRow(2, 7, 20.0))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "schedules"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	body := []byte(`{"date":"2026-03-14","start_time":"09:00","end_time":"10:00"}`)
	rec := httptest.NewRecorder()
	h.CreateSchedule(rec, authedRequest(http.MethodPost, "/schedules", body, 7))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Slot overlaps an existing schedule")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateScheduleFailsWhenOverlapCheckErrors(t *testing.T) {
	db, mock := newTestDB(t)
	h := NewScheduleHandler(db)

	mock.ExpectQuery(`SELECT (.+) FROM "teacher_profiles"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "hourly_rate"}).
			AddRow(2, 7, 20.0))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "schedules"`).
		WillReturnError(errors.New("connection reset by peer"))

	body := []byte(`{"date":"2026-03-14","start_time":"09:00","end_time":"10:00"}`)
	rec := httptest.NewRecorder()
	h.CreateSchedule(rec, authedRequest(http.MethodPost, "/schedules", body, 7))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTeacherSchedulesByDate(t *testing.T) {
	db, mock := newTestDB(t)
	h := NewScheduleHandler(db)

	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "teacher_profile_id", "date", "start_time", "end_time", "status"}).
		AddRow(1, 2, day, day.Add(9*time.Hour), day.Add(10*time.Hour), models.SlotAvailable).
		AddRow(2, 2, day, day.Add(10*time.Hour), day.Add(11*time.Hour), models.SlotBooked)

	mock.ExpectQuery(`SELECT (.+) FROM "schedules"`).WillReturnRows(rows)

	router := mux.NewRouter()
	router.HandleFunc("/teachers/{id}/schedules", h.GetTeacherSchedules)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/teachers/2/schedules?date=2026-03-14", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Schedules []models.Schedule `json:"schedules"`
		Total     int               `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))

	assert.Equal(t, 2, response.Total)
	require.Len(t, response.Schedules, 2)
	assert.Equal(t, models.SlotAvailable, response.Schedules[0].Status)
	assert.Equal(t, models.SlotBooked, response.Schedules[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTeacherSchedulesEmpty(t *testing.T) {
	db, mock := newTestDB(t)
	h := NewScheduleHandler(db)

	mock.ExpectQuery(`SELECT (.+) FROM "schedules"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "teacher_profile_id", "date", "start_time", "end_time", "status"}))

	router := mux.NewRouter()
	router.HandleFunc("/teachers/{id}/schedules", h.GetTeacherSchedules)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/teachers/2/schedules?date=2026-03-14", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, 0, response.Total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTeacherSchedulesRejectsBadDate(t *testing.T) {
	h := NewScheduleHandler(nil)

	router := mux.NewRouter()
	router.HandleFunc("/teachers/{id}/schedules", h.GetTeacherSchedules)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/teachers/2/schedules?date=tomorrow", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetOpenHoursSubtractsExistingSlots(t *testing.T) {
	db, mock := newTestDB(t)
	h := NewScheduleHandler(db)

	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "teacher_profile_id", "date", "start_time", "end_time", "status"}).
		AddRow(1, 2, day, day.Add(7*time.Hour), day.Add(8*time.Hour), models.SlotBooked).
		AddRow(2, 2, day, day.Add(9*time.Hour), day.Add(10*time.Hour), models.SlotAvailable)

	mock.ExpectQuery(`SELECT (.+) FROM "schedules"`).WillReturnRows(rows)

	router := mux.NewRouter()
	router.HandleFunc("/teachers/{id}/open-hours", h.GetOpenHours)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/teachers/2/open-hours?date=2026-03-14", nil, 9))

	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Date      string   `json:"date"`
		OpenHours []string `json:"open_hours"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))

	assert.Equal(t, "2026-03-14", response.Date)
	assert.Len(t, response.OpenHours, 13)
	assert.NotContains(t, response.OpenHours, "07:00")
	assert.NotContains(t, response.OpenHours, "09:00")
	assert.Contains(t, response.OpenHours, "08:00")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOpenHoursRequiresDate(t *testing.T) {
	h := NewScheduleHandler(nil)

	router := mux.NewRouter()
	router.HandleFunc("/teachers/{id}/open-hours", h.GetOpenHours)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/teachers/2/open-hours", nil, 9))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
