package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
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

func TestCreateBookingRejectsEmptySelection(t *testing.T) {
	h := NewBookingHandler(nil)

	rec := httptest.NewRecorder()
	h.CreateBooking(rec, authedRequest(http.MethodPost, "/bookings", []byte(`{}`), 7))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "a schedule slot or a course must be selected")
}

func TestCreateBookingRejectsDualSelection(t *testing.T) {
	h := NewBookingHandler(nil)

	body := []byte(`{"schedule_id":3,"course_id":5}`)
	rec := httptest.NewRecorder()
	h.CreateBooking(rec, authedRequest(http.MethodPost, "/bookings", body, 7))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "only one of schedule slot or course may be selected")
}

func TestCreateBookingRequiresAuth(t *testing.T) {
	h := NewBookingHandler(nil)

	rec := httptest.NewRecorder()
	h.CreateBooking(rec, httptest.NewRequest(http.MethodPost, "/bookings", bytes.NewReader([]byte(`{"schedule_id":3}`))))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateBookingClaimsSlot(t *testing.T) {
	db, mock := newTestDB(t)
	h := NewBookingHandler(db)

	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "schedules"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "teacher_profile_id", "date", "start_time", "end_time", "status"}).
			AddRow(3, 2, day, day.Add(9*time.Hour), day.Add(10*time.Hour), models.SlotAvailable))
	mock.ExpectQuery(`SELECT (.+) FROM "teacher_profiles"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "hourly_rate"}).
			AddRow(2, 9, 20.0))
	mock.ExpectExec(`UPDATE "schedules" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "bookings"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	rec := httptest.NewRecorder()
	h.CreateBooking(rec, authedRequest(http.MethodPost, "/bookings", []byte(`{"schedule_id":3}`), 7))

	require.Equal(t, http.StatusCreated, rec.Code)

	var response struct {
		Booking    models.Booking `json:"booking"`
		PaymentURL string         `json:"payment_url"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))

	assert.Equal(t, "/payment/1", response.PaymentURL)
	assert.Equal(t, uint(7), response.Booking.StudentID)
	assert.Equal(t, uint(2), response.Booking.TeacherProfileID)
	require.NotNil(t, response.Booking.ScheduleID)
	assert.Equal(t, uint(3), *response.Booking.ScheduleID)
	assert.Nil(t, response.Booking.CourseID)
	assert.Equal(t, 20.0, response.Booking.Amount)
	assert.Equal(t, models.BookingPending, response.Booking.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingSlotAlreadyTaken(t *testing.T) {
	db, mock := newTestDB(t)
	h := NewBookingHandler(db)

	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "schedules"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "teacher_profile_id", "date", "start_time", "end_time", "status"}).
			AddRow(3, 2, day, day.Add(9*time.Hour), day.Add(10*time.Hour), models.SlotBooked))
	mock.ExpectQuery(`SELECT (.+) FROM "teacher_profiles"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "hourly_rate"}).
			AddRow(2, 9, 20.0))
	mock.ExpectExec(`UPDATE "schedules" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	rec := httptest.NewRecorder()
	h.CreateBooking(rec, authedRequest(http.MethodPost, "/bookings", []byte(`{"schedule_id":3}`), 7))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Slot is no longer available")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingSlotNotFound(t *testing.T) {
	db, mock := newTestDB(t)
	h := NewBookingHandler(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "schedules"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	rec := httptest.NewRecorder()
	h.CreateBooking(rec, authedRequest(http.MethodPost, "/bookings", []byte(`{"schedule_id":99}`), 7))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingOwnSlotForbidden(t *testing.T) {
	db, mock := newTestDB(t)
	h := NewBookingHandler(db)

	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "schedules"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "teacher_profile_id", "date", "start_time", "end_time", "status"}).
			AddRow(3, 2, day, day.Add(9*time.Hour), day.Add(10*time.Hour), models.SlotAvailable))
	mock.ExpectQuery(`SELECT (.+) FROM "teacher_profiles"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "hourly_rate"}).
			AddRow(2, 7, 20.0))
	mock.ExpectRollback()

	rec := httptest.NewRecorder()
	h.CreateBooking(rec, authedRequest(http.MethodPost, "/bookings", []byte(`{"schedule_id":3}`), 7))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingForCourse(t *testing.T) {
	db, mock := newTestDB(t)
	h := NewBookingHandler(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "courses"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "teacher_profile_id", "title", "price", "total_sessions"}).
			AddRow(5, 2, "Algebra fundamentals", 150.0, 8))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "bookings"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`INSERT INTO "bookings"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectCommit()

	rec := httptest.NewRecorder()
	h.CreateBooking(rec, authedRequest(http.MethodPost, "/bookings", []byte(`{"course_id":5}`), 7))

	require.Equal(t, http.StatusCreated, rec.Code)

	var response struct {
		Booking    models.Booking `json:"booking"`
		PaymentURL string         `json:"payment_url"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))

	assert.Equal(t, "/payment/2", response.PaymentURL)
	require.NotNil(t, response.Booking.CourseID)
	assert.Equal(t, uint(5), *response.Booking.CourseID)
	assert.Nil(t, response.Booking.ScheduleID)
	assert.Equal(t, 150.0, response.Booking.Amount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingCourseAlreadyBooked(t *testing.T) {
	db, mock := newTestDB(t)
	h := NewBookingHandler(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "courses"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "teacher_profile_id", "title", "price", "total_sessions"}).
			AddRow(5, 2, "Algebra fundamentals", 150.0, 8))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "bookings"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	rec := httptest.NewRecorder()
	h.CreateBooking(rec, authedRequest(http.MethodPost, "/bookings", []byte(`{"course_id":5}`), 7))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Course already booked")
	assert.NoError(t, mock.ExpectationsWereMet())
}
