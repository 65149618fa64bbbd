package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
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

func confirmRouter(h *PaymentHandler) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/payments/{reference}/confirm", h.ConfirmPayment)
	return router
}

func TestPaymentReferenceFormat(t *testing.T) {
	at := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	reference := PaymentReference(42, at)

	assert.Equal(t, fmt.Sprintf("PAY-42-%d", at.Unix()), reference)
}

func TestPaymentReferenceUniquePerBooking(t *testing.T) {
	at := time.Now().UTC()

	assert.NotEqual(t, PaymentReference(1, at), PaymentReference(2, at))
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"event":"charge.success","data":{"reference":"PAY-1-1700000000"}}`)
	secret := "test-secret"

	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	signature := hex.EncodeToString(mac.Sum(nil))

	assert.True(t, VerifySignature(body, signature, secret))
	assert.False(t, VerifySignature(body, signature, "other-secret"))
	assert.False(t, VerifySignature([]byte(`tampered`), signature, secret))
	assert.False(t, VerifySignature(body, "deadbeef", secret))
}

func TestConfirmPaymentSettles(t *testing.T) {
	db, mock := newTestDB(t)
	h := NewPaymentHandler(db)

	mock.ExpectQuery(`SELECT (.+) FROM "payments"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "booking_id", "amount", "status", "reference"}).
			AddRow(4, 1, 20.0, models.PaymentPending, "PAY-1-1700000000"))
	mock.ExpectQuery(`SELECT (.+) FROM "bookings"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "teacher_profile_id", "amount", "status", "payment_status"}).
			AddRow(1, 7, 2, 20.0, models.BookingPending, models.PaymentUnpaid))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "payments" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "bookings" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "transactions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
	mock.ExpectCommit()

	rec := httptest.NewRecorder()
	confirmRouter(h).ServeHTTP(rec, authedRequest(http.MethodPost, "/payments/PAY-1-1700000000/confirm", nil, 7))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Payment confirmed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmPaymentLosesSettlementRace(t *testing.T) {
	db, mock := newTestDB(t)
	h := NewPaymentHandler(db)

	mock.ExpectQuery(`SELECT (.+) FROM "payments"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "booking_id", "amount", "status", "reference"}).
			AddRow(4, 1, 20.0, models.PaymentPending, "PAY-1-1700000000"))
	mock.ExpectQuery(`SELECT (.+) FROM "bookings"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "teacher_profile_id", "amount", "status", "payment_status"}).
			AddRow(1, 7, 2, 20.0, models.BookingPending, models.PaymentUnpaid))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "payments" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	rec := httptest.NewRecorder()
	confirmRouter(h).ServeHTTP(rec, authedRequest(http.MethodPost, "/payments/PAY-1-1700000000/confirm", nil, 7))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Payment already settled")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmPaymentAlreadyPaid(t *testing.T) {
	db, mock := newTestDB(t)
	h := NewPaymentHandler(db)

	mock.ExpectQuery(`SELECT (.+) FROM "payments"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "booking_id", "amount", "status", "reference"}).
			AddRow(4, 1, 20.0, models.PaymentPaid, "PAY-1-1700000000"))
	mock.ExpectQuery(`SELECT (.+) FROM "bookings"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "teacher_profile_id", "amount", "status", "payment_status"}).
			AddRow(1, 7, 2, 20.0, models.BookingConfirmed, models.PaymentPaid))

	rec := httptest.NewRecorder()
	confirmRouter(h).ServeHTTP(rec, authedRequest(http.MethodPost, "/payments/PAY-1-1700000000/confirm", nil, 7))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Payment already settled")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	h := NewPaymentHandler(nil)

	body := []byte(`{"event":"charge.success","data":{"reference":"PAY-1-1700000000"}}`)
	rec := httptest.NewRecorder()
	h.HandleWebhook(rec, httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader(body)))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	t.Setenv("PAYMENT_SECRET_KEY", "test-secret")
	h := NewPaymentHandler(nil)

	body := []byte(`{"event":"charge.success","data":{"reference":"PAY-1-1700000000"}}`)
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader(body))
	req.Header.Set("X-Gateway-Signature", "deadbeef")

	rec := httptest.NewRecorder()
	h.HandleWebhook(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
