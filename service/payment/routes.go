package payment

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/hainguyenvie/aitheduconnect-sub001/cmd/models"
	"github.com/hainguyenvie/aitheduconnect-sub001/cmd/utils"
	expo "github.com/oliveroneill/exponent-server-sdk-golang/sdk"
	"gorm.io/gorm"
)

type PaymentHandler struct {
	db         *gorm.DB
	expoClient *expo.PushClient
}

func NewPaymentHandler(db *gorm.DB) *PaymentHandler {
	return &PaymentHandler{
		db:         db,
		expoClient: expo.NewPushClient(nil),
	}
}

func (h *PaymentHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/payments/initialize", utils.AuthMiddleware(h.InitializePayment)).Methods("POST")
	router.HandleFunc("/payments/webhook", h.HandleWebhook).Methods("POST")
	router.HandleFunc("/payments/{reference}/confirm", utils.AuthMiddleware(h.ConfirmPayment)).Methods("POST")
	router.HandleFunc("/payments/{reference}", utils.AuthMiddleware(h.GetPayment)).Methods("GET")
}

// PaymentReference builds the reference handed to the simulated gateway.
func PaymentReference(bookingID uint, at time.Time) string {
	return fmt.Sprintf("PAY-%d-%d", bookingID, at.Unix())
}

// VerifySignature checks the HMAC-SHA512 hex signature a gateway computes
// over the raw webhook body.
func VerifySignature(body []byte, signature, secret string) bool {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// InitializePayment opens a payment attempt for a pending booking and hands
// back the reference the client presents to the gateway.
func (h *PaymentHandler) InitializePayment(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var paymentRequest struct {
		BookingID uint `json:"booking_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&paymentRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if paymentRequest.BookingID == 0 {
		http.Error(w, "booking_id is required", http.StatusBadRequest)
		return
	}

	var booking models.Booking
	if err := h.db.First(&booking, paymentRequest.BookingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Booking not found", http.StatusNotFound)
		} else {
			http.Error(w, "Error retrieving booking", http.StatusInternalServerError)
		}
		return
	}

	if booking.StudentID != userID {
		http.Error(w, "Not your booking", http.StatusForbidden)
		return
	}
	if booking.PaymentStatus == models.PaymentPaid {
		http.Error(w, "Booking already paid", http.StatusConflict)
		return
	}
	if booking.Status == models.BookingCancelled {
		http.Error(w, "Booking is cancelled", http.StatusConflict)
		return
	}

	payment := models.Payment{
		BookingID: booking.ID,
		Amount:    booking.Amount,
		Status:    models.PaymentPending,
		Reference: PaymentReference(booking.ID, time.Now().UTC()),
	}

	if err := h.db.Create(&payment).Error; err != nil {
		http.Error(w, "Error creating payment", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"reference": payment.Reference,
		"amount":    payment.Amount,
		"status":    payment.Status,
	})
}

// ConfirmPayment settles a pending payment directly. This stands in for the
// gateway redirect flow during development and in tests.
func (h *PaymentHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	reference := mux.Vars(r)["reference"]

	var payment models.Payment
	if err := h.db.Where("reference = ?", reference).First(&payment).Error; err != nil {
		http.Error(w, "Payment not found", http.StatusNotFound)
		return
	}

	var booking models.Booking
	if err := h.db.First(&booking, payment.BookingID).Error; err != nil {
		http.Error(w, "Booking not found", http.StatusNotFound)
		return
	}
	if booking.StudentID != userID {
		http.Error(w, "Not your payment", http.StatusForbidden)
		return
	}

	if err := h.settlePayment(&payment, &booking,
		fmt.Sprintf("SIM-%d", time.Now().UnixNano())); err != nil {
		if errors.Is(err, errAlreadySettled) {
			http.Error(w, "Payment already settled", http.StatusConflict)
		} else {
			http.Error(w, "Error settling payment", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":   "Payment confirmed",
		"reference": payment.Reference,
		"status":    payment.Status,
	})
}

// HandleWebhook processes gateway callbacks. The signature is verified
// before the body is even parsed.
func (h *PaymentHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Error reading request body", http.StatusBadRequest)
		return
	}

	signature := r.Header.Get("X-Gateway-Signature")
	secret := os.Getenv("PAYMENT_SECRET_KEY")
	if signature == "" || !VerifySignature(body, signature, secret) {
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	var event struct {
		Event string `json:"event"`
		Data  struct {
			Reference     string `json:"reference"`
			TransactionID string `json:"transaction_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &event); err != nil {
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return
	}

	var payment models.Payment
	if err := h.db.Where("reference = ?", event.Data.Reference).First(&payment).Error; err != nil {
		http.Error(w, "Payment not found", http.StatusNotFound)
		return
	}

	switch event.Event {
	case "charge.success":
		var booking models.Booking
		if err := h.db.First(&booking, payment.BookingID).Error; err != nil {
			http.Error(w, "Booking not found", http.StatusNotFound)
			return
		}
		if err := h.settlePayment(&payment, &booking, event.Data.TransactionID); err != nil &&
			!errors.Is(err, errAlreadySettled) {
			http.Error(w, "Error settling payment", http.StatusInternalServerError)
			return
		}
	case "charge.failed":
		if payment.Status == models.PaymentPending {
			payment.Status = models.PaymentFailed
			if err := h.db.Save(&payment).Error; err != nil {
				http.Error(w, "Error updating payment", http.StatusInternalServerError)
				return
			}
		}
	default:
		// Unknown events are acknowledged so the gateway stops retrying.
	}

	w.WriteHeader(http.StatusOK)
}

func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	reference := mux.Vars(r)["reference"]

	var payment models.Payment
	if err := h.db.Preload("Booking").Where("reference = ?", reference).
		First(&payment).Error; err != nil {
		http.Error(w, "Payment not found", http.StatusNotFound)
		return
	}

	if payment.Booking != nil && payment.Booking.StudentID != userID {
		http.Error(w, "Not your payment", http.StatusForbidden)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payment)
}

var errAlreadySettled = errors.New("payment already settled")

// settlePayment marks the payment paid, confirms the booking and writes the
// ledger entry, all in one transaction. The paid flag is claimed with a
// conditional update so a confirm racing a webhook settles exactly once.
func (h *PaymentHandler) settlePayment(payment *models.Payment, booking *models.Booking, transactionID string) error {
	if payment.Status == models.PaymentPaid {
		return errAlreadySettled
	}

	tx := h.db.Begin()

	claim := tx.Model(&models.Payment{}).
		Where("id = ? AND status <> ?", payment.ID, models.PaymentPaid).
		Updates(map[string]interface{}{
			"status":         models.PaymentPaid,
			"transaction_id": transactionID,
		})
	if claim.Error != nil {
		tx.Rollback()
		return claim.Error
	}
	if claim.RowsAffected == 0 {
		tx.Rollback()
		return errAlreadySettled
	}
	payment.Status = models.PaymentPaid
	payment.TransactionID = transactionID

	booking.PaymentStatus = models.PaymentPaid
	if booking.Status == models.BookingPending {
		booking.Status = models.BookingConfirmed
	}
	if err := tx.Save(booking).Error; err != nil {
		tx.Rollback()
		return err
	}

	transaction := models.Transaction{
		UserID:  booking.StudentID,
		Amount:  payment.Amount,
		Method:  "gateway",
		Purpose: fmt.Sprintf("Booking #%d payment", booking.ID),
	}
	if err := tx.Create(&transaction).Error; err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return err
	}

	go h.notifyBookingConfirmed(booking.StudentID, booking.ID)
	return nil
}

// notifyBookingConfirmed pushes a confirmation to the student's devices.
// Delivery is best effort; failures only get logged.
func (h *PaymentHandler) notifyBookingConfirmed(studentID, bookingID uint) {
	var devices []models.Device
	if err := h.db.Where("user_id = ?", studentID).Find(&devices).Error; err != nil || len(devices) == 0 {
		return
	}

	var tokens []expo.ExponentPushToken
	for _, device := range devices {
		token, err := expo.NewExponentPushToken(device.Token)
		if err != nil {
			continue
		}
		tokens = append(tokens, token)
	}
	if len(tokens) == 0 {
		return
	}

	title := "Booking confirmed"
	body := fmt.Sprintf("Your payment was received and booking #%d is confirmed.", bookingID)

	response, err := h.expoClient.Publish(&expo.PushMessage{
		To:       tokens,
		Title:    title,
		Body:     body,
		Sound:    "default",
		Priority: expo.DefaultPriority,
	})
	status := "sent"
	if err != nil {
		log.Printf("error publishing booking confirmation push: %v", err)
		status = "failed"
	} else if validationErr := response.ValidateResponse(); validationErr != nil {
		log.Printf("booking confirmation push validation error: %v", validationErr)
		status = "failed"
	}

	history := models.NotificationHistory{
		UserID: studentID,
		Title:  title,
		Body:   body,
		Status: status,
		SentAt: time.Now(),
	}
	if err := h.db.Create(&history).Error; err != nil {
		log.Printf("error creating notification history: %v", err)
	}
}
