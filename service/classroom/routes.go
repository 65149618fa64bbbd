package classroom

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	stream_chat "github.com/GetStream/stream-chat-go/v5"
	"github.com/gorilla/mux"
	"github.com/hainguyenvie/aitheduconnect-sub001/cmd/models"
	"github.com/hainguyenvie/aitheduconnect-sub001/cmd/utils"
	"gorm.io/gorm"
)

type ClassroomHandler struct {
	db *gorm.DB
}

func NewClassroomHandler(db *gorm.DB) *ClassroomHandler {
	return &ClassroomHandler{db: db}
}

func (h *ClassroomHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/bookings/{id}/classroom", utils.AuthMiddleware(h.JoinClassroom)).Methods("POST")
	router.HandleFunc("/bookings/{id}/classroom", utils.AuthMiddleware(h.GetClassroom)).Methods("GET")
}

// JoinClassroom admits a booking party into the lesson room. The classroom
// channel is created lazily on first join; both parties land in the same one
// because the channel is keyed by booking id.
func (h *ClassroomHandler) JoinClassroom(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	bookingID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid booking ID", http.StatusBadRequest)
		return
	}

	var booking models.Booking
	if err := h.db.Preload("TeacherProfile").First(&booking, bookingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Booking not found", http.StatusNotFound)
		} else {
			http.Error(w, "Error retrieving booking", http.StatusInternalServerError)
		}
		return
	}

	if booking.StudentID != userID && booking.TeacherProfile.UserID != userID {
		http.Error(w, "Not a party to this booking", http.StatusForbidden)
		return
	}

	if booking.Status != models.BookingConfirmed {
		http.Error(w, "Classroom is only open for confirmed bookings", http.StatusConflict)
		return
	}

	channel, err := h.getOrCreateClassroom(&booking)
	if err != nil {
		http.Error(w, "Error opening classroom", http.StatusInternalServerError)
		return
	}

	var client models.Client
	if err := h.db.FirstOrCreate(&client, models.Client{UserID: userID}).Error; err != nil {
		http.Error(w, "Error joining classroom", http.StatusInternalServerError)
		return
	}
	if err := h.db.Model(channel).Association("Clients").Append(&client); err != nil {
		http.Error(w, "Error joining classroom", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"channel": channel,
	}

	// A Stream token lets the client attach to the video room. Absence of
	// credentials degrades the classroom to chat only.
	if token := h.streamToken(userID); token != "" {
		response["stream_token"] = token
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (h *ClassroomHandler) GetClassroom(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	bookingID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid booking ID", http.StatusBadRequest)
		return
	}

	var booking models.Booking
	if err := h.db.Preload("TeacherProfile").First(&booking, bookingID).Error; err != nil {
		http.Error(w, "Booking not found", http.StatusNotFound)
		return
	}

	if booking.StudentID != userID && booking.TeacherProfile.UserID != userID {
		http.Error(w, "Not a party to this booking", http.StatusForbidden)
		return
	}

	var channel models.Channel
	if err := h.db.Preload("Clients").
		Where("booking_id = ? AND type = ?", booking.ID, models.ChannelClassroom).
		First(&channel).Error; err != nil {
		http.Error(w, "Classroom not opened yet", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(channel)
}

func (h *ClassroomHandler) getOrCreateClassroom(booking *models.Booking) (*models.Channel, error) {
	var channel models.Channel
	err := h.db.Where("booking_id = ? AND type = ?", booking.ID, models.ChannelClassroom).
		First(&channel).Error
	if err == nil {
		return &channel, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	bid := booking.ID
	channel = models.Channel{
		Name:      fmt.Sprintf("Classroom for booking #%d", booking.ID),
		Type:      models.ChannelClassroom,
		BookingID: &bid,
	}
	if err := h.db.Create(&channel).Error; err != nil {
		return nil, err
	}
	return &channel, nil
}

func (h *ClassroomHandler) streamToken(userID uint) string {
	apiKey := os.Getenv("STREAM_API_KEY")
	apiSecret := os.Getenv("STREAM_API_SECRET")
	if apiKey == "" || apiSecret == "" {
		return ""
	}

	client, err := stream_chat.NewClient(apiKey, apiSecret)
	if err != nil {
		log.Printf("error creating stream client: %v", err)
		return ""
	}

	token, err := client.CreateToken(fmt.Sprintf("%d", userID), time.Now().Add(24*time.Hour))
	if err != nil {
		log.Printf("error creating stream token: %v", err)
		return ""
	}
	return token
}
