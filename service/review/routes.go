package review

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/hainguyenvie/aitheduconnect-sub001/cmd/models"
	"github.com/hainguyenvie/aitheduconnect-sub001/cmd/utils"
	"gorm.io/gorm"
)

type ReviewHandler struct {
	db *gorm.DB
}

func NewReviewHandler(db *gorm.DB) *ReviewHandler {
	return &ReviewHandler{db: db}
}

func (h *ReviewHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/bookings/{id}/review", utils.AuthMiddleware(h.CreateReview)).Methods("POST")
	router.HandleFunc("/reviews/{id}", utils.AuthMiddleware(h.DeleteReview)).Methods("DELETE")
}

// CreateReview lets the student rate a completed booking. One review per
// booking; the teacher's rating aggregate is updated in the same
// transaction.
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	studentID, err := utils.GetUserIDFromContext(r.Context())
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

	var reviewRequest struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&reviewRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if reviewRequest.Rating < 1 || reviewRequest.Rating > 5 {
		http.Error(w, "Rating must be between 1 and 5", http.StatusBadRequest)
		return
	}

	tx := h.db.Begin()

	var booking models.Booking
	if err := tx.First(&booking, bookingID).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Booking not found", http.StatusNotFound)
		} else {
			http.Error(w, "Error retrieving booking", http.StatusInternalServerError)
		}
		return
	}

	if booking.StudentID != studentID {
		tx.Rollback()
		http.Error(w, "Not your booking", http.StatusForbidden)
		return
	}
	if booking.Status != models.BookingCompleted {
		tx.Rollback()
		http.Error(w, "Only completed bookings can be reviewed", http.StatusConflict)
		return
	}

	var existing int64
	tx.Model(&models.Review{}).Where("booking_id = ?", booking.ID).Count(&existing)
	if existing > 0 {
		tx.Rollback()
		http.Error(w, "Booking already reviewed", http.StatusConflict)
		return
	}

	review := models.Review{
		StudentID:        studentID,
		TeacherProfileID: booking.TeacherProfileID,
		BookingID:        booking.ID,
		Rating:           reviewRequest.Rating,
		Comment:          reviewRequest.Comment,
	}
	if err := tx.Create(&review).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error creating review", http.StatusInternalServerError)
		return
	}

	var profile models.TeacherProfile
	if err := tx.First(&profile, booking.TeacherProfileID).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Teacher not found", http.StatusNotFound)
		return
	}

	totalScore := profile.AverageRating*float64(profile.TotalRatings) + float64(review.Rating)
	profile.TotalRatings++
	profile.AverageRating = totalScore / float64(profile.TotalRatings)

	if err := tx.Save(&profile).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error updating teacher rating", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit().Error; err != nil {
		http.Error(w, "Error completing review", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(review)
}

// DeleteReview removes the caller's own review and backs its score out of the
// teacher aggregate.
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	reviewID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid review ID", http.StatusBadRequest)
		return
	}

	tx := h.db.Begin()

	var review models.Review
	if err := tx.First(&review, reviewID).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Review not found", http.StatusNotFound)
		return
	}

	if review.StudentID != userID {
		tx.Rollback()
		http.Error(w, "Not your review", http.StatusForbidden)
		return
	}

	if err := tx.Delete(&review).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error deleting review", http.StatusInternalServerError)
		return
	}

	var profile models.TeacherProfile
	if err := tx.First(&profile, review.TeacherProfileID).Error; err == nil && profile.TotalRatings > 0 {
		totalScore := profile.AverageRating*float64(profile.TotalRatings) - float64(review.Rating)
		profile.TotalRatings--
		if profile.TotalRatings == 0 {
			profile.AverageRating = 0
		} else {
			profile.AverageRating = totalScore / float64(profile.TotalRatings)
		}
		if err := tx.Save(&profile).Error; err != nil {
			tx.Rollback()
			http.Error(w, "Error updating teacher rating", http.StatusInternalServerError)
			return
		}
	}

	if err := tx.Commit().Error; err != nil {
		http.Error(w, "Error completing deletion", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Review deleted successfully"})
}
