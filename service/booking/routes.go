package booking

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/hainguyenvie/aitheduconnect-sub001/cmd/models"
	"github.com/hainguyenvie/aitheduconnect-sub001/cmd/utils"
	"gorm.io/gorm"
)

type BookingHandler struct {
	db *gorm.DB
}

func NewBookingHandler(db *gorm.DB) *BookingHandler {
	return &BookingHandler{db: db}
}

func (h *BookingHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/bookings", utils.AuthMiddleware(h.CreateBooking)).Methods("POST")
	router.HandleFunc("/bookings", utils.AuthMiddleware(h.GetMyBookings)).Methods("GET")
	router.HandleFunc("/bookings/{id}", utils.AuthMiddleware(h.GetBooking)).Methods("GET")
	router.HandleFunc("/bookings/{id}/cancel", utils.AuthMiddleware(h.CancelBooking)).Methods("POST")
	router.HandleFunc("/bookings/{id}/complete", utils.AuthMiddleware(h.CompleteBooking)).Methods("POST")
	router.HandleFunc("/teachers/{id}/bookings", utils.AuthMiddleware(h.GetTeacherBookings)).Methods("GET")
}

// CreateBooking records a reservation for exactly one of a schedule slot or a
// course. The request is validated locally first; only well-formed bookings
// open a transaction. The slot is claimed with a conditional update so two
// students racing for the same hour cannot both win.
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	studentID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var bookingRequest struct {
		ScheduleID *uint `json:"schedule_id"`
		CourseID   *uint `json:"course_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&bookingRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := utils.ValidateSelection(bookingRequest.ScheduleID, bookingRequest.CourseID); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tx := h.db.Begin()

	var booking models.Booking
	if bookingRequest.ScheduleID != nil {
		booking, err = h.bookSlot(tx, studentID, *bookingRequest.ScheduleID)
	} else {
		booking, err = h.bookCourse(tx, studentID, *bookingRequest.CourseID)
	}
	if err != nil {
		tx.Rollback()
		var httpErr *bookingError
		if errors.As(err, &httpErr) {
			http.Error(w, httpErr.message, httpErr.status)
		} else {
			http.Error(w, "Error creating booking", http.StatusInternalServerError)
		}
		return
	}

	if err := tx.Create(&booking).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error creating booking", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit().Error; err != nil {
		http.Error(w, "Error completing booking", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"booking":     booking,
		"payment_url": fmt.Sprintf("/payment/%d", booking.ID),
	})
}

type bookingError struct {
	status  int
	message string
}

func (e *bookingError) Error() string { return e.message }

func (h *BookingHandler) bookSlot(tx *gorm.DB, studentID, scheduleID uint) (models.Booking, error) {
	var schedule models.Schedule
	if err := tx.First(&schedule, scheduleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Booking{}, &bookingError{http.StatusNotFound, "Schedule slot not found"}
		}
		return models.Booking{}, err
	}

	var profile models.TeacherProfile
	if err := tx.First(&profile, schedule.TeacherProfileID).Error; err != nil {
		return models.Booking{}, err
	}

	if profile.UserID == studentID {
		return models.Booking{}, &bookingError{http.StatusForbidden, "Cannot book your own slot"}
	}

	// The claim: flip the slot to booked only if it is still available.
	// Zero rows affected means somebody else got there first.
	result := tx.Model(&models.Schedule{}).
		Where("id = ? AND status = ?", scheduleID, models.SlotAvailable).
		Update("status", models.SlotBooked)
	if result.Error != nil {
		return models.Booking{}, result.Error
	}
	if result.RowsAffected == 0 {
		return models.Booking{}, &bookingError{http.StatusConflict, "Slot is no longer available"}
	}

	hours := schedule.EndTime.Sub(schedule.StartTime).Hours()
	if hours <= 0 {
		hours = 1
	}

	sid := scheduleID
	return models.Booking{
		StudentID:        studentID,
		TeacherProfileID: schedule.TeacherProfileID,
		ScheduleID:       &sid,
		Amount:           profile.HourlyRate * hours,
		Status:           models.BookingPending,
		PaymentStatus:    models.PaymentUnpaid,
	}, nil
}

func (h *BookingHandler) bookCourse(tx *gorm.DB, studentID, courseID uint) (models.Booking, error) {
	var course models.Course
	if err := tx.First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Booking{}, &bookingError{http.StatusNotFound, "Course not found"}
		}
		return models.Booking{}, err
	}

	var existing int64
	if err := tx.Model(&models.Booking{}).
		Where("student_id = ? AND course_id = ? AND status NOT IN ?",
			studentID, courseID, []string{models.BookingCancelled}).
		Count(&existing).Error; err != nil {
		return models.Booking{}, err
	}
	if existing > 0 {
		return models.Booking{}, &bookingError{http.StatusConflict, "Course already booked"}
	}

	cid := courseID
	return models.Booking{
		StudentID:        studentID,
		TeacherProfileID: course.TeacherProfileID,
		CourseID:         &cid,
		Amount:           course.Price,
		Status:           models.BookingPending,
		PaymentStatus:    models.PaymentUnpaid,
	}, nil
}

func (h *BookingHandler) GetMyBookings(w http.ResponseWriter, r *http.Request) {
	studentID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize := 20

	query := h.db.Model(&models.Booking{}).
		Where("student_id = ?", studentID).
		Preload("TeacherProfile").
		Preload("TeacherProfile.User").
		Preload("Schedule").
		Preload("Course")

	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	query.Count(&total)

	var bookings []models.Booking
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).
		Order("created_at DESC").Find(&bookings).Error; err != nil {
		http.Error(w, "Error retrieving bookings", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"bookings":    bookings,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
		"total_pages": (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
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
	result := h.db.Preload("TeacherProfile").
		Preload("TeacherProfile.User").
		Preload("Schedule").
		Preload("Course").
		First(&booking, bookingID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			http.Error(w, "Booking not found", http.StatusNotFound)
		} else {
			http.Error(w, "Error retrieving booking", http.StatusInternalServerError)
		}
		return
	}

	if !h.isParty(userID, &booking) {
		http.Error(w, "Not your booking", http.StatusForbidden)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(booking)
}

// CancelBooking cancels a pending or confirmed booking and frees the slot if
// one was claimed.
func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
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

	tx := h.db.Begin()

	var booking models.Booking
	if err := tx.First(&booking, bookingID).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Booking not found", http.StatusNotFound)
		return
	}

	if !h.isParty(userID, &booking) {
		tx.Rollback()
		http.Error(w, "Not your booking", http.StatusForbidden)
		return
	}

	if booking.Status == models.BookingCancelled || booking.Status == models.BookingCompleted {
		tx.Rollback()
		http.Error(w, "Booking cannot be cancelled", http.StatusConflict)
		return
	}

	booking.Status = models.BookingCancelled
	if err := tx.Save(&booking).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error cancelling booking", http.StatusInternalServerError)
		return
	}

	if booking.ScheduleID != nil {
		if err := tx.Model(&models.Schedule{}).
			Where("id = ?", *booking.ScheduleID).
			Update("status", models.SlotAvailable).Error; err != nil {
			tx.Rollback()
			http.Error(w, "Error releasing slot", http.StatusInternalServerError)
			return
		}
	}

	if err := tx.Commit().Error; err != nil {
		http.Error(w, "Error completing cancellation", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Booking cancelled successfully",
		"booking": booking,
	})
}

// CompleteBooking marks a confirmed booking as completed. Only the teacher
// side may do so, after the lesson has taken place.
func (h *BookingHandler) CompleteBooking(w http.ResponseWriter, r *http.Request) {
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

	if booking.TeacherProfile.UserID != userID {
		http.Error(w, "Only the teacher can complete a booking", http.StatusForbidden)
		return
	}

	if booking.Status != models.BookingConfirmed {
		http.Error(w, "Only confirmed bookings can be completed", http.StatusConflict)
		return
	}

	booking.Status = models.BookingCompleted
	if err := h.db.Save(&booking).Error; err != nil {
		http.Error(w, "Error completing booking", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(booking)
}

func (h *BookingHandler) GetTeacherBookings(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	teacherID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid teacher ID", http.StatusBadRequest)
		return
	}

	var profile models.TeacherProfile
	if err := h.db.First(&profile, teacherID).Error; err != nil {
		http.Error(w, "Teacher not found", http.StatusNotFound)
		return
	}
	if profile.UserID != userID {
		http.Error(w, "Not your teacher profile", http.StatusForbidden)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize := 20

	query := h.db.Model(&models.Booking{}).
		Where("teacher_profile_id = ?", teacherID).
		Preload("Student").
		Preload("Schedule").
		Preload("Course")

	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	query.Count(&total)

	var bookings []models.Booking
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).
		Order("created_at DESC").Find(&bookings).Error; err != nil {
		http.Error(w, "Error retrieving bookings", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"bookings":    bookings,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
		"total_pages": (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

func (h *BookingHandler) isParty(userID uint, booking *models.Booking) bool {
	if booking.StudentID == userID {
		return true
	}
	var profile models.TeacherProfile
	if err := h.db.First(&profile, booking.TeacherProfileID).Error; err != nil {
		return false
	}
	return profile.UserID == userID
}
