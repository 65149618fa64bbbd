package dashboard

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/hainguyenvie/aitheduconnect-sub001/cmd/models"
	"github.com/hainguyenvie/aitheduconnect-sub001/cmd/utils"
	"gorm.io/gorm"
)

type DashboardHandler struct {
	db *gorm.DB
}

func NewDashboardHandler(db *gorm.DB) *DashboardHandler {
	return &DashboardHandler{db: db}
}

func (h *DashboardHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/dashboard/stats", utils.AuthMiddleware(h.GetStats)).Methods("GET")
	router.HandleFunc("/dashboard/teacher", utils.AuthMiddleware(h.GetTeacherStats)).Methods("GET")
}

// GetStats returns platform-wide counters for the admin dashboard.
func (h *DashboardHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	callerID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var caller models.User
	if err := h.db.First(&caller, callerID).Error; err != nil || caller.Role != models.RoleAdmin {
		http.Error(w, "Admin access required", http.StatusForbidden)
		return
	}

	var totalStudents, totalTeachers, totalBookings, pendingApplications int64
	h.db.Model(&models.User{}).Where("role = ?", models.RoleStudent).Count(&totalStudents)
	h.db.Model(&models.TeacherProfile{}).Where("verified = ?", true).Count(&totalTeachers)
	h.db.Model(&models.Booking{}).Count(&totalBookings)
	h.db.Model(&models.TeacherApplication{}).
		Where("status = ?", models.ApplicationPending).Count(&pendingApplications)

	var totalRevenue float64
	h.db.Model(&models.Payment{}).
		Where("status = ?", models.PaymentPaid).
		Select("COALESCE(SUM(amount), 0)").Scan(&totalRevenue)

	monthStart := time.Now().UTC().AddDate(0, -1, 0)
	var monthlyBookings int64
	h.db.Model(&models.Booking{}).Where("created_at >= ?", monthStart).Count(&monthlyBookings)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"total_students":       totalStudents,
		"total_teachers":       totalTeachers,
		"total_bookings":       totalBookings,
		"monthly_bookings":     monthlyBookings,
		"pending_applications": pendingApplications,
		"total_revenue":        totalRevenue,
	})
}

// GetTeacherStats summarizes the calling teacher's activity.
func (h *DashboardHandler) GetTeacherStats(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var profile models.TeacherProfile
	if err := h.db.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		http.Error(w, "Teacher profile not found", http.StatusNotFound)
		return
	}

	var totalBookings, completedBookings, upcomingSlots int64
	h.db.Model(&models.Booking{}).
		Where("teacher_profile_id = ?", profile.ID).Count(&totalBookings)
	h.db.Model(&models.Booking{}).
		Where("teacher_profile_id = ? AND status = ?", profile.ID, models.BookingCompleted).
		Count(&completedBookings)
	h.db.Model(&models.Schedule{}).
		Where("teacher_profile_id = ? AND status = ? AND date >= ?",
			profile.ID, models.SlotAvailable, time.Now().UTC().Truncate(24*time.Hour)).
		Count(&upcomingSlots)

	var earnings float64
	h.db.Model(&models.Booking{}).
		Where("teacher_profile_id = ? AND payment_status = ?", profile.ID, models.PaymentPaid).
		Select("COALESCE(SUM(amount), 0)").Scan(&earnings)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"total_bookings":     totalBookings,
		"completed_bookings": completedBookings,
		"upcoming_slots":     upcomingSlots,
		"earnings":           earnings,
		"average_rating":     profile.AverageRating,
		"total_ratings":      profile.TotalRatings,
	})
}
