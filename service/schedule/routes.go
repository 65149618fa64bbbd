package schedule

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/hainguyenvie/aitheduconnect-sub001/cmd/models"
	"github.com/hainguyenvie/aitheduconnect-sub001/cmd/utils"
	"gorm.io/gorm"
)

type ScheduleHandler struct {
	db *gorm.DB
}

func NewScheduleHandler(db *gorm.DB) *ScheduleHandler {
	return &ScheduleHandler{db: db}
}

func (h *ScheduleHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/teachers/{id}/schedules", h.GetTeacherSchedules).Methods("GET")
	router.HandleFunc("/teachers/{id}/open-hours", utils.AuthMiddleware(h.GetOpenHours)).Methods("GET")
	router.HandleFunc("/schedules", utils.AuthMiddleware(h.CreateSchedule)).Methods("POST")
	router.HandleFunc("/schedules/{id}", utils.AuthMiddleware(h.UpdateSchedule)).Methods("PUT")
	router.HandleFunc("/schedules/{id}", utils.AuthMiddleware(h.DeleteSchedule)).Methods("DELETE")
}

// GetTeacherSchedules lists a teacher's slots ordered by start time. When no
// date is given it returns upcoming slots; a status filter narrows the list,
// so the booking page can ask for available slots only.
func (h *ScheduleHandler) GetTeacherSchedules(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	teacherID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid teacher ID", http.StatusBadRequest)
		return
	}

	query := h.db.Model(&models.Schedule{}).
		Where("teacher_profile_id = ?", teacherID)

	switch {
	case r.URL.Query().Get("date") != "":
		day, parseErr := utils.ParseDate(r.URL.Query().Get("date"))
		if parseErr != nil {
			http.Error(w, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		query = query.Where("date = ?", day)
	case r.URL.Query().Get("start_date") != "" || r.URL.Query().Get("end_date") != "":
		if startDate := r.URL.Query().Get("start_date"); startDate != "" {
			day, parseErr := utils.ParseDate(startDate)
			if parseErr != nil {
				http.Error(w, "Invalid start_date, expected YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			query = query.Where("date >= ?", day)
		}
		if endDate := r.URL.Query().Get("end_date"); endDate != "" {
			day, parseErr := utils.ParseDate(endDate)
			if parseErr != nil {
				http.Error(w, "Invalid end_date, expected YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			query = query.Where("date <= ?", day)
		}
	default:
		query = query.Where("date >= ?", time.Now().UTC().Truncate(24*time.Hour))
	}

	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var schedules []models.Schedule
	result := query.Order("start_time ASC").Find(&schedules)
	if result.Error != nil {
		http.Error(w, "Error retrieving schedules", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"schedules": schedules,
		"total":     len(schedules),
	})
}

// GetOpenHours returns the hour labels a teacher has not yet scheduled on a
// given date. Every existing slot blocks its label regardless of status, so
// a teacher cannot stack a second slot over a cancelled-then-reopened hour.
func (h *ScheduleHandler) GetOpenHours(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	teacherID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid teacher ID", http.StatusBadRequest)
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		http.Error(w, "date query parameter is required", http.StatusBadRequest)
		return
	}
	day, err := utils.ParseDate(date)
	if err != nil {
		http.Error(w, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	var schedules []models.Schedule
	result := h.db.Where("teacher_profile_id = ? AND date = ?", teacherID, day).
		Find(&schedules)
	if result.Error != nil {
		http.Error(w, "Error retrieving schedules", http.StatusInternalServerError)
		return
	}

	taken := make([]string, 0, len(schedules))
	for _, s := range schedules {
		taken = append(taken, utils.HourLabel(s.StartTime))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"date":       date,
		"open_hours": utils.SubtractTakenLabels(utils.OpenHourLabels(), taken),
	})
}

// CreateSchedule opens a new slot for the authenticated teacher. The time
// labels are validated before any database work so malformed input never
// costs a query.
func (h *ScheduleHandler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var scheduleRequest struct {
		Date      string `json:"date"`
		StartTime string `json:"start_time"`
		EndTime   string `json:"end_time"`
	}
	if err := json.NewDecoder(r.Body).Decode(&scheduleRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := utils.ValidateSlotLabels(scheduleRequest.StartTime, scheduleRequest.EndTime); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	day, err := utils.ParseDate(scheduleRequest.Date)
	if err != nil {
		http.Error(w, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	start, err := utils.CombineDateLabel(day, scheduleRequest.StartTime)
	if err != nil {
		http.Error(w, "Invalid start time, expected HH:MM", http.StatusBadRequest)
		return
	}
	end, err := utils.CombineDateLabel(day, scheduleRequest.EndTime)
	if err != nil {
		http.Error(w, "Invalid end time, expected HH:MM", http.StatusBadRequest)
		return
	}

	var profile models.TeacherProfile
	if result := h.db.Where("user_id = ?", userID).First(&profile); result.Error != nil {
		http.Error(w, "Teacher profile not found", http.StatusNotFound)
		return
	}

	var overlapping int64
	if err := h.db.Model(&models.Schedule{}).
		Where("teacher_profile_id = ? AND date = ? AND start_time < ? AND end_time > ?",
			profile.ID, day, end, start).
		Count(&overlapping).Error; err != nil {
		http.Error(w, "Error checking for overlapping schedules", http.StatusInternalServerError)
		return
	}
	if overlapping > 0 {
		http.Error(w, "Slot overlaps an existing schedule", http.StatusConflict)
		return
	}

	schedule := models.Schedule{
		TeacherProfileID: profile.ID,
		Date:             day,
		StartTime:        start,
		EndTime:          end,
		Status:           models.SlotAvailable,
	}

	if err := h.db.Create(&schedule).Error; err != nil {
		http.Error(w, "Error creating schedule", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(schedule)
}

func (h *ScheduleHandler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	scheduleID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid schedule ID", http.StatusBadRequest)
		return
	}

	var updateRequest struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&updateRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if updateRequest.Status != models.SlotAvailable && updateRequest.Status != models.SlotUnavailable {
		http.Error(w, "Status must be available or unavailable", http.StatusBadRequest)
		return
	}

	var schedule models.Schedule
	if result := h.db.First(&schedule, scheduleID); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			http.Error(w, "Schedule not found", http.StatusNotFound)
		} else {
			http.Error(w, "Error retrieving schedule", http.StatusInternalServerError)
		}
		return
	}

	if !h.ownsSchedule(userID, &schedule) {
		http.Error(w, "Not your schedule", http.StatusForbidden)
		return
	}

	if schedule.Status == models.SlotBooked {
		http.Error(w, "Cannot modify a booked slot", http.StatusConflict)
		return
	}

	schedule.Status = updateRequest.Status
	if err := h.db.Save(&schedule).Error; err != nil {
		http.Error(w, "Error updating schedule", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(schedule)
}

func (h *ScheduleHandler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	scheduleID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid schedule ID", http.StatusBadRequest)
		return
	}

	var schedule models.Schedule
	if result := h.db.First(&schedule, scheduleID); result.Error != nil {
		http.Error(w, "Schedule not found", http.StatusNotFound)
		return
	}

	if !h.ownsSchedule(userID, &schedule) {
		http.Error(w, "Not your schedule", http.StatusForbidden)
		return
	}

	if schedule.Status == models.SlotBooked {
		http.Error(w, "Cannot delete a booked slot", http.StatusConflict)
		return
	}

	if err := h.db.Delete(&schedule).Error; err != nil {
		http.Error(w, "Error deleting schedule", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Schedule deleted successfully"})
}

func (h *ScheduleHandler) ownsSchedule(userID uint, schedule *models.Schedule) bool {
	var profile models.TeacherProfile
	if err := h.db.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return false
	}
	return profile.ID == schedule.TeacherProfileID
}
