package course

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

type CourseHandler struct {
	db *gorm.DB
}

func NewCourseHandler(db *gorm.DB) *CourseHandler {
	return &CourseHandler{db: db}
}

func (h *CourseHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/courses", h.GetCourses).Methods("GET")
	router.HandleFunc("/courses", utils.AuthMiddleware(h.CreateCourse)).Methods("POST")
	router.HandleFunc("/courses/{id}", h.GetCourse).Methods("GET")
	router.HandleFunc("/courses/{id}", utils.AuthMiddleware(h.UpdateCourse)).Methods("PUT")
	router.HandleFunc("/courses/{id}", utils.AuthMiddleware(h.DeleteCourse)).Methods("DELETE")
	router.HandleFunc("/teachers/{id}/courses", h.GetTeacherCourses).Methods("GET")
}

func (h *CourseHandler) GetCourses(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize := 20

	query := h.db.Model(&models.Course{}).
		Preload("TeacherProfile").
		Preload("TeacherProfile.User")

	if search := r.URL.Query().Get("q"); search != "" {
		like := "%" + search + "%"
		query = query.Where("title ILIKE ? OR description ILIKE ?", like, like)
	}

	var total int64
	query.Count(&total)

	var courses []models.Course
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).
		Order("created_at DESC").Find(&courses).Error; err != nil {
		http.Error(w, "Error retrieving courses", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"courses":     courses,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
		"total_pages": (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

func (h *CourseHandler) GetCourse(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	courseID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid course ID", http.StatusBadRequest)
		return
	}

	var course models.Course
	result := h.db.Preload("TeacherProfile").
		Preload("TeacherProfile.User").
		First(&course, courseID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			http.Error(w, "Course not found", http.StatusNotFound)
		} else {
			http.Error(w, "Error retrieving course", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(course)
}

func (h *CourseHandler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var courseRequest struct {
		Title         string  `json:"title"`
		Description   string  `json:"description"`
		Price         float64 `json:"price"`
		TotalSessions int     `json:"total_sessions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&courseRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if courseRequest.Title == "" {
		http.Error(w, "Title is required", http.StatusBadRequest)
		return
	}
	if courseRequest.Price < 0 {
		http.Error(w, "Price cannot be negative", http.StatusBadRequest)
		return
	}

	var profile models.TeacherProfile
	if err := h.db.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		http.Error(w, "Teacher profile not found", http.StatusNotFound)
		return
	}

	course := models.Course{
		TeacherProfileID: profile.ID,
		Title:            courseRequest.Title,
		Description:      courseRequest.Description,
		Price:            courseRequest.Price,
		TotalSessions:    courseRequest.TotalSessions,
	}
	if course.TotalSessions < 1 {
		course.TotalSessions = 1
	}

	if err := h.db.Create(&course).Error; err != nil {
		http.Error(w, "Error creating course", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(course)
}

func (h *CourseHandler) UpdateCourse(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	courseID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid course ID", http.StatusBadRequest)
		return
	}

	var updateRequest struct {
		Title         string  `json:"title"`
		Description   string  `json:"description"`
		Price         float64 `json:"price"`
		TotalSessions int     `json:"total_sessions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&updateRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var course models.Course
	if err := h.db.First(&course, courseID).Error; err != nil {
		http.Error(w, "Course not found", http.StatusNotFound)
		return
	}

	if !h.ownsCourse(userID, &course) {
		http.Error(w, "Not your course", http.StatusForbidden)
		return
	}

	if updateRequest.Title != "" {
		course.Title = updateRequest.Title
	}
	if updateRequest.Description != "" {
		course.Description = updateRequest.Description
	}
	if updateRequest.Price > 0 {
		course.Price = updateRequest.Price
	}
	if updateRequest.TotalSessions > 0 {
		course.TotalSessions = updateRequest.TotalSessions
	}

	if err := h.db.Save(&course).Error; err != nil {
		http.Error(w, "Error updating course", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(course)
}

func (h *CourseHandler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	courseID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid course ID", http.StatusBadRequest)
		return
	}

	var course models.Course
	if err := h.db.First(&course, courseID).Error; err != nil {
		http.Error(w, "Course not found", http.StatusNotFound)
		return
	}

	if !h.ownsCourse(userID, &course) {
		http.Error(w, "Not your course", http.StatusForbidden)
		return
	}

	var activeBookings int64
	h.db.Model(&models.Booking{}).
		Where("course_id = ? AND status IN ?", courseID,
			[]string{models.BookingPending, models.BookingConfirmed}).
		Count(&activeBookings)
	if activeBookings > 0 {
		http.Error(w, "Course has active bookings", http.StatusConflict)
		return
	}

	if err := h.db.Delete(&course).Error; err != nil {
		http.Error(w, "Error deleting course", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Course deleted successfully"})
}

func (h *CourseHandler) GetTeacherCourses(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	teacherID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid teacher ID", http.StatusBadRequest)
		return
	}

	var courses []models.Course
	if err := h.db.Where("teacher_profile_id = ?", teacherID).
		Order("created_at DESC").Find(&courses).Error; err != nil {
		http.Error(w, "Error retrieving courses", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"courses": courses,
		"total":   len(courses),
	})
}

func (h *CourseHandler) ownsCourse(userID uint, course *models.Course) bool {
	var profile models.TeacherProfile
	if err := h.db.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return false
	}
	return profile.ID == course.TeacherProfileID
}
