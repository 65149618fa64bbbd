package teacher

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

type TeacherHandler struct {
	db *gorm.DB
}

func NewTeacherHandler(db *gorm.DB) *TeacherHandler {
	return &TeacherHandler{db: db}
}

func (h *TeacherHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/teachers", h.GetTeachers).Methods("GET")
	router.HandleFunc("/teachers/search", h.SearchTeachers).Methods("GET")
	router.HandleFunc("/teachers/{id}", h.GetTeacher).Methods("GET")
	router.HandleFunc("/teachers/{id}", utils.AuthMiddleware(h.UpdateTeacher)).Methods("PUT")
	router.HandleFunc("/teachers/{id}/reviews", h.GetTeacherReviews).Methods("GET")
	router.HandleFunc("/teachers/{id}/certifications", utils.AuthMiddleware(h.UploadCertification)).Methods("POST")

	router.HandleFunc("/teacher-applications", utils.AuthMiddleware(h.SubmitApplication)).Methods("POST")
	router.HandleFunc("/teacher-applications", utils.AuthMiddleware(h.GetApplications)).Methods("GET")
	router.HandleFunc("/teacher-applications/{id}", utils.AuthMiddleware(h.GetApplication)).Methods("GET")
	router.HandleFunc("/teacher-applications/{id}/review", utils.AuthMiddleware(h.ReviewApplication)).Methods("PATCH")
}

// GetTeachers lists teacher profiles, optionally filtered by verification
// status or subject.
func (h *TeacherHandler) GetTeachers(w http.ResponseWriter, r *http.Request) {
	verified := r.URL.Query().Get("verified")
	subject := r.URL.Query().Get("subject")
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	pageSize := 20

	query := h.db.Model(&models.TeacherProfile{}).
		Preload("User").
		Preload("CertificationFiles")

	if verified != "" {
		isVerified, parseErr := strconv.ParseBool(verified)
		if parseErr != nil {
			http.Error(w, "Invalid value for 'verified'", http.StatusBadRequest)
			return
		}
		query = query.Where("verified = ?", isVerified)
	}
	if subject != "" {
		query = query.Where("? = ANY(subjects)", subject)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		http.Error(w, "Error counting teachers", http.StatusInternalServerError)
		return
	}

	var teachers []models.TeacherProfile
	result := query.Offset((page - 1) * pageSize).Limit(pageSize).Find(&teachers)
	if result.Error != nil {
		http.Error(w, "Error retrieving teachers", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"teachers":    teachers,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
		"total_pages": (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

func (h *TeacherHandler) GetTeacher(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	teacherID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid teacher ID", http.StatusBadRequest)
		return
	}

	var teacher models.TeacherProfile
	result := h.db.Preload("User").
		Preload("CertificationFiles").
		First(&teacher, teacherID)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			http.Error(w, "Teacher not found", http.StatusNotFound)
		} else {
			http.Error(w, "Error retrieving teacher", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(teacher)
}

func (h *TeacherHandler) UpdateTeacher(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	teacherID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid teacher ID", http.StatusBadRequest)
		return
	}

	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var updateRequest struct {
		Title      string   `json:"title"`
		Bio        string   `json:"bio"`
		HourlyRate float64  `json:"hourly_rate"`
		Subjects   []string `json:"subjects"`
	}
	if err := json.NewDecoder(r.Body).Decode(&updateRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var teacher models.TeacherProfile
	if result := h.db.First(&teacher, teacherID); result.Error != nil {
		http.Error(w, "Teacher not found", http.StatusNotFound)
		return
	}

	if teacher.UserID != userID {
		http.Error(w, "Not your teacher profile", http.StatusForbidden)
		return
	}

	teacher.Title = updateRequest.Title
	teacher.Bio = updateRequest.Bio
	if updateRequest.HourlyRate > 0 {
		teacher.HourlyRate = updateRequest.HourlyRate
	}
	if updateRequest.Subjects != nil {
		teacher.Subjects = updateRequest.Subjects
	}

	if err := h.db.Save(&teacher).Error; err != nil {
		http.Error(w, "Error updating teacher", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Teacher updated successfully",
		"teacher": teacher,
	})
}

// SearchTeachers allows searching teachers by free text across title, bio and
// subjects.
func (h *TeacherHandler) SearchTeachers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	verified := r.URL.Query().Get("verified")
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize := 10

	dbQuery := h.db.Model(&models.TeacherProfile{}).Preload("User")

	if query != "" {
		searchQuery := "%" + query + "%"
		dbQuery = dbQuery.Where(
			"title ILIKE ? OR bio ILIKE ? OR array_to_string(subjects, ',') ILIKE ?",
			searchQuery, searchQuery, searchQuery,
		)
	}

	if verified != "" {
		isVerified, _ := strconv.ParseBool(verified)
		dbQuery = dbQuery.Where("verified = ?", isVerified)
	}

	var total int64
	dbQuery.Count(&total)

	var teachers []models.TeacherProfile
	result := dbQuery.Offset((page - 1) * pageSize).Limit(pageSize).Find(&teachers)
	if result.Error != nil {
		http.Error(w, "Error searching teachers", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"teachers":    teachers,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
		"total_pages": (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

func (h *TeacherHandler) GetTeacherReviews(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	teacherID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid teacher ID", http.StatusBadRequest)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize := 20

	query := h.db.Model(&models.Review{}).
		Where("teacher_profile_id = ?", teacherID).
		Preload("Student")

	var total int64
	query.Count(&total)

	var reviews []models.Review
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).
		Order("created_at DESC").Find(&reviews).Error; err != nil {
		http.Error(w, "Error retrieving reviews", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"reviews":     reviews,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
		"total_pages": (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

// UploadCertification attaches a certification document to the caller's own
// teacher profile.
func (h *TeacherHandler) UploadCertification(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	teacherID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid teacher ID", http.StatusBadRequest)
		return
	}

	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var teacher models.TeacherProfile
	if result := h.db.First(&teacher, teacherID); result.Error != nil {
		http.Error(w, "Teacher not found", http.StatusNotFound)
		return
	}
	if teacher.UserID != userID {
		http.Error(w, "Not your teacher profile", http.StatusForbidden)
		return
	}

	if err := r.ParseMultipartForm(utils.MaxImageSize); err != nil {
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("certification")
	if err != nil {
		http.Error(w, "Certification file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	fileName, filePath, err := utils.SaveCertification(file, header)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	certification := models.CertificationFile{
		TeacherProfileID: teacher.ID,
		FileName:         fileName,
		FilePath:         filePath,
	}
	if err := h.db.Create(&certification).Error; err != nil {
		http.Error(w, "Error saving certification", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(certification)
}

// SubmitApplication files a teacher application for the authenticated user.
func (h *TeacherHandler) SubmitApplication(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var applicationRequest struct {
		Title      string   `json:"title"`
		Bio        string   `json:"bio"`
		HourlyRate float64  `json:"hourly_rate"`
		Subjects   []string `json:"subjects"`
	}
	if err := json.NewDecoder(r.Body).Decode(&applicationRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if applicationRequest.Title == "" {
		http.Error(w, "Title is required", http.StatusBadRequest)
		return
	}

	var existing models.TeacherApplication
	if err := h.db.Where("user_id = ? AND status = ?", userID, models.ApplicationPending).
		First(&existing).Error; err == nil {
		http.Error(w, "You already have a pending application", http.StatusConflict)
		return
	}

	application := models.TeacherApplication{
		UserID:     userID,
		Title:      applicationRequest.Title,
		Bio:        applicationRequest.Bio,
		HourlyRate: applicationRequest.HourlyRate,
		Subjects:   applicationRequest.Subjects,
		Status:     models.ApplicationPending,
	}

	if err := h.db.Create(&application).Error; err != nil {
		http.Error(w, "Error creating application", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(application)
}

func (h *TeacherHandler) GetApplications(w http.ResponseWriter, r *http.Request) {
	if !h.callerIsAdmin(r) {
		http.Error(w, "Admin access required", http.StatusForbidden)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize := 20

	query := h.db.Model(&models.TeacherApplication{}).Preload("User")

	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	query.Count(&total)

	var applications []models.TeacherApplication
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).
		Order("created_at ASC").Find(&applications).Error; err != nil {
		http.Error(w, "Error retrieving applications", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"applications": applications,
		"total":        total,
		"page":         page,
		"page_size":    pageSize,
		"total_pages":  (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

func (h *TeacherHandler) GetApplication(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	applicationID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid application ID", http.StatusBadRequest)
		return
	}

	var application models.TeacherApplication
	if err := h.db.Preload("User").First(&application, applicationID).Error; err != nil {
		http.Error(w, "Application not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(application)
}

// ReviewApplication lets an admin approve or reject a pending application.
// Approval creates the teacher profile (or verifies an existing one).
func (h *TeacherHandler) ReviewApplication(w http.ResponseWriter, r *http.Request) {
	adminID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if !h.callerIsAdmin(r) {
		http.Error(w, "Admin access required", http.StatusForbidden)
		return
	}

	vars := mux.Vars(r)
	applicationID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid application ID", http.StatusBadRequest)
		return
	}

	var reviewRequest struct {
		Approve bool   `json:"approve"`
		Note    string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&reviewRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	tx := h.db.Begin()

	var application models.TeacherApplication
	if err := tx.First(&application, applicationID).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Application not found", http.StatusNotFound)
		return
	}

	if application.Status != models.ApplicationPending {
		tx.Rollback()
		http.Error(w, "Application already reviewed", http.StatusConflict)
		return
	}

	application.ReviewNote = reviewRequest.Note
	application.ReviewedBy = adminID

	if !reviewRequest.Approve {
		application.Status = models.ApplicationRejected
		if err := tx.Save(&application).Error; err != nil {
			tx.Rollback()
			http.Error(w, "Error updating application", http.StatusInternalServerError)
			return
		}
		if err := tx.Commit().Error; err != nil {
			http.Error(w, "Error completing review", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(application)
		return
	}

	application.Status = models.ApplicationApproved
	if err := tx.Save(&application).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error updating application", http.StatusInternalServerError)
		return
	}

	var profile models.TeacherProfile
	result := tx.Where("user_id = ?", application.UserID).First(&profile)
	switch {
	case result.Error == nil:
		profile.Title = application.Title
		profile.Bio = application.Bio
		profile.HourlyRate = application.HourlyRate
		profile.Subjects = application.Subjects
		profile.Verified = true
		if err := tx.Save(&profile).Error; err != nil {
			tx.Rollback()
			http.Error(w, "Error updating teacher profile", http.StatusInternalServerError)
			return
		}
	case errors.Is(result.Error, gorm.ErrRecordNotFound):
		profile = models.TeacherProfile{
			UserID:     application.UserID,
			Title:      application.Title,
			Bio:        application.Bio,
			HourlyRate: application.HourlyRate,
			Subjects:   application.Subjects,
			Verified:   true,
		}
		if err := tx.Create(&profile).Error; err != nil {
			tx.Rollback()
			http.Error(w, "Error creating teacher profile", http.StatusInternalServerError)
			return
		}
	default:
		tx.Rollback()
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	if err := tx.Model(&models.User{}).Where("id = ?", application.UserID).
		Update("role", models.RoleTeacher).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error updating user role", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit().Error; err != nil {
		http.Error(w, "Error completing review", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"application":        application,
		"teacher_profile_id": profile.ID,
	})
}

func (h *TeacherHandler) callerIsAdmin(r *http.Request) bool {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		return false
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		return false
	}
	return user.Role == models.RoleAdmin
}
