package models

import (
	"gorm.io/gorm"
)

// Booking is a student's claim on either a schedule slot or a course.
// Exactly one of ScheduleID/CourseID is set; the handler rejects requests
// that set both or neither before touching the database.
type Booking struct {
	gorm.Model
	StudentID        uint    `gorm:"column:student_id;not null;index" json:"student_id"`
	TeacherProfileID uint    `gorm:"column:teacher_profile_id;not null;index" json:"teacher_profile_id"`
	ScheduleID       *uint   `gorm:"column:schedule_id" json:"schedule_id,omitempty"`
	CourseID         *uint   `gorm:"column:course_id" json:"course_id,omitempty"`
	Amount           float64 `gorm:"column:amount;not null" json:"amount"`
	Status           string  `gorm:"column:status;size:20;not null;default:pending" json:"status"`
	PaymentStatus    string  `gorm:"column:payment_status;size:20;not null;default:unpaid" json:"payment_status"`
	PaymentRef       string  `gorm:"column:payment_ref;size:255" json:"payment_ref,omitempty"`

	Student        *User           `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	TeacherProfile *TeacherProfile `gorm:"foreignKey:TeacherProfileID" json:"teacher_profile,omitempty"`
	Schedule       *Schedule       `gorm:"foreignKey:ScheduleID" json:"schedule,omitempty"`
	Course         *Course         `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}

const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
	BookingCompleted = "completed"
)
