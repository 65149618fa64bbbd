package models

import (
	"time"

	"gorm.io/gorm"
)

// Schedule is a discrete teaching availability window owned by a teacher
// profile. Status moves available -> booked when a booking claims the slot;
// cancellation moves it back.
type Schedule struct {
	gorm.Model
	TeacherProfileID uint      `gorm:"column:teacher_profile_id;not null;index" json:"teacher_profile_id"`
	Date             time.Time `gorm:"column:date;not null" json:"date"`
	StartTime        time.Time `gorm:"column:start_time;not null" json:"start_time"`
	EndTime          time.Time `gorm:"column:end_time;not null" json:"end_time"`
	Status           string    `gorm:"column:status;size:20;not null;default:available" json:"status"`

	TeacherProfile *TeacherProfile `gorm:"foreignKey:TeacherProfileID" json:"-"`
}

func (Schedule) TableName() string {
	return "schedules"
}

const (
	SlotAvailable   = "available"
	SlotBooked      = "booked"
	SlotUnavailable = "unavailable"
)
