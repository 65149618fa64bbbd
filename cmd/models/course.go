package models

import (
	"gorm.io/gorm"
)

// Course is a multi-session bookable product, the alternative to booking a
// single schedule slot.
type Course struct {
	gorm.Model
	TeacherProfileID uint    `gorm:"column:teacher_profile_id;not null;index" json:"teacher_profile_id"`
	Title            string  `gorm:"column:title;size:255;not null" json:"title"`
	Description      string  `gorm:"column:description;type:text" json:"description"`
	Price            float64 `gorm:"column:price;not null" json:"price"`
	TotalSessions    int     `gorm:"column:total_sessions;not null;default:1" json:"total_sessions"`

	TeacherProfile *TeacherProfile `gorm:"foreignKey:TeacherProfileID" json:"-"`
}
