package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	FullName              string    `gorm:"column:full_name;size:255;not null" json:"full_name"`
	Email                 string    `gorm:"column:email;size:255;not null" json:"email"`
	PasswordHash          string    `gorm:"column:password_hash;size:255;not null" json:"-"`
	Role                  string    `gorm:"column:role;size:50;not null" json:"role"`
	Phone                 string    `gorm:"column:phone;size:20" json:"phone"`
	EmailVerified         bool      `gorm:"column:email_verified;default:false" json:"email_verified"`
	Status                string    `gorm:"column:status;size:50;not null;default:active" json:"status"`
	Refresh               string    `gorm:"column:refresh_token;size:255" json:"-"`
	RefreshTokenExpiredAt time.Time `gorm:"column:refresh_token_expired_at" json:"-"`
	AvatarPath            string    `gorm:"column:avatar_path;size:255" json:"avatar_path"`
	EmailVerificationCode string    `gorm:"size:6" json:"-"`
	VerificationExpiry    time.Time `json:"-"`

	TeacherProfile *TeacherProfile `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"teacher_profile,omitempty"`
}

const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

type TeacherProfile struct {
	gorm.Model
	UserID        uint           `gorm:"column:user_id;not null" json:"user_id"`
	Title         string         `gorm:"column:title;size:255" json:"title"`
	Bio           string         `gorm:"column:bio;type:text" json:"bio"`
	HourlyRate    float64        `gorm:"column:hourly_rate;not null;default:0" json:"hourly_rate"`
	Verified      bool           `gorm:"column:verified;default:false" json:"verified"`
	AverageRating float64        `gorm:"column:average_rating;default:0" json:"average_rating"`
	TotalRatings  int            `gorm:"column:total_ratings;default:0" json:"total_ratings"`
	Subjects      pq.StringArray `gorm:"type:text[];column:subjects" json:"subjects,omitempty"`

	CertificationFiles []CertificationFile `gorm:"foreignKey:TeacherProfileID;constraint:OnDelete:CASCADE;" json:"certification_files"`
	User               *User               `gorm:"foreignKey:UserID" json:"-"`
	Reviews            []Review            `gorm:"foreignKey:TeacherProfileID" json:"reviews,omitempty"`
}

func (TeacherProfile) TableName() string {
	return "teacher_profiles"
}

type CertificationFile struct {
	gorm.Model
	TeacherProfileID uint   `gorm:"column:teacher_profile_id;not null" json:"teacher_profile_id"`
	FileName         string `gorm:"column:file_name;size:255" json:"file_name"`
	FilePath         string `gorm:"column:file_path;size:500;not null" json:"file_path"`
}

// TeacherApplication is the request a user files to become a (verified) teacher.
// Admins review it; approval creates or verifies the teacher profile.
type TeacherApplication struct {
	gorm.Model
	UserID     uint           `gorm:"column:user_id;not null" json:"user_id"`
	Title      string         `gorm:"column:title;size:255" json:"title"`
	Bio        string         `gorm:"column:bio;type:text" json:"bio"`
	HourlyRate float64        `gorm:"column:hourly_rate;not null;default:0" json:"hourly_rate"`
	Subjects   pq.StringArray `gorm:"type:text[];column:subjects" json:"subjects,omitempty"`
	Status     string         `gorm:"column:status;size:20;not null;default:pending" json:"status"`
	ReviewNote string         `gorm:"column:review_note;type:text" json:"review_note,omitempty"`
	ReviewedBy uint           `gorm:"column:reviewed_by" json:"reviewed_by,omitempty"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

const (
	ApplicationPending  = "pending"
	ApplicationApproved = "approved"
	ApplicationRejected = "rejected"
)

type Review struct {
	gorm.Model
	StudentID        uint   `gorm:"column:student_id;not null" json:"student_id"`
	TeacherProfileID uint   `gorm:"column:teacher_profile_id;not null" json:"teacher_profile_id"`
	BookingID        uint   `gorm:"column:booking_id;not null;uniqueIndex" json:"booking_id"`
	Rating           int    `gorm:"column:rating;not null" json:"rating"`
	Comment          string `gorm:"column:comment;type:text" json:"comment"`

	Student        *User           `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	TeacherProfile *TeacherProfile `gorm:"foreignKey:TeacherProfileID" json:"teacher_profile,omitempty"`
}

type PasswordResetToken struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null"`
	Token     string    `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null"`
}
