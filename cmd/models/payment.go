package models

import (
	"gorm.io/gorm"
)

// Payment tracks the (simulated) settlement of a booking. There is no real
// gateway behind it; the reference and transaction id are generated locally.
type Payment struct {
	gorm.Model
	BookingID     uint    `gorm:"column:booking_id;not null;index" json:"booking_id"`
	Amount        float64 `gorm:"column:amount;not null" json:"amount"`
	Status        string  `gorm:"column:status;size:20;not null;default:pending" json:"status"`
	Reference     string  `gorm:"column:reference;size:255;uniqueIndex" json:"reference"`
	TransactionID string  `gorm:"column:transaction_id;size:255" json:"transaction_id,omitempty"`

	Booking *Booking `gorm:"foreignKey:BookingID" json:"booking,omitempty"`
}

const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentFailed  = "failed"

	// Booking-side payment status.
	PaymentUnpaid = "unpaid"
)

type Transaction struct {
	gorm.Model
	UserID  uint    `gorm:"column:user_id;not null" json:"user_id"`
	Amount  float64 `gorm:"column:amount;type:float;not null" json:"amount"`
	Method  string  `gorm:"column:method;type:text;not null" json:"method"`
	Purpose string  `gorm:"column:purpose;type:text;not null" json:"purpose"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
