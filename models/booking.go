package models

import (
	"time"

	"gorm.io/gorm"
)

// Booking statuses. UpdateStatus only accepts members of this set.
const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusRejected  = "rejected"
)

// Payment statuses carried on the booking row.
const (
	PaymentStatusInit    = "init"
	PaymentStatusCreated = "created"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

// Room types with fixed inventory.
const (
	RoomTypeStandard = "Standard"
	RoomTypeDeluxe   = "Deluxe"
	RoomTypeSuite    = "Suite"
)

type Booking struct {
	ID uint `gorm:"primaryKey" json:"id"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// UserID is the requester's email address.
	UserID        string `gorm:"column:user_id;size:255;index" json:"user_id"`
	Name          string `gorm:"column:name;size:255" json:"name"`
	RoomType      string `gorm:"column:room_type;size:64;index" json:"room_type"`
	CheckIn       string `gorm:"column:check_in;size:10" json:"check_in"`
	CheckOut      string `gorm:"column:check_out;size:10" json:"check_out"`
	Confirmation  string `gorm:"column:confirmation;size:512" json:"confirmation,omitempty"`
	ReferenceCode string `gorm:"column:reference_code;size:64" json:"reference_code,omitempty"`
	Status        string `gorm:"column:status;size:32;index" json:"status"`

	AmountPaise    int64  `gorm:"column:amount_paise" json:"amount_paise"`
	Currency       string `gorm:"column:currency;size:8" json:"currency"`
	PaymentStatus  string `gorm:"column:payment_status;size:32" json:"payment_status"`
	PaymentOrderID string `gorm:"column:payment_order_id;size:64;index" json:"payment_order_id,omitempty"`
	PaymentID      string `gorm:"column:payment_id;size:64" json:"payment_id,omitempty"`
}
