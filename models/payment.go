package models

import (
	"time"

	"gorm.io/datatypes"
)

// Ledger entry statuses.
const (
	LedgerStatusCreated  = "created"
	LedgerStatusCaptured = "captured"
	LedgerStatusFailed   = "failed"
	LedgerStatusRefunded = "refunded"
)

// Payment is an append-only ledger entry for one gateway interaction.
// Rows are never updated or deleted; the unique (order_id, payment_id,
// status) key makes duplicate webhook deliveries collapse into no-ops.
type Payment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	// BookingID is nil when a ledger row could not be matched to a booking.
	BookingID *uint `gorm:"column:booking_id;index" json:"booking_id,omitempty"`

	OrderID   string `gorm:"column:order_id;size:64;uniqueIndex:idx_payment_attempt,priority:1" json:"order_id"`
	PaymentID string `gorm:"column:payment_id;size:64;uniqueIndex:idx_payment_attempt,priority:2" json:"payment_id,omitempty"`
	Status    string `gorm:"column:status;size:32;uniqueIndex:idx_payment_attempt,priority:3" json:"status"`

	Signature   string         `gorm:"column:signature;size:128" json:"signature,omitempty"`
	AmountPaise int64          `gorm:"column:amount_paise" json:"amount_paise"`
	Currency    string         `gorm:"column:currency;size:8" json:"currency"`
	RawPayload  datatypes.JSON `gorm:"column:raw_payload" json:"raw_payload,omitempty"`
}
