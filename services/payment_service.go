package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"hotel-booking-api/models"

	mysqldrv "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrPaymentAlreadyInitiated = errors.New("payment_already_initiated")
	ErrInvalidAmount           = errors.New("invalid_amount")
	ErrInvalidSignature        = errors.New("invalid_signature")
)

// PaymentService drives the payment reconciliation state machine:
// init -> created -> paid, with created -> failed -> created as the retry
// path. Every gateway interaction appends a ledger row.
type PaymentService struct {
	DB      *gorm.DB
	Gateway PaymentGateway
	Mailer  Mailer

	KeyID         string
	KeySecret     string
	WebhookSecret string

	logger *zap.Logger
}

func NewPaymentService(db *gorm.DB, gateway PaymentGateway, mailer Mailer, keyID, keySecret, webhookSecret string, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		DB:            db,
		Gateway:       gateway,
		Mailer:        mailer,
		KeyID:         keyID,
		KeySecret:     keySecret,
		WebhookSecret: webhookSecret,
		logger:        logger,
	}
}

// CreateOrderResult carries what a client needs to start the checkout: the
// public key id and the gateway's order object.
type CreateOrderResult struct {
	KeyID string                 `json:"key_id"`
	Order map[string]interface{} `json:"order"`
}

// CreateOrder opens a gateway order for a booking whose payment is in
// init/failed, records the order id on the booking and appends a ledger row.
func (s *PaymentService) CreateOrder(bookingID uint) (*CreateOrderResult, error) {
	var booking models.Booking
	if err := s.DB.First(&booking, bookingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}

	if booking.PaymentStatus != models.PaymentStatusInit && booking.PaymentStatus != models.PaymentStatusFailed {
		return nil, ErrPaymentAlreadyInitiated
	}
	if booking.AmountPaise <= 0 {
		return nil, ErrInvalidAmount
	}

	currency := booking.Currency
	if currency == "" {
		currency = "INR"
	}

	receipt := "bk_" + strconv.FormatUint(uint64(bookingID), 10)
	order, err := s.Gateway.CreateOrder(booking.AmountPaise, currency, receipt)
	if err != nil {
		return nil, fmt.Errorf("gateway order creation failed: %w", err)
	}
	orderID, _ := order["id"].(string)
	if orderID == "" {
		return nil, fmt.Errorf("gateway order response missing id")
	}

	err = s.DB.Model(&booking).Updates(map[string]interface{}{
		"payment_order_id": orderID,
		"payment_status":   models.PaymentStatusCreated,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to record order on booking: %w", err)
	}

	rawOrder, _ := json.Marshal(order)
	s.appendLedger(&models.Payment{
		BookingID:   &booking.ID,
		OrderID:     orderID,
		Status:      models.LedgerStatusCreated,
		AmountPaise: booking.AmountPaise,
		Currency:    currency,
		RawPayload:  datatypes.JSON(rawOrder),
	})

	s.logger.Info("payment order created",
		zap.Uint("booking_id", bookingID),
		zap.String("order_id", orderID),
		zap.Int64("amount_paise", booking.AmountPaise),
	)
	return &CreateOrderResult{KeyID: s.KeyID, Order: order}, nil
}

// VerifyPayment checks the client-submitted capture signature. A valid
// signature marks the booking paid AND confirmed in one step; an invalid one
// only appends a failed ledger row and never touches the booking. Verifying
// an already-paid booking is a no-op.
func (s *PaymentService) VerifyPayment(orderID, paymentID, signature string) error {
	expected := hmacHex(s.KeySecret, []byte(orderID+"|"+paymentID))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		raw, _ := json.Marshal(map[string]string{
			"razorpay_order_id":   orderID,
			"razorpay_payment_id": paymentID,
			"razorpay_signature":  signature,
		})
		s.appendLedger(&models.Payment{
			OrderID:    orderID,
			PaymentID:  paymentID,
			Signature:  signature,
			Status:     models.LedgerStatusFailed,
			Currency:   "INR",
			RawPayload: datatypes.JSON(raw),
		})
		s.logger.Warn("payment signature mismatch", zap.String("order_id", orderID))
		return ErrInvalidSignature
	}

	var booking models.Booking
	if err := s.DB.Where("payment_order_id = ?", orderID).First(&booking).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBookingNotFound
		}
		return fmt.Errorf("failed to load booking for order: %w", err)
	}

	if booking.PaymentStatus == models.PaymentStatusPaid {
		s.logger.Info("duplicate verification for paid booking, skipping",
			zap.Uint("booking_id", booking.ID), zap.String("order_id", orderID))
		return nil
	}

	err := s.DB.Model(&booking).Updates(map[string]interface{}{
		"payment_status": models.PaymentStatusPaid,
		"payment_id":     paymentID,
		"status":         models.BookingStatusConfirmed,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to mark booking paid: %w", err)
	}
	booking.Status = models.BookingStatusConfirmed

	if err := s.Mailer.Send(booking.UserID, "Booking Confirmed", confirmedEmailBody(&booking)); err != nil {
		s.logger.Warn("confirmation email failed",
			zap.Uint("booking_id", booking.ID), zap.Error(err))
	}

	raw, _ := json.Marshal(map[string]string{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": paymentID,
		"razorpay_signature":  signature,
	})
	s.appendLedger(&models.Payment{
		BookingID:   &booking.ID,
		OrderID:     orderID,
		PaymentID:   paymentID,
		Signature:   signature,
		Status:      models.LedgerStatusCaptured,
		AmountPaise: booking.AmountPaise,
		Currency:    booking.Currency,
		RawPayload:  datatypes.JSON(raw),
	})

	s.logger.Info("payment verified, booking confirmed",
		zap.Uint("booking_id", booking.ID), zap.String("payment_id", paymentID))
	return nil
}

type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID       string `json:"id"`
				OrderID  string `json:"order_id"`
				Amount   int64  `json:"amount"`
				Currency string `json:"currency"`
			} `json:"entity"`
		} `json:"payment"`
		Refund struct {
			Entity struct {
				ID        string `json:"id"`
				PaymentID string `json:"payment_id"`
				Amount    int64  `json:"amount"`
				Currency  string `json:"currency"`
			} `json:"entity"`
		} `json:"refund"`
	} `json:"payload"`
}

// HandleWebhook authenticates the raw body against the webhook secret and
// applies the same state transitions as VerifyPayment, keyed by event type.
// Duplicate deliveries collapse on the ledger's unique attempt key and the
// already-paid short-circuit.
func (s *PaymentService) HandleWebhook(body []byte, signature string) error {
	expected := hmacHex(s.WebhookSecret, body)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		s.logger.Warn("webhook signature mismatch")
		return ErrInvalidSignature
	}

	var evt webhookEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return fmt.Errorf("failed to parse webhook event: %w", err)
	}

	switch evt.Event {
	case "payment.captured":
		return s.webhookCaptured(&evt, body)
	case "payment.failed":
		return s.webhookFailed(&evt, body)
	case "refund.processed":
		return s.webhookRefunded(&evt, body)
	default:
		s.logger.Info("unhandled webhook event type", zap.String("event", evt.Event))
		return nil
	}
}

func (s *PaymentService) webhookCaptured(evt *webhookEvent, body []byte) error {
	p := evt.Payload.Payment.Entity

	var booking models.Booking
	err := s.DB.Where("payment_order_id = ?", p.OrderID).First(&booking).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to load booking for order: %w", err)
		}
		s.logger.Warn("capture webhook for unknown order", zap.String("order_id", p.OrderID))
		return s.appendLedger(&models.Payment{
			OrderID:     p.OrderID,
			PaymentID:   p.ID,
			Status:      models.LedgerStatusCaptured,
			AmountPaise: p.Amount,
			Currency:    p.Currency,
			RawPayload:  datatypes.JSON(body),
		})
	}

	if booking.PaymentStatus != models.PaymentStatusPaid {
		err := s.DB.Model(&booking).Updates(map[string]interface{}{
			"payment_status": models.PaymentStatusPaid,
			"payment_id":     p.ID,
			"status":         models.BookingStatusConfirmed,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to mark booking paid: %w", err)
		}
		booking.Status = models.BookingStatusConfirmed

		if err := s.Mailer.Send(booking.UserID, "Booking Confirmed", confirmedEmailBody(&booking)); err != nil {
			s.logger.Warn("confirmation email failed",
				zap.Uint("booking_id", booking.ID), zap.Error(err))
		}
		s.logger.Info("booking confirmed via capture webhook",
			zap.Uint("booking_id", booking.ID), zap.String("payment_id", p.ID))
	}

	return s.appendLedger(&models.Payment{
		BookingID:   &booking.ID,
		OrderID:     p.OrderID,
		PaymentID:   p.ID,
		Status:      models.LedgerStatusCaptured,
		AmountPaise: p.Amount,
		Currency:    p.Currency,
		RawPayload:  datatypes.JSON(body),
	})
}

func (s *PaymentService) webhookFailed(evt *webhookEvent, body []byte) error {
	p := evt.Payload.Payment.Entity

	ledger := models.Payment{
		OrderID:     p.OrderID,
		PaymentID:   p.ID,
		Status:      models.LedgerStatusFailed,
		AmountPaise: p.Amount,
		Currency:    p.Currency,
		RawPayload:  datatypes.JSON(body),
	}

	var booking models.Booking
	err := s.DB.Where("payment_order_id = ?", p.OrderID).First(&booking).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to load booking for order: %w", err)
		}
		return s.appendLedger(&ledger)
	}

	// A failure event never demotes a captured payment; CreateOrder stays
	// open for retry from the failed state.
	if booking.PaymentStatus != models.PaymentStatusPaid {
		err := s.DB.Model(&booking).Update("payment_status", models.PaymentStatusFailed).Error
		if err != nil {
			return fmt.Errorf("failed to mark payment failed: %w", err)
		}
		s.logger.Info("payment marked failed via webhook",
			zap.Uint("booking_id", booking.ID), zap.String("order_id", p.OrderID))
	}

	ledger.BookingID = &booking.ID
	return s.appendLedger(&ledger)
}

func (s *PaymentService) webhookRefunded(evt *webhookEvent, body []byte) error {
	r := evt.Payload.Refund.Entity

	ledger := models.Payment{
		PaymentID:   r.ID,
		Status:      models.LedgerStatusRefunded,
		AmountPaise: r.Amount,
		Currency:    r.Currency,
		RawPayload:  datatypes.JSON(body),
	}

	var booking models.Booking
	err := s.DB.Where("payment_id = ?", r.PaymentID).First(&booking).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to load booking for refund: %w", err)
		}
		s.logger.Warn("refund webhook for unknown payment", zap.String("payment_id", r.PaymentID))
		return s.appendLedger(&ledger)
	}

	// Refund releases the room: payment drops back to failed, booking is
	// rejected.
	err = s.DB.Model(&booking).Updates(map[string]interface{}{
		"payment_status": models.PaymentStatusFailed,
		"status":         models.BookingStatusRejected,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to apply refund to booking: %w", err)
	}
	s.logger.Info("booking rejected via refund webhook",
		zap.Uint("booking_id", booking.ID), zap.String("refund_id", r.ID))

	ledger.BookingID = &booking.ID
	ledger.OrderID = booking.PaymentOrderID
	return s.appendLedger(&ledger)
}

// ListForBooking returns the ledger rows for one booking, oldest first.
func (s *PaymentService) ListForBooking(bookingID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.DB.Where("booking_id = ?", bookingID).Order("created_at ASC").Find(&payments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

// appendLedger inserts a ledger row. A duplicate-key error means the same
// attempt was already recorded (e.g. a redelivered webhook) and is not a
// failure.
func (s *PaymentService) appendLedger(p *models.Payment) error {
	err := s.DB.Create(p).Error
	if err == nil {
		return nil
	}
	var me *mysqldrv.MySQLError
	if errors.As(err, &me) && me.Number == 1062 {
		s.logger.Info("duplicate ledger entry skipped",
			zap.String("order_id", p.OrderID),
			zap.String("payment_id", p.PaymentID),
			zap.String("status", p.Status),
		)
		return nil
	}
	s.logger.Error("failed to append ledger entry",
		zap.String("order_id", p.OrderID), zap.Error(err))
	return err
}

func hmacHex(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
