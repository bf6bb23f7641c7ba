package services

import (
	"errors"
	"fmt"
	"regexp"

	"hotel-booking-api/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrInvalidEmail       = errors.New("invalid_email")
	ErrBookingNotFound    = errors.New("booking_not_found")
	ErrUnrecognizedStatus = errors.New("unrecognized_status")
	ErrBookingInsertFail  = errors.New("booking_insert_failed")
)

// Mailer delivers a notification email. Failures are best-effort for every
// caller in this package.
type Mailer interface {
	Send(to, subject, htmlBody string) error
}

// exactly one @ with at least one dot after it
var emailRe = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+$`)

type BookingService struct {
	DB           *gorm.DB
	Availability *AvailabilityService
	Rates        RateCard
	Mailer       Mailer
	logger       *zap.Logger
}

func NewBookingService(db *gorm.DB, availability *AvailabilityService, rates RateCard, mailer Mailer, logger *zap.Logger) *BookingService {
	return &BookingService{
		DB:           db,
		Availability: availability,
		Rates:        rates,
		Mailer:       mailer,
		logger:       logger,
	}
}

// CreateResult is either a persisted pending booking or a soft decline
// carrying current availability. A decline is a normal response, not an
// error.
type CreateResult struct {
	Booking      *models.Booking
	Declined     bool
	Message      string
	Availability map[string]int
}

func (s *BookingService) Create(userID, name, roomType, checkIn, checkOut string) (*CreateResult, error) {
	if !emailRe.MatchString(userID) {
		return nil, ErrInvalidEmail
	}

	admitted, err := s.Availability.CanAdmit(roomType, checkIn, checkOut)
	if err != nil {
		return nil, err
	}
	if !admitted {
		s.logger.Warn("booking declined, no capacity",
			zap.String("room_type", roomType),
			zap.String("check_in", checkIn),
			zap.String("check_out", checkOut),
		)
		availability, err := s.Availability.CheckAvailability(checkIn, checkOut, "")
		if err != nil {
			return nil, err
		}
		return &CreateResult{
			Declined:     true,
			Message:      fmt.Sprintf("No available %s rooms for these dates.", roomType),
			Availability: availability,
		}, nil
	}

	booking := models.Booking{
		UserID:   userID,
		Name:     name,
		RoomType: roomType,
		CheckIn:  checkIn,
		CheckOut: checkOut,
		Confirmation: fmt.Sprintf("Booking request for %s, %s room from %s to %s.",
			name, roomType, checkIn, checkOut),
		ReferenceCode: uuid.NewString(),
		Status:        models.BookingStatusPending,
		AmountPaise:   s.Rates.Price(roomType, checkIn, checkOut),
		Currency:      s.Rates.Currency,
		PaymentStatus: models.PaymentStatusInit,
	}

	if err := s.DB.Create(&booking).Error; err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}
	if booking.ID == 0 {
		return nil, ErrBookingInsertFail
	}

	s.logger.Info("booking created as pending",
		zap.Uint("booking_id", booking.ID),
		zap.String("room_type", roomType),
		zap.Int64("amount_paise", booking.AmountPaise),
	)
	return &CreateResult{Booking: &booking}, nil
}

// List returns all bookings ordered by creation time ascending.
func (s *BookingService) List() ([]models.Booking, error) {
	var bookings []models.Booking
	if err := s.DB.Order("created_at ASC").Find(&bookings).Error; err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

func (s *BookingService) GetByID(id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := s.DB.First(&booking, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	return &booking, nil
}

func validStatus(status string) bool {
	switch status {
	case models.BookingStatusPending, models.BookingStatusConfirmed, models.BookingStatusRejected:
		return true
	}
	return false
}

// UpdateStatus persists the new status, then sends the notification mail for
// confirmed/rejected. The status write always lands before the mail attempt
// so a delivery failure can never leave a notified-but-unchanged booking.
func (s *BookingService) UpdateStatus(id uint, status string) (*models.Booking, error) {
	if !validStatus(status) {
		return nil, ErrUnrecognizedStatus
	}

	booking, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	if err := s.DB.Model(booking).Update("status", status).Error; err != nil {
		return nil, fmt.Errorf("failed to update booking status: %w", err)
	}
	booking.Status = status
	s.logger.Info("booking status updated", zap.Uint("booking_id", id), zap.String("status", status))

	switch status {
	case models.BookingStatusConfirmed:
		s.notify(booking, "Booking Confirmed", confirmedEmailBody(booking))
	case models.BookingStatusRejected:
		s.notify(booking, "Booking Not Available", rejectedEmailBody(booking))
	}

	return booking, nil
}

// Delete removes the booking by id. No existence check; deleting an absent
// id is a no-op.
func (s *BookingService) Delete(id uint) error {
	if err := s.DB.Delete(&models.Booking{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	s.logger.Info("booking deleted", zap.Uint("booking_id", id))
	return nil
}

func (s *BookingService) notify(booking *models.Booking, subject, body string) {
	if err := s.Mailer.Send(booking.UserID, subject, body); err != nil {
		s.logger.Warn("notification email failed",
			zap.Uint("booking_id", booking.ID),
			zap.String("to", booking.UserID),
			zap.Error(err),
		)
	}
}

func confirmedEmailBody(b *models.Booking) string {
	return fmt.Sprintf(`
        <p>Dear %s,</p>
        <p>Your booking has been confirmed!</p>
        <p><strong>Room:</strong> %s<br>
        <strong>Dates:</strong> %s to %s<br>
        <strong>Reference:</strong> %s</p>
        `, b.Name, b.RoomType, b.CheckIn, b.CheckOut, b.ReferenceCode)
}

func rejectedEmailBody(b *models.Booking) string {
	return fmt.Sprintf(`
        <p>Dear %s,</p>
        <p>Unfortunately, we do not have availability for the requested dates.</p>
        <p>Please consider booking different dates. We apologize for the inconvenience.</p>
        `, b.Name)
}
