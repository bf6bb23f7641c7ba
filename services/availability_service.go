package services

import (
	"errors"
	"fmt"

	"hotel-booking-api/models"
	"hotel-booking-api/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidDate = errors.New("invalid_date")

// AvailabilityService answers how many rooms of each type remain free for a
// date range, counting against the configured per-type inventory. Only
// confirmed bookings consume inventory.
type AvailabilityService struct {
	DB        *gorm.DB
	Inventory map[string]int
	logger    *zap.Logger
}

func NewAvailabilityService(db *gorm.DB, inventory map[string]int, logger *zap.Logger) *AvailabilityService {
	return &AvailabilityService{DB: db, Inventory: inventory, logger: logger}
}

// overlaps reports whether a stored booking collides with the query range.
// Boundary rules: a query ending exactly on a stored check-in does not
// overlap; a query starting on the stored check-out date does. ISO dates
// order lexicographically, so plain string comparison is date comparison.
func overlaps(checkIn, checkOut string, b *models.Booking) bool {
	return !(checkOut <= b.CheckIn || checkIn > b.CheckOut)
}

func validateRange(checkIn, checkOut string) error {
	if _, err := utils.ParseDate(checkIn); err != nil {
		return ErrInvalidDate
	}
	if _, err := utils.ParseDate(checkOut); err != nil {
		return ErrInvalidDate
	}
	return nil
}

// CheckAvailability returns room type -> remaining count for the range. With
// a roomType filter it returns a singleton map; an unknown type maps to 0.
// Pure read, no side effects.
func (s *AvailabilityService) CheckAvailability(checkIn, checkOut, roomType string) (map[string]int, error) {
	if err := validateRange(checkIn, checkOut); err != nil {
		return nil, err
	}

	var confirmed []models.Booking
	if err := s.DB.Where("status = ?", models.BookingStatusConfirmed).Find(&confirmed).Error; err != nil {
		return nil, fmt.Errorf("failed to load confirmed bookings: %w", err)
	}

	counts := make(map[string]int, len(s.Inventory))
	for rt, total := range s.Inventory {
		counts[rt] = total
	}

	for i := range confirmed {
		b := &confirmed[i]
		if !overlaps(checkIn, checkOut, b) {
			continue
		}
		if remaining, ok := counts[b.RoomType]; ok && remaining > 0 {
			counts[b.RoomType] = remaining - 1
		}
	}

	s.logger.Info("availability computed",
		zap.String("check_in", checkIn),
		zap.String("check_out", checkOut),
		zap.Int("confirmed_bookings", len(confirmed)),
	)

	if roomType != "" {
		return map[string]int{roomType: counts[roomType]}, nil
	}
	return counts, nil
}

// CanAdmit reports whether a new booking of roomType fits under the inventory
// limit for the range. Unknown room types have capacity 0. This is a
// read-then-write admission check with no isolation: two concurrent creates
// racing for the last room can both be admitted.
func (s *AvailabilityService) CanAdmit(roomType, checkIn, checkOut string) (bool, error) {
	if err := validateRange(checkIn, checkOut); err != nil {
		return false, err
	}

	var confirmed []models.Booking
	err := s.DB.
		Where("room_type = ? AND status = ?", roomType, models.BookingStatusConfirmed).
		Find(&confirmed).Error
	if err != nil {
		return false, fmt.Errorf("failed to load confirmed bookings: %w", err)
	}

	overlapCount := 0
	for i := range confirmed {
		if overlaps(checkIn, checkOut, &confirmed[i]) {
			overlapCount++
		}
	}

	limit := s.Inventory[roomType]
	return overlapCount < limit, nil
}
