package services

import (
	"hotel-booking-api/models"
	"hotel-booking-api/utils"
)

// RateCard computes the total charge for a stay from per-night base rates in
// minor currency units (paise).
type RateCard struct {
	Nightly  map[string]int64
	Currency string
}

// Price returns baseRate(roomType) * nights. Unknown room types are charged
// at the Standard rate; unparseable dates count as a single night.
func (r RateCard) Price(roomType, checkIn, checkOut string) int64 {
	rate, ok := r.Nightly[roomType]
	if !ok {
		rate = r.Nightly[models.RoomTypeStandard]
	}
	return rate * int64(utils.Nights(checkIn, checkOut))
}
