package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"hotel-booking-api/models"
)

// Settings holds the process configuration resolved from the environment.
// Room inventory and nightly rates are explicit configuration rather than
// hidden module state so deployments (and tests) can tune them.
type Settings struct {
	// RoomInventory maps room type -> total number of rooms.
	RoomInventory map[string]int
	// NightlyRates maps room type -> price per night in paise.
	NightlyRates map[string]int64
	Currency     string

	RazorpayKeyID         string
	RazorpayKeySecret     string
	RazorpayWebhookSecret string
}

func EnvOrDefault(key, def string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	return value
}

func envIntOrDefault(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func envInt64OrDefault(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// LoadSettings resolves settings from the environment. The Razorpay key pair
// is required; everything else falls back to defaults.
func LoadSettings() (*Settings, error) {
	keyID := strings.TrimSpace(os.Getenv("RAZORPAY_KEY_ID"))
	keySecret := strings.TrimSpace(os.Getenv("RAZORPAY_KEY_SECRET"))
	if keyID == "" || keySecret == "" {
		return nil, fmt.Errorf("RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET must be set")
	}

	return &Settings{
		RoomInventory: map[string]int{
			models.RoomTypeStandard: envIntOrDefault("ROOM_CAPACITY_STANDARD", 30),
			models.RoomTypeDeluxe:   envIntOrDefault("ROOM_CAPACITY_DELUXE", 10),
			models.RoomTypeSuite:    envIntOrDefault("ROOM_CAPACITY_SUITE", 20),
		},
		NightlyRates: map[string]int64{
			models.RoomTypeStandard: envInt64OrDefault("RATE_STANDARD_PAISE", 150000),
			models.RoomTypeDeluxe:   envInt64OrDefault("RATE_DELUXE_PAISE", 250000),
			models.RoomTypeSuite:    envInt64OrDefault("RATE_SUITE_PAISE", 400000),
		},
		Currency:              EnvOrDefault("BOOKING_CURRENCY", "INR"),
		RazorpayKeyID:         keyID,
		RazorpayKeySecret:     keySecret,
		RazorpayWebhookSecret: strings.TrimSpace(os.Getenv("RAZORPAY_WEBHOOK_SECRET")),
	}, nil
}
