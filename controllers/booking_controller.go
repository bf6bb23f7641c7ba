package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"hotel-booking-api/services"
	"hotel-booking-api/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CreateBookingRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	Name     string `json:"name" binding:"required"`
	RoomType string `json:"room_type" binding:"required"`
	CheckIn  string `json:"check_in" binding:"required"`
	CheckOut string `json:"check_out" binding:"required"`
}

type BookingController struct {
	BookingSvc      *services.BookingService
	AvailabilitySvc *services.AvailabilityService
	Logger          *zap.Logger
}

func NewBookingController(bookingSvc *services.BookingService, availabilitySvc *services.AvailabilityService, logger *zap.Logger) *BookingController {
	return &BookingController{
		BookingSvc:      bookingSvc,
		AvailabilitySvc: availabilitySvc,
		Logger:          logger,
	}
}

func parseIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "error.invalidBookingId", "message": "Booking id must be numeric"},
		})
		return 0, false
	}
	return uint(id), true
}

func (ctrl *BookingController) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "error.invalidPayload", "message": "Invalid booking payload", "details": err.Error()},
		})
		return
	}

	result, err := ctrl.BookingSvc.Create(req.UserID, req.Name, req.RoomType, req.CheckIn, req.CheckOut)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidEmail):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": gin.H{"code": "error.invalidEmail", "message": "Invalid email format."},
			})
		case errors.Is(err, services.ErrInvalidDate):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": gin.H{"code": "error.invalidDate", "message": "Dates must be YYYY-MM-DD"},
			})
		default:
			ctrl.Logger.Error("create booking failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": gin.H{"code": "error.createBooking", "message": "Failed to create booking"},
			})
		}
		return
	}

	// Capacity exhaustion is a soft decline carrying current availability,
	// not an error.
	if result.Declined {
		c.JSON(http.StatusOK, gin.H{
			"message":         result.Message,
			"available_rooms": result.Availability,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Booking request submitted!",
		"booking": result.Booking,
	})
}

func (ctrl *BookingController) GetBookings(c *gin.Context) {
	bookings, err := ctrl.BookingSvc.List()
	if err != nil {
		ctrl.Logger.Error("list bookings failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{"code": "error.listBookings", "message": "Failed to list bookings"},
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

func (ctrl *BookingController) GetBooking(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	booking, err := ctrl.BookingSvc.GetByID(id)
	if err != nil {
		if errors.Is(err, services.ErrBookingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": gin.H{"code": "error.bookingNotFound", "message": "Booking not found"},
			})
			return
		}
		ctrl.Logger.Error("get booking failed", zap.Uint("booking_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{"code": "error.getBooking", "message": "Failed to load booking"},
		})
		return
	}
	utils.JSONSuccess(c, http.StatusOK, booking)
}

func (ctrl *BookingController) UpdateBookingStatus(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	status := c.Query("status")

	_, err := ctrl.BookingSvc.UpdateStatus(id, status)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnrecognizedStatus):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": gin.H{"code": "error.unrecognizedStatus", "message": "Status must be pending, confirmed or rejected"},
			})
		case errors.Is(err, services.ErrBookingNotFound):
			// Absent bookings get a normal response, not an error.
			c.JSON(http.StatusOK, gin.H{"message": "Booking not found"})
		default:
			ctrl.Logger.Error("update booking status failed", zap.Uint("booking_id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": gin.H{"code": "error.updateStatus", "message": "Failed to update booking status"},
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Booking marked as " + status})
}

func (ctrl *BookingController) DeleteBooking(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := ctrl.BookingSvc.Delete(id); err != nil {
		ctrl.Logger.Error("delete booking failed", zap.Uint("booking_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{"code": "error.deleteBooking", "message": "Failed to delete booking"},
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Booking deleted"})
}

func (ctrl *BookingController) CheckAvailability(c *gin.Context) {
	checkIn := c.Query("check_in")
	checkOut := c.Query("check_out")
	roomType := c.Query("room_type")

	if checkIn == "" || checkOut == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "error.missingDates", "message": "check_in and check_out are required"},
		})
		return
	}

	availability, err := ctrl.AvailabilitySvc.CheckAvailability(checkIn, checkOut, roomType)
	if err != nil {
		if errors.Is(err, services.ErrInvalidDate) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": gin.H{"code": "error.invalidDate", "message": "Dates must be YYYY-MM-DD"},
			})
			return
		}
		ctrl.Logger.Error("availability check failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{"code": "error.availability", "message": "Failed to compute availability"},
		})
		return
	}

	c.JSON(http.StatusOK, availability)
}
