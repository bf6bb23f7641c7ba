package controllers

import (
	"errors"
	"io"
	"net/http"

	"hotel-booking-api/services"
	"hotel-booking-api/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type VerifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id" binding:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" binding:"required"`
	RazorpaySignature string `json:"razorpay_signature" binding:"required"`
}

type PaymentController struct {
	PaymentSvc *services.PaymentService
	Logger     *zap.Logger
}

func NewPaymentController(paymentSvc *services.PaymentService, logger *zap.Logger) *PaymentController {
	return &PaymentController{PaymentSvc: paymentSvc, Logger: logger}
}

func (ctrl *PaymentController) CreateOrder(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	result, err := ctrl.PaymentSvc.CreateOrder(id)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBookingNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": gin.H{"code": "error.bookingNotFound", "message": "Booking not found"},
			})
		case errors.Is(err, services.ErrPaymentAlreadyInitiated):
			c.JSON(http.StatusConflict, gin.H{
				"error": gin.H{"code": "error.paymentAlreadyInitiated", "message": "Payment already initiated"},
			})
		case errors.Is(err, services.ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": gin.H{"code": "error.invalidAmount", "message": "Booking amount is zero/invalid"},
			})
		default:
			ctrl.Logger.Error("create order failed", zap.Uint("booking_id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": gin.H{"code": "error.createOrder", "message": "Failed to create payment order"},
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"key_id": result.KeyID, "order": result.Order})
}

func (ctrl *PaymentController) VerifyPayment(c *gin.Context) {
	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "error.missingPaymentFields", "message": "Missing payment fields"},
		})
		return
	}

	err := ctrl.PaymentSvc.VerifyPayment(req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidSignature):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": gin.H{"code": "error.invalidSignature", "message": "Invalid signature"},
			})
		case errors.Is(err, services.ErrBookingNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": gin.H{"code": "error.bookingNotFound", "message": "Booking not found for order"},
			})
		default:
			ctrl.Logger.Error("payment verification failed",
				zap.String("order_id", req.RazorpayOrderID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": gin.H{"code": "error.verifyPayment", "message": "Failed to verify payment"},
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (ctrl *PaymentController) RazorpayWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "error.invalidBody", "message": "Failed to read request body"},
		})
		return
	}
	signature := c.GetHeader("X-Razorpay-Signature")

	if err := ctrl.PaymentSvc.HandleWebhook(body, signature); err != nil {
		if errors.Is(err, services.ErrInvalidSignature) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": gin.H{"code": "error.badSignature", "message": "Bad signature"},
			})
			return
		}
		ctrl.Logger.Error("webhook processing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{"code": "error.webhook", "message": "Failed to process webhook"},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (ctrl *PaymentController) ListBookingPayments(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	payments, err := ctrl.PaymentSvc.ListForBooking(id)
	if err != nil {
		ctrl.Logger.Error("list payments failed", zap.Uint("booking_id", id), zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "Failed to list payments")
		return
	}
	utils.JSONSuccess(c, http.StatusOK, payments)
}
