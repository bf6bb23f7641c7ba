package routes

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hotel-booking-api/controllers"
	"hotel-booking-api/middleware"
)

func parseCorsOrigins() []string {
	raw := strings.TrimSpace(os.Getenv("CORS_ORIGINS"))
	if raw == "" {
		return []string{"*"}
	}

	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func SetupRouter(
	bc *controllers.BookingController,
	pc *controllers.PaymentController,
	logger *zap.Logger,
) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(logger), gin.Recovery())

	origins := parseCorsOrigins()
	allowCredentials := true
	for _, origin := range origins {
		if origin == "*" {
			allowCredentials = false
			break
		}
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", "X-Razorpay-Signature"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: allowCredentials,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	booking := r.Group("/booking")
	{
		booking.POST("", bc.CreateBooking)
		booking.GET("", bc.GetBookings)
		booking.GET("/availability", bc.CheckAvailability)

		booking.GET("/:id", bc.GetBooking)
		booking.PATCH("/:id/status", bc.UpdateBookingStatus)
		booking.DELETE("/:id", bc.DeleteBooking)

		booking.POST("/:id/create-order", pc.CreateOrder)
		booking.GET("/:id/payments", pc.ListBookingPayments)
		booking.POST("/payment/verify", pc.VerifyPayment)
		booking.POST("/webhook/razorpay", pc.RazorpayWebhook)
	}

	return r
}
