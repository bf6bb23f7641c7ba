package services_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"hotel-booking-api/models"
	"hotel-booking-api/services"

	"github.com/DATA-DOG/go-sqlmock"
	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ---- mock gateway ----

type mockGateway struct {
	order    map[string]interface{}
	err      error
	calls    int
	receipts []string
}

func (g *mockGateway) CreateOrder(amountPaise int64, currency, receipt string) (map[string]interface{}, error) {
	g.calls++
	g.receipts = append(g.receipts, receipt)
	return g.order, g.err
}

const (
	testKeySecret     = "test_key_secret"
	testWebhookSecret = "test_webhook_secret"
)

func newPaymentService(db *gorm.DB, gateway services.PaymentGateway, mailer services.Mailer) *services.PaymentService {
	return services.NewPaymentService(db, gateway, mailer,
		"rzp_test_key", testKeySecret, testWebhookSecret, zap.NewNop())
}

func signWith(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

const selectBookingByOrderID = "SELECT * FROM `bookings` WHERE payment_order_id = ?"

func bookingRow(id uint, paymentStatus string, amount int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "name", "room_type", "check_in", "check_out",
		"status", "amount_paise", "currency", "payment_status", "payment_order_id",
	}).AddRow(id, "guest@example.com", "Asha", "Suite", "2024-01-01", "2024-01-04",
		models.BookingStatusPending, amount, "INR", paymentStatus, "order_abc")
}

func TestCreateOrder_Success(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	gateway := &mockGateway{order: map[string]interface{}{"id": "order_abc", "amount": float64(1200000)}}
	svc := newPaymentService(gormDB, gateway, &mockMailer{})

	mock.ExpectQuery(regexp.QuoteMeta(selectBookingByID)).
		WithArgs(5, 1).
		WillReturnRows(bookingRow(5, models.PaymentStatusInit, 1200000))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `bookings` SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `payments`")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	result, err := svc.CreateOrder(5)
	assert.NoError(t, err)
	assert.Equal(t, "rzp_test_key", result.KeyID)
	assert.Equal(t, "order_abc", result.Order["id"])
	assert.Equal(t, []string{"bk_5"}, gateway.receipts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrder_RetryAfterFailureAllowed(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	gateway := &mockGateway{order: map[string]interface{}{"id": "order_retry"}}
	svc := newPaymentService(gormDB, gateway, &mockMailer{})

	mock.ExpectQuery(regexp.QuoteMeta(selectBookingByID)).
		WithArgs(5, 1).
		WillReturnRows(bookingRow(5, models.PaymentStatusFailed, 1200000))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `bookings` SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `payments`")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	_, err := svc.CreateOrder(5)
	assert.NoError(t, err)
	assert.Equal(t, 1, gateway.calls)
}

func TestCreateOrder_ConflictWhenAlreadyInitiated(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	gateway := &mockGateway{order: map[string]interface{}{"id": "order_abc"}}
	svc := newPaymentService(gormDB, gateway, &mockMailer{})

	mock.ExpectQuery(regexp.QuoteMeta(selectBookingByID)).
		WithArgs(5, 1).
		WillReturnRows(bookingRow(5, models.PaymentStatusCreated, 1200000))

	_, err := svc.CreateOrder(5)
	assert.ErrorIs(t, err, services.ErrPaymentAlreadyInitiated)
	assert.Zero(t, gateway.calls)
}

func TestCreateOrder_NotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	svc := newPaymentService(gormDB, &mockGateway{}, &mockMailer{})

	mock.ExpectQuery(regexp.QuoteMeta(selectBookingByID)).
		WithArgs(99, 1).
		WillReturnRows(sqlmock.NewRows([]string{}))

	_, err := svc.CreateOrder(99)
	assert.ErrorIs(t, err, services.ErrBookingNotFound)
}

func TestCreateOrder_InvalidAmount(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	gateway := &mockGateway{}
	svc := newPaymentService(gormDB, gateway, &mockMailer{})

	mock.ExpectQuery(regexp.QuoteMeta(selectBookingByID)).
		WithArgs(5, 1).
		WillReturnRows(bookingRow(5, models.PaymentStatusInit, 0))

	_, err := svc.CreateOrder(5)
	assert.ErrorIs(t, err, services.ErrInvalidAmount)
	assert.Zero(t, gateway.calls)
}

func TestCreateOrder_GatewayFailurePropagates(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	gateway := &mockGateway{err: errors.New("gateway unreachable")}
	svc := newPaymentService(gormDB, gateway, &mockMailer{})

	mock.ExpectQuery(regexp.QuoteMeta(selectBookingByID)).
		WithArgs(5, 1).
		WillReturnRows(bookingRow(5, models.PaymentStatusInit, 1200000))

	_, err := svc.CreateOrder(5)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "gateway unreachable")
	// booking untouched on gateway failure
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyPayment_TamperedSignature(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	mailer := &mockMailer{}
	svc := newPaymentService(gormDB, &mockGateway{}, mailer)

	// only a failed ledger row is written; the booking is never read or
	// mutated
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `payments`")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := svc.VerifyPayment("order_abc", "pay_123", "deadbeef")
	assert.ErrorIs(t, err, services.ErrInvalidSignature)
	assert.Empty(t, mailer.sent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyPayment_Success(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	mailer := &mockMailer{}
	svc := newPaymentService(gormDB, &mockGateway{}, mailer)

	signature := signWith(testKeySecret, "order_abc|pay_123")

	mock.ExpectQuery(regexp.QuoteMeta(selectBookingByOrderID)).
		WithArgs("order_abc", 1).
		WillReturnRows(bookingRow(5, models.PaymentStatusCreated, 1200000))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `bookings` SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `payments`")).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	err := svc.VerifyPayment("order_abc", "pay_123", signature)
	assert.NoError(t, err)
	assert.Len(t, mailer.sent, 1)
	assert.Equal(t, "Booking Confirmed", mailer.sent[0].subject)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyPayment_AlreadyPaidIsNoOp(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	mailer := &mockMailer{}
	svc := newPaymentService(gormDB, &mockGateway{}, mailer)

	signature := signWith(testKeySecret, "order_abc|pay_123")

	mock.ExpectQuery(regexp.QuoteMeta(selectBookingByOrderID)).
		WithArgs("order_abc", 1).
		WillReturnRows(bookingRow(5, models.PaymentStatusPaid, 1200000))

	err := svc.VerifyPayment("order_abc", "pay_123", signature)
	assert.NoError(t, err)
	assert.Empty(t, mailer.sent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyPayment_OrderNotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	svc := newPaymentService(gormDB, &mockGateway{}, &mockMailer{})

	signature := signWith(testKeySecret, "order_nope|pay_123")

	mock.ExpectQuery(regexp.QuoteMeta(selectBookingByOrderID)).
		WithArgs("order_nope", 1).
		WillReturnRows(sqlmock.NewRows([]string{}))

	err := svc.VerifyPayment("order_nope", "pay_123", signature)
	assert.ErrorIs(t, err, services.ErrBookingNotFound)
}

func TestVerifyPayment_MailFailureDoesNotPropagate(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	mailer := &mockMailer{sendErr: errors.New("smtp down")}
	svc := newPaymentService(gormDB, &mockGateway{}, mailer)

	signature := signWith(testKeySecret, "order_abc|pay_123")

	mock.ExpectQuery(regexp.QuoteMeta(selectBookingByOrderID)).
		WithArgs("order_abc", 1).
		WillReturnRows(bookingRow(5, models.PaymentStatusCreated, 1200000))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `bookings` SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `payments`")).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	err := svc.VerifyPayment("order_abc", "pay_123", signature)
	assert.NoError(t, err)
}

func capturedWebhookBody(orderID, paymentID string) []byte {
	return []byte(fmt.Sprintf(
		`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"%s","order_id":"%s","amount":1200000,"currency":"INR"}}}}`,
		paymentID, orderID,
	))
}

func TestHandleWebhook_BadSignature(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	svc := newPaymentService(gormDB, &mockGateway{}, &mockMailer{})

	body := capturedWebhookBody("order_abc", "pay_123")
	err := svc.HandleWebhook(body, "deadbeef")
	assert.ErrorIs(t, err, services.ErrInvalidSignature)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleWebhook_PaymentCaptured(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	mailer := &mockMailer{}
	svc := newPaymentService(gormDB, &mockGateway{}, mailer)

	body := capturedWebhookBody("order_abc", "pay_123")
	signature := signWith(testWebhookSecret, string(body))

	mock.ExpectQuery(regexp.QuoteMeta(selectBookingByOrderID)).
		WithArgs("order_abc", 1).
		WillReturnRows(bookingRow(5, models.PaymentStatusCreated, 1200000))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `bookings` SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `payments`")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := svc.HandleWebhook(body, signature)
	assert.NoError(t, err)
	assert.Len(t, mailer.sent, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleWebhook_DuplicateCaptureCollapses(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	mailer := &mockMailer{}
	svc := newPaymentService(gormDB, &mockGateway{}, mailer)

	body := capturedWebhookBody("order_abc", "pay_123")
	signature := signWith(testWebhookSecret, string(body))

	// booking already paid; ledger insert hits the unique attempt key
	mock.ExpectQuery(regexp.QuoteMeta(selectBookingByOrderID)).
		WithArgs("order_abc", 1).
		WillReturnRows(bookingRow(5, models.PaymentStatusPaid, 1200000))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `payments`")).
		WillReturnError(&mysqldrv.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()

	err := svc.HandleWebhook(body, signature)
	assert.NoError(t, err)
	assert.Empty(t, mailer.sent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleWebhook_PaymentFailed(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	svc := newPaymentService(gormDB, &mockGateway{}, &mockMailer{})

	body := []byte(`{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_123","order_id":"order_abc","amount":1200000,"currency":"INR"}}}}`)
	signature := signWith(testWebhookSecret, string(body))

	mock.ExpectQuery(regexp.QuoteMeta(selectBookingByOrderID)).
		WithArgs("order_abc", 1).
		WillReturnRows(bookingRow(5, models.PaymentStatusCreated, 1200000))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `bookings` SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `payments`")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := svc.HandleWebhook(body, signature)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleWebhook_FailureNeverDemotesPaidBooking(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	svc := newPaymentService(gormDB, &mockGateway{}, &mockMailer{})

	body := []byte(`{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_123","order_id":"order_abc","amount":1200000,"currency":"INR"}}}}`)
	signature := signWith(testWebhookSecret, string(body))

	// no booking UPDATE expected, only the ledger insert
	mock.ExpectQuery(regexp.QuoteMeta(selectBookingByOrderID)).
		WithArgs("order_abc", 1).
		WillReturnRows(bookingRow(5, models.PaymentStatusPaid, 1200000))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `payments`")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := svc.HandleWebhook(body, signature)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleWebhook_RefundRejectsBooking(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	svc := newPaymentService(gormDB, &mockGateway{}, &mockMailer{})

	body := []byte(`{"event":"refund.processed","payload":{"refund":{"entity":{"id":"rfnd_1","payment_id":"pay_123","amount":1200000,"currency":"INR"}}}}`)
	signature := signWith(testWebhookSecret, string(body))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `bookings` WHERE payment_id = ?")).
		WithArgs("pay_123", 1).
		WillReturnRows(bookingRow(5, models.PaymentStatusPaid, 1200000))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `bookings` SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `payments`")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := svc.HandleWebhook(body, signature)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleWebhook_UnknownEventIgnored(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	svc := newPaymentService(gormDB, &mockGateway{}, &mockMailer{})

	body := []byte(`{"event":"invoice.paid","payload":{}}`)
	signature := signWith(testWebhookSecret, string(body))

	err := svc.HandleWebhook(body, signature)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
