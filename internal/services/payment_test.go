package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yorusito/shop-backend/internal/apperrors"
	"github.com/yorusito/shop-backend/internal/db"
	"github.com/yorusito/shop-backend/internal/gateway"
	"github.com/yorusito/shop-backend/internal/metrics"
	"github.com/yorusito/shop-backend/internal/models"
)

// fakeGateway counts calls and hands back a canned verdict.
type fakeGateway struct {
	result      *gateway.ChargeResult
	createCalls int
	getCalls    int
}

func (f *fakeGateway) CreateCharge(ctx context.Context, card gateway.CardDetails, amountMinor int64, currency, email, description string, metadata map[string]string) (*gateway.ChargeResult, error) {
	f.createCalls++
	return f.result, nil
}

func (f *fakeGateway) GetCharge(ctx context.Context, chargeID string) (*gateway.ChargeResult, error) {
	f.getCalls++
	return f.result, nil
}

func newMockedPaymentService(t *testing.T, gw gateway.PaymentGateway) (*PaymentService, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	database := &db.DB{DB: mockDB}
	m := metrics.NewNoop()
	orders := NewOrderService(database, m, nil, nil)
	return NewPaymentService(database, m, gw, orders, nil, 10*time.Minute), mock
}

func paymentRow(id int64, status models.PaymentStatus, chargeID string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "order_id", "charge_id", "idempotency_key", "status", "amount", "currency",
		"buyer_email", "description", "card_number", "card_brand", "success", "message",
		"created_at", "paid_at",
	}).AddRow(id, int64(7), chargeID, "6f9619ff-8b86-4d01-b42d-00cf4fc964ff", string(status),
		"49.90", "PEN", "buyer@example.com", "order #7", "", "",
		status == models.PaymentCompleted, "", time.Now(), nil)
}

func validRequest() models.ProcessPaymentRequest {
	return models.ProcessPaymentRequest{
		OrderID:    1,
		CardNumber: "4111111111111111",
		CVV:        "123",
		ExpMonth:   "09",
		ExpYear:    "2027",
		Amount:     decimal.RequireFromString("49.90"),
		Currency:   "PEN",
	}
}

func TestAmountMinorUnits(t *testing.T) {
	assert.Equal(t, int64(4990), amountMinorUnits(decimal.RequireFromString("49.90")))
	assert.Equal(t, int64(100), amountMinorUnits(decimal.RequireFromString("1.00")))
	assert.Equal(t, int64(5), amountMinorUnits(decimal.RequireFromString("0.05")))
	assert.Equal(t, int64(0), amountMinorUnits(decimal.Zero))
}

func TestValidatePaymentRequest_AcceptsWellFormedRequest(t *testing.T) {
	assert.NoError(t, validatePaymentRequest(validRequest()))
}

func TestValidatePaymentRequest_RequiresOrderID(t *testing.T) {
	req := validRequest()
	req.OrderID = 0
	err := validatePaymentRequest(req)
	assert.True(t, apperrors.IsKind(err, apperrors.Validation))
}

func TestValidatePaymentRequest_RejectsNonPositiveAmount(t *testing.T) {
	req := validRequest()
	req.Amount = decimal.Zero
	assert.Error(t, validatePaymentRequest(req))

	req.Amount = decimal.RequireFromString("-5")
	assert.Error(t, validatePaymentRequest(req))
}

func TestValidatePaymentRequest_RejectsBadCardNumberLength(t *testing.T) {
	req := validRequest()
	req.CardNumber = "4111"
	assert.Error(t, validatePaymentRequest(req))

	req.CardNumber = "41111111111111111111"
	assert.Error(t, validatePaymentRequest(req))
}

func TestValidatePaymentRequest_RejectsMissingCardFields(t *testing.T) {
	req := validRequest()
	req.CVV = ""
	assert.Error(t, validatePaymentRequest(req))

	req = validRequest()
	req.ExpMonth = ""
	assert.Error(t, validatePaymentRequest(req))
}

func TestValidatePaymentRequest_RejectsOutOfRangeMonth(t *testing.T) {
	req := validRequest()
	req.ExpMonth = "13"
	assert.Error(t, validatePaymentRequest(req))

	req.ExpMonth = "0"
	assert.Error(t, validatePaymentRequest(req))

	req.ExpMonth = "xx"
	assert.Error(t, validatePaymentRequest(req))
}

func TestValidatePaymentRequest_RequiresCurrency(t *testing.T) {
	req := validRequest()
	req.Currency = ""
	err := validatePaymentRequest(req)
	assert.True(t, apperrors.IsKind(err, apperrors.Validation))
}

func TestApplyVerdict_SuccessCompletesPayment(t *testing.T) {
	now := time.Now()
	payment := &models.Payment{Status: models.PaymentProcessing}
	applyVerdict(payment, &gateway.ChargeResult{
		ChargeID:   "chr_test_1",
		Success:    true,
		Message:    "payment processed successfully",
		CardNumber: "****-****-****-1111",
		CardBrand:  "VISA",
	}, now)

	assert.Equal(t, models.PaymentCompleted, payment.Status)
	assert.True(t, payment.Success)
	assert.Equal(t, "chr_test_1", payment.ChargeID)
	assert.Equal(t, "****-****-****-1111", payment.CardNumber)
	assert.Equal(t, "VISA", payment.CardBrand)
	require.NotNil(t, payment.PaidAt)
	assert.Equal(t, now, *payment.PaidAt)
}

func TestApplyVerdict_DeclineFailsPayment(t *testing.T) {
	now := time.Now()
	payment := &models.Payment{Status: models.PaymentProcessing}
	applyVerdict(payment, &gateway.ChargeResult{
		ChargeID: "chr_test_2",
		Success:  false,
		Message:  "card declined",
	}, now)

	assert.Equal(t, models.PaymentFailed, payment.Status)
	assert.False(t, payment.Success)
	assert.Equal(t, "card declined", payment.Message)
	// The verdict timestamp is recorded even for declines.
	require.NotNil(t, payment.PaidAt)
	assert.Equal(t, now, *payment.PaidAt)
}

func TestVerifyPaymentStatus_TerminalPaymentSkipsGateway(t *testing.T) {
	for _, status := range []models.PaymentStatus{models.PaymentCompleted, models.PaymentFailed} {
		gw := &fakeGateway{}
		svc, mock := newMockedPaymentService(t, gw)
		mock.ExpectQuery("FROM payments WHERE id").
			WillReturnRows(paymentRow(3, status, "chr_test_1"))

		payment, err := svc.VerifyPaymentStatus(context.Background(), 3)
		require.NoError(t, err)
		assert.Equal(t, status, payment.Status)
		assert.Zero(t, gw.getCalls, "terminal payment must not hit the gateway")
		assert.NoError(t, mock.ExpectationsWereMet())
	}
}

func TestVerifyPaymentStatus_ProcessingWithoutChargeSkipsGateway(t *testing.T) {
	gw := &fakeGateway{}
	svc, mock := newMockedPaymentService(t, gw)
	mock.ExpectQuery("FROM payments WHERE id").
		WillReturnRows(paymentRow(3, models.PaymentProcessing, ""))

	payment, err := svc.VerifyPaymentStatus(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentProcessing, payment.Status)
	assert.Zero(t, gw.getCalls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyPaymentStatus_ProcessingWithChargeReconciles(t *testing.T) {
	gw := &fakeGateway{result: &gateway.ChargeResult{
		ChargeID:   "chr_test_1",
		Success:    true,
		Message:    "payment processed successfully",
		CardNumber: "****-****-****-1111",
		CardBrand:  "VISA",
	}}
	svc, mock := newMockedPaymentService(t, gw)

	mock.ExpectQuery("FROM payments WHERE id").
		WillReturnRows(paymentRow(3, models.PaymentProcessing, "chr_test_1"))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE payments SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE orders SET status").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	payment, err := svc.VerifyPaymentStatus(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 1, gw.getCalls)
	assert.Equal(t, models.PaymentCompleted, payment.Status)
	assert.True(t, payment.Success)
	require.NotNil(t, payment.PaidAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
