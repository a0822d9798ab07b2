package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yorusito/shop-backend/internal/apperrors"
	"github.com/yorusito/shop-backend/internal/db"
	"github.com/yorusito/shop-backend/internal/gateway"
	"github.com/yorusito/shop-backend/internal/metrics"
	"github.com/yorusito/shop-backend/internal/models"
	"github.com/yorusito/shop-backend/internal/notify"
)

// PaymentService runs charge attempts against the configured gateway and
// reconciles local payment rows with the gateway's authoritative status.
// The gateway implementation (real or simulated) is chosen at startup;
// this service never branches on which one it got.
type PaymentService struct {
	db         *db.DB
	metrics    *metrics.AppMetrics
	gateway    gateway.PaymentGateway
	orders     *OrderService
	notifier   notify.Notifier
	sweepAfter time.Duration
}

// NewPaymentService creates a new payment service. sweepAfter is how old a
// PROCESSING payment must be before the sweep reconciles it.
func NewPaymentService(database *db.DB, m *metrics.AppMetrics, gw gateway.PaymentGateway, orders *OrderService, notifier notify.Notifier, sweepAfter time.Duration) *PaymentService {
	return &PaymentService{
		db:         database,
		metrics:    m,
		gateway:    gw,
		orders:     orders,
		notifier:   notifier,
		sweepAfter: sweepAfter,
	}
}

// amountMinorUnits converts a decimal amount to minor currency units
// (cents) for the gateway.
func amountMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// validatePaymentRequest rejects malformed requests before any row is
// written.
func validatePaymentRequest(req models.ProcessPaymentRequest) error {
	if req.OrderID == 0 {
		return apperrors.E(apperrors.Validation, "order_id is required")
	}
	if !req.Amount.IsPositive() {
		return apperrors.E(apperrors.Validation, "amount must be positive")
	}
	if req.Currency == "" {
		return apperrors.E(apperrors.Validation, "currency is required")
	}
	if len(req.CardNumber) < 12 || len(req.CardNumber) > 19 {
		return apperrors.E(apperrors.Validation, "card number must have 12 to 19 digits")
	}
	if req.CVV == "" || req.ExpMonth == "" || req.ExpYear == "" {
		return apperrors.E(apperrors.Validation, "card cvv and expiry are required")
	}
	if month, err := strconv.Atoi(req.ExpMonth); err != nil || month < 1 || month > 12 {
		return apperrors.E(apperrors.Validation, "card expiry month is out of range")
	}
	return nil
}

// ProcessPayment charges the order's amount against the gateway.
//
// The PROCESSING row is committed before the gateway is called: if the
// call fails in transit the row survives with an unknown outcome and the
// verify/sweep path reconciles it later. Marking it FAILED here would
// collapse "we don't know" into "declined" and invite double charges.
func (s *PaymentService) ProcessPayment(ctx context.Context, userID int64, req models.ProcessPaymentRequest) (*models.Payment, error) {
	if err := validatePaymentRequest(req); err != nil {
		return nil, err
	}

	order, err := s.orders.GetOrder(ctx, req.OrderID, userID, false)
	if err != nil {
		return nil, err
	}
	if !req.Amount.Equal(order.Total) {
		return nil, apperrors.Ef(apperrors.Validation, "amount %s does not match order total %s", req.Amount, order.Total)
	}

	var buyerEmail string
	start := time.Now()
	emailQuery := "SELECT email FROM users WHERE id = ?"
	err = s.db.QueryRowContext(ctx, emailQuery, userID).Scan(&buyerEmail)
	s.metrics.RecordDBQuery(ctx, "SELECT", "users", emailQuery, start, err == nil || err == sql.ErrNoRows)
	if err == sql.ErrNoRows {
		return nil, apperrors.E(apperrors.NotFound, "user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	payment := &models.Payment{
		OrderID:        req.OrderID,
		IdempotencyKey: uuid.NewString(),
		Status:         models.PaymentProcessing,
		Amount:         req.Amount,
		Currency:       req.Currency,
		BuyerEmail:     buyerEmail,
		Description:    req.Description,
		CreatedAt:      time.Now(),
	}

	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		start := time.Now()
		existsQuery := "SELECT EXISTS(SELECT 1 FROM payments WHERE order_id = ? AND success = TRUE)"
		var alreadyPaid bool
		err := tx.QueryRowContext(ctx, existsQuery, req.OrderID).Scan(&alreadyPaid)
		s.metrics.RecordDBQuery(ctx, "SELECT", "payments", existsQuery, start, err == nil)
		if err != nil {
			return fmt.Errorf("failed to check existing payments: %w", err)
		}
		if alreadyPaid {
			return apperrors.E(apperrors.AlreadyPaid, "order has already been paid")
		}

		start = time.Now()
		insertQuery := `INSERT INTO payments
			(order_id, idempotency_key, status, amount, currency, buyer_email, description, success)
			VALUES (?, ?, ?, ?, ?, ?, ?, FALSE)`
		result, err := tx.ExecContext(ctx, insertQuery, payment.OrderID, payment.IdempotencyKey,
			payment.Status, payment.Amount, payment.Currency, payment.BuyerEmail, payment.Description)
		s.metrics.RecordDBQuery(ctx, "INSERT", "payments", insertQuery, start, err == nil)
		if err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}

		payment.ID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get payment ID: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	card := gateway.CardDetails{
		Number:   req.CardNumber,
		CVV:      req.CVV,
		ExpMonth: req.ExpMonth,
		ExpYear:  req.ExpYear,
	}
	metadata := map[string]string{
		"order_id":        strconv.FormatInt(req.OrderID, 10),
		"payment_id":      strconv.FormatInt(payment.ID, 10),
		"user_id":         strconv.FormatInt(userID, 10),
		"idempotency_key": payment.IdempotencyKey,
	}

	result, err := s.gateway.CreateCharge(ctx, card, amountMinorUnits(req.Amount),
		req.Currency, buyerEmail, req.Description, metadata)
	if err != nil {
		log.Printf("[PAYMENT] gateway error for payment %d: %v", payment.ID, err)
		return nil, apperrors.Wrap(apperrors.GatewayError,
			"payment gateway unavailable, charge outcome unknown", err)
	}

	if err := s.applyChargeResult(ctx, payment, result); err != nil {
		return nil, err
	}
	return payment, nil
}

// applyVerdict maps a gateway verdict onto the payment row. PaidAt
// records when the verdict landed and is stamped on both branches, so a
// FAILED payment also shows when its attempt was settled.
func applyVerdict(payment *models.Payment, result *gateway.ChargeResult, now time.Time) {
	payment.ChargeID = result.ChargeID
	payment.CardNumber = result.CardNumber
	payment.CardBrand = result.CardBrand
	payment.Message = result.Message
	payment.PaidAt = &now
	if result.Success {
		payment.Status = models.PaymentCompleted
		payment.Success = true
	} else {
		payment.Status = models.PaymentFailed
		payment.Success = false
	}
}

// applyChargeResult reconciles the local payment row with a gateway
// verdict and flips the order to PAID on success, all in one transaction.
func (s *PaymentService) applyChargeResult(ctx context.Context, payment *models.Payment, result *gateway.ChargeResult) error {
	applyVerdict(payment, result, time.Now())

	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		start := time.Now()
		updateQuery := `UPDATE payments SET charge_id = ?, status = ?, success = ?, message = ?,
			card_number = ?, card_brand = ?, paid_at = ? WHERE id = ?`
		_, err := tx.ExecContext(ctx, updateQuery, payment.ChargeID, payment.Status,
			payment.Success, payment.Message, payment.CardNumber, payment.CardBrand,
			payment.PaidAt, payment.ID)
		s.metrics.RecordDBQuery(ctx, "UPDATE", "payments", updateQuery, start, err == nil)
		if err != nil {
			return fmt.Errorf("failed to update payment: %w", err)
		}

		if payment.Success {
			return s.orders.markPaidTx(ctx, tx, payment.OrderID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	amount, _ := payment.Amount.Float64()
	s.metrics.RecordPayment(ctx, string(payment.Status), amount, payment.Currency)
	log.Printf("[PAYMENT] payment %d reconciled: status=%s charge_id=%s", payment.ID, payment.Status, payment.ChargeID)

	if payment.Success && s.notifier != nil {
		var userID int64
		ownerQuery := "SELECT user_id FROM orders WHERE id = ?"
		if err := s.db.QueryRowContext(ctx, ownerQuery, payment.OrderID).Scan(&userID); err == nil {
			s.notifier.Notify(ctx, userID, notify.TypePaymentSuccess,
				"Payment received",
				fmt.Sprintf("Your payment for order #%d was processed successfully", payment.OrderID),
				payment.ID, "payment")
		}
	}
	return nil
}

// VerifyPaymentStatus re-queries the gateway for a PROCESSING payment
// that has a charge ID. Payments in any terminal state, or with no charge
// to ask about, are returned as-is without touching the gateway.
func (s *PaymentService) VerifyPaymentStatus(ctx context.Context, paymentID int64) (*models.Payment, error) {
	payment, err := s.getPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if payment.Status != models.PaymentProcessing || payment.ChargeID == "" {
		return payment, nil
	}

	result, err := s.gateway.GetCharge(ctx, payment.ChargeID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.GatewayError,
			"payment gateway unavailable, charge outcome unknown", err)
	}

	if err := s.applyChargeResult(ctx, payment, result); err != nil {
		return nil, err
	}
	return payment, nil
}

// SweepPendingPayments reconciles all PROCESSING payments older than the
// staleness window. Gateway errors on individual payments are logged and
// skipped; the sweep is best-effort and never fails as a batch. It
// returns how many payments it reconciled.
func (s *PaymentService) SweepPendingPayments(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.sweepAfter)

	start := time.Now()
	query := `SELECT id FROM payments
		WHERE status = ? AND charge_id IS NOT NULL AND charge_id != '' AND created_at < ?`
	rows, err := s.db.QueryContext(ctx, query, models.PaymentProcessing, cutoff)
	s.metrics.RecordDBQuery(ctx, "SELECT", "payments", query, start, err == nil)
	if err != nil {
		return 0, fmt.Errorf("failed to query pending payments: %w", err)
	}

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan payment ID: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	reconciled := 0
	for _, id := range ids {
		if _, err := s.VerifyPaymentStatus(ctx, id); err != nil {
			log.Printf("[SWEEP] skipping payment %d: %v", id, err)
			continue
		}
		reconciled++
	}

	if len(ids) > 0 {
		log.Printf("[SWEEP] reconciled %d of %d stale payments", reconciled, len(ids))
	}
	return reconciled, nil
}

const paymentColumns = `id, order_id, COALESCE(charge_id, ''), idempotency_key, status, amount, currency,
	buyer_email, description, COALESCE(card_number, ''), COALESCE(card_brand, ''), success, message, created_at, paid_at`

func (s *PaymentService) getPayment(ctx context.Context, paymentID int64) (*models.Payment, error) {
	start := time.Now()
	query := "SELECT " + paymentColumns + " FROM payments WHERE id = ?"
	payment, err := s.scanPayment(s.db.QueryRowContext(ctx, query, paymentID))
	s.metrics.RecordDBQuery(ctx, "SELECT", "payments", query, start, err == nil || err == sql.ErrNoRows)
	if err == sql.ErrNoRows {
		return nil, apperrors.E(apperrors.NotFound, "payment not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return payment, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PaymentService) scanPayment(row rowScanner) (*models.Payment, error) {
	var p models.Payment
	var paidAt sql.NullTime
	var message sql.NullString
	err := row.Scan(&p.ID, &p.OrderID, &p.ChargeID, &p.IdempotencyKey, &p.Status,
		&p.Amount, &p.Currency, &p.BuyerEmail, &p.Description, &p.CardNumber,
		&p.CardBrand, &p.Success, &message, &p.CreatedAt, &paidAt)
	if err != nil {
		return nil, err
	}
	p.Message = message.String
	if paidAt.Valid {
		p.PaidAt = &paidAt.Time
	}
	return &p, nil
}

// ListPaymentsByOrder returns all payment attempts for one order.
func (s *PaymentService) ListPaymentsByOrder(ctx context.Context, orderID int64) ([]models.Payment, error) {
	query := "SELECT " + paymentColumns + " FROM payments WHERE order_id = ? ORDER BY created_at DESC"
	return s.listPayments(ctx, query, orderID)
}

// ListSuccessfulPaymentsByUser returns a user's completed payments.
func (s *PaymentService) ListSuccessfulPaymentsByUser(ctx context.Context, userID int64) ([]models.Payment, error) {
	query := `SELECT p.id, p.order_id, COALESCE(p.charge_id, ''), p.idempotency_key, p.status, p.amount, p.currency,
		p.buyer_email, p.description, COALESCE(p.card_number, ''), COALESCE(p.card_brand, ''), p.success, p.message, p.created_at, p.paid_at
		FROM payments p JOIN orders o ON p.order_id = o.id
		WHERE o.user_id = ? AND p.success = TRUE ORDER BY p.created_at DESC`
	return s.listPayments(ctx, query, userID)
}

func (s *PaymentService) listPayments(ctx context.Context, query string, args ...any) ([]models.Payment, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query, args...)
	s.metrics.RecordDBQuery(ctx, "SELECT", "payments", query, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		payment, err := s.scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, *payment)
	}
	return payments, rows.Err()
}
