package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/yorusito/shop-backend/internal/apperrors"
	"github.com/yorusito/shop-backend/internal/db"
	"github.com/yorusito/shop-backend/internal/metrics"
	"github.com/yorusito/shop-backend/internal/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// InventoryService owns the stock ledger. Every stock mutation in the
// system goes through ApplyMovementTx: it appends a movement row, updates
// the denormalized products.stock counter and re-evaluates low-stock
// alerts inside the caller's transaction. The product row is locked for
// the duration, so concurrent movements on one product serialize and the
// "at most one active alert" invariant holds.
type InventoryService struct {
	db        *db.DB
	metrics   *metrics.AppMetrics
	threshold int
	cache     productInvalidator
}

// productInvalidator lets the ledger drop cached catalog reads after a
// stock change.
type productInvalidator interface {
	Invalidate(id int64)
}

// NewInventoryService creates a new inventory service.
func NewInventoryService(database *db.DB, m *metrics.AppMetrics, lowStockThreshold int, cache productInvalidator) *InventoryService {
	return &InventoryService{
		db:        database,
		metrics:   m,
		threshold: lowStockThreshold,
		cache:     cache,
	}
}

// Threshold returns the configured low-stock threshold.
func (s *InventoryService) Threshold() int {
	return s.threshold
}

// computeStockAfter applies one movement to the current stock count.
// IN adds, OUT subtracts (never below zero), ADJUST sets the absolute
// value. The remaining types are ledger-only annotations and leave the
// counter untouched.
func computeStockAfter(t models.MovementType, before, quantity int) (int, error) {
	switch t {
	case models.MovementIn:
		return before + quantity, nil
	case models.MovementOut:
		if quantity > before {
			return 0, apperrors.E(apperrors.InsufficientStock, "not enough stock available")
		}
		return before - quantity, nil
	case models.MovementAdjust:
		return quantity, nil
	default:
		return before, nil
	}
}

// alertMessage builds the human-readable text for a low-stock alert.
func alertMessage(stock int) string {
	if stock == 0 {
		return "out of stock"
	}
	return fmt.Sprintf("low stock: %d units remaining", stock)
}

// validateMovement rejects malformed movement requests before any row is
// written.
func validateMovement(req models.MovementRequest) error {
	if !models.ValidMovementType(req.Type) {
		return apperrors.Ef(apperrors.Validation, "unknown movement type: %s", req.Type)
	}
	if req.Quantity < 0 {
		return apperrors.E(apperrors.Validation, "movement quantity must not be negative")
	}
	if req.Type != models.MovementAdjust && req.Quantity == 0 {
		return apperrors.E(apperrors.Validation, "movement quantity must be positive")
	}
	return nil
}

// RecordMovement applies one stock movement in its own transaction.
func (s *InventoryService) RecordMovement(ctx context.Context, req models.MovementRequest, actor string) (*models.InventoryMovement, error) {
	var movement *models.InventoryMovement
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		movement, err = s.ApplyMovementTx(ctx, tx, req, actor)
		return err
	})
	if err != nil {
		return nil, err
	}
	return movement, nil
}

// ApplyMovementTx applies one stock movement inside an existing
// transaction. Order creation shares its transaction with this method so
// stock decrements, the ledger and the order commit or roll back together.
func (s *InventoryService) ApplyMovementTx(ctx context.Context, tx *sql.Tx, req models.MovementRequest, actor string) (*models.InventoryMovement, error) {
	if err := validateMovement(req); err != nil {
		return nil, err
	}

	start := time.Now()
	lockQuery := "SELECT id, name, stock FROM products WHERE id = ? FOR UPDATE"
	var productID int64
	var productName string
	var stockBefore int
	err := tx.QueryRowContext(ctx, lockQuery, req.ProductID).Scan(&productID, &productName, &stockBefore)
	s.metrics.RecordDBQuery(ctx, "SELECT", "products", lockQuery, start, err == nil || err == sql.ErrNoRows)
	if err == sql.ErrNoRows {
		return nil, apperrors.E(apperrors.NotFound, "product not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock product: %w", err)
	}

	stockAfter, err := computeStockAfter(req.Type, stockBefore, req.Quantity)
	if err != nil {
		return nil, err
	}

	start = time.Now()
	insertQuery := `INSERT INTO inventory_movements
		(product_id, movement_type, quantity, stock_before, stock_after, reason, order_id, actor)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, insertQuery, productID, req.Type, req.Quantity,
		stockBefore, stockAfter, req.Reason, req.OrderID, actor)
	s.metrics.RecordDBQuery(ctx, "INSERT", "inventory_movements", insertQuery, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to insert movement: %w", err)
	}

	movementID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get movement ID: %w", err)
	}

	start = time.Now()
	updateQuery := "UPDATE products SET stock = ?, updated_at = NOW() WHERE id = ?"
	_, err = tx.ExecContext(ctx, updateQuery, stockAfter, productID)
	s.metrics.RecordDBQuery(ctx, "UPDATE", "products", updateQuery, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to update product stock: %w", err)
	}

	if err := s.evaluateAlertTx(ctx, tx, productID, stockAfter); err != nil {
		return nil, err
	}

	// Drop the cached product so catalog reads see the new stock.
	if s.cache != nil {
		s.cache.Invalidate(productID)
	}

	stockAttrs := s.metrics.WithServiceName([]attribute.KeyValue{
		attribute.Int64("product_id", productID),
	})
	s.metrics.StockLevel.Record(ctx, int64(stockAfter), metric.WithAttributes(stockAttrs...))

	log.Printf("[INVENTORY] movement recorded: product_id=%d type=%s qty=%d stock %d -> %d actor=%s",
		productID, req.Type, req.Quantity, stockBefore, stockAfter, actor)

	return &models.InventoryMovement{
		ID:          movementID,
		ProductID:   productID,
		ProductName: productName,
		Type:        req.Type,
		Quantity:    req.Quantity,
		StockBefore: stockBefore,
		StockAfter:  stockAfter,
		Reason:      req.Reason,
		OrderID:     req.OrderID,
		Actor:       actor,
		CreatedAt:   time.Now(),
	}, nil
}

// alertAction is the outcome of re-evaluating a product's alert state
// after a stock change.
type alertAction int

const (
	alertKeep alertAction = iota
	alertRaise
	alertClear
)

// decideAlert picks the alert transition for the new stock level. At or
// below the threshold a missing alert is raised; above it an active alert
// is cleared. Anything else leaves the alert table alone, which is what
// keeps the one-active-alert-per-product rule stable.
func decideAlert(stock, threshold int, hasActive bool) alertAction {
	if stock <= threshold {
		if hasActive {
			return alertKeep
		}
		return alertRaise
	}
	if hasActive {
		return alertClear
	}
	return alertKeep
}

// evaluateAlertTx enforces the one-active-alert-per-product rule after a
// stock change. The caller holds the product row lock.
func (s *InventoryService) evaluateAlertTx(ctx context.Context, tx *sql.Tx, productID int64, stock int) error {
	start := time.Now()
	existsQuery := "SELECT id FROM inventory_alerts WHERE product_id = ? AND active = TRUE"
	var alertID int64
	err := tx.QueryRowContext(ctx, existsQuery, productID).Scan(&alertID)
	s.metrics.RecordDBQuery(ctx, "SELECT", "inventory_alerts", existsQuery, start, err == nil || err == sql.ErrNoRows)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to check active alert: %w", err)
	}
	hasActive := err == nil

	switch decideAlert(stock, s.threshold, hasActive) {
	case alertRaise:
		start = time.Now()
		insertQuery := "INSERT INTO inventory_alerts (product_id, min_stock, current_stock, message, active, notified) VALUES (?, ?, ?, ?, TRUE, FALSE)"
		_, err = tx.ExecContext(ctx, insertQuery, productID, s.threshold, stock, alertMessage(stock))
		s.metrics.RecordDBQuery(ctx, "INSERT", "inventory_alerts", insertQuery, start, err == nil)
		if err != nil {
			return fmt.Errorf("failed to create alert: %w", err)
		}
		log.Printf("[INVENTORY] alert raised: product_id=%d stock=%d", productID, stock)
	case alertClear:
		start = time.Now()
		updateQuery := "UPDATE inventory_alerts SET active = FALSE WHERE id = ?"
		_, err = tx.ExecContext(ctx, updateQuery, alertID)
		s.metrics.RecordDBQuery(ctx, "UPDATE", "inventory_alerts", updateQuery, start, err == nil)
		if err != nil {
			return fmt.Errorf("failed to deactivate alert: %w", err)
		}
		log.Printf("[INVENTORY] alert cleared: product_id=%d stock=%d", productID, stock)
	}
	return nil
}

// ListMovements returns ledger entries, optionally filtered by product and
// date range, newest first.
func (s *InventoryService) ListMovements(ctx context.Context, productID *int64, from, to *time.Time, limit, offset int) ([]models.InventoryMovement, error) {
	var conditions []string
	var args []any
	if productID != nil {
		conditions = append(conditions, "m.product_id = ?")
		args = append(args, *productID)
	}
	if from != nil {
		conditions = append(conditions, "m.created_at >= ?")
		args = append(args, *from)
	}
	if to != nil {
		conditions = append(conditions, "m.created_at <= ?")
		args = append(args, *to)
	}

	query := `SELECT m.id, m.product_id, p.name, m.movement_type, m.quantity,
		m.stock_before, m.stock_after, m.reason, m.order_id, m.actor, m.created_at
		FROM inventory_movements m JOIN products p ON m.product_id = p.id`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY m.created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query, args...)
	s.metrics.RecordDBQuery(ctx, "SELECT", "inventory_movements", query, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query movements: %w", err)
	}
	defer rows.Close()

	var movements []models.InventoryMovement
	for rows.Next() {
		var m models.InventoryMovement
		var orderID sql.NullInt64
		if err := rows.Scan(&m.ID, &m.ProductID, &m.ProductName, &m.Type, &m.Quantity,
			&m.StockBefore, &m.StockAfter, &m.Reason, &orderID, &m.Actor, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan movement: %w", err)
		}
		if orderID.Valid {
			m.OrderID = &orderID.Int64
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

// ListProductStock returns the stock view for every product.
func (s *InventoryService) ListProductStock(ctx context.Context) ([]models.ProductStock, error) {
	return s.listStock(ctx, "")
}

// ListLowStockProducts returns only products at or below the threshold.
func (s *InventoryService) ListLowStockProducts(ctx context.Context) ([]models.ProductStock, error) {
	return s.listStock(ctx, " WHERE stock <= ?")
}

func (s *InventoryService) listStock(ctx context.Context, where string) ([]models.ProductStock, error) {
	query := "SELECT id, name, stock FROM products" + where + " ORDER BY stock ASC, id"
	var args []any
	if where != "" {
		args = append(args, s.threshold)
	}

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query, args...)
	s.metrics.RecordDBQuery(ctx, "SELECT", "products", query, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query product stock: %w", err)
	}
	defer rows.Close()

	var result []models.ProductStock
	for rows.Next() {
		var ps models.ProductStock
		if err := rows.Scan(&ps.ProductID, &ps.ProductName, &ps.Stock); err != nil {
			return nil, fmt.Errorf("failed to scan product stock: %w", err)
		}
		ps.MinStock = s.threshold
		ps.LowStock = ps.Stock <= s.threshold
		ps.OutOfStock = ps.Stock == 0
		result = append(result, ps)
	}
	return result, rows.Err()
}

// ListActiveAlerts returns all active alerts, newest first.
func (s *InventoryService) ListActiveAlerts(ctx context.Context) ([]models.InventoryAlert, error) {
	start := time.Now()
	query := `SELECT a.id, a.product_id, p.name, a.min_stock, a.current_stock,
		a.message, a.active, a.notified, a.created_at
		FROM inventory_alerts a JOIN products p ON a.product_id = p.id
		WHERE a.active = TRUE ORDER BY a.created_at DESC`
	rows, err := s.db.QueryContext(ctx, query)
	s.metrics.RecordDBQuery(ctx, "SELECT", "inventory_alerts", query, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.InventoryAlert
	for rows.Next() {
		var a models.InventoryAlert
		if err := rows.Scan(&a.ID, &a.ProductID, &a.ProductName, &a.MinStock,
			&a.CurrentStock, &a.Message, &a.Active, &a.Notified, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}

	attrs := s.metrics.WithServiceName(nil)
	s.metrics.ActiveAlerts.Record(ctx, int64(len(alerts)), metric.WithAttributes(attrs...))

	return alerts, rows.Err()
}

// MarkAlertNotified flips the notified flag on one alert.
func (s *InventoryService) MarkAlertNotified(ctx context.Context, alertID int64) error {
	start := time.Now()
	query := "UPDATE inventory_alerts SET notified = TRUE WHERE id = ?"
	result, err := s.db.ExecContext(ctx, query, alertID)
	s.metrics.RecordDBQuery(ctx, "UPDATE", "inventory_alerts", query, start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to mark alert notified: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return apperrors.E(apperrors.NotFound, "alert not found")
	}
	return nil
}
