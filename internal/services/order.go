package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yorusito/shop-backend/internal/apperrors"
	"github.com/yorusito/shop-backend/internal/db"
	"github.com/yorusito/shop-backend/internal/metrics"
	"github.com/yorusito/shop-backend/internal/models"
	"github.com/yorusito/shop-backend/internal/notify"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OrderService converts carts into immutable order snapshots and tracks
// order status through its lifecycle.
type OrderService struct {
	db        *db.DB
	metrics   *metrics.AppMetrics
	inventory *InventoryService
	notifier  notify.Notifier
}

// NewOrderService creates a new order service.
func NewOrderService(database *db.DB, m *metrics.AppMetrics, inventory *InventoryService, notifier notify.Notifier) *OrderService {
	return &OrderService{
		db:        database,
		metrics:   m,
		inventory: inventory,
		notifier:  notifier,
	}
}

// orderTotal sums the line subtotals of an order.
func orderTotal(items []models.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// CreateOrder turns the user's cart into an order. Stock checks, the
// snapshot, the ledger decrements and the cart clear all commit in one
// transaction; a failure at any step leaves nothing applied.
func (s *OrderService) CreateOrder(ctx context.Context, userID int64, req models.CreateOrderRequest) (*models.Order, error) {
	var order *models.Order
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		start := time.Now()
		var userEmail string
		userQuery := "SELECT email FROM users WHERE id = ?"
		err := tx.QueryRowContext(ctx, userQuery, userID).Scan(&userEmail)
		s.metrics.RecordDBQuery(ctx, "SELECT", "users", userQuery, start, err == nil || err == sql.ErrNoRows)
		if err == sql.ErrNoRows {
			return apperrors.E(apperrors.NotFound, "user not found")
		}
		if err != nil {
			return fmt.Errorf("failed to load user: %w", err)
		}

		// Lock the cart's product rows so concurrent checkouts on the
		// same product serialize before the stock check.
		start = time.Now()
		cartQuery := `SELECT ci.product_id, ci.quantity, ci.unit_price, p.name, p.description, p.stock
			FROM cart_items ci JOIN products p ON ci.product_id = p.id
			WHERE ci.user_id = ? ORDER BY ci.product_id FOR UPDATE`
		rows, err := tx.QueryContext(ctx, cartQuery, userID)
		s.metrics.RecordDBQuery(ctx, "SELECT", "cart_items", cartQuery, start, err == nil)
		if err != nil {
			return fmt.Errorf("failed to get cart items: %w", err)
		}

		type cartLine struct {
			productID   int64
			quantity    int
			unitPrice   decimal.Decimal
			name        string
			description string
			stock       int
		}
		var lines []cartLine
		for rows.Next() {
			var line cartLine
			if err := rows.Scan(&line.productID, &line.quantity, &line.unitPrice,
				&line.name, &line.description, &line.stock); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan cart item: %w", err)
			}
			lines = append(lines, line)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to read cart items: %w", err)
		}

		if len(lines) == 0 {
			return apperrors.E(apperrors.EmptyCart, "cart is empty")
		}

		var items []models.OrderItem
		for _, line := range lines {
			if line.stock < line.quantity {
				return apperrors.Ef(apperrors.InsufficientStock, "insufficient stock for product: %s", line.name)
			}
			items = append(items, models.OrderItem{
				ProductID:          line.productID,
				ProductName:        line.name,
				ProductDescription: line.description,
				Quantity:           line.quantity,
				UnitPrice:          line.unitPrice,
				Subtotal:           line.unitPrice.Mul(decimal.NewFromInt(int64(line.quantity))),
			})
		}
		total := orderTotal(items)

		start = time.Now()
		orderQuery := "INSERT INTO orders (user_id, status, total, shipping_address, contact_phone, notes) VALUES (?, ?, ?, ?, ?, ?)"
		result, err := tx.ExecContext(ctx, orderQuery, userID, models.OrderPending, total,
			req.ShippingAddress, req.ContactPhone, req.Notes)
		s.metrics.RecordDBQuery(ctx, "INSERT", "orders", orderQuery, start, err == nil)
		if err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		orderID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get order ID: %w", err)
		}

		itemQuery := `INSERT INTO order_items
			(order_id, product_id, product_name, product_description, quantity, unit_price)
			VALUES (?, ?, ?, ?, ?, ?)`
		for i := range items {
			items[i].OrderID = orderID
			start = time.Now()
			itemResult, err := tx.ExecContext(ctx, itemQuery, orderID, items[i].ProductID,
				items[i].ProductName, items[i].ProductDescription, items[i].Quantity, items[i].UnitPrice)
			s.metrics.RecordDBQuery(ctx, "INSERT", "order_items", itemQuery, start, err == nil)
			if err != nil {
				return fmt.Errorf("failed to create order item: %w", err)
			}
			items[i].ID, _ = itemResult.LastInsertId()
		}

		// Route every decrement through the ledger so products.stock and
		// the movement log stay consistent for order-driven changes too.
		for _, item := range items {
			oid := orderID
			_, err := s.inventory.ApplyMovementTx(ctx, tx, models.MovementRequest{
				ProductID: item.ProductID,
				Type:      models.MovementOut,
				Quantity:  item.Quantity,
				Reason:    "order",
				OrderID:   &oid,
			}, userEmail)
			if err != nil {
				return err
			}
		}

		start = time.Now()
		clearQuery := "DELETE FROM cart_items WHERE user_id = ?"
		_, err = tx.ExecContext(ctx, clearQuery, userID)
		s.metrics.RecordDBQuery(ctx, "DELETE", "cart_items", clearQuery, start, err == nil)
		if err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}

		now := time.Now()
		order = &models.Order{
			ID:              orderID,
			UserID:          userID,
			Status:          models.OrderPending,
			Total:           total,
			ShippingAddress: req.ShippingAddress,
			ContactPhone:    req.ContactPhone,
			Notes:           req.Notes,
			Items:           items,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	orderAttrs := s.metrics.WithServiceName([]attribute.KeyValue{
		attribute.String("order_status", string(order.Status)),
	})
	s.metrics.OrdersCreated.Add(ctx, 1, metric.WithAttributes(orderAttrs...))

	total, _ := order.Total.Float64()
	log.Printf("[ORDER] order created: order_id=%d user_id=%d total=%.2f items=%d",
		order.ID, userID, total, len(order.Items))

	return order, nil
}

// GetOrder returns one order with its items. Non-admin callers only see
// their own orders.
func (s *OrderService) GetOrder(ctx context.Context, orderID, requesterID int64, isAdmin bool) (*models.Order, error) {
	start := time.Now()
	query := `SELECT id, user_id, status, total, shipping_address, contact_phone, notes, created_at, updated_at
		FROM orders WHERE id = ?`
	var order models.Order
	err := s.db.QueryRowContext(ctx, query, orderID).Scan(
		&order.ID, &order.UserID, &order.Status, &order.Total,
		&order.ShippingAddress, &order.ContactPhone, &order.Notes,
		&order.CreatedAt, &order.UpdatedAt,
	)
	s.metrics.RecordDBQuery(ctx, "SELECT", "orders", query, start, err == nil || err == sql.ErrNoRows)
	if err == sql.ErrNoRows {
		return nil, apperrors.E(apperrors.NotFound, "order not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if !isAdmin && order.UserID != requesterID {
		return nil, apperrors.E(apperrors.Forbidden, "order belongs to another user")
	}

	items, err := s.getOrderItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return &order, nil
}

func (s *OrderService) getOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	start := time.Now()
	query := `SELECT id, order_id, product_id, product_name, product_description, quantity, unit_price
		FROM order_items WHERE order_id = ? ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, orderID)
	s.metrics.RecordDBQuery(ctx, "SELECT", "order_items", query, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName,
			&item.ProductDescription, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		item.Subtotal = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListUserOrders returns a user's orders, newest first.
func (s *OrderService) ListUserOrders(ctx context.Context, userID int64, limit, offset int) ([]models.Order, error) {
	query := `SELECT id, user_id, status, total, shipping_address, contact_phone, notes, created_at, updated_at
		FROM orders WHERE user_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`
	return s.listOrders(ctx, query, userID, limit, offset)
}

// ListAllOrders returns every order, newest first (admin).
func (s *OrderService) ListAllOrders(ctx context.Context, limit, offset int) ([]models.Order, error) {
	query := `SELECT id, user_id, status, total, shipping_address, contact_phone, notes, created_at, updated_at
		FROM orders ORDER BY created_at DESC LIMIT ? OFFSET ?`
	return s.listOrders(ctx, query, limit, offset)
}

func (s *OrderService) listOrders(ctx context.Context, query string, args ...any) ([]models.Order, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query, args...)
	s.metrics.RecordDBQuery(ctx, "SELECT", "orders", query, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var order models.Order
		if err := rows.Scan(&order.ID, &order.UserID, &order.Status, &order.Total,
			&order.ShippingAddress, &order.ContactPhone, &order.Notes,
			&order.CreatedAt, &order.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// UpdateStatus overwrites an order's status (admin). The status must be a
// known value; no transition graph is enforced beyond that.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID int64, status models.OrderStatus) error {
	if !models.ValidOrderStatus(status) {
		return apperrors.Ef(apperrors.Validation, "invalid status: %s", status)
	}

	start := time.Now()
	query := "UPDATE orders SET status = ?, updated_at = NOW() WHERE id = ?"
	result, err := s.db.ExecContext(ctx, query, status, orderID)
	s.metrics.RecordDBQuery(ctx, "UPDATE", "orders", query, start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return apperrors.E(apperrors.NotFound, "order not found")
	}

	log.Printf("[ORDER] status updated: order_id=%d status=%s", orderID, status)

	if s.notifier != nil {
		var userID int64
		ownerQuery := "SELECT user_id FROM orders WHERE id = ?"
		if err := s.db.QueryRowContext(ctx, ownerQuery, orderID).Scan(&userID); err == nil {
			s.notifier.Notify(ctx, userID, notify.TypeOrderStatus,
				"Order update",
				fmt.Sprintf("Your order #%d is now %s", orderID, status),
				orderID, "order")
		}
	}
	return nil
}

// markPaidTx flips an order to PAID inside a payment transaction.
func (s *OrderService) markPaidTx(ctx context.Context, tx *sql.Tx, orderID int64) error {
	start := time.Now()
	query := "UPDATE orders SET status = ?, updated_at = NOW() WHERE id = ?"
	_, err := tx.ExecContext(ctx, query, models.OrderPaid, orderID)
	s.metrics.RecordDBQuery(ctx, "UPDATE", "orders", query, start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to mark order paid: %w", err)
	}
	return nil
}
