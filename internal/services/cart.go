package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yorusito/shop-backend/internal/apperrors"
	"github.com/yorusito/shop-backend/internal/db"
	"github.com/yorusito/shop-backend/internal/metrics"
	"github.com/yorusito/shop-backend/internal/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CartService manages per-user cart lines. A line is keyed by
// (user, product); adding the same product again merges quantities while
// keeping the unit price captured on first add.
type CartService struct {
	db      *db.DB
	metrics *metrics.AppMetrics
}

// NewCartService creates a new cart service and starts the active-carts
// monitor.
func NewCartService(database *db.DB, m *metrics.AppMetrics) *CartService {
	cs := &CartService{
		db:      database,
		metrics: m,
	}
	go cs.monitorActiveCarts()
	return cs
}

// monitorActiveCarts periodically publishes the number of non-empty carts.
func (s *CartService) monitorActiveCarts() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		ctx := context.Background()
		query := "SELECT COUNT(DISTINCT user_id) FROM cart_items"
		start := time.Now()
		var count int
		err := s.db.QueryRowContext(ctx, query).Scan(&count)
		s.metrics.RecordDBQuery(ctx, "SELECT", "cart_items", query, start, err == nil)
		if err == nil {
			s.metrics.CartItemsCount.Record(ctx, int64(count),
				metric.WithAttributes(s.metrics.WithServiceName([]attribute.KeyValue{
					attribute.String("scope", "active_carts"),
				})...))
		}
	}
}

// AddToCart adds quantity units of a product to the user's cart. The
// cumulative quantity (existing line plus the new request) must not exceed
// current stock.
func (s *CartService) AddToCart(ctx context.Context, userID, productID int64, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, apperrors.E(apperrors.Validation, "quantity must be at least 1")
	}

	start := time.Now()
	productQuery := "SELECT name, price, stock, active FROM products WHERE id = ?"
	var name string
	var price decimal.Decimal
	var stock int
	var active bool
	err := s.db.QueryRowContext(ctx, productQuery, productID).Scan(&name, &price, &stock, &active)
	s.metrics.RecordDBQuery(ctx, "SELECT", "products", productQuery, start, err == nil || err == sql.ErrNoRows)
	if err == sql.ErrNoRows {
		return nil, apperrors.E(apperrors.NotFound, "product not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if !active {
		return nil, apperrors.E(apperrors.Unavailable, "product is not available")
	}
	if quantity > stock {
		return nil, apperrors.E(apperrors.InsufficientStock, "not enough stock available")
	}

	start = time.Now()
	checkQuery := "SELECT id, quantity, unit_price FROM cart_items WHERE user_id = ? AND product_id = ?"
	var existingID int64
	var existingQty int
	var existingPrice decimal.Decimal
	err = s.db.QueryRowContext(ctx, checkQuery, userID, productID).Scan(&existingID, &existingQty, &existingPrice)
	s.metrics.RecordDBQuery(ctx, "SELECT", "cart_items", checkQuery, start, err == nil || err == sql.ErrNoRows)

	if err == sql.ErrNoRows {
		start = time.Now()
		insertQuery := "INSERT INTO cart_items (user_id, product_id, quantity, unit_price) VALUES (?, ?, ?, ?)"
		result, err := s.db.ExecContext(ctx, insertQuery, userID, productID, quantity, price)
		s.metrics.RecordDBQuery(ctx, "INSERT", "cart_items", insertQuery, start, err == nil)
		if err != nil {
			return nil, fmt.Errorf("failed to add item to cart: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("failed to get cart item ID: %w", err)
		}
		return &models.CartItem{
			ID:        id,
			UserID:    userID,
			ProductID: productID,
			Name:      name,
			Quantity:  quantity,
			UnitPrice: price,
			Subtotal:  price.Mul(decimal.NewFromInt(int64(quantity))),
			AddedAt:   time.Now(),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check cart item: %w", err)
	}

	newQty := existingQty + quantity
	if newQty > stock {
		return nil, apperrors.E(apperrors.InsufficientStock, "not enough stock for the requested quantity")
	}

	start = time.Now()
	updateQuery := "UPDATE cart_items SET quantity = ? WHERE id = ?"
	_, err = s.db.ExecContext(ctx, updateQuery, newQty, existingID)
	s.metrics.RecordDBQuery(ctx, "UPDATE", "cart_items", updateQuery, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to update cart item: %w", err)
	}

	// Unit price stays as captured when the line was first created.
	return &models.CartItem{
		ID:        existingID,
		UserID:    userID,
		ProductID: productID,
		Name:      name,
		Quantity:  newQty,
		UnitPrice: existingPrice,
		Subtotal:  existingPrice.Mul(decimal.NewFromInt(int64(newQty))),
	}, nil
}

// RemoveFromCart deletes one cart line. Lines can only be removed by
// their owner.
func (s *CartService) RemoveFromCart(ctx context.Context, userID, itemID int64) error {
	start := time.Now()
	checkQuery := "SELECT user_id FROM cart_items WHERE id = ?"
	var ownerID int64
	err := s.db.QueryRowContext(ctx, checkQuery, itemID).Scan(&ownerID)
	s.metrics.RecordDBQuery(ctx, "SELECT", "cart_items", checkQuery, start, err == nil || err == sql.ErrNoRows)
	if err == sql.ErrNoRows {
		return apperrors.E(apperrors.NotFound, "cart item not found")
	}
	if err != nil {
		return fmt.Errorf("failed to check cart item: %w", err)
	}
	if ownerID != userID {
		return apperrors.E(apperrors.Forbidden, "cart item belongs to another user")
	}

	start = time.Now()
	deleteQuery := "DELETE FROM cart_items WHERE id = ?"
	_, err = s.db.ExecContext(ctx, deleteQuery, itemID)
	s.metrics.RecordDBQuery(ctx, "DELETE", "cart_items", deleteQuery, start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	return nil
}

// ClearCart deletes all of the user's cart lines. Clearing an empty cart
// is a no-op.
func (s *CartService) ClearCart(ctx context.Context, userID int64) error {
	start := time.Now()
	query := "DELETE FROM cart_items WHERE user_id = ?"
	_, err := s.db.ExecContext(ctx, query, userID)
	s.metrics.RecordDBQuery(ctx, "DELETE", "cart_items", query, start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// GetCart returns the user's cart lines with the computed total.
func (s *CartService) GetCart(ctx context.Context, userID int64) (*models.CartResponse, error) {
	start := time.Now()
	query := `SELECT ci.id, ci.user_id, ci.product_id, p.name, ci.quantity, ci.unit_price, ci.added_at
		FROM cart_items ci JOIN products p ON ci.product_id = p.id
		WHERE ci.user_id = ? ORDER BY ci.added_at`
	rows, err := s.db.QueryContext(ctx, query, userID)
	s.metrics.RecordDBQuery(ctx, "SELECT", "cart_items", query, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart items: %w", err)
	}
	defer rows.Close()

	items := []models.CartItem{}
	total := decimal.Zero
	for rows.Next() {
		var item models.CartItem
		if err := rows.Scan(&item.ID, &item.UserID, &item.ProductID, &item.Name,
			&item.Quantity, &item.UnitPrice, &item.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		item.Subtotal = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(item.Subtotal)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.updateCartItemsCount(ctx, userID, len(items))

	return &models.CartResponse{
		Items:      items,
		Total:      total,
		TotalItems: len(items),
	}, nil
}

// updateCartItemsCount publishes the cart size gauge for one user.
func (s *CartService) updateCartItemsCount(ctx context.Context, userID int64, count int) {
	attrs := s.metrics.WithServiceName([]attribute.KeyValue{
		attribute.Int64("user_id", userID),
	})
	s.metrics.CartItemsCount.Record(ctx, int64(count), metric.WithAttributes(attrs...))
}
