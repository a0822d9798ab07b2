// Package notify persists user notifications. Delivery is fire-and-forget:
// a failed insert is logged and never propagated into the calling workflow.
package notify

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/yorusito/shop-backend/internal/apperrors"
	"github.com/yorusito/shop-backend/internal/db"
	"github.com/yorusito/shop-backend/internal/metrics"
	"github.com/yorusito/shop-backend/internal/models"
)

// Notification types.
const (
	TypeOrderStatus    = "ORDER_STATUS"
	TypePaymentSuccess = "PAYMENT_SUCCESS"
	TypeStockAlert     = "STOCK_ALERT"
)

// Notifier is the sink order and payment workflows report to.
type Notifier interface {
	Notify(ctx context.Context, userID int64, notifType, title, message string, refID int64, refType string)
}

// Service stores notifications in the notifications table and serves the
// read side for the user-facing endpoints.
type Service struct {
	db      *db.DB
	metrics *metrics.AppMetrics
}

// NewService creates a new notification service.
func NewService(database *db.DB, m *metrics.AppMetrics) *Service {
	return &Service{db: database, metrics: m}
}

// Notify persists one notification. Errors are logged, not returned.
func (s *Service) Notify(ctx context.Context, userID int64, notifType, title, message string, refID int64, refType string) {
	start := time.Now()
	query := "INSERT INTO notifications (user_id, notification_type, title, message, ref_id, ref_type, is_read) VALUES (?, ?, ?, ?, ?, ?, FALSE)"
	_, err := s.db.ExecContext(ctx, query, userID, notifType, title, message, refID, refType)
	s.metrics.RecordDBQuery(ctx, "INSERT", "notifications", query, start, err == nil)
	if err != nil {
		log.Printf("[NOTIFY] failed to store notification for user %d: %v", userID, err)
	}
}

// ListForUser returns a user's notifications, newest first.
func (s *Service) ListForUser(ctx context.Context, userID int64, limit, offset int) ([]models.Notification, error) {
	start := time.Now()
	query := `SELECT id, user_id, notification_type, title, message, ref_id, ref_type, is_read, created_at
		FROM notifications WHERE user_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, userID, limit, offset)
	s.metrics.RecordDBQuery(ctx, "SELECT", "notifications", query, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		var refID sql.NullInt64
		var refType sql.NullString
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message,
			&refID, &refType, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if refID.Valid {
			n.RefID = &refID.Int64
		}
		n.RefType = refType.String
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkRead flips one notification to read, scoped to its owner.
func (s *Service) MarkRead(ctx context.Context, userID, notificationID int64) error {
	start := time.Now()
	query := "UPDATE notifications SET is_read = TRUE WHERE id = ? AND user_id = ?"
	result, err := s.db.ExecContext(ctx, query, notificationID, userID)
	s.metrics.RecordDBQuery(ctx, "UPDATE", "notifications", query, start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return apperrors.E(apperrors.NotFound, "notification not found")
	}
	return nil
}
