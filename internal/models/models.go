package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderConfirmed OrderStatus = "CONFIRMED"
	OrderPaid      OrderStatus = "PAID"
	OrderPreparing OrderStatus = "PREPARING"
	OrderShipped   OrderStatus = "SHIPPED"
	OrderDelivered OrderStatus = "DELIVERED"
	OrderCancelled OrderStatus = "CANCELLED"
)

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderPaid, OrderPreparing,
		OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// PaymentStatus is the lifecycle state of a payment attempt.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "PENDING"
	PaymentProcessing PaymentStatus = "PROCESSING"
	PaymentCompleted  PaymentStatus = "COMPLETED"
	PaymentFailed     PaymentStatus = "FAILED"
)

// MovementType classifies an inventory ledger entry.
type MovementType string

const (
	MovementIn       MovementType = "IN"
	MovementOut      MovementType = "OUT"
	MovementAdjust   MovementType = "ADJUST"
	MovementReturn   MovementType = "RETURN"
	MovementDamage   MovementType = "DAMAGE"
	MovementTransfer MovementType = "TRANSFER"
)

// ValidMovementType reports whether t is a known movement type.
func ValidMovementType(t MovementType) bool {
	switch t {
	case MovementIn, MovementOut, MovementAdjust, MovementReturn,
		MovementDamage, MovementTransfer:
		return true
	}
	return false
}

// Category groups products in the catalog.
type Category struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Product represents a catalog product. Stock is a denormalized counter
// kept consistent with the inventory ledger.
type Product struct {
	ID          int64           `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description" db:"description"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Stock       int             `json:"stock" db:"stock"`
	ImageURL    string          `json:"image_url" db:"image_url"`
	CategoryID  int64           `json:"category_id" db:"category_id"`
	Active      bool            `json:"active" db:"active"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// CartItem is one (user, product) line pending order creation.
// UnitPrice is captured when the line is created and never re-synced.
type CartItem struct {
	ID        int64           `json:"id" db:"id"`
	UserID    int64           `json:"user_id" db:"user_id"`
	ProductID int64           `json:"product_id" db:"product_id"`
	Name      string          `json:"product_name" db:"product_name"`
	Quantity  int             `json:"quantity" db:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price" db:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	AddedAt   time.Time       `json:"added_at" db:"added_at"`
}

// CartResponse is a cart view: lines plus computed totals.
type CartResponse struct {
	Items      []CartItem      `json:"items"`
	Total      decimal.Decimal `json:"total"`
	TotalItems int             `json:"total_items"`
}

// Order is an immutable snapshot of a cart at checkout time.
// Only Status (and UpdatedAt) mutate after creation.
type Order struct {
	ID              int64           `json:"id" db:"id"`
	UserID          int64           `json:"user_id" db:"user_id"`
	Status          OrderStatus     `json:"status" db:"status"`
	Total           decimal.Decimal `json:"total" db:"total"`
	ShippingAddress string          `json:"shipping_address" db:"shipping_address"`
	ContactPhone    string          `json:"contact_phone" db:"contact_phone"`
	Notes           string          `json:"notes" db:"notes"`
	Items           []OrderItem     `json:"items,omitempty"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// OrderItem is one snapshotted order line. Product name, description and
// unit price are copied at creation time and immune to later catalog edits.
type OrderItem struct {
	ID                 int64           `json:"id" db:"id"`
	OrderID            int64           `json:"order_id" db:"order_id"`
	ProductID          int64           `json:"product_id" db:"product_id"`
	ProductName        string          `json:"product_name" db:"product_name"`
	ProductDescription string          `json:"product_description" db:"product_description"`
	Quantity           int             `json:"quantity" db:"quantity"`
	UnitPrice          decimal.Decimal `json:"unit_price" db:"unit_price"`
	Subtotal           decimal.Decimal `json:"subtotal"`
}

// InventoryMovement is one append-only ledger entry.
// StockAfter = StockBefore +/- Quantity (ADJUST sets the absolute value).
type InventoryMovement struct {
	ID          int64        `json:"id" db:"id"`
	ProductID   int64        `json:"product_id" db:"product_id"`
	ProductName string       `json:"product_name" db:"product_name"`
	Type        MovementType `json:"type" db:"movement_type"`
	Quantity    int          `json:"quantity" db:"quantity"`
	StockBefore int          `json:"stock_before" db:"stock_before"`
	StockAfter  int          `json:"stock_after" db:"stock_after"`
	Reason      string       `json:"reason" db:"reason"`
	OrderID     *int64       `json:"order_id,omitempty" db:"order_id"`
	Actor       string       `json:"actor" db:"actor"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
}

// InventoryAlert flags a low or zero stock condition for one product.
// At most one active alert exists per product; recovery deactivates the
// row instead of deleting it.
type InventoryAlert struct {
	ID           int64     `json:"id" db:"id"`
	ProductID    int64     `json:"product_id" db:"product_id"`
	ProductName  string    `json:"product_name" db:"product_name"`
	MinStock     int       `json:"min_stock" db:"min_stock"`
	CurrentStock int       `json:"current_stock" db:"current_stock"`
	Message      string    `json:"message" db:"message"`
	Active       bool      `json:"active" db:"active"`
	Notified     bool      `json:"notified" db:"notified"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// ProductStock is the inventory view of one product.
type ProductStock struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Stock       int    `json:"stock"`
	MinStock    int    `json:"min_stock"`
	LowStock    bool   `json:"low_stock"`
	OutOfStock  bool   `json:"out_of_stock"`
}

// Payment is one charge attempt against an order. Rows are created in
// PROCESSING (or COMPLETED on the simulated path) and updated in place as
// the gateway responds; they are never deleted.
type Payment struct {
	ID             int64           `json:"id" db:"id"`
	OrderID        int64           `json:"order_id" db:"order_id"`
	ChargeID       string          `json:"charge_id,omitempty" db:"charge_id"`
	IdempotencyKey string          `json:"-" db:"idempotency_key"`
	Status         PaymentStatus   `json:"status" db:"status"`
	Amount         decimal.Decimal `json:"amount" db:"amount"`
	Currency       string          `json:"currency" db:"currency"`
	BuyerEmail     string          `json:"buyer_email" db:"buyer_email"`
	Description    string          `json:"description" db:"description"`
	CardNumber     string          `json:"card_number,omitempty" db:"card_number"`
	CardBrand      string          `json:"card_brand,omitempty" db:"card_brand"`
	Success        bool            `json:"success" db:"success"`
	Message        string          `json:"message" db:"message"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	PaidAt         *time.Time      `json:"paid_at,omitempty" db:"paid_at"`
}

// User represents a shop account.
type User struct {
	ID        int64     `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Notification is one persisted user notification.
type Notification struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Type      string    `json:"type" db:"notification_type"`
	Title     string    `json:"title" db:"title"`
	Message   string    `json:"message" db:"message"`
	RefID     *int64    `json:"ref_id,omitempty" db:"ref_id"`
	RefType   string    `json:"ref_type,omitempty" db:"ref_type"`
	Read      bool      `json:"read" db:"is_read"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// AddToCartRequest is the body for POST /cart/add.
type AddToCartRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// CreateOrderRequest is the body for POST /orders.
type CreateOrderRequest struct {
	ShippingAddress string `json:"shipping_address"`
	ContactPhone    string `json:"contact_phone"`
	Notes           string `json:"notes"`
}

// ProcessPaymentRequest is the body for POST /payments.
type ProcessPaymentRequest struct {
	OrderID     int64           `json:"order_id"`
	CardNumber  string          `json:"card_number"`
	CVV         string          `json:"cvv"`
	ExpMonth    string          `json:"exp_month"`
	ExpYear     string          `json:"exp_year"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
}

// MovementRequest is the body for POST /inventory/movements.
type MovementRequest struct {
	ProductID int64        `json:"product_id"`
	Type      MovementType `json:"type"`
	Quantity  int          `json:"quantity"`
	Reason    string       `json:"reason"`
	OrderID   *int64       `json:"order_id,omitempty"`
}

// CreateUserRequest is the body for POST /users.
type CreateUserRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// UpdateProductRequest is the body for PUT /products/{id}. Stock is
// absent on purpose; stock changes go through inventory movements.
type UpdateProductRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url"`
	CategoryID  int64           `json:"category_id"`
}

// UpdateOrderStatusRequest is the body for PUT /orders/{id}/status.
type UpdateOrderStatusRequest struct {
	Status OrderStatus `json:"status"`
}

// CreateProductRequest is the body for POST /products.
type CreateProductRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	ImageURL    string          `json:"image_url"`
	CategoryID  int64           `json:"category_id"`
}
