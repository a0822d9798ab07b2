package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/yorusito/shop-backend/internal/apperrors"
	"github.com/yorusito/shop-backend/internal/db"
	"github.com/yorusito/shop-backend/internal/metrics"
	"github.com/yorusito/shop-backend/internal/middleware"
	"github.com/yorusito/shop-backend/internal/models"
	"github.com/yorusito/shop-backend/internal/notify"
	"github.com/yorusito/shop-backend/internal/services"
	"github.com/yorusito/shop-backend/pkg/config"
)

// App holds application dependencies
type App struct {
	config           *config.Config
	db               *db.DB
	metrics          *metrics.AppMetrics
	productService   *services.ProductService
	cartService      *services.CartService
	orderService     *services.OrderService
	paymentService   *services.PaymentService
	inventoryService *services.InventoryService
	userService      *services.UserService
	notifyService    *notify.Service
}

// NewApp creates a new application instance
func NewApp(
	cfg *config.Config,
	database *db.DB,
	m *metrics.AppMetrics,
	ps *services.ProductService,
	cs *services.CartService,
	os *services.OrderService,
	pays *services.PaymentService,
	is *services.InventoryService,
	us *services.UserService,
	ns *notify.Service,
) *App {
	return &App{
		config:           cfg,
		db:               database,
		metrics:          m,
		productService:   ps,
		cartService:      cs,
		orderService:     os,
		paymentService:   pays,
		inventoryService: is,
		userService:      us,
		notifyService:    ns,
	}
}

// SetupRoutes configures the HTTP routes
func (a *App) SetupRoutes(r *mux.Router) {
	// Middleware
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.CORSMiddleware)
	r.Use(middleware.RecoverMiddleware)
	r.Use(middleware.MetricsMiddleware(a.metrics))

	// API Routes
	api := r.PathPrefix("/api/v1").Subrouter()

	// Catalog
	api.HandleFunc("/products", a.ListProductsHandler).Methods("GET")
	api.HandleFunc("/products", a.CreateProductHandler).Methods("POST")
	api.HandleFunc("/products/{id}", a.GetProductHandler).Methods("GET")
	api.HandleFunc("/products/{id}", a.UpdateProductHandler).Methods("PUT")
	api.HandleFunc("/products/{id}", a.DeactivateProductHandler).Methods("DELETE")
	api.HandleFunc("/categories", a.ListCategoriesHandler).Methods("GET")
	api.HandleFunc("/categories", a.CreateCategoryHandler).Methods("POST")

	// Cart
	api.HandleFunc("/cart", a.GetCartHandler).Methods("GET")
	api.HandleFunc("/cart", a.ClearCartHandler).Methods("DELETE")
	api.HandleFunc("/cart/items", a.AddToCartHandler).Methods("POST")
	api.HandleFunc("/cart/items/{id}", a.RemoveFromCartHandler).Methods("DELETE")

	// Orders
	api.HandleFunc("/orders", a.CreateOrderHandler).Methods("POST")
	api.HandleFunc("/orders", a.ListOrdersHandler).Methods("GET")
	api.HandleFunc("/orders/all", a.ListAllOrdersHandler).Methods("GET")
	api.HandleFunc("/orders/{id}", a.GetOrderHandler).Methods("GET")
	api.HandleFunc("/orders/{id}/status", a.UpdateOrderStatusHandler).Methods("PUT")
	api.HandleFunc("/orders/{id}/payments", a.ListOrderPaymentsHandler).Methods("GET")

	// Payments
	api.HandleFunc("/payments", a.ProcessPaymentHandler).Methods("POST")
	api.HandleFunc("/payments/mine", a.ListMyPaymentsHandler).Methods("GET")
	api.HandleFunc("/payments/sweep", a.SweepPaymentsHandler).Methods("POST")
	api.HandleFunc("/payments/{id}/verify", a.VerifyPaymentHandler).Methods("POST")

	// Inventory
	api.HandleFunc("/inventory/movements", a.RecordMovementHandler).Methods("POST")
	api.HandleFunc("/inventory/movements", a.ListMovementsHandler).Methods("GET")
	api.HandleFunc("/inventory/stock", a.ListStockHandler).Methods("GET")
	api.HandleFunc("/inventory/stock/low", a.ListLowStockHandler).Methods("GET")
	api.HandleFunc("/inventory/alerts", a.ListAlertsHandler).Methods("GET")
	api.HandleFunc("/inventory/alerts/{id}/notified", a.MarkAlertNotifiedHandler).Methods("PUT")

	// Notifications
	api.HandleFunc("/notifications", a.ListNotificationsHandler).Methods("GET")
	api.HandleFunc("/notifications/{id}/read", a.MarkNotificationReadHandler).Methods("PUT")

	// Users
	api.HandleFunc("/users", a.CreateUserHandler).Methods("POST")
	api.HandleFunc("/users/{id}", a.GetUserHandler).Methods("GET")

	// Health
	r.HandleFunc("/health", a.HealthHandler).Methods("GET")
}

// respondJSON writes v as a JSON response body.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// respondError maps application error kinds to HTTP status codes.
// Unknown errors are logged and answered with a generic 500 so internal
// detail never leaks to clients.
func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := err.Error()

	switch apperrors.KindOf(err) {
	case apperrors.NotFound:
		status = http.StatusNotFound
	case apperrors.Forbidden:
		status = http.StatusForbidden
	case apperrors.Validation, apperrors.EmptyCart:
		status = http.StatusBadRequest
	case apperrors.Unavailable, apperrors.InsufficientStock, apperrors.AlreadyPaid:
		status = http.StatusConflict
	case apperrors.GatewayError:
		status = http.StatusBadGateway
	default:
		log.Printf("[API] internal error: %v", err)
		message = "internal server error"
	}

	respondJSON(w, status, map[string]string{"error": message})
}

// requireUserID reads the caller's identity from the X-User-ID header.
// There is no real auth layer here; the header stands in for a verified
// token subject.
func requireUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.Header.Get("X-User-ID")
	if raw == "" {
		respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "X-User-ID header is required"})
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "X-User-ID header must be a positive integer"})
		return 0, false
	}
	return id, true
}

func isAdmin(r *http.Request) bool {
	return r.Header.Get("X-Admin") == "true"
}

// requireAdmin gates admin-only routes on the X-Admin header.
func requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if !isAdmin(r) {
		respondJSON(w, http.StatusForbidden, map[string]string{"error": "admin access required"})
		return false
	}
	return true
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

// pagination reads limit/offset query params with sane defaults.
func pagination(r *http.Request) (limit, offset int) {
	limit, offset = 20, 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return limit, offset
}

// HealthHandler handles health check requests
func (a *App) HealthHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// ListProductsHandler handles GET /api/v1/products.
// Supports ?q= text search and ?category_id= filtering.
func (a *App) ListProductsHandler(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	var (
		products []models.Product
		err      error
	)
	switch {
	case r.URL.Query().Get("q") != "":
		products, err = a.productService.SearchProducts(r.Context(), r.URL.Query().Get("q"), limit, offset)
	case r.URL.Query().Get("category_id") != "":
		var categoryID int64
		categoryID, err = strconv.ParseInt(r.URL.Query().Get("category_id"), 10, 64)
		if err != nil {
			respondError(w, apperrors.E(apperrors.Validation, "invalid category ID"))
			return
		}
		products, err = a.productService.ListProductsByCategory(r.Context(), categoryID, limit, offset)
	default:
		products, err = a.productService.ListProducts(r.Context(), limit, offset)
	}
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

// GetProductHandler handles GET /api/v1/products/{id}
func (a *App) GetProductHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, apperrors.E(apperrors.Validation, "invalid product ID"))
		return
	}

	product, err := a.productService.GetProduct(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

// CreateProductHandler handles POST /api/v1/products (admin)
func (a *App) CreateProductHandler(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	var req models.CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperrors.E(apperrors.Validation, "invalid request body"))
		return
	}

	product, err := a.productService.CreateProduct(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, product)
}

// UpdateProductHandler handles PUT /api/v1/products/{id} (admin)
func (a *App) UpdateProductHandler(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	id, err := pathID(r)
	if err != nil {
		respondError(w, apperrors.E(apperrors.Validation, "invalid product ID"))
		return
	}

	var req models.UpdateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperrors.E(apperrors.Validation, "invalid request body"))
		return
	}

	product, err := a.productService.UpdateProduct(r.Context(), id, req)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

// DeactivateProductHandler handles DELETE /api/v1/products/{id} (admin)
func (a *App) DeactivateProductHandler(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	id, err := pathID(r)
	if err != nil {
		respondError(w, apperrors.E(apperrors.Validation, "invalid product ID"))
		return
	}

	if err := a.productService.DeactivateProduct(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

// ListCategoriesHandler handles GET /api/v1/categories
func (a *App) ListCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	categories, err := a.productService.ListCategories(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, categories)
}

// CreateCategoryHandler handles POST /api/v1/categories (admin)
func (a *App) CreateCategoryHandler(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperrors.E(apperrors.Validation, "invalid request body"))
		return
	}

	category, err := a.productService.CreateCategory(r.Context(), req.Name, req.Description)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, category)
}

// AddToCartHandler handles POST /api/v1/cart/items
func (a *App) AddToCartHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req models.AddToCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperrors.E(apperrors.Validation, "invalid request body"))
		return
	}

	item, err := a.cartService.AddToCart(r.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, item)
}

// RemoveFromCartHandler handles DELETE /api/v1/cart/items/{id}
func (a *App) RemoveFromCartHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	itemID, err := pathID(r)
	if err != nil {
		respondError(w, apperrors.E(apperrors.Validation, "invalid cart item ID"))
		return
	}

	if err := a.cartService.RemoveFromCart(r.Context(), userID, itemID); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// ClearCartHandler handles DELETE /api/v1/cart
func (a *App) ClearCartHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := a.cartService.ClearCart(r.Context(), userID); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// GetCartHandler handles GET /api/v1/cart
func (a *App) GetCartHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	cart, err := a.cartService.GetCart(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

// CreateOrderHandler handles POST /api/v1/orders
func (a *App) CreateOrderHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req models.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperrors.E(apperrors.Validation, "invalid request body"))
		return
	}

	order, err := a.orderService.CreateOrder(r.Context(), userID, req)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, order)
}

// GetOrderHandler handles GET /api/v1/orders/{id}
func (a *App) GetOrderHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	id, err := pathID(r)
	if err != nil {
		respondError(w, apperrors.E(apperrors.Validation, "invalid order ID"))
		return
	}

	order, err := a.orderService.GetOrder(r.Context(), id, userID, isAdmin(r))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// ListOrdersHandler handles GET /api/v1/orders
func (a *App) ListOrdersHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	limit, offset := pagination(r)
	orders, err := a.orderService.ListUserOrders(r.Context(), userID, limit, offset)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

// ListAllOrdersHandler handles GET /api/v1/orders/all (admin)
func (a *App) ListAllOrdersHandler(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	limit, offset := pagination(r)
	orders, err := a.orderService.ListAllOrders(r.Context(), limit, offset)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

// UpdateOrderStatusHandler handles PUT /api/v1/orders/{id}/status (admin)
func (a *App) UpdateOrderStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	orderID, err := pathID(r)
	if err != nil {
		respondError(w, apperrors.E(apperrors.Validation, "invalid order ID"))
		return
	}

	var req models.UpdateOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperrors.E(apperrors.Validation, "invalid request body"))
		return
	}

	if err := a.orderService.UpdateStatus(r.Context(), orderID, req.Status); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// ListOrderPaymentsHandler handles GET /api/v1/orders/{id}/payments
func (a *App) ListOrderPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	orderID, err := pathID(r)
	if err != nil {
		respondError(w, apperrors.E(apperrors.Validation, "invalid order ID"))
		return
	}

	// Ownership check rides on GetOrder.
	if _, err := a.orderService.GetOrder(r.Context(), orderID, userID, isAdmin(r)); err != nil {
		respondError(w, err)
		return
	}

	payments, err := a.paymentService.ListPaymentsByOrder(r.Context(), orderID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, payments)
}

// ProcessPaymentHandler handles POST /api/v1/payments
func (a *App) ProcessPaymentHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req models.ProcessPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperrors.E(apperrors.Validation, "invalid request body"))
		return
	}

	payment, err := a.paymentService.ProcessPayment(r.Context(), userID, req)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, payment)
}

// VerifyPaymentHandler handles POST /api/v1/payments/{id}/verify
func (a *App) VerifyPaymentHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}

	paymentID, err := pathID(r)
	if err != nil {
		respondError(w, apperrors.E(apperrors.Validation, "invalid payment ID"))
		return
	}

	payment, err := a.paymentService.VerifyPaymentStatus(r.Context(), paymentID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, payment)
}

// SweepPaymentsHandler handles POST /api/v1/payments/sweep (admin)
func (a *App) SweepPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	reconciled, err := a.paymentService.SweepPendingPayments(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"reconciled": reconciled})
}

// ListMyPaymentsHandler handles GET /api/v1/payments/mine
func (a *App) ListMyPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	payments, err := a.paymentService.ListSuccessfulPaymentsByUser(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, payments)
}

// RecordMovementHandler handles POST /api/v1/inventory/movements (admin)
func (a *App) RecordMovementHandler(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req models.MovementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperrors.E(apperrors.Validation, "invalid request body"))
		return
	}

	actor := "admin"
	if user, err := a.userService.GetUser(r.Context(), userID); err == nil {
		actor = user.Email
	}

	movement, err := a.inventoryService.RecordMovement(r.Context(), req, actor)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, movement)
}

// ListMovementsHandler handles GET /api/v1/inventory/movements (admin).
// Supports ?product_id=, ?from=, ?to= (RFC 3339) filters.
func (a *App) ListMovementsHandler(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	var productID *int64
	if raw := r.URL.Query().Get("product_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			respondError(w, apperrors.E(apperrors.Validation, "invalid product ID"))
			return
		}
		productID = &parsed
	}

	var from, to *time.Time
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(w, apperrors.E(apperrors.Validation, "from must be an RFC 3339 timestamp"))
			return
		}
		from = &parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(w, apperrors.E(apperrors.Validation, "to must be an RFC 3339 timestamp"))
			return
		}
		to = &parsed
	}

	limit, offset := pagination(r)
	movements, err := a.inventoryService.ListMovements(r.Context(), productID, from, to, limit, offset)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, movements)
}

// ListStockHandler handles GET /api/v1/inventory/stock (admin)
func (a *App) ListStockHandler(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	stock, err := a.inventoryService.ListProductStock(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stock)
}

// ListLowStockHandler handles GET /api/v1/inventory/stock/low (admin)
func (a *App) ListLowStockHandler(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	stock, err := a.inventoryService.ListLowStockProducts(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stock)
}

// ListAlertsHandler handles GET /api/v1/inventory/alerts (admin)
func (a *App) ListAlertsHandler(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	alerts, err := a.inventoryService.ListActiveAlerts(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, alerts)
}

// MarkAlertNotifiedHandler handles PUT /api/v1/inventory/alerts/{id}/notified (admin)
func (a *App) MarkAlertNotifiedHandler(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	alertID, err := pathID(r)
	if err != nil {
		respondError(w, apperrors.E(apperrors.Validation, "invalid alert ID"))
		return
	}

	if err := a.inventoryService.MarkAlertNotified(r.Context(), alertID); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "notified"})
}

// ListNotificationsHandler handles GET /api/v1/notifications
func (a *App) ListNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	limit, offset := pagination(r)
	notifications, err := a.notifyService.ListForUser(r.Context(), userID, limit, offset)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, notifications)
}

// MarkNotificationReadHandler handles PUT /api/v1/notifications/{id}/read
func (a *App) MarkNotificationReadHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	notificationID, err := pathID(r)
	if err != nil {
		respondError(w, apperrors.E(apperrors.Validation, "invalid notification ID"))
		return
	}

	if err := a.notifyService.MarkRead(r.Context(), userID, notificationID); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "read"})
}

// CreateUserHandler handles POST /api/v1/users
func (a *App) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperrors.E(apperrors.Validation, "invalid request body"))
		return
	}

	user, err := a.userService.CreateUser(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

// GetUserHandler handles GET /api/v1/users/{id}
func (a *App) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, apperrors.E(apperrors.Validation, "invalid user ID"))
		return
	}

	user, err := a.userService.GetUser(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}
