package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/yorusito/shop-backend/internal/apperrors"
	"github.com/yorusito/shop-backend/internal/db"
	"github.com/yorusito/shop-backend/internal/metrics"
	"github.com/yorusito/shop-backend/internal/models"
	"go.opentelemetry.io/otel/metric"
)

const productColumns = "id, name, description, price, stock, image_url, COALESCE(category_id, 0), active, created_at, updated_at"

// nullableID maps a zero ID to NULL so optional foreign keys stay valid.
func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

// ProductCache holds recently read products with a TTL.
type ProductCache struct {
	mu    sync.RWMutex
	items map[int64]cachedProduct
}

type cachedProduct struct {
	product models.Product
	expires time.Time
}

// ProductService is the catalog store: product and category reads and
// admin-side writes. Stock is never mutated here; that belongs to the
// inventory ledger.
type ProductService struct {
	db      *db.DB
	metrics *metrics.AppMetrics
	cache   ProductCache
}

// NewProductService creates a new product service
func NewProductService(database *db.DB, m *metrics.AppMetrics) *ProductService {
	return &ProductService{
		db:      database,
		metrics: m,
		cache:   ProductCache{items: make(map[int64]cachedProduct)},
	}
}

// ListProducts returns a paginated list of active products.
func (s *ProductService) ListProducts(ctx context.Context, limit, offset int) ([]models.Product, error) {
	start := time.Now()
	query := "SELECT " + productColumns + " FROM products WHERE active = TRUE ORDER BY id LIMIT ? OFFSET ?"
	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	s.metrics.RecordDBQuery(ctx, "SELECT", "products", query, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

// SearchProducts returns active products whose name matches the term.
func (s *ProductService) SearchProducts(ctx context.Context, term string, limit, offset int) ([]models.Product, error) {
	start := time.Now()
	query := "SELECT " + productColumns + " FROM products WHERE active = TRUE AND name LIKE ? ORDER BY id LIMIT ? OFFSET ?"
	rows, err := s.db.QueryContext(ctx, query, "%"+term+"%", limit, offset)
	s.metrics.RecordDBQuery(ctx, "SELECT", "products", query, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

// ListProductsByCategory returns active products within one category.
func (s *ProductService) ListProductsByCategory(ctx context.Context, categoryID int64, limit, offset int) ([]models.Product, error) {
	start := time.Now()
	query := "SELECT " + productColumns + " FROM products WHERE active = TRUE AND category_id = ? ORDER BY id LIMIT ? OFFSET ?"
	rows, err := s.db.QueryContext(ctx, query, categoryID, limit, offset)
	s.metrics.RecordDBQuery(ctx, "SELECT", "products", query, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query products by category: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

// GetProduct returns a product by ID, served from the TTL cache when fresh.
func (s *ProductService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	s.cache.mu.RLock()
	if cached, exists := s.cache.items[id]; exists && time.Now().Before(cached.expires) {
		s.cache.mu.RUnlock()
		s.metrics.CacheHits.Add(ctx, 1, metric.WithAttributes(s.metrics.WithServiceName(nil)...))
		p := cached.product
		return &p, nil
	}
	s.cache.mu.RUnlock()

	s.metrics.CacheMisses.Add(ctx, 1, metric.WithAttributes(s.metrics.WithServiceName(nil)...))

	start := time.Now()
	query := "SELECT " + productColumns + " FROM products WHERE id = ?"
	var p models.Product
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.ImageURL,
		&p.CategoryID, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	s.metrics.RecordDBQuery(ctx, "SELECT", "products", query, start, err == nil || err == sql.ErrNoRows)

	if err == sql.ErrNoRows {
		return nil, apperrors.E(apperrors.NotFound, "product not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	s.cache.mu.Lock()
	s.cache.items[id] = cachedProduct{product: p, expires: time.Now().Add(5 * time.Minute)}
	s.cache.mu.Unlock()

	return &p, nil
}

// CreateProduct inserts a new catalog product (admin).
func (s *ProductService) CreateProduct(ctx context.Context, req models.CreateProductRequest) (*models.Product, error) {
	if req.Name == "" {
		return nil, apperrors.E(apperrors.Validation, "product name is required")
	}
	if req.Price.IsNegative() {
		return nil, apperrors.E(apperrors.Validation, "product price must not be negative")
	}
	if req.Stock < 0 {
		return nil, apperrors.E(apperrors.Validation, "product stock must not be negative")
	}

	start := time.Now()
	query := "INSERT INTO products (name, description, price, stock, image_url, category_id, active) VALUES (?, ?, ?, ?, ?, ?, TRUE)"
	result, err := s.db.ExecContext(ctx, query, req.Name, req.Description, req.Price, req.Stock, req.ImageURL, nullableID(req.CategoryID))
	s.metrics.RecordDBQuery(ctx, "INSERT", "products", query, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get product ID: %w", err)
	}
	return s.GetProduct(ctx, id)
}

// UpdateProduct rewrites a product's catalog fields (admin). Stock is
// untouched; only inventory movements may change it.
func (s *ProductService) UpdateProduct(ctx context.Context, id int64, req models.UpdateProductRequest) (*models.Product, error) {
	if req.Name == "" {
		return nil, apperrors.E(apperrors.Validation, "product name is required")
	}
	if req.Price.IsNegative() {
		return nil, apperrors.E(apperrors.Validation, "product price must not be negative")
	}

	start := time.Now()
	query := "UPDATE products SET name = ?, description = ?, price = ?, image_url = ?, category_id = ?, updated_at = NOW() WHERE id = ?"
	result, err := s.db.ExecContext(ctx, query, req.Name, req.Description, req.Price, req.ImageURL, nullableID(req.CategoryID), id)
	s.metrics.RecordDBQuery(ctx, "UPDATE", "products", query, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return nil, apperrors.E(apperrors.NotFound, "product not found")
	}

	s.Invalidate(id)
	return s.GetProduct(ctx, id)
}

// DeactivateProduct flips a product inactive so it stops being sellable
// without breaking existing order snapshots.
func (s *ProductService) DeactivateProduct(ctx context.Context, id int64) error {
	start := time.Now()
	query := "UPDATE products SET active = FALSE, updated_at = NOW() WHERE id = ?"
	result, err := s.db.ExecContext(ctx, query, id)
	s.metrics.RecordDBQuery(ctx, "UPDATE", "products", query, start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to deactivate product: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return apperrors.E(apperrors.NotFound, "product not found")
	}

	s.Invalidate(id)
	return nil
}

// ListCategories returns all categories.
func (s *ProductService) ListCategories(ctx context.Context) ([]models.Category, error) {
	start := time.Now()
	query := "SELECT id, name, description, created_at FROM categories ORDER BY name"
	rows, err := s.db.QueryContext(ctx, query)
	s.metrics.RecordDBQuery(ctx, "SELECT", "categories", query, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// CreateCategory inserts a category (admin).
func (s *ProductService) CreateCategory(ctx context.Context, name, description string) (*models.Category, error) {
	if name == "" {
		return nil, apperrors.E(apperrors.Validation, "category name is required")
	}

	start := time.Now()
	query := "INSERT INTO categories (name, description) VALUES (?, ?)"
	result, err := s.db.ExecContext(ctx, query, name, description)
	s.metrics.RecordDBQuery(ctx, "INSERT", "categories", query, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get category ID: %w", err)
	}
	return &models.Category{ID: id, Name: name, Description: description, CreatedAt: time.Now()}, nil
}

// Invalidate drops one product from the cache after a write. The stock
// ledger calls it so catalog reads never serve a stale stock count.
func (s *ProductService) Invalidate(id int64) {
	s.cache.mu.Lock()
	delete(s.cache.items, id)
	s.cache.mu.Unlock()
}

func scanProducts(rows *sql.Rows) ([]models.Product, error) {
	var products []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.ImageURL,
			&p.CategoryID, &p.Active, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
