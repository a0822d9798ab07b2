package services

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yorusito/shop-backend/internal/apperrors"
	"github.com/yorusito/shop-backend/internal/db"
	"github.com/yorusito/shop-backend/internal/metrics"
	"github.com/yorusito/shop-backend/internal/models"
)

func TestComputeStockAfter_InAddsToStock(t *testing.T) {
	after, err := computeStockAfter(models.MovementIn, 10, 5)
	assert.NoError(t, err)
	assert.Equal(t, 15, after)
}

func TestComputeStockAfter_OutSubtracts(t *testing.T) {
	after, err := computeStockAfter(models.MovementOut, 10, 4)
	assert.NoError(t, err)
	assert.Equal(t, 6, after)
}

func TestComputeStockAfter_OutBelowZeroFails(t *testing.T) {
	_, err := computeStockAfter(models.MovementOut, 3, 4)
	assert.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.InsufficientStock))
}

func TestComputeStockAfter_OutExactlyToZero(t *testing.T) {
	after, err := computeStockAfter(models.MovementOut, 4, 4)
	assert.NoError(t, err)
	assert.Equal(t, 0, after)
}

func TestComputeStockAfter_AdjustSetsAbsoluteValue(t *testing.T) {
	after, err := computeStockAfter(models.MovementAdjust, 100, 7)
	assert.NoError(t, err)
	assert.Equal(t, 7, after)

	after, err = computeStockAfter(models.MovementAdjust, 0, 0)
	assert.NoError(t, err)
	assert.Equal(t, 0, after)
}

func TestComputeStockAfter_AnnotationTypesLeaveStockUntouched(t *testing.T) {
	for _, typ := range []models.MovementType{models.MovementReturn, models.MovementDamage, models.MovementTransfer} {
		after, err := computeStockAfter(typ, 12, 99)
		assert.NoError(t, err)
		assert.Equal(t, 12, after, "type %s should not change stock", typ)
	}
}

func TestAlertMessage(t *testing.T) {
	assert.Equal(t, "out of stock", alertMessage(0))
	assert.Equal(t, "low stock: 3 units remaining", alertMessage(3))
	assert.Equal(t, "low stock: 10 units remaining", alertMessage(10))
}

func TestValidateMovement_RejectsUnknownType(t *testing.T) {
	err := validateMovement(models.MovementRequest{ProductID: 1, Type: "SHRINK", Quantity: 1})
	assert.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.Validation))
}

func TestValidateMovement_RejectsNegativeQuantity(t *testing.T) {
	err := validateMovement(models.MovementRequest{ProductID: 1, Type: models.MovementIn, Quantity: -1})
	assert.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.Validation))
}

func TestValidateMovement_RejectsZeroQuantityForNonAdjust(t *testing.T) {
	err := validateMovement(models.MovementRequest{ProductID: 1, Type: models.MovementOut, Quantity: 0})
	assert.Error(t, err)
}

func TestValidateMovement_AllowsZeroQuantityAdjust(t *testing.T) {
	err := validateMovement(models.MovementRequest{ProductID: 1, Type: models.MovementAdjust, Quantity: 0})
	assert.NoError(t, err)
}

func TestValidateMovement_AcceptsWellFormedRequest(t *testing.T) {
	err := validateMovement(models.MovementRequest{ProductID: 1, Type: models.MovementIn, Quantity: 5, Reason: "restock"})
	assert.NoError(t, err)
}

func TestDecideAlert(t *testing.T) {
	tests := []struct {
		name      string
		stock     int
		threshold int
		hasActive bool
		want      alertAction
	}{
		{"below threshold raises", 9, 10, false, alertRaise},
		{"at threshold raises", 10, 10, false, alertRaise},
		{"zero stock raises", 0, 10, false, alertRaise},
		{"below threshold with active alert keeps it", 9, 10, true, alertKeep},
		{"recovery clears active alert", 15, 10, true, alertClear},
		{"just above threshold clears", 11, 10, true, alertClear},
		{"healthy stock without alert does nothing", 15, 10, false, alertKeep},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decideAlert(tt.stock, tt.threshold, tt.hasActive))
		})
	}
}

type fakeInvalidator struct {
	ids []int64
}

func (f *fakeInvalidator) Invalidate(id int64) {
	f.ids = append(f.ids, id)
}

func TestRecordMovement_InvalidatesCachedProduct(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	cache := &fakeInvalidator{}
	svc := NewInventoryService(&db.DB{DB: mockDB}, metrics.NewNoop(), 10, cache)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, name, stock FROM products WHERE id").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "stock"}).AddRow(int64(4), "polo", 50))
	mock.ExpectExec("INSERT INTO inventory_movements").WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectExec("UPDATE products SET stock").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT id FROM inventory_alerts").WillReturnError(sql.ErrNoRows)
	mock.ExpectCommit()

	movement, err := svc.RecordMovement(context.Background(),
		models.MovementRequest{ProductID: 4, Type: models.MovementIn, Quantity: 5, Reason: "restock"},
		"admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, 55, movement.StockAfter)
	assert.Equal(t, []int64{4}, cache.ids, "stock change must drop the cached product")
	assert.NoError(t, mock.ExpectationsWereMet())
}
