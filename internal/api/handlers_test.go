package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yorusito/shop-backend/internal/apperrors"
)

func TestRespondError_MapsKindsToStatusCodes(t *testing.T) {
	cases := []struct {
		kind   apperrors.Kind
		status int
	}{
		{apperrors.NotFound, http.StatusNotFound},
		{apperrors.Forbidden, http.StatusForbidden},
		{apperrors.Validation, http.StatusBadRequest},
		{apperrors.EmptyCart, http.StatusBadRequest},
		{apperrors.Unavailable, http.StatusConflict},
		{apperrors.InsufficientStock, http.StatusConflict},
		{apperrors.AlreadyPaid, http.StatusConflict},
		{apperrors.GatewayError, http.StatusBadGateway},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		respondError(w, apperrors.E(tc.kind, "boom"))
		assert.Equal(t, tc.status, w.Code, "kind %s", tc.kind)

		var body map[string]string
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "boom", body["error"])
	}
}

func TestRespondError_UnknownErrorsGetGeneric500(t *testing.T) {
	w := httptest.NewRecorder()
	respondError(w, errors.New("dial tcp 10.0.0.5:3306: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]string
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	// Internal detail must not reach the client.
	assert.Equal(t, "internal server error", body["error"])
}

func TestRequireUserID(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/cart", nil)
	r.Header.Set("X-User-ID", "42")
	id, ok := requireUserID(httptest.NewRecorder(), r)
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)
}

func TestRequireUserID_MissingHeader(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/v1/cart", nil)
	_, ok := requireUserID(w, r)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireUserID_RejectsGarbage(t *testing.T) {
	for _, raw := range []string{"abc", "-1", "0", "1.5"} {
		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/v1/cart", nil)
		r.Header.Set("X-User-ID", raw)
		_, ok := requireUserID(w, r)
		assert.False(t, ok, "header %q should be rejected", raw)
	}
}

func TestRequireAdmin(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/orders/all", nil)
	r.Header.Set("X-Admin", "true")
	assert.True(t, requireAdmin(httptest.NewRecorder(), r))

	w := httptest.NewRecorder()
	assert.False(t, requireAdmin(w, httptest.NewRequest("GET", "/api/v1/orders/all", nil)))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPagination(t *testing.T) {
	limit, offset := pagination(httptest.NewRequest("GET", "/api/v1/products", nil))
	assert.Equal(t, 20, limit)
	assert.Equal(t, 0, offset)

	limit, offset = pagination(httptest.NewRequest("GET", "/api/v1/products?limit=50&offset=10", nil))
	assert.Equal(t, 50, limit)
	assert.Equal(t, 10, offset)

	// Out-of-range values fall back to defaults.
	limit, offset = pagination(httptest.NewRequest("GET", "/api/v1/products?limit=9999&offset=-3", nil))
	assert.Equal(t, 20, limit)
	assert.Equal(t, 0, offset)
}
