package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, NotFound, KindOf(E(NotFound, "order not found")))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain error")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestKindOf_SeesThroughWrapping(t *testing.T) {
	inner := E(InsufficientStock, "not enough stock available")
	wrapped := fmt.Errorf("create order: %w", inner)

	assert.Equal(t, InsufficientStock, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, InsufficientStock))
	assert.False(t, IsKind(wrapped, NotFound))
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(GatewayError, "payment gateway unavailable", cause)

	assert.Equal(t, "payment gateway unavailable", err.Error())
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, GatewayError, KindOf(err))
}

func TestIs_MatchesByKind(t *testing.T) {
	err := Ef(Validation, "amount %s does not match order total %s", "10", "20")
	assert.True(t, errors.Is(err, E(Validation, "")))
	assert.False(t, errors.Is(err, E(AlreadyPaid, "")))
}
