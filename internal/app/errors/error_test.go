package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConflictErrorCarriesCode(t *testing.T) {
	err := NewConflictError(CodeInsufficientFunds, "Insufficient wallet balance")

	assert.Equal(t, http.StatusConflict, err.StatusCode)
	assert.True(t, IsCode(err, CodeInsufficientFunds))
	assert.False(t, IsCode(err, CodeInsufficientStock))
	assert.Equal(t, "Insufficient wallet balance", err.Error())
}

func TestIsCodeUnwrapsWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("settle: %w", NewConflictError(CodeInsufficientStock, "out of stock"))

	assert.True(t, IsCode(wrapped, CodeInsufficientStock))
	assert.Equal(t, http.StatusConflict, StatusOf(wrapped))
}

func TestInternalServerErrorToleratesNilCause(t *testing.T) {
	err := NewInternalServerError(nil, "boom")

	assert.Equal(t, http.StatusInternalServerError, err.StatusCode)
	assert.Equal(t, http.StatusInternalServerError, StatusOf(fmt.Errorf("plain")))
}
