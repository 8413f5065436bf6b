package errors

import (
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOfWrappedError(t *testing.T) {
	err := fmt.Errorf("failed to get patient: %w", NotFound("patient", sql.ErrNoRows))

	assert.True(t, IsNotFound(err))
	assert.False(t, IsValidation(err))
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, ErrInternal, CodeOf(fmt.Errorf("boom")))
	assert.False(t, IsStore(nil))
}

func TestAppErrorMessage(t *testing.T) {
	assert.Equal(t, "patient not found", NotFound("patient", nil).Error())
	assert.Equal(t, "store failure during insert: conn reset", Store("insert", fmt.Errorf("conn reset")).Error())

	v := Validation("age", "age must be between 0 and 150")
	assert.Equal(t, "age", v.Field)
	assert.Equal(t, ErrValidation, v.Code)
}
