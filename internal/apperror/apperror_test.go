package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfWrapped(t *testing.T) {
	base := NotFound("catalog.get_option", "option not found with ID: %s", "opt-1")
	wrapped := fmt.Errorf("loading selection: %w", base)

	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.True(t, IsNotFound(wrapped))
	assert.Equal(t, "option not found with ID: opt-1", Message(wrapped))
	assert.Equal(t, "catalog.get_option: option not found with ID: opt-1", base.Error())
}

func TestKindOfUnknownIsInternal(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, "an unexpected error occurred", Message(err))
}

func TestErrorsIsMatchesKind(t *testing.T) {
	err := State("product_type.add_attributes", "cannot modify a non-customizable product type")
	assert.ErrorIs(t, err, &Error{Kind: KindState})
	assert.NotErrorIs(t, err, &Error{Kind: KindValidation})
}

func TestStorageUnwraps(t *testing.T) {
	cause := errors.New("disk full")
	err := Storage("storage.store", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindStorage, KindOf(err))
}
