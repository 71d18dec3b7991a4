package response

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Is(t *testing.T) {
	notFound := NewError(404, "preview not found")

	assert.True(t, errors.Is(notFound, NewError(404, "preview not found")))
	assert.False(t, errors.Is(notFound, NewError(410, "preview not found")))
	assert.False(t, errors.Is(notFound, NewError(404, "session not found")))

	wrapped := fmt.Errorf("get preview: %w", notFound)
	assert.True(t, errors.Is(wrapped, notFound))

	var respErr *Error
	assert.True(t, errors.As(wrapped, &respErr))
	assert.Equal(t, 404, respErr.Code)
}
