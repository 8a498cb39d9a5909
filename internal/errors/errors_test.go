package errors

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesByCode(t *testing.T) {
	err := Configf("job %q: no events", "photos")
	assert.True(t, Is(err, ErrConfig))
	assert.False(t, Is(err, ErrWatch))
	assert.Equal(t, `job "photos": no events`, err.Error())
}

func TestWrap_KeepsCause(t *testing.T) {
	err := Wrap(io.ErrUnexpectedEOF, CodeStream, "failed to read events")

	assert.True(t, Is(err, ErrStream))
	assert.True(t, Is(err, io.ErrUnexpectedEOF))
	assert.Equal(t, "failed to read events: unexpected EOF", err.Error())
}

func TestWrapf_As(t *testing.T) {
	var wrapped error = Wrapf(io.EOF, CodeWatch, "watch %s", "/srv")

	var domainErr *Error
	assert.True(t, As(wrapped, &domainErr))
	assert.Equal(t, CodeWatch, domainErr.Code)
	assert.Equal(t, "watch /srv", domainErr.Message)
}

func TestWithDetails(t *testing.T) {
	base := ValidationWithDetails("validation failed", nil)
	withDetails := base.WithDetails(map[string]string{"watch": "is required"})

	assert.Nil(t, base.Details)
	assert.Equal(t, map[string]string{"watch": "is required"}, withDetails.Details)
	assert.True(t, Is(withDetails, ErrValidation))
}
