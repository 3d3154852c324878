package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransportFailureUnwraps(t *testing.T) {
	inner := errors.New("connection reset")
	err := &TransportFailure{Op: "send", Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "send")
}

func TestTargetMismatchWarningMessage(t *testing.T) {
	w := &TargetMismatchWarning{Reserved: 5, Target: 3}
	assert.Contains(t, w.Error(), "5")
	assert.Contains(t, w.Error(), "3")
}

func TestOptionErrorFormatting(t *testing.T) {
	err := NewOptionError("bad value %q", "x")
	assert.Equal(t, `option error: bad value "x"`, err.Error())
}
