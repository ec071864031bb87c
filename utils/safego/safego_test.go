package safego

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGo(t *testing.T) {
	err := Go(func() error { panic("boom") })()
	assert.EqualError(t, err, "panic: boom")

	expected := errors.New("plain")
	assert.Equal(t, expected, Go(func() error { return expected })())
	assert.NoError(t, Go(func() error { return nil })())
}
