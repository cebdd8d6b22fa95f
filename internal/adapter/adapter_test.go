package adapter

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAdapterError(t *testing.T) {
	base := errors.New("connection refused")
	err := &AdapterError{
		Source:  "hyprland",
		Message: "failed to connect to request socket",
		Err:     base,
	}

	assert.Equal(t, "failed to connect to request socket: connection refused", err.Error())
	assert.ErrorIs(t, err, base)

	bare := &AdapterError{Source: "mpris", Message: "no session bus"}
	assert.Equal(t, "no session bus", bare.Error())
	assert.Nil(t, bare.Unwrap())
}
