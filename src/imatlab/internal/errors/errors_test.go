package errors

import (
	"fmt"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
)

func TestIsSoftFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "timeout", err: ErrRequestTimeout, want: true},
		{name: "wrapped timeout", err: fmt.Errorf("request completion: %w", ErrRequestTimeout), want: true},
		{name: "not running", err: ErrServerNotRunning, want: true},
		{name: "crashed", err: ErrServerCrashed, want: true},
		{name: "error body", err: ErrResponseError, want: true},
		{name: "not ready", err: ErrNotReady, want: true},
		{name: "install failure", err: ErrInstallFailed, want: false},
		{name: "unrelated", err: New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSoftFailure(tt.err))
		})
	}
}

func TestNotFoundUUID(t *testing.T) {
	id := uuid.Must(uuid.NewV4())

	got, ok := NotFoundUUID(fmt.Errorf("lookup: %w", &UUIDNotFoundError{UUID: id}))
	assert.True(t, ok)
	assert.Equal(t, id, got)

	_, ok = NotFoundUUID(New("other"))
	assert.False(t, ok)
}
