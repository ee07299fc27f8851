package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsProtocolError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "frame too large",
			err:  ErrFrameTooLarge,
			want: true,
		},
		{
			name: "wrapped malformed frame",
			err:  fmt.Errorf("reading envelope: %w", ErrMalformedFrame),
			want: true,
		},
		{
			name: "session active",
			err:  ErrSessionActive,
			want: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsProtocolError(tt.err))
		})
	}
}
