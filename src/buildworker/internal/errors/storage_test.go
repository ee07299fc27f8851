package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStorageErrors(t *testing.T) {
	cause := New("invalid database")
	openErr := &StorageOpenError{Store: "timestamps", Path: "/tmp/ts.db", Cause: cause}
	assert.Equal(t, `opening timestamps store at "/tmp/ts.db": invalid database`, openErr.Error())
	assert.ErrorIs(t, openErr, cause)

	versionErr := &VersionMismatchError{Store: "dependencies", Expected: 3, Found: 1}
	assert.Equal(t, "dependencies store format version differs: expected 3, found 1", versionErr.Error())
}

func TestIsStorageFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "open error",
			err:  &StorageOpenError{Store: "timestamps", Cause: New("boom")},
			want: true,
		},
		{
			name: "wrapped version mismatch",
			err:  fmt.Errorf("loading project: %w", &VersionMismatchError{Store: "timestamps"}),
			want: true,
		},
		{
			name: "other",
			err:  New("other"),
			want: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsStorageFailure(tt.err))
		})
	}
}
