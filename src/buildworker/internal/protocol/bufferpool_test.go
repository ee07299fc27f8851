package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferPool(t *testing.T) {
	pool := NewBufferPool(16, 3)

	tests := []struct {
		name    string
		size    int
		wantCap int
	}{
		{name: "first bucket", size: 10, wantCap: 16},
		{name: "exact bucket", size: 32, wantCap: 32},
		{name: "last bucket", size: 60, wantCap: 64},
		{name: "one-off allocation", size: 100, wantCap: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := pool.Get(tt.size)
			assert.Len(t, buf, tt.size)
			assert.Equal(t, tt.wantCap, cap(buf))
			assert.NotPanics(t, func() { pool.Put(buf) })
		})
	}
}
