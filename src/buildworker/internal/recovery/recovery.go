// Package recovery opens on-disk state with a single delete-and-retry fallback.
package recovery

import (
	"context"
	"fmt"
)

// OpenFunc opens the state. On failure it must release whatever it partially opened.
type OpenFunc[T any] func(ctx context.Context) (T, error)

// DeleteFunc discards the on-disk state so that the next open starts from scratch.
type DeleteFunc func(ctx context.Context) error

// OnRecovered is called once the fresh state was opened, with the error that caused the first attempt to fail.
type OnRecovered func(cause error)

// Open calls open. If it fails, the state is deleted and opened a second time; a second failure is returned
// and never retried. onRecovered may be nil.
func Open[T any](ctx context.Context, open OpenFunc[T], del DeleteFunc, onRecovered OnRecovered) (T, error) {
	state, err := open(ctx)
	if err == nil {
		return state, nil
	}
	cause := err

	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if err := del(ctx); err != nil {
		return zero, fmt.Errorf("deleting state after open failure (%v): %w", cause, err)
	}

	state, err = open(ctx)
	if err != nil {
		return zero, fmt.Errorf("opening fresh state after recovery from (%v): %w", cause, err)
	}

	if onRecovered != nil {
		onRecovered(cause)
	}
	return state, nil
}
