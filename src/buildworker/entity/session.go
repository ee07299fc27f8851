package entity

import "github.com/gofrs/uuid"

// BuildSession is the view of a running build shared between the connection handler and the session holder.
type BuildSession interface {
	CanceledStatus

	ID() uuid.UUID
	// Cancel requests cooperative cancellation. It is idempotent.
	Cancel()
}
