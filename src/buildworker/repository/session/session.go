// Package session holds the build session of the worker process.
package session

import (
	"sync/atomic"

	tally "github.com/uber-go/tally/v4"
	"github.com/uber/incbuild/src/buildworker/entity"
	"github.com/uber/incbuild/src/buildworker/internal/errors"
)

const _gaugeActive = "session.active"

// Repository holds at most one build session for the lifetime of the process.
type Repository interface {
	// Start registers s as the session of this process. It fails with errors.ErrSessionActive
	// when a session was registered before, whether or not it has finished.
	Start(s entity.BuildSession) error
	// Active returns the registered session while it is running.
	Active() (entity.BuildSession, bool)
	// Finish marks s as no longer running. Finishing a session that is not registered is a no-op.
	Finish(s entity.BuildSession)
}

type slot struct {
	session entity.BuildSession
}

type repository struct {
	current  atomic.Pointer[slot]
	finished atomic.Bool
	stats    tally.Scope
}

// New returns an empty session Repository.
func New(stats tally.Scope) Repository {
	return &repository{stats: stats}
}

func (r *repository) Start(s entity.BuildSession) error {
	if s == nil {
		return errors.New("can't start nil session")
	}
	if !r.current.CompareAndSwap(nil, &slot{session: s}) {
		return errors.ErrSessionActive
	}
	r.stats.Gauge(_gaugeActive).Update(1)
	return nil
}

func (r *repository) Active() (entity.BuildSession, bool) {
	cur := r.current.Load()
	if cur == nil || r.finished.Load() {
		return nil, false
	}
	return cur.session, true
}

func (r *repository) Finish(s entity.BuildSession) {
	cur := r.current.Load()
	if cur == nil || cur.session != s {
		return
	}
	if r.finished.CompareAndSwap(false, true) {
		r.stats.Gauge(_gaugeActive).Update(0)
	}
}
