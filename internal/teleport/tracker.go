// Package teleport tracks pending teleport requests. The tracker is memory
// only, with no backend: requests are ephemeral and expire lazily on read,
// the same pattern the sanction store uses for mutes and jails.
package teleport

import (
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/puzpuzpuz/xsync/v3"
)

// DefaultTimeout is how long a request stays answerable.
const DefaultTimeout = 60 * time.Second

// Request is one pending teleport offer towards a target player.
type Request struct {
	Sender    uuid.UUID
	CreatedAt time.Time
}

// Tracker holds at most one pending request per target.
type Tracker struct {
	pending *xsync.MapOf[uuid.UUID, Request]
	timeout time.Duration
	now     func() time.Time
}

type Option func(*Tracker)

// WithClock overrides the wall clock used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

func NewTracker(timeout time.Duration, opts ...Option) *Tracker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	tracker := &Tracker{
		pending: xsync.NewMapOf[uuid.UUID, Request](),
		timeout: timeout,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(tracker)
	}

	return tracker
}

func (t *Tracker) expired(request Request) bool {
	return t.now().Sub(request.CreatedAt) > t.timeout
}

// Offer records a request from sender towards target. It is refused when the
// sender targets themselves or the target already has a live request; an
// expired leftover is replaced.
func (t *Tracker) Offer(target uuid.UUID, sender uuid.UUID) bool {
	if target == sender {
		return false
	}

	accepted := false

	t.pending.Compute(target, func(existing Request, loaded bool) (Request, bool) {
		if loaded && !t.expired(existing) {
			return existing, false
		}

		accepted = true

		return Request{Sender: sender, CreatedAt: t.now()}, false
	})

	return accepted
}

// Accept removes the target's pending request and returns its sender. An
// expired request is consumed but not returned.
func (t *Tracker) Accept(target uuid.UUID) (uuid.UUID, bool) {
	request, loaded := t.pending.LoadAndDelete(target)
	if !loaded || t.expired(request) {
		return uuid.Nil, false
	}

	return request.Sender, true
}

// Deny discards the target's pending request, reporting whether a live one
// existed.
func (t *Tracker) Deny(target uuid.UUID) bool {
	request, loaded := t.pending.LoadAndDelete(target)

	return loaded && !t.expired(request)
}

// Pending reports whether the target has a live request, discarding an
// expired leftover as a side effect of the read.
func (t *Tracker) Pending(target uuid.UUID) bool {
	request, loaded := t.pending.Load(target)
	if !loaded {
		return false
	}

	if t.expired(request) {
		t.pending.Delete(target)

		return false
	}

	return true
}
