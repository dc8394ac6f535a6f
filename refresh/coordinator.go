package refresh

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// State is the coordinator's refresh-in-progress flag.
type State int32

const (
	Idle State = iota
	Refreshing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Refreshing:
		return "refreshing"
	default:
		return "unknown"
	}
}

// Role tells a caller how it obtained its token.
type Role int

const (
	// RoleLeader ran the renewal.
	RoleLeader Role = iota
	// RoleWaiter waited for a renewal run by another caller.
	RoleWaiter
	// RoleShortcut found the token already renewed and ran nothing.
	RoleShortcut
)

func (r Role) String() string {
	switch r {
	case RoleLeader:
		return "leader"
	case RoleWaiter:
		return "waiter"
	case RoleShortcut:
		return "shortcut"
	default:
		return "unknown"
	}
}

// ErrNoToken is handed to waiters when a renewal ends without a token or an error, which
// includes a renewal that panicked.
var ErrNoToken = errors.New("refresh: renewal produced no token")

// RunFunc performs one renewal and returns the new access token.
type RunFunc func(ctx context.Context) (string, error)

type result struct {
	token string
	err   error
}

// Coordinator serializes token renewals. The zero value is not usable; call
// [NewCoordinator].
type Coordinator struct {
	mu      sync.Mutex
	state   State
	pending []chan result

	current   func() string
	refreshes atomic.Uint64
	shortcuts atomic.Uint64
}

// NewCoordinator returns an Idle coordinator. current reports the access token held right
// now; it lets a caller whose credential was replaced while its request was in flight
// retry without triggering another renewal.
func NewCoordinator(current func() string) *Coordinator {
	if current == nil {
		current = func() string { return "" }
	}
	return &Coordinator{current: current}
}

// Refresh returns an access token to retry with.
//
// stale is the token the failed request carried. When Idle and the current token differs
// from stale, that token is returned without running a renewal. Otherwise the caller
// either leads a renewal through run or waits for the one already in flight.
//
// run is invoked with a context detached from ctx cancellation. Waiters stop waiting when
// their own ctx ends and get ctx.Err(); the renewal itself carries on.
func (c *Coordinator) Refresh(ctx context.Context, stale string, run RunFunc) (string, error) {
	tok, _, err := c.Do(ctx, stale, run)
	return tok, err
}

// Do is Refresh that also reports the caller's role.
func (c *Coordinator) Do(ctx context.Context, stale string, run RunFunc) (string, Role, error) {
	c.mu.Lock()
	if c.state == Refreshing {
		ch := make(chan result, 1)
		c.pending = append(c.pending, ch)
		c.mu.Unlock()

		select {
		case r := <-ch:
			return r.token, RoleWaiter, r.err
		case <-ctx.Done():
			return "", RoleWaiter, ctx.Err()
		}
	}

	if tok := c.current(); tok != "" && tok != stale {
		c.mu.Unlock()
		c.shortcuts.Add(1)
		return tok, RoleShortcut, nil
	}

	c.state = Refreshing
	c.mu.Unlock()
	c.refreshes.Add(1)

	r := c.lead(ctx, run)
	return r.token, RoleLeader, r.err
}

func (c *Coordinator) lead(ctx context.Context, run RunFunc) (r result) {
	defer func() {
		if r.token == "" && r.err == nil {
			r.err = ErrNoToken
		}
		c.mu.Lock()
		waiters := c.pending
		c.pending = nil
		c.state = Idle
		c.mu.Unlock()

		for _, ch := range waiters {
			ch <- r
		}
	}()

	r.token, r.err = run(context.WithoutCancel(ctx))
	return r
}

// State reports whether a renewal is in flight.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Pending returns the number of callers parked behind the renewal in flight.
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Refreshes returns how many renewals have been started.
func (c *Coordinator) Refreshes() uint64 {
	return c.refreshes.Load()
}

// Shortcuts returns how many callers were handed an already renewed token.
func (c *Coordinator) Shortcuts() uint64 {
	return c.shortcuts.Load()
}
