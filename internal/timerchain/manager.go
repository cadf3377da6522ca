// Package timerchain arms and re-arms the deferred wake-up chain that
// drives vault unlocks.  A single scheduled callback can only sleep for
// a bounded span, so a far-away unlock date is reached as a chain of
// hops: each hop sleeps at most the maximum span, and the consumer that
// fires it asks the manager to arm the next hop until the target is
// reached.
package timerchain

import (
	"context"
	"fmt"

	"github.com/iliyamo/legacy-vault/internal/fee"
	"github.com/iliyamo/legacy-vault/internal/model"
)

// Scheduler is the deferred-execution backend.  Register enqueues a
// callback for the owner after delayMs and returns an opaque handle;
// Cancel invalidates a handle so a still-queued delivery is dropped.
type Scheduler interface {
	Register(ctx context.Context, owner string, delayMs uint64, gas uint64) (string, error)
	Cancel(ctx context.Context, handle string) error
}

// HandleStore persists the pending hop per owner so a stale delivery can
// be told apart from the live one.
type HandleStore interface {
	TimerHandle(ctx context.Context, owner string) (*model.TimerEntry, error)
	SaveTimerHandle(ctx context.Context, e *model.TimerEntry) error
	DeleteTimerHandle(ctx context.Context, owner string) error
}

// Manager owns the arm/disarm protocol for one scheduler and store.
type Manager struct {
	sched Scheduler
	store HandleStore
	now   func() uint64
}

// NewManager wires a Manager.  now returns the current Unix time in
// milliseconds; tests pass a fake clock.
func NewManager(sched Scheduler, store HandleStore, now func() uint64) *Manager {
	return &Manager{sched: sched, store: store, now: now}
}

// Arm schedules the next hop towards targetMs and records its handle,
// cancelling any previously armed hop for the owner first.  The hop
// sleeps min(targetMs-now, max span); when targetMs is already past the
// hop fires immediately.  Returns the absolute wake time of the hop.
func (m *Manager) Arm(ctx context.Context, owner string, targetMs uint64, gas uint64) (uint64, error) {
	if err := m.Disarm(ctx, owner); err != nil {
		return 0, err
	}

	nowMs := m.now()
	var delay uint64
	if targetMs > nowMs {
		delay = targetMs - nowMs
	}
	if delay > fee.MaxCallbackSpanMs {
		delay = fee.MaxCallbackSpanMs
	}

	handle, err := m.sched.Register(ctx, owner, delay, gas)
	if err != nil {
		return 0, fmt.Errorf("register callback: %w", err)
	}
	wake := nowMs + delay
	if err := m.store.SaveTimerHandle(ctx, &model.TimerEntry{Owner: owner, Handle: handle, TargetMs: targetMs}); err != nil {
		_ = m.sched.Cancel(ctx, handle)
		return 0, err
	}
	return wake, nil
}

// Disarm cancels the pending hop for the owner, if any.  Calling it for
// an owner with no armed hop is a no-op.
func (m *Manager) Disarm(ctx context.Context, owner string) error {
	entry, err := m.store.TimerHandle(ctx, owner)
	if err != nil {
		return err
	}
	if entry == nil {
		return nil
	}
	if err := m.sched.Cancel(ctx, entry.Handle); err != nil {
		return err
	}
	return m.store.DeleteTimerHandle(ctx, owner)
}

// Live reports whether handle is the currently armed hop for the owner.
// A delivery carrying any other handle is stale and must be ignored.
func (m *Manager) Live(ctx context.Context, owner, handle string) (bool, error) {
	entry, err := m.store.TimerHandle(ctx, owner)
	if err != nil {
		return false, err
	}
	return entry != nil && entry.Handle == handle, nil
}
