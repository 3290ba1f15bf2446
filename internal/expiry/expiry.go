// Package expiry computes hospital subscription expiry locally and asks the
// canister to confirm deactivation.
package expiry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jask/medadmin/internal/actor"
)

// Expired is the local predicate: active, has an expiry, and now is past it.
func Expired(h actor.Hospital, now time.Time) bool {
	return h.Active && h.ExpiresAt != nil && now.After(*h.ExpiresAt)
}

// Remaining is the time left on the plan, zero when none or already past.
func Remaining(h actor.Hospital, now time.Time) time.Duration {
	if h.ExpiresAt == nil {
		return 0
	}
	d := h.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// FormatRemaining renders Remaining for the dashboard banner.
func FormatRemaining(d time.Duration) string {
	if d <= 0 {
		return "expired"
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh left", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm left", hours, int(d.Minutes())%60)
	default:
		return fmt.Sprintf("%dm left", int(d.Minutes()))
	}
}

// Status is what the view should show for one hospital after a check.
type Status struct {
	HospitalID uint64
	Expired    bool
	// Confirmed is true when the canister answered; false means local fallback.
	Confirmed bool
}

// Watcher sends one DeactivateHospitalIfExpired per detection.
type Watcher struct {
	Actor actor.Actor

	mu   sync.Mutex
	seen map[uint64]detection
}

// detection is a deactivation for one expiry timestamp, sent or in flight.
type detection struct {
	expiresAt time.Time
	done      bool
}

// Check inspects the displayed hospitals. A detection already sent for the
// same expiry, or still in flight from an overlapping check, is not sent
// again. Errors from the canister are joined and returned; the statuses fall
// back to the local computation for those hospitals.
func (w *Watcher) Check(ctx context.Context, hospitals []actor.Hospital, now time.Time) ([]Status, error) {
	var out []Status
	var errs []error
	for _, h := range hospitals {
		if !Expired(h, now) {
			continue
		}
		claimed, done := w.claim(h)
		if !claimed {
			out = append(out, Status{HospitalID: h.ID, Expired: true, Confirmed: done})
			continue
		}
		deactivated, err := w.Actor.DeactivateHospitalIfExpired(ctx, h.ID)
		if err != nil {
			w.release(h.ID)
			errs = append(errs, fmt.Errorf("deactivate hospital %d: %w", h.ID, err))
			out = append(out, Status{HospitalID: h.ID, Expired: true})
			continue
		}
		if deactivated {
			w.confirm(h.ID)
		} else {
			w.release(h.ID)
		}
		out = append(out, Status{HospitalID: h.ID, Expired: deactivated, Confirmed: true})
	}
	return out, errors.Join(errs...)
}

// claim marks h in flight. It reports false when another check owns the
// detection, with done set once that one was confirmed.
func (w *Watcher) claim(h actor.Hospital) (claimed, done bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if d, ok := w.seen[h.ID]; ok && d.expiresAt.Equal(*h.ExpiresAt) {
		return false, d.done
	}
	if w.seen == nil {
		w.seen = map[uint64]detection{}
	}
	w.seen[h.ID] = detection{expiresAt: *h.ExpiresAt}
	return true, false
}

func (w *Watcher) confirm(id uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	d := w.seen[id]
	d.done = true
	w.seen[id] = d
}

func (w *Watcher) release(id uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.seen, id)
}

// Apply folds statuses into the hospital list: expired ones are shown inactive.
func Apply(hospitals []actor.Hospital, statuses []Status) []actor.Hospital {
	expired := map[uint64]bool{}
	for _, s := range statuses {
		if s.Expired {
			expired[s.HospitalID] = true
		}
	}
	out := make([]actor.Hospital, len(hospitals))
	for i, h := range hospitals {
		if expired[h.ID] {
			h.Active = false
		}
		out[i] = h
	}
	return out
}
