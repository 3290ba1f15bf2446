// Package roles maps a signed-in principal to the dashboard it may use.
package roles

import (
	"context"
	"fmt"
	"sync"

	"github.com/jask/medadmin/internal/actor"
	"github.com/jask/medadmin/internal/auth"
)

// Resolver caches one answer per principal until invalidated.
type Resolver struct {
	Actor actor.Actor

	mu        sync.Mutex
	principal string
	cached    *auth.Identity
}

// Resolve checks doctors first, then hospital owners. A principal matching
// neither, or an anonymous one, resolves to RoleNone.
func (r *Resolver) Resolve(ctx context.Context, principal string) (auth.Identity, error) {
	if !auth.IsAuthenticated(principal) {
		return auth.Identity{Role: auth.RoleNone}, nil
	}
	r.mu.Lock()
	if r.cached != nil && r.principal == principal {
		id := *r.cached
		r.mu.Unlock()
		return id, nil
	}
	r.mu.Unlock()

	id, err := r.lookup(ctx, principal)
	if err != nil {
		return auth.Identity{Role: auth.RoleNone}, err
	}

	r.mu.Lock()
	r.principal = principal
	r.cached = &id
	r.mu.Unlock()
	return id, nil
}

func (r *Resolver) lookup(ctx context.Context, principal string) (auth.Identity, error) {
	doctors, err := r.Actor.GetDoctors(ctx)
	if err != nil {
		return auth.Identity{}, fmt.Errorf("resolve role: %w", err)
	}
	for _, d := range doctors {
		if d.Wallet == principal {
			return auth.Identity{Role: auth.RoleDoctor, DoctorID: d.ID, HospitalID: d.HospitalID}, nil
		}
	}
	hospitals, err := r.Actor.GetHospitals(ctx)
	if err != nil {
		return auth.Identity{}, fmt.Errorf("resolve role: %w", err)
	}
	for _, h := range hospitals {
		if h.Wallet == principal {
			return auth.Identity{Role: auth.RoleHospital, HospitalID: h.ID}, nil
		}
	}
	return auth.Identity{Role: auth.RoleNone}, nil
}

// Invalidate drops the cached answer; called on poll ticks and navigation.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cached = nil
	r.principal = ""
}
