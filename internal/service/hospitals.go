package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jask/medadmin/internal/actor"
	"github.com/jask/medadmin/internal/expiry"
	"github.com/jask/medadmin/internal/forms"
)

// Hospitals handles hospital registration, plans and expiry.
type Hospitals struct {
	Actor   actor.Actor
	Watcher *expiry.Watcher
	Journal *Journal
	Now     func() time.Time
}

func (s *Hospitals) Register(ctx context.Context, f forms.HospitalForm) (actor.Hospital, error) {
	target := strings.TrimSpace(f.Name)
	if err := f.Validate(); err != nil {
		s.Journal.Record(ctx, "registerHospital", target, err)
		return actor.Hospital{}, err
	}
	h, err := s.Actor.RegisterHospital(ctx, strings.TrimSpace(f.Name), strings.TrimSpace(f.LogoURL))
	s.Journal.Record(ctx, "registerHospital", target, err)
	if err != nil {
		return actor.Hospital{}, err
	}
	return h, nil
}

// ActivatePlan toggles the hospital's active status under the chosen plan.
func (s *Hospitals) ActivatePlan(ctx context.Context, f forms.PlanForm) (actor.Hospital, error) {
	target := fmt.Sprintf("hospital %d", f.HospitalID)
	if err := f.Validate(); err != nil {
		s.Journal.Record(ctx, "toggleHospitalActiveStatus", target, err)
		return actor.Hospital{}, err
	}
	plan, _ := actor.ParsePlan(strings.TrimSpace(f.Plan))
	h, err := s.Actor.ToggleHospitalActiveStatus(ctx, f.HospitalID, plan)
	s.Journal.Record(ctx, "toggleHospitalActiveStatus", target+" "+string(plan), err)
	if err != nil {
		return actor.Hospital{}, err
	}
	return h, nil
}

// CheckExpiry runs the watcher over the displayed list and returns it with
// expired hospitals shown inactive. On backend failure the local result is
// returned together with the error.
func (s *Hospitals) CheckExpiry(ctx context.Context, hospitals []actor.Hospital) ([]actor.Hospital, error) {
	statuses, err := s.Watcher.Check(ctx, hospitals, s.now())
	if err != nil {
		log.Printf("expiry check: %v", err)
	}
	return expiry.Apply(hospitals, statuses), err
}

func (s *Hospitals) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
