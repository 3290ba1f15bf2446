package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/jask/medadmin/internal/actor"
	"github.com/jask/medadmin/internal/forms"
)

// Doctors handles doctor mutations from the hospital shell.
type Doctors struct {
	Actor   actor.Actor
	Journal *Journal
}

// Register validates f and registers the doctor. An invalid form never reaches the canister.
func (s *Doctors) Register(ctx context.Context, f forms.DoctorForm) (actor.Doctor, error) {
	target := "hospital " + strings.TrimSpace(f.HospitalID)
	if err := f.Validate(); err != nil {
		s.Journal.Record(ctx, "registerDoctor", target, err)
		return actor.Doctor{}, err
	}
	hospitalID, _ := forms.ParseID(f.HospitalID)
	doc, err := s.Actor.RegisterDoctor(ctx, hospitalID,
		strings.TrimSpace(f.Name),
		strings.TrimSpace(f.Specialty),
		strings.TrimSpace(f.PhotoURL),
		strings.TrimSpace(f.Wallet),
	)
	s.Journal.Record(ctx, "registerDoctor", target, err)
	if err != nil {
		return actor.Doctor{}, err
	}
	return doc, nil
}

func (s *Doctors) Deactivate(ctx context.Context, doctorID uint64) error {
	err := s.Actor.DeactivateDoctor(ctx, doctorID)
	s.Journal.Record(ctx, "deactivateDoctor", fmt.Sprintf("doctor %d", doctorID), err)
	return err
}
