package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jask/medadmin/internal/actor"
	"github.com/jask/medadmin/internal/forms"
	"github.com/jask/medadmin/internal/upload"
)

// ErrNoUploader is returned when a document path is given but no uploader is configured.
var ErrNoUploader = errors.New("document upload is not configured")

// Records adds medical records from the doctor shell.
type Records struct {
	Actor    actor.Actor
	Uploader upload.Uploader
	Journal  *Journal
}

// Add validates f, uploads DocPath when no DocURL was typed, then submits the record.
func (s *Records) Add(ctx context.Context, f forms.RecordForm) (actor.MedicalRecord, error) {
	target := "patient " + strings.TrimSpace(f.PatientID)
	if err := f.Validate(); err != nil {
		s.Journal.Record(ctx, "addMedicalRecord", target, err)
		return actor.MedicalRecord{}, err
	}
	docURL := strings.TrimSpace(f.DocURL)
	if docURL == "" {
		if s.Uploader == nil {
			s.Journal.Record(ctx, "addMedicalRecord", target, ErrNoUploader)
			return actor.MedicalRecord{}, ErrNoUploader
		}
		u, err := upload.File(ctx, s.Uploader, strings.TrimSpace(f.DocPath))
		if err != nil {
			err = fmt.Errorf("upload document: %w", err)
			s.Journal.Record(ctx, "addMedicalRecord", target, err)
			return actor.MedicalRecord{}, err
		}
		docURL = u
	}
	hospitalID, _ := forms.ParseID(f.HospitalID)
	rec, err := s.Actor.AddMedicalRecord(ctx,
		strings.TrimSpace(f.PatientID),
		hospitalID,
		strings.TrimSpace(f.Diagnosis),
		docURL,
		forms.EvidenceURLs(f.Evidence),
	)
	s.Journal.Record(ctx, "addMedicalRecord", target, err)
	if err != nil {
		return actor.MedicalRecord{}, err
	}
	return rec, nil
}
