package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"

	"github.com/jask/medadmin/internal/actor"
)

// DefaultPageSize for hospital record listings.
const DefaultPageSize = 10

// Directory serves the read-only lookups behind every shell.
type Directory struct {
	Actor actor.Actor
}

// DoctorRow is a doctor joined with its hospital's name for display.
type DoctorRow struct {
	actor.Doctor
	HospitalName string
}

func (d *Directory) Hospitals(ctx context.Context) ([]actor.Hospital, error) {
	hs, err := d.Actor.GetHospitals(ctx)
	if err != nil {
		return nil, fmt.Errorf("load hospitals: %w", err)
	}
	sort.SliceStable(hs, func(i, j int) bool { return hs[i].ID < hs[j].ID })
	return hs, nil
}

// Doctors fetches doctors and hospitals and joins them on hospital id.
func (d *Directory) Doctors(ctx context.Context) ([]DoctorRow, []actor.Hospital, error) {
	docs, err := d.Actor.GetDoctors(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load doctors: %w", err)
	}
	hs, err := d.Hospitals(ctx)
	if err != nil {
		return nil, nil, err
	}
	return JoinDoctors(docs, hs), hs, nil
}

// JoinDoctors attaches hospital names. Unknown hospitals show as "#id".
func JoinDoctors(doctors []actor.Doctor, hospitals []actor.Hospital) []DoctorRow {
	names := make(map[uint64]string, len(hospitals))
	for _, h := range hospitals {
		names[h.ID] = h.Name
	}
	out := make([]DoctorRow, 0, len(doctors))
	for _, doc := range doctors {
		name, ok := names[doc.HospitalID]
		if !ok {
			name = fmt.Sprintf("#%d", doc.HospitalID)
		}
		out = append(out, DoctorRow{Doctor: doc, HospitalName: name})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// OfHospital filters rows to one hospital.
func OfHospital(rows []DoctorRow, hospitalID uint64) []DoctorRow {
	var out []DoctorRow
	for _, r := range rows {
		if r.HospitalID == hospitalID {
			out = append(out, r)
		}
	}
	return out
}

// AvailableToday lists the hospital's doctors on duty for now's weekday.
func (d *Directory) AvailableToday(ctx context.Context, hospitalID uint64, now time.Time) ([]actor.Doctor, error) {
	docs, err := d.Actor.GetAvailableDoctors(ctx, hospitalID, now.Weekday())
	if err != nil {
		return nil, fmt.Errorf("load available doctors: %w", err)
	}
	return docs, nil
}

func (d *Directory) PatientCount(ctx context.Context, doctorID uint64) (uint64, error) {
	n, err := d.Actor.GetDoctorPatientsCount(ctx, doctorID)
	if err != nil {
		return 0, fmt.Errorf("load patient count: %w", err)
	}
	return n, nil
}

// ErrEmptyPatient is returned for a blank patient lookup.
var ErrEmptyPatient = errors.New("patient id is required")

func (d *Directory) PatientRecords(ctx context.Context, patientID string) ([]actor.MedicalRecord, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, ErrEmptyPatient
	}
	recs, err := d.Actor.GetMedicalRecordsByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].CreatedAt.After(recs[j].CreatedAt) })
	return recs, nil
}

// HospitalRecords loads one page (zero-based) of a hospital's records.
func (d *Directory) HospitalRecords(ctx context.Context, hospitalID uint64, page, pageSize int) (actor.RecordPage, error) {
	if page < 0 {
		page = 0
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	p, err := d.Actor.GetMedicalRecordsByHospitalPaged(ctx, hospitalID, page, pageSize)
	if err != nil {
		return actor.RecordPage{}, fmt.Errorf("load records page %d: %w", page, err)
	}
	return p, nil
}

// MatchKind says what a search hit refers to.
type MatchKind string

const (
	MatchHospital MatchKind = "hospital"
	MatchDoctor   MatchKind = "doctor"
)

// Match is one search hit. Lower Score is better; substring hits score 0.
type Match struct {
	Kind   MatchKind
	ID     uint64
	Name   string
	Detail string
	Score  int
}

// Search ranks hospitals and doctors by name, specialty or hospital name.
func Search(query string, hospitals []actor.Hospital, doctors []DoctorRow) []Match {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var out []Match
	for _, h := range hospitals {
		if s, ok := score(q, h.Name); ok {
			out = append(out, Match{Kind: MatchHospital, ID: h.ID, Name: h.Name, Score: s})
		}
	}
	for _, doc := range doctors {
		best, hit := -1, false
		for _, field := range []string{doc.Name, doc.Specialty, doc.HospitalName} {
			if s, ok := score(q, field); ok && (!hit || s < best) {
				best, hit = s, true
			}
		}
		if hit {
			out = append(out, Match{
				Kind:   MatchDoctor,
				ID:     doc.ID,
				Name:   doc.Name,
				Detail: doc.Specialty + " @ " + doc.HospitalName,
				Score:  best,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score < out[j].Score
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// score compares q with the whole field and each word of it.
func score(q, field string) (int, bool) {
	f := strings.ToLower(field)
	if f == "" {
		return 0, false
	}
	if strings.Contains(f, q) {
		return 0, true
	}
	limit := len(q) / 3
	if limit < 1 {
		limit = 1
	}
	best := levenshtein.ComputeDistance(q, f)
	for _, w := range strings.Fields(f) {
		if d := levenshtein.ComputeDistance(q, w); d < best {
			best = d
		}
	}
	return best, best <= limit
}
