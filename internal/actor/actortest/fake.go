// Package actortest provides an in-memory Actor for tests.
package actortest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jask/medadmin/internal/actor"
)

// Fake is an in-memory canister. Zero value is ready to use.
type Fake struct {
	mu        sync.Mutex
	Hospitals []actor.Hospital
	Doctors   []actor.Doctor
	Records   []actor.MedicalRecord
	Available map[time.Weekday][]uint64
	Patients  map[uint64]uint64

	// Fail makes the named method return the error.
	Fail map[string]error
	// Expired answers DeactivateHospitalIfExpired; defaults to true.
	Expired *bool

	calls map[string]int
}

func (f *Fake) hit(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[method]++
	if err, ok := f.Fail[method]; ok {
		return err
	}
	return nil
}

// Calls reports how many times method was invoked.
func (f *Fake) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// TotalCalls reports invocations across all methods.
func (f *Fake) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *Fake) GetHospitals(ctx context.Context) ([]actor.Hospital, error) {
	if err := f.hit("getHospitals"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]actor.Hospital(nil), f.Hospitals...), nil
}

func (f *Fake) GetDoctors(ctx context.Context) ([]actor.Doctor, error) {
	if err := f.hit("getDoctors"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]actor.Doctor(nil), f.Doctors...), nil
}

func (f *Fake) RegisterDoctor(ctx context.Context, hospitalID uint64, name, specialty, photoURL, wallet string) (actor.Doctor, error) {
	if err := f.hit("registerDoctor"); err != nil {
		return actor.Doctor{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	d := actor.Doctor{
		ID:         uint64(len(f.Doctors) + 1),
		HospitalID: hospitalID,
		Name:       name,
		Specialty:  specialty,
		PhotoURL:   photoURL,
		Wallet:     wallet,
		Active:     true,
	}
	f.Doctors = append(f.Doctors, d)
	return d, nil
}

func (f *Fake) DeactivateDoctor(ctx context.Context, id uint64) error {
	if err := f.hit("deactivateDoctor"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.Doctors {
		if f.Doctors[i].ID == id {
			f.Doctors[i].Active = false
			return nil
		}
	}
	return errors.New("Doctor not found")
}

func (f *Fake) GetMedicalRecordsByPatient(ctx context.Context, patientID string) ([]actor.MedicalRecord, error) {
	if err := f.hit("getMedicalRecordsByPatient"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []actor.MedicalRecord
	for _, r := range f.Records {
		if r.PatientID == patientID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *Fake) GetMedicalRecordsByHospitalPaged(ctx context.Context, hospitalID uint64, page, pageSize int) (actor.RecordPage, error) {
	if err := f.hit("getMedicalRecordsByHospitalPaged"); err != nil {
		return actor.RecordPage{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []actor.MedicalRecord
	for _, r := range f.Records {
		if r.HospitalID == hospitalID {
			all = append(all, r)
		}
	}
	out := actor.RecordPage{Total: uint64(len(all)), Page: page, PageSize: pageSize}
	start := page * pageSize
	if start < len(all) {
		end := min(start+pageSize, len(all))
		out.Items = all[start:end]
	}
	return out, nil
}

func (f *Fake) AddMedicalRecord(ctx context.Context, patientID string, hospitalID uint64, diagnosis, docURL string, evidenceURLs []string) (actor.MedicalRecord, error) {
	if err := f.hit("addMedicalRecord"); err != nil {
		return actor.MedicalRecord{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r := actor.MedicalRecord{
		ID:           uint64(len(f.Records) + 1),
		PatientID:    patientID,
		HospitalID:   hospitalID,
		Diagnosis:    diagnosis,
		DocURL:       docURL,
		EvidenceURLs: evidenceURLs,
		CreatedAt:    time.Now().UTC(),
	}
	f.Records = append(f.Records, r)
	return r, nil
}

func (f *Fake) RegisterHospital(ctx context.Context, name, logoURL string) (actor.Hospital, error) {
	if err := f.hit("registerHospital"); err != nil {
		return actor.Hospital{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	h := actor.Hospital{ID: uint64(len(f.Hospitals) + 1), Name: name, LogoURL: logoURL}
	f.Hospitals = append(f.Hospitals, h)
	return h, nil
}

func (f *Fake) ToggleHospitalActiveStatus(ctx context.Context, hospitalID uint64, plan actor.Plan) (actor.Hospital, error) {
	if err := f.hit("toggleHospitalActiveStatus"); err != nil {
		return actor.Hospital{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.Hospitals {
		if f.Hospitals[i].ID == hospitalID {
			f.Hospitals[i].Active = !f.Hospitals[i].Active
			return f.Hospitals[i], nil
		}
	}
	return actor.Hospital{}, errors.New("Hospital not found")
}

func (f *Fake) DeactivateHospitalIfExpired(ctx context.Context, hospitalID uint64) (bool, error) {
	if err := f.hit("deactivateHospitalIfExpired"); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	expired := true
	if f.Expired != nil {
		expired = *f.Expired
	}
	if expired {
		for i := range f.Hospitals {
			if f.Hospitals[i].ID == hospitalID {
				f.Hospitals[i].Active = false
			}
		}
	}
	return expired, nil
}

func (f *Fake) GetAvailableDoctors(ctx context.Context, hospitalID uint64, day time.Weekday) ([]actor.Doctor, error) {
	if err := f.hit("getAvailableDoctors"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := map[uint64]bool{}
	for _, id := range f.Available[day] {
		ids[id] = true
	}
	var out []actor.Doctor
	for _, d := range f.Doctors {
		if d.HospitalID == hospitalID && ids[d.ID] {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *Fake) GetDoctorPatientsCount(ctx context.Context, doctorID uint64) (uint64, error) {
	if err := f.hit("getDoctorPatientsCount"); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Patients[doctorID], nil
}

var _ actor.Actor = (*Fake)(nil)
