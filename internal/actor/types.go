package actor

import (
	"context"
	"time"
)

// Actor is the typed handle onto the registry canister.
type Actor interface {
	GetHospitals(ctx context.Context) ([]Hospital, error)
	GetDoctors(ctx context.Context) ([]Doctor, error)
	RegisterDoctor(ctx context.Context, hospitalID uint64, name, specialty, photoURL, wallet string) (Doctor, error)
	DeactivateDoctor(ctx context.Context, id uint64) error
	GetMedicalRecordsByPatient(ctx context.Context, patientID string) ([]MedicalRecord, error)
	GetMedicalRecordsByHospitalPaged(ctx context.Context, hospitalID uint64, page, pageSize int) (RecordPage, error)
	AddMedicalRecord(ctx context.Context, patientID string, hospitalID uint64, diagnosis, docURL string, evidenceURLs []string) (MedicalRecord, error)
	RegisterHospital(ctx context.Context, name, logoURL string) (Hospital, error)
	ToggleHospitalActiveStatus(ctx context.Context, hospitalID uint64, plan Plan) (Hospital, error)
	DeactivateHospitalIfExpired(ctx context.Context, hospitalID uint64) (bool, error)
	GetAvailableDoctors(ctx context.Context, hospitalID uint64, day time.Weekday) ([]Doctor, error)
	GetDoctorPatientsCount(ctx context.Context, doctorID uint64) (uint64, error)
}

// Hospital mirrors the canister record.
type Hospital struct {
	ID        uint64     `json:"id"`
	Name      string     `json:"name"`
	Wallet    string     `json:"wallet"`
	LogoURL   string     `json:"logoURL"`
	Active    bool       `json:"isActive"`
	ExpiresAt *time.Time `json:"-"`
}

// Doctor mirrors the canister record.
type Doctor struct {
	ID         uint64 `json:"id"`
	HospitalID uint64 `json:"hospitalId"`
	Name       string `json:"name"`
	Specialty  string `json:"specialty"`
	Wallet     string `json:"wallet"`
	PhotoURL   string `json:"photoURL"`
	Active     bool   `json:"isActive"`
}

// MedicalRecord mirrors the canister record.
type MedicalRecord struct {
	ID           uint64    `json:"id"`
	PatientID    string    `json:"patientId"`
	HospitalID   uint64    `json:"hospitalId"`
	DoctorID     uint64    `json:"doctorId"`
	Diagnosis    string    `json:"diagnosis"`
	DocURL       string    `json:"docURL"`
	EvidenceURLs []string  `json:"evidenceURLs"`
	CreatedAt    time.Time `json:"-"`
}

// RecordPage is one page of a hospital's records.
type RecordPage struct {
	Items    []MedicalRecord `json:"items"`
	Total    uint64          `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"pageSize"`
}

// Pages returns the number of pages for the page size, at least 1.
func (p RecordPage) Pages() int {
	if p.PageSize <= 0 || p.Total == 0 {
		return 1
	}
	n := int(p.Total) / p.PageSize
	if int(p.Total)%p.PageSize != 0 {
		n++
	}
	return n
}

// Plan is a subscription plan accepted by ToggleHospitalActiveStatus.
type Plan string

const (
	PlanMonthly   Plan = "monthly"
	PlanQuarterly Plan = "quarterly"
	PlanAnnual    Plan = "annual"
)

// Plans lists the known plans in display order.
var Plans = []Plan{PlanMonthly, PlanQuarterly, PlanAnnual}

// ParsePlan returns the plan for s, or false when unknown.
func ParsePlan(s string) (Plan, bool) {
	for _, p := range Plans {
		if string(p) == s {
			return p, true
		}
	}
	return "", false
}
