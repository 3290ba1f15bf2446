// Package forms validates mutation input before anything reaches the canister.
package forms

import (
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jask/medadmin/internal/actor"
)

// FieldErrors maps a field name to what is wrong with it.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return strings.Join(parts, "; ")
}

func (e FieldErrors) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		e[field] = "required"
	}
}

func (e FieldErrors) url(field, value string) {
	if _, bad := e[field]; bad {
		return
	}
	u, err := url.Parse(strings.TrimSpace(value))
	if err != nil || u.Scheme == "" || u.Host == "" {
		e[field] = "must be an absolute URL"
	}
}

func (e FieldErrors) err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// principals are dash-separated lowercase base32 groups, e.g. "rdmx6-jaaaa-aaaaa-aaadq-cai".
var principalRe = regexp.MustCompile(`^[a-z2-7]{1,5}(-[a-z2-7]{1,5})+$`)

// ValidPrincipal reports whether s is shaped like a principal.
func ValidPrincipal(s string) bool {
	return principalRe.MatchString(strings.TrimSpace(s))
}

// ParseID parses a numeric canister id.
func ParseID(s string) (uint64, bool) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	return n, err == nil
}

// DoctorForm backs registerDoctor.
type DoctorForm struct {
	HospitalID string
	Name       string
	Specialty  string
	PhotoURL   string
	Wallet     string
}

// Validate returns FieldErrors or nil.
func (f DoctorForm) Validate() error {
	e := FieldErrors{}
	e.required("hospital", f.HospitalID)
	e.required("name", f.Name)
	e.required("specialty", f.Specialty)
	e.required("photo", f.PhotoURL)
	e.required("wallet", f.Wallet)
	if _, bad := e["hospital"]; !bad {
		if _, ok := ParseID(f.HospitalID); !ok {
			e["hospital"] = "must be a number"
		}
	}
	e.url("photo", f.PhotoURL)
	if _, bad := e["wallet"]; !bad && !ValidPrincipal(f.Wallet) {
		e["wallet"] = "not a principal"
	}
	return e.err()
}

// RecordForm backs addMedicalRecord. DocPath is a local file to upload when DocURL is empty.
type RecordForm struct {
	PatientID  string
	HospitalID string
	Diagnosis  string
	DocURL     string
	DocPath    string
	Evidence   string
}

// Validate returns FieldErrors or nil.
func (f RecordForm) Validate() error {
	e := FieldErrors{}
	e.required("patient", f.PatientID)
	e.required("hospital", f.HospitalID)
	e.required("diagnosis", f.Diagnosis)
	if strings.TrimSpace(f.DocURL) == "" && strings.TrimSpace(f.DocPath) == "" {
		e["document"] = "required"
	}
	if _, bad := e["hospital"]; !bad {
		if _, ok := ParseID(f.HospitalID); !ok {
			e["hospital"] = "must be a number"
		}
	}
	if strings.TrimSpace(f.DocURL) != "" {
		e.url("document", f.DocURL)
	}
	for _, u := range EvidenceURLs(f.Evidence) {
		e.url("evidence", u)
	}
	return e.err()
}

// EvidenceURLs splits a comma or whitespace separated list, dropping blanks and duplicates.
func EvidenceURLs(s string) []string {
	raw := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t' || r == '\n'
	})
	seen := map[string]struct{}{}
	out := []string{}
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// HospitalForm backs registerHospital.
type HospitalForm struct {
	Name    string
	LogoURL string
}

// Validate returns FieldErrors or nil.
func (f HospitalForm) Validate() error {
	e := FieldErrors{}
	e.required("name", f.Name)
	e.required("logo", f.LogoURL)
	e.url("logo", f.LogoURL)
	return e.err()
}

// PlanForm backs toggleHospitalActiveStatus.
type PlanForm struct {
	HospitalID uint64
	Plan       string
}

// Validate returns FieldErrors or nil.
func (f PlanForm) Validate() error {
	e := FieldErrors{}
	e.required("plan", f.Plan)
	if _, bad := e["plan"]; !bad {
		if _, ok := actor.ParsePlan(strings.TrimSpace(f.Plan)); !ok {
			e["plan"] = "unknown plan"
		}
	}
	return e.err()
}

// SettingsForm backs the console preferences saved to the config file.
type SettingsForm struct {
	PollInterval string
	DateFormat   string
	Timezone     string
}

// MinPollInterval keeps refreshes from hammering the canister.
const MinPollInterval = time.Second

// Validate returns FieldErrors or nil.
func (f SettingsForm) Validate() error {
	e := FieldErrors{}
	e.required("poll interval", f.PollInterval)
	e.required("date format", f.DateFormat)
	e.required("timezone", f.Timezone)
	if _, bad := e["poll interval"]; !bad {
		d, err := time.ParseDuration(strings.TrimSpace(f.PollInterval))
		switch {
		case err != nil:
			e["poll interval"] = "not a duration"
		case d < MinPollInterval:
			e["poll interval"] = "must be at least " + MinPollInterval.String()
		}
	}
	if _, bad := e["timezone"]; !bad {
		if _, err := time.LoadLocation(strings.TrimSpace(f.Timezone)); err != nil {
			e["timezone"] = "unknown timezone"
		}
	}
	return e.err()
}
