package forms

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func fieldErrors(t *testing.T, err error) FieldErrors {
	t.Helper()
	var fe FieldErrors
	require.True(t, errors.As(err, &fe), "expected FieldErrors, got %v", err)
	return fe
}

func TestDoctorForm(t *testing.T) {
	t.Parallel()
	ok := DoctorForm{HospitalID: "3", Name: "Dr Ana", Specialty: "Cardiology", PhotoURL: "https://gw/ipfs/Qm1", Wallet: "rdmx6-jaaaa-aaaaa-aaadq-cai"}
	require.NoError(t, ok.Validate())

	missing := ok
	missing.Specialty = "  "
	fe := fieldErrors(t, missing.Validate())
	require.Equal(t, FieldErrors{"specialty": "required"}, fe)

	bad := ok
	bad.HospitalID = "three"
	bad.Wallet = "Not A Principal"
	bad.PhotoURL = "photo.png"
	fe = fieldErrors(t, bad.Validate())
	require.Equal(t, "must be a number", fe["hospital"])
	require.Equal(t, "not a principal", fe["wallet"])
	require.Equal(t, "must be an absolute URL", fe["photo"])
	require.Equal(t, "hospital: must be a number; photo: must be an absolute URL; wallet: not a principal", fe.Error())
}

func TestRecordForm(t *testing.T) {
	t.Parallel()
	f := RecordForm{PatientID: "p-17", HospitalID: "1", Diagnosis: "Fracture", DocURL: "https://gw/ipfs/QmDoc"}
	require.NoError(t, f.Validate())

	withFile := RecordForm{PatientID: "p-17", HospitalID: "1", Diagnosis: "Fracture", DocPath: "/tmp/xray.pdf"}
	require.NoError(t, withFile.Validate())

	fe := fieldErrors(t, RecordForm{}.Validate())
	require.Len(t, fe, 4)
	require.Equal(t, "required", fe["document"])

	withEvidence := f
	withEvidence.Evidence = "https://a/1, not-a-url"
	fe = fieldErrors(t, withEvidence.Validate())
	require.Equal(t, "must be an absolute URL", fe["evidence"])
}

func TestEvidenceURLs(t *testing.T) {
	t.Parallel()
	require.Equal(t, []string{"https://a/1", "https://a/2"}, EvidenceURLs(" https://a/1,https://a/2 ;https://a/1\n"))
	require.Equal(t, []string{}, EvidenceURLs("  "))
}

func TestHospitalAndPlanForms(t *testing.T) {
	t.Parallel()
	require.NoError(t, HospitalForm{Name: "St Mary", LogoURL: "https://x/logo.png"}.Validate())
	fe := fieldErrors(t, HospitalForm{LogoURL: "https://x/logo.png"}.Validate())
	require.Equal(t, FieldErrors{"name": "required"}, fe)

	require.NoError(t, PlanForm{HospitalID: 1, Plan: "monthly"}.Validate())
	fe = fieldErrors(t, PlanForm{HospitalID: 1, Plan: "weekly"}.Validate())
	require.Equal(t, "unknown plan", fe["plan"])
	fe = fieldErrors(t, PlanForm{HospitalID: 1}.Validate())
	require.Equal(t, "required", fe["plan"])
}

func TestValidPrincipal(t *testing.T) {
	t.Parallel()
	require.True(t, ValidPrincipal("2vxsx-fae"))
	require.True(t, ValidPrincipal("un4fu-tqaaa-aaaab-qadjq-cai"))
	require.False(t, ValidPrincipal("nodash"))
	require.False(t, ValidPrincipal("UPPER-case"))
}

func TestSettingsForm(t *testing.T) {
	t.Parallel()
	require.NoError(t, SettingsForm{PollInterval: "45s", DateFormat: "2006-01-02", Timezone: "UTC"}.Validate())

	fe := fieldErrors(t, SettingsForm{PollInterval: "soon", DateFormat: " ", Timezone: "Mars/Olympus"}.Validate())
	require.Equal(t, FieldErrors{
		"poll interval": "not a duration",
		"date format":   "required",
		"timezone":      "unknown timezone",
	}, fe)

	fe = fieldErrors(t, SettingsForm{PollInterval: "10ms", DateFormat: "15:04", Timezone: "Local"}.Validate())
	require.Equal(t, FieldErrors{"poll interval": "must be at least 1s"}, fe)
}
