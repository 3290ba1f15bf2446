package tui

import (
	"strconv"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/medadmin/internal/forms"
)

type formKind string

const (
	formDoctor   formKind = "doctor"
	formRecord   formKind = "record"
	formHospital formKind = "hospital"
	formSettings formKind = "settings"
)

type formField struct {
	label  string
	value  string
	secret bool
}

// formState is the open mutation form. hospitalID comes from the signed-in
// identity, not from user input.
type formState struct {
	kind       formKind
	title      string
	fields     []formField
	focus      int
	busy       bool
	hospitalID uint64
}

func (a *App) openDoctorForm(hospitalID uint64) {
	a.form = &formState{
		kind:       formDoctor,
		title:      "Register doctor",
		hospitalID: hospitalID,
		fields: []formField{
			{label: "Name"},
			{label: "Specialty"},
			{label: "Photo URL"},
			{label: "Wallet principal"},
		},
	}
}

func (a *App) openRecordForm(hospitalID uint64) {
	a.form = &formState{
		kind:       formRecord,
		title:      "Add medical record",
		hospitalID: hospitalID,
		fields: []formField{
			{label: "Patient ID"},
			{label: "Diagnosis"},
			{label: "Document URL"},
			{label: "or document file to upload"},
			{label: "Evidence URLs (comma separated)"},
		},
	}
}

func (a *App) openHospitalForm() {
	a.form = &formState{
		kind:  formHospital,
		title: "Register hospital",
		fields: []formField{
			{label: "Name"},
			{label: "Logo URL"},
		},
	}
}

func (a *App) openSettingsForm() {
	a.form = &formState{
		kind:  formSettings,
		title: "Settings",
		fields: []formField{
			{label: "Poll interval", value: a.interval.String()},
			{label: "Date format", value: a.dateFormat},
			{label: "Timezone", value: a.tz.String()},
			{label: "Pinning JWT (blank keeps current)", secret: true},
		},
	}
}

func (f *formState) value(i int) string { return f.fields[i].value }

func (a *App) handleFormKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := a.form
	if f.busy {
		if m.Type == tea.KeyEsc {
			a.form = nil
		}
		return a, nil
	}
	switch m.Type {
	case tea.KeyEsc:
		a.form = nil
	case tea.KeyTab, tea.KeyDown:
		f.focus = (f.focus + 1) % len(f.fields)
	case tea.KeyShiftTab, tea.KeyUp:
		f.focus = (f.focus + len(f.fields) - 1) % len(f.fields)
	case tea.KeyEnter:
		if f.focus < len(f.fields)-1 {
			f.focus++
			return a, nil
		}
		return a, a.submitForm()
	case tea.KeyCtrlS:
		return a, a.submitForm()
	case tea.KeyBackspace, tea.KeyCtrlH, tea.KeyDelete:
		if v := []rune(f.fields[f.focus].value); len(v) > 0 {
			f.fields[f.focus].value = string(v[:len(v)-1])
		}
	case tea.KeySpace:
		f.fields[f.focus].value += " "
	case tea.KeyRunes:
		f.fields[f.focus].value += string(m.Runes)
	}
	return a, nil
}

// submitForm hands the form to the service, which validates before any call.
func (a *App) submitForm() tea.Cmd {
	f := a.form
	f.busy = true
	a.status = "submitting..."
	hospital := strconv.FormatUint(f.hospitalID, 10)
	switch f.kind {
	case formDoctor:
		return a.registerDoctorCmd(forms.DoctorForm{
			HospitalID: hospital,
			Name:       f.value(0),
			Specialty:  f.value(1),
			PhotoURL:   f.value(2),
			Wallet:     f.value(3),
		})
	case formRecord:
		return a.addRecordCmd(forms.RecordForm{
			PatientID:  f.value(0),
			HospitalID: hospital,
			Diagnosis:  f.value(1),
			DocURL:     f.value(2),
			DocPath:    f.value(3),
			Evidence:   f.value(4),
		})
	case formHospital:
		return a.registerHospitalCmd(forms.HospitalForm{
			Name:    f.value(0),
			LogoURL: f.value(1),
		})
	case formSettings:
		return a.settingsCmd(forms.SettingsForm{
			PollInterval: f.value(0),
			DateFormat:   f.value(1),
			Timezone:     f.value(2),
		}, f.value(3))
	}
	f.busy = false
	return nil
}
