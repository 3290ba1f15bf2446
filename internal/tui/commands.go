package tui

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/medadmin/internal/actor"
	"github.com/jask/medadmin/internal/auth"
	"github.com/jask/medadmin/internal/database/repository"
	"github.com/jask/medadmin/internal/forms"
	"github.com/jask/medadmin/internal/secrets"
	"github.com/jask/medadmin/internal/service"
)

type (
	errMsg       struct{ error }
	statusMsg    string
	hospitalsMsg []actor.Hospital
	doctorsMsg   struct {
		rows      []service.DoctorRow
		hospitals []actor.Hospital
	}
	patientRecordsMsg struct {
		patientID string
		records   []actor.MedicalRecord
	}
	doctorHomeMsg   struct{ home *doctorHome }
	hospitalHomeMsg struct{ home *hospitalHome }
	recordsPageMsg  actor.RecordPage
	activityMsg     []repository.Activity
	loginMsg        struct{ err error }
	identityMsg     struct {
		principal string
		id        auth.Identity
		err       error
	}
	settingsMsg struct {
		prefs Prefs
		tz    *time.Location
		err   error
	}
	mutationMsg struct {
		status string
		err    error
		// reresolve asks for the role again, e.g. after registering a hospital.
		reresolve bool
	}
)

var (
	errLoginUnavailable = errors.New("login is not configured")
	errLoginTimedOut    = errors.New("login timed out, press [l] to try again")
)

func (a *App) loadHospitals() tea.Cmd {
	return func() tea.Msg {
		hs, err := a.services.Directory.Hospitals(a.ctx)
		if err != nil {
			return errMsg{err}
		}
		return hospitalsMsg(hs)
	}
}

func (a *App) loadDoctors() tea.Cmd {
	return func() tea.Msg {
		rows, hs, err := a.services.Directory.Doctors(a.ctx)
		if err != nil {
			return errMsg{err}
		}
		return doctorsMsg{rows: rows, hospitals: hs}
	}
}

func (a *App) loadPatientRecords(patientID string) tea.Cmd {
	return func() tea.Msg {
		recs, err := a.services.Directory.PatientRecords(a.ctx, patientID)
		if err != nil {
			return errMsg{err}
		}
		return patientRecordsMsg{patientID: patientID, records: recs}
	}
}

func (a *App) loadDoctorHome(doctorID uint64) tea.Cmd {
	return func() tea.Msg {
		dir := a.services.Directory
		rows, _, err := dir.Doctors(a.ctx)
		if err != nil {
			return errMsg{err}
		}
		home := &doctorHome{}
		for _, r := range rows {
			if r.ID == doctorID {
				home.doctor, home.found = r, true
				break
			}
		}
		if !home.found {
			return doctorHomeMsg{home}
		}
		if home.patients, err = dir.PatientCount(a.ctx, doctorID); err != nil {
			return errMsg{err}
		}
		if home.available, err = dir.AvailableToday(a.ctx, home.doctor.HospitalID, a.now().In(a.tz)); err != nil {
			return errMsg{err}
		}
		return doctorHomeMsg{home}
	}
}

func (a *App) loadHospitalHome(hospitalID uint64) tea.Cmd {
	return func() tea.Msg {
		rows, hs, err := a.services.Directory.Doctors(a.ctx)
		if err != nil {
			return errMsg{err}
		}
		home := &hospitalHome{doctors: service.OfHospital(rows, hospitalID)}
		for _, h := range hs {
			if h.ID == hospitalID {
				home.hospital, home.found = h, true
				break
			}
		}
		if home.found {
			shown, err := a.services.Hospitals.CheckExpiry(a.ctx, []actor.Hospital{home.hospital})
			if len(shown) == 1 {
				home.hospital = shown[0]
			}
			home.expiryErr = err
		}
		return hospitalHomeMsg{home}
	}
}

func (a *App) loadRecordsPage(hospitalID uint64, page int) tea.Cmd {
	return func() tea.Msg {
		p, err := a.services.Directory.HospitalRecords(a.ctx, hospitalID, page, service.DefaultPageSize)
		if err != nil {
			return errMsg{err}
		}
		return recordsPageMsg(p)
	}
}

func (a *App) loadActivity() tea.Cmd {
	return func() tea.Msg {
		list, err := a.services.Journal.Recent(a.ctx, "", 50)
		if err != nil {
			return errMsg{err}
		}
		return activityMsg(list)
	}
}

func (a *App) loginCmd() tea.Cmd {
	if a.login == nil {
		return func() tea.Msg { return loginMsg{err: errLoginUnavailable} }
	}
	ctx, cancel := context.WithTimeout(a.ctx, a.loginTimeout)
	a.loginCancel = cancel
	a.status = "waiting for the identity provider...  [esc] Cancel"
	return func() tea.Msg {
		return loginMsg{err: a.login.Login(ctx, a.session, a.open)}
	}
}

func (a *App) resolveCmd() tea.Cmd {
	principal := a.session.Principal()
	return func() tea.Msg {
		if a.roles == nil {
			return identityMsg{principal: principal, id: auth.Identity{Role: auth.RoleNone}}
		}
		id, err := a.roles.Resolve(a.ctx, principal)
		if err != nil {
			err = fmt.Errorf("resolve role: %w", err)
		}
		return identityMsg{principal: principal, id: id, err: err}
	}
}

func (a *App) saveTokenCmd() tea.Cmd {
	if a.tokens == nil {
		return nil
	}
	token := a.session.Token()
	return func() tea.Msg {
		if err := a.tokens.Put(secrets.SessionToken, token); err != nil {
			log.Printf("save session token: %v", err)
		}
		return nil
	}
}

func (a *App) forgetTokenCmd() tea.Cmd {
	if a.tokens == nil {
		return nil
	}
	return func() tea.Msg {
		if err := a.tokens.Delete(secrets.SessionToken); err != nil {
			log.Printf("forget session token: %v", err)
		}
		return nil
	}
}

func (a *App) registerDoctorCmd(f forms.DoctorForm) tea.Cmd {
	return func() tea.Msg {
		doc, err := a.services.Doctors.Register(a.ctx, f)
		return mutationMsg{status: fmt.Sprintf("registered doctor %s (#%d)", doc.Name, doc.ID), err: err}
	}
}

func (a *App) deactivateCmd(doctorID uint64) tea.Cmd {
	return func() tea.Msg {
		err := a.services.Doctors.Deactivate(a.ctx, doctorID)
		return mutationMsg{status: fmt.Sprintf("doctor #%d deactivated", doctorID), err: err}
	}
}

func (a *App) addRecordCmd(f forms.RecordForm) tea.Cmd {
	return func() tea.Msg {
		rec, err := a.services.Records.Add(a.ctx, f)
		return mutationMsg{status: fmt.Sprintf("record #%d added for %s", rec.ID, rec.PatientID), err: err}
	}
}

func (a *App) registerHospitalCmd(f forms.HospitalForm) tea.Cmd {
	return func() tea.Msg {
		h, err := a.services.Hospitals.Register(a.ctx, f)
		if err == nil && a.roles != nil {
			a.roles.Invalidate()
		}
		return mutationMsg{status: fmt.Sprintf("registered hospital %s (#%d)", h.Name, h.ID), err: err, reresolve: err == nil}
	}
}

func (a *App) planCmd(hospitalID uint64, plan string) tea.Cmd {
	return func() tea.Msg {
		h, err := a.services.Hospitals.ActivatePlan(a.ctx, forms.PlanForm{HospitalID: hospitalID, Plan: plan})
		state := "inactive"
		if h.Active {
			state = "active"
		}
		return mutationMsg{status: fmt.Sprintf("%s plan applied, hospital is %s", plan, state), err: err}
	}
}

// settingsCmd validates the preferences, stores a new pinning JWT when one was
// typed, and writes the rest to the config file.
func (a *App) settingsCmd(f forms.SettingsForm, pinningJWT string) tea.Cmd {
	return func() tea.Msg {
		if err := f.Validate(); err != nil {
			return settingsMsg{err: err}
		}
		interval, _ := time.ParseDuration(strings.TrimSpace(f.PollInterval))
		tz, _ := time.LoadLocation(strings.TrimSpace(f.Timezone))
		prefs := Prefs{PollInterval: interval, DateFormat: f.DateFormat, Timezone: tz.String()}

		if jwt := strings.TrimSpace(pinningJWT); jwt != "" {
			if a.tokens == nil {
				return settingsMsg{err: errors.New("no secret store to keep the pinning JWT")}
			}
			if err := a.tokens.Put(secrets.PinningJWT, jwt); err != nil {
				return settingsMsg{err: fmt.Errorf("store pinning JWT: %w", err)}
			}
		}
		if a.savePrefs != nil {
			if err := a.savePrefs(prefs); err != nil {
				return settingsMsg{err: fmt.Errorf("save settings: %w", err)}
			}
		}
		return settingsMsg{prefs: prefs, tz: tz}
	}
}
