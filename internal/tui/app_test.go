package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/jask/medadmin/internal/actor"
	"github.com/jask/medadmin/internal/actor/actortest"
	"github.com/jask/medadmin/internal/auth"
	"github.com/jask/medadmin/internal/roles"
	"github.com/jask/medadmin/internal/secrets"
	"github.com/jask/medadmin/internal/service"
)

var testNow = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

const (
	ownerPrincipal  = "hosp1-owner-cai"
	doctorPrincipal = "doc5-wallet-cai"
)

func fixture() *actortest.Fake {
	return &actortest.Fake{
		Hospitals: []actor.Hospital{
			{ID: 1, Name: "St Mary", Wallet: ownerPrincipal, Active: true},
			{ID: 2, Name: "Green Valley", Wallet: "other-owner", Active: true},
		},
		Doctors: []actor.Doctor{
			{ID: 5, HospitalID: 1, Name: "Ana Lopez", Specialty: "Cardiology", Wallet: doctorPrincipal, Active: true},
			{ID: 6, HospitalID: 1, Name: "Ben Okafor", Specialty: "Pediatrics", Active: true},
		},
		Records: []actor.MedicalRecord{
			{ID: 1, PatientID: "p-1", HospitalID: 1, DoctorID: 5, Diagnosis: "Hypertension", DocURL: "https://gw/ipfs/Qm1"},
		},
		Available: map[time.Weekday][]uint64{time.Monday: {5}},
		Patients:  map[uint64]uint64{5: 12},
	}
}

type fakeLogin struct {
	principal string
	err       error
}

func (l fakeLogin) Login(_ context.Context, s *auth.Session, _ auth.Opener) error {
	if l.err != nil {
		return l.err
	}
	s.Begin(l.principal, "tok-"+l.principal)
	return nil
}

// waitingLogin never hears back from the provider; it ends with its context.
type waitingLogin struct{}

func (waitingLogin) Login(ctx context.Context, _ *auth.Session, _ auth.Opener) error {
	<-ctx.Done()
	return ctx.Err()
}

type memTokens struct {
	puts, deletes []string
}

func (m *memTokens) Put(name, _ string) error {
	m.puts = append(m.puts, name)
	return nil
}

func (m *memTokens) Delete(name string) error {
	m.deletes = append(m.deletes, name)
	return nil
}

func newApp(f *actortest.Fake, s *auth.Session, login Authenticator, tokens TokenStore) *App {
	return New(context.Background(), Deps{
		Services:     service.New(f, nil, nil),
		Session:      s,
		Login:        login,
		Roles:        &roles.Resolver{Actor: f},
		Tokens:       tokens,
		PollInterval: time.Millisecond,
		Location:     time.UTC,
		Now:          func() time.Time { return testNow },
	})
}

// run executes cmd and feeds every resulting message back into the app.
// Poll ticks are collected instead of delivered.
func run(t *testing.T, a *App, cmd tea.Cmd) []pollMsg {
	t.Helper()
	var ticks []pollMsg
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch m := c().(type) {
		case nil:
		case tea.BatchMsg:
			queue = append(queue, m...)
		case pollMsg:
			ticks = append(ticks, m)
		default:
			_, next := a.Update(m)
			queue = append(queue, next)
		}
	}
	return ticks
}

func press(t *testing.T, a *App, keys ...string) []pollMsg {
	t.Helper()
	var ticks []pollMsg
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "ctrl+s":
			msg = tea.KeyMsg{Type: tea.KeyCtrlS}
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		_, cmd := a.Update(msg)
		ticks = append(ticks, run(t, a, cmd)...)
	}
	return ticks
}

func signedIn(principal string) *auth.Session {
	s := auth.NewSession()
	s.Begin(principal, "tok")
	return s
}

func TestStaleTicksDroppedAfterUnmount(t *testing.T) {
	f := fixture()
	a := newApp(f, nil, nil, nil)

	ticks := run(t, a, a.Init())
	require.Len(t, ticks, 1)
	require.Equal(t, 1, f.Calls("getHospitals"))

	// a live tick refreshes and reschedules
	_, cmd := a.Update(ticks[0])
	ticks = run(t, a, cmd)
	require.Len(t, ticks, 1)
	require.Equal(t, 2, f.Calls("getHospitals"))

	// leave the view; the pending tick must not call anything
	press(t, a, "6")
	require.Equal(t, viewActivity, a.state)
	calls := f.TotalCalls()
	_, cmd = a.Update(ticks[0])
	require.Nil(t, cmd)
	require.Equal(t, calls, f.TotalCalls())
}

func TestDashboardTicksDroppedAfterLogout(t *testing.T) {
	f := fixture()
	a := newApp(f, signedIn(ownerPrincipal), nil, nil)

	ticks := run(t, a, a.Init())
	require.Equal(t, viewHospitalHome, a.state)
	require.NotEmpty(t, ticks)
	last := ticks[len(ticks)-1]
	require.Equal(t, a.gen, last.gen)

	press(t, a, "o")
	calls := f.TotalCalls()
	_, cmd := a.Update(last)
	require.Nil(t, cmd)
	require.Equal(t, calls, f.TotalCalls())
}

func TestLogoutClearsSessionAndLeavesDashboard(t *testing.T) {
	f := fixture()
	s := signedIn(ownerPrincipal)
	tokens := &memTokens{}
	a := newApp(f, s, nil, tokens)

	run(t, a, a.Init())
	require.Equal(t, viewHospitalHome, a.state)
	require.Contains(t, a.View(), "[5] Hospital dashboard")
	require.Contains(t, a.View(), "St Mary")

	press(t, a, "o")
	require.False(t, s.LoggedIn())
	require.Empty(t, s.Token())
	require.Equal(t, auth.RoleNone, s.Identity().Role)
	require.Equal(t, viewHospitals, a.state)
	require.Nil(t, a.hospHome)
	require.Equal(t, []string{secrets.SessionToken}, tokens.deletes)

	view := a.View()
	require.NotContains(t, view, "[5]")
	require.Contains(t, view, "not signed in")

	press(t, a, "5")
	require.Equal(t, viewHospitals, a.state)
}

func TestUnknownPrincipalHidesDashboardLinks(t *testing.T) {
	f := fixture()
	tokens := &memTokens{}
	a := newApp(f, nil, fakeLogin{principal: "stranger-cai"}, tokens)
	run(t, a, a.Init())

	press(t, a, "l")
	require.True(t, a.session.LoggedIn())
	require.Equal(t, auth.RoleNone, a.session.Identity().Role)
	require.Equal(t, []string{secrets.SessionToken}, tokens.puts)
	require.Equal(t, viewHospitals, a.state)

	view := a.View()
	require.Contains(t, view, "signed in as stranger-cai (none)")
	require.NotContains(t, view, "dashboard")

	press(t, a, "5")
	require.Equal(t, viewHospitals, a.state)
}

func TestLoginAsDoctorOpensDoctorShell(t *testing.T) {
	f := fixture()
	a := newApp(f, nil, fakeLogin{principal: doctorPrincipal}, nil)
	run(t, a, a.Init())

	press(t, a, "l")
	require.Equal(t, viewDoctorHome, a.state)
	require.NotNil(t, a.doctorHome)
	require.True(t, a.doctorHome.found)
	require.Equal(t, uint64(12), a.doctorHome.patients)
	require.Len(t, a.doctorHome.available, 1)

	view := a.View()
	require.Contains(t, view, "[5] Doctor dashboard")
	require.Contains(t, view, "On duty today (Monday)")
}

func TestLoginFailureShowsBanner(t *testing.T) {
	f := fixture()
	a := newApp(f, nil, fakeLogin{err: auth.ErrRejected}, nil)
	run(t, a, a.Init())

	press(t, a, "l")
	require.False(t, a.session.LoggedIn())
	require.ErrorIs(t, a.err, auth.ErrRejected)
	require.Contains(t, a.View(), "error: auth: login rejected")

	press(t, a, "x")
	require.Nil(t, a.err)
	require.NotContains(t, a.View(), "error:")
}

func TestInvalidDoctorFormNeverCallsBackend(t *testing.T) {
	f := fixture()
	a := newApp(f, signedIn(ownerPrincipal), nil, nil)
	run(t, a, a.Init())
	require.Equal(t, viewHospitalHome, a.state)

	press(t, a, "n")
	require.NotNil(t, a.form)
	press(t, a, "Dr Who", "ctrl+s")
	require.Zero(t, f.Calls("registerDoctor"))
	require.Error(t, a.err)
	require.Contains(t, a.err.Error(), "specialty: required")
	require.NotNil(t, a.form, "form stays open for correction")
	require.False(t, a.form.busy)
	require.Empty(t, a.status)

	press(t, a, "tab", "Oncology", "tab", "https://x/p.png", "tab", "un4fu-tqaaa-aaaab-qadjq-cai", "enter")
	require.Equal(t, 1, f.Calls("registerDoctor"))
	require.Nil(t, a.form)
	require.Nil(t, a.err)
	require.Contains(t, a.status, "registered doctor Dr Who")
	require.Len(t, a.hospHome.doctors, 3)
}

func TestDeactivateAndPlan(t *testing.T) {
	f := fixture()
	a := newApp(f, signedIn(ownerPrincipal), nil, nil)
	run(t, a, a.Init())

	press(t, a, "j", "D")
	require.Equal(t, modalConfirmDeactivate, a.modal)
	require.Contains(t, a.View(), "Ben Okafor will no longer be listed")
	press(t, a, "y")
	require.Equal(t, 1, f.Calls("deactivateDoctor"))
	require.False(t, f.Doctors[1].Active)

	press(t, a, "P", "j", "enter")
	require.Equal(t, 1, f.Calls("toggleHospitalActiveStatus"))
	require.Contains(t, a.status, "quarterly plan applied")

	f.Fail = map[string]error{"toggleHospitalActiveStatus": errors.New("Payment not received")}
	press(t, a, "P", "enter")
	require.EqualError(t, a.err, "Payment not received")
}

func TestExpiredHospitalDeactivatedOnce(t *testing.T) {
	f := fixture()
	past := testNow.Add(-time.Hour)
	f.Hospitals[0].ExpiresAt = &past
	a := newApp(f, signedIn(ownerPrincipal), nil, nil)

	ticks := run(t, a, a.Init())
	require.Equal(t, viewHospitalHome, a.state)
	require.Equal(t, 1, f.Calls("deactivateHospitalIfExpired"))
	require.False(t, a.hospHome.hospital.Active)
	require.Contains(t, a.View(), "Subscription expired")

	last := ticks[len(ticks)-1]
	_, cmd := a.Update(last)
	run(t, a, cmd)
	require.Equal(t, 1, f.Calls("deactivateHospitalIfExpired"))
}

func TestHospitalRecordsPaging(t *testing.T) {
	f := fixture()
	for i := 2; i <= 12; i++ {
		f.Records = append(f.Records, actor.MedicalRecord{ID: uint64(i), PatientID: "p-2", HospitalID: 1, Diagnosis: "Checkup"})
	}
	a := newApp(f, signedIn(ownerPrincipal), nil, nil)
	run(t, a, a.Init())

	press(t, a, "r")
	require.Equal(t, viewHospitalRecords, a.state)
	require.Len(t, a.page.Items, service.DefaultPageSize)
	require.Contains(t, a.View(), "page 1 of 2, 12 total")

	press(t, a, "]")
	require.Equal(t, 1, a.recPage)
	require.Len(t, a.page.Items, 2)
	press(t, a, "]")
	require.Equal(t, 1, a.recPage)

	press(t, a, "[", "esc")
	require.Equal(t, viewHospitalHome, a.state)
}

func TestPatientLookupAndSearch(t *testing.T) {
	f := fixture()
	a := newApp(f, nil, nil, nil)
	run(t, a, a.Init())

	press(t, a, "3", "p-1", "enter")
	require.Equal(t, "p-1", a.patientID)
	require.Len(t, a.records, 1)
	require.Contains(t, a.View(), "Hypertension")

	press(t, a, "esc", "4", "cardio")
	require.Equal(t, viewSearch, a.state)
	require.Len(t, a.matches, 1)
	require.Equal(t, "Ana Lopez", a.matches[0].Name)
	require.Contains(t, a.View(), "Cardiology @ St Mary")
}

func TestRegisterHospitalRequiresLogin(t *testing.T) {
	f := fixture()
	a := newApp(f, nil, fakeLogin{principal: "newowner-cai"}, nil)
	run(t, a, a.Init())

	press(t, a, "R")
	require.Nil(t, a.form)
	require.True(t, strings.Contains(a.status, "sign in"))

	press(t, a, "l", "R", "North Clinic", "tab", "https://x/logo.png", "enter")
	require.Equal(t, 1, f.Calls("registerHospital"))
	require.Nil(t, a.form)
	require.Contains(t, a.status, "registered hospital North Clinic")
}

func key(k string) tea.KeyMsg {
	if k == "esc" {
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func TestAbandonedLoginCanBeCancelled(t *testing.T) {
	f := fixture()
	a := newApp(f, nil, waitingLogin{}, nil)
	run(t, a, a.Init())

	_, cmd := a.Update(key("l"))
	require.NotNil(t, cmd)
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()

	_, again := a.Update(key("l"))
	require.Nil(t, again, "a second login must not start while one is pending")
	require.Contains(t, a.status, "already in progress")

	_, cmd2 := a.Update(key("esc"))
	require.Nil(t, cmd2)
	require.Equal(t, viewHospitals, a.state)

	var msg tea.Msg
	select {
	case msg = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("login did not stop after cancel")
	}
	_, next := a.Update(msg)
	require.Nil(t, next)
	require.Nil(t, a.err)
	require.Equal(t, "login cancelled", a.status)
	require.False(t, a.session.LoggedIn())

	_, cmd = a.Update(key("l"))
	require.NotNil(t, cmd, "login can be retried")
	a.loginCancel()
}

func TestLoginTimesOut(t *testing.T) {
	f := fixture()
	a := New(context.Background(), Deps{
		Services:     service.New(f, nil, nil),
		Login:        waitingLogin{},
		Roles:        &roles.Resolver{Actor: f},
		LoginTimeout: 10 * time.Millisecond,
		Location:     time.UTC,
	})
	press(t, a, "l")
	require.ErrorIs(t, a.err, errLoginTimedOut)
	require.Empty(t, a.status)
	require.Nil(t, a.loginCancel)
}

func TestNavigationReresolvesRole(t *testing.T) {
	f := fixture()
	s := signedIn(ownerPrincipal)
	a := newApp(f, s, nil, nil)
	run(t, a, a.Init())
	require.Equal(t, viewHospitalHome, a.state)

	// ownership moved elsewhere; the next visit to the dashboard notices
	f.Hospitals[0].Wallet = "new-owner-cai"
	press(t, a, "1", "5")
	require.Equal(t, viewHospitals, a.state)
	require.Equal(t, auth.RoleNone, s.Identity().Role)
	require.Contains(t, a.status, "not available")
	require.NotContains(t, a.View(), "[5]")
}

func TestSettingsSavedAndApplied(t *testing.T) {
	f := fixture()
	tokens := &memTokens{}
	var saved []Prefs
	a := New(context.Background(), Deps{
		Services:     service.New(f, nil, nil),
		Roles:        &roles.Resolver{Actor: f},
		Tokens:       tokens,
		PollInterval: time.Millisecond,
		Location:     time.UTC,
		DateFormat:   "02 Jan 2006 15:04",
		SavePrefs: func(p Prefs) error {
			saved = append(saved, p)
			return nil
		},
	})
	run(t, a, a.Init())

	press(t, a, "S")
	require.NotNil(t, a.form)
	require.Equal(t, "1ms", a.form.value(0))
	require.Equal(t, "UTC", a.form.value(2))

	a.form.fields[0].value = "soon"
	press(t, a, "ctrl+s")
	require.Error(t, a.err)
	require.Contains(t, a.err.Error(), "poll interval: not a duration")
	require.Empty(t, saved)
	require.NotNil(t, a.form)

	a.form.fields[0].value = "45s"
	a.form.fields[1].value = "2006-01-02"
	a.form.fields[3].value = "jwt-secret"
	require.Contains(t, a.View(), "**********")
	require.NotContains(t, a.View(), "jwt-secret")
	press(t, a, "ctrl+s")
	require.Nil(t, a.err)
	require.Nil(t, a.form)
	require.Equal(t, "settings saved", a.status)
	require.Equal(t, []Prefs{{PollInterval: 45 * time.Second, DateFormat: "2006-01-02", Timezone: "UTC"}}, saved)
	require.Equal(t, []string{secrets.PinningJWT}, tokens.puts)
	require.Equal(t, 45*time.Second, a.interval)
	require.Equal(t, "2006-01-02", a.dateFormat)
}
