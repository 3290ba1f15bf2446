package tui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/medadmin/internal/actor"
	"github.com/jask/medadmin/internal/auth"
	"github.com/jask/medadmin/internal/database/repository"
	"github.com/jask/medadmin/internal/roles"
	"github.com/jask/medadmin/internal/service"
)

// App ties together the layout shells and views.
type App struct {
	ctx      context.Context
	services *service.Services
	session  *auth.Session
	login    Authenticator
	roles    *roles.Resolver
	open     auth.Opener
	tokens   TokenStore
	now      func() time.Time

	state  appState
	modal  modalState
	form   *formState
	cursor int
	status string
	err    error

	// polling
	interval time.Duration
	gen      int

	// data shown by the views
	hospitals  []actor.Hospital
	doctors    []service.DoctorRow
	patientID  string
	patientIn  string
	records    []actor.MedicalRecord
	searchIn   string
	matches    []service.Match
	doctorHome *doctorHome
	hospHome   *hospitalHome
	recPage    int
	page       actor.RecordPage
	activity   []repository.Activity
	planCursor int

	awaitingDashboard bool
	tz                *time.Location
	dateFormat        string

	// login in progress; esc cancels it
	loginCancel  context.CancelFunc
	loginTimeout time.Duration

	savePrefs PrefsSaver
}

// Authenticator is the part of auth.Authenticator the app drives.
type Authenticator interface {
	Login(ctx context.Context, s *auth.Session, open auth.Opener) error
}

// TokenStore persists the session token between runs.
type TokenStore interface {
	Put(name, value string) error
	Delete(name string) error
}

// Deps are the collaborators New needs. Login, Open and Tokens may be nil.
type Deps struct {
	Services     *service.Services
	Session      *auth.Session
	Login        Authenticator
	Roles        *roles.Resolver
	Open         auth.Opener
	Tokens       TokenStore
	PollInterval time.Duration
	Location     *time.Location
	DateFormat   string
	Now          func() time.Time
	// LoginTimeout bounds one browser login; zero means defaultLoginTimeout.
	LoginTimeout time.Duration
	SavePrefs    PrefsSaver
}

// Prefs are the settings that can be changed from the console.
type Prefs struct {
	PollInterval time.Duration
	DateFormat   string
	Timezone     string
}

// PrefsSaver writes Prefs back to the config file.
type PrefsSaver func(Prefs) error

const defaultLoginTimeout = 5 * time.Minute

type appState string

const (
	viewHospitals       appState = "hospitals"
	viewDoctors         appState = "doctors"
	viewPatient         appState = "patient"
	viewSearch          appState = "search"
	viewDoctorHome      appState = "doctorHome"
	viewHospitalHome    appState = "hospitalHome"
	viewHospitalRecords appState = "hospitalRecords"
	viewActivity        appState = "activity"
)

type modalState string

const (
	modalNone              modalState = ""
	modalConfirmDeactivate modalState = "confirmDeactivate"
	modalPlan              modalState = "plan"
)

type doctorHome struct {
	doctor    service.DoctorRow
	found     bool
	patients  uint64
	available []actor.Doctor
}

type hospitalHome struct {
	hospital  actor.Hospital
	found     bool
	doctors   []service.DoctorRow
	expiryErr error
}

func New(ctx context.Context, d Deps) *App {
	tz := d.Location
	if tz == nil {
		tz = time.Local
	}
	interval := d.PollInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}
	dateFormat := d.DateFormat
	if dateFormat == "" {
		dateFormat = "2006-01-02"
	}
	session := d.Session
	if session == nil {
		session = auth.NewSession()
	}
	loginTimeout := d.LoginTimeout
	if loginTimeout <= 0 {
		loginTimeout = defaultLoginTimeout
	}
	return &App{
		ctx:        ctx,
		services:   d.Services,
		session:    session,
		login:      d.Login,
		roles:      d.Roles,
		open:       d.Open,
		tokens:     d.Tokens,
		now:        now,
		interval:   interval,
		tz:         tz,
		dateFormat: dateFormat,
		state:      viewHospitals,

		loginTimeout: loginTimeout,
		savePrefs:    d.SavePrefs,
	}
}

func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.mount(viewHospitals)}
	if a.session.LoggedIn() {
		a.awaitingDashboard = true
		cmds = append(cmds, a.resolveCmd())
	}
	return tea.Batch(cmds...)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.KeyMsg:
		if m.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if m.Type == tea.KeyEsc && a.loginCancel != nil && a.form == nil && a.modal == modalNone {
			a.loginCancel()
			a.status = "cancelling login..."
			return a, nil
		}
		if a.form != nil {
			return a.handleFormKey(m)
		}
		if a.modal != modalNone {
			return a.handleModalKey(m)
		}
		if a.state == viewPatient || a.state == viewSearch {
			return a.handleInputKey(m)
		}
		return a.handleKey(m)
	case pollMsg:
		return a, a.handlePoll(m)
	case hospitalsMsg:
		a.hospitals = []actor.Hospital(m)
		a.clampCursor()
	case doctorsMsg:
		a.doctors = m.rows
		a.hospitals = m.hospitals
		a.matches = service.Search(a.searchIn, a.hospitals, a.doctors)
		a.clampCursor()
	case patientRecordsMsg:
		if m.patientID == a.patientID {
			a.records = m.records
		}
	case doctorHomeMsg:
		a.doctorHome = m.home
	case hospitalHomeMsg:
		a.hospHome = m.home
		a.clampCursor()
		if m.home.expiryErr != nil {
			a.err = m.home.expiryErr
		}
	case recordsPageMsg:
		a.page = actor.RecordPage(m)
	case activityMsg:
		a.activity = []repository.Activity(m)
	case loginMsg:
		if a.loginCancel != nil {
			a.loginCancel()
			a.loginCancel = nil
		}
		switch {
		case errors.Is(m.err, context.Canceled):
			a.status = "login cancelled"
			return a, nil
		case errors.Is(m.err, context.DeadlineExceeded):
			a.status = ""
			a.err = errLoginTimedOut
			return a, nil
		case m.err != nil:
			a.status = ""
			a.err = m.err
			return a, nil
		}
		a.status = "signed in as " + a.session.Principal()
		a.awaitingDashboard = true
		return a, tea.Batch(a.saveTokenCmd(), a.resolveCmd())
	case identityMsg:
		return a, a.applyIdentity(m)
	case mutationMsg:
		return a, a.applyMutation(m)
	case settingsMsg:
		a.applySettings(m)
	case statusMsg:
		a.status = string(m)
	case errMsg:
		a.err = m.error
	}
	return a, nil
}

func (a *App) handleKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.String() {
	case "q":
		return a, tea.Quit
	case "x":
		a.err = nil
	case "l":
		if a.session.LoggedIn() {
			a.status = "already signed in"
			return a, nil
		}
		if a.loginCancel != nil {
			a.status = "login already in progress, [esc] to cancel"
			return a, nil
		}
		return a, a.loginCmd()
	case "S":
		a.openSettingsForm()
		return a, nil
	case "o":
		return a, a.logout()
	case "1":
		return a, a.mount(viewHospitals)
	case "2":
		return a, a.mount(viewDoctors)
	case "3":
		return a, a.mount(viewPatient)
	case "4":
		return a, a.mount(viewSearch)
	case "5":
		if v := a.dashboardView(); v != "" {
			return a, a.mount(v)
		}
	case "6":
		return a, a.mount(viewActivity)
	case "up", "k":
		if a.cursor > 0 {
			a.cursor--
		}
	case "down", "j":
		if a.cursor < a.listLen()-1 {
			a.cursor++
		}
	}

	switch a.state {
	case viewHospitals:
		if m.String() == "R" {
			if !a.session.LoggedIn() {
				a.status = "sign in with [l] to register a hospital"
				return a, nil
			}
			a.openHospitalForm()
		}
	case viewDoctorHome:
		if m.String() == "n" && a.doctorHome != nil && a.doctorHome.found {
			a.openRecordForm(a.doctorHome.doctor.HospitalID)
		}
	case viewHospitalHome:
		if a.hospHome == nil || !a.hospHome.found {
			return a, nil
		}
		switch m.String() {
		case "n":
			a.openDoctorForm(a.hospHome.hospital.ID)
		case "D":
			if len(a.hospHome.doctors) > 0 {
				a.modal = modalConfirmDeactivate
			}
		case "P":
			a.modal = modalPlan
			a.planCursor = 0
		case "r":
			a.recPage = 0
			return a, a.mount(viewHospitalRecords)
		}
	case viewHospitalRecords:
		switch m.String() {
		case "]", "right":
			if a.recPage < a.page.Pages()-1 {
				a.recPage++
				return a, a.mount(viewHospitalRecords)
			}
		case "[", "left":
			if a.recPage > 0 {
				a.recPage--
				return a, a.mount(viewHospitalRecords)
			}
		case "esc":
			return a, a.mount(viewHospitalHome)
		}
	}
	return a, nil
}

// handleInputKey serves the patient lookup and search views, whose input is always focused.
func (a *App) handleInputKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	buf := &a.patientIn
	if a.state == viewSearch {
		buf = &a.searchIn
	}
	switch m.Type {
	case tea.KeyEsc:
		return a, a.mount(viewHospitals)
	case tea.KeyEnter:
		if a.state == viewPatient {
			a.patientID = a.patientIn
			a.records = nil
			return a, a.mount(viewPatient)
		}
		a.matches = service.Search(a.searchIn, a.hospitals, a.doctors)
		a.cursor = 0
	case tea.KeyUp:
		if a.cursor > 0 {
			a.cursor--
		}
	case tea.KeyDown:
		if a.cursor < a.listLen()-1 {
			a.cursor++
		}
	case tea.KeyBackspace, tea.KeyCtrlH, tea.KeyDelete:
		if len(*buf) > 0 {
			r := []rune(*buf)
			*buf = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		*buf += " "
	case tea.KeyRunes:
		*buf += string(m.Runes)
	}
	if a.state == viewSearch && (m.Type == tea.KeyRunes || m.Type == tea.KeySpace || m.Type == tea.KeyBackspace) {
		a.matches = service.Search(a.searchIn, a.hospitals, a.doctors)
		a.clampCursor()
	}
	return a, nil
}

func (a *App) handleModalKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch a.modal {
	case modalConfirmDeactivate:
		switch m.String() {
		case "y", "Y":
			a.modal = modalNone
			if a.hospHome == nil || a.cursor >= len(a.hospHome.doctors) {
				return a, nil
			}
			return a, a.deactivateCmd(a.hospHome.doctors[a.cursor].ID)
		case "n", "N", "esc":
			a.modal = modalNone
		}
	case modalPlan:
		switch m.String() {
		case "esc":
			a.modal = modalNone
		case "up", "k":
			if a.planCursor > 0 {
				a.planCursor--
			}
		case "down", "j":
			if a.planCursor < len(actor.Plans)-1 {
				a.planCursor++
			}
		case "enter":
			a.modal = modalNone
			if a.hospHome == nil {
				return a, nil
			}
			return a, a.planCmd(a.hospHome.hospital.ID, string(actor.Plans[a.planCursor]))
		}
	}
	return a, nil
}

// logout clears the session and leaves any role-gated view.
func (a *App) logout() tea.Cmd {
	wasIn := a.session.LoggedIn()
	auth.Logout(a.session)
	if a.roles != nil {
		a.roles.Invalidate()
	}
	a.doctorHome = nil
	a.hospHome = nil
	a.page = actor.RecordPage{}
	a.form = nil
	a.modal = modalNone
	a.awaitingDashboard = false
	if wasIn {
		a.status = "signed out"
	}
	mount := tea.Cmd(nil)
	if a.roleGated(a.state) {
		mount = a.mount(viewHospitals)
	}
	return tea.Batch(mount, a.forgetTokenCmd())
}

func (a *App) applyIdentity(m identityMsg) tea.Cmd {
	if !a.session.SetIdentity(m.principal, m.id) {
		return nil
	}
	if m.err != nil {
		a.err = m.err
	}
	if a.roleGated(a.state) && !a.allowed(a.state) {
		a.status = "this dashboard is not available for your account"
		return a.mount(viewHospitals)
	}
	if a.awaitingDashboard && m.err == nil {
		a.awaitingDashboard = false
		if v := a.dashboardView(); v != "" {
			return a.mount(v)
		}
	}
	return nil
}

func (a *App) applyMutation(m mutationMsg) tea.Cmd {
	if m.err != nil {
		a.err = m.err
		a.status = ""
		if a.form != nil {
			a.form.busy = false
		}
		return nil
	}
	a.form = nil
	a.err = nil
	a.status = m.status
	if m.reresolve {
		a.awaitingDashboard = true
		return tea.Batch(a.mount(a.state), a.resolveCmd())
	}
	return a.mount(a.state)
}

// applySettings takes effect from the next poll tick.
func (a *App) applySettings(m settingsMsg) {
	if m.err != nil {
		a.err = m.err
		a.status = ""
		if a.form != nil {
			a.form.busy = false
		}
		return
	}
	a.form = nil
	a.err = nil
	a.interval = m.prefs.PollInterval
	a.dateFormat = m.prefs.DateFormat
	a.tz = m.tz
	a.status = "settings saved"
}

// dashboardView is the role's own shell, or "" for RoleNone.
func (a *App) dashboardView() appState {
	switch a.session.Identity().Role {
	case auth.RoleDoctor:
		return viewDoctorHome
	case auth.RoleHospital:
		return viewHospitalHome
	default:
		return ""
	}
}

func (a *App) roleGated(s appState) bool {
	return s == viewDoctorHome || s == viewHospitalHome || s == viewHospitalRecords
}

func (a *App) allowed(s appState) bool {
	switch s {
	case viewDoctorHome:
		return a.session.Identity().Role == auth.RoleDoctor
	case viewHospitalHome, viewHospitalRecords:
		return a.session.Identity().Role == auth.RoleHospital
	default:
		return true
	}
}

func (a *App) listLen() int {
	switch a.state {
	case viewHospitals:
		return len(a.hospitals)
	case viewDoctors:
		return len(a.doctors)
	case viewPatient:
		return len(a.records)
	case viewSearch:
		return len(a.matches)
	case viewHospitalHome:
		if a.hospHome != nil {
			return len(a.hospHome.doctors)
		}
	case viewHospitalRecords:
		return len(a.page.Items)
	case viewActivity:
		return len(a.activity)
	}
	return 0
}

func (a *App) clampCursor() {
	if n := a.listLen(); a.cursor >= n {
		a.cursor = 0
		if n > 0 {
			a.cursor = n - 1
		}
	}
}
