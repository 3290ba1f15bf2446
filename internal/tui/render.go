package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jask/medadmin/internal/actor"
	"github.com/jask/medadmin/internal/auth"
	"github.com/jask/medadmin/internal/expiry"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Underline(true).Foreground(colorBrand)
	errStyle    = lipgloss.NewStyle().Foreground(colorBase).Background(colorError).Padding(0, 1)
	bannerStyle = lipgloss.NewStyle().Foreground(colorBase).Background(colorWarning).Padding(0, 1)
	okStyle     = lipgloss.NewStyle().Foreground(colorSuccess)
	dimStyle    = lipgloss.NewStyle().Foreground(colorMuted)
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorFocus).Padding(0, 1)
)

func (a *App) View() string {
	var body string
	switch a.state {
	case viewDoctors:
		body = a.renderDoctors()
	case viewPatient:
		body = a.renderPatient()
	case viewSearch:
		body = a.renderSearch()
	case viewDoctorHome:
		body = a.renderDoctorHome()
	case viewHospitalHome:
		body = a.renderHospitalHome()
	case viewHospitalRecords:
		body = a.renderHospitalRecords()
	case viewActivity:
		body = a.renderActivity()
	default:
		body = a.renderHospitals()
	}
	out := a.renderHeader() + "\n"
	if a.err != nil {
		out += errStyle.Render("error: "+a.err.Error()) + dimStyle.Render("  [x] dismiss") + "\n"
	}
	out += body
	if a.form != nil {
		out += "\n\n" + a.renderForm()
	} else if a.modal != modalNone {
		out += "\n\n" + a.renderModal()
	}
	out += "\n" + a.renderNav()
	if a.status != "" {
		out += "\n" + a.status
	}
	return out
}

func (a *App) renderHeader() string {
	if !a.session.LoggedIn() {
		return dimStyle.Render("not signed in  [l] Log in")
	}
	id := a.session.Identity()
	return fmt.Sprintf("signed in as %s (%s)  %s", a.session.Principal(), id.Role, dimStyle.Render("[o] Log out"))
}

// renderNav lists the shells. The dashboard entry only exists for a resolved role.
func (a *App) renderNav() string {
	links := []string{"[1] Hospitals", "[2] Doctors", "[3] Patient records", "[4] Search"}
	switch a.session.Identity().Role {
	case auth.RoleDoctor:
		links = append(links, "[5] Doctor dashboard")
	case auth.RoleHospital:
		links = append(links, "[5] Hospital dashboard")
	}
	links = append(links, "[6] Activity", "[S] Settings", "[q] Quit")
	return strings.Join(links, "  ")
}

func marker(i, cursor int) string {
	if i == cursor {
		return "▶"
	}
	return " "
}

func activeLabel(active bool) string {
	if active {
		return okStyle.Render("active")
	}
	return dimStyle.Render("inactive")
}

func (a *App) renderHospitals() string {
	out := titleStyle.Render("Hospitals") + "\n"
	if len(a.hospitals) == 0 {
		out += "  (no hospitals registered)\n"
	}
	now := a.now()
	for i, h := range a.hospitals {
		line := fmt.Sprintf("%s #%-4d %-32s %s", marker(i, a.cursor), h.ID, h.Name, activeLabel(h.Active))
		if h.ExpiresAt != nil && h.Active {
			line += "  " + expiry.FormatRemaining(expiry.Remaining(h, now))
		}
		out += line + "\n"
	}
	if a.session.LoggedIn() {
		out += "[R] Register a hospital"
	}
	return strings.TrimRight(out, "\n")
}

func (a *App) renderDoctors() string {
	out := titleStyle.Render("Doctors") + "\n"
	if len(a.doctors) == 0 {
		out += "  (no doctors registered)\n"
	}
	for i, d := range a.doctors {
		out += fmt.Sprintf("%s #%-4d %-24s %-18s %-28s %s\n", marker(i, a.cursor), d.ID, d.Name, d.Specialty, d.HospitalName, activeLabel(d.Active))
	}
	return strings.TrimRight(out, "\n")
}

func (a *App) renderRecords(recs []actor.MedicalRecord) string {
	var out string
	for i, r := range recs {
		out += fmt.Sprintf("%s #%-4d %s  patient %-12s hospital #%-4d doctor #%-4d %s\n", marker(i, a.cursor), r.ID, a.formatDate(r), r.PatientID, r.HospitalID, r.DoctorID, r.Diagnosis)
		out += dimStyle.Render("       document: "+r.DocURL) + "\n"
		for _, e := range r.EvidenceURLs {
			out += dimStyle.Render("       evidence: "+e) + "\n"
		}
	}
	return out
}

func (a *App) formatDate(r actor.MedicalRecord) string {
	if r.CreatedAt.IsZero() {
		return strings.Repeat(" ", len(a.dateFormat))
	}
	return r.CreatedAt.In(a.tz).Format(a.dateFormat)
}

func (a *App) renderPatient() string {
	out := titleStyle.Render("Patient records") + "\n"
	out += fmt.Sprintf("Patient ID: %s▏\n[enter] Look up  [esc] Back\n", a.patientIn)
	if a.patientID != "" {
		if len(a.records) == 0 {
			out += fmt.Sprintf("  (no records for %s)\n", a.patientID)
		}
		out += a.renderRecords(a.records)
	}
	return strings.TrimRight(out, "\n")
}

func (a *App) renderSearch() string {
	out := titleStyle.Render("Search") + "\n"
	out += fmt.Sprintf("Find: %s▏\n[esc] Back\n", a.searchIn)
	for i, m := range a.matches {
		line := fmt.Sprintf("%s %-8s #%-4d %s", marker(i, a.cursor), m.Kind, m.ID, m.Name)
		if m.Detail != "" {
			line += dimStyle.Render("  " + m.Detail)
		}
		out += line + "\n"
	}
	if strings.TrimSpace(a.searchIn) != "" && len(a.matches) == 0 {
		out += "  (no matches)\n"
	}
	return strings.TrimRight(out, "\n")
}

func (a *App) renderDoctorHome() string {
	out := titleStyle.Render("Doctor dashboard") + "\n"
	home := a.doctorHome
	if home == nil {
		return out + "loading..."
	}
	if !home.found {
		return out + "Your doctor profile was not found."
	}
	d := home.doctor
	out += boxStyle.Render(fmt.Sprintf("%s\n%s at %s\nstatus: %s\npatients: %d", d.Name, d.Specialty, d.HospitalName, activeLabel(d.Active), home.patients)) + "\n"
	out += fmt.Sprintf("On duty today (%s):\n", a.now().In(a.tz).Weekday())
	if len(home.available) == 0 {
		out += "  (nobody scheduled)\n"
	}
	for _, doc := range home.available {
		out += fmt.Sprintf("  #%-4d %-24s %s\n", doc.ID, doc.Name, doc.Specialty)
	}
	out += "[n] Add medical record"
	return out
}

func (a *App) renderHospitalHome() string {
	out := titleStyle.Render("Hospital dashboard") + "\n"
	home := a.hospHome
	if home == nil {
		return out + "loading..."
	}
	if !home.found {
		return out + "Your hospital was not found."
	}
	h := home.hospital
	out += boxStyle.Render(fmt.Sprintf("%s (#%d)\nstatus: %s\nlogo: %s", h.Name, h.ID, activeLabel(h.Active), h.LogoURL)) + "\n"
	if b := a.expiryBanner(h); b != "" {
		out += b + "\n"
	}
	out += "Doctors:\n"
	if len(home.doctors) == 0 {
		out += "  (no doctors yet)\n"
	}
	for i, d := range home.doctors {
		out += fmt.Sprintf("%s #%-4d %-24s %-18s %s\n", marker(i, a.cursor), d.ID, d.Name, d.Specialty, activeLabel(d.Active))
	}
	out += "[n] Register doctor  [D] Deactivate doctor  [P] Plan  [r] Records"
	return out
}

func (a *App) expiryBanner(h actor.Hospital) string {
	switch {
	case h.ExpiresAt == nil && !h.Active:
		return bannerStyle.Render("No active plan. Press [P] to choose one.")
	case h.ExpiresAt == nil:
		return ""
	case !h.Active || expiry.Expired(h, a.now()):
		return bannerStyle.Render("Subscription expired. Press [P] to renew.")
	default:
		return dimStyle.Render("plan ends " + h.ExpiresAt.In(a.tz).Format(a.dateFormat) + ", " + expiry.FormatRemaining(expiry.Remaining(h, a.now())))
	}
}

func (a *App) renderHospitalRecords() string {
	p := a.page
	out := titleStyle.Render("Medical records") + "\n"
	out += fmt.Sprintf("page %d of %d, %d total\n", a.recPage+1, p.Pages(), p.Total)
	if len(p.Items) == 0 {
		out += "  (no records)\n"
	}
	out += a.renderRecords(p.Items)
	out += "[[] Previous  []] Next  [esc] Dashboard"
	return out
}

func (a *App) renderActivity() string {
	out := titleStyle.Render("Activity") + "\n"
	if len(a.activity) == 0 {
		out += "  (nothing recorded yet)\n"
	}
	for i, e := range a.activity {
		line := fmt.Sprintf("%s %s  %-8s %-28s %-18s %s", marker(i, a.cursor), e.At.In(a.tz).Format(a.dateFormat), e.Outcome, e.Method, e.Target, e.Principal)
		if e.Message != "" {
			line += dimStyle.Render("  " + e.Message)
		}
		out += line + "\n"
	}
	return strings.TrimRight(out, "\n")
}

func (a *App) renderForm() string {
	f := a.form
	out := titleStyle.Render(f.title) + "\n"
	for i, fld := range f.fields {
		cursor := ""
		if i == f.focus {
			cursor = "▏"
		}
		value := fld.value
		if fld.secret {
			value = strings.Repeat("*", len([]rune(value)))
		}
		out += fmt.Sprintf("%s %-34s %s%s\n", marker(i, f.focus), fld.label+":", value, cursor)
	}
	if f.busy {
		return out + "submitting..."
	}
	return out + "[tab] Next field  [enter] Next / Submit  [ctrl+s] Submit  [esc] Cancel"
}

func (a *App) renderModal() string {
	switch a.modal {
	case modalConfirmDeactivate:
		name := ""
		if a.hospHome != nil && a.cursor < len(a.hospHome.doctors) {
			name = a.hospHome.doctors[a.cursor].Name
		}
		return titleStyle.Render("Deactivate doctor?") + fmt.Sprintf("\n%s will no longer be listed as active.\n[y] Yes  [n] No", name)
	case modalPlan:
		out := titleStyle.Render("Choose a plan") + "\n"
		for i, p := range actor.Plans {
			out += fmt.Sprintf("%s %s\n", marker(i, a.planCursor), p)
		}
		return out + "[enter] Apply  [esc] Cancel"
	default:
		return ""
	}
}
