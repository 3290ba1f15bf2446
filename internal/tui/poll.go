package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// pollMsg is delivered by tea.Tick. gen ties it to the mount that scheduled it.
type pollMsg struct{ gen int }

// mount shows s and starts its refresh loop. Bumping gen orphans every tick
// scheduled by the previous mount, so nothing fires for a view that is gone.
func (a *App) mount(s appState) tea.Cmd {
	if s != a.state {
		a.cursor = 0
	}
	a.state = s
	a.gen++
	load := a.loadFor(s)
	if load == nil {
		return nil
	}
	return tea.Batch(load, a.schedulePoll())
}

func (a *App) schedulePoll() tea.Cmd {
	gen := a.gen
	return tea.Tick(a.interval, func(time.Time) tea.Msg { return pollMsg{gen: gen} })
}

// handlePoll refreshes the mounted view. A previous refresh may still be in
// flight; ticks are not deduplicated against it.
func (a *App) handlePoll(m pollMsg) tea.Cmd {
	if m.gen != a.gen {
		return nil
	}
	load := a.loadFor(a.state)
	if load == nil {
		return nil
	}
	return tea.Batch(load, a.schedulePoll())
}

// loadFor returns the fetch for a view, or nil when it shows no backend data.
func (a *App) loadFor(s appState) tea.Cmd {
	switch s {
	case viewHospitals:
		return a.loadHospitals()
	case viewDoctors, viewSearch:
		return a.loadDoctors()
	case viewPatient:
		if a.patientID == "" {
			return nil
		}
		return a.loadPatientRecords(a.patientID)
	case viewDoctorHome, viewHospitalHome, viewHospitalRecords:
		// the role is looked up again on every mount and tick of a dashboard
		var cmds []tea.Cmd
		if a.roles != nil {
			a.roles.Invalidate()
			cmds = append(cmds, a.resolveCmd())
		}
		id := a.session.Identity()
		switch s {
		case viewDoctorHome:
			cmds = append(cmds, a.loadDoctorHome(id.DoctorID))
		case viewHospitalHome:
			cmds = append(cmds, a.loadHospitalHome(id.HospitalID))
		default:
			cmds = append(cmds, a.loadRecordsPage(id.HospitalID, a.recPage))
		}
		return tea.Batch(cmds...)
	case viewActivity:
		return a.loadActivity()
	}
	return nil
}
