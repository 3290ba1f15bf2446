// Package service orchestrates canister calls for the TUI: lookups,
// validated mutations and the activity journal.
package service

import (
	"github.com/jask/medadmin/internal/actor"
	"github.com/jask/medadmin/internal/expiry"
	"github.com/jask/medadmin/internal/upload"
)

// Services bundles everything the views call.
type Services struct {
	Directory *Directory
	Doctors   *Doctors
	Records   *Records
	Hospitals *Hospitals
	Journal   *Journal
}

// New wires the services over one actor. up and j may be nil.
func New(a actor.Actor, up upload.Uploader, j *Journal) *Services {
	return &Services{
		Directory: &Directory{Actor: a},
		Doctors:   &Doctors{Actor: a, Journal: j},
		Records:   &Records{Actor: a, Uploader: up, Journal: j},
		Hospitals: &Hospitals{Actor: a, Watcher: &expiry.Watcher{Actor: a}, Journal: j},
		Journal:   j,
	}
}
