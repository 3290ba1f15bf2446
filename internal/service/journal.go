package service

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/jask/medadmin/internal/auth"
	"github.com/jask/medadmin/internal/database"
	"github.com/jask/medadmin/internal/database/repository"
	"github.com/jask/medadmin/internal/events"
	"github.com/jask/medadmin/internal/forms"
)

const (
	defaultJournalKeep    = 5000
	defaultPublishTimeout = 3 * time.Second
)

// Journal records every mutation attempt locally and publishes it.
// A nil *Journal records nothing.
type Journal struct {
	DB      *sql.DB
	Events  events.Publisher
	Session *auth.Session
	// Keep bounds the local table; zero means defaultJournalKeep.
	Keep int
	// PublishTimeout caps how long a mutation waits on the event sink.
	PublishTimeout time.Duration
	Now            func() time.Time
}

// Record journals the outcome of method against target. Failures are logged only.
func (j *Journal) Record(ctx context.Context, method, target string, callErr error) {
	if j == nil {
		return
	}
	a := repository.Activity{
		ID:      uuid.NewString(),
		At:      j.now(),
		Method:  method,
		Target:  target,
		Outcome: outcomeOf(callErr),
	}
	if j.Session != nil {
		a.Principal = j.Session.Principal()
	}
	if callErr != nil {
		a.Message = callErr.Error()
	}

	if j.DB != nil {
		keep := j.Keep
		if keep <= 0 {
			keep = defaultJournalKeep
		}
		err := database.WithTx(ctx, j.DB, func(tx *sql.Tx) error {
			repo := repository.NewActivityRepo(j.DB).WithTx(tx)
			if err := repo.Add(ctx, a); err != nil {
				return err
			}
			_, err := repo.Prune(ctx, keep)
			return err
		})
		if err != nil {
			log.Printf("journal %s: %v", method, err)
		}
	}
	if j.Events != nil {
		timeout := j.PublishTimeout
		if timeout <= 0 {
			timeout = defaultPublishTimeout
		}
		pubCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		err := j.Events.Publish(pubCtx, events.Event{
			ID:        a.ID,
			At:        a.At,
			Principal: a.Principal,
			Method:    a.Method,
			Target:    a.Target,
			Outcome:   string(a.Outcome),
			Message:   a.Message,
		})
		if err != nil {
			log.Printf("publish %s: %v", method, err)
		}
	}
}

// Recent lists the newest journal entries, optionally for one principal.
func (j *Journal) Recent(ctx context.Context, principal string, limit int) ([]repository.Activity, error) {
	if j == nil || j.DB == nil {
		return nil, nil
	}
	return repository.NewActivityRepo(j.DB).ListRecent(ctx, principal, limit)
}

func (j *Journal) now() time.Time {
	if j.Now != nil {
		return j.Now().UTC()
	}
	return database.Now()
}

func outcomeOf(err error) repository.Outcome {
	var fe forms.FieldErrors
	switch {
	case err == nil:
		return repository.OutcomeOK
	case errors.As(err, &fe):
		return repository.OutcomeRejected
	default:
		return repository.OutcomeError
	}
}
