package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/medadmin/internal/actor"
	"github.com/jask/medadmin/internal/auth"
	"github.com/jask/medadmin/internal/config"
	"github.com/jask/medadmin/internal/database"
	"github.com/jask/medadmin/internal/events"
	"github.com/jask/medadmin/internal/roles"
	"github.com/jask/medadmin/internal/secrets"
	"github.com/jask/medadmin/internal/service"
	"github.com/jask/medadmin/internal/tui"
	"github.com/jask/medadmin/internal/upload"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if err := os.MkdirAll(config.DataDir(), 0o755); err != nil {
		log.Fatalf("mkdir data dir: %v", err)
	}
	logFile, err := tea.LogToFile(filepath.Join(config.DataDir(), "medadmin.log"), "medadmin")
	if err != nil {
		log.Fatalf("log file: %v", err)
	}
	defer logFile.Close()

	if err := database.RunMigrations(cfg.Journal.Path); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	db, err := database.Open(cfg.Journal.Path)
	if err != nil {
		log.Fatalf("open journal: %v", err)
	}
	defer db.Close()

	store, err := secrets.Default()
	if err != nil {
		log.Fatalf("secrets: %v", err)
	}

	session := auth.NewSession()
	authn := &auth.Authenticator{
		LoginURL:     cfg.Identity.LoginURL,
		CallbackAddr: cfg.Identity.CallbackAddr,
		Secret:       []byte(cfg.Identity.TokenSecret),
	}
	resumeSession(authn, session, store, cfg.Identity.Token)

	canister := actor.NewClient(cfg.Actor.Endpoint, cfg.Actor.CanisterID, cfg.Actor.Timeout, session.Token)

	uploader, err := upload.New(ctx, cfg.Upload)
	if err != nil {
		log.Printf("warn: document upload disabled: %v", err)
		uploader = nil
	}
	if pc, ok := uploader.(*upload.PinningClient); ok {
		fromEnv := pc.Token
		pc.Token = func() string {
			if t := fromEnv(); t != "" {
				return t
			}
			t, _ := store.Get(secrets.PinningJWT)
			return strings.TrimSpace(t)
		}
	}

	publisher := events.New(cfg.Events.Brokers, cfg.Events.Topic)
	defer publisher.Close()

	journal := &service.Journal{DB: db, Events: publisher, Session: session}
	services := service.New(canister, uploader, journal)

	loc, err := time.LoadLocation(cfg.UI.Timezone)
	if err != nil {
		log.Printf("warn: using local timezone due to load failure: %v", err)
		loc = time.Local
	}

	app := tui.New(ctx, tui.Deps{
		Services:     services,
		Session:      session,
		Login:        authn,
		Roles:        &roles.Resolver{Actor: canister},
		Open:         openBrowser,
		Tokens:       store,
		PollInterval: cfg.Poll.Interval,
		Location:     loc,
		DateFormat:   cfg.UI.DateFormat,
		SavePrefs: func(p tui.Prefs) error {
			cfg.Poll.Interval = p.PollInterval
			cfg.UI.DateFormat = p.DateFormat
			cfg.UI.Timezone = p.Timezone
			return config.Save(cfg)
		},
	})
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		fmt.Printf("error: %v\n", err)
	}
}

// resumeSession restores a session from the configured token, then from the
// secret store. A stale stored token is dropped.
func resumeSession(a *auth.Authenticator, s *auth.Session, store *secrets.Store, configured string) {
	if configured != "" {
		if err := a.Resume(s, configured); err != nil {
			log.Printf("warn: configured identity token rejected: %v", err)
		} else {
			return
		}
	}
	stored, err := store.Get(secrets.SessionToken)
	if err != nil {
		if !errors.Is(err, secrets.ErrNotFound) {
			log.Printf("warn: read stored session: %v", err)
		}
		return
	}
	if err := a.Resume(s, stored); err != nil {
		log.Printf("stored session expired: %v", err)
		_ = store.Delete(secrets.SessionToken)
	}
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
