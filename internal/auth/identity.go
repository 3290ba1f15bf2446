package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

var (
	ErrAnonymous = errors.New("auth: anonymous identity")
	ErrRejected  = errors.New("auth: login rejected")
)

// Opener shows the hosted login page to the user, usually a browser launcher.
type Opener func(loginURL string) error

// Authenticator drives the hosted identity provider login and verifies the
// session token it hands back (HS256, principal in "sub").
type Authenticator struct {
	LoginURL     string
	CallbackAddr string
	Secret       []byte
}

// Verify checks the token signature and expiry and returns the principal.
func (a *Authenticator) Verify(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrAnonymous
	}
	if len(a.Secret) == 0 {
		return "", fmt.Errorf("%w: no token secret configured", ErrRejected)
	}
	claims := &jwt.RegisteredClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if _, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.Secret, nil
	}); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRejected, err)
	}
	if !IsAuthenticated(claims.Subject) {
		return "", ErrAnonymous
	}
	return claims.Subject, nil
}

// Resume accepts a token obtained out of band (config or env).
func (a *Authenticator) Resume(s *Session, token string) error {
	principal, err := a.Verify(token)
	if err != nil {
		return err
	}
	s.Begin(principal, token)
	return nil
}

type callbackResult struct {
	token string
	err   error
}

// Login opens the hosted login page and waits for the provider to redirect
// back to a loopback callback carrying the token.
func (a *Authenticator) Login(ctx context.Context, s *Session, open Opener) error {
	addr := a.CallbackAddr
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("login callback listen: %w", err)
	}
	state := uuid.NewString()
	redirect := fmt.Sprintf("http://%s/callback", ln.Addr().String())

	results := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var res callbackResult
		switch {
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		case q.Get("error") != "":
			res.err = fmt.Errorf("%w: %s", ErrRejected, q.Get("error"))
		default:
			res.token = q.Get("token")
		}
		_, _ = fmt.Fprintln(w, "Login complete, you can close this tab.")
		select {
		case results <- res:
		default:
		}
	})
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	loginURL, err := a.buildLoginURL(redirect, state)
	if err != nil {
		return err
	}
	if open != nil {
		if err := open(loginURL); err != nil {
			return fmt.Errorf("open login page: %w", err)
		}
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-results:
		if res.err != nil {
			return res.err
		}
		return a.Resume(s, res.token)
	}
}

func (a *Authenticator) buildLoginURL(redirect, state string) (string, error) {
	u, err := url.Parse(a.LoginURL)
	if err != nil {
		return "", fmt.Errorf("parse login url: %w", err)
	}
	q := u.Query()
	q.Set("redirect_uri", redirect)
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Logout clears the in-memory session.
func Logout(s *Session) {
	s.Clear()
}
