package auth

import (
	"strings"
	"sync"
)

// AnonymousPrincipal is what the identity provider hands out before login.
const AnonymousPrincipal = "2vxsx-fae"

// Role is the dashboard a principal is allowed into.
type Role string

const (
	RoleNone     Role = "none"
	RoleDoctor   Role = "doctor"
	RoleHospital Role = "hospital"
)

// Identity is the resolved role plus the ids it applies to.
type Identity struct {
	Role       Role
	DoctorID   uint64
	HospitalID uint64
}

// Session is process-memory only. Commands run off the event loop, hence the lock.
type Session struct {
	mu        sync.RWMutex
	principal string
	token     string
	identity  Identity
}

func NewSession() *Session {
	return &Session{identity: Identity{Role: RoleNone}}
}

// Begin stores a verified login. The role is reset until resolved again.
func (s *Session) Begin(principal, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.principal = strings.TrimSpace(principal)
	s.token = token
	s.identity = Identity{Role: RoleNone}
}

// Clear drops everything; used on logout.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.principal = ""
	s.token = ""
	s.identity = Identity{Role: RoleNone}
}

func (s *Session) Principal() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.principal
}

// Token is used as the actor's TokenSource.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) LoggedIn() bool {
	return IsAuthenticated(s.Principal())
}

func (s *Session) Identity() Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// SetIdentity records the resolved role if the principal has not changed meanwhile.
func (s *Session) SetIdentity(principal string, id Identity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.principal != principal {
		return false
	}
	s.identity = id
	return true
}

// IsAuthenticated is false for empty and anonymous principals.
func IsAuthenticated(principal string) bool {
	p := strings.TrimSpace(principal)
	return p != "" && p != AnonymousPrincipal
}
