// Package secrets keeps the session token and upload credentials in a
// per-user 0600 file, sealed with AES-GCM.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// Names of the entries medadmin stores.
const (
	SessionToken = "session"
	PinningJWT   = "pinning"
)

const fileName = "secrets.json"

// ErrNotFound is returned by Get for a missing entry.
var ErrNotFound = errors.New("secret not found")

type secretFile struct {
	Entries map[string]string `json:"entries"` // name -> base64(nonce|ciphertext)
}

// Store is a file-backed secret store. Safe for use from tea commands.
type Store struct {
	Path string

	mu sync.Mutex
}

// Default returns the store under the user config dir.
func Default() (*Store, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, err
	}
	return &Store{Path: filepath.Join(dir, "medadmin", fileName)}, nil
}

func (s *Store) Put(name, value string) error {
	if name = norm(name); name == "" {
		return errors.New("secret name required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sf, err := s.load()
	if err != nil {
		return err
	}
	ct, err := seal([]byte(value))
	if err != nil {
		return err
	}
	sf.Entries[name] = base64.StdEncoding.EncodeToString(ct)
	return s.save(sf)
}

func (s *Store) Get(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sf, err := s.load()
	if err != nil {
		return "", err
	}
	enc, ok := sf.Entries[norm(name)]
	if !ok {
		return "", ErrNotFound
	}
	raw, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return "", fmt.Errorf("secret %s: %w", name, err)
	}
	pt, err := open(raw)
	if err != nil {
		return "", fmt.Errorf("secret %s: %w", name, err)
	}
	return string(pt), nil
}

// Delete removes name. Missing entries are not an error.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sf, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := sf.Entries[norm(name)]; !ok {
		return nil
	}
	delete(sf.Entries, norm(name))
	return s.save(sf)
}

func (s *Store) load() (secretFile, error) {
	sf := secretFile{Entries: map[string]string{}}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return sf, nil
		}
		return sf, err
	}
	if err := json.Unmarshal(data, &sf); err != nil {
		return sf, err
	}
	if sf.Entries == nil {
		sf.Entries = map[string]string{}
	}
	return sf, nil
}

func (s *Store) save(sf secretFile) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.Path)
}

func norm(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}

// masterKey is per user and OS; it keeps tokens out of plain text, nothing more.
func masterKey() []byte {
	hash := sha256.Sum256([]byte(fmt.Sprintf("medadmin-%s-%s", runtime.GOOS, os.Getenv("USER"))))
	return hash[:]
}

func gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(masterKey())
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func seal(plain []byte) ([]byte, error) {
	g, err := gcm()
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, g.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return g.Seal(nonce, nonce, plain, nil), nil
}

func open(ciphertext []byte) ([]byte, error) {
	g, err := gcm()
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < g.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, body := ciphertext[:g.NonceSize()], ciphertext[g.NonceSize():]
	return g.Open(nil, nonce, body, nil)
}
