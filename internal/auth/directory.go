package auth

import (
	"errors"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for any failed login: unknown user,
// wrong password or role mismatch. Deliberately indistinguishable.
var ErrInvalidCredentials = errors.New("invalid credentials")

type directoryEntry struct {
	actor        Actor
	passwordHash string
}

// Directory resolves login credentials to an Actor. It is a read-only
// collaborator from the ledger's perspective: the core consumes actors,
// it never writes back. Safe for concurrent use.
type Directory struct {
	mu    sync.RWMutex
	users map[string]directoryEntry
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{users: make(map[string]directoryEntry)}
}

// SeedDirectory returns a directory pre-populated with the stock demo
// accounts, one per role, all sharing the given password.
func SeedDirectory(password string) (*Directory, error) {
	seed := []Actor{
		{ID: "usr-001", Username: "police_officer", Role: RolePolice, Name: "Officer John Smith", Department: "Cyber Crime Unit"},
		{ID: "usr-002", Username: "forensic_analyst", Role: RoleForensicLab, Name: "Dr. Sarah Johnson", Department: "Digital Forensics Lab"},
		{ID: "usr-003", Username: "prosecutor", Role: RoleProsecutor, Name: "James Wilson", Department: "Public Prosecutor Office"},
		{ID: "usr-004", Username: "judge", Role: RoleJudge, Name: "Hon. Maria Garcia", Department: "District Court"},
	}
	d := NewDirectory()
	for _, a := range seed {
		if err := d.Add(a, password); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Add registers a user with a bcrypt-hashed password.
func (d *Directory) Add(actor Actor, password string) error {
	if strings.TrimSpace(actor.Username) == "" {
		return errors.New("username is required")
	}
	if password == "" {
		return errors.New("password is required")
	}
	if _, err := ParseRole(string(actor.Role)); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[strings.ToLower(actor.Username)] = directoryEntry{actor: actor, passwordHash: string(hash)}
	return nil
}

// Authenticate checks credentials and the asserted role, returning the
// matching Actor. The asserted role must equal the account's role; an
// actor cannot log in under a capability they do not hold.
func (d *Directory) Authenticate(username, password, role string) (*Actor, error) {
	parsedRole, err := ParseRole(role)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	d.mu.RLock()
	entry, ok := d.users[strings.ToLower(strings.TrimSpace(username))]
	d.mu.RUnlock()
	if !ok {
		// Burn comparable time so unknown users are not distinguishable
		// by response latency.
		_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5B0G1Cf8a6u1p0eYVVKj0rG1lO/9O"), []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(entry.passwordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if entry.actor.Role != parsedRole {
		return nil, ErrInvalidCredentials
	}

	actor := entry.actor
	return &actor, nil
}
