package demoauth

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	goSession "github.com/MrEthical07/goSession"
)

var (
	ErrBadCredentials = errors.New("invalid email or password")
	ErrUnverified     = errors.New("email not verified")
	ErrEmailTaken     = errors.New("email already registered")
	ErrUnknownUser    = errors.New("unknown user")
)

type account struct {
	user goSession.User
	hash string
}

// Directory is the in-memory account table.
type Directory struct {
	hasher *Hasher

	mu      sync.RWMutex
	byID    map[string]*account
	byEmail map[string]string
}

// NewDirectory returns an empty directory that hashes with hasher.
func NewDirectory(hasher *Hasher) *Directory {
	return &Directory{
		hasher:  hasher,
		byID:    make(map[string]*account),
		byEmail: make(map[string]string),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an unverified STUDENT account.
func (d *Directory) Register(email, password, firstName, lastName string) (goSession.User, error) {
	return d.add(goSession.User{
		Email:     normalizeEmail(email),
		FirstName: firstName,
		LastName:  lastName,
		Role:      goSession.RoleStudent,
	}, password)
}

// Seed adds a verified account with the given role. Used for demo data.
func (d *Directory) Seed(email, password string, role goSession.Role, firstName, lastName string) (goSession.User, error) {
	return d.add(goSession.User{
		Email:         normalizeEmail(email),
		FirstName:     firstName,
		LastName:      lastName,
		Role:          role,
		EmailVerified: true,
	}, password)
}

func (d *Directory) add(u goSession.User, password string) (goSession.User, error) {
	hash, err := d.hasher.Hash(password)
	if err != nil {
		return goSession.User{}, err
	}
	u.ID = uuid.NewString()

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.byEmail[u.Email]; ok {
		return goSession.User{}, ErrEmailTaken
	}
	d.byID[u.ID] = &account{user: u, hash: hash}
	d.byEmail[u.Email] = u.ID
	return u, nil
}

// MarkVerified flips the email-verified flag.
func (d *Directory) MarkVerified(email string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, ok := d.byEmail[normalizeEmail(email)]
	if !ok {
		return ErrUnknownUser
	}
	d.byID[id].user.EmailVerified = true
	return nil
}

// Authenticate checks a password. Unverified accounts are rejected after
// the password matches.
func (d *Directory) Authenticate(email, password string) (goSession.User, error) {
	d.mu.RLock()
	id, ok := d.byEmail[normalizeEmail(email)]
	var acc account
	if ok {
		acc = *d.byID[id]
	}
	d.mu.RUnlock()
	if !ok {
		return goSession.User{}, ErrBadCredentials
	}

	match, err := d.hasher.Verify(password, acc.hash)
	if err != nil {
		return goSession.User{}, err
	}
	if !match {
		return goSession.User{}, ErrBadCredentials
	}
	if !acc.user.EmailVerified {
		return goSession.User{}, ErrUnverified
	}
	return acc.user, nil
}

// Lookup returns the account record for id.
func (d *Directory) Lookup(id string) (goSession.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	acc, ok := d.byID[id]
	if !ok {
		return goSession.User{}, ErrUnknownUser
	}
	return acc.user, nil
}

// UpdateProfile applies the self-editable fields of patch. Email, role and
// verification status are not editable through the profile.
func (d *Directory) UpdateProfile(id string, patch goSession.UserPatch) (goSession.User, error) {
	patch.Email = nil
	patch.Role = nil
	patch.EmailVerified = nil

	d.mu.Lock()
	defer d.mu.Unlock()
	acc, ok := d.byID[id]
	if !ok {
		return goSession.User{}, ErrUnknownUser
	}
	acc.user = patch.Apply(acc.user)
	return acc.user, nil
}
