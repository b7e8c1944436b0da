// Package auth verifies operator credentials and issues session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"suryasakshi/internal/ledger"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// ErrInvalidCredentials is the only failure callers report to the user.
var ErrInvalidCredentials = errors.New("Invalid username or password")

// StaticVerifier checks credentials against a fixed set of bcrypt hashes.
type StaticVerifier struct {
	hashes map[string][]byte
}

var _ ledger.CredentialVerifier = (*StaticVerifier)(nil)

// ParseUsers parses "NAME:hash,NAME:hash". Names are stored upper-cased.
func ParseUsers(spec string) (*StaticVerifier, error) {
	v := &StaticVerifier{hashes: map[string][]byte{}}
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, hash, ok := strings.Cut(entry, ":")
		name = strings.ToUpper(strings.TrimSpace(name))
		hash = strings.TrimSpace(hash)
		if !ok || name == "" || hash == "" {
			return nil, fmt.Errorf("invalid user entry %q: want NAME:bcrypt-hash", entry)
		}
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("user %s: %w", name, err)
		}
		v.hashes[name] = []byte(hash)
	}
	if len(v.hashes) == 0 {
		return nil, errors.New("no users configured")
	}
	return v, nil
}

// Users returns the number of configured users.
func (v *StaticVerifier) Users() int {
	return len(v.hashes)
}

// Verify reports whether secret matches user's hash and returns the
// canonical user name.
func (v *StaticVerifier) Verify(_ context.Context, user, secret string) (string, bool, error) {
	name := strings.ToUpper(strings.TrimSpace(user))
	hash, ok := v.hashes[name]
	if !ok {
		// Burn comparable time so unknown names are not distinguishable.
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(secret))
		return "", false, nil
	}

	err := bcrypt.CompareHashAndPassword(hash, []byte(secret))
	switch {
	case err == nil:
		return name, true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return "", false, nil
	default:
		return "", false, fmt.Errorf("verify %s: %w", name, err)
	}
}

var dummyHash = sync.OnceValue(func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("unused"), bcrypt.MinCost)
	return h
})

// HashPassword returns a bcrypt hash suitable for AUTH_USERS.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
