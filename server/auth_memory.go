package server

import (
	"errors"
	"sync"
)

// ErrInvalidCredentials is returned by MemoryAuthenticator for unknown
// users or mismatched passwords.
var ErrInvalidCredentials = errors.New("invalid credentials")

// MemoryAuthenticator is a minimal in-memory Authenticator accepting a
// fixed set of username/password pairs, with optional anonymous access.
type MemoryAuthenticator struct {
	mu    sync.RWMutex
	users map[string]string // user -> password

	allowAnonymous bool
}

// NewMemoryAuthenticator builds an Authenticator over a fixed user/password
// table. If allowAnonymous is true, "anonymous" and "ftp" are accepted with
// any password, per RFC 1635 convention.
func NewMemoryAuthenticator(users map[string]string, allowAnonymous bool) *MemoryAuthenticator {
	table := make(map[string]string, len(users))
	for u, p := range users {
		table[u] = p
	}
	return &MemoryAuthenticator{users: table, allowAnonymous: allowAnonymous}
}

func (a *MemoryAuthenticator) Authenticate(user, pass string) (UserDetail, error) {
	if a.allowAnonymous && (user == "anonymous" || user == "ftp") {
		return UserDetail{Name: user}, nil
	}
	a.mu.RLock()
	want, ok := a.users[user]
	a.mu.RUnlock()
	if !ok || want != pass {
		return UserDetail{}, ErrInvalidCredentials
	}
	return UserDetail{Name: user}, nil
}
