package auth

import (
	"errors"
	"sync"
	"time"

	"github.com/cybertec-postgresql/sqlconsole/pkg/types"
)

// ErrInvalidCredentials is returned for an unknown user or a wrong password
var ErrInvalidCredentials = errors.New("invalid user or password")

// dummyHash is compared against when the user does not exist, so both
// failures take the same time
var dummyHash = sync.OnceValue(func() string {
	hash, _ := HashPassword("sqlconsole")
	return hash
})

// Authenticator checks console logins against the configured users
type Authenticator struct {
	users  map[string]string
	tokens *TokenService
}

// NewAuthenticator creates an authenticator over users
func NewAuthenticator(users []types.User, tokens *TokenService) *Authenticator {
	m := make(map[string]string, len(users))
	for _, u := range users {
		m[u.Name] = u.PasswordHash
	}
	return &Authenticator{users: m, tokens: tokens}
}

// Login checks the password of user and issues a session token
func (a *Authenticator) Login(user, password string) (string, time.Time, error) {
	hash, ok := a.users[user]
	if !ok {
		CheckPassword(password, dummyHash())
		return "", time.Time{}, ErrInvalidCredentials
	}
	if !CheckPassword(password, hash) {
		return "", time.Time{}, ErrInvalidCredentials
	}
	return a.tokens.Issue(user)
}

// Tokens returns the token service used for issued sessions
func (a *Authenticator) Tokens() *TokenService {
	return a.tokens
}
