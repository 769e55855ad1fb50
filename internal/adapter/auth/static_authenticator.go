package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/rl1809/logitrack/internal/core/domain"
	"github.com/rl1809/logitrack/internal/port"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid bearer token")
)

var _ port.Authenticator = (*StaticAuthenticator)(nil)

// Credential binds an opaque token to the principal it authenticates.
type Credential struct {
	Token   string
	Subject string
	Roles   []string
}

// StaticAuthenticator resolves tokens against a fixed credential list.
// Tokens are compared by digest in constant time.
type StaticAuthenticator struct {
	creds []staticCredential
}

type staticCredential struct {
	digest    [sha256.Size]byte
	principal domain.Principal
}

func NewStaticAuthenticator(creds []Credential) *StaticAuthenticator {
	a := &StaticAuthenticator{creds: make([]staticCredential, 0, len(creds))}
	for _, c := range creds {
		if c.Token == "" {
			continue
		}
		a.creds = append(a.creds, staticCredential{
			digest: sha256.Sum256([]byte(c.Token)),
			principal: domain.Principal{
				Subject: c.Subject,
				Roles:   append([]string(nil), c.Roles...),
			},
		})
	}
	return a
}

func (a *StaticAuthenticator) Authenticate(_ context.Context, token string) (domain.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Principal{}, ErrMissingToken
	}

	digest := sha256.Sum256([]byte(token))
	var (
		match domain.Principal
		found bool
	)
	for _, c := range a.creds {
		if subtle.ConstantTimeCompare(digest[:], c.digest[:]) == 1 {
			match, found = c.principal, true
		}
	}
	if !found {
		return domain.Principal{}, ErrInvalidToken
	}
	return match, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header value. It returns "" when the scheme is not bearer.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
