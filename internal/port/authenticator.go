package port

import (
	"context"

	"github.com/rl1809/logitrack/internal/core/domain"
)

type Authenticator interface {
	// Authenticate resolves a bearer token into a principal
	Authenticate(ctx context.Context, token string) (domain.Principal, error)
}
