package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/fellowship/internal/domain/profile"
)

// ErrProfileNotFound means the user has no profile row. Gates treat it exactly like a
// wrong role.
var ErrProfileNotFound = errors.New("profile not found")

type RoleReader interface {
	GetRole(ctx context.Context, userID string) (profile.Role, error)
}

// Resolver looks a user's role up on every call. Role changes take effect on the next
// request without any invalidation.
type Resolver struct {
	profiles RoleReader
}

func NewResolver(profiles RoleReader) *Resolver {
	return &Resolver{profiles: profiles}
}

func (r *Resolver) Resolve(ctx context.Context, userID string) (profile.Role, error) {
	if userID == "" {
		return "", ErrProfileNotFound
	}

	role, err := r.profiles.GetRole(ctx, userID)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return "", ErrProfileNotFound
		}
		return "", fmt.Errorf("resolve role: %w", err)
	}

	return role, nil
}
