package ops

import (
	"fmt"
	"strings"

	"github.com/hpungsan/notebridge/internal/errors"
)

// Authorizer decides whether actor may modify a note owned by owner.
type Authorizer interface {
	CanModify(actor Actor, owner string) bool
}

// AllowAll permits every modification.
type AllowAll struct{}

// CanModify always returns true.
func (AllowAll) CanModify(Actor, string) bool { return true }

// OwnerPolicy permits the note's owner and any listed admin.
type OwnerPolicy struct {
	Admins []string
}

// CanModify reports whether actor owns the note or is an admin.
func (p OwnerPolicy) CanModify(actor Actor, owner string) bool {
	if actor.User == "" {
		return false
	}
	if actor.User == owner {
		return true
	}
	for _, admin := range p.Admins {
		if admin == actor.User {
			return true
		}
	}
	return false
}

// NewAuthorizer builds the policy named by mode ("open" or "owner").
func NewAuthorizer(mode string, admins []string) (Authorizer, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "open":
		return AllowAll{}, nil
	case "owner":
		return OwnerPolicy{Admins: admins}, nil
	default:
		return nil, fmt.Errorf("unknown permission mode %q (want open or owner)", mode)
	}
}

func (n *Notes) authorize(actor Actor, owner, target string) error {
	if !n.authz.CanModify(actor, owner) {
		return errors.NewPermissionDenied(actor.User, target)
	}
	return nil
}
