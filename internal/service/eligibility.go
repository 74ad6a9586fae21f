package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bimbelku/tryout-backend/internal/model"
)

// EligibilityPolicy decides whether a user may start a tryout. The state
// machine treats it as an opaque precondition — premium status, credit
// balance, and payment proof are someone else's business.
type EligibilityPolicy interface {
	// CanStart returns nil when the user may start, ErrNotEligible when the
	// access policy denies it.
	CanStart(ctx context.Context, userID uuid.UUID, tryout *model.Tryout) error
}

// UserStore is the account lookup the premium policy needs.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// PremiumPolicy gates premium tryouts behind the user's premium flag, which
// the payment subsystem maintains. Free tryouts are open to everyone.
type PremiumPolicy struct {
	users UserStore
}

// NewPremiumPolicy creates a new PremiumPolicy.
func NewPremiumPolicy(users UserStore) *PremiumPolicy {
	return &PremiumPolicy{users: users}
}

// CanStart implements EligibilityPolicy.
func (p *PremiumPolicy) CanStart(ctx context.Context, userID uuid.UUID, tryout *model.Tryout) error {
	if !tryout.IsPremium {
		return nil
	}

	user, err := p.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotEligible
		}
		return fmt.Errorf("get user: %w", err)
	}
	if !user.IsPremium {
		return ErrNotEligible
	}
	return nil
}
