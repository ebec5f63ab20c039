package entitlement

import (
	"github.com/blockkit/blockkit-api/internal/models"
	"github.com/blockkit/blockkit-api/internal/repository"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Resolver decides whether a user may access a catalog item. Access comes
// from an active individual/team license, or failing that, from a one-off
// purchase of the item.
type Resolver struct {
	purchases repository.PurchaseRepository
	logger    zerolog.Logger
}

func NewResolver(purchases repository.PurchaseRepository, logger zerolog.Logger) *Resolver {
	return &Resolver{
		purchases: purchases,
		logger:    logger.With().Str("component", "entitlement").Logger(),
	}
}

// Resolve reports whether user may access itemID. The license check
// short-circuits the purchase lookup. No state is mutated.
func (r *Resolver) Resolve(user models.User, itemID string) (bool, error) {
	if user.HasQualifyingLicense() {
		return true, nil
	}

	purchased, err := r.purchases.HasPurchase(user.ID, itemID)
	if err != nil {
		return false, errors.Wrap(err, "purchase lookup")
	}
	return purchased, nil
}
