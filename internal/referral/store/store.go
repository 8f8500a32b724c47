// Package store persists referral edges. The one operation with a real
// concurrency contract is PlaceUnder: counting a referrer's children and
// inserting the new edge must be a single serialized unit per referrer, or
// two concurrent registrations could both observe the same count and land on
// the same side.
package store

import (
	"context"

	"suci/internal/referral/models"
	id "suci/pkg/domain"
)

type Store interface {
	// PlaceUnder computes the side from the referrer's current child count
	// and inserts the edge, atomically. A referred user that already has an
	// edge fails with sentinel.ErrConflict. The edge starts inactive.
	PlaceUnder(ctx context.Context, referrerID, referredID id.UserID) (models.Referral, error)

	FindByReferred(ctx context.Context, referredID id.UserID) (models.Referral, error)

	// SetActive toggles the edge owned by referredID; missing edges are not
	// an error so registration rejection stays idempotent for users who
	// registered without a referral code.
	SetActive(ctx context.Context, referredID id.UserID, active bool) error

	ListByReferrer(ctx context.Context, referrerID id.UserID) ([]models.Referral, error)
	CountByReferrer(ctx context.Context, referrerID id.UserID) (int, error)
	CountActiveByReferrer(ctx context.Context, referrerID id.UserID) (int, error)
}
