package models

import (
	"time"

	id "suci/pkg/domain"
)

// Side is the position of a referred user under its referrer in the binary
// placement tree.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// SideForPosition returns the side assigned to the nth (0-indexed) child of a
// referrer. Placement alternates left/right by insertion order; there is no
// rebalancing beyond this counter.
func SideForPosition(n int) Side {
	if n%2 == 0 {
		return SideLeft
	}
	return SideRight
}

// Referral is one edge in the placement tree. A user appears as Referred in
// at most one edge. IsActive mirrors the referred user's registration
// verification state.
type Referral struct {
	ID         id.ReferralID `json:"id"`
	ReferrerID id.UserID     `json:"referrer_id"`
	ReferredID id.UserID     `json:"referred_id"`
	Side       Side          `json:"side"`
	IsActive   bool          `json:"is_active"`
	CreatedAt  time.Time     `json:"created_at"`
}
