// Package reward credits level rewards up the referral chain when a
// registration deposit is verified.
package reward

import (
	"fmt"

	"suci/pkg/platform/sentinel"
)

// Rule describes one reward level. A user qualifies for a level when enough
// of their direct referrals have activated accounts.
type Rule struct {
	Level          int     `json:"level"`
	RequiredActive int     `json:"required_active"`
	Reward         float64 `json:"reward"`
}

// Rules is the full level-reward configuration. MaxDepth bounds how far up
// the referral chain an activation event propagates.
type Rules struct {
	MaxDepth int    `json:"max_depth"`
	Levels   []Rule `json:"levels"`
}

// DefaultRules are deployment defaults, overridable through the levelRules
// setting. The thresholds and amounts are configuration, not business
// constants; operators are expected to tune them.
func DefaultRules() Rules {
	return Rules{
		MaxDepth: 3,
		Levels: []Rule{
			{Level: 1, RequiredActive: 1, Reward: 10},
			{Level: 2, RequiredActive: 3, Reward: 25},
			{Level: 3, RequiredActive: 7, Reward: 60},
		},
	}
}

// Validate rejects malformed configuration before it reaches propagation.
func (r Rules) Validate() error {
	if r.MaxDepth < 1 {
		return fmt.Errorf("max depth %d: %w", r.MaxDepth, sentinel.ErrInvalidInput)
	}
	seen := make(map[int]bool, len(r.Levels))
	for _, rule := range r.Levels {
		if rule.Level < 1 || rule.RequiredActive < 1 || rule.Reward <= 0 {
			return fmt.Errorf("level rule %+v: %w", rule, sentinel.ErrInvalidInput)
		}
		if seen[rule.Level] {
			return fmt.Errorf("duplicate level %d: %w", rule.Level, sentinel.ErrInvalidInput)
		}
		seen[rule.Level] = true
	}
	return nil
}
