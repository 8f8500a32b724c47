// Package settings is the key/value configuration collaborator. The core
// reads it for the deposit wallet address, reward bounds, withdrawal lock
// rules and the level-reward table; admins write it.
package settings

import (
	"context"
	"time"
)

// Setting is one configuration row.
type Setting struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Store persists settings. Get returns sentinel.ErrNotFound for absent keys;
// the service layer supplies documented defaults on top.
type Store interface {
	Get(ctx context.Context, key string) (Setting, error)
	Set(ctx context.Context, key, value, description string) error
	List(ctx context.Context) ([]Setting, error)
}

// Well-known keys.
const (
	KeyDepositWallet      = "depositWallet"
	KeyDepositQrURL       = "depositQrUrl"
	KeyMinDailyReward     = "minDailyReward"
	KeyMaxDailyReward     = "maxDailyReward"
	KeyWithdrawLockAmount = "withdrawLockAmount"
	KeyWithdrawLockDays   = "withdrawLockDays"
	KeyLevelRules         = "levelRules"
)

// Defaults used when a key is absent from the store.
const (
	DefaultDepositWallet      = "0x1ab174ddf2fb97bd3cf3362a98b103a6f3852a67"
	DefaultMinDailyReward     = 0.5
	DefaultMaxDailyReward     = 0.8
	DefaultWithdrawLockAmount = 65.0
	DefaultWithdrawLockDays   = 90
)
