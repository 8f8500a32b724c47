package settings

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"suci/internal/platform/redis"
	"suci/internal/reward"
	"suci/pkg/platform/sentinel"
)

const cacheTTL = 5 * time.Minute

const cachePrefix = "settings:"

// Service layers documented defaults and an optional redis read-through
// cache over the settings store. All getters degrade to defaults when a key
// is absent, so a fresh deployment works with an empty table.
type Service struct {
	store Store
	cache *redis.Client // nil when redis is not configured
	log   *zap.Logger
}

func NewService(store Store, cache *redis.Client, log *zap.Logger) *Service {
	return &Service{store: store, cache: cache, log: log}
}

// PublicSettings is the unauthenticated settings payload shown on the
// deposit screen.
type PublicSettings struct {
	DepositWallet      string  `json:"depositWallet"`
	DepositQrURL       string  `json:"depositQrUrl"`
	MinDailyReward     float64 `json:"minDailyReward"`
	MaxDailyReward     float64 `json:"maxDailyReward"`
	WithdrawLockAmount float64 `json:"withdrawLockAmount"`
	WithdrawLockDays   int     `json:"withdrawLockDays"`
}

func (s *Service) Public(ctx context.Context) PublicSettings {
	return PublicSettings{
		DepositWallet:      s.stringValue(ctx, KeyDepositWallet, DefaultDepositWallet),
		DepositQrURL:       s.stringValue(ctx, KeyDepositQrURL, ""),
		MinDailyReward:     s.floatValue(ctx, KeyMinDailyReward, DefaultMinDailyReward),
		MaxDailyReward:     s.floatValue(ctx, KeyMaxDailyReward, DefaultMaxDailyReward),
		WithdrawLockAmount: s.floatValue(ctx, KeyWithdrawLockAmount, DefaultWithdrawLockAmount),
		WithdrawLockDays:   s.intValue(ctx, KeyWithdrawLockDays, DefaultWithdrawLockDays),
	}
}

// DepositWallet is the address registration deposits are sent to.
func (s *Service) DepositWallet(ctx context.Context) string {
	return s.stringValue(ctx, KeyDepositWallet, DefaultDepositWallet)
}

// LevelRules returns the configured level-reward table, falling back to
// reward.DefaultRules when the key is absent or the stored JSON is invalid.
func (s *Service) LevelRules(ctx context.Context) (reward.Rules, error) {
	raw, ok := s.lookup(ctx, KeyLevelRules)
	if !ok {
		return reward.DefaultRules(), nil
	}
	var rules reward.Rules
	if err := json.Unmarshal([]byte(raw), &rules); err != nil {
		s.log.Warn("levelRules setting is not valid JSON, using defaults", zap.Error(err))
		return reward.DefaultRules(), nil
	}
	if err := rules.Validate(); err != nil {
		s.log.Warn("levelRules setting failed validation, using defaults", zap.Error(err))
		return reward.DefaultRules(), nil
	}
	return rules, nil
}

// Update writes a setting and invalidates its cache entry.
func (s *Service) Update(ctx context.Context, key, value, description string) (Setting, error) {
	if key == "" {
		return Setting{}, errors.Join(sentinel.ErrInvalidInput, errors.New("setting key is required"))
	}
	if err := s.store.Set(ctx, key, value, description); err != nil {
		return Setting{}, err
	}
	if s.cache != nil {
		if err := s.cache.Del(ctx, cachePrefix+key).Err(); err != nil {
			s.log.Warn("settings cache invalidation failed", zap.String("key", key), zap.Error(err))
		}
	}
	return s.store.Get(ctx, key)
}

// All lists every stored setting (admin surface).
func (s *Service) All(ctx context.Context) ([]Setting, error) {
	return s.store.List(ctx)
}

// lookup reads through the cache. Cache failures degrade to store reads.
func (s *Service) lookup(ctx context.Context, key string) (string, bool) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cachePrefix+key).Result(); err == nil {
			return cached, true
		}
	}
	setting, err := s.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			s.log.Warn("settings store read failed", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cachePrefix+key, setting.Value, cacheTTL).Err(); err != nil {
			s.log.Warn("settings cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return setting.Value, true
}

func (s *Service) stringValue(ctx context.Context, key, fallback string) string {
	if v, ok := s.lookup(ctx, key); ok {
		return v
	}
	return fallback
}

func (s *Service) floatValue(ctx context.Context, key string, fallback float64) float64 {
	if v, ok := s.lookup(ctx, key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func (s *Service) intValue(ctx context.Context, key string, fallback int) int {
	if v, ok := s.lookup(ctx, key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
