package reward

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	ledgermodels "suci/internal/ledger/models"
	ledgerstore "suci/internal/ledger/store"
	referralstore "suci/internal/referral/store"
	id "suci/pkg/domain"
	"suci/pkg/platform/sentinel"
)

// RulesSource supplies the level-reward table. Satisfied by the settings
// service so operators can retune levels without a deploy.
type RulesSource interface {
	LevelRules(ctx context.Context) (Rules, error)
}

// StaticRules is a RulesSource for tests and deployments without a settings
// store.
type StaticRules struct{ Rules Rules }

func (s StaticRules) LevelRules(context.Context) (Rules, error) { return s.Rules, nil }

// Metrics is the slice of the process metrics propagation reports into.
type Metrics interface {
	RewardCredited(amount float64)
}

type Service struct {
	referrals    referralstore.Store
	users        ledgerstore.UserStore
	transactions ledgerstore.TransactionStore
	rules        RulesSource
	metrics      Metrics // nil disables reporting
	log          *zap.Logger
	tracer       trace.Tracer
}

func NewService(referrals referralstore.Store, users ledgerstore.UserStore, transactions ledgerstore.TransactionStore, rules RulesSource, m Metrics, log *zap.Logger) *Service {
	return &Service{
		referrals:    referrals,
		users:        users,
		transactions: transactions,
		rules:        rules,
		metrics:      m,
		log:          log,
		tracer:       otel.Tracer("suci/reward"),
	}
}

// PropagateActivation walks up the referral chain from a freshly activated
// user and credits every level reward the walk newly unlocks. For each
// ancestor within MaxDepth, every configured level is evaluated against the
// ancestor's active direct referral count; qualifying levels are granted
// through the store's atomic grant, which refuses levels already achieved.
// The whole walk is idempotent: re-running it after a partial failure only
// credits what the first run missed.
//
// Per-ancestor failures are logged and skipped rather than aborting the
// walk; an ancestor further up should not lose a reward because a closer one
// had a storage hiccup.
func (s *Service) PropagateActivation(ctx context.Context, userID id.UserID) error {
	ctx, span := s.tracer.Start(ctx, "reward.PropagateActivation")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", string(userID)))

	rules, err := s.rules.LevelRules(ctx)
	if err != nil {
		return fmt.Errorf("load level rules: %w", err)
	}

	current := userID
	var failed int
	for depth := 1; depth <= rules.MaxDepth; depth++ {
		edge, err := s.referrals.FindByReferred(ctx, current)
		if errors.Is(err, sentinel.ErrNotFound) {
			break // top of the chain
		}
		if err != nil {
			return fmt.Errorf("resolve referrer of %s: %w", current, err)
		}

		if _, err := s.evaluate(ctx, edge.ReferrerID, rules); err != nil {
			failed++
			s.log.Error("reward evaluation failed for ancestor",
				zap.String("ancestor_id", string(edge.ReferrerID)),
				zap.Int("depth", depth),
				zap.Error(err))
		}
		current = edge.ReferrerID
	}
	if failed > 0 {
		return fmt.Errorf("reward propagation skipped %d ancestor(s)", failed)
	}
	return nil
}

// CheckLevels re-evaluates one user's own qualification on demand and
// returns the levels this call newly granted. Levels already achieved stay
// untouched, so users can poll it freely.
func (s *Service) CheckLevels(ctx context.Context, userID id.UserID) ([]int, error) {
	ctx, span := s.tracer.Start(ctx, "reward.CheckLevels")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", string(userID)))

	rules, err := s.rules.LevelRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("load level rules: %w", err)
	}
	return s.evaluate(ctx, userID, rules)
}

// evaluate grants every level the user now qualifies for and returns the
// newly granted ones.
func (s *Service) evaluate(ctx context.Context, ancestorID id.UserID, rules Rules) ([]int, error) {
	active, err := s.referrals.CountActiveByReferrer(ctx, ancestorID)
	if err != nil {
		return nil, err
	}
	var newLevels []int
	for _, rule := range rules.Levels {
		if active < rule.RequiredActive {
			continue
		}
		granted, err := s.users.GrantLevel(ctx, ancestorID, rule.Level, rule.Reward)
		if err != nil {
			return newLevels, fmt.Errorf("grant level %d: %w", rule.Level, err)
		}
		if !granted {
			continue
		}
		newLevels = append(newLevels, rule.Level)

		now := time.Now()
		row := ledgermodels.Transaction{
			ID:          id.NewTransactionID(),
			UserID:      ancestorID,
			Type:        ledgermodels.TxTypeReward,
			Amount:      rule.Reward,
			Status:      ledgermodels.TxStatusCompleted,
			Description: fmt.Sprintf("Level %d referral reward", rule.Level),
			ProcessedAt: &now,
			CreatedAt:   now,
		}
		if err := s.transactions.Create(ctx, &row); err != nil {
			// The credit itself already happened atomically; a missing audit
			// row is repairable, a double credit would not be.
			s.log.Warn("reward ledger row write failed",
				zap.String("user_id", string(ancestorID)),
				zap.Int("level", rule.Level),
				zap.Error(err))
		}
		if s.metrics != nil {
			s.metrics.RewardCredited(rule.Reward)
		}
		s.log.Info("level reward credited",
			zap.String("user_id", string(ancestorID)),
			zap.Int("level", rule.Level),
			zap.Float64("reward", rule.Reward),
			zap.Int("active_referrals", active))
	}
	return newLevels, nil
}
