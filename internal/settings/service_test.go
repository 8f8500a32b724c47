package settings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"suci/internal/reward"
	"suci/pkg/platform/sentinel"
)

type SettingsServiceSuite struct {
	suite.Suite
	ctx context.Context
	svc *Service
}

func TestSettingsServiceSuite(t *testing.T) {
	suite.Run(t, new(SettingsServiceSuite))
}

func (s *SettingsServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.svc = NewService(NewInMemoryStore(), nil, zap.NewNop())
}

func (s *SettingsServiceSuite) TestPublicDefaultsOnEmptyStore() {
	got := s.svc.Public(s.ctx)

	s.Equal(DefaultDepositWallet, got.DepositWallet)
	s.Empty(got.DepositQrURL)
	s.Equal(DefaultMinDailyReward, got.MinDailyReward)
	s.Equal(DefaultMaxDailyReward, got.MaxDailyReward)
	s.Equal(DefaultWithdrawLockAmount, got.WithdrawLockAmount)
	s.Equal(DefaultWithdrawLockDays, got.WithdrawLockDays)
}

func (s *SettingsServiceSuite) TestStoredValuesWinOverDefaults() {
	_, err := s.svc.Update(s.ctx, KeyDepositWallet, "0xnewwallet", "rotated")
	s.Require().NoError(err)
	_, err = s.svc.Update(s.ctx, KeyWithdrawLockDays, "30", "")
	s.Require().NoError(err)

	got := s.svc.Public(s.ctx)
	s.Equal("0xnewwallet", got.DepositWallet)
	s.Equal(30, got.WithdrawLockDays)

	s.Equal("0xnewwallet", s.svc.DepositWallet(s.ctx))
}

func (s *SettingsServiceSuite) TestUpdateRequiresKey() {
	_, err := s.svc.Update(s.ctx, "", "value", "")
	s.ErrorIs(err, sentinel.ErrInvalidInput)
}

func (s *SettingsServiceSuite) TestMalformedNumbersFallBack() {
	_, err := s.svc.Update(s.ctx, KeyMinDailyReward, "not-a-number", "")
	s.Require().NoError(err)

	got := s.svc.Public(s.ctx)
	s.Equal(DefaultMinDailyReward, got.MinDailyReward)
}

func (s *SettingsServiceSuite) TestLevelRulesDefaults() {
	rules, err := s.svc.LevelRules(s.ctx)
	s.Require().NoError(err)
	s.Equal(reward.DefaultRules(), rules)
}

func (s *SettingsServiceSuite) TestLevelRulesFromStore() {
	_, err := s.svc.Update(s.ctx, KeyLevelRules,
		`{"max_depth":2,"levels":[{"level":1,"required_active":2,"reward":5}]}`, "")
	s.Require().NoError(err)

	rules, err := s.svc.LevelRules(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, rules.MaxDepth)
	s.Require().Len(rules.Levels, 1)
	s.Equal(5.0, rules.Levels[0].Reward)
}

func (s *SettingsServiceSuite) TestInvalidLevelRulesFallBack() {
	_, err := s.svc.Update(s.ctx, KeyLevelRules, `{"max_depth":0,"levels":[]}`, "")
	s.Require().NoError(err)

	rules, err := s.svc.LevelRules(s.ctx)
	s.Require().NoError(err)
	s.Equal(reward.DefaultRules(), rules, "validation failures degrade to defaults")

	_, err = s.svc.Update(s.ctx, KeyLevelRules, `{not json`, "")
	s.Require().NoError(err)
	rules, err = s.svc.LevelRules(s.ctx)
	s.Require().NoError(err)
	s.Equal(reward.DefaultRules(), rules)
}

func (s *SettingsServiceSuite) TestAllListsStoredSettings() {
	_, err := s.svc.Update(s.ctx, KeyDepositWallet, "0xw", "")
	s.Require().NoError(err)
	_, err = s.svc.Update(s.ctx, KeyDepositQrURL, "https://qr.example.com", "")
	s.Require().NoError(err)

	all, err := s.svc.All(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 2)
}
