package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"suci/internal/ledger/models"
	"suci/internal/ledger/service/mocks"
	depositstore "suci/internal/ledger/store/deposit"
	transactionstore "suci/internal/ledger/store/transaction"
	userstore "suci/internal/ledger/store/user"
	withdrawalstore "suci/internal/ledger/store/withdrawal"
	id "suci/pkg/domain"
	"suci/pkg/platform/sentinel"
)

const admin = id.UserID("admin-1")

type LedgerServiceSuite struct {
	suite.Suite
	ctx          context.Context
	ctrl         *gomock.Controller
	users        *userstore.InMemoryStore
	deposits     *depositstore.InMemoryStore
	withdrawals  *withdrawalstore.InMemoryStore
	transactions *transactionstore.InMemoryStore
	referrals    *mocks.MockReferralActivator
	rewards      *mocks.MockRewardProcessor
	svc          *Service
}

func TestLedgerServiceSuite(t *testing.T) {
	suite.Run(t, new(LedgerServiceSuite))
}

func (s *LedgerServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.users = userstore.NewInMemory()
	s.deposits = depositstore.NewInMemory()
	s.withdrawals = withdrawalstore.NewInMemory()
	s.transactions = transactionstore.NewInMemory()
	s.referrals = mocks.NewMockReferralActivator(s.ctrl)
	s.rewards = mocks.NewMockRewardProcessor(s.ctrl)
	s.svc = New(Deps{
		Users:        s.users,
		Deposits:     s.deposits,
		Withdrawals:  s.withdrawals,
		Transactions: s.transactions,
		Referrals:    s.referrals,
		Rewards:      s.rewards,
		Log:          zap.NewNop(),
	})
}

func (s *LedgerServiceSuite) addUser(name string, balance float64) id.UserID {
	u := models.User{
		ID:           id.NewUserID(),
		Username:     name,
		Email:        name + "@example.com",
		Balance:      balance,
		ReferralCode: id.NewReferralCode(),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	s.Require().NoError(s.users.Create(s.ctx, &u))
	return u.ID
}

func (s *LedgerServiceSuite) user(userID id.UserID) models.User {
	u, err := s.users.FindByID(s.ctx, userID)
	s.Require().NoError(err)
	return u
}

func (s *LedgerServiceSuite) pendingRow(requestID string) models.Transaction {
	row, err := s.transactions.FindPendingByRequest(s.ctx, requestID)
	s.Require().NoError(err)
	return row
}

func (s *LedgerServiceSuite) TestApproveDepositCreditsOnce() {
	userID := s.addUser("alice", 0)
	deposit, err := s.svc.RequestDeposit(s.ctx, userID, 100, "0xhash", "0xwallet")
	s.Require().NoError(err)
	s.Equal(models.StatusPending, deposit.Status)
	s.Zero(s.user(userID).Balance, "requesting must not credit")

	decided, err := s.svc.ApproveDeposit(s.ctx, deposit.ID, admin, "ok")
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, decided.Status)

	u := s.user(userID)
	s.Equal(100.0, u.Balance)
	s.Equal(100.0, u.TotalDeposits)

	rows, err := s.transactions.ListByUser(s.ctx, userID)
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Equal(models.TxStatusCompleted, rows[0].Status)
	s.Equal(admin, rows[0].ProcessedBy)

	// second decision must lose and move no money
	_, err = s.svc.ApproveDeposit(s.ctx, deposit.ID, admin, "")
	s.ErrorIs(err, sentinel.ErrConflict)
	s.Equal(100.0, s.user(userID).Balance)
}

func (s *LedgerServiceSuite) TestRejectDepositMovesNoMoney() {
	userID := s.addUser("bob", 0)
	deposit, err := s.svc.RequestDeposit(s.ctx, userID, 100, "0xhash", "0xwallet")
	s.Require().NoError(err)

	_, err = s.svc.RejectDeposit(s.ctx, deposit.ID, admin, "no such payment")
	s.Require().NoError(err)

	u := s.user(userID)
	s.Zero(u.Balance)
	s.Zero(u.TotalDeposits)

	rows, err := s.transactions.ListByUser(s.ctx, userID)
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Equal(models.TxStatusRejected, rows[0].Status)
}

func (s *LedgerServiceSuite) TestRegularDecisionRefusesRegistrationDeposits() {
	userID := s.addUser("carol", 0)
	deposit, err := s.svc.SubmitRegistrationDeposit(s.ctx, userID, 60, "0xhash", "0xwallet")
	s.Require().NoError(err)

	_, err = s.svc.ApproveDeposit(s.ctx, deposit.ID, admin, "")
	s.ErrorIs(err, sentinel.ErrInvalidState)
	_, err = s.svc.RejectDeposit(s.ctx, deposit.ID, admin, "")
	s.ErrorIs(err, sentinel.ErrInvalidState)

	s.Zero(s.user(userID).Balance, "wrong-path decisions must not move money")
}

func (s *LedgerServiceSuite) TestVerificationRefusesRegularDeposits() {
	userID := s.addUser("carl", 0)
	deposit, err := s.svc.RequestDeposit(s.ctx, userID, 25, "0xhash", "0xwallet")
	s.Require().NoError(err)

	_, err = s.svc.VerifyRegistrationDeposit(s.ctx, deposit.ID, true, admin, "")
	s.ErrorIs(err, sentinel.ErrInvalidState)
	s.Zero(s.user(userID).Balance)
}

func (s *LedgerServiceSuite) TestSubmitRegistrationDepositValidation() {
	userID := s.addUser("dave", 0)

	_, err := s.svc.SubmitRegistrationDeposit(s.ctx, userID, 59.99, "0x", "0xw")
	s.ErrorIs(err, sentinel.ErrInvalidInput, "below the registration minimum")

	first, err := s.svc.SubmitRegistrationDeposit(s.ctx, userID, 60, "0x", "0xw")
	s.Require().NoError(err)
	s.True(first.IsRegistrationDeposit)
	s.True(s.user(userID).RegistrationDepositPaid)

	_, err = s.svc.SubmitRegistrationDeposit(s.ctx, userID, 80, "0x", "0xw")
	s.ErrorIs(err, sentinel.ErrInvalidInput, "one submission per user")
}

func (s *LedgerServiceSuite) TestVerifyRegistrationApproval() {
	userID := s.addUser("erin", 0)
	deposit, err := s.svc.SubmitRegistrationDeposit(s.ctx, userID, 75, "0x", "0xw")
	s.Require().NoError(err)

	s.referrals.EXPECT().Activate(gomock.Any(), userID).Return(nil)
	s.rewards.EXPECT().PropagateActivation(gomock.Any(), userID).Return(nil)

	decided, err := s.svc.VerifyRegistrationDeposit(s.ctx, deposit.ID, true, admin, "verified")
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, decided.Status)

	u := s.user(userID)
	s.Equal(75.0, u.Balance)
	s.Equal(75.0, u.TotalDeposits)
	s.True(u.IsActive)
	s.True(u.RegistrationDepositVerified)

	s.Equal(models.TxStatusCompleted, s.row(userID).Status)
}

func (s *LedgerServiceSuite) row(userID id.UserID) models.Transaction {
	rows, err := s.transactions.ListByUser(s.ctx, userID)
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	return rows[0]
}

func (s *LedgerServiceSuite) TestVerifyRegistrationRejection() {
	userID := s.addUser("frank", 0)
	deposit, err := s.svc.SubmitRegistrationDeposit(s.ctx, userID, 75, "0x", "0xw")
	s.Require().NoError(err)

	s.referrals.EXPECT().Deactivate(gomock.Any(), userID).Return(nil)

	decided, err := s.svc.VerifyRegistrationDeposit(s.ctx, deposit.ID, false, admin, "hash not found")
	s.Require().NoError(err)
	s.Equal(models.StatusRejected, decided.Status)

	u := s.user(userID)
	s.Zero(u.Balance, "rejection must not credit")
	s.False(u.IsActive)
	s.False(u.RegistrationDepositPaid, "user can submit again")
	s.Equal(models.TxStatusRejected, s.row(userID).Status)
}

func (s *LedgerServiceSuite) TestRewardFailureDoesNotUndoActivation() {
	userID := s.addUser("grace", 0)
	deposit, err := s.svc.SubmitRegistrationDeposit(s.ctx, userID, 60, "0x", "0xw")
	s.Require().NoError(err)

	s.referrals.EXPECT().Activate(gomock.Any(), userID).Return(nil)
	s.rewards.EXPECT().PropagateActivation(gomock.Any(), userID).Return(context.DeadlineExceeded)

	_, err = s.svc.VerifyRegistrationDeposit(s.ctx, deposit.ID, true, admin, "")
	s.Require().NoError(err, "propagation failure is logged, not returned")
	s.True(s.user(userID).IsActive)
}

func (s *LedgerServiceSuite) TestWithdrawalDebitsUpFront() {
	userID := s.addUser("henry", 100)

	w, err := s.svc.RequestWithdrawal(s.ctx, userID, 40, "0xpayout")
	s.Require().NoError(err)
	s.Equal(models.StatusPending, w.Status)
	s.Equal(60.0, s.user(userID).Balance, "debit happens at request time")

	_, err = s.svc.RequestWithdrawal(s.ctx, userID, 61, "0xpayout")
	s.ErrorIs(err, sentinel.ErrInvalidInput, "cannot queue beyond balance")
	s.Equal(60.0, s.user(userID).Balance)
}

func (s *LedgerServiceSuite) TestApproveWithdrawalKeepsDebit() {
	userID := s.addUser("iris", 100)
	w, err := s.svc.RequestWithdrawal(s.ctx, userID, 40, "0xpayout")
	s.Require().NoError(err)

	decided, err := s.svc.ApproveWithdrawal(s.ctx, w.ID, "0xtxhash", admin, "sent")
	s.Require().NoError(err)
	s.Equal("0xtxhash", decided.TransactionHash)

	u := s.user(userID)
	s.Equal(60.0, u.Balance, "approval must not debit again")
	s.Equal(40.0, u.TotalWithdrawals)
	s.Equal(models.TxStatusCompleted, s.row(userID).Status)
}

func (s *LedgerServiceSuite) TestRejectWithdrawalRefunds() {
	userID := s.addUser("jack", 100)
	w, err := s.svc.RequestWithdrawal(s.ctx, userID, 40, "0xpayout")
	s.Require().NoError(err)

	_, err = s.svc.RejectWithdrawal(s.ctx, w.ID, admin, "wrong address")
	s.Require().NoError(err)

	u := s.user(userID)
	s.Equal(100.0, u.Balance, "rejection refunds the debit")
	s.Zero(u.TotalWithdrawals)
	s.Equal(models.TxStatusRejected, s.row(userID).Status)

	// refund happened once; a second rejection must conflict without another refund
	_, err = s.svc.RejectWithdrawal(s.ctx, w.ID, admin, "")
	s.ErrorIs(err, sentinel.ErrConflict)
	s.Equal(100.0, s.user(userID).Balance)
}

func (s *LedgerServiceSuite) TestCreditBonus() {
	userID := s.addUser("kate", 10)

	row, err := s.svc.CreditBonus(s.ctx, userID, 5, "weekly promo", admin)
	s.Require().NoError(err)
	s.Equal(models.TxTypeBonus, row.Type)
	s.Equal(models.TxStatusCompleted, row.Status)
	s.Equal(admin, row.ProcessedBy)
	s.Equal(15.0, s.user(userID).Balance)

	_, err = s.svc.CreditBonus(s.ctx, userID, -5, "", admin)
	s.ErrorIs(err, sentinel.ErrInvalidInput)
}

func (s *LedgerServiceSuite) TestReconcileRepairsDanglingRows() {
	userID := s.addUser("luna", 0)
	deposit, err := s.svc.RequestDeposit(s.ctx, userID, 100, "0x", "0xw")
	s.Require().NoError(err)

	// Decide the deposit behind the service's back so its ledger row stays
	// pending, the situation the repair pass exists for.
	_, err = s.deposits.UpdateDecision(s.ctx, deposit.ID, models.StatusApproved, "", admin, time.Now())
	s.Require().NoError(err)
	s.Equal(models.TxStatusPending, s.pendingRow(string(deposit.ID)).Status)

	report, err := s.svc.Reconcile(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, report.Scanned)
	s.Equal(1, report.Repaired)
	s.Zero(report.Orphaned)

	s.Equal(models.TxStatusCompleted, s.row(userID).Status)
}

func (s *LedgerServiceSuite) TestReconcileUsesTupleFallback() {
	userID := s.addUser("milo", 0)

	// Legacy-shaped row: no RequestID, matching terminal deposit by tuple.
	d := models.Deposit{
		ID:        id.NewDepositID(),
		UserID:    userID,
		Amount:    55,
		Status:    models.StatusPending,
		CreatedAt: time.Now(),
	}
	s.Require().NoError(s.deposits.Create(s.ctx, &d))
	_, err := s.deposits.UpdateDecision(s.ctx, d.ID, models.StatusRejected, "", admin, time.Now())
	s.Require().NoError(err)

	row := models.Transaction{
		ID:        id.NewTransactionID(),
		UserID:    userID,
		Type:      models.TxTypeDeposit,
		Amount:    55,
		Status:    models.TxStatusPending,
		CreatedAt: time.Now(),
	}
	s.Require().NoError(s.transactions.Create(s.ctx, &row))

	report, err := s.svc.Reconcile(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, report.Repaired)
	s.Equal(models.TxStatusRejected, s.row(userID).Status)
}

func (s *LedgerServiceSuite) TestReconcileLeavesLiveRequestsAlone() {
	userID := s.addUser("nina", 0)
	deposit, err := s.svc.RequestDeposit(s.ctx, userID, 100, "0x", "0xw")
	s.Require().NoError(err)

	report, err := s.svc.Reconcile(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, report.Scanned)
	s.Zero(report.Repaired)
	s.Equal(models.TxStatusPending, s.pendingRow(string(deposit.ID)).Status)
}
