// Package service implements registration, login, and profile management.
// Accounts are created inactive; activation happens when an admin verifies
// the registration deposit, and login stays gated until then.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"suci/internal/auth/device"
	"suci/internal/ledger/models"
	"suci/internal/ledger/store"
	"suci/internal/platform/metrics"
	refmodels "suci/internal/referral/models"
	id "suci/pkg/domain"
	"suci/pkg/platform/sentinel"
)

const minPasswordLength = 6

// ErrInvalidCredentials is returned for a bad email/password pair. Lookup
// misses and password mismatches are indistinguishable on purpose.
var ErrInvalidCredentials = errors.New("invalid email or password")

// DepositPendingError gates login until the registration deposit is
// verified. Paid tells the client whether to show the deposit form or the
// "under review" notice.
type DepositPendingError struct {
	Paid bool
}

func (e *DepositPendingError) Error() string {
	return "registration deposit is still being verified"
}

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID id.UserID, isAdmin bool) (string, error)
}

// ReferralPlacer attaches a new user into the placement tree by referral
// code. A nil edge means the code was empty or unknown.
type ReferralPlacer interface {
	Place(ctx context.Context, referredID id.UserID, referralCode string) (*refmodels.Referral, error)
}

type Service struct {
	users     store.UserStore
	referrals ReferralPlacer
	tokens    TokenIssuer
	metrics   *metrics.Metrics
	log       *zap.Logger
}

func New(users store.UserStore, referrals ReferralPlacer, tokens TokenIssuer, m *metrics.Metrics, log *zap.Logger) *Service {
	return &Service{users: users, referrals: referrals, tokens: tokens, metrics: m, log: log}
}

type RegisterInput struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	ReferralCode string `json:"referralCode"`
}

// AuthResult is a user plus a freshly signed token.
type AuthResult struct {
	User  models.User
	Token string
}

// Register creates an inactive account and, when a known referral code is
// given, places it in the referrer's tree. The account cannot log in until
// its registration deposit is verified.
func (s *Service) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Username == "" || in.Email == "" {
		return AuthResult{}, fmt.Errorf("username and email are required: %w", sentinel.ErrInvalidInput)
	}
	if !strings.Contains(in.Email, "@") {
		return AuthResult{}, fmt.Errorf("invalid email address: %w", sentinel.ErrInvalidInput)
	}
	if len(in.Password) < minPasswordLength {
		return AuthResult{}, fmt.Errorf("password must be at least %d characters: %w", minPasswordLength, sentinel.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	user := models.User{
		ID:           id.NewUserID(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		ReferralCode: id.NewReferralCode(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, &user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return AuthResult{}, fmt.Errorf("user already exists: %w", sentinel.ErrConflict)
		}
		return AuthResult{}, err
	}

	edge, err := s.referrals.Place(ctx, user.ID, in.ReferralCode)
	if err != nil {
		// The account exists either way; a failed placement only costs the
		// referrer credit for this signup.
		s.log.Error("referral placement failed",
			zap.String("user_id", string(user.ID)),
			zap.String("code", in.ReferralCode),
			zap.Error(err))
	} else if edge != nil {
		user.ReferredBy = edge.ReferrerID
		user.UpdatedAt = time.Now()
		if err := s.users.Update(ctx, &user); err != nil {
			s.log.Error("recording referrer on user failed",
				zap.String("user_id", string(user.ID)), zap.Error(err))
		}
	}

	token, err := s.tokens.Issue(user.ID, false)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue token: %w", err)
	}
	if s.metrics != nil {
		s.metrics.UsersRegistered.Inc()
	}
	s.log.Info("user registered",
		zap.String("user_id", string(user.ID)),
		zap.String("username", user.Username),
		zap.Bool("referred", edge != nil))
	return AuthResult{User: user, Token: token}, nil
}

// Login authenticates a user. Accounts whose registration deposit is not yet
// verified are refused with DepositPendingError.
func (s *Service) Login(ctx context.Context, email, password, userAgent string) (AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return AuthResult{}, ErrInvalidCredentials
	}
	if !user.RegistrationDepositVerified && !user.IsAdmin {
		return AuthResult{}, &DepositPendingError{Paid: user.RegistrationDepositPaid}
	}

	return s.finishLogin(ctx, user, userAgent)
}

// AdminLogin authenticates an admin account. Non-admin accounts get the same
// answer as a wrong password.
func (s *Service) AdminLogin(ctx context.Context, email, password, userAgent string) (AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}
	if !user.IsAdmin || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return AuthResult{}, ErrInvalidCredentials
	}

	return s.finishLogin(ctx, user, userAgent)
}

func (s *Service) finishLogin(ctx context.Context, user models.User, userAgent string) (AuthResult, error) {
	now := time.Now()
	deviceName := device.ParseUserAgent(userAgent)
	if err := s.users.RecordLogin(ctx, user.ID, now, deviceName); err != nil {
		s.log.Warn("recording login failed", zap.String("user_id", string(user.ID)), zap.Error(err))
	}
	user.LastLogin = now
	user.LastLoginDevice = deviceName

	token, err := s.tokens.Issue(user.ID, user.IsAdmin)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue token: %w", err)
	}
	s.log.Info("login",
		zap.String("user_id", string(user.ID)),
		zap.Bool("admin", user.IsAdmin),
		zap.String("device", deviceName))
	return AuthResult{User: user, Token: token}, nil
}

// Profile returns the authenticated user's account.
func (s *Service) Profile(ctx context.Context, userID id.UserID) (models.User, error) {
	return s.users.FindByID(ctx, userID)
}

type UpdateProfileInput struct {
	Username      string `json:"username"`
	Email         string `json:"email"`
	WalletAddress string `json:"walletAddress"`
	Password      string `json:"password"`
}

// UpdateProfile patches the fields a user may change about themselves. Empty
// fields keep their current value.
func (s *Service) UpdateProfile(ctx context.Context, userID id.UserID, in UpdateProfileInput) (AuthResult, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return AuthResult{}, err
	}

	if v := strings.TrimSpace(in.Username); v != "" {
		user.Username = v
	}
	if v := strings.ToLower(strings.TrimSpace(in.Email)); v != "" {
		if !strings.Contains(v, "@") {
			return AuthResult{}, fmt.Errorf("invalid email address: %w", sentinel.ErrInvalidInput)
		}
		user.Email = v
	}
	if v := strings.TrimSpace(in.WalletAddress); v != "" {
		user.WalletAddress = v
	}
	if in.Password != "" {
		if len(in.Password) < minPasswordLength {
			return AuthResult{}, fmt.Errorf("password must be at least %d characters: %w", minPasswordLength, sentinel.ErrInvalidInput)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return AuthResult{}, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}
	user.UpdatedAt = time.Now()

	if err := s.users.Update(ctx, &user); err != nil {
		return AuthResult{}, err
	}
	token, err := s.tokens.Issue(user.ID, user.IsAdmin)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue token: %w", err)
	}
	return AuthResult{User: user, Token: token}, nil
}

// EnsureAdmin creates the bootstrap admin account when it does not exist.
// Run at startup; a missing email/password pair disables the bootstrap.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	now := time.Now()
	admin := models.User{
		ID:                          id.NewUserID(),
		Username:                    "admin",
		Email:                       email,
		PasswordHash:                string(hash),
		IsActive:                    true,
		RegistrationDepositPaid:     true,
		RegistrationDepositVerified: true,
		ReferralCode:                id.NewReferralCode(),
		IsAdmin:                     true,
		CreatedAt:                   now,
		UpdatedAt:                   now,
	}
	if err := s.users.Create(ctx, &admin); err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	s.log.Info("bootstrap admin created", zap.String("email", email))
	return nil
}
