package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	adminservice "suci/internal/admin/service"
	authservice "suci/internal/auth/service"
	jwttoken "suci/internal/jwt_token"
	ledgerservice "suci/internal/ledger/service"
	ledgerstore "suci/internal/ledger/store"
	depositstore "suci/internal/ledger/store/deposit"
	transactionstore "suci/internal/ledger/store/transaction"
	userstore "suci/internal/ledger/store/user"
	withdrawalstore "suci/internal/ledger/store/withdrawal"
	"suci/internal/platform/config"
	"suci/internal/platform/httpserver"
	"suci/internal/platform/logger"
	"suci/internal/platform/metrics"
	"suci/internal/platform/postgres"
	"suci/internal/platform/redis"
	"suci/internal/ratelimit"
	referralservice "suci/internal/referral/service"
	referralstore "suci/internal/referral/store"
	"suci/internal/reward"
	"suci/internal/settings"
	httptransport "suci/internal/transport/http"
	id "suci/pkg/domain"
	"suci/pkg/platform/tx"
)

// main wires dependencies and owns the server lifecycle. Stores are
// in-memory unless DATABASE_URL is set.
func main() {
	cfg := config.FromEnv()

	log, err := logger.New(cfg.DevLog)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		users        ledgerstore.UserStore
		deposits     ledgerstore.DepositStore
		withdrawals  ledgerstore.WithdrawalStore
		transactions ledgerstore.TransactionStore
		referrals    referralstore.Store
		settingStore settings.Store
		runner       tx.Runner = tx.Passthrough{}
		db           *sql.DB
	)
	if cfg.DatabaseURL != "" {
		db, err = postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal("postgres connection failed", zap.Error(err))
		}
		defer db.Close()
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			log.Fatal("schema bootstrap failed", zap.Error(err))
		}
		users = userstore.NewPostgres(db)
		deposits = depositstore.NewPostgres(db)
		withdrawals = withdrawalstore.NewPostgres(db)
		transactions = transactionstore.NewPostgres(db)
		referrals = referralstore.NewPostgres(db)
		settingStore = settings.NewPostgresStore(db)
		runner = tx.SQLRunner{DB: db}
		log.Info("using postgres stores")
	} else {
		users = userstore.NewInMemory()
		deposits = depositstore.NewInMemory()
		withdrawals = withdrawalstore.NewInMemory()
		transactions = transactionstore.NewInMemory()
		referrals = referralstore.NewInMemory()
		settingStore = settings.NewInMemoryStore()
		log.Info("using in-memory stores; set DATABASE_URL for persistence")
	}

	cache, err := redis.New(cfg.RedisURL)
	if err != nil {
		log.Fatal("redis connection failed", zap.Error(err))
	}
	if cache != nil {
		defer cache.Close()
		log.Info("settings cache enabled")
	}

	m := metrics.New()
	settingsSvc := settings.NewService(settingStore, cache, log)
	tokens := jwttoken.NewService(cfg.JWTSigningKey, cfg.TokenTTL)

	referralSvc := referralservice.New(referrals, codeResolver{users}, log)
	rewardSvc := reward.NewService(referrals, users, transactions, settingsSvc, m, log)
	ledgerSvc := ledgerservice.New(ledgerservice.Deps{
		Users:        users,
		Deposits:     deposits,
		Withdrawals:  withdrawals,
		Transactions: transactions,
		Referrals:    referralSvc,
		Rewards:      rewardSvc,
		Runner:       runner,
		Metrics:      m,
		Log:          log,
	})
	authSvc := authservice.New(users, referralSvc, tokens, m, log)
	adminSvc := adminservice.New(users, deposits, withdrawals, transactions, log)

	if err := authSvc.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Fatal("admin bootstrap failed", zap.Error(err))
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Auth:     authSvc,
		Ledger:   ledgerSvc,
		Referral: referralSvc,
		Reward:   rewardSvc,
		Admin:    adminSvc,
		Settings: settingsSvc,
		Verifier: tokens,
		Limiter:  ratelimit.NewLimiter(20, time.Minute),
		Cache:    cache,
		Log:      log,
	})
	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("server listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}

// codeResolver adapts the user store to the referral service's resolver.
type codeResolver struct {
	users ledgerstore.UserStore
}

func (r codeResolver) FindReferrerByCode(ctx context.Context, code string) (id.UserID, error) {
	user, err := r.users.FindByReferralCode(ctx, code)
	if err != nil {
		return "", err
	}
	return user.ID, nil
}
