// Package httptransport is the thin HTTP layer: routing, request decoding,
// and error translation. Business rules live in the domain services.
package httptransport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"suci/internal/platform/middleware"
	"suci/internal/platform/redis"
	"suci/internal/ratelimit"
)

// Deps collects the handler dependencies for router construction.
type Deps struct {
	Auth     AuthService
	Ledger   LedgerService
	Referral ReferralService
	Reward   RewardService
	Admin    AdminService
	Settings SettingsService
	Verifier middleware.TokenVerifier
	Limiter  *ratelimit.Limiter // nil disables credential rate limiting
	Cache    *redis.Client      // nil when redis is not configured
	Log      *zap.Logger
}

// NewRouter builds the full route tree.
func NewRouter(d Deps) http.Handler {
	h := &handler{
		auth:     d.Auth,
		ledger:   d.Ledger,
		referral: d.Referral,
		reward:   d.Reward,
		admin:    d.Admin,
		settings: d.Settings,
		cache:    d.Cache,
		log:      d.Log,
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(d.Log))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))

	r.Get("/healthz", h.health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if d.Limiter != nil {
					r.Use(ratelimit.Middleware(d.Limiter, d.Log))
				}
				r.Post("/register", h.register)
				r.Post("/login", h.login)
				r.Post("/admin-login", h.adminLogin)
			})
			r.Post("/registration-deposit", h.submitRegistrationDeposit)
			r.Get("/settings", h.publicSettings)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth(d.Verifier, d.Log))
				r.Get("/profile", h.profile)
				r.Put("/profile", h.updateProfile)
			})
		})

		r.Route("/user", func(r chi.Router) {
			r.Use(middleware.RequireAuth(d.Verifier, d.Log))
			r.Get("/deposits", h.myDeposits)
			r.Post("/deposits", h.createDeposit)
			r.Get("/withdrawals", h.myWithdrawals)
			r.Post("/withdrawals", h.createWithdrawal)
			r.Get("/transactions", h.myTransactions)
			r.Get("/referrals", h.myReferrals)
			r.Post("/rewards/check", h.checkLevelRewards)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAuth(d.Verifier, d.Log))
			r.Use(middleware.RequireAdmin(d.Log))

			r.Get("/stats", h.dashboardStats)

			r.Get("/users", h.listUsers)
			r.Get("/users/{id}", h.getUser)
			r.Put("/users/{id}", h.updateUser)
			r.Delete("/users/{id}", h.deleteUser)

			r.Get("/deposits", h.listDeposits)
			r.Put("/deposits/{id}", h.decideDeposit)
			r.Get("/registrations/pending", h.pendingRegistrations)
			r.Put("/registrations/{id}/verify", h.verifyRegistration)

			r.Get("/withdrawals", h.listWithdrawals)
			r.Put("/withdrawals/{id}", h.decideWithdrawal)

			r.Get("/transactions", h.listTransactions)
			r.Post("/transactions/reconcile", h.reconcile)
			r.Post("/bonus", h.creditBonus)

			r.Get("/settings", h.listSettings)
			r.Put("/settings", h.updateSetting)
		})
	})

	return r
}

// health reports liveness. The cache is optional infrastructure, so a dead
// redis shows up in the payload but does not fail the check.
func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ok"}
	if h.cache != nil {
		resp["cache"] = "ok"
		if err := h.cache.Health(r.Context()); err != nil {
			resp["cache"] = "unavailable"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// requestLogger logs one line per request once the response is written.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", chimiddleware.GetReqID(r.Context())))
		})
	}
}
