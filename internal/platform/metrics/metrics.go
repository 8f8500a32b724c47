package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	UsersRegistered       prometheus.Counter
	DepositsApproved      prometheus.Counter
	DepositsRejected      prometheus.Counter
	WithdrawalsApproved   prometheus.Counter
	WithdrawalsRejected   prometheus.Counter
	RegistrationsVerified prometheus.Counter
	RewardsCredited       prometheus.Counter
	RewardAmount          prometheus.Counter
	BonusesCredited       prometheus.Counter
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		UsersRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "suci_users_registered_total",
			Help: "Total number of user registrations",
		}),
		DepositsApproved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "suci_deposits_approved_total",
			Help: "Total number of approved deposit requests",
		}),
		DepositsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "suci_deposits_rejected_total",
			Help: "Total number of rejected deposit requests",
		}),
		WithdrawalsApproved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "suci_withdrawals_approved_total",
			Help: "Total number of approved withdrawal requests",
		}),
		WithdrawalsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "suci_withdrawals_rejected_total",
			Help: "Total number of rejected withdrawal requests",
		}),
		RegistrationsVerified: promauto.NewCounter(prometheus.CounterOpts{
			Name: "suci_registration_deposits_verified_total",
			Help: "Total number of verified registration deposits",
		}),
		RewardsCredited: promauto.NewCounter(prometheus.CounterOpts{
			Name: "suci_level_rewards_credited_total",
			Help: "Total number of level rewards credited to referrers",
		}),
		RewardAmount: promauto.NewCounter(prometheus.CounterOpts{
			Name: "suci_level_reward_amount_total",
			Help: "Total amount credited through level rewards",
		}),
		BonusesCredited: promauto.NewCounter(prometheus.CounterOpts{
			Name: "suci_bonuses_credited_total",
			Help: "Total number of admin bonus credits",
		}),
	}
}

// RewardCredited records one credited level reward.
func (m *Metrics) RewardCredited(amount float64) {
	m.RewardsCredited.Inc()
	m.RewardAmount.Add(amount)
}
