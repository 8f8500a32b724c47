package httptransport

import (
	"net/http"

	"suci/internal/platform/middleware"
	id "suci/pkg/domain"
)

type createDepositRequest struct {
	Amount          float64 `json:"amount"`
	TransactionHash string  `json:"transactionHash"`
}

func (h *handler) createDeposit(w http.ResponseWriter, r *http.Request) {
	userID := id.UserID(middleware.GetUserID(r.Context()))
	var in createDepositRequest
	if err := decode(r, &in); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	wallet := h.settings.DepositWallet(r.Context())
	deposit, err := h.ledger.RequestDeposit(r.Context(), userID, in.Amount, in.TransactionHash, wallet)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, deposit)
}

func (h *handler) myDeposits(w http.ResponseWriter, r *http.Request) {
	userID := id.UserID(middleware.GetUserID(r.Context()))
	deposits, err := h.ledger.UserDeposits(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deposits)
}

type createWithdrawalRequest struct {
	Amount        float64 `json:"amount"`
	WalletAddress string  `json:"walletAddress"`
}

func (h *handler) createWithdrawal(w http.ResponseWriter, r *http.Request) {
	userID := id.UserID(middleware.GetUserID(r.Context()))
	var in createWithdrawalRequest
	if err := decode(r, &in); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	withdrawal, err := h.ledger.RequestWithdrawal(r.Context(), userID, in.Amount, in.WalletAddress)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, withdrawal)
}

func (h *handler) myWithdrawals(w http.ResponseWriter, r *http.Request) {
	userID := id.UserID(middleware.GetUserID(r.Context()))
	withdrawals, err := h.ledger.UserWithdrawals(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, withdrawals)
}

func (h *handler) myTransactions(w http.ResponseWriter, r *http.Request) {
	userID := id.UserID(middleware.GetUserID(r.Context()))
	transactions, err := h.ledger.UserTransactions(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transactions)
}

func (h *handler) myReferrals(w http.ResponseWriter, r *http.Request) {
	userID := id.UserID(middleware.GetUserID(r.Context()))
	edges, err := h.referral.Direct(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	stats, err := h.referral.StatsFor(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"referrals": edges,
		"stats":     stats,
	})
}

// checkLevelRewards lets a user claim levels they qualified for since their
// last activation event; already-granted levels come back empty.
func (h *handler) checkLevelRewards(w http.ResponseWriter, r *http.Request) {
	userID := id.UserID(middleware.GetUserID(r.Context()))
	granted, err := h.reward.CheckLevels(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if granted == nil {
		granted = []int{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"newLevels": granted})
}
