package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	adminservice "suci/internal/admin/service"
	"suci/internal/platform/middleware"
	id "suci/pkg/domain"
)

func actorID(r *http.Request) id.UserID {
	return id.UserID(middleware.GetUserID(r.Context()))
}

func (h *handler) dashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admin.Stats(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.admin.Users(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *handler) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.admin.User(r.Context(), id.UserID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *handler) updateUser(w http.ResponseWriter, r *http.Request) {
	var in adminservice.UpdateUserInput
	if err := decode(r, &in); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	user, err := h.admin.UpdateUser(r.Context(), id.UserID(chi.URLParam(r, "id")), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.DeleteUser(r.Context(), id.UserID(chi.URLParam(r, "id"))); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "User removed")
}

func (h *handler) listDeposits(w http.ResponseWriter, r *http.Request) {
	deposits, err := h.admin.Deposits(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deposits)
}

// decisionRequest decides a pending request: status must be "approved" or
// "rejected".
type decisionRequest struct {
	Status          string `json:"status"`
	AdminNotes      string `json:"adminNotes"`
	TransactionHash string `json:"transactionHash"`
}

func (d decisionRequest) approve() (bool, bool) {
	switch d.Status {
	case "approved":
		return true, true
	case "rejected":
		return false, true
	default:
		return false, false
	}
}

func (h *handler) decideDeposit(w http.ResponseWriter, r *http.Request) {
	var in decisionRequest
	if err := decode(r, &in); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	approve, ok := in.approve()
	if !ok {
		writeMessage(w, http.StatusBadRequest, "status must be approved or rejected")
		return
	}

	depositID := id.DepositID(chi.URLParam(r, "id"))
	var err error
	var deposit any
	if approve {
		deposit, err = h.ledger.ApproveDeposit(r.Context(), depositID, actorID(r), in.AdminNotes)
	} else {
		deposit, err = h.ledger.RejectDeposit(r.Context(), depositID, actorID(r), in.AdminNotes)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deposit)
}

func (h *handler) pendingRegistrations(w http.ResponseWriter, r *http.Request) {
	deposits, err := h.admin.PendingRegistrations(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deposits)
}

func (h *handler) verifyRegistration(w http.ResponseWriter, r *http.Request) {
	var in decisionRequest
	if err := decode(r, &in); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	approve, ok := in.approve()
	if !ok {
		writeMessage(w, http.StatusBadRequest, "status must be approved or rejected")
		return
	}

	deposit, err := h.ledger.VerifyRegistrationDeposit(r.Context(), id.DepositID(chi.URLParam(r, "id")), approve, actorID(r), in.AdminNotes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deposit)
}

func (h *handler) listWithdrawals(w http.ResponseWriter, r *http.Request) {
	withdrawals, err := h.admin.Withdrawals(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, withdrawals)
}

func (h *handler) decideWithdrawal(w http.ResponseWriter, r *http.Request) {
	var in decisionRequest
	if err := decode(r, &in); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	approve, ok := in.approve()
	if !ok {
		writeMessage(w, http.StatusBadRequest, "status must be approved or rejected")
		return
	}

	withdrawalID := id.WithdrawalID(chi.URLParam(r, "id"))
	var err error
	var withdrawal any
	if approve {
		withdrawal, err = h.ledger.ApproveWithdrawal(r.Context(), withdrawalID, in.TransactionHash, actorID(r), in.AdminNotes)
	} else {
		withdrawal, err = h.ledger.RejectWithdrawal(r.Context(), withdrawalID, actorID(r), in.AdminNotes)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, withdrawal)
}

func (h *handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	transactions, err := h.admin.Transactions(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transactions)
}

func (h *handler) reconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.ledger.Reconcile(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type bonusRequest struct {
	UserID      id.UserID `json:"userId"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
}

func (h *handler) creditBonus(w http.ResponseWriter, r *http.Request) {
	var in bonusRequest
	if err := decode(r, &in); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	row, err := h.ledger.CreditBonus(r.Context(), in.UserID, in.Amount, in.Description, actorID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

func (h *handler) listSettings(w http.ResponseWriter, r *http.Request) {
	all, err := h.settings.All(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, all)
}

type settingRequest struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Description string `json:"description"`
}

func (h *handler) updateSetting(w http.ResponseWriter, r *http.Request) {
	var in settingRequest
	if err := decode(r, &in); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	setting, err := h.settings.Update(r.Context(), in.Key, in.Value, in.Description)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, setting)
}
