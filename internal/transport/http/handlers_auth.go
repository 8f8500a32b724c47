package httptransport

import (
	"net/http"

	authservice "suci/internal/auth/service"
	"suci/internal/ledger/models"
	"suci/internal/platform/middleware"
	id "suci/pkg/domain"
)

// authResponse is the flattened user-plus-token payload returned by the
// register, login, and profile-update endpoints.
type authResponse struct {
	ID                          id.UserID `json:"id"`
	Username                    string    `json:"username"`
	Email                       string    `json:"email"`
	WalletAddress               string    `json:"walletAddress,omitempty"`
	ReferralCode                string    `json:"referralCode"`
	Balance                     float64   `json:"balance"`
	IsActive                    bool      `json:"isActive"`
	RegistrationDepositVerified bool      `json:"registrationDepositVerified"`
	AchievedLevels              []int     `json:"achievedLevels"`
	IsAdmin                     bool      `json:"isAdmin"`
	Token                       string    `json:"token"`
}

func toAuthResponse(res authservice.AuthResult) authResponse {
	levels := res.User.AchievedLevels
	if levels == nil {
		levels = []int{}
	}
	return authResponse{
		ID:                          res.User.ID,
		Username:                    res.User.Username,
		Email:                       res.User.Email,
		WalletAddress:               res.User.WalletAddress,
		ReferralCode:                res.User.ReferralCode,
		Balance:                     res.User.Balance,
		IsActive:                    res.User.IsActive,
		RegistrationDepositVerified: res.User.RegistrationDepositVerified,
		AchievedLevels:              levels,
		IsAdmin:                     res.User.IsAdmin,
		Token:                       res.Token,
	}
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var in authservice.RegisterInput
	if err := decode(r, &in); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.auth.Register(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAuthResponse(res))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decode(r, &in); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.auth.Login(r.Context(), in.Email, in.Password, r.UserAgent())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuthResponse(res))
}

func (h *handler) adminLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decode(r, &in); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.auth.AdminLogin(r.Context(), in.Email, in.Password, r.UserAgent())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuthResponse(res))
}

type registrationDepositRequest struct {
	UserID          id.UserID `json:"userId"`
	Amount          float64   `json:"amount"`
	TransactionHash string    `json:"transactionHash"`
}

// submitRegistrationDeposit is unauthenticated: the account exists but
// cannot log in yet, so the client sends the user id from the register
// response.
func (h *handler) submitRegistrationDeposit(w http.ResponseWriter, r *http.Request) {
	var in registrationDepositRequest
	if err := decode(r, &in); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	wallet := h.settings.DepositWallet(r.Context())
	deposit, err := h.ledger.SubmitRegistrationDeposit(r.Context(), in.UserID, in.Amount, in.TransactionHash, wallet)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Registration deposit submitted successfully. Please wait for admin verification.",
		"deposit": deposit,
	})
}

func (h *handler) publicSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.settings.Public(r.Context()))
}

type profileResponse struct {
	ID               id.UserID `json:"id"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	WalletAddress    string    `json:"walletAddress,omitempty"`
	Balance          float64   `json:"balance"`
	TotalDeposits    float64   `json:"totalDeposits"`
	TotalWithdrawals float64   `json:"totalWithdrawals"`
	ReferralCode     string    `json:"referralCode"`
	ReferralEarnings float64   `json:"referralEarnings"`
	AchievedLevels   []int     `json:"achievedLevels"`
	CreatedAt        string    `json:"createdAt"`
	IsAdmin          bool      `json:"isAdmin"`
}

func toProfileResponse(u models.User) profileResponse {
	levels := u.AchievedLevels
	if levels == nil {
		levels = []int{}
	}
	return profileResponse{
		ID:               u.ID,
		Username:         u.Username,
		Email:            u.Email,
		WalletAddress:    u.WalletAddress,
		Balance:          u.Balance,
		TotalDeposits:    u.TotalDeposits,
		TotalWithdrawals: u.TotalWithdrawals,
		ReferralCode:     u.ReferralCode,
		ReferralEarnings: u.ReferralEarnings,
		AchievedLevels:   levels,
		CreatedAt:        u.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		IsAdmin:          u.IsAdmin,
	}
}

func (h *handler) profile(w http.ResponseWriter, r *http.Request) {
	userID := id.UserID(middleware.GetUserID(r.Context()))
	user, err := h.auth.Profile(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(user))
}

func (h *handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	userID := id.UserID(middleware.GetUserID(r.Context()))
	var in authservice.UpdateProfileInput
	if err := decode(r, &in); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.auth.UpdateProfile(r.Context(), userID, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuthResponse(res))
}
