package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/redmonkez12/natours-api/internal/httputil"
	"github.com/redmonkez12/natours-api/internal/logging"
	"github.com/redmonkez12/natours-api/internal/ratelimit"
	"github.com/redmonkez12/natours-api/internal/user"
)

const maxBodyBytes = 10 << 10

// Handler contains HTTP handlers for authentication endpoints
type Handler struct {
	service         *Service
	store           *AccountStore
	limiter         ratelimit.Limiter
	cookie          CookieConfig
	allowSignupRole bool
}

// HandlerConfig holds the transport options of Handler
type HandlerConfig struct {
	Cookie          CookieConfig
	AllowSignupRole bool // honor the "role" field at signup
}

func NewHandler(service *Service, store *AccountStore, limiter ratelimit.Limiter, cfg HandlerConfig) *Handler {
	return &Handler{
		service:         service,
		store:           store,
		limiter:         limiter,
		cookie:          cfg.Cookie,
		allowSignupRole: cfg.AllowSignupRole,
	}
}

// SignupRequest represents the signup request body
type SignupRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
	Role            string `json:"role,omitempty"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ForgotPasswordRequest represents the password reset request
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest represents the password reset confirmation
type ResetPasswordRequest struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// UpdatePasswordRequest represents a password change by a logged-in user
type UpdatePasswordRequest struct {
	PasswordCurrent string `json:"passwordCurrent"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// UserResponse represents an account in API responses
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Role      user.Role `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserData wraps an account under the "user" key
type UserData struct {
	User UserResponse `json:"user"`
}

// SessionData reports whether the caller has a valid session
type SessionData struct {
	LoggedIn bool          `json:"loggedIn"`
	User     *UserResponse `json:"user,omitempty"`
}

func toUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// Signup handles account creation
// @Summary      Sign up
// @Description  Create an account and receive a session token. The role field is ignored unless enabled by configuration.
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request body SignupRequest true "Signup data"
// @Success      201 {object} httputil.Response{data=UserData}
// @Failure      400 {object} httputil.Response "Validation error or email already exists"
// @Failure      429 {object} httputil.Response "Too many requests"
// @Failure      500 {object} httputil.Response "Internal server error"
// @Router       /users/signup [post]
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decodeBody(w, r, &req) {
		return
	}

	in := SignupInput{
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	}
	if h.allowSignupRole {
		in.Role = user.Role(req.Role)
	}

	result, err := h.service.Signup(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.sendToken(w, result, http.StatusCreated)
}

// Login handles user login
// @Summary      Log in
// @Description  Authenticate with email and password and receive a session token
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} httputil.Response{data=UserData}
// @Failure      400 {object} httputil.Response "Missing email or password"
// @Failure      401 {object} httputil.Response "Incorrect email or password"
// @Failure      429 {object} httputil.Response "Too many requests"
// @Router       /users/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.sendToken(w, result, http.StatusOK)
}

// Logout overwrites the session cookie
// @Summary      Log out
// @Description  Replace the session cookie with a short-lived dummy value. Bearer tokens stay valid until they expire.
// @Tags         users
// @Produce      json
// @Success      200 {object} httputil.Response
// @Router       /users/logout [get]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ClearSessionCookie(w, h.cookie)
	httputil.RespondJSON(w, httputil.Response{Status: httputil.StatusSuccess}, http.StatusOK)
}

// ForgotPassword handles password reset requests
// @Summary      Request password reset
// @Description  Email a one-time reset link. Always returns the same response for unknown emails.
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request body ForgotPasswordRequest true "Email address"
// @Success      200 {object} httputil.Response
// @Failure      400 {object} httputil.Response "Missing email"
// @Failure      429 {object} httputil.Response "Too many requests"
// @Failure      500 {object} httputil.Response "Email could not be sent"
// @Router       /users/forgotPassword [post]
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req ForgotPasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}

	email := user.NormalizeEmail(req.Email)
	cooling := false
	if email != "" && h.limiter != nil {
		started, err := h.limiter.StartCooldown(r.Context(), "forgot_password", email)
		if err != nil {
			logger.LogError("failed to check reset cooldown", err)
		} else if !started {
			httputil.RespondErrorWithCode(w, "please wait before requesting another reset email",
				httputil.CodeCooldownActive, http.StatusTooManyRequests)
			return
		}
		cooling = started
	}

	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		// no email went out, so the user may retry right away
		if cooling && errors.Is(err, ErrEmailDeliveryFailed) {
			if err := h.limiter.EndCooldown(context.WithoutCancel(r.Context()), "forgot_password", email); err != nil {
				logger.LogError("failed to release reset cooldown", err)
			}
		}
		writeError(w, r, err)
		return
	}

	httputil.RespondMessage(w, "If that email is registered, a reset link has been sent to it.", http.StatusOK)
}

// ResetPassword completes a password reset
// @Summary      Reset password
// @Description  Set a new password with the token from the reset email and receive a fresh session token
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        token path string true "Reset token"
// @Param        request body ResetPasswordRequest true "New password"
// @Success      200 {object} httputil.Response
// @Failure      400 {object} httputil.Response "Validation error, invalid or expired token"
// @Router       /users/resetPassword/{token} [patch]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.service.ConfirmPasswordReset(r.Context(), chi.URLParam(r, "token"), req.Password, req.PasswordConfirm)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.sendToken(w, result, http.StatusOK)
}

// UpdateMyPassword changes the password of the logged-in account
// @Summary      Update password
// @Description  Change the password after confirming the current one. Earlier tokens stop working.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body UpdatePasswordRequest true "Current and new password"
// @Success      200 {object} httputil.Response
// @Failure      400 {object} httputil.Response "Validation error"
// @Failure      401 {object} httputil.Response "Not logged in or wrong current password"
// @Router       /users/updateMyPassword [patch]
func (h *Handler) UpdateMyPassword(w http.ResponseWriter, r *http.Request) {
	account, ok := AccountFromContext(r.Context())
	if !ok {
		writeError(w, r, ErrUnauthenticated)
		return
	}

	var req UpdatePasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.service.ChangePassword(r.Context(), account, req.PasswordCurrent, req.Password, req.PasswordConfirm)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.sendToken(w, result, http.StatusOK)
}

// Me returns the logged-in account
// @Summary      Current account
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} httputil.Response{data=UserData}
// @Failure      401 {object} httputil.Response "Not logged in"
// @Router       /users/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	account, ok := AccountFromContext(r.Context())
	if !ok {
		writeError(w, r, ErrUnauthenticated)
		return
	}
	httputil.RespondSuccess(w, UserData{User: toUserResponse(account)}, http.StatusOK)
}

// Session reports whether the request carries a valid session. It never fails.
// @Summary      Session status
// @Tags         users
// @Produce      json
// @Success      200 {object} httputil.Response{data=SessionData}
// @Router       /users/session [get]
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	data := SessionData{}
	if account, ok := AccountFromContext(r.Context()); ok {
		resp := toUserResponse(account)
		data = SessionData{LoggedIn: true, User: &resp}
	}
	httputil.RespondSuccess(w, data, http.StatusOK)
}

// GetAccount returns any account by ID
// @Summary      Get account
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Account ID"
// @Success      200 {object} httputil.Response{data=UserData}
// @Failure      400 {object} httputil.Response "Invalid ID"
// @Failure      401 {object} httputil.Response "Not logged in"
// @Failure      403 {object} httputil.Response "Role not allowed"
// @Failure      404 {object} httputil.Response "No such account"
// @Router       /admin/accounts/{id} [get]
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondErrorWithCode(w, "invalid account id", httputil.CodeValidation, http.StatusBadRequest)
		return
	}

	account, err := h.store.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			httputil.RespondErrorWithCode(w, "no account found with that id", httputil.CodeNotFound, http.StatusNotFound)
			return
		}
		writeError(w, r, err)
		return
	}

	httputil.RespondSuccess(w, UserData{User: toUserResponse(account)}, http.StatusOK)
}

// sendToken sets the session cookie and writes the token with the account
func (h *Handler) sendToken(w http.ResponseWriter, result *AuthResult, status int) {
	SetSessionCookie(w, h.cookie, result.Token, result.ExpiresAt)
	httputil.RespondToken(w, result.Token, UserData{User: toUserResponse(result.Account)}, status)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logging.GetLoggerFromContext(r.Context()).Warn("invalid request body", "path", r.URL.Path, "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return false
	}
	return true
}
