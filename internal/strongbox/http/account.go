package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/strongbox/internal/strongbox/domain"
	"github.com/aussiebroadwan/strongbox/internal/strongbox/service"
	"github.com/aussiebroadwan/strongbox/pkg/httpx"
	"github.com/aussiebroadwan/strongbox/pkg/slogx"
	"github.com/aussiebroadwan/strongbox/pkg/vaultsdk"
)

// AccountHandler serves registration, the two-step sign-in and password
// reset.
type AccountHandler struct {
	Credentials *service.CredentialService
	Sessions    *service.SessionService
	Cookies     httpx.CookieOptions
}

func toSDKUser(u domain.User) vaultsdk.User {
	return vaultsdk.User{ID: u.ID, Email: u.Email, Name: u.Name}
}

// HandleRegister handles POST /v1/register
//
//	@Summary		Register an account
//	@Tags			Account
//	@Accept			json
//	@Produce		json
//	@Param			request	body		vaultsdk.RegisterRequest	true	"email, password and display name"
//	@Success		201		{object}	vaultsdk.User
//	@Failure		400		{object}	vaultsdk.APIError	"Invalid email or password"
//	@Failure		409		{object}	vaultsdk.APIError	"Email already registered"
//	@Failure		429		{object}	vaultsdk.APIError
//	@Router			/v1/register [post].
func (h *AccountHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req vaultsdk.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.Credentials.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toSDKUser(u))
}

// HandleLogin handles POST /v1/login
//
//	@Summary		Start a sign-in
//	@Description	Checks the password and emails a one-time code. The code expires after ten minutes.
//	@Tags			Account
//	@Accept			json
//	@Produce		json
//	@Param			request	body		vaultsdk.LoginRequest	true	"credentials"
//	@Success		200		{object}	vaultsdk.LoginResponse
//	@Failure		401		{object}	vaultsdk.APIError	"Invalid email or password"
//	@Failure		429		{object}	vaultsdk.APIError
//	@Router			/v1/login [post].
func (h *AccountHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req vaultsdk.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pending, err := h.Sessions.BeginLogin(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, vaultsdk.LoginResponse{
		Message:   "OTP sent",
		PendingID: pending.SessionID,
	})
}

// HandleVerifyOTP handles POST /v1/verify-otp
//
//	@Summary		Finish a sign-in
//	@Description	Exchanges the emailed code for a session. Identify the pending sign-in by pending_id or by email.
//	@Description	The access token is returned in the body and set as the HttpOnly strongbox_session cookie; the anti-forgery token is set as the strongbox_csrf cookie.
//	@Tags			Account
//	@Accept			json
//	@Produce		json
//	@Param			request	body		vaultsdk.VerifyOTPRequest	true	"code"
//	@Success		200		{object}	vaultsdk.SessionResponse
//	@Failure		401		{object}	vaultsdk.APIError	"Code invalid or expired"
//	@Failure		429		{object}	vaultsdk.APIError
//	@Router			/v1/verify-otp [post].
func (h *AccountHandler) HandleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req vaultsdk.VerifyOTPRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.OTP == "" || (req.PendingID == "" && req.Email == "") {
		vaultsdk.ErrInvalidRequest.WithDescription("otp and either pending_id or email are required").WriteError(w)
		return
	}

	var (
		sess service.AuthenticatedSession
		err  error
	)
	if req.PendingID != "" {
		sess, err = h.Sessions.CompleteLogin(r.Context(), req.PendingID, req.OTP)
	} else {
		sess, err = h.Sessions.CompleteLoginByEmail(r.Context(), req.Email, req.OTP)
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.SetCookie(w, h.Cookies, SessionCookie, sess.AccessToken, sess.ExpiresAt, true)
	httpx.SetCookie(w, h.Cookies, CSRFCookie, sess.CSRFToken, sess.ExpiresAt, false)

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, vaultsdk.SessionResponse{
		AccessToken: sess.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(time.Until(sess.ExpiresAt).Seconds()),
		ExpiresAt:   sess.ExpiresAt,
		CSRFToken:   sess.CSRFToken,
		User:        toSDKUser(sess.User),
	})
}

// HandleLogout handles POST /v1/logout
//
//	@Summary	End the current session
//	@Tags		Account
//	@Security	BearerAuth
//	@Produce	json
//	@Success	200	{object}	vaultsdk.MessageResponse
//	@Failure	401	{object}	vaultsdk.APIError
//	@Failure	403	{object}	vaultsdk.APIError	"Anti-forgery token missing or wrong"
//	@Router		/v1/logout [post].
func (h *AccountHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.EndSession(r.Context(), httpx.AccessTokenFromContext(r.Context())); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.ClearCookie(w, h.Cookies, SessionCookie, true)
	httpx.ClearCookie(w, h.Cookies, CSRFCookie, false)
	httpx.WriteJSON(w, http.StatusOK, vaultsdk.MessageResponse{Message: "signed out"})
}

// HandleVerifyAuth handles GET /v1/verify-auth
//
//	@Summary		Report whether the caller is signed in
//	@Description	Never fails with 401; a missing or dead session reports authenticated=false.
//	@Tags			Account
//	@Produce		json
//	@Success		200	{object}	vaultsdk.VerifyAuthResponse
//	@Router			/v1/verify-auth [get].
func (h *AccountHandler) HandleVerifyAuth(w http.ResponseWriter, r *http.Request) {
	httpx.NoCache(w)

	token, ok := httpx.ExtractToken(r, SessionCookie)
	if !ok {
		httpx.WriteJSON(w, http.StatusOK, vaultsdk.VerifyAuthResponse{Authenticated: false})
		return
	}

	id, err := h.Sessions.Validate(r.Context(), token)
	if err != nil {
		slogx.FromContext(r.Context()).Debug("verify-auth rejected token", "err", err)
		httpx.WriteJSON(w, http.StatusOK, vaultsdk.VerifyAuthResponse{Authenticated: false})
		return
	}

	u, err := h.Credentials.GetUser(r.Context(), id.UserID)
	if err != nil {
		slogx.FromContext(r.Context()).Warn("verify-auth could not load user", "user_id", id.UserID, "err", err)
		httpx.WriteJSON(w, http.StatusOK, vaultsdk.VerifyAuthResponse{Authenticated: false})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, vaultsdk.VerifyAuthResponse{
		Authenticated: true,
		User:          &vaultsdk.User{ID: u.ID, Email: u.Email, Name: u.Name},
	})
}

// HandleForgotPassword handles POST /v1/forgot-password
//
//	@Summary		Request a password reset
//	@Description	Always succeeds so the response does not reveal whether the email is registered.
//	@Tags			Account
//	@Accept			json
//	@Produce		json
//	@Param			request	body		vaultsdk.ForgotPasswordRequest	true	"email"
//	@Success		200		{object}	vaultsdk.MessageResponse
//	@Failure		429		{object}	vaultsdk.APIError
//	@Router			/v1/forgot-password [post].
func (h *AccountHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req vaultsdk.ForgotPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.Credentials.ForgotPassword(r.Context(), req.Email); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, vaultsdk.MessageResponse{
		Message: "if the account exists, a reset token has been sent",
	})
}

// HandleResetPassword handles POST /v1/reset-password
//
//	@Summary		Reset a password
//	@Description	Consumes a reset token, sets the new password and ends every session of the account.
//	@Tags			Account
//	@Accept			json
//	@Produce		json
//	@Param			request	body		vaultsdk.ResetPasswordRequest	true	"token and new password"
//	@Success		200		{object}	vaultsdk.MessageResponse
//	@Failure		400		{object}	vaultsdk.APIError	"Token invalid, used or expired"
//	@Failure		429		{object}	vaultsdk.APIError
//	@Router			/v1/reset-password [post].
func (h *AccountHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req vaultsdk.ResetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.Credentials.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, vaultsdk.MessageResponse{Message: "password updated"})
}
