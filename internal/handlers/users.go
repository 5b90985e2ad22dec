// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"inkpress/internal/accounts"
	"inkpress/internal/apperr"
	"inkpress/internal/auth"
	"inkpress/internal/middleware"
	"inkpress/internal/validation"
)

// Users groups the account API handlers mounted under /user/api/v1.
type Users struct {
	accounts *accounts.Service
	baseURL  string
}

// NewUsers creates the account handler group. baseURL, when set, is used
// in emailed links instead of the request host.
func NewUsers(svc *accounts.Service, baseURL string) *Users {
	return &Users{accounts: svc, baseURL: baseURL}
}

// Register creates an account and queues its activation email.
func (u *Users) Register(w http.ResponseWriter, r *http.Request) {
	var in accounts.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := u.accounts.Register(r.Context(), in, requestBase(r, u.baseURL)); err != nil {
		writeError(w, r, err)
		return
	}
	writeDetail(w, http.StatusCreated, accounts.MsgVerificationSent)
}

// TokenLogin returns the opaque login token for valid credentials.
func (u *Users) TokenLogin(w http.ResponseWriter, r *http.Request) {
	var in accounts.CredentialsInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	tok, acct, err := u.accounts.Login(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":   tok.Key,
		"email":   acct.Email,
		"user_id": acct.ID,
	})
}

// TokenLogout deletes the caller's opaque token.
func (u *Users) TokenLogout(w http.ResponseWriter, r *http.Request) {
	if err := u.accounts.Logout(r.Context(), middleware.AccountFromCtx(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// JWTCreate returns an access/refresh pair for valid credentials.
func (u *Users) JWTCreate(w http.ResponseWriter, r *http.Request) {
	var in accounts.CredentialsInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	pair, acct, err := u.accounts.ObtainJWT(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access":  pair.Access,
		"refresh": pair.Refresh,
		"email":   acct.Email,
		"id":      acct.ID,
	})
}

type refreshInput struct {
	Refresh string `json:"refresh" validate:"required"`
}

// JWTRefresh exchanges a refresh token for a new access token.
func (u *Users) JWTRefresh(w http.ResponseWriter, r *http.Request) {
	var in refreshInput
	if err := decodeValid(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	access, err := u.accounts.RefreshJWT(in.Refresh)
	if err != nil {
		writeTokenError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access": access})
}

type verifyInput struct {
	Token string `json:"token" validate:"required"`
}

// JWTVerify reports whether a token is valid.
func (u *Users) JWTVerify(w http.ResponseWriter, r *http.Request) {
	var in verifyInput
	if err := decodeValid(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if err := u.accounts.VerifyJWT(in.Token); err != nil {
		writeTokenError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{})
}

// writeTokenError reports a rejected JWT with 401.
func writeTokenError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, auth.ErrTokenInvalid) || errors.Is(err, auth.ErrTokenExpired) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			apperr.DetailKey: MsgTokenNotValid,
			"code":           "token_not_valid",
		})
		return
	}
	writeError(w, r, err)
}

// ChangePassword replaces the caller's password.
func (u *Users) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var in accounts.ChangePasswordInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if err := u.accounts.ChangePassword(r.Context(), middleware.AccountFromCtx(r.Context()), in); err != nil {
		writeError(w, r, err)
		return
	}
	writeDetail(w, http.StatusOK, accounts.MsgPasswordChanged)
}

// Profile returns the caller's profile.
func (u *Users) Profile(w http.ResponseWriter, r *http.Request) {
	p, err := u.accounts.Profile(r.Context(), middleware.AccountFromCtx(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UpdateProfile applies the fields present in the body. PUT and PATCH
// behave the same since every profile field is optional.
func (u *Users) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	in, err := accounts.DecodeProfile(body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := u.accounts.UpdateProfile(r.Context(), middleware.AccountFromCtx(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UploadProfileImage replaces the caller's profile picture.
func (u *Users) UploadProfileImage(w http.ResponseWriter, r *http.Request) {
	data, err := readImage(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := u.accounts.UploadProfileImage(r.Context(), middleware.AccountFromCtx(r.Context()), data)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ActivationConfirm verifies the account named by the token in the path.
func (u *Users) ActivationConfirm(w http.ResponseWriter, r *http.Request) {
	if err := u.accounts.Activate(r.Context(), chi.URLParam(r, "token")); err != nil {
		writeError(w, r, err)
		return
	}
	writeDetail(w, http.StatusOK, accounts.MsgVerified)
}

// ActivationResend queues a new activation email.
func (u *Users) ActivationResend(w http.ResponseWriter, r *http.Request) {
	var in accounts.EmailInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if err := u.accounts.ResendActivation(r.Context(), in, requestBase(r, u.baseURL)); err != nil {
		writeError(w, r, err)
		return
	}
	writeDetail(w, http.StatusOK, accounts.MsgVerificationSent)
}

// ResetPassword queues a password reset email.
func (u *Users) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var in accounts.EmailInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if err := u.accounts.RequestPasswordReset(r.Context(), in, requestBase(r, u.baseURL)); err != nil {
		writeError(w, r, err)
		return
	}
	writeDetail(w, http.StatusOK, accounts.MsgResetSent)
}

// ValidateResetToken checks a reset token without consuming it.
func (u *Users) ValidateResetToken(w http.ResponseWriter, r *http.Request) {
	var in accounts.TokenInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if err := u.accounts.ValidateResetToken(r.Context(), in); err != nil {
		writeError(w, r, err)
		return
	}
	writeDetail(w, http.StatusOK, accounts.MsgTokenValid)
}

// SetPassword completes a password reset.
func (u *Users) SetPassword(w http.ResponseWriter, r *http.Request) {
	var in accounts.SetPasswordInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if err := u.accounts.SetNewPassword(r.Context(), in); err != nil {
		writeError(w, r, err)
		return
	}
	writeDetail(w, http.StatusOK, accounts.MsgPasswordReset)
}

// decodeValid decodes a body for a handler-local DTO and validates it.
func decodeValid(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := decodeJSON(w, r, dst); err != nil {
		return err
	}
	return validation.Struct(dst)
}
