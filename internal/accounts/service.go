// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package accounts implements registration, login, token issuance,
// password management and profile editing. Outbound email is queued and
// never awaited.
package accounts

import (
	"context"
	"errors"
	"log/slog"

	"inkpress/internal/apperr"
	"inkpress/internal/auth"
	"inkpress/internal/imaging"
	"inkpress/internal/mail"
	"inkpress/internal/models"
	"inkpress/internal/storage"
	"inkpress/internal/validation"
)

// Response and error messages.
const (
	MsgVerificationSent = "Verification email was sent for you."
	MsgPasswordMismatch = "Passwords must be match."
	MsgWrongPassword    = "Wrong password."
	MsgPasswordChanged  = "Password changed successfully"
	MsgVerified         = "Your account is verifed now."
	MsgTokenInvalid     = "Token is invalid."
	MsgTokenExpired     = "Token has been expired."
	MsgNoSuchUser       = "There is no user with provided email."
	MsgAlreadyVerified  = "The user has been already verified."
	MsgResetSent        = "Reset password email was sent for you."
	MsgTokenValid       = "Token is valid."
	MsgPasswordReset    = "Password changed."
	MsgBadCredentials   = "Unable to authenticate with provided credentials."
	MsgNotVerified      = "User is not verified."
)

// Paths embedded in emailed links.
const (
	ActivationPath    = "/user/api/v1/activation/confirm/"
	ResetValidatePath = "/user/api/v1/reset-password/validate-token/"
)

// AccountRepository persists accounts.
type AccountRepository interface {
	Create(ctx context.Context, email, password string, flags models.AccountFlags) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByID(ctx context.Context, id int64) (*models.Account, error)
	SetVerified(ctx context.Context, id int64) error
	SetPassword(ctx context.Context, id int64, password string) error
	TouchLastLogin(ctx context.Context, id int64) error
	CheckPassword(a *models.Account, password string) bool
}

// TokenRepository persists opaque login tokens.
type TokenRepository interface {
	GetOrCreate(ctx context.Context, accountID int64) (*models.AuthToken, error)
	FindByKey(ctx context.Context, key string) (*models.AuthToken, error)
	DeleteForAccount(ctx context.Context, accountID int64) error
}

// ProfileRepository persists profiles.
type ProfileRepository interface {
	FindByAccount(ctx context.Context, accountID int64) (*models.Profile, error)
	Update(ctx context.Context, p *models.Profile) error
	SetImage(ctx context.Context, id int64, image string) error
}

// SessionRevoker ends the browser sessions of an account.
type SessionRevoker interface {
	RevokeAccount(ctx context.Context, accountID int64) error
}

// Service implements the account operations.
type Service struct {
	accounts AccountRepository
	tokens   TokenRepository
	profiles ProfileRepository
	issuer   *auth.Issuer
	mail     mail.Queue
	media    storage.Store
	sessions SessionRevoker
}

// NewService creates a Service. media may be nil when uploads are disabled.
func NewService(accounts AccountRepository, tokens TokenRepository, profiles ProfileRepository,
	issuer *auth.Issuer, queue mail.Queue, media storage.Store) *Service {
	return &Service{
		accounts: accounts,
		tokens:   tokens,
		profiles: profiles,
		issuer:   issuer,
		mail:     queue,
		media:    media,
	}
}

// RevokeSessionsWith makes password changes and resets end the account's
// browser sessions through r.
func (s *Service) RevokeSessionsWith(r SessionRevoker) {
	s.sessions = r
}

// revokeSessions is best-effort: failures are logged.
func (s *Service) revokeSessions(ctx context.Context, accountID int64) {
	if s.sessions == nil {
		return
	}
	if err := s.sessions.RevokeAccount(ctx, accountID); err != nil {
		slog.Error("revoke sessions failed", "account_id", accountID, "error", err)
	}
}

// Issuer returns the JWT issuer used by the service.
func (s *Service) Issuer() *auth.Issuer {
	return s.issuer
}

// RegisterInput is the registration payload.
type RegisterInput struct {
	Email     string `json:"email" validate:"required,email,max=100"`
	Password  string `json:"password" validate:"required"`
	Password1 string `json:"password1" validate:"required"`
}

// Register creates an unverified account with its profile and queues the
// activation email. baseURL is the scheme and host used in the link.
func (s *Service) Register(ctx context.Context, in RegisterInput, baseURL string) (*models.Account, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if in.Password != in.Password1 {
		return nil, apperr.Detail(MsgPasswordMismatch)
	}
	if err := checkPassword("password", in.Password, in.Email); err != nil {
		return nil, err
	}

	a, err := s.accounts.Create(ctx, in.Email, in.Password, models.AccountFlags{})
	if err != nil {
		return nil, err
	}
	slog.Info("account registered", "account_id", a.ID)

	s.sendActivation(ctx, a, baseURL)
	return a, nil
}

// sendActivation issues an activation token and queues the email.
// Failures are logged and otherwise ignored.
func (s *Service) sendActivation(ctx context.Context, a *models.Account, baseURL string) {
	token, err := s.issuer.Issue(a.ID, a.Email, auth.TypeActivation)
	if err != nil {
		slog.Error("issue activation token failed", "account_id", a.ID, "error", err)
		return
	}
	s.enqueue(ctx, mail.ActivationTask(a.Email, baseURL+ActivationPath+token+"/"))
}

func (s *Service) enqueue(ctx context.Context, t mail.Task) {
	if s.mail == nil {
		return
	}
	if err := s.mail.Enqueue(ctx, t); err != nil {
		slog.Error("enqueue mail failed", "kind", t.Kind, "email", t.Email, "error", err)
	}
}

// CredentialsInput is the login payload shared by token and JWT login.
type CredentialsInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Authenticate resolves credentials to an account allowed to log in.
func (s *Service) Authenticate(ctx context.Context, in CredentialsInput) (*models.Account, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	a, err := s.accounts.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if a == nil || !a.IsActive || !s.accounts.CheckPassword(a, in.Password) {
		return nil, apperr.Detail(MsgBadCredentials)
	}
	if !a.IsVerified {
		return nil, apperr.Detail(MsgNotVerified)
	}
	if err := s.accounts.TouchLastLogin(ctx, a.ID); err != nil {
		slog.Warn("touch last login failed", "account_id", a.ID, "error", err)
	}
	return a, nil
}

// Login returns the account's opaque token, creating one if needed.
func (s *Service) Login(ctx context.Context, in CredentialsInput) (*models.AuthToken, *models.Account, error) {
	a, err := s.Authenticate(ctx, in)
	if err != nil {
		return nil, nil, err
	}
	tok, err := s.tokens.GetOrCreate(ctx, a.ID)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("token login", "account_id", a.ID)
	return tok, a, nil
}

// Logout deletes the account's opaque token.
func (s *Service) Logout(ctx context.Context, actor *models.Account) error {
	if actor == nil {
		return apperr.ErrUnauthenticated
	}
	return s.tokens.DeleteForAccount(ctx, actor.ID)
}

// ObtainJWT returns an access/refresh pair for valid credentials.
func (s *Service) ObtainJWT(ctx context.Context, in CredentialsInput) (auth.Pair, *models.Account, error) {
	a, err := s.Authenticate(ctx, in)
	if err != nil {
		return auth.Pair{}, nil, err
	}
	pair, err := s.issuer.IssuePair(a.ID, a.Email)
	if err != nil {
		return auth.Pair{}, nil, err
	}
	return pair, a, nil
}

// RefreshJWT exchanges a refresh token for a new access token.
func (s *Service) RefreshJWT(refresh string) (string, error) {
	return s.issuer.Refresh(refresh)
}

// VerifyJWT checks an access or refresh token.
func (s *Service) VerifyJWT(token string) error {
	return s.issuer.Verify(token)
}

// AccountForToken resolves an opaque token key to its account. It returns
// nil when the key is unknown or the account is inactive.
func (s *Service) AccountForToken(ctx context.Context, key string) (*models.Account, error) {
	tok, err := s.tokens.FindByKey(ctx, key)
	if err != nil || tok == nil {
		return nil, err
	}
	return s.activeAccount(ctx, tok.AccountID)
}

// AccountForJWT resolves an access token to its account. It returns nil
// for invalid tokens and inactive accounts.
func (s *Service) AccountForJWT(ctx context.Context, token string) (*models.Account, error) {
	claims, err := s.issuer.Parse(token, auth.TypeAccess)
	if err != nil {
		return nil, nil
	}
	return s.activeAccount(ctx, claims.UserID)
}

// AccountByID returns an active account by id, or nil.
func (s *Service) AccountByID(ctx context.Context, id int64) (*models.Account, error) {
	return s.activeAccount(ctx, id)
}

func (s *Service) activeAccount(ctx context.Context, id int64) (*models.Account, error) {
	a, err := s.accounts.FindByID(ctx, id)
	if err != nil || a == nil || !a.IsActive {
		return nil, err
	}
	return a, nil
}

// ChangePasswordInput is the change-password payload.
type ChangePasswordInput struct {
	OldPassword  string `json:"old_password" validate:"required"`
	NewPassword  string `json:"new_password" validate:"required"`
	NewPassword1 string `json:"new_password1" validate:"required"`
}

// ChangePassword replaces actor's password after checking the old one.
func (s *Service) ChangePassword(ctx context.Context, actor *models.Account, in ChangePasswordInput) error {
	if actor == nil {
		return apperr.ErrUnauthenticated
	}
	if err := validation.Struct(in); err != nil {
		return err
	}
	if !s.accounts.CheckPassword(actor, in.OldPassword) {
		return apperr.Field("old_password", MsgWrongPassword)
	}
	if in.NewPassword != in.NewPassword1 {
		return apperr.Detail(MsgPasswordMismatch)
	}
	if err := checkPassword("new_password", in.NewPassword, actor.Email); err != nil {
		return err
	}
	if err := s.accounts.SetPassword(ctx, actor.ID, in.NewPassword); err != nil {
		return err
	}
	s.revokeSessions(ctx, actor.ID)
	slog.Info("password changed", "account_id", actor.ID)
	return nil
}

// Activate verifies the account named by an activation token.
func (s *Service) Activate(ctx context.Context, token string) error {
	a, err := s.accountFromToken(ctx, token, auth.TypeActivation)
	if err != nil {
		return err
	}
	if err := s.accounts.SetVerified(ctx, a.ID); err != nil {
		return err
	}
	slog.Info("account verified", "account_id", a.ID)
	return nil
}

// EmailInput carries a single email address.
type EmailInput struct {
	Email string `json:"email" validate:"required,email"`
}

// ResendActivation queues a new activation email for an unverified account.
func (s *Service) ResendActivation(ctx context.Context, in EmailInput, baseURL string) error {
	a, err := s.accountByEmail(ctx, in)
	if err != nil {
		return err
	}
	if a.IsVerified {
		return apperr.Detail(MsgAlreadyVerified)
	}
	s.sendActivation(ctx, a, baseURL)
	return nil
}

// RequestPasswordReset queues an email carrying a reset token.
func (s *Service) RequestPasswordReset(ctx context.Context, in EmailInput, baseURL string) error {
	a, err := s.accountByEmail(ctx, in)
	if err != nil {
		return err
	}
	token, err := s.issuer.Issue(a.ID, a.Email, auth.TypeReset)
	if err != nil {
		return err
	}
	s.enqueue(ctx, mail.ResetPasswordTask(a.Email, token, baseURL+ResetValidatePath))
	slog.Info("password reset requested", "account_id", a.ID)
	return nil
}

// TokenInput carries a single token.
type TokenInput struct {
	Token string `json:"token" validate:"required"`
}

// ValidateResetToken checks a reset token without consuming it.
func (s *Service) ValidateResetToken(ctx context.Context, in TokenInput) error {
	if err := validation.Struct(in); err != nil {
		return err
	}
	_, err := s.accountFromToken(ctx, in.Token, auth.TypeReset)
	return err
}

// SetPasswordInput is the payload completing a password reset.
type SetPasswordInput struct {
	Token                string `json:"token" validate:"required"`
	NewPassword          string `json:"new_password" validate:"required"`
	ConfirmationPassword string `json:"confirmation_password" validate:"required"`
}

// SetNewPassword completes a password reset.
func (s *Service) SetNewPassword(ctx context.Context, in SetPasswordInput) error {
	if err := validation.Struct(in); err != nil {
		return err
	}
	a, err := s.accountFromToken(ctx, in.Token, auth.TypeReset)
	if err != nil {
		return err
	}
	if in.NewPassword != in.ConfirmationPassword {
		return apperr.Detail(MsgPasswordMismatch)
	}
	if err := checkPassword("new_password", in.NewPassword, a.Email); err != nil {
		return err
	}
	if err := s.accounts.SetPassword(ctx, a.ID, in.NewPassword); err != nil {
		return err
	}
	s.revokeSessions(ctx, a.ID)
	slog.Info("password reset", "account_id", a.ID)
	return nil
}

func (s *Service) accountByEmail(ctx context.Context, in EmailInput) (*models.Account, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	a, err := s.accounts.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, apperr.Detail(MsgNoSuchUser)
	}
	return a, nil
}

// accountFromToken parses a purpose-bound token and loads its account.
func (s *Service) accountFromToken(ctx context.Context, token string, typ auth.TokenType) (*models.Account, error) {
	claims, err := s.issuer.Parse(token, typ)
	if errors.Is(err, auth.ErrTokenExpired) {
		return nil, apperr.Detail(MsgTokenExpired)
	}
	if err != nil {
		return nil, apperr.Detail(MsgTokenInvalid)
	}
	a, err := s.accounts.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, apperr.Detail(MsgTokenInvalid)
	}
	return a, nil
}

// checkPassword reports policy violations on field.
func checkPassword(field, password, email string) error {
	v := &apperr.ValidationError{}
	for _, msg := range CheckPassword(password, email) {
		v.Add(field, msg)
	}
	return v.OrNil()
}

// Profile returns actor's profile.
func (s *Service) Profile(ctx context.Context, actor *models.Account) (*models.Profile, error) {
	if actor == nil {
		return nil, apperr.ErrUnauthenticated
	}
	p, err := s.profiles.FindByAccount(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.ErrNotFound
	}
	return p, nil
}

// UpdateProfile applies the present fields of in to actor's profile.
func (s *Service) UpdateProfile(ctx context.Context, actor *models.Account, in ProfileInput) (*models.Profile, error) {
	p, err := s.Profile(ctx, actor)
	if err != nil {
		return nil, err
	}
	if in.FirstName != nil {
		p.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		p.LastName = *in.LastName
	}
	if in.Bio != nil {
		p.Bio = *in.Bio
	}
	if in.SexSet {
		p.Sex = in.Sex
	}
	if err := s.profiles.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// UploadProfileImage stores a new profile picture for actor.
func (s *Service) UploadProfileImage(ctx context.Context, actor *models.Account, data []byte) (*models.Profile, error) {
	p, err := s.Profile(ctx, actor)
	if err != nil {
		return nil, err
	}
	url, err := imaging.Save(ctx, s.media, "profiles", data)
	if err != nil {
		return nil, err
	}
	if err := s.profiles.SetImage(ctx, p.ID, url); err != nil {
		return nil, err
	}
	if p.Image != nil && s.media != nil {
		if err := s.media.Remove(ctx, *p.Image); err != nil {
			slog.Warn("failed to remove old profile image", "url", *p.Image, "error", err)
		}
	}
	p.Image = &url
	return p, nil
}
