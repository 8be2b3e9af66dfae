package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/charvilabs/charvi/app/models"
	"github.com/charvilabs/charvi/app/repositories"
	"github.com/charvilabs/charvi/pkg/apperr"
	"github.com/charvilabs/charvi/pkg/auth"
	"github.com/charvilabs/charvi/pkg/crypt"
	"github.com/charvilabs/charvi/pkg/logger"
)

const resetTokenTTL = time.Hour

var (
	ErrEmailTaken         = apperr.StateConflict("email is already registered")
	ErrInvalidCredentials = apperr.Unauthorized("invalid email or password")
	ErrResetTokenInvalid  = apperr.NotFound("reset token is invalid")
	ErrResetTokenExpired  = apperr.StateConflict("reset token has expired")
	ErrResetTokenUsed     = apperr.StateConflict("reset token was already used")
)

// UserStore is the persistence surface for accounts.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error
}

// ResetStore persists single-use password reset tokens.
type ResetStore interface {
	Create(ctx context.Context, pr *models.PasswordReset) error
	FindByTokenHash(ctx context.Context, tokenHash string) (*models.PasswordReset, error)
	MarkUsed(ctx context.Context, id primitive.ObjectID) error
}

// TokenPair is what a successful login hands out.
type TokenPair struct {
	Access  string `json:"accessToken"`
	Refresh string `json:"refreshToken"`
}

// AuthService implements registration, login and the password reset flow.
type AuthService struct {
	users    UserStore
	resets   ResetStore
	notifier Notifier
	now      func() time.Time
}

func NewAuthService(users UserStore, resets ResetStore, notifier Notifier) *AuthService {
	return &AuthService{users: users, resets: resets, notifier: notifier, now: time.Now}
}

// Register creates an account with a bcrypt-hashed password.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, apperr.Upstream("could not check email", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, apperr.Upstream("could not hash password", err)
	}

	user := &models.User{Name: name, Email: email, Password: hash, Role: "user"}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperr.Upstream("could not create user", err)
	}

	if err := s.notifier.Notify(ctx, user.Email, "Welcome to Charvi",
		fmt.Sprintf("<p>Hi %s, your account is ready. Happy shopping!</p>", user.Name)); err != nil {
		logger.Warn("auth: welcome mail failed", "to", user.Email, "error", err)
	}
	return user, nil
}

// Login verifies credentials and issues an access/refresh token pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, TokenPair{}, ErrInvalidCredentials
		}
		return nil, TokenPair{}, apperr.Upstream("could not load user", err)
	}
	if !auth.CheckPassword(user.Password, password) {
		return nil, TokenPair{}, ErrInvalidCredentials
	}

	pair, err := s.issueTokens(user)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return user, pair, nil
}

// Refresh exchanges a valid refresh token for a fresh pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := auth.ValidateToken(refreshToken)
	if err != nil {
		return TokenPair{}, apperr.Unauthorized("invalid refresh token")
	}

	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return TokenPair{}, apperr.Unauthorized("invalid refresh token")
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return TokenPair{}, apperr.Unauthorized("invalid refresh token")
	}

	return s.issueTokens(user)
}

// Profile returns the account behind an authenticated request.
func (s *AuthService) Profile(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Upstream("could not load user", err)
	}
	return user, nil
}

// RequestPasswordReset issues a single-use, expiring token and mails it.
// An unknown email is not reported to the caller.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			logger.Info("auth: reset requested for unknown email", "email", email)
			return nil
		}
		return apperr.Upstream("could not load user", err)
	}

	token, err := randomToken()
	if err != nil {
		return apperr.Upstream("could not issue reset token", err)
	}

	pr := &models.PasswordReset{
		UserID:    user.ID,
		TokenHash: crypt.Hash(token),
		ExpiresAt: s.now().Add(resetTokenTTL).UTC(),
	}
	if err := s.resets.Create(ctx, pr); err != nil {
		return apperr.Upstream("could not store reset token", err)
	}

	if err := s.notifier.Notify(ctx, user.Email, "Reset your Charvi password",
		fmt.Sprintf("<p>Use this code to reset your password: <b>%s</b>. It expires in one hour.</p>", token)); err != nil {
		logger.Warn("auth: reset mail failed", "to", user.Email, "error", err)
	}
	return nil
}

// ResetPassword redeems a reset token exactly once.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	pr, err := s.resets.FindByTokenHash(ctx, crypt.Hash(token))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrResetTokenInvalid
		}
		return apperr.Upstream("could not load reset token", err)
	}

	if pr.Used {
		return ErrResetTokenUsed
	}
	if s.now().After(pr.ExpiresAt) {
		return ErrResetTokenExpired
	}

	// Claim the token before touching the password; a concurrent redeem of
	// the same token loses here.
	if err := s.resets.MarkUsed(ctx, pr.ID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrResetTokenUsed
		}
		return apperr.Upstream("could not consume reset token", err)
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return apperr.Upstream("could not hash password", err)
	}
	if err := s.users.UpdatePassword(ctx, pr.UserID, hash); err != nil {
		return apperr.Upstream("could not update password", err)
	}
	return nil
}

func (s *AuthService) issueTokens(user *models.User) (TokenPair, error) {
	access, err := auth.GenerateToken(user.ID.Hex(), user.Role)
	if err != nil {
		return TokenPair{}, apperr.Upstream("could not sign token", err)
	}
	refresh, err := auth.GenerateRefreshToken(user.ID.Hex(), user.Role)
	if err != nil {
		return TokenPair{}, apperr.Upstream("could not sign token", err)
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

func randomToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
