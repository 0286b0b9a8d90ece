package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"bulk-order-service/apperrors"
	"bulk-order-service/models"
	"bulk-order-service/utils"
)

const (
	DefaultResetURL = "http://localhost:5173/reset-password"
	DefaultResetTTL = 30 * time.Minute

	invalidResetLink = "Invalid or expired password reset link"
)

// ResetNotifier delivers a password reset link to the account holder.
type ResetNotifier interface {
	SendResetLink(ctx context.Context, u *models.User, link string) error
}

// LogResetNotifier writes the link to the service log. Used when no mail
// transport is configured.
type LogResetNotifier struct {
	Log zerolog.Logger
}

func (n LogResetNotifier) SendResetLink(_ context.Context, u *models.User, link string) error {
	n.Log.Info().Int64("user_id", u.ID).Str("email", u.Email).Str("link", link).Msg("password reset link issued")
	return nil
}

// WithPasswordReset sets where reset links point, how long they stay valid
// and how they are delivered. Zero values keep the defaults.
func (s *UserService) WithPasswordReset(baseURL string, ttl time.Duration, notifier ResetNotifier) *UserService {
	if baseURL != "" {
		s.resetURL = baseURL
	}
	if ttl > 0 {
		s.resetTTL = ttl
	}
	if notifier != nil {
		s.notifier = notifier
	}
	return s
}

func (s *UserService) resetLink(token string, userID int64) (string, error) {
	u, err := url.Parse(s.resetURL)
	if err != nil {
		return "", fmt.Errorf("parse reset url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	q.Set("id", strconv.FormatInt(userID, 10))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ForgotPassword issues a reset link when the email belongs to an account.
// Unknown emails succeed silently so the endpoint does not reveal which
// addresses are registered.
func (s *UserService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return apperrors.Validation("Email is required")
	}
	u, err := s.users.GetUserByEmail(ctx, email)
	if apperrors.Is(err, apperrors.KindNotFound) {
		s.log.Debug().Str("email", email).Msg("password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return err
	}

	token, err := s.tokens.GenerateResetToken(u.ID, u.PasswordHash, s.resetTTL)
	if err != nil {
		return fmt.Errorf("sign reset token: %w", err)
	}
	link, err := s.resetLink(token, u.ID)
	if err != nil {
		return err
	}
	if err := s.notifier.SendResetLink(ctx, u, link); err != nil {
		return fmt.Errorf("send reset link: %w", err)
	}
	return nil
}

// ResetPassword consumes a reset link. A link works once: the new password
// hash no longer matches the key the token was signed with.
func (s *UserService) ResetPassword(ctx context.Context, req models.ResetPasswordRequest) error {
	id, err := strconv.ParseInt(strings.TrimSpace(req.ID), 10, 64)
	if err != nil || id <= 0 || req.Token == "" {
		return apperrors.Validation("Invalid password reset link")
	}
	if len(req.Password) < utils.MinPasswordLength {
		return apperrors.Validation(fmt.Sprintf("Password must be at least %d characters", utils.MinPasswordLength))
	}

	u, err := s.users.GetUserByID(ctx, id)
	if apperrors.Is(err, apperrors.KindNotFound) {
		return apperrors.Validation(invalidResetLink)
	}
	if err != nil {
		return err
	}
	if err := s.tokens.ParseResetToken(req.Token, u.ID, u.PasswordHash); err != nil {
		return apperrors.Validation(invalidResetLink)
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return err
	}
	s.log.Info().Int64("user_id", u.ID).Msg("password reset")
	return nil
}
