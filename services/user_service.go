package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"bulk-order-service/apperrors"
	"bulk-order-service/models"
	"bulk-order-service/repository"
	"bulk-order-service/utils"
)

const invalidCredentials = "Invalid email or password"

type UserService struct {
	users  repository.UserRepository
	tokens *utils.TokenManager
	log    zerolog.Logger
	now    func() time.Time

	resetURL string
	resetTTL time.Duration
	notifier ResetNotifier
}

func NewUserService(users repository.UserRepository, tokens *utils.TokenManager, log zerolog.Logger) *UserService {
	log = log.With().Str("component", "user_service").Logger()
	return &UserService{
		users:    users,
		tokens:   tokens,
		log:      log,
		now:      time.Now,
		resetURL: DefaultResetURL,
		resetTTL: DefaultResetTTL,
		notifier: LogResetNotifier{Log: log},
	}
}

// Signup registers a buyer account.
func (s *UserService) Signup(ctx context.Context, req models.SignupRequest) (*models.User, error) {
	return s.create(ctx, req, models.RoleBuyer)
}

func (s *UserService) create(ctx context.Context, req models.SignupRequest, role models.Role) (*models.User, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" || email == "" {
		return nil, apperrors.Validation("Name and email are required")
	}
	if len(req.Password) < utils.MinPasswordLength {
		return nil, apperrors.Validation(fmt.Sprintf("Password must be at least %d characters", utils.MinPasswordLength))
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &models.User{
		Name:         name,
		Email:        email,
		Contact:      strings.TrimSpace(req.Contact),
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	s.log.Info().Int64("user_id", u.ID).Str("role", string(role)).Msg("user registered")
	return u, nil
}

func (s *UserService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	u, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if apperrors.Is(err, apperrors.KindNotFound) {
		return nil, apperrors.Unauthorized(invalidCredentials)
	}
	if err != nil {
		return nil, err
	}
	if !utils.CheckPassword(u.PasswordHash, req.Password) {
		return nil, apperrors.Unauthorized(invalidCredentials)
	}

	identity := u.Identity()
	token, err := s.tokens.GenerateToken(identity)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &models.LoginResponse{Token: token, User: identity}, nil
}

// EnsureAdmin creates the administrator account on first start. An existing
// account with that email is left untouched.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	existing, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err == nil {
		if existing.Role != models.RoleAdmin {
			s.log.Warn().Str("email", existing.Email).Msg("admin email belongs to a non-admin account")
		}
		return nil
	}
	if !apperrors.Is(err, apperrors.KindNotFound) {
		return err
	}
	_, err = s.create(ctx, models.SignupRequest{Name: "Administrator", Email: email, Password: password}, models.RoleAdmin)
	return err
}
