package services

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bulk-order-service/apperrors"
	"bulk-order-service/models"
	"bulk-order-service/repository"
	"bulk-order-service/utils"
)

type recordingNotifier struct {
	mu    sync.Mutex
	links []string
	err   error
}

func (n *recordingNotifier) SendResetLink(_ context.Context, _ *models.User, link string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.links = append(n.links, link)
	return n.err
}

func (n *recordingNotifier) last(t *testing.T) models.ResetPasswordRequest {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.links)
	u, err := url.Parse(n.links[len(n.links)-1])
	require.NoError(t, err)
	return models.ResetPasswordRequest{Token: u.Query().Get("token"), ID: u.Query().Get("id")}
}

func newResetFixture(t *testing.T) (*UserService, *recordingNotifier, *models.User) {
	t.Helper()
	notifier := &recordingNotifier{}
	svc := NewUserService(repository.NewMemoryStore(), utils.NewTokenManager("reset-secret", time.Hour), zerolog.Nop()).
		WithPasswordReset("https://shop.example.com/reset-password", 15*time.Minute, notifier)
	u, err := svc.Signup(context.Background(), models.SignupRequest{Name: "Asha", Email: "asha@example.com", Password: "old-password"})
	require.NoError(t, err)
	return svc, notifier, u
}

func TestForgotPasswordIssuesLink(t *testing.T) {
	svc, notifier, u := newResetFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.ForgotPassword(ctx, " ASHA@example.com "))
	require.Len(t, notifier.links, 1)

	link, err := url.Parse(notifier.links[0])
	require.NoError(t, err)
	assert.Equal(t, "shop.example.com", link.Host)
	assert.Equal(t, "/reset-password", link.Path)
	assert.Equal(t, strconv.FormatInt(u.ID, 10), link.Query().Get("id"))
	assert.NotEmpty(t, link.Query().Get("token"))

	require.NoError(t, svc.ForgotPassword(ctx, "nobody@example.com"))
	assert.Len(t, notifier.links, 1)

	err = svc.ForgotPassword(ctx, "  ")
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	notifier.err = errors.New("smtp down")
	err = svc.ForgotPassword(ctx, "asha@example.com")
	assert.Equal(t, apperrors.KindInternal, apperrors.KindOf(err))
}

func TestResetPassword(t *testing.T) {
	svc, notifier, _ := newResetFixture(t)
	ctx := context.Background()
	require.NoError(t, svc.ForgotPassword(ctx, "asha@example.com"))
	link := notifier.last(t)

	tests := []struct {
		name    string
		req     models.ResetPasswordRequest
		wantErr string
	}{
		{"missing token", models.ResetPasswordRequest{ID: link.ID, Password: "new-password"}, "Invalid password reset link"},
		{"bad id", models.ResetPasswordRequest{Token: link.Token, ID: "abc", Password: "new-password"}, "Invalid password reset link"},
		{"short password", models.ResetPasswordRequest{Token: link.Token, ID: link.ID, Password: "short"}, "Password must be at least 8 characters"},
		{"unknown user", models.ResetPasswordRequest{Token: link.Token, ID: "99", Password: "new-password"}, invalidResetLink},
		{"tampered token", models.ResetPasswordRequest{Token: link.Token + "x", ID: link.ID, Password: "new-password"}, invalidResetLink},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.ResetPassword(ctx, tt.req)
			assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
			assert.Equal(t, tt.wantErr, apperrors.Message(err))
		})
	}

	_, err := svc.Login(ctx, models.LoginRequest{Email: "asha@example.com", Password: "old-password"})
	require.NoError(t, err, "failed resets must leave the password alone")

	link.Password = "new-password"
	require.NoError(t, svc.ResetPassword(ctx, link))

	_, err = svc.Login(ctx, models.LoginRequest{Email: "asha@example.com", Password: "old-password"})
	assert.Equal(t, apperrors.KindUnauthorized, apperrors.KindOf(err))
	_, err = svc.Login(ctx, models.LoginRequest{Email: "asha@example.com", Password: "new-password"})
	require.NoError(t, err)

	link.Password = "another-password"
	err = svc.ResetPassword(ctx, link)
	assert.Equal(t, invalidResetLink, apperrors.Message(err), "a link works once")
}

func TestResetPasswordExpiredLink(t *testing.T) {
	svc, notifier, _ := newResetFixture(t)
	ctx := context.Background()
	require.NoError(t, svc.ForgotPassword(ctx, "asha@example.com"))
	link := notifier.last(t)

	svc.resetTTL = -time.Minute
	require.NoError(t, svc.ForgotPassword(ctx, "asha@example.com"))
	expired := notifier.last(t)

	expired.Password = "new-password"
	err := svc.ResetPassword(ctx, expired)
	assert.Equal(t, invalidResetLink, apperrors.Message(err))

	link.Password = "new-password"
	assert.NoError(t, svc.ResetPassword(ctx, link))
}
