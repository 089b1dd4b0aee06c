package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/clients"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/events"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/repository"
)

type fixture struct {
	svc       *Service
	notifier  *clients.MockNotificationClient
	publisher *events.MockEventPublisher
	profiles  *repository.ProfileRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newStoreFixture(t, repository.NewMemoryStore())
}

func newStoreFixture(t *testing.T, store repository.DocumentStore) *fixture {
	t.Helper()
	f := &fixture{
		notifier:  clients.NewMockNotificationClient(),
		publisher: events.NewMockEventPublisher(),
		profiles:  repository.NewProfileRepository(store),
	}
	f.svc = NewService(
		repository.NewAuthRepository(store),
		f.profiles,
		f.notifier,
		f.publisher,
		metrics.New(),
		config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour, ResetTokenTTL: 10 * time.Minute},
	)
	return f
}

func signUp(t *testing.T, f *fixture, email string) *Result {
	t.Helper()
	res, err := f.svc.SignUp(context.Background(), &SignUpRequest{
		Name:            "Asha",
		Email:           email,
		Password:        "secret1",
		ConfirmPassword: "secret1",
	})
	require.NoError(t, err)
	return res
}

func TestSignUp_CreatesProfileAndSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := signUp(t, f, "asha@example.com")

	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "Asha", res.Profile.Name)

	profile, err := f.profiles.Get(ctx, res.Profile.UID)
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", profile.Email)
	assert.True(t, profile.CreatedAt.Valid())

	session, err := f.svc.Verify(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.Profile.UID, session.UserID)

	assert.Equal(t, []events.EventType{events.EventTypeSessionChanged}, f.publisher.Types())
}

func TestSignUp_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name    string
		req     SignUpRequest
		field   string
		message string
	}{
		{"missing name", SignUpRequest{Email: "a@b.co", Password: "secret1", ConfirmPassword: "secret1"}, "name", "Name is required"},
		{"bad email", SignUpRequest{Name: "A", Email: "nope", Password: "secret1", ConfirmPassword: "secret1"}, "email", "Invalid email"},
		{"short password", SignUpRequest{Name: "A", Email: "a@b.co", Password: "abc", ConfirmPassword: "abc"}, "password", "Password must be at least 6 characters"},
		{"mismatch", SignUpRequest{Name: "A", Email: "a@b.co", Password: "secret1", ConfirmPassword: "secret2"}, "confirmPassword", "Passwords must match"},
		{"missing confirm", SignUpRequest{Name: "A", Email: "a@b.co", Password: "secret1"}, "confirmPassword", "Confirm Password is required"},
		{"long password", SignUpRequest{Name: "A", Email: "a@b.co", Password: strings.Repeat("p", 80), ConfirmPassword: strings.Repeat("p", 80)}, "password", "Password is too long"},
		{"long multibyte password", SignUpRequest{Name: "A", Email: "a@b.co", Password: strings.Repeat("₹", 30), ConfirmPassword: strings.Repeat("₹", 30)}, "password", "Password is too long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			_, err := f.svc.SignUp(context.Background(), &req)

			var verr *errors.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.message, verr.Details[tt.field])
		})
	}
}

func TestSignUp_AcceptsPasswordAtByteLimit(t *testing.T) {
	f := newFixture(t)
	pw := strings.Repeat("p", 72)

	_, err := f.svc.SignUp(context.Background(), &SignUpRequest{Name: "A", Email: "a@b.co", Password: pw, ConfirmPassword: pw})
	require.NoError(t, err)

	_, err = f.svc.SignIn(context.Background(), &SignInRequest{Email: "a@b.co", Password: pw})
	assert.NoError(t, err)
}

// flakyStore fails every batch while down is set.
type flakyStore struct {
	repository.DocumentStore
	down bool
}

func (s *flakyStore) Batch(ctx context.Context, writes ...repository.Write) error {
	if s.down {
		return errors.New("store down")
	}
	return s.DocumentStore.Batch(ctx, writes...)
}

func TestSignUp_FailedWriteLeavesNoAccount(t *testing.T) {
	store := &flakyStore{DocumentStore: repository.NewMemoryStore(), down: true}
	f := newStoreFixture(t, store)
	ctx := context.Background()

	_, err := f.svc.SignUp(ctx, &SignUpRequest{Name: "Asha", Email: "asha@example.com", Password: "secret1", ConfirmPassword: "secret1"})
	require.Error(t, err)

	_, err = f.svc.SignIn(ctx, &SignInRequest{Email: "asha@example.com", Password: "secret1"})
	assert.Equal(t, ErrInvalidCredentials, err)

	store.down = false
	res := signUp(t, f, "asha@example.com")

	signedIn, err := f.svc.SignIn(ctx, &SignInRequest{Email: "asha@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, res.Profile.UID, signedIn.Profile.UID)
}

func TestResetPassword_RejectsLongPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	signUp(t, f, "asha@example.com")
	require.NoError(t, f.svc.RequestPasswordReset(ctx, "asha@example.com"))
	token := f.notifier.Resets["asha@example.com"]

	err := f.svc.ResetPassword(ctx, &ResetPasswordRequest{Token: token, Password: strings.Repeat("p", 73)})

	var verr *errors.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Password is too long", verr.Details["password"])
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	signUp(t, f, "asha@example.com")

	_, err := f.svc.SignUp(context.Background(), &SignUpRequest{
		Name:            "Other",
		Email:           "ASHA@example.com",
		Password:        "secret1",
		ConfirmPassword: "secret1",
	})

	assert.ErrorIs(t, err, errors.ErrConflict)
	assert.Equal(t, ErrEmailTaken, err)
}

func TestSignIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := signUp(t, f, "asha@example.com")

	res, err := f.svc.SignIn(ctx, &SignInRequest{Email: " asha@example.com ", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, created.Profile.UID, res.Profile.UID)
	assert.NotEqual(t, created.Token, res.Token)

	_, err = f.svc.SignIn(ctx, &SignInRequest{Email: "asha@example.com", Password: "wrong-pass"})
	assert.Equal(t, ErrInvalidCredentials, err)

	_, err = f.svc.SignIn(ctx, &SignInRequest{Email: "nobody@example.com", Password: "secret1"})
	assert.Equal(t, ErrInvalidCredentials, err)
}

func TestSignOut_RevokesToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := signUp(t, f, "asha@example.com")

	session, err := f.svc.Verify(ctx, res.Token)
	require.NoError(t, err)

	require.NoError(t, f.svc.SignOut(ctx, session))

	_, err = f.svc.Verify(ctx, res.Token)
	assert.ErrorIs(t, err, errors.ErrUnauthorized)

	// A second sign-out of the same session is harmless.
	assert.NoError(t, f.svc.SignOut(ctx, session))
}

func TestVerify_RejectsBadTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := signUp(t, f, "asha@example.com")

	_, err := f.svc.Verify(ctx, "garbage")
	assert.ErrorIs(t, err, errors.ErrUnauthorized)

	other := newFixture(t)
	other.svc.cfg.JWTSecret = "another-secret"
	_, err = other.svc.Verify(ctx, res.Token)
	assert.ErrorIs(t, err, errors.ErrUnauthorized)

	f.svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = f.svc.Verify(ctx, res.Token)
	assert.ErrorIs(t, err, errors.ErrUnauthorized)
}

func TestPasswordReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	signUp(t, f, "asha@example.com")

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "asha@example.com"))
	token := f.notifier.Resets["asha@example.com"]
	require.NotEmpty(t, token)

	require.NoError(t, f.svc.ResetPassword(ctx, &ResetPasswordRequest{Token: token, Password: "newpass1"}))

	_, err := f.svc.SignIn(ctx, &SignInRequest{Email: "asha@example.com", Password: "secret1"})
	assert.Equal(t, ErrInvalidCredentials, err)
	_, err = f.svc.SignIn(ctx, &SignInRequest{Email: "asha@example.com", Password: "newpass1"})
	assert.NoError(t, err)

	// Tokens are single use.
	err = f.svc.ResetPassword(ctx, &ResetPasswordRequest{Token: token, Password: "another1"})
	assert.Equal(t, ErrResetExpired, err)
}

func TestPasswordReset_Expired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	signUp(t, f, "asha@example.com")
	require.NoError(t, f.svc.RequestPasswordReset(ctx, "asha@example.com"))
	token := f.notifier.Resets["asha@example.com"]

	f.svc.now = func() time.Time { return time.Now().Add(time.Hour) }

	err := f.svc.ResetPassword(ctx, &ResetPasswordRequest{Token: token, Password: "newpass1"})
	assert.Equal(t, ErrResetExpired, err)
}

func TestRequestPasswordReset_UnknownEmail(t *testing.T) {
	f := newFixture(t)

	assert.NoError(t, f.svc.RequestPasswordReset(context.Background(), "nobody@example.com"))
	assert.Empty(t, f.notifier.Resets)

	err := f.svc.RequestPasswordReset(context.Background(), "not-an-email")
	assert.True(t, errors.IsValidation(err))
}

func TestSubscribe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var got []models.SessionEvent
	unsubscribe := f.svc.Subscribe(func(ev models.SessionEvent) {
		got = append(got, ev)
	})

	res := signUp(t, f, "asha@example.com")
	session, err := f.svc.Verify(ctx, res.Token)
	require.NoError(t, err)
	require.NoError(t, f.svc.SignOut(ctx, session))

	require.Len(t, got, 2)
	assert.True(t, got[0].SignedIn)
	assert.False(t, got[1].SignedIn)
	assert.Equal(t, res.Profile.UID, got[1].UserID)

	unsubscribe()
	unsubscribe()
	f.svc.Deliver(ctx, models.SessionEvent{UserID: "remote", SignedIn: true})
	assert.Len(t, got, 2)
}

func TestDeliver_NotifiesWithoutRepublishing(t *testing.T) {
	f := newFixture(t)

	var got []string
	f.svc.Subscribe(func(ev models.SessionEvent) { got = append(got, ev.UserID) })

	f.svc.Deliver(context.Background(), models.SessionEvent{UserID: "remote", SignedIn: true})

	assert.Equal(t, []string{"remote"}, got)
	assert.Empty(t, f.publisher.Types())
}

func TestSignUp_PublishFailureDoesNotFail(t *testing.T) {
	f := newFixture(t)
	f.publisher.Err = errors.New("broker down")

	res := signUp(t, f, "asha@example.com")
	assert.NotEmpty(t, res.Token)
}
