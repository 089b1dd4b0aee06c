// Package auth signs shoppers up and in, issues session tokens and tells
// interested components when the signed-in user changes.
package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/clients"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/events"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/repository"
)

const issuer = "acme-storefront"

var (
	ErrEmailTaken = errors.Wrap(errors.ErrConflict, "This email is already registered. Please use a different email or try logging in.")
	// ErrInvalidCredentials hides whether the email or the password was wrong.
	ErrInvalidCredentials = errors.Wrap(errors.ErrUnauthorized, "Invalid email or password. Please try again.")
	ErrInvalidSession     = errors.Wrap(errors.ErrUnauthorized, "Your session has expired. Please sign in again.")
	ErrResetExpired       = errors.NewValidationError("token", "This reset link has expired. Please request a new one.")
)

// SignUpRequest is the registration form.
type SignUpRequest struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6,maxbytes=72"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

// SignInRequest is the login form.
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ResetPasswordRequest completes a password reset.
type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=6,maxbytes=72"`
}

// Result is returned by a successful sign-up or sign-in.
type Result struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
	Profile   *models.Profile `json:"profile"`
}

// Listener is notified after every session change.
type Listener func(ev models.SessionEvent)

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Service implements the storefront's email and password auth.
type Service struct {
	repo      *repository.AuthRepository
	profiles  *repository.ProfileRepository
	notifier  clients.NotificationSender
	publisher events.Publisher
	metrics   *metrics.Metrics
	cfg       config.AuthConfig
	validate  *validator.Validate
	logger    *logging.LoggerV2
	now       func() time.Time

	mu        sync.RWMutex
	listeners map[int]Listener
	nextID    int
}

// NewService creates the auth service.
func NewService(
	repo *repository.AuthRepository,
	profiles *repository.ProfileRepository,
	notifier clients.NotificationSender,
	publisher events.Publisher,
	m *metrics.Metrics,
	cfg config.AuthConfig,
) *Service {
	return &Service{
		repo:      repo,
		profiles:  profiles,
		notifier:  notifier,
		publisher: publisher,
		metrics:   m,
		cfg:       cfg,
		validate:  newValidator(),
		logger:    logging.NewLoggerV2("auth"),
		now:       time.Now,
		listeners: make(map[int]Listener),
	}
}

// SignUp registers a new account, creates its profile and signs it in.
func (s *Service) SignUp(ctx context.Context, req *SignUpRequest) (*Result, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validateStruct(req); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	uid := uuid.NewString()
	cred := &repository.Credential{
		UID:          uid,
		Email:        req.Email,
		PasswordHash: string(hash),
		UpdatedAt:    s.now(),
	}
	profile := &models.Profile{
		UID:       uid,
		Name:      req.Name,
		Email:     req.Email,
		CreatedAt: models.At(s.now()),
	}
	if err := s.repo.Register(ctx, cred, profile); err != nil {
		s.metrics.AuthEvent("signup", false)
		if errors.Is(err, errors.ErrConflict) {
			return nil, ErrEmailTaken
		}
		s.logger.Error("Failed to register user", logging.Fields{"user_id": uid, "error": err.Error()})
		return nil, err
	}

	s.metrics.AuthEvent("signup", true)
	s.logger.Info("User registered", logging.Fields{"user_id": uid})

	return s.startSession(ctx, profile)
}

// SignIn checks an email and password and opens a session.
func (s *Service) SignIn(ctx context.Context, req *SignInRequest) (*Result, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validateStruct(req); err != nil {
		return nil, err
	}

	cred, err := s.repo.GetCredential(ctx, req.Email)
	if errors.Is(err, errors.ErrNotFound) {
		s.metrics.AuthEvent("signin", false)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(req.Password)); err != nil {
		s.metrics.AuthEvent("signin", false)
		s.logger.Warn("Sign-in rejected", logging.Fields{"user_id": cred.UID})
		return nil, ErrInvalidCredentials
	}

	profile, err := s.profiles.Get(ctx, cred.UID)
	if err != nil {
		s.logger.Error("Failed to load profile", logging.Fields{"user_id": cred.UID, "error": err.Error()})
		return nil, err
	}

	s.metrics.AuthEvent("signin", true)
	return s.startSession(ctx, profile)
}

// SignOut revokes the session behind token.
func (s *Service) SignOut(ctx context.Context, session *models.Session) error {
	if err := s.repo.DeleteSession(ctx, session.ID); err != nil && !errors.Is(err, errors.ErrNotFound) {
		return err
	}

	s.metrics.AuthEvent("signout", true)
	s.changed(ctx, models.SessionEvent{
		UserID:   session.UserID,
		Email:    session.Email,
		SignedIn: false,
		At:       models.At(s.now()),
	})
	return nil
}

// Verify parses a bearer token and checks its session is still open.
func (s *Service) Verify(ctx context.Context, token string) (*models.Session, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidSession
	}

	session, err := s.repo.GetSession(ctx, c.ID)
	if errors.Is(err, errors.ErrNotFound) {
		return nil, ErrInvalidSession
	}
	if err != nil {
		return nil, err
	}
	if session.UserID != c.Subject {
		return nil, ErrInvalidSession
	}
	return session, nil
}

// RequestPasswordReset emails a reset token. Unknown addresses succeed
// silently so the endpoint cannot be used to probe for accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return errors.NewValidationError("email", "Invalid email")
	}

	cred, err := s.repo.GetCredential(ctx, email)
	if errors.Is(err, errors.ErrNotFound) {
		s.logger.Info("Password reset for unknown email ignored")
		return nil
	}
	if err != nil {
		return err
	}

	reset := &repository.PasswordReset{
		Token:     uuid.NewString(),
		Email:     cred.Email,
		ExpiresAt: s.now().Add(s.cfg.ResetTokenTTL),
	}
	if err := s.repo.CreateReset(ctx, reset); err != nil {
		return err
	}

	if err := s.notifier.SendPasswordReset(ctx, cred.Email, reset.Token); err != nil {
		s.logger.Error("Error sending password reset email", logging.Fields{
			"user_id": cred.UID,
			"error":   err.Error(),
		})
		return fmt.Errorf("send password reset: %w", err)
	}

	s.metrics.AuthEvent("password_reset_requested", true)
	return nil
}

// ResetPassword sets a new password using a reset token. Tokens are single
// use.
func (s *Service) ResetPassword(ctx context.Context, req *ResetPasswordRequest) error {
	if err := s.validateStruct(req); err != nil {
		return err
	}

	reset, err := s.repo.GetReset(ctx, req.Token)
	if errors.Is(err, errors.ErrNotFound) {
		return ErrResetExpired
	}
	if err != nil {
		return err
	}
	if s.now().After(reset.ExpiresAt) {
		return ErrResetExpired
	}

	cred, err := s.repo.GetCredential(ctx, reset.Email)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	cred.PasswordHash = string(hash)
	cred.UpdatedAt = s.now()

	if err := s.repo.ConsumeReset(ctx, req.Token, cred); err != nil {
		return err
	}

	s.metrics.AuthEvent("password_reset", true)
	s.logger.Info("Password reset", logging.Fields{"user_id": cred.UID})
	return nil
}

// Subscribe registers l for session changes. The returned function removes
// it.
func (s *Service) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// Deliver notifies local listeners of a change that happened on another
// instance.
func (s *Service) Deliver(ctx context.Context, ev models.SessionEvent) {
	s.notify(ev)
}

func (s *Service) startSession(ctx context.Context, profile *models.Profile) (*Result, error) {
	now := s.now()
	expires := now.Add(s.cfg.TokenTTL)

	session := &models.Session{
		ID:        uuid.NewString(),
		UserID:    profile.UID,
		Email:     profile.Email,
		CreatedAt: models.At(now),
		ExpiresAt: models.At(expires),
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: profile.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   profile.UID,
			ID:        session.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	s.changed(ctx, models.SessionEvent{
		UserID:   profile.UID,
		Email:    profile.Email,
		SignedIn: true,
		At:       models.At(now),
	})

	return &Result{Token: signed, ExpiresAt: expires, Profile: profile}, nil
}

func (s *Service) changed(ctx context.Context, ev models.SessionEvent) {
	s.notify(ev)
	if err := s.publisher.PublishSessionChanged(ctx, ev); err != nil {
		s.logger.Error("Failed to publish session change", logging.Fields{
			"user_id": ev.UserID,
			"error":   err.Error(),
		})
	}
}

func (s *Service) notify(ev models.SessionEvent) {
	s.mu.RLock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.RUnlock()

	for _, l := range listeners {
		l(ev)
	}
}
