package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
)

const (
	credentialsCollection = "credentials"
	sessionsCollection    = "sessions"
	resetsCollection      = "password_resets"
)

// Credential is the sign-in record of one email address.
type Credential struct {
	UID          string    `json:"uid"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PasswordReset is an outstanding reset token.
type PasswordReset struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AuthRepository keeps credentials, sessions and reset tokens.
type AuthRepository struct {
	store DocumentStore
}

func NewAuthRepository(store DocumentStore) *AuthRepository {
	return &AuthRepository{store: store}
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register writes a new credential and its profile in one batch. It fails
// with errors.ErrConflict, writing nothing, when the email is already
// registered.
func (r *AuthRepository) Register(ctx context.Context, c *Credential, p *models.Profile) error {
	cred, err := CreateWrite(credentialsCollection, emailKey(c.Email), c)
	if err != nil {
		return err
	}
	profile, err := SetWrite(usersCollection, p.UID, p)
	if err != nil {
		return err
	}
	return r.store.Batch(ctx, cred, profile)
}

func (r *AuthRepository) GetCredential(ctx context.Context, email string) (*Credential, error) {
	var c Credential
	if err := getJSON(ctx, r.store, credentialsCollection, emailKey(email), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *AuthRepository) SaveCredential(ctx context.Context, c *Credential) error {
	return setJSON(ctx, r.store, credentialsCollection, emailKey(c.Email), c)
}

func (r *AuthRepository) CreateSession(ctx context.Context, s *models.Session) error {
	return setJSON(ctx, r.store, sessionsCollection, s.ID, s)
}

func (r *AuthRepository) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var s models.Session
	if err := getJSON(ctx, r.store, sessionsCollection, id, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *AuthRepository) DeleteSession(ctx context.Context, id string) error {
	return r.store.Delete(ctx, sessionsCollection, id)
}

func (r *AuthRepository) CreateReset(ctx context.Context, reset *PasswordReset) error {
	return setJSON(ctx, r.store, resetsCollection, reset.Token, reset)
}

func (r *AuthRepository) GetReset(ctx context.Context, token string) (*PasswordReset, error) {
	var reset PasswordReset
	if err := getJSON(ctx, r.store, resetsCollection, token, &reset); err != nil {
		return nil, err
	}
	return &reset, nil
}

// ConsumeReset stores the new credential and deletes the reset token in one
// batch.
func (r *AuthRepository) ConsumeReset(ctx context.Context, token string, c *Credential) error {
	w, err := SetWrite(credentialsCollection, emailKey(c.Email), c)
	if err != nil {
		return err
	}
	if err := r.store.Batch(ctx, w, DeleteWrite(resetsCollection, token)); err != nil {
		return fmt.Errorf("consume reset token: %w", err)
	}
	return nil
}
