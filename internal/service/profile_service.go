package service

import (
	"context"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/repository"
)

var ErrProfileNotFound = errors.Wrap(errors.ErrNotFound, "User data not found.")

// ProfileService reads shopper profiles. Profiles are created by the auth
// service at sign-up.
type ProfileService struct {
	profiles *repository.ProfileRepository
}

func NewProfileService(profiles *repository.ProfileRepository) *ProfileService {
	return &ProfileService{profiles: profiles}
}

func (s *ProfileService) Get(ctx context.Context, uid string) (*models.Profile, error) {
	p, err := s.profiles.Get(ctx, uid)
	if errors.Is(err, errors.ErrNotFound) {
		return nil, ErrProfileNotFound
	}
	return p, err
}
