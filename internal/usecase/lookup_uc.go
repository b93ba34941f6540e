package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"qr-ticket-system/internal/domain"
	"qr-ticket-system/internal/domain/model"
	"qr-ticket-system/internal/domain/ports/repository"
	"qr-ticket-system/internal/infra/logging"
)

// Compile-time check
var _ LookupUseCase = (*lookupUC)(nil)

// LookupUseCase is the read side: credential details and barcode images.
type LookupUseCase interface {
	GetByID(ctx context.Context, id string) (*model.Credential, error)
	GetImage(ctx context.Context, id string) ([]byte, string, error)
}

type lookupUC struct {
	repo     repository.CredentialRepository
	cache    repository.ImageCache // optional
	cacheTTL time.Duration
	log      *zerolog.Logger
}

// NewLookupUseCase wires a lookup service. cache may be nil.
func NewLookupUseCase(repo repository.CredentialRepository, cache repository.ImageCache, cacheTTL time.Duration, logger *zerolog.Logger) *lookupUC {
	l := logger.With().Str("component", "lookup_uc").Logger()
	return &lookupUC{repo: repo, cache: cache, cacheTTL: cacheTTL, log: &l}
}

// GetByID always reads the store; the state it returns is never cached.
func (u *lookupUC) GetByID(ctx context.Context, id string) (*model.Credential, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	return u.repo.FindByID(ctx, parsed.String())
}

func (u *lookupUC) GetImage(ctx context.Context, id string) ([]byte, string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, "", domain.ErrNotFound
	}
	id = parsed.String()

	if u.cache != nil {
		img, format, err := u.cache.Get(ctx, id)
		if err == nil {
			return img, format, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			logging.With(ctx, u.log).Warn().Err(err).Str("credential_id", id).Msg("image cache read failed")
		}
	}

	c, err := u.repo.FindByID(ctx, id)
	if err != nil {
		return nil, "", err
	}

	if u.cache != nil {
		if err := u.cache.Set(ctx, id, c.Image, c.ImageFormat, u.cacheTTL); err != nil {
			logging.With(ctx, u.log).Warn().Err(err).Str("credential_id", id).Msg("image cache write failed")
		}
	}
	return c.Image, c.ImageFormat, nil
}
