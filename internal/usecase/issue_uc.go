package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"qr-ticket-system/internal/domain"
	"qr-ticket-system/internal/domain/model"
	"qr-ticket-system/internal/domain/ports/adapter"
	"qr-ticket-system/internal/domain/ports/repository"
	"qr-ticket-system/internal/infra/logging"
	"qr-ticket-system/internal/infra/metrics"
)

// Compile-time check
var _ IssueUseCase = (*issueUC)(nil)

// IssueUseCase creates credentials and their barcode images.
type IssueUseCase interface {
	Issue(ctx context.Context, eventName, holderName, holderEmail string) (*model.Credential, error)
}

// ImageSpec is the raster geometry and format every issued credential gets.
type ImageSpec struct {
	Width  int
	Height int
	Format string
}

type issueUC struct {
	repo    repository.CredentialRepository
	encoder adapter.BarcodeEncoder
	image   ImageSpec
	log     *zerolog.Logger
	dev     bool
	now     func() time.Time
}

func NewIssueUseCase(repo repository.CredentialRepository, encoder adapter.BarcodeEncoder, image ImageSpec, logger *zerolog.Logger, dev bool) *issueUC {
	l := logger.With().Str("component", "issue_uc").Logger()
	return &issueUC{
		repo:    repo,
		encoder: encoder,
		image:   image,
		log:     &l,
		dev:     dev,
		now:     time.Now,
	}
}

// Issue encodes before it persists, so a failed encode leaves no record behind.
func (u *issueUC) Issue(ctx context.Context, eventName, holderName, holderEmail string) (*model.Credential, error) {
	defer logging.TraceDuration(u.log, "IssueUC.Issue")()

	c, err := model.NewCredential(eventName, holderName, holderEmail, u.now())
	if err != nil {
		metrics.IncIssued("invalid")
		return nil, err
	}

	start := time.Now()
	img, err := u.encoder.Encode(c.Payload, u.image.Width, u.image.Height, u.image.Format)
	metrics.ObserveEncode(u.image.Format, time.Since(start))
	if err != nil {
		metrics.IncIssued("encode_error")
		logging.With(ctx, u.log).Error().Err(err).Str("credential_id", c.ID).Msg("barcode encoding failed")
		var ee *domain.EncodingError
		if errors.As(err, &ee) {
			return nil, err
		}
		return nil, &domain.EncodingError{Op: "encode", Err: err}
	}
	c.Image = img
	c.ImageFormat = u.image.Format

	if err := u.repo.Insert(ctx, c); err != nil {
		metrics.IncIssued("store_error")
		if errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("store credential: %w", err)
	}

	metrics.IncIssued("ok")
	logging.With(logging.WithCredentialID(ctx, c.ID), u.log).Info().
		Str("event", c.EventName).
		Str("holder_email", logging.Redact(c.HolderEmail, u.dev)).
		Msg("credential issued")
	return c, nil
}
