package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"qr-ticket-system/internal/domain"
	"qr-ticket-system/internal/domain/model"
	"qr-ticket-system/internal/domain/ports/repository"
	"qr-ticket-system/internal/infra/logging"
	"qr-ticket-system/internal/infra/metrics"
)

// Compile-time check
var _ RedeemUseCase = (*redeemUC)(nil)

// RedeemUseCase consumes a credential at the door.
type RedeemUseCase interface {
	// Redeem resolves key (credential id or scanned payload) and marks the
	// credential redeemed. It succeeds at most once per credential.
	Redeem(ctx context.Context, key, staff string) (*model.Redemption, error)
}

// RateLimit bounds how many verify calls one staff member may make per Window.
// A zero Limit or nil Limiter disables it.
type RateLimit struct {
	Limiter repository.RateLimiter
	Limit   int
	Window  time.Duration
	KeyFunc func(staff string) string
}

type redeemUC struct {
	repo  repository.CredentialRepository
	limit RateLimit
	log   *zerolog.Logger
	now   func() time.Time
}

func NewRedeemUseCase(repo repository.CredentialRepository, limit RateLimit, logger *zerolog.Logger) *redeemUC {
	l := logger.With().Str("component", "redeem_uc").Logger()
	if limit.KeyFunc == nil {
		limit.KeyFunc = func(staff string) string { return "rate_limit:verify:" + staff }
	}
	return &redeemUC{repo: repo, limit: limit, log: &l, now: time.Now}
}

func (u *redeemUC) Redeem(ctx context.Context, key, staff string) (*model.Redemption, error) {
	defer logging.TraceDuration(u.log, "RedeemUC.Redeem")()

	if err := u.checkRate(ctx, staff); err != nil {
		return nil, err
	}

	c, err := u.resolve(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.IncRedemption("not_found")
		} else {
			metrics.IncRedemption("error")
		}
		return nil, err
	}
	ctx = logging.WithCredentialID(ctx, c.ID)

	at := u.now().UTC()
	var by *string
	if staff != "" {
		by = &staff
	}
	ok, err := u.repo.MarkRedeemed(ctx, c.ID, at, by)
	if err != nil {
		metrics.IncRedemption("error")
		logging.With(ctx, u.log).Error().Err(err).Msg("mark redeemed failed")
		return nil, fmt.Errorf("redeem: %w", err)
	}
	if !ok {
		metrics.IncRedemption("already_redeemed")
		logging.With(ctx, u.log).Info().Msg("credential already redeemed")
		return nil, domain.ErrAlreadyRedeemed
	}

	metrics.IncRedemption("ok")
	logging.With(ctx, u.log).Info().Str("event", c.EventName).Msg("credential redeemed")
	return &model.Redemption{
		CredentialID: c.ID,
		EventName:    c.EventName,
		HolderName:   c.HolderName,
		RedeemedAt:   at,
	}, nil
}

// resolve tries key as an id when it parses as a UUID, then as a payload.
func (u *redeemUC) resolve(ctx context.Context, key string) (*model.Credential, error) {
	if key == "" {
		return nil, domain.ErrNotFound
	}
	if id, err := uuid.Parse(key); err == nil {
		// stores compare ids as canonical lower-case text
		key = id.String()
		c, err := u.repo.FindByID(ctx, key)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	return u.repo.FindByPayload(ctx, key)
}

func (u *redeemUC) checkRate(ctx context.Context, staff string) error {
	if u.limit.Limiter == nil || u.limit.Limit <= 0 || staff == "" {
		return nil
	}
	allowed, err := u.limit.Limiter.Allow(ctx, u.limit.KeyFunc(staff), u.limit.Limit, u.limit.Window)
	if err != nil {
		// limiter errors fail open
		logging.With(ctx, u.log).Warn().Err(err).Msg("rate limiter unavailable")
		return nil
	}
	if !allowed {
		metrics.IncRateLimited()
		return domain.ErrRateLimited
	}
	return nil
}
