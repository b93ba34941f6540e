package repository

import (
	"context"
	"time"

	"qr-ticket-system/internal/domain/model"
)

// CredentialRepository is the port for durable credential storage.
//
// Implementations MUST make MarkRedeemed a single atomic conditional write:
// it flips state from valid to redeemed only if the stored state is still
// valid, and reports whether this call performed the flip. Reads that feed a
// redemption decision must never come from a cache.
type CredentialRepository interface {
	// Insert persists a new credential. Returns domain.ErrConflict if the id
	// or payload already exists; existing records are never overwritten.
	Insert(ctx context.Context, c *model.Credential) error
	// FindByID returns domain.ErrNotFound if no credential has this id.
	FindByID(ctx context.Context, id string) (*model.Credential, error)
	// FindByPayload returns domain.ErrNotFound if no credential carries payload.
	FindByPayload(ctx context.Context, payload string) (*model.Credential, error)
	// MarkRedeemed performs the valid -> redeemed transition for id.
	// ok=false with a nil error means the credential was already redeemed
	// (or vanished); callers decide which by the preceding lookup.
	MarkRedeemed(ctx context.Context, id string, at time.Time, by *string) (ok bool, err error)
}
