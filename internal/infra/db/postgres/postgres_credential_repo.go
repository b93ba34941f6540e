package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"qr-ticket-system/internal/domain"
	"qr-ticket-system/internal/domain/model"
	"qr-ticket-system/internal/domain/ports/repository"
)

// Ensure implementation satisfies the interface.
var _ repository.CredentialRepository = (*CredentialRepo)(nil)

type CredentialRepo struct {
	pool *pgxpool.Pool
}

func NewCredentialRepo(pool *pgxpool.Pool) *CredentialRepo {
	return &CredentialRepo{pool: pool}
}

// executor keeps a nil pool from turning into a non-nil interface.
func (r *CredentialRepo) executor() executor {
	if r.pool == nil {
		return nil
	}
	return r.pool
}

const credentialColumns = `id, event_name, holder_name, holder_email, issued_at, payload, image, image_format, state, redeemed_at, redeemed_by`

// Insert never upserts: a duplicate id or payload is reported as ErrConflict.
func (r *CredentialRepo) Insert(ctx context.Context, c *model.Credential) error {
	const q = `
INSERT INTO credentials (` + credentialColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11);`
	_, err := execSQL(ctx, r.executor(), q,
		c.ID, c.EventName, c.HolderName, c.HolderEmail, c.IssuedAt, c.Payload,
		c.Image, c.ImageFormat, string(c.State), c.RedeemedAt, c.RedeemedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		if errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

func (r *CredentialRepo) FindByID(ctx context.Context, id string) (*model.Credential, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	const q = `SELECT ` + credentialColumns + ` FROM credentials WHERE id=$1;`
	return r.findOne(ctx, q, id)
}

func (r *CredentialRepo) FindByPayload(ctx context.Context, payload string) (*model.Credential, error) {
	const q = `SELECT ` + credentialColumns + ` FROM credentials WHERE payload=$1 LIMIT 1;`
	return r.findOne(ctx, q, payload)
}

// MarkRedeemed atomically flips state only when it is still 'valid'.
func (r *CredentialRepo) MarkRedeemed(ctx context.Context, id string, at time.Time, by *string) (bool, error) {
	// the id column is UUID; anything else cannot match a row
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	const q = `
UPDATE credentials
   SET state = 'redeemed',
       redeemed_at = $2,
       redeemed_by = $3
 WHERE id = $1
   AND state = 'valid';`
	cmd, err := execSQL(ctx, r.executor(), q, id, at.UTC(), by)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidExecContext) {
			return false, err
		}
		return false, fmt.Errorf("mark redeemed: %w", err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *CredentialRepo) findOne(ctx context.Context, q string, arg string) (*model.Credential, error) {
	row, err := pickRow(ctx, r.executor(), q, arg)
	if err != nil {
		return nil, err
	}

	var (
		c     model.Credential
		state string
	)
	err = row.Scan(
		&c.ID, &c.EventName, &c.HolderName, &c.HolderEmail, &c.IssuedAt, &c.Payload,
		&c.Image, &c.ImageFormat, &state, &c.RedeemedAt, &c.RedeemedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	c.State = model.CredentialState(state)
	return &c, nil
}
