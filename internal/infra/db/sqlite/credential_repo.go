package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"qr-ticket-system/internal/domain"
	"qr-ticket-system/internal/domain/model"
	"qr-ticket-system/internal/domain/ports/repository"
)

// Compile-time interface satisfaction check.
var _ repository.CredentialRepository = (*CredentialRepo)(nil)

// CredentialRepo is the SQLite implementation of the CredentialRepository port.
type CredentialRepo struct {
	db *DB
}

func NewCredentialRepo(db *DB) *CredentialRepo {
	return &CredentialRepo{db: db}
}

const selectColumns = `id, event_name, holder_name, holder_email, issued_at, payload, image, image_format, state, redeemed_at, redeemed_by`

func (r *CredentialRepo) Insert(ctx context.Context, c *model.Credential) error {
	const query = `INSERT INTO credentials (` + selectColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.Writer.ExecContext(ctx, query,
		c.ID, c.EventName, c.HolderName, c.HolderEmail, formatTime(c.IssuedAt), c.Payload,
		c.Image, c.ImageFormat, string(c.State), nullTime(c.RedeemedAt), nullString(c.RedeemedBy),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert credential %s: %w", c.ID, err)
	}
	return nil
}

func (r *CredentialRepo) FindByID(ctx context.Context, id string) (*model.Credential, error) {
	return r.findOne(ctx, `SELECT `+selectColumns+` FROM credentials WHERE id = ?`, id)
}

func (r *CredentialRepo) FindByPayload(ctx context.Context, payload string) (*model.Credential, error) {
	return r.findOne(ctx, `SELECT `+selectColumns+` FROM credentials WHERE payload = ?`, payload)
}

// MarkRedeemed runs the conditional update on the single writer connection;
// RowsAffected tells the winner apart from everyone else.
func (r *CredentialRepo) MarkRedeemed(ctx context.Context, id string, at time.Time, by *string) (bool, error) {
	const query = `
UPDATE credentials
   SET state = 'redeemed', redeemed_at = ?, redeemed_by = ?
 WHERE id = ? AND state = 'valid'`
	res, err := r.db.Writer.ExecContext(ctx, query, formatTime(at), nullString(by), id)
	if err != nil {
		return false, fmt.Errorf("mark credential %s redeemed: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *CredentialRepo) findOne(ctx context.Context, query string, arg string) (*model.Credential, error) {
	var (
		c          model.Credential
		issuedAt   string
		state      string
		redeemedAt sql.NullString
		redeemedBy sql.NullString
	)
	err := r.db.Reader.QueryRowContext(ctx, query, arg).Scan(
		&c.ID, &c.EventName, &c.HolderName, &c.HolderEmail, &issuedAt, &c.Payload,
		&c.Image, &c.ImageFormat, &state, &redeemedAt, &redeemedBy,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query credential: %w", err)
	}

	if c.IssuedAt, err = parseTime(issuedAt); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	c.State = model.CredentialState(state)
	if redeemedAt.Valid {
		t, err := parseTime(redeemedAt.String)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		c.RedeemedAt = &t
	}
	if redeemedBy.Valid {
		s := redeemedBy.String
		c.RedeemedBy = &s
	}
	return &c, nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) (time.Time, error) { return time.Parse(time.RFC3339Nano, s) }

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
