package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"qr-ticket-system/internal/domain"
	"qr-ticket-system/internal/domain/model"
	"qr-ticket-system/internal/domain/ports/repository"
)

var _ repository.CredentialRepository = (*CredentialRepo)(nil)

// CredentialRepo stores each credential as a hash under credential:{id} and
// indexes the payload under credential:payload:{payload}.
type CredentialRepo struct {
	cli *redis.Client
}

func NewCredentialRepo(c *Client) *CredentialRepo {
	return &CredentialRepo{cli: c.cli}
}

func credentialKey(id string) string  { return "credential:" + id }
func payloadKey(payload string) string { return "credential:payload:" + payload }

// KEYS[1] credential hash, KEYS[2] payload index; ARGV[1] id, then field/value pairs.
var luaInsert = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return 0
end
if redis.call("SETNX", KEYS[2], ARGV[1]) == 0 then
	return 0
end
redis.call("HSET", KEYS[1], unpack(ARGV, 2))
return 1`)

// KEYS[1] credential hash; ARGV[1] redeemed_at, ARGV[2] "1" when ARGV[3] names the staff member.
var luaRedeem = redis.NewScript(`
if redis.call("HGET", KEYS[1], "state") ~= "valid" then
	return 0
end
redis.call("HSET", KEYS[1], "state", "redeemed", "redeemed_at", ARGV[1])
if ARGV[2] == "1" then
	redis.call("HSET", KEYS[1], "redeemed_by", ARGV[3])
end
return 1`)

func (r *CredentialRepo) Insert(ctx context.Context, c *model.Credential) error {
	args := []interface{}{
		c.ID,
		"id", c.ID,
		"event_name", c.EventName,
		"holder_name", c.HolderName,
		"holder_email", c.HolderEmail,
		"issued_at", c.IssuedAt.UTC().Format(time.RFC3339Nano),
		"payload", c.Payload,
		"image", c.Image,
		"image_format", c.ImageFormat,
		"state", string(c.State),
	}
	if c.RedeemedAt != nil {
		args = append(args, "redeemed_at", c.RedeemedAt.UTC().Format(time.RFC3339Nano))
	}
	if c.RedeemedBy != nil {
		args = append(args, "redeemed_by", *c.RedeemedBy)
	}

	created, err := luaInsert.Run(ctx, r.cli, []string{credentialKey(c.ID), payloadKey(c.Payload)}, args...).Int()
	if err != nil {
		return fmt.Errorf("insert credential: %w", err)
	}
	if created == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *CredentialRepo) FindByID(ctx context.Context, id string) (*model.Credential, error) {
	fields, err := r.cli.HGetAll(ctx, credentialKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("find credential: %w", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrNotFound
	}
	return fromHash(fields)
}

func (r *CredentialRepo) FindByPayload(ctx context.Context, payload string) (*model.Credential, error) {
	id, err := r.cli.Get(ctx, payloadKey(payload)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find credential by payload: %w", err)
	}
	return r.FindByID(ctx, id)
}

func (r *CredentialRepo) MarkRedeemed(ctx context.Context, id string, at time.Time, by *string) (bool, error) {
	hasBy, staff := "0", ""
	if by != nil {
		hasBy, staff = "1", *by
	}
	n, err := luaRedeem.Run(ctx, r.cli, []string{credentialKey(id)},
		at.UTC().Format(time.RFC3339Nano), hasBy, staff).Int()
	if err != nil {
		return false, fmt.Errorf("mark redeemed: %w", err)
	}
	return n == 1, nil
}

func fromHash(h map[string]string) (*model.Credential, error) {
	issuedAt, err := time.Parse(time.RFC3339Nano, h["issued_at"])
	if err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	c := &model.Credential{
		ID:          h["id"],
		EventName:   h["event_name"],
		HolderName:  h["holder_name"],
		HolderEmail: h["holder_email"],
		IssuedAt:    issuedAt,
		Payload:     h["payload"],
		Image:       []byte(h["image"]),
		ImageFormat: h["image_format"],
		State:       model.CredentialState(h["state"]),
	}
	if v, ok := h["redeemed_at"]; ok {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		c.RedeemedAt = &t
	}
	if v, ok := h["redeemed_by"]; ok {
		c.RedeemedBy = &v
	}
	return c, nil
}
