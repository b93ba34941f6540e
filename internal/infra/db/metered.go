// Package db holds store-agnostic wrappers around a CredentialRepository.
package db

import (
	"context"
	"errors"
	"time"

	"qr-ticket-system/internal/domain"
	"qr-ticket-system/internal/domain/model"
	"qr-ticket-system/internal/domain/ports/repository"
	"qr-ticket-system/internal/infra/metrics"
)

var _ repository.CredentialRepository = (*meteredRepo)(nil)

// meteredRepo counts every store call by driver, operation and outcome.
type meteredRepo struct {
	inner  repository.CredentialRepository
	driver string
}

func NewMeteredRepo(inner repository.CredentialRepository, driver string) repository.CredentialRepository {
	return &meteredRepo{inner: inner, driver: driver}
}

func (m *meteredRepo) Insert(ctx context.Context, c *model.Credential) error {
	err := m.inner.Insert(ctx, c)
	m.observe("insert", err)
	return err
}

func (m *meteredRepo) FindByID(ctx context.Context, id string) (*model.Credential, error) {
	c, err := m.inner.FindByID(ctx, id)
	m.observe("find_by_id", err)
	return c, err
}

func (m *meteredRepo) FindByPayload(ctx context.Context, payload string) (*model.Credential, error) {
	c, err := m.inner.FindByPayload(ctx, payload)
	m.observe("find_by_payload", err)
	return c, err
}

func (m *meteredRepo) MarkRedeemed(ctx context.Context, id string, at time.Time, by *string) (bool, error) {
	ok, err := m.inner.MarkRedeemed(ctx, id, at, by)
	switch {
	case err != nil:
		m.observe("mark_redeemed", err)
	case ok:
		metrics.IncStoreOp(m.driver, "mark_redeemed", "ok")
	default:
		metrics.IncStoreOp(m.driver, "mark_redeemed", "lost")
	}
	return ok, err
}

func (m *meteredRepo) observe(op string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		result = "not_found"
	case errors.Is(err, domain.ErrConflict):
		result = "conflict"
	default:
		result = "error"
	}
	metrics.IncStoreOp(m.driver, op, result)
}
