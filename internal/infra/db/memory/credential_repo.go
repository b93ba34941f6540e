// Package memory is a process-local credential store for development and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"qr-ticket-system/internal/domain"
	"qr-ticket-system/internal/domain/model"
	"qr-ticket-system/internal/domain/ports/repository"
)

var _ repository.CredentialRepository = (*CredentialRepo)(nil)

// record guards one credential. Its mutex is the per-id lock held across the
// state check and the state write in MarkRedeemed.
type record struct {
	mu   sync.Mutex
	cred model.Credential
}

// CredentialRepo keeps credentials in maps. The index lock only protects map
// access and is never held while a record lock is taken.
type CredentialRepo struct {
	mu        sync.RWMutex
	byID      map[string]*record
	byPayload map[string]*record
}

func NewCredentialRepo() *CredentialRepo {
	return &CredentialRepo{
		byID:      make(map[string]*record),
		byPayload: make(map[string]*record),
	}
}

func (r *CredentialRepo) Insert(_ context.Context, c *model.Credential) error {
	rec := &record{cred: clone(c)}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[c.ID]; ok {
		return domain.ErrConflict
	}
	if _, ok := r.byPayload[c.Payload]; ok {
		return domain.ErrConflict
	}
	r.byID[c.ID] = rec
	r.byPayload[c.Payload] = rec
	return nil
}

func (r *CredentialRepo) FindByID(_ context.Context, id string) (*model.Credential, error) {
	return r.read(r.lookup(r.byID, id))
}

func (r *CredentialRepo) FindByPayload(_ context.Context, payload string) (*model.Credential, error) {
	return r.read(r.lookup(r.byPayload, payload))
}

func (r *CredentialRepo) MarkRedeemed(_ context.Context, id string, at time.Time, by *string) (bool, error) {
	rec := r.lookup(r.byID, id)
	if rec == nil {
		return false, nil
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.cred.State != model.CredentialStateValid {
		return false, nil
	}
	at = at.UTC()
	rec.cred.State = model.CredentialStateRedeemed
	rec.cred.RedeemedAt = &at
	if by != nil {
		who := *by
		rec.cred.RedeemedBy = &who
	}
	return true, nil
}

// Len reports the number of stored credentials.
func (r *CredentialRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func (r *CredentialRepo) lookup(idx map[string]*record, key string) *record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return idx[key]
}

func (r *CredentialRepo) read(rec *record) (*model.Credential, error) {
	if rec == nil {
		return nil, domain.ErrNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	cp := clone(&rec.cred)
	return &cp, nil
}

func clone(c *model.Credential) model.Credential {
	cp := *c
	if c.Image != nil {
		cp.Image = append([]byte(nil), c.Image...)
	}
	if c.RedeemedAt != nil {
		t := *c.RedeemedAt
		cp.RedeemedAt = &t
	}
	if c.RedeemedBy != nil {
		s := *c.RedeemedBy
		cp.RedeemedBy = &s
	}
	return cp
}
