// Package storetest holds the behavioral checks every CredentialRepository
// implementation must pass.
package storetest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"qr-ticket-system/internal/domain"
	"qr-ticket-system/internal/domain/model"
	"qr-ticket-system/internal/domain/ports/repository"
)

// NewCredential returns a valid credential with a small fake image.
func NewCredential(t *testing.T, event, holder string) *model.Credential {
	t.Helper()
	c, err := model.NewCredential(event, holder, "holder@example.com", time.Now())
	if err != nil {
		t.Fatalf("new credential: %v", err)
	}
	c.Image = []byte{0x89, 'P', 'N', 'G', 1, 2, 3}
	c.ImageFormat = "PNG"
	// stores keep microsecond precision at best
	c.IssuedAt = c.IssuedAt.Truncate(time.Millisecond)
	return c
}

// Run exercises repo factories; each subtest gets a fresh repository.
func Run(t *testing.T, newRepo func(t *testing.T) repository.CredentialRepository) {
	t.Run("insert then find by id and payload", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)
		c := NewCredential(t, "Gala", "A. Rossi")
		if err := repo.Insert(ctx, c); err != nil {
			t.Fatalf("insert: %v", err)
		}

		byID, err := repo.FindByID(ctx, c.ID)
		if err != nil {
			t.Fatalf("find by id: %v", err)
		}
		assertSame(t, c, byID)

		byPayload, err := repo.FindByPayload(ctx, c.Payload)
		if err != nil {
			t.Fatalf("find by payload: %v", err)
		}
		assertSame(t, c, byPayload)
	})

	t.Run("missing credential is not found", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)
		if _, err := repo.FindByID(ctx, uuid.NewString()); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("find by id: want ErrNotFound, got %v", err)
		}
		if _, err := repo.FindByPayload(ctx, "not-a-payload"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("find by payload: want ErrNotFound, got %v", err)
		}
		ok, err := repo.MarkRedeemed(ctx, uuid.NewString(), time.Now(), nil)
		if err != nil || ok {
			t.Fatalf("mark unknown: ok=%v err=%v", ok, err)
		}
	})

	t.Run("duplicate id or payload conflicts", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)
		c := NewCredential(t, "Gala", "A. Rossi")
		if err := repo.Insert(ctx, c); err != nil {
			t.Fatalf("insert: %v", err)
		}

		dupID := *c
		dupID.Payload = "other-payload"
		dupID.HolderName = "Intruder"
		if err := repo.Insert(ctx, &dupID); !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("dup id: want ErrConflict, got %v", err)
		}

		dupPayload := *NewCredential(t, "Gala", "B. Bianchi")
		dupPayload.Payload = c.Payload
		if err := repo.Insert(ctx, &dupPayload); !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("dup payload: want ErrConflict, got %v", err)
		}

		got, err := repo.FindByID(ctx, c.ID)
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if got.HolderName != "A. Rossi" {
			t.Fatalf("original record overwritten: holder=%q", got.HolderName)
		}
	})

	t.Run("mark redeemed flips once", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)
		c := NewCredential(t, "Gala", "A. Rossi")
		if err := repo.Insert(ctx, c); err != nil {
			t.Fatalf("insert: %v", err)
		}

		staff := "door1"
		at := time.Now().UTC().Truncate(time.Millisecond)
		ok, err := repo.MarkRedeemed(ctx, c.ID, at, &staff)
		if err != nil || !ok {
			t.Fatalf("first mark: ok=%v err=%v", ok, err)
		}
		for i := 0; i < 3; i++ {
			ok, err = repo.MarkRedeemed(ctx, c.ID, time.Now(), nil)
			if err != nil || ok {
				t.Fatalf("repeat mark %d: ok=%v err=%v", i, ok, err)
			}
		}

		got, err := repo.FindByID(ctx, c.ID)
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if got.State != model.CredentialStateRedeemed {
			t.Fatalf("state = %q", got.State)
		}
		if got.RedeemedAt == nil || !got.RedeemedAt.Equal(at) {
			t.Fatalf("redeemed_at = %v, want %v", got.RedeemedAt, at)
		}
		if got.RedeemedBy == nil || *got.RedeemedBy != staff {
			t.Fatalf("redeemed_by = %v", got.RedeemedBy)
		}
	})

	t.Run("concurrent mark has exactly one winner", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)
		c := NewCredential(t, "Gala", "A. Rossi")
		if err := repo.Insert(ctx, c); err != nil {
			t.Fatalf("insert: %v", err)
		}

		const k = 16
		var (
			wins   atomic.Int32
			losses atomic.Int32
			wg     sync.WaitGroup
			start  = make(chan struct{})
		)
		for i := 0; i < k; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				ok, err := repo.MarkRedeemed(ctx, c.ID, time.Now(), nil)
				if err != nil {
					t.Errorf("mark: %v", err)
					return
				}
				if ok {
					wins.Add(1)
				} else {
					losses.Add(1)
				}
			}()
		}
		close(start)
		wg.Wait()

		if wins.Load() != 1 || losses.Load() != k-1 {
			t.Fatalf("wins=%d losses=%d, want 1/%d", wins.Load(), losses.Load(), k-1)
		}
	})

	t.Run("redeeming one credential leaves others valid", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)
		a := NewCredential(t, "Gala", "A")
		b := NewCredential(t, "Gala", "B")
		for _, c := range []*model.Credential{a, b} {
			if err := repo.Insert(ctx, c); err != nil {
				t.Fatalf("insert: %v", err)
			}
		}
		if ok, err := repo.MarkRedeemed(ctx, a.ID, time.Now(), nil); err != nil || !ok {
			t.Fatalf("mark a: ok=%v err=%v", ok, err)
		}
		got, err := repo.FindByID(ctx, b.ID)
		if err != nil {
			t.Fatalf("find b: %v", err)
		}
		if got.State != model.CredentialStateValid || got.RedeemedAt != nil {
			t.Fatalf("b changed: %+v", got)
		}
	})
}

func assertSame(t *testing.T, want, got *model.Credential) {
	t.Helper()
	if got.ID != want.ID || got.Payload != want.Payload {
		t.Fatalf("identity mismatch: got %s/%s want %s/%s", got.ID, got.Payload, want.ID, want.Payload)
	}
	if got.EventName != want.EventName || got.HolderName != want.HolderName || got.HolderEmail != want.HolderEmail {
		t.Fatalf("descriptive fields mismatch: got %+v", got)
	}
	if string(got.Image) != string(want.Image) || got.ImageFormat != want.ImageFormat {
		t.Fatalf("image mismatch: %d bytes %q", len(got.Image), got.ImageFormat)
	}
	if got.State != model.CredentialStateValid {
		t.Fatalf("state = %q, want valid", got.State)
	}
	if !got.IssuedAt.Equal(want.IssuedAt) {
		t.Fatalf("issued_at = %v, want %v", got.IssuedAt, want.IssuedAt)
	}
	if got.RedeemedAt != nil || got.RedeemedBy != nil {
		t.Fatalf("fresh credential carries redemption data: %+v", got)
	}
}
