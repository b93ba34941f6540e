package memory

import (
	"context"
	"testing"
	"time"

	"qr-ticket-system/internal/domain/ports/repository"
	"qr-ticket-system/internal/infra/db/storetest"
)

func TestCredentialRepo(t *testing.T) {
	storetest.Run(t, func(t *testing.T) repository.CredentialRepository {
		return NewCredentialRepo()
	})
}

func TestCredentialRepo_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewCredentialRepo()
	c := storetest.NewCredential(t, "Gala", "A. Rossi")
	if err := repo.Insert(ctx, c); err != nil {
		t.Fatalf("insert: %v", err)
	}
	c.Image[0] = 0 // caller mutation after insert

	got, err := repo.FindByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Image[0] != 0x89 {
		t.Fatal("stored image aliased caller slice")
	}
	got.HolderName = "changed"
	got.Image[1] = 0

	again, _ := repo.FindByID(ctx, c.ID)
	if again.HolderName != "A. Rossi" || again.Image[1] != 'P' {
		t.Fatal("returned credential aliased stored record")
	}
	if repo.Len() != 1 {
		t.Fatalf("len = %d", repo.Len())
	}
	if ok, _ := repo.MarkRedeemed(ctx, c.ID, time.Now(), nil); !ok {
		t.Fatal("mark failed")
	}
}
