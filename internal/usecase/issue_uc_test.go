//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"qr-ticket-system/internal/domain"
	"qr-ticket-system/internal/domain/model"
	"qr-ticket-system/internal/infra/barcode"
	"qr-ticket-system/internal/infra/db/memory"
	"qr-ticket-system/internal/usecase"
)

var defaultImage = usecase.ImageSpec{Width: 300, Height: 300, Format: "PNG"}

func TestIssueUseCase_Issue(t *testing.T) {
	ctx := context.Background()

	t.Run("should persist a valid credential with its image", func(t *testing.T) {
		repo := memory.NewCredentialRepo()
		enc := &stubEncoder{}
		uc := usecase.NewIssueUseCase(repo, enc, defaultImage, newTestLogger(), false)

		c, err := uc.Issue(ctx, "Gala 2025", "A. Rossi", "a@x.com")
		if err != nil {
			t.Fatalf("Issue failed: %v", err)
		}
		if c.State != model.CredentialStateValid {
			t.Errorf("expected valid state, got %q", c.State)
		}
		if string(c.Image) != "img:"+c.Payload || c.ImageFormat != "PNG" {
			t.Errorf("image not attached: %q %q", c.Image, c.ImageFormat)
		}
		stored, err := repo.FindByID(ctx, c.ID)
		if err != nil {
			t.Fatalf("credential not stored: %v", err)
		}
		if stored.HolderName != "A. Rossi" || stored.EventName != "Gala 2025" {
			t.Errorf("stored fields differ: %+v", stored)
		}
	})

	t.Run("should issue real decodable images with the barcode encoder", func(t *testing.T) {
		repo := memory.NewCredentialRepo()
		enc, err := barcode.NewEncoder("M")
		if err != nil {
			t.Fatalf("encoder: %v", err)
		}
		uc := usecase.NewIssueUseCase(repo, enc, defaultImage, newTestLogger(), false)
		c, err := uc.Issue(ctx, "Gala", "A. Rossi", "a@x.com")
		if err != nil {
			t.Fatalf("Issue failed: %v", err)
		}
		if len(c.Image) < 8 || string(c.Image[1:4]) != "PNG" {
			t.Errorf("expected PNG bytes, got % x", c.Image[:8])
		}
	})

	t.Run("should persist nothing when encoding fails", func(t *testing.T) {
		repo := memory.NewCredentialRepo()
		uc := usecase.NewIssueUseCase(repo, failingEncoder{}, defaultImage, newTestLogger(), false)

		c, err := uc.Issue(ctx, "Gala", "A. Rossi", "a@x.com")
		if c != nil {
			t.Fatal("expected no credential on encode failure")
		}
		if !errors.Is(err, domain.ErrEncoding) {
			t.Fatalf("expected ErrEncoding, got %v", err)
		}
		if repo.Len() != 0 {
			t.Fatalf("store has %d records after failed issue", repo.Len())
		}
	})

	t.Run("should reject blank names", func(t *testing.T) {
		repo := memory.NewCredentialRepo()
		uc := usecase.NewIssueUseCase(repo, &stubEncoder{}, defaultImage, newTestLogger(), false)
		if _, err := uc.Issue(ctx, "", "A. Rossi", "a@x.com"); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("concurrent issues yield distinct ids and payloads", func(t *testing.T) {
		repo := memory.NewCredentialRepo()
		uc := usecase.NewIssueUseCase(repo, &stubEncoder{}, defaultImage, newTestLogger(), false)

		const n = 200
		var (
			wg  sync.WaitGroup
			mu  sync.Mutex
			ids = make(map[string]bool, n)
			pls = make(map[string]bool, n)
		)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				c, err := uc.Issue(ctx, "Gala", "Guest", "g@x.com")
				if err != nil {
					t.Errorf("issue: %v", err)
					return
				}
				mu.Lock()
				ids[c.ID] = true
				pls[c.Payload] = true
				mu.Unlock()
			}()
		}
		wg.Wait()
		if len(ids) != n || len(pls) != n || repo.Len() != n {
			t.Fatalf("ids=%d payloads=%d stored=%d, want %d each", len(ids), len(pls), repo.Len(), n)
		}
	})
}
