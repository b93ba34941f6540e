//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"qr-ticket-system/internal/domain"
	"qr-ticket-system/internal/domain/model"
	"qr-ticket-system/internal/infra/db/memory"
	"qr-ticket-system/internal/usecase"
)

func issueOne(t *testing.T, repo *memory.CredentialRepo, event, holder string) *model.Credential {
	t.Helper()
	uc := usecase.NewIssueUseCase(repo, &stubEncoder{}, defaultImage, newTestLogger(), false)
	c, err := uc.Issue(context.Background(), event, holder, "holder@x.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return c
}

func TestRedeemUseCase_GalaScenario(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewCredentialRepo()
	c := issueOne(t, repo, "Gala", "A. Rossi")
	uc := usecase.NewRedeemUseCase(repo, usecase.RateLimit{}, newTestLogger())

	r, err := uc.Redeem(ctx, c.ID, "door1")
	if err != nil {
		t.Fatalf("first redeem: %v", err)
	}
	if r.EventName != "Gala" || r.HolderName != "A. Rossi" || r.CredentialID != c.ID {
		t.Errorf("unexpected redemption %+v", r)
	}
	if time.Since(r.RedeemedAt) > time.Minute {
		t.Errorf("redeemedAt looks stale: %v", r.RedeemedAt)
	}

	if _, err := uc.Redeem(ctx, c.ID, "door2"); !errors.Is(err, domain.ErrAlreadyRedeemed) {
		t.Fatalf("second redeem: want ErrAlreadyRedeemed, got %v", err)
	}

	stored, _ := repo.FindByID(ctx, c.ID)
	if stored.State != model.CredentialStateRedeemed {
		t.Errorf("state = %q", stored.State)
	}
	if stored.RedeemedBy == nil || *stored.RedeemedBy != "door1" {
		t.Errorf("redeemedBy = %v, want door1", stored.RedeemedBy)
	}
	if stored.RedeemedAt == nil || !stored.RedeemedAt.Equal(r.RedeemedAt) {
		t.Errorf("redeemedAt = %v, want %v", stored.RedeemedAt, r.RedeemedAt)
	}
}

func TestRedeemUseCase_NotFoundIsStable(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewCredentialRepo()
	other := issueOne(t, repo, "Gala", "B")
	uc := usecase.NewRedeemUseCase(repo, usecase.RateLimit{}, newTestLogger())

	for _, key := range []string{"3d8e2b8e-0000-4000-8000-000000000000", "garbage", ""} {
		for i := 0; i < 2; i++ {
			if _, err := uc.Redeem(ctx, key, "door1"); !errors.Is(err, domain.ErrNotFound) {
				t.Fatalf("Redeem(%q) #%d: want ErrNotFound, got %v", key, i, err)
			}
		}
	}
	if got, _ := repo.FindByID(ctx, other.ID); got.State != model.CredentialStateValid {
		t.Fatal("unrelated credential changed")
	}
}

func TestRedeemUseCase_UpperCaseKey(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewCredentialRepo()
	c := issueOne(t, repo, "Gala", "A. Rossi")
	uc := usecase.NewRedeemUseCase(repo, usecase.RateLimit{}, newTestLogger())

	if _, err := uc.Redeem(ctx, strings.ToUpper(c.ID), "door1"); err != nil {
		t.Fatalf("upper-case key: %v", err)
	}
	if _, err := uc.Redeem(ctx, c.ID, "door2"); !errors.Is(err, domain.ErrAlreadyRedeemed) {
		t.Fatalf("lower-case key after redemption: want ErrAlreadyRedeemed, got %v", err)
	}
}

func TestRedeemUseCase_ResolvesByPayload(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewCredentialRepo()
	c, _ := model.NewCredential("Gala", "A. Rossi", "a@x.com", time.Now())
	c.Payload = "SCAN-0042"
	if err := repo.Insert(ctx, c); err != nil {
		t.Fatalf("insert: %v", err)
	}
	uc := usecase.NewRedeemUseCase(repo, usecase.RateLimit{}, newTestLogger())

	r, err := uc.Redeem(ctx, "SCAN-0042", "")
	if err != nil {
		t.Fatalf("redeem by payload: %v", err)
	}
	if r.CredentialID != c.ID {
		t.Errorf("resolved %s, want %s", r.CredentialID, c.ID)
	}
	// by id now reports the same credential as spent
	if _, err := uc.Redeem(ctx, c.ID, ""); !errors.Is(err, domain.ErrAlreadyRedeemed) {
		t.Fatalf("want ErrAlreadyRedeemed, got %v", err)
	}
	stored, _ := repo.FindByID(ctx, c.ID)
	if stored.RedeemedBy != nil {
		t.Errorf("anonymous redemption recorded staff %q", *stored.RedeemedBy)
	}
}

func TestRedeemUseCase_ConcurrentExactlyOnce(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewCredentialRepo()
	c := issueOne(t, repo, "Gala", "A. Rossi")
	uc := usecase.NewRedeemUseCase(repo, usecase.RateLimit{}, newTestLogger())

	const k = 64
	var (
		ok, spent atomic.Int32
		wg        sync.WaitGroup
		start     = make(chan struct{})
	)
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := uc.Redeem(ctx, c.ID, "door")
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, domain.ErrAlreadyRedeemed):
				spent.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if ok.Load() != 1 || spent.Load() != k-1 {
		t.Fatalf("successes=%d already=%d, want 1/%d", ok.Load(), spent.Load(), k-1)
	}
}

func TestRedeemUseCase_RateLimit(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewCredentialRepo()
	limiter := &countingLimiter{}
	uc := usecase.NewRedeemUseCase(repo, usecase.RateLimit{Limiter: limiter, Limit: 2, Window: time.Minute}, newTestLogger())

	for i := 0; i < 2; i++ {
		c := issueOne(t, repo, "Gala", "Guest")
		if _, err := uc.Redeem(ctx, c.ID, "door1"); err != nil {
			t.Fatalf("redeem %d: %v", i, err)
		}
	}
	c := issueOne(t, repo, "Gala", "Late")
	if _, err := uc.Redeem(ctx, c.ID, "door1"); !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("want ErrRateLimited, got %v", err)
	}
	if got, _ := repo.FindByID(ctx, c.ID); got.State != model.CredentialStateValid {
		t.Fatal("rate-limited call must not redeem")
	}
	if _, err := uc.Redeem(ctx, c.ID, "door2"); err != nil {
		t.Fatalf("other staff member should not be limited: %v", err)
	}
}

func TestRedeemUseCase_LimiterErrorFailsOpen(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewCredentialRepo()
	c := issueOne(t, repo, "Gala", "A. Rossi")
	limiter := &countingLimiter{err: errors.New("redis down")}
	uc := usecase.NewRedeemUseCase(repo, usecase.RateLimit{Limiter: limiter, Limit: 1, Window: time.Minute}, newTestLogger())

	if _, err := uc.Redeem(ctx, c.ID, "door1"); err != nil {
		t.Fatalf("redeem with broken limiter: %v", err)
	}
}
