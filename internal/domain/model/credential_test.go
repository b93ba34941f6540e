//go:build !integration

package model

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"qr-ticket-system/internal/domain"
)

func TestNewCredential(t *testing.T) {
	t.Run("should create a valid credential", func(t *testing.T) {
		now := time.Date(2025, 6, 1, 20, 0, 0, 0, time.FixedZone("CET", 3600))
		c, err := NewCredential("Gala 2025", "A. Rossi", "a@x.com", now)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if _, err := uuid.Parse(c.ID); err != nil {
			t.Errorf("expected a UUID id, got %q", c.ID)
		}
		if c.Payload != c.ID {
			t.Errorf("expected payload to equal id, got %q", c.Payload)
		}
		if c.State != CredentialStateValid || c.IsRedeemed() {
			t.Errorf("expected valid state, got %q", c.State)
		}
		if !c.IssuedAt.Equal(now) || c.IssuedAt.Location() != time.UTC {
			t.Errorf("expected issuedAt %v in UTC, got %v", now, c.IssuedAt)
		}
		if c.RedeemedAt != nil || c.RedeemedBy != nil {
			t.Error("expected no redemption data on a fresh credential")
		}
	})

	t.Run("should fail without event or holder", func(t *testing.T) {
		if _, err := NewCredential(" ", "A. Rossi", "", time.Now()); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("blank event: want ErrInvalidArgument, got %v", err)
		}
		if _, err := NewCredential("Gala", "", "", time.Now()); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("blank holder: want ErrInvalidArgument, got %v", err)
		}
		_, err := NewCredential("", " ", "", time.Now())
		var verr *domain.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("want *ValidationError, got %T", err)
		}
		if verr.Fields["eventName"] == "" || verr.Fields["holderName"] == "" {
			t.Errorf("fields = %v, want eventName and holderName", verr.Fields)
		}
	})

	t.Run("ids are unique", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 500; i++ {
			c, _ := NewCredential("Gala", "H", "", time.Now())
			if seen[c.ID] {
				t.Fatalf("duplicate id %s", c.ID)
			}
			seen[c.ID] = true
		}
	})
}

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"admin":      RoleAdmin,
		" Reception": RoleReception,
		"USER":       RoleUser,
		"root":       "",
	}
	for in, want := range cases {
		if got := ParseRole(in); got != want {
			t.Errorf("ParseRole(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStaffAccount_HasAnyRole(t *testing.T) {
	s := &StaffAccount{Username: "door1", Role: RoleReception}
	if !s.HasAnyRole(RoleAdmin, RoleReception) {
		t.Error("reception should match")
	}
	if s.HasAnyRole(RoleAdmin) {
		t.Error("reception is not admin")
	}
	var nilStaff *StaffAccount
	if nilStaff.HasAnyRole(RoleAdmin) {
		t.Error("nil account has no roles")
	}
}
