//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"qr-ticket-system/internal/domain"
	"qr-ticket-system/internal/domain/model"
	"qr-ticket-system/internal/usecase"
)

func hash(t *testing.T, pw string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(h)
}

func TestStaffUseCase_Authenticate(t *testing.T) {
	ctx := context.Background()
	uc, err := usecase.NewStaffUseCase([]model.StaffAccount{
		{Username: "admin", PasswordHash: hash(t, "admin-pw"), Role: model.RoleAdmin},
		{Username: "reception", PasswordHash: hash(t, "door-pw"), Role: model.RoleReception},
	}, newTestLogger())
	if err != nil {
		t.Fatalf("NewStaffUseCase: %v", err)
	}

	a, err := uc.Authenticate(ctx, "reception", "door-pw")
	if err != nil {
		t.Fatalf("valid login failed: %v", err)
	}
	if a.Role != model.RoleReception {
		t.Errorf("role = %q", a.Role)
	}

	for _, tc := range []struct{ user, pw string }{
		{"reception", "wrong"},
		{"nobody", "door-pw"},
		{"", ""},
	} {
		if _, err := uc.Authenticate(ctx, tc.user, tc.pw); !errors.Is(err, domain.ErrUnauthorized) {
			t.Errorf("Authenticate(%q,%q): want ErrUnauthorized, got %v", tc.user, tc.pw, err)
		}
	}

	if acc, ok := uc.Account("admin"); !ok || acc.Role != model.RoleAdmin {
		t.Errorf("Account(admin) = %+v, %v", acc, ok)
	}
	if _, ok := uc.Account("ghost"); ok {
		t.Error("unknown account reported present")
	}
}

func TestNewStaffUseCase_RejectsBadAccounts(t *testing.T) {
	if _, err := usecase.NewStaffUseCase([]model.StaffAccount{{Username: "x", PasswordHash: "h"}}, newTestLogger()); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("missing role: want ErrInvalidArgument, got %v", err)
	}
	dup := []model.StaffAccount{
		{Username: "a", PasswordHash: "h", Role: model.RoleUser},
		{Username: "a", PasswordHash: "h", Role: model.RoleAdmin},
	}
	if _, err := usecase.NewStaffUseCase(dup, newTestLogger()); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("duplicate: want ErrInvalidArgument, got %v", err)
	}
}
