package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"qr-ticket-system/internal/domain"
	"qr-ticket-system/internal/domain/model"
	"qr-ticket-system/internal/infra/logging"
	"qr-ticket-system/internal/infra/metrics"
)

// Compile-time check
var _ StaffUseCase = (*staffUC)(nil)

// StaffUseCase authenticates the operators listed in configuration.
type StaffUseCase interface {
	Authenticate(ctx context.Context, username, password string) (*model.StaffAccount, error)
	Account(username string) (*model.StaffAccount, bool)
}

type staffUC struct {
	accounts map[string]model.StaffAccount
	log      *zerolog.Logger
}

// dummyHash keeps unknown usernames as slow as wrong passwords.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.MinCost)

func NewStaffUseCase(accounts []model.StaffAccount, logger *zerolog.Logger) (*staffUC, error) {
	l := logger.With().Str("component", "staff_uc").Logger()
	m := make(map[string]model.StaffAccount, len(accounts))
	for _, a := range accounts {
		if a.Role == "" {
			return nil, fmt.Errorf("account %q: unknown role: %w", a.Username, domain.ErrInvalidArgument)
		}
		if _, dup := m[a.Username]; dup {
			return nil, fmt.Errorf("account %q listed twice: %w", a.Username, domain.ErrInvalidArgument)
		}
		m[a.Username] = a
	}
	return &staffUC{accounts: m, log: &l}, nil
}

func (u *staffUC) Authenticate(ctx context.Context, username, password string) (*model.StaffAccount, error) {
	a, ok := u.accounts[username]
	hash := dummyHash
	if ok {
		hash = []byte(a.PasswordHash)
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil || !ok {
		metrics.IncStaffLogin("denied")
		logging.With(ctx, u.log).Warn().Str("username", username).Msg("staff login denied")
		return nil, domain.ErrUnauthorized
	}
	metrics.IncStaffLogin("ok")
	logging.With(logging.WithStaff(ctx, a.Username), u.log).Info().Str("role", string(a.Role)).Msg("staff login")
	return &a, nil
}

func (u *staffUC) Account(username string) (*model.StaffAccount, bool) {
	a, ok := u.accounts[username]
	if !ok {
		return nil, false
	}
	return &a, true
}
