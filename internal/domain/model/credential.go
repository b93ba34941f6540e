package model

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"qr-ticket-system/internal/domain"
)

type CredentialState string

const (
	CredentialStateValid    CredentialState = "valid"    // issued, not yet used at the door
	CredentialStateRedeemed CredentialState = "redeemed" // consumed; terminal
)

// Credential is a single-use admission record for an event.
// Everything except State, RedeemedAt and RedeemedBy is fixed at issuance.
type Credential struct {
	ID          string // UUID
	EventName   string
	HolderName  string
	HolderEmail string
	IssuedAt    time.Time
	Payload     string // text encoded in the QR code; equals ID
	Image       []byte // encoded QR raster
	ImageFormat string // e.g. "PNG"
	State       CredentialState
	RedeemedAt  *time.Time // set together with State=redeemed
	RedeemedBy  *string    // staff username, when known
}

// NewCredential assembles a valid credential with a fresh id and payload.
// The image is attached later by the issuer once the payload is encoded.
func NewCredential(eventName, holderName, holderEmail string, now time.Time) (*Credential, error) {
	verr := domain.NewValidationError()
	if strings.TrimSpace(eventName) == "" {
		verr.Add("eventName", "event name is required")
	}
	if strings.TrimSpace(holderName) == "" {
		verr.Add("holderName", "holder name is required")
	}
	if !verr.Empty() {
		return nil, verr
	}
	id := uuid.NewString()
	return &Credential{
		ID:          id,
		EventName:   eventName,
		HolderName:  holderName,
		HolderEmail: holderEmail,
		IssuedAt:    now.UTC(),
		Payload:     PayloadFor(id),
		State:       CredentialStateValid,
	}, nil
}

// PayloadFor returns the barcode text for a credential id.
func PayloadFor(id string) string { return id }

func (c *Credential) IsRedeemed() bool { return c != nil && c.State == CredentialStateRedeemed }

// Redemption is what the reception terminal is told after a successful scan.
type Redemption struct {
	CredentialID string
	EventName    string
	HolderName   string
	RedeemedAt   time.Time
}
