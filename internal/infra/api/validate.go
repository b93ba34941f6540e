package api

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"qr-ticket-system/internal/domain"
)

type issueRequest struct {
	EventName   string `json:"eventName"`
	HolderName  string `json:"holderName"`
	HolderEmail string `json:"holderEmail"`
}

func (q *issueRequest) normalize() {
	q.EventName = strings.TrimSpace(q.EventName)
	q.HolderName = strings.TrimSpace(q.HolderName)
	q.HolderEmail = strings.TrimSpace(q.HolderEmail)
}

// validate returns nil or a *domain.ValidationError keyed by JSON field name.
func (q issueRequest) validate() error {
	ve := domain.NewValidationError()

	checkLength(ve, "eventName", q.EventName, 3, 200, "event name is required", "event name must be between 3 and 200 characters")
	checkLength(ve, "holderName", q.HolderName, 2, 100, "holder name is required", "holder name must be between 2 and 100 characters")

	switch {
	case q.HolderEmail == "":
		ve.Add("holderEmail", "email is required")
	case !validEmail(q.HolderEmail):
		ve.Add("holderEmail", "invalid email format")
	}

	if ve.Empty() {
		return nil
	}
	return ve
}

func checkLength(ve *domain.ValidationError, field, v string, lo, hi int, requiredMsg, rangeMsg string) {
	if v == "" {
		ve.Add(field, requiredMsg)
		return
	}
	if n := utf8.RuneCountInString(v); n < lo || n > hi {
		ve.Add(field, rangeMsg)
	}
}

// validEmail accepts a bare address only: no display name, no angle brackets.
func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	return addr.Name == "" && addr.Address == s
}
