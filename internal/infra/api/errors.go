package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"qr-ticket-system/internal/domain"
	"qr-ticket-system/internal/infra/logging"
)

type errorBody struct {
	Timestamp time.Time         `json:"timestamp"`
	Status    int               `json:"status"`
	Message   string            `json:"message,omitempty"`
	Errors    map[string]string `json:"errors,omitempty"`
}

// statusFor maps domain errors onto HTTP statuses and client-safe messages.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "ticket not found"
	case errors.Is(err, domain.ErrAlreadyRedeemed):
		return http.StatusConflict, "ticket already used"
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "ticket already exists"
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid request"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "authentication required"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "access denied"
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "too many requests"
	case errors.Is(err, domain.ErrEncoding):
		return http.StatusInternalServerError, "QR code generation failed"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func writeError(w http.ResponseWriter, logger *zerolog.Logger, r *http.Request, err error) {
	body := errorBody{Timestamp: time.Now().UTC()}

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		body.Status = http.StatusBadRequest
		body.Errors = ve.Fields
	} else {
		body.Status, body.Message = statusFor(err)
	}

	l := logging.With(r.Context(), logger)
	if body.Status >= http.StatusInternalServerError {
		l.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	} else {
		l.Debug().Err(err).Int("status", body.Status).Msg("request rejected")
	}
	writeJSON(w, body.Status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
