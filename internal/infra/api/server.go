package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"qr-ticket-system/internal/domain"
	"qr-ticket-system/internal/domain/model"
	"qr-ticket-system/internal/infra/barcode"
	"qr-ticket-system/internal/usecase"
)

const maxBodyBytes = 1 << 20

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	Issue  usecase.IssueUseCase
	Lookup usecase.LookupUseCase
	Redeem usecase.RedeemUseCase
	Staff  usecase.StaffUseCase
	Auth   *AuthManager

	RequestTimeout time.Duration
	ImageWidth     int
}

// Server exposes issuance, lookup, redemption and staff login over HTTP.
type Server struct {
	d   Deps
	log *zerolog.Logger
}

func NewServer(d Deps, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "http").Logger()
	if d.ImageWidth <= 0 {
		d.ImageWidth = 300
	}
	return &Server{d: d, log: &l}
}

// Handler returns the full router with the standard middleware stack.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RealIP,
		TraceID(),
		RequestLog(s.log),
		Recover(s.log),
		Timeout(s.d.RequestTimeout),
	)
	s.Register(r)
	return r
}

// Register attaches all routes to r.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/tickets", s.handleIssueForm)
	r.Post("/api/tickets", s.handleIssueJSON)
	r.Get("/ticket/{id}", s.handleView)
	r.Get("/qrcode/{id}", s.handleImage)

	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)

	r.Route("/reception", func(r chi.Router) {
		r.Use(s.d.Auth.RequireRole(s, model.RoleReception, model.RoleAdmin))
		r.Post("/verify/{id}", s.handleVerify)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.fail(w, r, domain.ErrNotFound)
	})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, s.log, r, err)
}

// ===== issuance =====

func (s *Server) handleIssueForm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		s.fail(w, r, domain.ErrInvalidArgument)
		return
	}
	req := issueRequest{
		EventName:   r.PostFormValue("eventName"),
		HolderName:  firstNonEmpty(r.PostFormValue("holderName"), r.PostFormValue("userName")),
		HolderEmail: firstNonEmpty(r.PostFormValue("holderEmail"), r.PostFormValue("userEmail")),
	}
	s.issue(w, r, req)
}

func (s *Server) handleIssueJSON(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty body")
		}
		s.fail(w, r, fmt.Errorf("decode issue request: %v: %w", err, domain.ErrInvalidArgument))
		return
	}
	s.issue(w, r, req)
}

func (s *Server) issue(w http.ResponseWriter, r *http.Request, req issueRequest) {
	req.normalize()
	if err := req.validate(); err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := s.d.Issue.Issue(r.Context(), req.EventName, req.HolderName, req.HolderEmail)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/ticket/"+c.ID)
	writeJSON(w, http.StatusCreated, toView(c))
}

// ===== lookup =====

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	c, err := s.d.Lookup.GetByID(r.Context(), chi.URLParam(r, "id"))
	if wantsHTML(r) {
		switch {
		case err == nil:
			renderTicket(w, http.StatusOK, c, s.d.ImageWidth)
		case errors.Is(err, domain.ErrNotFound):
			renderTicket(w, http.StatusNotFound, nil, s.d.ImageWidth)
		default:
			s.fail(w, r, err)
		}
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toView(c))
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	img, format, err := s.d.Lookup.GetImage(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", barcode.ContentType(format))
	w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}

// wantsHTML reports whether the client prefers an HTML page over JSON.
func wantsHTML(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html") && !strings.Contains(accept, "application/json")
}

// ===== redemption =====

type verifyResponse struct {
	Valid      bool      `json:"valid"`
	Message    string    `json:"message"`
	EventName  string    `json:"eventName"`
	HolderName string    `json:"holderName"`
	RedeemedAt time.Time `json:"redeemedAt"`
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	staff := ""
	if c := claimsFrom(r.Context()); c != nil {
		staff = c.Subject
	}
	red, err := s.d.Redeem.Redeem(r.Context(), chi.URLParam(r, "id"), staff)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{
		Valid:      true,
		Message:    "ticket valid and redeemed",
		EventName:  red.EventName,
		HolderName: red.HolderName,
		RedeemedAt: red.RedeemedAt,
	})
}

// ===== staff session =====

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.fail(w, r, domain.ErrInvalidArgument)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			s.fail(w, r, domain.ErrInvalidArgument)
			return
		}
		req.Username, req.Password = r.PostFormValue("username"), r.PostFormValue("password")
	}

	acc, err := s.d.Staff.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	token, exp, err := s.d.Auth.Mint(w, acc)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, Role: string(acc.Role), ExpiresAt: exp})
}

func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	s.d.Auth.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

// ===== representation =====

type credentialView struct {
	ID          string     `json:"id"`
	EventName   string     `json:"eventName"`
	HolderName  string     `json:"holderName"`
	HolderEmail string     `json:"holderEmail"`
	IssuedAt    time.Time  `json:"issuedAt"`
	Payload     string     `json:"payload"`
	State       string     `json:"state"`
	Valid       bool       `json:"valid"`
	ImageFormat string     `json:"imageFormat"`
	Image       []byte     `json:"image,omitempty"` // base64 in JSON
	RedeemedAt  *time.Time `json:"redeemedAt,omitempty"`
	RedeemedBy  *string    `json:"redeemedBy,omitempty"`
}

func toView(c *model.Credential) credentialView {
	return credentialView{
		ID:          c.ID,
		EventName:   c.EventName,
		HolderName:  c.HolderName,
		HolderEmail: c.HolderEmail,
		IssuedAt:    c.IssuedAt,
		Payload:     c.Payload,
		State:       string(c.State),
		Valid:       !c.IsRedeemed(),
		ImageFormat: c.ImageFormat,
		Image:       c.Image,
		RedeemedAt:  c.RedeemedAt,
		RedeemedBy:  c.RedeemedBy,
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
