package deskfake

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/bcrypt"

	"github.com/MrEthical07/goDesk/jwt"
	"github.com/MrEthical07/goDesk/middleware"
)

const (
	codeInvalidInput       = "INVALID_INPUT"
	codeInvalidCredentials = "INVALID_CREDENTIALS"
	codeEmailExists        = "EMAIL_ALREADY_EXISTS"
	codeUnauthorized       = "UNAUTHORIZED"
	codeNotFound           = "NOT_FOUND"
)

// Options configures a Server.
type Options struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Secret     []byte
	Logger     *slog.Logger
}

// User is an account known to the fake backend.
type User struct {
	Name     string `json:"name"`
	LastName string `json:"lastname"`
	Email    string `json:"email"`

	passwordHash []byte
}

// Ticket is a minimal helpdesk ticket.
type Ticket struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Creator     string `json:"creator"`
}

// AuthResponse mirrors what the real backend answers on login, registration and refresh.
type AuthResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Name         string `json:"name"`
	LastName     string `json:"lastname"`
	Email        string `json:"email"`
}

// Server is the fake backend. It is safe for concurrent use.
type Server struct {
	jwt    *jwt.Manager
	logger *slog.Logger
	router chi.Router

	mu      sync.RWMutex
	users   map[string]User
	tickets []Ticket
	revoked map[string]time.Time

	refreshCalls  atomic.Int64
	refreshDelay  atomic.Int64
	refreshStatus atomic.Int32
	keepRefresh   atomic.Bool
}

// New builds a Server with one seeded user, ada@example.com / secret.
func New(opts Options) (*Server, error) {
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = 15 * time.Minute
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = 7 * 24 * time.Hour
	}
	if len(opts.Secret) == 0 {
		opts.Secret = []byte("deskfake-signing-secret-0123456789")
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	m, err := jwt.NewManager(jwt.Config{
		AccessTTL:     opts.AccessTTL,
		RefreshTTL:    opts.RefreshTTL,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    opts.Secret,
		Issuer:        "deskfake",
	})
	if err != nil {
		return nil, err
	}

	s := &Server{
		jwt:     m,
		logger:  opts.Logger,
		users:   make(map[string]User),
		revoked: make(map[string]time.Time),
		tickets: []Ticket{
			{ID: 1, Title: "Printer offline", Description: "3rd floor printer", Status: "open", Creator: "ada@example.com"},
			{ID: 2, Title: "VPN drops", Description: "Disconnects hourly", Status: "pending", Creator: "ada@example.com"},
		},
	}
	hash, err := hashPassword("secret")
	if err != nil {
		return nil, err
	}
	s.users["ada@example.com"] = User{Name: "Ada", LastName: "Lovelace", Email: "ada@example.com", passwordHash: hash}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/register", s.handleRegister)
		r.Post("/refresh", s.handleRefresh)
		r.Post("/revoke", s.handleRevoke)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireBearerStrict(s.jwt, s))
		r.Get("/me", s.handleMe)
		r.Get("/tickets", s.handleListTickets)
		r.Post("/tickets", s.handleCreateTicket)
		r.Get("/tickets/{id}", s.handleGetTicket)
		r.Get("/articles", s.handleArticles)
		r.Get("/categories", s.handleCategories)
	})

	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

/*
====================================
TEST KNOBS
====================================
*/

// RefreshCalls returns how many times /auth/refresh was hit.
func (s *Server) RefreshCalls() int64 { return s.refreshCalls.Load() }

// SetRefreshDelay makes /auth/refresh wait d before answering.
func (s *Server) SetRefreshDelay(d time.Duration) { s.refreshDelay.Store(int64(d)) }

// FailRefresh makes /auth/refresh answer status. Zero restores normal behavior.
func (s *Server) FailRefresh(status int) { s.refreshStatus.Store(int32(status)) }

// KeepRefreshToken stops refresh token rotation: refresh answers omit refresh_token.
func (s *Server) KeepRefreshToken(keep bool) { s.keepRefresh.Store(keep) }

// IssueAccess signs an access token for email with an explicit lifetime; a negative ttl
// yields an expired token.
func (s *Server) IssueAccess(email string, ttl time.Duration) (string, error) {
	return s.jwt.CreateWithTTL(email, jwt.KindAccess, ttl)
}

// IssueRefresh signs a refresh token for email.
func (s *Server) IssueRefresh(email string) (string, error) {
	return s.jwt.CreateRefresh(email)
}

// IsRevoked implements middleware.RevocationChecker.
func (s *Server) IsRevoked(_ context.Context, claims *jwt.Claims) (bool, error) {
	if claims == nil {
		return false, errors.New("nil claims")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.revoked[claims.ID]
	return ok, nil
}

/*
====================================
AUTH HANDLERS
====================================
*/

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name     string `json:"name"`
	LastName string `json:"lastname"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "invalid JSON body")
		return
	}

	s.mu.RLock()
	u, ok := s.users[strings.ToLower(req.Email)]
	s.mu.RUnlock()
	if !ok || bcrypt.CompareHashAndPassword(u.passwordHash, []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, codeInvalidCredentials, "invalid email or password")
		return
	}

	s.writeGrant(w, http.StatusOK, u, true)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "name, email and password are required")
		return
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "password cannot be used")
		return
	}

	email := strings.ToLower(req.Email)
	s.mu.Lock()
	if _, exists := s.users[email]; exists {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, codeEmailExists, "email already registered")
		return
	}
	u := User{Name: req.Name, LastName: req.LastName, Email: email, passwordHash: hash}
	s.users[email] = u
	s.mu.Unlock()

	s.writeGrant(w, http.StatusCreated, u, true)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.refreshCalls.Add(1)

	if d := time.Duration(s.refreshDelay.Load()); d > 0 {
		select {
		case <-time.After(d):
		case <-r.Context().Done():
			return
		}
	}
	if status := int(s.refreshStatus.Load()); status != 0 {
		writeError(w, status, codeUnauthorized, "refresh rejected")
		return
	}

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "invalid JSON body")
		return
	}

	claims, err := s.jwt.Parse(req.RefreshToken, jwt.KindRefresh)
	if err != nil {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid token")
		return
	}
	if revoked, _ := s.IsRevoked(r.Context(), claims); revoked {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "token has been revoked")
		return
	}

	s.mu.RLock()
	u, ok := s.users[claims.Subject]
	s.mu.RUnlock()
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "user not found")
		return
	}

	s.logger.Debug("deskfake: token refreshed", slog.String("subject", u.Email))
	s.writeGrant(w, http.StatusOK, u, !s.keepRefresh.Load())
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "invalid authorization format")
		return
	}

	// Revoking an invalid or expired token is not an error.
	if claims, err := s.jwt.Parse(token, jwt.KindAccess); err == nil {
		s.mu.Lock()
		s.revoked[claims.ID] = claims.ExpiresAt.Time
		s.mu.Unlock()
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "token revoked successfully"})
}

func (s *Server) writeGrant(w http.ResponseWriter, status int, u User, withRefresh bool) {
	access, err := s.jwt.CreateAccess(u.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL", "failed to generate token")
		return
	}
	resp := AuthResponse{Token: access, Name: u.Name, LastName: u.LastName, Email: u.Email}
	if withRefresh {
		resp.RefreshToken, err = s.jwt.CreateRefresh(u.Email)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "INTERNAL", "failed to generate refresh token")
			return
		}
	}
	writeJSON(w, status, resp)
}

/*
====================================
PROTECTED HANDLERS
====================================
*/

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())
	s.mu.RLock()
	u, ok := s.users[claims.Subject]
	s.mu.RUnlock()
	if !ok {
		writeError(w, http.StatusNotFound, codeNotFound, "user not found")
		return
	}
	writeEnvelope(w, http.StatusOK, u)
}

func (s *Server) handleListTickets(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	out := append([]Ticket(nil), s.tickets...)
	s.mu.RUnlock()
	writeEnvelope(w, http.StatusOK, out)
}

func (s *Server) handleGetTicket(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "invalid ticket id")
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tickets {
		if t.ID == id {
			writeEnvelope(w, http.StatusOK, t)
			return
		}
	}
	writeError(w, http.StatusNotFound, codeNotFound, "ticket not found")
}

func (s *Server) handleCreateTicket(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Title == "" {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "title is required")
		return
	}
	claims, _ := middleware.ClaimsFromContext(r.Context())

	s.mu.Lock()
	t := Ticket{
		ID:          len(s.tickets) + 1,
		Title:       in.Title,
		Description: in.Description,
		Status:      "open",
		Creator:     claims.Subject,
	}
	s.tickets = append(s.tickets, t)
	s.mu.Unlock()

	writeEnvelope(w, http.StatusCreated, t)
}

func (s *Server) handleArticles(w http.ResponseWriter, _ *http.Request) {
	writeEnvelope(w, http.StatusOK, []map[string]any{
		{"id": 1, "title": "Resetting your password", "category_id": 1},
		{"id": 2, "title": "Connecting to the VPN", "category_id": 2},
	})
}

func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	writeEnvelope(w, http.StatusOK, []map[string]any{
		{"id": 1, "name": "Accounts"},
		{"id": 2, "name": "Network"},
	})
}

/*
====================================
RESPONSE HELPERS
====================================
*/

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeEnvelope(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, map[string]any{"success": true, "data": data})
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg, "code": code})
}

// hashPassword hashes at bcrypt.MinCost.
func hashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
}
