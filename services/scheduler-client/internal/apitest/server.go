// Package apitest runs an in-memory scheduling API on an httptest server.
// It implements the REST contract the client speaks, with just enough
// validation to produce every error status the client maps.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	jwtauth "github.com/md-rashed-zaman/slotscheduler/libs/auth"
	"github.com/md-rashed-zaman/slotscheduler/services/scheduler-client/internal/model"
	"golang.org/x/crypto/bcrypt"
)

const defaultSecret = "apitest-secret"

// Request is one recorded call.
type Request struct {
	Method        string
	Path          string
	Query         string
	Authorization string
	ContentType   string
}

type account struct {
	user         model.User
	passwordHash []byte
}

type failure struct {
	status int
	detail string
}

type Server struct {
	*httptest.Server

	Secret   string
	TokenTTL time.Duration

	mu       sync.Mutex
	accounts map[string]*account
	slots    map[string]*model.Slot
	bookings map[string]*model.Booking
	// booking ids in creation order
	bookingOrder []string
	requests     []Request
	failures     []failure
}

// New starts a server that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		Secret:   defaultSecret,
		TokenTTL: time.Hour,
		accounts: make(map[string]*account),
		slots:    make(map[string]*model.Slot),
		bookings: make(map[string]*model.Booking),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/register", s.register)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("GET /api/slots", s.authed(s.listSlots))
	mux.HandleFunc("POST /api/slots", s.admin(s.createSlot))
	mux.HandleFunc("GET /api/slots/{id}", s.authed(s.getSlot))
	mux.HandleFunc("PUT /api/slots/{id}", s.admin(s.updateSlot))
	mux.HandleFunc("DELETE /api/slots/{id}", s.admin(s.deleteSlot))
	mux.HandleFunc("GET /api/bookings/my", s.authed(s.myBookings))
	mux.HandleFunc("GET /api/bookings", s.admin(s.allBookings))
	mux.HandleFunc("POST /api/bookings", s.authed(s.createBooking))
	mux.HandleFunc("GET /api/bookings/{id}", s.authed(s.getBooking))
	mux.HandleFunc("DELETE /api/bookings/{id}", s.authed(s.cancelBooking))

	s.Server = httptest.NewServer(s.record(mux))
	t.Cleanup(s.Close)
	return s
}

// BaseURL is the API root the client is configured with.
func (s *Server) BaseURL() string {
	return s.URL + "/api"
}

// AddUser creates an account directly.
func (s *Server) AddUser(email, password string, role model.UserRole) model.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addAccountLocked(email, "Test", "User", role, hash)
}

func (s *Server) addAccountLocked(email, first, last string, role model.UserRole, hash []byte) model.User {
	now := time.Now().UTC()
	if role == "" {
		role = model.UserRoleUser
	}
	u := model.User{
		ID:        uuid.NewString(),
		Email:     email,
		FirstName: first,
		LastName:  last,
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
		FullName:  strings.TrimSpace(first + " " + last),
	}
	s.accounts[strings.ToLower(email)] = &account{user: u, passwordHash: hash}
	return u
}

// Token signs an access token for u that expires after ttl. A negative ttl
// gives an already expired token.
func (s *Server) Token(u model.User, ttl time.Duration) string {
	now := time.Now()
	token, err := jwtauth.SignHS256(jwtauth.Claims{
		UserID: u.ID,
		Email:  u.Email,
		Role:   string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}, s.Secret)
	if err != nil {
		panic(err)
	}
	return token
}

// FailNext makes the next request answer status with detail, before any
// routing or auth check. Calls queue up.
func (s *Server) FailNext(status int, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{status: status, detail: detail})
}

func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

func (s *Server) LastRequest() (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return Request{}, false
	}
	return s.requests[len(s.requests)-1], true
}

func (s *Server) ResetRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        r.Method,
			Path:          r.URL.Path,
			Query:         r.URL.RawQuery,
			Authorization: r.Header.Get("Authorization"),
			ContentType:   r.Header.Get("Content-Type"),
		})
		var f *failure
		if len(s.failures) > 0 {
			f = &s.failures[0]
			s.failures = s.failures[1:]
		}
		s.mu.Unlock()

		if f != nil {
			writeDetail(w, f.status, f.detail)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type userHandler func(w http.ResponseWriter, r *http.Request, u model.User)

func (s *Server) authed(h userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := jwtauth.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		claims, err := jwtauth.ParseAndVerifyHS256(token, s.Secret)
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		s.mu.Lock()
		acct, found := s.accounts[strings.ToLower(claims.Email)]
		s.mu.Unlock()
		if !found || acct.user.ID != claims.UserID || !acct.user.IsActive {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		h(w, r, acct.user)
	}
}

func (s *Server) admin(h userHandler) http.HandlerFunc {
	return s.authed(func(w http.ResponseWriter, r *http.Request, u model.User) {
		if !u.IsAdmin() {
			writeDetail(w, http.StatusForbidden, "Admin access required")
			return
		}
		h(w, r, u)
	})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req model.UserCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid json body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeValidation(w, "email", "value is not a valid email address")
		return
	}
	if len(req.Password) < 8 {
		writeValidation(w, "password", "String should have at least 8 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	s.mu.Lock()
	if _, exists := s.accounts[strings.ToLower(req.Email)]; exists {
		s.mu.Unlock()
		writeDetail(w, http.StatusBadRequest, "Email already registered")
		return
	}
	u := s.addAccountLocked(req.Email, req.FirstName, req.LastName, req.Role, hash)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req model.UserLogin
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid json body")
		return
	}

	s.mu.Lock()
	acct, ok := s.accounts[strings.ToLower(strings.TrimSpace(req.Email))]
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(req.Password)) != nil {
		writeDetail(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	if !acct.user.IsActive {
		writeDetail(w, http.StatusBadRequest, "Inactive user")
		return
	}

	writeJSON(w, http.StatusOK, model.AuthToken{
		AccessToken: s.Token(acct.user, s.TokenTTL),
		TokenType:   "bearer",
		ExpiresIn:   int(s.TokenTTL / time.Second),
		User:        acct.user,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeValidation(w http.ResponseWriter, field, msg string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"detail": []map[string]any{{
			"loc":  []string{"body", field},
			"msg":  msg,
			"type": "value_error",
		}},
	})
}
