package demoauth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/cors"

	goSession "github.com/MrEthical07/goSession"
)

const (
	emailUnverifiedDetail = "Please verify your email address before logging in."
	maxRequestBytes       = 64 << 10
)

// Server exposes a Directory and an Issuer as the accounts API.
type Server struct {
	dir      *Directory
	issuer   *Issuer
	logger   *slog.Logger
	validate *validator.Validate
	origins  []string
}

// ServerOption customizes a Server.
type ServerOption func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

// WithAllowedOrigins enables CORS for the given browser origins.
func WithAllowedOrigins(origins ...string) ServerOption {
	return func(s *Server) { s.origins = origins }
}

// NewServer wires dir and issuer behind the HTTP API.
func NewServer(dir *Directory, issuer *Issuer, opts ...ServerOption) *Server {
	s := &Server{
		dir:      dir,
		issuer:   issuer,
		logger:   slog.New(slog.DiscardHandler),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed API, wrapped in CORS when origins were given.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Route("/accounts", func(r chi.Router) {
		r.Post("/login/", s.handleLogin)
		r.Post("/register/", s.handleRegister)
		r.Get("/profile/", s.handleProfile)
		r.Patch("/profile/", s.handlePatchProfile)
	})
	if len(s.origins) == 0 {
		return r
	}
	return cors.New(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(r)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=10"`
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
}

type loginData struct {
	User   goSession.User        `json:"user"`
	Tokens goSession.Credentials `json:"tokens"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decode(w, r, &req) {
		return
	}

	user, err := s.dir.Authenticate(req.Email, req.Password)
	switch {
	case errors.Is(err, ErrUnverified):
		writeError(w, http.StatusForbidden, "Email not verified.", map[string][]string{
			"email": {emailUnverifiedDetail},
		})
		return
	case errors.Is(err, ErrBadCredentials):
		writeMessage(w, http.StatusUnauthorized, "Invalid email or password.")
		return
	case err != nil:
		s.internalError(w, r, "authenticate", err)
		return
	}

	creds, err := s.issuer.Issue(user)
	if err != nil {
		s.internalError(w, r, "issue tokens", err)
		return
	}
	s.logger.InfoContext(r.Context(), "login", slog.String("user_id", user.ID), slog.String("role", user.Role.String()))
	writeData(w, http.StatusOK, loginData{User: user, Tokens: creds})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !s.decode(w, r, &req) {
		return
	}

	user, err := s.dir.Register(req.Email, req.Password, req.FirstName, req.LastName)
	if errors.Is(err, ErrEmailTaken) {
		writeError(w, http.StatusBadRequest, "Registration failed.", map[string][]string{
			"email": {"A user with this email already exists."},
		})
		return
	}
	if err != nil {
		s.internalError(w, r, "register", err)
		return
	}
	writeData(w, http.StatusCreated, map[string]goSession.User{"user": user})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	writeData(w, http.StatusOK, goSession.PatchFromUser(user))
}

func (s *Server) handlePatchProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var patch goSession.UserPatch
	if !s.decode(w, r, &patch) {
		return
	}

	updated, err := s.dir.UpdateProfile(user.ID, patch)
	if err != nil {
		s.internalError(w, r, "update profile", err)
		return
	}
	writeData(w, http.StatusOK, goSession.PatchFromUser(updated))
}

func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (goSession.User, bool) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		writeMessage(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return goSession.User{}, false
	}
	claims, err := s.issuer.ParseAccess(token)
	if err != nil {
		s.logger.DebugContext(r.Context(), "rejected bearer token", slog.Any("error", err))
		writeMessage(w, http.StatusUnauthorized, "Given token not valid for any token type.")
		return goSession.User{}, false
	}
	user, err := s.dir.Lookup(claims.UID)
	if err != nil {
		writeMessage(w, http.StatusUnauthorized, "User not found.")
		return goSession.User{}, false
	}
	return user, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(dst); err != nil {
		writeMessage(w, http.StatusBadRequest, "Malformed request body.")
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			// Not a struct with rules; nothing to check.
			return true
		}
		writeError(w, http.StatusBadRequest, "Validation failed.", fieldErrors(err))
		return false
	}
	return true
}

func fieldErrors(err error) map[string][]string {
	out := make(map[string][]string)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return out
	}
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		if field == "firstname" {
			field = "first_name"
		} else if field == "lastname" {
			field = "last_name"
		}
		out[field] = append(out[field], "Invalid value ("+fe.Tag()+").")
	}
	return out
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.logger.ErrorContext(r.Context(), op+" failed", slog.Any("error", err))
	writeMessage(w, http.StatusInternalServerError, "Internal server error.")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, map[string]any{"data": data})
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func writeError(w http.ResponseWriter, status int, message string, details map[string][]string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{"message": message, "details": details},
	})
}
