package session

import (
	"strings"
	"sync"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"
)

// ErrNoSession is returned when no one is logged in.
var ErrNoSession = errors.New("not logged in")

// Person is the logged-in user, as returned by the login endpoint.
type Person struct {
	ID       int    `json:"id" mapstructure:"id"`
	Username string `json:"username" mapstructure:"username"`
	Email    string `json:"email" mapstructure:"email"`
	Name     string `json:"nombre" mapstructure:"nombre"`
	Surname  string `json:"apellido" mapstructure:"apellido"`
	Role     string `json:"rol" mapstructure:"rol"`
}

func (p Person) FullName() string {
	return strings.TrimSpace(p.Name + " " + p.Surname)
}

var landings = map[string]string{
	"estudiante": "/dashboard/alumno",
	"tutor":      "/dashboard/tutor",
	"profesor":   "/dashboard/profesor",
	"admin":      "/dashboard/admin",
	"superadmin": "/dashboard/superadmin",
}

// Landing is the dashboard a role lands on after login; false for an unknown role.
func (p Person) Landing() (string, bool) {
	path, ok := landings[strings.ToLower(p.Role)]
	return path, ok
}

// Data is what a Store persists between runs.
type Data struct {
	Token string
	User  Person
}

type Store interface {
	Load() (Data, error)
	Save(Data) error
	Clear() error
}

var nowFunc = time.Now // mockable

// Session holds the auth token and the logged-in user. It is passed explicitly to whatever needs it.
type Session struct {
	scheme string
	store  Store

	mu    sync.RWMutex
	token string
	user  Person
	hooks []func()
}

// New returns an empty session; scheme is the Authorization scheme ("Token" or "Bearer").
// store may be nil for an in-memory session.
func New(scheme string, store Store) *Session {
	if scheme == "" {
		scheme = "Token"
	}
	return &Session{scheme: scheme, store: store}
}

// Restore loads a previously saved session. A missing or expired one leaves the session empty.
func (s *Session) Restore() error {
	if s.store == nil {
		return nil
	}
	data, err := s.store.Load()
	if err != nil {
		if errors.Cause(err) == ErrNoSession {
			return nil
		}
		return errors.Wrap(err, "restoring session")
	}
	s.mu.Lock()
	s.token, s.user = data.Token, data.User
	s.mu.Unlock()

	if s.Expired() {
		return s.clear()
	}
	return nil
}

// Start records a successful login.
func (s *Session) Start(token string, usr Person) error {
	if token == "" {
		return errors.New("empty token")
	}
	s.mu.Lock()
	s.token, s.user = token, usr
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.Save(Data{Token: token, User: usr}); err != nil {
			return errors.Wrap(err, "saving session")
		}
	}
	return nil
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// AuthHeader is the Authorization header value, empty when logged out.
func (s *Session) AuthHeader() string {
	token := s.Token()
	if token == "" {
		return ""
	}
	return s.scheme + " " + token
}

func (s *Session) User() (Person, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user, s.token != ""
}

func (s *Session) Authenticated() bool {
	return s.Token() != "" && !s.Expired()
}

// Expired reports whether the token is a JWT past its "exp" claim.
// Opaque tokens never expire client-side.
func (s *Session) Expired() bool {
	token := s.Token()
	if token == "" || strings.Count(token, ".") != 2 {
		return false
	}
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return false
	}
	return !claims.VerifyExpiresAt(nowFunc().Unix(), false)
}

// OnLogout registers fn to run on Logout, eg. a controller's Discard.
func (s *Session) OnLogout(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}

// Logout forgets the token and user, then runs the logout hooks.
func (s *Session) Logout() error {
	err := s.clear()

	s.mu.RLock()
	hooks := make([]func(), len(s.hooks))
	copy(hooks, s.hooks)
	s.mu.RUnlock()
	for _, fn := range hooks {
		fn()
	}
	return err
}

func (s *Session) clear() error {
	s.mu.Lock()
	s.token, s.user = "", Person{}
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.Clear(); err != nil {
			return errors.Wrap(err, "clearing session")
		}
	}
	return nil
}
