package session

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

// Store keeps the single session token on the client. Implementations must
// make Clear idempotent. No expiry is enforced at this layer: callers decide
// whether a token is still usable.
type Store interface {
	Get(r *http.Request) (string, bool)
	Set(w http.ResponseWriter, token string) error
	Clear(w http.ResponseWriter)
}

// Options configures a CookieStore.
type Options struct {
	// Name is the well-known key the token is stored under.
	Name string
	// Secret, when non-empty, seals the cookie value.
	Secret string
	Secure bool
	MaxAge time.Duration
}

// CookieStore stores the session token in a browser cookie.
type CookieStore struct {
	name   string
	secure bool
	maxAge time.Duration
	codec  *securecookie.SecureCookie
	now    func() time.Time
}

// NewCookieStore creates a cookie backed session store.
func NewCookieStore(opts Options) (*CookieStore, error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("cookie name is required")
	}
	if opts.MaxAge <= 0 {
		return nil, fmt.Errorf("cookie max age must be > 0")
	}

	s := &CookieStore{
		name:   opts.Name,
		secure: opts.Secure,
		maxAge: opts.MaxAge,
		now:    time.Now,
	}

	if opts.Secret != "" {
		hashKey, blockKey, err := deriveKeys([]byte(opts.Secret))
		if err != nil {
			return nil, err
		}
		s.codec = securecookie.New(hashKey, blockKey)
		s.codec.MaxAge(int(opts.MaxAge.Seconds()))
	}

	return s, nil
}

// Sealed reports whether cookie values are signed and encrypted.
func (s *CookieStore) Sealed() bool {
	return s.codec != nil
}

// Get returns the token carried by the request. A cookie that cannot be
// unsealed reads as absent.
func (s *CookieStore) Get(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(s.name)
	if err != nil || cookie.Value == "" {
		return "", false
	}

	if s.codec == nil {
		return cookie.Value, true
	}

	var token string
	if err := s.codec.Decode(s.name, cookie.Value, &token); err != nil || token == "" {
		return "", false
	}
	return token, true
}

// Set writes token to the response cookie.
func (s *CookieStore) Set(w http.ResponseWriter, token string) error {
	value := token
	if s.codec != nil {
		encoded, err := s.codec.Encode(s.name, token)
		if err != nil {
			return fmt.Errorf("failed to seal session cookie: %w", err)
		}
		value = encoded
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.maxAge.Seconds()),
		Expires:  s.now().Add(s.maxAge),
	})
	return nil
}

// Clear removes the session cookie. It always emits the deleting cookie, so
// calling it without a session, or twice, is harmless.
func (s *CookieStore) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
