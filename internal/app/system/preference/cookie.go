package preference

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/securecookie"
	"go.uber.org/zap"
)

// CookieOptions controls the preference cookie.
type CookieOptions struct {
	Name   string
	Domain string
	Secure bool
	MaxAge time.Duration
}

// CookieStorage stores values in one signed cookie scoped to the browser.
// It is bound to a single request/response pair.
type CookieStorage struct {
	codec *securecookie.SecureCookie
	opts  CookieOptions
	w     http.ResponseWriter

	mu     sync.Mutex
	values map[string]string
}

// NewCodec returns the signing codec for preference cookies.
func NewCodec(signingKey string, maxAge time.Duration) *securecookie.SecureCookie {
	codec := securecookie.New([]byte(signingKey), nil)
	if maxAge > 0 {
		codec.MaxAge(int(maxAge.Seconds()))
	}
	return codec
}

// NewCookieStorage decodes the preference cookie from r, if present. A
// missing or tampered cookie yields an empty storage.
func NewCookieStorage(codec *securecookie.SecureCookie, opts CookieOptions, w http.ResponseWriter, r *http.Request) *CookieStorage {
	cs := &CookieStorage{
		codec:  codec,
		opts:   opts,
		w:      w,
		values: make(map[string]string),
	}
	if c, err := r.Cookie(opts.Name); err == nil {
		_ = codec.Decode(opts.Name, c.Value, &cs.values)
	}
	return cs
}

func (c *CookieStorage) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	return v, ok
}

// Set updates the value and emits a Set-Cookie header. If the response has
// already been committed the header is dropped by net/http.
func (c *CookieStorage) Set(key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.values[key] == value {
		return nil
	}
	c.values[key] = value

	encoded, err := c.codec.Encode(c.opts.Name, c.values)
	if err != nil {
		return err
	}
	http.SetCookie(c.w, &http.Cookie{
		Name:     c.opts.Name,
		Value:    encoded,
		Path:     "/",
		Domain:   c.opts.Domain,
		MaxAge:   int(c.opts.MaxAge.Seconds()),
		Secure:   c.opts.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Middleware installs a cookie-backed Store in every request context.
func Middleware(codec *securecookie.SecureCookie, opts CookieOptions, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			store := New(NewCookieStorage(codec, opts, w, r), logger)
			next.ServeHTTP(w, r.WithContext(WithStore(r.Context(), store)))
		})
	}
}
