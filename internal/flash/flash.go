// Package flash carries one action Result across a POST-redirect-GET in a
// signed, short-lived cookie.
package flash

import (
	"errors"
	"net/http"
	"time"
	"unicode/utf8"

	"paperdash/internal/trading"

	"github.com/golang-jwt/jwt/v5"
)

const (
	CookieName = "paperdash_flash"
	issuer     = "paperdash"

	// MaxMessage keeps the signed cookie well under the 4096 byte limit
	// browsers enforce.
	MaxMessage = 1024
	maxToken   = 3500
)

type claims struct {
	jwt.RegisteredClaims
	Message string `json:"msg"`
	Failed  bool   `json:"failed,omitempty"`
}

type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSigner(secret []byte, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Signer{secret: secret, ttl: ttl, now: time.Now}
}

// Issue signs res. Long messages are shortened until the token fits in a
// cookie; JSON escaping can grow markup several times over.
func (s *Signer) Issue(res trading.Result) (string, error) {
	now := s.now().UTC()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Message: truncate(res.Message, MaxMessage),
		Failed:  res.Failed,
	}
	for {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
		if err != nil || len(token) <= maxToken || c.Message == "" {
			return token, err
		}
		c.Message = truncate(c.Message, len(c.Message)/2)
	}
}

func (s *Signer) Parse(token string) (trading.Result, error) {
	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return trading.Result{}, err
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return trading.Result{}, errors.New("invalid flash token")
	}
	return trading.Result{Message: c.Message, Failed: c.Failed}, nil
}

// Set stores res for the next page render.
func (s *Signer) Set(w http.ResponseWriter, r *http.Request, res trading.Result) error {
	token, err := s.Issue(res)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Pop reads and clears the pending Result. A missing, expired or tampered
// cookie yields false.
func (s *Signer) Pop(w http.ResponseWriter, r *http.Request) (trading.Result, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return trading.Result{}, false
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	res, err := s.Parse(cookie.Value)
	if err != nil {
		return trading.Result{}, false
	}
	return res, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
