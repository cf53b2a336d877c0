// Package claims reads the role and expiry out of a session token.
//
// Tokens are decoded WITHOUT signature verification. The result only decides
// which pages the portal offers and when it asks for a fresh login; it is not
// authentication. The REST backend verifies every token it receives and stays
// the authority for what a user may actually do.
package claims

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"portal/internal/models"
)

// ErrMalformed is returned for tokens that do not have three segments or
// whose payload is not an encoded JSON object.
var ErrMalformed = errors.New("malformed token")

// Claims defines the structure of the token payload the portal cares about.
type Claims struct {
	Role   string `json:"role,omitempty"`
	UserID string `json:"user_id,omitempty"`
	jwt.RegisteredClaims

	// exp as sent, which may lie outside the range ExpiresAt can hold.
	exp *float64
}

// AccountID returns the user id carried by the token, if any.
func (c *Claims) AccountID() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}

// IsAdmin reports whether the token claims the elevated role.
func (c *Claims) IsAdmin() bool {
	return c.Role == models.RoleAdmin
}

// Expiry returns exp in unix seconds, if the token carries one.
func (c *Claims) Expiry() (float64, bool) {
	if c.exp != nil {
		return *c.exp, true
	}
	if c.ExpiresAt != nil {
		return float64(c.ExpiresAt.UnixMilli()) / 1000, true
	}
	return 0, false
}

// Expired reports whether exp*1000 lies before now in milliseconds.
// A token without exp never expires here.
func (c *Claims) Expired(now time.Time) bool {
	exp, ok := c.Expiry()
	return ok && exp*1000 < float64(now.UnixMilli())
}

// segments written by browsers' btoa use the standard alphabet, JWT
// libraries use the URL alphabet; both are accepted.
var (
	segmentParser    = jwt.NewParser(jwt.WithPaddingAllowed())
	alphabetReplacer = strings.NewReplacer("+", "-", "/", "_")
)

// maxDisplayExp is the last second of year 9999. Larger exp values are kept
// only as numbers.
const maxDisplayExp = 253402300799

// payload is the wire shape of the claims. Fields are decoded loosely: a
// claim of an unexpected type is ignored instead of failing the token.
type payload struct {
	Role   any             `json:"role"`
	UserID json.RawMessage `json:"user_id"`
	Sub    json.RawMessage `json:"sub"`
	Exp    json.RawMessage `json:"exp"`
}

// Decode extracts the claims from token's payload segment. The header and
// signature segments are not inspected.
func Decode(token string) (*Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: expected 3 segments, got %d", ErrMalformed, len(parts))
	}

	raw, err := segmentParser.DecodeSegment(alphabetReplacer.Replace(parts[1]))
	if err != nil {
		return nil, fmt.Errorf("%w: payload is not base64: %v", ErrMalformed, err)
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: payload is not a JSON object", ErrMalformed)
	}

	var p payload
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	claims := &Claims{UserID: rawString(p.UserID)}
	claims.Subject = rawString(p.Sub)
	if role, ok := p.Role.(string); ok {
		claims.Role = role
	}
	if exp, ok := rawNumber(p.Exp); ok {
		claims.exp = &exp
		if math.Abs(exp) <= maxDisplayExp {
			claims.ExpiresAt = jwt.NewNumericDate(time.UnixMilli(int64(exp * 1000)))
		}
	}
	return claims, nil
}

// rawString renders a string or number claim as text. Other types read as "".
func rawString(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// rawNumber reads a numeric claim. Numeric strings count; anything else is
// treated as absent, the way exp*1000 yields NaN in a browser.
func rawNumber(raw json.RawMessage) (float64, bool) {
	if isNull(raw) {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil && !math.IsNaN(f) {
			return f, true
		}
	}
	return 0, false
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(bytes.TrimSpace(raw)) == "null"
}

// New returns claims for role expiring ttl after now.
func New(role string, ttl time.Duration, now time.Time) *Claims {
	return &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
}

// Mint encodes claims into an unsigned token ("alg": "none"). It exists for
// development logins and tests; no backend should accept such a token.
func Mint(c *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, c)
	tokenString, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		return "", fmt.Errorf("failed to encode token: %w", err)
	}
	return tokenString, nil
}
