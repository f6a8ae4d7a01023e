package access

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/localnerve/luvnest/internal/clock"
)

// ErrInvalidToken is returned for unlock tokens that fail verification.
var ErrInvalidToken = errors.New("invalid unlock token")

// UnlockClaims binds an unlock token to a page and to the password in force
// when it was issued.
type UnlockClaims struct {
	jwt.RegisteredClaims
	PageID      string `json:"pid"`
	Fingerprint string `json:"fp"`
}

// Unlocker issues and verifies password unlock tokens. Tokens are the only
// record of an unlock; nothing is stored server side.
type Unlocker struct {
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
}

// NewUnlocker creates an Unlocker signing with secret.
func NewUnlocker(secret string, ttl time.Duration, clk clock.Clock) *Unlocker {
	return &Unlocker{secret: []byte(secret), ttl: ttl, clock: clk}
}

// Fingerprint derives a short, non-reversible tag from a password hash so a
// password change invalidates outstanding tokens.
func Fingerprint(passwordHash string) string {
	sum := sha256.Sum256([]byte(passwordHash))
	return hex.EncodeToString(sum[:8])
}

// Issue signs a token for pageID.
func (u *Unlocker) Issue(pageID, fingerprint string) (string, error) {
	now := u.clock.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, UnlockClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(u.ttl)),
			Subject:   pageID,
		},
		PageID:      pageID,
		Fingerprint: fingerprint,
	})
	return token.SignedString(u.secret)
}

// Verify checks that token unlocks pageID under the current fingerprint.
func (u *Unlocker) Verify(token, pageID, fingerprint string) error {
	if token == "" {
		return ErrInvalidToken
	}
	claims := &UnlockClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return u.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(u.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return ErrInvalidToken
	}
	if claims.PageID != pageID || claims.Fingerprint != fingerprint {
		return ErrInvalidToken
	}
	return nil
}
