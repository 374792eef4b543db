// README: Token verification; maps a bearer credential to (subject, role).
package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v4"

	"campusride/internal/types"
)

const (
	RoleRider   = "rider"
	RoleCaptain = "captain"
)

var ErrUnauthorized = errors.New("unauthorized")

// Identity is the trusted principal handed to the core once a credential
// has been verified.
type Identity struct {
	Subject types.ID
	Role    string
}

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Verify parses and validates an HS256 token and returns the embedded
// identity. Any parse, signature, or expiry failure is ErrUnauthorized.
func (v *Verifier) Verify(token string) (Identity, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnauthorized
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Identity{}, ErrUnauthorized
	}
	if c.Subject == "" {
		return Identity{}, ErrUnauthorized
	}
	if c.Role != RoleRider && c.Role != RoleCaptain {
		return Identity{}, ErrUnauthorized
	}
	return Identity{Subject: types.ID(c.Subject), Role: c.Role}, nil
}

// Sign issues a token for the given identity. The CRUD layer owns real
// issuance; this exists for tooling and tests.
func (v *Verifier) Sign(id Identity) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: string(id.Subject),
		},
	})
	return t.SignedString(v.secret)
}
