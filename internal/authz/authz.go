// Package authz implements the privileged-capability check spec §6 requires
// of administrative registry operations (set_default, bind_to_connection's
// explicit-name path): a caller presents a token whose claims carry the
// net_admin capability, adapted from the teacher's gateway/jwt token
// manager but trimmed to the single claim the scheduler's registry cares
// about.
package authz

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CapabilityNetAdmin is the claim value an administrative caller must
// present, standing in for the kernel's CAP_NET_ADMIN check around
// mptcp_set_default_scheduler / mptcp_set_scheduler.
const CapabilityNetAdmin = "net_admin"

var (
	ErrInvalidToken  = errors.New("authz: invalid token")
	ErrExpiredToken  = errors.New("authz: token has expired")
	ErrMissingClaims = errors.New("authz: missing required claims")
)

// Claims is the JWT payload a privileged caller presents to the control
// plane: a subject identity plus a capability list.
type Claims struct {
	Subject      string   `json:"sub"`
	Capabilities []string `json:"cap"`
	jwt.RegisteredClaims
}

// HasNetAdmin reports whether claims grants the net_admin capability.
func HasNetAdmin(claims *Claims) bool {
	if claims == nil {
		return false
	}
	for _, c := range claims.Capabilities {
		if c == CapabilityNetAdmin {
			return true
		}
	}
	return false
}

// Manager verifies and issues capability tokens for the admin HTTP surface.
type Manager struct {
	secret []byte
	expire time.Duration
	issuer string
}

// NewManager creates a capability-token manager.
func NewManager(secret string, expire time.Duration, issuer string) *Manager {
	return &Manager{secret: []byte(secret), expire: expire, issuer: issuer}
}

// IssueToken mints a token for subject carrying the given capabilities.
func (m *Manager) IssueToken(subject string, capabilities []string) (string, error) {
	now := time.Now()
	claims := Claims{
		Subject:      subject,
		Capabilities: capabilities,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expire)),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// VerifyToken parses and validates a presented token, returning its claims.
func (m *Manager) VerifyToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrMissingClaims
	}

	return claims, nil
}
