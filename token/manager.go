package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// TypePending marks a token that correlates a login with its
	// pending code verification. It grants no access.
	TypePending = "tmp_token"
	// TypeAccess marks a token granted after successful verification.
	TypeAccess = "access_token"
)

var (
	// ErrExpired reports a token past its expiry.
	ErrExpired = errors.New("token expired")
	// ErrInvalid reports a malformed token, a bad signature, or a
	// token of the wrong purpose.
	ErrInvalid = errors.New("token invalid")
)

// Config holds the signing parameters. Secret is required; the TTLs
// must be positive.
type Config struct {
	Secret     []byte
	PendingTTL time.Duration
	AccessTTL  time.Duration
	Issuer     string
	Leeway     time.Duration
}

// Claims is the payload carried by both token kinds.
type Claims struct {
	UserID    string `json:"user_id"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// Manager signs and parses tokens. Immutable after NewManager.
type Manager struct {
	config Config
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("hs256 requires a secret")
	}
	if cfg.PendingTTL <= 0 || cfg.AccessTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	return &Manager{config: cfg}, nil
}

// CreatePending signs a correlation token for userID.
func (m *Manager) CreatePending(userID string) (string, error) {
	return m.create(userID, TypePending, m.config.PendingTTL)
}

// CreateAccess signs an access token for userID.
func (m *Manager) CreateAccess(userID string) (string, error) {
	return m.create(userID, TypeAccess, m.config.AccessTTL)
}

func (m *Manager) create(userID, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		UserID:    userID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.config.Issuer,
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.config.Secret)
}

// ParsePending validates a correlation token and returns its claims.
func (m *Manager) ParsePending(tokenStr string) (*Claims, error) {
	return m.parse(tokenStr, TypePending)
}

// ParseAccess validates an access token and returns its claims.
func (m *Manager) ParseAccess(tokenStr string) (*Claims, error) {
	return m.parse(tokenStr, TypeAccess)
}

func (m *Manager) parse(tokenStr, wantType string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.config.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalid
	}
	if claims.TokenType != wantType {
		return nil, fmt.Errorf("%w: wrong token type", ErrInvalid)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalid)
	}

	return claims, nil
}
