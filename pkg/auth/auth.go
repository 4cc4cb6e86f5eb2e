package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var jwtAlgorithm = jwt.SigningMethodHS256

var (
	ErrInvalidKey   = errors.New("invalid key format")
	ErrBadSignature = errors.New("invalid signature")
	ErrInvalidToken = errors.New("invalid token")
	ErrNoSecret     = errors.New("signing secret is not configured")
)

// Claims represents the JWT claims. Every token is bound to one tenant.
type Claims struct {
	TenantID string `json:"tenant_id"`
	jwt.RegisteredClaims
}

// Authenticator issues and verifies tenant credentials: HMAC-signed API keys
// of the form "<tenantID>.<hex signature>" and HS256 JWTs.
type Authenticator struct {
	jwtSecret    []byte
	masterSecret []byte
	TokenTTL     time.Duration
}

// New creates an Authenticator. Either secret may be empty, in which case
// the matching credential kind is rejected.
func New(jwtSecret, masterSecret string) *Authenticator {
	return &Authenticator{
		jwtSecret:    []byte(jwtSecret),
		masterSecret: []byte(masterSecret),
		TokenTTL:     24 * time.Hour,
	}
}

// CreateToken creates a new JWT for a subject acting on behalf of tenantID
func (a *Authenticator) CreateToken(tenantID, subject string) (string, error) {
	if len(a.jwtSecret) == 0 {
		return "", ErrNoSecret
	}
	now := time.Now()
	claims := &Claims{
		TenantID: tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.TokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwtAlgorithm, claims)
	return token.SignedString(a.jwtSecret)
}

// VerifyToken verifies a JWT token
func (a *Authenticator) VerifyToken(tokenString string) (*Claims, error) {
	if len(a.jwtSecret) == 0 {
		return nil, ErrNoSecret
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwtAlgorithm {
			return nil, ErrInvalidToken
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.TenantID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GenerateTenantKey creates a signed API key using HMAC-SHA256
func (a *Authenticator) GenerateTenantKey(tenantID string) (string, error) {
	if len(a.masterSecret) == 0 {
		return "", ErrNoSecret
	}
	if tenantID == "" {
		return "", ErrInvalidKey
	}
	return tenantID + "." + a.sign(tenantID), nil
}

// VerifyTenantKey validates an HMAC-signed API key and returns its tenant.
func (a *Authenticator) VerifyTenantKey(key string) (string, error) {
	if len(a.masterSecret) == 0 {
		return "", ErrNoSecret
	}
	i := strings.LastIndex(key, ".")
	if i <= 0 || i == len(key)-1 {
		return "", ErrInvalidKey
	}
	tenantID, provided := key[:i], key[i+1:]

	// constant-time comparison
	if !hmac.Equal([]byte(provided), []byte(a.sign(tenantID))) {
		return "", ErrBadSignature
	}
	return tenantID, nil
}

// Authenticate accepts either credential kind and returns the tenant it
// grants access to. JWTs have exactly two dots; anything else is treated as
// an API key.
func (a *Authenticator) Authenticate(credential string) (string, error) {
	if strings.Count(credential, ".") == 2 {
		if claims, err := a.VerifyToken(credential); err == nil {
			return claims.TenantID, nil
		}
	}
	return a.VerifyTenantKey(credential)
}

func (a *Authenticator) sign(tenantID string) string {
	h := hmac.New(sha256.New, a.masterSecret)
	h.Write([]byte(tenantID))
	return hex.EncodeToString(h.Sum(nil))
}
