package session

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod defines a public type used by authflow APIs.
//
// SigningMethod instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SigningMethod string

const (
	// MethodEd25519 is an exported constant or variable used by the session verifier.
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 is an exported constant or variable used by the session verifier.
	MethodHS256 SigningMethod = "hs256"
)

// ErrVerifierNotConfigured is an exported constant or variable used by the session verifier.
var ErrVerifierNotConfigured = errors.New("session verifier not configured")

// Config defines a public type used by authflow APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	SigningMethod SigningMethod

	// Key is the verification key: an ed25519 public key (raw, PEM, or
	// base64-wrapped PEM; see [DecodeKey]) or the HS256 shared secret.
	Key []byte

	Issuer   string
	Audience string
	Leeway   time.Duration
}

// Identity is the display identity carried by a session token. It is all a
// UI needs for a user menu and deliberately nothing more.
type Identity struct {
	Subject   string
	Email     string
	Name      string
	Issuer    string
	ExpiresAt time.Time
}

type identityClaims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Verifier defines a public type used by authflow APIs.
//
// Verifier instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Verifier struct {
	config Config
	edKey  ed25519.PublicKey
}

// NewVerifier validates the configuration and prepares the verification key.
// The default signing method is ed25519.
func NewVerifier(cfg Config) (*Verifier, error) {
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.Key) == 0 {
			return nil, errors.New("hs256 requires shared secret")
		}
		return &Verifier{config: cfg}, nil
	case MethodEd25519, "":
		cfg.SigningMethod = MethodEd25519
		key, err := parseEdPublicKey(cfg.Key)
		if err != nil {
			return nil, err
		}
		return &Verifier{config: cfg, edKey: key}, nil
	default:
		return nil, errors.New("unsupported signing method")
	}
}

// Parse verifies raw and returns the identity it carries. Expired,
// mis-signed, and mis-issued tokens all fail; there is no degraded partial
// result.
func (v *Verifier) Parse(raw string) (*Identity, error) {
	if v == nil {
		return nil, ErrVerifierNotConfigured
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{v.method().Alg()}),
	}
	if v.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(v.config.Leeway))
	}
	if v.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(v.config.Issuer))
	}
	if v.config.Audience != "" {
		options = append(options, jwt.WithAudience(v.config.Audience))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(raw, &identityClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != v.method().Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return v.verifyKey(), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*identityClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}

	id := &Identity{
		Subject: claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Issuer:  claims.Issuer,
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}

func (v *Verifier) method() jwt.SigningMethod {
	if v.config.SigningMethod == MethodHS256 {
		return jwt.SigningMethodHS256
	}
	return jwt.SigningMethodEdDSA
}

func (v *Verifier) verifyKey() interface{} {
	if v.config.SigningMethod == MethodHS256 {
		return v.config.Key
	}
	return v.edKey
}

// DecodeKey normalizes key material that deployment tooling may ship
// base64-encoded: when raw does not look like PEM it is base64-decoded
// first, and the result is returned if it does. Anything else is returned
// unchanged for the key parsers to reject.
func DecodeKey(raw []byte) []byte {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "-----BEGIN") {
		return raw
	}

	decoded, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil {
		return raw
	}
	if strings.HasPrefix(strings.TrimSpace(string(decoded)), "-----BEGIN") {
		return decoded
	}
	return raw
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
