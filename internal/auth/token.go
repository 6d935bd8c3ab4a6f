package auth

import (
	"crypto/hmac"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/taskforge/task-manager/internal/clock"
	"github.com/taskforge/task-manager/internal/domain"
)

// Errors returned by Verify. Callers distinguish them with errors.Is but
// must answer every one of them with the same 401.
var (
	ErrMalformed        = errors.New("auth: malformed token")
	ErrInvalidSignature = errors.New("auth: invalid token signature")
	ErrExpired          = errors.New("auth: token expired")
)

// PrincipalClaims is what a token asserts about its bearer.
type PrincipalClaims struct {
	SubjectID int64
	Role      domain.Role
}

// Claims describes the JWT payload.
type Claims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 access tokens. It holds no
// per-token state: there is no revocation list, so a token stays valid
// until it expires and the TTL is the only bound on a leaked token.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
}

// NewTokenService builds a service signing with secret.
func NewTokenService(secret string, ttl time.Duration, clk clock.Clock) *TokenService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, clock: clk}
}

// TTL returns the lifetime of issued tokens.
func (ts *TokenService) TTL() time.Duration {
	return ts.ttl
}

// Issue signs a token for the principal and returns it with its expiry.
func (ts *TokenService) Issue(pc PrincipalClaims) (string, time.Time, error) {
	if !pc.Role.Valid() {
		return "", time.Time{}, fmt.Errorf("auth: cannot issue token for role %q", pc.Role)
	}

	// NumericDate has second precision; truncate so the reported expiry
	// matches the signed claim exactly.
	now := ts.clock.Now().Truncate(time.Second)
	expiresAt := now.Add(ts.ttl)
	claims := &Claims{
		Role: pc.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(pc.SubjectID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(ts.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// Verify checks the token and returns the principal it names.
//
// The signature over the raw signing input is compared before anything
// is decoded, so any alteration of a token we issued reports
// ErrInvalidSignature. ErrMalformed is reserved for input that cannot be
// split at all or that carries our signature but an unusable payload.
func (ts *TokenService) Verify(tokenStr string) (Principal, error) {
	dot := strings.LastIndexByte(tokenStr, '.')
	if dot <= 0 {
		return Principal{}, ErrMalformed
	}

	expected, err := ts.signature(tokenStr[:dot])
	if err != nil {
		return Principal{}, err
	}
	if !hmac.Equal([]byte(tokenStr[dot+1:]), []byte(expected)) {
		return Principal{}, ErrInvalidSignature
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(ts.clock.Now),
		jwt.WithExpirationRequired(),
	)
	claims := &Claims{}
	if _, err := parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return ts.secret, nil
	}); err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Principal{}, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Principal{}, ErrInvalidSignature
		default:
			return Principal{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}

	subjectID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: subject %q", ErrMalformed, claims.Subject)
	}
	if !claims.Role.Valid() {
		return Principal{}, fmt.Errorf("%w: role %q", ErrMalformed, claims.Role)
	}
	return Principal{SubjectID: subjectID, Role: claims.Role}, nil
}

func (ts *TokenService) signature(signingInput string) (string, error) {
	sig, err := jwt.SigningMethodHS256.Sign(signingInput, ts.secret)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(sig), nil
}
