package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/samber/oops"
)

// jwtClaims carries the registered claims plus a microsecond issued-at,
// since NumericDate only keeps whole seconds by default.
type jwtClaims struct {
	jwt.RegisteredClaims
	IssuedAtMicro int64 `json:"iat_us"`
}

// JWTService issues HS256-signed JWTs
type JWTService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTService creates a JWT token service. The secret must be at least 32 bytes.
func NewJWTService(secret []byte, ttl time.Duration) (*JWTService, error) {
	if len(secret) < keySize {
		return nil, oops.Code("AUTH_BAD_TOKEN_KEY").
			With("length", len(secret)).
			Errorf("signing secret must be at least %d bytes", keySize)
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &JWTService{secret: secret, ttl: ttl, now: time.Now}, nil
}

// WithClock replaces the time source, for tests
func (s *JWTService) WithClock(now func() time.Time) *JWTService {
	s.now = now
	return s
}

func (s *JWTService) Issue(subjectID uuid.UUID) (string, time.Time, error) {
	now := s.now().Truncate(issuedAtPrecision)
	// exp is carried in whole seconds
	expiresAt := now.Add(s.ttl).Truncate(time.Second)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   subjectID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		IssuedAtMicro: now.UnixMicro(),
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, oops.Code("AUTH_TOKEN_SIGN_FAILED").Wrap(err)
	}
	return signed, expiresAt, nil
}

func (s *JWTService) Verify(tokenStr string) (*TokenClaims, error) {
	claims := &jwtClaims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	subjectID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}

	issuedAt := time.UnixMicro(claims.IssuedAtMicro)
	if claims.IssuedAtMicro == 0 {
		if claims.IssuedAt == nil {
			return nil, ErrInvalidToken
		}
		issuedAt = claims.IssuedAt.Time
	}

	return &TokenClaims{
		SubjectID: subjectID,
		IssuedAt:  issuedAt,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
