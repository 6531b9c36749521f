package auth

import (
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/google/uuid"
	"github.com/samber/oops"
)

const (
	tokenIssuer = "natours-api"
	keySize     = 32
)

// PasetoService handles PASETO token creation and validation
// Uses v4.local (symmetric encryption with XChaCha20-Poly1305)
type PasetoService struct {
	symmetricKey paseto.V4SymmetricKey
	ttl          time.Duration
	now          func() time.Time
}

// NewPasetoService creates a PASETO token service. The key must be 32 bytes.
func NewPasetoService(symmetricKey []byte, ttl time.Duration) (*PasetoService, error) {
	if len(symmetricKey) != keySize {
		return nil, oops.Code("AUTH_BAD_TOKEN_KEY").
			With("length", len(symmetricKey)).
			Errorf("symmetric key must be exactly %d bytes", keySize)
	}

	key, err := paseto.V4SymmetricKeyFromBytes(symmetricKey)
	if err != nil {
		return nil, oops.Code("AUTH_BAD_TOKEN_KEY").Wrapf(err, "failed to create symmetric key")
	}

	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	return &PasetoService{
		symmetricKey: key,
		ttl:          ttl,
		now:          time.Now,
	}, nil
}

// WithClock replaces the time source, for tests
func (s *PasetoService) WithClock(now func() time.Time) *PasetoService {
	s.now = now
	return s
}

// Issue generates a new PASETO v4.local token for subjectID
func (s *PasetoService) Issue(subjectID uuid.UUID) (string, time.Time, error) {
	now := s.now().Truncate(issuedAtPrecision)
	// exp is carried in whole seconds
	expiresAt := now.Add(s.ttl).Truncate(time.Second)

	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetSubject(subjectID.String())
	// SetIssuedAt drops sub-second precision
	token.SetString("iat", now.UTC().Format(time.RFC3339Nano))
	token.SetExpiration(expiresAt)

	return token.V4Encrypt(s.symmetricKey, nil), expiresAt, nil
}

// Verify validates a PASETO v4.local token and returns its claims.
// Expiry is checked against the service clock, not the parser's.
func (s *PasetoService) Verify(tokenStr string) (*TokenClaims, error) {
	parser := paseto.NewParserWithoutExpiryCheck()
	parser.AddRule(paseto.IssuedBy(tokenIssuer))

	token, err := parser.ParseV4Local(s.symmetricKey, tokenStr, nil)
	if err != nil {
		return nil, ErrInvalidToken
	}

	subject, err := token.GetSubject()
	if err != nil {
		return nil, ErrInvalidToken
	}
	subjectID, err := uuid.Parse(subject)
	if err != nil {
		return nil, ErrInvalidToken
	}

	issuedAt, err := token.GetIssuedAt()
	if err != nil {
		return nil, ErrInvalidToken
	}

	expiresAt, err := token.GetExpiration()
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !s.now().Before(expiresAt) {
		return nil, ErrExpiredToken
	}

	return &TokenClaims{
		SubjectID: subjectID,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}
