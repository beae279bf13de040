package jwtauth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "tracelot/pkg/domain"
	dErrors "tracelot/pkg/domain-errors"
)

// Claims carries the holder identity asserted by an access token.
type Claims struct {
	HolderID string `json:"holder_id"`
	jwt.RegisteredClaims
}

// Service issues and validates HS256 holder tokens.
type Service struct {
	signingKey []byte
	issuer     string
	audience   string
}

func New(signingKey string, issuer string, audience string) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// IssueToken mints an access token asserting the holder identity.
func (s *Service) IssueToken(holder id.HolderID, expiresIn time.Duration) (string, error) {
	if err := holder.Validate(); err != nil {
		return "", err
	}

	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		HolderID: holder.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})

	return newToken.SignedString(s.signingKey)
}

// VerifyToken validates the token and returns the holder identity it
// asserts. Satisfies middleware.HolderVerifier.
func (s *Service) VerifyToken(tokenString string) (id.HolderID, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return id.HolderNone, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return id.HolderNone, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	if !parsed.Valid {
		return id.HolderNone, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return id.HolderNone, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	return id.ParseHolderID(claims.HolderID)
}
