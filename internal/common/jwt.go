package common

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is what a gosocial access token carries.
type Claims struct {
	UserID string `json:"user_id"`
	Handle string `json:"handle"` //custom claim
	jwt.RegisteredClaims
}

// TokenVerifier decodes an opaque credential into a user identity.
type TokenVerifier interface {
	Verify(token string) (*Claims, error)
}

type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewTokenService(secret, issuer string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenService{secret: []byte(secret), issuer: issuer, ttl: ttl}
}

// GenerateToken issues a token. Issuance is owned by the account service; this
// exists for tooling and tests that need a credential the verifier accepts.
func (s *TokenService) GenerateToken(userID, handle string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Handle: handle,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Subject:   userID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify validates the signature and expiry and maps every failure onto a
// distinguishable authentication reason.
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, Unauthenticated(ReasonMissingToken, "credential is required", nil)
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, Unauthenticated(ReasonMalformedToken, "credential is malformed", err)
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, Unauthenticated(ReasonExpiredToken, "credential has expired", err)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, Unauthenticated(ReasonInvalidSignature, "credential signature is invalid", err)
		default:
			return nil, Unauthenticated(ReasonInvalidToken, "credential is invalid", err)
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, Unauthenticated(ReasonInvalidToken, "credential is invalid", nil)
	}
	if claims.UserID == "" {
		return nil, Unauthenticated(ReasonInvalidToken, "credential has no subject", nil)
	}
	return claims, nil
}
