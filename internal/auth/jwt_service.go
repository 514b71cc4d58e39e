package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"letterdesk/internal/model"
)

const (
	// AccessTokenExpiry is the duration for which access tokens are valid.
	AccessTokenExpiry = 15 * time.Minute
	// RefreshTokenExpiry is the duration for which refresh tokens are valid.
	RefreshTokenExpiry = 7 * 24 * time.Hour
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var (
	// ErrInvalidToken is returned for malformed, expired or wrongly signed tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrWrongTokenType is returned when a refresh token is used as access token or vice versa.
	ErrWrongTokenType = errors.New("wrong token type")
)

// Claims represents JWT claims.
type Claims struct {
	UserID uint       `json:"user_id"`
	Email  string     `json:"email"`
	Role   model.Role `json:"role"`
	Type   string     `json:"typ"`
	jwt.RegisteredClaims
}

// JWTService handles JWT token generation and validation.
type JWTService struct {
	secret []byte
	now    func() time.Time
}

// NewJWTService creates a new JWT service with the given secret.
func NewJWTService(secret string) *JWTService {
	return &JWTService{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// GenerateAccessToken generates a new access token for the user.
// The token ID is returned so the token can be revoked before it expires.
func (s *JWTService) GenerateAccessToken(user *model.User) (tokenID string, token string, err error) {
	return s.sign(user, tokenTypeAccess, AccessTokenExpiry)
}

// GenerateRefreshToken generates a new refresh token for the user.
// The refresh token ID is returned separately for storage in Redis.
func (s *JWTService) GenerateRefreshToken(user *model.User) (tokenID string, token string, err error) {
	return s.sign(user, tokenTypeRefresh, RefreshTokenExpiry)
}

func (s *JWTService) sign(user *model.User, typ string, ttl time.Duration) (string, string, error) {
	now := s.now()
	tokenID := uuid.New().String()
	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", "", err
	}
	return tokenID, token, nil
}

// ValidateToken validates a JWT token and returns the claims.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateAccessToken validates tokenString and requires it to be an access token.
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.validateType(tokenString, tokenTypeAccess)
}

// ValidateRefreshToken validates tokenString and requires it to be a refresh token.
func (s *JWTService) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return s.validateType(tokenString, tokenTypeRefresh)
}

func (s *JWTService) validateType(tokenString, typ string) (*Claims, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != typ {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}
