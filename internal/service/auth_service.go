package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"letterdesk/internal/auth"
	"letterdesk/internal/model"
	"letterdesk/internal/repository"
)

var (
	// ErrInvalidCredentials is returned when email or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUserAlreadyExists is returned when trying to register an existing user.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrInvalidRefreshToken is returned when refresh token is invalid or expired.
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
)

// TokenPair is returned on login.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthService handles authentication operations.
type AuthService interface {
	Register(ctx context.Context, name, email, password string) (*model.User, error)
	Login(ctx context.Context, email, password string) (*TokenPair, *model.User, error)
	RefreshToken(ctx context.Context, refreshToken string) (accessToken string, err error)
	// Logout revokes refreshToken and, when accessToken is a valid token, blacklists it too.
	Logout(ctx context.Context, refreshToken, accessToken string) error
}

type authService struct {
	userRepo   repository.UserRepository
	jwtService *auth.JWTService
	tokenStore auth.TokenStoreInterface
	bcryptCost int
}

// NewAuthService creates a new authentication service.
func NewAuthService(userRepo repository.UserRepository, jwtService *auth.JWTService, tokenStore auth.TokenStoreInterface, bcryptCost int) AuthService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &authService{
		userRepo:   userRepo,
		jwtService: jwtService,
		tokenStore: tokenStore,
		bcryptCost: bcryptCost,
	}
}

// Register creates a staff account with a hashed password.
func (s *authService) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	email = strings.TrimSpace(email)

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, ErrUserAlreadyExists
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check user existence: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: string(hashedPassword),
		Role:         model.RoleStaff,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		// lost a race against a concurrent registration
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login authenticates a user and returns access and refresh tokens.
func (s *authService) Login(ctx context.Context, email, password string) (*TokenPair, *model.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	_, accessToken, err := s.jwtService.GenerateAccessToken(user)
	if err != nil {
		return nil, nil, fmt.Errorf("generate access token: %w", err)
	}

	tokenID, refreshToken, err := s.jwtService.GenerateRefreshToken(user)
	if err != nil {
		return nil, nil, fmt.Errorf("generate refresh token: %w", err)
	}

	if err := s.tokenStore.StoreRefreshToken(ctx, tokenID, user.ID, auth.RefreshTokenExpiry); err != nil {
		return nil, nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, user, nil
}

// RefreshToken validates a refresh token and returns a new access token.
// The user is reloaded so a changed role takes effect.
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return "", ErrInvalidRefreshToken
	}

	storedUserID, err := s.tokenStore.GetRefreshToken(ctx, claims.ID)
	if err != nil || storedUserID != claims.UserID {
		return "", ErrInvalidRefreshToken
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = s.tokenStore.DeleteRefreshToken(ctx, claims.ID)
			return "", ErrInvalidRefreshToken
		}
		return "", fmt.Errorf("load user: %w", err)
	}

	_, accessToken, err := s.jwtService.GenerateAccessToken(user)
	if err != nil {
		return "", fmt.Errorf("generate access token: %w", err)
	}
	return accessToken, nil
}

func (s *authService) Logout(ctx context.Context, refreshToken, accessToken string) error {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return ErrInvalidRefreshToken
	}

	if err := s.tokenStore.DeleteRefreshToken(ctx, claims.ID); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}

	if accessToken == "" {
		return nil
	}
	access, err := s.jwtService.ValidateAccessToken(accessToken)
	if err != nil {
		return nil
	}
	if err := s.tokenStore.BlacklistAccessToken(ctx, access.ID, access.RemainingTTL()); err != nil {
		return fmt.Errorf("blacklist access token: %w", err)
	}
	return nil
}
