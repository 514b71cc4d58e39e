package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"letterdesk/internal/cache"
)

const (
	refreshTokenKeyPrefix = "refresh_token:"
	accessTokenKeyPrefix  = "blacklist:access_token:"
)

// ErrRefreshTokenNotFound is returned when a refresh token was revoked or expired.
var ErrRefreshTokenNotFound = errors.New("refresh token not found")

// TokenStoreInterface defines the interface for token storage operations.
type TokenStoreInterface interface {
	StoreRefreshToken(ctx context.Context, tokenID string, userID uint, ttl time.Duration) error
	GetRefreshToken(ctx context.Context, tokenID string) (userID uint, err error)
	DeleteRefreshToken(ctx context.Context, tokenID string) error
	BlacklistAccessToken(ctx context.Context, tokenID string, ttl time.Duration) error
	IsAccessTokenBlacklisted(ctx context.Context, tokenID string) (bool, error)
}

// TokenStore handles storage and retrieval of tokens in Redis.
type TokenStore struct {
	cache *cache.Client
}

var _ TokenStoreInterface = (*TokenStore)(nil)

// NewTokenStore creates a new token store.
func NewTokenStore(cache *cache.Client) *TokenStore {
	return &TokenStore{cache: cache}
}

type refreshTokenRecord struct {
	UserID uint `json:"user_id"`
}

// StoreRefreshToken stores a refresh token in Redis with TTL.
func (s *TokenStore) StoreRefreshToken(ctx context.Context, tokenID string, userID uint, ttl time.Duration) error {
	payload, err := json.Marshal(refreshTokenRecord{UserID: userID})
	if err != nil {
		return fmt.Errorf("marshal token data: %w", err)
	}
	return s.cache.Set(ctx, refreshTokenKeyPrefix+tokenID, payload, ttl)
}

// GetRefreshToken retrieves the owner of a refresh token.
func (s *TokenStore) GetRefreshToken(ctx context.Context, tokenID string) (uint, error) {
	data, _ := s.cache.Get(ctx, refreshTokenKeyPrefix+tokenID)
	if data == nil {
		return 0, ErrRefreshTokenNotFound
	}

	var rec refreshTokenRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return 0, fmt.Errorf("unmarshal token data: %w", err)
	}
	return rec.UserID, nil
}

// DeleteRefreshToken removes a refresh token from Redis.
func (s *TokenStore) DeleteRefreshToken(ctx context.Context, tokenID string) error {
	return s.cache.Delete(ctx, refreshTokenKeyPrefix+tokenID)
}

// BlacklistAccessToken adds an access token to the blacklist until it expires.
func (s *TokenStore) BlacklistAccessToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.cache.Set(ctx, accessTokenKeyPrefix+tokenID, []byte("1"), ttl)
}

// IsAccessTokenBlacklisted checks if an access token is blacklisted.
// Redis being unavailable reads as not blacklisted.
func (s *TokenStore) IsAccessTokenBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	data, _ := s.cache.Get(ctx, accessTokenKeyPrefix+tokenID)
	return data != nil, nil
}
