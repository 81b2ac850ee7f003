package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"clipshare/internal/config"
	"clipshare/internal/logging"
	"clipshare/internal/model"
	"clipshare/internal/repository"
)

// ExpiredTokenRetention keeps expired refresh tokens around long enough
// for reuse detection to still recognize them.
const ExpiredTokenRetention = 7 * 24 * time.Hour

// AuthService issues access JWTs and rotates refresh tokens with reuse detection.
type AuthService struct {
	refreshTokenRepo repository.RefreshTokenRepository
	config           *config.Config
	logger           *zap.Logger
}

func NewAuthService(refreshTokenRepo repository.RefreshTokenRepository, cfg *config.Config, logger *zap.Logger) *AuthService {
	return &AuthService{
		refreshTokenRepo: refreshTokenRepo,
		config:           cfg,
		logger:           logging.OrNop(logger).Named("auth_service"),
	}
}

// GenerateTokenPair issues a new access token and persists a refresh token.
func (s *AuthService) GenerateTokenPair(ctx context.Context, userID int64, deviceInfo, ipAddress string) (*model.TokenPair, error) {
	pair, _, err := s.issue(ctx, userID, deviceInfo, ipAddress)
	return pair, err
}

// issue returns the stored refresh row too, so rotation can link to it.
func (s *AuthService) issue(ctx context.Context, userID int64, deviceInfo, ipAddress string) (*model.TokenPair, *model.RefreshToken, error) {
	now := time.Now()
	accessToken, err := s.signAccessToken(userID, now)
	if err != nil {
		return nil, nil, fmt.Errorf("sign access token: %w", err)
	}

	raw := uuid.New().String()
	row := &model.RefreshToken{
		UserID:     userID,
		TokenHash:  hashToken(raw),
		ExpiresAt:  now.Add(time.Duration(s.config.RefreshTokenMaxAge) * time.Second),
		DeviceInfo: optional(deviceInfo),
		IPAddress:  optional(ipAddress),
	}
	if err := s.refreshTokenRepo.Create(ctx, row); err != nil {
		return nil, nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &model.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: raw,
		ExpiresIn:    s.config.AccessTokenMaxAge,
	}, row, nil
}

// RefreshTokens rotates a refresh token. Presenting an already revoked
// token revokes every token of that user.
func (s *AuthService) RefreshTokens(ctx context.Context, refreshTokenRaw, deviceInfo, ipAddress string) (*model.TokenPair, int64, error) {
	token, err := s.refreshTokenRepo.FindByTokenHash(ctx, hashToken(refreshTokenRaw))
	if err != nil {
		if !errors.Is(err, model.ErrRefreshTokenNotFound) {
			s.logger.Error("refresh token lookup failed", zap.Error(err))
		}
		return nil, 0, model.ErrRefreshTokenNotFound
	}

	switch err := token.Check(time.Now()); {
	case errors.Is(err, model.ErrRefreshTokenReused):
		if revokeErr := s.refreshTokenRepo.RevokeAllForUser(ctx, token.UserID); revokeErr != nil {
			s.logger.Error("revoke token family failed", zap.Int64("user_id", token.UserID), zap.Error(revokeErr))
		} else {
			s.logger.Warn("refresh token reuse detected", zap.Int64("user_id", token.UserID))
		}
		return nil, 0, err
	case err != nil:
		return nil, 0, err
	}

	pair, next, err := s.issue(ctx, token.UserID, deviceInfo, ipAddress)
	if err != nil {
		return nil, 0, err
	}
	if err := s.refreshTokenRepo.Revoke(ctx, token.ID, &next.ID); err != nil {
		s.logger.Error("revoke rotated token failed", zap.String("token_id", token.ID), zap.Error(err))
	}
	return pair, token.UserID, nil
}

func (s *AuthService) RevokeRefreshToken(ctx context.Context, refreshTokenRaw string) error {
	token, err := s.refreshTokenRepo.FindByTokenHash(ctx, hashToken(refreshTokenRaw))
	if err != nil {
		return err
	}
	return s.refreshTokenRepo.Revoke(ctx, token.ID, nil)
}

func (s *AuthService) RevokeAllUserTokens(ctx context.Context, userID int64) error {
	return s.refreshTokenRepo.RevokeAllForUser(ctx, userID)
}

// PurgeExpiredTokens deletes refresh tokens expired for longer than
// ExpiredTokenRetention. Called from the periodic sweep.
func (s *AuthService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	return s.refreshTokenRepo.DeleteExpired(ctx, ExpiredTokenRetention)
}

// signAccessToken carries user_id as a JSON number; the auth middleware
// reads it back as float64.
func (s *AuthService) signAccessToken(userID int64, now time.Time) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"iat":     now.Unix(),
		"exp":     now.Add(time.Duration(s.config.AccessTokenMaxAge) * time.Second).Unix(),
	}).SignedString([]byte(s.config.JWTSecret))
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
