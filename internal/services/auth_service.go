package services

import (
	"context"
	"log"
	"time"

	"photofix-api/config"
	"photofix-api/internal/auth"
	"photofix-api/internal/models"
	"photofix-api/internal/repositories"
	"photofix-api/pkg/errors"
	"photofix-api/pkg/utils"

	"github.com/google/uuid"
)

// WelcomeCredits is the free enhancement allowance granted on signup.
const WelcomeCredits = 3

type AuthService struct {
	userRepo     *repositories.UserRepository
	tokenRepo    *repositories.RefreshTokenRepository
	tokenService *auth.TokenService
	config       *config.Config
}

func NewAuthService(
	userRepo *repositories.UserRepository,
	tokenRepo *repositories.RefreshTokenRepository,
	tokenService *auth.TokenService,
	cfg *config.Config,
) *AuthService {
	return &AuthService{
		userRepo:     userRepo,
		tokenRepo:    tokenRepo,
		tokenService: tokenService,
		config:       cfg,
	}
}

func (s *AuthService) Register(ctx context.Context, req *models.RegisterRequest) (*models.LoginResponse, error) {
	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, errors.WrapError(err, "INTERNAL_ERROR", "Failed to hash password", errors.ErrInternalServer.Status)
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        req.Email,
		PasswordHash: passwordHash,
		Name:         req.Name,
		Plan:         "free",
		Credits:      WelcomeCredits,
		IsAdmin:      false,
		Status:       "active",
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return s.issueTokens(ctx, user)
}

func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		// Same response for unknown email and bad password to prevent
		// user enumeration
		log.Printf("Login failed - GetByEmail error for %s: %v", req.Email, err)
		return nil, errors.ErrUnauthorized
	}

	if !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		log.Printf("Login failed - password mismatch for user %s", req.Email)
		return nil, errors.ErrUnauthorized
	}

	if user.Status == "suspended" {
		return nil, errors.NewError("ACCOUNT_SUSPENDED", "Your account has been suspended. Please contact support.", 403)
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, time.Now()); err != nil {
		log.Printf("Failed to update last login for %s: %v", user.ID, err)
	}

	return s.issueTokens(ctx, user)
}

func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*models.LoginResponse, error) {
	claims, err := s.tokenService.ValidateToken(refreshToken)
	if err != nil {
		return nil, errors.ErrUnauthorized
	}

	stored, err := s.tokenRepo.GetByHash(ctx, utils.HashToken(refreshToken))
	if err != nil {
		return nil, errors.ErrUnauthorized
	}

	if stored.ExpiresAt.Before(time.Now()) {
		return nil, errors.NewError("TOKEN_EXPIRED", "Refresh token expired", 401)
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, errors.ErrUnauthorized
	}

	if err := s.tokenRepo.UpdateLastUsed(ctx, stored.ID); err != nil {
		log.Printf("Failed to update refresh token usage: %v", err)
	}

	// Rotate: revoke the old token and issue a fresh pair
	if err := s.tokenRepo.Revoke(ctx, stored.ID); err != nil {
		log.Printf("Failed to revoke rotated refresh token: %v", err)
	}

	return s.issueTokens(ctx, user)
}

func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID) error {
	return s.tokenRepo.RevokeAllForUser(ctx, userID)
}

func (s *AuthService) issueTokens(ctx context.Context, user *models.User) (*models.LoginResponse, error) {
	accessToken, err := s.tokenService.GenerateAccessToken(user)
	if err != nil {
		return nil, errors.WrapError(err, "INTERNAL_ERROR", "Failed to generate access token", errors.ErrInternalServer.Status)
	}

	refreshToken, err := s.tokenService.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, errors.WrapError(err, "INTERNAL_ERROR", "Failed to generate refresh token", errors.ErrInternalServer.Status)
	}

	record := &models.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: utils.HashToken(refreshToken),
		ExpiresAt: time.Now().Add(time.Duration(s.config.JWT.RefreshTokenTTL) * 24 * time.Hour),
	}
	if err := s.tokenRepo.Create(ctx, record); err != nil {
		return nil, err
	}

	user.PasswordHash = ""
	return &models.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    s.config.JWT.AccessTokenTTL * 60,
		User:         user,
	}, nil
}
