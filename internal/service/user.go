package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"clipshare/internal/apperr"
	"clipshare/internal/logging"
	"clipshare/internal/model"
	"clipshare/internal/repository"
	"clipshare/internal/validation"
)

const MinPasswordLength = 6

var usernamePattern = regexp.MustCompile(`^[a-z0-9_.]+$`)

// UserService handles business logic for user operations
type UserService struct {
	repo       repository.UserRepository
	followRepo repository.FollowRepository
	logger     *zap.Logger
}

func NewUserService(repo repository.UserRepository, followRepo repository.FollowRepository, logger *zap.Logger) *UserService {
	return &UserService{
		repo:       repo,
		followRepo: followRepo,
		logger:     logging.OrNop(logger).Named("user_service"),
	}
}

// Register creates a new account. Username and email are stored lowercased.
func (s *UserService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if n := utf8.RuneCountInString(username); n < model.MinUsernameLength || n > model.MaxUsernameLength {
		return nil, apperr.Validation("username must be %d-%d characters", model.MinUsernameLength, model.MaxUsernameLength)
	}
	if !usernamePattern.MatchString(username) {
		return nil, model.ErrInvalidUsername
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperr.Validation("a valid email is required")
	}
	if len(req.Password) < MinPasswordLength {
		return nil, apperr.Validation("password must be at least %d characters", MinPasswordLength)
	}
	if (req.AvatarURL == nil) != (req.AvatarKey == nil) {
		return nil, apperr.Validation("avatar_url and avatar_key must both be provided or both omitted")
	}

	exists, err := s.repo.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if exists {
		return nil, model.ErrUsernameExists
	}
	exists, err = s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, model.ErrEmailExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username:       username,
		Email:          email,
		PasswordHashed: string(hashedPassword),
		AvatarURL:      req.AvatarURL,
		AvatarKey:      req.AvatarKey,
	}
	if name := validation.CleanText(req.DisplayName); name != "" {
		user.DisplayName = &name
	}

	// Create maps a lost uniqueness race to the same Conflict errors.
	if err := s.repo.Create(ctx, user); err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user registered", zap.Int64("user_id", user.ID))
	return user, nil
}

// Login accepts a username or an email. Lookup failures of any kind are
// reported as invalid credentials.
func (s *UserService) Login(ctx context.Context, req *model.LoginRequest) (*model.User, error) {
	login := strings.ToLower(strings.TrimSpace(req.Login))

	var (
		user *model.User
		err  error
	)
	if strings.Contains(login, "@") {
		user, err = s.repo.GetByEmail(ctx, login)
	} else {
		user, err = s.repo.GetByUsername(ctx, login)
	}
	if err != nil {
		return nil, model.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHashed), []byte(req.Password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return s.repo.GetByID(ctx, id)
}

// GetProfile returns the user plus whether the viewer follows them. A
// failed follow check degrades to false instead of failing the profile.
func (s *UserService) GetProfile(ctx context.Context, userID int64, viewerID *int64) (*model.ProfileResponse, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile := &model.ProfileResponse{User: user}
	if viewerID != nil && *viewerID != userID {
		isFollowing, err := s.followRepo.Exists(ctx, *viewerID, userID)
		if err != nil {
			s.logger.Warn("follow check failed", zap.Int64("user_id", userID), zap.Error(err))
		} else {
			profile.IsFollowing = isFollowing
		}
	}
	if viewerID == nil || *viewerID != userID {
		user.Email = ""
	}
	return profile, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID int64, req *model.UpdateProfileRequest) (*model.User, error) {
	var displayName, bio *string
	if req.DisplayName != nil {
		v := validation.CleanText(*req.DisplayName)
		displayName = &v
	}
	if req.Bio != nil {
		v := validation.CleanText(*req.Bio)
		bio = &v
	}
	return s.repo.UpdateProfile(ctx, userID, displayName, bio)
}
