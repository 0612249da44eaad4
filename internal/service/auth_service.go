package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go-pos-inventory/internal/model"
	"go-pos-inventory/internal/repository"
	"go-pos-inventory/pkg/apperror"
	"go-pos-inventory/pkg/jwt"
	"go-pos-inventory/pkg/logger"
	"go-pos-inventory/pkg/validator"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = apperror.NewUnauthorized("invalid email or password")
	ErrUserInactive       = apperror.NewForbidden("user account is inactive")
	ErrWrongPassword      = apperror.NewInvalidArgument("current password is incorrect")
	ErrSessionReplaced    = apperror.NewUnauthorized("session expired (logged in on another device)")
	ErrRegistrationClosed = apperror.NewForbidden("self registration is disabled")
)

type AuthService interface {
	Login(ctx context.Context, email, password string) (*LoginResponse, error)
	ValidateToken(ctx context.Context, tokenString string) (*TokenValidationResponse, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error
	// Register creates a cashier account when self registration is enabled.
	Register(ctx context.Context, req *RegisterRequest) (*model.UserResponse, error)
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name" validate:"required,max=255"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

type LoginResponse struct {
	Token string             `json:"token"`
	User  model.UserResponse `json:"user"`
}

type TokenValidationResponse struct {
	User model.UserResponse `json:"user"`
}

type authService struct {
	userRepo          repository.UserRepository
	jwt               *jwt.Manager
	allowRegistration bool
}

func NewAuthService(userRepo repository.UserRepository, jwtManager *jwt.Manager, allowRegistration bool) AuthService {
	return &authService{
		userRepo:          userRepo,
		jwt:               jwtManager,
		allowRegistration: allowRegistration,
	}
}

func (s *authService) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	// 1. Find user by email
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, apperror.NewTransactionFailure(err)
	}

	// 2. Check if user is active
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	// 3. Verify password
	if !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}

	// 4. Single session: a new token version invalidates older tokens
	newTokenVersion := uuid.New().String()
	if err := s.userRepo.UpdateTokenVersion(ctx, user.ID, newTokenVersion); err != nil {
		return nil, apperror.NewTransactionFailure(err)
	}
	now := time.Now()
	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		logger.L().Warn("record last login", "user_id", user.ID, "error", err)
	}
	user.LastLoginAt = &now

	// 5. Generate JWT token with TokenVersion
	token, err := s.jwt.GenerateToken(user.ID, user.Email, user.Name, string(user.Role), newTokenVersion)
	if err != nil {
		return nil, apperror.New(apperror.KindInternal, "failed to generate token")
	}

	logger.L().Info("user logged in", "user_id", user.ID, "role", user.Role)
	return &LoginResponse{
		Token: token,
		User:  user.ToResponse(),
	}, nil
}

func (s *authService) ValidateToken(ctx context.Context, tokenString string) (*TokenValidationResponse, error) {
	claims, err := s.jwt.ValidateToken(tokenString)
	if err != nil {
		return nil, apperror.NewUnauthorized(err.Error())
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NewUnauthorized("user not found")
		}
		return nil, apperror.NewTransactionFailure(err)
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	if user.TokenVersion != claims.TokenVersion {
		return nil, ErrSessionReplaced
	}

	return &TokenValidationResponse{User: user.ToResponse()}, nil
}

func (s *authService) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	// 1. Find user
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NewNotFound("user")
		}
		return apperror.NewTransactionFailure(err)
	}

	// 2. Verify old password
	if !user.CheckPassword(oldPassword) {
		return ErrWrongPassword
	}
	if len(newPassword) < 6 {
		return apperror.NewInvalidArgument("new password must be at least 6 characters")
	}

	// 3. Set new password
	if err := user.SetPassword(newPassword); err != nil {
		return apperror.New(apperror.KindInternal, "failed to hash new password")
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, user.Password); err != nil {
		return apperror.NewTransactionFailure(err)
	}

	// 4. Sign out every other session
	if err := s.userRepo.UpdateTokenVersion(ctx, user.ID, uuid.New().String()); err != nil {
		return apperror.NewTransactionFailure(err)
	}
	return nil
}

func (s *authService) Register(ctx context.Context, req *RegisterRequest) (*model.UserResponse, error) {
	if !s.allowRegistration {
		return nil, ErrRegistrationClosed
	}
	if msg := validator.FirstError(req); msg != "" {
		return nil, apperror.NewInvalidArgument("%s", msg)
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil, apperror.NewConflict("email already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NewTransactionFailure(err)
	}

	// Self-registered accounts are always cashiers; admins promote them.
	user := &model.User{
		Email:    email,
		Name:     req.Name,
		Role:     model.RoleCashier,
		IsActive: true,
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, apperror.New(apperror.KindInternal, "failed to hash password")
	}
	user.CreatedBy = "self"
	user.UpdatedBy = "self"
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, apperror.FromTx(err)
	}

	logger.L().Info("user registered", "user_id", user.ID)
	response := user.ToResponse()
	return &response, nil
}
