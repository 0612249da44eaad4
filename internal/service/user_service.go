package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-pos-inventory/internal/model"
	"go-pos-inventory/internal/repository"
	"go-pos-inventory/pkg/apperror"
	"go-pos-inventory/pkg/logger"
	"go-pos-inventory/pkg/validator"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreateUserRequest struct {
	Email    string     `json:"email" validate:"required,email"`
	Password string     `json:"password" validate:"required,min=6"`
	Name     string     `json:"name" validate:"required,max=255"`
	Role     model.Role `json:"role" validate:"required,oneof=ADMIN CASHIER"`
}

type UpdateRoleRequest struct {
	Role model.Role `json:"role" validate:"required,oneof=ADMIN CASHIER"`
}

type UserService interface {
	CreateUser(ctx context.Context, req *CreateUserRequest, actor Actor) (*model.User, error)
	UpdateRole(ctx context.Context, userID uuid.UUID, role model.Role, actor Actor) (*model.User, error)
	DeleteUser(ctx context.Context, userID uuid.UUID, actor Actor) error
	GetAllUsers(ctx context.Context) ([]model.UserResponse, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*model.UserResponse, error)
	// EnsureAdmin creates the first administrator when no user has the email.
	EnsureAdmin(ctx context.Context, email, password string) (bool, error)
}

type userService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func (s *userService) CreateUser(ctx context.Context, req *CreateUserRequest, actor Actor) (*model.User, error) {
	// 1. Validate request
	if msg := validator.FirstError(req); msg != "" {
		return nil, apperror.NewInvalidArgument("%s", msg)
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	// 2. Check if email already exists
	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil, apperror.NewConflict("email already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NewTransactionFailure(err)
	}

	// 3. Create
	user := &model.User{
		Email:    email,
		Name:     req.Name,
		Role:     req.Role,
		IsActive: true,
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, apperror.New(apperror.KindInternal, "failed to hash password")
	}
	user.CreatedBy = actor.auditID()
	user.UpdatedBy = actor.auditID()
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, apperror.NewTransactionFailure(err)
	}

	logger.L().Info("user created", "user_id", user.ID, "role", user.Role, "by", actor.ID)
	return user, nil
}

func (s *userService) UpdateRole(ctx context.Context, userID uuid.UUID, role model.Role, actor Actor) (*model.User, error) {
	if !role.Valid() {
		return nil, apperror.NewInvalidArgument("unknown role '%s'", role)
	}
	if userID == actor.ID && role != model.RoleAdmin {
		return nil, apperror.NewInvalidArgument("you cannot remove your own admin role")
	}
	if err := s.userRepo.UpdateRole(ctx, userID, role); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NewNotFound("user")
		}
		return nil, apperror.NewTransactionFailure(err)
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, apperror.NewTransactionFailure(err)
	}
	return user, nil
}

func (s *userService) DeleteUser(ctx context.Context, userID uuid.UUID, actor Actor) error {
	if userID == actor.ID {
		return apperror.NewInvalidArgument("you cannot delete your own account")
	}
	if err := s.userRepo.Delete(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NewNotFound("user")
		}
		return apperror.NewTransactionFailure(err)
	}
	return nil
}

func (s *userService) GetAllUsers(ctx context.Context) ([]model.UserResponse, error) {
	users, err := s.userRepo.FindAll(ctx)
	if err != nil {
		return nil, apperror.NewTransactionFailure(err)
	}
	responses := make([]model.UserResponse, len(users))
	for i, user := range users {
		responses[i] = user.ToResponse()
	}
	return responses, nil
}

func (s *userService) GetUserByID(ctx context.Context, id uuid.UUID) (*model.UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NewNotFound(fmt.Sprintf("user %s", id))
		}
		return nil, apperror.NewTransactionFailure(err)
	}
	response := user.ToResponse()
	return &response, nil
}

func (s *userService) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	admin := &model.User{
		Email:    email,
		Name:     "Administrator",
		Role:     model.RoleAdmin,
		IsActive: true,
	}
	admin.CreatedBy = "system"
	admin.UpdatedBy = "system"
	if err := admin.SetPassword(password); err != nil {
		return false, err
	}
	if err := s.userRepo.Create(ctx, admin); err != nil {
		return false, err
	}
	return true, nil
}
