package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-pos-inventory/internal/model"
	"go-pos-inventory/internal/repository"
	"go-pos-inventory/pkg/apperror"
	"go-pos-inventory/pkg/validator"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CategoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description"`
}

type CategoryService interface {
	CreateCategory(ctx context.Context, req *CategoryRequest, actor Actor) (*model.Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, req *CategoryRequest, actor Actor) (*model.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	GetAllCategories(ctx context.Context) ([]model.Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*model.Category, error)
	SeedDefaults(ctx context.Context) error
}

type categoryService struct {
	categoryRepo repository.CategoryRepository
}

func NewCategoryService(categoryRepo repository.CategoryRepository) CategoryService {
	return &categoryService{categoryRepo: categoryRepo}
}

func (s *categoryService) checkName(ctx context.Context, name string, selfID uuid.UUID) error {
	existing, err := s.categoryRepo.FindByName(ctx, name)
	if err == nil && existing.ID != selfID {
		return apperror.NewConflict(fmt.Sprintf("category '%s' already exists", name))
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NewTransactionFailure(err)
	}
	return nil
}

func (s *categoryService) CreateCategory(ctx context.Context, req *CategoryRequest, actor Actor) (*model.Category, error) {
	if msg := validator.FirstError(req); msg != "" {
		return nil, apperror.NewInvalidArgument("%s", msg)
	}
	name := strings.TrimSpace(req.Name)
	if err := s.checkName(ctx, name, uuid.Nil); err != nil {
		return nil, err
	}

	category := &model.Category{Name: name, Description: req.Description}
	category.CreatedBy = actor.auditID()
	category.UpdatedBy = actor.auditID()
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, apperror.NewTransactionFailure(err)
	}
	return category, nil
}

func (s *categoryService) UpdateCategory(ctx context.Context, id uuid.UUID, req *CategoryRequest, actor Actor) (*model.Category, error) {
	if msg := validator.FirstError(req); msg != "" {
		return nil, apperror.NewInvalidArgument("%s", msg)
	}
	name := strings.TrimSpace(req.Name)
	if err := s.checkName(ctx, name, id); err != nil {
		return nil, err
	}

	category := &model.Category{Name: name, Description: req.Description}
	category.ID = id
	category.UpdatedBy = actor.auditID()
	if err := s.categoryRepo.Update(ctx, category); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NewNotFound(fmt.Sprintf("category %s", id))
		}
		return nil, apperror.NewTransactionFailure(err)
	}
	return s.GetCategory(ctx, id)
}

func (s *categoryService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if err := s.categoryRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NewNotFound(fmt.Sprintf("category %s", id))
		}
		return apperror.NewTransactionFailure(err)
	}
	return nil
}

func (s *categoryService) GetAllCategories(ctx context.Context) ([]model.Category, error) {
	categories, err := s.categoryRepo.FindAll(ctx)
	if err != nil {
		return nil, apperror.NewTransactionFailure(err)
	}
	return categories, nil
}

func (s *categoryService) GetCategory(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NewNotFound(fmt.Sprintf("category %s", id))
		}
		return nil, apperror.NewTransactionFailure(err)
	}
	return category, nil
}

func (s *categoryService) SeedDefaults(ctx context.Context) error {
	return s.categoryRepo.SeedDefaults(ctx)
}
