package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-pos-inventory/internal/model"
	"go-pos-inventory/internal/repository"
	"go-pos-inventory/pkg/apperror"
	"go-pos-inventory/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ExpenseRequest struct {
	Title       string          `json:"title" validate:"required,max=255"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category" validate:"required,max=100"`
	Description string          `json:"description"`
	// Defaults to now.
	Date *time.Time `json:"date"`
}

type ExpenseService interface {
	CreateExpense(ctx context.Context, req *ExpenseRequest, actor Actor) (*model.Expense, error)
	GetAllExpenses(ctx context.Context) ([]model.Expense, error)
	GetExpense(ctx context.Context, id uuid.UUID) (*model.Expense, error)
	DeleteExpense(ctx context.Context, id uuid.UUID, actor Actor) error
}

type expenseService struct {
	expenseRepo repository.ExpenseRepository
}

func NewExpenseService(expenseRepo repository.ExpenseRepository) ExpenseService {
	return &expenseService{expenseRepo: expenseRepo}
}

func (s *expenseService) CreateExpense(ctx context.Context, req *ExpenseRequest, actor Actor) (*model.Expense, error) {
	if msg := validator.FirstError(req); msg != "" {
		return nil, apperror.NewInvalidArgument("%s", msg)
	}
	if !req.Amount.IsPositive() {
		return nil, apperror.NewInvalidArgument("amount must be greater than zero")
	}

	date := time.Now()
	if req.Date != nil {
		date = *req.Date
	}
	expense := &model.Expense{
		Title:       req.Title,
		Amount:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
		Date:        date,
	}
	expense.CreatedBy = actor.auditID()
	expense.UpdatedBy = actor.auditID()

	if err := s.expenseRepo.Create(ctx, expense); err != nil {
		return nil, apperror.NewTransactionFailure(err)
	}
	return expense, nil
}

func (s *expenseService) GetAllExpenses(ctx context.Context) ([]model.Expense, error) {
	expenses, err := s.expenseRepo.FindAll(ctx)
	if err != nil {
		return nil, apperror.NewTransactionFailure(err)
	}
	return expenses, nil
}

func (s *expenseService) GetExpense(ctx context.Context, id uuid.UUID) (*model.Expense, error) {
	expense, err := s.expenseRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NewNotFound(fmt.Sprintf("expense %s", id))
		}
		return nil, apperror.NewTransactionFailure(err)
	}
	return expense, nil
}

func (s *expenseService) DeleteExpense(ctx context.Context, id uuid.UUID, actor Actor) error {
	if err := s.expenseRepo.Delete(ctx, id, actor.auditID()); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NewNotFound(fmt.Sprintf("expense %s", id))
		}
		return apperror.NewTransactionFailure(err)
	}
	return nil
}
