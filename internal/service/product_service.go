package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-pos-inventory/internal/event"
	"go-pos-inventory/internal/model"
	"go-pos-inventory/internal/repository"
	"go-pos-inventory/pkg/apperror"
	"go-pos-inventory/pkg/logger"
	"go-pos-inventory/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const recentMovementsLimit = 10

type ProductRequest struct {
	Barcode           string          `json:"barcode" validate:"omitempty,max=64"`
	Name              string          `json:"name" validate:"required,max=255"`
	Description       string          `json:"description"`
	CostPrice         decimal.Decimal `json:"cost_price"`
	SellPrice         decimal.Decimal `json:"sell_price"`
	LowStockThreshold *int            `json:"low_stock_threshold" validate:"omitempty,gte=0"`
	ImageURL          string          `json:"image_url" validate:"omitempty,max=500"`
	CategoryID        *uuid.UUID      `json:"category_id"`
	// Only honoured on create; it is recorded as an IN movement.
	InitialStock int `json:"initial_stock" validate:"gte=0"`
}

type ProductService interface {
	CreateProduct(ctx context.Context, req *ProductRequest, actor Actor) (*model.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, req *ProductRequest, actor Actor) (*model.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID, actor Actor) error
	GetAllProducts(ctx context.Context) ([]model.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error)
	GetProductByBarcode(ctx context.Context, barcode string) (*model.Product, error)
	GetLowStockProducts(ctx context.Context) ([]model.Product, error)
}

type productService struct {
	txm          *repository.TxManager
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	ledger       StockLedger
	publisher    event.Publisher
}

func NewProductService(
	txm *repository.TxManager,
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	ledger StockLedger,
	publisher event.Publisher,
) ProductService {
	return &productService{
		txm:          txm,
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		ledger:       ledger,
		publisher:    publisher,
	}
}

func (s *productService) validate(ctx context.Context, req *ProductRequest, selfID uuid.UUID) error {
	if msg := validator.FirstError(req); msg != "" {
		return apperror.NewInvalidArgument("%s", msg)
	}
	if req.CostPrice.IsNegative() || req.SellPrice.IsNegative() {
		return apperror.NewInvalidArgument("prices must not be negative")
	}

	if barcode := strings.TrimSpace(req.Barcode); barcode != "" {
		existing, err := s.productRepo.FindByBarcode(ctx, barcode)
		if err == nil && existing.ID != selfID {
			return apperror.NewConflict(fmt.Sprintf("barcode '%s' already exists", barcode))
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NewTransactionFailure(err)
		}
	}

	if req.CategoryID != nil {
		if _, err := s.categoryRepo.FindByID(ctx, *req.CategoryID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NewNotFound(fmt.Sprintf("category %s", *req.CategoryID))
			}
			return apperror.NewTransactionFailure(err)
		}
	}
	return nil
}

func applyProductFields(p *model.Product, req *ProductRequest) {
	var barcode *string
	if b := strings.TrimSpace(req.Barcode); b != "" {
		barcode = &b
	}
	p.Barcode = barcode
	p.Name = strings.TrimSpace(req.Name)
	p.Description = req.Description
	p.CostPrice = req.CostPrice
	p.SellPrice = req.SellPrice
	p.ImageURL = req.ImageURL
	p.CategoryID = req.CategoryID
	if req.LowStockThreshold != nil {
		p.LowStockThreshold = *req.LowStockThreshold
	}
}

func (s *productService) CreateProduct(ctx context.Context, req *ProductRequest, actor Actor) (*model.Product, error) {
	// 1. Validate fields, barcode uniqueness and category
	if err := s.validate(ctx, req, uuid.Nil); err != nil {
		return nil, err
	}

	// 2. Build the product with zero stock; stock only moves through the ledger
	product := &model.Product{LowStockThreshold: model.DefaultLowStockThreshold}
	applyProductFields(product, req)
	product.StockQuantity = 0
	product.CreatedBy = actor.auditID()
	product.UpdatedBy = actor.auditID()

	uow, err := s.txm.Begin(ctx)
	if err != nil {
		return nil, apperror.NewTransactionFailure(err)
	}
	defer uow.Rollback()

	// 3. Insert, then record the opening stock in the same transaction
	if err := s.productRepo.Create(uow.Tx(), product); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.NewConflict("barcode already exists")
		}
		return nil, apperror.NewTransactionFailure(err)
	}
	if req.InitialStock > 0 {
		if _, err := s.ledger.ApplyInTx(uow, product, &MovementRequest{
			ProductID: product.ID,
			Type:      model.MovementIn,
			Quantity:  req.InitialStock,
			Reason:    "Initial stock",
		}, actor, nil); err != nil {
			return nil, apperror.FromTx(err)
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, apperror.NewTransactionFailure(err)
	}

	// 4. Notify
	message := fmt.Sprintf("%s created product '%s'", actor.Name, product.Name)
	for _, evt := range event.ForProduct(event.ActionProductCreated, product, actor.ID, nil, message) {
		s.publisher.Publish(ctx, evt)
	}
	logger.L().Info("product created", "product_id", product.ID, "initial_stock", req.InitialStock, "user_id", actor.ID)
	return product, nil
}

func (s *productService) UpdateProduct(ctx context.Context, id uuid.UUID, req *ProductRequest, actor Actor) (*model.Product, error) {
	existing, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NewNotFound(fmt.Sprintf("product %s", id))
		}
		return nil, apperror.NewTransactionFailure(err)
	}
	if err := s.validate(ctx, req, id); err != nil {
		return nil, err
	}

	applyProductFields(existing, req)
	existing.UpdatedBy = actor.auditID()
	if err := s.productRepo.Update(ctx, existing); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.NewConflict("barcode already exists")
		}
		return nil, apperror.NewTransactionFailure(err)
	}
	return s.productRepo.FindByID(ctx, id)
}

func (s *productService) DeleteProduct(ctx context.Context, id uuid.UUID, actor Actor) error {
	if err := s.productRepo.Delete(ctx, id, actor.auditID()); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NewNotFound(fmt.Sprintf("product %s", id))
		}
		return apperror.NewTransactionFailure(err)
	}
	logger.L().Info("product deleted", "product_id", id, "user_id", actor.ID)
	return nil
}

func (s *productService) GetAllProducts(ctx context.Context) ([]model.Product, error) {
	products, err := s.productRepo.FindAll(ctx)
	if err != nil {
		return nil, apperror.NewTransactionFailure(err)
	}
	return products, nil
}

func (s *productService) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	product, err := s.productRepo.FindByIDWithMovements(ctx, id, recentMovementsLimit)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NewNotFound(fmt.Sprintf("product %s", id))
		}
		return nil, apperror.NewTransactionFailure(err)
	}
	return product, nil
}

func (s *productService) GetProductByBarcode(ctx context.Context, barcode string) (*model.Product, error) {
	product, err := s.productRepo.FindByBarcode(ctx, barcode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NewNotFound(fmt.Sprintf("product with barcode '%s'", barcode))
		}
		return nil, apperror.NewTransactionFailure(err)
	}
	return product, nil
}

func (s *productService) GetLowStockProducts(ctx context.Context) ([]model.Product, error) {
	products, err := s.productRepo.FindLowStock(ctx)
	if err != nil {
		return nil, apperror.NewTransactionFailure(err)
	}
	return products, nil
}
