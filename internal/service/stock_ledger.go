package service

import (
	"context"
	"errors"
	"fmt"

	"go-pos-inventory/internal/event"
	"go-pos-inventory/internal/metrics"
	"go-pos-inventory/internal/model"
	"go-pos-inventory/internal/repository"
	"go-pos-inventory/pkg/apperror"
	"go-pos-inventory/pkg/logger"
	"go-pos-inventory/pkg/validator"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Actor is the authenticated user performing an operation.
type Actor struct {
	ID   uuid.UUID
	Name string
}

func (a Actor) auditID() string {
	return a.ID.String()
}

type MovementRequest struct {
	ProductID uuid.UUID          `json:"product_id" validate:"uuid_required"`
	Type      model.MovementType `json:"type" validate:"required,oneof=IN OUT ADJUST"`
	Quantity  int                `json:"quantity" validate:"gte=1"`
	Reason    string             `json:"reason" validate:"max=255"`
}

type MovementResult struct {
	Product  *model.Product       `json:"product"`
	Movement *model.StockMovement `json:"movement"`
}

// LedgerBalance compares a product's stored quantity with the total of its
// recorded movements.
type LedgerBalance struct {
	ProductID     uuid.UUID `json:"product_id"`
	StockQuantity int       `json:"stock_quantity"`
	TotalIn       int       `json:"total_in"`
	TotalOut      int       `json:"total_out"`
	TotalAdjust   int       `json:"total_adjust"`
	Expected      int       `json:"expected"`
	Balanced      bool      `json:"balanced"`
}

type StockLedger interface {
	// ApplyMovement changes one product's stock and records the movement in
	// a single unit of work.
	ApplyMovement(ctx context.Context, req *MovementRequest, actor Actor) (*MovementResult, error)
	// ApplyInTx performs the same change inside the caller's unit of work on
	// a product the caller has already locked. It updates product in place
	// and publishes nothing; the caller does that after commit.
	ApplyInTx(uow *repository.UnitOfWork, product *model.Product, req *MovementRequest, actor Actor, saleID *uuid.UUID) (*model.StockMovement, error)
	ListMovements(ctx context.Context, productID *uuid.UUID) ([]model.StockMovement, error)
	Balance(ctx context.Context, productID uuid.UUID) (*LedgerBalance, error)
}

type stockLedger struct {
	txm          *repository.TxManager
	productRepo  repository.ProductRepository
	movementRepo repository.StockMovementRepository
	publisher    event.Publisher
	metrics      *metrics.Metrics
}

func NewStockLedger(
	txm *repository.TxManager,
	productRepo repository.ProductRepository,
	movementRepo repository.StockMovementRepository,
	publisher event.Publisher,
	m *metrics.Metrics,
) StockLedger {
	return &stockLedger{
		txm:          txm,
		productRepo:  productRepo,
		movementRepo: movementRepo,
		publisher:    publisher,
		metrics:      m,
	}
}

func validateMovement(req *MovementRequest) error {
	if req.Quantity < 1 {
		return apperror.NewInvalidArgument("quantity must be at least 1, got %d", req.Quantity)
	}
	if !req.Type.Valid() {
		return apperror.NewInvalidArgument("unknown movement type '%s'", req.Type)
	}
	if msg := validator.FirstError(req); msg != "" {
		return apperror.NewInvalidArgument("%s", msg)
	}
	return nil
}

func (l *stockLedger) ApplyMovement(ctx context.Context, req *MovementRequest, actor Actor) (*MovementResult, error) {
	result, err := l.applyMovement(ctx, req, actor)
	if err != nil {
		l.metrics.Rejected("movement", string(apperror.GetAppError(err).Kind))
		return nil, err
	}

	// Side effects strictly after commit.
	l.metrics.MovementApplied(string(result.Movement.Type), result.Movement.Quantity)
	message := fmt.Sprintf("%s recorded %s of %d for '%s'", actor.Name, result.Movement.Type, result.Movement.Quantity, result.Product.Name)
	for _, evt := range event.ForProduct(event.ActionMovement, result.Product, actor.ID, nil, message) {
		l.publisher.Publish(ctx, evt)
	}
	logger.L().Info("stock movement applied",
		"product_id", result.Product.ID,
		"type", result.Movement.Type,
		"quantity", result.Movement.Quantity,
		"stock_after", result.Movement.StockAfter,
		"user_id", actor.ID,
	)
	return result, nil
}

func (l *stockLedger) applyMovement(ctx context.Context, req *MovementRequest, actor Actor) (*MovementResult, error) {
	// 1. Validate before touching the database
	if err := validateMovement(req); err != nil {
		return nil, err
	}

	// 2. Begin unit of work
	uow, err := l.txm.Begin(ctx)
	if err != nil {
		return nil, apperror.NewTransactionFailure(err)
	}
	defer uow.Rollback()

	// 3. Lock the product row for the rest of the transaction
	product, err := l.productRepo.LockByID(uow.Tx(), req.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NewNotFound(fmt.Sprintf("product %s", req.ProductID))
		}
		return nil, apperror.NewTransactionFailure(err)
	}

	// 4. Update stock and append the movement
	movement, err := l.ApplyInTx(uow, product, req, actor, nil)
	if err != nil {
		return nil, err
	}

	// 5. Commit
	if err := uow.Commit(); err != nil {
		return nil, apperror.NewTransactionFailure(err)
	}
	return &MovementResult{Product: product, Movement: movement}, nil
}

func (l *stockLedger) ApplyInTx(uow *repository.UnitOfWork, product *model.Product, req *MovementRequest, actor Actor, saleID *uuid.UUID) (*model.StockMovement, error) {
	if err := validateMovement(req); err != nil {
		return nil, err
	}

	newStock := product.StockQuantity + req.Type.Delta(req.Quantity)
	if newStock < 0 {
		return nil, apperror.NewInsufficientStock(product.Name, product.StockQuantity, req.Quantity)
	}

	if err := l.productRepo.UpdateStock(uow.Tx(), product.ID, newStock, actor.auditID()); err != nil {
		return nil, apperror.FromTx(err)
	}

	movement := &model.StockMovement{
		ProductID:  product.ID,
		Type:       req.Type,
		Quantity:   req.Quantity,
		StockAfter: newStock,
		Reason:     req.Reason,
		SaleID:     saleID,
		UserID:     actor.ID,
	}
	if err := l.movementRepo.Create(uow.Tx(), movement); err != nil {
		return nil, apperror.FromTx(err)
	}

	product.StockQuantity = newStock
	product.UpdatedBy = actor.auditID()
	return movement, nil
}

func (l *stockLedger) ListMovements(ctx context.Context, productID *uuid.UUID) ([]model.StockMovement, error) {
	movements, err := l.movementRepo.FindAll(ctx, productID)
	if err != nil {
		return nil, apperror.NewTransactionFailure(err)
	}
	return movements, nil
}

func (l *stockLedger) Balance(ctx context.Context, productID uuid.UUID) (*LedgerBalance, error) {
	product, err := l.productRepo.FindIncludingDeleted(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NewNotFound(fmt.Sprintf("product %s", productID))
		}
		return nil, apperror.NewTransactionFailure(err)
	}

	totals, err := l.movementRepo.SumByType(ctx, productID)
	if err != nil {
		return nil, apperror.NewTransactionFailure(err)
	}

	b := &LedgerBalance{
		ProductID:     productID,
		StockQuantity: product.StockQuantity,
		TotalIn:       totals[model.MovementIn],
		TotalOut:      totals[model.MovementOut],
		TotalAdjust:   totals[model.MovementAdjust],
	}
	b.Expected = b.TotalIn - b.TotalOut - b.TotalAdjust
	b.Balanced = b.Expected == b.StockQuantity
	return b, nil
}
