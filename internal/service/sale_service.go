package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-pos-inventory/internal/event"
	"go-pos-inventory/internal/metrics"
	"go-pos-inventory/internal/model"
	"go-pos-inventory/internal/repository"
	"go-pos-inventory/pkg/apperror"
	"go-pos-inventory/pkg/logger"
	"go-pos-inventory/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CheckoutItem struct {
	ProductID uuid.UUID `json:"product_id" validate:"uuid_required"`
	Quantity  int       `json:"quantity" validate:"gte=1"`
}

type CheckoutRequest struct {
	Items         []CheckoutItem      `json:"items" validate:"dive"`
	PaymentMethod model.PaymentMethod `json:"payment_method" validate:"required,oneof=CASH TRANSFER"`
	SlipURL       string              `json:"slip_url" validate:"omitempty,max=500"`
}

type SaleService interface {
	// Checkout converts a cart into a sale: it locks every product, checks
	// stock for all lines, then records the sale and one OUT movement per
	// line. Either all of it commits or none of it does.
	Checkout(ctx context.Context, req *CheckoutRequest, cashier Actor) (*model.Sale, error)
	ListSales(ctx context.Context, filter repository.SaleFilter) ([]model.Sale, error)
	GetSale(ctx context.Context, id uuid.UUID) (*model.Sale, error)
}

type saleService struct {
	txm         *repository.TxManager
	productRepo repository.ProductRepository
	saleRepo    repository.SaleRepository
	ledger      StockLedger
	publisher   event.Publisher
	metrics     *metrics.Metrics
}

func NewSaleService(
	txm *repository.TxManager,
	productRepo repository.ProductRepository,
	saleRepo repository.SaleRepository,
	ledger StockLedger,
	publisher event.Publisher,
	m *metrics.Metrics,
) SaleService {
	return &saleService{
		txm:         txm,
		productRepo: productRepo,
		saleRepo:    saleRepo,
		ledger:      ledger,
		publisher:   publisher,
		metrics:     m,
	}
}

func validateCheckout(req *CheckoutRequest) error {
	if len(req.Items) == 0 {
		return apperror.NewInvalidArgument("sale must have at least one item")
	}
	for i, item := range req.Items {
		if item.Quantity < 1 {
			return apperror.NewInvalidArgument("item %d: quantity must be at least 1, got %d", i+1, item.Quantity)
		}
		if item.ProductID == uuid.Nil {
			return apperror.NewInvalidArgument("item %d: product_id is required", i+1)
		}
	}
	if !req.PaymentMethod.Valid() {
		return apperror.NewInvalidArgument("unknown payment method '%s'", req.PaymentMethod)
	}
	if msg := validator.FirstError(req); msg != "" {
		return apperror.NewInvalidArgument("%s", msg)
	}
	return nil
}

func (s *saleService) Checkout(ctx context.Context, req *CheckoutRequest, cashier Actor) (*model.Sale, error) {
	start := time.Now()

	result, err := s.checkout(ctx, req, cashier)
	if err != nil {
		s.metrics.Rejected("checkout", string(apperror.GetAppError(err).Kind))
		logger.L().Warn("checkout rejected", "cashier_id", cashier.ID, "error", err)
		return nil, err
	}

	// Committed. Nothing below may turn this into a failure.
	sale, touched := result.sale, result.touched
	amount, _ := sale.TotalAmount.Float64()
	s.metrics.SaleCompleted(string(sale.PaymentMethod), amount, time.Since(start))
	for _, product := range touched {
		message := fmt.Sprintf("%s sold '%s'", cashier.Name, product.Name)
		for _, evt := range event.ForProduct(event.ActionSale, product, cashier.ID, &sale.ID, message) {
			s.publisher.Publish(ctx, evt)
		}
	}
	s.publisher.Publish(ctx, event.Event{
		Type:       event.TypeSale,
		Action:     event.ActionSale,
		SaleID:     &sale.ID,
		UserID:     cashier.ID,
		Message:    fmt.Sprintf("%s completed a %s sale of %s", cashier.Name, sale.PaymentMethod, sale.TotalAmount.StringFixed(2)),
		OccurredAt: time.Now(),
	})
	logger.L().Info("sale completed",
		"sale_id", sale.ID,
		"cashier_id", cashier.ID,
		"items", len(sale.Items),
		"total", sale.TotalAmount.StringFixed(2),
		"payment_method", sale.PaymentMethod,
	)

	persisted, err := s.saleRepo.FindByID(ctx, sale.ID)
	if err != nil {
		logger.L().Error("reload committed sale", "sale_id", sale.ID, "error", err)
		sale.Cashier = &model.User{Name: cashier.Name}
		sale.Cashier.ID = cashier.ID
		return sale, nil
	}
	return persisted, nil
}

// checkoutResult is the new sale plus the locked products with their final
// stock.
type checkoutResult struct {
	sale    *model.Sale
	touched []*model.Product
}

func (s *saleService) checkout(ctx context.Context, req *CheckoutRequest, cashier Actor) (*checkoutResult, error) {
	// 1. Validate the cart
	if err := validateCheckout(req); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(req.Items))
	requested := make(map[uuid.UUID]int, len(req.Items))
	for _, item := range req.Items {
		if _, seen := requested[item.ProductID]; !seen {
			ids = append(ids, item.ProductID)
		}
		requested[item.ProductID] += item.Quantity
	}

	uow, err := s.txm.Begin(ctx)
	if err != nil {
		return nil, apperror.NewTransactionFailure(err)
	}
	defer uow.Rollback()

	// 2. Lock every product in the cart, in id order
	locked, err := s.productRepo.LockByIDs(uow.Tx(), ids)
	if err != nil {
		return nil, apperror.NewTransactionFailure(err)
	}
	products := make(map[uuid.UUID]*model.Product, len(locked))
	for i := range locked {
		products[locked[i].ID] = &locked[i]
	}

	// 3. Check all lines against the locked snapshot before writing anything
	for _, id := range ids {
		product, ok := products[id]
		if !ok {
			return nil, apperror.NewNotFound(fmt.Sprintf("product %s", id))
		}
		if product.StockQuantity < requested[id] {
			return nil, apperror.NewInsufficientStock(product.Name, product.StockQuantity, requested[id])
		}
	}

	// 4. Price every line from the locked rows
	sale := &model.Sale{
		ID:            uuid.New(),
		PaymentMethod: req.PaymentMethod,
		SlipURL:       req.SlipURL,
		CashierID:     cashier.ID,
		TotalAmount:   decimal.Zero,
		Items:         make([]model.SaleItem, 0, len(req.Items)),
	}
	for _, line := range req.Items {
		item := model.SaleItem{
			ProductID:   line.ProductID,
			Quantity:    line.Quantity,
			PriceAtSale: products[line.ProductID].SellPrice,
		}
		sale.TotalAmount = sale.TotalAmount.Add(item.LineTotal())
		sale.Items = append(sale.Items, item)
	}

	// 5. Persist the sale, then decrement stock line by line
	if err := s.saleRepo.Create(uow.Tx(), sale); err != nil {
		return nil, apperror.NewTransactionFailure(err)
	}
	reason := fmt.Sprintf("Sale ID: %s", sale.ID)
	for _, line := range req.Items {
		_, err := s.ledger.ApplyInTx(uow, products[line.ProductID], &MovementRequest{
			ProductID: line.ProductID,
			Type:      model.MovementOut,
			Quantity:  line.Quantity,
			Reason:    reason,
		}, cashier, &sale.ID)
		if err != nil {
			return nil, apperror.FromTx(err)
		}
	}

	// 6. Commit
	if err := uow.Commit(); err != nil {
		return nil, apperror.NewTransactionFailure(err)
	}

	touched := make([]*model.Product, 0, len(ids))
	for _, id := range ids {
		touched = append(touched, products[id])
	}
	return &checkoutResult{sale: sale, touched: touched}, nil
}

func (s *saleService) ListSales(ctx context.Context, filter repository.SaleFilter) ([]model.Sale, error) {
	sales, err := s.saleRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, apperror.NewTransactionFailure(err)
	}
	return sales, nil
}

func (s *saleService) GetSale(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	sale, err := s.saleRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NewNotFound(fmt.Sprintf("sale %s", id))
		}
		return nil, apperror.NewTransactionFailure(err)
	}
	return sale, nil
}
