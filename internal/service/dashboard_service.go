package service

import (
	"context"
	"time"

	"go-pos-inventory/internal/repository"
	"go-pos-inventory/pkg/apperror"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const maxChartDays = 365

type DashboardSummary struct {
	Inventory  *repository.InventoryStats `json:"inventory"`
	Today      *repository.SalesStats     `json:"today"`
	Month      *repository.SalesStats     `json:"month"`
	MonthSpend decimal.Decimal            `json:"month_expenses"`
	// Month gross profit less month expenses.
	MonthNet decimal.Decimal `json:"month_net"`
}

type DashboardService interface {
	GetSummary(ctx context.Context) (*DashboardSummary, error)
	GetStockMovement(ctx context.Context, days int) ([]repository.DailyMovement, error)
}

type dashboardService struct {
	dashboardRepo repository.DashboardRepository
	movementRepo  repository.StockMovementRepository
	expenseRepo   repository.ExpenseRepository
	now           func() time.Time
}

func NewDashboardService(
	dashboardRepo repository.DashboardRepository,
	movementRepo repository.StockMovementRepository,
	expenseRepo repository.ExpenseRepository,
) DashboardService {
	return &dashboardService{
		dashboardRepo: dashboardRepo,
		movementRepo:  movementRepo,
		expenseRepo:   expenseRepo,
		now:           time.Now,
	}
}

// periods returns the start of today and of the current month.
func periods(now time.Time) (dayStart, monthStart time.Time) {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location()),
		time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
}

// GetSummary runs the independent aggregate queries concurrently.
func (s *dashboardService) GetSummary(ctx context.Context) (*DashboardSummary, error) {
	now := s.now()
	dayStart, monthStart := periods(now)
	summary := &DashboardSummary{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := s.dashboardRepo.GetInventoryStats(gctx)
		summary.Inventory = stats
		return err
	})
	g.Go(func() error {
		stats, err := s.dashboardRepo.GetSalesStats(gctx, dayStart, now)
		summary.Today = stats
		return err
	})
	g.Go(func() error {
		stats, err := s.dashboardRepo.GetSalesStats(gctx, monthStart, now)
		summary.Month = stats
		return err
	})
	g.Go(func() error {
		total, err := s.expenseRepo.SumBetween(gctx, monthStart, now)
		summary.MonthSpend = total
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperror.NewTransactionFailure(err)
	}

	summary.MonthNet = summary.Month.GrossProfit.Sub(summary.MonthSpend)
	return summary, nil
}

func (s *dashboardService) GetStockMovement(ctx context.Context, days int) ([]repository.DailyMovement, error) {
	if days < 1 || days > maxChartDays {
		return nil, apperror.NewInvalidArgument("days must be between 1 and %d", maxChartDays)
	}
	endDate := s.now()
	startDate := endDate.AddDate(0, 0, -days)

	data, err := s.movementRepo.GetDailyMovement(ctx, startDate, endDate)
	if err != nil {
		return nil, apperror.NewTransactionFailure(err)
	}
	return data, nil
}
