package repository

import (
	"context"
	"time"

	"go-pos-inventory/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InventoryStats is the stock side of the dashboard.
type InventoryStats struct {
	TotalProducts  int64           `json:"total_products"`
	LowStockCount  int64           `json:"low_stock_count"`
	TotalUnits     int64           `json:"total_units"`
	TotalValuation decimal.Decimal `json:"total_valuation"`
}

// SalesStats is the revenue side of the dashboard for one period.
type SalesStats struct {
	SaleCount   int64           `json:"sale_count"`
	Revenue     decimal.Decimal `json:"revenue"`
	GrossProfit decimal.Decimal `json:"gross_profit"`
}

type sumRow struct {
	Total decimal.Decimal
}

type DashboardRepository interface {
	GetInventoryStats(ctx context.Context) (*InventoryStats, error)
	GetSalesStats(ctx context.Context, startDate, endDate time.Time) (*SalesStats, error)
}

type dashboardRepo struct {
	db *gorm.DB
}

func NewDashboardRepo(db *gorm.DB) DashboardRepository {
	return &dashboardRepo{db}
}

func (r *dashboardRepo) GetInventoryStats(ctx context.Context) (*InventoryStats, error) {
	var stats InventoryStats
	db := r.db.WithContext(ctx)

	if err := db.Model(&model.Product{}).Count(&stats.TotalProducts).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.Product{}).
		Where("stock_quantity <= low_stock_threshold").
		Count(&stats.LowStockCount).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.Product{}).
		Select("COALESCE(SUM(stock_quantity), 0)").
		Scan(&stats.TotalUnits).Error; err != nil {
		return nil, err
	}
	// Valued at cost.
	var valuation sumRow
	if err := db.Model(&model.Product{}).
		Select("COALESCE(SUM(stock_quantity * cost_price), 0) AS total").
		Scan(&valuation).Error; err != nil {
		return nil, err
	}
	stats.TotalValuation = valuation.Total
	return &stats, nil
}

func (r *dashboardRepo) GetSalesStats(ctx context.Context, startDate, endDate time.Time) (*SalesStats, error) {
	var stats SalesStats
	db := r.db.WithContext(ctx)

	if err := db.Model(&model.Sale{}).
		Where("created_at BETWEEN ? AND ?", startDate, endDate).
		Count(&stats.SaleCount).Error; err != nil {
		return nil, err
	}
	var revenue sumRow
	if err := db.Model(&model.Sale{}).
		Where("created_at BETWEEN ? AND ?", startDate, endDate).
		Select("COALESCE(SUM(total_amount), 0) AS total").
		Scan(&revenue).Error; err != nil {
		return nil, err
	}
	stats.Revenue = revenue.Total
	var profit sumRow
	// Profit uses the price captured on the item and today's cost price.
	if err := db.Table("sale_items").
		Joins("JOIN sales ON sales.id = sale_items.sale_id").
		Joins("JOIN products ON products.id = sale_items.product_id").
		Where("sales.created_at BETWEEN ? AND ?", startDate, endDate).
		Select("COALESCE(SUM((sale_items.price_at_sale - products.cost_price) * sale_items.quantity), 0) AS total").
		Scan(&profit).Error; err != nil {
		return nil, err
	}
	stats.GrossProfit = profit.Total
	return &stats, nil
}
