package repository

import (
	"context"
	"time"

	"go-pos-inventory/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StockMovementRepository interface {
	Create(tx *gorm.DB, movement *model.StockMovement) error
	FindAll(ctx context.Context, productID *uuid.UUID) ([]model.StockMovement, error)
	FindBySale(ctx context.Context, saleID uuid.UUID) ([]model.StockMovement, error)
	SumByType(ctx context.Context, productID uuid.UUID) (map[model.MovementType]int, error)
	GetDailyMovement(ctx context.Context, startDate, endDate time.Time) ([]DailyMovement, error)
}

// DailyMovement is one point of the stock movement chart.
type DailyMovement struct {
	Date     string `json:"date"`
	Inbound  int    `json:"inbound"`
	Outbound int    `json:"outbound"`
}

type stockMovementRepo struct {
	db *gorm.DB
}

func NewStockMovementRepo(db *gorm.DB) StockMovementRepository {
	return &stockMovementRepo{db}
}

func (r *stockMovementRepo) Create(tx *gorm.DB, movement *model.StockMovement) error {
	return tx.Omit("Product", "User").Create(movement).Error
}

// preloads resolve soft-deleted products too; history outlives the catalog.
func (r *stockMovementRepo) withRelations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Product", func(db *gorm.DB) *gorm.DB {
			return db.Unscoped().Select("id", "name", "barcode", "stock_quantity", "low_stock_threshold")
		}).
		Preload("User", func(db *gorm.DB) *gorm.DB {
			return db.Unscoped().Select("id", "name", "email", "role")
		})
}

func (r *stockMovementRepo) FindAll(ctx context.Context, productID *uuid.UUID) ([]model.StockMovement, error) {
	var movements []model.StockMovement
	q := r.withRelations(ctx)
	if productID != nil {
		q = q.Where("product_id = ?", *productID)
	}
	err := q.Order("created_at DESC").Find(&movements).Error
	return movements, err
}

func (r *stockMovementRepo) FindBySale(ctx context.Context, saleID uuid.UUID) ([]model.StockMovement, error) {
	var movements []model.StockMovement
	err := r.withRelations(ctx).Where("sale_id = ?", saleID).Order("created_at ASC").Find(&movements).Error
	return movements, err
}

// SumByType totals the recorded quantities per movement type for one product.
func (r *stockMovementRepo) SumByType(ctx context.Context, productID uuid.UUID) (map[model.MovementType]int, error) {
	var rows []struct {
		Type  model.MovementType
		Total int
	}
	err := r.db.WithContext(ctx).Model(&model.StockMovement{}).
		Select("type, COALESCE(SUM(quantity), 0) AS total").
		Where("product_id = ?", productID).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	totals := make(map[model.MovementType]int, len(rows))
	for _, row := range rows {
		totals[row.Type] = row.Total
	}
	return totals, nil
}

func (r *stockMovementRepo) GetDailyMovement(ctx context.Context, startDate, endDate time.Time) ([]DailyMovement, error) {
	var results []DailyMovement

	rows, err := r.db.WithContext(ctx).Model(&model.StockMovement{}).
		Select(`
			DATE(created_at) as date,
			COALESCE(SUM(CASE WHEN type = 'IN' THEN quantity ELSE 0 END), 0) as inbound,
			COALESCE(SUM(CASE WHEN type <> 'IN' THEN quantity ELSE 0 END), 0) as outbound
		`).
		Where("created_at BETWEEN ? AND ?", startDate, endDate).
		Group("DATE(created_at)").
		Order("date ASC").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var data DailyMovement
		if err := rows.Scan(&data.Date, &data.Inbound, &data.Outbound); err != nil {
			return nil, err
		}
		results = append(results, data)
	}

	return results, rows.Err()
}
