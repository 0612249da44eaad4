package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const DefaultLowStockThreshold = 5

// Product is a catalog entry. StockQuantity is written only by the stock
// ledger; catalog updates never touch it.
type Product struct {
	BaseModel
	Barcode           *string         `gorm:"type:varchar(64);uniqueIndex" json:"barcode,omitempty"`
	Name              string          `gorm:"type:varchar(255);not null" json:"name"`
	Description       string          `gorm:"type:text" json:"description,omitempty"`
	CostPrice         decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"cost_price"`
	SellPrice         decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"sell_price"`
	StockQuantity     int             `gorm:"not null;default:0;check:chk_products_stock_non_negative,stock_quantity >= 0" json:"stock_quantity"`
	LowStockThreshold int             `gorm:"not null" json:"low_stock_threshold"`
	ImageURL          string          `gorm:"type:varchar(500)" json:"image_url,omitempty"`

	// Relasi
	CategoryID *uuid.UUID      `gorm:"type:uuid;index" json:"category_id,omitempty"`
	Category   *Category       `json:"category,omitempty"`
	Movements  []StockMovement `json:"movements,omitempty"`
}

// IsLowStock reports whether the product sits at or below its alert threshold.
func (p *Product) IsLowStock() bool {
	return p.StockQuantity <= p.LowStockThreshold
}
