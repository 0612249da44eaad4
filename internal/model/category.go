package model

type Category struct {
	BaseModel
	Name        string `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Description string `gorm:"type:text" json:"description,omitempty"`

	// Filled by list queries only.
	ProductCount int64 `gorm:"->;-:migration" json:"product_count"`

	Products []Product `json:"products,omitempty"`
}

// DefaultCategories seeds an empty store.
var DefaultCategories = []Category{
	{Name: "Food & Beverages", Description: "Food and drink products"},
	{Name: "Snacks", Description: "Snacks and sweets"},
	{Name: "Household", Description: "Household supplies"},
	{Name: "Stationery", Description: "Stationery and office supplies"},
	{Name: "Clothing", Description: "Clothing and accessories"},
	{Name: "Health & Beauty", Description: "Health and beauty products"},
	{Name: "Toys & Media", Description: "Toys and entertainment"},
	{Name: "Other", Description: "Everything else"},
}
