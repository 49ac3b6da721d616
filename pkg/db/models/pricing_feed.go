package models

import (
	dbtypes "github.com/angelmondragon/pricingfeeds-backend/pkg/db/types"
)

// PricingFeed is one observed price for a SKU at a store on a calendar day.
// Rows carry no uniqueness constraint; the same (store_id, sku, date) may
// repeat across uploads.
type PricingFeed struct {
	ID          uint         `gorm:"column:id;primaryKey;autoIncrement"`
	StoreID     string       `gorm:"column:store_id;index;not null"`
	SKU         string       `gorm:"column:sku;index;not null"`
	ProductName string       `gorm:"column:product_name;not null"`
	Price       float64      `gorm:"column:price;not null"`
	Date        dbtypes.Date `gorm:"column:date;type:date;index;not null"`
}
