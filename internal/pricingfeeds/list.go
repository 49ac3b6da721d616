package pricingfeeds

import (
	dbtypes "github.com/angelmondragon/pricingfeeds-backend/pkg/db/types"
	"github.com/angelmondragon/pricingfeeds-backend/pkg/pagination"
)

// SearchFilters describe the supported filter knobs for the search endpoint.
// Absent fields match everything.
type SearchFilters struct {
	StoreID     string   `json:"store_id,omitempty"`
	SKU         string   `json:"search_sku,omitempty"`
	ProductName string   `json:"search_product_name,omitempty"`
	PriceFrom   *float64 `json:"search_price_from,omitempty"`
	PriceTo     *float64 `json:"search_price_to,omitempty"`
	DateFrom    string   `json:"search_date_from,omitempty"`
	DateTo      string   `json:"search_date_to,omitempty"`
}

// searchQuery carries validated filters plus pagination into the repository.
type searchQuery struct {
	StoreID     string
	SKU         string
	ProductName string
	PriceFrom   *float64
	PriceTo     *float64
	DateFrom    *dbtypes.Date
	DateTo      *dbtypes.Date
	Pagination  pagination.Params
}
