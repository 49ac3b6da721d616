package pricingfeeds

import (
	"github.com/angelmondragon/pricingfeeds-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/pricingfeeds-backend/pkg/db/types"
)

// FeedDTO represents the pricing feed payload returned to clients.
type FeedDTO struct {
	ID          uint         `json:"id"`
	StoreID     string       `json:"store_id"`
	SKU         string       `json:"sku"`
	ProductName string       `json:"product_name"`
	Price       float64      `json:"price"`
	Date        dbtypes.Date `json:"date"`
}

// NewFeedDTO builds a DTO from the persisted model.
func NewFeedDTO(feed *models.PricingFeed) *FeedDTO {
	return &FeedDTO{
		ID:          feed.ID,
		StoreID:     feed.StoreID,
		SKU:         feed.SKU,
		ProductName: feed.ProductName,
		Price:       feed.Price,
		Date:        feed.Date,
	}
}

// SearchResult is the paginated envelope for feed listings.
type SearchResult struct {
	TotalCount int64     `json:"total_count"`
	Page       int       `json:"page"`
	Size       int       `json:"size"`
	TotalPages int       `json:"total_pages"`
	Results    []FeedDTO `json:"results"`
}
