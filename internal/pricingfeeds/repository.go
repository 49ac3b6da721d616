package pricingfeeds

import (
	"context"
	"strings"

	"github.com/angelmondragon/pricingfeeds-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository wires together pricing feed persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a new feed row and returns it with the assigned id.
func (r *Repository) Create(ctx context.Context, feed *models.PricingFeed) (*models.PricingFeed, error) {
	if err := r.db.WithContext(ctx).Create(feed).Error; err != nil {
		return nil, err
	}
	return feed, nil
}

// CreateInBatches inserts the given rows in chunks of batchSize.
func (r *Repository) CreateInBatches(ctx context.Context, feeds []models.PricingFeed, batchSize int) error {
	if len(feeds) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(feeds, batchSize).Error
}

// FindByID loads a single feed row.
func (r *Repository) FindByID(ctx context.Context, id uint) (*models.PricingFeed, error) {
	var feed models.PricingFeed
	if err := r.db.WithContext(ctx).First(&feed, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &feed, nil
}

// Save persists all columns of an already-loaded feed row.
func (r *Repository) Save(ctx context.Context, feed *models.PricingFeed) (*models.PricingFeed, error) {
	if err := r.db.WithContext(ctx).Save(feed).Error; err != nil {
		return nil, err
	}
	return feed, nil
}

// Delete removes the feed row by id.
func (r *Repository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.PricingFeed{}).Error
}

// Search returns the matching page of feeds ordered by ascending id,
// plus the total match count before pagination.
func (r *Repository) Search(ctx context.Context, query searchQuery) ([]models.PricingFeed, int64, error) {
	var total int64
	if err := r.searchScope(ctx, query).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var feeds []models.PricingFeed
	if err := r.searchScope(ctx, query).
		Order("id ASC").
		Offset(query.Pagination.Offset()).
		Limit(query.Pagination.Size).
		Find(&feeds).Error; err != nil {
		return nil, 0, err
	}
	return feeds, total, nil
}

// searchScope builds a fresh filtered query; callers chain their own finisher.
func (r *Repository) searchScope(ctx context.Context, query searchQuery) *gorm.DB {
	qb := r.db.WithContext(ctx).Model(&models.PricingFeed{})

	if query.StoreID != "" {
		qb = qb.Where("store_id = ?", query.StoreID)
	}
	if search := strings.TrimSpace(query.SKU); search != "" {
		qb = qb.Where("LOWER(sku) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	if search := strings.TrimSpace(query.ProductName); search != "" {
		qb = qb.Where("LOWER(product_name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	// An upper bound without its lower bound is ignored.
	if query.PriceFrom != nil {
		qb = qb.Where("price >= ?", *query.PriceFrom)
		if query.PriceTo != nil {
			qb = qb.Where("price <= ?", *query.PriceTo)
		}
	}
	if query.DateFrom != nil {
		qb = qb.Where("date >= ?", *query.DateFrom)
		if query.DateTo != nil {
			qb = qb.Where("date <= ?", *query.DateTo)
		}
	}

	return qb
}
