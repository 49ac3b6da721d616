package pricingfeeds

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/pricingfeeds-backend/pkg/db"
	"github.com/angelmondragon/pricingfeeds-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/pricingfeeds-backend/pkg/db/types"
	pkgerrors "github.com/angelmondragon/pricingfeeds-backend/pkg/errors"
	"github.com/angelmondragon/pricingfeeds-backend/pkg/pagination"
	"gorm.io/gorm"
)

// Service exposes pricing feed management operations.
type Service interface {
	CreateFeed(ctx context.Context, input CreateFeedInput) (*FeedDTO, error)
	GetFeed(ctx context.Context, id uint) (*FeedDTO, error)
	UpdateFeed(ctx context.Context, id uint, input UpdateFeedInput) (*FeedDTO, error)
	DeleteFeed(ctx context.Context, id uint) error
	SearchFeeds(ctx context.Context, filters SearchFilters, params pagination.Params) (*SearchResult, error)
	BulkUpdateFeeds(ctx context.Context, items []BulkUpdateItem) (int, error)
}

// CreateFeedInput holds the validated payload to create a feed row.
type CreateFeedInput struct {
	StoreID     string
	SKU         string
	ProductName string
	Price       float64
	Date        string
}

// UpdateFeedInput holds optional mutation values for a feed row. Only
// non-nil fields are applied.
type UpdateFeedInput struct {
	StoreID     *string
	SKU         *string
	ProductName *string
	Price       *float64
	Date        *string
}

// BulkUpdateItem targets one row within a bulk update batch.
type BulkUpdateItem struct {
	ID uint
	UpdateFeedInput
}

// service implements the pricing feed service.
type service struct {
	repo     *Repository
	dbClient *db.Client
}

// NewService constructs a pricing feed service instance.
func NewService(repo *Repository, dbClient *db.Client) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("pricing feed repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{repo: repo, dbClient: dbClient}, nil
}

func (s *service) CreateFeed(ctx context.Context, input CreateFeedInput) (*FeedDTO, error) {
	date, err := dbtypes.ParseDate(strings.TrimSpace(input.Date))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid date")
	}

	feed := &models.PricingFeed{
		StoreID:     strings.TrimSpace(input.StoreID),
		SKU:         strings.TrimSpace(input.SKU),
		ProductName: strings.TrimSpace(input.ProductName),
		Price:       input.Price,
		Date:        date,
	}

	if _, err := s.repo.Create(ctx, feed); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert pricing feed")
	}
	return NewFeedDTO(feed), nil
}

func (s *service) GetFeed(ctx context.Context, id uint) (*FeedDTO, error) {
	feed, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pricing feed not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load pricing feed")
	}
	return NewFeedDTO(feed), nil
}

func (s *service) UpdateFeed(ctx context.Context, id uint, input UpdateFeedInput) (*FeedDTO, error) {
	feed, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pricing feed not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load pricing feed")
	}

	if err := applyUpdateToFeed(feed, input); err != nil {
		return nil, err
	}

	if _, err := s.repo.Save(ctx, feed); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update pricing feed")
	}
	return NewFeedDTO(feed), nil
}

func (s *service) DeleteFeed(ctx context.Context, id uint) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "pricing feed not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load pricing feed")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete pricing feed")
	}
	return nil
}

func (s *service) SearchFeeds(ctx context.Context, filters SearchFilters, params pagination.Params) (*SearchResult, error) {
	if !params.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "page and size must be positive")
	}

	query, err := filters.toQuery(params)
	if err != nil {
		return nil, err
	}

	feeds, total, err := s.repo.Search(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: search pricing feeds")
	}

	results := make([]FeedDTO, 0, len(feeds))
	for i := range feeds {
		results = append(results, *NewFeedDTO(&feeds[i]))
	}

	return &SearchResult{
		TotalCount: total,
		Page:       params.Page,
		Size:       params.Size,
		TotalPages: pagination.TotalPages(total, params.Size),
		Results:    results,
	}, nil
}

func (s *service) BulkUpdateFeeds(ctx context.Context, items []BulkUpdateItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	updated := 0
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		for _, item := range items {
			feed, err := txRepo.FindByID(ctx, item.ID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("pricing feed %d not found", item.ID))
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load pricing feed")
			}
			if err := applyUpdateToFeed(feed, item.UpdateFeedInput); err != nil {
				return err
			}
			if _, err := txRepo.Save(ctx, feed); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update pricing feed")
			}
			updated++
		}
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return 0, err
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bulk update pricing feeds")
	}
	return updated, nil
}

// toQuery validates the string filters and converts them to a repository query.
// Both date bounds are validated even though a lone upper bound is ignored.
func (f SearchFilters) toQuery(params pagination.Params) (searchQuery, error) {
	query := searchQuery{
		StoreID:     strings.TrimSpace(f.StoreID),
		SKU:         f.SKU,
		ProductName: f.ProductName,
		PriceFrom:   f.PriceFrom,
		PriceTo:     f.PriceTo,
		Pagination:  params,
	}

	if raw := strings.TrimSpace(f.DateFrom); raw != "" {
		date, err := dbtypes.ParseDate(raw)
		if err != nil {
			return searchQuery{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid search_date_from")
		}
		query.DateFrom = &date
	}
	if raw := strings.TrimSpace(f.DateTo); raw != "" {
		date, err := dbtypes.ParseDate(raw)
		if err != nil {
			return searchQuery{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid search_date_to")
		}
		query.DateTo = &date
	}

	return query, nil
}

// applyUpdateToFeed copies the non-nil input fields onto the feed row.
func applyUpdateToFeed(feed *models.PricingFeed, input UpdateFeedInput) error {
	if input.StoreID != nil {
		feed.StoreID = strings.TrimSpace(*input.StoreID)
	}
	if input.SKU != nil {
		feed.SKU = strings.TrimSpace(*input.SKU)
	}
	if input.ProductName != nil {
		feed.ProductName = strings.TrimSpace(*input.ProductName)
	}
	if input.Price != nil {
		feed.Price = *input.Price
	}
	if input.Date != nil {
		date, err := dbtypes.ParseDate(strings.TrimSpace(*input.Date))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid date")
		}
		feed.Date = date
	}
	return nil
}
