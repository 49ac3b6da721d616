package controllers

import (
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/pricingfeeds-backend/api/responses"
	"github.com/angelmondragon/pricingfeeds-backend/api/validators"
	feedsvc "github.com/angelmondragon/pricingfeeds-backend/internal/pricingfeeds"
	pkgerrors "github.com/angelmondragon/pricingfeeds-backend/pkg/errors"
	"github.com/angelmondragon/pricingfeeds-backend/pkg/logger"
	"github.com/angelmondragon/pricingfeeds-backend/pkg/pagination"
)

const maxFilterValueLen = 255

// SearchFeeds handles filtered, paginated feed searches. The body is an
// optional filter document; an absent body searches everything.
func SearchFeeds(svc feedsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing feed service unavailable"))
			return
		}

		var payload searchFeedsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil && !errors.Is(err, io.EOF) {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := paginationFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.SearchFeeds(r.Context(), payload.toFilters(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// ListFeeds handles the plain listing endpoint. It shares the search path so
// both endpoints paginate and order identically.
func ListFeeds(svc feedsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing feed service unavailable"))
			return
		}

		params, err := paginationFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := feedsvc.SearchFilters{
			StoreID: validators.SanitizeString(r.URL.Query().Get("store_id"), maxFilterValueLen),
		}

		result, err := svc.SearchFeeds(r.Context(), filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// CreateFeed handles single feed row creation.
func CreateFeed(svc feedsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing feed service unavailable"))
			return
		}

		var payload createFeedRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		feed, err := svc.CreateFeed(r.Context(), payload.toCreateInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, feed)
	}
}

// GetFeed handles fetching one feed row by id.
func GetFeed(svc feedsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing feed service unavailable"))
			return
		}

		id, err := parseFeedID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		feed, err := svc.GetFeed(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, feed)
	}
}

// UpdateFeed handles partial updates of one feed row. Absent fields keep
// their stored values.
func UpdateFeed(svc feedsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing feed service unavailable"))
			return
		}

		id, err := parseFeedID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateFeedRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		feed, err := svc.UpdateFeed(r.Context(), id, payload.toUpdateInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, feed)
	}
}

// DeleteFeed handles removal of one feed row by id.
func DeleteFeed(svc feedsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing feed service unavailable"))
			return
		}

		id, err := parseFeedID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteFeed(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"message": "pricing feed deleted"})
	}
}

// BulkUpdateFeeds handles a batch of partial updates. The batch is atomic; a
// single unknown id rejects the whole request.
func BulkUpdateFeeds(svc feedsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing feed service unavailable"))
			return
		}

		var payload []bulkUpdateItemRequest
		if err := validators.DecodeJSONArray(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]feedsvc.BulkUpdateItem, 0, len(payload))
		for _, item := range payload {
			items = append(items, feedsvc.BulkUpdateItem{
				ID:              item.ID,
				UpdateFeedInput: item.toUpdateInput(),
			})
		}

		updated, err := svc.BulkUpdateFeeds(r.Context(), items)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"message":       "pricing feeds updated",
			"updated_count": updated,
		})
	}
}

type searchFeedsRequest struct {
	StoreID     string   `json:"store_id,omitempty"`
	SKU         string   `json:"search_sku,omitempty"`
	ProductName string   `json:"search_product_name,omitempty"`
	PriceFrom   *float64 `json:"search_price_from,omitempty"`
	PriceTo     *float64 `json:"search_price_to,omitempty"`
	DateFrom    string   `json:"search_date_from,omitempty"`
	DateTo      string   `json:"search_date_to,omitempty"`
}

func (req searchFeedsRequest) toFilters() feedsvc.SearchFilters {
	return feedsvc.SearchFilters{
		StoreID:     validators.SanitizeString(req.StoreID, maxFilterValueLen),
		SKU:         validators.SanitizeString(req.SKU, maxFilterValueLen),
		ProductName: validators.SanitizeString(req.ProductName, maxFilterValueLen),
		PriceFrom:   req.PriceFrom,
		PriceTo:     req.PriceTo,
		DateFrom:    validators.SanitizeString(req.DateFrom, maxFilterValueLen),
		DateTo:      validators.SanitizeString(req.DateTo, maxFilterValueLen),
	}
}

type createFeedRequest struct {
	StoreID     string   `json:"store_id" validate:"required"`
	SKU         string   `json:"sku" validate:"required"`
	ProductName string   `json:"product_name" validate:"required"`
	Price       *float64 `json:"price" validate:"required"`
	Date        string   `json:"date" validate:"required"`
}

func (req createFeedRequest) toCreateInput() feedsvc.CreateFeedInput {
	return feedsvc.CreateFeedInput{
		StoreID:     req.StoreID,
		SKU:         req.SKU,
		ProductName: req.ProductName,
		Price:       *req.Price,
		Date:        req.Date,
	}
}

type updateFeedRequest struct {
	StoreID     *string  `json:"store_id,omitempty" validate:"omitempty,min=1"`
	SKU         *string  `json:"sku,omitempty" validate:"omitempty,min=1"`
	ProductName *string  `json:"product_name,omitempty" validate:"omitempty,min=1"`
	Price       *float64 `json:"price,omitempty"`
	Date        *string  `json:"date,omitempty" validate:"omitempty,min=1"`
}

func (req updateFeedRequest) toUpdateInput() feedsvc.UpdateFeedInput {
	return feedsvc.UpdateFeedInput{
		StoreID:     req.StoreID,
		SKU:         req.SKU,
		ProductName: req.ProductName,
		Price:       req.Price,
		Date:        req.Date,
	}
}

type bulkUpdateItemRequest struct {
	ID uint `json:"id" validate:"required"`
	updateFeedRequest
}

func paginationFromQuery(r *http.Request) (pagination.Params, error) {
	page, err := validators.ParseQueryInt(r, "page", pagination.DefaultPage, 1, math.MaxInt)
	if err != nil {
		return pagination.Params{}, err
	}

	size, err := validators.ParseQueryInt(r, "size", pagination.DefaultSize, 1, pagination.MaxSize)
	if err != nil {
		return pagination.Params{}, err
	}

	return pagination.Params{Page: page, Size: size}, nil
}

func parseFeedID(r *http.Request) (uint, error) {
	raw := chi.URLParam(r, "feedID")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid pricing feed id").
			WithDetails(map[string]string{"id": raw})
	}
	return uint(id), nil
}
