package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	feedsvc "github.com/angelmondragon/pricingfeeds-backend/internal/pricingfeeds"
	dbtypes "github.com/angelmondragon/pricingfeeds-backend/pkg/db/types"
	pkgerrors "github.com/angelmondragon/pricingfeeds-backend/pkg/errors"
	"github.com/angelmondragon/pricingfeeds-backend/pkg/logger"
	"github.com/angelmondragon/pricingfeeds-backend/pkg/pagination"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
}

func mustDate(t *testing.T, value string) dbtypes.Date {
	t.Helper()
	d, err := dbtypes.ParseDate(value)
	if err != nil {
		t.Fatalf("parse date %q: %v", value, err)
	}
	return d
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func withFeedID(req *http.Request, id string) *http.Request {
	return withURLParam(req, "feedID", id)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestCreateFeed(t *testing.T) {
	logg := testLogger()

	t.Run("success returns 201 with the created row", func(t *testing.T) {
		stub := &stubFeedService{
			createResult: &feedsvc.FeedDTO{ID: 9, StoreID: "S1", SKU: "abc", ProductName: "Widget", Price: 10.5, Date: mustDate(t, "2024-01-01")},
		}
		body := `{"store_id":"S1","sku":"abc","product_name":"Widget","price":10.5,"date":"2024-01-01"}`
		req := httptest.NewRequest(http.MethodPost, "/api/pricing_feeds", strings.NewReader(body))
		rec := httptest.NewRecorder()

		CreateFeed(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if stub.createInput == nil {
			t.Fatal("expected CreateFeed to be invoked")
		}
		if stub.createInput.Price != 10.5 || stub.createInput.SKU != "abc" {
			t.Fatalf("unexpected input forwarded: %+v", stub.createInput)
		}
		var got feedsvc.FeedDTO
		decodeBody(t, rec, &got)
		if got.ID != 9 || got.StoreID != "S1" {
			t.Fatalf("unexpected response body: %+v", got)
		}
	})

	t.Run("zero price is a valid value", func(t *testing.T) {
		stub := &stubFeedService{createResult: &feedsvc.FeedDTO{ID: 1}}
		body := `{"store_id":"S1","sku":"abc","product_name":"Widget","price":0,"date":"2024-01-01"}`
		req := httptest.NewRequest(http.MethodPost, "/api/pricing_feeds", strings.NewReader(body))
		rec := httptest.NewRecorder()

		CreateFeed(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201 for zero price, got %d: %s", rec.Code, rec.Body.String())
		}
		if stub.createInput == nil || stub.createInput.Price != 0 {
			t.Fatalf("expected zero price forwarded, got %+v", stub.createInput)
		}
	})

	t.Run("missing price is rejected", func(t *testing.T) {
		stub := &stubFeedService{}
		body := `{"store_id":"S1","sku":"abc","product_name":"Widget","date":"2024-01-01"}`
		req := httptest.NewRequest(http.MethodPost, "/api/pricing_feeds", strings.NewReader(body))
		rec := httptest.NewRecorder()

		CreateFeed(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 when price absent, got %d", rec.Code)
		}
		if stub.createInput != nil {
			t.Fatal("service must not be called on invalid payload")
		}
	})

	t.Run("malformed json is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/pricing_feeds", strings.NewReader(`{"store_id":`))
		rec := httptest.NewRecorder()

		CreateFeed(&stubFeedService{}, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for malformed json, got %d", rec.Code)
		}
	})
}

func TestGetFeed(t *testing.T) {
	logg := testLogger()

	t.Run("success", func(t *testing.T) {
		stub := &stubFeedService{
			getResult: &feedsvc.FeedDTO{ID: 7, StoreID: "S1", SKU: "abc", ProductName: "Widget", Price: 10, Date: mustDate(t, "2024-01-01")},
		}
		req := withFeedID(httptest.NewRequest(http.MethodGet, "/api/pricing_feeds/7", nil), "7")
		rec := httptest.NewRecorder()

		GetFeed(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if stub.getID != 7 {
			t.Fatalf("expected id 7 forwarded, got %d", stub.getID)
		}
		var got map[string]any
		decodeBody(t, rec, &got)
		if got["date"] != "2024-01-01" {
			t.Fatalf("expected ISO date in payload, got %v", got["date"])
		}
	})

	t.Run("unknown id returns 404", func(t *testing.T) {
		stub := &stubFeedService{getErr: pkgerrors.New(pkgerrors.CodeNotFound, "pricing feed not found")}
		req := withFeedID(httptest.NewRequest(http.MethodGet, "/api/pricing_feeds/99", nil), "99")
		rec := httptest.NewRecorder()

		GetFeed(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("non-numeric id returns 400", func(t *testing.T) {
		req := withFeedID(httptest.NewRequest(http.MethodGet, "/api/pricing_feeds/abc", nil), "abc")
		rec := httptest.NewRecorder()

		GetFeed(&stubFeedService{}, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestUpdateFeed(t *testing.T) {
	logg := testLogger()

	t.Run("forwards only supplied fields", func(t *testing.T) {
		stub := &stubFeedService{updateResult: &feedsvc.FeedDTO{ID: 3}}
		req := withFeedID(httptest.NewRequest(http.MethodPut, "/api/pricing_feeds/3", strings.NewReader(`{"price":12.5}`)), "3")
		rec := httptest.NewRecorder()

		UpdateFeed(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if stub.updateID != 3 {
			t.Fatalf("expected id 3 forwarded, got %d", stub.updateID)
		}
		input := stub.updateInput
		if input == nil || input.Price == nil || *input.Price != 12.5 {
			t.Fatalf("expected price pointer forwarded, got %+v", input)
		}
		if input.StoreID != nil || input.SKU != nil || input.ProductName != nil || input.Date != nil {
			t.Fatalf("expected absent fields to stay nil, got %+v", input)
		}
	})

	t.Run("empty sku is rejected", func(t *testing.T) {
		stub := &stubFeedService{}
		req := withFeedID(httptest.NewRequest(http.MethodPut, "/api/pricing_feeds/3", strings.NewReader(`{"sku":""}`)), "3")
		rec := httptest.NewRecorder()

		UpdateFeed(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for empty sku, got %d", rec.Code)
		}
		if stub.updateInput != nil {
			t.Fatal("service must not be called on invalid payload")
		}
	})
}

func TestDeleteFeed(t *testing.T) {
	logg := testLogger()

	t.Run("success", func(t *testing.T) {
		stub := &stubFeedService{}
		req := withFeedID(httptest.NewRequest(http.MethodDelete, "/api/pricing_feeds/5", nil), "5")
		rec := httptest.NewRecorder()

		DeleteFeed(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if stub.deleteID != 5 {
			t.Fatalf("expected id 5 forwarded, got %d", stub.deleteID)
		}
		var got map[string]string
		decodeBody(t, rec, &got)
		if got["message"] == "" {
			t.Fatalf("expected confirmation message, got %v", got)
		}
	})

	t.Run("unknown id returns 404", func(t *testing.T) {
		stub := &stubFeedService{deleteErr: pkgerrors.New(pkgerrors.CodeNotFound, "pricing feed not found")}
		req := withFeedID(httptest.NewRequest(http.MethodDelete, "/api/pricing_feeds/5", nil), "5")
		rec := httptest.NewRecorder()

		DeleteFeed(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestSearchFeeds(t *testing.T) {
	logg := testLogger()

	emptyResult := &feedsvc.SearchResult{Page: 1, Size: 10, Results: []feedsvc.FeedDTO{}}

	t.Run("absent body searches with defaults", func(t *testing.T) {
		stub := &stubFeedService{searchResult: emptyResult}
		req := httptest.NewRequest(http.MethodPost, "/api/search", nil)
		rec := httptest.NewRecorder()

		SearchFeeds(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if stub.searchParams == nil {
			t.Fatal("expected SearchFeeds to be invoked")
		}
		if stub.searchParams.Page != pagination.DefaultPage || stub.searchParams.Size != pagination.DefaultSize {
			t.Fatalf("expected default pagination, got %+v", stub.searchParams)
		}
		if *stub.searchFilters != (feedsvc.SearchFilters{}) {
			t.Fatalf("expected empty filters, got %+v", stub.searchFilters)
		}
	})

	t.Run("body filters and query pagination are forwarded", func(t *testing.T) {
		stub := &stubFeedService{searchResult: emptyResult}
		body := `{"store_id":" S1 ","search_sku":"ab","search_price_from":5}`
		req := httptest.NewRequest(http.MethodPost, "/api/search?page=2&size=50", strings.NewReader(body))
		rec := httptest.NewRecorder()

		SearchFeeds(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if stub.searchParams.Page != 2 || stub.searchParams.Size != 50 {
			t.Fatalf("unexpected pagination: %+v", stub.searchParams)
		}
		filters := stub.searchFilters
		if filters.StoreID != "S1" {
			t.Fatalf("expected trimmed store filter, got %q", filters.StoreID)
		}
		if filters.SKU != "ab" || filters.PriceFrom == nil || *filters.PriceFrom != 5 {
			t.Fatalf("unexpected filters: %+v", filters)
		}
	})

	t.Run("zero page is rejected", func(t *testing.T) {
		stub := &stubFeedService{searchResult: emptyResult}
		req := httptest.NewRequest(http.MethodPost, "/api/search?page=0", nil)
		rec := httptest.NewRecorder()

		SearchFeeds(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for page=0, got %d", rec.Code)
		}
		if stub.searchParams != nil {
			t.Fatal("service must not be called on invalid pagination")
		}
	})

	t.Run("oversized page size is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/search?size=1001", nil)
		rec := httptest.NewRecorder()

		SearchFeeds(&stubFeedService{searchResult: emptyResult}, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for size above cap, got %d", rec.Code)
		}
	})

	t.Run("unknown filter field is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(`{"sort":"price"}`))
		rec := httptest.NewRecorder()

		SearchFeeds(&stubFeedService{searchResult: emptyResult}, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for unknown field, got %d", rec.Code)
		}
	})
}

func TestListFeeds(t *testing.T) {
	logg := testLogger()

	stub := &stubFeedService{searchResult: &feedsvc.SearchResult{Page: 1, Size: 10, Results: []feedsvc.FeedDTO{}}}
	req := httptest.NewRequest(http.MethodGet, "/api/pricing_feeds?store_id=S2&size=25", nil)
	rec := httptest.NewRecorder()

	ListFeeds(stub, logg).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.searchFilters.StoreID != "S2" {
		t.Fatalf("expected store filter from query, got %+v", stub.searchFilters)
	}
	if stub.searchParams.Size != 25 {
		t.Fatalf("expected size 25, got %+v", stub.searchParams)
	}
}

func TestBulkUpdateFeeds(t *testing.T) {
	logg := testLogger()

	t.Run("success reports updated count", func(t *testing.T) {
		stub := &stubFeedService{bulkCount: 2}
		body := `[{"id":1,"price":11},{"id":2,"store_id":"S9"}]`
		req := httptest.NewRequest(http.MethodPost, "/api/pricing_feeds/bulk_update", strings.NewReader(body))
		rec := httptest.NewRecorder()

		BulkUpdateFeeds(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if len(stub.bulkItems) != 2 {
			t.Fatalf("expected 2 items forwarded, got %d", len(stub.bulkItems))
		}
		if stub.bulkItems[0].ID != 1 || stub.bulkItems[0].Price == nil || *stub.bulkItems[0].Price != 11 {
			t.Fatalf("unexpected first item: %+v", stub.bulkItems[0])
		}
		if stub.bulkItems[1].ID != 2 || stub.bulkItems[1].StoreID == nil || *stub.bulkItems[1].StoreID != "S9" {
			t.Fatalf("unexpected second item: %+v", stub.bulkItems[1])
		}
		var got map[string]any
		decodeBody(t, rec, &got)
		if got["updated_count"] != float64(2) {
			t.Fatalf("expected updated_count 2, got %v", got["updated_count"])
		}
	})

	t.Run("item without id is rejected", func(t *testing.T) {
		stub := &stubFeedService{}
		req := httptest.NewRequest(http.MethodPost, "/api/pricing_feeds/bulk_update", strings.NewReader(`[{"price":11}]`))
		rec := httptest.NewRecorder()

		BulkUpdateFeeds(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for missing id, got %d", rec.Code)
		}
		if stub.bulkItems != nil {
			t.Fatal("service must not be called on invalid payload")
		}
	})

	t.Run("missing row aborts with 404", func(t *testing.T) {
		stub := &stubFeedService{bulkErr: pkgerrors.New(pkgerrors.CodeNotFound, "pricing feed 2 not found")}
		req := httptest.NewRequest(http.MethodPost, "/api/pricing_feeds/bulk_update", strings.NewReader(`[{"id":2,"price":11}]`))
		rec := httptest.NewRecorder()

		BulkUpdateFeeds(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

type stubFeedService struct {
	createInput  *feedsvc.CreateFeedInput
	createResult *feedsvc.FeedDTO
	createErr    error

	getID     uint
	getResult *feedsvc.FeedDTO
	getErr    error

	updateID     uint
	updateInput  *feedsvc.UpdateFeedInput
	updateResult *feedsvc.FeedDTO
	updateErr    error

	deleteID  uint
	deleteErr error

	searchFilters *feedsvc.SearchFilters
	searchParams  *pagination.Params
	searchResult  *feedsvc.SearchResult
	searchErr     error

	bulkItems []feedsvc.BulkUpdateItem
	bulkCount int
	bulkErr   error
}

func (s *stubFeedService) CreateFeed(ctx context.Context, input feedsvc.CreateFeedInput) (*feedsvc.FeedDTO, error) {
	s.createInput = &input
	return s.createResult, s.createErr
}

func (s *stubFeedService) GetFeed(ctx context.Context, id uint) (*feedsvc.FeedDTO, error) {
	s.getID = id
	return s.getResult, s.getErr
}

func (s *stubFeedService) UpdateFeed(ctx context.Context, id uint, input feedsvc.UpdateFeedInput) (*feedsvc.FeedDTO, error) {
	s.updateID = id
	s.updateInput = &input
	return s.updateResult, s.updateErr
}

func (s *stubFeedService) DeleteFeed(ctx context.Context, id uint) error {
	s.deleteID = id
	return s.deleteErr
}

func (s *stubFeedService) SearchFeeds(ctx context.Context, filters feedsvc.SearchFilters, params pagination.Params) (*feedsvc.SearchResult, error) {
	s.searchFilters = &filters
	s.searchParams = &params
	return s.searchResult, s.searchErr
}

func (s *stubFeedService) BulkUpdateFeeds(ctx context.Context, items []feedsvc.BulkUpdateItem) (int, error) {
	s.bulkItems = items
	return s.bulkCount, s.bulkErr
}
