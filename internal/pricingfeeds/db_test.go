package pricingfeeds

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/angelmondragon/pricingfeeds-backend/pkg/config"
	"github.com/angelmondragon/pricingfeeds-backend/pkg/db"
	"github.com/angelmondragon/pricingfeeds-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/pricingfeeds-backend/pkg/db/types"
	"gorm.io/gorm"
)

// openTestDB opens an in-memory sqlite database named after the test so
// each test sees isolated state, and migrates the feed schema into it.
func openTestDB(t *testing.T) *db.Client {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	client, err := db.New(context.Background(), config.DBConfig{
		Driver: config.DBDriverSQLite,
		DSN:    dsn,
	}, nil)
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})

	if err := client.DB().AutoMigrate(&models.PricingFeed{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return client
}

func mustCreateFeed(t *testing.T, conn *gorm.DB, storeID, sku, name string, price float64, date string) *models.PricingFeed {
	t.Helper()

	parsed, err := dbtypes.ParseDate(date)
	if err != nil {
		t.Fatalf("bad test date %q: %v", date, err)
	}
	feed := &models.PricingFeed{
		StoreID:     storeID,
		SKU:         sku,
		ProductName: name,
		Price:       price,
		Date:        parsed,
	}
	if err := conn.Create(feed).Error; err != nil {
		t.Fatalf("create feed: %v", err)
	}
	return feed
}

func floatPtr(v float64) *float64 { return &v }

func stringPtr(v string) *string { return &v }
