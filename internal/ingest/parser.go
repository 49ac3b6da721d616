package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/angelmondragon/pricingfeeds-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/pricingfeeds-backend/pkg/db/types"
	pkgerrors "github.com/angelmondragon/pricingfeeds-backend/pkg/errors"
	"go.uber.org/multierr"
)

const (
	colStoreID     = "Store ID"
	colSKU         = "SKU"
	colProductName = "Product Name"
	colPrice       = "Price"
	colDate        = "Date"
)

var requiredColumns = []string{colStoreID, colSKU, colProductName, colPrice, colDate}

// ParseCSV reads a pricing feed export and returns one model row per data
// row. Columns beyond the required five are ignored. Any invalid row fails
// the whole file; row errors are collected with their 1-based line numbers.
func ParseCSV(r io.Reader) ([]models.PricingFeed, error) {
	reader := csv.NewReader(r)
	// Ragged rows are reported per row, not as a reader abort.
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, pkgerrors.New(pkgerrors.CodeIngestion, "csv file is empty")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeIngestion, err, "read csv header")
	}

	index, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	var feeds []models.PricingFeed
	var rowErrs error
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			rowErrs = multierr.Append(rowErrs, fmt.Errorf("row %d: %w", line, err))
			continue
		}

		feed, err := parseRow(index, record)
		if err != nil {
			rowErrs = multierr.Append(rowErrs, fmt.Errorf("row %d: %w", line, err))
			continue
		}
		feeds = append(feeds, feed)
	}

	if rowErrs != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeIngestion, rowErrs, "csv contains invalid rows")
	}
	return feeds, nil
}

// mapHeader resolves the position of each required column. Header cells are
// matched after trimming whitespace and a leading BOM.
func mapHeader(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, cell := range header {
		name := strings.TrimSpace(strings.TrimPrefix(cell, "﻿"))
		if _, seen := index[name]; !seen {
			index[name] = i
		}
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeIngestion,
			fmt.Sprintf("csv is missing required columns: %s", strings.Join(missing, ", ")))
	}
	return index, nil
}

func parseRow(index map[string]int, record []string) (models.PricingFeed, error) {
	storeID, err := fieldAt(record, index, colStoreID)
	if err != nil {
		return models.PricingFeed{}, err
	}
	sku, err := fieldAt(record, index, colSKU)
	if err != nil {
		return models.PricingFeed{}, err
	}
	productName, err := fieldAt(record, index, colProductName)
	if err != nil {
		return models.PricingFeed{}, err
	}
	rawPrice, err := fieldAt(record, index, colPrice)
	if err != nil {
		return models.PricingFeed{}, err
	}
	rawDate, err := fieldAt(record, index, colDate)
	if err != nil {
		return models.PricingFeed{}, err
	}

	price, err := strconv.ParseFloat(rawPrice, 64)
	if err != nil {
		return models.PricingFeed{}, fmt.Errorf("invalid price %q", rawPrice)
	}
	date, err := dbtypes.ParseDate(rawDate)
	if err != nil {
		return models.PricingFeed{}, fmt.Errorf("invalid date %q", rawDate)
	}

	return models.PricingFeed{
		StoreID:     storeID,
		SKU:         sku,
		ProductName: productName,
		Price:       price,
		Date:        date,
	}, nil
}

func fieldAt(record []string, index map[string]int, col string) (string, error) {
	idx, ok := index[col]
	if !ok || idx >= len(record) {
		return "", fmt.Errorf("missing %s", col)
	}
	value := strings.TrimSpace(record[idx])
	if value == "" {
		return "", fmt.Errorf("empty %s", col)
	}
	return value, nil
}
