package ingest

import (
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/pricingfeeds-backend/pkg/errors"
	"go.uber.org/multierr"
)

func TestParseCSVValidFile(t *testing.T) {
	input := "Store ID,SKU,Product Name,Price,Date,Notes\n" +
		"S1, abc ,Widget,10.5,2024-01-01,ignore me\n" +
		"S2,xyz,Gadget,0,2024-02-29\n"

	feeds, err := ParseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(feeds) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(feeds))
	}
	if feeds[0].SKU != "abc" {
		t.Fatalf("expected trimmed sku, got %q", feeds[0].SKU)
	}
	if feeds[0].Price != 10.5 {
		t.Fatalf("expected price 10.5, got %v", feeds[0].Price)
	}
	if feeds[1].Price != 0 {
		t.Fatalf("expected zero price preserved, got %v", feeds[1].Price)
	}
	if feeds[1].Date.String() != "2024-02-29" {
		t.Fatalf("expected leap day kept, got %s", feeds[1].Date)
	}
}

func TestParseCSVHeaderOnly(t *testing.T) {
	feeds, err := ParseCSV(strings.NewReader("Store ID,SKU,Product Name,Price,Date\n"))
	if err != nil {
		t.Fatalf("expected header-only file to parse, got %v", err)
	}
	if len(feeds) != 0 {
		t.Fatalf("expected 0 rows, got %d", len(feeds))
	}
}

func TestParseCSVEmptyFile(t *testing.T) {
	_, err := ParseCSV(strings.NewReader(""))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeIngestion {
		t.Fatalf("expected ingestion error, got %v", err)
	}
}

func TestParseCSVMissingColumns(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("Store ID,SKU,Price\nS1,abc,10\n"))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeIngestion {
		t.Fatalf("expected ingestion error, got %v", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "Product Name") || !strings.Contains(msg, "Date") {
		t.Fatalf("expected missing column names in %q", msg)
	}
}

func TestParseCSVCollectsRowErrors(t *testing.T) {
	input := "Store ID,SKU,Product Name,Price,Date\n" +
		"S1,abc,Widget,notaprice,2024-01-01\n" +
		"S1,abd,Widget,10,2024-99-01\n" +
		"S1,abe,Widget,10,2024-01-02\n"

	_, err := ParseCSV(strings.NewReader(input))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeIngestion {
		t.Fatalf("expected ingestion error, got %v", err)
	}

	msg := err.Error()
	if !strings.Contains(msg, "row 2") || !strings.Contains(msg, "row 3") {
		t.Fatalf("expected row numbers in %q", msg)
	}
	if !strings.Contains(msg, `invalid price "notaprice"`) {
		t.Fatalf("expected price detail in %q", msg)
	}

	if errs := multierr.Errors(typed.Unwrap()); len(errs) != 2 {
		t.Fatalf("expected 2 collected row errors, got %d", len(errs))
	}
}

func TestParseCSVShortRow(t *testing.T) {
	input := "Store ID,SKU,Product Name,Price,Date\n" +
		"S1,abc\n"

	_, err := ParseCSV(strings.NewReader(input))
	if err == nil {
		t.Fatal("expected error for short row")
	}
	if !strings.Contains(err.Error(), "row 2") {
		t.Fatalf("expected row number in %q", err.Error())
	}
}

func TestParseCSVEmptyValueIsRowError(t *testing.T) {
	input := "Store ID,SKU,Product Name,Price,Date\n" +
		"S1,,Widget,10,2024-01-01\n"

	_, err := ParseCSV(strings.NewReader(input))
	if err == nil || !strings.Contains(err.Error(), "empty SKU") {
		t.Fatalf("expected empty SKU row error, got %v", err)
	}
}

func TestParseCSVHandlesBOMHeader(t *testing.T) {
	input := "﻿Store ID,SKU,Product Name,Price,Date\n" +
		"S1,abc,Widget,10,2024-01-01\n"

	feeds, err := ParseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("parse csv with BOM: %v", err)
	}
	if len(feeds) != 1 || feeds[0].StoreID != "S1" {
		t.Fatalf("unexpected rows: %+v", feeds)
	}
}
