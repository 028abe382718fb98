package service

import (
	"context"
	"strings"
	"testing"

	"github.com/itsfahadusman/pharmacy-pos-advanced/internal/domain"
)

func TestImportMedicinesMixedRows(t *testing.T) {
	svc := newTestService()
	ctx := adminContext()

	input := strings.Join([]string{
		"Name,Generic Name,Brand,Category,Quantity,Reorder Level,Cost Price,Selling Price,Expiry Date,Barcode",
		"Aspirin 100mg,Aspirin,Disprin,Analgesic,50,10,1.50,3.00,2027-06-30,7700000000011",
		",Aspirin,Disprin,Analgesic,50,10,1.50,3.00,,",
		"Loratadine 10mg,Loratadine,Claritin,Antihistamine,abc,10,1.00,2.00,,7700000000028",
		"Loperamide 2mg,Loperamide,Imodium,Antidiarrheal,30,5,0.80,1.60,,7700000000035",
	}, "\n")

	result, err := svc.ImportMedicines(ctx, strings.NewReader(input))
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if result.SuccessCount != 2 {
		t.Fatalf("expected 2 rows imported, got %d", result.SuccessCount)
	}
	if result.ErrorCount != 2 {
		t.Fatalf("expected 2 row errors, got %d: %+v", result.ErrorCount, result.Errors)
	}
	if result.Errors[0].Row != 3 {
		t.Fatalf("expected first error on row 3, got %d", result.Errors[0].Row)
	}

	medicines, err := svc.ListMedicines(ctx, domain.MedicineFilter{Search: "Loperamide"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(medicines) != 1 || medicines[0].PriceCents != 160 {
		t.Fatalf("expected loperamide at 160 cents, got %+v", medicines)
	}
}

func TestImportMedicinesLowercaseHeader(t *testing.T) {
	svc := newTestService()
	ctx := adminContext()

	input := strings.Join([]string{
		"name,generic_name,brand,category,quantity,reorder_level,cost_price,price,expiry_date,barcode,batch_number,rack_location,description,requires_prescription",
		"Tramadol 50mg,Tramadol,Ultram,Analgesic,40,10,8.00,15.00,2027-09-30,7700000000042,BATCH009,C-2-1,Moderate pain relief,1",
	}, "\n")

	result, err := svc.ImportMedicines(ctx, strings.NewReader(input))
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if result.SuccessCount != 1 || result.ErrorCount != 0 {
		t.Fatalf("expected the row to import, got %+v", result)
	}

	medicines, err := svc.ListMedicines(ctx, domain.MedicineFilter{Search: "Tramadol"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(medicines) != 1 {
		t.Fatalf("expected one imported medicine, got %+v", medicines)
	}
	med := medicines[0]
	if med.PriceCents != 1500 {
		t.Fatalf("expected price column to map to 1500 cents, got %d", med.PriceCents)
	}
	if med.Description != "Moderate pain relief" {
		t.Fatalf("expected description to be imported, got %q", med.Description)
	}
	if !med.RequiresPrescription {
		t.Fatalf("expected prescription flag to be imported")
	}
}

func TestImportMedicinesSkipsDuplicateBarcodes(t *testing.T) {
	svc := newTestService()
	ctx := adminContext()

	input := strings.Join([]string{
		"Name,Brand,Selling Price,Barcode",
		"Aspirin 100mg,Disprin,3.00,7700000000011",
		"Aspirin Copy,Disprin,3.00,7700000000011",
		"Paracetamol Rebrand,Generic,2.00,8901234500017",
	}, "\n")

	result, err := svc.ImportMedicines(ctx, strings.NewReader(input))
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if result.SuccessCount != 1 {
		t.Fatalf("expected only the first row to import, got %d", result.SuccessCount)
	}
	if result.ErrorCount != 2 {
		t.Fatalf("expected in-file and existing barcode duplicates rejected, got %+v", result.Errors)
	}
}

func TestImportMedicinesEmptyInput(t *testing.T) {
	svc := newTestService()

	result, err := svc.ImportMedicines(adminContext(), strings.NewReader(""))
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if result.SuccessCount != 0 || result.ErrorCount != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
}

func TestImportMedicinesRejectsBadExpiryAndPrice(t *testing.T) {
	svc := newTestService()

	input := strings.Join([]string{
		"Name,Brand,Selling Price,Expiry Date",
		"Aspirin 100mg,Disprin,free,",
		"Aspirin 100mg,Disprin,3.00,31/12/2027",
	}, "\n")

	result, err := svc.ImportMedicines(adminContext(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if result.SuccessCount != 0 || result.ErrorCount != 2 {
		t.Fatalf("expected both rows rejected, got %+v", result)
	}
}

func TestExportInventoryCSV(t *testing.T) {
	svc := newTestService()

	payload, err := svc.ExportInventoryCSV(context.Background())
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	if !strings.HasPrefix(lines[0], "ID,Name,Generic Name,Brand") {
		t.Fatalf("unexpected header %q", lines[0])
	}
	// Six seeded medicines plus the header.
	if len(lines) != 7 {
		t.Fatalf("expected 7 lines, got %d", len(lines))
	}
	if !strings.Contains(string(payload), "Paracetamol 500mg") {
		t.Fatalf("expected seeded medicine in export")
	}
	if !strings.Contains(string(payload), "10.00") {
		t.Fatalf("expected decimal price formatting in export")
	}
}

func TestExportSalesCSVUsesWalkInFallback(t *testing.T) {
	svc := newTestService()
	ctx := cashierContext()

	_, err := svc.Checkout(ctx, domain.SaleRequest{
		PaymentMethod: domain.PaymentCash,
		Items:         []domain.SaleItemRequest{{MedicineID: 1, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	today := timeNowDate()
	payload, err := svc.ExportSalesCSV(ctx, today, today)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}

	text := string(payload)
	if !strings.HasPrefix(text, "Invoice,Medicine,Customer") {
		t.Fatalf("unexpected header in %q", text)
	}
	if !strings.Contains(text, "Walk-in") {
		t.Fatalf("expected walk-in customer fallback, got %q", text)
	}
	if !strings.Contains(text, "Paracetamol 500mg") {
		t.Fatalf("expected medicine name in export, got %q", text)
	}
}

func TestExportSalesCSVEmitsDiscountPercent(t *testing.T) {
	svc := newTestService()
	ctx := cashierContext()

	_, err := svc.Checkout(ctx, domain.SaleRequest{
		PaymentMethod: domain.PaymentCash,
		Items:         []domain.SaleItemRequest{{MedicineID: 1, Quantity: 2, DiscountPercent: 10}},
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	today := timeNowDate()
	payload, err := svc.ExportSalesCSV(ctx, today, today)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}

	// The discount column carries the percent as entered, not a currency
	// amount: 2 x 10.00 at 10% is the line 10.00,10,0.90,18.90.
	if !strings.Contains(string(payload), ",10.00,10,0.90,18.90,") {
		t.Fatalf("expected discount percent column, got %q", payload)
	}
}

func TestSampleTemplateMatchesImportColumns(t *testing.T) {
	svc := newTestService()

	result, err := svc.ImportMedicines(adminContext(), strings.NewReader(SampleMedicinesCSV))
	if err != nil {
		t.Fatalf("import of template failed: %v", err)
	}
	if result.SuccessCount != 3 || result.ErrorCount != 0 {
		t.Fatalf("expected all template rows to import cleanly, got %+v", result)
	}
}

func TestPriceConversionHelpers(t *testing.T) {
	cents, err := priceToCents("12.34")
	if err != nil || cents != 1234 {
		t.Fatalf("priceToCents(12.34) = %d, %v", cents, err)
	}
	if _, err := priceToCents("-1"); err == nil {
		t.Fatalf("expected negative price to be rejected")
	}
	if got := centsToPrice(1234); got != "12.34" {
		t.Fatalf("centsToPrice(1234) = %q", got)
	}
	if got := centsToPrice(5); got != "0.05" {
		t.Fatalf("centsToPrice(5) = %q", got)
	}
}
