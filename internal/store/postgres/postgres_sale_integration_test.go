package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/itsfahadusman/pharmacy-pos-advanced/internal/domain"
	"github.com/itsfahadusman/pharmacy-pos-advanced/internal/store"
)

func TestRecordSaleDecrementsStockAtomically(t *testing.T) {
	databaseURL := os.Getenv("PHARMACY_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set PHARMACY_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	if err := s.Bootstrap(ctx, "integration-admin-pw"); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	stamp := time.Now().UnixNano()
	barcode := fmt.Sprintf("IT-%d", stamp)
	invoice := fmt.Sprintf("INV-IT-%d", stamp)

	med, err := s.CreateMedicine(ctx, domain.Medicine{
		Name:         fmt.Sprintf("Integration Med %d", stamp),
		Brand:        "TestBrand",
		Category:     "Test",
		Quantity:     10,
		ReorderLevel: 5,
		CostCents:    100,
		PriceCents:   250,
		Barcode:      barcode,
	})
	if err != nil {
		t.Fatalf("create medicine: %v", err)
	}
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sales WHERE medicine_id = $1`, med.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM medicines WHERE id = $1`, med.ID)
	})

	now := time.Now().UTC()
	_, remaining, err := s.RecordSale(ctx, []domain.Sale{{
		InvoiceNumber: invoice,
		MedicineID:    med.ID,
		Quantity:      4,
		UnitCents:     250,
		TaxCents:      50,
		TotalCents:    1050,
		PaymentMethod: "cash",
		Cashier:       "integration",
		SaleDate:      now,
	}})
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}
	if remaining[med.ID] != 6 {
		t.Fatalf("expected 6 remaining, got %d", remaining[med.ID])
	}

	// Requesting more than what is left must fail and roll back.
	_, _, err = s.RecordSale(ctx, []domain.Sale{{
		InvoiceNumber: invoice + "-2",
		MedicineID:    med.ID,
		Quantity:      7,
		UnitCents:     250,
		TaxCents:      88,
		TotalCents:    1838,
		PaymentMethod: "cash",
		Cashier:       "integration",
		SaleDate:      now,
	}})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock error, got %v", err)
	}

	fresh, err := s.GetMedicineByID(ctx, med.ID)
	if err != nil {
		t.Fatalf("get medicine: %v", err)
	}
	if fresh.Quantity != 6 {
		t.Fatalf("expected stock unchanged at 6, got %d", fresh.Quantity)
	}
}
