package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/itsfahadusman/pharmacy-pos-advanced/internal/cache"
	"github.com/itsfahadusman/pharmacy-pos-advanced/internal/domain"
	"github.com/itsfahadusman/pharmacy-pos-advanced/internal/store"
	"github.com/itsfahadusman/pharmacy-pos-advanced/internal/store/memory"
)

func newTestService() *Service {
	return New(memory.NewSeeded(), cache.NoopStatsCache{}, 5)
}

func cashierContext() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "sana", Role: domain.RolePharmacist})
}

func adminContext() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "admin", Role: domain.RoleAdmin})
}

func TestCheckoutRequiresActor(t *testing.T) {
	svc := newTestService()

	_, err := svc.Checkout(context.Background(), domain.SaleRequest{
		PaymentMethod: domain.PaymentCash,
		Items:         []domain.SaleItemRequest{{MedicineID: 1, Quantity: 1}},
	})
	if err == nil {
		t.Fatalf("expected checkout without actor to fail")
	}
}

func TestCheckoutAppliesDiscountThenTax(t *testing.T) {
	svc := newTestService()

	// Paracetamol is 1000 cents a unit. Two units with a 10% discount:
	// subtotal 2000, discount 200, tax 5% of 1800 = 90, total 1890.
	resp, err := svc.Checkout(cashierContext(), domain.SaleRequest{
		PaymentMethod: domain.PaymentCash,
		Items: []domain.SaleItemRequest{
			{MedicineID: 1, Quantity: 2, DiscountPercent: 10},
		},
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if !resp.Success {
		t.Fatalf("expected success response")
	}
	if resp.TotalCents != 1890 {
		t.Fatalf("expected total 1890 cents, got %d", resp.TotalCents)
	}
	if !strings.HasPrefix(resp.InvoiceNumber, "INV") {
		t.Fatalf("unexpected invoice number %q", resp.InvoiceNumber)
	}

	med, err := svc.GetMedicine(context.Background(), 1)
	if err != nil {
		t.Fatalf("get medicine failed: %v", err)
	}
	if med.Quantity != 98 {
		t.Fatalf("expected stock to drop to 98, got %d", med.Quantity)
	}
}

func TestCheckoutRejectsInsufficientStockWithoutPartialDeduction(t *testing.T) {
	svc := newTestService()

	// Ibuprofen (id 4) has 8 units seeded. A cart mixing an available line
	// with an unavailable one must leave both untouched.
	_, err := svc.Checkout(cashierContext(), domain.SaleRequest{
		PaymentMethod: domain.PaymentCash,
		Items: []domain.SaleItemRequest{
			{MedicineID: 1, Quantity: 1},
			{MedicineID: 4, Quantity: 9},
		},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock error, got %v", err)
	}

	paracetamol, _ := svc.GetMedicine(context.Background(), 1)
	if paracetamol.Quantity != 100 {
		t.Fatalf("expected paracetamol stock unchanged at 100, got %d", paracetamol.Quantity)
	}
	ibuprofen, _ := svc.GetMedicine(context.Background(), 4)
	if ibuprofen.Quantity != 8 {
		t.Fatalf("expected ibuprofen stock unchanged at 8, got %d", ibuprofen.Quantity)
	}
}

func TestCheckoutRejectsUnknownPaymentMethod(t *testing.T) {
	svc := newTestService()

	_, err := svc.Checkout(cashierContext(), domain.SaleRequest{
		PaymentMethod: "crypto",
		Items:         []domain.SaleItemRequest{{MedicineID: 1, Quantity: 1}},
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestCheckoutEmptyCartRejected(t *testing.T) {
	svc := newTestService()

	_, err := svc.Checkout(cashierContext(), domain.SaleRequest{PaymentMethod: domain.PaymentCash})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestCheckoutRaisesLowStockNotification(t *testing.T) {
	svc := newTestService()

	// Ibuprofen: 8 in stock, reorder level 10. Selling one drops it to 7,
	// which stays below the reorder level.
	_, err := svc.Checkout(cashierContext(), domain.SaleRequest{
		PaymentMethod: domain.PaymentCard,
		Items:         []domain.SaleItemRequest{{MedicineID: 4, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	notifications, err := svc.ListNotifications(context.Background(), 50)
	if err != nil {
		t.Fatalf("list notifications failed: %v", err)
	}
	found := false
	for _, n := range notifications {
		if n.Kind == domain.NotificationLowStock && strings.Contains(n.Message, "Ibuprofen") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a low stock notification for ibuprofen, got %+v", notifications)
	}
}

func TestCheckoutNoNotificationAboveReorderLevel(t *testing.T) {
	svc := newTestService()

	_, err := svc.Checkout(cashierContext(), domain.SaleRequest{
		PaymentMethod: domain.PaymentCash,
		Items:         []domain.SaleItemRequest{{MedicineID: 1, Quantity: 5}},
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	notifications, _ := svc.ListNotifications(context.Background(), 50)
	for _, n := range notifications {
		if strings.Contains(n.Message, "Paracetamol") {
			t.Fatalf("did not expect a low stock notification: %+v", n)
		}
	}
}

func TestCheckoutUnknownCustomerRejected(t *testing.T) {
	svc := newTestService()

	missing := int64(999)
	_, err := svc.Checkout(cashierContext(), domain.SaleRequest{
		PaymentMethod: domain.PaymentCash,
		CustomerID:    &missing,
		Items:         []domain.SaleItemRequest{{MedicineID: 1, Quantity: 1}},
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestListMedicinesRejectsUnknownSortField(t *testing.T) {
	svc := newTestService()

	_, err := svc.ListMedicines(context.Background(), domain.MedicineFilter{SortBy: "price; DROP TABLE medicines"})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestListMedicinesSortsByPriceDescending(t *testing.T) {
	svc := newTestService()

	medicines, err := svc.ListMedicines(context.Background(), domain.MedicineFilter{SortBy: "price", SortDesc: true})
	if err != nil {
		t.Fatalf("list medicines failed: %v", err)
	}
	for i := 1; i < len(medicines); i++ {
		if medicines[i].PriceCents > medicines[i-1].PriceCents {
			t.Fatalf("expected descending prices, got %d before %d", medicines[i-1].PriceCents, medicines[i].PriceCents)
		}
	}
}

func TestCreateMedicineValidation(t *testing.T) {
	svc := newTestService()

	_, err := svc.CreateMedicine(adminContext(), domain.MedicineCreateRequest{Brand: "NoName", PriceCents: 100})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected missing name to be rejected, got %v", err)
	}

	_, err = svc.CreateMedicine(adminContext(), domain.MedicineCreateRequest{Name: "Aspirin 100mg", Brand: "Disprin", PriceCents: 0})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected zero price to be rejected, got %v", err)
	}

	_, err = svc.CreateMedicine(adminContext(), domain.MedicineCreateRequest{
		Name: "Aspirin 100mg", Brand: "Disprin", PriceCents: 500, ExpiryDate: "31-12-2027",
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected malformed expiry date to be rejected, got %v", err)
	}
}

func TestCreateMedicineDuplicateBarcode(t *testing.T) {
	svc := newTestService()

	_, err := svc.CreateMedicine(adminContext(), domain.MedicineCreateRequest{
		Name:       "Paracetamol Copy",
		Brand:      "Generic",
		PriceCents: 900,
		Barcode:    "8901234500017",
	})
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected duplicate barcode error, got %v", err)
	}
}

func TestDeleteMedicineRequiresAdmin(t *testing.T) {
	svc := newTestService()

	if err := svc.DeleteMedicine(cashierContext(), 1); err == nil {
		t.Fatalf("expected pharmacist delete to be rejected")
	}
	if err := svc.DeleteMedicine(adminContext(), 1); err != nil {
		t.Fatalf("expected admin delete to succeed, got %v", err)
	}
	if _, err := svc.GetMedicine(context.Background(), 1); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected deleted medicine to be gone, got %v", err)
	}
}

func TestAdjustInventoryAddAndSubtract(t *testing.T) {
	svc := newTestService()
	ctx := adminContext()

	adj, err := svc.AdjustInventory(ctx, domain.AdjustmentRequest{
		MedicineID: 1, Type: domain.AdjustmentAdd, Quantity: 25, Reason: "restock delivery",
	})
	if err != nil {
		t.Fatalf("add adjustment failed: %v", err)
	}
	if adj.AdjustedBy != "admin" {
		t.Fatalf("expected adjustment attributed to admin, got %q", adj.AdjustedBy)
	}

	med, _ := svc.GetMedicine(ctx, 1)
	if med.Quantity != 125 {
		t.Fatalf("expected stock 125 after add, got %d", med.Quantity)
	}

	_, err = svc.AdjustInventory(ctx, domain.AdjustmentRequest{
		MedicineID: 1, Type: domain.AdjustmentSubtract, Quantity: 5, Reason: "damaged strip",
	})
	if err != nil {
		t.Fatalf("subtract adjustment failed: %v", err)
	}

	med, _ = svc.GetMedicine(ctx, 1)
	if med.Quantity != 120 {
		t.Fatalf("expected stock 120 after subtract, got %d", med.Quantity)
	}
}

func TestAdjustInventoryRejectsSubtractBelowZero(t *testing.T) {
	svc := newTestService()

	_, err := svc.AdjustInventory(adminContext(), domain.AdjustmentRequest{
		MedicineID: 4, Type: domain.AdjustmentSubtract, Quantity: 9, Reason: "stocktake",
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock error, got %v", err)
	}

	med, _ := svc.GetMedicine(context.Background(), 4)
	if med.Quantity != 8 {
		t.Fatalf("expected stock unchanged at 8, got %d", med.Quantity)
	}
}

func TestAdjustInventoryRejectsUnknownType(t *testing.T) {
	svc := newTestService()

	_, err := svc.AdjustInventory(adminContext(), domain.AdjustmentRequest{
		MedicineID: 1, Type: "set", Quantity: 10,
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestSalesReportAggregatesInvoices(t *testing.T) {
	svc := newTestService()
	ctx := cashierContext()

	for i := 0; i < 2; i++ {
		_, err := svc.Checkout(ctx, domain.SaleRequest{
			PaymentMethod: domain.PaymentCash,
			Items: []domain.SaleItemRequest{
				{MedicineID: 1, Quantity: 1},
				{MedicineID: 3, Quantity: 2},
			},
		})
		if err != nil {
			t.Fatalf("checkout %d failed: %v", i, err)
		}
	}

	today := timeNowDate()
	report, err := svc.SalesReport(ctx, today, today)
	if err != nil {
		t.Fatalf("sales report failed: %v", err)
	}
	if report.TransactionCount != 2 {
		t.Fatalf("expected 2 transactions, got %d", report.TransactionCount)
	}
	if len(report.Lines) != 4 {
		t.Fatalf("expected 4 sale lines, got %d", len(report.Lines))
	}
	// Each invoice: 1000 + 5% tax = 1050, plus 2x800 + 5% = 1680.
	if report.TotalCents != 2*(1050+1680) {
		t.Fatalf("unexpected report total %d", report.TotalCents)
	}
}

func TestSalesReportRejectsInvertedRange(t *testing.T) {
	svc := newTestService()

	_, err := svc.SalesReport(context.Background(), "2026-02-10", "2026-02-01")
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestPurchaseOrderLifecycle(t *testing.T) {
	svc := newTestService()
	ctx := adminContext()

	po, err := svc.CreatePurchaseOrder(ctx, domain.PurchaseOrderCreateRequest{
		SupplierID: 1,
		Items: []domain.POItemRequest{
			{MedicineID: 4, Quantity: 40, UnitCents: 400},
		},
		Notes: "restock ibuprofen",
	})
	if err != nil {
		t.Fatalf("create purchase order failed: %v", err)
	}
	if po.Status != domain.POStatusPending {
		t.Fatalf("expected pending status, got %q", po.Status)
	}
	if po.TotalCents != 16000 {
		t.Fatalf("expected total 16000, got %d", po.TotalCents)
	}
	if !strings.HasPrefix(po.PONumber, "PO") {
		t.Fatalf("unexpected po number %q", po.PONumber)
	}

	received, err := svc.ReceivePurchaseOrder(ctx, po.ID)
	if err != nil {
		t.Fatalf("receive failed: %v", err)
	}
	if received.Status != domain.POStatusReceived {
		t.Fatalf("expected received status, got %q", received.Status)
	}

	med, _ := svc.GetMedicine(ctx, 4)
	if med.Quantity != 48 {
		t.Fatalf("expected stock 48 after receiving, got %d", med.Quantity)
	}

	if _, err := svc.ReceivePurchaseOrder(ctx, po.ID); err == nil {
		t.Fatalf("expected double receive to fail")
	}
	if _, err := svc.CancelPurchaseOrder(ctx, po.ID); err == nil {
		t.Fatalf("expected cancel of received order to fail")
	}
}

func TestListPurchaseOrdersRejectsUnknownStatus(t *testing.T) {
	svc := newTestService()

	_, err := svc.ListPurchaseOrders(context.Background(), "archived")
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestActivityLogAdminOnly(t *testing.T) {
	svc := newTestService()

	_, err := svc.Checkout(cashierContext(), domain.SaleRequest{
		PaymentMethod: domain.PaymentCash,
		Items:         []domain.SaleItemRequest{{MedicineID: 1, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	if _, err := svc.ListActivityLog(cashierContext(), 50); err == nil {
		t.Fatalf("expected pharmacist access to activity log to be rejected")
	}

	entries, err := svc.ListActivityLog(adminContext(), 50)
	if err != nil {
		t.Fatalf("admin activity log failed: %v", err)
	}
	found := false
	for _, e := range entries {
		if e.Action == "sale_create" && e.Username == "sana" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected sale_create entry for cashier, got %+v", entries)
	}
}

func TestCustomerUpdatePatchesOnlyProvidedFields(t *testing.T) {
	svc := newTestService()
	ctx := cashierContext()

	phone := "555-7777"
	updated, err := svc.UpdateCustomer(ctx, 1, domain.CustomerUpdateRequest{Phone: &phone})
	if err != nil {
		t.Fatalf("update customer failed: %v", err)
	}
	if updated.Phone != "555-7777" {
		t.Fatalf("expected phone updated, got %q", updated.Phone)
	}
	if updated.Name != "Ayesha Khan" {
		t.Fatalf("expected name untouched, got %q", updated.Name)
	}
	if updated.Allergies != "penicillin" {
		t.Fatalf("expected allergies untouched, got %q", updated.Allergies)
	}
}

func TestPriceLineRounding(t *testing.T) {
	cases := []struct {
		unit     int64
		qty      int
		discount float64
		wantTax  int64
		wantTot  int64
	}{
		{1000, 2, 10, 90, 1890},
		{1000, 1, 0, 50, 1050},
		{333, 3, 0, 50, 1049},
		{1000, 1, 100, 0, 0},
	}
	for _, tc := range cases {
		tax, total := priceLine(tc.unit, tc.qty, tc.discount)
		if tax != tc.wantTax || total != tc.wantTot {
			t.Fatalf("priceLine(%d, %d, %.0f) = (%d, %d), want (%d, %d)",
				tc.unit, tc.qty, tc.discount, tax, total, tc.wantTax, tc.wantTot)
		}
	}
}

func timeNowDate() string {
	return time.Now().UTC().Format("2006-01-02")
}
