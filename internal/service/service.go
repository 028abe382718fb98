package service

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/itsfahadusman/pharmacy-pos-advanced/internal/cache"
	"github.com/itsfahadusman/pharmacy-pos-advanced/internal/domain"
	"github.com/itsfahadusman/pharmacy-pos-advanced/internal/refnum"
	"github.com/itsfahadusman/pharmacy-pos-advanced/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// taxRatePercent is applied to every sale line after discount.
const taxRatePercent = 5

const statsCacheKey = "dashboard:stats"

var allowedSorts = map[string]bool{
	"name":        true,
	"brand":       true,
	"quantity":    true,
	"price":       true,
	"expiry_date": true,
}

var allowedPayments = map[string]bool{
	domain.PaymentCash:   true,
	domain.PaymentCard:   true,
	domain.PaymentMobile: true,
}

type Service struct {
	repo     store.Repository
	stats    cache.StatsCache
	statsTTL time.Duration
}

func New(repo store.Repository, stats cache.StatsCache, statsTTLSeconds int) *Service {
	if stats == nil {
		stats = cache.NoopStatsCache{}
	}
	if statsTTLSeconds < 1 {
		statsTTLSeconds = 30
	}

	return &Service{
		repo:     repo,
		stats:    stats,
		statsTTL: time.Duration(statsTTLSeconds) * time.Second,
	}
}

func (s *Service) ListMedicines(ctx context.Context, filter domain.MedicineFilter) ([]domain.Medicine, error) {
	filter.SortBy = strings.TrimSpace(filter.SortBy)
	if filter.SortBy == "" {
		filter.SortBy = "name"
	}
	if !allowedSorts[filter.SortBy] {
		return nil, fmt.Errorf("sort field %q: %w", filter.SortBy, store.ErrInvalidInput)
	}
	return s.repo.ListMedicines(ctx, filter)
}

func (s *Service) GetMedicine(ctx context.Context, id int64) (domain.Medicine, error) {
	med, err := s.repo.GetMedicineByID(ctx, id)
	if err != nil {
		return domain.Medicine{}, err
	}
	return *med, nil
}

func (s *Service) CreateMedicine(ctx context.Context, req domain.MedicineCreateRequest) (domain.Medicine, error) {
	med := domain.Medicine{
		Name:                 strings.TrimSpace(req.Name),
		GenericName:          strings.TrimSpace(req.GenericName),
		Brand:                strings.TrimSpace(req.Brand),
		Category:             strings.TrimSpace(req.Category),
		SupplierID:           req.SupplierID,
		Quantity:             req.Quantity,
		ReorderLevel:         req.ReorderLevel,
		CostCents:            req.CostCents,
		PriceCents:           req.PriceCents,
		ExpiryDate:           strings.TrimSpace(req.ExpiryDate),
		Barcode:              strings.TrimSpace(req.Barcode),
		BatchNumber:          strings.TrimSpace(req.BatchNumber),
		RackLocation:         strings.TrimSpace(req.RackLocation),
		Description:          strings.TrimSpace(req.Description),
		RequiresPrescription: req.RequiresPrescription,
	}
	if err := validateMedicine(med); err != nil {
		return domain.Medicine{}, err
	}
	if med.ReorderLevel < 1 {
		med.ReorderLevel = 10
	}

	saved, err := s.repo.CreateMedicine(ctx, med)
	if err != nil {
		return domain.Medicine{}, err
	}

	s.logActivity(ctx, "medicine_create", fmt.Sprintf("id=%d,name=%s", saved.ID, saved.Name))
	s.invalidateStats(ctx)
	return *saved, nil
}

func validateMedicine(med domain.Medicine) error {
	if med.Name == "" {
		return fmt.Errorf("name is required: %w", store.ErrInvalidInput)
	}
	if med.Brand == "" {
		return fmt.Errorf("brand is required: %w", store.ErrInvalidInput)
	}
	if med.PriceCents < 1 {
		return fmt.Errorf("price must be positive: %w", store.ErrInvalidInput)
	}
	if med.CostCents < 0 || med.Quantity < 0 {
		return fmt.Errorf("cost and quantity must not be negative: %w", store.ErrInvalidInput)
	}
	if med.ExpiryDate != "" {
		if _, err := time.Parse("2006-01-02", med.ExpiryDate); err != nil {
			return fmt.Errorf("expiry date %q: %w", med.ExpiryDate, store.ErrInvalidInput)
		}
	}
	return nil
}

func (s *Service) UpdateMedicine(ctx context.Context, id int64, req domain.MedicineUpdateRequest) (domain.Medicine, error) {
	existing, err := s.repo.GetMedicineByID(ctx, id)
	if err != nil {
		return domain.Medicine{}, err
	}

	med := *existing
	if req.Name != nil {
		med.Name = strings.TrimSpace(*req.Name)
	}
	if req.GenericName != nil {
		med.GenericName = strings.TrimSpace(*req.GenericName)
	}
	if req.Brand != nil {
		med.Brand = strings.TrimSpace(*req.Brand)
	}
	if req.Category != nil {
		med.Category = strings.TrimSpace(*req.Category)
	}
	if req.SupplierID != nil {
		med.SupplierID = req.SupplierID
	}
	if req.Quantity != nil {
		med.Quantity = *req.Quantity
	}
	if req.ReorderLevel != nil {
		med.ReorderLevel = *req.ReorderLevel
	}
	if req.CostCents != nil {
		med.CostCents = *req.CostCents
	}
	if req.PriceCents != nil {
		med.PriceCents = *req.PriceCents
	}
	if req.ExpiryDate != nil {
		med.ExpiryDate = strings.TrimSpace(*req.ExpiryDate)
	}
	if req.Barcode != nil {
		med.Barcode = strings.TrimSpace(*req.Barcode)
	}
	if req.BatchNumber != nil {
		med.BatchNumber = strings.TrimSpace(*req.BatchNumber)
	}
	if req.RackLocation != nil {
		med.RackLocation = strings.TrimSpace(*req.RackLocation)
	}
	if req.Description != nil {
		med.Description = strings.TrimSpace(*req.Description)
	}
	if req.RequiresPrescription != nil {
		med.RequiresPrescription = *req.RequiresPrescription
	}
	if err := validateMedicine(med); err != nil {
		return domain.Medicine{}, err
	}

	saved, err := s.repo.UpdateMedicine(ctx, med)
	if err != nil {
		return domain.Medicine{}, err
	}

	s.logActivity(ctx, "medicine_update", fmt.Sprintf("id=%d,name=%s", saved.ID, saved.Name))
	s.invalidateStats(ctx)
	return *saved, nil
}

func (s *Service) DeleteMedicine(ctx context.Context, id int64) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return fmt.Errorf("admin role required")
	}

	med, err := s.repo.GetMedicineByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteMedicine(ctx, id); err != nil {
		return err
	}

	s.logActivity(ctx, "medicine_delete", fmt.Sprintf("id=%d,name=%s", med.ID, med.Name))
	s.invalidateStats(ctx)
	return nil
}

func (s *Service) ListLowStock(ctx context.Context) ([]domain.Medicine, error) {
	return s.repo.ListLowStock(ctx)
}

func (s *Service) ListExpired(ctx context.Context) ([]domain.Medicine, error) {
	return s.repo.ListExpired(ctx, time.Now().UTC().Format("2006-01-02"))
}

func (s *Service) ListExpiring(ctx context.Context) ([]domain.Medicine, error) {
	now := time.Now().UTC()
	return s.repo.ListExpiring(ctx, now.Format("2006-01-02"), now.AddDate(0, 0, 30).Format("2006-01-02"))
}

// Checkout runs the sale end to end: validate the cart, price each line,
// persist everything in one transaction, then raise low-stock
// notifications for medicines that dropped below their reorder level.
func (s *Service) Checkout(ctx context.Context, req domain.SaleRequest) (domain.SaleResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.SaleResponse{}, fmt.Errorf("authenticated actor required")
	}

	if len(req.Items) == 0 {
		return domain.SaleResponse{}, fmt.Errorf("cart is empty: %w", store.ErrInvalidInput)
	}
	req.PaymentMethod = strings.ToLower(strings.TrimSpace(req.PaymentMethod))
	if !allowedPayments[req.PaymentMethod] {
		return domain.SaleResponse{}, fmt.Errorf("payment method %q: %w", req.PaymentMethod, store.ErrInvalidInput)
	}
	for _, item := range req.Items {
		if item.Quantity < 1 {
			return domain.SaleResponse{}, fmt.Errorf("quantity must be positive for medicine %d: %w", item.MedicineID, store.ErrInvalidInput)
		}
		if item.DiscountPercent < 0 || item.DiscountPercent > 100 {
			return domain.SaleResponse{}, fmt.Errorf("discount must be between 0 and 100: %w", store.ErrInvalidInput)
		}
	}
	if req.CustomerID != nil {
		if _, err := s.repo.GetCustomerByID(ctx, *req.CustomerID); err != nil {
			return domain.SaleResponse{}, err
		}
	}

	ids := make([]int64, 0, len(req.Items))
	for _, item := range req.Items {
		ids = append(ids, item.MedicineID)
	}
	medicines, err := s.repo.GetMedicinesByIDs(ctx, ids)
	if err != nil {
		return domain.SaleResponse{}, err
	}

	now := time.Now().UTC()
	invoice := refnum.Invoice(now)
	lines := make([]domain.Sale, 0, len(req.Items))
	var totalCents int64
	for _, item := range req.Items {
		med, exists := medicines[item.MedicineID]
		if !exists {
			return domain.SaleResponse{}, fmt.Errorf("medicine %d: %w", item.MedicineID, store.ErrNotFound)
		}

		taxCents, lineTotal := priceLine(med.PriceCents, item.Quantity, item.DiscountPercent)
		totalCents += lineTotal
		lines = append(lines, domain.Sale{
			InvoiceNumber:   invoice,
			MedicineID:      med.ID,
			CustomerID:      req.CustomerID,
			Quantity:        item.Quantity,
			UnitCents:       med.PriceCents,
			DiscountPercent: item.DiscountPercent,
			TaxCents:        taxCents,
			TotalCents:      lineTotal,
			PaymentMethod:   req.PaymentMethod,
			Cashier:         actor.Username,
			SaleDate:        now,
		})
	}

	saved, remaining, err := s.repo.RecordSale(ctx, lines)
	if err != nil {
		return domain.SaleResponse{}, err
	}

	for id, qty := range remaining {
		med := medicines[id]
		if qty < med.ReorderLevel {
			s.notify(ctx, domain.NotificationLowStock,
				fmt.Sprintf("Low stock alert: %s has %d units left (reorder level %d)", med.Name, qty, med.ReorderLevel))
		}
	}

	s.logActivity(ctx, "sale_create", fmt.Sprintf("invoice=%s,lines=%d,total=%d", invoice, len(saved), totalCents))
	s.invalidateStats(ctx)

	return domain.SaleResponse{Success: true, InvoiceNumber: invoice, TotalCents: totalCents}, nil
}

// priceLine computes tax and total for one cart line. Discount is a
// percentage of the line subtotal; tax applies to the discounted amount.
func priceLine(unitCents int64, qty int, discountPercent float64) (taxCents int64, totalCents int64) {
	subtotal := unitCents * int64(qty)
	discount := int64(math.Round(float64(subtotal) * discountPercent / 100))
	taxable := subtotal - discount
	taxCents = int64(math.Round(float64(taxable) * taxRatePercent / 100))
	return taxCents, taxable + taxCents
}

func (s *Service) SalesReport(ctx context.Context, startDate string, endDate string) (domain.SalesReport, error) {
	from, to, err := parseDateRange(startDate, endDate)
	if err != nil {
		return domain.SalesReport{}, err
	}

	lines, err := s.repo.ListSalesByDateRange(ctx, from, to)
	if err != nil {
		return domain.SalesReport{}, err
	}

	report := domain.SalesReport{StartDate: startDate, EndDate: endDate, Lines: lines}
	invoices := map[string]bool{}
	for _, line := range lines {
		report.TotalCents += line.TotalCents
		report.TaxCents += line.TaxCents
		invoices[line.InvoiceNumber] = true
	}
	report.TransactionCount = len(invoices)
	return report, nil
}

// parseDateRange returns [from, to) with both input dates inclusive.
func parseDateRange(startDate string, endDate string) (time.Time, time.Time, error) {
	from, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("start date %q: %w", startDate, store.ErrInvalidInput)
	}
	end, err := time.Parse("2006-01-02", endDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("end date %q: %w", endDate, store.ErrInvalidInput)
	}
	if end.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date before start date: %w", store.ErrInvalidInput)
	}
	return from, end.AddDate(0, 0, 1), nil
}

func (s *Service) Analytics(ctx context.Context) (domain.Analytics, error) {
	to := time.Now().UTC().AddDate(0, 0, 1)
	from := to.AddDate(0, 0, -31)

	byCategory, err := s.repo.RevenueByCategory(ctx, from, to)
	if err != nil {
		return domain.Analytics{}, err
	}
	topSellers, err := s.repo.TopMedicines(ctx, from, to, 10)
	if err != nil {
		return domain.Analytics{}, err
	}
	dailyTrend, err := s.repo.DailyRevenue(ctx, from, to)
	if err != nil {
		return domain.Analytics{}, err
	}

	return domain.Analytics{ByCategory: byCategory, TopSellers: topSellers, DailyTrend: dailyTrend}, nil
}

func (s *Service) DashboardStats(ctx context.Context) (domain.DashboardStats, error) {
	if cached, hit, err := s.stats.Get(ctx, statsCacheKey); err != nil {
		log.Printf("[service] WARN: stats cache read failed: %v", err)
	} else if hit {
		return *cached, nil
	}

	stats, err := s.repo.GetDashboardStats(ctx, time.Now().UTC())
	if err != nil {
		return domain.DashboardStats{}, err
	}

	if err := s.stats.Set(ctx, statsCacheKey, &stats, s.statsTTL); err != nil {
		log.Printf("[service] WARN: stats cache write failed: %v", err)
	}
	return stats, nil
}

func (s *Service) invalidateStats(ctx context.Context) {
	if err := s.stats.Delete(ctx, statsCacheKey); err != nil {
		log.Printf("[service] WARN: stats cache invalidation failed: %v", err)
	}
}

func (s *Service) AdjustInventory(ctx context.Context, req domain.AdjustmentRequest) (domain.InventoryAdjustment, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.InventoryAdjustment{}, fmt.Errorf("authenticated actor required")
	}

	req.Type = strings.ToLower(strings.TrimSpace(req.Type))
	if req.Type != domain.AdjustmentAdd && req.Type != domain.AdjustmentSubtract {
		return domain.InventoryAdjustment{}, fmt.Errorf("adjustment type %q: %w", req.Type, store.ErrInvalidInput)
	}
	if req.Quantity < 1 {
		return domain.InventoryAdjustment{}, fmt.Errorf("quantity must be positive: %w", store.ErrInvalidInput)
	}

	adj, remaining, err := s.repo.ApplyAdjustment(ctx, domain.InventoryAdjustment{
		MedicineID: req.MedicineID,
		Type:       req.Type,
		Quantity:   req.Quantity,
		Reason:     strings.TrimSpace(req.Reason),
		AdjustedBy: actor.Username,
	})
	if err != nil {
		return domain.InventoryAdjustment{}, err
	}

	s.logActivity(ctx, "inventory_adjust", fmt.Sprintf("medicine=%d,type=%s,qty=%d,remaining=%d", adj.MedicineID, adj.Type, adj.Quantity, remaining))
	s.invalidateStats(ctx)
	return *adj, nil
}

func (s *Service) ListAdjustments(ctx context.Context, limit int) ([]domain.InventoryAdjustment, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}
	return s.repo.ListAdjustments(ctx, limit)
}

func (s *Service) ListCustomers(ctx context.Context, search string) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx, search)
}

func (s *Service) GetCustomer(ctx context.Context, id int64) (domain.Customer, error) {
	customer, err := s.repo.GetCustomerByID(ctx, id)
	if err != nil {
		return domain.Customer{}, err
	}
	return *customer, nil
}

func (s *Service) CreateCustomer(ctx context.Context, customer domain.Customer) (domain.Customer, error) {
	customer.Name = strings.TrimSpace(customer.Name)
	if customer.Name == "" {
		return domain.Customer{}, fmt.Errorf("name is required: %w", store.ErrInvalidInput)
	}
	if customer.DateOfBirth != "" {
		if _, err := time.Parse("2006-01-02", customer.DateOfBirth); err != nil {
			return domain.Customer{}, fmt.Errorf("date of birth %q: %w", customer.DateOfBirth, store.ErrInvalidInput)
		}
	}

	saved, err := s.repo.CreateCustomer(ctx, customer)
	if err != nil {
		return domain.Customer{}, err
	}

	s.logActivity(ctx, "customer_create", fmt.Sprintf("id=%d,name=%s", saved.ID, saved.Name))
	return *saved, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, id int64, req domain.CustomerUpdateRequest) (domain.Customer, error) {
	existing, err := s.repo.GetCustomerByID(ctx, id)
	if err != nil {
		return domain.Customer{}, err
	}

	customer := *existing
	if req.Name != nil {
		customer.Name = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		customer.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Email != nil {
		customer.Email = strings.TrimSpace(*req.Email)
	}
	if req.Address != nil {
		customer.Address = strings.TrimSpace(*req.Address)
	}
	if req.DateOfBirth != nil {
		customer.DateOfBirth = strings.TrimSpace(*req.DateOfBirth)
	}
	if req.MedicalHistory != nil {
		customer.MedicalHistory = strings.TrimSpace(*req.MedicalHistory)
	}
	if req.Allergies != nil {
		customer.Allergies = strings.TrimSpace(*req.Allergies)
	}
	if req.LoyaltyPoints != nil {
		customer.LoyaltyPoints = *req.LoyaltyPoints
	}
	if customer.Name == "" {
		return domain.Customer{}, fmt.Errorf("name is required: %w", store.ErrInvalidInput)
	}

	saved, err := s.repo.UpdateCustomer(ctx, customer)
	if err != nil {
		return domain.Customer{}, err
	}

	s.logActivity(ctx, "customer_update", fmt.Sprintf("id=%d,name=%s", saved.ID, saved.Name))
	return *saved, nil
}

func (s *Service) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	return s.repo.ListSuppliers(ctx)
}

func (s *Service) CreateSupplier(ctx context.Context, supplier domain.Supplier) (domain.Supplier, error) {
	supplier.Name = strings.TrimSpace(supplier.Name)
	if supplier.Name == "" {
		return domain.Supplier{}, fmt.Errorf("name is required: %w", store.ErrInvalidInput)
	}

	saved, err := s.repo.CreateSupplier(ctx, supplier)
	if err != nil {
		return domain.Supplier{}, err
	}

	s.logActivity(ctx, "supplier_create", fmt.Sprintf("id=%d,name=%s", saved.ID, saved.Name))
	return *saved, nil
}

func (s *Service) UpdateSupplier(ctx context.Context, id int64, req domain.SupplierUpdateRequest) (domain.Supplier, error) {
	existing, err := s.repo.GetSupplierByID(ctx, id)
	if err != nil {
		return domain.Supplier{}, err
	}

	supplier := *existing
	if req.Name != nil {
		supplier.Name = strings.TrimSpace(*req.Name)
	}
	if req.ContactPerson != nil {
		supplier.ContactPerson = strings.TrimSpace(*req.ContactPerson)
	}
	if req.Phone != nil {
		supplier.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Email != nil {
		supplier.Email = strings.TrimSpace(*req.Email)
	}
	if req.Address != nil {
		supplier.Address = strings.TrimSpace(*req.Address)
	}
	if supplier.Name == "" {
		return domain.Supplier{}, fmt.Errorf("name is required: %w", store.ErrInvalidInput)
	}

	saved, err := s.repo.UpdateSupplier(ctx, supplier)
	if err != nil {
		return domain.Supplier{}, err
	}

	s.logActivity(ctx, "supplier_update", fmt.Sprintf("id=%d,name=%s", saved.ID, saved.Name))
	return *saved, nil
}

func (s *Service) CreatePurchaseOrder(ctx context.Context, req domain.PurchaseOrderCreateRequest) (domain.PurchaseOrder, error) {
	if len(req.Items) == 0 {
		return domain.PurchaseOrder{}, fmt.Errorf("purchase order needs at least one item: %w", store.ErrInvalidInput)
	}
	if req.ExpectedDate != "" {
		if _, err := time.Parse("2006-01-02", req.ExpectedDate); err != nil {
			return domain.PurchaseOrder{}, fmt.Errorf("expected date %q: %w", req.ExpectedDate, store.ErrInvalidInput)
		}
	}

	var totalCents int64
	items := make([]domain.POItem, 0, len(req.Items))
	for _, item := range req.Items {
		if item.Quantity < 1 {
			return domain.PurchaseOrder{}, fmt.Errorf("item quantity must be positive: %w", store.ErrInvalidInput)
		}
		if item.UnitCents < 0 {
			return domain.PurchaseOrder{}, fmt.Errorf("item unit price must not be negative: %w", store.ErrInvalidInput)
		}
		totalCents += item.UnitCents * int64(item.Quantity)
		items = append(items, domain.POItem{
			MedicineID: item.MedicineID,
			Quantity:   item.Quantity,
			UnitCents:  item.UnitCents,
		})
	}

	now := time.Now().UTC()
	saved, err := s.repo.CreatePurchaseOrder(ctx, domain.PurchaseOrder{
		PONumber:     refnum.PurchaseOrder(now),
		SupplierID:   req.SupplierID,
		Status:       domain.POStatusPending,
		TotalCents:   totalCents,
		OrderDate:    now,
		ExpectedDate: strings.TrimSpace(req.ExpectedDate),
		Notes:        strings.TrimSpace(req.Notes),
		Items:        items,
	})
	if err != nil {
		return domain.PurchaseOrder{}, err
	}

	s.logActivity(ctx, "purchase_order_create", fmt.Sprintf("po=%s,items=%d,total=%d", saved.PONumber, len(saved.Items), saved.TotalCents))
	return *saved, nil
}

func (s *Service) GetPurchaseOrder(ctx context.Context, id int64) (domain.PurchaseOrder, error) {
	po, err := s.repo.GetPurchaseOrderByID(ctx, id)
	if err != nil {
		return domain.PurchaseOrder{}, err
	}
	return *po, nil
}

func (s *Service) ListPurchaseOrders(ctx context.Context, status string) ([]domain.PurchaseOrder, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	switch status {
	case "", domain.POStatusPending, domain.POStatusReceived, domain.POStatusCancelled:
	default:
		return nil, fmt.Errorf("status %q: %w", status, store.ErrInvalidInput)
	}
	return s.repo.ListPurchaseOrders(ctx, status)
}

func (s *Service) ReceivePurchaseOrder(ctx context.Context, id int64) (domain.PurchaseOrder, error) {
	po, err := s.repo.ReceivePurchaseOrder(ctx, id, time.Now().UTC())
	if err != nil {
		return domain.PurchaseOrder{}, err
	}

	s.logActivity(ctx, "purchase_order_receive", fmt.Sprintf("po=%s,items=%d", po.PONumber, len(po.Items)))
	s.invalidateStats(ctx)
	return *po, nil
}

func (s *Service) CancelPurchaseOrder(ctx context.Context, id int64) (domain.PurchaseOrder, error) {
	po, err := s.repo.CancelPurchaseOrder(ctx, id)
	if err != nil {
		return domain.PurchaseOrder{}, err
	}

	s.logActivity(ctx, "purchase_order_cancel", fmt.Sprintf("po=%s", po.PONumber))
	return *po, nil
}

func (s *Service) ListActivityLog(ctx context.Context, limit int) ([]domain.ActivityLogEntry, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return nil, fmt.Errorf("admin role required")
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}
	return s.repo.ListActivityLog(ctx, limit)
}

func (s *Service) ListNotifications(ctx context.Context, limit int) ([]domain.Notification, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	return s.repo.ListNotifications(ctx, limit)
}

func (s *Service) MarkNotificationRead(ctx context.Context, id int64) error {
	return s.repo.MarkNotificationRead(ctx, id)
}

func (s *Service) notify(ctx context.Context, kind string, message string) {
	if err := s.repo.CreateNotification(ctx, domain.Notification{Message: message, Kind: kind}); err != nil {
		log.Printf("[service] WARN: failed to create %s notification: %v", kind, err)
	}
}

// logActivity is best effort: a failed write is logged and never fails the
// operation that triggered it.
func (s *Service) logActivity(ctx context.Context, action string, details string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateActivityLog(ctx, domain.ActivityLogEntry{
		Username:  actor.Username,
		Action:    action,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		log.Printf("[activity] WARN: failed to write activity log action=%s: %v", action, err)
	}
}
