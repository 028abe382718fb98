package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/itsfahadusman/pharmacy-pos-advanced/internal/domain"
	"github.com/itsfahadusman/pharmacy-pos-advanced/internal/store"
)

type Store struct {
	mu             sync.RWMutex
	medicines      map[int64]domain.Medicine
	sales          []domain.Sale
	customers      map[int64]domain.Customer
	suppliers      map[int64]domain.Supplier
	purchaseOrders map[int64]domain.PurchaseOrder
	adjustments    []domain.InventoryAdjustment
	activityLog    []domain.ActivityLogEntry
	notifications  []domain.Notification
	usersByName    map[string]domain.UserAccount
	nextID         map[string]int64
}

func New() *Store {
	return &Store{
		medicines:      make(map[int64]domain.Medicine),
		customers:      make(map[int64]domain.Customer),
		suppliers:      make(map[int64]domain.Supplier),
		purchaseOrders: make(map[int64]domain.PurchaseOrder),
		usersByName:    seedUsers(),
		nextID:         make(map[string]int64),
	}
}

// seedUsers builds the initial in-memory accounts for dev/demo mode.
// Passwords come from SEED_ADMIN_PASSWORD and SEED_PHARMACIST_PASSWORD;
// hardcoded dev defaults are used with a warning when unset. These
// credentials are never used in production (the backend uses PostgreSQL
// when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	pharmacistPwd := envOr("SEED_PHARMACIST_PASSWORD", "pharmacist123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_PHARMACIST_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_PHARMACIST_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	var id int64
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, domain.RoleAdmin},
		{"pharmacist", pharmacistPwd, domain.RolePharmacist},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		id++
		users[u.username] = domain.UserAccount{
			ID:           id,
			Username:     u.username,
			PasswordHash: string(hash),
			Role:         u.role,
			CreatedAt:    now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	supplier := domain.Supplier{Name: "MediSupply Co", ContactPerson: "Rita Gomez", Phone: "555-0143", Email: "orders@medisupply.test", CreatedAt: now}
	supplier.ID = s.allocate("supplier")
	s.suppliers[supplier.ID] = supplier
	sid := supplier.ID

	in30 := now.AddDate(0, 0, 25).Format("2006-01-02")
	nextYear := now.AddDate(1, 0, 0).Format("2006-01-02")
	lastMonth := now.AddDate(0, -1, 0).Format("2006-01-02")

	medicines := []domain.Medicine{
		{Name: "Paracetamol 500mg", GenericName: "Acetaminophen", Brand: "Panadol", Category: "Analgesic", SupplierID: &sid, Quantity: 100, ReorderLevel: 20, CostCents: 500, PriceCents: 1000, ExpiryDate: nextYear, Barcode: "8901234500017"},
		{Name: "Amoxicillin 250mg", GenericName: "Amoxicillin", Brand: "Amoxil", Category: "Antibiotic", SupplierID: &sid, Quantity: 50, ReorderLevel: 15, CostCents: 1200, PriceCents: 2500, ExpiryDate: nextYear, Barcode: "8901234500024", RequiresPrescription: true},
		{Name: "Cetirizine 10mg", GenericName: "Cetirizine", Brand: "Zyrtec", Category: "Antihistamine", SupplierID: &sid, Quantity: 80, ReorderLevel: 10, CostCents: 300, PriceCents: 800, ExpiryDate: nextYear, Barcode: "8901234500031"},
		{Name: "Ibuprofen 400mg", GenericName: "Ibuprofen", Brand: "Advil", Category: "Analgesic", SupplierID: &sid, Quantity: 8, ReorderLevel: 10, CostCents: 400, PriceCents: 900, ExpiryDate: in30, Barcode: "8901234500048"},
		{Name: "Omeprazole 20mg", GenericName: "Omeprazole", Brand: "Prilosec", Category: "Antacid", SupplierID: &sid, Quantity: 60, ReorderLevel: 12, CostCents: 700, PriceCents: 1500, ExpiryDate: lastMonth, Barcode: "8901234500055"},
		{Name: "Vitamin C 500mg", GenericName: "Ascorbic Acid", Brand: "Redoxon", Category: "Supplement", SupplierID: &sid, Quantity: 200, ReorderLevel: 30, CostCents: 200, PriceCents: 600, ExpiryDate: nextYear, Barcode: "8901234500062"},
	}
	for _, m := range medicines {
		m.ID = s.allocate("medicine")
		m.CreatedAt = now
		m.UpdatedAt = now
		s.medicines[m.ID] = m
	}

	customer := domain.Customer{Name: "Ayesha Khan", Phone: "555-0199", Allergies: "penicillin", LoyaltyPoints: 12, CreatedAt: now}
	customer.ID = s.allocate("customer")
	s.customers[customer.ID] = customer

	return s
}

func (s *Store) allocate(kind string) int64 {
	s.nextID[kind]++
	return s.nextID[kind]
}

func (s *Store) ListMedicines(_ context.Context, filter domain.MedicineFilter) ([]domain.Medicine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	out := make([]domain.Medicine, 0, len(s.medicines))
	for _, m := range s.medicines {
		if filter.Category != "" && !strings.EqualFold(m.Category, filter.Category) {
			continue
		}
		if search != "" && !matchesMedicine(m, search) {
			continue
		}
		out = append(out, m)
	}
	sortMedicines(out, filter.SortBy, filter.SortDesc)
	return out, nil
}

func matchesMedicine(m domain.Medicine, search string) bool {
	for _, field := range []string{m.Name, m.GenericName, m.Brand, m.Barcode} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}

func sortMedicines(meds []domain.Medicine, sortBy string, desc bool) {
	slices.SortStableFunc(meds, func(a, b domain.Medicine) int {
		switch sortBy {
		case "brand":
			return strings.Compare(strings.ToLower(a.Brand), strings.ToLower(b.Brand))
		case "quantity":
			return a.Quantity - b.Quantity
		case "price":
			return int(a.PriceCents - b.PriceCents)
		case "expiry_date":
			return strings.Compare(a.ExpiryDate, b.ExpiryDate)
		default:
			return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		}
	})
	if desc {
		slices.Reverse(meds)
	}
}

func (s *Store) GetMedicineByID(_ context.Context, id int64) (*domain.Medicine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.medicines[id]
	if !ok {
		return nil, fmt.Errorf("medicine %d: %w", id, store.ErrNotFound)
	}
	return &m, nil
}

func (s *Store) GetMedicineByBarcode(_ context.Context, barcode string) (*domain.Medicine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.medicines {
		if m.Barcode != "" && m.Barcode == barcode {
			return &m, nil
		}
	}
	return nil, fmt.Errorf("barcode %s: %w", barcode, store.ErrNotFound)
}

func (s *Store) GetMedicinesByIDs(_ context.Context, ids []int64) (map[int64]domain.Medicine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int64]domain.Medicine, len(ids))
	for _, id := range ids {
		if m, ok := s.medicines[id]; ok {
			out[id] = m
		}
	}
	return out, nil
}

func (s *Store) CreateMedicine(_ context.Context, med domain.Medicine) (*domain.Medicine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if med.Barcode != "" && s.barcodeTaken(med.Barcode, 0) {
		return nil, fmt.Errorf("barcode %s: %w", med.Barcode, store.ErrDuplicate)
	}
	med.ID = s.allocate("medicine")
	now := time.Now().UTC()
	med.CreatedAt = now
	med.UpdatedAt = now
	s.medicines[med.ID] = med
	return &med, nil
}

// CreateMedicines is all-or-nothing: the batch is validated before the maps
// change, mirroring the single-transaction behavior of the SQL store.
func (s *Store) CreateMedicines(_ context.Context, meds []domain.Medicine) ([]domain.Medicine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := map[string]bool{}
	for _, m := range meds {
		if m.Barcode == "" {
			continue
		}
		if seen[m.Barcode] || s.barcodeTaken(m.Barcode, 0) {
			return nil, fmt.Errorf("barcode %s: %w", m.Barcode, store.ErrDuplicate)
		}
		seen[m.Barcode] = true
	}

	now := time.Now().UTC()
	out := make([]domain.Medicine, 0, len(meds))
	for _, m := range meds {
		m.ID = s.allocate("medicine")
		m.CreatedAt = now
		m.UpdatedAt = now
		s.medicines[m.ID] = m
		out = append(out, m)
	}
	return out, nil
}

func (s *Store) barcodeTaken(barcode string, exceptID int64) bool {
	for _, m := range s.medicines {
		if m.Barcode == barcode && m.ID != exceptID {
			return true
		}
	}
	return false
}

func (s *Store) UpdateMedicine(_ context.Context, med domain.Medicine) (*domain.Medicine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.medicines[med.ID]
	if !ok {
		return nil, fmt.Errorf("medicine %d: %w", med.ID, store.ErrNotFound)
	}
	if med.Barcode != "" && s.barcodeTaken(med.Barcode, med.ID) {
		return nil, fmt.Errorf("barcode %s: %w", med.Barcode, store.ErrDuplicate)
	}
	med.CreatedAt = existing.CreatedAt
	med.UpdatedAt = time.Now().UTC()
	s.medicines[med.ID] = med
	return &med, nil
}

func (s *Store) DeleteMedicine(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.medicines[id]; !ok {
		return fmt.Errorf("medicine %d: %w", id, store.ErrNotFound)
	}
	delete(s.medicines, id)
	return nil
}

func (s *Store) ListLowStock(_ context.Context) ([]domain.Medicine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Medicine
	for _, m := range s.medicines {
		if m.Quantity < m.ReorderLevel {
			out = append(out, m)
		}
	}
	sortMedicines(out, "name", false)
	return out, nil
}

func (s *Store) ListExpired(_ context.Context, today string) ([]domain.Medicine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Medicine
	for _, m := range s.medicines {
		if m.ExpiryDate != "" && m.ExpiryDate < today {
			out = append(out, m)
		}
	}
	sortMedicines(out, "expiry_date", false)
	return out, nil
}

func (s *Store) ListExpiring(_ context.Context, today string, until string) ([]domain.Medicine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Medicine
	for _, m := range s.medicines {
		if m.ExpiryDate != "" && m.ExpiryDate >= today && m.ExpiryDate <= until {
			out = append(out, m)
		}
	}
	sortMedicines(out, "expiry_date", false)
	return out, nil
}

// RecordSale applies a whole checkout atomically: every line is checked
// against current stock before any quantity changes. Returns the stored
// lines and the post-sale quantity per medicine.
func (s *Store) RecordSale(_ context.Context, lines []domain.Sale) ([]domain.Sale, map[int64]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, line := range lines {
		m, ok := s.medicines[line.MedicineID]
		if !ok {
			return nil, nil, fmt.Errorf("medicine %d: %w", line.MedicineID, store.ErrNotFound)
		}
		if m.Quantity < line.Quantity {
			return nil, nil, fmt.Errorf("%s has %d in stock, %d requested: %w", m.Name, m.Quantity, line.Quantity, store.ErrInsufficientStock)
		}
	}

	now := time.Now().UTC()
	remaining := make(map[int64]int, len(lines))
	out := make([]domain.Sale, 0, len(lines))
	for _, line := range lines {
		m := s.medicines[line.MedicineID]
		m.Quantity -= line.Quantity
		m.UpdatedAt = now
		s.medicines[line.MedicineID] = m
		remaining[line.MedicineID] = m.Quantity

		line.ID = s.allocate("sale")
		line.MedicineName = m.Name
		if line.CustomerID != nil {
			if c, ok := s.customers[*line.CustomerID]; ok {
				line.CustomerName = c.Name
			}
		}
		if line.SaleDate.IsZero() {
			line.SaleDate = now
		}
		s.sales = append(s.sales, line)
		out = append(out, line)
	}
	return out, remaining, nil
}

func (s *Store) ListSalesByDateRange(_ context.Context, from time.Time, to time.Time) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Sale
	for _, sale := range s.sales {
		if sale.SaleDate.Before(from) || !sale.SaleDate.Before(to) {
			continue
		}
		out = append(out, sale)
	}
	slices.SortStableFunc(out, func(a, b domain.Sale) int {
		return a.SaleDate.Compare(b.SaleDate)
	})
	return out, nil
}

func (s *Store) ListRecentSales(_ context.Context, limit int) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := slices.Clone(s.sales)
	slices.SortStableFunc(out, func(a, b domain.Sale) int {
		return b.SaleDate.Compare(a.SaleDate)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListCustomers(_ context.Context, search string) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search = strings.ToLower(strings.TrimSpace(search))
	out := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		if search != "" &&
			!strings.Contains(strings.ToLower(c.Name), search) &&
			!strings.Contains(strings.ToLower(c.Phone), search) {
			continue
		}
		out = append(out, c)
	}
	slices.SortStableFunc(out, func(a, b domain.Customer) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return out, nil
}

func (s *Store) GetCustomerByID(_ context.Context, id int64) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customers[id]
	if !ok {
		return nil, fmt.Errorf("customer %d: %w", id, store.ErrNotFound)
	}
	return &c, nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	customer.ID = s.allocate("customer")
	customer.CreatedAt = time.Now().UTC()
	s.customers[customer.ID] = customer
	return &customer, nil
}

func (s *Store) UpdateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.customers[customer.ID]
	if !ok {
		return nil, fmt.Errorf("customer %d: %w", customer.ID, store.ErrNotFound)
	}
	customer.CreatedAt = existing.CreatedAt
	s.customers[customer.ID] = customer
	return &customer, nil
}

func (s *Store) ListSuppliers(_ context.Context) ([]domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Supplier, 0, len(s.suppliers))
	for _, sup := range s.suppliers {
		out = append(out, sup)
	}
	slices.SortStableFunc(out, func(a, b domain.Supplier) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return out, nil
}

func (s *Store) GetSupplierByID(_ context.Context, id int64) (*domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sup, ok := s.suppliers[id]
	if !ok {
		return nil, fmt.Errorf("supplier %d: %w", id, store.ErrNotFound)
	}
	return &sup, nil
}

func (s *Store) CreateSupplier(_ context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	supplier.ID = s.allocate("supplier")
	supplier.CreatedAt = time.Now().UTC()
	s.suppliers[supplier.ID] = supplier
	return &supplier, nil
}

func (s *Store) UpdateSupplier(_ context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.suppliers[supplier.ID]
	if !ok {
		return nil, fmt.Errorf("supplier %d: %w", supplier.ID, store.ErrNotFound)
	}
	supplier.CreatedAt = existing.CreatedAt
	s.suppliers[supplier.ID] = supplier
	return &supplier, nil
}

func (s *Store) CreatePurchaseOrder(_ context.Context, po domain.PurchaseOrder) (*domain.PurchaseOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sup, ok := s.suppliers[po.SupplierID]
	if !ok {
		return nil, fmt.Errorf("supplier %d: %w", po.SupplierID, store.ErrNotFound)
	}
	for _, item := range po.Items {
		if _, ok := s.medicines[item.MedicineID]; !ok {
			return nil, fmt.Errorf("medicine %d: %w", item.MedicineID, store.ErrNotFound)
		}
	}

	po.ID = s.allocate("po")
	po.SupplierName = sup.Name
	for i := range po.Items {
		po.Items[i].ID = s.allocate("po_item")
		po.Items[i].PurchaseID = po.ID
		po.Items[i].MedicineName = s.medicines[po.Items[i].MedicineID].Name
	}
	s.purchaseOrders[po.ID] = po
	return &po, nil
}

func (s *Store) GetPurchaseOrderByID(_ context.Context, id int64) (*domain.PurchaseOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	po, ok := s.purchaseOrders[id]
	if !ok {
		return nil, fmt.Errorf("purchase order %d: %w", id, store.ErrNotFound)
	}
	po.Items = slices.Clone(po.Items)
	return &po, nil
}

func (s *Store) ListPurchaseOrders(_ context.Context, status string) ([]domain.PurchaseOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.PurchaseOrder, 0, len(s.purchaseOrders))
	for _, po := range s.purchaseOrders {
		if status != "" && po.Status != status {
			continue
		}
		po.Items = slices.Clone(po.Items)
		out = append(out, po)
	}
	slices.SortStableFunc(out, func(a, b domain.PurchaseOrder) int {
		return b.OrderDate.Compare(a.OrderDate)
	})
	return out, nil
}

func (s *Store) ReceivePurchaseOrder(_ context.Context, id int64, at time.Time) (*domain.PurchaseOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	po, ok := s.purchaseOrders[id]
	if !ok {
		return nil, fmt.Errorf("purchase order %d: %w", id, store.ErrNotFound)
	}
	if po.Status != domain.POStatusPending {
		return nil, fmt.Errorf("purchase order %d is %s: %w", id, po.Status, store.ErrInvalidInput)
	}
	for _, item := range po.Items {
		m, ok := s.medicines[item.MedicineID]
		if !ok {
			return nil, fmt.Errorf("medicine %d: %w", item.MedicineID, store.ErrNotFound)
		}
		m.Quantity += item.Quantity
		m.UpdatedAt = at
		s.medicines[item.MedicineID] = m
	}
	po.Status = domain.POStatusReceived
	s.purchaseOrders[id] = po
	return &po, nil
}

func (s *Store) CancelPurchaseOrder(_ context.Context, id int64) (*domain.PurchaseOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	po, ok := s.purchaseOrders[id]
	if !ok {
		return nil, fmt.Errorf("purchase order %d: %w", id, store.ErrNotFound)
	}
	if po.Status != domain.POStatusPending {
		return nil, fmt.Errorf("purchase order %d is %s: %w", id, po.Status, store.ErrInvalidInput)
	}
	po.Status = domain.POStatusCancelled
	s.purchaseOrders[id] = po
	return &po, nil
}

// ApplyAdjustment returns the adjustment and the resulting quantity.
// Subtracting below zero fails without changing stock.
func (s *Store) ApplyAdjustment(_ context.Context, adj domain.InventoryAdjustment) (*domain.InventoryAdjustment, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.medicines[adj.MedicineID]
	if !ok {
		return nil, 0, fmt.Errorf("medicine %d: %w", adj.MedicineID, store.ErrNotFound)
	}
	switch adj.Type {
	case domain.AdjustmentAdd:
		m.Quantity += adj.Quantity
	case domain.AdjustmentSubtract:
		if m.Quantity < adj.Quantity {
			return nil, 0, fmt.Errorf("%s has %d in stock, cannot subtract %d: %w", m.Name, m.Quantity, adj.Quantity, store.ErrInsufficientStock)
		}
		m.Quantity -= adj.Quantity
	default:
		return nil, 0, fmt.Errorf("adjustment type %q: %w", adj.Type, store.ErrInvalidInput)
	}
	m.UpdatedAt = time.Now().UTC()
	s.medicines[adj.MedicineID] = m

	adj.ID = s.allocate("adjustment")
	adj.MedicineName = m.Name
	if adj.AdjustedAt.IsZero() {
		adj.AdjustedAt = m.UpdatedAt
	}
	s.adjustments = append(s.adjustments, adj)
	return &adj, m.Quantity, nil
}

func (s *Store) ListAdjustments(_ context.Context, limit int) ([]domain.InventoryAdjustment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := slices.Clone(s.adjustments)
	slices.Reverse(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) CreateActivityLog(_ context.Context, entry domain.ActivityLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.ID = s.allocate("activity")
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.activityLog = append(s.activityLog, entry)
	return nil
}

func (s *Store) ListActivityLog(_ context.Context, limit int) ([]domain.ActivityLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := slices.Clone(s.activityLog)
	slices.Reverse(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) CreateNotification(_ context.Context, notification domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	notification.ID = s.allocate("notification")
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}
	s.notifications = append(s.notifications, notification)
	return nil
}

// ListNotifications returns newest first with unread entries ahead of read
// ones.
func (s *Store) ListNotifications(_ context.Context, limit int) ([]domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := slices.Clone(s.notifications)
	slices.Reverse(out)
	slices.SortStableFunc(out, func(a, b domain.Notification) int {
		if a.Read == b.Read {
			return 0
		}
		if a.Read {
			return 1
		}
		return -1
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) MarkNotificationRead(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.notifications {
		if s.notifications[i].ID == id {
			s.notifications[i].Read = true
			return nil
		}
	}
	return fmt.Errorf("notification %d: %w", id, store.ErrNotFound)
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.usersByName[username]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", username, store.ErrNotFound)
	}
	return &u, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) (*domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByName[user.Username]; exists {
		return nil, fmt.Errorf("username %s: %w", user.Username, store.ErrDuplicate)
	}
	user.ID = s.allocate("user")
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.usersByName[user.Username] = user
	return &user, nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.UserAccount, 0, len(s.usersByName))
	for _, u := range s.usersByName {
		out = append(out, u)
	}
	slices.SortStableFunc(out, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return out, nil
}

func (s *Store) RevenueByCategory(_ context.Context, from time.Time, to time.Time) ([]domain.CategoryRevenue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byCategory := map[string]int64{}
	for _, sale := range s.sales {
		if sale.SaleDate.Before(from) || !sale.SaleDate.Before(to) {
			continue
		}
		category := "Uncategorized"
		if m, ok := s.medicines[sale.MedicineID]; ok && m.Category != "" {
			category = m.Category
		}
		byCategory[category] += sale.TotalCents
	}
	out := make([]domain.CategoryRevenue, 0, len(byCategory))
	for category, cents := range byCategory {
		out = append(out, domain.CategoryRevenue{Category: category, RevenueCents: cents})
	}
	slices.SortStableFunc(out, func(a, b domain.CategoryRevenue) int {
		switch {
		case a.RevenueCents > b.RevenueCents:
			return -1
		case a.RevenueCents < b.RevenueCents:
			return 1
		default:
			return strings.Compare(a.Category, b.Category)
		}
	})
	return out, nil
}

func (s *Store) TopMedicines(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.TopMedicine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byID := map[int64]*domain.TopMedicine{}
	for _, sale := range s.sales {
		if sale.SaleDate.Before(from) || !sale.SaleDate.Before(to) {
			continue
		}
		entry, ok := byID[sale.MedicineID]
		if !ok {
			name := sale.MedicineName
			if m, found := s.medicines[sale.MedicineID]; found {
				name = m.Name
			}
			entry = &domain.TopMedicine{MedicineID: sale.MedicineID, Name: name}
			byID[sale.MedicineID] = entry
		}
		entry.UnitsSold += sale.Quantity
		entry.RevenueCents += sale.TotalCents
	}
	out := make([]domain.TopMedicine, 0, len(byID))
	for _, entry := range byID {
		out = append(out, *entry)
	}
	slices.SortStableFunc(out, func(a, b domain.TopMedicine) int {
		if a.UnitsSold != b.UnitsSold {
			return b.UnitsSold - a.UnitsSold
		}
		return strings.Compare(a.Name, b.Name)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) DailyRevenue(_ context.Context, from time.Time, to time.Time) ([]domain.DailyRevenue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byDay := map[string]int64{}
	for _, sale := range s.sales {
		if sale.SaleDate.Before(from) || !sale.SaleDate.Before(to) {
			continue
		}
		byDay[sale.SaleDate.UTC().Format("2006-01-02")] += sale.TotalCents
	}
	out := make([]domain.DailyRevenue, 0, len(byDay))
	for day, cents := range byDay {
		out = append(out, domain.DailyRevenue{Date: day, RevenueCents: cents})
	}
	slices.SortStableFunc(out, func(a, b domain.DailyRevenue) int {
		return strings.Compare(a.Date, b.Date)
	})
	return out, nil
}

func (s *Store) GetDashboardStats(_ context.Context, now time.Time) (domain.DashboardStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	today := now.UTC().Format("2006-01-02")
	in30 := now.UTC().AddDate(0, 0, 30).Format("2006-01-02")
	monthStart := time.Date(now.UTC().Year(), now.UTC().Month(), 1, 0, 0, 0, 0, time.UTC)

	stats := domain.DashboardStats{TotalMedicines: len(s.medicines)}
	for _, m := range s.medicines {
		if m.Quantity < m.ReorderLevel {
			stats.LowStockCount++
		}
		if m.ExpiryDate != "" && m.ExpiryDate < today {
			stats.ExpiredCount++
		}
		if m.ExpiryDate != "" && m.ExpiryDate >= today && m.ExpiryDate <= in30 {
			stats.ExpiringCount++
		}
	}
	for _, sale := range s.sales {
		if sale.SaleDate.UTC().Format("2006-01-02") == today {
			stats.TodayCents += sale.TotalCents
		}
		if !sale.SaleDate.Before(monthStart) {
			stats.MonthCents += sale.TotalCents
		}
	}

	recent := slices.Clone(s.sales)
	slices.SortStableFunc(recent, func(a, b domain.Sale) int {
		return b.SaleDate.Compare(a.SaleDate)
	})
	if len(recent) > 10 {
		recent = recent[:10]
	}
	stats.RecentSales = recent
	return stats, nil
}
