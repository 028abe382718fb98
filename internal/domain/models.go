package domain

import "time"

// Medicine is a stocked inventory item. Monetary fields are integer cents.
// ExpiryDate is a YYYY-MM-DD string; empty means no expiry on record.
type Medicine struct {
	ID                   int64     `json:"id"`
	Name                 string    `json:"name"`
	GenericName          string    `json:"generic_name,omitempty"`
	Brand                string    `json:"brand"`
	Category             string    `json:"category,omitempty"`
	SupplierID           *int64    `json:"supplier_id,omitempty"`
	Quantity             int       `json:"quantity"`
	ReorderLevel         int       `json:"reorder_level"`
	CostCents            int64     `json:"cost_cents"`
	PriceCents           int64     `json:"price_cents"`
	ExpiryDate           string    `json:"expiry_date,omitempty"`
	Barcode              string    `json:"barcode,omitempty"`
	BatchNumber          string    `json:"batch_number,omitempty"`
	RackLocation         string    `json:"rack_location,omitempty"`
	Description          string    `json:"description,omitempty"`
	RequiresPrescription bool      `json:"requires_prescription"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

type MedicineCreateRequest struct {
	Name                 string `json:"name"`
	GenericName          string `json:"generic_name"`
	Brand                string `json:"brand"`
	Category             string `json:"category"`
	SupplierID           *int64 `json:"supplier_id"`
	Quantity             int    `json:"quantity"`
	ReorderLevel         int    `json:"reorder_level"`
	CostCents            int64  `json:"cost_cents"`
	PriceCents           int64  `json:"price_cents"`
	ExpiryDate           string `json:"expiry_date"`
	Barcode              string `json:"barcode"`
	BatchNumber          string `json:"batch_number"`
	RackLocation         string `json:"rack_location"`
	Description          string `json:"description"`
	RequiresPrescription bool   `json:"requires_prescription"`
}

type MedicineUpdateRequest struct {
	Name                 *string `json:"name,omitempty"`
	GenericName          *string `json:"generic_name,omitempty"`
	Brand                *string `json:"brand,omitempty"`
	Category             *string `json:"category,omitempty"`
	SupplierID           *int64  `json:"supplier_id,omitempty"`
	Quantity             *int    `json:"quantity,omitempty"`
	ReorderLevel         *int    `json:"reorder_level,omitempty"`
	CostCents            *int64  `json:"cost_cents,omitempty"`
	PriceCents           *int64  `json:"price_cents,omitempty"`
	ExpiryDate           *string `json:"expiry_date,omitempty"`
	Barcode              *string `json:"barcode,omitempty"`
	BatchNumber          *string `json:"batch_number,omitempty"`
	RackLocation         *string `json:"rack_location,omitempty"`
	Description          *string `json:"description,omitempty"`
	RequiresPrescription *bool   `json:"requires_prescription,omitempty"`
}

// MedicineFilter narrows and orders a medicine listing. SortBy must be one
// of the allow-listed columns; anything else is rejected before it reaches
// a query.
type MedicineFilter struct {
	Search   string
	Category string
	SortBy   string
	SortDesc bool
}

const (
	PaymentCash   = "cash"
	PaymentCard   = "card"
	PaymentMobile = "mobile"
)

type SaleItemRequest struct {
	MedicineID      int64   `json:"medicine_id"`
	Quantity        int     `json:"quantity"`
	DiscountPercent float64 `json:"discount_percent"`
}

type SaleRequest struct {
	Items         []SaleItemRequest `json:"items"`
	CustomerID    *int64            `json:"customer_id,omitempty"`
	PaymentMethod string            `json:"payment_method"`
}

// Sale is a single line of a checkout; lines of one checkout share an
// invoice number.
type Sale struct {
	ID              int64     `json:"id"`
	InvoiceNumber   string    `json:"invoice_number"`
	MedicineID      int64     `json:"medicine_id"`
	MedicineName    string    `json:"medicine_name,omitempty"`
	CustomerID      *int64    `json:"customer_id,omitempty"`
	CustomerName    string    `json:"customer_name,omitempty"`
	Quantity        int       `json:"quantity"`
	UnitCents       int64     `json:"unit_cents"`
	DiscountPercent float64   `json:"discount_percent"`
	TaxCents        int64     `json:"tax_cents"`
	TotalCents      int64     `json:"total_cents"`
	PaymentMethod   string    `json:"payment_method"`
	Cashier         string    `json:"cashier"`
	SaleDate        time.Time `json:"sale_date"`
}

type SaleResponse struct {
	Success       bool   `json:"success"`
	InvoiceNumber string `json:"invoice_number"`
	TotalCents    int64  `json:"total_cents"`
}

type Customer struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Phone          string    `json:"phone,omitempty"`
	Email          string    `json:"email,omitempty"`
	Address        string    `json:"address,omitempty"`
	DateOfBirth    string    `json:"date_of_birth,omitempty"`
	MedicalHistory string    `json:"medical_history,omitempty"`
	Allergies      string    `json:"allergies,omitempty"`
	LoyaltyPoints  int       `json:"loyalty_points"`
	CreatedAt      time.Time `json:"created_at"`
}

type CustomerUpdateRequest struct {
	Name           *string `json:"name,omitempty"`
	Phone          *string `json:"phone,omitempty"`
	Email          *string `json:"email,omitempty"`
	Address        *string `json:"address,omitempty"`
	DateOfBirth    *string `json:"date_of_birth,omitempty"`
	MedicalHistory *string `json:"medical_history,omitempty"`
	Allergies      *string `json:"allergies,omitempty"`
	LoyaltyPoints  *int    `json:"loyalty_points,omitempty"`
}

type Supplier struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	ContactPerson string    `json:"contact_person,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Email         string    `json:"email,omitempty"`
	Address       string    `json:"address,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type SupplierUpdateRequest struct {
	Name          *string `json:"name,omitempty"`
	ContactPerson *string `json:"contact_person,omitempty"`
	Phone         *string `json:"phone,omitempty"`
	Email         *string `json:"email,omitempty"`
	Address       *string `json:"address,omitempty"`
}

const (
	POStatusPending   = "pending"
	POStatusReceived  = "received"
	POStatusCancelled = "cancelled"
)

type POItemRequest struct {
	MedicineID int64 `json:"medicine_id"`
	Quantity   int   `json:"quantity"`
	UnitCents  int64 `json:"unit_cents"`
}

type PurchaseOrderCreateRequest struct {
	SupplierID   int64           `json:"supplier_id"`
	ExpectedDate string          `json:"expected_date"`
	Notes        string          `json:"notes"`
	Items        []POItemRequest `json:"items"`
}

type POItem struct {
	ID           int64  `json:"id"`
	PurchaseID   int64  `json:"purchase_id"`
	MedicineID   int64  `json:"medicine_id"`
	MedicineName string `json:"medicine_name,omitempty"`
	Quantity     int    `json:"quantity"`
	UnitCents    int64  `json:"unit_cents"`
}

type PurchaseOrder struct {
	ID           int64     `json:"id"`
	PONumber     string    `json:"po_number"`
	SupplierID   int64     `json:"supplier_id"`
	SupplierName string    `json:"supplier_name,omitempty"`
	Status       string    `json:"status"`
	TotalCents   int64     `json:"total_cents"`
	OrderDate    time.Time `json:"order_date"`
	ExpectedDate string    `json:"expected_date,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	Items        []POItem  `json:"items,omitempty"`
}

const (
	AdjustmentAdd      = "add"
	AdjustmentSubtract = "subtract"
)

type AdjustmentRequest struct {
	MedicineID int64  `json:"medicine_id"`
	Type       string `json:"type"`
	Quantity   int    `json:"quantity"`
	Reason     string `json:"reason"`
}

type InventoryAdjustment struct {
	ID           int64     `json:"id"`
	MedicineID   int64     `json:"medicine_id"`
	MedicineName string    `json:"medicine_name,omitempty"`
	Type         string    `json:"type"`
	Quantity     int       `json:"quantity"`
	Reason       string    `json:"reason,omitempty"`
	AdjustedBy   string    `json:"adjusted_by"`
	AdjustedAt   time.Time `json:"adjusted_at"`
}

type ActivityLogEntry struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Action    string    `json:"action"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	NotificationLowStock = "low_stock"
	NotificationExpiry   = "expiry"
	NotificationSystem   = "system"
)

type Notification struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	Kind      string    `json:"kind"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type ImportResult struct {
	SuccessCount int              `json:"success_count"`
	ErrorCount   int              `json:"error_count"`
	Errors       []ImportRowError `json:"errors,omitempty"`
}

// SalesReport aggregates sale lines over a date range inclusive of both
// endpoints.
type SalesReport struct {
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date"`
	Lines            []Sale `json:"lines"`
	TotalCents       int64  `json:"total_cents"`
	TaxCents         int64  `json:"tax_cents"`
	TransactionCount int    `json:"transaction_count"`
}

type CategoryRevenue struct {
	Category     string `json:"category"`
	RevenueCents int64  `json:"revenue_cents"`
}

type TopMedicine struct {
	MedicineID   int64  `json:"medicine_id"`
	Name         string `json:"name"`
	UnitsSold    int    `json:"units_sold"`
	RevenueCents int64  `json:"revenue_cents"`
}

type DailyRevenue struct {
	Date         string `json:"date"`
	RevenueCents int64  `json:"revenue_cents"`
}

type Analytics struct {
	ByCategory []CategoryRevenue `json:"by_category"`
	TopSellers []TopMedicine     `json:"top_sellers"`
	DailyTrend []DailyRevenue    `json:"daily_trend"`
}

type DashboardStats struct {
	TotalMedicines  int    `json:"total_medicines"`
	LowStockCount   int    `json:"low_stock_count"`
	ExpiredCount    int    `json:"expired_count"`
	ExpiringCount   int    `json:"expiring_count"`
	TodayCents      int64  `json:"today_cents"`
	MonthCents      int64  `json:"month_cents"`
	RecentSales     []Sale `json:"recent_sales"`
}

const (
	RoleAdmin      = "admin"
	RolePharmacist = "pharmacist"
)

type UserAccount struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

type UserCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}
