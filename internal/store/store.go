package store

import (
	"context"
	"errors"
	"time"

	"github.com/itsfahadusman/pharmacy-pos-advanced/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrDuplicate         = errors.New("duplicate")
	ErrInvalidInput      = errors.New("invalid input")
)

type Repository interface {
	ListMedicines(ctx context.Context, filter domain.MedicineFilter) ([]domain.Medicine, error)
	GetMedicineByID(ctx context.Context, id int64) (*domain.Medicine, error)
	GetMedicineByBarcode(ctx context.Context, barcode string) (*domain.Medicine, error)
	GetMedicinesByIDs(ctx context.Context, ids []int64) (map[int64]domain.Medicine, error)
	CreateMedicine(ctx context.Context, med domain.Medicine) (*domain.Medicine, error)
	CreateMedicines(ctx context.Context, meds []domain.Medicine) ([]domain.Medicine, error)
	UpdateMedicine(ctx context.Context, med domain.Medicine) (*domain.Medicine, error)
	DeleteMedicine(ctx context.Context, id int64) error
	ListLowStock(ctx context.Context) ([]domain.Medicine, error)
	ListExpired(ctx context.Context, today string) ([]domain.Medicine, error)
	ListExpiring(ctx context.Context, today string, until string) ([]domain.Medicine, error)

	RecordSale(ctx context.Context, lines []domain.Sale) ([]domain.Sale, map[int64]int, error)
	ListSalesByDateRange(ctx context.Context, from time.Time, to time.Time) ([]domain.Sale, error)
	ListRecentSales(ctx context.Context, limit int) ([]domain.Sale, error)

	ListCustomers(ctx context.Context, search string) ([]domain.Customer, error)
	GetCustomerByID(ctx context.Context, id int64) (*domain.Customer, error)
	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)

	ListSuppliers(ctx context.Context) ([]domain.Supplier, error)
	GetSupplierByID(ctx context.Context, id int64) (*domain.Supplier, error)
	CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error)
	UpdateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error)

	CreatePurchaseOrder(ctx context.Context, po domain.PurchaseOrder) (*domain.PurchaseOrder, error)
	GetPurchaseOrderByID(ctx context.Context, id int64) (*domain.PurchaseOrder, error)
	ListPurchaseOrders(ctx context.Context, status string) ([]domain.PurchaseOrder, error)
	ReceivePurchaseOrder(ctx context.Context, id int64, at time.Time) (*domain.PurchaseOrder, error)
	CancelPurchaseOrder(ctx context.Context, id int64) (*domain.PurchaseOrder, error)

	ApplyAdjustment(ctx context.Context, adj domain.InventoryAdjustment) (*domain.InventoryAdjustment, int, error)
	ListAdjustments(ctx context.Context, limit int) ([]domain.InventoryAdjustment, error)

	CreateActivityLog(ctx context.Context, entry domain.ActivityLogEntry) error
	ListActivityLog(ctx context.Context, limit int) ([]domain.ActivityLogEntry, error)

	CreateNotification(ctx context.Context, notification domain.Notification) error
	ListNotifications(ctx context.Context, limit int) ([]domain.Notification, error)
	MarkNotificationRead(ctx context.Context, id int64) error

	GetUserByUsername(ctx context.Context, username string) (*domain.UserAccount, error)
	CreateUser(ctx context.Context, user domain.UserAccount) (*domain.UserAccount, error)
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)

	RevenueByCategory(ctx context.Context, from time.Time, to time.Time) ([]domain.CategoryRevenue, error)
	TopMedicines(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.TopMedicine, error)
	DailyRevenue(ctx context.Context, from time.Time, to time.Time) ([]domain.DailyRevenue, error)
	GetDashboardStats(ctx context.Context, now time.Time) (domain.DashboardStats, error)
}
