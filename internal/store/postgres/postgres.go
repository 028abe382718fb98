package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/itsfahadusman/pharmacy-pos-advanced/internal/domain"
	"github.com/itsfahadusman/pharmacy-pos-advanced/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const medicineColumns = `
	id, name, generic_name, brand, category, supplier_id, quantity, reorder_level,
	cost_cents, price_cents, expiry_date, barcode, batch_number, rack_location,
	description, requires_prescription, created_at, updated_at
`

func scanMedicine(row interface{ Scan(dest ...any) error }) (domain.Medicine, error) {
	var m domain.Medicine
	var genericName, category, barcode, batchNumber, rackLocation, description sql.NullString
	var supplierID sql.NullInt64
	var expiry sql.NullTime
	err := row.Scan(
		&m.ID, &m.Name, &genericName, &m.Brand, &category, &supplierID, &m.Quantity, &m.ReorderLevel,
		&m.CostCents, &m.PriceCents, &expiry, &barcode, &batchNumber, &rackLocation,
		&description, &m.RequiresPrescription, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return m, err
	}
	m.GenericName = genericName.String
	m.Category = category.String
	m.Barcode = barcode.String
	m.BatchNumber = batchNumber.String
	m.RackLocation = rackLocation.String
	m.Description = description.String
	if supplierID.Valid {
		v := supplierID.Int64
		m.SupplierID = &v
	}
	if expiry.Valid {
		m.ExpiryDate = expiry.Time.UTC().Format("2006-01-02")
	}
	return m, nil
}

// sortColumn maps an allow-listed sort key to a real column. Anything not in
// the switch falls back to name; caller input never reaches the SQL text.
func sortColumn(sortBy string) string {
	switch sortBy {
	case "brand":
		return "brand"
	case "quantity":
		return "quantity"
	case "price":
		return "price_cents"
	case "expiry_date":
		return "expiry_date"
	default:
		return "name"
	}
}

func (s *Store) ListMedicines(ctx context.Context, filter domain.MedicineFilter) ([]domain.Medicine, error) {
	conditions := []string{"1=1"}
	args := []any{}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(name ILIKE $%d OR generic_name ILIKE $%d OR brand ILIKE $%d OR barcode ILIKE $%d)", n, n, n, n))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("category ILIKE $%d", len(args)))
	}

	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}
	query := fmt.Sprintf(`
		SELECT %s
		FROM medicines
		WHERE %s
		ORDER BY %s %s NULLS LAST, id ASC
	`, medicineColumns, strings.Join(conditions, " AND "), sortColumn(filter.SortBy), direction)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	medicines := make([]domain.Medicine, 0, 128)
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, err
		}
		medicines = append(medicines, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return medicines, nil
}

func (s *Store) GetMedicineByID(ctx context.Context, id int64) (*domain.Medicine, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM medicines WHERE id = $1
	`, medicineColumns), id)
	m, err := scanMedicine(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("medicine %d: %w", id, store.ErrNotFound)
		}
		return nil, err
	}
	return &m, nil
}

func (s *Store) GetMedicineByBarcode(ctx context.Context, barcode string) (*domain.Medicine, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM medicines WHERE barcode = $1
	`, medicineColumns), barcode)
	m, err := scanMedicine(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("barcode %s: %w", barcode, store.ErrNotFound)
		}
		return nil, err
	}
	return &m, nil
}

func (s *Store) GetMedicinesByIDs(ctx context.Context, ids []int64) (map[int64]domain.Medicine, error) {
	if len(ids) == 0 {
		return map[int64]domain.Medicine{}, nil
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM medicines WHERE id = ANY($1)
	`, medicineColumns), ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]domain.Medicine, len(ids))
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, err
		}
		out[m.ID] = m
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) CreateMedicine(ctx context.Context, med domain.Medicine) (*domain.Medicine, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO medicines (
			name, generic_name, brand, category, supplier_id, quantity, reorder_level,
			cost_cents, price_cents, expiry_date, barcode, batch_number, rack_location,
			description, requires_prescription, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,now(),now())
		RETURNING id, created_at, updated_at
	`,
		med.Name, nullIfEmpty(med.GenericName), med.Brand, nullIfEmpty(med.Category),
		nullInt64(med.SupplierID), med.Quantity, med.ReorderLevel,
		med.CostCents, med.PriceCents, nullDateString(med.ExpiryDate), nullIfEmpty(med.Barcode),
		nullIfEmpty(med.BatchNumber), nullIfEmpty(med.RackLocation), nullIfEmpty(med.Description),
		med.RequiresPrescription,
	).Scan(&med.ID, &med.CreatedAt, &med.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("barcode %s: %w", med.Barcode, store.ErrDuplicate)
		}
		return nil, err
	}
	return &med, nil
}

func (s *Store) CreateMedicines(ctx context.Context, meds []domain.Medicine) ([]domain.Medicine, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	out := make([]domain.Medicine, 0, len(meds))
	for _, med := range meds {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO medicines (
				name, generic_name, brand, category, supplier_id, quantity, reorder_level,
				cost_cents, price_cents, expiry_date, barcode, batch_number, rack_location,
				description, requires_prescription, created_at, updated_at
			)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,now(),now())
			RETURNING id, created_at, updated_at
		`,
			med.Name, nullIfEmpty(med.GenericName), med.Brand, nullIfEmpty(med.Category),
			nullInt64(med.SupplierID), med.Quantity, med.ReorderLevel,
			med.CostCents, med.PriceCents, nullDateString(med.ExpiryDate), nullIfEmpty(med.Barcode),
			nullIfEmpty(med.BatchNumber), nullIfEmpty(med.RackLocation), nullIfEmpty(med.Description),
			med.RequiresPrescription,
		).Scan(&med.ID, &med.CreatedAt, &med.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, fmt.Errorf("barcode %s: %w", med.Barcode, store.ErrDuplicate)
			}
			return nil, err
		}
		out = append(out, med)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) UpdateMedicine(ctx context.Context, med domain.Medicine) (*domain.Medicine, error) {
	err := s.db.QueryRowContext(ctx, `
		UPDATE medicines SET
			name = $2, generic_name = $3, brand = $4, category = $5, supplier_id = $6,
			quantity = $7, reorder_level = $8, cost_cents = $9, price_cents = $10,
			expiry_date = $11, barcode = $12, batch_number = $13, rack_location = $14,
			description = $15, requires_prescription = $16, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at
	`,
		med.ID, med.Name, nullIfEmpty(med.GenericName), med.Brand, nullIfEmpty(med.Category),
		nullInt64(med.SupplierID), med.Quantity, med.ReorderLevel, med.CostCents, med.PriceCents,
		nullDateString(med.ExpiryDate), nullIfEmpty(med.Barcode), nullIfEmpty(med.BatchNumber),
		nullIfEmpty(med.RackLocation), nullIfEmpty(med.Description), med.RequiresPrescription,
	).Scan(&med.CreatedAt, &med.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("medicine %d: %w", med.ID, store.ErrNotFound)
		}
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("barcode %s: %w", med.Barcode, store.ErrDuplicate)
		}
		return nil, err
	}
	return &med, nil
}

func (s *Store) DeleteMedicine(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM medicines WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("medicine %d: %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *Store) ListLowStock(ctx context.Context) ([]domain.Medicine, error) {
	return s.listMedicinesWhere(ctx, "quantity < reorder_level", "name ASC")
}

func (s *Store) ListExpired(ctx context.Context, today string) ([]domain.Medicine, error) {
	return s.listMedicinesWhere(ctx, "expiry_date IS NOT NULL AND expiry_date < $1::date", "expiry_date ASC", today)
}

func (s *Store) ListExpiring(ctx context.Context, today string, until string) ([]domain.Medicine, error) {
	return s.listMedicinesWhere(ctx,
		"expiry_date IS NOT NULL AND expiry_date >= $1::date AND expiry_date <= $2::date",
		"expiry_date ASC", today, until)
}

func (s *Store) listMedicinesWhere(ctx context.Context, where string, order string, args ...any) ([]domain.Medicine, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM medicines WHERE %s ORDER BY %s
	`, medicineColumns, where, order), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var medicines []domain.Medicine
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, err
		}
		medicines = append(medicines, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return medicines, nil
}

// RecordSale persists a whole checkout in one serializable transaction.
// Rows are locked up front so a concurrent checkout cannot oversell the
// same medicine.
func (s *Store) RecordSale(ctx context.Context, lines []domain.Sale) ([]domain.Sale, map[int64]int, error) {
	if len(lines) == 0 {
		return nil, nil, fmt.Errorf("empty sale: %w", store.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = tx.Rollback() }()

	ids := uniqueMedicineIDs(lines)
	rows, err := tx.QueryContext(ctx, `
		SELECT id, name, quantity
		FROM medicines
		WHERE id = ANY($1)
		FOR UPDATE
	`, ids)
	if err != nil {
		return nil, nil, err
	}
	type medState struct {
		name string
		qty  int
	}
	states := make(map[int64]medState, len(ids))
	for rows.Next() {
		var id int64
		var st medState
		if err := rows.Scan(&id, &st.name, &st.qty); err != nil {
			_ = rows.Close()
			return nil, nil, err
		}
		states[id] = st
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, nil, err
	}
	_ = rows.Close()

	requested := make(map[int64]int, len(ids))
	for _, line := range lines {
		requested[line.MedicineID] += line.Quantity
	}
	for id, qty := range requested {
		st, ok := states[id]
		if !ok {
			return nil, nil, fmt.Errorf("medicine %d: %w", id, store.ErrNotFound)
		}
		if st.qty < qty {
			return nil, nil, fmt.Errorf("%s has %d in stock, %d requested: %w", st.name, st.qty, qty, store.ErrInsufficientStock)
		}
	}

	remaining := make(map[int64]int, len(ids))
	for id, qty := range requested {
		var left int
		err := tx.QueryRowContext(ctx, `
			UPDATE medicines
			SET quantity = quantity - $2, updated_at = now()
			WHERE id = $1 AND quantity >= $2
			RETURNING quantity
		`, id, qty).Scan(&left)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil, fmt.Errorf("%s: %w", states[id].name, store.ErrInsufficientStock)
			}
			return nil, nil, err
		}
		remaining[id] = left
	}

	out := make([]domain.Sale, 0, len(lines))
	for _, line := range lines {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO sales (
				invoice_number, medicine_id, customer_id, quantity, unit_cents,
				discount_percent, tax_cents, total_cents, payment_method, cashier, sale_date
			)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
			RETURNING id
		`,
			line.InvoiceNumber, line.MedicineID, nullInt64(line.CustomerID), line.Quantity,
			line.UnitCents, line.DiscountPercent, line.TaxCents, line.TotalCents,
			line.PaymentMethod, line.Cashier, line.SaleDate,
		).Scan(&line.ID)
		if err != nil {
			return nil, nil, err
		}
		line.MedicineName = states[line.MedicineID].name
		out = append(out, line)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return out, remaining, nil
}

const saleColumns = `
	s.id, s.invoice_number, s.medicine_id, COALESCE(m.name, ''), s.customer_id,
	COALESCE(c.name, ''), s.quantity, s.unit_cents, s.discount_percent,
	s.tax_cents, s.total_cents, s.payment_method, s.cashier, s.sale_date
`

const saleJoins = `
	FROM sales s
	LEFT JOIN medicines m ON m.id = s.medicine_id
	LEFT JOIN customers c ON c.id = s.customer_id
`

func scanSale(rows *sql.Rows) (domain.Sale, error) {
	var sale domain.Sale
	var customerID sql.NullInt64
	err := rows.Scan(
		&sale.ID, &sale.InvoiceNumber, &sale.MedicineID, &sale.MedicineName, &customerID,
		&sale.CustomerName, &sale.Quantity, &sale.UnitCents, &sale.DiscountPercent,
		&sale.TaxCents, &sale.TotalCents, &sale.PaymentMethod, &sale.Cashier, &sale.SaleDate,
	)
	if err != nil {
		return sale, err
	}
	if customerID.Valid {
		v := customerID.Int64
		sale.CustomerID = &v
	}
	return sale, nil
}

func (s *Store) ListSalesByDateRange(ctx context.Context, from time.Time, to time.Time) ([]domain.Sale, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s %s
		WHERE s.sale_date >= $1 AND s.sale_date < $2
		ORDER BY s.sale_date ASC, s.id ASC
	`, saleColumns, saleJoins), from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sales []domain.Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) ListRecentSales(ctx context.Context, limit int) ([]domain.Sale, error) {
	if limit < 1 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s %s
		ORDER BY s.sale_date DESC, s.id DESC
		LIMIT $1
	`, saleColumns, saleJoins), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sales []domain.Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) ListCustomers(ctx context.Context, search string) ([]domain.Customer, error) {
	conditions := "1=1"
	args := []any{}
	if search = strings.TrimSpace(search); search != "" {
		conditions = "(name ILIKE $1 OR phone ILIKE $1)"
		args = append(args, "%"+search+"%")
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, name, phone, email, address, date_of_birth, medical_history,
		       allergies, loyalty_points, created_at
		FROM customers
		WHERE %s
		ORDER BY name ASC
	`, conditions), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []domain.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func scanCustomer(row interface{ Scan(dest ...any) error }) (domain.Customer, error) {
	var c domain.Customer
	var phone, email, address, history, allergies sql.NullString
	var dob sql.NullTime
	err := row.Scan(&c.ID, &c.Name, &phone, &email, &address, &dob, &history, &allergies, &c.LoyaltyPoints, &c.CreatedAt)
	if err != nil {
		return c, err
	}
	c.Phone = phone.String
	c.Email = email.String
	c.Address = address.String
	c.MedicalHistory = history.String
	c.Allergies = allergies.String
	if dob.Valid {
		c.DateOfBirth = dob.Time.UTC().Format("2006-01-02")
	}
	return c, nil
}

func (s *Store) GetCustomerByID(ctx context.Context, id int64) (*domain.Customer, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, phone, email, address, date_of_birth, medical_history,
		       allergies, loyalty_points, created_at
		FROM customers
		WHERE id = $1
	`, id)
	c, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("customer %d: %w", id, store.ErrNotFound)
		}
		return nil, err
	}
	return &c, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO customers (name, phone, email, address, date_of_birth,
		                       medical_history, allergies, loyalty_points, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,now())
		RETURNING id, created_at
	`,
		customer.Name, nullIfEmpty(customer.Phone), nullIfEmpty(customer.Email),
		nullIfEmpty(customer.Address), nullDateString(customer.DateOfBirth),
		nullIfEmpty(customer.MedicalHistory), nullIfEmpty(customer.Allergies), customer.LoyaltyPoints,
	).Scan(&customer.ID, &customer.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	err := s.db.QueryRowContext(ctx, `
		UPDATE customers SET
			name = $2, phone = $3, email = $4, address = $5, date_of_birth = $6,
			medical_history = $7, allergies = $8, loyalty_points = $9
		WHERE id = $1
		RETURNING created_at
	`,
		customer.ID, customer.Name, nullIfEmpty(customer.Phone), nullIfEmpty(customer.Email),
		nullIfEmpty(customer.Address), nullDateString(customer.DateOfBirth),
		nullIfEmpty(customer.MedicalHistory), nullIfEmpty(customer.Allergies), customer.LoyaltyPoints,
	).Scan(&customer.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("customer %d: %w", customer.ID, store.ErrNotFound)
		}
		return nil, err
	}
	return &customer, nil
}

func (s *Store) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, contact_person, phone, email, address, created_at
		FROM suppliers
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var suppliers []domain.Supplier
	for rows.Next() {
		sup, err := scanSupplier(rows)
		if err != nil {
			return nil, err
		}
		suppliers = append(suppliers, sup)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return suppliers, nil
}

func scanSupplier(row interface{ Scan(dest ...any) error }) (domain.Supplier, error) {
	var sup domain.Supplier
	var contact, phone, email, address sql.NullString
	err := row.Scan(&sup.ID, &sup.Name, &contact, &phone, &email, &address, &sup.CreatedAt)
	if err != nil {
		return sup, err
	}
	sup.ContactPerson = contact.String
	sup.Phone = phone.String
	sup.Email = email.String
	sup.Address = address.String
	return sup, nil
}

func (s *Store) GetSupplierByID(ctx context.Context, id int64) (*domain.Supplier, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, contact_person, phone, email, address, created_at
		FROM suppliers
		WHERE id = $1
	`, id)
	sup, err := scanSupplier(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("supplier %d: %w", id, store.ErrNotFound)
		}
		return nil, err
	}
	return &sup, nil
}

func (s *Store) CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO suppliers (name, contact_person, phone, email, address, created_at)
		VALUES ($1,$2,$3,$4,$5,now())
		RETURNING id, created_at
	`,
		supplier.Name, nullIfEmpty(supplier.ContactPerson), nullIfEmpty(supplier.Phone),
		nullIfEmpty(supplier.Email), nullIfEmpty(supplier.Address),
	).Scan(&supplier.ID, &supplier.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (s *Store) UpdateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	err := s.db.QueryRowContext(ctx, `
		UPDATE suppliers SET
			name = $2, contact_person = $3, phone = $4, email = $5, address = $6
		WHERE id = $1
		RETURNING created_at
	`,
		supplier.ID, supplier.Name, nullIfEmpty(supplier.ContactPerson),
		nullIfEmpty(supplier.Phone), nullIfEmpty(supplier.Email), nullIfEmpty(supplier.Address),
	).Scan(&supplier.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("supplier %d: %w", supplier.ID, store.ErrNotFound)
		}
		return nil, err
	}
	return &supplier, nil
}

func (s *Store) CreatePurchaseOrder(ctx context.Context, po domain.PurchaseOrder) (*domain.PurchaseOrder, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.QueryRowContext(ctx, `
		SELECT name FROM suppliers WHERE id = $1
	`, po.SupplierID).Scan(&po.SupplierName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("supplier %d: %w", po.SupplierID, store.ErrNotFound)
		}
		return nil, err
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO purchase_orders (po_number, supplier_id, status, total_cents,
		                             order_date, expected_date, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id
	`,
		po.PONumber, po.SupplierID, po.Status, po.TotalCents, po.OrderDate,
		nullDateString(po.ExpectedDate), nullIfEmpty(po.Notes),
	).Scan(&po.ID)
	if err != nil {
		return nil, err
	}

	for i := range po.Items {
		item := &po.Items[i]
		item.PurchaseID = po.ID
		err := tx.QueryRowContext(ctx, `
			INSERT INTO po_items (po_id, medicine_id, quantity, unit_cents)
			SELECT $1, m.id, $3, $4 FROM medicines m WHERE m.id = $2
			RETURNING id
		`, po.ID, item.MedicineID, item.Quantity, item.UnitCents).Scan(&item.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("medicine %d: %w", item.MedicineID, store.ErrNotFound)
			}
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetPurchaseOrderByID(ctx, po.ID)
}

func (s *Store) GetPurchaseOrderByID(ctx context.Context, id int64) (*domain.PurchaseOrder, error) {
	po, err := s.scanPurchaseOrderHeader(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT i.id, i.po_id, i.medicine_id, COALESCE(m.name, ''), i.quantity, i.unit_cents
		FROM po_items i
		LEFT JOIN medicines m ON m.id = i.medicine_id
		WHERE i.po_id = $1
		ORDER BY i.id ASC
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.POItem
		if err := rows.Scan(&item.ID, &item.PurchaseID, &item.MedicineID, &item.MedicineName, &item.Quantity, &item.UnitCents); err != nil {
			return nil, err
		}
		po.Items = append(po.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return po, nil
}

func (s *Store) scanPurchaseOrderHeader(ctx context.Context, id int64) (*domain.PurchaseOrder, error) {
	var po domain.PurchaseOrder
	var expected sql.NullTime
	var notes sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT p.id, p.po_number, p.supplier_id, COALESCE(sup.name, ''), p.status,
		       p.total_cents, p.order_date, p.expected_date, p.notes
		FROM purchase_orders p
		LEFT JOIN suppliers sup ON sup.id = p.supplier_id
		WHERE p.id = $1
	`, id).Scan(&po.ID, &po.PONumber, &po.SupplierID, &po.SupplierName, &po.Status,
		&po.TotalCents, &po.OrderDate, &expected, &notes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("purchase order %d: %w", id, store.ErrNotFound)
		}
		return nil, err
	}
	if expected.Valid {
		po.ExpectedDate = expected.Time.UTC().Format("2006-01-02")
	}
	po.Notes = notes.String
	return &po, nil
}

func (s *Store) ListPurchaseOrders(ctx context.Context, status string) ([]domain.PurchaseOrder, error) {
	conditions := "1=1"
	args := []any{}
	if status != "" {
		conditions = "p.status = $1"
		args = append(args, status)
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT p.id, p.po_number, p.supplier_id, COALESCE(sup.name, ''), p.status,
		       p.total_cents, p.order_date, p.expected_date, p.notes
		FROM purchase_orders p
		LEFT JOIN suppliers sup ON sup.id = p.supplier_id
		WHERE %s
		ORDER BY p.order_date DESC, p.id DESC
	`, conditions), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.PurchaseOrder
	for rows.Next() {
		var po domain.PurchaseOrder
		var expected sql.NullTime
		var notes sql.NullString
		if err := rows.Scan(&po.ID, &po.PONumber, &po.SupplierID, &po.SupplierName, &po.Status,
			&po.TotalCents, &po.OrderDate, &expected, &notes); err != nil {
			return nil, err
		}
		if expected.Valid {
			po.ExpectedDate = expected.Time.UTC().Format("2006-01-02")
		}
		po.Notes = notes.String
		orders = append(orders, po)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

// ReceivePurchaseOrder flips status and restocks every item in one
// transaction. Only pending orders can be received.
func (s *Store) ReceivePurchaseOrder(ctx context.Context, id int64, at time.Time) (*domain.PurchaseOrder, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var status string
	err = tx.QueryRowContext(ctx, `
		SELECT status FROM purchase_orders WHERE id = $1 FOR UPDATE
	`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("purchase order %d: %w", id, store.ErrNotFound)
		}
		return nil, err
	}
	if status != domain.POStatusPending {
		return nil, fmt.Errorf("purchase order %d is %s: %w", id, status, store.ErrInvalidInput)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE medicines m
		SET quantity = m.quantity + i.quantity, updated_at = $2
		FROM po_items i
		WHERE i.po_id = $1 AND i.medicine_id = m.id
	`, id, at); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE purchase_orders SET status = $2 WHERE id = $1
	`, id, domain.POStatusReceived); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetPurchaseOrderByID(ctx, id)
}

func (s *Store) CancelPurchaseOrder(ctx context.Context, id int64) (*domain.PurchaseOrder, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE purchase_orders SET status = $2 WHERE id = $1 AND status = $3
	`, id, domain.POStatusCancelled, domain.POStatusPending)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		po, err := s.scanPurchaseOrderHeader(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("purchase order %d is %s: %w", id, po.Status, store.ErrInvalidInput)
	}
	return s.GetPurchaseOrderByID(ctx, id)
}

func (s *Store) ApplyAdjustment(ctx context.Context, adj domain.InventoryAdjustment) (*domain.InventoryAdjustment, int, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var name string
	var qty int
	err = tx.QueryRowContext(ctx, `
		SELECT name, quantity FROM medicines WHERE id = $1 FOR UPDATE
	`, adj.MedicineID).Scan(&name, &qty)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, fmt.Errorf("medicine %d: %w", adj.MedicineID, store.ErrNotFound)
		}
		return nil, 0, err
	}

	switch adj.Type {
	case domain.AdjustmentAdd:
		qty += adj.Quantity
	case domain.AdjustmentSubtract:
		if qty < adj.Quantity {
			return nil, 0, fmt.Errorf("%s has %d in stock, cannot subtract %d: %w", name, qty, adj.Quantity, store.ErrInsufficientStock)
		}
		qty -= adj.Quantity
	default:
		return nil, 0, fmt.Errorf("adjustment type %q: %w", adj.Type, store.ErrInvalidInput)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE medicines SET quantity = $2, updated_at = now() WHERE id = $1
	`, adj.MedicineID, qty); err != nil {
		return nil, 0, err
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO inventory_adjustments (medicine_id, adjustment_type, quantity, reason, adjusted_by, adjusted_at)
		VALUES ($1,$2,$3,$4,$5,now())
		RETURNING id, adjusted_at
	`, adj.MedicineID, adj.Type, adj.Quantity, nullIfEmpty(adj.Reason), adj.AdjustedBy).Scan(&adj.ID, &adj.AdjustedAt)
	if err != nil {
		return nil, 0, err
	}
	adj.MedicineName = name

	if err := tx.Commit(); err != nil {
		return nil, 0, err
	}
	return &adj, qty, nil
}

func (s *Store) ListAdjustments(ctx context.Context, limit int) ([]domain.InventoryAdjustment, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.medicine_id, COALESCE(m.name, ''), a.adjustment_type,
		       a.quantity, a.reason, a.adjusted_by, a.adjusted_at
		FROM inventory_adjustments a
		LEFT JOIN medicines m ON m.id = a.medicine_id
		ORDER BY a.adjusted_at DESC, a.id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var adjustments []domain.InventoryAdjustment
	for rows.Next() {
		var adj domain.InventoryAdjustment
		var reason sql.NullString
		if err := rows.Scan(&adj.ID, &adj.MedicineID, &adj.MedicineName, &adj.Type,
			&adj.Quantity, &reason, &adj.AdjustedBy, &adj.AdjustedAt); err != nil {
			return nil, err
		}
		adj.Reason = reason.String
		adjustments = append(adjustments, adj)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return adjustments, nil
}

func (s *Store) CreateActivityLog(ctx context.Context, entry domain.ActivityLogEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activity_log (username, action, details, created_at)
		VALUES ($1,$2,$3,now())
	`, entry.Username, entry.Action, nullIfEmpty(entry.Details))
	return err
}

func (s *Store) ListActivityLog(ctx context.Context, limit int) ([]domain.ActivityLogEntry, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, action, details, created_at
		FROM activity_log
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.ActivityLogEntry
	for rows.Next() {
		var entry domain.ActivityLogEntry
		var details sql.NullString
		if err := rows.Scan(&entry.ID, &entry.Username, &entry.Action, &details, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.Details = details.String
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) CreateNotification(ctx context.Context, notification domain.Notification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (message, kind, read, created_at)
		VALUES ($1,$2,false,now())
	`, notification.Message, notification.Kind)
	return err
}

func (s *Store) ListNotifications(ctx context.Context, limit int) ([]domain.Notification, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, message, kind, read, created_at
		FROM notifications
		ORDER BY read ASC, created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.Message, &n.Kind, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return notifications, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE notifications SET read = true WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("notification %d: %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.UserAccount, error) {
	var u domain.UserAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, role, created_at
		FROM users
		WHERE username = $1
	`, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", username, store.ErrNotFound)
		}
		return nil, err
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) (*domain.UserAccount, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, password_hash, role, created_at)
		VALUES ($1,$2,$3,now())
		RETURNING id, created_at
	`, user.Username, user.PasswordHash, user.Role).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("username %s: %w", user.Username, store.ErrDuplicate)
		}
		return nil, err
	}
	return &user, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, password_hash, role, created_at
		FROM users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.UserAccount
	for rows.Next() {
		var u domain.UserAccount
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) RevenueByCategory(ctx context.Context, from time.Time, to time.Time) ([]domain.CategoryRevenue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(m.category, 'Uncategorized'), COALESCE(SUM(s.total_cents), 0)::bigint
		FROM sales s
		LEFT JOIN medicines m ON m.id = s.medicine_id
		WHERE s.sale_date >= $1 AND s.sale_date < $2
		GROUP BY COALESCE(m.category, 'Uncategorized')
		ORDER BY 2 DESC, 1 ASC
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CategoryRevenue
	for rows.Next() {
		var cr domain.CategoryRevenue
		if err := rows.Scan(&cr.Category, &cr.RevenueCents); err != nil {
			return nil, err
		}
		out = append(out, cr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) TopMedicines(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.TopMedicine, error) {
	if limit < 1 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.medicine_id, COALESCE(m.name, ''),
		       COALESCE(SUM(s.quantity), 0)::int, COALESCE(SUM(s.total_cents), 0)::bigint
		FROM sales s
		LEFT JOIN medicines m ON m.id = s.medicine_id
		WHERE s.sale_date >= $1 AND s.sale_date < $2
		GROUP BY s.medicine_id, m.name
		ORDER BY 3 DESC, 2 ASC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TopMedicine
	for rows.Next() {
		var tm domain.TopMedicine
		if err := rows.Scan(&tm.MedicineID, &tm.Name, &tm.UnitsSold, &tm.RevenueCents); err != nil {
			return nil, err
		}
		out = append(out, tm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) DailyRevenue(ctx context.Context, from time.Time, to time.Time) ([]domain.DailyRevenue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT to_char(s.sale_date AT TIME ZONE 'UTC', 'YYYY-MM-DD'),
		       COALESCE(SUM(s.total_cents), 0)::bigint
		FROM sales s
		WHERE s.sale_date >= $1 AND s.sale_date < $2
		GROUP BY 1
		ORDER BY 1 ASC
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DailyRevenue
	for rows.Next() {
		var dr domain.DailyRevenue
		if err := rows.Scan(&dr.Date, &dr.RevenueCents); err != nil {
			return nil, err
		}
		out = append(out, dr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) GetDashboardStats(ctx context.Context, now time.Time) (domain.DashboardStats, error) {
	var stats domain.DashboardStats
	today := now.UTC().Format("2006-01-02")
	in30 := now.UTC().AddDate(0, 0, 30).Format("2006-01-02")
	dayStart := time.Date(now.UTC().Year(), now.UTC().Month(), now.UTC().Day(), 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(now.UTC().Year(), now.UTC().Month(), 1, 0, 0, 0, 0, time.UTC)

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE quantity < reorder_level),
		       COUNT(*) FILTER (WHERE expiry_date IS NOT NULL AND expiry_date < $1::date),
		       COUNT(*) FILTER (WHERE expiry_date IS NOT NULL AND expiry_date >= $1::date AND expiry_date <= $2::date)
		FROM medicines
	`, today, in30).Scan(&stats.TotalMedicines, &stats.LowStockCount, &stats.ExpiredCount, &stats.ExpiringCount)
	if err != nil {
		return stats, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_cents) FILTER (WHERE sale_date >= $1), 0)::bigint,
		       COALESCE(SUM(total_cents) FILTER (WHERE sale_date >= $2), 0)::bigint
		FROM sales
	`, dayStart, monthStart).Scan(&stats.TodayCents, &stats.MonthCents)
	if err != nil {
		return stats, err
	}

	recent, err := s.ListRecentSales(ctx, 10)
	if err != nil {
		return stats, err
	}
	stats.RecentSales = recent
	return stats, nil
}

func uniqueMedicineIDs(lines []domain.Sale) []int64 {
	seen := make(map[int64]bool, len(lines))
	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		if !seen[line.MedicineID] {
			seen[line.MedicineID] = true
			ids = append(ids, line.MedicineID)
		}
	}
	return ids
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullInt64(val *int64) any {
	if val == nil {
		return nil
	}
	return *val
}

func nullDateString(val string) any {
	if val == "" {
		return nil
	}
	return val
}
