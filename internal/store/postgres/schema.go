package postgres

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/itsfahadusman/pharmacy-pos-advanced/internal/domain"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS suppliers (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		contact_person TEXT,
		phone TEXT,
		email TEXT,
		address TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS medicines (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		generic_name TEXT,
		brand TEXT NOT NULL,
		category TEXT,
		supplier_id BIGINT REFERENCES suppliers(id) ON DELETE SET NULL,
		quantity INT NOT NULL DEFAULT 0,
		reorder_level INT NOT NULL DEFAULT 10,
		cost_cents BIGINT NOT NULL DEFAULT 0,
		price_cents BIGINT NOT NULL,
		expiry_date DATE,
		barcode TEXT UNIQUE,
		batch_number TEXT,
		rack_location TEXT,
		description TEXT,
		requires_prescription BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT medicines_quantity_nonnegative CHECK (quantity >= 0)
	)`,
	`CREATE TABLE IF NOT EXISTS customers (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		phone TEXT,
		email TEXT,
		address TEXT,
		date_of_birth DATE,
		medical_history TEXT,
		allergies TEXT,
		loyalty_points INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS sales (
		id BIGSERIAL PRIMARY KEY,
		invoice_number TEXT NOT NULL,
		medicine_id BIGINT NOT NULL,
		customer_id BIGINT REFERENCES customers(id) ON DELETE SET NULL,
		quantity INT NOT NULL,
		unit_cents BIGINT NOT NULL,
		discount_percent DOUBLE PRECISION NOT NULL DEFAULT 0,
		tax_cents BIGINT NOT NULL DEFAULT 0,
		total_cents BIGINT NOT NULL,
		payment_method TEXT NOT NULL,
		cashier TEXT NOT NULL,
		sale_date TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS sales_sale_date_idx ON sales (sale_date)`,
	`CREATE INDEX IF NOT EXISTS sales_invoice_idx ON sales (invoice_number)`,
	`CREATE TABLE IF NOT EXISTS purchase_orders (
		id BIGSERIAL PRIMARY KEY,
		po_number TEXT NOT NULL,
		supplier_id BIGINT NOT NULL REFERENCES suppliers(id),
		status TEXT NOT NULL DEFAULT 'pending',
		total_cents BIGINT NOT NULL DEFAULT 0,
		order_date TIMESTAMPTZ NOT NULL DEFAULT now(),
		expected_date DATE,
		notes TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS po_items (
		id BIGSERIAL PRIMARY KEY,
		po_id BIGINT NOT NULL REFERENCES purchase_orders(id) ON DELETE CASCADE,
		medicine_id BIGINT NOT NULL,
		quantity INT NOT NULL,
		unit_cents BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS inventory_adjustments (
		id BIGSERIAL PRIMARY KEY,
		medicine_id BIGINT NOT NULL,
		adjustment_type TEXT NOT NULL,
		quantity INT NOT NULL,
		reason TEXT,
		adjusted_by TEXT NOT NULL,
		adjusted_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS activity_log (
		id BIGSERIAL PRIMARY KEY,
		username TEXT NOT NULL,
		action TEXT NOT NULL,
		details TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id BIGSERIAL PRIMARY KEY,
		message TEXT NOT NULL,
		kind TEXT NOT NULL,
		read BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Bootstrap creates the schema on first run and seeds the default admin
// account when the users table is empty. adminPassword comes from config;
// it is hashed here so the plaintext never touches the database.
func (s *Store) Bootstrap(ctx context.Context, adminPassword string) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, role, created_at)
		VALUES ($1,$2,$3,now())
		ON CONFLICT (username) DO NOTHING
	`, "admin", string(hash), domain.RoleAdmin)
	return err
}
