package repos

import (
	"log"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// SQLite is a single-writer store; one pooled connection keeps
	// writes serialized and makes :memory: databases usable.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	if err := seedIfEmpty(db); err != nil {
		return nil, err
	}
	if err := seedUsers(db); err != nil {
		return nil, err
	}

	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Products (stock is mutated only via reserve/release/upsert)
CREATE TABLE IF NOT EXISTS products(
  sku TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  unit_price NUMERIC NOT NULL CHECK (unit_price >= 0),
  stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
  active INTEGER NOT NULL DEFAULT 1,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_products_name ON products(LOWER(name));

-- Orders
CREATE TABLE IF NOT EXISTS orders(
  id TEXT PRIMARY KEY,
  customer_name TEXT NOT NULL,
  customer_email TEXT NOT NULL,
  customer_phone TEXT,
  address TEXT,
  total NUMERIC NOT NULL,
  payment_method TEXT NOT NULL,
  is_paid INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'PLACED',
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at);
CREATE INDEX IF NOT EXISTS idx_orders_email ON orders(customer_email);

CREATE TABLE IF NOT EXISTS order_items(
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  sku TEXT NOT NULL REFERENCES products(sku),
  qty INTEGER NOT NULL CHECK (qty >= 1),
  price NUMERIC NOT NULL,
  PRIMARY KEY (order_id, sku)
);

-- Technicians
CREATE TABLE IF NOT EXISTS technicians(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT NOT NULL,
  phone TEXT,
  specialty TEXT,
  availability TEXT NOT NULL DEFAULT 'AVAILABLE',
  rating REAL NOT NULL DEFAULT 0,
  rated_jobs INTEGER NOT NULL DEFAULT 0,
  completed_jobs INTEGER NOT NULL DEFAULT 0
);

-- Tickets (status/code_hash are mutated only via the guarded ops below)
CREATE TABLE IF NOT EXISTS tickets(
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL DEFAULT '',
  customer_name TEXT NOT NULL,
  customer_email TEXT NOT NULL,
  customer_phone TEXT,
  description TEXT,
  requested_at TEXT,
  status TEXT NOT NULL DEFAULT 'PENDING',
  technician_id TEXT NOT NULL DEFAULT '',
  code_hash TEXT NOT NULL DEFAULT '',
  verify_fails INTEGER NOT NULL DEFAULT 0,
  locked_until TEXT NOT NULL DEFAULT '',
  rating_eligible INTEGER NOT NULL DEFAULT 0,
  completed_at TEXT NOT NULL DEFAULT '',
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_tickets_status ON tickets(status);
CREATE INDEX IF NOT EXISTS idx_tickets_technician ON tickets(technician_id);

-- Users & Sessions (admin and technician logins)
CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL CHECK (role IN ('ADMIN','TECHNICIAN')),
  technician_id TEXT NOT NULL DEFAULT '',
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(LOWER(email));

CREATE TABLE IF NOT EXISTS sessions(
  id TEXT PRIMARY KEY,
  user_id TEXT NULL REFERENCES users(id) ON DELETE SET NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  last_seen TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);
`
	_, err := db.Exec(schema)
	return err
}

func seedIfEmpty(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM products`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	log.Println("[seed] inserting demo products/technicians")

	tx := db.MustBegin()
	tx.MustExec(`INSERT INTO products(sku,name,unit_price,stock) VALUES
	  ('inv-5kw','5kW Hybrid Inverter',1249.00,12),
	  ('bat-48v','48V 100Ah Battery Pack',899.50,8),
	  ('pan-450w','450W Solar Panel',189.99,40),
	  ('gen-3kva','3kVA Backup Generator',640.00,5)`)

	tx.MustExec(`INSERT INTO technicians(id,name,email,phone,specialty) VALUES
	  ('t-imani','Imani Okafor','imani@voltmart.test','+15550100','inverters'),
	  ('t-jorge','Jorge Reyes','jorge@voltmart.test','+15550101','solar'),
	  ('t-mei','Mei Tan','mei@voltmart.test','+15550102','generators')`)

	return tx.Commit()
}

// seedUsers ensures an admin and one login per seeded technician exist
// (idempotent; safe to run every start).
func seedUsers(db *sqlx.DB) error {
	type u struct {
		ID, Email, Name, Role, TechID, Hash string
	}
	mk := func(id, email, name, role, techID, raw string) u {
		h, _ := bcrypt.GenerateFromPassword([]byte(raw), 12)
		return u{ID: id, Email: email, Name: name, Role: role, TechID: techID, Hash: string(h)}
	}

	users := []u{
		mk("u-admin", "admin@voltmart.test", "Admin", "ADMIN", "", "Passw0rd!"),
		mk("u-imani", "imani@voltmart.test", "Imani Okafor", "TECHNICIAN", "t-imani", "Passw0rd!"),
		mk("u-jorge", "jorge@voltmart.test", "Jorge Reyes", "TECHNICIAN", "t-jorge", "Passw0rd!"),
		mk("u-mei", "mei@voltmart.test", "Mei Tan", "TECHNICIAN", "t-mei", "Passw0rd!"),
	}

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	for _, x := range users {
		if _, err := tx.Exec(`
			INSERT INTO users(id,email,name,password_hash,role,technician_id)
			VALUES(?,?,?,?,?,?)
			ON CONFLICT(email) DO NOTHING
		`, x.ID, x.Email, x.Name, x.Hash, x.Role, x.TechID); err != nil {
			return err
		}
	}

	return tx.Commit()
}
