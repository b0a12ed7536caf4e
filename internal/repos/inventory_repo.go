package repos

import (
	"github.com/jmoiron/sqlx"

	"voltmart/internal/domain"
)

type InventoryRepo struct{ db *sqlx.DB }

func NewInventoryRepo(db *sqlx.DB) *InventoryRepo { return &InventoryRepo{db: db} }

type Line struct {
	SKU string
	Qty int
}

// Reserve atomically takes stock for every line or none of them.
// Each line is a conditional decrement guarded by the current stock;
// the first shortfall rolls the whole transaction back and returns a
// StockError for that SKU. Callers never read-then-write stock.
func (r *InventoryRepo) Reserve(lines []Line) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, l := range lines {
		if err := reserveOne(tx, l); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func reserveOne(tx *sqlx.Tx, l Line) error {
	res, err := tx.Exec(`
		UPDATE products
		SET stock = stock - ?, updated_at = CURRENT_TIMESTAMP
		WHERE sku = ? AND stock >= ?
	`, l.Qty, l.SKU, l.Qty)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return &domain.StockError{SKU: l.SKU, Qty: l.Qty}
	}
	return nil
}

// Release returns previously reserved stock (order/ticket cancellation).
func (r *InventoryRepo) Release(lines []Line) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := releaseAll(tx, lines); err != nil {
		return err
	}
	return tx.Commit()
}

// releaseAll is shared with the cancellation transactions so the stock
// return commits atomically with the status change.
func releaseAll(tx *sqlx.Tx, lines []Line) error {
	for _, l := range lines {
		if _, err := tx.Exec(`
			UPDATE products
			SET stock = stock + ?, updated_at = CURRENT_TIMESTAMP
			WHERE sku = ?
		`, l.Qty, l.SKU); err != nil {
			return err
		}
	}
	return nil
}

// Stock returns the current count for a SKU; sql.ErrNoRows if unknown.
func (r *InventoryRepo) Stock(sku string) (int, error) {
	var qty int
	err := r.db.Get(&qty, `SELECT stock FROM products WHERE sku = ?`, sku)
	if err != nil {
		return 0, err
	}
	return qty, nil
}

// UpsertStock sets the absolute count for a SKU (admin restock).
func (r *InventoryRepo) UpsertStock(sku, name string, price float64, qty int) error {
	_, err := r.db.Exec(`
		INSERT INTO products(sku, name, unit_price, stock)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(sku) DO UPDATE SET
		  stock = excluded.stock,
		  unit_price = excluded.unit_price,
		  updated_at = CURRENT_TIMESTAMP
	`, sku, name, price, qty)
	return err
}
