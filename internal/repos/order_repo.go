package repos

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"voltmart/internal/domain"
)

type OrderRepo struct{ db *sqlx.DB }

func NewOrderRepo(db *sqlx.DB) *OrderRepo { return &OrderRepo{db: db} }

// Create inserts the order header and its line items in one transaction.
// Stock must already be reserved by the caller.
func (r *OrderRepo) Create(o domain.Order, items []domain.OrderItem) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
		INSERT INTO orders(id, customer_name, customer_email, customer_phone, address,
		  total, payment_method, is_paid, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, o.ID, o.CustomerName, o.CustomerEmail, o.CustomerPhone, o.Address,
		o.Total, o.PaymentMethod, o.IsPaid, o.Status); err != nil {
		return err
	}
	for _, it := range items {
		if _, err := tx.Exec(`
			INSERT INTO order_items(order_id, sku, qty, price) VALUES (?, ?, ?, ?)
		`, o.ID, it.SKU, it.Qty, it.Price); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *OrderRepo) Get(id string) (domain.Order, []domain.OrderItem, error) {
	var o domain.Order
	if err := r.db.Get(&o, `
		SELECT id, customer_name, customer_email, COALESCE(customer_phone,'') AS customer_phone,
		  COALESCE(address,'') AS address, total, payment_method, is_paid, status, created_at
		FROM orders WHERE id = ?
	`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, nil, domain.ErrNotFound
		}
		return domain.Order{}, nil, err
	}

	var items []domain.OrderItem
	if err := r.db.Select(&items, `
		SELECT order_id, sku, qty, price FROM order_items WHERE order_id = ? ORDER BY sku
	`, id); err != nil {
		return domain.Order{}, nil, err
	}
	return o, items, nil
}

func (r *OrderRepo) ListLatest(limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []domain.Order
	err := r.db.Select(&out, `
		SELECT id, customer_name, customer_email, COALESCE(customer_phone,'') AS customer_phone,
		  COALESCE(address,'') AS address, total, payment_method, is_paid, status, created_at
		FROM orders ORDER BY datetime(created_at) DESC LIMIT ?
	`, limit)
	return out, err
}

func (r *OrderRepo) ListByEmail(email string) ([]domain.Order, error) {
	var out []domain.Order
	err := r.db.Select(&out, `
		SELECT id, customer_name, customer_email, COALESCE(customer_phone,'') AS customer_phone,
		  COALESCE(address,'') AS address, total, payment_method, is_paid, status, created_at
		FROM orders WHERE LOWER(customer_email) = LOWER(?) ORDER BY datetime(created_at) DESC
	`, email)
	return out, err
}

// Advance moves the order one step along its fulfilment path. The
// status observed by the caller guards the update; a stale caller gets
// ErrInvalidTransition, never a silent coercion.
func (r *OrderRepo) Advance(id, from string) (string, error) {
	to := nextOrderStatus(from)
	if to == "" {
		return "", domain.ErrInvalidTransition
	}
	res, err := r.db.Exec(`UPDATE orders SET status = ? WHERE id = ? AND status = ?`, to, id, from)
	if err != nil {
		return "", err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", domain.ErrInvalidTransition
	}
	return to, nil
}

func nextOrderStatus(from string) string {
	switch from {
	case domain.OrderPlaced:
		return domain.OrderProcessing
	case domain.OrderProcessing:
		return domain.OrderOutForDelivery
	case domain.OrderOutForDelivery:
		return domain.OrderCompleted
	}
	return ""
}

// Cancel flips the order to CANCELLED and returns every reserved unit to
// stock in the same transaction. Only non-terminal, not-yet-shipped
// orders may be cancelled.
func (r *OrderRepo) Cancel(id string) ([]domain.OrderItem, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	items, err := cancelOrderTx(tx, id)
	if err != nil {
		return nil, err
	}
	return items, tx.Commit()
}

// cancelOrderTx is shared with ticket cancellation so a linked order and
// its stock release commit atomically with the ticket transition.
func cancelOrderTx(tx *sqlx.Tx, id string) ([]domain.OrderItem, error) {
	res, err := tx.Exec(`
		UPDATE orders SET status = ? WHERE id = ? AND status IN (?, ?)
	`, domain.OrderCancelled, id, domain.OrderPlaced, domain.OrderProcessing)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		if err := tx.Get(&exists, `SELECT COUNT(*) FROM orders WHERE id = ?`, id); err != nil {
			return nil, err
		}
		if exists == 0 {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrInvalidTransition
	}

	var items []domain.OrderItem
	if err := tx.Select(&items, `
		SELECT order_id, sku, qty, price FROM order_items WHERE order_id = ?
	`, id); err != nil {
		return nil, err
	}
	lines := make([]Line, len(items))
	for i, it := range items {
		lines[i] = Line{SKU: it.SKU, Qty: it.Qty}
	}
	if err := releaseAll(tx, lines); err != nil {
		return nil, err
	}
	return items, nil
}
