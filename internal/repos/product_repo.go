package repos

import (
	"github.com/jmoiron/sqlx"

	"voltmart/internal/domain"
)

type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

func (r *ProductRepo) Get(sku string) (domain.Product, error) {
	var p domain.Product
	err := r.db.Get(&p, `
		SELECT sku, name, unit_price, stock, active, created_at, COALESCE(updated_at,'') AS updated_at
		FROM products WHERE sku = ? AND active = 1
	`, sku)
	return p, err
}

func (r *ProductRepo) ListActive() ([]domain.Product, error) {
	var out []domain.Product
	err := r.db.Select(&out, `
		SELECT sku, name, unit_price, stock, active, created_at, COALESCE(updated_at,'') AS updated_at
		FROM products WHERE active = 1 ORDER BY name
	`)
	return out, err
}
