package services

import (
	"database/sql"
	"errors"

	"voltmart/internal/domain"
	"voltmart/internal/repos"
)

type InventoryService struct {
	Inv *repos.InventoryRepo
}

func NewInventoryService(inv *repos.InventoryRepo) *InventoryService {
	return &InventoryService{Inv: inv}
}

// CheckAvailability converts a stock count to IN_STOCK / LOW_STOCK / OUT_OF_STOCK.
func (s *InventoryService) CheckAvailability(sku string) (domain.Availability, error) {
	qty, err := s.Inv.Stock(sku)
	if err != nil {
		// Unknown SKU reads as empty shelf, not an error.
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Availability{Status: "OUT_OF_STOCK", Qty: 0}, nil
		}
		return domain.Availability{}, err
	}

	status := "OUT_OF_STOCK"
	switch {
	case qty >= 5:
		status = "IN_STOCK"
	case qty > 0:
		status = "LOW_STOCK"
	}
	return domain.Availability{Status: status, Qty: qty}, nil
}

// Restock sets the absolute count for a SKU (admin action).
func (s *InventoryService) Restock(sku, name string, price float64, qty int) error {
	return s.Inv.UpsertStock(sku, name, price, qty)
}
