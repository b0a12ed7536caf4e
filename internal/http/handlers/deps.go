package handlers

import (
	"github.com/jmoiron/sqlx"

	"voltmart/internal/notify"
	"voltmart/internal/repos"
	"voltmart/internal/services"
)

type Deps struct {
	ProductHandler    *ProductHandler
	InventoryHandler  *InventoryHandler
	OrderHandler      *OrderHandler
	TicketHandler     *TicketHandler
	AdminHandler      *AdminHandler
	TechnicianHandler *TechnicianHandler
}

func NewDeps(db *sqlx.DB, notifier *notify.Notifier, auth *services.AuthService) *Deps {
	prodRepo := repos.NewProductRepo(db)
	invRepo := repos.NewInventoryRepo(db)
	orderRepo := repos.NewOrderRepo(db)
	ticketRepo := repos.NewTicketRepo(db)
	techRepo := repos.NewTechnicianRepo(db)

	invSvc := services.NewInventoryService(invRepo)
	dispatchSvc := services.NewDispatchService(ticketRepo, techRepo, notifier)
	orderSvc := services.NewOrderService(prodRepo, invRepo, orderRepo, dispatchSvc, notifier)
	verifySvc := services.NewVerifyService(ticketRepo, techRepo, notifier)
	techSvc := services.NewTechnicianService(techRepo)

	return &Deps{
		ProductHandler:    &ProductHandler{Products: prodRepo},
		InventoryHandler:  &InventoryHandler{Inv: invSvc},
		OrderHandler:      &OrderHandler{Order: orderSvc},
		TicketHandler:     &TicketHandler{Dispatch: dispatchSvc, Verify: verifySvc, Techs: techSvc},
		AdminHandler:      &AdminHandler{Order: orderSvc, Dispatch: dispatchSvc, Inv: invSvc, Techs: techSvc, Verify: verifySvc},
		TechnicianHandler: &TechnicianHandler{Dispatch: dispatchSvc, Verify: verifySvc},
	}
}
