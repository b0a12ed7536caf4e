package services

import (
	"errors"
	"strings"

	"github.com/google/uuid"

	"voltmart/internal/domain"
	"voltmart/internal/notify"
	"voltmart/internal/repos"
)

type CartLine struct {
	SKU string `json:"sku"`
	Qty int    `json:"qty"`
}

type PlaceRequest struct {
	Items         []CartLine
	Customer      domain.Customer
	PaymentMethod string
	// Installation books a linked service ticket for the order.
	Installation bool
	InstallNote  string
	RequestedAt  string
}

type PlaceResult struct {
	OrderID string
	Total   float64
	// Set only for installation orders.
	TicketID       string
	CompletionCode string
}

type OrderService struct {
	Products *repos.ProductRepo
	Inv      *repos.InventoryRepo
	Orders   *repos.OrderRepo
	Dispatch *DispatchService
	Notifier *notify.Notifier
}

func NewOrderService(products *repos.ProductRepo, inv *repos.InventoryRepo,
	orders *repos.OrderRepo, dispatch *DispatchService, n *notify.Notifier) *OrderService {
	return &OrderService{Products: products, Inv: inv, Orders: orders, Dispatch: dispatch, Notifier: n}
}

// Place validates the cart, reserves stock all-or-nothing, persists the
// order, books the install ticket when requested, and emits OrderCreated
// after everything is committed. No partial side effect survives an
// error return.
func (s *OrderService) Place(req PlaceRequest) (PlaceResult, error) {
	if len(req.Items) == 0 {
		return PlaceResult{}, errors.New("cart empty")
	}

	lines := make([]repos.Line, 0, len(req.Items))
	items := make([]domain.OrderItem, 0, len(req.Items))
	total := 0.0
	for _, it := range req.Items {
		if it.Qty < 1 || it.Qty > 50 {
			return PlaceResult{}, errors.New("quantity must be between 1 and 50")
		}
		p, err := s.Products.Get(it.SKU)
		if err != nil {
			return PlaceResult{}, errors.New("unknown product " + it.SKU)
		}
		lines = append(lines, repos.Line{SKU: it.SKU, Qty: it.Qty})
		items = append(items, domain.OrderItem{SKU: it.SKU, Qty: it.Qty, Price: p.UnitPrice})
		total += p.UnitPrice * float64(it.Qty)
	}

	if err := s.Inv.Reserve(lines); err != nil {
		return PlaceResult{}, err
	}

	o := domain.Order{
		ID:            uuid.NewString(),
		CustomerName:  req.Customer.Name,
		CustomerEmail: req.Customer.Email,
		CustomerPhone: req.Customer.Phone,
		Address:       req.Customer.Address,
		Total:         total,
		PaymentMethod: req.PaymentMethod,
		IsPaid:        paidUpFront(req.PaymentMethod),
		Status:        domain.OrderPlaced,
	}
	if err := s.Orders.Create(o, items); err != nil {
		// The order never existed; hand the reservation back.
		_ = s.Inv.Release(lines)
		return PlaceResult{}, err
	}

	res := PlaceResult{OrderID: o.ID, Total: total}
	if req.Installation {
		t, code, err := s.Dispatch.Create(req.Customer, req.InstallNote, req.RequestedAt, o.ID)
		if err != nil {
			_, _ = s.Orders.Cancel(o.ID)
			return PlaceResult{}, err
		}
		res.TicketID = t.ID
		res.CompletionCode = code
	}

	s.Notifier.Notify(notify.Event{
		Type: notify.EventOrderCreated,
		Payload: map[string]any{
			"order_id":       o.ID,
			"total":          total,
			"payment_method": o.PaymentMethod,
			"is_paid":        o.IsPaid,
			"items":          len(items),
		},
		Targets: customerTargets(req.Customer),
		Forward: true,
	})
	return res, nil
}

// paidUpFront derives is_paid from the chosen payment method. This is a
// recorded intent only; no settlement happens in this system.
func paidUpFront(method string) bool {
	switch strings.ToLower(strings.TrimSpace(method)) {
	case "cod", "cash", "cash_on_delivery":
		return false
	}
	return true
}

func (s *OrderService) Get(id string) (domain.Order, []domain.OrderItem, error) {
	return s.Orders.Get(id)
}

// Advance moves the order one fulfilment step (admin action).
func (s *OrderService) Advance(id string) (string, error) {
	o, _, err := s.Orders.Get(id)
	if err != nil {
		return "", err
	}
	return s.Orders.Advance(id, o.Status)
}

// Cancel releases every reserved unit in the same transaction that flips
// the status, then notifies the customer.
func (s *OrderService) Cancel(id string) error {
	o, _, err := s.Orders.Get(id)
	if err != nil {
		return err
	}
	if _, err := s.Orders.Cancel(id); err != nil {
		return err
	}
	s.Notifier.Notify(notify.Event{
		Type:    notify.EventOrderCancelled,
		Payload: map[string]any{"order_id": id, "total": o.Total},
		Targets: []notify.Target{
			{Channel: notify.ChannelEmail, Address: o.CustomerEmail},
			{Channel: notify.ChannelSMS, Address: o.CustomerPhone},
		},
		Forward: true,
	})
	return nil
}

func customerTargets(c domain.Customer) []notify.Target {
	return []notify.Target{
		{Channel: notify.ChannelEmail, Address: c.Email},
		{Channel: notify.ChannelSMS, Address: c.Phone},
	}
}
