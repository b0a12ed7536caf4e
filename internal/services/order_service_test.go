package services_test

import (
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"

	"voltmart/internal/domain"
	"voltmart/internal/notify"
	"voltmart/internal/repos"
	"voltmart/internal/services"
)

// recorder stands in for the email channel and keeps every delivery.
type recorder struct {
	mu     sync.Mutex
	events []notify.Event
	addrs  []string
}

func (r *recorder) Name() string { return notify.ChannelEmail }

func (r *recorder) Send(addr string, ev notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	r.addrs = append(r.addrs, addr)
	return nil
}

func (r *recorder) byType(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Type == eventType {
			n++
		}
	}
	return n
}

type testEnv struct {
	db       *sqlx.DB
	inv      *repos.InventoryRepo
	orders   *repos.OrderRepo
	tickets  *repos.TicketRepo
	techs    *repos.TechnicianRepo
	rec      *recorder
	notifier *notify.Notifier
	order    *services.OrderService
	dispatch *services.DispatchService
	verify   *services.VerifyService
	techsSvc *services.TechnicianService
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	e := &testEnv{db: db, rec: &recorder{}}
	e.inv = repos.NewInventoryRepo(db)
	e.orders = repos.NewOrderRepo(db)
	e.tickets = repos.NewTicketRepo(db)
	e.techs = repos.NewTechnicianRepo(db)
	e.notifier = notify.New(nil, e.rec)
	e.dispatch = services.NewDispatchService(e.tickets, e.techs, e.notifier)
	e.order = services.NewOrderService(repos.NewProductRepo(db), e.inv, e.orders, e.dispatch, e.notifier)
	e.verify = services.NewVerifyService(e.tickets, e.techs, e.notifier)
	e.techsSvc = services.NewTechnicianService(e.techs)
	return e
}

var buyer = domain.Customer{
	Name:  "Dana Hale",
	Email: "dana@example.test",
	Phone: "+15557000",
}

func TestPlaceOrderHappyPath(t *testing.T) {
	e := newEnv(t)
	if err := e.inv.UpsertStock("pan-450w", "450W Solar Panel", 189.99, 10); err != nil {
		t.Fatal(err)
	}

	res, err := e.order.Place(services.PlaceRequest{
		Items:         []services.CartLine{{SKU: "pan-450w", Qty: 2}},
		Customer:      buyer,
		PaymentMethod: "card",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.OrderID == "" {
		t.Fatal("no order id")
	}
	if res.Total != 189.99*2 {
		t.Fatalf("bad total %v", res.Total)
	}

	o, items, err := e.orders.Get(res.OrderID)
	if err != nil {
		t.Fatal(err)
	}
	if o.Status != domain.OrderPlaced || !o.IsPaid {
		t.Fatalf("bad order: %+v", o)
	}
	if len(items) != 1 || items[0].Price != 189.99 {
		t.Fatalf("bad items: %+v", items)
	}

	qty, _ := e.inv.Stock("pan-450w")
	if qty != 8 {
		t.Fatalf("want stock 8, got %d", qty)
	}

	e.notifier.Wait()
	if n := e.rec.byType(notify.EventOrderCreated); n != 1 {
		t.Fatalf("want 1 OrderCreated delivery, got %d", n)
	}
}

func TestPlaceOrderCashOnDeliveryNotPaid(t *testing.T) {
	e := newEnv(t)
	res, err := e.order.Place(services.PlaceRequest{
		Items:         []services.CartLine{{SKU: "bat-48v", Qty: 1}},
		Customer:      buyer,
		PaymentMethod: "cash_on_delivery",
	})
	if err != nil {
		t.Fatal(err)
	}
	o, _, _ := e.orders.Get(res.OrderID)
	if o.IsPaid {
		t.Fatal("cash on delivery must not be recorded as paid")
	}
}

func TestPlaceOrderInsufficientStockIsClean(t *testing.T) {
	e := newEnv(t)
	if err := e.inv.UpsertStock("a-sku", "Plenty", 5.0, 10); err != nil {
		t.Fatal(err)
	}
	if err := e.inv.UpsertStock("b-sku", "Scarce", 5.0, 1); err != nil {
		t.Fatal(err)
	}

	_, err := e.order.Place(services.PlaceRequest{
		Items: []services.CartLine{
			{SKU: "a-sku", Qty: 2},
			{SKU: "b-sku", Qty: 2},
		},
		Customer:      buyer,
		PaymentMethod: "card",
	})
	if !domain.IsInsufficientStock(err) {
		t.Fatalf("want insufficient stock, got %v", err)
	}

	// Zero net stock change and no order row.
	if qty, _ := e.inv.Stock("a-sku"); qty != 10 {
		t.Fatalf("a-sku changed: %d", qty)
	}
	if qty, _ := e.inv.Stock("b-sku"); qty != 1 {
		t.Fatalf("b-sku changed: %d", qty)
	}
	ords, err := e.orders.ListByEmail(buyer.Email)
	if err != nil {
		t.Fatal(err)
	}
	if len(ords) != 0 {
		t.Fatalf("order persisted despite failed reservation: %+v", ords)
	}

	e.notifier.Wait()
	if n := e.rec.byType(notify.EventOrderCreated); n != 0 {
		t.Fatalf("no OrderCreated expected, got %d", n)
	}
}

func TestConcurrentOrdersLastUnit(t *testing.T) {
	e := newEnv(t)
	if err := e.inv.UpsertStock("x-sku", "Last One", 99.0, 1); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.order.Place(services.PlaceRequest{
				Items:         []services.CartLine{{SKU: "x-sku", Qty: 1}},
				Customer:      buyer,
				PaymentMethod: "card",
			})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		} else if !domain.IsInsufficientStock(err) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("want exactly 1 winning order, got %d", ok)
	}
	if qty, _ := e.inv.Stock("x-sku"); qty != 0 {
		t.Fatalf("want stock 0, got %d", qty)
	}
}

func TestCancelOrderReleasesStock(t *testing.T) {
	e := newEnv(t)
	if err := e.inv.UpsertStock("y-sku", "Widget", 5.0, 10); err != nil {
		t.Fatal(err)
	}

	res, err := e.order.Place(services.PlaceRequest{
		Items:         []services.CartLine{{SKU: "y-sku", Qty: 3}},
		Customer:      buyer,
		PaymentMethod: "card",
	})
	if err != nil {
		t.Fatal(err)
	}
	if qty, _ := e.inv.Stock("y-sku"); qty != 7 {
		t.Fatalf("want 7 after reserve, got %d", qty)
	}

	if err := e.order.Cancel(res.OrderID); err != nil {
		t.Fatal(err)
	}
	if qty, _ := e.inv.Stock("y-sku"); qty != 10 {
		t.Fatalf("want 10 after cancel, got %d", qty)
	}
	o, _, _ := e.orders.Get(res.OrderID)
	if o.Status != domain.OrderCancelled {
		t.Fatalf("want CANCELLED, got %s", o.Status)
	}

	// A cancelled order is terminal.
	if err := e.order.Cancel(res.OrderID); err == nil {
		t.Fatal("second cancel must fail")
	}
	if qty, _ := e.inv.Stock("y-sku"); qty != 10 {
		t.Fatalf("double release: %d", qty)
	}
}

func TestInstallationOrderBooksTicket(t *testing.T) {
	e := newEnv(t)
	res, err := e.order.Place(services.PlaceRequest{
		Items:         []services.CartLine{{SKU: "inv-5kw", Qty: 1}},
		Customer:      buyer,
		PaymentMethod: "card",
		Installation:  true,
		InstallNote:   "mount on garage wall",
		RequestedAt:   "2026-09-03T09:00",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.TicketID == "" {
		t.Fatal("installation order must book a ticket")
	}
	if len(res.CompletionCode) < 4 || len(res.CompletionCode) > 6 {
		t.Fatalf("bad completion code %q", res.CompletionCode)
	}

	tk, err := e.tickets.Get(res.TicketID)
	if err != nil {
		t.Fatal(err)
	}
	if tk.OrderID != res.OrderID || tk.Status != domain.TicketPending {
		t.Fatalf("bad ticket: %+v", tk)
	}
	if tk.CodeHash == "" || tk.CodeHash == res.CompletionCode {
		t.Fatal("completion code must be stored hashed")
	}
}

func TestCancelTicketCancelsLinkedOrder(t *testing.T) {
	e := newEnv(t)
	if err := e.inv.UpsertStock("z-sku", "Bundle", 20.0, 10); err != nil {
		t.Fatal(err)
	}
	res, err := e.order.Place(services.PlaceRequest{
		Items:         []services.CartLine{{SKU: "z-sku", Qty: 4}},
		Customer:      buyer,
		PaymentMethod: "card",
		Installation:  true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if qty, _ := e.inv.Stock("z-sku"); qty != 6 {
		t.Fatalf("want 6 after reserve, got %d", qty)
	}

	if err := e.dispatch.Cancel(res.TicketID); err != nil {
		t.Fatal(err)
	}

	// Same transition releases the linked order's stock.
	if qty, _ := e.inv.Stock("z-sku"); qty != 10 {
		t.Fatalf("want 10 after ticket cancel, got %d", qty)
	}
	o, _, _ := e.orders.Get(res.OrderID)
	if o.Status != domain.OrderCancelled {
		t.Fatalf("linked order not cancelled: %s", o.Status)
	}
}
