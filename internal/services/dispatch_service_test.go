package services_test

import (
	"errors"
	"testing"

	"voltmart/internal/domain"
	"voltmart/internal/notify"
)

func TestAssignNotifiesCustomerAndTechnician(t *testing.T) {
	e := newEnv(t)
	tk, _, err := e.dispatch.Create(buyer, "panel install", "2026-09-03T09:00", "")
	if err != nil {
		t.Fatal(err)
	}

	if err := e.dispatch.Assign(tk.ID, "t-imani"); err != nil {
		t.Fatal(err)
	}
	got, _ := e.tickets.Get(tk.ID)
	if got.Status != domain.TicketAssigned || got.TechnicianID != "t-imani" {
		t.Fatalf("bad ticket after assign: %+v", got)
	}

	e.notifier.Wait()
	// Customer email + technician email on the recorded channel.
	if n := e.rec.byType(notify.EventTicketAssigned); n != 2 {
		t.Fatalf("want 2 TicketAssigned deliveries, got %d", n)
	}
}

func TestReassignSameTechnicianIsNoOp(t *testing.T) {
	e := newEnv(t)
	tk, _, err := e.dispatch.Create(buyer, "battery swap", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := e.dispatch.Assign(tk.ID, "t-jorge"); err != nil {
		t.Fatal(err)
	}
	e.notifier.Wait()
	before := e.rec.byType(notify.EventTicketAssigned)

	// Same technician again: no transition, no second notification.
	if err := e.dispatch.Assign(tk.ID, "t-jorge"); err != nil {
		t.Fatal(err)
	}
	e.notifier.Wait()
	if after := e.rec.byType(notify.EventTicketAssigned); after != before {
		t.Fatalf("idempotent reassign notified again: %d -> %d", before, after)
	}
}

func TestReassignNotifiesOutgoingTechnician(t *testing.T) {
	e := newEnv(t)
	tk, _, err := e.dispatch.Create(buyer, "generator service", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := e.dispatch.Assign(tk.ID, "t-jorge"); err != nil {
		t.Fatal(err)
	}
	e.notifier.Wait()
	before := e.rec.byType(notify.EventTicketAssigned)

	if err := e.dispatch.Assign(tk.ID, "t-mei"); err != nil {
		t.Fatal(err)
	}
	got, _ := e.tickets.Get(tk.ID)
	if got.TechnicianID != "t-mei" {
		t.Fatalf("want t-mei, got %s", got.TechnicianID)
	}

	e.notifier.Wait()
	// Customer + incoming + outgoing technician.
	if after := e.rec.byType(notify.EventTicketAssigned); after-before != 3 {
		t.Fatalf("want 3 reassign deliveries, got %d", after-before)
	}
}

func TestAssignUnknownTechnicianRejected(t *testing.T) {
	e := newEnv(t)
	tk, _, err := e.dispatch.Create(buyer, "misc", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := e.dispatch.Assign(tk.ID, "t-ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	got, _ := e.tickets.Get(tk.ID)
	if got.Status != domain.TicketPending {
		t.Fatalf("ticket moved on failed assign: %s", got.Status)
	}
}

func TestStartRequiresAssignedTechnician(t *testing.T) {
	e := newEnv(t)
	tk, _, err := e.dispatch.Create(buyer, "misc", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := e.dispatch.Assign(tk.ID, "t-imani"); err != nil {
		t.Fatal(err)
	}
	if err := e.dispatch.Start(tk.ID, "t-jorge"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("wrong technician start: want ErrInvalidTransition, got %v", err)
	}
	if err := e.dispatch.Start(tk.ID, "t-imani"); err != nil {
		t.Fatal(err)
	}
	got, _ := e.tickets.Get(tk.ID)
	if got.Status != domain.TicketInProgress {
		t.Fatalf("want IN_PROGRESS, got %s", got.Status)
	}
}
