package repos_test

import (
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"

	"voltmart/internal/domain"
	"voltmart/internal/repos"
)

func ticketdb(t *testing.T) (*repos.TicketRepo, *sqlx.DB) {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return repos.NewTicketRepo(db), db
}

func newTicket(t *testing.T, r *repos.TicketRepo, id string) {
	t.Helper()
	err := r.Create(domain.Ticket{
		ID:            id,
		CustomerName:  "Dana",
		CustomerEmail: "dana@example.test",
		Description:   "inverter install",
		CodeHash:      "$2a$10$notarealhashnotarealhashnotarealhash",
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestTicketTransitionLegality(t *testing.T) {
	r, _ := ticketdb(t)
	newTicket(t, r, "tk-1")

	// PENDING: start and complete are illegal.
	if err := r.Start("tk-1", "t-imani"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("start from PENDING: want ErrInvalidTransition, got %v", err)
	}
	if _, err := r.Complete("tk-1", "2026-01-02T10:00:00Z"); !errors.Is(err, domain.ErrNotInProgress) {
		t.Fatalf("complete from PENDING: want ErrNotInProgress, got %v", err)
	}

	// PENDING -> ASSIGNED.
	if err := r.Assign("tk-1", "", "t-imani"); err != nil {
		t.Fatal(err)
	}
	// ASSIGNED: complete still illegal.
	if _, err := r.Complete("tk-1", "2026-01-02T10:00:00Z"); !errors.Is(err, domain.ErrNotInProgress) {
		t.Fatalf("complete from ASSIGNED: want ErrNotInProgress, got %v", err)
	}
	// Only the assigned technician may start.
	if err := r.Start("tk-1", "t-jorge"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("start by wrong technician: want ErrInvalidTransition, got %v", err)
	}
	if err := r.Start("tk-1", "t-imani"); err != nil {
		t.Fatal(err)
	}

	// IN_PROGRESS: assignment and cancellation are illegal.
	if err := r.Assign("tk-1", "t-imani", "t-jorge"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("assign while IN_PROGRESS: want ErrInvalidTransition, got %v", err)
	}
	if _, err := r.Cancel("tk-1"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("cancel while IN_PROGRESS: want ErrInvalidTransition, got %v", err)
	}

	// IN_PROGRESS -> COMPLETED, exactly once.
	done, err := r.Complete("tk-1", "2026-01-02T10:00:00Z")
	if err != nil {
		t.Fatal(err)
	}
	if done.Status != domain.TicketCompleted || done.CompletedAt == "" {
		t.Fatalf("bad completed ticket: %+v", done)
	}
	if _, err := r.Complete("tk-1", "2026-01-02T11:00:00Z"); !errors.Is(err, domain.ErrNotInProgress) {
		t.Fatalf("double complete: want ErrNotInProgress, got %v", err)
	}

	got, err := r.Get("tk-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.CompletedAt != "2026-01-02T10:00:00Z" {
		t.Fatalf("completed_at overwritten: %q", got.CompletedAt)
	}
}

func TestTicketCompleteCreditsTechnician(t *testing.T) {
	r, db := ticketdb(t)
	newTicket(t, r, "tk-2")
	if err := r.Assign("tk-2", "", "t-imani"); err != nil {
		t.Fatal(err)
	}
	if err := r.Start("tk-2", "t-imani"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Complete("tk-2", "2026-01-02T10:00:00Z"); err != nil {
		t.Fatal(err)
	}

	tech, err := repos.NewTechnicianRepo(db).Get("t-imani")
	if err != nil {
		t.Fatal(err)
	}
	if tech.CompletedJobs != 1 {
		t.Fatalf("want 1 completed job, got %d", tech.CompletedJobs)
	}
}

func TestTicketCancelFromPendingAndAssigned(t *testing.T) {
	r, _ := ticketdb(t)
	newTicket(t, r, "tk-3")
	if _, err := r.Cancel("tk-3"); err != nil {
		t.Fatalf("cancel from PENDING: %v", err)
	}

	newTicket(t, r, "tk-4")
	if err := r.Assign("tk-4", "", "t-mei"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Cancel("tk-4"); err != nil {
		t.Fatalf("cancel from ASSIGNED: %v", err)
	}
	got, _ := r.Get("tk-4")
	if got.Status != domain.TicketCancelled {
		t.Fatalf("want CANCELLED, got %s", got.Status)
	}
}

func TestSetCodeHashOnlyOnce(t *testing.T) {
	r, _ := ticketdb(t)
	err := r.Create(domain.Ticket{
		ID: "tk-5", CustomerName: "Dana", CustomerEmail: "dana@example.test",
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := r.SetCodeHash("tk-5", "hash-one"); err != nil {
		t.Fatal(err)
	}
	if err := r.SetCodeHash("tk-5", "hash-two"); !errors.Is(err, domain.ErrCodeAlreadyIssued) {
		t.Fatalf("want ErrCodeAlreadyIssued, got %v", err)
	}
	if err := r.SetCodeHash("tk-missing", "h"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
