package services_test

import (
	"errors"
	"testing"

	"voltmart/internal/domain"
	"voltmart/internal/notify"
)

// inProgressTicket books a ticket and walks it to IN_PROGRESS, returning
// the id and the customer's completion code.
func inProgressTicket(t *testing.T, e *testEnv) (string, string) {
	t.Helper()
	tk, code, err := e.dispatch.Create(buyer, "inverter install", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := e.dispatch.Assign(tk.ID, "t-imani"); err != nil {
		t.Fatal(err)
	}
	if err := e.dispatch.Start(tk.ID, "t-imani"); err != nil {
		t.Fatal(err)
	}
	return tk.ID, code
}

func wrongCode(code string) string {
	if code == "0000" {
		return "0001"
	}
	return "0000"
}

func TestVerifyHappyPath(t *testing.T) {
	e := newEnv(t)
	id, code := inProgressTicket(t, e)

	if err := e.verify.VerifyAndComplete(id, code); err != nil {
		t.Fatal(err)
	}
	got, _ := e.tickets.Get(id)
	if got.Status != domain.TicketCompleted || got.CompletedAt == "" {
		t.Fatalf("bad ticket after verify: %+v", got)
	}
	if !got.RatingEligible {
		t.Fatal("completed ticket must open the rating window")
	}

	// Not re-enterable, even with the correct code.
	if err := e.verify.VerifyAndComplete(id, code); !errors.Is(err, domain.ErrNotInProgress) {
		t.Fatalf("second verify: want ErrNotInProgress, got %v", err)
	}

	e.notifier.Wait()
	// Customer + technician emails, exactly one completion event each.
	if n := e.rec.byType(notify.EventTicketCompleted); n != 2 {
		t.Fatalf("want 2 TicketCompleted deliveries, got %d", n)
	}
}

func TestVerifyWrongCodeLeavesTicketOpen(t *testing.T) {
	e := newEnv(t)
	id, code := inProgressTicket(t, e)

	if err := e.verify.VerifyAndComplete(id, wrongCode(code)); !errors.Is(err, domain.ErrCodeMismatch) {
		t.Fatalf("want ErrCodeMismatch, got %v", err)
	}
	got, _ := e.tickets.Get(id)
	if got.Status != domain.TicketInProgress || got.CompletedAt != "" {
		t.Fatalf("wrong code mutated ticket: %+v", got)
	}

	// The right code still works after a miss.
	if err := e.verify.VerifyAndComplete(id, code); err != nil {
		t.Fatal(err)
	}
}

func TestVerifyNotInProgress(t *testing.T) {
	e := newEnv(t)
	tk, code, err := e.dispatch.Create(buyer, "pending job", "", "")
	if err != nil {
		t.Fatal(err)
	}
	// Correct code, wrong state.
	if err := e.verify.VerifyAndComplete(tk.ID, code); !errors.Is(err, domain.ErrNotInProgress) {
		t.Fatalf("want ErrNotInProgress, got %v", err)
	}
}

func TestVerifyLockoutAfterConsecutiveFailures(t *testing.T) {
	e := newEnv(t)
	id, code := inProgressTicket(t, e)

	for i := 0; i < 5; i++ {
		if err := e.verify.VerifyAndComplete(id, wrongCode(code)); !errors.Is(err, domain.ErrCodeMismatch) {
			t.Fatalf("attempt %d: want ErrCodeMismatch, got %v", i+1, err)
		}
	}
	// Locked now, even for the correct code.
	if err := e.verify.VerifyAndComplete(id, code); !errors.Is(err, domain.ErrVerificationLocked) {
		t.Fatalf("want ErrVerificationLocked, got %v", err)
	}
	got, _ := e.tickets.Get(id)
	if got.Status != domain.TicketInProgress {
		t.Fatalf("lockout mutated status: %s", got.Status)
	}
}

func TestGenerateCodeRejectsReissue(t *testing.T) {
	e := newEnv(t)
	tk, _, err := e.dispatch.Create(buyer, "has a code already", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.verify.GenerateCode(tk.ID); !errors.Is(err, domain.ErrCodeAlreadyIssued) {
		t.Fatalf("want ErrCodeAlreadyIssued, got %v", err)
	}
}

func TestRatingAfterCompletion(t *testing.T) {
	e := newEnv(t)
	id, code := inProgressTicket(t, e)
	if err := e.verify.VerifyAndComplete(id, code); err != nil {
		t.Fatal(err)
	}

	if err := e.techsSvc.SubmitRating(id, 5); err != nil {
		t.Fatal(err)
	}
	tech, _ := e.techs.Get("t-imani")
	if tech.Rating != 5 || tech.RatedJobs != 1 {
		t.Fatalf("bad rating state: %+v", tech)
	}

	// One rating per ticket.
	if err := e.techsSvc.SubmitRating(id, 1); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("second rating: want ErrInvalidTransition, got %v", err)
	}

	// Second job folds into a running average, not an overwrite.
	id2, code2 := inProgressTicket(t, e)
	if err := e.verify.VerifyAndComplete(id2, code2); err != nil {
		t.Fatal(err)
	}
	if err := e.techsSvc.SubmitRating(id2, 3); err != nil {
		t.Fatal(err)
	}
	tech, _ = e.techs.Get("t-imani")
	if tech.Rating != 4 || tech.RatedJobs != 2 {
		t.Fatalf("bad running average: %+v", tech)
	}
}

func TestRatingBeforeCompletionRejected(t *testing.T) {
	e := newEnv(t)
	id, _ := inProgressTicket(t, e)
	if err := e.techsSvc.SubmitRating(id, 5); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("want ErrInvalidTransition, got %v", err)
	}
}
