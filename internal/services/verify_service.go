package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"

	"voltmart/internal/domain"
	"voltmart/internal/notify"
	"voltmart/internal/repos"
)

const (
	verifyMaxFails = 5
	verifyLockout  = 15 * time.Minute
)

// VerifyService owns the completion code check. A successful
// verification is the only path that completes a ticket.
type VerifyService struct {
	Tickets  *repos.TicketRepo
	Techs    *repos.TechnicianRepo
	Notifier *notify.Notifier

	now func() time.Time // test hook
}

func NewVerifyService(tickets *repos.TicketRepo, techs *repos.TechnicianRepo, n *notify.Notifier) *VerifyService {
	return &VerifyService{Tickets: tickets, Techs: techs, Notifier: n, now: time.Now}
}

// newCompletionCode draws a 4-digit code from crypto/rand and returns it
// with its bcrypt hash. The code is not derivable from any ticket field.
func newCompletionCode() (code, hash string, err error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", "", err
	}
	code = fmt.Sprintf("%04d", n)
	h, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", "", err
	}
	return code, string(h), nil
}

// GenerateCode issues a code for a ticket that does not have one yet.
// Tickets booked through this system get their code at creation; this
// covers imported records. Reissuing is rejected so a code that leaked
// cannot be rotated quietly.
func (s *VerifyService) GenerateCode(ticketID string) (string, error) {
	code, hash, err := newCompletionCode()
	if err != nil {
		return "", err
	}
	if err := s.Tickets.SetCodeHash(ticketID, hash); err != nil {
		return "", err
	}
	return code, nil
}

// VerifyAndComplete checks the customer's code and, on a match, moves
// the ticket IN_PROGRESS -> COMPLETED. Failures are generic; five
// consecutive misses lock the ticket for fifteen minutes, since a
// 4-digit space does not survive unbounded guessing.
func (s *VerifyService) VerifyAndComplete(ticketID, code string) error {
	t, err := s.Tickets.Get(ticketID)
	if err != nil {
		return err
	}

	if t.LockedUntil != "" {
		if until, perr := time.Parse(time.RFC3339, t.LockedUntil); perr == nil && s.now().Before(until) {
			return domain.ErrVerificationLocked
		}
	}
	if t.Status != domain.TicketInProgress {
		return domain.ErrNotInProgress
	}
	if t.CodeHash == "" || bcrypt.CompareHashAndPassword([]byte(t.CodeHash), []byte(code)) != nil {
		lockUntil := s.now().Add(verifyLockout).UTC().Format(time.RFC3339)
		if ferr := s.Tickets.RecordVerifyFail(ticketID, verifyMaxFails, lockUntil); ferr != nil {
			return ferr
		}
		return domain.ErrCodeMismatch
	}

	done, err := s.Tickets.Complete(ticketID, s.now().UTC().Format(time.RFC3339))
	if err != nil {
		return err
	}

	targets := customerTargets(domain.Customer{Email: done.CustomerEmail, Phone: done.CustomerPhone})
	if done.TechnicianID != "" {
		if tech, terr := s.Techs.Get(done.TechnicianID); terr == nil {
			targets = append(targets, notify.Target{Channel: notify.ChannelEmail, Address: tech.Email})
		}
	}
	s.Notifier.Notify(notify.Event{
		Type: notify.EventTicketCompleted,
		Payload: map[string]any{
			"ticket_id":    done.ID,
			"completed_at": done.CompletedAt,
			"rating_open":  true,
		},
		Targets: targets,
		Forward: true,
	})
	return nil
}
