package services

import (
	"errors"

	"github.com/google/uuid"

	"voltmart/internal/domain"
	"voltmart/internal/notify"
	"voltmart/internal/repos"
)

// DispatchService drives the ticket lifecycle up to IN_PROGRESS and
// handles cancellation. Completion belongs to the VerifyService alone.
type DispatchService struct {
	Tickets  *repos.TicketRepo
	Techs    *repos.TechnicianRepo
	Notifier *notify.Notifier
}

func NewDispatchService(tickets *repos.TicketRepo, techs *repos.TechnicianRepo, n *notify.Notifier) *DispatchService {
	return &DispatchService{Tickets: tickets, Techs: techs, Notifier: n}
}

// Create books a ticket and issues its completion code. The plaintext
// code is returned once and sent to the customer; only the hash is
// stored. orderID links install tickets to their order, "" otherwise.
func (s *DispatchService) Create(c domain.Customer, description, requestedAt, orderID string) (domain.Ticket, string, error) {
	code, hash, err := newCompletionCode()
	if err != nil {
		return domain.Ticket{}, "", err
	}
	t := domain.Ticket{
		ID:            uuid.NewString(),
		OrderID:       orderID,
		CustomerName:  c.Name,
		CustomerEmail: c.Email,
		CustomerPhone: c.Phone,
		Description:   description,
		RequestedAt:   requestedAt,
		Status:        domain.TicketPending,
		CodeHash:      hash,
	}
	if err := s.Tickets.Create(t); err != nil {
		return domain.Ticket{}, "", err
	}

	// The code travels only to the customer; this event is never
	// forwarded to the automation webhook.
	s.Notifier.Notify(notify.Event{
		Type: notify.EventTicketCreated,
		Payload: map[string]any{
			"ticket_id":       t.ID,
			"requested_at":    requestedAt,
			"completion_code": code,
		},
		Targets: customerTargets(c),
	})
	return t, code, nil
}

// Assign binds a technician to a PENDING ticket, or rebinds an ASSIGNED
// one. Reassigning the same technician is an idempotent no-op and does
// not notify anyone a second time. A real reassignment notifies the
// outgoing technician as well as the incoming one.
func (s *DispatchService) Assign(ticketID, techID string) error {
	t, err := s.Tickets.Get(ticketID)
	if err != nil {
		return err
	}
	tech, err := s.Techs.Get(techID)
	if err != nil {
		return err
	}
	if t.Status == domain.TicketAssigned && t.TechnicianID == techID {
		return nil
	}

	if err := s.Tickets.Assign(ticketID, t.TechnicianID, techID); err != nil {
		return err
	}

	payload := map[string]any{
		"ticket_id":  ticketID,
		"technician": tech.Name,
	}
	targets := append(customerTargets(domain.Customer{Email: t.CustomerEmail, Phone: t.CustomerPhone}),
		notify.Target{Channel: notify.ChannelEmail, Address: tech.Email},
		notify.Target{Channel: notify.ChannelSMS, Address: tech.Phone},
	)
	if t.TechnicianID != "" {
		payload["previous_technician_id"] = t.TechnicianID
		if prev, err := s.Techs.Get(t.TechnicianID); err == nil {
			targets = append(targets, notify.Target{Channel: notify.ChannelEmail, Address: prev.Email})
		}
	}
	s.Notifier.Notify(notify.Event{
		Type:    notify.EventTicketAssigned,
		Payload: payload,
		Targets: targets,
		Forward: true,
	})
	return nil
}

// Start records the technician's explicit acknowledgement that work has
// begun. Only the assigned technician may start the job.
func (s *DispatchService) Start(ticketID, techID string) error {
	if techID == "" {
		return errors.New("missing technician")
	}
	return s.Tickets.Start(ticketID, techID)
}

// Cancel aborts a not-yet-started ticket; a linked install order is
// cancelled and its stock released in the same transaction.
func (s *DispatchService) Cancel(ticketID string) error {
	t, err := s.Tickets.Cancel(ticketID)
	if err != nil {
		return err
	}

	targets := customerTargets(domain.Customer{Email: t.CustomerEmail, Phone: t.CustomerPhone})
	if t.TechnicianID != "" {
		if tech, err := s.Techs.Get(t.TechnicianID); err == nil {
			targets = append(targets, notify.Target{Channel: notify.ChannelEmail, Address: tech.Email})
		}
	}
	s.Notifier.Notify(notify.Event{
		Type:    notify.EventTicketCancelled,
		Payload: map[string]any{"ticket_id": ticketID, "order_id": t.OrderID},
		Targets: targets,
		Forward: true,
	})
	return nil
}

func (s *DispatchService) Get(id string) (domain.Ticket, error) { return s.Tickets.Get(id) }
