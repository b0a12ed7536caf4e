package repos

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"voltmart/internal/domain"
)

// TicketRepo owns every ticket status write. Each transition is a
// conditional UPDATE keyed on the expected current state, so concurrent
// callers serialize: exactly one wins, the rest see ErrInvalidTransition
// with the row unchanged.
type TicketRepo struct{ db *sqlx.DB }

func NewTicketRepo(db *sqlx.DB) *TicketRepo { return &TicketRepo{db: db} }

const ticketCols = `id, order_id, customer_name, customer_email,
  COALESCE(customer_phone,'') AS customer_phone, COALESCE(description,'') AS description,
  COALESCE(requested_at,'') AS requested_at, status, technician_id, code_hash,
  verify_fails, locked_until, rating_eligible, completed_at, created_at`

func (r *TicketRepo) Create(t domain.Ticket) error {
	_, err := r.db.Exec(`
		INSERT INTO tickets(id, order_id, customer_name, customer_email, customer_phone,
		  description, requested_at, status, code_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, t.ID, t.OrderID, t.CustomerName, t.CustomerEmail, t.CustomerPhone,
		t.Description, t.RequestedAt, domain.TicketPending, t.CodeHash)
	return err
}

func (r *TicketRepo) Get(id string) (domain.Ticket, error) {
	var t domain.Ticket
	err := r.db.Get(&t, `SELECT `+ticketCols+` FROM tickets WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Ticket{}, domain.ErrNotFound
	}
	return t, err
}

func (r *TicketRepo) ListLatest(limit int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []domain.Ticket
	err := r.db.Select(&out, `SELECT `+ticketCols+` FROM tickets ORDER BY datetime(created_at) DESC LIMIT ?`, limit)
	return out, err
}

func (r *TicketRepo) ListByTechnician(techID string) ([]domain.Ticket, error) {
	var out []domain.Ticket
	err := r.db.Select(&out, `SELECT `+ticketCols+` FROM tickets WHERE technician_id = ? ORDER BY datetime(created_at) DESC`, techID)
	return out, err
}

// Assign binds a technician from PENDING, or rebinds from ASSIGNED.
// fromTech is the technician observed by the caller (empty for a first
// assignment); it guards against a racing reassignment.
func (r *TicketRepo) Assign(id, fromTech, toTech string) error {
	res, err := r.db.Exec(`
		UPDATE tickets SET status = ?, technician_id = ?
		WHERE id = ? AND status IN (?, ?) AND technician_id = ?
	`, domain.TicketAssigned, toTech, id, domain.TicketPending, domain.TicketAssigned, fromTech)
	if err != nil {
		return err
	}
	return r.oneRowOr(res, id)
}

// Start is the technician's explicit acknowledgement of the job.
func (r *TicketRepo) Start(id, techID string) error {
	res, err := r.db.Exec(`
		UPDATE tickets SET status = ?
		WHERE id = ? AND status = ? AND technician_id = ?
	`, domain.TicketInProgress, id, domain.TicketAssigned, techID)
	if err != nil {
		return err
	}
	return r.oneRowOr(res, id)
}

// Cancel moves a PENDING or ASSIGNED ticket to CANCELLED. A ticket
// already IN_PROGRESS is refused: a technician believes the job is
// active. When the ticket came from an install order, the order is
// cancelled and its stock released in the same transaction.
func (r *TicketRepo) Cancel(id string) (domain.Ticket, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return domain.Ticket{}, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`
		UPDATE tickets SET status = ?
		WHERE id = ? AND status IN (?, ?)
	`, domain.TicketCancelled, id, domain.TicketPending, domain.TicketAssigned)
	if err != nil {
		return domain.Ticket{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Probe on the tx; the pool may hold no spare connection.
		var exists int
		if err := tx.Get(&exists, `SELECT COUNT(*) FROM tickets WHERE id = ?`, id); err != nil {
			return domain.Ticket{}, err
		}
		if exists == 0 {
			return domain.Ticket{}, domain.ErrNotFound
		}
		return domain.Ticket{}, domain.ErrInvalidTransition
	}

	var t domain.Ticket
	if err := tx.Get(&t, `SELECT `+ticketCols+` FROM tickets WHERE id = ?`, id); err != nil {
		return domain.Ticket{}, err
	}
	if t.OrderID != "" {
		// Already-terminal orders have released their stock; skip those.
		if _, err := cancelOrderTx(tx, t.OrderID); err != nil &&
			!errors.Is(err, domain.ErrInvalidTransition) && !errors.Is(err, domain.ErrNotFound) {
			return domain.Ticket{}, err
		}
	}
	return t, tx.Commit()
}

// Complete is called only by the verifier after a successful code check.
// It stamps completion, opens the rating window, and credits the
// technician's job count atomically.
func (r *TicketRepo) Complete(id, completedAt string) (domain.Ticket, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return domain.Ticket{}, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`
		UPDATE tickets
		SET status = ?, completed_at = ?, rating_eligible = 1, verify_fails = 0, locked_until = ''
		WHERE id = ? AND status = ?
	`, domain.TicketCompleted, completedAt, id, domain.TicketInProgress)
	if err != nil {
		return domain.Ticket{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Ticket{}, domain.ErrNotInProgress
	}

	var t domain.Ticket
	if err := tx.Get(&t, `SELECT `+ticketCols+` FROM tickets WHERE id = ?`, id); err != nil {
		return domain.Ticket{}, err
	}
	if t.TechnicianID != "" {
		if _, err := tx.Exec(`
			UPDATE technicians SET completed_jobs = completed_jobs + 1 WHERE id = ?
		`, t.TechnicianID); err != nil {
			return domain.Ticket{}, err
		}
	}
	return t, tx.Commit()
}

// RecordVerifyFail bumps the consecutive-failure counter; hitting the
// threshold arms the lockout and resets the counter.
func (r *TicketRepo) RecordVerifyFail(id string, threshold int, lockUntil string) error {
	_, err := r.db.Exec(`
		UPDATE tickets SET
		  locked_until = CASE WHEN verify_fails + 1 >= ? THEN ? ELSE locked_until END,
		  verify_fails = CASE WHEN verify_fails + 1 >= ? THEN 0 ELSE verify_fails + 1 END
		WHERE id = ?
	`, threshold, lockUntil, threshold, id)
	return err
}

// SetCodeHash issues the completion code exactly once; a second issue
// attempt is rejected so a disclosed code can never be rotated back in.
func (r *TicketRepo) SetCodeHash(id, hash string) error {
	res, err := r.db.Exec(`
		UPDATE tickets SET code_hash = ? WHERE id = ? AND code_hash = ''
	`, hash, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if err := r.missingOrConflict(id); errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return domain.ErrCodeAlreadyIssued
	}
	return nil
}

func (r *TicketRepo) oneRowOr(res sql.Result, id string) error {
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	return r.missingOrConflict(id)
}

func (r *TicketRepo) missingOrConflict(id string) error {
	var exists int
	if err := r.db.Get(&exists, `SELECT COUNT(*) FROM tickets WHERE id = ?`, id); err != nil {
		return err
	}
	if exists == 0 {
		return domain.ErrNotFound
	}
	return domain.ErrInvalidTransition
}
