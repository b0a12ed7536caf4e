package repos

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"voltmart/internal/domain"
)

type TechnicianRepo struct{ db *sqlx.DB }

func NewTechnicianRepo(db *sqlx.DB) *TechnicianRepo { return &TechnicianRepo{db: db} }

func (r *TechnicianRepo) Get(id string) (domain.Technician, error) {
	var t domain.Technician
	err := r.db.Get(&t, `
		SELECT id, name, email, COALESCE(phone,'') AS phone, COALESCE(specialty,'') AS specialty,
		  availability, rating, rated_jobs, completed_jobs
		FROM technicians WHERE id = ?
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Technician{}, domain.ErrNotFound
	}
	return t, err
}

func (r *TechnicianRepo) ListAll() ([]domain.Technician, error) {
	var out []domain.Technician
	err := r.db.Select(&out, `
		SELECT id, name, email, COALESCE(phone,'') AS phone, COALESCE(specialty,'') AS specialty,
		  availability, rating, rated_jobs, completed_jobs
		FROM technicians ORDER BY name
	`)
	return out, err
}

func (r *TechnicianRepo) SetAvailability(id, availability string) error {
	res, err := r.db.Exec(`UPDATE technicians SET availability = ? WHERE id = ?`, availability, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ApplyRating folds one star rating into the technician's running
// average. The ticket's rating eligibility is consumed in the same
// transaction, so a ticket rates its technician at most once.
func (r *TechnicianRepo) ApplyRating(ticketID string, stars int) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var techID string
	err = tx.Get(&techID, `SELECT technician_id FROM tickets WHERE id = ?`, ticketID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}

	res, err := tx.Exec(`
		UPDATE tickets SET rating_eligible = 0
		WHERE id = ? AND rating_eligible = 1 AND status = ?
	`, ticketID, domain.TicketCompleted)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrInvalidTransition
	}

	// Weighted running average, never a destructive overwrite.
	if _, err := tx.Exec(`
		UPDATE technicians
		SET rating = (rating * rated_jobs + ?) / (rated_jobs + 1),
		    rated_jobs = rated_jobs + 1
		WHERE id = ?
	`, stars, techID); err != nil {
		return err
	}
	return tx.Commit()
}
