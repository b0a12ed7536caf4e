package services

import (
	"voltmart/internal/domain"
	"voltmart/internal/repos"
)

type TechnicianService struct {
	Techs *repos.TechnicianRepo
}

func NewTechnicianService(techs *repos.TechnicianRepo) *TechnicianService {
	return &TechnicianService{Techs: techs}
}

func (s *TechnicianService) List() ([]domain.Technician, error) { return s.Techs.ListAll() }

func (s *TechnicianService) SetAvailability(id, availability string) error {
	return s.Techs.SetAvailability(id, availability)
}

// SubmitRating folds a customer's star rating into the technician's
// running average. Allowed once, only after verified completion.
func (s *TechnicianService) SubmitRating(ticketID string, stars int) error {
	return s.Techs.ApplyRating(ticketID, stars)
}
