package service

import "github.com/Lixing-Zhang/food-ordering/backend/internal/models"

func requireUser(p *models.Principal) error {
	if p == nil || p.Email == "" {
		return ErrUnauthenticated
	}
	return nil
}

func requireWriter(p *models.Principal) error {
	if err := requireUser(p); err != nil {
		return err
	}
	if p.Banned {
		return ErrBanned
	}
	return nil
}

func requireAdmin(p *models.Principal) error {
	if err := requireWriter(p); err != nil {
		return err
	}
	if !p.Admin {
		return ErrAdminOnly
	}
	return nil
}
