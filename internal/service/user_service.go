package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Lixing-Zhang/food-ordering/backend/internal/models"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/repository"
)

// UserService manages the admin and banned flags of storefront accounts
type UserService struct {
	repo repository.UserRepository
	log  *slog.Logger
}

// NewUserService creates a new user service
func NewUserService(repo repository.UserRepository, log *slog.Logger) *UserService {
	return &UserService{repo: repo, log: log}
}

// List returns all users
func (s *UserService) List(ctx context.Context, principal *models.Principal) ([]models.User, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// SetAdmin grants or revokes admin rights
func (s *UserService) SetAdmin(ctx context.Context, principal *models.Principal, userID string, admin bool) (*models.User, error) {
	return s.setFlag(ctx, principal, userID, "admin", admin, s.repo.SetAdmin)
}

// SetBanned bans or reinstates a user
func (s *UserService) SetBanned(ctx context.Context, principal *models.Principal, userID string, banned bool) (*models.User, error) {
	return s.setFlag(ctx, principal, userID, "banned", banned, s.repo.SetBanned)
}

func (s *UserService) setFlag(
	ctx context.Context,
	principal *models.Principal,
	userID, flag string,
	value bool,
	set func(ctx context.Context, id string, v bool) error,
) (*models.User, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}
	if userID == principal.UserID {
		return nil, ErrSelfAdminChange
	}

	if err := set(ctx, userID, value); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("set %s flag: %w", flag, err)
	}

	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("reload user: %w", err)
	}

	s.log.InfoContext(ctx, "user flag changed", "user_id", userID, "flag", flag, "value", value, "by", principal.Email)
	return u, nil
}
