// Package user содержит административные операции над пользователями.
// Роль меняется только здесь; события биллинга роль не трогают.
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/course-access/internal/lib/apperr"
	"github.com/magabrotheeeer/course-access/internal/lib/sl"
	"github.com/magabrotheeeer/course-access/internal/models"
	"github.com/magabrotheeeer/course-access/internal/services/entitlement"
)

// Entitlements читает и изменяет права пользователя.
type Entitlements interface {
	Snapshot(ctx context.Context, userUID string) (*models.Snapshot, error)
	Update(ctx context.Context, userUID string, mutate entitlement.Mutation) (*models.Snapshot, bool, error)
}

// Registry создаёт пользователей.
type Registry interface {
	CreateUser(ctx context.Context, email string) (*models.Snapshot, error)
}

// Service реализует административные операции.
type Service struct {
	entitlements Entitlements
	registry     Registry
	log          *slog.Logger
}

// New создаёт Service.
func New(entitlements Entitlements, registry Registry, log *slog.Logger) *Service {
	return &Service{
		entitlements: entitlements,
		registry:     registry,
		log:          log,
	}
}

// Register создаёт пользователя со значениями прав по умолчанию.
func (s *Service) Register(ctx context.Context, email string) (*models.Snapshot, error) {
	created, err := s.registry.CreateUser(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("user.Register: %w", err)
	}
	s.log.Info("user registered", sl.UserID(created.UUID))
	return created, nil
}

// Get возвращает снимок прав пользователя.
func (s *Service) Get(ctx context.Context, userUID string) (*models.Snapshot, error) {
	snapshot, err := s.entitlements.Snapshot(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("user.Get: %w", err)
	}
	return snapshot, nil
}

// SetActivation включает или выключает активацию пользователя.
func (s *Service) SetActivation(ctx context.Context, userUID string, activated bool) (*models.Snapshot, error) {
	const op = "user.SetActivation"

	updated, changed, err := s.entitlements.Update(ctx, userUID, func(models.Snapshot) (models.EntitlementPatch, bool) {
		return models.EntitlementPatch{IsActivated: &activated}, true
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if changed {
		s.log.Info("user activation changed", sl.UserID(userUID), slog.Bool("activated", activated))
	}
	return updated, nil
}

// ChangeRole назначает пользователю роль.
func (s *Service) ChangeRole(ctx context.Context, userUID string, role models.Role) (*models.Snapshot, error) {
	const op = "user.ChangeRole"
	if !role.Valid() {
		return nil, fmt.Errorf("%s: %w: role %q", op, apperr.ErrInvalidInput, role)
	}

	updated, changed, err := s.entitlements.Update(ctx, userUID, func(models.Snapshot) (models.EntitlementPatch, bool) {
		return models.EntitlementPatch{Role: &role}, true
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if changed {
		s.log.Info("user role changed", sl.UserID(userUID), slog.String("role", string(role)))
	}
	return updated, nil
}
