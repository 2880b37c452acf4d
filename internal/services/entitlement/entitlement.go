// Package entitlement читает и изменяет снимки прав пользователей.
// Изменения выполняются циклом чтение-патч-условная запись: конфликт версии
// повторяется ограниченное число раз, после чего возвращается ErrUnavailable.
package entitlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/course-access/internal/cache"
	"github.com/magabrotheeeer/course-access/internal/lib/apperr"
	"github.com/magabrotheeeer/course-access/internal/lib/sl"
	"github.com/magabrotheeeer/course-access/internal/models"
)

// Store определяет методы хранилища прав.
type Store interface {
	ValidUserID(id string) bool
	GetUser(ctx context.Context, userUID string) (*models.Snapshot, error)
	UpdateEntitlement(ctx context.Context, userUID string, expectedVersion int64,
		patch models.EntitlementPatch) (*models.Snapshot, error)
}

// Cache описывает методы для кэширования снимков. Запись версионная: после
// Fence снимок с меньшей версией в кэш уже не попадёт.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	SetVersioned(ctx context.Context, key string, version int64, value any, expiration time.Duration) (bool, error)
	Fence(ctx context.Context, key string, version int64, expiration time.Duration) error
}

// Mutation вычисляет патч по текущему снимку. false означает, что менять нечего.
type Mutation func(current models.Snapshot) (models.EntitlementPatch, bool)

// Service читает снимки через кэш и применяет изменения с проверкой версии.
type Service struct {
	store      Store
	cache      Cache
	log        *slog.Logger
	ttl        time.Duration
	maxRetries int
}

// New создаёт Service. maxRetries задаёт число повторов при конфликте версии.
func New(store Store, cache Cache, log *slog.Logger, ttl time.Duration, maxRetries int) *Service {
	return &Service{
		store:      store,
		cache:      cache,
		log:        log,
		ttl:        ttl,
		maxRetries: max(maxRetries, 0),
	}
}

// ValidUserID проверяет формат идентификатора по правилам хранилища.
func (s *Service) ValidUserID(id string) bool {
	return s.store.ValidUserID(id)
}

// Snapshot возвращает снимок прав пользователя. Ошибки кэша не прерывают чтение.
func (s *Service) Snapshot(ctx context.Context, userUID string) (*models.Snapshot, error) {
	const op = "entitlement.Snapshot"
	key := cache.EntitlementKey(userUID)

	var cached models.Snapshot
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.log.Warn("snapshot cache read failed", sl.UserID(userUID), sl.Err(err))
	}
	if found {
		if cached.EnrolledCourseIDs == nil {
			cached.EnrolledCourseIDs = models.CourseSet{}
		}
		return &cached, nil
	}

	snapshot, err := s.store.GetUser(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	stored, err := s.cache.SetVersioned(ctx, key, snapshot.Version, snapshot, s.ttl)
	if err != nil {
		s.log.Warn("snapshot cache write failed", sl.UserID(userUID), sl.Err(err))
	} else if !stored {
		s.log.Debug("newer snapshot version already fenced, cache write skipped",
			sl.UserID(userUID), slog.Int64("version", snapshot.Version))
	}
	return snapshot, nil
}

// Update применяет mutate к актуальному снимку из хранилища и записывает
// результат, если версия не изменилась. Возвращает итоговый снимок и признак
// того, что запись произошла.
func (s *Service) Update(ctx context.Context, userUID string, mutate Mutation) (*models.Snapshot, bool, error) {
	const op = "entitlement.Update"

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		current, err := s.store.GetUser(ctx, userUID)
		if err != nil {
			return nil, false, fmt.Errorf("%s: %w", op, err)
		}

		patch, ok := mutate(*current)
		if !ok || patch.ChangesNothing(*current) {
			return current, false, nil
		}

		updated, err := s.store.UpdateEntitlement(ctx, userUID, current.Version, patch)
		if errors.Is(err, apperr.ErrConflict) {
			s.log.Debug("entitlement version conflict, retrying",
				sl.UserID(userUID), slog.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			return nil, false, fmt.Errorf("%s: %w", op, err)
		}

		s.Forget(ctx, userUID, updated.Version)
		return updated, true, nil
	}

	return nil, false, fmt.Errorf("%s: %w: %d conflicting updates for user %s",
		op, apperr.ErrUnavailable, s.maxRetries+1, userUID)
}

// Forget удаляет снимок пользователя из кэша и запрещает повторно закэшировать
// версии старше version, прочитанные до изменения.
func (s *Service) Forget(ctx context.Context, userUID string, version int64) {
	if err := s.cache.Fence(ctx, cache.EntitlementKey(userUID), version, s.ttl); err != nil {
		s.log.Warn("snapshot cache invalidation failed", sl.UserID(userUID), sl.Err(err))
	}
}
