// Package course реализует каталог курсов: создание, поиск по слагу и
// разрешение идентификатора продукта магазина в курс.
package course

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/course-access/internal/cache"
	"github.com/magabrotheeeer/course-access/internal/lib/apperr"
	"github.com/magabrotheeeer/course-access/internal/lib/productid"
	"github.com/magabrotheeeer/course-access/internal/lib/sl"
	"github.com/magabrotheeeer/course-access/internal/models"
)

// Repository определяет методы хранилища курсов.
type Repository interface {
	CreateCourse(ctx context.Context, course models.Course, storeProductIDs []string) (*models.Course, error)
	FindCourseByID(ctx context.Context, id string) (*models.Course, error)
	FindCourseBySlug(ctx context.Context, slug string) (*models.Course, error)
	FindCourseByProductIdentifier(ctx context.Context, identifier string) (*models.Course, error)
	ListCourses(ctx context.Context, limit, offset int) ([]*models.Course, error)
	SaveProductAlias(ctx context.Context, storeProductID, identifier string) error
	FindProductAlias(ctx context.Context, storeProductID string) (string, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

// Service реализует бизнес-логику каталога курсов.
type Service struct {
	repo  Repository
	cache Cache
	log   *slog.Logger
	ttl   time.Duration
}

// New создаёт Service. Курсы по слагу кэшируются на ttl.
func New(repo Repository, cache Cache, log *slog.Logger, ttl time.Duration) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		log:   log,
		ttl:   ttl,
	}
}

// Create создаёт курс. Слаг выводится из названия, идентификатор продукта
// нормализуется той же функцией, что и при обработке вебхука. Курс и его
// алиасы сохраняются атомарно.
func (s *Service) Create(ctx context.Context, draft models.CourseDraft) (*models.Course, error) {
	const op = "course.Create"

	slug := productid.Slug(draft.Title)
	if slug == "" {
		return nil, fmt.Errorf("%s: %w: title %q produces empty slug", op, apperr.ErrInvalidInput, draft.Title)
	}
	identifier := productid.Normalize(draft.ProductIdentifier)
	if identifier == "" {
		return nil, fmt.Errorf("%s: %w: empty product identifier", op, apperr.ErrInvalidInput)
	}

	storeIDs := make([]string, 0, len(draft.StoreProductIDs))
	for _, storeID := range draft.StoreProductIDs {
		storeIDs = append(storeIDs, strings.TrimSpace(storeID))
	}

	created, err := s.repo.CreateCourse(ctx, models.Course{
		Title:             strings.TrimSpace(draft.Title),
		Slug:              slug,
		ProductIdentifier: identifier,
	}, storeIDs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("course created",
		sl.CourseID(created.ID), slog.String("slug", created.Slug), slog.String("product_identifier", identifier))
	return created, nil
}

// GetBySlug возвращает курс по слагу, сначала пытаясь прочитать его из кэша.
// Ошибки кэша не прерывают запрос.
func (s *Service) GetBySlug(ctx context.Context, slug string) (*models.Course, error) {
	const op = "course.GetBySlug"
	key := cache.CourseSlugKey(slug)

	var cached models.Course
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.log.Warn("course cache read failed", slog.String("slug", slug), sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	course, err := s.repo.FindCourseBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Set(ctx, key, course, s.ttl); err != nil {
		s.log.Warn("course cache write failed", slog.String("slug", slug), sl.Err(err))
	}
	return course, nil
}

// GetByID возвращает курс по идентификатору.
func (s *Service) GetByID(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindCourseByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("course.GetByID: %w", err)
	}
	return course, nil
}

// List возвращает страницу каталога.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*models.Course, error) {
	courses, err := s.repo.ListCourses(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("course.List: %w", err)
	}
	return courses, nil
}

// RegisterProductAlias связывает идентификатор продукта магазина с существующим курсом.
func (s *Service) RegisterProductAlias(ctx context.Context, storeProductID, productIdentifier string) error {
	const op = "course.RegisterProductAlias"

	storeProductID = strings.TrimSpace(storeProductID)
	if storeProductID == "" {
		return fmt.Errorf("%s: %w: empty store product id", op, apperr.ErrInvalidInput)
	}
	identifier := productid.Normalize(productIdentifier)
	if _, err := s.repo.FindCourseByProductIdentifier(ctx, identifier); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repo.SaveProductAlias(ctx, storeProductID, identifier); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// FindByProduct разрешает идентификатор продукта из события биллинга в курс:
// сначала через таблицу алиасов, затем как нормализованный идентификатор.
func (s *Service) FindByProduct(ctx context.Context, productID string) (*models.Course, error) {
	const op = "course.FindByProduct"

	identifier, err := s.repo.FindProductAlias(ctx, strings.TrimSpace(productID))
	switch {
	case err == nil:
	case errors.Is(err, apperr.ErrNotFound):
		identifier = productid.Normalize(productID)
	default:
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	course, err := s.repo.FindCourseByProductIdentifier(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return course, nil
}
