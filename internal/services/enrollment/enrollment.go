// Package enrollment записывает пользователей на курсы и отписывает их.
// Обе операции идемпотентны: повторная запись или отписка ничего не меняют.
package enrollment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/course-access/internal/lib/sl"
	"github.com/magabrotheeeer/course-access/internal/models"
	"github.com/magabrotheeeer/course-access/internal/notify"
)

// Store определяет методы хранилища записей на курсы.
// AddEnrollment и RemoveEnrollment сообщают, изменилось ли множество курсов.
type Store interface {
	AddEnrollment(ctx context.Context, userUID, courseID string) (*models.Snapshot, bool, error)
	RemoveEnrollment(ctx context.Context, userUID, courseID string) (*models.Snapshot, bool, error)
	ListEnrolledCourses(ctx context.Context, userUID string) ([]*models.Course, error)
	ListEnrolledUsers(ctx context.Context, courseID string) ([]*models.Snapshot, error)
}

// Courses ищет курс по идентификатору.
type Courses interface {
	GetByID(ctx context.Context, id string) (*models.Course, error)
}

// SnapshotCache сбрасывает закэшированный снимок пользователя.
type SnapshotCache interface {
	Forget(ctx context.Context, userUID string, version int64)
}

// Service координирует запись на курсы.
type Service struct {
	store    Store
	courses  Courses
	cache    SnapshotCache
	notifier notify.Notifier
	log      *slog.Logger
}

// New создаёт Service.
func New(store Store, courses Courses, cache SnapshotCache, notifier notify.Notifier, log *slog.Logger) *Service {
	return &Service{
		store:    store,
		courses:  courses,
		cache:    cache,
		notifier: notifier,
		log:      log,
	}
}

// Enroll записывает пользователя на курс и возвращает обновлённый снимок.
// Если курс или пользователь не найдены, возвращается ошибка NotFound.
// Уведомление уходит только из того вызова, который добавил запись.
func (s *Service) Enroll(ctx context.Context, courseID, userUID string) (*models.Snapshot, error) {
	const op = "enrollment.Enroll"
	log := s.log.With(slog.String("op", op), sl.UserID(userUID), sl.CourseID(courseID))

	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	updated, added, err := s.store.AddEnrollment(ctx, userUID, course.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !added {
		log.Debug("user already enrolled")
		return updated, nil
	}
	s.cache.Forget(ctx, userUID, updated.Version)

	log.Info("user enrolled")
	s.notifier.Notify(userUID, notify.Event{Kind: notify.KindEnrollmentSuccess, CourseID: course.ID})
	return updated, nil
}

// Unenroll отписывает пользователя от курса и возвращает обновлённый снимок.
func (s *Service) Unenroll(ctx context.Context, courseID, userUID string) (*models.Snapshot, error) {
	const op = "enrollment.Unenroll"

	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	updated, removed, err := s.store.RemoveEnrollment(ctx, userUID, course.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !removed {
		return updated, nil
	}
	s.cache.Forget(ctx, userUID, updated.Version)

	s.log.Info("user unenrolled", slog.String("op", op), sl.UserID(userUID), sl.CourseID(course.ID))
	return updated, nil
}

// EnrolledCourses возвращает курсы, на которые записан пользователь.
func (s *Service) EnrolledCourses(ctx context.Context, userUID string) ([]*models.Course, error) {
	courses, err := s.store.ListEnrolledCourses(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("enrollment.EnrolledCourses: %w", err)
	}
	return courses, nil
}

// EnrolledUsers возвращает пользователей, записанных на курс.
func (s *Service) EnrolledUsers(ctx context.Context, courseID string) ([]*models.Snapshot, error) {
	const op = "enrollment.EnrolledUsers"

	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	users, err := s.store.ListEnrolledUsers(ctx, course.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}
