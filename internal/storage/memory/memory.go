// Package memory содержит потокобезопасное хранилище прав в памяти с теми же
// гарантиями, что и PostgreSQL-реализация: условное обновление по версии,
// идемпотентная запись на курс и ошибки из таксономии apperr.
package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/course-access/internal/lib/apperr"
	"github.com/magabrotheeeer/course-access/internal/models"
)

// Storage хранит пользователей, курсы, алиасы продуктов и содержимое курсов в памяти.
type Storage struct {
	mu       sync.RWMutex
	users    map[string]models.Snapshot
	emails   map[string]string
	courses  map[string]models.Course
	enrolled map[string]map[string]time.Time // courseID -> userUID -> время записи
	aliases  map[string]string
	sections map[string]models.Section
	lessons  map[string]models.Lesson
	progress map[string]map[string]models.LessonProgress // userUID -> lessonID -> отметка
	now      func() time.Time
}

// New создаёт пустое хранилище.
func New() *Storage {
	return &Storage{
		users:    make(map[string]models.Snapshot),
		emails:   make(map[string]string),
		courses:  make(map[string]models.Course),
		enrolled: make(map[string]map[string]time.Time),
		aliases:  make(map[string]string),
		sections: make(map[string]models.Section),
		lessons:  make(map[string]models.Lesson),
		progress: make(map[string]map[string]models.LessonProgress),
		now:      time.Now,
	}
}

// ValidUserID проверяет формат идентификатора пользователя.
func (s *Storage) ValidUserID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// PutUser сохраняет снимок целиком. Используется для подготовки данных в тестах.
func (s *Storage) PutUser(snapshot models.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snapshot.EnrolledCourseIDs == nil {
		snapshot.EnrolledCourseIDs = models.CourseSet{}
	}
	s.users[snapshot.UUID] = snapshot
	s.emails[snapshot.Email] = snapshot.UUID
	for id := range snapshot.EnrolledCourseIDs {
		s.enrollLocked(snapshot.UUID, id)
	}
}

// CreateUser сохраняет нового пользователя со значениями по умолчанию.
func (s *Storage) CreateUser(ctx context.Context, email string) (*models.Snapshot, error) {
	const op = "memory.CreateUser"
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, apperr.FromContext(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.emails[email]; ok {
		return nil, fmt.Errorf("%s: %w: email %q", op, apperr.ErrConflict, email)
	}
	snapshot := models.NewSnapshot(uuid.NewString(), email)
	s.users[snapshot.UUID] = snapshot
	s.emails[email] = snapshot.UUID
	return copySnapshot(snapshot), nil
}

// GetUser возвращает копию снимка прав пользователя.
func (s *Storage) GetUser(ctx context.Context, userUID string) (*models.Snapshot, error) {
	const op = "memory.GetUser"
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, apperr.FromContext(err))
	}
	if !s.ValidUserID(userUID) {
		return nil, fmt.Errorf("%s: %w: user id %q", op, apperr.ErrInvalidInput, userUID)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot, ok := s.users[userUID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, apperr.NotFound("user", userUID))
	}
	return copySnapshot(snapshot), nil
}

// GetUserByEmail возвращает снимок пользователя по электронной почте.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.Snapshot, error) {
	const op = "memory.GetUserByEmail"
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, apperr.FromContext(err))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	uid, ok := s.emails[email]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, apperr.NotFound("user", email))
	}
	return copySnapshot(s.users[uid]), nil
}

// UpdateEntitlement применяет patch при совпадении версии.
func (s *Storage) UpdateEntitlement(ctx context.Context, userUID string, expectedVersion int64,
	patch models.EntitlementPatch) (*models.Snapshot, error) {
	const op = "memory.UpdateEntitlement"
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, apperr.FromContext(err))
	}
	if !s.ValidUserID(userUID) {
		return nil, fmt.Errorf("%s: %w: user id %q", op, apperr.ErrInvalidInput, userUID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.users[userUID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, apperr.NotFound("user", userUID))
	}
	if current.Version != expectedVersion {
		return nil, fmt.Errorf("%s: %w: version %d is stale", op, apperr.ErrConflict, expectedVersion)
	}

	next := patch.Apply(current)
	if next.IsPremium && next.SubscriptionStatus != models.StatusActive && next.SubscriptionStatus != models.StatusCancelled {
		return nil, fmt.Errorf("%s: %w: premium requires active or cancelled status", op, apperr.ErrInvalidInput)
	}
	next.Version++
	s.users[userUID] = next
	return copySnapshot(next), nil
}

// FindSubscriptionsExpiringBetween возвращает премиум-пользователей с окончанием подписки в [from, to).
func (s *Storage) FindSubscriptionsExpiringBetween(ctx context.Context, from, to time.Time) ([]*models.Snapshot, error) {
	const op = "memory.FindSubscriptionsExpiringBetween"
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, apperr.FromContext(err))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*models.Snapshot
	for _, u := range s.users {
		if !u.IsPremium || u.SubscriptionExpire == nil {
			continue
		}
		if exp := *u.SubscriptionExpire; !exp.Before(from) && exp.Before(to) {
			result = append(result, copySnapshot(u))
		}
	}
	slices.SortFunc(result, func(a, b *models.Snapshot) int {
		return a.SubscriptionExpire.Compare(*b.SubscriptionExpire)
	})
	return result, nil
}

// AddEnrollment записывает пользователя на курс. Повторная запись ничего не меняет
// и возвращает added == false.
func (s *Storage) AddEnrollment(ctx context.Context, userUID, courseID string) (*models.Snapshot, bool, error) {
	const op = "memory.AddEnrollment"
	return s.changeEnrollment(ctx, op, userUID, courseID, true)
}

// RemoveEnrollment отписывает пользователя от курса. Отсутствие записи не ошибка.
func (s *Storage) RemoveEnrollment(ctx context.Context, userUID, courseID string) (*models.Snapshot, bool, error) {
	const op = "memory.RemoveEnrollment"
	return s.changeEnrollment(ctx, op, userUID, courseID, false)
}

func (s *Storage) changeEnrollment(ctx context.Context, op, userUID, courseID string, add bool) (*models.Snapshot, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, apperr.FromContext(err))
	}
	if !s.ValidUserID(userUID) {
		return nil, false, fmt.Errorf("%s: %w: user id %q", op, apperr.ErrInvalidInput, userUID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.users[userUID]
	if !ok {
		return nil, false, fmt.Errorf("%s: %w", op, apperr.NotFound("user", userUID))
	}
	if _, ok := s.courses[courseID]; !ok {
		return nil, false, fmt.Errorf("%s: %w", op, apperr.NotFound("course", courseID))
	}

	if add == current.IsEnrolled(courseID) {
		return copySnapshot(current), false, nil
	}
	if add {
		current.EnrolledCourseIDs = current.EnrolledCourseIDs.With(courseID)
		s.enrollLocked(userUID, courseID)
	} else {
		current.EnrolledCourseIDs = current.EnrolledCourseIDs.Without(courseID)
		delete(s.enrolled[courseID], userUID)
	}
	current.Version++
	s.users[userUID] = current
	return copySnapshot(current), true, nil
}

func (s *Storage) enrollLocked(userUID, courseID string) {
	if s.enrolled[courseID] == nil {
		s.enrolled[courseID] = make(map[string]time.Time)
	}
	if _, ok := s.enrolled[courseID][userUID]; !ok {
		s.enrolled[courseID][userUID] = s.now()
	}
}

// ListEnrolledCourses возвращает курсы пользователя в порядке записи.
func (s *Storage) ListEnrolledCourses(ctx context.Context, userUID string) ([]*models.Course, error) {
	const op = "memory.ListEnrolledCourses"
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, apperr.FromContext(err))
	}
	if !s.ValidUserID(userUID) {
		return nil, fmt.Errorf("%s: %w: user id %q", op, apperr.ErrInvalidInput, userUID)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	type entry struct {
		course models.Course
		at     time.Time
	}
	var entries []entry
	for courseID, students := range s.enrolled {
		if at, ok := students[userUID]; ok {
			entries = append(entries, entry{course: s.courses[courseID], at: at})
		}
	}
	slices.SortFunc(entries, func(a, b entry) int {
		if c := a.at.Compare(b.at); c != 0 {
			return c
		}
		return strings.Compare(a.course.ID, b.course.ID)
	})
	result := make([]*models.Course, 0, len(entries))
	for _, e := range entries {
		c := e.course
		result = append(result, &c)
	}
	return result, nil
}

// ListEnrolledUsers возвращает пользователей, записанных на курс, по возрастанию email.
func (s *Storage) ListEnrolledUsers(ctx context.Context, courseID string) ([]*models.Snapshot, error) {
	const op = "memory.ListEnrolledUsers"
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, apperr.FromContext(err))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*models.Snapshot
	for userUID := range s.enrolled[courseID] {
		result = append(result, copySnapshot(s.users[userUID]))
	}
	slices.SortFunc(result, func(a, b *models.Snapshot) int {
		return strings.Compare(a.Email, b.Email)
	})
	return result, nil
}

// CreateCourse сохраняет курс вместе с алиасами продуктов магазина. Дубликат
// слага или идентификатора продукта приводит к Conflict, пустой алиас к
// InvalidInput; в обоих случаях ничего не сохраняется.
func (s *Storage) CreateCourse(ctx context.Context, course models.Course, storeProductIDs []string) (*models.Course, error) {
	const op = "memory.CreateCourse"
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, apperr.FromContext(err))
	}
	for _, storeID := range storeProductIDs {
		if storeID == "" {
			return nil, fmt.Errorf("%s: %w: empty store product id", op, apperr.ErrInvalidInput)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.courses {
		if c.Slug == course.Slug || c.ProductIdentifier == course.ProductIdentifier {
			return nil, fmt.Errorf("%s: %w: course %q", op, apperr.ErrConflict, course.Slug)
		}
	}
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	course.CreatedAt = s.now()
	s.courses[course.ID] = course
	for _, storeID := range storeProductIDs {
		s.aliases[storeID] = course.ProductIdentifier
	}
	return &course, nil
}

// FindCourseByID возвращает курс по идентификатору.
func (s *Storage) FindCourseByID(ctx context.Context, id string) (*models.Course, error) {
	return s.findCourse(ctx, "memory.FindCourseByID", id, func(c models.Course) bool { return c.ID == id })
}

// FindCourseBySlug возвращает курс по слагу.
func (s *Storage) FindCourseBySlug(ctx context.Context, slug string) (*models.Course, error) {
	return s.findCourse(ctx, "memory.FindCourseBySlug", slug, func(c models.Course) bool { return c.Slug == slug })
}

// FindCourseByProductIdentifier возвращает курс по нормализованному идентификатору продукта.
func (s *Storage) FindCourseByProductIdentifier(ctx context.Context, identifier string) (*models.Course, error) {
	return s.findCourse(ctx, "memory.FindCourseByProductIdentifier", identifier,
		func(c models.Course) bool { return c.ProductIdentifier == identifier })
}

func (s *Storage) findCourse(ctx context.Context, op, key string, match func(models.Course) bool) (*models.Course, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, apperr.FromContext(err))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.courses {
		if match(c) {
			return &c, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", op, apperr.NotFound("course", key))
}

// ListCourses возвращает курсы в порядке создания.
func (s *Storage) ListCourses(ctx context.Context, limit, offset int) ([]*models.Course, error) {
	const op = "memory.ListCourses"
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, apperr.FromContext(err))
	}

	s.mu.RLock()
	all := make([]*models.Course, 0, len(s.courses))
	for _, c := range s.courses {
		all = append(all, &c)
	}
	s.mu.RUnlock()

	slices.SortFunc(all, func(a, b *models.Course) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	if offset >= len(all) {
		return nil, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], nil
}

// SaveProductAlias связывает продукт магазина с идентификатором курса.
func (s *Storage) SaveProductAlias(ctx context.Context, storeProductID, identifier string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("memory.SaveProductAlias: %w", apperr.FromContext(err))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aliases[storeProductID] = identifier
	return nil
}

// FindProductAlias возвращает идентификатор курса для продукта магазина.
func (s *Storage) FindProductAlias(ctx context.Context, storeProductID string) (string, error) {
	const op = "memory.FindProductAlias"
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%s: %w", op, apperr.FromContext(err))
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	identifier, ok := s.aliases[storeProductID]
	if !ok {
		return "", fmt.Errorf("%s: %w", op, apperr.NotFound("product alias", storeProductID))
	}
	return identifier, nil
}

func copySnapshot(s models.Snapshot) *models.Snapshot {
	s.EnrolledCourseIDs = models.NewCourseSet(s.EnrolledCourseIDs.IDs()...)
	if s.SubscriptionExpire != nil {
		exp := *s.SubscriptionExpire
		s.SubscriptionExpire = &exp
	}
	return &s
}
