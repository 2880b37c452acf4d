package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/course-access/internal/lib/apperr"
	"github.com/magabrotheeeer/course-access/internal/models"
)

// CreateSection добавляет раздел в конец курса.
func (s *Storage) CreateSection(ctx context.Context, section models.Section) (*models.Section, error) {
	const op = "memory.CreateSection"
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, apperr.FromContext(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[section.CourseID]; !ok {
		return nil, fmt.Errorf("%s: %w", op, apperr.NotFound("course", section.CourseID))
	}
	position := 0
	for _, existing := range s.sections {
		if existing.CourseID != section.CourseID {
			continue
		}
		if existing.Slug == section.Slug {
			return nil, fmt.Errorf("%s: %w: section %q", op, apperr.ErrConflict, section.Slug)
		}
		position = max(position, existing.Position)
	}
	section.ID = uuid.NewString()
	section.Position = position + 1
	section.CreatedAt = s.now()
	section.UpdatedAt = section.CreatedAt
	s.sections[section.ID] = section
	return &section, nil
}

// ListSections возвращает разделы курса по порядку.
func (s *Storage) ListSections(ctx context.Context, courseID string) ([]*models.Section, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("memory.ListSections: %w", apperr.FromContext(err))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*models.Section
	for _, section := range s.sections {
		if section.CourseID == courseID {
			result = append(result, &section)
		}
	}
	slices.SortFunc(result, func(a, b *models.Section) int {
		return cmp.Or(cmp.Compare(a.Position, b.Position), a.CreatedAt.Compare(b.CreatedAt))
	})
	return result, nil
}

// FindSection возвращает раздел курса по слагу.
func (s *Storage) FindSection(ctx context.Context, courseID, slug string) (*models.Section, error) {
	const op = "memory.FindSection"
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, apperr.FromContext(err))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, section := range s.sections {
		if section.CourseID == courseID && section.Slug == slug {
			return &section, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", op, apperr.NotFound("section", slug))
}

// UpdateSection сохраняет название, слаг и описание раздела.
func (s *Storage) UpdateSection(ctx context.Context, section models.Section) (*models.Section, error) {
	const op = "memory.UpdateSection"
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, apperr.FromContext(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.sections[section.ID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, apperr.NotFound("section", section.ID))
	}
	for _, other := range s.sections {
		if other.ID != current.ID && other.CourseID == current.CourseID && other.Slug == section.Slug {
			return nil, fmt.Errorf("%s: %w: section %q", op, apperr.ErrConflict, section.Slug)
		}
	}
	current.Title = section.Title
	current.Slug = section.Slug
	current.Description = section.Description
	current.UpdatedAt = s.now()
	s.sections[current.ID] = current
	return &current, nil
}

// DeleteSection удаляет раздел вместе с уроками и отметками о прохождении.
func (s *Storage) DeleteSection(ctx context.Context, id string) error {
	const op = "memory.DeleteSection"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, apperr.FromContext(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sections[id]; !ok {
		return fmt.Errorf("%s: %w", op, apperr.NotFound("section", id))
	}
	delete(s.sections, id)
	for lessonID, lesson := range s.lessons {
		if lesson.SectionID == id {
			s.deleteLessonLocked(lessonID)
		}
	}
	return nil
}

// CreateLesson добавляет урок в конец раздела.
func (s *Storage) CreateLesson(ctx context.Context, lesson models.Lesson) (*models.Lesson, error) {
	const op = "memory.CreateLesson"
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, apperr.FromContext(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sections[lesson.SectionID]; !ok {
		return nil, fmt.Errorf("%s: %w", op, apperr.NotFound("section", lesson.SectionID))
	}
	position := 0
	for _, existing := range s.lessons {
		if existing.SectionID != lesson.SectionID {
			continue
		}
		if existing.Slug == lesson.Slug {
			return nil, fmt.Errorf("%s: %w: lesson %q", op, apperr.ErrConflict, lesson.Slug)
		}
		position = max(position, existing.Position)
	}
	lesson.ID = uuid.NewString()
	lesson.Position = position + 1
	lesson.CreatedAt = s.now()
	lesson.UpdatedAt = lesson.CreatedAt
	s.lessons[lesson.ID] = lesson
	return &lesson, nil
}

// ListLessons возвращает уроки раздела по порядку.
func (s *Storage) ListLessons(ctx context.Context, sectionID string) ([]*models.Lesson, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("memory.ListLessons: %w", apperr.FromContext(err))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*models.Lesson
	for _, lesson := range s.lessons {
		if lesson.SectionID == sectionID {
			result = append(result, &lesson)
		}
	}
	slices.SortFunc(result, func(a, b *models.Lesson) int {
		return cmp.Or(cmp.Compare(a.Position, b.Position), a.CreatedAt.Compare(b.CreatedAt))
	})
	return result, nil
}

// FindLesson возвращает урок раздела по идентификатору.
func (s *Storage) FindLesson(ctx context.Context, sectionID, id string) (*models.Lesson, error) {
	const op = "memory.FindLesson"
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, apperr.FromContext(err))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	lesson, ok := s.lessons[id]
	if !ok || lesson.SectionID != sectionID {
		return nil, fmt.Errorf("%s: %w", op, apperr.NotFound("lesson", id))
	}
	return &lesson, nil
}

// UpdateLesson сохраняет изменяемые поля урока.
func (s *Storage) UpdateLesson(ctx context.Context, lesson models.Lesson) (*models.Lesson, error) {
	const op = "memory.UpdateLesson"
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, apperr.FromContext(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.lessons[lesson.ID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, apperr.NotFound("lesson", lesson.ID))
	}
	for _, other := range s.lessons {
		if other.ID != current.ID && other.SectionID == current.SectionID && other.Slug == lesson.Slug {
			return nil, fmt.Errorf("%s: %w: lesson %q", op, apperr.ErrConflict, lesson.Slug)
		}
	}
	current.Title = lesson.Title
	current.Slug = lesson.Slug
	current.Description = lesson.Description
	current.Source = lesson.Source
	current.Type = lesson.Type
	current.Content = lesson.Content
	current.UpdatedAt = s.now()
	s.lessons[current.ID] = current
	return &current, nil
}

// DeleteLesson удаляет урок вместе с отметками о прохождении.
func (s *Storage) DeleteLesson(ctx context.Context, id string) error {
	const op = "memory.DeleteLesson"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, apperr.FromContext(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lessons[id]; !ok {
		return fmt.Errorf("%s: %w", op, apperr.NotFound("lesson", id))
	}
	s.deleteLessonLocked(id)
	return nil
}

func (s *Storage) deleteLessonLocked(id string) {
	delete(s.lessons, id)
	for _, done := range s.progress {
		delete(done, id)
	}
}

// MarkLessonCompleted отмечает урок пройденным. Повторная отметка сохраняет
// время первого прохождения.
func (s *Storage) MarkLessonCompleted(ctx context.Context, userUID, lessonID string) (*models.LessonProgress, error) {
	const op = "memory.MarkLessonCompleted"
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, apperr.FromContext(err))
	}
	if !s.ValidUserID(userUID) {
		return nil, fmt.Errorf("%s: %w: user id %q", op, apperr.ErrInvalidInput, userUID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userUID]; !ok {
		return nil, fmt.Errorf("%s: %w", op, apperr.NotFound("user", userUID))
	}
	if _, ok := s.lessons[lessonID]; !ok {
		return nil, fmt.Errorf("%s: %w", op, apperr.NotFound("lesson", lessonID))
	}
	if s.progress[userUID] == nil {
		s.progress[userUID] = make(map[string]models.LessonProgress)
	}
	p, ok := s.progress[userUID][lessonID]
	if !ok {
		p = models.LessonProgress{UserUID: userUID, LessonID: lessonID, CompletedAt: s.now()}
	}
	p.IsCompleted = true
	s.progress[userUID][lessonID] = p
	return &p, nil
}

// ListCompletedLessons возвращает идентификаторы пройденных уроков курса в порядке курса.
func (s *Storage) ListCompletedLessons(ctx context.Context, userUID, courseID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("memory.ListCompletedLessons: %w", apperr.FromContext(err))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var done []models.Lesson
	for lessonID, p := range s.progress[userUID] {
		lesson, ok := s.lessons[lessonID]
		if !ok || !p.IsCompleted || s.sections[lesson.SectionID].CourseID != courseID {
			continue
		}
		done = append(done, lesson)
	}
	slices.SortFunc(done, func(a, b models.Lesson) int {
		return cmp.Or(
			cmp.Compare(s.sections[a.SectionID].Position, s.sections[b.SectionID].Position),
			cmp.Compare(a.Position, b.Position),
		)
	})
	result := make([]string, 0, len(done))
	for _, lesson := range done {
		result = append(result, lesson.ID)
	}
	return result, nil
}

// CountCourseLessons возвращает число уроков во всех разделах курса.
func (s *Storage) CountCourseLessons(ctx context.Context, courseID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("memory.CountCourseLessons: %w", apperr.FromContext(err))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, lesson := range s.lessons {
		if s.sections[lesson.SectionID].CourseID == courseID {
			count++
		}
	}
	return count, nil
}
