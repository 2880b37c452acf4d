// Package content управляет содержимым курса: разделами, уроками и отметками
// о прохождении уроков. Разделы адресуются слагом внутри курса, уроки
// идентификатором внутри раздела.
package content

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/course-access/internal/lib/apperr"
	"github.com/magabrotheeeer/course-access/internal/lib/productid"
	"github.com/magabrotheeeer/course-access/internal/lib/sl"
	"github.com/magabrotheeeer/course-access/internal/models"
)

// Store определяет методы хранилища содержимого курсов.
type Store interface {
	CreateSection(ctx context.Context, section models.Section) (*models.Section, error)
	ListSections(ctx context.Context, courseID string) ([]*models.Section, error)
	FindSection(ctx context.Context, courseID, slug string) (*models.Section, error)
	UpdateSection(ctx context.Context, section models.Section) (*models.Section, error)
	DeleteSection(ctx context.Context, id string) error

	CreateLesson(ctx context.Context, lesson models.Lesson) (*models.Lesson, error)
	ListLessons(ctx context.Context, sectionID string) ([]*models.Lesson, error)
	FindLesson(ctx context.Context, sectionID, id string) (*models.Lesson, error)
	UpdateLesson(ctx context.Context, lesson models.Lesson) (*models.Lesson, error)
	DeleteLesson(ctx context.Context, id string) error

	MarkLessonCompleted(ctx context.Context, userUID, lessonID string) (*models.LessonProgress, error)
	ListCompletedLessons(ctx context.Context, userUID, courseID string) ([]string, error)
	CountCourseLessons(ctx context.Context, courseID string) (int, error)
}

// Courses ищет курс по слагу.
type Courses interface {
	GetBySlug(ctx context.Context, slug string) (*models.Course, error)
}

// Service реализует бизнес-логику содержимого курсов.
type Service struct {
	store   Store
	courses Courses
	log     *slog.Logger
}

// New создаёт Service.
func New(store Store, courses Courses, log *slog.Logger) *Service {
	return &Service{
		store:   store,
		courses: courses,
		log:     log,
	}
}

func slugOf(op, title string) (string, error) {
	slug := productid.Slug(title)
	if slug == "" {
		return "", fmt.Errorf("%s: %w: title %q produces empty slug", op, apperr.ErrInvalidInput, title)
	}
	return slug, nil
}

func (s *Service) course(ctx context.Context, courseSlug string) (*models.Course, error) {
	return s.courses.GetBySlug(ctx, courseSlug)
}

func (s *Service) section(ctx context.Context, courseSlug, sectionSlug string) (*models.Section, error) {
	course, err := s.course(ctx, courseSlug)
	if err != nil {
		return nil, err
	}
	return s.store.FindSection(ctx, course.ID, sectionSlug)
}

// Sections возвращает разделы курса.
func (s *Service) Sections(ctx context.Context, courseSlug string) ([]*models.Section, error) {
	const op = "content.Sections"

	course, err := s.course(ctx, courseSlug)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sections, err := s.store.ListSections(ctx, course.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sections, nil
}

// Section возвращает раздел курса по слагу.
func (s *Service) Section(ctx context.Context, courseSlug, sectionSlug string) (*models.Section, error) {
	section, err := s.section(ctx, courseSlug, sectionSlug)
	if err != nil {
		return nil, fmt.Errorf("content.Section: %w", err)
	}
	return section, nil
}

// CreateSection добавляет раздел в конец курса. Слаг выводится из названия.
func (s *Service) CreateSection(ctx context.Context, courseSlug string, draft models.SectionDraft) (*models.Section, error) {
	const op = "content.CreateSection"

	title := strings.TrimSpace(draft.Title)
	slug, err := slugOf(op, title)
	if err != nil {
		return nil, err
	}
	course, err := s.course(ctx, courseSlug)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	created, err := s.store.CreateSection(ctx, models.Section{
		CourseID:    course.ID,
		Title:       title,
		Slug:        slug,
		Description: strings.TrimSpace(draft.Description),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("section created", sl.CourseID(course.ID), slog.String("section_slug", created.Slug))
	return created, nil
}

// UpdateSection меняет название и описание раздела. При смене названия
// меняется и слаг.
func (s *Service) UpdateSection(ctx context.Context, courseSlug, sectionSlug string, patch models.SectionPatch) (*models.Section, error) {
	const op = "content.UpdateSection"

	section, err := s.section(ctx, courseSlug, sectionSlug)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if patch.Title != nil {
		section.Title = strings.TrimSpace(*patch.Title)
		if section.Slug, err = slugOf(op, section.Title); err != nil {
			return nil, err
		}
	}
	if patch.Description != nil {
		section.Description = strings.TrimSpace(*patch.Description)
	}

	updated, err := s.store.UpdateSection(ctx, *section)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return updated, nil
}

// DeleteSection удаляет раздел со всеми уроками.
func (s *Service) DeleteSection(ctx context.Context, courseSlug, sectionSlug string) error {
	const op = "content.DeleteSection"

	section, err := s.section(ctx, courseSlug, sectionSlug)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.store.DeleteSection(ctx, section.ID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("section deleted", sl.CourseID(section.CourseID), slog.String("section_slug", section.Slug))
	return nil
}

// Lessons возвращает уроки раздела.
func (s *Service) Lessons(ctx context.Context, courseSlug, sectionSlug string) ([]*models.Lesson, error) {
	const op = "content.Lessons"

	section, err := s.section(ctx, courseSlug, sectionSlug)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	lessons, err := s.store.ListLessons(ctx, section.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return lessons, nil
}

func (s *Service) lesson(ctx context.Context, courseSlug, sectionSlug, lessonID string) (*models.Lesson, error) {
	section, err := s.section(ctx, courseSlug, sectionSlug)
	if err != nil {
		return nil, err
	}
	return s.store.FindLesson(ctx, section.ID, lessonID)
}

// Lesson возвращает урок раздела.
func (s *Service) Lesson(ctx context.Context, courseSlug, sectionSlug, lessonID string) (*models.Lesson, error) {
	lesson, err := s.lesson(ctx, courseSlug, sectionSlug, lessonID)
	if err != nil {
		return nil, fmt.Errorf("content.Lesson: %w", err)
	}
	return lesson, nil
}

// CreateLesson добавляет урок в конец раздела. Тип по умолчанию VIDEO.
func (s *Service) CreateLesson(ctx context.Context, courseSlug, sectionSlug string, draft models.LessonDraft) (*models.Lesson, error) {
	const op = "content.CreateLesson"

	title := strings.TrimSpace(draft.Title)
	slug, err := slugOf(op, title)
	if err != nil {
		return nil, err
	}
	section, err := s.section(ctx, courseSlug, sectionSlug)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lessonType := draft.Type
	if lessonType == "" {
		lessonType = models.LessonVideo
	}
	created, err := s.store.CreateLesson(ctx, models.Lesson{
		SectionID:   section.ID,
		Title:       title,
		Slug:        slug,
		Description: strings.TrimSpace(draft.Description),
		Source:      strings.TrimSpace(draft.Source),
		Type:        lessonType,
		Content:     draft.Content,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("lesson created",
		sl.CourseID(section.CourseID), slog.String("section_slug", section.Slug), slog.String("lesson_id", created.ID))
	return created, nil
}

// UpdateLesson применяет частичное обновление урока.
func (s *Service) UpdateLesson(ctx context.Context, courseSlug, sectionSlug, lessonID string, patch models.LessonPatch) (*models.Lesson, error) {
	const op = "content.UpdateLesson"

	lesson, err := s.lesson(ctx, courseSlug, sectionSlug, lessonID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if patch.Title != nil {
		lesson.Title = strings.TrimSpace(*patch.Title)
		if lesson.Slug, err = slugOf(op, lesson.Title); err != nil {
			return nil, err
		}
	}
	if patch.Description != nil {
		lesson.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Source != nil {
		lesson.Source = strings.TrimSpace(*patch.Source)
	}
	if patch.Type != nil {
		lesson.Type = *patch.Type
	}
	if patch.Content != nil {
		lesson.Content = *patch.Content
	}

	updated, err := s.store.UpdateLesson(ctx, *lesson)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return updated, nil
}

// DeleteLesson удаляет урок.
func (s *Service) DeleteLesson(ctx context.Context, courseSlug, sectionSlug, lessonID string) error {
	const op = "content.DeleteLesson"

	lesson, err := s.lesson(ctx, courseSlug, sectionSlug, lessonID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.store.DeleteLesson(ctx, lesson.ID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CompleteLesson отмечает урок пройденным пользователем. Операция идемпотентна.
func (s *Service) CompleteLesson(ctx context.Context, courseSlug, sectionSlug, lessonID, userUID string) (*models.LessonProgress, error) {
	const op = "content.CompleteLesson"

	lesson, err := s.lesson(ctx, courseSlug, sectionSlug, lessonID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	progress, err := s.store.MarkLessonCompleted(ctx, userUID, lesson.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Debug("lesson completed", sl.UserID(userUID), slog.String("lesson_id", lesson.ID))
	return progress, nil
}

// Progress возвращает прогресс пользователя по курсу.
func (s *Service) Progress(ctx context.Context, courseSlug, userUID string) (*models.CourseProgress, error) {
	const op = "content.Progress"

	course, err := s.course(ctx, courseSlug)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	total, err := s.store.CountCourseLessons(ctx, course.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	completed, err := s.store.ListCompletedLessons(ctx, userUID, course.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if completed == nil {
		completed = []string{}
	}
	return &models.CourseProgress{
		CourseID:           course.ID,
		TotalLessons:       total,
		CompletedLessonIDs: completed,
	}, nil
}
