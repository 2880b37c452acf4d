package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/course-access/internal/lib/apperr"
	"github.com/magabrotheeeer/course-access/internal/models"
)

const (
	sectionColumns = `id::text, course_id::text, title, slug, description, position, created_at, updated_at`
	lessonColumns  = `id::text, section_id::text, title, slug, description, source, type, content, position,
			  created_at, updated_at`
)

func scanSection(row rowScanner) (*models.Section, error) {
	var s models.Section
	if err := row.Scan(&s.ID, &s.CourseID, &s.Title, &s.Slug, &s.Description, &s.Position,
		&s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func scanLesson(row rowScanner) (*models.Lesson, error) {
	var (
		l   models.Lesson
		typ string
	)
	if err := row.Scan(&l.ID, &l.SectionID, &l.Title, &l.Slug, &l.Description, &l.Source, &typ, &l.Content,
		&l.Position, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	l.Type = models.LessonType(typ)
	return &l, nil
}

// CreateSection добавляет раздел в конец курса.
func (s *Storage) CreateSection(ctx context.Context, section models.Section) (*models.Section, error) {
	const op = "storage.CreateSection"
	if !validID(section.CourseID) {
		return nil, fmt.Errorf("%s: %w", op, apperr.NotFound("course", section.CourseID))
	}

	query := `INSERT INTO sections (course_id, title, slug, description, position)
			  SELECT $1, $2, $3, $4, COALESCE(MAX(position), 0) + 1
			  FROM sections WHERE course_id = $1
			  RETURNING ` + sectionColumns
	created, err := scanSection(s.DB.QueryRowContext(ctx, query,
		section.CourseID, section.Title, section.Slug, section.Description))
	if err != nil {
		return nil, translate(op, err, "section", section.Slug)
	}
	return created, nil
}

// ListSections возвращает разделы курса по порядку.
func (s *Storage) ListSections(ctx context.Context, courseID string) ([]*models.Section, error) {
	const op = "storage.ListSections"
	if !validID(courseID) {
		return nil, nil
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT `+sectionColumns+`
			  FROM sections WHERE course_id = $1
			  ORDER BY position, created_at`, courseID)
	if err != nil {
		return nil, translate(op, err, "section", "")
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Section
	for rows.Next() {
		section, err := scanSection(rows)
		if err != nil {
			return nil, translate(op, err, "section", "")
		}
		result = append(result, section)
	}
	if err = rows.Err(); err != nil {
		return nil, translate(op, err, "section", "")
	}
	return result, nil
}

// FindSection возвращает раздел курса по слагу.
func (s *Storage) FindSection(ctx context.Context, courseID, slug string) (*models.Section, error) {
	const op = "storage.FindSection"
	if !validID(courseID) {
		return nil, fmt.Errorf("%s: %w", op, apperr.NotFound("section", slug))
	}

	section, err := scanSection(s.DB.QueryRowContext(ctx, `SELECT `+sectionColumns+`
			  FROM sections WHERE course_id = $1 AND slug = $2`, courseID, slug))
	if err != nil {
		return nil, translate(op, err, "section", slug)
	}
	return section, nil
}

// UpdateSection сохраняет название, слаг и описание раздела.
func (s *Storage) UpdateSection(ctx context.Context, section models.Section) (*models.Section, error) {
	const op = "storage.UpdateSection"
	if !validID(section.ID) {
		return nil, fmt.Errorf("%s: %w", op, apperr.NotFound("section", section.ID))
	}

	updated, err := scanSection(s.DB.QueryRowContext(ctx, `UPDATE sections
			  SET title = $2, slug = $3, description = $4, updated_at = NOW()
			  WHERE id = $1
			  RETURNING `+sectionColumns, section.ID, section.Title, section.Slug, section.Description))
	if err != nil {
		return nil, translate(op, err, "section", section.ID)
	}
	return updated, nil
}

// DeleteSection удаляет раздел вместе с уроками и отметками о прохождении.
func (s *Storage) DeleteSection(ctx context.Context, id string) error {
	const op = "storage.DeleteSection"
	return s.deleteByID(ctx, op, `DELETE FROM sections WHERE id = $1`, "section", id)
}

// CreateLesson добавляет урок в конец раздела.
func (s *Storage) CreateLesson(ctx context.Context, lesson models.Lesson) (*models.Lesson, error) {
	const op = "storage.CreateLesson"
	if !validID(lesson.SectionID) {
		return nil, fmt.Errorf("%s: %w", op, apperr.NotFound("section", lesson.SectionID))
	}

	query := `INSERT INTO lessons (section_id, title, slug, description, source, type, content, position)
			  SELECT $1, $2, $3, $4, $5, $6, $7, COALESCE(MAX(position), 0) + 1
			  FROM lessons WHERE section_id = $1
			  RETURNING ` + lessonColumns
	created, err := scanLesson(s.DB.QueryRowContext(ctx, query, lesson.SectionID, lesson.Title, lesson.Slug,
		lesson.Description, lesson.Source, string(lesson.Type), lesson.Content))
	if err != nil {
		return nil, translate(op, err, "lesson", lesson.Slug)
	}
	return created, nil
}

// ListLessons возвращает уроки раздела по порядку.
func (s *Storage) ListLessons(ctx context.Context, sectionID string) ([]*models.Lesson, error) {
	const op = "storage.ListLessons"
	if !validID(sectionID) {
		return nil, nil
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT `+lessonColumns+`
			  FROM lessons WHERE section_id = $1
			  ORDER BY position, created_at`, sectionID)
	if err != nil {
		return nil, translate(op, err, "lesson", "")
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Lesson
	for rows.Next() {
		lesson, err := scanLesson(rows)
		if err != nil {
			return nil, translate(op, err, "lesson", "")
		}
		result = append(result, lesson)
	}
	if err = rows.Err(); err != nil {
		return nil, translate(op, err, "lesson", "")
	}
	return result, nil
}

// FindLesson возвращает урок раздела по идентификатору.
func (s *Storage) FindLesson(ctx context.Context, sectionID, id string) (*models.Lesson, error) {
	const op = "storage.FindLesson"
	if !validID(sectionID) || !validID(id) {
		return nil, fmt.Errorf("%s: %w", op, apperr.NotFound("lesson", id))
	}

	lesson, err := scanLesson(s.DB.QueryRowContext(ctx, `SELECT `+lessonColumns+`
			  FROM lessons WHERE section_id = $1 AND id = $2`, sectionID, id))
	if err != nil {
		return nil, translate(op, err, "lesson", id)
	}
	return lesson, nil
}

// UpdateLesson сохраняет изменяемые поля урока.
func (s *Storage) UpdateLesson(ctx context.Context, lesson models.Lesson) (*models.Lesson, error) {
	const op = "storage.UpdateLesson"
	if !validID(lesson.ID) {
		return nil, fmt.Errorf("%s: %w", op, apperr.NotFound("lesson", lesson.ID))
	}

	updated, err := scanLesson(s.DB.QueryRowContext(ctx, `UPDATE lessons
			  SET title = $2, slug = $3, description = $4, source = $5, type = $6, content = $7,
			      updated_at = NOW()
			  WHERE id = $1
			  RETURNING `+lessonColumns, lesson.ID, lesson.Title, lesson.Slug, lesson.Description,
		lesson.Source, string(lesson.Type), lesson.Content))
	if err != nil {
		return nil, translate(op, err, "lesson", lesson.ID)
	}
	return updated, nil
}

// DeleteLesson удаляет урок вместе с отметками о прохождении.
func (s *Storage) DeleteLesson(ctx context.Context, id string) error {
	const op = "storage.DeleteLesson"
	return s.deleteByID(ctx, op, `DELETE FROM lessons WHERE id = $1`, "lesson", id)
}

func (s *Storage) deleteByID(ctx context.Context, op, query, entity, id string) error {
	if !validID(id) {
		return fmt.Errorf("%s: %w", op, apperr.NotFound(entity, id))
	}
	res, err := s.DB.ExecContext(ctx, query, id)
	if err != nil {
		return translate(op, err, entity, id)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return translate(op, err, entity, id)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, apperr.NotFound(entity, id))
	}
	return nil
}

// MarkLessonCompleted отмечает урок пройденным. Повторная отметка сохраняет
// время первого прохождения.
func (s *Storage) MarkLessonCompleted(ctx context.Context, userUID, lessonID string) (*models.LessonProgress, error) {
	const op = "storage.MarkLessonCompleted"
	if !validID(userUID) {
		return nil, fmt.Errorf("%s: %w: user id %q", op, apperr.ErrInvalidInput, userUID)
	}
	if !validID(lessonID) {
		return nil, fmt.Errorf("%s: %w", op, apperr.NotFound("lesson", lessonID))
	}

	var p models.LessonProgress
	err := s.DB.QueryRowContext(ctx, `INSERT INTO lesson_progress (user_uid, lesson_id)
			  VALUES ($1, $2)
			  ON CONFLICT (user_uid, lesson_id) DO UPDATE SET is_completed = true
			  RETURNING user_uid::text, lesson_id::text, is_completed, completed_at`, userUID, lessonID).
		Scan(&p.UserUID, &p.LessonID, &p.IsCompleted, &p.CompletedAt)
	if err != nil {
		return nil, translate(op, err, "lesson", lessonID)
	}
	return &p, nil
}

// ListCompletedLessons возвращает идентификаторы пройденных уроков курса в порядке курса.
func (s *Storage) ListCompletedLessons(ctx context.Context, userUID, courseID string) ([]string, error) {
	const op = "storage.ListCompletedLessons"
	if !validID(userUID) || !validID(courseID) {
		return nil, nil
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT lp.lesson_id::text
			  FROM lesson_progress lp
			  JOIN lessons l ON l.id = lp.lesson_id
			  JOIN sections s ON s.id = l.section_id
			  WHERE lp.user_uid = $1 AND s.course_id = $2 AND lp.is_completed
			  ORDER BY s.position, l.position`, userUID, courseID)
	if err != nil {
		return nil, translate(op, err, "lesson", "")
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, translate(op, err, "lesson", "")
		}
		result = append(result, id)
	}
	if err = rows.Err(); err != nil {
		return nil, translate(op, err, "lesson", "")
	}
	return result, nil
}

// CountCourseLessons возвращает число уроков во всех разделах курса.
func (s *Storage) CountCourseLessons(ctx context.Context, courseID string) (int, error) {
	const op = "storage.CountCourseLessons"
	if !validID(courseID) {
		return 0, nil
	}

	var count int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*)
			  FROM lessons l
			  JOIN sections s ON s.id = l.section_id
			  WHERE s.course_id = $1`, courseID).Scan(&count)
	if err != nil {
		return 0, translate(op, err, "lesson", "")
	}
	return count, nil
}
