package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/course-access/internal/lib/apperr"
	"github.com/magabrotheeeer/course-access/internal/models"
)

// AddEnrollment записывает пользователя на курс. Повторная запись ничего не меняет.
// Флаг added истинен только для того вызова, который действительно вставил запись.
func (s *Storage) AddEnrollment(ctx context.Context, userUID, courseID string) (*models.Snapshot, bool, error) {
	const op = "storage.AddEnrollment"
	return s.changeEnrollment(ctx, op, userUID, courseID,
		`INSERT INTO user_courses (user_uid, course_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`)
}

// RemoveEnrollment отписывает пользователя от курса. Отсутствие записи ошибкой не считается.
func (s *Storage) RemoveEnrollment(ctx context.Context, userUID, courseID string) (*models.Snapshot, bool, error) {
	const op = "storage.RemoveEnrollment"
	return s.changeEnrollment(ctx, op, userUID, courseID,
		`DELETE FROM user_courses WHERE user_uid = $1 AND course_id = $2`)
}

func (s *Storage) changeEnrollment(ctx context.Context, op, userUID, courseID, stmt string) (*models.Snapshot, bool, error) {
	if !validID(userUID) || !validID(courseID) {
		return nil, false, fmt.Errorf("%s: %w: user %q course %q", op, apperr.ErrInvalidInput, userUID, courseID)
	}

	var (
		result  *models.Snapshot
		changed bool
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, stmt, userUID, courseID)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		changed = affected > 0
		if changed {
			if _, err := tx.ExecContext(ctx,
				`UPDATE users SET version = version + 1, updated_at = NOW() WHERE uid = $1`, userUID); err != nil {
				return err
			}
		}
		result, err = getUser(ctx, tx, userUID)
		return err
	})
	if err != nil {
		return nil, false, translate(op, err, "user", userUID)
	}
	return result, changed, nil
}

// ListEnrolledCourses возвращает курсы, на которые записан пользователь.
func (s *Storage) ListEnrolledCourses(ctx context.Context, userUID string) ([]*models.Course, error) {
	const op = "storage.ListEnrolledCourses"
	if !validID(userUID) {
		return nil, fmt.Errorf("%s: %w: user id %q", op, apperr.ErrInvalidInput, userUID)
	}

	query := courseSelect + `
			  JOIN user_courses uc ON uc.course_id = c.id
			  WHERE uc.user_uid = $1
			  ORDER BY uc.enrolled_at`
	return s.listCourses(ctx, op, query, userUID)
}

// ListEnrolledUsers возвращает снимки пользователей, записанных на курс.
func (s *Storage) ListEnrolledUsers(ctx context.Context, courseID string) ([]*models.Snapshot, error) {
	const op = "storage.ListEnrolledUsers"
	if !validID(courseID) {
		return nil, fmt.Errorf("%s: %w: course id %q", op, apperr.ErrInvalidInput, courseID)
	}

	query := snapshotSelect + `
			  WHERE u.uid IN (SELECT user_uid FROM user_courses WHERE course_id = $1)
			  GROUP BY u.uid
			  ORDER BY u.email`
	return s.listSnapshots(ctx, op, query, courseID)
}
