package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/magabrotheeeer/course-access/internal/lib/apperr"
	"github.com/magabrotheeeer/course-access/internal/models"
)

const snapshotSelect = `SELECT u.uid::text, u.email, u.role, u.is_activated, u.is_premium,
			      u.subscription_status, u.subscription_expiry, u.version,
			      COALESCE(string_agg(uc.course_id::text, ',' ORDER BY uc.course_id), '')
			  FROM users u
			  LEFT JOIN user_courses uc ON uc.user_uid = u.uid`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (*models.Snapshot, error) {
	var (
		s            models.Snapshot
		role, status string
		expiry       sql.NullTime
		courses      string
	)
	if err := row.Scan(&s.UUID, &s.Email, &role, &s.IsActivated, &s.IsPremium,
		&status, &expiry, &s.Version, &courses); err != nil {
		return nil, err
	}
	s.Role = models.Role(role)
	s.SubscriptionStatus = models.SubscriptionStatus(status)
	if expiry.Valid {
		t := expiry.Time
		s.SubscriptionExpire = &t
	}
	s.EnrolledCourseIDs = models.CourseSet{}
	if courses != "" {
		s.EnrolledCourseIDs = models.NewCourseSet(strings.Split(courses, ",")...)
	}
	return &s, nil
}

func getUser(ctx context.Context, q queryer, userUID string) (*models.Snapshot, error) {
	query := snapshotSelect + `
			  WHERE u.uid = $1
			  GROUP BY u.uid`
	return scanSnapshot(q.QueryRowContext(ctx, query, userUID))
}

// CreateUser сохраняет нового пользователя со значениями прав по умолчанию.
func (s *Storage) CreateUser(ctx context.Context, email string) (*models.Snapshot, error) {
	const op = "storage.CreateUser"

	var uid string
	query := `INSERT INTO users (email) VALUES ($1) RETURNING uid::text`
	if err := s.DB.QueryRowContext(ctx, query, email).Scan(&uid); err != nil {
		return nil, translate(op, err, "user", email)
	}
	snapshot, err := getUser(ctx, s.DB, uid)
	if err != nil {
		return nil, translate(op, err, "user", uid)
	}
	return snapshot, nil
}

// GetUser возвращает снимок прав пользователя вместе с множеством его курсов.
func (s *Storage) GetUser(ctx context.Context, userUID string) (*models.Snapshot, error) {
	const op = "storage.GetUser"
	if !validID(userUID) {
		return nil, fmt.Errorf("%s: %w: user id %q", op, apperr.ErrInvalidInput, userUID)
	}

	snapshot, err := getUser(ctx, s.DB, userUID)
	if err != nil {
		return nil, translate(op, err, "user", userUID)
	}
	return snapshot, nil
}

// GetUserByEmail возвращает снимок прав пользователя по электронной почте.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.Snapshot, error) {
	const op = "storage.GetUserByEmail"

	query := snapshotSelect + `
			  WHERE u.email = $1
			  GROUP BY u.uid`
	snapshot, err := scanSnapshot(s.DB.QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, translate(op, err, "user", email)
	}
	return snapshot, nil
}

// UpdateEntitlement применяет patch, только если версия пользователя равна expectedVersion.
// При несовпадении версии возвращает apperr.ErrConflict, при отсутствии пользователя NotFound.
func (s *Storage) UpdateEntitlement(ctx context.Context, userUID string, expectedVersion int64,
	patch models.EntitlementPatch) (*models.Snapshot, error) {
	const op = "storage.UpdateEntitlement"
	if !validID(userUID) {
		return nil, fmt.Errorf("%s: %w: user id %q", op, apperr.ErrInvalidInput, userUID)
	}

	var (
		status *string
		role   *string
	)
	if patch.SubscriptionStatus != nil {
		v := string(*patch.SubscriptionStatus)
		status = &v
	}
	if patch.Role != nil {
		v := string(*patch.Role)
		role = &v
	}

	var result *models.Snapshot
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		query := `UPDATE users
			      SET is_premium = COALESCE($3, is_premium),
			          subscription_status = COALESCE($4, subscription_status),
			          subscription_expiry = COALESCE($5, subscription_expiry),
			          is_activated = COALESCE($6, is_activated),
			          role = COALESCE($7, role),
			          version = version + 1,
			          updated_at = NOW()
			      WHERE uid = $1 AND version = $2`
		res, err := tx.ExecContext(ctx, query, userUID, expectedVersion,
			patch.IsPremium, status, patch.SubscriptionExpire, patch.IsActivated, role)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			var exists bool
			if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE uid = $1)`,
				userUID).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return sql.ErrNoRows
			}
			return apperr.ErrConflict
		}
		result, err = getUser(ctx, tx, userUID)
		return err
	})
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, fmt.Errorf("%s: %w: version %d is stale", op, apperr.ErrConflict, expectedVersion)
		}
		return nil, translate(op, err, "user", userUID)
	}
	return result, nil
}

// FindSubscriptionsExpiringBetween возвращает премиум-пользователей, чья подписка
// заканчивается в полуинтервале [from, to).
func (s *Storage) FindSubscriptionsExpiringBetween(ctx context.Context, from, to time.Time) ([]*models.Snapshot, error) {
	const op = "storage.FindSubscriptionsExpiringBetween"

	query := snapshotSelect + `
			  WHERE u.is_premium
			    AND u.subscription_expiry >= $1
			    AND u.subscription_expiry < $2
			  GROUP BY u.uid
			  ORDER BY u.subscription_expiry`
	return s.listSnapshots(ctx, op, query, from, to)
}

func (s *Storage) listSnapshots(ctx context.Context, op, query string, args ...any) ([]*models.Snapshot, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(op, err, "user", "")
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Snapshot
	for rows.Next() {
		snapshot, err := scanSnapshot(rows)
		if err != nil {
			return nil, translate(op, err, "user", "")
		}
		result = append(result, snapshot)
	}
	if err = rows.Err(); err != nil {
		return nil, translate(op, err, "user", "")
	}
	return result, nil
}
