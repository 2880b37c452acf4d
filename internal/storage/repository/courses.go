package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/course-access/internal/lib/apperr"
	"github.com/magabrotheeeer/course-access/internal/models"
)

const courseSelect = `SELECT c.id::text, c.title, c.slug, c.product_identifier, c.created_at
			  FROM courses c`

func scanCourse(row rowScanner) (*models.Course, error) {
	var c models.Course
	if err := row.Scan(&c.ID, &c.Title, &c.Slug, &c.ProductIdentifier, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCourse в одной транзакции сохраняет курс и алиасы продуктов магазина.
// На дубликат слага или идентификатора продукта возвращает Conflict.
func (s *Storage) CreateCourse(ctx context.Context, course models.Course, storeProductIDs []string) (*models.Course, error) {
	const op = "storage.CreateCourse"

	var created *models.Course
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		query := `INSERT INTO courses (title, slug, product_identifier)
				  VALUES ($1, $2, $3)
				  RETURNING id::text, title, slug, product_identifier, created_at`
		var err error
		created, err = scanCourse(tx.QueryRowContext(ctx, query, course.Title, course.Slug, course.ProductIdentifier))
		if err != nil {
			return err
		}
		for _, storeID := range storeProductIDs {
			if err := saveProductAlias(ctx, tx, storeID, created.ProductIdentifier); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, translate(op, err, "course", course.Slug)
	}
	return created, nil
}

// FindCourseByID возвращает курс по идентификатору.
func (s *Storage) FindCourseByID(ctx context.Context, id string) (*models.Course, error) {
	const op = "storage.FindCourseByID"
	if !validID(id) {
		return nil, fmt.Errorf("%s: %w", op, apperr.NotFound("course", id))
	}

	course, err := scanCourse(s.DB.QueryRowContext(ctx, courseSelect+` WHERE c.id = $1`, id))
	if err != nil {
		return nil, translate(op, err, "course", id)
	}
	return course, nil
}

// FindCourseBySlug возвращает курс по слагу.
func (s *Storage) FindCourseBySlug(ctx context.Context, slug string) (*models.Course, error) {
	const op = "storage.FindCourseBySlug"

	course, err := scanCourse(s.DB.QueryRowContext(ctx, courseSelect+` WHERE c.slug = $1`, slug))
	if err != nil {
		return nil, translate(op, err, "course", slug)
	}
	return course, nil
}

// FindCourseByProductIdentifier возвращает курс по нормализованному идентификатору продукта.
func (s *Storage) FindCourseByProductIdentifier(ctx context.Context, identifier string) (*models.Course, error) {
	const op = "storage.FindCourseByProductIdentifier"

	course, err := scanCourse(s.DB.QueryRowContext(ctx, courseSelect+` WHERE c.product_identifier = $1`, identifier))
	if err != nil {
		return nil, translate(op, err, "course", identifier)
	}
	return course, nil
}

// ListCourses возвращает курсы с пагинацией.
func (s *Storage) ListCourses(ctx context.Context, limit, offset int) ([]*models.Course, error) {
	const op = "storage.ListCourses"
	return s.listCourses(ctx, op, courseSelect+` ORDER BY c.created_at, c.id LIMIT $1 OFFSET $2`, limit, offset)
}

func (s *Storage) listCourses(ctx context.Context, op, query string, args ...any) ([]*models.Course, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(op, err, "course", "")
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Course
	for rows.Next() {
		course, err := scanCourse(rows)
		if err != nil {
			return nil, translate(op, err, "course", "")
		}
		result = append(result, course)
	}
	if err = rows.Err(); err != nil {
		return nil, translate(op, err, "course", "")
	}
	return result, nil
}

// SaveProductAlias связывает идентификатор продукта магазина с нормализованным идентификатором курса.
func (s *Storage) SaveProductAlias(ctx context.Context, storeProductID, identifier string) error {
	const op = "storage.SaveProductAlias"

	if err := saveProductAlias(ctx, s.DB, storeProductID, identifier); err != nil {
		return translate(op, err, "product alias", storeProductID)
	}
	return nil
}

func saveProductAlias(ctx context.Context, q queryer, storeProductID, identifier string) error {
	_, err := q.ExecContext(ctx, `INSERT INTO product_aliases (store_product_id, product_identifier)
			  VALUES ($1, $2)
			  ON CONFLICT (store_product_id) DO UPDATE SET product_identifier = EXCLUDED.product_identifier`,
		storeProductID, identifier)
	return err
}

// FindProductAlias возвращает нормализованный идентификатор для продукта магазина.
func (s *Storage) FindProductAlias(ctx context.Context, storeProductID string) (string, error) {
	const op = "storage.FindProductAlias"

	var identifier string
	err := s.DB.QueryRowContext(ctx,
		`SELECT product_identifier FROM product_aliases WHERE store_product_id = $1`, storeProductID).Scan(&identifier)
	if err != nil {
		return "", translate(op, err, "product alias", storeProductID)
	}
	return identifier, nil
}
