package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/magabrotheeeer/course-access/internal/lib/apperr"
)

const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
	pgInvalidTextRepr     = "22P02"
	pgCheckViolation      = "23514"
)

// translate приводит ошибки драйвера к таксономии apperr.
// entity и id используются для sql.ErrNoRows.
func translate(op string, err error, entity, id string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, apperr.NotFound(entity, id))
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgForeignKeyViolation:
			return fmt.Errorf("%s: %w", op, apperr.NotFound(referencedEntity(pgErr.ConstraintName), ""))
		case pgUniqueViolation:
			return fmt.Errorf("%s: %w: %s", op, apperr.ErrConflict, pgErr.ConstraintName)
		case pgInvalidTextRepr, pgCheckViolation:
			return fmt.Errorf("%s: %w: %s", op, apperr.ErrInvalidInput, pgErr.Message)
		}
	}

	return fmt.Errorf("%s: %w", op, apperr.FromContext(err))
}

// referencedEntity определяет сущность по имени внешнего ключа из миграций.
func referencedEntity(constraint string) string {
	switch {
	case strings.HasSuffix(constraint, "_course"):
		return "course"
	case strings.HasSuffix(constraint, "_user"):
		return "user"
	case strings.HasSuffix(constraint, "_section"):
		return "section"
	case strings.HasSuffix(constraint, "_lesson"):
		return "lesson"
	default:
		return "entity"
	}
}
