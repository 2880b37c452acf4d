// Package repository реализует хранилище прав пользователей и каталога курсов
// на PostgreSQL. Каждая операция атомарна; изменение прав выполняется
// условным обновлением по полю version, поэтому параллельные изменения
// разных пользователей не блокируют друг друга.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 5 * time.Minute
)

// Storage инкапсулирует соединение с базой данных PostgreSQL.
type Storage struct {
	DB *sql.DB
}

// queryer общее подмножество *sql.DB и *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// New создаёт подключение к PostgreSQL и проверяет его доступность.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB: db,
	}, nil
}

// CheckDatabaseReady проверяет, что миграции применены.
func CheckDatabaseReady(ctx context.Context, storage *Storage) error {
	var exists bool
	err := storage.DB.QueryRowContext(ctx, `SELECT EXISTS (
        SELECT FROM information_schema.tables
        WHERE table_name = 'user_courses'
    )`).Scan(&exists)
	if err != nil {
		return fmt.Errorf("storage.CheckDatabaseReady: %w", err)
	}
	if !exists {
		return fmt.Errorf("storage.CheckDatabaseReady: required table user_courses missing")
	}
	return nil
}

// ValidUserID проверяет, что идентификатор имеет формат, принятый в хранилище (UUID).
func (s *Storage) ValidUserID(id string) bool {
	return validID(id)
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (s *Storage) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
