// Package sl содержит вспомогательные функции для работы с логгером slog.
// Пакет нужен, чтобы единообразно формировать структурированные поля лога:
// ошибки, идентификаторы пользователей и курсов.
package sl

import "log/slog"

// Err возвращает slog.Attr с ключом "error" и значением текста ошибки.
//
// Пример:
//
//	log.Error("failed to update entitlement", sl.Err(err))
func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// UserID возвращает атрибут с идентификатором пользователя.
func UserID(id string) slog.Attr {
	return slog.String("user_uid", id)
}

// CourseID возвращает атрибут с идентификатором курса.
func CourseID(id string) slog.Attr {
	return slog.String("course_id", id)
}
