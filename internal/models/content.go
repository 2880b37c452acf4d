package models

import "time"

// LessonType формат урока.
type LessonType string

const (
	LessonVideo LessonType = "VIDEO"
	LessonText  LessonType = "TEXT"
)

// Section раздел курса. Слаг уникален в пределах курса.
type Section struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"course_id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Position    int       `json:"position"` // Порядковый номер внутри курса, начиная с 1
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SectionDraft используется для приёма данных из JSON-запроса на создание раздела.
type SectionDraft struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"required,max=2000"`
}

// SectionPatch частичное обновление раздела. Пустые поля не меняются.
type SectionPatch struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
}

// Lesson урок внутри раздела.
type Lesson struct {
	ID          string     `json:"id"`
	SectionID   string     `json:"section_id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Description string     `json:"description"`
	Source      string     `json:"source,omitempty"` // Ссылка на видео или внешний материал
	Type        LessonType `json:"type"`
	Content     string     `json:"content,omitempty"`
	Position    int        `json:"position"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// LessonDraft используется для приёма данных из JSON-запроса на создание урока.
type LessonDraft struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"required,max=2000"`
	Source      string     `json:"source,omitempty" validate:"omitempty,url,max=2000"`
	Type        LessonType `json:"type,omitempty" validate:"omitempty,oneof=VIDEO TEXT"`
	Content     string     `json:"content,omitempty" validate:"omitempty,max=100000"`
}

// LessonPatch частичное обновление урока.
type LessonPatch struct {
	Title       *string     `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string     `json:"description,omitempty" validate:"omitempty,max=2000"`
	Source      *string     `json:"source,omitempty" validate:"omitempty,max=2000"`
	Type        *LessonType `json:"type,omitempty" validate:"omitempty,oneof=VIDEO TEXT"`
	Content     *string     `json:"content,omitempty" validate:"omitempty,max=100000"`
}

// LessonProgress отметка о прохождении урока пользователем.
type LessonProgress struct {
	UserUID     string    `json:"user_uid"`
	LessonID    string    `json:"lesson_id"`
	IsCompleted bool      `json:"is_completed"`
	CompletedAt time.Time `json:"completed_at"`
}

// CourseProgress прогресс пользователя по курсу.
type CourseProgress struct {
	CourseID           string   `json:"course_id"`
	TotalLessons       int      `json:"total_lessons"`
	CompletedLessonIDs []string `json:"completed_lesson_ids"`
}

// Percent доля пройденных уроков в процентах, округлённая вниз.
func (p CourseProgress) Percent() int {
	if p.TotalLessons == 0 {
		return 0
	}
	return len(p.CompletedLessonIDs) * 100 / p.TotalLessons
}
