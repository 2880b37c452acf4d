// Package models содержит доменные типы сервиса: снимок прав пользователя,
// курс и событие биллинга. Снимок неизменяем: изменения выражаются через
// EntitlementPatch и применяются хранилищем атомарно.
package models

import (
	"encoding/json"
	"slices"
	"time"
)

// Role роль пользователя.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleInstructor Role = "INSTRUCTOR"
	RoleStudent    Role = "STUDENT"
)

// Valid сообщает, входит ли роль в перечисление.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleInstructor, RoleStudent:
		return true
	}
	return false
}

// Privileged сообщает, открыт ли роли доступ ко всем курсам.
func (r Role) Privileged() bool {
	return r == RoleAdmin || r == RoleInstructor
}

// SubscriptionStatus статус подписки пользователя.
type SubscriptionStatus string

const (
	StatusInactive  SubscriptionStatus = "inactive"
	StatusActive    SubscriptionStatus = "active"
	StatusCancelled SubscriptionStatus = "cancelled"
	StatusExpired   SubscriptionStatus = "expired"
)

// Valid сообщает, входит ли статус в перечисление.
func (s SubscriptionStatus) Valid() bool {
	switch s {
	case StatusInactive, StatusActive, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// CourseSet множество идентификаторов курсов, на которые записан пользователь.
// В JSON сериализуется отсортированным массивом.
type CourseSet map[string]struct{}

// NewCourseSet строит множество из списка, дубликаты схлопываются.
func NewCourseSet(ids ...string) CourseSet {
	set := make(CourseSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Has проверяет принадлежность курса множеству.
func (s CourseSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// IDs возвращает отсортированный список идентификаторов.
func (s CourseSet) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// With возвращает копию множества с добавленным курсом.
func (s CourseSet) With(id string) CourseSet {
	out := s.clone()
	out[id] = struct{}{}
	return out
}

// Without возвращает копию множества без курса.
func (s CourseSet) Without(id string) CourseSet {
	out := s.clone()
	delete(out, id)
	return out
}

func (s CourseSet) clone() CourseSet {
	out := make(CourseSet, len(s)+1)
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// MarshalJSON сериализует множество отсортированным массивом.
func (s CourseSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.IDs())
}

// UnmarshalJSON читает множество из массива строк.
func (s *CourseSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewCourseSet(ids...)
	return nil
}

// Snapshot прочитанное в момент времени состояние прав пользователя.
type Snapshot struct {
	UUID               string             `json:"uid"`                           // Идентификатор пользователя
	Email              string             `json:"email"`                         // Электронная почта
	Role               Role               `json:"role"`                          // Роль
	IsActivated        bool               `json:"is_activated"`                  // Активирован администратором
	IsPremium          bool               `json:"is_premium"`                    // Премиум открывает все курсы
	SubscriptionStatus SubscriptionStatus `json:"subscription_status"`           // Статус подписки
	SubscriptionExpire *time.Time         `json:"subscription_expiry,omitempty"` // Дата окончания подписки
	EnrolledCourseIDs  CourseSet          `json:"enrolled_course_ids"`           // Курсы с явной записью
	Version            int64              `json:"version"`                       // Версия для условного обновления
}

// NewSnapshot возвращает снимок нового пользователя со значениями по умолчанию.
func NewSnapshot(uid, email string) Snapshot {
	return Snapshot{
		UUID:               uid,
		Email:              email,
		Role:               RoleStudent,
		SubscriptionStatus: StatusInactive,
		EnrolledCourseIDs:  CourseSet{},
	}
}

// IsEnrolled проверяет явную запись пользователя на курс.
func (s *Snapshot) IsEnrolled(courseID string) bool {
	return s.EnrolledCourseIDs.Has(courseID)
}

// EntitlementPatch частичное изменение прав. nil-поля не меняются.
type EntitlementPatch struct {
	IsPremium          *bool
	SubscriptionStatus *SubscriptionStatus
	SubscriptionExpire *time.Time
	IsActivated        *bool
	Role               *Role
}

// Empty сообщает, что патч ничего не меняет.
func (p EntitlementPatch) Empty() bool {
	return p.IsPremium == nil && p.SubscriptionStatus == nil && p.SubscriptionExpire == nil &&
		p.IsActivated == nil && p.Role == nil
}

// Apply возвращает копию снимка с применённым патчем. Версия не меняется.
func (p EntitlementPatch) Apply(s Snapshot) Snapshot {
	if p.IsPremium != nil {
		s.IsPremium = *p.IsPremium
	}
	if p.SubscriptionStatus != nil {
		s.SubscriptionStatus = *p.SubscriptionStatus
	}
	if p.SubscriptionExpire != nil {
		exp := *p.SubscriptionExpire
		s.SubscriptionExpire = &exp
	}
	if p.IsActivated != nil {
		s.IsActivated = *p.IsActivated
	}
	if p.Role != nil {
		s.Role = *p.Role
	}
	return s
}

// ChangesNothing сообщает, что применение патча не изменит снимок.
// Используется, чтобы повторная доставка события не порождала запись.
func (p EntitlementPatch) ChangesNothing(s Snapshot) bool {
	if p.Empty() {
		return true
	}
	next := p.Apply(s)
	return next.IsPremium == s.IsPremium &&
		next.SubscriptionStatus == s.SubscriptionStatus &&
		next.IsActivated == s.IsActivated &&
		next.Role == s.Role &&
		sameTime(next.SubscriptionExpire, s.SubscriptionExpire)
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
