// Package access принимает решение о доступе пользователя к ресурсу.
// Решение возвращается значением Decision; ошибка означает только сбой
// поиска курса и никогда не смешивается с отказом политики.
package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/course-access/internal/lib/apperr"
	"github.com/magabrotheeeer/course-access/internal/metrics"
	"github.com/magabrotheeeer/course-access/internal/models"
)

// Причины отказа.
const (
	ReasonUnauthenticated  = "unauthenticated"
	ReasonResourceNotFound = "resource_not_found"
	ReasonNotEnrolled      = "not_enrolled"
)

// CourseLookup ищет курс по слагу.
type CourseLookup interface {
	GetBySlug(ctx context.Context, slug string) (*models.Course, error)
}

// Resource описывает запрашиваемый ресурс. Пустой CourseSlug означает,
// что ресурс не привязан к курсу.
type Resource struct {
	CourseSlug string
}

// Decision результат проверки доступа.
type Decision struct {
	Allowed  bool
	Reason   string
	CourseID string // заполняется, если курс был найден
	resource Resource
}

// Err переводит отказ в ошибку таксономии apperr; для разрешения возвращает nil.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	switch d.Reason {
	case ReasonUnauthenticated:
		return apperr.ErrUnauthenticated
	case ReasonResourceNotFound:
		return apperr.NotFound("course", d.resource.CourseSlug)
	default:
		return apperr.Forbidden(d.Reason)
	}
}

func allow(res Resource, courseID string) Decision {
	return Decision{Allowed: true, CourseID: courseID, resource: res}
}

func deny(res Resource, reason, courseID string) Decision {
	return Decision{Reason: reason, CourseID: courseID, resource: res}
}

// Engine применяет фиксированную политику доступа.
type Engine struct {
	courses CourseLookup
	timeout time.Duration
}

// NewEngine создаёт Engine. timeout ограничивает поиск курса, при 0 поиск не ограничен.
func NewEngine(courses CourseLookup, timeout time.Duration) *Engine {
	return &Engine{courses: courses, timeout: timeout}
}

// Decide проверяет правила по порядку, первое сработавшее определяет результат:
// нет пользователя, привилегированная роль, премиум, ресурс вне курса,
// курс не найден, явная запись на курс.
func (e *Engine) Decide(ctx context.Context, user *models.Snapshot, res Resource) (Decision, error) {
	d, err := e.decide(ctx, user, res)
	if err != nil {
		return Decision{}, err
	}
	if d.Allowed {
		metrics.AccessDecisions.WithLabelValues(metrics.ResultAllow, "").Inc()
	} else {
		metrics.AccessDecisions.WithLabelValues(metrics.ResultDeny, d.Reason).Inc()
	}
	return d, nil
}

func (e *Engine) decide(ctx context.Context, user *models.Snapshot, res Resource) (Decision, error) {
	const op = "access.Decide"

	if user == nil {
		return deny(res, ReasonUnauthenticated, ""), nil
	}
	if user.Role.Privileged() {
		return allow(res, ""), nil
	}
	if user.IsPremium {
		return allow(res, ""), nil
	}
	if res.CourseSlug == "" {
		return allow(res, ""), nil
	}

	lookupCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	course, err := e.courses.GetBySlug(lookupCtx, res.CourseSlug)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return deny(res, ReasonResourceNotFound, ""), nil
		}
		if errors.Is(err, apperr.ErrUnavailable) {
			return Decision{}, fmt.Errorf("%s: %w", op, err)
		}
		return Decision{}, fmt.Errorf("%s: %w: %w", op, apperr.ErrUnavailable, err)
	}

	if user.IsEnrolled(course.ID) {
		return allow(res, course.ID), nil
	}
	return deny(res, ReasonNotEnrolled, course.ID), nil
}
