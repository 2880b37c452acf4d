// Package courseaccess собирает HTTP-приложение сервиса доступа к курсам.
package courseaccess

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/magabrotheeeer/course-access/docs"
	"github.com/magabrotheeeer/course-access/internal/http/handlers/admin/activation"
	"github.com/magabrotheeeer/course-access/internal/http/handlers/admin/register"
	"github.com/magabrotheeeer/course-access/internal/http/handlers/admin/role"
	"github.com/magabrotheeeer/course-access/internal/http/handlers/content/lesson"
	"github.com/magabrotheeeer/course-access/internal/http/handlers/content/section"
	"github.com/magabrotheeeer/course-access/internal/http/handlers/course/alias"
	"github.com/magabrotheeeer/course-access/internal/http/handlers/course/create"
	"github.com/magabrotheeeer/course-access/internal/http/handlers/course/list"
	"github.com/magabrotheeeer/course-access/internal/http/handlers/course/read"
	"github.com/magabrotheeeer/course-access/internal/http/handlers/enrollment/enroll"
	"github.com/magabrotheeeer/course-access/internal/http/handlers/enrollment/self"
	"github.com/magabrotheeeer/course-access/internal/http/handlers/enrollment/students"
	"github.com/magabrotheeeer/course-access/internal/http/handlers/enrollment/unenroll"
	"github.com/magabrotheeeer/course-access/internal/http/handlers/health"
	"github.com/magabrotheeeer/course-access/internal/http/handlers/payment/paymentwebhook"
	"github.com/magabrotheeeer/course-access/internal/http/handlers/user/courses"
	"github.com/magabrotheeeer/course-access/internal/http/handlers/user/me"
	"github.com/magabrotheeeer/course-access/internal/http/middlewarectx"
	"github.com/magabrotheeeer/course-access/internal/lib/jwt"
	"github.com/magabrotheeeer/course-access/internal/models"
	"github.com/magabrotheeeer/course-access/internal/services/access"
	"github.com/magabrotheeeer/course-access/internal/services/content"
	"github.com/magabrotheeeer/course-access/internal/services/course"
	"github.com/magabrotheeeer/course-access/internal/services/enrollment"
	"github.com/magabrotheeeer/course-access/internal/services/entitlement"
	"github.com/magabrotheeeer/course-access/internal/services/subscription"
	"github.com/magabrotheeeer/course-access/internal/services/user"
)

// Services зависимости, которые нужны маршрутам.
type Services struct {
	Entitlements  *entitlement.Service
	Courses       *course.Service
	Content       *content.Service
	Enrollments   *enrollment.Service
	Users         *user.Service
	Processor     *subscription.Processor
	Access        *access.Engine
	Tokens        jwt.Maker
	Limiter       *middlewarectx.IPRateLimiter
	WebhookSecret string
	Checkers      map[string]health.Checker
	// RequestTimeout ограничивает обработку запроса к /api/v1; 0 без ограничения.
	RequestTimeout time.Duration
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, s Services) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
	)

	r.Get("/health", health.New(logger, s.Checkers).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)

	r.Route("/api/v1", func(r chi.Router) {
		if s.RequestTimeout > 0 {
			r.Use(middleware.Timeout(s.RequestTimeout))
		}

		// Вебхук биллинга аутентифицируется общим секретом, а не JWT
		r.Post("/payments/webhook", paymentwebhook.New(logger, s.Processor, s.WebhookSecret).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(logger, s.Limiter))
			r.Use(middlewarectx.JWTMiddleware(s.Tokens, logger))
			r.Use(middlewarectx.SnapshotMiddleware(logger, s.Entitlements))

			r.Get("/users/me", me.New(logger).ServeHTTP)
			r.Get("/users/me/courses", courses.New(logger, s.Enrollments).ServeHTTP)

			r.Get("/courses", list.New(logger, s.Courses).ServeHTTP)
			r.With(middlewarectx.RequireRole(logger, models.RoleAdmin, models.RoleInstructor)).
				Post("/courses", create.New(logger, s.Courses).ServeHTTP)
			r.With(
				middlewarectx.RequireActivated(logger),
				middlewarectx.CourseAccess(logger, s.Access, "courseSlug"),
			).Get("/courses/{courseSlug}", read.New(logger, s.Courses).ServeHTTP)

			selfEnroll := self.New(logger, s.Enrollments)
			r.With(middlewarectx.RequireActivated(logger)).Post("/courses/{courseId}/enroll", selfEnroll.Enroll)
			r.With(middlewarectx.RequireActivated(logger)).Delete("/courses/{courseId}/enroll", selfEnroll.Unenroll)

			// Содержимое курса
			r.Group(func(r chi.Router) {
				r.Use(
					middlewarectx.RequireActivated(logger),
					middlewarectx.CourseAccess(logger, s.Access, "courseSlug"),
				)
				sections := section.New(logger, s.Content)
				lessons := lesson.New(logger, s.Content)
				editor := middlewarectx.RequireRole(logger, models.RoleAdmin, models.RoleInstructor)

				r.Get("/courses/{courseSlug}/progress", lessons.Progress)
				r.Route("/courses/{courseSlug}/sections", func(r chi.Router) {
					r.Get("/", sections.List)
					r.With(editor).Post("/", sections.Create)
					r.Get("/{sectionSlug}", sections.Get)
					r.With(editor).Patch("/{sectionSlug}", sections.Update)
					r.With(editor).Delete("/{sectionSlug}", sections.Delete)

					r.Get("/{sectionSlug}/lessons", lessons.List)
					r.With(editor).Post("/{sectionSlug}/lessons", lessons.Create)
					r.Get("/{sectionSlug}/lessons/{lessonId}", lessons.Get)
					r.With(editor).Patch("/{sectionSlug}/lessons/{lessonId}", lessons.Update)
					r.With(editor).Delete("/{sectionSlug}/lessons/{lessonId}", lessons.Delete)
					r.Patch("/{sectionSlug}/lessons/{lessonId}/complete", lessons.Complete)
				})
			})

			// Администрирование
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.RequireRole(logger, models.RoleAdmin))

				r.Get("/courses/{courseId}/students", students.New(logger, s.Enrollments).ServeHTTP)
				r.Post("/courses/{courseId}/students/{userId}", enroll.New(logger, s.Enrollments).ServeHTTP)
				r.Delete("/courses/{courseId}/students/{userId}", unenroll.New(logger, s.Enrollments).ServeHTTP)

				r.Post("/admin/users", register.New(logger, s.Users, s.Tokens).ServeHTTP)
				r.Patch("/admin/users/{userId}/activation", activation.New(logger, s.Users).ServeHTTP)
				r.Patch("/admin/users/{userId}/role", role.New(logger, s.Users).ServeHTTP)
				r.Post("/admin/product-aliases", alias.New(logger, s.Courses).ServeHTTP)
			})
		})
	})
}
