// Package subscription обрабатывает события биллинга: переводит статус
// подписки по таблице переходов и записывает пользователя на курс при
// разовой покупке. Обработка никогда не возвращает ошибку вызывающему,
// все сбои логируются и учитываются в метриках.
package subscription

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/course-access/internal/lib/sl"
	"github.com/magabrotheeeer/course-access/internal/metrics"
	"github.com/magabrotheeeer/course-access/internal/models"
	"github.com/magabrotheeeer/course-access/internal/notify"
	"github.com/magabrotheeeer/course-access/internal/services/entitlement"
)

// Transition возвращает изменение прав для события по таблице переходов.
// false означает, что событие не меняет статус подписки.
func Transition(ev models.BillingEvent, now time.Time) (models.EntitlementPatch, bool) {
	var (
		premium bool
		status  models.SubscriptionStatus
		expiry  = ev.ExpiresAt
	)

	switch ev.Type {
	case models.EventInitialPurchase, models.EventRenewal, models.EventUncancellation:
		premium, status = true, models.StatusActive
	case models.EventCancellation:
		premium, status = true, models.StatusCancelled
	case models.EventExpiration:
		premium, status = false, models.StatusExpired
		if expiry == nil {
			expiry = &now
		}
	default:
		return models.EntitlementPatch{}, false
	}

	patch := models.EntitlementPatch{IsPremium: &premium, SubscriptionStatus: &status}
	if expiry != nil {
		exp := expiry.UTC()
		patch.SubscriptionExpire = &exp
	}
	return patch, true
}

// plan уточняет Transition с учётом текущего снимка: повторное EXPIRATION без
// даты не сдвигает уже записанную дату окончания.
func plan(current models.Snapshot, ev models.BillingEvent, now time.Time) (models.EntitlementPatch, bool) {
	patch, ok := Transition(ev, now)
	if !ok {
		return patch, false
	}
	if ev.Type == models.EventExpiration && ev.ExpiresAt == nil &&
		current.SubscriptionStatus == models.StatusExpired && current.SubscriptionExpire != nil {
		patch.SubscriptionExpire = nil
	}
	return patch, true
}

// Entitlements читает и изменяет права пользователя.
type Entitlements interface {
	ValidUserID(id string) bool
	Update(ctx context.Context, userUID string, mutate entitlement.Mutation) (*models.Snapshot, bool, error)
}

// Courses разрешает идентификатор продукта в курс.
type Courses interface {
	FindByProduct(ctx context.Context, productID string) (*models.Course, error)
}

// Enroller записывает пользователя на курс.
type Enroller interface {
	Enroll(ctx context.Context, courseID, userUID string) (*models.Snapshot, error)
}

// Processor применяет события биллинга к правам пользователей.
type Processor struct {
	entitlements Entitlements
	courses      Courses
	enroller     Enroller
	notifier     notify.Notifier
	log          *slog.Logger
	timeout      time.Duration
	now          func() time.Time
}

// NewProcessor создаёт Processor. timeout ограничивает обработку одного события.
func NewProcessor(entitlements Entitlements, courses Courses, enroller Enroller,
	notifier notify.Notifier, log *slog.Logger, timeout time.Duration) *Processor {
	return &Processor{
		entitlements: entitlements,
		courses:      courses,
		enroller:     enroller,
		notifier:     notifier,
		log:          log,
		timeout:      timeout,
		now:          time.Now,
	}
}

// Process обрабатывает событие. Метод не возвращает ошибок: вебхук должен
// подтвердить получение независимо от результата.
func (p *Processor) Process(ctx context.Context, ev models.BillingEvent) {
	const op = "subscription.Process"
	log := p.log.With(
		slog.String("op", op),
		slog.String("event_type", ev.RawType),
		sl.UserID(ev.AppUserID),
	)

	outcome := p.process(ctx, log, ev)
	metrics.BillingEvents.WithLabelValues(string(ev.Type), outcome).Inc()
}

func (p *Processor) process(ctx context.Context, log *slog.Logger, ev models.BillingEvent) string {
	switch ev.Type {
	case models.EventTest:
		log.Info("test billing event received")
		return metrics.OutcomeIgnored
	case models.EventUnrecognized:
		log.Warn("unrecognized billing event type")
		return metrics.OutcomeIgnored
	}

	if ev.AppUserID == "" || !p.entitlements.ValidUserID(ev.AppUserID) {
		log.Warn("billing event subject id is missing or malformed")
		return metrics.OutcomeRejected
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	if ev.Type == models.EventNonRenewingPurchase {
		return p.purchase(ctx, log, ev)
	}

	now := p.now().UTC()
	updated, changed, err := p.entitlements.Update(ctx, ev.AppUserID, func(current models.Snapshot) (models.EntitlementPatch, bool) {
		return plan(current, ev, now)
	})
	if err != nil {
		log.Error("failed to apply billing event", sl.Err(err))
		return metrics.OutcomeFailed
	}
	if !changed {
		log.Info("billing event changed nothing")
		return metrics.OutcomeNoop
	}

	log.Info("subscription updated",
		slog.String("status", string(updated.SubscriptionStatus)),
		slog.Bool("premium", updated.IsPremium))
	p.notifier.Notify(updated.UUID, notify.Event{
		Kind:      notify.KindSubscriptionChanged,
		Status:    string(updated.SubscriptionStatus),
		ExpiresAt: updated.SubscriptionExpire,
	})
	return metrics.OutcomeApplied
}

func (p *Processor) purchase(ctx context.Context, log *slog.Logger, ev models.BillingEvent) string {
	if ev.ProductID == "" {
		log.Warn("one-time purchase without product id")
		return metrics.OutcomeRejected
	}
	log = log.With(slog.String("product_id", ev.ProductID))

	course, err := p.courses.FindByProduct(ctx, ev.ProductID)
	if err != nil {
		log.Error("failed to resolve purchased course", sl.Err(err))
		return metrics.OutcomeFailed
	}
	if _, err := p.enroller.Enroll(ctx, course.ID, ev.AppUserID); err != nil {
		log.Error("failed to enroll after purchase", sl.CourseID(course.ID), sl.Err(err))
		return metrics.OutcomeFailed
	}

	log.Info("one-time purchase enrolled user", sl.CourseID(course.ID))
	return metrics.OutcomeEnrolled
}
