// Package notify асинхронно отправляет уведомления об изменениях прав.
// Доставка at-most-once: при переполнении буфера или ошибке брокера
// уведомление отбрасывается, операция, которая его породила, не ждёт и не падает.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/magabrotheeeer/course-access/internal/lib/sl"
	"github.com/magabrotheeeer/course-access/internal/metrics"
	"github.com/magabrotheeeer/course-access/internal/rabbitmq"
)

// Kind тип уведомления.
type Kind string

const (
	KindEnrollmentSuccess    Kind = "enrollment_success"
	KindSubscriptionChanged  Kind = "subscription_changed"
	KindSubscriptionExpiring Kind = "subscription_expiring"
)

const publishTimeout = 5 * time.Second

// Event тело уведомления, публикуемое в брокер.
type Event struct {
	Kind      Kind       `json:"event"`
	UserID    string     `json:"user_id"`
	CourseID  string     `json:"course_id,omitempty"`
	Status    string     `json:"status,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// RoutingKey возвращает ключ маршрутизации для типа уведомления.
func (e Event) RoutingKey() string {
	if e.Kind == KindEnrollmentSuccess {
		return rabbitmq.RoutingKeyEnrollment
	}
	return rabbitmq.RoutingKeySubscription
}

// Notifier принимает уведомления без ожидания доставки.
type Notifier interface {
	Notify(userUID string, ev Event)
}

// Publisher отправляет сообщение в брокер.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// AsyncNotifier буферизует уведомления и публикует их в отдельной горутине.
type AsyncNotifier struct {
	pub   Publisher
	log   *slog.Logger
	queue chan Event
	now   func() time.Time
	wg    sync.WaitGroup
}

// NewAsync создаёт AsyncNotifier с буфером на buffer уведомлений.
func NewAsync(pub Publisher, log *slog.Logger, buffer int) *AsyncNotifier {
	return &AsyncNotifier{
		pub:   pub,
		log:   log,
		queue: make(chan Event, max(buffer, 1)),
		now:   time.Now,
	}
}

// Notify ставит уведомление в очередь. Если буфер заполнен, уведомление отбрасывается.
func (n *AsyncNotifier) Notify(userUID string, ev Event) {
	ev.UserID = userUID
	if ev.Timestamp.IsZero() {
		ev.Timestamp = n.now().UTC()
	}
	select {
	case n.queue <- ev:
	default:
		metrics.NotificationsDropped.Inc()
		n.log.Warn("notification buffer is full, dropping",
			slog.String("event", string(ev.Kind)), sl.UserID(userUID))
	}
}

// Start запускает публикацию до отмены ctx.
func (n *AsyncNotifier) Start(ctx context.Context) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-n.queue:
				n.publish(ctx, ev)
			}
		}
	}()
}

// Wait ждёт завершения горутины публикации после отмены контекста Start.
func (n *AsyncNotifier) Wait() {
	n.wg.Wait()
}

func (n *AsyncNotifier) publish(ctx context.Context, ev Event) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := n.pub.Publish(ctx, ev.RoutingKey(), ev); err != nil {
		metrics.NotificationsDropped.Inc()
		n.log.Error("failed to publish notification",
			slog.String("event", string(ev.Kind)), sl.UserID(ev.UserID), sl.Err(err))
		return
	}
	n.log.Debug("notification published", slog.String("event", string(ev.Kind)), sl.UserID(ev.UserID))
}

// Nop отбрасывает все уведомления. Используется, когда брокер не настроен.
type Nop struct{}

// Notify ничего не делает.
func (Nop) Notify(string, Event) {}
