// Package scheduler периодически напоминает пользователям о скором окончании
// подписки. Права не изменяются: окончание подписки приходит только из биллинга.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/magabrotheeeer/course-access/internal/lib/sl"
	"github.com/magabrotheeeer/course-access/internal/models"
	"github.com/magabrotheeeer/course-access/internal/notify"
)

// ReminderWindow горизонт, в котором подписка считается заканчивающейся.
const ReminderWindow = 24 * time.Hour

// SubscriptionRepository ищет подписки с окончанием в интервале.
type SubscriptionRepository interface {
	FindSubscriptionsExpiringBetween(ctx context.Context, from, to time.Time) ([]*models.Snapshot, error)
}

// Service рассылает напоминания об окончании подписки.
type Service struct {
	repo     SubscriptionRepository
	notifier notify.Notifier
	log      *slog.Logger
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	covered time.Time // правая граница уже просмотренного интервала
}

// New создаёт Service, который проверяет подписки каждые interval.
func New(repo SubscriptionRepository, notifier notify.Notifier, log *slog.Logger, interval time.Duration) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		log:      log,
		interval: interval,
		now:      time.Now,
	}
}

// Run выполняет проверку сразу и затем по таймеру до отмены ctx.
func (s *Service) Run(ctx context.Context) {
	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Service) runOnce(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil {
		s.log.Error("failed to find expiring subscriptions", sl.Err(err))
	}
}

// RunOnce находит подписки, заканчивающиеся в ближайшие сутки, и отправляет
// напоминания. Интервал начинается там, где закончился предыдущий успешный
// проход, поэтому одна подписка напоминается один раз за время жизни процесса.
// Возвращает число отправленных напоминаний.
func (s *Service) RunOnce(ctx context.Context) (int, error) {
	const op = "scheduler.RunOnce"

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	from, to := now, now.Add(ReminderWindow)
	if s.covered.After(from) {
		from = s.covered
	}
	snapshots, err := s.repo.FindSubscriptionsExpiringBetween(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if to.After(s.covered) {
		s.covered = to
	}
	if len(snapshots) == 0 {
		s.log.Info("no expiring subscriptions found")
		return 0, nil
	}

	sent := 0
	for _, snapshot := range snapshots {
		if snapshot.SubscriptionStatus != models.StatusActive && snapshot.SubscriptionStatus != models.StatusCancelled {
			continue
		}
		s.notifier.Notify(snapshot.UUID, notify.Event{
			Kind:      notify.KindSubscriptionExpiring,
			Status:    string(snapshot.SubscriptionStatus),
			ExpiresAt: snapshot.SubscriptionExpire,
		})
		sent++
	}
	s.log.Info("expiry reminders sent", slog.Int("count", sent))
	return sent, nil
}
