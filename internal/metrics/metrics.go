// Package metrics регистрирует счётчики Prometheus сервиса.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BillingEvents считает обработанные события биллинга по типу и исходу.
	BillingEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_events_total",
		Help: "Processed billing webhook events by type and outcome.",
	}, []string{"type", "outcome"})

	// AccessDecisions считает решения о доступе.
	AccessDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "access_decisions_total",
		Help: "Access decisions by result and deny reason.",
	}, []string{"result", "reason"})

	// NotificationsDropped считает уведомления, отброшенные из-за переполнения буфера или ошибки публикации.
	NotificationsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifications_dropped_total",
		Help: "Notifications dropped because the buffer was full or publishing failed.",
	})
)

// Исходы обработки события биллинга.
const (
	OutcomeApplied  = "applied"
	OutcomeNoop     = "noop"
	OutcomeIgnored  = "ignored"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
	OutcomeEnrolled = "enrolled"
)

// Результаты решения о доступе.
const (
	ResultAllow = "allow"
	ResultDeny  = "deny"
)
