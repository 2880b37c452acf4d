package models

import "time"

// EventType закрытое перечисление типов событий биллинга.
type EventType string

const (
	EventInitialPurchase     EventType = "INITIAL_PURCHASE"
	EventRenewal             EventType = "RENEWAL"
	EventUncancellation      EventType = "UNCANCELLATION"
	EventNonRenewingPurchase EventType = "NON_RENEWING_PURCHASE"
	EventCancellation        EventType = "CANCELLATION"
	EventExpiration          EventType = "EXPIRATION"
	EventTest                EventType = "TEST"
	// EventUnrecognized любой тип, которого нет в перечислении.
	EventUnrecognized EventType = "UNRECOGNIZED"
)

// ParseEventType переводит строку провайдера в EventType.
func ParseEventType(raw string) EventType {
	switch t := EventType(raw); t {
	case EventInitialPurchase, EventRenewal, EventUncancellation, EventNonRenewingPurchase,
		EventCancellation, EventExpiration, EventTest:
		return t
	}
	return EventUnrecognized
}

// BillingEvent событие биллинга, полученное через вебхук.
type BillingEvent struct {
	Type      EventType  // Разобранный тип события
	RawType   string     // Тип в том виде, в каком его прислал провайдер
	AppUserID string     // Идентификатор пользователя на стороне провайдера
	ExpiresAt *time.Time // Дата окончания, если провайдер её прислал
	ProductID string     // Идентификатор продукта для разовых покупок
}
