package rabbitmq

// Ключи маршрутизации уведомлений.
const (
	RoutingKeyEnrollment   = "enrollment"
	RoutingKeySubscription = "subscription"
)

// QueueConfig связывает очередь с ключом маршрутизации.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetNotificationQueues возвращает очереди, которые читают воркеры уведомлений.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "notification.enrollment", RoutingKey: RoutingKeyEnrollment},
		{QueueName: "notification.subscription", RoutingKey: RoutingKeySubscription},
	}
}
