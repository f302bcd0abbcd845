package rabbitmq

// NotificationsExchange direct-exchange для всех уведомлений пользователям.
const NotificationsExchange = "notifications"

// Очередь напоминаний об окончании пробного периода.
const (
	TrialReminderQueue      = "notifications.trial_expiring"
	TrialReminderRoutingKey = "trial_expiring"
)

// prefetchCount совпадает с числом одновременно обрабатываемых сообщений.
const prefetchCount = 10

// QueueConfig очередь и ключ маршрутизации, которым она привязана к exchange.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetNotificationQueues очереди, которые объявляют и планировщик, и отправитель.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: TrialReminderQueue, RoutingKey: TrialReminderRoutingKey},
	}
}
