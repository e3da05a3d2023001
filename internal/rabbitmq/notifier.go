package rabbitmq

import (
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/chatwave-backend/internal/models"
)

// Notifier публикует доменные события в обменник уведомлений.
type Notifier struct {
	ch *amqp.Channel
}

// NewNotifier создает Notifier поверх открытого канала.
func NewNotifier(ch *amqp.Channel) *Notifier {
	return &Notifier{ch: ch}
}

// PublishSubscriptionActivated отправляет событие активации подписки
// в очередь отправителя писем.
func (n *Notifier) PublishSubscriptionActivated(event models.SubscriptionActivatedEvent) error {
	return PublishMessage(n.ch, Exchange, RoutingKeySubscriptionActivated, event)
}
