package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/chat-relay/internal/lib/sl"
)

// ErrDrop оборачивается обработчиком, если сообщение нельзя обработать
// никогда (например, некорректный JSON). Такое сообщение не возвращается в очередь.
var ErrDrop = errors.New("drop message")

// ConsumerMessage запускает потребителя очереди. Сообщения обрабатываются
// параллельно, не более prefetchCount одновременно. Ошибка обработчика
// возвращает сообщение в очередь, кроме ошибок ErrDrop.
//
// Возвращаемый канал закрывается, когда потребитель остановлен и все
// начатые обработчики завершились.
func ConsumerMessage(ctx context.Context, ch *amqp.Channel, queueName string, handler func(context.Context, []byte) error, log *slog.Logger) (<-chan struct{}, error) {
	const op = "rabbitmq.ConsumerMessage"
	delivery, err := ch.Consume(
		queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log = log.With(slog.String("op", op), slog.String("queue", queueName))
	done := make(chan struct{})
	go func() {
		defer close(done)
		dispatch(ctx, delivery, handler, prefetchCount, log)
	}()
	return done, nil
}

// dispatch раздает сообщения обработчикам, пока не отменен ctx или не закрыт
// канал доставки, и дожидается завершения уже запущенных обработчиков.
// Обработчики получают контекст без отмены, чтобы начатая доставка
// завершилась при остановке.
func dispatch(ctx context.Context, delivery <-chan amqp.Delivery, handler func(context.Context, []byte) error, limit int, log *slog.Logger) {
	var wg sync.WaitGroup
	defer wg.Wait()

	handlerCtx := context.WithoutCancel(ctx)
	sem := make(chan struct{}, limit)
	for {
		select {
		case d, ok := <-delivery:
			if !ok {
				log.Info("delivery channel closed")
				return
			}
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				if err := d.Nack(false, true); err != nil {
					log.Error("failed to requeue message", sl.Err(err))
				}
				return
			}
			wg.Add(1)
			go func(d amqp.Delivery) {
				defer wg.Done()
				defer func() { <-sem }()
				handleDelivery(handlerCtx, d, handler, log)
			}(d)
		case <-ctx.Done():
			return
		}
	}
}

// Acknowledger подтверждение доставки. amqp.Delivery удовлетворяет интерфейсу.
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func handleDelivery(ctx context.Context, d amqp.Delivery, handler func(context.Context, []byte) error, log *slog.Logger) {
	settle(d, handler(ctx, d.Body), log)
}

func settle(ack Acknowledger, handlerErr error, log *slog.Logger) {
	if handlerErr != nil {
		requeue := !errors.Is(handlerErr, ErrDrop)
		log.Error("failed to handle message", sl.Err(handlerErr), slog.Bool("requeue", requeue))
		if err := ack.Nack(false, requeue); err != nil {
			log.Error("failed to nack message", sl.Err(err))
		}
		return
	}
	if err := ack.Ack(false); err != nil {
		log.Error("failed to ack message", sl.Err(err))
	}
}
