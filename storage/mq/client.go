package mq

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"SolGuard/config"
)

// 交换机 / 队列拓扑
// escalation.topic: 漏卡告警，worker 消费后给紧急联系人发短信
// scheduler.delayed: 延迟消息（打卡提醒），依赖 rabbitmq_delayed_message_exchange 插件
const (
	EscalationExchange = "escalation.topic"
	EscalationQueue    = "escalation.dispatch"
	EscalationRoute    = "escalation.dispatch"

	DelayedExchange = "scheduler.delayed"
	ReminderQueue   = "checkin.reminder"
	ReminderRoute   = "checkin.reminder"
)

var (
	conn     *amqp.Connection
	connOnce sync.Once
	connErr  error
)

func Init() error {
	connOnce.Do(func() {
		conn, connErr = amqp.Dial(config.Cfg.GetRabbitMQURL())
		if connErr != nil {
			return
		}

		ch, err := conn.Channel()
		if err != nil {
			connErr = err
			return
		}
		defer ch.Close()

		connErr = declareTopology(ch)
	})

	return connErr
}

func Connection() *amqp.Connection {
	return conn
}

func Close(ctx context.Context) error {
	if conn == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- conn.Close()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func declareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(
		EscalationExchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare exchange %s: %w", EscalationExchange, err)
	}

	if err := ch.ExchangeDeclare(
		DelayedExchange,
		"x-delayed-message",
		true,
		false,
		false,
		false,
		amqp.Table{"x-delayed-type": "direct"},
	); err != nil {
		return fmt.Errorf("declare exchange %s: %w", DelayedExchange, err)
	}

	queues := []struct {
		name     string
		exchange string
		route    string
	}{
		{EscalationQueue, EscalationExchange, EscalationRoute},
		{ReminderQueue, DelayedExchange, ReminderRoute},
	}

	for _, q := range queues {
		if _, err := ch.QueueDeclare(q.name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
		if err := ch.QueueBind(q.name, q.route, q.exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", q.name, err)
		}
	}

	return nil
}
