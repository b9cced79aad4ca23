package ingest

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Queue RabbitMQ 队列连接
type Queue struct {
	Connection *amqp.Connection
	Channel    *amqp.Channel
	Queue      amqp.Queue
}

// Dial 连接并声明队列
func Dial(url, name string, prefetch int) (*Queue, error) {
	q := &Queue{}
	var err error
	q.Connection, err = amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	q.Channel, err = q.Connection.Channel()
	if err != nil {
		q.Connection.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := q.Channel.Qos(prefetch, 0, false); err != nil {
		q.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}
	q.Queue, err = q.Channel.QueueDeclare(name, true, false, false, false, nil)
	if err != nil {
		q.Close()
		return nil, fmt.Errorf("declare queue %s: %w", name, err)
	}
	return q, nil
}

// Close 关闭通道和连接
func (q *Queue) Close() {
	q.Channel.Close()
	q.Connection.Close()
}

// Publish 发布消息
func (q *Queue) Publish(ctx context.Context, body []byte) error {
	return q.Channel.PublishWithContext(ctx, "", q.Queue.Name, false, false, newPublishing(body, time.Now()))
}

// newPublishing 构造持久化消息，Timestamp 用于统计排队耗时
func newPublishing(body []byte, at time.Time) amqp.Publishing {
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    at,
		Body:         body,
	}
}

// Consume 开始消费 (手动确认)
func (q *Queue) Consume(consumer string) (<-chan amqp.Delivery, error) {
	msgs, err := q.Channel.Consume(q.Queue.Name, consumer, false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", q.Queue.Name, err)
	}
	return msgs, nil
}
