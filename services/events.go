package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	PostEventsExchange = "post_events"
	postEventKind      = "post_published"
)

// PostEvent - событие о новом посте, рассылается подписчикам автора
type PostEvent struct {
	PostID    int64     `json:"post_id"`
	AuthorID  int64     `json:"author_id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

func (e PostEvent) RoutingKey() string {
	return fmt.Sprintf("author.%d", e.AuthorID)
}

type PostEventPublisher interface {
	PublishPostEvent(ctx context.Context, event PostEvent) error
}

// FeedFanout delivers post events to the live sockets of the author's
// followers. It is also the publisher used when RabbitMQ is not configured.
type FeedFanout struct {
	store Store
	conns *WSConnManager
}

func NewFeedFanout(store Store, conns *WSConnManager) *FeedFanout {
	return &FeedFanout{store: store, conns: conns}
}

func (f *FeedFanout) PublishPostEvent(ctx context.Context, event PostEvent) error {
	_, err := f.Deliver(ctx, event)
	return err
}

// Deliver returns the number of sockets the event was written to.
func (f *FeedFanout) Deliver(ctx context.Context, event PostEvent) (int, error) {
	followers, err := f.store.FollowerIDs(ctx, event.AuthorID)
	if err != nil {
		return 0, err
	}
	if len(followers) == 0 {
		return 0, nil
	}

	pushMsg := struct {
		Event string `json:"event"`
		PostEvent
	}{
		Event:     postEventKind,
		PostEvent: event,
	}
	pushData, err := json.Marshal(pushMsg)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal event: %w", err)
	}

	sent := 0
	for _, userID := range followers {
		sent += f.conns.Send(userID, pushData)
	}
	return sent, nil
}

// RabbitMQ публикует события постов в topic exchange и читает их обратно
type RabbitMQ struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// DialRabbitMQ инициализирует соединение и exchange
func DialRabbitMQ(url string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := channel.ExchangeDeclare(
		PostEventsExchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	log.Printf("RabbitMQ initialized, exchange %s", PostEventsExchange)
	return &RabbitMQ{conn: conn, channel: channel, exchange: PostEventsExchange}, nil
}

func (r *RabbitMQ) PublishPostEvent(ctx context.Context, event PostEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.channel.PublishWithContext(ctx,
		r.exchange,
		event.RoutingKey(),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.CreatedAt,
			Body:         body,
		},
	)
}

// StartPostEventConsumer запускает воркер, который слушает события и пушит их через WebSocket.
// Воркер завершается при отмене ctx или закрытии канала.
func (r *RabbitMQ) StartPostEventConsumer(ctx context.Context, queueName string, fanout *FeedFanout) error {
	q, err := r.channel.QueueDeclare(
		queueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := r.channel.QueueBind(q.Name, "author.*", r.exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}
	msgs, err := r.channel.Consume(
		q.Name,
		"",
		true,  // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to start consumer: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					log.Println("ERROR: post events channel closed")
					return
				}
				var event PostEvent
				if err := json.Unmarshal(msg.Body, &event); err != nil {
					log.Println("ERROR: failed to unmarshal post event:", err)
					continue
				}
				if _, err := fanout.Deliver(ctx, event); err != nil {
					log.Printf("ERROR: failed to deliver post %d: %v", event.PostID, err)
				}
			}
		}
	}()
	return nil
}

func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		_ = r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
