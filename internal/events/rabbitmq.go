package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	DefaultExchange = "letterdesk.events"

	publishTimeout = 2 * time.Second
)

// amqpChannel is the subset of *amqp.Channel used for publishing.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitPublisher publishes JSON events to a durable topic exchange.
type RabbitPublisher struct {
	url      string
	exchange string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   amqpChannel
}

var _ Publisher = (*RabbitPublisher)(nil)

// NewRabbitPublisher dials url and declares the exchange.
func NewRabbitPublisher(url string) (*RabbitPublisher, error) {
	p := &RabbitPublisher{url: url, exchange: DefaultExchange}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *RabbitPublisher) PublishUsersImported(ctx context.Context, evt UsersImported) error {
	return p.publishJSON(ctx, RoutingUsersImported, evt)
}

func (p *RabbitPublisher) PublishLetterStatusChanged(ctx context.Context, evt LetterStatusChanged) error {
	return p.publishJSON(ctx, RoutingLetterStatusChanged, evt)
}

// Close closes the channel and connection.
func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}

func (p *RabbitPublisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		p.exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("exchange declare: %w", err)
	}

	p.conn = conn
	p.ch = ch
	return nil
}

func (p *RabbitPublisher) ensureConnected() error {
	if p.ch != nil && (p.conn == nil || !p.conn.IsClosed()) {
		return nil
	}
	return p.connect()
}

func (p *RabbitPublisher) publishJSON(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, publishTimeout)
		defer cancel()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureConnected(); err != nil {
		return err
	}

	if err := p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	}); err != nil {
		p.reset()
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}

func (p *RabbitPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}
