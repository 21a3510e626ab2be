package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"BilgiNotifier/internal/domain"
	"github.com/rabbitmq/amqp091-go"
	"github.com/wb-go/wbf/zlog"
)

// Config параметры подключения к RabbitMQ.
type Config struct {
	URL            string
	ConnectionName string
	ConnectTimeout time.Duration
	Heartbeat      time.Duration
	ExchangeName   string
	QueueName      string
	RoutingKey     string
}

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Publisher транспорт, публикующий отрендеренные сообщения в exchange для внешнего почтового процесса.
type Publisher struct {
	mu         sync.Mutex
	conn       *amqp091.Connection
	ch         channel
	exchange   string
	routingKey string
	now        func() time.Time
}

// Dial подключается к RabbitMQ и объявляет exchange и очередь.
func Dial(cfg Config) (*Publisher, error) {
	conn, err := amqp091.DialConfig(cfg.URL, amqp091.Config{
		Heartbeat:  cfg.Heartbeat,
		Dial:       amqp091.DefaultDial(cfg.ConnectTimeout),
		Properties: amqp091.Table{"connection_name": cfg.ConnectionName},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := declare(ch, cfg); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	zlog.Logger.Info().Str("exchange", cfg.ExchangeName).Str("queue", cfg.QueueName).Msg("RabbitMQ connection established")
	p := newPublisher(ch, cfg.ExchangeName, cfg.RoutingKey)
	p.conn = conn
	return p, nil
}

func declare(ch *amqp091.Channel, cfg Config) error {
	if err := ch.ExchangeDeclare(cfg.ExchangeName, amqp091.ExchangeDirect, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", cfg.ExchangeName, err)
	}
	if cfg.QueueName == "" {
		return nil
	}
	if _, err := ch.QueueDeclare(cfg.QueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", cfg.QueueName, err)
	}
	if err := ch.QueueBind(cfg.QueueName, cfg.RoutingKey, cfg.ExchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", cfg.QueueName, err)
	}
	return nil
}

func newPublisher(ch channel, exchange, routingKey string) *Publisher {
	return &Publisher{ch: ch, exchange: exchange, routingKey: routingKey, now: time.Now}
}

// Deliver публикует сообщение в формате JSON.
func (p *Publisher) Deliver(ctx context.Context, msg domain.OutgoingMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx, p.exchange, p.routingKey, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    msg.JobID.String(),
		Timestamp:    p.now(),
		Type:         msg.TemplateName,
		Body:         body,
	})
	if err != nil {
		zlog.Logger.Error().Err(err).Str("to", msg.To).Msg("failed to publish notification")
		return err
	}
	return nil
}

// Close закрывает канал и соединение.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var err error
	if p.ch != nil {
		err = p.ch.Close()
	}
	if p.conn != nil {
		if cerr := p.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
