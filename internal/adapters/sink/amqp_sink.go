package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/ghalamif/simtemp/internal/domain"
	"github.com/ghalamif/simtemp/internal/ports"
)

type AMQPConfig struct {
	URL      string        `yaml:"url"`
	Exchange string        `yaml:"exchange"`
	Timeout  time.Duration `yaml:"timeout"`
}

func (c *AMQPConfig) ApplyDefaults() {
	if c.Exchange == "" {
		c.Exchange = "simtemp.events"
	}
	if c.Timeout <= 0 {
		c.Timeout = 2 * time.Second
	}
}

type amqpPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPSink publishes each sample to a topic exchange. Samples above the
// threshold are routed as alert.<sensor>, the rest as sample.<sensor>.
type AMQPSink struct {
	ch  amqpPublisher
	cfg AMQPConfig
}

func NewAMQPSink(conn *amqp.Connection, cfg AMQPConfig) (*AMQPSink, error) {
	cfg.ApplyDefaults()

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("amqp channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("amqp declare exchange %s: %w", cfg.Exchange, err)
	}

	return &AMQPSink{ch: ch, cfg: cfg}, nil
}

func (a *AMQPSink) Name() string { return "amqp" }

func (a *AMQPSink) WriteBatch(samples []*domain.Sample) error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Timeout)
	defer cancel()

	for _, s := range samples {
		body, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("marshal sample %d: %w", s.Seq, err)
		}
		err = a.ch.PublishWithContext(ctx,
			a.cfg.Exchange,
			routingKey(s),
			false,
			false,
			amqp.Publishing{
				ContentType: "application/json",
				Timestamp:   s.Timestamp,
				Body:        body,
			},
		)
		if err != nil {
			return fmt.Errorf("amqp publish seq %d: %w", s.Seq, err)
		}
	}
	return nil
}

func (a *AMQPSink) Close() error { return a.ch.Close() }

func routingKey(s *domain.Sample) string {
	if s.Alert {
		return "alert." + s.SensorID
	}
	return "sample." + s.SensorID
}

var _ ports.Sink = (*AMQPSink)(nil)
