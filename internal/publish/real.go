package publish

import (
	"context"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/goodtune/screentime/internal/usage"
	"github.com/rs/zerolog"
)

// Config holds broker settings.
type Config struct {
	Broker   string
	ClientID string
	Topic    string
	Timeout  time.Duration
}

// RealPublisher publishes to an actual MQTT broker.
type RealPublisher struct {
	client  paho.Client
	topic   string
	timeout time.Duration
	logger  zerolog.Logger
}

// NewRealPublisher creates a publisher connected to the configured broker.
func NewRealPublisher(cfg Config, logger zerolog.Logger) (*RealPublisher, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	logger = logger.With().Str("component", "publisher").Str("broker", cfg.Broker).Logger()

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(paho.Client) {
			logger.Info().Msg("Connected to MQTT broker")
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logger.Warn().Err(err).Msg("Lost connection to MQTT broker")
		})

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return &RealPublisher{
		client:  client,
		topic:   cfg.Topic,
		timeout: cfg.Timeout,
		logger:  logger,
	}, nil
}

// Publish sends a report to the broker, retained at QoS 1.
func (p *RealPublisher) Publish(ctx context.Context, userID string, report *usage.Report) error {
	payload, err := FormatPayload(userID, report)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	timeout := p.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}

	token := p.client.Publish(Topic(p.topic, userID), 1, true, payload)
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	p.logger.Debug().Str("date", report.Date()).Int("bytes", len(payload)).Msg("Published report")
	return nil
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000)
	return nil
}
