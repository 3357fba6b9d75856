package mqtt

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/absmach/roadlens/pkg/codec"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	connTimeout    = 10 * time.Second
	reconnTimeout  = time.Minute
	disconnTimeout = 250

	onlinePayload  = "online"
	offlinePayload = "offline"
)

var (
	errPublishTimeout     = errors.New("failed to publish due to timeout reached")
	errSubscribeTimeout   = errors.New("failed to subscribe due to timeout reached")
	errUnsubscribeTimeout = errors.New("failed to unsubscribe due to timeout reached")
	errConnectTimeout     = errors.New("timeout reached while connecting to MQTT broker")
	errConnect            = errors.New("failed to connect to MQTT broker")
	errEmptyTopic         = errors.New("empty topic")
	errEmptyID            = errors.New("empty ID")
)

type Config struct {
	Address  string        `env:"ADDRESS"   envDefault:""`
	QoS      byte          `env:"QOS"       envDefault:"1"`
	ClientID string        `env:"CLIENT_ID" envDefault:""`
	Username string        `env:"USERNAME"  envDefault:""`
	Password string        `env:"PASSWORD"  envDefault:""`
	Timeout  time.Duration `env:"TIMEOUT"   envDefault:"30s"`
	Codec    string        `env:"CODEC"     envDefault:"json"`
	// StatusTopic receives "online" on connect and "offline" as the last will.
	StatusTopic string `env:"STATUS_TOPIC" envDefault:""`
}

// Message is a received payload tied to the codec it was encoded with.
type Message struct {
	Topic   string
	Payload []byte
	codec   codec.Codec
}

func (m Message) Decode(v any) error {
	return m.codec.Unmarshal(m.Payload, v)
}

type Handler func(ctx context.Context, msg Message) error

type PubSub interface {
	Publish(ctx context.Context, topic string, msg any) error
	Subscribe(ctx context.Context, topic string, handler Handler) error
	Unsubscribe(ctx context.Context, topic string) error
	Disconnect(ctx context.Context) error
}

type pubsub struct {
	client  mqtt.Client
	qos     byte
	timeout time.Duration
	codec   codec.Codec
	logger  *slog.Logger
}

func NewPubSub(cfg Config, logger *slog.Logger) (PubSub, error) {
	if cfg.ClientID == "" {
		return nil, errEmptyID
	}
	c, err := codec.Get(cfg.Codec)
	if err != nil {
		return nil, err
	}

	client, err := newClient(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &pubsub{
		client:  client,
		qos:     cfg.QoS,
		timeout: cfg.Timeout,
		codec:   c,
		logger:  logger,
	}, nil
}

func (ps *pubsub) Publish(_ context.Context, topic string, msg any) error {
	if topic == "" {
		return errEmptyTopic
	}

	data, err := ps.codec.Marshal(msg)
	if err != nil {
		return err
	}

	token := ps.client.Publish(topic, ps.qos, false, data)
	if ok := token.WaitTimeout(ps.timeout); !ok {
		return errPublishTimeout
	}

	return token.Error()
}

func (ps *pubsub) Subscribe(ctx context.Context, topic string, handler Handler) error {
	if topic == "" {
		return errEmptyTopic
	}

	token := ps.client.Subscribe(topic, ps.qos, ps.mqttHandler(ctx, handler))
	if ok := token.WaitTimeout(ps.timeout); !ok {
		return errSubscribeTimeout
	}

	return token.Error()
}

func (ps *pubsub) Unsubscribe(_ context.Context, topic string) error {
	if topic == "" {
		return errEmptyTopic
	}

	token := ps.client.Unsubscribe(topic)
	if ok := token.WaitTimeout(ps.timeout); !ok {
		return errUnsubscribeTimeout
	}

	return token.Error()
}

func (ps *pubsub) Disconnect(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		ps.client.Disconnect(disconnTimeout)

		return nil
	}
}

func newClient(cfg Config, logger *slog.Logger) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Address).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectTimeout(connTimeout).
		SetMaxReconnectInterval(reconnTimeout)

	if cfg.StatusTopic != "" {
		opts.SetWill(cfg.StatusTopic, offlinePayload, cfg.QoS, true)
	}

	opts.SetOnConnectHandler(func(c mqtt.Client) {
		logger.Info("MQTT connection established")
		if cfg.StatusTopic != "" {
			c.Publish(cfg.StatusTopic, cfg.QoS, true, onlinePayload)
		}
	})

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		args := []any{}
		if err != nil {
			args = append(args, slog.Any("error", err))
		}

		logger.Info("MQTT connection lost", args...)
	})

	opts.SetReconnectingHandler(func(_ mqtt.Client, options *mqtt.ClientOptions) {
		args := []any{}
		if options != nil {
			args = append(args,
				slog.String("client_id", options.ClientID),
				slog.String("username", options.Username),
			)
		}

		logger.Info("MQTT reconnecting", args...)
	})

	client := mqtt.NewClient(opts)

	token := client.Connect()
	if ok := token.WaitTimeout(cfg.Timeout); !ok {
		return nil, errConnectTimeout
	}
	if err := token.Error(); err != nil {
		return nil, errors.Join(errConnect, err)
	}

	return client, nil
}

func (ps *pubsub) mqttHandler(ctx context.Context, h Handler) mqtt.MessageHandler {
	return func(_ mqtt.Client, m mqtt.Message) {
		msg := Message{Topic: m.Topic(), Payload: m.Payload(), codec: ps.codec}
		if err := h(ctx, msg); err != nil {
			ps.logger.Warn("Failed to handle MQTT message",
				slog.String("topic", m.Topic()),
				slog.Any("error", err),
			)
		}

		m.Ack()
	}
}

// NewMessage builds a Message for handlers under test.
func NewMessage(topic string, payload []byte, c codec.Codec) Message {
	return Message{Topic: topic, Payload: payload, codec: c}
}
