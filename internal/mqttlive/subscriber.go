// Package mqttlive delivers live notifications from an MQTT topic, for
// deployments where the detector publishes to a broker instead of serving SSE.
package mqttlive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"camtrap-cli/pkg/models"
)

const (
	connectTimeout    = 30 * time.Second
	subscribeTimeout  = 10 * time.Second
	disconnectQuiesce = 250 // ms
)

// ErrConnectionLost is reported by Subscription.Err when the broker connection drops.
var ErrConnectionLost = errors.New("mqtt connection lost")

type Config struct {
	Broker   string
	Topic    string
	ClientID string
	Username string
	Password string
	QoS      byte
}

// Subscriber opens one broker connection per subscription. Reconnection is
// left to the caller, so paho's auto-reconnect is disabled.
type Subscriber struct {
	config    Config
	newClient func(*mqtt.ClientOptions) mqtt.Client
}

func New(cfg Config) (*Subscriber, error) {
	if cfg.Broker == "" {
		return nil, errors.New("mqtt broker is required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("mqtt topic is required")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "camtrap-cli"
	}
	return &Subscriber{config: cfg, newClient: mqtt.NewClient}, nil
}

// Subscription is one connected, subscribed MQTT client.
type Subscription struct {
	ID string

	client mqtt.Client
	events chan models.StreamEvent
	done   chan struct{}
	once   sync.Once

	mu  sync.Mutex
	err error
}

// Subscribe connects and subscribes to the configured topic. Every message
// becomes one StreamEvent.
func (s *Subscriber) Subscribe(ctx context.Context) (*Subscription, error) {
	sub := &Subscription{
		ID:     uuid.NewString(),
		events: make(chan models.StreamEvent),
		done:   make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(s.config.Broker)
	// Unique per subscription so a quick reconnect never kicks the previous session
	opts.SetClientID(s.config.ClientID + "-" + sub.ID[:8])
	opts.SetUsername(s.config.Username)
	opts.SetPassword(s.config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(false)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		sub.finish(fmt.Errorf("%w: %w", ErrConnectionLost, err))
	})

	sub.client = s.newClient(opts)

	token := sub.client.Connect()
	if err := wait(ctx, token, connectTimeout); err != nil {
		// A connect still in flight may complete later; make sure it is torn down
		sub.client.Disconnect(disconnectQuiesce)
		return nil, fmt.Errorf("failed to connect to mqtt broker %s: %w", s.config.Broker, err)
	}

	token = sub.client.Subscribe(s.config.Topic, s.config.QoS, sub.onMessage)
	if err := wait(ctx, token, subscribeTimeout); err != nil {
		sub.client.Disconnect(disconnectQuiesce)
		return nil, fmt.Errorf("failed to subscribe to %s: %w", s.config.Topic, err)
	}

	context.AfterFunc(ctx, func() { _ = sub.Close() })
	return sub, nil
}

func (sub *Subscription) onMessage(_ mqtt.Client, msg mqtt.Message) {
	payload := msg.Payload()
	ev := models.StreamEvent{Raw: append(json.RawMessage(nil), payload...)}
	if err := json.Unmarshal(payload, &ev); err != nil || ev.Type == "" {
		ev.Type = "message"
	}

	select {
	case sub.events <- ev:
	case <-sub.done:
	}
}

func (sub *Subscription) Events() <-chan models.StreamEvent {
	return sub.events
}

// Done is closed once the subscription has ended. Events is never closed
// because paho may still be inside a message handler.
func (sub *Subscription) Done() <-chan struct{} {
	return sub.done
}

func (sub *Subscription) Err() error {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.err
}

// Close unsubscribes and disconnects. Safe to call more than once.
func (sub *Subscription) Close() error {
	sub.finish(nil)
	return nil
}

func (sub *Subscription) finish(err error) {
	sub.once.Do(func() {
		sub.mu.Lock()
		sub.err = err
		sub.mu.Unlock()

		close(sub.done)
		if sub.client.IsConnected() {
			sub.client.Disconnect(disconnectQuiesce)
		}
	})
}

func wait(ctx context.Context, token mqtt.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return errors.New("timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
}
