//go:build !(rp2040 || rp2350 || avr)

package mqttbridge

import (
	"context"
	"time"

	"growctl-go/errcode"
	"growctl-go/types"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// Client is the slice of an MQTT client the bridge needs. The default
// implementation wraps paho; tests substitute their own.
type Client interface {
	Connect(ctx context.Context) error
	Publish(topic string, qos byte, retained bool, payload []byte) error
	Subscribe(topic string, qos byte, fn func(topic string, payload []byte)) error
	// Lost closes when the connection drops after a successful Connect.
	Lost() <-chan struct{}
	Disconnect()
}

// Dial builds a client for cfg. Replaced in tests.
var Dial = func(cfg types.MQTTConfig) Client { return newPaho(cfg) }

// ClientID returns cfg.ClientID, or a fresh one when unset.
func ClientID(cfg types.MQTTConfig) string {
	if cfg.ClientID != "" {
		return cfg.ClientID
	}
	return "growctl-" + uuid.NewString()
}

const opTimeout = 5 * time.Second

type pahoClient struct {
	c    mqtt.Client
	lost chan struct{}
}

func newPaho(cfg types.MQTTConfig) *pahoClient {
	p := &pahoClient{lost: make(chan struct{})}
	opts := mqtt.NewClientOptions().AddBroker(cfg.Broker)
	opts.SetClientID(ClientID(cfg))
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	// The bridge owns reconnects so it can resubscribe and republish.
	opts.SetAutoReconnect(false)
	opts.SetConnectTimeout(opTimeout)
	opts.SetConnectionLostHandler(func(mqtt.Client, error) { close(p.lost) })
	p.c = mqtt.NewClient(opts)
	return p
}

func (p *pahoClient) Connect(ctx context.Context) error {
	return wait(ctx, "mqtt.connect", p.c.Connect())
}

func (p *pahoClient) Publish(topic string, qos byte, retained bool, payload []byte) error {
	return wait(context.Background(), "mqtt.publish", p.c.Publish(topic, qos, retained, payload))
}

func (p *pahoClient) Subscribe(topic string, qos byte, fn func(string, []byte)) error {
	t := p.c.Subscribe(topic, qos, func(_ mqtt.Client, m mqtt.Message) {
		fn(m.Topic(), m.Payload())
	})
	return wait(context.Background(), "mqtt.subscribe", t)
}

func (p *pahoClient) Lost() <-chan struct{} { return p.lost }

func (p *pahoClient) Disconnect() {
	if p.c.IsConnected() {
		p.c.Disconnect(250)
	}
}

func wait(ctx context.Context, op string, t mqtt.Token) error {
	select {
	case <-t.Done():
	case <-ctx.Done():
		return errcode.Wrap(errcode.Timeout, op, ctx.Err())
	case <-time.After(opTimeout):
		return &errcode.E{C: errcode.Timeout, Op: op}
	}
	return errcode.Wrap(errcode.Error, op, t.Error())
}
