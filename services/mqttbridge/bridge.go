//go:build !(rp2040 || rp2350 || avr)

// Package mqttbridge mirrors chamber state to an MQTT broker and turns
// <prefix>/set/... messages into chamber commands.
package mqttbridge

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"growctl-go/bus"
	"growctl-go/errcode"
	"growctl-go/services/chamber"
	"growctl-go/types"
	"growctl-go/x/logx"
	"growctl-go/x/strx"
	"growctl-go/x/timex"
)

const svc = "mqtt"

var (
	topicConfig       = bus.T("config", "mqtt")
	topicState        = bus.T("mqtt", "state")
	topicChamberState = bus.T("chamber", "state", "+")
)

var errLost = &errcode.E{C: errcode.Error, Op: "mqtt.link", Msg: "connection lost"}

// Start runs the bridge until ctx is cancelled. It waits for a
// types.MQTTConfig on config/mqtt; an empty broker keeps it idle.
func Start(ctx context.Context, conn *bus.Connection) {
	s := &Service{
		conn:    conn,
		chamber: chamber.Client{Conn: conn},
	}
	s.run(ctx)
}

type Service struct {
	conn    *bus.Connection
	chamber chamber.Client

	mu     sync.Mutex
	curRun context.CancelFunc
	wg     sync.WaitGroup
}

func (s *Service) run(ctx context.Context) {
	cfgSub := s.conn.Subscribe(topicConfig)
	defer s.conn.Unsubscribe(cfgSub)

	s.publishState("idle", "awaiting_config", nil)

	for {
		select {
		case <-ctx.Done():
			s.stopCurrent()
			return
		case msg, ok := <-cfgSub.Channel():
			if !ok {
				s.publishState("error", "config_subscription_closed", nil)
				return
			}
			cfg, ok := msg.Payload.(types.MQTTConfig)
			if !ok {
				s.publishState("error", "config_decode_failed", nil)
				continue
			}
			if cfg.Broker == "" {
				s.stopCurrent()
				s.publishState("idle", "disabled", nil)
				continue
			}
			cfg.Prefix = strx.Coalesce(cfg.Prefix, "growctl")
			s.reconfigure(ctx, cfg)
		}
	}
}

func (s *Service) stopCurrent() {
	s.mu.Lock()
	if s.curRun != nil {
		s.curRun()
		s.curRun = nil
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Service) reconfigure(parent context.Context, cfg types.MQTTConfig) {
	s.stopCurrent()
	ctx, cancel := context.WithCancel(parent)
	s.mu.Lock()
	s.curRun = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runLink(ctx, cfg)
	}()
}

// runLink dials, serves and redials with backoff until ctx ends.
func (s *Service) runLink(ctx context.Context, cfg types.MQTTConfig) {
	backoff := timex.Backoff(250*time.Millisecond, 30*time.Second)
	for {
		c := Dial(cfg)
		err := c.Connect(ctx)
		if err == nil {
			s.publishState("up", "connected", nil)
			logx.Info(svc, "connected", "broker", cfg.Broker, "prefix", cfg.Prefix)
			backoff = timex.Backoff(250*time.Millisecond, 30*time.Second)
			err = s.handleLink(ctx, c, cfg)
			c.Disconnect()
		}
		if ctx.Err() != nil {
			return
		}
		delay := backoff()
		s.publishState("degraded", "link_retrying", err)
		logx.Warn(svc, "link down", "err", err, "retry", delay)
		if !timex.Sleep(ctx, delay) {
			return
		}
	}
}

type inbound struct {
	topic   string
	payload []byte
}

// handleLink owns one connection. Chamber state is republished on every
// change; a fresh link republishes everything.
func (s *Service) handleLink(ctx context.Context, c Client, cfg types.MQTTConfig) error {
	in := make(chan inbound, 8)
	err := c.Subscribe(cfg.Prefix+"/set/#", cfg.QoS, func(topic string, payload []byte) {
		select {
		case in <- inbound{topic, payload}:
		default:
			logx.Warn(svc, "command dropped", "topic", topic)
		}
	})
	if err != nil {
		return err
	}

	stateSub := s.conn.Subscribe(topicChamberState)
	defer s.conn.Unsubscribe(stateSub)

	last := map[string]string{}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.Lost():
			return errLost
		case msg, ok := <-stateSub.Channel():
			if !ok {
				return errors.New("state subscription closed")
			}
			for k, v := range render(msg.Payload) {
				if last[k] == v {
					continue
				}
				if err := c.Publish(cfg.Prefix+"/status/"+k, cfg.QoS, true, []byte(v)); err != nil {
					return err
				}
				last[k] = v
			}
		case m := <-in:
			s.apply(ctx, cfg.Prefix, m)
		}
	}
}

func render(p any) map[string]string {
	switch v := p.(type) {
	case types.EnvValue:
		return EnvStatus(v)
	case types.ActuatorValue:
		return ActuatorStatus(v)
	case types.CycleValue:
		return CycleStatus(v)
	}
	return nil
}

func (s *Service) apply(ctx context.Context, prefix string, m inbound) {
	sub, ok := strings.CutPrefix(m.topic, prefix+"/set/")
	if !ok {
		return
	}
	cmd, err := ParseSet(sub, m.payload)
	if err == nil {
		rctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		switch {
		case cmd.Cycle != "":
			err = s.chamber.Cycle(rctx, cmd.Cycle)
		case cmd.Light != nil:
			err = s.chamber.Light(rctx, *cmd.Light)
		case cmd.Settings != nil:
			err = s.chamber.Settings(rctx, *cmd.Settings)
		}
		cancel()
	}
	if err != nil {
		logx.Warn(svc, "set rejected", "topic", m.topic, "payload", string(m.payload), "err", err)
		return
	}
	logx.Info(svc, "set", "topic", m.topic, "payload", string(m.payload))
}

func (s *Service) publishState(level, status string, err error) {
	st := types.ServiceState{Level: level, Status: status, TS: timex.NowMs()}
	if err != nil {
		st.Error = err.Error()
	}
	s.conn.Publish(s.conn.NewMessage(topicState, st, true))
}
