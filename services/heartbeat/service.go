// Package heartbeat blinks the status LED so a running board is visible
// from across the room.
package heartbeat

import (
	"context"
	"time"

	"growctl-go/bus"
	"growctl-go/types"
	"growctl-go/x/logx"
)

var topicConfigHeartbeat = bus.T("config", "heartbeat")

const svc = "heartbeat"

// LED is the status output. hal.Output satisfies it.
type LED interface {
	Set(on bool)
}

type Service struct {
	LED LED
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection, done chan<- struct{}) {
	defer close(done)
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	defer conn.Unsubscribe(cfgSub)

	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	running := true
	on := false

	// loop until context is cancelled, respond to tick and config changes
	for {
		select {
		case <-ctx.Done():
			s.set(false)
			logx.Info(svc, "stopping")
			return
		case <-tick.C:
			if !running {
				continue
			}
			on = !on
			s.set(on)
		case msg, ok := <-cfgSub.Channel():
			if !ok {
				return
			}
			cfg, ok := msg.Payload.(types.HeartbeatConfig)
			if !ok {
				logx.Warn(svc, "ignoring config", "payload", msg.Payload)
				continue
			}
			// Zero disables the blink and leaves the LED off.
			if cfg.IntervalMs <= 0 {
				running, on = false, false
				s.set(false)
				logx.Info(svc, "disabled")
				continue
			}
			running = true
			tick.Reset(time.Duration(cfg.IntervalMs) * time.Millisecond)
			logx.Info(svc, "interval set", "ms", cfg.IntervalMs)
		}
	}
}

func (s *Service) set(on bool) {
	if s.LED != nil {
		s.LED.Set(on)
	}
}

// Start the heartbeat service. The returned channel closes when it exits.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) <-chan struct{} {
	done := make(chan struct{})
	go s.serviceLoop(ctx, conn, done)
	return done
}
