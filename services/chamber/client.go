package chamber

import (
	"context"

	"growctl-go/bus"
	"growctl-go/errcode"
	"growctl-go/types"
)

// Client issues chamber commands over the bus. The console, HTTP API and
// MQTT bridge all go through it.
type Client struct {
	Conn *bus.Connection
}

func (c Client) call(ctx context.Context, topic bus.Topic, payload any) error {
	m, err := c.Conn.RequestWait(ctx, c.Conn.NewMessage(topic, payload, false))
	if err != nil {
		return errcode.Wrap(errcode.Timeout, "chamber.request", err)
	}
	r, ok := m.Payload.(types.Reply)
	if !ok {
		return &errcode.E{C: errcode.Error, Op: "chamber.request", Msg: "unexpected reply"}
	}
	if !r.OK {
		return &errcode.E{C: errcode.Error, Op: "chamber.request", Msg: r.Error}
	}
	return nil
}

func (c Client) Status(ctx context.Context) (types.StatusValue, error) {
	m, err := c.Conn.RequestWait(ctx, c.Conn.NewMessage(TopicCmdStatus, nil, false))
	if err != nil {
		return types.StatusValue{}, errcode.Wrap(errcode.Timeout, "chamber.status", err)
	}
	st, ok := m.Payload.(types.StatusValue)
	if !ok {
		return types.StatusValue{}, &errcode.E{C: errcode.Error, Op: "chamber.status", Msg: "unexpected reply"}
	}
	return st, nil
}

// Cycle sends start, stop or toggle.
func (c Client) Cycle(ctx context.Context, action string) error {
	return c.call(ctx, TopicCmdCycle, types.CycleCmd{Action: action})
}

func (c Client) Light(ctx context.Context, enabled bool) error {
	return c.call(ctx, TopicCmdLight, types.LightCmd{Enabled: enabled})
}

func (c Client) Settings(ctx context.Context, p types.SettingsPatch) error {
	return c.call(ctx, TopicCmdSettings, p)
}

func (c Client) SetClock(ctx context.Context, cs types.ClockSet) error {
	return c.call(ctx, TopicCmdClock, cs)
}
