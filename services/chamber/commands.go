package chamber

import (
	"growctl-go/bus"
	"growctl-go/errcode"
	"growctl-go/types"
	"growctl-go/x/logx"
)

func (s *Service) handle(msg *bus.Message) {
	if msg.Topic.Len() != 3 {
		return
	}
	verb, _ := msg.Topic.At(2).(string)
	var err error
	switch verb {
	case "status":
		s.d.Conn.Reply(msg, s.Status(), false)
		return
	case "cycle":
		err = s.cmdCycle(msg.Payload)
	case "light":
		err = s.cmdLight(msg.Payload)
	case "settings":
		err = s.cmdSettings(msg.Payload)
	case "clock":
		err = s.cmdClock(msg.Payload)
	default:
		err = &errcode.E{C: errcode.Unsupported, Op: "chamber.cmd", Msg: verb}
	}
	if err != nil {
		logx.Warn(svc, "command rejected", "cmd", verb, "err", err)
		s.d.Conn.Reply(msg, types.Reply{Error: err.Error()}, false)
		return
	}
	// State changed outside a tick; refresh retained documents now.
	s.act = s.d.Loop.State()
	s.publish()
	s.d.Conn.Reply(msg, types.Reply{OK: true}, false)
}

func badPayload(op string) error {
	return &errcode.E{C: errcode.InvalidParams, Op: op, Msg: "unexpected payload type"}
}

func (s *Service) cmdCycle(p any) error {
	var action string
	switch v := p.(type) {
	case types.CycleCmd:
		action = v.Action
	case *types.CycleCmd:
		action = v.Action
	case string:
		action = v
	default:
		return badPayload("chamber.cycle")
	}
	if !s.haveNow {
		return &errcode.E{C: errcode.Busy, Op: "chamber.cycle", Msg: "clock not read yet"}
	}
	switch action {
	case types.CycleStart:
		s.setCycle(true)
	case types.CycleStop:
		s.setCycle(false)
	case types.CycleToggle:
		s.setCycle(!s.d.Cycle.Active())
	default:
		return &errcode.E{C: errcode.InvalidParams, Op: "chamber.cycle", Msg: "unknown action " + action}
	}
	return nil
}

func (s *Service) cmdLight(p any) error {
	switch v := p.(type) {
	case types.LightCmd:
		s.d.Loop.SetLightEnabled(v.Enabled)
	case *types.LightCmd:
		s.d.Loop.SetLightEnabled(v.Enabled)
	case bool:
		s.d.Loop.SetLightEnabled(v)
	default:
		return badPayload("chamber.light")
	}
	return nil
}

// Settings changes last until restart.
func (s *Service) cmdSettings(p any) error {
	var patch types.SettingsPatch
	switch v := p.(type) {
	case types.SettingsPatch:
		patch = v
	case *types.SettingsPatch:
		patch = *v
	default:
		return badPayload("chamber.settings")
	}
	next := s.d.Loop.Settings().Apply(patch)
	if err := s.d.Loop.SetSettings(next); err != nil {
		return err
	}
	logx.Info(svc, "settings changed",
		"temp", [2]int{next.TempMin, next.TempMax},
		"hum", [2]int{next.HumMin, next.HumMax},
		"fan", [2]int{next.FanActive, next.FanPeriod})
	return nil
}

func (s *Service) cmdClock(p any) error {
	var cs types.ClockSet
	switch v := p.(type) {
	case types.ClockSet:
		cs = v
	case *types.ClockSet:
		cs = *v
	default:
		return badPayload("chamber.clock")
	}
	r := clockReading(cs.Clock)
	if cs.SetTime {
		if err := s.d.Clock.WriteTime(r); err != nil {
			return err
		}
	}
	if cs.SetDate {
		if err := s.d.Clock.WriteDate(r); err != nil {
			return err
		}
	}
	if err := s.readClock(); err != nil {
		return err
	}
	logx.Info(svc, "clock set", "hour", s.now.Hour, "minute", s.now.Minute, "day", s.now.Day)
	return nil
}
