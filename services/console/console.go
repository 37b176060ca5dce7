// Package console is a line-oriented command shell on the serial port.
package console

import (
	"context"
	"strings"
	"time"

	"growctl-go/services/chamber"
	"growctl-go/services/hal"
	"growctl-go/types"
	"growctl-go/x/fmtx"
	"growctl-go/x/logx"
	"growctl-go/x/mathx"
	"growctl-go/x/strconvx"

	"github.com/google/shlex"
)

const (
	svc     = "console"
	maxLine = 80
	prompt  = "> "
)

const help = `commands:
  status
  time HH:MM[:SS]
  date DD/MM/YY
  cycle start|stop
  light on|off
  set temp MIN MAX | set hum MIN MAX | set fan ACTIVE PERIOD
  help`

type Console struct {
	port    hal.SerialPort
	chamber chamber.Client
	timeout time.Duration
}

func New(port hal.SerialPort, c chamber.Client) *Console {
	return &Console{port: port, chamber: c, timeout: 2 * time.Second}
}

// Run reads lines until ctx ends or the port fails. CR is ignored, LF ends a
// line and overlong lines are truncated.
func (c *Console) Run(ctx context.Context) error {
	buf := make([]byte, 64)
	var line []byte
	c.write(prompt)
	for {
		n, err := c.port.RecvSomeContext(ctx, buf)
		for _, b := range buf[:n] {
			switch b {
			case '\n':
				c.write(c.Exec(ctx, string(line)) + "\r\n" + prompt)
				line = line[:0]
			case '\r':
			default:
				if len(line) < maxLine {
					line = append(line, b)
				}
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

func (c *Console) write(s string) {
	if _, err := c.port.Write([]byte(s)); err != nil {
		logx.Warn(svc, "write failed", "err", err)
	}
}

// Exec runs one command line and returns the text to print.
func (c *Console) Exec(ctx context.Context, line string) string {
	args, err := shlex.Split(line)
	if err != nil {
		return "error: " + err.Error()
	}
	if len(args) == 0 {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	switch args[0] {
	case "help", "?":
		return help
	case "status":
		st, err := c.chamber.Status(ctx)
		if err != nil {
			return "error: " + err.Error()
		}
		return FormatStatus(st)
	case "time":
		if len(args) != 2 {
			return "usage: time HH:MM[:SS]"
		}
		v, err := ParseTime(args[1])
		if err != nil {
			return "error: " + err.Error()
		}
		err = c.chamber.SetClock(ctx, types.ClockSet{Clock: v, SetTime: true})
		return result(err)
	case "date":
		if len(args) != 2 {
			return "usage: date DD/MM/YY"
		}
		v, err := ParseDate(args[1])
		if err != nil {
			return "error: " + err.Error()
		}
		err = c.chamber.SetClock(ctx, types.ClockSet{Clock: v, SetDate: true})
		return result(err)
	case "cycle":
		if len(args) != 2 || (args[1] != types.CycleStart && args[1] != types.CycleStop) {
			return "usage: cycle start|stop"
		}
		return result(c.chamber.Cycle(ctx, args[1]))
	case "light":
		if len(args) != 2 || (args[1] != "on" && args[1] != "off") {
			return "usage: light on|off"
		}
		return result(c.chamber.Light(ctx, args[1] == "on"))
	case "set":
		p, err := parseSet(args[1:])
		if err != nil {
			return err.Error()
		}
		return result(c.chamber.Settings(ctx, p))
	}
	return "unknown command " + args[0] + "; try help"
}

func result(err error) string {
	if err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}

func parseSet(args []string) (types.SettingsPatch, error) {
	var p types.SettingsPatch
	const usage = "usage: set temp|hum|fan A B"
	if len(args) != 3 {
		return p, usageErr(usage)
	}
	a, err1 := strconvx.Atoi(args[1])
	b, err2 := strconvx.Atoi(args[2])
	if err1 != nil || err2 != nil {
		return p, usageErr(usage)
	}
	switch args[0] {
	case "temp":
		p.TempMin, p.TempMax = &a, &b
	case "hum":
		p.HumMin, p.HumMax = &a, &b
	case "fan":
		p.FanActiveMin, p.FanPeriodMin = &a, &b
	default:
		return p, usageErr(usage)
	}
	return p, nil
}

type usageErr string

func (u usageErr) Error() string { return string(u) }

// fields splits s on sep into want integers within [0, max[i]].
func fields(s, sep string, want int, max []int) ([]int, bool) {
	parts := strings.Split(s, sep)
	if len(parts) < want || len(parts) > len(max) {
		return nil, false
	}
	out := make([]int, len(parts))
	for i, p := range parts {
		if len(p) == 0 || len(p) > 2 {
			return nil, false
		}
		n, err := strconvx.Atoi(p)
		if err != nil || n < 0 || n > max[i] {
			return nil, false
		}
		out[i] = n
	}
	return out, true
}

// ParseTime accepts HH:MM or HH:MM:SS in 24-hour form.
func ParseTime(s string) (types.ClockValue, error) {
	f, ok := fields(s, ":", 2, []int{23, 59, 59})
	if !ok {
		return types.ClockValue{}, usageErr("bad time " + s)
	}
	v := types.ClockValue{Hour: uint8(f[0]), Minute: uint8(f[1])}
	if len(f) == 3 {
		v.Second = uint8(f[2])
	}
	return v, nil
}

var daysIn = [13]int{0, 31, 29, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// ParseDate accepts DD/MM/YY.
func ParseDate(s string) (types.ClockValue, error) {
	f, ok := fields(s, "/", 3, []int{31, 12, 99})
	if !ok || f[0] == 0 || f[1] == 0 || f[0] > daysIn[f[1]] || (f[1] == 2 && f[0] == 29 && f[2]%4 != 0) {
		return types.ClockValue{}, usageErr("bad date " + s)
	}
	return types.ClockValue{Day: uint8(f[0]), Month: uint8(f[1]), Year: uint8(f[2])}, nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// FormatStatus renders a status snapshot for the terminal.
func FormatStatus(st types.StatusValue) string {
	var b strings.Builder
	cl := st.Clock
	fmtx.Fprintf(&b, "clock   %02d/%02d/%02d %02d:%02d:%02d\r\n", cl.Day, cl.Month, cl.Year, cl.Hour, cl.Minute, cl.Second)
	e := st.Env
	stale := ""
	if e.Stale {
		stale = " (stale)"
	}
	fmtx.Fprintf(&b, "env     %sC %s%%%s\r\n", tenths(int(e.DeciC)), tenths(int(e.DeciRH)), stale)
	if st.Cycle.Active {
		fmtx.Fprintf(&b, "cycle   started %02d/%02d/%02d, %d days\r\n", st.Cycle.StartDay, st.Cycle.StartMonth, st.Cycle.StartYear, st.Cycle.DaysElapsed)
	} else {
		b.WriteString("cycle   not started\r\n")
	}
	a := st.Actuators
	fmtx.Fprintf(&b, "heater %s fogger %s fan %s light %s (enabled %s)\r\n",
		onOff(a.Heater), onOff(a.Fogger), onOff(a.Fan), onOff(a.Light), onOff(a.LightEnabled))
	s := st.Settings
	fmtx.Fprintf(&b, "temp %d..%d hum %d..%d light %d..%dh fan %d/%d min",
		s.TempMin, s.TempMax, s.HumMin, s.HumMax, s.LightStartHour, s.LightStopHour, s.FanActiveMin, s.FanPeriodMin)
	return b.String()
}

func tenths(v int) string {
	sign := ""
	if v < 0 {
		sign = "-"
	}
	v = mathx.Abs(v)
	return fmtx.Sprintf("%s%d.%d", sign, v/10, v%10)
}
