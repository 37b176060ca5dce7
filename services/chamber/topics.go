package chamber

import "growctl-go/bus"

// Retained state documents.
var (
	TopicEnv       = bus.T("chamber", "state", "env")
	TopicActuators = bus.T("chamber", "state", "actuators")
	TopicCycle     = bus.T("chamber", "state", "cycle")
	TopicClock     = bus.T("chamber", "state", "clock")
)

// Command topics; every request gets a types.Reply, except status which
// answers with types.StatusValue.
var (
	TopicCmd         = bus.T("chamber", "cmd", "+")
	TopicCmdCycle    = bus.T("chamber", "cmd", "cycle")
	TopicCmdLight    = bus.T("chamber", "cmd", "light")
	TopicCmdSettings = bus.T("chamber", "cmd", "settings")
	TopicCmdClock    = bus.T("chamber", "cmd", "clock")
	TopicCmdStatus   = bus.T("chamber", "cmd", "status")
)
