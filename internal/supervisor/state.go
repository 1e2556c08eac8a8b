package supervisor

import "fmt"

// EngineState is the supervisor's view of the output stream.
type EngineState int32

const (
	EngineStopped EngineState = iota
	EngineStarting
	EngineRunning
	EngineUnhealthy
)

var engineStateNames = map[EngineState]string{
	EngineStopped:   "stopped",
	EngineStarting:  "starting",
	EngineRunning:   "running",
	EngineUnhealthy: "unhealthy",
}

func (s EngineState) String() string {
	if name, ok := engineStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("EngineState(%d)", int32(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s EngineState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *EngineState) UnmarshalText(text []byte) error {
	return parseState(engineStateNames, string(text), s)
}

// FocusState is the audio focus held by the supervisor.
type FocusState int32

const (
	FocusGranted FocusState = iota
	FocusLostTransient
	FocusLostPermanent
)

var focusStateNames = map[FocusState]string{
	FocusGranted:       "granted",
	FocusLostTransient: "lost-transient",
	FocusLostPermanent: "lost-permanent",
}

func (s FocusState) String() string {
	if name, ok := focusStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("FocusState(%d)", int32(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s FocusState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *FocusState) UnmarshalText(text []byte) error {
	return parseState(focusStateNames, string(text), s)
}

// WatchdogState is the health watchdog's position in its check cycle.
type WatchdogState int32

const (
	WatchdogIdle WatchdogState = iota
	WatchdogChecking
	WatchdogRestarting
)

var watchdogStateNames = map[WatchdogState]string{
	WatchdogIdle:       "idle",
	WatchdogChecking:   "checking",
	WatchdogRestarting: "restarting",
}

func (s WatchdogState) String() string {
	if name, ok := watchdogStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("WatchdogState(%d)", int32(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s WatchdogState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *WatchdogState) UnmarshalText(text []byte) error {
	return parseState(watchdogStateNames, string(text), s)
}

func parseState[S comparable](names map[S]string, text string, out *S) error {
	for s, name := range names {
		if name == text {
			*out = s
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", text)
}
