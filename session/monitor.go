package session

// ActivityMonitor adapts a host input surface (UI events, terminal input,
// window focus) into activity pulses. Start registers the pulse callback and
// begins watching; Stop detaches. Implementations decide what counts as a
// qualifying interaction.
type ActivityMonitor interface {
	Start(pulse func())
	Stop()
}

// NoOpMonitor satisfies ActivityMonitor without observing anything. Sessions
// under a NoOpMonitor expire on the idle timeout unless the host calls
// [Manager.ActivityPulse] itself.
type NoOpMonitor struct{}

func (NoOpMonitor) Start(func()) {}
func (NoOpMonitor) Stop()        {}
