package notify

import "sync/atomic"

// Gate is the process-wide switch for seat alerts. Command sources flip it,
// the aggregator and the notifier read it.
type Gate struct {
	enabled atomic.Bool
}

// NewGate returns a gate in the given state.
func NewGate(enabled bool) *Gate {
	g := &Gate{}
	g.enabled.Store(enabled)
	return g
}

// Enabled reports whether alerts may be sent.
func (g *Gate) Enabled() bool {
	return g.enabled.Load()
}

// SetEnabled switches alerts on or off.
func (g *Gate) SetEnabled(enabled bool) {
	g.enabled.Store(enabled)
}
