package subscription

// State is a step of the subscription lifecycle.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateBound
	StateListening
	StateUnsubscribing
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateBound:
		return "bound"
	case StateListening:
		return "listening"
	case StateUnsubscribing:
		return "unsubscribing"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// CanSubscribe reports whether Subscribe may start from s.
func (s State) CanSubscribe() bool {
	return s == StateIdle || s == StateClosed || s == StateFailed
}
