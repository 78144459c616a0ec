package webhook

import "fmt"

/* State of one forward attempt
 * Received -> Forwarding -> Delivered | Failed
 * Failed -> Recording -> Recorded | RecordFailed
 */
type State int

const (
	Received State = iota + 1
	Forwarding
	Delivered
	Failed
	Recording
	Recorded
	RecordFailed
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case Received:
		return "received"
	case Forwarding:
		return "forwarding"
	case Delivered:
		return "delivered"
	case Failed:
		return "failed"
	case Recording:
		return "recording"
	case Recorded:
		return "recorded"
	case RecordFailed:
		return "record_failed"
	default:
		return "unknown"
	}
}

// Validate checks if the state is valid
func (s State) Validate() error {
	if s < Received || s > RecordFailed {
		return fmt.Errorf("invalid state: %d", s)
	}
	return nil
}

// IsFinal returns true if the state is terminal
func (s State) IsFinal() bool {
	return s == Delivered || s == Recorded || s == RecordFailed
}

// CanTransition reports whether the attempt may move from s to next
func (s State) CanTransition(next State) bool {
	switch s {
	case Received:
		return next == Forwarding || next == Failed
	case Forwarding:
		return next == Delivered || next == Failed
	case Failed:
		return next == Recording
	case Recording:
		return next == Recorded || next == RecordFailed
	default:
		return false
	}
}
