// ABOUTME: Observer hooks for queue activity
// ABOUTME: Lets metrics and tooling follow appends and transitions
package queue

// Transition identifies what the Output switched to after its current
// source ran out
type Transition int

const (
	TransitionNext Transition = iota
	TransitionSilence
	TransitionExhausted
)

func (t Transition) String() string {
	switch t {
	case TransitionNext:
		return "next"
	case TransitionSilence:
		return "silence"
	case TransitionExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Observer receives queue events. Appended is called from producer
// goroutines and Transitioned from the consumer goroutine, both outside the
// pending-list lock. Implementations must be fast and must not block.
type Observer interface {
	// Appended is called after a source was appended; pending is the list
	// length right after the append.
	Appended(pending int)

	// Transitioned is called after the Output retired its current source;
	// pending is the list length right after the pop.
	Transitioned(kind Transition, pending int)
}

type nopObserver struct{}

func (nopObserver) Appended(int)                 {}
func (nopObserver) Transitioned(Transition, int) {}
