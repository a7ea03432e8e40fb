package gateway

import (
	"fmt"

	"github.com/jhsoft/ws02-gateway/src/internal/errors"
)

// State is a step of one request's lifecycle.
type State int

const (
	StateReceived State = iota
	StateResolved
	StateValidated
	StateAuthorized
	StateExecuting
	StateAssembled
	StateCompleted
	// StateFailed is absorbing; the failure kind is kept next to it.
	StateFailed
)

var stateNames = [...]string{
	StateReceived:   "received",
	StateResolved:   "resolved",
	StateValidated:  "validated",
	StateAuthorized: "authorized",
	StateExecuting:  "executing",
	StateAssembled:  "assembled",
	StateCompleted:  "completed",
	StateFailed:     "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// lifecycle tracks one request. The happy path is strictly linear and any
// non-terminal state may fail.
type lifecycle struct {
	state   State
	failure errors.ErrorCode
	trace   []State
}

func newLifecycle() *lifecycle {
	return &lifecycle{state: StateReceived, trace: []State{StateReceived}}
}

// advance moves to the next state on the happy path.
func (l *lifecycle) advance(to State) {
	if l.state.Terminal() || to != l.state+1 || to == StateFailed {
		panic(fmt.Sprintf("gateway: illegal transition %s -> %s", l.state, to))
	}
	l.state = to
	l.trace = append(l.trace, to)
}

// fail moves to StateFailed and records the kind of err. It returns err.
func (l *lifecycle) fail(err error) error {
	if l.state.Terminal() {
		panic(fmt.Sprintf("gateway: illegal transition %s -> %s", l.state, StateFailed))
	}
	l.state = StateFailed
	l.failure = errors.CodeOf(err)
	l.trace = append(l.trace, StateFailed)
	return err
}
