// Package pipeline orchestrates the release phases: Infer, Mark, Make and
// Publish, checkpointing the engine state after each one.
package pipeline

import (
	"github.com/felixgeelhaar/statekit"

	nyxerrors "github.com/relicta-tech/nyx/internal/errors"
)

// Phase machine states.
var (
	stateInitialized statekit.StateID = "initialized"
	stateInferred    statekit.StateID = "inferred"
	stateMarked      statekit.StateID = "marked"
	stateMade        statekit.StateID = "made"
	statePublished   statekit.StateID = "published"
)

// Phase machine events.
const (
	eventInfer   statekit.EventType = "INFER"
	eventMark    statekit.EventType = "MARK"
	eventMake    statekit.EventType = "MAKE"
	eventPublish statekit.EventType = "PUBLISH"
)

// phaseMachine enforces the phase ordering. Re-running an earlier phase
// within one invocation is a programming error, not a user error.
type phaseMachine struct {
	interpreter *statekit.Interpreter[struct{}]
}

func newPhaseMachine() (*phaseMachine, error) {
	machine, err := statekit.NewMachine[struct{}]("release-pipeline").
		WithInitial(stateInitialized).
		State(stateInitialized).
		On(eventInfer).Target(stateInferred).
		Done().
		State(stateInferred).
		On(eventInfer).Target(stateInferred).
		On(eventMark).Target(stateMarked).
		Done().
		State(stateMarked).
		On(eventMake).Target(stateMade).
		Done().
		State(stateMade).
		On(eventPublish).Target(statePublished).
		Done().
		State(statePublished).
		Final().
		Done().
		Build()
	if err != nil {
		return nil, nyxerrors.Wrap(err, nyxerrors.KindInternal, "pipeline.newPhaseMachine", "unable to build the phase machine")
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()
	return &phaseMachine{interpreter: interpreter}, nil
}

// advance fires the event for a phase and fails when the ordering is
// violated.
func (m *phaseMachine) advance(event statekit.EventType, target statekit.StateID) error {
	m.interpreter.Send(statekit.Event{Type: event})
	if m.interpreter.State().Value != target {
		return nyxerrors.Newf(nyxerrors.KindInternal, "pipeline.advance", "phase %s cannot run from state %s", string(event), string(m.interpreter.State().Value))
	}
	return nil
}

// current returns the machine state, for logging.
func (m *phaseMachine) current() statekit.StateID {
	return m.interpreter.State().Value
}
