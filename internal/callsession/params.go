package callsession

import (
	"errors"
	"fmt"
	"maps"
)

var ErrUnsupportedSessionKind = errors.New("unsupported session kind")

// Kind is the purpose of a call session.
type Kind string

// KindGenerate asks the agent to collect what it needs to generate a new
// interview for the user.
const KindGenerate Kind = "generate"

// Params binds a controller to a user and a session kind.
type Params struct {
	UserName string
	UserID   string
	Kind     Kind
}

// StartCommand is what the controller hands to VoiceAgent.Start.
type StartCommand struct {
	WorkflowID     string
	VariableValues map[string]string
}

func (s StartCommand) variables() map[string]string {
	return maps.Clone(s.VariableValues)
}

// BuildStartCommand applies the start rule for p.Kind.
func BuildStartCommand(workflowID string, p Params) (StartCommand, error) {
	switch p.Kind {
	case KindGenerate:
		return StartCommand{
			WorkflowID: workflowID,
			VariableValues: map[string]string{
				"username": p.UserName,
				"userid":   p.UserID,
			},
		}, nil
	default:
		return StartCommand{}, fmt.Errorf("%w: %q", ErrUnsupportedSessionKind, p.Kind)
	}
}
