package evaluator

import (
	"zonescript/internal/object"
	"zonescript/internal/token"
)

// Flow says how a statement finished.
type Flow int

const (
	FlowNormal Flow = iota
	FlowReturn
	FlowBreak
	FlowContinue
)

func (f Flow) String() string {
	switch f {
	case FlowReturn:
		return "return"
	case FlowBreak:
		return "break"
	case FlowContinue:
		return "continue"
	default:
		return "normal"
	}
}

// Outcome is the result of executing a statement. Loops consume Break and
// Continue; function calls consume Return.
type Outcome struct {
	Flow  Flow
	Value object.Object
	Pos   token.Token // the break/continue/return token, for escape errors
}

func normal(v object.Object) Outcome {
	return Outcome{Flow: FlowNormal, Value: v}
}
