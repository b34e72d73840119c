package think

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateToolName is returned when a tool name is already registered
	// in the same session, including the reserved result tool name.
	ErrDuplicateToolName = errors.New("duplicate tool name")

	// ErrInvalidTool is returned when a tool has no name or an input schema
	// that does not compile.
	ErrInvalidTool = errors.New("invalid tool")

	// ErrUnknownTool is returned when the agent calls a tool that is not
	// registered in the session.
	ErrUnknownTool = errors.New("unknown tool")

	ErrInputDecode  = errors.New("tool input does not match its schema")
	ErrOutputEncode = errors.New("tool output could not be encoded")
	ErrCallable     = errors.New("tool callable failed")

	// ErrResultDecode is returned when the agent's result cannot be decoded
	// into the requested type.
	ErrResultDecode = errors.New("result does not match the expected type")

	// ErrNoResult is returned when the agent ends the session without a
	// successful return_result call.
	ErrNoResult = errors.New("session ended without a result")

	ErrTransport        = errors.New("agent transport failure")
	ErrSessionCancelled = errors.New("session cancelled")
	ErrToolErrorBudget  = errors.New("too many consecutive tool errors")

	ErrBuilderConsumed       = errors.New("builder already run")
	ErrDanglingToolReference = errors.New("prompt mentions a tool that is not defined")
	ErrSpacingLocked         = errors.New("spacing mode can only be chosen once, before the first segment")
)

// ToolError describes a failed tool invocation within a session.
type ToolError struct {
	Tool   string
	CallID string
	Err    error
}

func (e *ToolError) Error() string {
	if e.CallID == "" {
		return fmt.Sprintf("tool %q: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("tool %q (call %s): %v", e.Tool, e.CallID, e.Err)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}
