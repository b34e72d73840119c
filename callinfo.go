package think

import "context"

// CallInfo identifies the tool call a callable is serving.
type CallInfo struct {
	SessionID       string
	ParentSessionID string
	CallID          string
	ToolName        string
}

type callInfoKey struct{}

// CallInfoFrom returns the call information attached to ctx by the session
// driver. A builder run from inside a callable uses it to record the outer
// session as its parent.
func CallInfoFrom(ctx context.Context) (CallInfo, bool) {
	info, ok := ctx.Value(callInfoKey{}).(CallInfo)
	return info, ok
}

func withCallInfo(ctx context.Context, info CallInfo) context.Context {
	return context.WithValue(ctx, callInfoKey{}, info)
}
