package observer

import "go.opentelemetry.io/otel/attribute"

const (
	AttrSessionID     = attribute.Key("think.session.id")
	AttrParentSession = attribute.Key("think.session.parent_id")
	AttrSessionState  = attribute.Key("think.session.state")
	AttrToolCount     = attribute.Key("think.session.tool_count")
	AttrPromptLength  = attribute.Key("think.session.prompt_length")
	AttrToolCalls     = attribute.Key("think.session.tool_calls")
	AttrResultRetries = attribute.Key("think.session.result_retries")

	AttrToolName     = attribute.Key("think.tool.name")
	AttrToolCallID   = attribute.Key("think.tool.call_id")
	AttrToolStatus   = attribute.Key("think.tool.status")
	AttrOutputLength = attribute.Key("think.tool.output_length")

	AttrStateFrom = attribute.Key("think.state.from")
	AttrStateTo   = attribute.Key("think.state.to")
	AttrAttempt   = attribute.Key("think.result.attempt")
)
