// Package think builds prompts that an LLM agent executes as a tool-driven
// session and turns the agent's final answer into a typed Go value.
//
// A prompt is assembled from segments: literal text, rendered values and
// references to tools. Tools are plain Go functions with typed input and
// output. The agent finishes by calling the reserved return_result tool,
// whose argument is validated against the JSON Schema of the requested
// result type.
//
// # Quick Start
//
//	engine, err := think.New(lcg.NewAgent(llm))
//	if err != nil {
//	    return err
//	}
//
//	type Verdict struct {
//	    Spam   bool   `json:"spam"`
//	    Reason string `json:"reason"`
//	}
//
//	lookup := think.NewTool("sender_reputation", "Look up a sender's reputation score",
//	    func(ctx context.Context, in struct{ Address string `json:"address"` }) (int, error) {
//	        return reputation.Score(ctx, in.Address)
//	    })
//
//	verdict, err := think.Think[Verdict](engine).
//	    Text("Decide whether this email from").
//	    Display(msg.From).
//	    Text("is spam. You may use").
//	    Tool(lookup).
//	    Text(". The body is:\n").
//	    Display(msg.Body).
//	    Run(ctx)
//
// # Spacing
//
// By default segments are joined with smart spacing: a single space is
// inserted between two segments unless the text so far is empty or ends in
// whitespace or an opening bracket, or the next segment starts with closing
// punctuation. Call [Builder.ExplicitSpacing] before the first segment to
// concatenate segments verbatim.
//
// # Nesting
//
// A tool callable may start another think session with the same engine.
// Each session owns its tool registry, so the nested session never
// contends with the outer one. [CallInfoFrom] exposes the calling session
// to the callable.
//
// # Events
//
// Sessions publish events (state changes, tool calls, rejected results)
// to the engine's [Dispatcher]. See the events, loggers and observer
// packages.
package think
