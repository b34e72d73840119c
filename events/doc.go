// Package events fans session events out to subscribers.
//
// A subscriber is any value implementing one or more of the think
// subscriber interfaces (think.AfterToolCallSubscriber and friends). The
// registry calls only the methods a subscriber has.
//
//	type slowTools struct{ threshold time.Duration }
//
//	func (s slowTools) OnAfterToolCall(ctx context.Context, e *think.AfterToolCallEvent) {
//	    if e.Duration > s.threshold {
//	        log.Printf("slow tool %s: %s", e.ToolName, e.Duration)
//	    }
//	}
//
//	registry := events.NewRegistry().
//	    Subscribe(slowTools{threshold: time.Second}).
//	    Subscribe(loggers.NewYAML(os.Stderr))
//
//	engine, err := think.New(agent, think.WithDispatcher(registry))
//
// Subscribers are called synchronously, in subscription order, on the
// goroutine driving the session.
package events
