// Package scan implements the orchestration core: capability invocation with
// per-probe isolation, blocked-response classification, concurrent dispatch,
// result normalization and risk aggregation.
package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/vulnsight/vulnsight/api/schemas"
)

// invokeGrace is the slack added on top of a probe's own timeout before the
// invoker gives up waiting and synthesizes a Timeout failure. Probes enforce
// their own network timeouts; the grace only covers probes that wedge.
const invokeGrace = 500 * time.Millisecond

// Invoke executes one probe capability against one target with defensive
// isolation. Panics and overruns are converted into failure payloads; a
// probe's fault never propagates to the dispatcher.
func Invoke(ctx context.Context, capability schemas.Capability, target string, timeout time.Duration) schemas.RawResult {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	// Buffered so an abandoned probe goroutine can still complete its send.
	resultCh := make(chan schemas.RawResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultCh <- schemas.RawResult{
					"error":   "Exception",
					"details": fmt.Sprintf("probe panicked: %v", r),
				}
			}
		}()
		resultCh <- call(capability, target, timeout)
	}()

	timer := time.NewTimer(timeout + invokeGrace)
	defer timer.Stop()

	select {
	case res := <-resultCh:
		return res
	case <-ctx.Done():
		return schemas.RawResult{
			"error":   "Timeout",
			"details": fmt.Sprintf("batch deadline expired: %v", ctx.Err()),
		}
	case <-timer.C:
		return schemas.RawResult{
			"error":   "Timeout",
			"details": fmt.Sprintf("probe exceeded its %s budget", timeout),
		}
	}
}

// call adapts the heterogeneous probe signatures, trying calling conventions
// in fixed priority order: target-only, target+timeout, options struct.
func call(capability schemas.Capability, target string, timeout time.Duration) schemas.RawResult {
	switch c := capability.(type) {
	case schemas.TargetProbe:
		return c(target)
	case schemas.TargetTimeoutProbe:
		return c(target, timeout)
	case schemas.OptionsProbe:
		return c(schemas.ProbeOptions{Target: target, Timeout: timeout})
	case nil:
		return schemas.RawResult{"error": "Exception", "details": "nil probe capability"}
	default:
		return schemas.RawResult{
			"error":   "Exception",
			"details": fmt.Sprintf("unsupported capability signature %T", capability),
		}
	}
}
