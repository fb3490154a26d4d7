package schemas

import "time"

// -- Probe Capability Schemas --

// ProbeOptions is the structured calling convention for probes that take more
// than a bare target, mirroring keyword-style invocation.
type ProbeOptions struct {
	Target  string
	Timeout time.Duration
}

// The three calling conventions a probe may expose. The invoker tries them in
// this priority order: TargetProbe, TargetTimeoutProbe, OptionsProbe. Probes
// do not share a base type; satisfying any one signature is enough.
type (
	TargetProbe        func(target string) RawResult
	TargetTimeoutProbe func(target string, timeout time.Duration) RawResult
	OptionsProbe       func(opts ProbeOptions) RawResult
)

// Capability is one of TargetProbe, TargetTimeoutProbe or OptionsProbe.
// Registries hold capabilities untyped so heterogeneous signatures can live
// in one map.
type Capability any
