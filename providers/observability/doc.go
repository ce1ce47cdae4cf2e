// Package observability defines the interfaces and semantic conventions used
// for tracing, metrics and structured logging across replyparse.
//
// The central entry point is [Provider], which composes [Tracer], [Metrics],
// and [Logger] into a single injectable dependency. Callers can also carry a
// [Provider] and an active [Span] through a [context.Context] using
// [ContextWithObserver] and [ContextWithSpan]; they are retrieved with
// [ObserverFromContext] and [SpanFromContext]. [Resolve] returns the provider a
// component should use and falls back to [Nop], so instrumentation code never
// needs a nil check.
//
// The semconv.go file contains the attribute keys, span names and metric
// names used when recording observations.
package observability
