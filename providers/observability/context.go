package observability

import "context"

type (
	spanKey     struct{}
	observerKey struct{}
)

// SpanFromContext extracts a Span from the context.
// Returns nil if no span is present.
func SpanFromContext(ctx context.Context) Span {
	if ctx == nil {
		return nil
	}
	span, _ := ctx.Value(spanKey{}).(Span)
	return span
}

// ContextWithSpan returns a new context with the given span attached.
func ContextWithSpan(ctx context.Context, span Span) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, spanKey{}, span)
}

// ContextWithObserver returns a new context carrying observer. Components
// that were built without a provider fall back to the one found here.
func ContextWithObserver(ctx context.Context, observer Provider) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, observerKey{}, observer)
}

// ObserverFromContext returns the Provider stored by ContextWithObserver, or nil.
func ObserverFromContext(ctx context.Context) Provider {
	if ctx == nil {
		return nil
	}
	observer, _ := ctx.Value(observerKey{}).(Provider)
	return observer
}

// Resolve picks the provider a component should report to: its own if set,
// otherwise the one carried by ctx, otherwise a no-op provider. The result is
// never nil.
func Resolve(ctx context.Context, own Provider) Provider {
	if own != nil {
		return own
	}
	if observer := ObserverFromContext(ctx); observer != nil {
		return observer
	}
	return Nop()
}
