// Package correlation carries the batch run identifier through context so every
// log line, span and metric push from one run can be tied together.
package correlation

import (
	"context"

	"github.com/oklog/ulid/v2"
)

type runIDKey struct{}

// RunIDFromContext returns the run identifier stored on ctx, or "".
func RunIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if val, ok := ctx.Value(runIDKey{}).(string); ok {
		return val
	}
	return ""
}

// ContextWithRunID stores id on ctx. Empty ids leave ctx untouched.
func ContextWithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey{}, id)
}

// EnsureRunID guarantees a run id on the context, generating a ULID when missing.
func EnsureRunID(ctx context.Context) (context.Context, string) {
	id := RunIDFromContext(ctx)
	if id == "" {
		id = ulid.Make().String()
	}
	return ContextWithRunID(ctx, id), id
}
