package fingerprint

import (
	"fmt"
	"runtime"
	"strings"
)

// FromCaller builds a Call descriptor for the function skip frames above
// the caller of FromCaller. skip 0 names the immediate caller. The
// namespace is the resolved function's package name; pointer-receiver
// decoration is stripped so methods come back as "Type.Method".
//
// Argument values must still be supplied explicitly: the runtime exposes
// the call stack's program counters, not the caller's bindings.
func FromCaller(skip int, args ...Arg) (Call, error) {
	if skip < 0 {
		return Call{}, fmt.Errorf("%w: stack depth must be >= 0, got %d", ErrInvalidArgument, skip)
	}

	pc, _, _, ok := runtime.Caller(skip + 1)
	if !ok {
		return Call{}, fmt.Errorf("%w: no call frame %d levels up", ErrInvalidArgument, skip)
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return Call{}, fmt.Errorf("%w: no function at call frame %d", ErrInvalidArgument, skip)
	}

	namespace, name := splitFuncName(fn.Name())
	return Call{Namespace: namespace, Name: name, Args: args}, nil
}

// splitFuncName splits a runtime function name such as
// "github.com/recallhq/recall/internal/store.(*Namespace).Get" into its
// package name and a cleaned function name.
func splitFuncName(full string) (string, string) {
	if idx := strings.LastIndex(full, "/"); idx >= 0 {
		full = full[idx+1:]
	}
	namespace := ""
	name := full
	if dot := strings.Index(full, "."); dot > 0 {
		namespace = full[:dot]
		name = full[dot+1:]
	}
	name = strings.NewReplacer("(", "", ")", "", "*", "").Replace(name)
	// Generic instantiations carry a "[...]" suffix.
	if idx := strings.Index(name, "["); idx >= 0 {
		name = name[:idx]
		name = strings.TrimSuffix(name, ".")
	}
	return namespace, name
}
