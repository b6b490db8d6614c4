// Package fingerprint derives deterministic string identifiers for
// function calls, suitable as cache keys.
//
// A caller describes its own invocation as a Call: the qualified function
// name plus the ordered, already-evaluated argument values. Generate
// digests that descriptor into `[namespace-]name[-hash]`. Arguments whose
// names control caching itself (use_cache, cache_lifespan by default) are
// excluded from the digest so that toggling them never changes the key.
package fingerprint

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// ErrInvalidArgument indicates a malformed call descriptor or exclusion
// set. It is raised at the call boundary and never retried.
var ErrInvalidArgument = errors.New("invalid call descriptor")

// Arg is one evaluated call argument. Name may be empty for positional
// arguments, but only under an explicitly empty exclusion set: an unnamed
// argument cannot be checked against exclusions, so it could smuggle a
// cache-control flag into the hash.
type Arg struct {
	Name  string
	Value any
}

// Call describes a function invocation: the owning namespace (package),
// the function name, and the arguments in call order with their evaluated
// values.
type Call struct {
	Namespace string
	Name      string
	Args      []Arg
}

// Options controls fingerprint generation.
type Options struct {
	// WithNamespace prefixes the fingerprint with the call's namespace.
	// The prefix is omitted regardless when no namespace is known.
	WithNamespace bool

	// Exclude lists argument names removed before hashing. Nil means
	// DefaultExclusions(); use NoExclusions for an explicitly empty set.
	Exclude []string
}

// NoExclusions is an explicitly empty exclusion set, distinct from nil
// (which selects the defaults).
//
//nolint:gochecknoglobals // Sentinel value, never mutated.
var NoExclusions = make([]string, 0)

// DefaultExclusions returns the argument names excluded from fingerprints
// by default. These conventionally carry cache-control flags, which must
// never influence the key of the result they control.
func DefaultExclusions() []string {
	return []string{"use_cache", "cache_lifespan"}
}

// DefaultOptions returns the standard generation options: namespace
// prefix on, default exclusions.
func DefaultOptions() Options {
	return Options{WithNamespace: true}
}

// Generate derives the fingerprint for call.
//
// The filtered argument values are hashed with xxhash in call order; the
// hash segment is omitted entirely when no arguments survive filtering.
// Two calls whose non-excluded arguments evaluate to equal values produce
// the same fingerprint; changing any non-excluded value changes it.
func Generate(call Call, opts Options) (string, error) {
	namespace, name, err := splitQualifiedName(call)
	if err != nil {
		return "", err
	}

	exclude := opts.Exclude
	if exclude == nil {
		exclude = DefaultExclusions()
	}
	excluded := make(map[string]bool, len(exclude))
	for _, n := range exclude {
		if n == "" {
			return "", fmt.Errorf("%w: exclusion set contains an empty name", ErrInvalidArgument)
		}
		excluded[n] = true
	}

	args := make([]Arg, 0, len(call.Args))
	for i, a := range call.Args {
		if a.Name == "" && len(excluded) > 0 {
			return "", fmt.Errorf(
				"%w: argument %d is unnamed and cannot be checked against exclusions",
				ErrInvalidArgument, i)
		}
		if excluded[a.Name] {
			continue
		}
		args = append(args, a)
	}

	parts := make([]string, 0, 3)
	if opts.WithNamespace && namespace != "" {
		parts = append(parts, namespace)
	}
	parts = append(parts, name)
	if len(args) > 0 {
		digest, hashErr := hashArgs(args)
		if hashErr != nil {
			return "", hashErr
		}
		parts = append(parts, digest)
	}
	return strings.Join(parts, "-"), nil
}

// hashArgs digests the evaluated argument values in order. Values are
// canonicalized through JSON (map keys sorted, so equal values collapse)
// and length-framed so adjacent arguments can't alias each other.
func hashArgs(args []Arg) (string, error) {
	h := xxhash.New()
	var frame [8]byte
	for i, a := range args {
		encoded, err := json.Marshal(a.Value)
		if err != nil {
			return "", fmt.Errorf("%w: argument %d (%s) is not hashable: %v",
				ErrInvalidArgument, i, a.Name, err)
		}
		binary.BigEndian.PutUint64(frame[:], uint64(len(encoded)))
		_, _ = h.Write(frame[:])
		_, _ = h.Write(encoded)
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

// splitQualifiedName resolves the effective (namespace, name) pair for a
// call. A name already qualified as pkg::fn wins over Call.Namespace;
// dotted names are method names and are kept whole. An unrecognized
// qualified form is an error rather than being passed through silently.
func splitQualifiedName(call Call) (string, string, error) {
	if call.Name == "" {
		return "", "", fmt.Errorf("%w: function name is empty", ErrInvalidArgument)
	}

	namespace := call.Namespace
	name := call.Name
	if segments := strings.Split(name, "::"); len(segments) == 2 {
		namespace, name = segments[0], segments[1]
	} else if len(segments) > 2 {
		return "", "", fmt.Errorf("%w: unrecognized qualified name %q", ErrInvalidArgument, call.Name)
	}

	if namespace != "" && !isIdentifier(namespace) {
		return "", "", fmt.Errorf("%w: invalid namespace %q", ErrInvalidArgument, namespace)
	}
	if !isDotted(name) {
		return "", "", fmt.Errorf("%w: unrecognized function name %q", ErrInvalidArgument, name)
	}
	return namespace, name, nil
}

// isDotted reports whether s is a dot-separated chain of identifiers,
// such as a method name "Store.Get".
func isDotted(s string) bool {
	if s == "" {
		return false
	}
	for _, seg := range strings.Split(s, ".") {
		if !isIdentifier(seg) {
			return false
		}
	}
	return true
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
