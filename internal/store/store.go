// Package store implements the expiring cache store: namespaced,
// age-aware persistence for arbitrary JSON-serializable values, scoped
// per owning client and backed by a pluggable backend.
//
// Staleness is a read-time filter. Entries carry only their creation
// instant; a caller-supplied maximum age decides freshness at Get and
// Clear, and a stale Get leaves the entry in place.
package store

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/recallhq/recall/internal/backend"
)

// namespacePrefix maps a client identifier to its namespace name. The
// mapping is pure: no lookup table, no registration required to compute
// it.
const namespacePrefix = "cache-"

// DefaultMaxAge is the age threshold used by Clear when none is given.
const DefaultMaxAge = 24 * time.Hour

// Forever never expires: an entry of any age is fresh under it.
const Forever = time.Duration(math.MaxInt64)

// Store hands out Namespace handles over a backend. The in-process
// registry makes Ensure idempotent and safe to call redundantly from
// concurrent call sites.
type Store struct {
	backend backend.Backend
	now     func() time.Time
	log     zerolog.Logger

	mu       sync.Mutex
	registry map[string]*Namespace
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the wall clock, for tests that age entries without
// sleeping.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger attaches a logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// New creates a Store over b.
func New(b backend.Backend, opts ...Option) *Store {
	s := &Store{
		backend:  b,
		now:      time.Now,
		log:      zerolog.Nop(),
		registry: make(map[string]*Namespace),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NamespaceName returns the namespace name for a client identifier.
func NamespaceName(clientID string) (string, error) {
	if clientID == "" {
		return "", fmt.Errorf("%w: client identifier is empty", ErrInvalidArgument)
	}
	if strings.ContainsAny(clientID, "/\\") {
		return "", fmt.Errorf("%w: client identifier %q contains a path separator", ErrInvalidArgument, clientID)
	}
	return namespacePrefix + clientID, nil
}

// Ensure idempotently provisions the client's namespace and returns its
// handle, plus whether the namespace was newly created. Repeated calls
// for the same client return the same handle.
func (s *Store) Ensure(clientID string) (*Namespace, bool, error) {
	name, err := NamespaceName(clientID)
	if err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ns, ok := s.registry[clientID]; ok {
		return ns, false, nil
	}
	created, err := s.backend.Provision(name)
	if err != nil {
		return nil, false, fmt.Errorf("provisioning namespace %s: %w", name, err)
	}
	ns := &Namespace{store: s, name: name, clientID: clientID}
	s.registry[clientID] = ns
	if created {
		s.log.Debug().Str("namespace", name).Msg("namespace created")
	}
	return ns, created, nil
}

// Teardown drops the client's in-process registration and releases
// backend resources for its namespace. On-disk contents survive. No-op
// when the client is not currently registered.
func (s *Store) Teardown(clientID string) error {
	name, err := NamespaceName(clientID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.registry[clientID]; !ok {
		return nil
	}
	// Deregister first: a failure must leave the registration intact so a
	// retry sees consistent state.
	if err := s.backend.Deregister(name); err != nil {
		return fmt.Errorf("deregistering namespace %s: %w", name, err)
	}
	delete(s.registry, clientID)
	s.log.Debug().Str("namespace", name).Msg("namespace deregistered")
	return nil
}
