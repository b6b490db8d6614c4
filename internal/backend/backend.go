// Package backend defines the capability interface a persistence mechanism
// must provide to host cache namespaces. Implementations live in
// subpackages (filestore, sqlstore); the store layer is written against
// this interface only.
package backend

import (
	"errors"
	"time"
)

// ErrNoRecord is returned by Get when no record exists under the key.
// Callers treat it as a normal miss, not a failure.
var ErrNoRecord = errors.New("no record for key")

// Metadata is the per-record bookkeeping a backend must persist alongside
// the value. A zero CreatedAt marks a record written by something other
// than this library (foreign or legacy data).
type Metadata struct {
	CreatedAt time.Time `json:"created_at"`
}

// Record is one stored entry in a namespace. List implementations may
// leave Value nil; Get must populate it.
type Record struct {
	Key   string
	Value []byte
	Meta  Metadata
}

// Backend is namespace-scoped key/value persistence with record metadata.
//
// Provision and Deregister manage the namespace itself; the remaining
// operations address records inside an already-provisioned namespace.
// Implementations are synchronous and must make Delete idempotent.
type Backend interface {
	// Provision creates the namespace if absent. Reports whether it was
	// newly created.
	Provision(name string) (bool, error)

	// List returns every record in the namespace, metadata included.
	List(name string) ([]Record, error)

	// Put writes a record, overwriting any record under the same key.
	Put(name, key string, value []byte, meta Metadata) error

	// Get returns the record under key, or ErrNoRecord if absent.
	Get(name, key string) (Record, error)

	// Delete removes the record under key. No-op if absent.
	Delete(name, key string) error

	// Deregister releases backend resources held for the namespace. It
	// does not necessarily remove persisted data.
	Deregister(name string) error

	// Path reports the namespace's on-disk location for diagnostics.
	Path(name string) string
}
