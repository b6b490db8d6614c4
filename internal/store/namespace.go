package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/recallhq/recall/internal/backend"
)

// Entry is one listed cache entry: its key and creation instant.
type Entry struct {
	Key       string
	CreatedAt time.Time
}

// Namespace is a handle to one client's cache namespace, obtained from
// Store.Ensure. All operations re-provision lazily, so a handle stays
// usable after Teardown of its client.
type Namespace struct {
	store    *Store
	name     string
	clientID string
}

// Name returns the namespace name in the backing store.
func (n *Namespace) Name() string { return n.name }

// Path returns the namespace's on-disk location. Diagnostics only; no
// operation takes decisions based on it.
func (n *Namespace) Path() string {
	return n.store.backend.Path(n.name)
}

// List returns the (key, createdAt) pairs currently stored. Records
// without a creation timestamp (foreign or legacy data) are omitted, so a
// namespace holding only such records lists as empty rather than erroring.
func (n *Namespace) List() ([]Entry, error) {
	records, err := n.listRecords()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(records))
	for _, rec := range records {
		if rec.Meta.CreatedAt.IsZero() {
			continue
		}
		entries = append(entries, Entry{Key: rec.Key, CreatedAt: rec.Meta.CreatedAt})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

// Put writes value under key, stamped with the current UTC instant. An
// existing entry under the same key is overwritten unconditionally.
// Returns the written value.
func (n *Namespace) Put(key string, value any) (any, error) {
	if err := n.validateKey(key); err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: value for key %q is not serializable: %v", ErrInvalidArgument, key, err)
	}
	if err := n.provision(); err != nil {
		return nil, err
	}
	meta := backend.Metadata{CreatedAt: n.store.now().UTC()}
	if err := n.store.backend.Put(n.name, key, encoded, meta); err != nil {
		return nil, fmt.Errorf("writing %s/%s: %w", n.name, key, err)
	}
	n.store.log.Debug().Str("namespace", n.name).Str("key", key).Msg("cache put")
	return value, nil
}

// Get looks up key and decodes the stored value into out (which may be
// nil to probe for freshness only). The boolean reports whether a
// fresh-enough value was found: false covers both absence and staleness,
// and a stale entry is left in place.
//
// An entry without a creation timestamp is corruption: Get fails with
// ErrCorrupted and the namespace's backing storage must be deleted before
// retrying. More than one stored entry for the key fails with
// ErrInvariant.
func (n *Namespace) Get(key string, maxAge time.Duration, out any) (bool, error) {
	if err := n.validateKey(key); err != nil {
		return false, err
	}
	if maxAge <= 0 {
		return false, fmt.Errorf("%w: max age must be positive, got %v", ErrInvalidArgument, maxAge)
	}

	records, err := n.listRecords()
	if err != nil {
		return false, err
	}
	var match *backend.Record
	for i := range records {
		if records[i].Key != key {
			continue
		}
		if match != nil {
			return false, fmt.Errorf("%w: %d entries for key %q in %s",
				ErrInvariant, countKey(records, key), key, n.name)
		}
		match = &records[i]
	}
	if match == nil {
		return false, nil
	}
	if match.Meta.CreatedAt.IsZero() {
		return false, fmt.Errorf(
			"%w: entry %q has no creation timestamp; delete the backing storage for namespace %s (at %s) and retry",
			ErrCorrupted, key, n.name, n.Path())
	}

	age := n.store.now().Sub(match.Meta.CreatedAt)
	if age > maxAge {
		n.store.log.Debug().Str("namespace", n.name).Str("key", key).
			Dur("age", age).Dur("max_age", maxAge).Msg("cache stale")
		return false, nil
	}

	value := match.Value
	if value == nil {
		rec, getErr := n.store.backend.Get(n.name, key)
		if getErr != nil {
			return false, fmt.Errorf("reading %s/%s: %w", n.name, key, getErr)
		}
		value = rec.Value
	}
	if out != nil {
		if decodeErr := json.Unmarshal(value, out); decodeErr != nil {
			return false, fmt.Errorf("decoding %s/%s: %w", n.name, key, decodeErr)
		}
	}
	return true, nil
}

// Remove deletes the entry under key. No-op if absent.
func (n *Namespace) Remove(key string) error {
	if err := n.validateKey(key); err != nil {
		return err
	}
	if err := n.provision(); err != nil {
		return err
	}
	if err := n.store.backend.Delete(n.name, key); err != nil {
		return fmt.Errorf("removing %s/%s: %w", n.name, key, err)
	}
	return nil
}

// Clear deletes every entry older than maxAge (DefaultMaxAge when zero)
// and returns the deleted keys. Entries within the threshold are kept.
// Deletion is best-effort per entry: a failure on one entry doesn't stop
// the sweep, and the combined error is returned alongside the keys that
// were deleted. Idempotent when nothing ages in between.
func (n *Namespace) Clear(maxAge time.Duration) ([]string, error) {
	if maxAge == 0 {
		maxAge = DefaultMaxAge
	}
	if maxAge < 0 {
		return nil, fmt.Errorf("%w: max age must be positive, got %v", ErrInvalidArgument, maxAge)
	}

	entries, err := n.List()
	if err != nil {
		return nil, err
	}

	now := n.store.now()
	var deleted []string
	var errs []error
	for _, e := range entries {
		if now.Sub(e.CreatedAt) <= maxAge {
			continue
		}
		if delErr := n.store.backend.Delete(n.name, e.Key); delErr != nil {
			errs = append(errs, fmt.Errorf("removing %s/%s: %w", n.name, e.Key, delErr))
			continue
		}
		deleted = append(deleted, e.Key)
	}
	if len(deleted) > 0 {
		n.store.log.Debug().Str("namespace", n.name).Strs("keys", deleted).Msg("cache cleared")
	}
	return deleted, errors.Join(errs...)
}

func (n *Namespace) validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key is empty", ErrInvalidArgument)
	}
	return nil
}

// provision re-provisions the namespace before a write, honoring the
// lazy-creation contract even if the directory was removed out of band.
func (n *Namespace) provision() error {
	if _, err := n.store.backend.Provision(n.name); err != nil {
		return fmt.Errorf("provisioning namespace %s: %w", n.name, err)
	}
	return nil
}

func (n *Namespace) listRecords() ([]backend.Record, error) {
	if err := n.provision(); err != nil {
		return nil, err
	}
	records, err := n.store.backend.List(n.name)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", n.name, err)
	}
	return records, nil
}

func countKey(records []backend.Record, key string) int {
	count := 0
	for _, rec := range records {
		if rec.Key == key {
			count++
		}
	}
	return count
}
