// Package memo is the run-or-fetch convenience layer: look a key up in a
// cache namespace, and on miss compute the value and store it for next
// time.
package memo

import (
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/recallhq/recall/internal/store"
)

// group collapses concurrent in-process computations of the same
// namespace+key, so a burst of misses runs fn once. Cross-process callers
// are not coordinated; the last write wins, as everywhere in the store.
//
//nolint:gochecknoglobals // Process-wide dedup is the point of singleflight.
var group singleflight.Group

// Do returns the cached value under key if one exists and is no older
// than maxAge. Otherwise it runs fn, stores the result under key, and
// returns it. The boolean reports a cache hit. When fn fails nothing is
// stored and its error is returned.
func Do[T any](ns *store.Namespace, key string, maxAge time.Duration, fn func() (T, error)) (T, bool, error) {
	var zero T

	var cached T
	hit, err := ns.Get(key, maxAge, &cached)
	if err != nil {
		return zero, false, err
	}
	if hit {
		return cached, true, nil
	}

	v, err, _ := group.Do(ns.Name()+"\x00"+key, func() (any, error) {
		value, fnErr := fn()
		if fnErr != nil {
			return zero, fnErr
		}
		if _, putErr := ns.Put(key, value); putErr != nil {
			return zero, putErr
		}
		return value, nil
	})
	if err != nil {
		return zero, false, err
	}
	return v.(T), false, nil
}
