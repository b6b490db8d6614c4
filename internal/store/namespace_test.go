package store_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallhq/recall/internal/backend"
	"github.com/recallhq/recall/internal/backend/sqlstore"
	"github.com/recallhq/recall/internal/store"
)

func ensure(t *testing.T, st *store.Store, client string) *store.Namespace {
	t.Helper()
	ns, _, err := st.Ensure(client)
	require.NoError(t, err)
	return ns
}

func newTestSQLBackend(t *testing.T) *sqlstore.SQLStore {
	t.Helper()
	db, err := sqlstore.Open(filepath.Join(t.TempDir(), "recall.db"))
	require.NoError(t, err)
	return db
}

func TestRoundTrip(t *testing.T) {
	st, _ := newTestStore(t)
	ns := ensure(t, st, "demo")

	type result struct {
		Total int      `json:"total"`
		Tags  []string `json:"tags"`
	}
	want := result{Total: 7, Tags: []string{"a", "b"}}

	written, err := ns.Put("report", want)
	require.NoError(t, err)
	assert.Equal(t, want, written, "Put returns the written value")

	var got result
	hit, err := ns.Get("report", store.Forever, &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, want, got)
}

func TestGetAbsent(t *testing.T) {
	st, _ := newTestStore(t)
	ns := ensure(t, st, "demo")

	hit, err := ns.Get("never-put", store.Forever, nil)
	require.NoError(t, err, "absence is not an error")
	assert.False(t, hit)

	t.Run("after remove", func(t *testing.T) {
		_, err := ns.Put("k", 1)
		require.NoError(t, err)
		require.NoError(t, ns.Remove("k"))

		hit, err := ns.Get("k", store.Forever, nil)
		require.NoError(t, err)
		assert.False(t, hit)
	})
}

func TestRemoveAbsent(t *testing.T) {
	st, _ := newTestStore(t)
	ns := ensure(t, st, "demo")
	require.NoError(t, ns.Remove("never-put"), "remove of absent key is a no-op")
}

// put 42, read it back within a day, then age it two days: a 1-day
// threshold misses while a 3-day threshold still hits, and the stale
// entry stays on disk.
func TestStaleness(t *testing.T) {
	st, clock := newTestStore(t)
	ns := ensure(t, st, "demo")

	_, err := ns.Put("k1", 42)
	require.NoError(t, err)

	var v int
	hit, err := ns.Get("k1", 24*time.Hour, &v)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 42, v)

	clock.Advance(48 * time.Hour)

	hit, err = ns.Get("k1", 24*time.Hour, nil)
	require.NoError(t, err)
	assert.False(t, hit, "entry older than max age reads as no value")

	hit, err = ns.Get("k1", 72*time.Hour, &v)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 42, v)

	t.Run("monotonic in the threshold", func(t *testing.T) {
		for _, maxAge := range []time.Duration{time.Hour, 6 * time.Hour, 12 * time.Hour} {
			hit, err := ns.Get("k1", maxAge, nil)
			require.NoError(t, err)
			assert.False(t, hit)
		}
	})

	t.Run("stale entry is left in place", func(t *testing.T) {
		entries, err := ns.List()
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "k1", entries[0].Key)
	})

	t.Run("put resets freshness", func(t *testing.T) {
		_, err := ns.Put("k1", 43)
		require.NoError(t, err)

		hit, err := ns.Get("k1", time.Hour, &v)
		require.NoError(t, err)
		assert.True(t, hit)
		assert.Equal(t, 43, v)
	})
}

func TestList(t *testing.T) {
	st, clock := newTestStore(t)
	ns := ensure(t, st, "demo")

	t.Run("fresh namespace lists empty", func(t *testing.T) {
		entries, err := ns.List()
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	_, err := ns.Put("b", 2)
	require.NoError(t, err)
	clock.Advance(time.Minute)
	_, err = ns.Put("a", 1)
	require.NoError(t, err)

	entries, err := ns.List()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].Key)
	assert.Equal(t, "b", entries[1].Key)
	assert.True(t, entries[0].CreatedAt.After(entries[1].CreatedAt))
}

// Foreign entries without a creation timestamp list as empty rather than
// erroring.
func TestListForeignEntries(t *testing.T) {
	st, _ := newTestStore(t)
	ns := ensure(t, st, "demo")

	foreign := filepath.Join(ns.Path(), "foreign.json")
	require.NoError(t, os.WriteFile(foreign, []byte(`{"key":"foreign","data":1}`), 0600))

	entries, err := ns.List()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestClear(t *testing.T) {
	st, clock := newTestStore(t)
	ns := ensure(t, st, "demo")

	_, err := ns.Put("old", 1)
	require.NoError(t, err)
	clock.Advance(36 * time.Hour)
	_, err = ns.Put("fresh", 2)
	require.NoError(t, err)
	clock.Advance(time.Hour)

	deleted, err := ns.Clear(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, deleted, "exactly the entries over the threshold go")

	entries, err := ns.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "fresh", entries[0].Key)

	t.Run("idempotent", func(t *testing.T) {
		deleted, err := ns.Clear(24 * time.Hour)
		require.NoError(t, err)
		assert.Empty(t, deleted, "second sweep with nothing newly stale deletes nothing")
	})

	t.Run("zero threshold means one day", func(t *testing.T) {
		clock.Advance(25 * time.Hour)
		deleted, err := ns.Clear(0)
		require.NoError(t, err)
		assert.Equal(t, []string{"fresh"}, deleted)
	})
}

func TestCorruption(t *testing.T) {
	st, _ := newTestStore(t)
	ns := ensure(t, st, "demo")

	// An entry that exists without its creation timestamp marks the
	// namespace as compromised.
	bad := filepath.Join(ns.Path(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"key":"bad","data":1}`), 0600))

	_, err := ns.Get("bad", store.Forever, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrCorrupted)
	assert.Contains(t, err.Error(), ns.Name(), "remediation is scoped to the compromised namespace")
	assert.Contains(t, err.Error(), ns.Path())
}

// On a backend whose namespaces share one storage location, the
// remediation message must name the compromised namespace, not just the
// shared file.
func TestCorruptionSharedStorage(t *testing.T) {
	db := newTestSQLBackend(t)
	require.NoError(t, db.Put("cache-demo", "bad", []byte(`1`), backend.Metadata{}))

	st := store.New(db)
	ns := ensure(t, st, "demo")

	_, err := ns.Get("bad", store.Forever, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrCorrupted)
	assert.Contains(t, err.Error(), "namespace cache-demo")
}

func TestInvalidArguments(t *testing.T) {
	st, _ := newTestStore(t)
	ns := ensure(t, st, "demo")

	t.Run("empty key", func(t *testing.T) {
		_, err := ns.Put("", 1)
		assert.ErrorIs(t, err, store.ErrInvalidArgument)

		_, err = ns.Get("", store.Forever, nil)
		assert.ErrorIs(t, err, store.ErrInvalidArgument)

		assert.ErrorIs(t, ns.Remove(""), store.ErrInvalidArgument)
	})

	t.Run("non-positive max age", func(t *testing.T) {
		_, err := ns.Get("k", 0, nil)
		assert.ErrorIs(t, err, store.ErrInvalidArgument)

		_, err = ns.Clear(-time.Hour)
		assert.ErrorIs(t, err, store.ErrInvalidArgument)
	})

	t.Run("unserializable value", func(t *testing.T) {
		_, err := ns.Put("k", make(chan int))
		assert.ErrorIs(t, err, store.ErrInvalidArgument)
	})
}

// fakeBackend drives the error paths a healthy backend can't produce.
type fakeBackend struct {
	records       []backend.Record
	deregisterErr error
}

func (f *fakeBackend) Provision(string) (bool, error) { return false, nil }
func (f *fakeBackend) List(string) ([]backend.Record, error) {
	out := make([]backend.Record, len(f.records))
	for i, rec := range f.records {
		// Metadata-only listing: values come from Get.
		out[i] = backend.Record{Key: rec.Key, Meta: rec.Meta}
	}
	return out, nil
}
func (f *fakeBackend) Put(_, key string, value []byte, meta backend.Metadata) error {
	f.records = append(f.records, backend.Record{Key: key, Value: value, Meta: meta})
	return nil
}
func (f *fakeBackend) Get(_, key string) (backend.Record, error) {
	for _, rec := range f.records {
		if rec.Key == key {
			return rec, nil
		}
	}
	return backend.Record{}, backend.ErrNoRecord
}
func (f *fakeBackend) Delete(_, key string) error { return nil }
func (f *fakeBackend) Deregister(string) error    { return f.deregisterErr }
func (f *fakeBackend) Path(string) string         { return "(fake)" }

// Two records under one key break the uniqueness invariant: Get must
// fail fatally rather than silently pick one.
func TestInvariantViolation(t *testing.T) {
	now := time.Now().UTC()
	fake := &fakeBackend{records: []backend.Record{
		{Key: "dup", Value: []byte(`1`), Meta: backend.Metadata{CreatedAt: now}},
		{Key: "dup", Value: []byte(`2`), Meta: backend.Metadata{CreatedAt: now}},
	}}
	st := store.New(fake)
	ns := ensure(t, st, "demo")

	_, err := ns.Get("dup", store.Forever, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrInvariant)
}

// A backend whose List omits values forces Get to fetch the payload
// separately.
func TestGetFetchesValueWhenListOmitsIt(t *testing.T) {
	fake := &fakeBackend{}
	require.NoError(t, fake.Put("cache-demo", "k", []byte(`"payload"`),
		backend.Metadata{CreatedAt: time.Now().UTC()}))

	st := store.New(fake)
	ns := ensure(t, st, "demo")

	var v string
	hit, err := ns.Get("k", store.Forever, &v)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "payload", v)
}
