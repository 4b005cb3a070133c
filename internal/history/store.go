// Package history implements the App History Store (C3): a thread-safe
// mapping from (user, package) to models.History, with a mutation API that
// enforces "only notify on bucket change" and supports deterministic
// per-user iteration for the scanner.
//
// Sharding follows the teacher's FNV-hash-sharded map
// (internal/ratelimit/limiter.go's domainShard), generalized from
// per-domain rate-limiter state to per-(user, package) history state.
package history

import (
	"hash/fnv"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/99souls/appstandby/models"
	"github.com/99souls/appstandby/telemetry/events"
)

const shardCount = 16

// ChangeNotification is delivered to listeners when a commit changes
// CurrentBucket from its pre-mutation value (spec §4.5).
type ChangeNotification struct {
	Key       models.AppKey
	OldBucket models.Bucket
	NewBucket models.Bucket
	Reason    models.Reason
}

// Listener receives bucket change notifications. Called synchronously from
// within Update; implementations must not block or re-enter the store.
type Listener func(ChangeNotification)

type shard struct {
	mu      sync.RWMutex
	records map[models.AppKey]models.History
}

// Store is the sharded, mutex-protected history map.
type Store struct {
	shards    [shardCount]*shard
	mu        sync.RWMutex // guards listeners only
	listeners []Listener
	bus       events.Bus

	size atomic.Int64
}

// New creates an empty Store. bus may be nil, in which case bucket changes
// are only delivered to registered Listeners, not published as telemetry
// events.
func New(bus events.Bus) *Store {
	s := &Store{bus: bus}
	for i := range s.shards {
		s.shards[i] = &shard{records: make(map[models.AppKey]models.History)}
	}
	return s
}

func (s *Store) shardFor(k models.AppKey) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(k.String()))
	return s.shards[h.Sum32()%shardCount]
}

// Read returns a copy of the record for k and whether it exists.
func (s *Store) Read(k models.AppKey) (models.History, bool) {
	sh := s.shardFor(k)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	rec, ok := sh.records[k]
	if !ok {
		return models.History{}, false
	}
	return rec.Clone(), true
}

// ReadOrDefault returns the record for k, or a freshly initialized ACTIVE
// record with reason DEFAULT if none exists yet -- it does not create the
// record in the store (see Update for that).
func (s *Store) ReadOrDefault(k models.AppKey) models.History {
	if rec, ok := s.Read(k); ok {
		return rec
	}
	return models.History{CurrentBucket: models.BucketActive, CurrentReason: models.ReasonDefault}
}

// Mutation is the closure signature taken by Update: given the current
// record (zero-value History with BucketActive/ReasonDefault if the key
// did not previously exist), it returns the new record to commit.
type Mutation func(current models.History, exists bool) models.History

// Update applies fn under the per-shard lock and commits the result,
// creating the record if it did not exist. If the committed record's
// CurrentBucket differs from the pre-mutation value, registered listeners
// and (if configured) the telemetry bus are notified after the lock is
// released.
func (s *Store) Update(k models.AppKey, fn Mutation) models.History {
	sh := s.shardFor(k)

	sh.mu.Lock()
	before, existed := sh.records[k]
	if !existed {
		before = models.History{CurrentBucket: models.BucketActive, CurrentReason: models.ReasonDefault}
	}
	after := fn(before, existed)
	sh.records[k] = after
	sh.mu.Unlock()

	if !existed {
		s.size.Add(1)
	}
	if after.CurrentBucket != before.CurrentBucket {
		s.notify(ChangeNotification{Key: k, OldBucket: before.CurrentBucket, NewBucket: after.CurrentBucket, Reason: after.CurrentReason})
	}
	return after
}

// Delete removes the record for k (package uninstall, per spec §3
// lifecycle).
func (s *Store) Delete(k models.AppKey) {
	sh := s.shardFor(k)
	sh.mu.Lock()
	_, existed := sh.records[k]
	delete(sh.records, k)
	sh.mu.Unlock()
	if existed {
		s.size.Add(-1)
	}
}

// IterUser calls fn for every (user, package) record belonging to user, in
// deterministic package-name order (spec §4.4: "Scanner iteration is
// deterministic per user to produce reproducible tests").
func (s *Store) IterUser(user int, fn func(models.AppKey, models.History)) {
	type pair struct {
		key models.AppKey
		rec models.History
	}
	var pairs []pair
	for _, sh := range s.shards {
		sh.mu.RLock()
		for k, v := range sh.records {
			if k.User == user {
				pairs = append(pairs, pair{k, v.Clone()})
			}
		}
		sh.mu.RUnlock()
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].key.Package < pairs[j].key.Package })
	for _, p := range pairs {
		fn(p.key, p.rec)
	}
}

// Size returns the number of tracked records, used by the history-size
// health probe.
func (s *Store) Size() int { return int(s.size.Load()) }

// RegisterListener adds a listener invoked on every bucket change.
func (s *Store) RegisterListener(l Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

func (s *Store) notify(n ChangeNotification) {
	s.mu.RLock()
	ls := append([]Listener(nil), s.listeners...)
	s.mu.RUnlock()
	for _, l := range ls {
		l(n)
	}
	if s.bus != nil {
		_ = s.bus.Publish(events.Event{
			Category: events.CategoryBucket,
			Type:     "bucket_changed",
			Labels:   map[string]string{"package": n.Key.Package},
			Fields: map[string]interface{}{
				"user":       n.Key.User,
				"old_bucket": n.OldBucket.String(),
				"new_bucket": n.NewBucket.String(),
				"reason":     n.Reason.String(),
			},
		})
	}
}
