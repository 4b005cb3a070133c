package history

import "github.com/99souls/appstandby/models"

// SchemaVersion is the current Snapshot wire format version (spec §3.1).
const SchemaVersion = 1

// Record is one (user, package) history entry in a Snapshot.
type Record struct {
	User                   int            `json:"user"`
	Package                string         `json:"package"`
	CurrentBucket          models.Bucket  `json:"current_bucket"`
	CurrentReason          models.Reason  `json:"current_reason"`
	BucketSetAtElapsed     uint64         `json:"bucket_set_at_elapsed"`
	LastUsedElapsed        uint64         `json:"last_used_elapsed"`
	LastUsedScreenOn       uint64         `json:"last_used_screen_on_elapsed"`
	LastPredictedBucket    *models.Bucket `json:"last_predicted_bucket,omitempty"`
	LastPredictedAtElapsed *uint64        `json:"last_predicted_at_elapsed,omitempty"`
	ForcedIdle             bool           `json:"forced_idle"`
}

// Snapshot is the serializable form of the store, emitted for persistence
// and accepted on startup (spec §6, "Persistence layout"). Writing the
// bytes to the host's data directory is the host's job; the store only
// produces/consumes them.
type Snapshot struct {
	SchemaVersion int      `json:"schema_version"`
	Records       []Record `json:"records"`
}

// Snapshot captures every tracked record across every user.
func (s *Store) Snapshot() Snapshot {
	snap := Snapshot{SchemaVersion: SchemaVersion}
	for _, sh := range s.shards {
		sh.mu.RLock()
		for k, v := range sh.records {
			snap.Records = append(snap.Records, Record{
				User:                   k.User,
				Package:                k.Package,
				CurrentBucket:          v.CurrentBucket,
				CurrentReason:          v.CurrentReason,
				BucketSetAtElapsed:     v.BucketSetAtElapsed,
				LastUsedElapsed:        v.LastUsedElapsed,
				LastUsedScreenOn:       v.LastUsedScreenOn,
				LastPredictedBucket:    v.LastPredictedBucket,
				LastPredictedAtElapsed: v.LastPredictedAtElapsed,
				ForcedIdle:             v.ForcedIdle,
			})
		}
		sh.mu.RUnlock()
	}
	return snap
}

// Restore replaces the store's contents with snap's records. Existing
// records not present in snap are removed; intended for startup only.
func (s *Store) Restore(snap Snapshot) {
	for _, sh := range s.shards {
		sh.mu.Lock()
		sh.records = make(map[models.AppKey]models.History)
		sh.mu.Unlock()
	}
	s.size.Store(0)
	for _, r := range snap.Records {
		k := models.AppKey{User: r.User, Package: r.Package}
		h := models.History{
			CurrentBucket:          r.CurrentBucket,
			CurrentReason:          r.CurrentReason,
			BucketSetAtElapsed:     r.BucketSetAtElapsed,
			LastUsedElapsed:        r.LastUsedElapsed,
			LastUsedScreenOn:       r.LastUsedScreenOn,
			LastPredictedBucket:    r.LastPredictedBucket,
			LastPredictedAtElapsed: r.LastPredictedAtElapsed,
			ForcedIdle:             r.ForcedIdle,
		}
		sh := s.shardFor(k)
		sh.mu.Lock()
		sh.records[k] = h
		sh.mu.Unlock()
		s.size.Add(1)
	}
}
