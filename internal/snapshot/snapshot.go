// Package snapshot holds the process-wide immutable view of all flag and
// experiment definitions for one environment. Handlers read whole snapshots
// atomically; admin mutations rebuild and swap, so an in-flight evaluation
// never sees a half-updated config set.
package snapshot

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/anatolev-dev/variantgate/internal/store"
)

// Snapshot is an immutable view of the config set. Never mutate a loaded
// snapshot; build a new one and Update.
type Snapshot struct {
	ETag        string                      `json:"etag"`
	Flags       map[string]store.Flag       `json:"flags"`
	Experiments map[string]store.Experiment `json:"experiments"`
	UpdatedAt   time.Time                   `json:"updatedAt"`
}

var current atomic.Pointer[Snapshot]

// Load returns the current snapshot. Before the first Update it returns an
// empty snapshot rather than nil so handlers need no nil checks.
func Load() *Snapshot {
	if s := current.Load(); s != nil {
		return s
	}
	return &Snapshot{
		ETag:        "",
		Flags:       map[string]store.Flag{},
		Experiments: map[string]store.Experiment{},
		UpdatedAt:   time.Now().UTC(),
	}
}

// Update swaps in a new snapshot and notifies SSE listeners.
func Update(s *Snapshot) {
	current.Store(s)
	publishUpdate(s.ETag)
}

// Build assembles a snapshot from store rows and stamps it with a weak ETag
// derived from the serialized payload.
func Build(flags []store.Flag, experiments []store.Experiment) *Snapshot {
	flagMap := make(map[string]store.Flag, len(flags))
	for _, f := range flags {
		flagMap[f.Key] = f
	}
	expMap := make(map[string]store.Experiment, len(experiments))
	for _, e := range experiments {
		expMap[e.Key] = e
	}

	return &Snapshot{
		ETag:        computeETag(flagMap, expMap),
		Flags:       flagMap,
		Experiments: expMap,
		UpdatedAt:   time.Now().UTC(),
	}
}

func computeETag(flags map[string]store.Flag, experiments map[string]store.Experiment) string {
	blob, _ := json.Marshal(struct {
		Flags       map[string]store.Flag       `json:"flags"`
		Experiments map[string]store.Experiment `json:"experiments"`
	}{flags, experiments})
	return fmt.Sprintf(`W/"%016x"`, xxhash.Sum64(blob))
}
