// Copyright 2025 ClassBlogs
// SPDX-License-Identifier: BUSL-1.1
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package aggregator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"classblogs/platform/events"
	"classblogs/platform/shared/logger"
	"classblogs/platform/shared/types"
)

var (
	promCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classblogs_aggregation_cache_hits_total",
		Help: "Aggregation cache hits",
	}, []string{"class"})

	promCacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classblogs_aggregation_cache_misses_total",
		Help: "Aggregation cache misses",
	}, []string{"class"})
)

// dataClass groups cache keys by the kind of content they derive from, so
// a mutation event only invalidates the aggregates it can actually affect.
type dataClass string

const (
	classPosts    dataClass = "posts"
	classComments dataClass = "comments"
	classTags     dataClass = "tags"
)

// DefaultMaxAge bounds how long an aggregate may be served without any
// recorded mutation event before it is recomputed anyway.
const DefaultMaxAge = 15 * time.Minute

type memoEntry struct {
	value       interface{}
	computedAt  time.Time
	gen         uint64
	provisional bool
}

// Cache memoizes Engine results keyed by (method, arguments). An entry is
// stale once a relevant mutation event fires, the tenant set changes, or
// its max age elapses. Recomputation is synchronous; the entry is swapped
// atomically, so readers see either the last-good value or the new one,
// never a partial merge. Provisional (budget-truncated) results are served
// but never treated as fresh, so the next read retries the full scan.
type Cache struct {
	engine    *Engine
	maxAge    time.Duration
	snapshots *SnapshotStore // optional cross-process mirror, may be nil

	mu      sync.Mutex
	entries map[string]*memoEntry
	gens    map[dataClass]uint64

	logger *logger.Logger
}

// NewCache wraps an engine with memoization. A non-positive maxAge selects
// DefaultMaxAge. snapshots may be nil.
func NewCache(engine *Engine, maxAge time.Duration, snapshots *SnapshotStore) *Cache {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Cache{
		engine:    engine,
		maxAge:    maxAge,
		snapshots: snapshots,
		entries:   make(map[string]*memoEntry),
		gens:      make(map[dataClass]uint64),
		logger:    logger.New("aggregation-cache"),
	}
}

// Subscriptions returns the event wiring that drives invalidation. The
// suite subscribes these on the mutation bus right after construction.
func (c *Cache) Subscriptions() []events.Subscription {
	return []events.Subscription{
		{
			Name:    "aggregation-cache/content",
			Kinds:   []events.Kind{events.PostPublished},
			Handler: func(events.Event) { c.invalidate(classPosts, classTags) },
		},
		{
			Name:    "aggregation-cache/comments",
			Kinds:   []events.Kind{events.CommentApproved},
			Handler: func(events.Event) { c.invalidate(classComments) },
		},
		{
			Name:    "aggregation-cache/tenant-set",
			Kinds:   []events.Kind{events.TenantAdded, events.TenantRemoved},
			Handler: func(events.Event) { c.invalidate(classPosts, classComments, classTags) },
		},
	}
}

// invalidate bumps the generation of the given classes. Entries computed
// under an older generation fail their next freshness check.
func (c *Cache) invalidate(classes ...dataClass) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, class := range classes {
		c.gens[class]++
	}
}

// freshLocked reports whether an entry may be served without recomputing
func (c *Cache) freshLocked(e *memoEntry, gen uint64) bool {
	return e != nil && !e.provisional && e.gen == gen && time.Since(e.computedAt) < c.maxAge
}

// PostsByUser returns the memoized posts-by-user aggregate, recomputing it
// first when stale. A cached serve performs zero tenant visits.
func (c *Cache) PostsByUser(ctx context.Context) (*PostsByUser, error) {
	const key = "posts_by_user"

	c.mu.Lock()
	defer c.mu.Unlock()

	gen := c.gens[classPosts]
	if e := c.entries[key]; c.freshLocked(e, gen) {
		promCacheHits.WithLabelValues(string(classPosts)).Inc()
		return e.value.(*PostsByUser), nil
	}
	promCacheMisses.WithLabelValues(string(classPosts)).Inc()

	// On a cold start another worker may already hold a last-good result.
	if c.entries[key] == nil && c.snapshots != nil {
		var snap PostsByUser
		if ok := c.loadSnapshot(ctx, key, &snap); ok && !snap.Provisional && time.Since(snap.ComputedAt) < c.maxAge {
			c.entries[key] = &memoEntry{value: &snap, computedAt: snap.ComputedAt, gen: gen}
			return &snap, nil
		}
	}

	value, err := c.engine.CollectPostsByUser(ctx)
	if err != nil {
		return nil, err
	}

	c.storeLocked(ctx, key, gen, value, value.Provisional, value.ComputedAt)
	return value, nil
}

// TotalCommentsForUser returns the memoized network-wide approved-comment
// total for one user.
func (c *Cache) TotalCommentsForUser(ctx context.Context, user types.UserID) (*CommentTotal, error) {
	key := fmt.Sprintf("total_comments/%d", user)

	c.mu.Lock()
	defer c.mu.Unlock()

	gen := c.gens[classComments]
	if e := c.entries[key]; c.freshLocked(e, gen) {
		promCacheHits.WithLabelValues(string(classComments)).Inc()
		return e.value.(*CommentTotal), nil
	}
	promCacheMisses.WithLabelValues(string(classComments)).Inc()

	if c.entries[key] == nil && c.snapshots != nil {
		var snap CommentTotal
		if ok := c.loadSnapshot(ctx, key, &snap); ok && !snap.Provisional && time.Since(snap.ComputedAt) < c.maxAge {
			c.entries[key] = &memoEntry{value: &snap, computedAt: snap.ComputedAt, gen: gen}
			return &snap, nil
		}
	}

	value, err := c.engine.TotalCommentsForUser(ctx, user)
	if err != nil {
		return nil, err
	}

	c.storeLocked(ctx, key, gen, value, value.Provisional, value.ComputedAt)
	return value, nil
}

// TagCloud returns the memoized network-wide tag usage aggregate.
func (c *Cache) TagCloud(ctx context.Context) (*TagCloud, error) {
	const key = "tag_cloud"

	c.mu.Lock()
	defer c.mu.Unlock()

	gen := c.gens[classTags]
	if e := c.entries[key]; c.freshLocked(e, gen) {
		promCacheHits.WithLabelValues(string(classTags)).Inc()
		return e.value.(*TagCloud), nil
	}
	promCacheMisses.WithLabelValues(string(classTags)).Inc()

	if c.entries[key] == nil && c.snapshots != nil {
		var snap TagCloud
		if ok := c.loadSnapshot(ctx, key, &snap); ok && !snap.Provisional && time.Since(snap.ComputedAt) < c.maxAge {
			c.entries[key] = &memoEntry{value: &snap, computedAt: snap.ComputedAt, gen: gen}
			return &snap, nil
		}
	}

	value, err := c.engine.CollectTagCloud(ctx)
	if err != nil {
		return nil, err
	}

	c.storeLocked(ctx, key, gen, value, value.Provisional, value.ComputedAt)
	return value, nil
}

// storeLocked swaps in a freshly computed entry. Provisional results are
// cached so callers can see them, but flagged so the next read recomputes.
// Only final results are mirrored to the snapshot store.
func (c *Cache) storeLocked(ctx context.Context, key string, gen uint64, value interface{}, provisional bool, computedAt time.Time) {
	c.entries[key] = &memoEntry{
		value:       value,
		computedAt:  computedAt,
		gen:         gen,
		provisional: provisional,
	}

	if provisional || c.snapshots == nil {
		return
	}
	if err := c.snapshots.Save(ctx, key, value); err != nil {
		// The mirror is an optimization for multi-worker deployments;
		// local serving continues without it.
		c.logger.WarnWithError("", "", "failed to mirror aggregate snapshot", err, map[string]interface{}{
			"key": key,
		})
	}
}

func (c *Cache) loadSnapshot(ctx context.Context, key string, out interface{}) bool {
	ok, err := c.snapshots.Load(ctx, key, out)
	if err != nil {
		c.logger.WarnWithError("", "", "failed to load aggregate snapshot", err, map[string]interface{}{
			"key": key,
		})
		return false
	}
	return ok
}
