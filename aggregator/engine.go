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
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"classblogs/platform/shared/logger"
	"classblogs/platform/shared/types"
	"classblogs/platform/tenants"
)

// Prometheus metrics for network scans
var (
	promScanDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "classblogs_aggregation_scan_duration_seconds",
		Help:    "Duration of full network aggregation scans",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	promTenantsVisited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classblogs_aggregation_tenants_visited_total",
		Help: "Tenants visited during aggregation scans",
	}, []string{"method"})

	promTenantsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classblogs_aggregation_tenants_skipped_total",
		Help: "Tenants skipped during aggregation scans due to errors",
	}, []string{"method"})

	promProvisionalScans = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classblogs_aggregation_provisional_scans_total",
		Help: "Scans that exceeded their wall-clock budget and returned partial results",
	}, []string{"method"})
)

// DefaultScanBudget bounds one full network scan. A scan over N tenants
// costs N sequential queries; exceeding the budget is a soft failure that
// returns partial results rather than hanging the request.
const DefaultScanBudget = 30 * time.Second

// UserPosts is the aggregate for one author: every post that author
// published anywhere on the network, most recent first.
type UserPosts struct {
	User        types.UserID   `json:"user"`
	DisplayName string         `json:"display_name,omitempty"`
	Posts       []tenants.Post `json:"posts"`
	Latest      time.Time      `json:"latest"`
}

// PostsByUser is the full posts-by-user aggregate. Users is ordered
// descending by each author's most recent post. Authors with zero posts do
// not appear. Provisional marks a scan that exceeded its budget and
// covers only part of the network.
type PostsByUser struct {
	Users             []UserPosts `json:"users"`
	Provisional       bool        `json:"provisional"`
	ComputedAt        time.Time   `json:"computed_at"`
	TenantFingerprint string      `json:"tenant_fingerprint"`
}

// CommentTotal is the network-wide approved-comment count for one user.
// Zero is a normal value, not an error.
type CommentTotal struct {
	User              types.UserID `json:"user"`
	Total             int          `json:"total"`
	Provisional       bool         `json:"provisional"`
	ComputedAt        time.Time    `json:"computed_at"`
	TenantFingerprint string       `json:"tenant_fingerprint"`
}

// TagCount is one tag's network-wide usage count
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// TagCloud is the network-wide tag usage aggregate, heaviest tags first.
type TagCloud struct {
	Tags              []TagCount `json:"tags"`
	Provisional       bool       `json:"provisional"`
	ComputedAt        time.Time  `json:"computed_at"`
	TenantFingerprint string     `json:"tenant_fingerprint"`
}

// Engine aggregates content across every tenant on the network. Tenant
// visits are strictly sequential: the tenant context is process-global
// state, so there is no parallel fan-out.
type Engine struct {
	store    tenants.Store
	switcher *tenants.Switcher
	users    tenants.UserDirectory // may be nil; display names are then omitted
	budget   time.Duration
	logger   *logger.Logger
}

// NewEngine creates an aggregation engine. A non-positive budget selects
// DefaultScanBudget.
func NewEngine(store tenants.Store, switcher *tenants.Switcher, users tenants.UserDirectory, budget time.Duration) *Engine {
	if budget <= 0 {
		budget = DefaultScanBudget
	}
	return &Engine{
		store:    store,
		switcher: switcher,
		users:    users,
		budget:   budget,
		logger:   logger.New("aggregator"),
	}
}

// scan enumerates the tenant set once, then visits each tenant inside a
// guard so the context is always restored, even when extraction fails.
// A failing tenant is skipped and logged, never fatal. Returns the tenant
// fingerprint and whether the scan ran out of budget.
func (e *Engine) scan(ctx context.Context, method string, extract func(ctx context.Context, tenant types.TenantID) error) (fingerprint string, provisional bool, err error) {
	start := time.Now()
	deadline := start.Add(e.budget)

	ids, err := e.store.EnumerateTenants(ctx)
	if err != nil {
		return "", false, err
	}
	fingerprint = Fingerprint(ids)

	for i, tenant := range ids {
		if time.Now().After(deadline) || ctx.Err() != nil {
			provisional = true
			promProvisionalScans.WithLabelValues(method).Inc()
			e.logger.Warn("", "", "scan budget exceeded, returning partial results", map[string]interface{}{
				"method":  method,
				"visited": i,
				"total":   len(ids),
			})
			break
		}

		if visitErr := e.visit(ctx, tenant, extract); visitErr != nil {
			promTenantsSkipped.WithLabelValues(method).Inc()
			e.logger.WarnWithError(tenant.String(), "", "tenant skipped during scan", visitErr, map[string]interface{}{
				"method": method,
			})
			continue
		}
		promTenantsVisited.WithLabelValues(method).Inc()
	}

	promScanDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	return fingerprint, provisional, nil
}

// visit runs extract inside one tenant's context. The guard's Leave runs
// on every exit path.
func (e *Engine) visit(ctx context.Context, tenant types.TenantID, extract func(ctx context.Context, tenant types.TenantID) error) error {
	guard, err := e.switcher.Enter(ctx, tenant)
	if err != nil {
		return err
	}
	defer guard.Leave()

	return extract(ctx, tenant)
}

// CollectPostsByUser visits every tenant, collects its published posts,
// and groups the cross-network collection by author. Within each author
// posts are ordered newest first; authors are ordered by their newest post.
func (e *Engine) CollectPostsByUser(ctx context.Context) (*PostsByUser, error) {
	byUser := make(map[types.UserID][]tenants.Post)

	fingerprint, provisional, err := e.scan(ctx, "posts_by_user", func(ctx context.Context, tenant types.TenantID) error {
		posts, err := e.store.ListPublishedPosts(ctx, time.Time{})
		if err != nil {
			return err
		}
		for _, p := range posts {
			p.Tenant = tenant
			byUser[p.AuthorID] = append(byUser[p.AuthorID], p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	users := make([]UserPosts, 0, len(byUser))
	for id, posts := range byUser {
		sort.Slice(posts, func(i, j int) bool {
			return posts[i].Published.After(posts[j].Published)
		})
		entry := UserPosts{
			User:   id,
			Posts:  posts,
			Latest: posts[0].Published,
		}
		if e.users != nil {
			if u, ok, lookupErr := e.users.LookupUser(ctx, id); lookupErr == nil && ok {
				entry.DisplayName = u.DisplayName
			}
		}
		users = append(users, entry)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Latest.Equal(users[j].Latest) {
			return users[i].User < users[j].User
		}
		return users[i].Latest.After(users[j].Latest)
	})

	return &PostsByUser{
		Users:             users,
		Provisional:       provisional,
		ComputedAt:        time.Now().UTC(),
		TenantFingerprint: fingerprint,
	}, nil
}

// TotalCommentsForUser sums the user's approved comments across every
// tenant. A user who has never commented anywhere totals zero.
func (e *Engine) TotalCommentsForUser(ctx context.Context, user types.UserID) (*CommentTotal, error) {
	total := 0

	fingerprint, provisional, err := e.scan(ctx, "total_comments", func(ctx context.Context, tenant types.TenantID) error {
		n, err := e.store.CountApprovedComments(ctx, user)
		if err != nil {
			return err
		}
		total += n
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &CommentTotal{
		User:              user,
		Total:             total,
		Provisional:       provisional,
		ComputedAt:        time.Now().UTC(),
		TenantFingerprint: fingerprint,
	}, nil
}

// CollectTagCloud aggregates tag usage network-wide. Tags are normalized
// case- and whitespace-insensitively before counting.
func (e *Engine) CollectTagCloud(ctx context.Context) (*TagCloud, error) {
	counts := make(map[string]int)

	fingerprint, provisional, err := e.scan(ctx, "tag_cloud", func(ctx context.Context, tenant types.TenantID) error {
		posts, err := e.store.ListPublishedPosts(ctx, time.Time{})
		if err != nil {
			return err
		}
		for _, p := range posts {
			for _, tag := range p.Tags {
				normalized := NormalizeTag(tag)
				if normalized == "" {
					continue
				}
				counts[normalized]++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	tags := make([]TagCount, 0, len(counts))
	for tag, count := range counts {
		tags = append(tags, TagCount{Tag: tag, Count: count})
	}
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].Count == tags[j].Count {
			return tags[i].Tag < tags[j].Tag
		}
		return tags[i].Count > tags[j].Count
	})

	return &TagCloud{
		Tags:              tags,
		Provisional:       provisional,
		ComputedAt:        time.Now().UTC(),
		TenantFingerprint: fingerprint,
	}, nil
}

// NormalizeTag lowercases and collapses surrounding and internal runs of
// whitespace so "Final  Project" and "final project" count as one tag.
func NormalizeTag(tag string) string {
	return strings.Join(strings.Fields(strings.ToLower(tag)), " ")
}

// Fingerprint derives a stable identifier for a tenant set. Two scans over
// the same set produce the same fingerprint regardless of enumeration
// order.
func Fingerprint(ids []types.TenantID) string {
	sorted := make([]string, len(ids))
	for i, id := range ids {
		sorted[i] = id.String()
	}
	sort.Strings(sorted)

	sum := sha256.Sum256([]byte(strings.Join(sorted, "\x00")))
	return hex.EncodeToString(sum[:8])
}
