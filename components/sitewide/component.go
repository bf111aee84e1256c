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

// Package sitewide feeds the network front page: the most recent posts
// from every blog on the network and the network-wide tag cloud.
package sitewide

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"

	"classblogs/platform/aggregator"
	"classblogs/platform/options"
	"classblogs/platform/plugins/base"
	"classblogs/platform/tenants"
)

// ComponentID is the registry identifier for this component
const ComponentID = "sitewide-feed"

// Option keys
const (
	OptFeedLength      = "sitewide_feed_length"
	OptExcludedTenants = "sitewide_excluded_tenants"
)

const defaultFeedLength = 10

// Component renders aggregated network content for the front page
type Component struct {
	env        *base.Env
	aggregates *aggregator.Cache
}

var (
	_ base.Configurable      = (*Component)(nil)
	_ base.AdminPageProvider = (*Component)(nil)
)

// New creates the sitewide feed component
func New(env *base.Env, aggregates *aggregator.Cache) *Component {
	return &Component{env: env, aggregates: aggregates}
}

// ID returns the registry identifier
func (c *Component) ID() string { return ComponentID }

// DefaultNetworkOptions seeds the feed length and the excluded-tenant list
func (c *Component) DefaultNetworkOptions() map[string]string {
	return map[string]string{
		OptFeedLength:      strconv.Itoa(defaultFeedLength),
		OptExcludedTenants: "[]",
	}
}

// DefaultTenantOptions returns nothing; this component is network-scoped
func (c *Component) DefaultTenantOptions() map[string]string { return nil }

// feedLength reads the configured feed length, falling back to the default
func (c *Component) feedLength(ctx context.Context) int {
	raw, ok, err := c.env.Options.GetNetworkOption(ctx, OptFeedLength)
	if err != nil || !ok {
		return defaultFeedLength
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return defaultFeedLength
	}
	return n
}

// RecentPosts returns the newest posts network-wide, excluding tenants an
// administrator has opted out of the front page.
func (c *Component) RecentPosts(ctx context.Context) ([]tenants.Post, error) {
	aggregate, err := c.aggregates.PostsByUser(ctx)
	if err != nil {
		return nil, err
	}

	excluded, err := options.NetworkList(ctx, c.env.Options, OptExcludedTenants)
	if err != nil {
		return nil, err
	}
	excludedSet := make(map[string]bool, len(excluded))
	for _, id := range excluded {
		excludedSet[id] = true
	}

	var posts []tenants.Post
	for _, user := range aggregate.Users {
		for _, p := range user.Posts {
			if excludedSet[string(p.Tenant)] {
				continue
			}
			posts = append(posts, p)
		}
	}

	sort.Slice(posts, func(i, j int) bool {
		return posts[i].Published.After(posts[j].Published)
	})

	if limit := c.feedLength(ctx); len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

// TagCloud returns the network-wide weighted tag list
func (c *Component) TagCloud(ctx context.Context) ([]aggregator.TagCount, error) {
	cloud, err := c.aggregates.TagCloud(ctx)
	if err != nil {
		return nil, err
	}
	return cloud.Tags, nil
}

// AdminPage contributes the feed settings page
func (c *Component) AdminPage() base.AdminPage {
	return base.AdminPage{
		Slug:  "sitewide-feed",
		Title: "Sitewide Feed",
		Handler: func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			excluded, err := options.NetworkList(ctx, c.env.Options, OptExcludedTenants)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"feed_length":      c.feedLength(ctx),
				"excluded_tenants": excluded,
			})
		},
	}
}
