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

/*
Package aggregator computes cross-tenant content aggregates for the blog
network: posts grouped by author, per-user approved-comment totals, and the
network-wide tag cloud.

# Scanning

The Engine performs a full network scan per aggregate: it enumerates
tenants once, then visits each tenant sequentially under a switcher guard.
Visits are never parallel because the tenant context is process-global
state. A tenant that fails to enter or query is skipped and logged; the
scan continues with the remaining tenants.

Every scan runs under a wall-clock budget. When the budget expires the
partial result is returned with Provisional set, covering only the tenants
visited so far.

# Caching

The Cache memoizes engine results keyed by operation and arguments.
Entries stay fresh until a relevant mutation event arrives (via
Subscriptions), the freshness window lapses, or the entry was provisional.
Recomputes are synchronous under one mutex and the finished value is
swapped in atomically, so readers never observe a partially merged
aggregate.

An optional Redis snapshot mirror persists final (never provisional)
results so a freshly started worker can serve the last good aggregate
without scanning, provided the snapshot is still within the freshness
window.

# Usage

	engine := aggregator.NewEngine(store, switcher, directory, 30*time.Second)
	cache := aggregator.NewCache(engine, 15*time.Minute, nil)

	posts, err := cache.PostsByUser(ctx)
	if err != nil {
	    return err
	}
	for _, user := range posts.Users {
	    fmt.Println(user.DisplayName, len(user.Posts))
	}
*/
package aggregator
