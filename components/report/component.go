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

// Package report builds per-student activity summaries for instructors:
// how many posts a student has published across the network and how many
// of their comments have been approved.
package report

import (
	"context"
	"time"

	"classblogs/platform/aggregator"
	"classblogs/platform/options"
	"classblogs/platform/plugins/base"
	"classblogs/platform/shared/types"
)

// ComponentID is the registry identifier for this component
const ComponentID = "student-report"

// OptIncludedTenants names the tenant-scoped list of blogs that count
// toward a student's post totals. An empty list means every blog counts.
const OptIncludedTenants = "report_included_tenants"

// Report is one student's cross-network activity summary. LastPosted is
// nil for a student with no counted posts.
type Report struct {
	User        types.UserID `json:"user"`
	DisplayName string       `json:"display_name,omitempty"`
	Posts       int          `json:"posts"`
	Comments    int          `json:"comments"`
	LastPosted  *time.Time   `json:"last_posted,omitempty"`
	Provisional bool         `json:"provisional"`
}

// Component produces student activity reports from cached aggregates
type Component struct {
	env        *base.Env
	aggregates *aggregator.Cache
}

var _ base.Configurable = (*Component)(nil)

// New creates the student report component
func New(env *base.Env, aggregates *aggregator.Cache) *Component {
	return &Component{env: env, aggregates: aggregates}
}

// ID returns the registry identifier
func (c *Component) ID() string { return ComponentID }

// DefaultNetworkOptions returns nothing; reports have no network settings
func (c *Component) DefaultNetworkOptions() map[string]string { return nil }

// DefaultTenantOptions seeds the included-tenants filter for the
// instructor's own class blog.
func (c *Component) DefaultTenantOptions() map[string]string {
	return map[string]string{OptIncludedTenants: "[]"}
}

// ActivityReport summarizes one student's network activity. Post counts
// honor the current tenant's included-tenants filter; comment totals are
// always network-wide.
func (c *Component) ActivityReport(ctx context.Context, user types.UserID) (*Report, error) {
	posts, err := c.aggregates.PostsByUser(ctx)
	if err != nil {
		return nil, err
	}
	comments, err := c.aggregates.TotalCommentsForUser(ctx, user)
	if err != nil {
		return nil, err
	}

	included, err := options.TenantList(ctx, c.env.Options, OptIncludedTenants)
	if err != nil {
		return nil, err
	}
	includedSet := make(map[string]bool, len(included))
	for _, id := range included {
		includedSet[id] = true
	}

	report := &Report{
		User:        user,
		Comments:    comments.Total,
		Provisional: posts.Provisional || comments.Provisional,
	}
	for _, u := range posts.Users {
		if u.User != user {
			continue
		}
		report.DisplayName = u.DisplayName
		for _, p := range u.Posts {
			if len(includedSet) > 0 && !includedSet[string(p.Tenant)] {
				continue
			}
			report.Posts++
			if report.LastPosted == nil || p.Published.After(*report.LastPosted) {
				published := p.Published
				report.LastPosted = &published
			}
		}
		break
	}
	return report, nil
}
