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

package sitewide

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classblogs/platform/aggregator"
	"classblogs/platform/options"
	"classblogs/platform/plugins/base"
	"classblogs/platform/shared/logger"
	"classblogs/platform/shared/types"
	"classblogs/platform/tenants"
)

type fakeStore struct {
	mu      sync.Mutex
	tenants []types.TenantID
	posts   map[types.TenantID][]tenants.Post
	current []types.TenantID
}

func (f *fakeStore) EnumerateTenants(ctx context.Context) ([]types.TenantID, error) {
	return f.tenants, nil
}

func (f *fakeStore) Enter(ctx context.Context, id types.TenantID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = append(f.current, id)
	return nil
}

func (f *fakeStore) Leave() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = f.current[:len(f.current)-1]
}

func (f *fakeStore) ListPublishedPosts(ctx context.Context, since time.Time) ([]tenants.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.posts[f.current[len(f.current)-1]], nil
}

func (f *fakeStore) CountApprovedComments(ctx context.Context, author types.UserID) (int, error) {
	return 0, nil
}

type fakeDirectory struct{}

func (fakeDirectory) LookupUser(ctx context.Context, id types.UserID) (tenants.User, bool, error) {
	return tenants.User{ID: id, DisplayName: "Student"}, true, nil
}

func day(n int) time.Time {
	return time.Date(2025, time.March, n, 12, 0, 0, 0, time.UTC)
}

func newComponent(t *testing.T, store *fakeStore) (*Component, *base.Env) {
	t.Helper()
	network := types.DefaultNetworkConfig("main")
	switcher := tenants.NewSwitcher(store, network)
	engine := aggregator.NewEngine(store, switcher, fakeDirectory{}, 0)
	cache := aggregator.NewCache(engine, 0, nil)
	env := &base.Env{
		Options: options.NewMemoryStore(switcher.Current),
		Logger:  logger.New("test"),
		Network: network,
	}
	return New(env, cache), env
}

func TestRecentPostsNewestFirstAcrossTenants(t *testing.T) {
	store := &fakeStore{
		tenants: []types.TenantID{"t1", "t2"},
		posts: map[types.TenantID][]tenants.Post{
			"t1": {{ID: 1, Tenant: "t1", AuthorID: 7, Title: "old", Published: day(1)}},
			"t2": {{ID: 2, Tenant: "t2", AuthorID: 8, Title: "new", Published: day(5)}},
		},
	}
	c, _ := newComponent(t, store)

	posts, err := c.RecentPosts(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "new", posts[0].Title)
	assert.Equal(t, "old", posts[1].Title)
}

func TestRecentPostsHonorsFeedLength(t *testing.T) {
	store := &fakeStore{
		tenants: []types.TenantID{"t1"},
		posts: map[types.TenantID][]tenants.Post{
			"t1": {
				{ID: 1, Tenant: "t1", AuthorID: 7, Published: day(1)},
				{ID: 2, Tenant: "t1", AuthorID: 7, Published: day(2)},
				{ID: 3, Tenant: "t1", AuthorID: 7, Published: day(3)},
			},
		},
	}
	c, env := newComponent(t, store)
	require.NoError(t, env.Options.SetNetworkOption(context.Background(), OptFeedLength, "2"))

	posts, err := c.RecentPosts(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, int64(3), posts[0].ID)
}

func TestRecentPostsSkipsExcludedTenants(t *testing.T) {
	store := &fakeStore{
		tenants: []types.TenantID{"t1", "t2"},
		posts: map[types.TenantID][]tenants.Post{
			"t1": {{ID: 1, Tenant: "t1", AuthorID: 7, Published: day(1)}},
			"t2": {{ID: 2, Tenant: "t2", AuthorID: 8, Published: day(2)}},
		},
	}
	c, env := newComponent(t, store)
	require.NoError(t, options.AddToNetworkList(context.Background(), env.Options, OptExcludedTenants, "t2"))

	posts, err := c.RecentPosts(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, types.TenantID("t1"), posts[0].Tenant)
}

func TestFeedLengthFallsBackOnBadValue(t *testing.T) {
	store := &fakeStore{tenants: []types.TenantID{}}
	c, env := newComponent(t, store)
	require.NoError(t, env.Options.SetNetworkOption(context.Background(), OptFeedLength, "not-a-number"))

	assert.Equal(t, defaultFeedLength, c.feedLength(context.Background()))
}

func TestAdminPageReportsSettings(t *testing.T) {
	store := &fakeStore{tenants: []types.TenantID{}}
	c, env := newComponent(t, store)
	require.NoError(t, options.AddToNetworkList(context.Background(), env.Options, OptExcludedTenants, "t9"))

	page := c.AdminPage()
	assert.Equal(t, "sitewide-feed", page.Slug)

	rec := httptest.NewRecorder()
	page.Handler(rec, httptest.NewRequest("GET", "/admin/components/sitewide-feed", nil))
	require.Equal(t, 200, rec.Code)

	var body struct {
		FeedLength      int      `json:"feed_length"`
		ExcludedTenants []string `json:"excluded_tenants"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, defaultFeedLength, body.FeedLength)
	assert.Equal(t, []string{"t9"}, body.ExcludedTenants)
}
