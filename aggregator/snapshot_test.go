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
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classblogs/platform/shared/types"
	"classblogs/platform/tenants"
)

func newTestSnapshots(t *testing.T) (*SnapshotStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewSnapshotStore(client, time.Hour), mr
}

func TestSnapshotStore_SaveLoadRoundTrip(t *testing.T) {
	snapshots, _ := newTestSnapshots(t)
	ctx := context.Background()

	in := &CommentTotal{User: 5, Total: 12, ComputedAt: time.Now().UTC()}
	require.NoError(t, snapshots.Save(ctx, "total_comments/5", in))

	var out CommentTotal
	ok, err := snapshots.Load(ctx, "total_comments/5", &out)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, in.User, out.User)
	assert.Equal(t, in.Total, out.Total)
}

func TestSnapshotStore_LoadAbsent(t *testing.T) {
	snapshots, _ := newTestSnapshots(t)

	var out TagCloud
	ok, err := snapshots.Load(context.Background(), "tag_cloud", &out)
	require.NoError(t, err)
	assert.False(t, ok, "absence is a normal outcome")
}

func TestSnapshotStore_Invalidate(t *testing.T) {
	snapshots, _ := newTestSnapshots(t)
	ctx := context.Background()

	require.NoError(t, snapshots.Save(ctx, "tag_cloud", &TagCloud{}))
	require.NoError(t, snapshots.Invalidate(ctx, "tag_cloud"))

	var out TagCloud
	ok, err := snapshots.Load(ctx, "tag_cloud", &out)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_MirrorsFinalResults(t *testing.T) {
	snapshots, mr := newTestSnapshots(t)

	store := newFakeNetwork("blog-1")
	store.addPost("blog-1", 1, "a", ts(1))
	sw := tenants.NewSwitcher(store, types.DefaultNetworkConfig("blog-1"))
	engine := NewEngine(store, sw, nil, time.Minute)
	cache := NewCache(engine, time.Hour, snapshots)

	_, err := cache.PostsByUser(context.Background())
	require.NoError(t, err)

	assert.True(t, mr.Exists(snapshotKeyPrefix+"posts_by_user"))
}

func TestCache_ColdStartUsesMirror(t *testing.T) {
	snapshots, _ := newTestSnapshots(t)
	ctx := context.Background()

	// A previous worker computed and mirrored this aggregate.
	require.NoError(t, snapshots.Save(ctx, "posts_by_user", &PostsByUser{
		Users:      []UserPosts{{User: 1, Latest: ts(1)}},
		ComputedAt: time.Now().UTC(),
	}))

	store := newFakeNetwork("blog-1")
	store.addPost("blog-1", 1, "a", ts(1))
	sw := tenants.NewSwitcher(store, types.DefaultNetworkConfig("blog-1"))
	engine := NewEngine(store, sw, nil, time.Minute)
	cache := NewCache(engine, time.Hour, snapshots)

	result, err := cache.PostsByUser(ctx)
	require.NoError(t, err)
	require.Len(t, result.Users, 1)
	assert.Equal(t, 0, store.enterCalls, "cold start served from the mirror performs no tenant visits")
}

func TestCache_StaleMirrorIgnored(t *testing.T) {
	snapshots, _ := newTestSnapshots(t)
	ctx := context.Background()

	require.NoError(t, snapshots.Save(ctx, "posts_by_user", &PostsByUser{
		Users:      []UserPosts{{User: 99, Latest: ts(1)}},
		ComputedAt: time.Now().UTC().Add(-24 * time.Hour),
	}))

	store := newFakeNetwork("blog-1")
	store.addPost("blog-1", 1, "a", ts(1))
	sw := tenants.NewSwitcher(store, types.DefaultNetworkConfig("blog-1"))
	engine := NewEngine(store, sw, nil, time.Minute)
	cache := NewCache(engine, time.Hour, snapshots)

	result, err := cache.PostsByUser(ctx)
	require.NoError(t, err)
	require.Len(t, result.Users, 1)
	assert.Equal(t, types.UserID(1), result.Users[0].User, "aged mirror entry is recomputed, not served")
	assert.Equal(t, 1, store.enterCalls)
}
