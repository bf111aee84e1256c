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

package options

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classblogs/platform/shared/types"
)

func fixedTenant(id types.TenantID) CurrentTenantFunc {
	return func() types.TenantID { return id }
}

func TestStore_GetNetworkOption(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT value FROM network_options").
		WithArgs("feed_length").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("10"))

	store := NewStore(db, fixedTenant("blog-1"), time.Minute)
	value, ok, err := store.GetNetworkOption(context.Background(), "feed_length")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "10", value)

	// Second read is served from the TTL cache, no extra query.
	value, ok, err = store.GetNetworkOption(context.Background(), "feed_length")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "10", value)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetNetworkOption_AbsentIsNotError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT value FROM network_options").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	store := NewStore(db, fixedTenant("blog-1"), time.Minute)
	_, ok, err := store.GetNetworkOption(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_SetNetworkOption_RefreshesCache(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO network_options").
		WithArgs("feed_length", "25").
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewStore(db, fixedTenant("blog-1"), time.Minute)
	require.NoError(t, store.SetNetworkOption(context.Background(), "feed_length", "25"))

	// The write primed the cache; no SELECT is expected.
	value, ok, err := store.GetNetworkOption(context.Background(), "feed_length")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "25", value)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_TenantOptionsScopedToCurrentTenant(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	current := types.TenantID("blog-1")
	store := NewStore(db, func() types.TenantID { return current }, time.Minute)

	mock.ExpectExec("INSERT INTO tenant_options").
		WithArgs("blog-1", "portfolio_page", "42").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.SetTenantOption(context.Background(), "portfolio_page", "42"))

	// After a context switch the same key targets the other tenant; the
	// cached blog-1 value must not leak across.
	current = "blog-2"
	mock.ExpectQuery("SELECT value FROM tenant_options").
		WithArgs("blog-2", "portfolio_page").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	_, ok, err := store.GetTenantOption(context.Background(), "portfolio_page")
	require.NoError(t, err)
	assert.False(t, ok, "tenant options must not bleed between tenants")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryStore_SeparatesScopes(t *testing.T) {
	current := types.TenantID("blog-1")
	store := NewMemoryStore(func() types.TenantID { return current })
	ctx := context.Background()

	require.NoError(t, store.SetNetworkOption(ctx, "key", "network-value"))
	require.NoError(t, store.SetTenantOption(ctx, "key", "tenant-value"))

	nv, ok, err := store.GetNetworkOption(ctx, "key")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "network-value", nv)

	tv, ok, err := store.GetTenantOption(ctx, "key")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "tenant-value", tv)

	// Switching tenants hides blog-1's bag.
	current = "blog-2"
	_, ok, err = store.GetTenantOption(ctx, "key")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReadCache_Expiry(t *testing.T) {
	c := newReadCache(10 * time.Millisecond)
	c.set("k", "v")

	v, ok := c.get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	time.Sleep(20 * time.Millisecond)
	_, ok = c.get("k")
	assert.False(t, ok)

	assert.Equal(t, 1, c.cleanup())
}
