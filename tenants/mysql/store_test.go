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

package mysql

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classblogs/platform/shared/types"
	"classblogs/platform/tenants"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db, "blog_", "classblogs_network"), mock
}

func TestEnumerateTenants(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id FROM").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("blog-1").AddRow("blog-2"))

	ids, err := store.EnumerateTenants(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []types.TenantID{"blog-1", "blog-2"}, ids)
}

func TestEnterLeave_SelectsAndRestoresDatabase(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("blog_blog_7").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec(regexp.QuoteMeta("USE `blog_blog_7`")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("USE `classblogs_network`")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Enter(context.Background(), "blog-7"))
	store.Leave()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnter_MissingDatabaseIsUnavailable(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("blog_gone").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	err := store.Enter(context.Background(), "gone")
	assert.ErrorIs(t, err, tenants.ErrTenantUnavailable)
}

func TestEnter_RejectsBadTenantID(t *testing.T) {
	store, _ := newMockStore(t)

	err := store.Enter(context.Background(), "x`; DROP DATABASE x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, tenants.ErrTenantUnavailable)
}

func TestListPublishedPosts_SplitsTagList(t *testing.T) {
	store, mock := newMockStore(t)

	published := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT p.id, p.author_id").
		WillReturnRows(sqlmock.NewRows([]string{"id", "author_id", "title", "permalink", "published_at", "tags"}).
			AddRow(1, 9, "My Essay", "/2026/03/my-essay", published, "essay,final project").
			AddRow(2, 9, "Untagged", "/2026/03/untagged", published, ""))

	posts, err := store.ListPublishedPosts(context.Background(), time.Time{})
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, []string{"essay", "final project"}, posts[0].Tags)
	assert.Nil(t, posts[1].Tags)
}

func TestCountApprovedComments(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := store.CountApprovedComments(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}
