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

package registry

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgreSQLStorage_LoadDisabled(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"component_id"}).
		AddRow("gravatar").
		AddRow("word-counter")
	mock.ExpectQuery("SELECT component_id FROM component_settings WHERE disabled = TRUE").
		WillReturnRows(rows)

	storage := NewPostgreSQLStorageWithDB(db)
	disabled, err := storage.LoadDisabled(context.Background())
	require.NoError(t, err)

	assert.Len(t, disabled, 2)
	assert.True(t, disabled["gravatar"])
	assert.True(t, disabled["word-counter"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLStorage_LoadDisabled_Empty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT component_id FROM component_settings").
		WillReturnRows(sqlmock.NewRows([]string{"component_id"}))

	storage := NewPostgreSQLStorageWithDB(db)
	disabled, err := storage.LoadDisabled(context.Background())
	require.NoError(t, err)

	assert.Empty(t, disabled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLStorage_SetDisabled(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO component_settings").
		WithArgs("gravatar", true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	storage := NewPostgreSQLStorageWithDB(db)
	err = storage.SetDisabled(context.Background(), "gravatar", true)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLStorage_SetDisabled_Error(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO component_settings").
		WithArgs("gravatar", false).
		WillReturnError(assert.AnError)

	storage := NewPostgreSQLStorageWithDB(db)
	err = storage.SetDisabled(context.Background(), "gravatar", false)
	assert.Error(t, err)
}
